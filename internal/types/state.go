package types

import "context"

// TxState is the capability surface a transaction payload's Verify/Apply
// methods are given. It is the narrow slice of internal/chainstate's
// facade (spec.md §4.F) that payload.go needs, kept here (rather than
// importing chainstate from the payload package) so that types stays the
// dependency root: types -> payload -> chainstate -> execution/
// blockprocessor, with no import cycle.
type TxState interface {
	GetBalance(ctx context.Context, account AccountID, asset AssetID) (uint64, error)
	SetBalance(ctx context.Context, account AccountID, asset AssetID, amount uint64) error
	GetNonce(ctx context.Context, account AccountID) (uint64, error)
	BumpNonce(ctx context.Context, account AccountID) error
	GetEnergy(ctx context.Context, account AccountID) (Energy, error)
	ConsumeEnergy(ctx context.Context, account AccountID, amount uint64) error
	FreezeEnergy(ctx context.Context, account AccountID, amount uint64) error
	UnfreezeEnergy(ctx context.Context, account AccountID, amount uint64) error

	ResolveAccount(ctx context.Context, key Hash) (AccountID, error)
	AccountByID(ctx context.Context, id AccountID) (Account, error)
	PutAccount(ctx context.Context, acct Account) error

	DeployContract(ctx context.Context, hash Hash, bytecode []byte, deployer AccountID) error
	GetContractData(ctx context.Context, contract Hash, key []byte) ([]byte, error)
	SetContractData(ctx context.Context, contract Hash, key, value []byte) error
	TransferFromContract(ctx context.Context, contract Hash, recipient AccountID, asset AssetID, amount uint64) error
	EmitEvent(ctx context.Context, contract Hash, topics [][]byte, data []byte)

	ScheduleExecution(ctx context.Context, contract Hash, kind uint8, maxGas uint64, params []byte, offer uint64, dueTopo uint64) (Hash, error)

	// Domain apply-hooks (spec.md §9's referenced-but-not-normative KYC
	// committee, arbitration juror, NFT and naming-service policies; the
	// state effects below are this core's own decision of what those
	// policies write, not a redesign of their off-chain rules).
	CommitKYC(ctx context.Context, subject AccountID, commitment Hash) error
	ApproveKYC(ctx context.Context, subject AccountID, approver AccountID, threshold uint32) (approved bool, err error)
	KYCStatus(ctx context.Context, subject AccountID) (KYCRecord, error)

	OpenArbitrationCase(ctx context.Context, caseID Hash, plaintiff, defendant AccountID, amount uint64, asset AssetID) error
	VoteArbitration(ctx context.Context, caseID Hash, juror AccountID, favorPlaintiff bool) error
	SlashArbitration(ctx context.Context, caseID Hash) error
	ArbitrationCaseStatus(ctx context.Context, caseID Hash) (ArbitrationCase, error)

	MintNFT(ctx context.Context, assetID Hash, owner AccountID, metadata []byte) error
	TransferNFT(ctx context.Context, assetID Hash, to AccountID) error
	NFTOwner(ctx context.Context, assetID Hash) (AccountID, error)

	RegisterTNSName(ctx context.Context, name string, owner AccountID, expiresAtTopo uint64) error
	RenewTNSName(ctx context.Context, name string, owner AccountID, newExpiresAtTopo uint64) error
	TNSNameInfo(ctx context.Context, name string) (TNSRecord, error)

	RecordReferralEdge(ctx context.Context, referee AccountID, referrer AccountID) error
	ReferralEdge(ctx context.Context, referee AccountID) (referrer AccountID, ok bool, err error)

	TopoHeight() uint64
}
