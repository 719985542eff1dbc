package types

import "github.com/btcsuite/btcd/btcec/v2"

// FeeDenomination tags which resource a transaction's fee is paid in, per
// spec.md §3.3.
type FeeDenomination uint8

const (
	FeeNativeCoin FeeDenomination = iota
	FeeEnergy
)

// PayloadTag is the leading discriminant byte of the closed tagged union
// of transaction payload variants (spec.md §3.3/§6).
type PayloadTag uint8

const (
	PayloadTransfer PayloadTag = iota
	PayloadContractDeploy
	PayloadContractInvoke
	PayloadKYCCommit
	PayloadKYCCommitteeApprove
	PayloadArbitrationOpen
	PayloadArbitrationVote
	PayloadArbitrationSlash
	PayloadNFTMint
	PayloadNFTTransfer
	PayloadStakeFreeze
	PayloadStakeUnfreeze
	PayloadEnergyConsume
	PayloadTNSRegister
	PayloadTNSRenew
	PayloadReferral
)

// TxRef pins a transaction to a recent block, per spec.md §3.3
// ("reference to a recent block {topoheight, hash}"); used to bound how
// long a transaction remains valid and to detect replay across reorgs.
type TxRef struct {
	Topoheight uint64
	Hash       Hash
}

// AccessSet is the pre-declared conservative read/write set a payload
// commits to (spec.md §4.E). Entries are AccountIDs; a payload touching an
// account outside its declared set is an execution-time protocol
// violation (spec.md §9, "aborting on declaration undershoot").
type AccessSet struct {
	Reads  []AccountID
	Writes []AccountID
}

// Payload is the capability interface every transaction payload variant
// implements (spec.md §3.3: "treats payloads polymorphically over two
// capability interfaces: verify(state) and apply(state)").
type Payload interface {
	Tag() PayloadTag
	// Access returns the payload's declared read/write account set, used
	// by the execution scheduler (spec.md §4.E) to build the lock table.
	// Conservative() reports true for legacy payloads that predate
	// declared access sets; such payloads are always executed serially.
	Access() AccessSet
	Conservative() bool
	Verify(state TxState, tx *Transaction) error
	Apply(state TxState, tx *Transaction) error
	MarshalPayload() ([]byte, error)
}

// RecipientAware is an optional capability a Payload variant implements
// when it names a single recipient account (e.g. a transfer), used by
// internal/mempool's fee-denomination rule (spec.md §4.D: "`energy` fee
// not permitted for transactions whose recipient is a brand-new
// account") without mempool needing to import internal/payload's
// concrete types.
type RecipientAware interface {
	Recipient() (Hash, bool)
}

// Create2Aware is an optional capability a contract-creation Payload
// variant implements to name the deterministic address it would create,
// used by internal/mempool's reserve_create2_address (spec.md §4.D).
type Create2Aware interface {
	Create2Address() (Hash, bool)
}

// AccessHashes is an optional capability a Payload variant implements to
// name, as wire-stable account keys, the accounts its Apply touches.
// internal/blockprocessor resolves these keys to AccountIDs (a serial
// step, since resolution itself may register a brand-new account) before
// building the execution scheduler's types.AccessSet; Access() alone
// can't do this resolution itself since it takes no TxState. A payload
// that doesn't implement AccessHashes is scheduled conservatively
// regardless of what Access()/Conservative() report.
type AccessHashes interface {
	AccessHashes() (reads, writes []Hash)
}

// Transaction is the wire shape from spec.md §3.3/§6.
type Transaction struct {
	Version   uint8
	Nonce     uint64
	Sender    *btcec.PublicKey
	Payload   Payload
	Fee       uint64
	FeeDenom  FeeDenomination
	Reference TxRef
	Multisig  *MultisigPayload
	Signature [64]byte
}

// MultisigPayload carries threshold-signature material alongside a
// transaction, per spec.md §3.3 ("optional multisig payload"). Signer keys
// and the aggregate signature are serialized herumi/bls-eth-go-binary BLS
// values; verification (sign.go's verifyMultisigSignature) aggregates
// SignerKeys and checks AggregateSig against the transaction's signing
// hash.
type MultisigPayload struct {
	Threshold     uint32
	SignerKeys    [][]byte // serialized BLS public keys of participating signers
	AggregateSig  []byte
}

// Hash computes the transaction's identifying hash. The concrete codec
// lives in codec.go; Hash is defined here so payload/tx code can refer to
// it without importing the codec package separately.
func (tx *Transaction) Hash() (Hash, error) {
	b, err := EncodeTransaction(tx)
	if err != nil {
		return Hash{}, err
	}
	return Sha256d(b), nil
}
