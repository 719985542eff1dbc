package payload

import (
	"context"
	"testing"

	"ghostdagcore/internal/types"
)

func TestTransferPayloadMovesBalanceBetweenSenderAndRecipient(t *testing.T) {
	ctx := context.Background()
	st := newTestState(t, 1)
	recipientKey := keyFromByte(42)

	p := &TransferPayload{To: recipientKey, Amount: 40, Asset: types.NativeAsset}
	tx := newTestTx(t, p)

	from, err := senderAccount(ctx, st, tx)
	if err != nil {
		t.Fatalf("senderAccount: %v", err)
	}
	if err := st.SetBalance(ctx, from, types.NativeAsset, 100); err != nil {
		t.Fatalf("SetBalance: %v", err)
	}

	if err := p.Verify(st, tx); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if err := p.Apply(st, tx); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	fromBal, _ := st.GetBalance(ctx, from, types.NativeAsset)
	if fromBal != 60 {
		t.Fatalf("expected sender balance 60, got %d", fromBal)
	}
	to, _ := st.ResolveAccount(ctx, recipientKey)
	toBal, _ := st.GetBalance(ctx, to, types.NativeAsset)
	if toBal != 40 {
		t.Fatalf("expected recipient balance 40, got %d", toBal)
	}
}

func TestTransferPayloadRejectsInsufficientBalance(t *testing.T) {
	ctx := context.Background()
	st := newTestState(t, 1)
	p := &TransferPayload{To: keyFromByte(42), Amount: 999, Asset: types.NativeAsset}
	tx := newTestTx(t, p)
	if err := p.Apply(st, tx); err == nil {
		t.Fatalf("expected a transfer beyond balance to fail")
	}
	_ = ctx
}

func TestContractDeployThenInvokeMovesFundsOut(t *testing.T) {
	ctx := context.Background()
	st := newTestState(t, 1)

	deploy := &ContractDeployPayload{Salt: keyFromByte(1), Bytecode: []byte{0xAB}}
	deployTx := newTestTx(t, deploy)
	if err := deploy.Verify(st, deployTx); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if err := deploy.Apply(st, deployTx); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	addr, _ := deploy.Create2Address()

	contractAcct, err := st.ResolveAccount(ctx, addr)
	if err != nil {
		t.Fatalf("ResolveAccount: %v", err)
	}
	if err := st.SetBalance(ctx, contractAcct, types.NativeAsset, 500); err != nil {
		t.Fatalf("SetBalance: %v", err)
	}

	invoke := &ContractInvokePayload{
		Contract:  addr,
		Key:       []byte("k"),
		Value:     []byte("v"),
		PayTo:     keyFromByte(9),
		PayAsset:  types.NativeAsset,
		PayAmount: 200,
	}
	invokeTx := newTestTx(t, invoke)
	if err := invoke.Apply(st, invokeTx); err != nil {
		t.Fatalf("Apply invoke: %v", err)
	}

	data, err := st.GetContractData(ctx, addr, []byte("k"))
	if err != nil {
		t.Fatalf("GetContractData: %v", err)
	}
	if string(data) != "v" {
		t.Fatalf("expected stored value %q, got %q", "v", data)
	}
	remaining, _ := st.GetBalance(ctx, contractAcct, types.NativeAsset)
	if remaining != 300 {
		t.Fatalf("expected contract balance 300 after payout, got %d", remaining)
	}
}

func TestContractDeployRejectsCollidingSaltAndBytecode(t *testing.T) {
	st := newTestState(t, 1)
	deploy := &ContractDeployPayload{Salt: keyFromByte(1), Bytecode: []byte{0xAB}}
	tx := newTestTx(t, deploy)
	if err := deploy.Apply(st, tx); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if err := deploy.Apply(st, newTestTx(t, deploy)); err == nil {
		t.Fatalf("expected redeploying the same address to fail")
	}
}

func TestKYCCommitThenApproveFlowsThroughPayloads(t *testing.T) {
	ctx := context.Background()
	st := newTestState(t, 1)
	subject := keyFromByte(5)

	commit := &KYCPayload{Subject: subject, Commitment: keyFromByte(6)}
	if err := commit.Apply(st, newTestTx(t, commit)); err != nil {
		t.Fatalf("Apply commit: %v", err)
	}

	approve := &KYCCommitteeApprovePayload{Subject: subject, Threshold: 1}
	if err := approve.Apply(st, newTestTx(t, approve)); err != nil {
		t.Fatalf("Apply approve: %v", err)
	}

	subjectAcct, _ := st.ResolveAccount(ctx, subject)
	status, err := st.KYCStatus(ctx, subjectAcct)
	if err != nil {
		t.Fatalf("KYCStatus: %v", err)
	}
	if !status.Approved {
		t.Fatalf("expected kyc approved after reaching a threshold of 1")
	}
}

func TestArbitrationPayloadsEscrowVoteAndSlash(t *testing.T) {
	ctx := context.Background()
	st := newTestState(t, 1)
	caseID := keyFromByte(7)
	defendantKey := keyFromByte(8)

	open := &ArbitrationOpenPayload{CaseID: caseID, Defendant: defendantKey, Amount: 300, Asset: types.NativeAsset}
	openTx := newTestTx(t, open)
	defendant, err := st.ResolveAccount(ctx, defendantKey)
	if err != nil {
		t.Fatalf("ResolveAccount: %v", err)
	}
	if err := st.SetBalance(ctx, defendant, types.NativeAsset, 1000); err != nil {
		t.Fatalf("SetBalance: %v", err)
	}
	if err := open.Apply(st, openTx); err != nil {
		t.Fatalf("Apply open: %v", err)
	}

	vote := &ArbitrationVotePayload{CaseID: caseID, FavorPlaintiff: true}
	if err := vote.Apply(st, newTestTx(t, vote)); err != nil {
		t.Fatalf("Apply vote: %v", err)
	}

	slash := &ArbitrationSlashPayload{CaseID: caseID}
	if err := slash.Apply(st, newTestTx(t, slash)); err != nil {
		t.Fatalf("Apply slash: %v", err)
	}

	status, err := st.ArbitrationCaseStatus(ctx, caseID)
	if err != nil {
		t.Fatalf("ArbitrationCaseStatus: %v", err)
	}
	if !status.Resolved {
		t.Fatalf("expected case resolved after slash")
	}
}

func TestNFTMintAndTransferPayloads(t *testing.T) {
	ctx := context.Background()
	st := newTestState(t, 1)
	assetID := keyFromByte(9)
	recipientKey := keyFromByte(10)

	mint := &NFTMintPayload{AssetID: assetID, Metadata: []byte("meta")}
	mintTx := newTestTx(t, mint)
	if err := mint.Apply(st, mintTx); err != nil {
		t.Fatalf("Apply mint: %v", err)
	}

	transfer := &NFTTransferPayload{AssetID: assetID, To: recipientKey}
	if err := transfer.Apply(st, newTestTx(t, transfer)); err != nil {
		t.Fatalf("Apply transfer: %v", err)
	}

	owner, err := st.NFTOwner(ctx, assetID)
	if err != nil {
		t.Fatalf("NFTOwner: %v", err)
	}
	want, _ := st.ResolveAccount(ctx, recipientKey)
	if owner != want {
		t.Fatalf("expected owner %d, got %d", want, owner)
	}
}

func TestStakeFreezeUnfreezeAndEnergyConsumePayloads(t *testing.T) {
	ctx := context.Background()
	st := newTestState(t, 1)

	freeze := &StakeFreezePayload{Amount: 100}
	tx := newTestTx(t, freeze)
	account, err := senderAccount(ctx, st, tx)
	if err != nil {
		t.Fatalf("senderAccount: %v", err)
	}
	if err := st.SetBalance(ctx, account, types.NativeAsset, 200); err != nil {
		t.Fatalf("SetBalance: %v", err)
	}
	if err := freeze.Apply(st, tx); err != nil {
		t.Fatalf("Apply freeze: %v", err)
	}

	energy, err := st.GetEnergy(ctx, account)
	if err != nil {
		t.Fatalf("GetEnergy: %v", err)
	}
	if energy.Frozen != 100 {
		t.Fatalf("expected frozen 100, got %d", energy.Frozen)
	}

	consume := &EnergyConsumePayload{Amount: 10}
	consumeTx := &types.Transaction{Version: 1, Sender: tx.Sender, Payload: consume}
	if err := consume.Apply(st, consumeTx); err != nil {
		t.Fatalf("Apply consume: %v", err)
	}
	energy, _ = st.GetEnergy(ctx, account)
	if energy.Quota != energy.QuotaMax-10 {
		t.Fatalf("expected quota drawn down by 10, got quota=%d max=%d", energy.Quota, energy.QuotaMax)
	}

	unfreeze := &StakeUnfreezePayload{Amount: 40}
	unfreezeTx := &types.Transaction{Version: 1, Sender: tx.Sender, Payload: unfreeze}
	if err := unfreeze.Apply(st, unfreezeTx); err != nil {
		t.Fatalf("Apply unfreeze: %v", err)
	}
	energy, _ = st.GetEnergy(ctx, account)
	if energy.Frozen != 60 {
		t.Fatalf("expected frozen 60 after partial unfreeze, got %d", energy.Frozen)
	}
}

func TestTNSRegisterAndRenewPayloads(t *testing.T) {
	ctx := context.Background()
	st := newTestState(t, 1)

	register := &TNSRegisterPayload{Name: "Alice ", ExpiresAtTopo: 100}
	if err := register.Verify(st, newTestTx(t, register)); err == nil {
		t.Fatalf("expected a name with trailing whitespace to fail normalization")
	}

	register = &TNSRegisterPayload{Name: "Alice", ExpiresAtTopo: 100}
	tx := newTestTx(t, register)
	if err := register.Apply(st, tx); err != nil {
		t.Fatalf("Apply register: %v", err)
	}

	info, err := st.TNSNameInfo(ctx, "alice")
	if err != nil {
		t.Fatalf("TNSNameInfo: %v", err)
	}
	owner, _ := st.ResolveAccount(ctx, types.AccountKeyFromPubKey(tx.Sender))
	if info.Owner != owner {
		t.Fatalf("expected owner %d, got %d", owner, info.Owner)
	}

	renew := &TNSRenewPayload{Name: "ALICE", NewExpiresAtTopo: 500}
	renewTx := &types.Transaction{Version: 1, Sender: tx.Sender, Payload: renew}
	if err := renew.Apply(st, renewTx); err != nil {
		t.Fatalf("Apply renew: %v", err)
	}
	info, _ = st.TNSNameInfo(ctx, "alice")
	if info.ExpiresAtTopo != 500 {
		t.Fatalf("expected renewed expiry 500, got %d", info.ExpiresAtTopo)
	}
}

func TestReferralPayloadBindsOnceAndCreditsReward(t *testing.T) {
	ctx := context.Background()
	st := newTestState(t, 1)
	referrerKey := keyFromByte(11)

	p := &ReferralPayload{Referrer: referrerKey, Amount: 1000, Asset: types.NativeAsset}
	tx := newTestTx(t, p)
	if err := p.Apply(st, tx); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	referrer, _ := st.ResolveAccount(ctx, referrerKey)
	bal, err := st.GetBalance(ctx, referrer, types.NativeAsset)
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if bal != 100 {
		t.Fatalf("expected referrer reward 100 (10%% of 1000), got %d", bal)
	}

	conflicting := &ReferralPayload{Referrer: keyFromByte(12), Amount: 1000, Asset: types.NativeAsset}
	conflictingTx := &types.Transaction{Version: 1, Sender: tx.Sender, Payload: conflicting}
	if err := conflicting.Apply(st, conflictingTx); err == nil {
		t.Fatalf("expected re-binding the same referee to a different referrer to fail")
	}
}
