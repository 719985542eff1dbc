package chainstate

import (
	"context"
	"testing"

	"ghostdagcore/internal/storage"
	"ghostdagcore/internal/types"
)

func tempStore(t *testing.T) *storage.Store {
	t.Helper()
	s, err := storage.OpenTemp()
	if err != nil {
		t.Fatalf("OpenTemp: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newState(t *testing.T, topo uint64) (*storage.Snapshot, *State) {
	t.Helper()
	sn, err := tempStore(t).StartSnapshot()
	if err != nil {
		t.Fatalf("StartSnapshot: %v", err)
	}
	return sn, New(sn, topo)
}

func sampleKey(b byte) types.Hash {
	var h types.Hash
	h[0] = b
	return h
}

func TestResolveAccountRegistersOnFirstSight(t *testing.T) {
	ctx := context.Background()
	_, st := newState(t, 1)

	key := sampleKey(1)
	id, err := st.ResolveAccount(ctx, key)
	if err != nil {
		t.Fatalf("ResolveAccount: %v", err)
	}
	if id == 0 {
		t.Fatalf("expected a non-zero AccountID, got 0")
	}

	again, err := st.ResolveAccount(ctx, key)
	if err != nil {
		t.Fatalf("ResolveAccount (second): %v", err)
	}
	if again != id {
		t.Fatalf("expected stable AccountID across calls, got %d then %d", id, again)
	}

	other, err := st.ResolveAccount(ctx, sampleKey(2))
	if err != nil {
		t.Fatalf("ResolveAccount (other): %v", err)
	}
	if other == id {
		t.Fatalf("expected distinct keys to resolve to distinct AccountIDs")
	}

	acct, err := st.AccountByID(ctx, id)
	if err != nil {
		t.Fatalf("AccountByID: %v", err)
	}
	if acct.Key != key || acct.RegisteredAtTopo != 1 {
		t.Fatalf("unexpected account record: %+v", acct)
	}
}

func TestBalanceDefaultsToZeroThenRoundTrips(t *testing.T) {
	ctx := context.Background()
	_, st := newState(t, 5)

	bal, err := st.GetBalance(ctx, 1, types.NativeAsset)
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if bal != 0 {
		t.Fatalf("expected 0 balance for an untouched account, got %d", bal)
	}

	if err := st.SetBalance(ctx, 1, types.NativeAsset, 1000); err != nil {
		t.Fatalf("SetBalance: %v", err)
	}
	bal, err = st.GetBalance(ctx, 1, types.NativeAsset)
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if bal != 1000 {
		t.Fatalf("got balance %d, want 1000", bal)
	}
}

func TestNonceDefaultsToZeroAndBumpsMonotonically(t *testing.T) {
	ctx := context.Background()
	_, st := newState(t, 2)

	n, err := st.GetNonce(ctx, 7)
	if err != nil {
		t.Fatalf("GetNonce: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected 0, got %d", n)
	}
	for i := uint64(1); i <= 3; i++ {
		if err := st.BumpNonce(ctx, 7); err != nil {
			t.Fatalf("BumpNonce: %v", err)
		}
		n, err := st.GetNonce(ctx, 7)
		if err != nil {
			t.Fatalf("GetNonce: %v", err)
		}
		if n != i {
			t.Fatalf("after %d bumps, got nonce %d, want %d", i, n, i)
		}
	}
}

func TestFreezeAndUnfreezeEnergyMovesBalance(t *testing.T) {
	ctx := context.Background()
	_, st := newState(t, 1)

	if err := st.SetBalance(ctx, 1, types.NativeAsset, 500); err != nil {
		t.Fatalf("SetBalance: %v", err)
	}
	if err := st.FreezeEnergy(ctx, 1, 200); err != nil {
		t.Fatalf("FreezeEnergy: %v", err)
	}
	bal, _ := st.GetBalance(ctx, 1, types.NativeAsset)
	if bal != 300 {
		t.Fatalf("expected balance 300 after freezing 200 of 500, got %d", bal)
	}
	e, err := st.GetEnergy(ctx, 1)
	if err != nil {
		t.Fatalf("GetEnergy: %v", err)
	}
	if e.Frozen != 200 || e.QuotaMax != 200 || e.Quota != 200 {
		t.Fatalf("unexpected energy after freeze: %+v", e)
	}

	if err := st.ConsumeEnergy(ctx, 1, 50); err != nil {
		t.Fatalf("ConsumeEnergy: %v", err)
	}
	e, _ = st.GetEnergy(ctx, 1)
	if e.Quota != 150 {
		t.Fatalf("expected quota 150 after consuming 50, got %d", e.Quota)
	}

	if err := st.UnfreezeEnergy(ctx, 1, 200); err != nil {
		t.Fatalf("UnfreezeEnergy: %v", err)
	}
	e, _ = st.GetEnergy(ctx, 1)
	if e.Frozen != 0 || e.QuotaMax != 0 || e.Quota != 0 {
		t.Fatalf("expected energy fully cleared after unfreezing all principal, got %+v", e)
	}
	bal, _ = st.GetBalance(ctx, 1, types.NativeAsset)
	if bal != 500 {
		t.Fatalf("expected balance restored to 500 after unfreezing, got %d", bal)
	}
}

func TestConsumeEnergyRejectsOverdraft(t *testing.T) {
	ctx := context.Background()
	_, st := newState(t, 1)
	if err := st.ConsumeEnergy(ctx, 1, 10); err == nil {
		t.Fatalf("expected an error consuming energy from an account with none")
	}
}

func TestDeployContractRejectsCollisionAtSameAddress(t *testing.T) {
	ctx := context.Background()
	_, st := newState(t, 1)
	addr := sampleKey(9)

	if err := st.DeployContract(ctx, addr, []byte{0x60, 0x00}, 1); err != nil {
		t.Fatalf("DeployContract: %v", err)
	}
	if err := st.DeployContract(ctx, addr, []byte{0x60, 0x01}, 2); err == nil {
		t.Fatalf("expected redeploying at the same address to fail")
	}
}

func TestContractDataRoundTripsAndDefaultsToNil(t *testing.T) {
	ctx := context.Background()
	_, st := newState(t, 1)
	addr := sampleKey(3)

	got, err := st.GetContractData(ctx, addr, []byte("slot0"))
	if err != nil {
		t.Fatalf("GetContractData: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for an unset key, got %v", got)
	}

	if err := st.SetContractData(ctx, addr, []byte("slot0"), []byte("value")); err != nil {
		t.Fatalf("SetContractData: %v", err)
	}
	got, err = st.GetContractData(ctx, addr, []byte("slot0"))
	if err != nil {
		t.Fatalf("GetContractData: %v", err)
	}
	if string(got) != "value" {
		t.Fatalf("got %q, want value", got)
	}
}

func TestTransferFromContractMovesBalanceToRecipient(t *testing.T) {
	ctx := context.Background()
	_, st := newState(t, 1)
	addr := sampleKey(4)

	contractAcct, err := st.ResolveAccount(ctx, addr)
	if err != nil {
		t.Fatalf("ResolveAccount: %v", err)
	}
	if err := st.SetBalance(ctx, contractAcct, types.NativeAsset, 300); err != nil {
		t.Fatalf("SetBalance: %v", err)
	}
	if err := st.TransferFromContract(ctx, addr, 42, types.NativeAsset, 100); err != nil {
		t.Fatalf("TransferFromContract: %v", err)
	}

	contractBal, _ := st.GetBalance(ctx, contractAcct, types.NativeAsset)
	if contractBal != 200 {
		t.Fatalf("expected contract balance 200, got %d", contractBal)
	}
	recipientBal, _ := st.GetBalance(ctx, 42, types.NativeAsset)
	if recipientBal != 100 {
		t.Fatalf("expected recipient balance 100, got %d", recipientBal)
	}

	if err := st.TransferFromContract(ctx, addr, 42, types.NativeAsset, 10000); err == nil {
		t.Fatalf("expected overdraft transfer to fail")
	}
}

func TestEmitEventAppendsUnderDistinctSequentialKeys(t *testing.T) {
	sn, st := newState(t, 3)
	contract := sampleKey(5)

	st.EmitEvent(context.Background(), contract, [][]byte{[]byte("topicA")}, []byte("payload1"))
	st.EmitEvent(context.Background(), contract, [][]byte{[]byte("topicB")}, []byte("payload2"))

	rows, err := sn.Iterate(storage.CFEvents, storage.IterStart())
	if err != nil {
		t.Fatalf("Iterate: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 emitted events, got %d", len(rows))
	}
}

func TestScheduleExecutionProducesDistinctIDsForSimilarCalls(t *testing.T) {
	ctx := context.Background()
	sn, st := newState(t, 1)
	contract := sampleKey(6)

	id1, err := st.ScheduleExecution(ctx, contract, 1, 1000, []byte("params"), 0, 10)
	if err != nil {
		t.Fatalf("ScheduleExecution: %v", err)
	}
	id2, err := st.ScheduleExecution(ctx, contract, 1, 1000, []byte("params"), 0, 10)
	if err != nil {
		t.Fatalf("ScheduleExecution (second): %v", err)
	}
	if id1 == id2 {
		t.Fatalf("expected two scheduled calls to receive distinct ids")
	}

	rows, err := sn.Iterate(storage.CFScheduledExecutions, storage.IterStart())
	if err != nil {
		t.Fatalf("Iterate: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 scheduled executions recorded, got %d", len(rows))
	}
}
