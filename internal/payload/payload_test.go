package payload

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"

	"ghostdagcore/internal/chainstate"
	"ghostdagcore/internal/storage"
	"ghostdagcore/internal/types"
)

func newTestState(t *testing.T, topo uint64) *chainstate.State {
	t.Helper()
	store, err := storage.OpenTemp()
	if err != nil {
		t.Fatalf("OpenTemp: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	sn, err := store.StartSnapshot()
	if err != nil {
		t.Fatalf("StartSnapshot: %v", err)
	}
	return chainstate.New(sn, topo)
}

func newTestTx(t *testing.T, p types.Payload) *types.Transaction {
	t.Helper()
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		t.Fatalf("NewPrivateKey: %v", err)
	}
	return &types.Transaction{
		Version: 1,
		Sender:  priv.PubKey(),
		Payload: p,
	}
}

func keyFromByte(b byte) types.Hash {
	var h types.Hash
	h[0] = b
	return h
}
