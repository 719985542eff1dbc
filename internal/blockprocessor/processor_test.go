package blockprocessor

import (
	"context"
	"crypto/ecdsa"
	"crypto/rand"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"

	"ghostdagcore/internal/chainstate"
	"ghostdagcore/internal/events"
	"ghostdagcore/internal/payload"
	"ghostdagcore/internal/reachability"
	"ghostdagcore/internal/storage"
	"ghostdagcore/internal/types"
)

// stubMempool satisfies mempoolPort without pulling in internal/mempool,
// mirroring internal/payload's own test doubles for its narrow ports.
type stubMempool struct{}

func (stubMempool) RemoveCommitted(types.Hash)   {}
func (stubMempool) Recheck(context.Context) error { return nil }

func newTestProcessor(t *testing.T) (*Processor, *storage.Store) {
	t.Helper()
	store, err := storage.OpenTemp()
	if err != nil {
		t.Fatalf("OpenTemp: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	idx, err := reachability.NewIndex(1024)
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}

	p, err := New(store, idx, 18, true, 4, stubMempool{}, events.NewBus(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = p.Close() })
	return p, store
}

// signTx signs tx's SigningHash with priv and stores the resulting r||s
// pair into tx.Signature, the compact shape VerifySignature expects.
func signTx(t *testing.T, priv *btcec.PrivateKey, tx *types.Transaction) {
	t.Helper()
	hash, err := tx.SigningHash()
	if err != nil {
		t.Fatalf("SigningHash: %v", err)
	}
	r, s, err := ecdsa.Sign(rand.Reader, priv.ToECDSA(), hash[:])
	if err != nil {
		t.Fatalf("ecdsa.Sign: %v", err)
	}
	rb, sb := r.Bytes(), s.Bytes()
	copy(tx.Signature[32-len(rb):32], rb)
	copy(tx.Signature[64-len(sb):64], sb)
}

func newSignedTx(t *testing.T, priv *btcec.PrivateKey, nonce, fee uint64, p types.Payload) *types.Transaction {
	t.Helper()
	tx := &types.Transaction{
		Version:  1,
		Nonce:    nonce,
		Sender:   priv.PubKey(),
		Payload:  p,
		Fee:      fee,
		FeeDenom: types.FeeNativeCoin,
	}
	signTx(t, priv, tx)
	return tx
}

func buildGenesis(t *testing.T, miner *btcec.PrivateKey) *types.Block {
	t.Helper()
	blk := &types.Block{
		Header: types.BlockHeader{
			Version:      1,
			MinerKeyHash: types.AccountKeyFromPubKey(miner.PubKey()),
		},
		Miner: miner.PubKey(),
	}
	blk.Header.ParentsCommitment = types.ComputeParentsCommitment(blk.ParentsByLevel)
	blk.Header.HashMerkleRoot = types.MerkleRoot(nil)
	blk.Header.AcceptedIDMerkleRoot = types.MerkleRoot(nil)
	return blk
}

// buildChild wires up a single-parent extension of parent: blue_score is
// the selected parent's score plus one (the ordinary single-parent
// chain-extension case, empty mergeset), and blue_work is carried over
// unchanged since the header leaves Bits at zero, which contributes no work.
func buildChild(t *testing.T, miner *btcec.PrivateKey, parent types.Hash, parentScore uint64, parentWork types.BlueWork, txs []*types.Transaction) *types.Block {
	t.Helper()
	blk := &types.Block{
		Header: types.BlockHeader{
			Version:      1,
			BlueScore:    parentScore + 1,
			BlueWork:     parentWork,
			MinerKeyHash: types.AccountKeyFromPubKey(miner.PubKey()),
		},
		ParentsByLevel: [][]types.Hash{{parent}},
		Miner:          miner.PubKey(),
		Transactions:   txs,
	}
	blk.Header.ParentsCommitment = types.ComputeParentsCommitment(blk.ParentsByLevel)

	txHashes := make([]types.Hash, len(txs))
	for i, tx := range txs {
		h, err := tx.Hash()
		if err != nil {
			t.Fatalf("tx.Hash: %v", err)
		}
		txHashes[i] = h
	}
	blk.Header.HashMerkleRoot = types.MerkleRoot(txHashes)
	// Every transaction in these tests is expected to succeed, so the
	// accepted-id root covers the same set as the hash merkle root.
	blk.Header.AcceptedIDMerkleRoot = types.MerkleRoot(txHashes)
	return blk
}

func submitBlock(t *testing.T, p *Processor, blk *types.Block) (types.Hash, types.Outcome) {
	t.Helper()
	raw, err := types.EncodeBlock(blk)
	if err != nil {
		t.Fatalf("EncodeBlock: %v", err)
	}
	hash, err := blk.Hash()
	if err != nil {
		t.Fatalf("Block.Hash: %v", err)
	}
	out, err := p.SubmitBlock(context.Background(), raw)
	if err != nil {
		t.Fatalf("SubmitBlock: %v", err)
	}
	return hash, out
}

// seedBalance credits account directly, bypassing block execution, so
// tests can fund a sender before exercising SubmitBlock's transfer path.
func seedBalance(t *testing.T, store *storage.Store, account types.Hash, amount uint64) {
	t.Helper()
	sn, err := store.StartSnapshot()
	if err != nil {
		t.Fatalf("StartSnapshot: %v", err)
	}
	st := chainstate.New(sn, 0)
	ctx := context.Background()
	id, err := st.ResolveAccount(ctx, account)
	if err != nil {
		t.Fatalf("ResolveAccount: %v", err)
	}
	if err := st.SetBalance(ctx, id, types.NativeAsset, amount); err != nil {
		t.Fatalf("SetBalance: %v", err)
	}
	if err := sn.End(true); err != nil {
		t.Fatalf("sn.End: %v", err)
	}
}

func balanceOf(t *testing.T, store *storage.Store, account types.Hash) uint64 {
	t.Helper()
	sn, err := store.StartSnapshot()
	if err != nil {
		t.Fatalf("StartSnapshot: %v", err)
	}
	defer sn.End(false)
	st := chainstate.New(sn, 0)
	ctx := context.Background()
	id, err := st.ResolveAccount(ctx, account)
	if err != nil {
		t.Fatalf("ResolveAccount: %v", err)
	}
	bal, err := st.GetBalance(ctx, id, types.NativeAsset)
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	return bal
}

func TestSubmitBlockAcceptsGenesis(t *testing.T) {
	p, _ := newTestProcessor(t)
	miner, err := btcec.NewPrivateKey()
	if err != nil {
		t.Fatalf("NewPrivateKey: %v", err)
	}
	_, out := submitBlock(t, p, buildGenesis(t, miner))
	if out.Status != types.Accepted {
		t.Fatalf("expected genesis accepted, got %s: %v", out.Status, out.Err)
	}
}

func TestSubmitBlockRejectsSecondGenesis(t *testing.T) {
	p, _ := newTestProcessor(t)
	miner, _ := btcec.NewPrivateKey()
	if _, out := submitBlock(t, p, buildGenesis(t, miner)); out.Status != types.Accepted {
		t.Fatalf("expected first genesis accepted, got %s", out.Status)
	}
	other, _ := btcec.NewPrivateKey()
	if _, out := submitBlock(t, p, buildGenesis(t, other)); out.Status == types.Accepted {
		t.Fatalf("expected second genesis rejected")
	}
}

// TestSimpleTransferCreditsMinerFeeAndReward exercises spec.md §8's E1
// scenario: Alice sends 100 units to Bob with fee 1. After one block,
// Alice=899, Bob=100, miner=reward+1.
func TestSimpleTransferCreditsMinerFeeAndReward(t *testing.T) {
	p, store := newTestProcessor(t)

	minerPriv, _ := btcec.NewPrivateKey()
	genesis := buildGenesis(t, minerPriv)
	genesisHash, out := submitBlock(t, p, genesis)
	if out.Status != types.Accepted {
		t.Fatalf("genesis rejected: %s: %v", out.Status, out.Err)
	}

	alicePriv, _ := btcec.NewPrivateKey()
	aliceKey := types.AccountKeyFromPubKey(alicePriv.PubKey())
	seedBalance(t, store, aliceKey, 1000)

	bobPriv, _ := btcec.NewPrivateKey()
	bobKey := types.AccountKeyFromPubKey(bobPriv.PubKey())

	transfer := &payload.TransferPayload{To: bobKey, Amount: 100, Asset: types.NativeAsset}
	tx := newSignedTx(t, alicePriv, 0, 1, transfer)

	blk := buildChild(t, minerPriv, genesisHash, genesis.Header.BlueScore, genesis.Header.BlueWork, []*types.Transaction{tx})
	_, out = submitBlock(t, p, blk)
	if out.Status != types.Accepted {
		t.Fatalf("expected transfer block accepted, got %s: %v", out.Status, out.Err)
	}

	if got := balanceOf(t, store, aliceKey); got != 899 {
		t.Fatalf("expected alice balance 899, got %d", got)
	}
	if got := balanceOf(t, store, bobKey); got != 100 {
		t.Fatalf("expected bob balance 100, got %d", got)
	}
	minerKey := types.AccountKeyFromPubKey(minerPriv.PubKey())
	if got, want := balanceOf(t, store, minerKey), uint64(MinerRewardSubsidy+1); got != want {
		t.Fatalf("expected miner balance %d, got %d", want, got)
	}
}

// TestSubmitBlockRejectsBadSignature confirms a transaction with a
// tampered signature fails the whole block rather than silently being
// dropped: block-level acceptance requires every declared commitment
// (here, the accepted-id merkle root) to match what actually executed.
func TestSubmitBlockRejectsBadSignature(t *testing.T) {
	p, store := newTestProcessor(t)

	minerPriv, _ := btcec.NewPrivateKey()
	genesis := buildGenesis(t, minerPriv)
	genesisHash, out := submitBlock(t, p, genesis)
	if out.Status != types.Accepted {
		t.Fatalf("genesis rejected: %v", out.Err)
	}

	alicePriv, _ := btcec.NewPrivateKey()
	aliceKey := types.AccountKeyFromPubKey(alicePriv.PubKey())
	seedBalance(t, store, aliceKey, 1000)

	bobPriv, _ := btcec.NewPrivateKey()
	bobKey := types.AccountKeyFromPubKey(bobPriv.PubKey())

	transfer := &payload.TransferPayload{To: bobKey, Amount: 100, Asset: types.NativeAsset}
	tx := newSignedTx(t, alicePriv, 0, 1, transfer)
	tx.Signature[0] ^= 0xff // corrupt the signature after signing

	blk := buildChild(t, minerPriv, genesisHash, genesis.Header.BlueScore, genesis.Header.BlueWork, []*types.Transaction{tx})
	_, out = submitBlock(t, p, blk)
	if out.Status == types.Accepted {
		t.Fatalf("expected block with corrupted signature to be rejected")
	}
}
