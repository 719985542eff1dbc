package mempool

import (
	"context"
	"crypto/ecdsa"
	"crypto/rand"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"

	"ghostdagcore/internal/types"
)

// stubPayload is a minimal Payload used only to exercise admission; it
// optionally behaves as RecipientAware/Create2Aware depending on the
// fields a test sets.
type stubPayload struct {
	recipient    types.Hash
	hasRecipient bool
	create2Addr  types.Hash
	hasCreate2   bool
}

func (p *stubPayload) Tag() types.PayloadTag                        { return types.PayloadTransfer }
func (p *stubPayload) Access() types.AccessSet                      { return types.AccessSet{} }
func (p *stubPayload) Conservative() bool                           { return false }
func (p *stubPayload) Verify(types.TxState, *types.Transaction) error { return nil }
func (p *stubPayload) Apply(types.TxState, *types.Transaction) error  { return nil }
func (p *stubPayload) MarshalPayload() ([]byte, error)              { return []byte("stub"), nil }
func (p *stubPayload) Recipient() (types.Hash, bool)                { return p.recipient, p.hasRecipient }
func (p *stubPayload) Create2Address() (types.Hash, bool)           { return p.create2Addr, p.hasCreate2 }

// fakeNonceSource is a scripted NonceSource test double.
type fakeNonceSource struct {
	nonce  map[types.Hash]uint64
	isNew  map[types.Hash]bool
}

func newFakeNonceSource() *fakeNonceSource {
	return &fakeNonceSource{nonce: make(map[types.Hash]uint64), isNew: make(map[types.Hash]bool)}
}

func (f *fakeNonceSource) CurrentNonce(_ context.Context, account types.Hash) (uint64, error) {
	return f.nonce[account], nil
}

func (f *fakeNonceSource) AccountIsNew(_ context.Context, account types.Hash) (bool, error) {
	return f.isNew[account], nil
}

func samplePrivKey(t *testing.T) *btcec.PrivateKey {
	t.Helper()
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		t.Fatalf("NewPrivateKey: %v", err)
	}
	return priv
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
	rb := r.Bytes()
	sb := s.Bytes()
	copy(tx.Signature[32-len(rb):32], rb)
	copy(tx.Signature[64-len(sb):64], sb)
}

func newTx(t *testing.T, priv *btcec.PrivateKey, nonce uint64, fee uint64, payload types.Payload) *types.Transaction {
	t.Helper()
	tx := &types.Transaction{
		Version:  1,
		Nonce:    nonce,
		Sender:   priv.PubKey(),
		Payload:  payload,
		Fee:      fee,
		FeeDenom: types.FeeNativeCoin,
	}
	signTx(t, priv, tx)
	return tx
}

func TestAddAcceptsWellFormedTransaction(t *testing.T) {
	priv := samplePrivKey(t)
	nonces := newFakeNonceSource()
	pool := New(DefaultPolicy(), nonces, nil)

	tx := newTx(t, priv, 0, 1000, &stubPayload{})
	res, err := pool.Add(context.Background(), tx)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if !res.Accepted {
		t.Fatalf("expected acceptance, got rejection reason %q", res.Reason)
	}
	if pool.Len() != 1 {
		t.Fatalf("expected pool length 1, got %d", pool.Len())
	}
}

func TestAddRejectsBadSignature(t *testing.T) {
	priv := samplePrivKey(t)
	nonces := newFakeNonceSource()
	pool := New(DefaultPolicy(), nonces, nil)

	tx := newTx(t, priv, 0, 1000, &stubPayload{})
	tx.Signature[0] ^= 0xFF // corrupt after signing

	res, err := pool.Add(context.Background(), tx)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if res.Accepted || res.Reason != ReasonBadSignature {
		t.Fatalf("expected ReasonBadSignature, got %+v", res)
	}
}

func TestAddRejectsNonceBelowCurrent(t *testing.T) {
	priv := samplePrivKey(t)
	nonces := newFakeNonceSource()
	sender := types.AccountKeyFromPubKey(priv.PubKey())
	nonces.nonce[sender] = 5

	pool := New(DefaultPolicy(), nonces, nil)
	tx := newTx(t, priv, 2, 1000, &stubPayload{})

	res, err := pool.Add(context.Background(), tx)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if res.Accepted || res.Reason != ReasonNonceGap {
		t.Fatalf("expected ReasonNonceGap, got %+v", res)
	}
}

func TestAddRejectsDuplicatePendingNonce(t *testing.T) {
	priv := samplePrivKey(t)
	nonces := newFakeNonceSource()
	pool := New(DefaultPolicy(), nonces, nil)

	first := newTx(t, priv, 0, 1000, &stubPayload{})
	if res, err := pool.Add(context.Background(), first); err != nil || !res.Accepted {
		t.Fatalf("expected first tx accepted, got %+v err=%v", res, err)
	}

	second := newTx(t, priv, 0, 2000, &stubPayload{})
	res, err := pool.Add(context.Background(), second)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if res.Accepted || res.Reason != ReasonDuplicateNonce {
		t.Fatalf("expected ReasonDuplicateNonce, got %+v", res)
	}
}

func TestAddRejectsFeeBelowFloor(t *testing.T) {
	priv := samplePrivKey(t)
	nonces := newFakeNonceSource()
	policy := Policy{MinFeePerByte: 1_000_000, MaxPoolBytes: DefaultPolicy().MaxPoolBytes}
	pool := New(policy, nonces, nil)

	tx := newTx(t, priv, 0, 1, &stubPayload{})
	res, err := pool.Add(context.Background(), tx)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if res.Accepted || res.Reason != ReasonFeeBelowFloor {
		t.Fatalf("expected ReasonFeeBelowFloor, got %+v", res)
	}
}

func TestAddRejectsBlacklistedSender(t *testing.T) {
	priv := samplePrivKey(t)
	nonces := newFakeNonceSource()
	pool := New(DefaultPolicy(), nonces, nil)
	pool.Blacklist(types.AccountKeyFromPubKey(priv.PubKey()))

	tx := newTx(t, priv, 0, 1000, &stubPayload{})
	res, err := pool.Add(context.Background(), tx)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if res.Accepted || res.Reason != ReasonBlacklistedSender {
		t.Fatalf("expected ReasonBlacklistedSender, got %+v", res)
	}
}

func TestAddRejectsEnergyFeeToBrandNewAccount(t *testing.T) {
	priv := samplePrivKey(t)
	nonces := newFakeNonceSource()
	recipient := types.Hash{0xAA}
	nonces.isNew[recipient] = true

	pool := New(DefaultPolicy(), nonces, nil)
	tx := &types.Transaction{
		Version:  1,
		Nonce:    0,
		Sender:   priv.PubKey(),
		Payload:  &stubPayload{recipient: recipient, hasRecipient: true},
		Fee:      1000,
		FeeDenom: types.FeeEnergy,
	}
	signTx(t, priv, tx)

	res, err := pool.Add(context.Background(), tx)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if res.Accepted || res.Reason != ReasonFeeDenomNotPermitted {
		t.Fatalf("expected ReasonFeeDenomNotPermitted, got %+v", res)
	}
}

func TestAddRejectsCreate2Collision(t *testing.T) {
	priv := samplePrivKey(t)
	nonces := newFakeNonceSource()
	pool := New(DefaultPolicy(), nonces, nil)
	addr := types.Hash{0xBB}

	first := &types.Transaction{
		Version: 1, Nonce: 0, Sender: priv.PubKey(),
		Payload: &stubPayload{create2Addr: addr, hasCreate2: true},
		Fee:     1000, FeeDenom: types.FeeNativeCoin,
	}
	signTx(t, priv, first)
	if res, err := pool.Add(context.Background(), first); err != nil || !res.Accepted {
		t.Fatalf("expected first creation accepted, got %+v err=%v", res, err)
	}

	otherPriv := samplePrivKey(t)
	second := &types.Transaction{
		Version: 1, Nonce: 0, Sender: otherPriv.PubKey(),
		Payload: &stubPayload{create2Addr: addr, hasCreate2: true},
		Fee:     1000, FeeDenom: types.FeeNativeCoin,
	}
	signTx(t, otherPriv, second)
	res, err := pool.Add(context.Background(), second)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if res.Accepted || res.Reason != ReasonCreate2Collision {
		t.Fatalf("expected ReasonCreate2Collision, got %+v", res)
	}
}

func TestGetPendingForReturnsNonceOrderedFromCurrent(t *testing.T) {
	priv := samplePrivKey(t)
	nonces := newFakeNonceSource()
	pool := New(DefaultPolicy(), nonces, nil)
	sender := types.AccountKeyFromPubKey(priv.PubKey())

	for _, n := range []uint64{2, 0, 1} {
		tx := newTx(t, priv, n, 1000, &stubPayload{})
		if res, err := pool.Add(context.Background(), tx); err != nil || !res.Accepted {
			t.Fatalf("Add nonce %d: %+v err=%v", n, res, err)
		}
	}

	pending := pool.GetPendingFor(sender, 1)
	if len(pending) != 2 {
		t.Fatalf("expected 2 pending txs at or above nonce 1, got %d", len(pending))
	}
	if pending[0].Nonce != 1 || pending[1].Nonce != 2 {
		t.Fatalf("expected nonce-ordered [1,2], got [%d,%d]", pending[0].Nonce, pending[1].Nonce)
	}
}

func TestEvictionDropsLowestFeePerByteUnderByteCap(t *testing.T) {
	nonces := newFakeNonceSource()

	firstPriv := samplePrivKey(t)
	lowFeeTx := newTx(t, firstPriv, 0, 1, &stubPayload{})
	raw, err := types.EncodeTransaction(lowFeeTx)
	if err != nil {
		t.Fatalf("EncodeTransaction: %v", err)
	}
	oneTxBytes := uint64(len(raw))

	policy := Policy{MinFeePerByte: 0, MaxPoolBytes: oneTxBytes + oneTxBytes/2}
	pool := New(policy, nonces, nil)

	if res, err := pool.Add(context.Background(), lowFeeTx); err != nil || !res.Accepted {
		t.Fatalf("expected low-fee tx accepted, got %+v err=%v", res, err)
	}

	secondPriv := samplePrivKey(t)
	highFeeTx := newTx(t, secondPriv, 0, 1_000_000, &stubPayload{})
	if res, err := pool.Add(context.Background(), highFeeTx); err != nil || !res.Accepted {
		t.Fatalf("expected high-fee tx accepted, got %+v err=%v", res, err)
	}

	if pool.Len() != 1 {
		t.Fatalf("expected eviction to keep exactly 1 transaction, got %d", pool.Len())
	}
	lowHash, _ := lowFeeTx.Hash()
	highHash, _ := highFeeTx.Hash()
	if pool.GetPendingFor(types.AccountKeyFromPubKey(firstPriv.PubKey()), 0) != nil {
		t.Fatalf("expected low-fee sender's transaction to have been evicted")
	}
	remaining := pool.GetPendingFor(types.AccountKeyFromPubKey(secondPriv.PubKey()), 0)
	if len(remaining) != 1 {
		t.Fatalf("expected high-fee sender's transaction to survive eviction")
	}
	remainingHash, _ := remaining[0].Hash()
	if remainingHash != highHash {
		t.Fatalf("expected surviving transaction to be the high-fee one")
	}
	_ = lowHash
}

func TestSelectForTemplateOrdersByDescendingFeePerByteAcrossSenders(t *testing.T) {
	nonces := newFakeNonceSource()
	pool := New(DefaultPolicy(), nonces, nil)

	lowPriv := samplePrivKey(t)
	highPriv := samplePrivKey(t)
	lowTx := newTx(t, lowPriv, 0, 1000, &stubPayload{})
	highTx := newTx(t, highPriv, 0, 1_000_000, &stubPayload{})

	for _, tx := range []*types.Transaction{lowTx, highTx} {
		if res, err := pool.Add(context.Background(), tx); err != nil || !res.Accepted {
			t.Fatalf("Add: %+v err=%v", res, err)
		}
	}

	selected := pool.SelectForTemplate(0)
	if len(selected) != 2 {
		t.Fatalf("expected 2 selected transactions, got %d", len(selected))
	}
	highHash, _ := highTx.Hash()
	gotFirst, _ := selected[0].Hash()
	if gotFirst != highHash {
		t.Fatalf("expected the high-fee-per-byte transaction first")
	}
}

func TestSelectForTemplateRespectsPerSenderNonceContinuity(t *testing.T) {
	nonces := newFakeNonceSource()
	pool := New(DefaultPolicy(), nonces, nil)
	priv := samplePrivKey(t)

	nonce1 := newTx(t, priv, 1, 1_000_000, &stubPayload{})
	nonce0 := newTx(t, priv, 0, 1000, &stubPayload{})
	for _, tx := range []*types.Transaction{nonce1, nonce0} {
		if res, err := pool.Add(context.Background(), tx); err != nil || !res.Accepted {
			t.Fatalf("Add: %+v err=%v", res, err)
		}
	}

	selected := pool.SelectForTemplate(0)
	if len(selected) != 2 {
		t.Fatalf("expected both transactions eventually selected, got %d", len(selected))
	}
	if selected[0].Nonce != 0 {
		t.Fatalf("expected nonce 0 to be selected before nonce 1 despite its lower fee, got nonce %d first", selected[0].Nonce)
	}
}

func TestRecheckEvictsTransactionsBehindConfirmedNonce(t *testing.T) {
	priv := samplePrivKey(t)
	nonces := newFakeNonceSource()
	pool := New(DefaultPolicy(), nonces, nil)
	sender := types.AccountKeyFromPubKey(priv.PubKey())

	tx := newTx(t, priv, 0, 1000, &stubPayload{})
	if res, err := pool.Add(context.Background(), tx); err != nil || !res.Accepted {
		t.Fatalf("Add: %+v err=%v", res, err)
	}

	nonces.nonce[sender] = 1
	if err := pool.Recheck(context.Background()); err != nil {
		t.Fatalf("Recheck: %v", err)
	}
	if pool.Len() != 0 {
		t.Fatalf("expected Recheck to evict the now-stale transaction, got %d remaining", pool.Len())
	}
}

func TestRemoveCommittedEvictsWithoutCountingAsRejection(t *testing.T) {
	priv := samplePrivKey(t)
	nonces := newFakeNonceSource()
	pool := New(DefaultPolicy(), nonces, nil)

	tx := newTx(t, priv, 0, 1000, &stubPayload{})
	if res, err := pool.Add(context.Background(), tx); err != nil || !res.Accepted {
		t.Fatalf("Add: %+v err=%v", res, err)
	}
	hash, err := tx.Hash()
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	pool.RemoveCommitted(hash)
	if pool.Len() != 0 {
		t.Fatalf("expected pool empty after RemoveCommitted, got %d", pool.Len())
	}
}
