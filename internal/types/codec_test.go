package types

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
)

// stubPayload is a minimal Payload used only to exercise the transaction
// codec round trip; concrete payload variants live in internal/payload.
type stubPayload struct {
	Note string
}

func (p *stubPayload) Tag() PayloadTag                    { return PayloadTransfer }
func (p *stubPayload) Access() AccessSet                  { return AccessSet{} }
func (p *stubPayload) Conservative() bool                 { return false }
func (p *stubPayload) Verify(TxState, *Transaction) error { return nil }
func (p *stubPayload) Apply(TxState, *Transaction) error  { return nil }
func (p *stubPayload) MarshalPayload() ([]byte, error) {
	return []byte(p.Note), nil
}

func init() {
	PayloadDecoder = func(tag PayloadTag, raw []byte) (Payload, error) {
		return &stubPayload{Note: string(raw)}, nil
	}
}

func randHash(t *testing.T) Hash {
	t.Helper()
	var h Hash
	if _, err := rand.Read(h[:]); err != nil {
		t.Fatalf("rand.Read: %v", err)
	}
	return h
}

func samplePrivKey(t *testing.T) *btcec.PrivateKey {
	t.Helper()
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		t.Fatalf("NewPrivateKey: %v", err)
	}
	return priv
}

func TestBlockHeaderRoundTrip(t *testing.T) {
	h := &BlockHeader{
		Version:              1,
		BlueScore:            42,
		DAAScore:             7,
		BlueWork:             NewBlueWorkFromUint64(12345),
		PruningPoint:         randHash(t),
		ParentsCommitment:    randHash(t),
		Timestamp:            1732900000,
		Bits:                 DifficultyBits(0x1d00ffff),
		Nonce:                999,
		MinerKeyHash:         randHash(t),
		HashMerkleRoot:       randHash(t),
		AcceptedIDMerkleRoot: randHash(t),
		UTXOCommitment:       randHash(t),
	}
	copy(h.ExtraNonce[:], bytes.Repeat([]byte{0xAB}, ExtraNonceSize))

	enc, err := EncodeBlockHeader(h)
	if err != nil {
		t.Fatalf("EncodeBlockHeader: %v", err)
	}
	if len(enc) != HeaderSize {
		t.Fatalf("encoded header length = %d, want %d", len(enc), HeaderSize)
	}

	dec, err := DecodeBlockHeader(enc)
	if err != nil {
		t.Fatalf("DecodeBlockHeader: %v", err)
	}
	if *dec != *h {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", *dec, *h)
	}
}

func TestTransactionRoundTrip(t *testing.T) {
	priv := samplePrivKey(t)
	tx := &Transaction{
		Version: 1,
		Nonce:   5,
		Sender:  priv.PubKey(),
		Payload: &stubPayload{Note: "hello transfer"},
		Fee:     100,
		FeeDenom: FeeNativeCoin,
		Reference: TxRef{
			Topoheight: 17,
			Hash:       randHash(t),
		},
	}
	copy(tx.Signature[:], bytes.Repeat([]byte{0xCD}, 64))

	enc, err := EncodeTransaction(tx)
	if err != nil {
		t.Fatalf("EncodeTransaction: %v", err)
	}

	dec, err := DecodeTransaction(enc)
	if err != nil {
		t.Fatalf("DecodeTransaction: %v", err)
	}

	if dec.Version != tx.Version || dec.Nonce != tx.Nonce || dec.Fee != tx.Fee {
		t.Fatalf("scalar fields mismatch: got %+v", dec)
	}
	if !dec.Sender.IsEqual(tx.Sender) {
		t.Fatalf("sender pubkey mismatch after round trip")
	}
	if dec.Reference != tx.Reference {
		t.Fatalf("reference mismatch: got %+v, want %+v", dec.Reference, tx.Reference)
	}
	if dec.Signature != tx.Signature {
		t.Fatalf("signature mismatch")
	}
	sp, ok := dec.Payload.(*stubPayload)
	if !ok {
		t.Fatalf("payload type mismatch: %T", dec.Payload)
	}
	if sp.Note != "hello transfer" {
		t.Fatalf("payload content mismatch: %q", sp.Note)
	}
}

func TestTransactionRoundTripWithMultisig(t *testing.T) {
	priv := samplePrivKey(t)
	tx := &Transaction{
		Version:  1,
		Nonce:    1,
		Sender:   priv.PubKey(),
		Payload:  &stubPayload{Note: "multisig tx"},
		Fee:      50,
		FeeDenom: FeeEnergy,
		Reference: TxRef{
			Topoheight: 3,
			Hash:       randHash(t),
		},
		Multisig: &MultisigPayload{
			Threshold:    2,
			SignerKeys:   [][]byte{{0x01, 0x02}, {0x03, 0x04, 0x05}},
			AggregateSig: []byte{0xAA, 0xBB, 0xCC},
		},
	}

	enc, err := EncodeTransaction(tx)
	if err != nil {
		t.Fatalf("EncodeTransaction: %v", err)
	}
	dec, err := DecodeTransaction(enc)
	if err != nil {
		t.Fatalf("DecodeTransaction: %v", err)
	}
	if dec.Multisig == nil {
		t.Fatalf("expected multisig payload to survive round trip")
	}
	if dec.Multisig.Threshold != tx.Multisig.Threshold {
		t.Fatalf("threshold mismatch: got %d, want %d", dec.Multisig.Threshold, tx.Multisig.Threshold)
	}
	if len(dec.Multisig.SignerKeys) != len(tx.Multisig.SignerKeys) {
		t.Fatalf("signer key count mismatch: got %d, want %d", len(dec.Multisig.SignerKeys), len(tx.Multisig.SignerKeys))
	}
	for i := range tx.Multisig.SignerKeys {
		if !bytes.Equal(dec.Multisig.SignerKeys[i], tx.Multisig.SignerKeys[i]) {
			t.Fatalf("signer key %d mismatch", i)
		}
	}
	if !bytes.Equal(dec.Multisig.AggregateSig, tx.Multisig.AggregateSig) {
		t.Fatalf("aggregate sig mismatch")
	}
}

func TestBlockRoundTrip(t *testing.T) {
	priv := samplePrivKey(t)
	header := BlockHeader{
		Version:              1,
		BlueScore:            10,
		DAAScore:             10,
		BlueWork:             NewBlueWorkFromUint64(500),
		PruningPoint:         randHash(t),
		ParentsCommitment:    ZeroHash,
		Timestamp:            1732900500,
		Bits:                 DifficultyBits(0x1d00ffff),
		Nonce:                1,
		MinerKeyHash:         randHash(t),
		HashMerkleRoot:       randHash(t),
		AcceptedIDMerkleRoot: randHash(t),
		UTXOCommitment:       randHash(t),
	}
	parents := [][]Hash{{randHash(t), randHash(t)}}
	header.ParentsCommitment = ComputeParentsCommitment(parents)

	blk := &Block{
		Header:         header,
		ParentsByLevel: parents,
		Miner:          priv.PubKey(),
		Transactions: []*Transaction{
			{
				Version:  1,
				Nonce:    0,
				Sender:   priv.PubKey(),
				Payload:  &stubPayload{Note: "tx-a"},
				Fee:      1,
				FeeDenom: FeeNativeCoin,
				Reference: TxRef{
					Topoheight: 1,
					Hash:       randHash(t),
				},
			},
		},
	}

	enc, err := EncodeBlock(blk)
	if err != nil {
		t.Fatalf("EncodeBlock: %v", err)
	}
	dec, err := DecodeBlock(enc)
	if err != nil {
		t.Fatalf("DecodeBlock: %v", err)
	}
	if dec.Header != blk.Header {
		t.Fatalf("header mismatch after block round trip")
	}
	if len(dec.ParentsByLevel) != len(blk.ParentsByLevel) || len(dec.ParentsByLevel[0]) != len(blk.ParentsByLevel[0]) {
		t.Fatalf("parents mismatch: got %+v, want %+v", dec.ParentsByLevel, blk.ParentsByLevel)
	}
	if !dec.Miner.IsEqual(blk.Miner) {
		t.Fatalf("miner pubkey mismatch")
	}
	if len(dec.Transactions) != 1 {
		t.Fatalf("transaction count mismatch: got %d", len(dec.Transactions))
	}
}

func TestBlueWorkCompactBitsMonotonic(t *testing.T) {
	easy := DifficultyBits(0x1d00ffff)
	hard := DifficultyBits(0x1c00ffff)
	if !hard.Work().GreaterThan(easy.Work()) {
		t.Fatalf("expected smaller-target bits to imply more work")
	}
}

func TestVarUintRoundTrip(t *testing.T) {
	values := []uint64{0, 1, 127, 128, 300, 16384, 1 << 40, ^uint64(0)}
	for _, v := range values {
		buf := new(bytes.Buffer)
		if err := EncodeVarUint(buf, v); err != nil {
			t.Fatalf("EncodeVarUint(%d): %v", v, err)
		}
		got, err := DecodeVarUint(buf)
		if err != nil {
			t.Fatalf("DecodeVarUint(%d): %v", v, err)
		}
		if got != v {
			t.Fatalf("round trip mismatch: got %d, want %d", got, v)
		}
	}
}
