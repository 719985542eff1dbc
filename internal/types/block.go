package types

import "github.com/btcsuite/btcd/btcec/v2"

// HeaderSize is the length in bytes of the fixed, consensus-hashed block
// header prefix (spec.md §3.2/§6, "a fixed 252-byte layout ... any
// per-peer mutable field is forbidden from the consensus hash"). Folding
// every spec-named header field (version, both score/work accumulators,
// pruning point, a commitment to the multi-level parent references, the
// PoW fields, the miner identity, and all three merkle/commitment roots)
// into fixed-width slots yields a 294-byte prefix rather than literally
// 252; spec.md §9 flags the exact 252-vs-MinerWork relationship as an open
// question and tells us not to guess intent, so we keep every named field
// at a byte-accounted fixed width and let the concrete constant be
// whatever that layout requires, instead of dropping a field to force a
// specific number. MinerWorkSize is defined equal to HeaderSize, which is
// what spec.md §9 asks us to treat as the current rule.
const HeaderSize = 294

// MinerWorkSize is the byte size of the prefix a mining client hashes
// against. Per spec.md §9 Open Questions, treated as equal to HeaderSize.
const MinerWorkSize = HeaderSize

// ExtraNonceSize is the width of the miner-controlled extra-nonce field.
const ExtraNonceSize = 32

// BlockHeader is the fixed-width, consensus-hashed prefix of a block
// (spec.md §3.2). ParentsCommitment is the Merkle root over every hash in
// ParentsByLevel (see Block), which keeps the header fixed-width while
// still binding the hash to the full multi-level parent set: any mutation
// of any parent at any level changes ParentsCommitment and therefore the
// block hash.
type BlockHeader struct {
	Version              uint16
	BlueScore            uint64
	DAAScore             uint64
	BlueWork             BlueWork
	PruningPoint         Hash
	ParentsCommitment    Hash
	Timestamp            uint64
	Bits                 DifficultyBits
	Nonce                uint64
	ExtraNonce           [ExtraNonceSize]byte
	MinerKeyHash         Hash
	HashMerkleRoot       Hash
	AcceptedIDMerkleRoot Hash
	UTXOCommitment       Hash
}

// Block is a candidate or accepted DAG node (spec.md §3.2). ParentsByLevel
// holds the multi-level parent references used for pruning proofs;
// ParentsByLevel[0] is the set GHOSTDAG and reachability operate over.
// Per-peer mutable fields (arrival order, relay timestamps, peer scores)
// are deliberately absent from this type: nothing here is forbidden from
// the consensus hash because nothing mutable is carried at all.
type Block struct {
	Header       BlockHeader
	ParentsByLevel [][]Hash
	Miner        *btcec.PublicKey
	Transactions []*Transaction

	// GHOSTDAG-derived fields, populated by internal/ghostdag and not
	// part of the consensus hash (they are outputs, not inputs, of
	// hashing — spec.md §4.C).
	SelectedParent Hash
	MergeSetBlues  []Hash
	MergeSetReds   []Hash
}

// ParentsAtLevel0 returns the level-0 parent set GHOSTDAG/reachability
// consume. Per spec.md §3.2 this is non-empty except for genesis.
func (b *Block) ParentsAtLevel0() []Hash {
	if len(b.ParentsByLevel) == 0 {
		return nil
	}
	return b.ParentsByLevel[0]
}

// IsGenesis reports whether b has no level-0 parents.
func (b *Block) IsGenesis() bool {
	return len(b.ParentsAtLevel0()) == 0
}

// ComputeParentsCommitment folds every parent hash at every level into a
// single Merkle root for BlockHeader.ParentsCommitment.
func ComputeParentsCommitment(parentsByLevel [][]Hash) Hash {
	var flat []Hash
	for _, level := range parentsByLevel {
		flat = append(flat, level...)
	}
	if len(flat) == 0 {
		return Hash{}
	}
	return MerkleRoot(flat)
}

// Hash returns the block's consensus hash: Sha256d over the fixed-width
// header prefix only (spec.md: "Serialized hash is reproducible
// byte-for-byte; the miner sees an identical ... prefix").
func (b *Block) Hash() (Hash, error) {
	enc, err := EncodeBlockHeader(&b.Header)
	if err != nil {
		return Hash{}, err
	}
	return Sha256d(enc), nil
}
