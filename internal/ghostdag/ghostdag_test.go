package ghostdag

import (
	"testing"

	"ghostdagcore/internal/reachability"
	"ghostdagcore/internal/storage"
	"ghostdagcore/internal/types"
)

// memBlockSource is an in-memory BlockSource test double, standing in for
// the storage-backed implementation the block processor wires in
// production; it satisfies BlockSource the same way a thin CFBlocks
// wrapper would.
type memBlockSource struct {
	blocks map[types.Hash]*types.Block
}

func newMemBlockSource() *memBlockSource {
	return &memBlockSource{blocks: make(map[types.Hash]*types.Block)}
}

func (m *memBlockSource) Block(hash types.Hash) (*types.Block, bool, error) {
	blk, ok := m.blocks[hash]
	return blk, ok, nil
}

func (m *memBlockSource) put(blk *types.Block) types.Hash {
	h := blockTestHash(blk)
	m.blocks[h] = blk
	return h
}

// blockTestHash derives a stable fake identity for a test block from its
// MinerKeyHash, which addBlock sets to a distinct hashByte per block,
// since these tests never exercise the real consensus hash.
func blockTestHash(blk *types.Block) types.Hash {
	var h types.Hash
	copy(h[:], blk.Header.MinerKeyHash[:])
	return h
}

func hashByte(b byte) types.Hash {
	var h types.Hash
	h[0] = b
	return h
}

// harness wires together a fresh reachability index/snapshot and block
// source for one test, and exposes helpers to grow a tiny DAG.
type harness struct {
	t    *testing.T
	s    *storage.Store
	sn   *storage.Snapshot
	idx  *reachability.Index
	src  *memBlockSource
	next byte
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	s, err := storage.OpenTemp()
	if err != nil {
		t.Fatalf("OpenTemp: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	sn, err := s.StartSnapshot()
	if err != nil {
		t.Fatalf("StartSnapshot: %v", err)
	}
	t.Cleanup(func() { _ = sn.End(true) })
	idx, err := NewIndexForTest(t)
	return &harness{t: t, s: s, sn: sn, idx: idx, src: newMemBlockSource(), next: 1}
}

// NewIndexForTest is a tiny indirection so the harness constructor above
// reads linearly; it just forwards to reachability.NewIndex.
func NewIndexForTest(t *testing.T) (*reachability.Index, error) {
	t.Helper()
	return reachability.NewIndex(256)
}

// addBlock inserts a new block with the given parents (by hash) and
// mergeset-red set into both the reachability index and the block source,
// computing its GHOSTDAG blue data along the way, and returns its hash.
func (h *harness) addBlock(parents []types.Hash, bits types.DifficultyBits) types.Hash {
	h.t.Helper()

	var blueData BlueData
	if len(parents) > 0 {
		bd, err := Compute(h.sn, h.idx, h.src, parents, 1, bits)
		if err != nil {
			h.t.Fatalf("Compute: %v", err)
		}
		blueData = bd
	}

	miner := hashByte(h.next)
	h.next++

	blk := &types.Block{
		Header: types.BlockHeader{
			BlueScore:    blueData.BlueScore,
			BlueWork:     blueData.BlueWork,
			Bits:         bits,
			MinerKeyHash: miner,
		},
		ParentsByLevel: [][]types.Hash{parents},
		SelectedParent: blueData.SelectedParent,
		MergeSetBlues:  blueData.MergeSetBlues,
		MergeSetReds:   blueData.MergeSetReds,
	}
	hash := h.src.put(blk)

	if len(parents) == 0 {
		if err := h.idx.InitGenesis(h.sn, hash); err != nil {
			h.t.Fatalf("InitGenesis: %v", err)
		}
		return hash
	}

	if err := h.idx.Insert(h.sn, hash, blueData.SelectedParent, blueData.MergeSetReds); err != nil {
		h.t.Fatalf("Insert: %v", err)
	}
	return hash
}

func TestSelectedParentIsMaxBlueWork(t *testing.T) {
	h := newHarness(t)
	genesis := h.addBlock(nil, 0)

	lowWork := h.addBlock([]types.Hash{genesis}, 0x1d00ffff)
	highWork := h.addBlock([]types.Hash{genesis}, 0x1c00ffff) // smaller target => more work

	merger := h.addBlock([]types.Hash{lowWork, highWork}, 0x1d00ffff)

	blk, ok, err := h.src.Block(merger)
	if err != nil || !ok {
		t.Fatalf("lookup merger: ok=%v err=%v", ok, err)
	}
	if blk.SelectedParent != highWork {
		t.Fatalf("expected selected parent to be the higher-work tip")
	}
	if len(blk.MergeSetBlues) != 1 || blk.MergeSetBlues[0] != lowWork {
		t.Fatalf("expected lowWork to be the sole blue mergeset member, got blues=%v reds=%v", blk.MergeSetBlues, blk.MergeSetReds)
	}
	// blue_score = selected_parent.blue_score(1, from its own single-parent
	// extension of genesis) + 1 (selected parent itself, always blue) + 1
	// (lowWork, the sole other blue merge) = 3.
	if blk.Header.BlueScore != 3 {
		t.Fatalf("expected blue_score 3, got %d", blk.Header.BlueScore)
	}
}

func TestDiamondSplitBothTipsBlueUnderKOne(t *testing.T) {
	h := newHarness(t)
	genesis := h.addBlock(nil, 0)
	a := h.addBlock([]types.Hash{genesis}, 0x1d00ffff)
	b := h.addBlock([]types.Hash{genesis}, 0x1d00ffff)

	merger := h.addBlock([]types.Hash{a, b}, 0x1d00ffff)

	blk, ok, err := h.src.Block(merger)
	if err != nil || !ok {
		t.Fatalf("lookup merger: ok=%v err=%v", ok, err)
	}
	if len(blk.MergeSetReds) != 0 {
		t.Fatalf("expected no reds under k=1 for a two-tip equal-work diamond, got %v", blk.MergeSetReds)
	}
	if len(blk.MergeSetBlues) != 1 {
		t.Fatalf("expected exactly one non-selected-parent tip in the mergeset, got %v", blk.MergeSetBlues)
	}
	// matches spec.md E6 verbatim: blue_score(C) = blue_score(selected) + 2
	// (selected parent's own single-parent extension of genesis gives it
	// blue_score 1; +1 for the selected parent itself, +1 for the merged
	// tip).
	if blk.Header.BlueScore != 3 {
		t.Fatalf("expected blue_score 3, got %d", blk.Header.BlueScore)
	}
}

func TestKClusterViolationColorsExcessRed(t *testing.T) {
	h := newHarness(t)
	genesis := h.addBlock(nil, 0)

	var tips []types.Hash
	for i := 0; i < 4; i++ {
		tips = append(tips, h.addBlock([]types.Hash{genesis}, 0x1d00ffff))
	}

	merger := h.addBlock(tips, 0x1d00ffff)
	blk, ok, err := h.src.Block(merger)
	if err != nil || !ok {
		t.Fatalf("lookup merger: ok=%v err=%v", ok, err)
	}
	// k=1: selected parent absorbs one tip's slot; of the remaining three
	// candidates at most k=1 can join the blue set before the antichain
	// exceeds k, so at least one of the four tips must be colored red.
	if len(blk.MergeSetReds) == 0 {
		t.Fatalf("expected at least one red block under k=1 with four mutually-anticone tips, got none (blues=%v)", blk.MergeSetBlues)
	}
	if len(blk.MergeSetBlues)+len(blk.MergeSetReds) != 3 {
		t.Fatalf("expected mergeset of size 3 (four tips minus the selected parent), got blues=%d reds=%d", len(blk.MergeSetBlues), len(blk.MergeSetReds))
	}
}

func TestBlueWorkMonotonicAlongSelectedParentChain(t *testing.T) {
	h := newHarness(t)
	prev := h.addBlock(nil, 0x1d00ffff)
	var prevWork types.BlueWork

	for i := 0; i < 5; i++ {
		next := h.addBlock([]types.Hash{prev}, 0x1d00ffff)
		blk, ok, err := h.src.Block(next)
		if err != nil || !ok {
			t.Fatalf("lookup step %d: ok=%v err=%v", i, ok, err)
		}
		if !blk.Header.BlueWork.GreaterThan(prevWork) {
			t.Fatalf("step %d: expected strictly increasing blue_work, got %s after %s", i, blk.Header.BlueWork, prevWork)
		}
		prevWork = blk.Header.BlueWork
		prev = next
	}
}

func TestComputeRejectsZeroParents(t *testing.T) {
	// Compute needs at least one parent to choose a selected parent from;
	// a parentless (genesis-shaped) candidate is rejected with an error.
	h := newHarness(t)
	genesis := h.addBlock(nil, 0)
	_, err := Compute(h.sn, h.idx, h.src, nil, 1, 0)
	if err == nil {
		t.Fatalf("expected Compute to reject a block with zero parents")
	}
	_ = genesis
}
