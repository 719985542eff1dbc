// Package ghostdag computes each new block's blue/red mergeset partition,
// blue score, and blue work per spec.md §4.C, grounded on the field shape
// kaspad's blockNode keeps for exactly this purpose
// (other_examples/b62cf2b8_KabbalahOracle-kaspad__concensus-blockdag-blocknode.go.go:
// blueScore, selectedParent, tie-break by hash) and on
// daglabs-btcd/blockdag-validate.go.go's mergeset/validation shape.
package ghostdag

import (
	"fmt"
	"sort"

	"ghostdagcore/internal/reachability"
	"ghostdagcore/internal/types"
)

// DefaultK is the network's k-cluster parameter (spec.md §6:
// "ghostdag_k — k-cluster parameter (fixed by protocol, exposed for
// tests)"). Production networks configure their own value through
// internal/config; tests are free to pass a smaller k directly to Compute.
const DefaultK = 18

// BlueData is the complete GHOSTDAG output for one block.
type BlueData struct {
	SelectedParent types.Hash
	MergeSetBlues  []types.Hash
	MergeSetReds   []types.Hash
	BlueScore      uint64
	BlueWork       types.BlueWork
}

// BlockSource is the narrow view onto already-accepted blocks GHOSTDAG
// needs: parent edges and each block's own previously computed blue data.
// It is satisfied by a thin wrapper over internal/storage's CFBlocks
// records (types.Block carries its GHOSTDAG outputs alongside its header),
// never by a standalone in-memory DAG structure — spec.md §9 forbids
// representing the block graph as in-memory cycles.
type BlockSource interface {
	Block(hash types.Hash) (*types.Block, bool, error)
}

// Compute runs the spec.md §4.C algorithm for a block whose level-0
// parents are `parents` and whose own proof-of-work contributes
// newBlockBits.Work() to the accumulator. r/idx answer ancestor queries
// against the same storage scope src reads blocks from; Compute performs
// no writes and holds no state across calls, matching the "pure function
// of (reachability.Index, candidate parents) -> BlueData" requirement.
func Compute(r reachability.Reader, idx *reachability.Index, src BlockSource, parents []types.Hash, k int, newBlockBits types.DifficultyBits) (BlueData, error) {
	if len(parents) == 0 {
		return BlueData{}, fmt.Errorf("ghostdag: cannot compute blue data for a block with no parents")
	}

	selectedParent, selectedParentBlock, err := pickSelectedParent(src, parents)
	if err != nil {
		return BlueData{}, err
	}

	// computeMergeSet returns the ancestors of the new block other than the
	// selected parent's own past — i.e. excluding the selected parent
	// itself. Read strictly, spec.md §4.C's "ancestors of the new block
	// that are not ancestors of the selected parent" technically includes
	// the selected parent (it is not its own ancestor), but folding it
	// into the Σwork(b) sum below would double-count its contribution:
	// selected_parent.blue_work already accumulates the selected parent's
	// own work from when it was itself computed. So the selected parent is
	// treated as always blue and contributes exactly +1 to blue_score (see
	// below) and nothing extra to blue_work; "mergeset" in the Σ sums
	// means the other merged ancestors only. This is also why
	// spec.md §4.C can call an empty mergeset for a non-genesis block "a
	// protocol violation": once the selected parent's implicit +1 is
	// accounted for, a genuinely non-genesis block's mergeset can never be
	// truly empty, so computeMergeSet returning none is only tolerated
	// for the ordinary single-parent chain-extension case.
	mergeSet, err := computeMergeSet(r, idx, src, parents, selectedParent)
	if err != nil {
		return BlueData{}, err
	}
	if len(mergeSet) == 0 && len(parents) > 1 {
		return BlueData{}, fmt.Errorf("ghostdag: empty mergeset for a block declaring %d parents", len(parents))
	}

	blues, reds, err := colorMergeSet(r, idx, selectedParent, mergeSet, k)
	if err != nil {
		return BlueData{}, err
	}

	blueWork := selectedParentBlock.Header.BlueWork
	for _, b := range blues {
		blk, ok, err := src.Block(b)
		if err != nil {
			return BlueData{}, err
		}
		if !ok {
			return BlueData{}, fmt.Errorf("ghostdag: unknown mergeset-blue block %s", b)
		}
		blueWork = blueWork.Add(blk.Header.Bits.Work())
	}
	blueWork = blueWork.Add(newBlockBits.Work())

	return BlueData{
		SelectedParent: selectedParent,
		MergeSetBlues:  blues,
		MergeSetReds:   reds,
		// +1 for the selected parent, always blue by definition (spec.md
		// E6: "blue_score(C) = blue_score(selected) + 2" for a two-tip
		// merge — the selected parent's own +1 plus the one merged blue).
		BlueScore: selectedParentBlock.Header.BlueScore + 1 + uint64(len(blues)),
		BlueWork:  blueWork,
	}, nil
}

// pickSelectedParent chooses the parent with maximal blue_work, tie-broken
// by smallest hash (spec.md §4.C step 1).
func pickSelectedParent(src BlockSource, parents []types.Hash) (types.Hash, *types.Block, error) {
	var best types.Hash
	var bestBlock *types.Block
	for _, p := range parents {
		blk, ok, err := src.Block(p)
		if err != nil {
			return types.Hash{}, nil, err
		}
		if !ok {
			return types.Hash{}, nil, fmt.Errorf("ghostdag: unknown parent %s", p)
		}
		if bestBlock == nil {
			best, bestBlock = p, blk
			continue
		}
		cmp := blk.Header.BlueWork.Cmp(bestBlock.Header.BlueWork)
		if cmp > 0 || (cmp == 0 && p.Less(best)) {
			best, bestBlock = p, blk
		}
	}
	return best, bestBlock, nil
}

// computeMergeSet walks the DAG backward from every parent, pruning a
// branch as soon as it reaches a block already in the selected parent's
// past (spec.md §4.C step 2: "all ancestors of the new block that are not
// ancestors of the selected parent"), and returns the survivors
// topologically sorted with ties broken by hash.
func computeMergeSet(r reachability.Reader, idx *reachability.Index, src BlockSource, parents []types.Hash, selectedParent types.Hash) ([]types.Hash, error) {
	visited := map[types.Hash]bool{selectedParent: true}
	var mergeSet []types.Hash
	queue := append([]types.Hash(nil), parents...)

	for len(queue) > 0 {
		h := queue[0]
		queue = queue[1:]
		if visited[h] {
			continue
		}
		visited[h] = true

		inSelectedParentPast, err := idx.IsDAGAncestor(r, h, selectedParent)
		if err != nil {
			return nil, err
		}
		if inSelectedParentPast {
			continue
		}
		mergeSet = append(mergeSet, h)

		blk, ok, err := src.Block(h)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("ghostdag: unknown block %s in mergeset traversal", h)
		}
		queue = append(queue, blk.ParentsAtLevel0()...)
	}
	return topoSortMergeSet(src, mergeSet)
}

// topoSortMergeSet orders mergeSet so every member appears after its own
// parents that are also in the set, breaking ties by hash (Kahn's
// algorithm with a sorted ready queue), matching spec.md §4.C's
// "topologically sorted (deterministically by hash)".
func topoSortMergeSet(src BlockSource, mergeSet []types.Hash) ([]types.Hash, error) {
	if len(mergeSet) == 0 {
		return nil, nil
	}
	inSet := make(map[types.Hash]bool, len(mergeSet))
	for _, h := range mergeSet {
		inSet[h] = true
	}

	indegree := make(map[types.Hash]int, len(mergeSet))
	children := make(map[types.Hash][]types.Hash, len(mergeSet))
	for _, h := range mergeSet {
		blk, ok, err := src.Block(h)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("ghostdag: unknown mergeset member %s", h)
		}
		for _, p := range blk.ParentsAtLevel0() {
			if inSet[p] {
				indegree[h]++
				children[p] = append(children[p], h)
			}
		}
	}

	ready := make([]types.Hash, 0, len(mergeSet))
	for _, h := range mergeSet {
		if indegree[h] == 0 {
			ready = append(ready, h)
		}
	}
	ready = types.SortHashes(ready)

	order := make([]types.Hash, 0, len(mergeSet))
	for len(ready) > 0 {
		next := ready[0]
		ready = ready[1:]
		order = append(order, next)
		for _, c := range children[next] {
			indegree[c]--
			if indegree[c] == 0 {
				ready = insertSortedHash(ready, c)
			}
		}
	}
	if len(order) != len(mergeSet) {
		return nil, fmt.Errorf("ghostdag: mergeset traversal found a cycle, impossible in a DAG")
	}
	return order, nil
}

func insertSortedHash(sorted []types.Hash, h types.Hash) []types.Hash {
	pos := sort.Search(len(sorted), func(i int) bool { return h.Less(sorted[i]) })
	sorted = append(sorted, types.Hash{})
	copy(sorted[pos+1:], sorted[pos:])
	sorted[pos] = h
	return sorted
}

// colorMergeSet applies the k-cluster rule (spec.md §4.C step 3) in
// topological order: a candidate is blue iff its anticone against
// {selectedParent} ∪ the blues already accepted from this mergeset has
// size at most k, and accepting it would not push any already-blue
// member's own anticone past k either. Unlike kaspad's production
// algorithm, which threads a bluesAnticoneSizes map across the entire
// selected-parent chain so every historical blue block's anticone size is
// O(1) to look up, this recomputes anticone membership for the current
// mergeset only, on the block's own blue/red frontier — the pack's kaspad
// reference file retrieves blockNode's field shape but not the chain-wide
// anticone bookkeeping algorithm itself (see DESIGN.md).
func colorMergeSet(r reachability.Reader, idx *reachability.Index, selectedParent types.Hash, mergeSet []types.Hash, k int) ([]types.Hash, []types.Hash, error) {
	blues := make([]types.Hash, 0, len(mergeSet))
	reds := make([]types.Hash, 0, len(mergeSet))
	blueAnticoneSizes := make(map[types.Hash]int, len(mergeSet)+1)

	// consideredBlue starts with the selected parent itself: it is
	// automatically blue and every mergeset candidate's anticone is
	// measured against it too, not only against blues accepted from this
	// mergeset.
	consideredBlue := append([]types.Hash{selectedParent}, blues...)
	blueAnticoneSizes[selectedParent] = 0

	for _, c := range mergeSet {
		candidateAnticoneSize := 0
		overflowed := false
		for _, b := range consideredBlue {
			related, err := areOrdered(r, idx, b, c)
			if err != nil {
				return nil, nil, err
			}
			if related {
				continue
			}
			candidateAnticoneSize++
			if candidateAnticoneSize > k {
				overflowed = true
				break
			}
			if blueAnticoneSizes[b]+1 > k {
				overflowed = true
				break
			}
		}

		if overflowed {
			reds = append(reds, c)
			continue
		}

		for _, b := range consideredBlue {
			related, err := areOrdered(r, idx, b, c)
			if err != nil {
				return nil, nil, err
			}
			if !related {
				blueAnticoneSizes[b]++
			}
		}
		blueAnticoneSizes[c] = candidateAnticoneSize
		blues = append(blues, c)
		consideredBlue = append(consideredBlue, c)
	}
	return blues, reds, nil
}

// areOrdered reports whether a and b are chain-related (one a DAG
// ancestor of the other) rather than in each other's anticone.
func areOrdered(r reachability.Reader, idx *reachability.Index, a, b types.Hash) (bool, error) {
	aAncestorOfB, err := idx.IsDAGAncestor(r, a, b)
	if err != nil {
		return false, err
	}
	if aAncestorOfB {
		return true, nil
	}
	bAncestorOfA, err := idx.IsDAGAncestor(r, b, a)
	if err != nil {
		return false, err
	}
	return bAncestorOfA, nil
}
