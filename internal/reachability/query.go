package reachability

import (
	"fmt"
	"sort"

	"ghostdagcore/internal/storage"
	"ghostdagcore/internal/types"
)

// IsChainAncestor reports whether a is a *tree* ancestor of b: a.interval
// contains b.interval (spec.md §3.6/§4.B), an O(1) check.
func (idx *Index) IsChainAncestor(r Reader, a, b types.Hash) (bool, error) {
	ra, ok, err := idx.Get(r, a)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, fmt.Errorf("reachability: unknown block %s", a)
	}
	rb, ok, err := idx.Get(r, b)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, fmt.Errorf("reachability: unknown block %s", b)
	}
	return ra.Interval.Contains(rb.Interval), nil
}

// IsDAGAncestor reports whether a is an ancestor of b in the full DAG
// sense: either a chain ancestor, or a's future_covering_set contains an
// entry whose interval contains b's (spec.md §4.B), found by binary search
// in O(log n).
func (idx *Index) IsDAGAncestor(r Reader, a, b types.Hash) (bool, error) {
	ra, ok, err := idx.Get(r, a)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, fmt.Errorf("reachability: unknown block %s", a)
	}
	rb, ok, err := idx.Get(r, b)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, fmt.Errorf("reachability: unknown block %s", b)
	}
	if ra.Interval.Contains(rb.Interval) {
		return true, nil
	}

	fcs := ra.FutureCoveringSet
	starts := make([]uint64, len(fcs))
	for i, h := range fcs {
		rec, ok, err := idx.Get(r, h)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, fmt.Errorf("reachability: unknown future-covering-set member %s", h)
		}
		starts[i] = rec.Interval.Start
	}
	pos := sort.Search(len(fcs), func(i int) bool { return starts[i] > rb.Interval.Start })
	if pos == 0 {
		return false, nil
	}
	candidate := fcs[pos-1]
	rc, ok, err := idx.Get(r, candidate)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, fmt.Errorf("reachability: unknown future-covering-set member %s", candidate)
	}
	return rc.Interval.Contains(rb.Interval), nil
}

// Remove deletes hash's reachability entry and scrubs references to it from
// its parent's Children and from every block's FutureCoveringSet that names
// it, per spec.md §4.B's deletion/pruning semantics. Intervals of surviving
// blocks are left untouched ("the tree becomes sparser, not smaller").
func (idx *Index) Remove(w Writer, hash types.Hash, referencingReds []types.Hash) error {
	rec, ok, err := idx.Get(w, hash)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	if rec.HasParent {
		parent, ok, err := idx.Get(w, rec.Parent)
		if err != nil {
			return err
		}
		if ok {
			parent.Children = removeHash(parent.Children, hash)
			idx.put(w, rec.Parent, parent)
		}
	}
	for _, red := range referencingReds {
		redRec, ok, err := idx.Get(w, red)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		redRec.FutureCoveringSet = removeHash(redRec.FutureCoveringSet, hash)
		idx.put(w, red, redRec)
	}
	w.Delete(storage.CFReachabilityData, hash[:])
	idx.cache.Remove(hash)
	return nil
}

func removeHash(set []types.Hash, target types.Hash) []types.Hash {
	out := set[:0]
	for _, h := range set {
		if h != target {
			out = append(out, h)
		}
	}
	return out
}
