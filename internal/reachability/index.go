package reachability

import (
	"fmt"
	"sort"

	lru "github.com/hashicorp/golang-lru/v2"

	"ghostdagcore/internal/storage"
	"ghostdagcore/internal/types"
)

// rootCapacity bounds the genesis interval. spec.md §4.B treats a genuine
// overflow of the interval space as a fatal invariant violation rather
// than a recoverable condition; 2^62 leaves an enormous margin for any
// DAG this node will ever see while staying clear of uint64 overflow in
// midpoint arithmetic.
const rootCapacity = uint64(1) << 62

// ErrIntervalExhausted is the fatal condition spec.md §4.B names:
// "a genuine overflow of the 2^64 interval space ... reported as a fatal
// invariant violation".
var ErrIntervalExhausted = fmt.Errorf("reachability: interval space exhausted")

// Reader is the read half of the storage handle reachability needs;
// satisfied by both *storage.Snapshot (the active write scope) and
// *storage.ReadView (concurrent read-only queries, spec.md §5).
type Reader interface {
	Get(cf storage.ColumnFamily, key []byte) ([]byte, bool, error)
}

// Writer additionally allows staging mutations; only *storage.Snapshot
// satisfies this, matching spec.md §4.B's requirement that insertion "is
// performed inside the current snapshot so it is atomic".
type Writer interface {
	Reader
	Put(cf storage.ColumnFamily, key, value []byte)
	Delete(cf storage.ColumnFamily, key []byte)
}

// Index is the reachability index: a hash-keyed interval tree backed by
// storage.CFReachabilityData, with an LRU front-cache (spec.md §9:
// "Caches inside storage use copy-on-write semantics so readers are never
// blocked by writers") invalidated wholesale on snapshot rollback.
type Index struct {
	cache *lru.Cache[types.Hash, Record]
}

// NewIndex builds an Index with the given front-cache capacity.
func NewIndex(cacheSize int) (*Index, error) {
	c, err := lru.New[types.Hash, Record](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("reachability: new cache: %w", err)
	}
	return &Index{cache: c}, nil
}

// InvalidateAll drops every cached record; called by the block processor
// when a snapshot is rolled back (spec.md: "Caches keyed off written data
// are invalidated on rollback").
func (idx *Index) InvalidateAll() {
	idx.cache.Purge()
}

// Get loads a block's reachability record, consulting the front-cache
// first.
func (idx *Index) Get(r Reader, hash types.Hash) (Record, bool, error) {
	if rec, ok := idx.cache.Get(hash); ok {
		return rec, true, nil
	}
	raw, ok, err := r.Get(storage.CFReachabilityData, hash[:])
	if err != nil || !ok {
		return Record{}, ok, err
	}
	rec, err := decodeRecord(raw)
	if err != nil {
		return Record{}, false, fmt.Errorf("reachability: decode record for %s: %w", hash, err)
	}
	idx.cache.Add(hash, rec)
	return rec, true, nil
}

func (idx *Index) put(w Writer, hash types.Hash, rec Record) {
	w.Put(storage.CFReachabilityData, hash[:], encodeRecord(rec))
	idx.cache.Add(hash, rec)
}

// InitGenesis creates the root reachability record for the genesis block.
func (idx *Index) InitGenesis(w Writer, genesis types.Hash) error {
	rec := Record{
		Interval: Interval{Start: 0, End: rootCapacity},
		Height:   0,
	}
	idx.put(w, genesis, rec)
	return nil
}

// Insert runs the insertion protocol of spec.md §4.B for a new block x
// with selected parent p and mergeset-red siblings mergeSetReds.
func (idx *Index) Insert(w Writer, x, selectedParent types.Hash, mergeSetReds []types.Hash) error {
	parent, ok, err := idx.Get(w, selectedParent)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("reachability: unknown selected parent %s", selectedParent)
	}

	childInterval, parent, err := idx.allocateChildSlot(w, selectedParent, parent)
	if err != nil {
		return err
	}

	xRecord := Record{
		Parent:    selectedParent,
		HasParent: true,
		Interval:  childInterval,
		Height:    parent.Height + 1,
	}
	idx.put(w, x, xRecord)

	// childInterval.Start is always the largest start handed out among
	// selectedParent's children (allocateChildSlot hands out increasing
	// slots left to right), so appending preserves the "sorted by
	// interval.start" invariant without a lookup.
	parent.Children = append(parent.Children, x)
	idx.put(w, selectedParent, parent)

	for _, red := range mergeSetReds {
		redRec, ok, err := idx.Get(w, red)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("reachability: unknown mergeset-red block %s", red)
		}
		updated, err := idx.insertSortedByStart(w, redRec.FutureCoveringSet, x, childInterval)
		if err != nil {
			return err
		}
		redRec.FutureCoveringSet = updated
		idx.put(w, red, redRec)
	}
	return nil
}

// insertSortedByStart inserts h (with interval hInterval) into set, keeping
// it ordered by each member's interval.start — future_covering_set entries
// come from unrelated subtrees scattered across the DAG, so (unlike
// Children) a plain append cannot be assumed to preserve order.
func (idx *Index) insertSortedByStart(r Reader, set []types.Hash, h types.Hash, hInterval Interval) ([]types.Hash, error) {
	starts := make([]uint64, len(set))
	for i, member := range set {
		rec, ok, err := idx.Get(r, member)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("reachability: unknown future-covering-set member %s", member)
		}
		starts[i] = rec.Interval.Start
	}
	pos := sort.Search(len(set), func(i int) bool { return starts[i] > hInterval.Start })
	out := make([]types.Hash, 0, len(set)+1)
	out = append(out, set[:pos]...)
	out = append(out, h)
	out = append(out, set[pos:]...)
	return out, nil
}
