package storage

import (
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
)

// ReadView is a point-in-time, read-only handle used for concurrent
// queries (spec.md §5: "Read-only queries ... run concurrently on
// unguarded snapshots"). Unlike Snapshot, many ReadViews may be open at
// once; none of them block or are blocked by the single write Snapshot.
type ReadView struct {
	store *Store
	snap  *pebble.Snapshot
}

// NewReadView opens a consistent read-only view of the store as of now.
func (s *Store) NewReadView() *ReadView {
	return &ReadView{store: s, snap: s.db.NewSnapshot()}
}

// Close releases the underlying pebble snapshot.
func (rv *ReadView) Close() error {
	return rv.snap.Close()
}

// Get reads key from cf as of the view's point in time.
func (rv *ReadView) Get(cf ColumnFamily, key []byte) ([]byte, bool, error) {
	raw, closer, err := rv.snap.Get(cfKey(cf, key))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("storage: readview get %s: %w", cf, err)
	}
	defer closer.Close()
	out, err := decompressValue(rv.store.opts.Compression[cf], raw)
	if err != nil {
		return nil, false, err
	}
	return append([]byte(nil), out...), true, nil
}

// Iterate scans cf under mode as of the view's point in time.
func (rv *ReadView) Iterate(cf ColumnFamily, mode IterMode) ([]KVPair, error) {
	prefix := append([]byte(cf), 0x00)
	lowerBound := prefix
	upperBound := append([]byte(cf), 0x01)
	it := rv.snap.NewIter(&pebble.IterOptions{LowerBound: lowerBound, UpperBound: upperBound})
	defer it.Close()

	var out []KVPair
	for valid := it.First(); valid; valid = it.Next() {
		rawKey := append([]byte(nil), it.Key()...)
		key, ok := mode.selects(cf, rawKey)
		if !ok {
			continue
		}
		rawVal, err := decompressValue(rv.store.opts.Compression[cf], it.Value())
		if err != nil {
			return nil, err
		}
		out = append(out, KVPair{Key: key, Value: append([]byte(nil), rawVal...)})
	}
	if err := it.Error(); err != nil {
		return nil, fmt.Errorf("storage: readview iterate %s: %w", cf, err)
	}
	sortPairs(out, mode.direction)
	return out, nil
}
