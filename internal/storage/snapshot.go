package storage

import (
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
)

// ErrSnapshotAlreadyStarted is returned by StartSnapshot when a write scope
// is already active on this Store (spec.md §4.A: "Re-entry is forbidden; a
// second start_snapshot returns SnapshotAlreadyStarted").
var ErrSnapshotAlreadyStarted = errors.New("storage: snapshot already started")

// pendingEntry overlays a single pending write or tombstone.
type pendingEntry struct {
	deleted bool
	value   []byte
}

// Snapshot is the single exclusive write scope described in spec.md §4.A.
// All mutation during block processing happens through one Snapshot; its
// pending writes are invisible to everyone else until End(true) commits
// them as one atomic pebble batch.
type Snapshot struct {
	store   *Store
	pending map[ColumnFamily]map[string]*pendingEntry
	done    bool
}

// StartSnapshot opens the exclusive write scope. Only one may be active at
// a time across the whole Store.
func (s *Store) StartSnapshot() (*Snapshot, error) {
	snap := &Snapshot{store: s, pending: make(map[ColumnFamily]map[string]*pendingEntry)}
	if !s.snapshot.CompareAndSwap(nil, snap) {
		return nil, ErrSnapshotAlreadyStarted
	}
	return snap, nil
}

// Get reads key from cf, consulting pending writes first (reads-own-writes)
// and falling back to committed storage.
func (sn *Snapshot) Get(cf ColumnFamily, key []byte) ([]byte, bool, error) {
	if entries, ok := sn.pending[cf]; ok {
		if e, ok := entries[string(key)]; ok {
			if e.deleted {
				return nil, false, nil
			}
			return e.value, true, nil
		}
	}
	return sn.store.getCommitted(cf, key)
}

// Put stages a write into the pending batch.
func (sn *Snapshot) Put(cf ColumnFamily, key, value []byte) {
	sn.stage(cf, key, &pendingEntry{value: append([]byte(nil), value...)})
}

// Delete stages a tombstone into the pending batch.
func (sn *Snapshot) Delete(cf ColumnFamily, key []byte) {
	sn.stage(cf, key, &pendingEntry{deleted: true})
}

func (sn *Snapshot) stage(cf ColumnFamily, key []byte, e *pendingEntry) {
	entries, ok := sn.pending[cf]
	if !ok {
		entries = make(map[string]*pendingEntry)
		sn.pending[cf] = entries
	}
	entries[string(key)] = e
}

// Iterate returns the union of committed data and this snapshot's pending
// writes for cf under mode, reads-own-writes (spec.md §4.A).
func (sn *Snapshot) Iterate(cf ColumnFamily, mode IterMode) ([]KVPair, error) {
	committed, err := sn.store.iterateCommitted(cf, mode)
	if err != nil {
		return nil, err
	}
	merged := make(map[string][]byte, len(committed))
	for _, p := range committed {
		merged[string(p.Key)] = p.Value
	}
	if entries, ok := sn.pending[cf]; ok {
		for k, e := range entries {
			key := []byte(k)
			if _, selected := mode.selects(cf, cfKey(cf, key)); !selected {
				continue
			}
			if e.deleted {
				delete(merged, k)
				continue
			}
			merged[k] = e.value
		}
	}
	out := make([]KVPair, 0, len(merged))
	for k, v := range merged {
		out = append(out, KVPair{Key: []byte(k), Value: v})
	}
	sortPairs(out, mode.direction)
	return out, nil
}

// End closes the write scope. commit=true flushes every pending write as
// one atomic pebble batch; commit=false discards them. Either way the
// Store's single snapshot slot is freed for the next caller.
func (sn *Snapshot) End(commit bool) error {
	if sn.done {
		return fmt.Errorf("storage: snapshot already ended")
	}
	sn.done = true
	defer sn.store.snapshot.CompareAndSwap(sn, nil)

	if !commit {
		return nil
	}
	batch := sn.store.db.NewBatch()
	defer batch.Close()
	for cf, entries := range sn.pending {
		for k, e := range entries {
			raw := cfKey(cf, []byte(k))
			if e.deleted {
				if err := batch.Delete(raw, nil); err != nil {
					return fmt.Errorf("storage: stage delete: %w", err)
				}
				continue
			}
			compressed := compressValue(sn.store.opts.Compression[cf], e.value)
			if err := batch.Set(raw, compressed, nil); err != nil {
				return fmt.Errorf("storage: stage set: %w", err)
			}
		}
	}
	if err := sn.store.db.Apply(batch, pebble.Sync); err != nil {
		return fmt.Errorf("storage: commit batch: %w", err)
	}
	return nil
}

func (s *Store) getCommitted(cf ColumnFamily, key []byte) ([]byte, bool, error) {
	raw, closer, err := s.db.Get(cfKey(cf, key))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("storage: get %s: %w", cf, err)
	}
	defer closer.Close()
	out, err := decompressValue(s.opts.Compression[cf], raw)
	if err != nil {
		return nil, false, err
	}
	// out may alias raw (CompressionNone); copy since raw is only valid
	// until closer.Close().
	cp := append([]byte(nil), out...)
	return cp, true, nil
}

func (s *Store) iterateCommitted(cf ColumnFamily, mode IterMode) ([]KVPair, error) {
	prefix := append([]byte(cf), 0x00)
	lowerBound := prefix
	upperBound := append([]byte(cf), 0x01) // CF name separator+1 bounds the prefix scan
	it := s.db.NewIter(&pebble.IterOptions{LowerBound: lowerBound, UpperBound: upperBound})
	defer it.Close()

	var out []KVPair
	for valid := it.First(); valid; valid = it.Next() {
		rawKey := append([]byte(nil), it.Key()...)
		key, ok := mode.selects(cf, rawKey)
		if !ok {
			continue
		}
		rawVal, err := decompressValue(s.opts.Compression[cf], it.Value())
		if err != nil {
			return nil, err
		}
		out = append(out, KVPair{Key: key, Value: append([]byte(nil), rawVal...)})
	}
	if err := it.Error(); err != nil {
		return nil, fmt.Errorf("storage: iterate %s: %w", cf, err)
	}
	sortPairs(out, mode.direction)
	return out, nil
}
