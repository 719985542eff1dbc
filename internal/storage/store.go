package storage

import (
	"fmt"
	"os"
	"sync/atomic"

	"github.com/cockroachdb/pebble"
	"github.com/sirupsen/logrus"
)

// Options configures a Store, mirroring the `pebble: {...}` block of
// spec.md §6's configuration surface.
type Options struct {
	DirPath          string
	Parallelism      int
	CacheSizeBytes   int64
	WriteBufferBytes int
	Compression      compressionPolicy
}

// DefaultOptions returns the policy used when no override is supplied.
func DefaultOptions(dirPath string) Options {
	return Options{
		DirPath:          dirPath,
		Parallelism:      4,
		CacheSizeBytes:   64 << 20,
		WriteBufferBytes: 4 << 20,
		Compression:      defaultCompressionPolicy(),
	}
}

// Store is the reference-counted, column-family KV handle described in
// spec.md §4.A. Exactly one snapshot scope may be active at a time; see
// snapshot.go. Column families are modelled as key prefixes over a single
// pebble.DB, the convention the corpus's own "tables as key-prefixes" KV
// layers (AKJUS-bsc-erigon, amc) use in place of RocksDB-style column
// family handles.
type Store struct {
	db       *pebble.DB
	opts     Options
	refs     int32
	tempDir  string // non-empty if this Store owns a temp directory to delete on Close
	snapshot atomic.Pointer[Snapshot]
}

// Open opens (or creates) a Store at opts.DirPath.
func Open(opts Options) (*Store, error) {
	if opts.Compression == nil {
		opts.Compression = defaultCompressionPolicy()
	}
	pebbleOpts := &pebble.Options{
		MaxConcurrentCompactions: func() int { return opts.Parallelism },
		MemTableSize:             uint64(opts.WriteBufferBytes),
	}
	if opts.CacheSizeBytes > 0 {
		pebbleOpts.Cache = pebble.NewCache(opts.CacheSizeBytes)
	}
	db, err := pebble.Open(opts.DirPath, pebbleOpts)
	if err != nil {
		return nil, fmt.Errorf("storage: open pebble at %s: %w", opts.DirPath, err)
	}
	logrus.WithField("dir", opts.DirPath).Info("storage: opened column-family store")
	return &Store{db: db, opts: opts, refs: 1}, nil
}

// OpenTemp opens a Store rooted at a freshly created temporary directory,
// for use in tests; the directory is removed on Close (spec.md §4.A:
// "a temporary-directory mode is provided for tests, deleting the on-disk
// data on drop").
func OpenTemp() (*Store, error) {
	dir, err := os.MkdirTemp("", "ghostdagcore-storage-*")
	if err != nil {
		return nil, fmt.Errorf("storage: create temp dir: %w", err)
	}
	s, err := Open(DefaultOptions(dir))
	if err != nil {
		os.RemoveAll(dir)
		return nil, err
	}
	s.tempDir = dir
	return s, nil
}

// Acquire increments the reference count and returns the same handle,
// matching the Arc-style sharing spec.md §9 describes for the storage
// instance.
func (s *Store) Acquire() *Store {
	atomic.AddInt32(&s.refs, 1)
	return s
}

// Close releases a reference. The underlying pebble.DB (and, in temp mode,
// the directory) is only torn down once the reference count reaches zero;
// closing more times than acquired is a programmer error and panics, the
// "drop-time assertion that no strong references remain" from spec.md §4.A.
func (s *Store) Close() error {
	remaining := atomic.AddInt32(&s.refs, -1)
	if remaining > 0 {
		return nil
	}
	if remaining < 0 {
		panic("storage: Store closed more times than acquired")
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("storage: close pebble: %w", err)
	}
	if s.tempDir != "" {
		if err := os.RemoveAll(s.tempDir); err != nil {
			return fmt.Errorf("storage: remove temp dir: %w", err)
		}
	}
	return nil
}

func cfKey(cf ColumnFamily, key []byte) []byte {
	out := make([]byte, 0, len(cf)+1+len(key))
	out = append(out, cf...)
	out = append(out, 0x00) // separator byte: CF names never contain NUL
	out = append(out, key...)
	return out
}
