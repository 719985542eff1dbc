// Package node assembles this core's subsystems into one running daemon:
// storage, reachability, mempool, the block processor, the event bus and
// the Prometheus registry. It plays the role the teacher's
// cmd/synnergy/main.go + cmd/cli/consensus.go's initConsensusMiddleware
// split between them — a single constructor that wires every
// collaborator once, so both cmd/node (long-running daemon) and
// cmd/chainctl (one-shot operator commands) can open the exact same
// store and get back a ready-to-use Processor/Pool pair.
package node

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"ghostdagcore/internal/blockprocessor"
	"ghostdagcore/internal/chainstate"
	"ghostdagcore/internal/config"
	"ghostdagcore/internal/events"
	"ghostdagcore/internal/mempool"
	"ghostdagcore/internal/metrics"
	"ghostdagcore/internal/reachability"
	"ghostdagcore/internal/storage"
	"ghostdagcore/internal/types"
)

// reachabilityCacheSize bounds internal/reachability's front cache.
// Sized generously since a cache miss only costs one storage read.
const reachabilityCacheSize = 1 << 16

// Node bundles every subsystem a daemon or an operator CLI command needs
// against one on-disk store.
type Node struct {
	Config    *config.Config
	Store     *storage.Store
	Index     *reachability.Index
	Mempool   *mempool.Pool
	Processor *blockprocessor.Processor
	Events    *events.Bus
	Registry  *prometheus.Registry
	Metrics   *metrics.Registry
}

// Open loads cfg (or the environment default when cfg is nil) and wires
// every subsystem against its storage directory. Callers must call
// Close when finished.
func Open(cfg *config.Config) (*Node, error) {
	var err error
	if cfg == nil {
		cfg, err = config.LoadFromEnv()
		if err != nil {
			return nil, fmt.Errorf("node: load config: %w", err)
		}
	}

	store, err := storage.Open(cfg.ToStorageOptions())
	if err != nil {
		return nil, fmt.Errorf("node: open storage: %w", err)
	}

	idx, err := reachability.NewIndex(reachabilityCacheSize)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("node: new reachability index: %w", err)
	}

	reg := prometheus.NewRegistry()
	mtr := metrics.New(reg)

	pool := mempool.New(mempool.DefaultPolicy(), nonceSource{store: store}, reg)
	bus := events.NewBus()

	proc, err := blockprocessor.New(store, idx, cfg.GhostdagK, cfg.SkipPowVerification, cfg.ExecutionWorkers, pool, bus, mtr)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("node: new block processor: %w", err)
	}

	return &Node{
		Config:    cfg,
		Store:     store,
		Index:     idx,
		Mempool:   pool,
		Processor: proc,
		Events:    bus,
		Registry:  reg,
		Metrics:   mtr,
	}, nil
}

// Close releases the Node's storage references. The Processor holds its
// own reference via blockprocessor.New's internal store.Acquire(), so
// this Close (on the caller's own handle) and the Processor's Close are
// independent and both must run for the store to fully close.
func (n *Node) Close() error {
	if err := n.Processor.Close(); err != nil {
		return err
	}
	return n.Store.Close()
}

// nonceSource adapts a shared *storage.Store into internal/mempool's
// NonceSource, answering each admission check from a short-lived,
// discarded read scope (spec.md §4.A permits read-only use of
// start_snapshot/end_snapshot(false) the same way a block's own
// processing would use one, just without ever committing it).
type nonceSource struct {
	store *storage.Store
}

func (n nonceSource) CurrentNonce(ctx context.Context, account types.Hash) (uint64, error) {
	sn, err := n.store.StartSnapshot()
	if err != nil {
		return 0, fmt.Errorf("node: nonce lookup: %w", err)
	}
	defer sn.End(false)
	st := chainstate.New(sn, 0)
	id, err := st.ResolveAccount(ctx, account)
	if err != nil {
		return 0, err
	}
	return st.GetNonce(ctx, id)
}

func (n nonceSource) AccountIsNew(ctx context.Context, account types.Hash) (bool, error) {
	sn, err := n.store.StartSnapshot()
	if err != nil {
		return false, fmt.Errorf("node: account-registered lookup: %w", err)
	}
	defer sn.End(false)
	_, ok, err := sn.Get(storage.CFAccountsByKey, account[:])
	if err != nil {
		return false, err
	}
	return !ok, nil
}
