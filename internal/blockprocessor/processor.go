// Package blockprocessor drives the block admission state machine of
// spec.md §4.G: Received -> ShapeValidated -> ParentsLoaded ->
// GhostdagComputed -> TopoAssigned -> Executed -> Committed/RolledBack.
// SubmitBlock is the sole external entry point spec.md §6 names for
// feeding a candidate block into the node; it is grounded on the
// teacher's core/consensus.go, which plays the same "own the single
// write path into shared chain state, wire up every collaborator
// through a narrow interface" role for Synnergy's consensus loop.
package blockprocessor

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"ghostdagcore/internal/chainstate"
	"ghostdagcore/internal/events"
	"ghostdagcore/internal/execution"
	"ghostdagcore/internal/ghostdag"
	"ghostdagcore/internal/metrics"
	"ghostdagcore/internal/reachability"
	"ghostdagcore/internal/storage"
	"ghostdagcore/internal/types"
)

const (
	// MinerRewardSubsidy is the flat per-block reward credited to the
	// miner before any other execution happens. spec.md's own Non-goals
	// put the reward curve itself out of scope ("we do not redesign the
	// economic model, block reward curve ... we describe only the
	// mechanism"); 50 is the literal value its worked examples (E1, E5)
	// assume for that mechanism.
	MinerRewardSubsidy = 50

	// A fired scheduled execution's offer splits 30% burned / 70% to the
	// including miner (spec.md §4.D).
	scheduledBurnNum  = 30
	scheduledMinerNum = 70

	rejectedCacheSize = 4096

	// defaultWorkers bounds internal/execution.Run's worker pool when a
	// caller doesn't override it.
	defaultWorkers = 8
)

// Processor owns one chain's exclusive write path. SubmitBlock is safe
// for concurrent use: internal/storage.Store already enforces "one
// snapshot at a time" at a lower level, and writeGuard makes that
// exclusion explicit and fair at this layer too (spec.md §5: "a single
// task per chain holds the block-write guard").
type Processor struct {
	store   *storage.Store
	idx     *reachability.Index
	k       int
	skipPow bool
	workers int

	mempool mempoolPort
	events  eventPort
	metrics *metrics.Registry

	writeGuard *semaphore.Weighted
	rejected   *lru.Cache[types.Hash, struct{}]
}

// New builds a Processor over store, taking its own reference via
// store.Acquire() (spec.md §5: "Storage shared by Arc-style reference").
// Close releases that reference.
func New(store *storage.Store, idx *reachability.Index, k int, skipPow bool, workers int, mempool mempoolPort, bus eventPort, reg *metrics.Registry) (*Processor, error) {
	rejected, err := lru.New[types.Hash, struct{}](rejectedCacheSize)
	if err != nil {
		return nil, fmt.Errorf("blockprocessor: new rejected-block cache: %w", err)
	}
	if workers < 1 {
		workers = defaultWorkers
	}
	return &Processor{
		store:      store.Acquire(),
		idx:        idx,
		k:          k,
		skipPow:    skipPow,
		workers:    workers,
		mempool:    mempool,
		events:     bus,
		metrics:    reg,
		writeGuard: semaphore.NewWeighted(1),
		rejected:   rejected,
	}, nil
}

// Close releases the Processor's reference to its storage handle.
func (p *Processor) Close() error {
	return p.store.Close()
}

// Tips returns the current DAG leaf set (spec.md §6's read-only
// "tips" query, used by cmd/chainctl rather than by block processing
// itself, which reads/writes tips inline within its own snapshot).
func (p *Processor) Tips(ctx context.Context) ([]types.Hash, error) {
	sn, err := p.store.StartSnapshot()
	if err != nil {
		return nil, fmt.Errorf("blockprocessor: tips query: %w", err)
	}
	defer sn.End(false)
	return readTips(sn)
}

// commitResult carries everything SubmitBlock's post-commit notify step
// needs, out of the guarded section.
type commitResult struct {
	topoheight    uint64
	blueScore     uint64
	tipCount      int
	mergeBlues    int
	mergeReds     int
	reorged       bool
	reorgFromTopo uint64
}

// SubmitBlock is spec.md §6's "submit_block(bytes) -> Result<Accepted |
// Rejected{kind}>", the sole entry point a P2P peer or a local miner
// uses to hand this node a candidate block.
func (p *Processor) SubmitBlock(ctx context.Context, raw []byte) (types.Outcome, error) {
	start := time.Now()

	blk, err := types.DecodeBlock(raw)
	if err != nil {
		out := types.OutcomeRejectedValidation(types.KindValidation, fmt.Errorf("blockprocessor: decode block: %w", err))
		p.metrics.ObserveRejected(out.Kind.String())
		return out, nil
	}
	hash, err := blk.Hash()
	if err != nil {
		out := types.OutcomeRejectedValidation(types.KindValidation, fmt.Errorf("blockprocessor: hash block: %w", err))
		p.metrics.ObserveRejected(out.Kind.String())
		return out, nil
	}
	if _, known := p.rejected.Get(hash); known {
		out := types.OutcomeRejectedValidation(types.KindValidation, fmt.Errorf("blockprocessor: block %s was already rejected", hash))
		return out, nil
	}

	if err := p.validateShape(blk); err != nil {
		p.reject(hash)
		out := types.OutcomeRejectedValidation(types.KindValidation, err)
		p.metrics.ObserveRejected(out.Kind.String())
		return out, nil
	}

	if err := p.writeGuard.Acquire(ctx, 1); err != nil {
		return types.OutcomeRejectedTransient(err), err
	}
	defer p.writeGuard.Release(1)

	sn, err := p.store.StartSnapshot()
	if err != nil {
		out := types.OutcomeRejectedTransient(err)
		p.metrics.ObserveRejected(out.Kind.String())
		return out, err
	}

	res, outcome := p.processLocked(ctx, sn, blk, hash)
	if outcome.Status != types.Accepted {
		sn.End(false)
		p.idx.InvalidateAll()
		p.reject(hash)
		p.metrics.ObserveRejected(outcome.Kind.String())
		var retErr error
		if outcome.Status == types.RejectedTransient || outcome.Status == types.FatalProtocol {
			retErr = outcome.Err
		}
		return outcome, retErr
	}
	if err := sn.End(true); err != nil {
		p.idx.InvalidateAll()
		p.reject(hash)
		out := types.OutcomeRejectedTransient(err)
		p.metrics.ObserveRejected(out.Kind.String())
		return out, err
	}

	p.notify(ctx, blk, hash, res)
	p.metrics.ObserveAccepted(res.topoheight, res.blueScore, res.tipCount, res.mergeBlues, res.mergeReds, time.Since(start))
	return types.OutcomeAccepted(), nil
}

func (p *Processor) reject(hash types.Hash) {
	p.rejected.Add(hash, struct{}{})
}

// notify fires spec.md §6's subscribe() events once a block's commit has
// already landed; nothing here can fail the block, so errors are logged
// rather than propagated.
func (p *Processor) notify(ctx context.Context, blk *types.Block, hash types.Hash, res commitResult) {
	if res.reorged {
		p.metrics.ObserveReorg()
		p.events.Publish(events.Event{
			Kind:         events.KindBlockReorged,
			BlockReorged: &events.BlockReorged{FromTopoheight: res.reorgFromTopo},
		})
	}
	p.mempool.RemoveCommitted(hash)
	if err := p.mempool.Recheck(ctx); err != nil {
		logrus.WithError(err).WithField("block", hash.String()).Warn("blockprocessor: mempool recheck after commit failed")
	}
	p.events.Publish(events.Event{
		Kind:          events.KindBlockAccepted,
		BlockAccepted: &events.BlockAccepted{Hash: hash, Topoheight: res.topoheight, BlueScore: res.blueScore},
	})
}

// processLocked runs steps ParentsLoaded through Executed/Committed
// while the write guard and this Snapshot are held. A non-Accepted
// outcome means sn must be discarded by the caller; it never calls
// sn.End itself, so the guarded section has exactly one commit path.
func (p *Processor) processLocked(ctx context.Context, sn *storage.Snapshot, blk *types.Block, hash types.Hash) (commitResult, types.Outcome) {
	src := snapshotBlockSource{sn: sn}

	if blk.IsGenesis() {
		return p.commitGenesis(sn, blk, hash)
	}

	parents := blk.ParentsAtLevel0()
	for _, parent := range parents {
		if _, ok, err := src.Block(parent); err != nil {
			return commitResult{}, types.OutcomeRejectedTransient(err)
		} else if !ok {
			return commitResult{}, types.OutcomeRejectedValidation(types.KindValidation, fmt.Errorf("blockprocessor: unknown parent %s", parent))
		}
	}

	bd, err := ghostdag.Compute(sn, p.idx, src, parents, p.k, blk.Header.Bits)
	if err != nil {
		return commitResult{}, types.OutcomeRejectedValidation(types.KindValidation, fmt.Errorf("blockprocessor: ghostdag: %w", err))
	}
	blk.SelectedParent = bd.SelectedParent
	blk.MergeSetBlues = bd.MergeSetBlues
	blk.MergeSetReds = bd.MergeSetReds

	if blk.Header.BlueScore != bd.BlueScore || blk.Header.BlueWork.Cmp(bd.BlueWork) != 0 {
		return commitResult{}, types.OutcomeRejectedValidation(types.KindValidation, fmt.Errorf("blockprocessor: declared blue_score/blue_work does not match the GHOSTDAG recomputation"))
	}

	selectedParentTopo, ok, err := readTopoOfHash(sn, bd.SelectedParent)
	if err != nil {
		return commitResult{}, types.OutcomeRejectedTransient(err)
	}
	if !ok {
		return commitResult{}, types.OutcomeRejectedValidation(types.KindValidation, fmt.Errorf("blockprocessor: selected parent %s has no topoheight assignment", bd.SelectedParent))
	}
	newTopo := selectedParentTopo + 1

	selectedParentRec, ok, err := p.idx.Get(sn, bd.SelectedParent)
	if err != nil {
		return commitResult{}, types.OutcomeRejectedTransient(err)
	}
	if !ok {
		return commitResult{}, types.OutcomeRejectedValidation(types.KindValidation, fmt.Errorf("blockprocessor: selected parent %s missing reachability record", bd.SelectedParent))
	}
	newHeight := selectedParentRec.Height + 1

	var reorged bool
	var reorgFromTopo uint64
	if currentTop, have, err := readTopTopoheight(sn); err != nil {
		return commitResult{}, types.OutcomeRejectedTransient(err)
	} else if have && newTopo <= currentTop {
		// spec.md §4.G step 4: unwind the discarded suffix back to the
		// fork point before assigning the new block's topoheight. This
		// node treats the fork point as the selected parent's own
		// topoheight rather than replaying every orphaned alternate-chain
		// block, a deliberate simplification recorded in DESIGN.md.
		if err := chainstate.RollbackAbove(sn, selectedParentTopo); err != nil {
			return commitResult{}, types.OutcomeRejectedTransient(err)
		}
		for t := newTopo; t <= currentTop; t++ {
			deleteTopoAssignment(sn, t)
		}
		reorged = true
		reorgFromTopo = selectedParentTopo
	}

	if err := p.idx.Insert(sn, hash, bd.SelectedParent, bd.MergeSetReds); err != nil {
		return commitResult{}, types.OutcomeRejectedValidation(types.KindValidation, fmt.Errorf("blockprocessor: reachability insert: %w", err))
	}

	state := chainstate.New(sn, newTopo)
	if err := p.execute(ctx, state, blk, newTopo); err != nil {
		return commitResult{}, types.OutcomeRejectedValidation(types.KindValidation, err)
	}

	tips, err := readTips(sn)
	if err != nil {
		return commitResult{}, types.OutcomeRejectedTransient(err)
	}
	tips = advanceTips(tips, parents, hash)
	if err := writeTips(sn, tips); err != nil {
		return commitResult{}, types.OutcomeRejectedTransient(err)
	}

	if err := p.commitBlock(sn, blk, hash, newTopo, newHeight); err != nil {
		return commitResult{}, types.OutcomeRejectedTransient(err)
	}

	return commitResult{
		topoheight:    newTopo,
		blueScore:     bd.BlueScore,
		tipCount:      len(tips),
		mergeBlues:    len(bd.MergeSetBlues),
		mergeReds:     len(bd.MergeSetReds),
		reorged:       reorged,
		reorgFromTopo: reorgFromTopo,
	}, types.OutcomeAccepted()
}

// commitGenesis handles the one block spec.md §3.2 exempts from having
// any parents: topoheight/height 0, its own reachability root, no
// mergeset, no miner reward (nothing yet to fund it from).
func (p *Processor) commitGenesis(sn *storage.Snapshot, blk *types.Block, hash types.Hash) (commitResult, types.Outcome) {
	if _, have, err := readTopTopoheight(sn); err != nil {
		return commitResult{}, types.OutcomeRejectedTransient(err)
	} else if have {
		return commitResult{}, types.OutcomeRejectedValidation(types.KindValidation, fmt.Errorf("blockprocessor: genesis submitted against a non-empty chain"))
	}
	if err := p.idx.InitGenesis(sn, hash); err != nil {
		return commitResult{}, types.OutcomeRejectedValidation(types.KindValidation, fmt.Errorf("blockprocessor: reachability genesis: %w", err))
	}
	if err := writeTips(sn, []types.Hash{hash}); err != nil {
		return commitResult{}, types.OutcomeRejectedTransient(err)
	}
	if err := p.commitBlock(sn, blk, hash, 0, 0); err != nil {
		return commitResult{}, types.OutcomeRejectedTransient(err)
	}
	return commitResult{topoheight: 0, blueScore: blk.Header.BlueScore, tipCount: 1}, types.OutcomeAccepted()
}

// commitBlock writes the block body/header and every index entry spec.md
// §4.G step 5 names, once execution has already landed in sn.
func (p *Processor) commitBlock(sn *storage.Snapshot, blk *types.Block, hash types.Hash, topo, height uint64) error {
	enc, err := types.EncodeBlock(blk)
	if err != nil {
		return fmt.Errorf("blockprocessor: encode block: %w", err)
	}
	sn.Put(storage.CFBlocks, hash[:], enc)
	writeTopoAssignment(sn, hash, topo)
	writeBlockAtHeight(sn, height, hash)
	for _, tx := range blk.Transactions {
		txHash, err := tx.Hash()
		if err != nil {
			return fmt.Errorf("blockprocessor: hash transaction: %w", err)
		}
		raw, err := types.EncodeTransaction(tx)
		if err != nil {
			return fmt.Errorf("blockprocessor: encode transaction %s: %w", txHash, err)
		}
		sn.Put(storage.CFTransactions, txHash[:], raw)
	}
	writeTopTopoheight(sn, topo)
	writeTopHeight(sn, height)
	return nil
}
