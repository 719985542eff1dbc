// Package execution schedules a block's ordered transaction list onto a
// bounded pool of concurrent workers per spec.md §4.E: independent
// transactions run in parallel, conflicting transactions preserve their
// input order, and the whole schedule is deterministic. It is grounded
// on other_examples/e7c5afd9_tos-network-gtos__core-parallel-executor's
// shape (declared static access sets drive a conflict-aware schedule,
// fall back to fully serial execution when a transaction's access set
// can't be trusted) generalized from that file's level-at-a-time
// WaitGroup fan-out to a continuously-fed worker pool bounded by
// golang.org/x/sync/semaphore, with golang.org/x/sync/errgroup
// supervising the goroutines and carrying a cancellable context.
package execution

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"ghostdagcore/internal/types"
)

// Status is a transaction's execution outcome.
type Status int

const (
	StatusSuccess Status = iota
	StatusFailed
)

func (s Status) String() string {
	if s == StatusSuccess {
		return "success"
	}
	return "failed"
}

// Item is one transaction's scheduling-relevant shape: its position in
// the block (commit order follows Index, never arrival or finish
// order), its declared account access set, and whether it predates
// declared access sets and must run with nothing else concurrent
// (spec.md §4.E: "transactions that predate this feature are assigned a
// conservative full-conflict set and executed serially").
type Item struct {
	Index        int
	Access       types.AccessSet
	Conservative bool
}

// Result is one transaction's execution outcome. fee_charged/
// energy_used/events/state_writes from spec.md §4.E's
// TransactionExecutionResult are not modeled here: Exec applies them
// directly to shared chain state (internal/chainstate.TxState) while
// holding the transaction's locks, so the scheduler only needs to know
// whether execution succeeded.
type Result struct {
	Status Status
	Err    error
}

// Exec runs one transaction's logic against shared chain state. The
// scheduler calls it only while every account in item.Access is locked
// on the caller's behalf; Exec must not touch accounts outside that
// set. A panic inside Exec is recovered and converted to a Failed
// result (spec.md §4.E: "a transaction that panics inside the VM is
// recorded as Failed ...; subsequent transactions still run") rather
// than aborting the schedule.
type Exec func(ctx context.Context, item Item) Result

// Run schedules items for execution with up to workers concurrent
// workers and returns one Result per item, indexed identically to
// items. It returns a non-nil error only for a scheduler-level fault
// (context cancellation or a would-be deadlock caused by malformed
// input); individual transaction failures are reported through Result,
// not through the returned error.
func Run(ctx context.Context, workers int, items []Item, exec Exec) ([]Result, error) {
	if workers < 1 {
		workers = 1
	}
	if len(items) == 0 {
		return nil, nil
	}

	lt := newLockTable()
	results := make([]Result, len(items))
	sem := semaphore.NewWeighted(int64(workers))
	g, gctx := errgroup.WithContext(ctx)
	done := make(chan int, len(items))

	runProtected := func(idx int) {
		item := items[idx]
		defer func() {
			if r := recover(); r != nil {
				results[idx] = Result{Status: StatusFailed, Err: fmt.Errorf("execution: transaction %d panicked: %v", item.Index, r)}
			}
		}()
		results[idx] = exec(gctx, item)
	}

	launch := func(idx int) {
		g.Go(func() error {
			defer sem.Release(1)
			defer func() { done <- idx }()
			runProtected(idx)
			return nil
		})
	}

	// dispatch tries to grant item idx's locks and, if granted, hands it
	// to an idle worker. It never blocks.
	dispatch := func(idx int) bool {
		item := items[idx]
		if !lt.canAcquire(item.Access) {
			return false
		}
		if !sem.TryAcquire(1) {
			return false
		}
		lt.acquire(item.Access)
		launch(idx)
		return true
	}

	var blocked []int
	cursor := 0
	outstanding := 0

	// drainBlocked re-examines the blocked queue head first, per
	// spec.md §4.E step 3 ("re-examine the blocked queue head first").
	// It stops at the first entry that still can't be granted, since a
	// later blocked entry succeeding while an earlier one waits would
	// not change correctness (locks already serialize conflicts) but
	// would reorder which conflict resolves first for no benefit.
	drainBlocked := func() {
		for len(blocked) > 0 {
			if !dispatch(blocked[0]) {
				return
			}
			blocked = blocked[1:]
			outstanding++
		}
	}

	awaitOne := func() error {
		select {
		case idx := <-done:
			outstanding--
			lt.release(items[idx].Access)
			return nil
		case <-gctx.Done():
			return gctx.Err()
		}
	}

	for cursor < len(items) || outstanding > 0 || len(blocked) > 0 {
		drainBlocked()

		if cursor < len(items) && len(blocked) == 0 {
			item := items[cursor]
			if item.Conservative {
				// Barrier: drain every in-flight transaction, then run
				// this one with the full worker pool reserved so nothing
				// else can start concurrently with it.
				if outstanding > 0 {
					if err := awaitOne(); err != nil {
						_ = g.Wait()
						return results, err
					}
					continue
				}
				if err := sem.Acquire(gctx, int64(workers)); err != nil {
					_ = g.Wait()
					return results, fmt.Errorf("execution: acquiring exclusive barrier for transaction %d: %w", item.Index, err)
				}
				runProtected(cursor)
				sem.Release(int64(workers))
				cursor++
				continue
			}

			if dispatch(cursor) {
				outstanding++
				cursor++
				continue
			}
			blocked = append(blocked, cursor)
			cursor++
			continue
		}

		if outstanding == 0 {
			if len(blocked) > 0 {
				_ = g.Wait()
				return results, fmt.Errorf("execution: scheduler deadlocked with %d blocked transaction(s) and no outstanding work", len(blocked))
			}
			break
		}

		if err := awaitOne(); err != nil {
			_ = g.Wait()
			return results, err
		}
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}
