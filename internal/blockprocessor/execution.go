package blockprocessor

import (
	"context"
	"fmt"

	"ghostdagcore/internal/chainstate"
	"ghostdagcore/internal/execution"
	"ghostdagcore/internal/events"
	"ghostdagcore/internal/types"
)

// validateShape is spec.md §4.G step 1: the block's consensus-hashed
// fields must be internally consistent before anything else about it is
// trusted. Proof of work is skipped when skip_pow_verification is set
// (spec.md §6, a test/private-network knob).
func (p *Processor) validateShape(blk *types.Block) error {
	wantParents := types.ComputeParentsCommitment(blk.ParentsByLevel)
	if wantParents != blk.Header.ParentsCommitment {
		return fmt.Errorf("blockprocessor: parents commitment mismatch")
	}

	txHashes := make([]types.Hash, len(blk.Transactions))
	for i, tx := range blk.Transactions {
		h, err := tx.Hash()
		if err != nil {
			return fmt.Errorf("blockprocessor: hash transaction %d: %w", i, err)
		}
		txHashes[i] = h
	}
	wantMerkle := types.MerkleRoot(txHashes)
	if wantMerkle != blk.Header.HashMerkleRoot {
		return fmt.Errorf("blockprocessor: hash merkle root mismatch")
	}

	if !blk.IsGenesis() && !p.skipPow {
		hash, err := blk.Hash()
		if err != nil {
			return fmt.Errorf("blockprocessor: hash block: %w", err)
		}
		if !blk.Header.Bits.Satisfies(hash) {
			return fmt.Errorf("blockprocessor: block hash does not satisfy its declared difficulty")
		}
	}
	return nil
}

// execute is spec.md §4.G step 4: credit the miner's reward, fire every
// scheduled execution due at this topoheight in priority order, then run
// the block's own transactions through internal/execution's scheduler.
// It also verifies the block's accepted-id merkle root against which
// transactions actually succeeded, since that commitment can only be
// checked once execution results are known.
func (p *Processor) execute(ctx context.Context, state *chainstate.State, blk *types.Block, topo uint64) error {
	if blk.Miner == nil {
		return fmt.Errorf("blockprocessor: block has no miner public key")
	}
	minerID, err := state.ResolveAccount(ctx, types.AccountKeyFromPubKey(blk.Miner))
	if err != nil {
		return fmt.Errorf("blockprocessor: resolve miner account: %w", err)
	}
	minerBal, err := state.GetBalance(ctx, minerID, types.NativeAsset)
	if err != nil {
		return err
	}
	if err := state.SetBalance(ctx, minerID, types.NativeAsset, minerBal+MinerRewardSubsidy); err != nil {
		return fmt.Errorf("blockprocessor: credit miner reward: %w", err)
	}

	if err := p.fireDueScheduledExecutions(ctx, state, minerID, topo); err != nil {
		return err
	}

	accepted, err := p.runTransactions(ctx, state, blk, minerID)
	if err != nil {
		return err
	}

	var acceptedHashes []types.Hash
	for i, tx := range blk.Transactions {
		if !accepted[i] {
			continue
		}
		h, err := tx.Hash()
		if err != nil {
			return err
		}
		acceptedHashes = append(acceptedHashes, h)
	}
	if got := types.MerkleRoot(acceptedHashes); got != blk.Header.AcceptedIDMerkleRoot {
		return fmt.Errorf("blockprocessor: accepted-id merkle root mismatch")
	}
	return nil
}

// fireDueScheduledExecutions sweeps every scheduled execution due at or
// before topo, in spec.md §4.D's priority order, splitting each one's
// offer 30% burned / 70% to the including miner. A scheduled execution
// whose owning contract can't cover its own offer is skipped rather than
// failing the whole block — it had already reserved no guarantee of
// being funded at fire time.
func (p *Processor) fireDueScheduledExecutions(ctx context.Context, state *chainstate.State, minerID types.AccountID, topo uint64) error {
	due, err := state.DueScheduledExecutions(ctx, topo)
	if err != nil {
		return fmt.Errorf("blockprocessor: list due scheduled executions: %w", err)
	}
	for _, se := range due {
		contractID, err := state.ResolveAccount(ctx, se.Contract)
		if err != nil {
			return err
		}
		bal, err := state.GetBalance(ctx, contractID, types.NativeAsset)
		if err != nil {
			return err
		}
		if bal >= se.Offer {
			minerShare := se.Offer * scheduledMinerNum / 100
			if err := state.SetBalance(ctx, contractID, types.NativeAsset, bal-se.Offer); err != nil {
				return err
			}
			minerBal, err := state.GetBalance(ctx, minerID, types.NativeAsset)
			if err != nil {
				return err
			}
			if err := state.SetBalance(ctx, minerID, types.NativeAsset, minerBal+minerShare); err != nil {
				return err
			}
		}
		state.ConsumeScheduledExecution(se)
		p.events.Publish(events.Event{
			Kind:                    events.KindScheduledExecutionFired,
			ScheduledExecutionFired: &events.ScheduledExecutionFired{ID: se.ID},
		})
	}
	return nil
}

// runTransactions schedules blk.Transactions onto internal/execution's
// worker pool and returns, per transaction index, whether it succeeded.
// A serial pre-pass resolves every account the block's transactions
// touch (account resolution itself mutates state, so it cannot safely
// run inside the scheduler's concurrent workers).
func (p *Processor) runTransactions(ctx context.Context, state *chainstate.State, blk *types.Block, minerID types.AccountID) ([]bool, error) {
	if len(blk.Transactions) == 0 {
		return nil, nil
	}
	items, err := p.buildItems(ctx, state, blk, minerID)
	if err != nil {
		return nil, fmt.Errorf("blockprocessor: build execution items: %w", err)
	}

	exec := func(ctx context.Context, item execution.Item) execution.Result {
		tx := blk.Transactions[item.Index]
		return p.execTransaction(ctx, state, tx, minerID)
	}

	results, err := execution.Run(ctx, p.workers, items, exec)
	if err != nil {
		return nil, fmt.Errorf("blockprocessor: execution scheduler: %w", err)
	}

	accepted := make([]bool, len(results))
	for i, r := range results {
		success := r.Status == execution.StatusSuccess
		accepted[i] = success
		p.metrics.ObserveTransaction(success)
		if h, err := blk.Transactions[i].Hash(); err == nil {
			p.events.Publish(events.Event{
				Kind:                events.KindTransactionApplied,
				TransactionApplied: &events.TransactionApplied{Hash: h, Success: success},
			})
		}
	}
	return accepted, nil
}

// execTransaction runs one transaction's full lifecycle: signature and
// nonce checks, fee charging, then its payload's Verify/Apply pair. Any
// failure here marks the transaction Failed rather than aborting the
// block. A failure in the nonce bump, Verify or Apply comes after
// chargeFee, so the fee stays consumed (spec.md §4.E: "a transaction that
// panics ... is recorded as Failed with its full fee/energy consumption;
// subsequent transactions still run"); a failure in the sender, signature,
// account or nonce checks, or in chargeFee itself, charges no fee.
func (p *Processor) execTransaction(ctx context.Context, state *chainstate.State, tx *types.Transaction, minerID types.AccountID) execution.Result {
	if tx.Sender == nil {
		return execution.Result{Status: execution.StatusFailed, Err: fmt.Errorf("blockprocessor: transaction has no sender")}
	}
	ok, err := tx.VerifySignature()
	if err != nil || !ok {
		return execution.Result{Status: execution.StatusFailed, Err: fmt.Errorf("blockprocessor: invalid signature")}
	}

	senderID, err := state.ResolveAccount(ctx, types.AccountKeyFromPubKey(tx.Sender))
	if err != nil {
		return execution.Result{Status: execution.StatusFailed, Err: err}
	}
	currentNonce, err := state.GetNonce(ctx, senderID)
	if err != nil {
		return execution.Result{Status: execution.StatusFailed, Err: err}
	}
	if tx.Nonce != currentNonce {
		return execution.Result{Status: execution.StatusFailed, Err: fmt.Errorf("blockprocessor: nonce mismatch: have %d, want %d", tx.Nonce, currentNonce)}
	}

	if err := p.chargeFee(ctx, state, senderID, minerID, tx); err != nil {
		return execution.Result{Status: execution.StatusFailed, Err: err}
	}
	if err := state.BumpNonce(ctx, senderID); err != nil {
		return execution.Result{Status: execution.StatusFailed, Err: err}
	}

	if err := tx.Payload.Verify(state, tx); err != nil {
		return execution.Result{Status: execution.StatusFailed, Err: err}
	}
	if err := tx.Payload.Apply(state, tx); err != nil {
		return execution.Result{Status: execution.StatusFailed, Err: err}
	}
	return execution.Result{Status: execution.StatusSuccess}
}

// chargeFee debits the sender and, for a native-coin fee, credits the
// miner in full — spec.md's E1 worked example ("Alice sends 100 ... fee
// 1. After one block ... miner=reward+1") confirms regular transaction
// fees are never burned, unlike a scheduled execution's offer. An
// energy-denominated fee instead draws down the sender's refillable
// quota; energy has no transferable form, so the miner receives nothing
// from it.
func (p *Processor) chargeFee(ctx context.Context, state *chainstate.State, senderID, minerID types.AccountID, tx *types.Transaction) error {
	switch tx.FeeDenom {
	case types.FeeEnergy:
		return state.ConsumeEnergy(ctx, senderID, tx.Fee)
	default:
		bal, err := state.GetBalance(ctx, senderID, types.NativeAsset)
		if err != nil {
			return err
		}
		if bal < tx.Fee {
			return fmt.Errorf("blockprocessor: sender %d cannot afford fee: have %d, need %d", senderID, bal, tx.Fee)
		}
		if err := state.SetBalance(ctx, senderID, types.NativeAsset, bal-tx.Fee); err != nil {
			return err
		}
		minerBal, err := state.GetBalance(ctx, minerID, types.NativeAsset)
		if err != nil {
			return err
		}
		return state.SetBalance(ctx, minerID, types.NativeAsset, minerBal+tx.Fee)
	}
}

// buildItems resolves each transaction's declared access set into
// AccountIDs ahead of scheduling. Every item's write set always includes
// the sender (fee debit, nonce bump) and the miner (fee credit), since
// those two writes happen on every transaction regardless of payload.
func (p *Processor) buildItems(ctx context.Context, state *chainstate.State, blk *types.Block, minerID types.AccountID) ([]execution.Item, error) {
	items := make([]execution.Item, len(blk.Transactions))
	for i, tx := range blk.Transactions {
		if tx.Sender == nil {
			return nil, fmt.Errorf("blockprocessor: transaction %d has no sender", i)
		}
		senderID, err := state.ResolveAccount(ctx, types.AccountKeyFromPubKey(tx.Sender))
		if err != nil {
			return nil, err
		}
		writes := []types.AccountID{senderID, minerID}
		reads := []types.AccountID{senderID}
		conservative := true

		if ah, ok := tx.Payload.(types.AccessHashes); ok {
			conservative = tx.Payload.Conservative()
			readKeys, writeKeys := ah.AccessHashes()
			for _, key := range readKeys {
				id, err := state.ResolveAccount(ctx, key)
				if err != nil {
					return nil, err
				}
				reads = append(reads, id)
			}
			for _, key := range writeKeys {
				id, err := state.ResolveAccount(ctx, key)
				if err != nil {
					return nil, err
				}
				writes = append(writes, id)
			}
		}

		items[i] = execution.Item{
			Index:        i,
			Access:       types.AccessSet{Reads: reads, Writes: writes},
			Conservative: conservative,
		}
	}
	return items, nil
}
