package chainstate

import (
	"context"
	"fmt"

	"ghostdagcore/internal/storage"
	"ghostdagcore/internal/types"
)

// GetEnergy returns account's current energy record, defaulting to a
// zero-value Energy (no quota, no frozen principal) for an account that
// has never frozen anything.
func (s *State) GetEnergy(ctx context.Context, account types.AccountID) (types.Energy, error) {
	v, ok, err := storage.GetLast[types.Energy](s.sn, storage.CFEnergy, storage.CFVersionedEnergy, accountIDKey(account), energyCodec{})
	if err != nil {
		return types.Energy{}, fmt.Errorf("chainstate: get energy: %w", err)
	}
	if !ok {
		return types.Energy{}, nil
	}
	return v.Value, nil
}

func (s *State) putEnergy(account types.AccountID, e types.Energy) error {
	if err := storage.SetLast[types.Energy](s.sn, storage.CFEnergy, storage.CFVersionedEnergy, accountIDKey(account), s.topoheight, e, energyCodec{}); err != nil {
		return fmt.Errorf("chainstate: set energy: %w", err)
	}
	return nil
}

// ConsumeEnergy draws amount from account's refillable quota to pay an
// energy-denominated fee (spec.md §4.D). It fails rather than going
// negative; the mempool's admission checks are expected to have already
// confirmed sufficient quota, so this is a defensive re-check at
// execution time.
func (s *State) ConsumeEnergy(ctx context.Context, account types.AccountID, amount uint64) error {
	e, err := s.GetEnergy(ctx, account)
	if err != nil {
		return err
	}
	if e.Quota < amount {
		return fmt.Errorf("chainstate: account %d has insufficient energy quota: have %d, need %d", account, e.Quota, amount)
	}
	e.Quota -= amount
	return s.putEnergy(account, e)
}

// FreezeEnergy moves amount of the native asset from account's balance
// into its frozen energy principal, raising QuotaMax in step (spec.md
// §3.4: the frozen pool backs the refillable quota).
func (s *State) FreezeEnergy(ctx context.Context, account types.AccountID, amount uint64) error {
	bal, err := s.GetBalance(ctx, account, types.NativeAsset)
	if err != nil {
		return err
	}
	if bal < amount {
		return fmt.Errorf("chainstate: account %d has insufficient balance to freeze %d", account, amount)
	}
	if err := s.SetBalance(ctx, account, types.NativeAsset, bal-amount); err != nil {
		return err
	}
	e, err := s.GetEnergy(ctx, account)
	if err != nil {
		return err
	}
	e.Frozen += amount
	e.QuotaMax += amount
	e.Quota += amount
	if err := s.putEnergy(account, e); err != nil {
		return err
	}
	return s.putStakePosition(account, e.Frozen)
}

// UnfreezeEnergy reverses FreezeEnergy: it returns amount of frozen
// principal to account's spendable balance and lowers QuotaMax in step,
// capping the live quota down to the new maximum if necessary.
func (s *State) UnfreezeEnergy(ctx context.Context, account types.AccountID, amount uint64) error {
	e, err := s.GetEnergy(ctx, account)
	if err != nil {
		return err
	}
	if e.Frozen < amount {
		return fmt.Errorf("chainstate: account %d has only %d energy frozen, cannot unfreeze %d", account, e.Frozen, amount)
	}
	e.Frozen -= amount
	e.QuotaMax -= amount
	if e.Quota > e.QuotaMax {
		e.Quota = e.QuotaMax
	}
	if err := s.putEnergy(account, e); err != nil {
		return err
	}
	if err := s.putStakePosition(account, e.Frozen); err != nil {
		return err
	}
	bal, err := s.GetBalance(ctx, account, types.NativeAsset)
	if err != nil {
		return err
	}
	return s.SetBalance(ctx, account, types.NativeAsset, bal+amount)
}

// putStakePosition mirrors an account's frozen energy principal into
// CFStakePositions/CFVersionedStake, the governance-weight view
// core/dao_staking.go keeps separate from the spendable-quota view
// CFEnergy serves — both derive from the same frozen principal, so
// FreezeEnergy/UnfreezeEnergy keep them in lockstep rather than exposing
// a second freeze entry point.
func (s *State) putStakePosition(account types.AccountID, frozen uint64) error {
	if err := storage.SetLast[uint64](s.sn, storage.CFStakePositions, storage.CFVersionedStake, accountIDKey(account), s.topoheight, frozen, uint64Codec{}); err != nil {
		return fmt.Errorf("chainstate: set stake position: %w", err)
	}
	return nil
}

// StakePosition returns account's current governance-weight stake,
// which always equals its frozen energy principal.
func (s *State) StakePosition(ctx context.Context, account types.AccountID) (uint64, error) {
	v, ok, err := storage.GetLast[uint64](s.sn, storage.CFStakePositions, storage.CFVersionedStake, accountIDKey(account), uint64Codec{})
	if err != nil {
		return 0, fmt.Errorf("chainstate: get stake position: %w", err)
	}
	if !ok {
		return 0, nil
	}
	return v.Value, nil
}
