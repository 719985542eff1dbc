// Package chainstate implements the balances/nonces/contract-data/energy
// facade from spec.md §4.F: types.TxState backed by internal/storage's
// versioned column families, scoped to one block's exclusive snapshot.
// It follows the teacher's core/account_and_balance_operations.go shape
// (a thin manager wrapping the ledger, one small method per operation,
// fmt.Errorf-wrapped failures) generalized from the teacher's single flat
// balance map to the spec's versioned, multi-asset, reorg-safe storage.
package chainstate

import (
	"context"
	"encoding/binary"
	"fmt"

	"ghostdagcore/internal/storage"
	"ghostdagcore/internal/types"
)

// State is one block's mutable view over chain state: every method reads
// and writes through a single *storage.Snapshot, so all of a block's
// effects land in, or are discarded with, that snapshot as a unit
// (spec.md §4.A's exclusive write scope).
type State struct {
	sn         *storage.Snapshot
	topoheight uint64
	eventSeq   uint64
}

// New binds a State to sn at the given topoheight — the topoheight the
// block currently being processed will occupy once committed.
func New(sn *storage.Snapshot, topoheight uint64) *State {
	return &State{sn: sn, topoheight: topoheight}
}

var _ types.TxState = (*State)(nil)

// TopoHeight reports the topoheight this State's writes are versioned
// under.
func (s *State) TopoHeight() uint64 {
	return s.topoheight
}

func accountIDKey(id types.AccountID) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(id))
	return buf[:]
}

func balanceKey(account types.AccountID, asset types.AssetID) []byte {
	buf := make([]byte, 16)
	binary.BigEndian.PutUint64(buf[0:8], uint64(account))
	binary.BigEndian.PutUint64(buf[8:16], uint64(asset))
	return buf
}

// ResolveAccount maps a 32-byte account key to its internal AccountID,
// registering a brand-new account at the current topoheight on first
// sight (spec.md §3.4: "accounts use a small numeric id internally").
func (s *State) ResolveAccount(ctx context.Context, key types.Hash) (types.AccountID, error) {
	raw, ok, err := s.sn.Get(storage.CFAccountsByKey, key[:])
	if err != nil {
		return 0, fmt.Errorf("chainstate: resolve account: %w", err)
	}
	if ok {
		if len(raw) != 8 {
			return 0, fmt.Errorf("chainstate: corrupt accounts-by-key record for %s", key)
		}
		return types.AccountID(binary.BigEndian.Uint64(raw)), nil
	}

	id, err := s.nextAccountID()
	if err != nil {
		return 0, err
	}
	acct := types.Account{ID: id, Key: key, RegisteredAtTopo: s.topoheight}
	if err := s.PutAccount(ctx, acct); err != nil {
		return 0, err
	}
	var idBuf [8]byte
	binary.BigEndian.PutUint64(idBuf[:], uint64(id))
	s.sn.Put(storage.CFAccountsByKey, key[:], idBuf[:])
	return id, nil
}

// nextAccountID allocates the next unused AccountID by tracking a
// counter under CFCommon; AccountID 0 is never assigned (spec.md §3.4's
// "missing" sentinel).
func (s *State) nextAccountID() (types.AccountID, error) {
	const counterKey = "next_account_id"
	raw, ok, err := s.sn.Get(storage.CFCommon, []byte(counterKey))
	if err != nil {
		return 0, fmt.Errorf("chainstate: read account-id counter: %w", err)
	}
	next := uint64(1)
	if ok {
		if len(raw) != 8 {
			return 0, fmt.Errorf("chainstate: corrupt account-id counter")
		}
		next = binary.BigEndian.Uint64(raw) + 1
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], next)
	s.sn.Put(storage.CFCommon, []byte(counterKey), buf[:])
	return types.AccountID(next), nil
}

// AccountByID returns the registration record for id.
func (s *State) AccountByID(ctx context.Context, id types.AccountID) (types.Account, error) {
	raw, ok, err := s.sn.Get(storage.CFAccounts, accountIDKey(id))
	if err != nil {
		return types.Account{}, fmt.Errorf("chainstate: get account %d: %w", id, err)
	}
	if !ok {
		return types.Account{}, fmt.Errorf("chainstate: account %d not found", id)
	}
	acct, err := accountCodec{}.Decode(raw)
	if err != nil {
		return types.Account{}, fmt.Errorf("chainstate: decode account %d: %w", id, err)
	}
	acct.ID = id
	return acct, nil
}

// PutAccount writes or replaces an account's registration record.
func (s *State) PutAccount(ctx context.Context, acct types.Account) error {
	raw, err := accountCodec{}.Encode(acct)
	if err != nil {
		return fmt.Errorf("chainstate: encode account %d: %w", acct.ID, err)
	}
	s.sn.Put(storage.CFAccounts, accountIDKey(acct.ID), raw)
	return nil
}

// GetBalance returns account's balance of asset, defaulting to 0 for an
// account/asset pair with no versioned history yet.
func (s *State) GetBalance(ctx context.Context, account types.AccountID, asset types.AssetID) (uint64, error) {
	v, ok, err := storage.GetLast[uint64](s.sn, storage.CFBalances, storage.CFVersionedBalances, balanceKey(account, asset), uint64Codec{})
	if err != nil {
		return 0, fmt.Errorf("chainstate: get balance: %w", err)
	}
	if !ok {
		return 0, nil
	}
	return v.Value, nil
}

// SetBalance writes a new versioned balance for account/asset at the
// state's current topoheight.
func (s *State) SetBalance(ctx context.Context, account types.AccountID, asset types.AssetID, amount uint64) error {
	if err := storage.SetLast[uint64](s.sn, storage.CFBalances, storage.CFVersionedBalances, balanceKey(account, asset), s.topoheight, amount, uint64Codec{}); err != nil {
		return fmt.Errorf("chainstate: set balance: %w", err)
	}
	return nil
}

// GetNonce returns account's current nonce, defaulting to 0.
func (s *State) GetNonce(ctx context.Context, account types.AccountID) (uint64, error) {
	v, ok, err := storage.GetLast[uint64](s.sn, storage.CFNonces, storage.CFVersionedNonces, accountIDKey(account), uint64Codec{})
	if err != nil {
		return 0, fmt.Errorf("chainstate: get nonce: %w", err)
	}
	if !ok {
		return 0, nil
	}
	return v.Value, nil
}

// BumpNonce advances account's nonce by one, per spec.md §3.4's strictly
// monotonic per-account counter.
func (s *State) BumpNonce(ctx context.Context, account types.AccountID) error {
	current, err := s.GetNonce(ctx, account)
	if err != nil {
		return err
	}
	if err := storage.SetLast[uint64](s.sn, storage.CFNonces, storage.CFVersionedNonces, accountIDKey(account), s.topoheight, current+1, uint64Codec{}); err != nil {
		return fmt.Errorf("chainstate: bump nonce: %w", err)
	}
	return nil
}
