package chainstate

import (
	"context"
	"fmt"

	"ghostdagcore/internal/storage"
	"ghostdagcore/internal/types"
)

func contractDataKey(contract types.Hash, key []byte) []byte {
	buf := make([]byte, 32+len(key))
	copy(buf, contract[:])
	copy(buf[32:], key)
	return buf
}

// DeployContract records bytecode under contract's address, failing if
// that address already holds a deployed contract (spec.md §4.D's
// create2-collision rule: an address is claimed exactly once).
func (s *State) DeployContract(ctx context.Context, hash types.Hash, bytecode []byte, deployer types.AccountID) error {
	_, ok, err := storage.GetLast[[]byte](s.sn, storage.CFContracts, storage.CFVersionedContracts, hash[:], bytesCodec{})
	if err != nil {
		return fmt.Errorf("chainstate: deploy contract: %w", err)
	}
	if ok {
		return fmt.Errorf("chainstate: contract %s already deployed", hash)
	}
	if err := storage.SetLast[[]byte](s.sn, storage.CFContracts, storage.CFVersionedContracts, hash[:], s.topoheight, bytecode, bytesCodec{}); err != nil {
		return fmt.Errorf("chainstate: deploy contract: %w", err)
	}
	return nil
}

// GetContractData reads one key from contract's storage, returning a nil
// slice for a key that has never been set.
func (s *State) GetContractData(ctx context.Context, contract types.Hash, key []byte) ([]byte, error) {
	v, ok, err := storage.GetLast[[]byte](s.sn, storage.CFContractsData, storage.CFVersionedContractsData, contractDataKey(contract, key), bytesCodec{})
	if err != nil {
		return nil, fmt.Errorf("chainstate: get contract data: %w", err)
	}
	if !ok {
		return nil, nil
	}
	return v.Value, nil
}

// SetContractData writes one key in contract's storage.
func (s *State) SetContractData(ctx context.Context, contract types.Hash, key, value []byte) error {
	if err := storage.SetLast[[]byte](s.sn, storage.CFContractsData, storage.CFVersionedContractsData, contractDataKey(contract, key), s.topoheight, value, bytesCodec{}); err != nil {
		return fmt.Errorf("chainstate: set contract data: %w", err)
	}
	return nil
}

// TransferFromContract moves amount of asset out of contract's own
// balance to recipient, the only way a contract's funds move per
// spec.md §4.D's invoke semantics.
func (s *State) TransferFromContract(ctx context.Context, contract types.Hash, recipient types.AccountID, asset types.AssetID, amount uint64) error {
	contractAcct, err := s.ResolveAccount(ctx, contract)
	if err != nil {
		return err
	}
	bal, err := s.GetBalance(ctx, contractAcct, asset)
	if err != nil {
		return err
	}
	if bal < amount {
		return fmt.Errorf("chainstate: contract %s has insufficient balance: have %d, need %d", contract, bal, amount)
	}
	if err := s.SetBalance(ctx, contractAcct, asset, bal-amount); err != nil {
		return err
	}
	recipientBal, err := s.GetBalance(ctx, recipient, asset)
	if err != nil {
		return err
	}
	return s.SetBalance(ctx, recipient, asset, recipientBal+amount)
}
