package payload

import (
	"bytes"
	"context"
	"fmt"

	"ghostdagcore/internal/types"
)

// StakeFreezePayload locks native balance into the sender's energy quota,
// mapping directly onto chainstate's FreezeEnergy
// (`core/dao_staking.go`/`core/energy_tokens.go`).
type StakeFreezePayload struct {
	Amount uint64
}

func (p *StakeFreezePayload) Tag() types.PayloadTag                   { return types.PayloadStakeFreeze }
func (p *StakeFreezePayload) Access() types.AccessSet                 { return types.AccessSet{} }
func (p *StakeFreezePayload) Conservative() bool                      { return false }
func (p *StakeFreezePayload) AccessHashes() (reads, writes []types.Hash) { return nil, nil }

func (p *StakeFreezePayload) Verify(state types.TxState, tx *types.Transaction) error {
	if p.Amount == 0 {
		return fmt.Errorf("payload: stake freeze amount must be non-zero")
	}
	return nil
}

func (p *StakeFreezePayload) Apply(state types.TxState, tx *types.Transaction) error {
	ctx := context.Background()
	account, err := senderAccount(ctx, state, tx)
	if err != nil {
		return err
	}
	return state.FreezeEnergy(ctx, account, p.Amount)
}

func (p *StakeFreezePayload) MarshalPayload() ([]byte, error) {
	buf := new(bytes.Buffer)
	writeUint64(buf, p.Amount)
	return buf.Bytes(), nil
}

func unmarshalStakeFreezePayload(raw []byte) (types.Payload, error) {
	r := bytes.NewReader(raw)
	amount, err := readUint64(r)
	if err != nil {
		return nil, err
	}
	return &StakeFreezePayload{Amount: amount}, nil
}

// StakeUnfreezePayload reverses a prior freeze, mapping onto
// chainstate's UnfreezeEnergy.
type StakeUnfreezePayload struct {
	Amount uint64
}

func (p *StakeUnfreezePayload) Tag() types.PayloadTag                     { return types.PayloadStakeUnfreeze }
func (p *StakeUnfreezePayload) Access() types.AccessSet                   { return types.AccessSet{} }
func (p *StakeUnfreezePayload) Conservative() bool                        { return false }
func (p *StakeUnfreezePayload) AccessHashes() (reads, writes []types.Hash) { return nil, nil }

func (p *StakeUnfreezePayload) Verify(state types.TxState, tx *types.Transaction) error {
	if p.Amount == 0 {
		return fmt.Errorf("payload: stake unfreeze amount must be non-zero")
	}
	return nil
}

func (p *StakeUnfreezePayload) Apply(state types.TxState, tx *types.Transaction) error {
	ctx := context.Background()
	account, err := senderAccount(ctx, state, tx)
	if err != nil {
		return err
	}
	return state.UnfreezeEnergy(ctx, account, p.Amount)
}

func (p *StakeUnfreezePayload) MarshalPayload() ([]byte, error) {
	buf := new(bytes.Buffer)
	writeUint64(buf, p.Amount)
	return buf.Bytes(), nil
}

func unmarshalStakeUnfreezePayload(raw []byte) (types.Payload, error) {
	r := bytes.NewReader(raw)
	amount, err := readUint64(r)
	if err != nil {
		return nil, err
	}
	return &StakeUnfreezePayload{Amount: amount}, nil
}

// EnergyConsumePayload burns sender quota directly, used by callers that
// want to pre-pay energy outside of the fee path (`core/energy_tokens.go`).
type EnergyConsumePayload struct {
	Amount uint64
}

func (p *EnergyConsumePayload) Tag() types.PayloadTag                     { return types.PayloadEnergyConsume }
func (p *EnergyConsumePayload) Access() types.AccessSet                   { return types.AccessSet{} }
func (p *EnergyConsumePayload) Conservative() bool                        { return false }
func (p *EnergyConsumePayload) AccessHashes() (reads, writes []types.Hash) { return nil, nil }

func (p *EnergyConsumePayload) Verify(state types.TxState, tx *types.Transaction) error {
	if p.Amount == 0 {
		return fmt.Errorf("payload: energy consume amount must be non-zero")
	}
	return nil
}

func (p *EnergyConsumePayload) Apply(state types.TxState, tx *types.Transaction) error {
	ctx := context.Background()
	account, err := senderAccount(ctx, state, tx)
	if err != nil {
		return err
	}
	return state.ConsumeEnergy(ctx, account, p.Amount)
}

func (p *EnergyConsumePayload) MarshalPayload() ([]byte, error) {
	buf := new(bytes.Buffer)
	writeUint64(buf, p.Amount)
	return buf.Bytes(), nil
}

func unmarshalEnergyConsumePayload(raw []byte) (types.Payload, error) {
	r := bytes.NewReader(raw)
	amount, err := readUint64(r)
	if err != nil {
		return nil, err
	}
	return &EnergyConsumePayload{Amount: amount}, nil
}
