package payload

import (
	"bytes"
	"context"
	"fmt"

	"ghostdagcore/internal/types"
)

// ContractDeployPayload deploys bytecode at a create2-style deterministic
// address (spec.md §4.D), grounded on `core/contract_management.go`'s
// deploy flow with the WASM host swapped for an opaque bytecode blob
// (no VM is implemented here; `wasmerio/wasmer-go` is deliberately not
// wired, see DESIGN.md).
type ContractDeployPayload struct {
	Salt     types.Hash
	Bytecode []byte
}

func (p *ContractDeployPayload) Tag() types.PayloadTag   { return types.PayloadContractDeploy }
func (p *ContractDeployPayload) Access() types.AccessSet { return types.AccessSet{} }
func (p *ContractDeployPayload) Conservative() bool      { return false }

// address derives the deterministic contract address from the caller-
// chosen salt and the bytecode hash. types.Create2Aware takes no
// arguments (mempool calls it before any sender resolution), so unlike
// Ethereum's CREATE2 the deployer's own key is deliberately left out of
// the mix; Salt is the caller's responsibility for collision avoidance.
func (p *ContractDeployPayload) address() types.Hash {
	buf := make([]byte, 0, 64)
	buf = append(buf, p.Salt[:]...)
	codeHash := types.Sha256d(p.Bytecode)
	buf = append(buf, codeHash[:]...)
	return types.Sha256d(buf)
}

func (p *ContractDeployPayload) Create2Address() (types.Hash, bool) {
	return p.address(), true
}

func (p *ContractDeployPayload) AccessHashes() (reads, writes []types.Hash) {
	return nil, nil
}

func (p *ContractDeployPayload) Verify(state types.TxState, tx *types.Transaction) error {
	if len(p.Bytecode) == 0 {
		return fmt.Errorf("payload: contract deploy requires non-empty bytecode")
	}
	return nil
}

func (p *ContractDeployPayload) Apply(state types.TxState, tx *types.Transaction) error {
	ctx := context.Background()
	deployer, err := senderAccount(ctx, state, tx)
	if err != nil {
		return err
	}
	return state.DeployContract(ctx, p.address(), p.Bytecode, deployer)
}

func (p *ContractDeployPayload) MarshalPayload() ([]byte, error) {
	buf := new(bytes.Buffer)
	writeHash(buf, p.Salt)
	if err := writeBytes(buf, p.Bytecode); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func unmarshalContractDeployPayload(raw []byte) (types.Payload, error) {
	r := bytes.NewReader(raw)
	salt, err := readHash(r)
	if err != nil {
		return nil, err
	}
	code, err := readBytes(r)
	if err != nil {
		return nil, err
	}
	return &ContractDeployPayload{Salt: salt, Bytecode: code}, nil
}

// ContractInvokePayload calls a deployed contract's host-level data
// operations — read/write a storage cell and move funds out of the
// contract's own balance — grounded on `core/contracts.go`'s invoke
// entrypoint with the VM opcode interpreter omitted (Non-goal).
type ContractInvokePayload struct {
	Contract  types.Hash
	Key       []byte
	Value     []byte
	PayTo     types.Hash
	PayAsset  types.AssetID
	PayAmount uint64
}

func (p *ContractInvokePayload) Tag() types.PayloadTag   { return types.PayloadContractInvoke }
func (p *ContractInvokePayload) Access() types.AccessSet { return types.AccessSet{} }
func (p *ContractInvokePayload) Conservative() bool      { return false }

func (p *ContractInvokePayload) AccessHashes() (reads, writes []types.Hash) {
	writes = []types.Hash{p.Contract}
	if !p.PayTo.IsZero() {
		writes = append(writes, p.PayTo)
	}
	return nil, writes
}

func (p *ContractInvokePayload) Verify(state types.TxState, tx *types.Transaction) error {
	if p.Contract.IsZero() {
		return fmt.Errorf("payload: contract invoke requires a target contract")
	}
	return nil
}

func (p *ContractInvokePayload) Apply(state types.TxState, tx *types.Transaction) error {
	ctx := context.Background()
	if len(p.Key) > 0 || p.Value != nil {
		if err := state.SetContractData(ctx, p.Contract, p.Key, p.Value); err != nil {
			return err
		}
	}
	if p.PayAmount > 0 {
		to, err := state.ResolveAccount(ctx, p.PayTo)
		if err != nil {
			return err
		}
		if err := state.TransferFromContract(ctx, p.Contract, to, p.PayAsset, p.PayAmount); err != nil {
			return err
		}
	}
	return nil
}

func (p *ContractInvokePayload) MarshalPayload() ([]byte, error) {
	buf := new(bytes.Buffer)
	writeHash(buf, p.Contract)
	if err := writeBytes(buf, p.Key); err != nil {
		return nil, err
	}
	if err := writeBytes(buf, p.Value); err != nil {
		return nil, err
	}
	writeHash(buf, p.PayTo)
	writeUint64(buf, uint64(p.PayAsset))
	writeUint64(buf, p.PayAmount)
	return buf.Bytes(), nil
}

func unmarshalContractInvokePayload(raw []byte) (types.Payload, error) {
	r := bytes.NewReader(raw)
	contract, err := readHash(r)
	if err != nil {
		return nil, err
	}
	key, err := readBytes(r)
	if err != nil {
		return nil, err
	}
	value, err := readBytes(r)
	if err != nil {
		return nil, err
	}
	payTo, err := readHash(r)
	if err != nil {
		return nil, err
	}
	asset, err := readUint64(r)
	if err != nil {
		return nil, err
	}
	amount, err := readUint64(r)
	if err != nil {
		return nil, err
	}
	return &ContractInvokePayload{
		Contract:  contract,
		Key:       key,
		Value:     value,
		PayTo:     payTo,
		PayAsset:  types.AssetID(asset),
		PayAmount: amount,
	}, nil
}
