package payload

import (
	"bytes"
	"context"
	"fmt"

	"ghostdagcore/internal/types"
)

// TransferPayload is a plain balance transfer (spec.md §4.F's
// TransferPayload, `core/account_and_balance_operations.go`'s Transfer).
type TransferPayload struct {
	To     types.Hash
	Amount uint64
	Asset  types.AssetID
}

func (p *TransferPayload) Tag() types.PayloadTag   { return types.PayloadTransfer }
func (p *TransferPayload) Access() types.AccessSet { return types.AccessSet{} }
func (p *TransferPayload) Conservative() bool      { return false }

func (p *TransferPayload) AccessHashes() (reads, writes []types.Hash) {
	return nil, []types.Hash{p.To}
}

// Recipient implements types.RecipientAware for internal/mempool's
// fee-denomination admission rule.
func (p *TransferPayload) Recipient() (types.Hash, bool) { return p.To, true }

func (p *TransferPayload) Verify(state types.TxState, tx *types.Transaction) error {
	if p.To.IsZero() {
		return fmt.Errorf("payload: transfer to the zero address is not permitted")
	}
	if p.Amount == 0 {
		return fmt.Errorf("payload: transfer amount must be non-zero")
	}
	return nil
}

func (p *TransferPayload) Apply(state types.TxState, tx *types.Transaction) error {
	ctx := context.Background()
	from, err := senderAccount(ctx, state, tx)
	if err != nil {
		return err
	}
	to, err := state.ResolveAccount(ctx, p.To)
	if err != nil {
		return err
	}
	bal, err := state.GetBalance(ctx, from, p.Asset)
	if err != nil {
		return err
	}
	if bal < p.Amount {
		return fmt.Errorf("payload: sender account %d has insufficient balance: have %d, need %d", from, bal, p.Amount)
	}
	if err := state.SetBalance(ctx, from, p.Asset, bal-p.Amount); err != nil {
		return err
	}
	toBal, err := state.GetBalance(ctx, to, p.Asset)
	if err != nil {
		return err
	}
	return state.SetBalance(ctx, to, p.Asset, toBal+p.Amount)
}

func (p *TransferPayload) MarshalPayload() ([]byte, error) {
	buf := new(bytes.Buffer)
	writeHash(buf, p.To)
	writeUint64(buf, p.Amount)
	writeUint64(buf, uint64(p.Asset))
	return buf.Bytes(), nil
}

func unmarshalTransferPayload(raw []byte) (types.Payload, error) {
	r := bytes.NewReader(raw)
	recipient, err := readHash(r)
	if err != nil {
		return nil, err
	}
	amount, err := readUint64(r)
	if err != nil {
		return nil, err
	}
	asset, err := readUint64(r)
	if err != nil {
		return nil, err
	}
	return &TransferPayload{To: recipient, Amount: amount, Asset: types.AssetID(asset)}, nil
}
