package payload

import (
	"bytes"
	"context"
	"fmt"

	"ghostdagcore/internal/types"
)

// referralLevel1Bps is the level-1 referral reward ratio from
// original_source's common/src/referral/mod.rs default
// ReferralRewardRatios (1000 basis points = 10%); deeper upline levels
// are not modeled here (Non-goals: no upline-chain traversal).
const referralLevel1Bps = 1000

// ReferralPayload binds the sender to a referrer exactly once
// (original_source: "one-time referrer binding (immutable after
// binding)") and, on first binding, credits the referrer a
// protocol-subsidized reward proportional to amount.
type ReferralPayload struct {
	Referrer types.Hash
	Amount   uint64
	Asset    types.AssetID
}

func (p *ReferralPayload) Tag() types.PayloadTag   { return types.PayloadReferral }
func (p *ReferralPayload) Access() types.AccessSet { return types.AccessSet{} }
func (p *ReferralPayload) Conservative() bool      { return false }

func (p *ReferralPayload) AccessHashes() (reads, writes []types.Hash) {
	return nil, []types.Hash{p.Referrer}
}

func (p *ReferralPayload) Verify(state types.TxState, tx *types.Transaction) error {
	if p.Referrer.IsZero() {
		return fmt.Errorf("payload: referral requires a non-zero referrer")
	}
	return nil
}

func (p *ReferralPayload) Apply(state types.TxState, tx *types.Transaction) error {
	ctx := context.Background()
	referee, err := senderAccount(ctx, state, tx)
	if err != nil {
		return err
	}
	referrer, err := state.ResolveAccount(ctx, p.Referrer)
	if err != nil {
		return err
	}
	if err := state.RecordReferralEdge(ctx, referee, referrer); err != nil {
		return err
	}
	if p.Amount == 0 {
		return nil
	}
	reward := p.Amount * referralLevel1Bps / 10000
	if reward == 0 {
		return nil
	}
	bal, err := state.GetBalance(ctx, referrer, p.Asset)
	if err != nil {
		return err
	}
	return state.SetBalance(ctx, referrer, p.Asset, bal+reward)
}

func (p *ReferralPayload) MarshalPayload() ([]byte, error) {
	buf := new(bytes.Buffer)
	writeHash(buf, p.Referrer)
	writeUint64(buf, p.Amount)
	writeUint64(buf, uint64(p.Asset))
	return buf.Bytes(), nil
}

func unmarshalReferralPayload(raw []byte) (types.Payload, error) {
	r := bytes.NewReader(raw)
	referrer, err := readHash(r)
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
	return &ReferralPayload{Referrer: referrer, Amount: amount, Asset: types.AssetID(asset)}, nil
}
