package payload

import (
	"bytes"
	"context"
	"fmt"

	"ghostdagcore/internal/types"
)

// ArbitrationOpenPayload opens an escrowed dispute between the sender
// (plaintiff) and a named defendant, generalised from `core/escrow.go`'s
// multi-party escrow into the juror-vote lifecycle domain.go implements.
type ArbitrationOpenPayload struct {
	CaseID    types.Hash
	Defendant types.Hash
	Amount    uint64
	Asset     types.AssetID
}

func (p *ArbitrationOpenPayload) Tag() types.PayloadTag   { return types.PayloadArbitrationOpen }
func (p *ArbitrationOpenPayload) Access() types.AccessSet { return types.AccessSet{} }
func (p *ArbitrationOpenPayload) Conservative() bool      { return false }

func (p *ArbitrationOpenPayload) AccessHashes() (reads, writes []types.Hash) {
	return nil, []types.Hash{p.Defendant}
}

func (p *ArbitrationOpenPayload) Verify(state types.TxState, tx *types.Transaction) error {
	if p.Amount == 0 {
		return fmt.Errorf("payload: arbitration escrow amount must be non-zero")
	}
	if p.Defendant.IsZero() {
		return fmt.Errorf("payload: arbitration case requires a defendant")
	}
	return nil
}

func (p *ArbitrationOpenPayload) Apply(state types.TxState, tx *types.Transaction) error {
	ctx := context.Background()
	plaintiff, err := senderAccount(ctx, state, tx)
	if err != nil {
		return err
	}
	defendant, err := state.ResolveAccount(ctx, p.Defendant)
	if err != nil {
		return err
	}
	return state.OpenArbitrationCase(ctx, p.CaseID, plaintiff, defendant, p.Amount, p.Asset)
}

func (p *ArbitrationOpenPayload) MarshalPayload() ([]byte, error) {
	buf := new(bytes.Buffer)
	writeHash(buf, p.CaseID)
	writeHash(buf, p.Defendant)
	writeUint64(buf, p.Amount)
	writeUint64(buf, uint64(p.Asset))
	return buf.Bytes(), nil
}

func unmarshalArbitrationOpenPayload(raw []byte) (types.Payload, error) {
	r := bytes.NewReader(raw)
	caseID, err := readHash(r)
	if err != nil {
		return nil, err
	}
	defendant, err := readHash(r)
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
	return &ArbitrationOpenPayload{CaseID: caseID, Defendant: defendant, Amount: amount, Asset: types.AssetID(asset)}, nil
}

// ArbitrationVotePayload casts the sender's (a juror's) vote on an open
// case.
type ArbitrationVotePayload struct {
	CaseID         types.Hash
	FavorPlaintiff bool
}

func (p *ArbitrationVotePayload) Tag() types.PayloadTag   { return types.PayloadArbitrationVote }
func (p *ArbitrationVotePayload) Access() types.AccessSet { return types.AccessSet{} }
func (p *ArbitrationVotePayload) Conservative() bool      { return false }

func (p *ArbitrationVotePayload) AccessHashes() (reads, writes []types.Hash) { return nil, nil }

func (p *ArbitrationVotePayload) Verify(state types.TxState, tx *types.Transaction) error {
	if p.CaseID.IsZero() {
		return fmt.Errorf("payload: arbitration vote requires a case id")
	}
	return nil
}

func (p *ArbitrationVotePayload) Apply(state types.TxState, tx *types.Transaction) error {
	ctx := context.Background()
	juror, err := senderAccount(ctx, state, tx)
	if err != nil {
		return err
	}
	return state.VoteArbitration(ctx, p.CaseID, juror, p.FavorPlaintiff)
}

func (p *ArbitrationVotePayload) MarshalPayload() ([]byte, error) {
	buf := new(bytes.Buffer)
	writeHash(buf, p.CaseID)
	writeBool(buf, p.FavorPlaintiff)
	return buf.Bytes(), nil
}

func unmarshalArbitrationVotePayload(raw []byte) (types.Payload, error) {
	r := bytes.NewReader(raw)
	caseID, err := readHash(r)
	if err != nil {
		return nil, err
	}
	favor, err := readBool(r)
	if err != nil {
		return nil, err
	}
	return &ArbitrationVotePayload{CaseID: caseID, FavorPlaintiff: favor}, nil
}

// ArbitrationSlashPayload resolves a case once voting has concluded,
// paying the escrow to whichever side the jury favored.
type ArbitrationSlashPayload struct {
	CaseID types.Hash
}

func (p *ArbitrationSlashPayload) Tag() types.PayloadTag   { return types.PayloadArbitrationSlash }
func (p *ArbitrationSlashPayload) Access() types.AccessSet { return types.AccessSet{} }
func (p *ArbitrationSlashPayload) Conservative() bool      { return false }

func (p *ArbitrationSlashPayload) AccessHashes() (reads, writes []types.Hash) { return nil, nil }

func (p *ArbitrationSlashPayload) Verify(state types.TxState, tx *types.Transaction) error {
	if p.CaseID.IsZero() {
		return fmt.Errorf("payload: arbitration slash requires a case id")
	}
	return nil
}

func (p *ArbitrationSlashPayload) Apply(state types.TxState, tx *types.Transaction) error {
	return state.SlashArbitration(context.Background(), p.CaseID)
}

func (p *ArbitrationSlashPayload) MarshalPayload() ([]byte, error) {
	buf := new(bytes.Buffer)
	writeHash(buf, p.CaseID)
	return buf.Bytes(), nil
}

func unmarshalArbitrationSlashPayload(raw []byte) (types.Payload, error) {
	r := bytes.NewReader(raw)
	caseID, err := readHash(r)
	if err != nil {
		return nil, err
	}
	return &ArbitrationSlashPayload{CaseID: caseID}, nil
}
