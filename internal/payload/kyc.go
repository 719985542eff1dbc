package payload

import (
	"bytes"
	"context"
	"fmt"

	"ghostdagcore/internal/types"
)

// KYCPayload commits a blinded compliance attestation for an account,
// grounded on `core/compliance.go`'s ValidateKYC commit step (the actual
// cryptographic attestation is a black-box primitive, spec.md §1).
type KYCPayload struct {
	Subject    types.Hash
	Commitment types.Hash
}

func (p *KYCPayload) Tag() types.PayloadTag   { return types.PayloadKYCCommit }
func (p *KYCPayload) Access() types.AccessSet { return types.AccessSet{} }
func (p *KYCPayload) Conservative() bool      { return false }

func (p *KYCPayload) AccessHashes() (reads, writes []types.Hash) {
	return nil, []types.Hash{p.Subject}
}

func (p *KYCPayload) Verify(state types.TxState, tx *types.Transaction) error {
	if p.Subject.IsZero() {
		return fmt.Errorf("payload: kyc commit requires a subject account")
	}
	return nil
}

func (p *KYCPayload) Apply(state types.TxState, tx *types.Transaction) error {
	ctx := context.Background()
	subject, err := state.ResolveAccount(ctx, p.Subject)
	if err != nil {
		return err
	}
	return state.CommitKYC(ctx, subject, p.Commitment)
}

func (p *KYCPayload) MarshalPayload() ([]byte, error) {
	buf := new(bytes.Buffer)
	writeHash(buf, p.Subject)
	writeHash(buf, p.Commitment)
	return buf.Bytes(), nil
}

func unmarshalKYCPayload(raw []byte) (types.Payload, error) {
	r := bytes.NewReader(raw)
	subject, err := readHash(r)
	if err != nil {
		return nil, err
	}
	commitment, err := readHash(r)
	if err != nil {
		return nil, err
	}
	return &KYCPayload{Subject: subject, Commitment: commitment}, nil
}

// KYCCommitteeApprovePayload records one committee member's approval of a
// previously committed attestation, grounded on `core/compliance.go`'s
// multi-signer committee sign-off.
type KYCCommitteeApprovePayload struct {
	Subject   types.Hash
	Threshold uint32
}

func (p *KYCCommitteeApprovePayload) Tag() types.PayloadTag   { return types.PayloadKYCCommitteeApprove }
func (p *KYCCommitteeApprovePayload) Access() types.AccessSet { return types.AccessSet{} }
func (p *KYCCommitteeApprovePayload) Conservative() bool      { return false }

func (p *KYCCommitteeApprovePayload) AccessHashes() (reads, writes []types.Hash) {
	return nil, []types.Hash{p.Subject}
}

func (p *KYCCommitteeApprovePayload) Verify(state types.TxState, tx *types.Transaction) error {
	if p.Threshold == 0 {
		return fmt.Errorf("payload: kyc approval threshold must be non-zero")
	}
	return nil
}

func (p *KYCCommitteeApprovePayload) Apply(state types.TxState, tx *types.Transaction) error {
	ctx := context.Background()
	approver, err := senderAccount(ctx, state, tx)
	if err != nil {
		return err
	}
	subject, err := state.ResolveAccount(ctx, p.Subject)
	if err != nil {
		return err
	}
	_, err = state.ApproveKYC(ctx, subject, approver, p.Threshold)
	return err
}

func (p *KYCCommitteeApprovePayload) MarshalPayload() ([]byte, error) {
	buf := new(bytes.Buffer)
	writeHash(buf, p.Subject)
	writeUint32(buf, p.Threshold)
	return buf.Bytes(), nil
}

func unmarshalKYCCommitteeApprovePayload(raw []byte) (types.Payload, error) {
	r := bytes.NewReader(raw)
	subject, err := readHash(r)
	if err != nil {
		return nil, err
	}
	threshold, err := readUint32(r)
	if err != nil {
		return nil, err
	}
	return &KYCCommitteeApprovePayload{Subject: subject, Threshold: threshold}, nil
}
