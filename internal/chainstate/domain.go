package chainstate

import (
	"context"
	"encoding/binary"
	"fmt"

	"ghostdagcore/internal/storage"
	"ghostdagcore/internal/types"
)

// CommitKYC records subject's blinded KYC commitment, mirroring
// core/compliance.go's commit-then-approve shape (spec.md §9: KYC
// committee rules are referenced but not normative here; this is the
// state effect, not the committee's membership policy).
func (s *State) CommitKYC(ctx context.Context, subject types.AccountID, commitment types.Hash) error {
	rec, err := s.KYCStatus(ctx, subject)
	if err != nil {
		return err
	}
	rec.Commitment = commitment
	rec.Committed = true
	s.sn.Put(storage.CFKYCRecords, accountIDKey(subject), kycRecordCodec{}.encode(rec))
	return nil
}

// ApproveKYC records one committee member's approval and reports whether
// the subject has now cleared threshold approvals.
func (s *State) ApproveKYC(ctx context.Context, subject types.AccountID, approver types.AccountID, threshold uint32) (bool, error) {
	rec, err := s.KYCStatus(ctx, subject)
	if err != nil {
		return false, err
	}
	if !rec.Committed {
		return false, fmt.Errorf("chainstate: account %d has no KYC commitment to approve", subject)
	}
	rec.Approvals++
	if rec.Approvals >= threshold {
		rec.Approved = true
	}
	s.sn.Put(storage.CFKYCRecords, accountIDKey(subject), kycRecordCodec{}.encode(rec))
	return rec.Approved, nil
}

// KYCStatus returns subject's compliance record, defaulting to an
// uncommitted zero-value record.
func (s *State) KYCStatus(ctx context.Context, subject types.AccountID) (types.KYCRecord, error) {
	raw, ok, err := s.sn.Get(storage.CFKYCRecords, accountIDKey(subject))
	if err != nil {
		return types.KYCRecord{}, fmt.Errorf("chainstate: kyc status: %w", err)
	}
	if !ok {
		return types.KYCRecord{}, nil
	}
	return kycRecordCodec{}.decode(raw)
}

// OpenArbitrationCase escrows amount out of defendant's balance and
// opens a juror-vote case, generalised from core/escrow.go's multi-party
// escrow shape (spec.md §4.F's ArbitrationCases CF).
func (s *State) OpenArbitrationCase(ctx context.Context, caseID types.Hash, plaintiff, defendant types.AccountID, amount uint64, asset types.AssetID) error {
	_, ok, err := s.sn.Get(storage.CFArbitrationCases, caseID[:])
	if err != nil {
		return fmt.Errorf("chainstate: open arbitration case: %w", err)
	}
	if ok {
		return fmt.Errorf("chainstate: arbitration case %s already open", caseID)
	}
	bal, err := s.GetBalance(ctx, defendant, asset)
	if err != nil {
		return err
	}
	if bal < amount {
		return fmt.Errorf("chainstate: defendant %d has insufficient balance to escrow %d", defendant, amount)
	}
	if err := s.SetBalance(ctx, defendant, asset, bal-amount); err != nil {
		return err
	}
	c := types.ArbitrationCase{Plaintiff: plaintiff, Defendant: defendant, Amount: amount, Asset: asset}
	s.sn.Put(storage.CFArbitrationCases, caseID[:], arbitrationCaseCodec{}.encode(c))
	return nil
}

func arbitrationVoteKey(caseID types.Hash, juror types.AccountID) []byte {
	buf := make([]byte, types.HashSize+8)
	copy(buf, caseID[:])
	binary.BigEndian.PutUint64(buf[types.HashSize:], uint64(juror))
	return buf
}

// VoteArbitration records one juror's vote, rejecting a juror who has
// already voted on this case or a case that's already resolved.
func (s *State) VoteArbitration(ctx context.Context, caseID types.Hash, juror types.AccountID, favorPlaintiff bool) error {
	c, err := s.ArbitrationCaseStatus(ctx, caseID)
	if err != nil {
		return err
	}
	if c.Resolved {
		return fmt.Errorf("chainstate: arbitration case %s already resolved", caseID)
	}
	voteKey := arbitrationVoteKey(caseID, juror)
	if _, ok, err := s.sn.Get(storage.CFArbitrationVotes, voteKey); err != nil {
		return fmt.Errorf("chainstate: vote arbitration: %w", err)
	} else if ok {
		return fmt.Errorf("chainstate: juror %d already voted on case %s", juror, caseID)
	}
	if favorPlaintiff {
		c.VotesFor++
	} else {
		c.VotesAgainst++
	}
	s.sn.Put(storage.CFArbitrationVotes, voteKey, []byte{1})
	s.sn.Put(storage.CFArbitrationCases, caseID[:], arbitrationCaseCodec{}.encode(c))
	return nil
}

// SlashArbitration resolves a case, paying the escrowed amount to
// whichever side has the majority of juror votes (defendant by default
// on a tie, since the escrow already sits against them).
func (s *State) SlashArbitration(ctx context.Context, caseID types.Hash) error {
	c, err := s.ArbitrationCaseStatus(ctx, caseID)
	if err != nil {
		return err
	}
	if c.Resolved {
		return fmt.Errorf("chainstate: arbitration case %s already resolved", caseID)
	}
	winner := c.Defendant
	if c.VotesFor > c.VotesAgainst {
		winner = c.Plaintiff
	}
	bal, err := s.GetBalance(ctx, winner, c.Asset)
	if err != nil {
		return err
	}
	if err := s.SetBalance(ctx, winner, c.Asset, bal+c.Amount); err != nil {
		return err
	}
	c.Resolved = true
	s.sn.Put(storage.CFArbitrationCases, caseID[:], arbitrationCaseCodec{}.encode(c))
	return nil
}

// ArbitrationCaseStatus returns caseID's current state, failing if no
// such case was ever opened.
func (s *State) ArbitrationCaseStatus(ctx context.Context, caseID types.Hash) (types.ArbitrationCase, error) {
	raw, ok, err := s.sn.Get(storage.CFArbitrationCases, caseID[:])
	if err != nil {
		return types.ArbitrationCase{}, fmt.Errorf("chainstate: arbitration case status: %w", err)
	}
	if !ok {
		return types.ArbitrationCase{}, fmt.Errorf("chainstate: arbitration case %s not found", caseID)
	}
	return arbitrationCaseCodec{}.decode(raw)
}

func nftOwnerIndexKey(owner types.AccountID, assetID types.Hash) []byte {
	buf := make([]byte, 8+types.HashSize)
	binary.BigEndian.PutUint64(buf[:8], uint64(owner))
	copy(buf[8:], assetID[:])
	return buf
}

// MintNFT creates a new non-fungible asset at assetID, failing if that
// id is already minted (the same create2-style "claimed exactly once"
// rule DeployContract enforces).
func (s *State) MintNFT(ctx context.Context, assetID types.Hash, owner types.AccountID, metadata []byte) error {
	if _, ok, err := s.sn.Get(storage.CFNFTAssets, assetID[:]); err != nil {
		return fmt.Errorf("chainstate: mint nft: %w", err)
	} else if ok {
		return fmt.Errorf("chainstate: nft %s already minted", assetID)
	}
	a := types.NFTAsset{Owner: owner, Metadata: metadata}
	s.sn.Put(storage.CFNFTAssets, assetID[:], nftAssetCodec{}.encode(a))
	s.sn.Put(storage.CFNFTOwners, nftOwnerIndexKey(owner, assetID), []byte{1})
	return nil
}

// TransferNFT moves assetID to a new owner, updating the owner-indexed
// CFNFTOwners entries in step.
func (s *State) TransferNFT(ctx context.Context, assetID types.Hash, to types.AccountID) error {
	raw, ok, err := s.sn.Get(storage.CFNFTAssets, assetID[:])
	if err != nil {
		return fmt.Errorf("chainstate: transfer nft: %w", err)
	}
	if !ok {
		return fmt.Errorf("chainstate: nft %s not found", assetID)
	}
	a, err := nftAssetCodec{}.decode(raw)
	if err != nil {
		return fmt.Errorf("chainstate: transfer nft: %w", err)
	}
	s.sn.Delete(storage.CFNFTOwners, nftOwnerIndexKey(a.Owner, assetID))
	a.Owner = to
	s.sn.Put(storage.CFNFTAssets, assetID[:], nftAssetCodec{}.encode(a))
	s.sn.Put(storage.CFNFTOwners, nftOwnerIndexKey(to, assetID), []byte{1})
	return nil
}

// NFTOwner returns assetID's current owner.
func (s *State) NFTOwner(ctx context.Context, assetID types.Hash) (types.AccountID, error) {
	raw, ok, err := s.sn.Get(storage.CFNFTAssets, assetID[:])
	if err != nil {
		return 0, fmt.Errorf("chainstate: nft owner: %w", err)
	}
	if !ok {
		return 0, fmt.Errorf("chainstate: nft %s not found", assetID)
	}
	a, err := nftAssetCodec{}.decode(raw)
	if err != nil {
		return 0, fmt.Errorf("chainstate: nft owner: %w", err)
	}
	return a.Owner, nil
}

// RegisterTNSName claims name for owner until expiresAtTopo, failing if
// the name is already registered and its lease hasn't lapsed (spec.md
// §9's naming-service supplement, topoheight-bounded like the rest of
// this core's versioned state).
func (s *State) RegisterTNSName(ctx context.Context, name string, owner types.AccountID, expiresAtTopo uint64) error {
	existing, err := s.TNSNameInfo(ctx, name)
	if err != nil {
		return err
	}
	if existing.Owner != 0 && existing.ExpiresAtTopo > s.topoheight {
		return fmt.Errorf("chainstate: name %q is registered until topoheight %d", name, existing.ExpiresAtTopo)
	}
	s.sn.Put(storage.CFTNSNames, []byte(name), tnsRecordCodec{}.encode(types.TNSRecord{Owner: owner, ExpiresAtTopo: expiresAtTopo}))
	return nil
}

// RenewTNSName extends name's lease, failing unless owner is the name's
// current registrant.
func (s *State) RenewTNSName(ctx context.Context, name string, owner types.AccountID, newExpiresAtTopo uint64) error {
	existing, err := s.TNSNameInfo(ctx, name)
	if err != nil {
		return err
	}
	if existing.Owner != owner {
		return fmt.Errorf("chainstate: account %d does not own name %q", owner, name)
	}
	s.sn.Put(storage.CFTNSNames, []byte(name), tnsRecordCodec{}.encode(types.TNSRecord{Owner: owner, ExpiresAtTopo: newExpiresAtTopo}))
	return nil
}

// TNSNameInfo returns name's registration, defaulting to an unregistered
// zero-value record (AccountID 0, the "missing" sentinel).
func (s *State) TNSNameInfo(ctx context.Context, name string) (types.TNSRecord, error) {
	raw, ok, err := s.sn.Get(storage.CFTNSNames, []byte(name))
	if err != nil {
		return types.TNSRecord{}, fmt.Errorf("chainstate: tns name info: %w", err)
	}
	if !ok {
		return types.TNSRecord{}, nil
	}
	return tnsRecordCodec{}.decode(raw)
}

// RecordReferralEdge remembers referee was brought on by referrer, the
// first time the two are linked; later referral credits for referee
// look the edge back up rather than re-declaring it.
func (s *State) RecordReferralEdge(ctx context.Context, referee types.AccountID, referrer types.AccountID) error {
	if existing, ok, err := s.ReferralEdge(ctx, referee); err != nil {
		return err
	} else if ok && existing != referrer {
		return fmt.Errorf("chainstate: account %d already has referrer %d, cannot set %d", referee, existing, referrer)
	}
	s.sn.Put(storage.CFReferralEdges, accountIDKey(referee), accountIDKey(referrer))
	return nil
}

// ReferralEdge looks up who referred referee, if anyone.
func (s *State) ReferralEdge(ctx context.Context, referee types.AccountID) (types.AccountID, bool, error) {
	raw, ok, err := s.sn.Get(storage.CFReferralEdges, accountIDKey(referee))
	if err != nil {
		return 0, false, fmt.Errorf("chainstate: referral edge: %w", err)
	}
	if !ok {
		return 0, false, nil
	}
	if len(raw) != 8 {
		return 0, false, fmt.Errorf("chainstate: corrupt referral edge for account %d", referee)
	}
	return types.AccountID(binary.BigEndian.Uint64(raw)), true, nil
}
