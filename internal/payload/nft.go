package payload

import (
	"bytes"
	"context"
	"fmt"

	"ghostdagcore/internal/types"
)

// NFTMintPayload claims a fresh asset id exactly once, reduced from the
// teacher's NFT-flavoured token standards (`core/Tokens`/`core/tokens`) to
// the mint/transfer/metadata-cell state effects domain.go owns.
type NFTMintPayload struct {
	AssetID  types.Hash
	Metadata []byte
}

func (p *NFTMintPayload) Tag() types.PayloadTag   { return types.PayloadNFTMint }
func (p *NFTMintPayload) Access() types.AccessSet { return types.AccessSet{} }
func (p *NFTMintPayload) Conservative() bool      { return false }

func (p *NFTMintPayload) AccessHashes() (reads, writes []types.Hash) { return nil, nil }

func (p *NFTMintPayload) Verify(state types.TxState, tx *types.Transaction) error {
	if p.AssetID.IsZero() {
		return fmt.Errorf("payload: nft mint requires a non-zero asset id")
	}
	return nil
}

func (p *NFTMintPayload) Apply(state types.TxState, tx *types.Transaction) error {
	ctx := context.Background()
	owner, err := senderAccount(ctx, state, tx)
	if err != nil {
		return err
	}
	return state.MintNFT(ctx, p.AssetID, owner, p.Metadata)
}

func (p *NFTMintPayload) MarshalPayload() ([]byte, error) {
	buf := new(bytes.Buffer)
	writeHash(buf, p.AssetID)
	if err := writeBytes(buf, p.Metadata); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func unmarshalNFTMintPayload(raw []byte) (types.Payload, error) {
	r := bytes.NewReader(raw)
	assetID, err := readHash(r)
	if err != nil {
		return nil, err
	}
	metadata, err := readBytes(r)
	if err != nil {
		return nil, err
	}
	return &NFTMintPayload{AssetID: assetID, Metadata: metadata}, nil
}

// NFTTransferPayload moves ownership of an already-minted asset.
type NFTTransferPayload struct {
	AssetID types.Hash
	To      types.Hash
}

func (p *NFTTransferPayload) Tag() types.PayloadTag   { return types.PayloadNFTTransfer }
func (p *NFTTransferPayload) Access() types.AccessSet { return types.AccessSet{} }
func (p *NFTTransferPayload) Conservative() bool      { return false }

func (p *NFTTransferPayload) AccessHashes() (reads, writes []types.Hash) {
	return nil, []types.Hash{p.To}
}

// Recipient implements types.RecipientAware.
func (p *NFTTransferPayload) Recipient() (types.Hash, bool) { return p.To, true }

func (p *NFTTransferPayload) Verify(state types.TxState, tx *types.Transaction) error {
	if p.To.IsZero() {
		return fmt.Errorf("payload: nft transfer to the zero address is not permitted")
	}
	return nil
}

func (p *NFTTransferPayload) Apply(state types.TxState, tx *types.Transaction) error {
	ctx := context.Background()
	to, err := state.ResolveAccount(ctx, p.To)
	if err != nil {
		return err
	}
	return state.TransferNFT(ctx, p.AssetID, to)
}

func (p *NFTTransferPayload) MarshalPayload() ([]byte, error) {
	buf := new(bytes.Buffer)
	writeHash(buf, p.AssetID)
	writeHash(buf, p.To)
	return buf.Bytes(), nil
}

func unmarshalNFTTransferPayload(raw []byte) (types.Payload, error) {
	r := bytes.NewReader(raw)
	assetID, err := readHash(r)
	if err != nil {
		return nil, err
	}
	to, err := readHash(r)
	if err != nil {
		return nil, err
	}
	return &NFTTransferPayload{AssetID: assetID, To: to}, nil
}
