package payload

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"ghostdagcore/internal/types"
)

// Name validation constants, ported from original_source's
// common/src/tns/{constants,normalize,reserved}.rs: length bounds, the
// reject-don't-trim whitespace rule, the ASCII-only homoglyph guard, and
// the reserved-word list (trimmed to the protocol-identifier subset most
// likely to collide with this core's own vocabulary).
const (
	tnsMinNameLength = 3
	tnsMaxNameLength = 64
)

var tnsReservedNames = map[string]bool{
	"admin": true, "administrator": true, "system": true, "root": true,
	"null": true, "undefined": true, "test": true, "example": true,
	"localhost": true, "validator": true, "node": true, "daemon": true,
	"rpc": true, "api": true, "wallet": true, "bridge": true, "oracle": true,
	"governance": true, "treasury": true, "foundation": true, "network": true,
	"mainnet": true, "testnet": true, "devnet": true, "block": true,
	"transaction": true, "tx": true, "hash": true, "address": true,
	"anonymous": true, "default": true, "guest": true, "user": true,
}

// normalizeTNSName rejects leading/trailing whitespace and non-ASCII
// input rather than silently trimming or transliterating it (normalize.rs:
// "prevent Unicode homoglyph attacks"), then lowercases.
func normalizeTNSName(name string) (string, error) {
	if strings.TrimSpace(name) != name {
		return "", fmt.Errorf("payload: tns name has leading or trailing whitespace")
	}
	for _, r := range name {
		if r > 127 {
			return "", fmt.Errorf("payload: tns name contains non-ASCII character %q", r)
		}
	}
	if len(name) < tnsMinNameLength || len(name) > tnsMaxNameLength {
		return "", fmt.Errorf("payload: tns name length %d outside [%d, %d]", len(name), tnsMinNameLength, tnsMaxNameLength)
	}
	lower := strings.ToLower(name)
	if tnsReservedNames[lower] {
		return "", fmt.Errorf("payload: tns name %q is reserved", lower)
	}
	return lower, nil
}

// TNSRegisterPayload leases a name to the sender until expiresAtTopo.
type TNSRegisterPayload struct {
	Name          string
	ExpiresAtTopo uint64
}

func (p *TNSRegisterPayload) Tag() types.PayloadTag                     { return types.PayloadTNSRegister }
func (p *TNSRegisterPayload) Access() types.AccessSet                   { return types.AccessSet{} }
func (p *TNSRegisterPayload) Conservative() bool                        { return false }
func (p *TNSRegisterPayload) AccessHashes() (reads, writes []types.Hash) { return nil, nil }

func (p *TNSRegisterPayload) Verify(state types.TxState, tx *types.Transaction) error {
	if _, err := normalizeTNSName(p.Name); err != nil {
		return err
	}
	if p.ExpiresAtTopo <= state.TopoHeight() {
		return fmt.Errorf("payload: tns lease must expire in the future")
	}
	return nil
}

func (p *TNSRegisterPayload) Apply(state types.TxState, tx *types.Transaction) error {
	ctx := context.Background()
	name, err := normalizeTNSName(p.Name)
	if err != nil {
		return err
	}
	owner, err := senderAccount(ctx, state, tx)
	if err != nil {
		return err
	}
	return state.RegisterTNSName(ctx, name, owner, p.ExpiresAtTopo)
}

func (p *TNSRegisterPayload) MarshalPayload() ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := writeString(buf, p.Name); err != nil {
		return nil, err
	}
	writeUint64(buf, p.ExpiresAtTopo)
	return buf.Bytes(), nil
}

func unmarshalTNSRegisterPayload(raw []byte) (types.Payload, error) {
	r := bytes.NewReader(raw)
	name, err := readString(r)
	if err != nil {
		return nil, err
	}
	expires, err := readUint64(r)
	if err != nil {
		return nil, err
	}
	return &TNSRegisterPayload{Name: name, ExpiresAtTopo: expires}, nil
}

// TNSRenewPayload extends an already-owned name's lease.
type TNSRenewPayload struct {
	Name             string
	NewExpiresAtTopo uint64
}

func (p *TNSRenewPayload) Tag() types.PayloadTag                     { return types.PayloadTNSRenew }
func (p *TNSRenewPayload) Access() types.AccessSet                   { return types.AccessSet{} }
func (p *TNSRenewPayload) Conservative() bool                        { return false }
func (p *TNSRenewPayload) AccessHashes() (reads, writes []types.Hash) { return nil, nil }

func (p *TNSRenewPayload) Verify(state types.TxState, tx *types.Transaction) error {
	if _, err := normalizeTNSName(p.Name); err != nil {
		return err
	}
	return nil
}

func (p *TNSRenewPayload) Apply(state types.TxState, tx *types.Transaction) error {
	ctx := context.Background()
	name, err := normalizeTNSName(p.Name)
	if err != nil {
		return err
	}
	owner, err := senderAccount(ctx, state, tx)
	if err != nil {
		return err
	}
	return state.RenewTNSName(ctx, name, owner, p.NewExpiresAtTopo)
}

func (p *TNSRenewPayload) MarshalPayload() ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := writeString(buf, p.Name); err != nil {
		return nil, err
	}
	writeUint64(buf, p.NewExpiresAtTopo)
	return buf.Bytes(), nil
}

func unmarshalTNSRenewPayload(raw []byte) (types.Payload, error) {
	r := bytes.NewReader(raw)
	name, err := readString(r)
	if err != nil {
		return nil, err
	}
	expires, err := readUint64(r)
	if err != nil {
		return nil, err
	}
	return &TNSRenewPayload{Name: name, NewExpiresAtTopo: expires}, nil
}
