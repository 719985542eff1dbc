// Package payload implements the closed tagged union of transaction
// payload variants from spec.md §3.3/§9: plain transfers, contract
// deploy/invoke, and the domain-specific family (KYC, arbitration, NFT,
// stake/energy, TNS, referral). Each variant implements types.Payload's
// Verify/Apply capability pair and registers itself with
// types.PayloadDecoder at init() time, keeping internal/types free of
// any concrete payload knowledge (internal/types/codec.go's "types ->
// payload" one-way dependency note).
package payload

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"

	"ghostdagcore/internal/types"
)

func writeHash(buf *bytes.Buffer, h types.Hash) {
	buf.Write(h[:])
}

func readHash(r *bytes.Reader) (types.Hash, error) {
	var h types.Hash
	if _, err := r.Read(h[:]); err != nil {
		return h, fmt.Errorf("payload: read hash: %w", err)
	}
	return h, nil
}

func writeUint64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}

func readUint64(r *bytes.Reader) (uint64, error) {
	var b [8]byte
	if _, err := r.Read(b[:]); err != nil {
		return 0, fmt.Errorf("payload: read uint64: %w", err)
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

func writeUint32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func readUint32(r *bytes.Reader) (uint32, error) {
	var b [4]byte
	if _, err := r.Read(b[:]); err != nil {
		return 0, fmt.Errorf("payload: read uint32: %w", err)
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

func writeBytes(buf *bytes.Buffer, b []byte) error {
	if err := types.EncodeVarUint(buf, uint64(len(b))); err != nil {
		return err
	}
	buf.Write(b)
	return nil
}

func readBytes(r *bytes.Reader) ([]byte, error) {
	n, err := types.DecodeVarUint(r)
	if err != nil {
		return nil, fmt.Errorf("payload: read bytes length: %w", err)
	}
	b := make([]byte, n)
	if n > 0 {
		if _, err := r.Read(b); err != nil {
			return nil, fmt.Errorf("payload: read bytes: %w", err)
		}
	}
	return b, nil
}

func writeString(buf *bytes.Buffer, s string) error {
	return writeBytes(buf, []byte(s))
}

func readString(r *bytes.Reader) (string, error) {
	b, err := readBytes(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func writeBool(buf *bytes.Buffer, v bool) {
	if v {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}
}

func readBool(r *bytes.Reader) (bool, error) {
	b, err := r.ReadByte()
	if err != nil {
		return false, fmt.Errorf("payload: read bool: %w", err)
	}
	return b != 0, nil
}

// senderAccount resolves tx.Sender's public key into its AccountID,
// registering it on first sight (spec.md §3.4). Every variant's
// Verify/Apply needs this, so it lives here rather than being repeated
// per file.
func senderAccount(ctx context.Context, state types.TxState, tx *types.Transaction) (types.AccountID, error) {
	if tx.Sender == nil {
		return 0, fmt.Errorf("payload: transaction has no sender")
	}
	return state.ResolveAccount(ctx, types.AccountKeyFromPubKey(tx.Sender))
}
