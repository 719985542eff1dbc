package chainstate

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"

	"ghostdagcore/internal/storage"
	"ghostdagcore/internal/types"
)

// uint64Codec is the storage.Codec[uint64] shared by balances and nonces:
// a fixed 8-byte little-endian encoding, matching internal/types.codec.go's
// integer convention.
type uint64Codec struct{}

func (uint64Codec) Encode(v uint64) ([]byte, error) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	return buf[:], nil
}

func (uint64Codec) Decode(raw []byte) (uint64, error) {
	if len(raw) != 8 {
		return 0, fmt.Errorf("chainstate: uint64 record is %d bytes, want 8", len(raw))
	}
	return binary.LittleEndian.Uint64(raw), nil
}

var _ storage.Codec[uint64] = uint64Codec{}

// energyCodec encodes types.Energy as four little-endian uint64 fields.
type energyCodec struct{}

func (energyCodec) Encode(e types.Energy) ([]byte, error) {
	buf := make([]byte, 32)
	binary.LittleEndian.PutUint64(buf[0:8], e.Quota)
	binary.LittleEndian.PutUint64(buf[8:16], e.QuotaMax)
	binary.LittleEndian.PutUint64(buf[16:24], e.Frozen)
	binary.LittleEndian.PutUint64(buf[24:32], e.LastRefillTopo)
	return buf, nil
}

func (energyCodec) Decode(raw []byte) (types.Energy, error) {
	if len(raw) != 32 {
		return types.Energy{}, fmt.Errorf("chainstate: energy record is %d bytes, want 32", len(raw))
	}
	return types.Energy{
		Quota:          binary.LittleEndian.Uint64(raw[0:8]),
		QuotaMax:       binary.LittleEndian.Uint64(raw[8:16]),
		Frozen:         binary.LittleEndian.Uint64(raw[16:24]),
		LastRefillTopo: binary.LittleEndian.Uint64(raw[24:32]),
	}, nil
}

var _ storage.Codec[types.Energy] = energyCodec{}

// bytesCodec is the identity codec used for contract bytecode and
// contract key/value storage, both already raw bytes.
type bytesCodec struct{}

func (bytesCodec) Encode(v []byte) ([]byte, error) { return v, nil }
func (bytesCodec) Decode(raw []byte) ([]byte, error) {
	return append([]byte(nil), raw...), nil
}

var _ storage.Codec[[]byte] = bytesCodec{}

// accountCodec encodes an Account record: fixed Hash/flags/topo fields
// followed by the optional public key and multisig aggregate key, both
// length-prefixed since they're absent for contract-only or
// not-yet-seen accounts.
type accountCodec struct{}

func (accountCodec) Encode(a types.Account) ([]byte, error) {
	buf := new(bytes.Buffer)
	buf.Write(a.Key[:])
	var flags byte
	if a.HasMultisig {
		flags = 1
	}
	buf.WriteByte(flags)
	var u32 [4]byte
	var u64 [8]byte
	binary.LittleEndian.PutUint32(u32[:], a.MultisigThreshold)
	buf.Write(u32[:])
	binary.LittleEndian.PutUint64(u64[:], a.RegisteredAtTopo)
	buf.Write(u64[:])

	var pub []byte
	if a.PublicKey != nil {
		pub = a.PublicKey.SerializeCompressed()
	}
	if err := types.EncodeVarUint(buf, uint64(len(pub))); err != nil {
		return nil, err
	}
	buf.Write(pub)

	if err := types.EncodeVarUint(buf, uint64(len(a.MultisigAggregateKey))); err != nil {
		return nil, err
	}
	buf.Write(a.MultisigAggregateKey)
	return buf.Bytes(), nil
}

func (accountCodec) Decode(raw []byte) (types.Account, error) {
	var a types.Account
	r := bytes.NewReader(raw)
	if _, err := r.Read(a.Key[:]); err != nil {
		return a, fmt.Errorf("chainstate: decode account key: %w", err)
	}
	flags, err := r.ReadByte()
	if err != nil {
		return a, fmt.Errorf("chainstate: decode account flags: %w", err)
	}
	a.HasMultisig = flags&1 != 0

	var u32 [4]byte
	if _, err := r.Read(u32[:]); err != nil {
		return a, fmt.Errorf("chainstate: decode multisig threshold: %w", err)
	}
	a.MultisigThreshold = binary.LittleEndian.Uint32(u32[:])

	var u64 [8]byte
	if _, err := r.Read(u64[:]); err != nil {
		return a, fmt.Errorf("chainstate: decode registered-at-topo: %w", err)
	}
	a.RegisteredAtTopo = binary.LittleEndian.Uint64(u64[:])

	pubLen, err := types.DecodeVarUint(r)
	if err != nil {
		return a, fmt.Errorf("chainstate: decode pubkey length: %w", err)
	}
	if pubLen > 0 {
		pub := make([]byte, pubLen)
		if _, err := r.Read(pub); err != nil {
			return a, fmt.Errorf("chainstate: decode pubkey: %w", err)
		}
		key, err := btcec.ParsePubKey(pub)
		if err != nil {
			return a, fmt.Errorf("chainstate: parse account pubkey: %w", err)
		}
		a.PublicKey = key
	}

	msLen, err := types.DecodeVarUint(r)
	if err != nil {
		return a, fmt.Errorf("chainstate: decode multisig key length: %w", err)
	}
	if msLen > 0 {
		ms := make([]byte, msLen)
		if _, err := r.Read(ms); err != nil {
			return a, fmt.Errorf("chainstate: decode multisig aggregate key: %w", err)
		}
		a.MultisigAggregateKey = ms
	}
	return a, nil
}

var _ storage.Codec[types.Account] = accountCodec{}

// kycRecordCodec encodes types.KYCRecord as a fixed layout: Commitment[32]
// + flags(1 byte: Committed, Approved) + Approvals(u32 LE).
type kycRecordCodec struct{}

func (kycRecordCodec) encode(r types.KYCRecord) []byte {
	buf := make([]byte, 32+1+4)
	copy(buf, r.Commitment[:])
	var flags byte
	if r.Committed {
		flags |= 1
	}
	if r.Approved {
		flags |= 2
	}
	buf[32] = flags
	binary.LittleEndian.PutUint32(buf[33:37], r.Approvals)
	return buf
}

func (kycRecordCodec) decode(raw []byte) (types.KYCRecord, error) {
	if len(raw) != 37 {
		return types.KYCRecord{}, fmt.Errorf("chainstate: kyc record is %d bytes, want 37", len(raw))
	}
	var r types.KYCRecord
	copy(r.Commitment[:], raw[:32])
	r.Committed = raw[32]&1 != 0
	r.Approved = raw[32]&2 != 0
	r.Approvals = binary.LittleEndian.Uint32(raw[33:37])
	return r, nil
}

// arbitrationCaseCodec encodes types.ArbitrationCase as a fixed layout:
// Plaintiff/Defendant/Amount/Asset (u64 LE each) + VotesFor/VotesAgainst
// (u32 LE each) + Resolved flag (1 byte).
type arbitrationCaseCodec struct{}

func (arbitrationCaseCodec) encode(c types.ArbitrationCase) []byte {
	buf := make([]byte, 8+8+8+8+4+4+1)
	binary.LittleEndian.PutUint64(buf[0:8], uint64(c.Plaintiff))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(c.Defendant))
	binary.LittleEndian.PutUint64(buf[16:24], c.Amount)
	binary.LittleEndian.PutUint64(buf[24:32], uint64(c.Asset))
	binary.LittleEndian.PutUint32(buf[32:36], c.VotesFor)
	binary.LittleEndian.PutUint32(buf[36:40], c.VotesAgainst)
	if c.Resolved {
		buf[40] = 1
	}
	return buf
}

func (arbitrationCaseCodec) decode(raw []byte) (types.ArbitrationCase, error) {
	if len(raw) != 41 {
		return types.ArbitrationCase{}, fmt.Errorf("chainstate: arbitration case is %d bytes, want 41", len(raw))
	}
	return types.ArbitrationCase{
		Plaintiff:    types.AccountID(binary.LittleEndian.Uint64(raw[0:8])),
		Defendant:    types.AccountID(binary.LittleEndian.Uint64(raw[8:16])),
		Amount:       binary.LittleEndian.Uint64(raw[16:24]),
		Asset:        types.AssetID(binary.LittleEndian.Uint64(raw[24:32])),
		VotesFor:     binary.LittleEndian.Uint32(raw[32:36]),
		VotesAgainst: binary.LittleEndian.Uint32(raw[36:40]),
		Resolved:     raw[40] == 1,
	}, nil
}

// nftAssetCodec encodes types.NFTAsset as Owner(u64 LE) followed by the
// raw metadata blob (the CF record's own key already identifies the
// asset, so metadata needs no length prefix — it runs to the end).
type nftAssetCodec struct{}

func (nftAssetCodec) encode(a types.NFTAsset) []byte {
	buf := make([]byte, 8+len(a.Metadata))
	binary.LittleEndian.PutUint64(buf[0:8], uint64(a.Owner))
	copy(buf[8:], a.Metadata)
	return buf
}

func (nftAssetCodec) decode(raw []byte) (types.NFTAsset, error) {
	if len(raw) < 8 {
		return types.NFTAsset{}, fmt.Errorf("chainstate: nft asset record is %d bytes, want at least 8", len(raw))
	}
	return types.NFTAsset{
		Owner:    types.AccountID(binary.LittleEndian.Uint64(raw[0:8])),
		Metadata: append([]byte(nil), raw[8:]...),
	}, nil
}

// tnsRecordCodec encodes types.TNSRecord as Owner(u64 LE) + ExpiresAtTopo(u64 LE).
type tnsRecordCodec struct{}

func (tnsRecordCodec) encode(r types.TNSRecord) []byte {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint64(buf[0:8], uint64(r.Owner))
	binary.LittleEndian.PutUint64(buf[8:16], r.ExpiresAtTopo)
	return buf
}

func (tnsRecordCodec) decode(raw []byte) (types.TNSRecord, error) {
	if len(raw) != 16 {
		return types.TNSRecord{}, fmt.Errorf("chainstate: tns record is %d bytes, want 16", len(raw))
	}
	return types.TNSRecord{
		Owner:         types.AccountID(binary.LittleEndian.Uint64(raw[0:8])),
		ExpiresAtTopo: binary.LittleEndian.Uint64(raw[8:16]),
	}, nil
}
