package types

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
)

// EncodeBlockHeader serializes a BlockHeader into its fixed HeaderSize-byte
// consensus-hashed form. All integers are little-endian per spec.md §6.
func EncodeBlockHeader(h *BlockHeader) ([]byte, error) {
	buf := make([]byte, 0, HeaderSize)
	b := bytes.NewBuffer(buf)

	var u16b [2]byte
	var u32b [4]byte
	var u64b [8]byte

	binary.LittleEndian.PutUint16(u16b[:], h.Version)
	b.Write(u16b[:])

	binary.LittleEndian.PutUint64(u64b[:], h.BlueScore)
	b.Write(u64b[:])

	binary.LittleEndian.PutUint64(u64b[:], h.DAAScore)
	b.Write(u64b[:])

	work := h.BlueWork.Bytes32()
	b.Write(work[:])

	b.Write(h.PruningPoint[:])
	b.Write(h.ParentsCommitment[:])

	binary.LittleEndian.PutUint64(u64b[:], h.Timestamp)
	b.Write(u64b[:])

	binary.LittleEndian.PutUint32(u32b[:], uint32(h.Bits))
	b.Write(u32b[:])

	binary.LittleEndian.PutUint64(u64b[:], h.Nonce)
	b.Write(u64b[:])

	b.Write(h.ExtraNonce[:])
	b.Write(h.MinerKeyHash[:])
	b.Write(h.HashMerkleRoot[:])
	b.Write(h.AcceptedIDMerkleRoot[:])
	b.Write(h.UTXOCommitment[:])

	if b.Len() != HeaderSize {
		return nil, fmt.Errorf("types: encoded header is %d bytes, want %d", b.Len(), HeaderSize)
	}
	return b.Bytes(), nil
}

// DecodeBlockHeader is the inverse of EncodeBlockHeader.
func DecodeBlockHeader(data []byte) (*BlockHeader, error) {
	if len(data) != HeaderSize {
		return nil, fmt.Errorf("types: header is %d bytes, want %d", len(data), HeaderSize)
	}
	r := bytes.NewReader(data)
	h := &BlockHeader{}

	var u16b [2]byte
	var u32b [4]byte
	var u64b [8]byte

	if _, err := r.Read(u16b[:]); err != nil {
		return nil, err
	}
	h.Version = binary.LittleEndian.Uint16(u16b[:])

	if _, err := r.Read(u64b[:]); err != nil {
		return nil, err
	}
	h.BlueScore = binary.LittleEndian.Uint64(u64b[:])

	if _, err := r.Read(u64b[:]); err != nil {
		return nil, err
	}
	h.DAAScore = binary.LittleEndian.Uint64(u64b[:])

	var work [32]byte
	if _, err := r.Read(work[:]); err != nil {
		return nil, err
	}
	h.BlueWork = BlueWorkFromBytes32(work)

	if _, err := r.Read(h.PruningPoint[:]); err != nil {
		return nil, err
	}
	if _, err := r.Read(h.ParentsCommitment[:]); err != nil {
		return nil, err
	}

	if _, err := r.Read(u64b[:]); err != nil {
		return nil, err
	}
	h.Timestamp = binary.LittleEndian.Uint64(u64b[:])

	if _, err := r.Read(u32b[:]); err != nil {
		return nil, err
	}
	h.Bits = DifficultyBits(binary.LittleEndian.Uint32(u32b[:]))

	if _, err := r.Read(u64b[:]); err != nil {
		return nil, err
	}
	h.Nonce = binary.LittleEndian.Uint64(u64b[:])

	if _, err := r.Read(h.ExtraNonce[:]); err != nil {
		return nil, err
	}
	if _, err := r.Read(h.MinerKeyHash[:]); err != nil {
		return nil, err
	}
	if _, err := r.Read(h.HashMerkleRoot[:]); err != nil {
		return nil, err
	}
	if _, err := r.Read(h.AcceptedIDMerkleRoot[:]); err != nil {
		return nil, err
	}
	if _, err := r.Read(h.UTXOCommitment[:]); err != nil {
		return nil, err
	}
	return h, nil
}

// EncodeTransaction serializes a transaction in spec.md §6's field order:
// [version:u8][nonce:u64][sender:33][payload-tag:u8][payload-len:VarUint]
// [payload...][fee:u64][fee-tag:u8][reference:{topo:u64,hash:32}]
// [multisig-flag:u8][optional multisig][signature:64]. The sender is the
// 33-byte compressed secp256k1 public key (all zero when nil), not a
// 32-byte field.
func EncodeTransaction(tx *Transaction) ([]byte, error) {
	b := new(bytes.Buffer)
	b.WriteByte(tx.Version)

	var u64b [8]byte
	binary.LittleEndian.PutUint64(u64b[:], tx.Nonce)
	b.Write(u64b[:])

	senderBytes := compressedOrZero(tx.Sender)
	b.Write(senderBytes[:])

	if tx.Payload == nil {
		return nil, fmt.Errorf("types: transaction has no payload")
	}
	b.WriteByte(byte(tx.Payload.Tag()))
	payloadBytes, err := tx.Payload.MarshalPayload()
	if err != nil {
		return nil, fmt.Errorf("types: marshal payload: %w", err)
	}
	if err := EncodeVarUint(b, uint64(len(payloadBytes))); err != nil {
		return nil, err
	}
	b.Write(payloadBytes)

	binary.LittleEndian.PutUint64(u64b[:], tx.Fee)
	b.Write(u64b[:])
	b.WriteByte(byte(tx.FeeDenom))

	binary.LittleEndian.PutUint64(u64b[:], tx.Reference.Topoheight)
	b.Write(u64b[:])
	b.Write(tx.Reference.Hash[:])

	if tx.Multisig != nil {
		b.WriteByte(1)
		if err := EncodeVarUint(b, uint64(tx.Multisig.Threshold)); err != nil {
			return nil, err
		}
		if err := EncodeVarUint(b, uint64(len(tx.Multisig.SignerKeys))); err != nil {
			return nil, err
		}
		for _, k := range tx.Multisig.SignerKeys {
			if err := EncodeVarUint(b, uint64(len(k))); err != nil {
				return nil, err
			}
			b.Write(k)
		}
		if err := EncodeVarUint(b, uint64(len(tx.Multisig.AggregateSig))); err != nil {
			return nil, err
		}
		b.Write(tx.Multisig.AggregateSig)
	} else {
		b.WriteByte(0)
	}

	b.Write(tx.Signature[:])
	return b.Bytes(), nil
}

func compressedOrZero(pub *btcec.PublicKey) [33]byte {
	var out [33]byte
	if pub == nil {
		return out
	}
	copy(out[:], pub.SerializeCompressed())
	return out
}

// PayloadDecoder reconstructs a concrete Payload from its tag and raw
// marshaled bytes. internal/payload registers this at init() time; types
// itself has no payload-variant knowledge, keeping the dependency direction
// types -> payload one-way (see internal/types/state.go).
var PayloadDecoder func(tag PayloadTag, raw []byte) (Payload, error)

// DecodeTransaction is the inverse of EncodeTransaction.
func DecodeTransaction(data []byte) (*Transaction, error) {
	if PayloadDecoder == nil {
		return nil, fmt.Errorf("types: no payload decoder registered")
	}
	r := bytes.NewReader(data)
	tx := &Transaction{}

	version, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	tx.Version = version

	var u64b [8]byte
	if _, err := r.Read(u64b[:]); err != nil {
		return nil, err
	}
	tx.Nonce = binary.LittleEndian.Uint64(u64b[:])

	var sender [33]byte
	if _, err := r.Read(sender[:]); err != nil {
		return nil, err
	}
	if sender != ([33]byte{}) {
		pub, err := btcec.ParsePubKey(sender[:])
		if err != nil {
			return nil, fmt.Errorf("types: parse sender pubkey: %w", err)
		}
		tx.Sender = pub
	}

	tagByte, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	payloadLen, err := DecodeVarUint(r)
	if err != nil {
		return nil, err
	}
	payloadBytes := make([]byte, payloadLen)
	if _, err := r.Read(payloadBytes); err != nil {
		return nil, err
	}
	payload, err := PayloadDecoder(PayloadTag(tagByte), payloadBytes)
	if err != nil {
		return nil, fmt.Errorf("types: decode payload: %w", err)
	}
	tx.Payload = payload

	if _, err := r.Read(u64b[:]); err != nil {
		return nil, err
	}
	tx.Fee = binary.LittleEndian.Uint64(u64b[:])

	feeTag, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	tx.FeeDenom = FeeDenomination(feeTag)

	if _, err := r.Read(u64b[:]); err != nil {
		return nil, err
	}
	tx.Reference.Topoheight = binary.LittleEndian.Uint64(u64b[:])
	if _, err := r.Read(tx.Reference.Hash[:]); err != nil {
		return nil, err
	}

	hasMultisig, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	if hasMultisig == 1 {
		ms := &MultisigPayload{}
		threshold, err := DecodeVarUint(r)
		if err != nil {
			return nil, err
		}
		ms.Threshold = uint32(threshold)
		numKeys, err := DecodeVarUint(r)
		if err != nil {
			return nil, err
		}
		for i := uint64(0); i < numKeys; i++ {
			klen, err := DecodeVarUint(r)
			if err != nil {
				return nil, err
			}
			key := make([]byte, klen)
			if _, err := r.Read(key); err != nil {
				return nil, err
			}
			ms.SignerKeys = append(ms.SignerKeys, key)
		}
		sigLen, err := DecodeVarUint(r)
		if err != nil {
			return nil, err
		}
		sig := make([]byte, sigLen)
		if _, err := r.Read(sig); err != nil {
			return nil, err
		}
		ms.AggregateSig = sig
		tx.Multisig = ms
	}

	if _, err := r.Read(tx.Signature[:]); err != nil {
		return nil, err
	}

	return tx, nil
}
