package types

import (
	"bytes"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
)

// EncodeBlock serializes a full block: the fixed header prefix, the
// multi-level parent lists, the miner's public key, and the transaction
// list. The header prefix is HeaderSize (294) bytes, not the 252 of
// spec.md §6; see HeaderSize for the field accounting.
func EncodeBlock(blk *Block) ([]byte, error) {
	headerBytes, err := EncodeBlockHeader(&blk.Header)
	if err != nil {
		return nil, err
	}
	b := bytes.NewBuffer(headerBytes)

	if err := EncodeVarUint(b, uint64(len(blk.ParentsByLevel))); err != nil {
		return nil, err
	}
	for _, level := range blk.ParentsByLevel {
		if err := EncodeVarUint(b, uint64(len(level))); err != nil {
			return nil, err
		}
		for _, h := range level {
			b.Write(h[:])
		}
	}

	minerBytes := compressedOrZero(blk.Miner)
	b.Write(minerBytes[:])

	if err := EncodeVarUint(b, uint64(len(blk.Transactions))); err != nil {
		return nil, err
	}
	for _, tx := range blk.Transactions {
		raw, err := EncodeTransaction(tx)
		if err != nil {
			return nil, err
		}
		if err := EncodeVarUint(b, uint64(len(raw))); err != nil {
			return nil, err
		}
		b.Write(raw)
	}
	return b.Bytes(), nil
}

// DecodeBlock is the inverse of EncodeBlock.
func DecodeBlock(data []byte) (*Block, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("types: block too short: %d bytes", len(data))
	}
	header, err := DecodeBlockHeader(data[:HeaderSize])
	if err != nil {
		return nil, err
	}
	r := bytes.NewReader(data[HeaderSize:])
	blk := &Block{Header: *header}

	numLevels, err := DecodeVarUint(r)
	if err != nil {
		return nil, err
	}
	blk.ParentsByLevel = make([][]Hash, numLevels)
	for i := uint64(0); i < numLevels; i++ {
		numParents, err := DecodeVarUint(r)
		if err != nil {
			return nil, err
		}
		level := make([]Hash, numParents)
		for j := uint64(0); j < numParents; j++ {
			if _, err := r.Read(level[j][:]); err != nil {
				return nil, err
			}
		}
		blk.ParentsByLevel[i] = level
	}

	var minerBytes [33]byte
	if _, err := r.Read(minerBytes[:]); err != nil {
		return nil, err
	}
	if minerBytes != ([33]byte{}) {
		pub, err := btcec.ParsePubKey(minerBytes[:])
		if err != nil {
			return nil, fmt.Errorf("types: parse miner pubkey: %w", err)
		}
		blk.Miner = pub
	}

	numTxs, err := DecodeVarUint(r)
	if err != nil {
		return nil, err
	}
	for i := uint64(0); i < numTxs; i++ {
		txLen, err := DecodeVarUint(r)
		if err != nil {
			return nil, err
		}
		raw := make([]byte, txLen)
		if _, err := r.Read(raw); err != nil {
			return nil, err
		}
		tx, err := DecodeTransaction(raw)
		if err != nil {
			return nil, err
		}
		blk.Transactions = append(blk.Transactions, tx)
	}
	return blk, nil
}
