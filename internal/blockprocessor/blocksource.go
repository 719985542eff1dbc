package blockprocessor

import (
	"ghostdagcore/internal/storage"
	"ghostdagcore/internal/types"
)

// snapshotBlockSource is the "thin wrapper over internal/storage's
// CFBlocks records" internal/ghostdag's BlockSource doc comment calls
// for: GHOSTDAG never holds an in-memory DAG, it re-reads accepted
// blocks through whatever storage scope the caller is working in.
type snapshotBlockSource struct {
	sn *storage.Snapshot
}

func (s snapshotBlockSource) Block(hash types.Hash) (*types.Block, bool, error) {
	raw, ok, err := s.sn.Get(storage.CFBlocks, hash[:])
	if err != nil || !ok {
		return nil, ok, err
	}
	blk, err := types.DecodeBlock(raw)
	if err != nil {
		return nil, false, err
	}
	return blk, true, nil
}
