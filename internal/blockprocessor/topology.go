package blockprocessor

import (
	"encoding/binary"
	"fmt"

	"ghostdagcore/internal/storage"
	"ghostdagcore/internal/types"
)

var (
	topTopoheightKey = []byte(storage.KeyTopTopoheight)
	topHeightKey     = []byte(storage.KeyTopHeight)
)

func readTopTopoheight(sn *storage.Snapshot) (uint64, bool, error) {
	raw, ok, err := sn.Get(storage.CFCommon, topTopoheightKey)
	if err != nil || !ok {
		return 0, ok, err
	}
	if len(raw) != 8 {
		return 0, false, fmt.Errorf("blockprocessor: corrupt top-topoheight record")
	}
	return binary.BigEndian.Uint64(raw), true, nil
}

func writeTopTopoheight(sn *storage.Snapshot, topo uint64) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], topo)
	sn.Put(storage.CFCommon, topTopoheightKey, buf[:])
}

func readTopHeight(sn *storage.Snapshot) (uint64, bool, error) {
	raw, ok, err := sn.Get(storage.CFCommon, topHeightKey)
	if err != nil || !ok {
		return 0, ok, err
	}
	if len(raw) != 8 {
		return 0, false, fmt.Errorf("blockprocessor: corrupt top-height record")
	}
	return binary.BigEndian.Uint64(raw), true, nil
}

func writeTopHeight(sn *storage.Snapshot, height uint64) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], height)
	sn.Put(storage.CFCommon, topHeightKey, buf[:])
}

func topoKey(topo uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], topo)
	return buf[:]
}

func readTopoOfHash(sn *storage.Snapshot, hash types.Hash) (uint64, bool, error) {
	raw, ok, err := sn.Get(storage.CFTopoByHash, hash[:])
	if err != nil || !ok {
		return 0, ok, err
	}
	if len(raw) != 8 {
		return 0, false, fmt.Errorf("blockprocessor: corrupt topo-by-hash record for %s", hash)
	}
	return binary.BigEndian.Uint64(raw), true, nil
}

func writeTopoAssignment(sn *storage.Snapshot, hash types.Hash, topo uint64) {
	sn.Put(storage.CFHashAtTopo, topoKey(topo), hash[:])
	sn.Put(storage.CFTopoByHash, hash[:], topoKey(topo))
}

func deleteTopoAssignment(sn *storage.Snapshot, topo uint64) {
	raw, ok, _ := sn.Get(storage.CFHashAtTopo, topoKey(topo))
	if ok {
		sn.Delete(storage.CFTopoByHash, raw)
	}
	sn.Delete(storage.CFHashAtTopo, topoKey(topo))
}

func blocksAtHeightKey(height uint64, hash types.Hash) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], height)
	return append(buf[:], hash[:]...)
}

func writeBlockAtHeight(sn *storage.Snapshot, height uint64, hash types.Hash) {
	sn.Put(storage.CFBlocksAtHeight, blocksAtHeightKey(height, hash), hash[:])
}
