package storage

import (
	"encoding/binary"
	"fmt"

	"ghostdagcore/internal/types"
)

// Codec marshals and unmarshals the value half of a Versioned[T] record.
// Each versioned entity kind (balances, nonces, energy, contract data, ...)
// supplies its own Codec; storage itself stays generic over T.
type Codec[T any] interface {
	Encode(T) ([]byte, error)
	Decode([]byte) (T, error)
}

func versionedKey(entityKey []byte, topo uint64) []byte {
	key := make([]byte, len(entityKey)+8)
	copy(key, entityKey)
	binary.BigEndian.PutUint64(key[len(entityKey):], topo)
	return key
}

func encodeVersioned[T any](v types.Versioned[T], codec Codec[T]) ([]byte, error) {
	valueBytes, err := codec.Encode(v.Value)
	if err != nil {
		return nil, fmt.Errorf("storage: encode versioned value: %w", err)
	}
	out := make([]byte, 0, 9+len(valueBytes))
	if v.PreviousTopoheight != nil {
		out = append(out, 1)
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], *v.PreviousTopoheight)
		out = append(out, buf[:]...)
	} else {
		out = append(out, 0)
	}
	out = append(out, valueBytes...)
	return out, nil
}

func decodeVersioned[T any](raw []byte, topo uint64, codec Codec[T]) (types.Versioned[T], error) {
	var v types.Versioned[T]
	if len(raw) < 1 {
		return v, fmt.Errorf("storage: versioned record too short")
	}
	hasPrev := raw[0] == 1
	rest := raw[1:]
	if hasPrev {
		if len(rest) < 8 {
			return v, fmt.Errorf("storage: versioned record missing previous topoheight")
		}
		prev := binary.BigEndian.Uint64(rest[:8])
		v.PreviousTopoheight = &prev
		rest = rest[8:]
	}
	value, err := codec.Decode(rest)
	if err != nil {
		return v, fmt.Errorf("storage: decode versioned value: %w", err)
	}
	v.Value = value
	v.Topoheight = topo
	return v, nil
}

// SetLast writes a new version at (entityKey, topo), chaining it from the
// current pointer, then advances the pointer (spec.md §4.A: "set_last<T>
// ... writes into the versioned CF ... with previous_topoheight set from
// the current pointer, then updates the pointer").
func SetLast[T any](sn *Snapshot, pointerCF, versionedCF ColumnFamily, entityKey []byte, topo uint64, value T, codec Codec[T]) error {
	var prev *uint64
	if rawPtr, ok, err := sn.Get(pointerCF, entityKey); err != nil {
		return err
	} else if ok {
		p := binary.BigEndian.Uint64(rawPtr)
		prev = &p
	}
	rec := types.Versioned[T]{Value: value, Topoheight: topo, PreviousTopoheight: prev}
	encoded, err := encodeVersioned(rec, codec)
	if err != nil {
		return err
	}
	sn.Put(versionedCF, versionedKey(entityKey, topo), encoded)

	var ptrBuf [8]byte
	binary.BigEndian.PutUint64(ptrBuf[:], topo)
	sn.Put(pointerCF, entityKey, ptrBuf[:])
	return nil
}

// GetLast reads the most recent version of entityKey via the pointer CF.
func GetLast[T any](sn *Snapshot, pointerCF, versionedCF ColumnFamily, entityKey []byte, codec Codec[T]) (types.Versioned[T], bool, error) {
	rawPtr, ok, err := sn.Get(pointerCF, entityKey)
	if err != nil || !ok {
		return types.Versioned[T]{}, false, err
	}
	topo := binary.BigEndian.Uint64(rawPtr)
	raw, ok, err := sn.Get(versionedCF, versionedKey(entityKey, topo))
	if err != nil {
		return types.Versioned[T]{}, false, err
	}
	if !ok {
		// The pointer references a version that doesn't exist: a fatal
		// invariant violation per spec.md §4.A ("inconsistent pointers ...
		// are treated as fatal data corruption").
		return types.Versioned[T]{}, false, fmt.Errorf("storage: corrupt pointer for entity %x: version at topo %d missing", entityKey, topo)
	}
	rec, err := decodeVersioned(raw, topo, codec)
	return rec, true, err
}

// GetAt walks the version chain backward from the pointer until it finds
// the first version with topo' <= topoMax, per spec.md §3.5.
func GetAt[T any](sn *Snapshot, pointerCF, versionedCF ColumnFamily, entityKey []byte, topoMax uint64, codec Codec[T]) (types.Versioned[T], bool, error) {
	rawPtr, ok, err := sn.Get(pointerCF, entityKey)
	if err != nil || !ok {
		return types.Versioned[T]{}, false, err
	}
	topo := binary.BigEndian.Uint64(rawPtr)
	for {
		raw, ok, err := sn.Get(versionedCF, versionedKey(entityKey, topo))
		if err != nil {
			return types.Versioned[T]{}, false, err
		}
		if !ok {
			return types.Versioned[T]{}, false, fmt.Errorf("storage: corrupt version chain for entity %x at topo %d", entityKey, topo)
		}
		rec, err := decodeVersioned(raw, topo, codec)
		if err != nil {
			return types.Versioned[T]{}, false, err
		}
		if topo <= topoMax {
			return rec, true, nil
		}
		if rec.PreviousTopoheight == nil {
			return types.Versioned[T]{}, false, nil
		}
		topo = *rec.PreviousTopoheight
	}
}

// DeleteVersionedAbove removes every version of entityKey strictly above
// topo and rewinds the pointer to the highest remaining version, used by
// the block processor to undo a reorg's writes above the fork point
// (spec.md §4.G step 4, `delete_versioned_above_topoheight`).
func DeleteVersionedAbove[T any](sn *Snapshot, pointerCF, versionedCF ColumnFamily, entityKey []byte, topo uint64, codec Codec[T]) error {
	rawPtr, ok, err := sn.Get(pointerCF, entityKey)
	if err != nil || !ok {
		return err
	}
	cursor := binary.BigEndian.Uint64(rawPtr)
	for cursor > topo {
		raw, ok, err := sn.Get(versionedCF, versionedKey(entityKey, cursor))
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("storage: corrupt version chain for entity %x at topo %d", entityKey, cursor)
		}
		rec, err := decodeVersioned(raw, cursor, codec)
		if err != nil {
			return err
		}
		sn.Delete(versionedCF, versionedKey(entityKey, cursor))
		if rec.PreviousTopoheight == nil {
			sn.Delete(pointerCF, entityKey)
			return nil
		}
		cursor = *rec.PreviousTopoheight
	}
	var ptrBuf [8]byte
	binary.BigEndian.PutUint64(ptrBuf[:], cursor)
	sn.Put(pointerCF, entityKey, ptrBuf[:])
	return nil
}

// DeleteVersionedBelow prunes every version strictly below topo, keeping at
// most one version with topo' <= topo per entity when keepLast is true
// (spec.md §3.5 pruning invariant / §8 boundary behaviour).
func DeleteVersionedBelow[T any](sn *Snapshot, versionedCF ColumnFamily, entityKey []byte, topo uint64, keepLast bool, codec Codec[T]) error {
	pairs, err := sn.Iterate(versionedCF, IterWithPrefix(entityKey, Forward))
	if err != nil {
		return err
	}
	var kept bool
	// Iterate in descending topo order so the first entry <= topo is the
	// one we keep when keepLast is set.
	for i := len(pairs) - 1; i >= 0; i-- {
		key := pairs[i].Key
		if len(key) < 8 {
			continue
		}
		entTopo := binary.BigEndian.Uint64(key[len(key)-8:])
		if entTopo >= topo {
			continue
		}
		if keepLast && !kept {
			kept = true
			continue
		}
		sn.Delete(versionedCF, key)
	}
	return nil
}
