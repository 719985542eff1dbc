package reachability

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"ghostdagcore/internal/types"
)

func encodeRecord(r Record) []byte {
	b := new(bytes.Buffer)
	if r.HasParent {
		b.WriteByte(1)
		b.Write(r.Parent[:])
	} else {
		b.WriteByte(0)
	}
	var u64 [8]byte
	binary.BigEndian.PutUint64(u64[:], r.Interval.Start)
	b.Write(u64[:])
	binary.BigEndian.PutUint64(u64[:], r.Interval.End)
	b.Write(u64[:])
	binary.BigEndian.PutUint64(u64[:], r.Height)
	b.Write(u64[:])

	binary.BigEndian.PutUint32(u64[:4], uint32(len(r.Children)))
	b.Write(u64[:4])
	for _, h := range r.Children {
		b.Write(h[:])
	}
	binary.BigEndian.PutUint32(u64[:4], uint32(len(r.FutureCoveringSet)))
	b.Write(u64[:4])
	for _, h := range r.FutureCoveringSet {
		b.Write(h[:])
	}
	return b.Bytes()
}

func decodeRecord(raw []byte) (Record, error) {
	var r Record
	buf := bytes.NewReader(raw)

	hasParent, err := buf.ReadByte()
	if err != nil {
		return r, err
	}
	if hasParent == 1 {
		r.HasParent = true
		if _, err := buf.Read(r.Parent[:]); err != nil {
			return r, err
		}
	}

	var u64b [8]byte
	if _, err := buf.Read(u64b[:]); err != nil {
		return r, err
	}
	r.Interval.Start = binary.BigEndian.Uint64(u64b[:])
	if _, err := buf.Read(u64b[:]); err != nil {
		return r, err
	}
	r.Interval.End = binary.BigEndian.Uint64(u64b[:])
	if _, err := buf.Read(u64b[:]); err != nil {
		return r, err
	}
	r.Height = binary.BigEndian.Uint64(u64b[:])

	var u32b [4]byte
	if _, err := buf.Read(u32b[:]); err != nil {
		return r, err
	}
	numChildren := binary.BigEndian.Uint32(u32b[:])
	r.Children = make([]types.Hash, numChildren)
	for i := range r.Children {
		if _, err := buf.Read(r.Children[i][:]); err != nil {
			return r, fmt.Errorf("reachability: decode child %d: %w", i, err)
		}
	}

	if _, err := buf.Read(u32b[:]); err != nil {
		return r, err
	}
	numFuture := binary.BigEndian.Uint32(u32b[:])
	r.FutureCoveringSet = make([]types.Hash, numFuture)
	for i := range r.FutureCoveringSet {
		if _, err := buf.Read(r.FutureCoveringSet[i][:]); err != nil {
			return r, fmt.Errorf("reachability: decode future-covering entry %d: %w", i, err)
		}
	}
	return r, nil
}
