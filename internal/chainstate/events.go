package chainstate

import (
	"bytes"
	"context"
	"encoding/binary"

	"ghostdagcore/internal/storage"
	"ghostdagcore/internal/types"
)

func eventKey(topoheight, seq uint64) []byte {
	buf := make([]byte, 16)
	binary.BigEndian.PutUint64(buf[0:8], topoheight)
	binary.BigEndian.PutUint64(buf[8:16], seq)
	return buf
}

// encodeEvent lays out contract, topics and data the same varuint-
// length-prefixed way internal/types.codec.go prefixes optional fields,
// so an event log can be read back without a schema.
func encodeEvent(contract types.Hash, topics [][]byte, data []byte) []byte {
	buf := new(bytes.Buffer)
	buf.Write(contract[:])
	_ = types.EncodeVarUint(buf, uint64(len(topics)))
	for _, t := range topics {
		_ = types.EncodeVarUint(buf, uint64(len(t)))
		buf.Write(t)
	}
	_ = types.EncodeVarUint(buf, uint64(len(data)))
	buf.Write(data)
	return buf.Bytes()
}

// EmitEvent appends a contract-emitted log entry for this block, ordered
// by the sequence it was emitted in (spec.md §4.D: "an invoke may emit
// zero or more events, recorded in emission order").
func (s *State) EmitEvent(ctx context.Context, contract types.Hash, topics [][]byte, data []byte) {
	key := eventKey(s.topoheight, s.eventSeq)
	s.eventSeq++
	s.sn.Put(storage.CFEvents, key, encodeEvent(contract, topics, data))
}
