package chainstate

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"ghostdagcore/internal/storage"
	"ghostdagcore/internal/types"
)

// scheduledExecutionKey orders CFScheduledExecutions by due topoheight
// first so a due-execution sweep can range-scan the prefix of entries
// whose dueTopo has already passed, per spec.md §4.D's deferred
// execution (a contract call scheduling a later call against itself).
func scheduledExecutionKey(dueTopo uint64, id types.Hash) []byte {
	buf := make([]byte, 8+types.HashSize)
	binary.BigEndian.PutUint64(buf[0:8], dueTopo)
	copy(buf[8:], id[:])
	return buf
}

// nextScheduledSeq allocates the next value of the monotonic counter that
// breaks ties between same-offer scheduled executions by arrival order
// (spec.md §4.D: "ties break by FIFO then contract id"). It lives under
// CFCommon alongside the other process-wide counters chainstate keeps
// (see nextAccountID).
func (s *State) nextScheduledSeq() (uint64, error) {
	const counterKey = "next_scheduled_execution_seq"
	raw, ok, err := s.sn.Get(storage.CFCommon, []byte(counterKey))
	if err != nil {
		return 0, fmt.Errorf("chainstate: read scheduled-execution seq counter: %w", err)
	}
	var next uint64
	if ok {
		if len(raw) != 8 {
			return 0, fmt.Errorf("chainstate: corrupt scheduled-execution seq counter")
		}
		next = binary.BigEndian.Uint64(raw) + 1
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], next)
	s.sn.Put(storage.CFCommon, []byte(counterKey), buf[:])
	return next, nil
}

// ScheduledExecution is one due-execution entry as handed back to a
// caller sweeping CFScheduledExecutions (internal/blockprocessor's
// Execute step).
type ScheduledExecution struct {
	ID       types.Hash
	Contract types.Hash
	Kind     uint8
	MaxGas   uint64
	Offer    uint64
	Seq      uint64
	DueTopo  uint64
	Params   []byte
}

func encodeScheduledExecutionRecord(contract types.Hash, kind uint8, maxGas, offer, seq uint64, params []byte) ([]byte, error) {
	record := new(bytes.Buffer)
	record.Write(contract[:])
	record.WriteByte(kind)
	var u64 [8]byte
	binary.LittleEndian.PutUint64(u64[:], maxGas)
	record.Write(u64[:])
	binary.LittleEndian.PutUint64(u64[:], offer)
	record.Write(u64[:])
	binary.LittleEndian.PutUint64(u64[:], seq)
	record.Write(u64[:])
	if err := types.EncodeVarUint(record, uint64(len(params))); err != nil {
		return nil, fmt.Errorf("chainstate: encode scheduled execution: %w", err)
	}
	record.Write(params)
	return record.Bytes(), nil
}

func decodeScheduledExecutionRecord(id types.Hash, dueTopo uint64, raw []byte) (ScheduledExecution, error) {
	if len(raw) < types.HashSize+1+24 {
		return ScheduledExecution{}, fmt.Errorf("chainstate: scheduled execution record too short")
	}
	se := ScheduledExecution{ID: id, DueTopo: dueTopo}
	copy(se.Contract[:], raw[:types.HashSize])
	rest := raw[types.HashSize:]
	se.Kind = rest[0]
	rest = rest[1:]
	se.MaxGas = binary.LittleEndian.Uint64(rest[0:8])
	se.Offer = binary.LittleEndian.Uint64(rest[8:16])
	se.Seq = binary.LittleEndian.Uint64(rest[16:24])
	r := bytes.NewReader(rest[24:])
	n, err := types.DecodeVarUint(r)
	if err != nil {
		return ScheduledExecution{}, fmt.Errorf("chainstate: decode scheduled execution params length: %w", err)
	}
	params := make([]byte, n)
	if n > 0 {
		if _, err := r.Read(params); err != nil {
			return ScheduledExecution{}, fmt.Errorf("chainstate: decode scheduled execution params: %w", err)
		}
	}
	se.Params = params
	return se, nil
}

// ScheduleExecution registers a deferred contract call. Its id is derived
// by hashing a fresh UUID together with the call's contract hash and kind,
// so two calls scheduled in the same block for the same contract/kind do
// not collide even though google/uuid's randomness isn't itself a Hash.
func (s *State) ScheduleExecution(ctx context.Context, contract types.Hash, kind uint8, maxGas uint64, params []byte, offer uint64, dueTopo uint64) (types.Hash, error) {
	seed := new(bytes.Buffer)
	seed.Write(uuid.New()[:])
	seed.Write(contract[:])
	seed.WriteByte(kind)
	id := types.Sha256d(seed.Bytes())

	seq, err := s.nextScheduledSeq()
	if err != nil {
		return types.Hash{}, err
	}
	raw, err := encodeScheduledExecutionRecord(contract, kind, maxGas, offer, seq, params)
	if err != nil {
		return types.Hash{}, err
	}
	s.sn.Put(storage.CFScheduledExecutions, scheduledExecutionKey(dueTopo, id), raw)
	return id, nil
}

// DueScheduledExecutions returns every scheduled execution whose dueTopo
// is at most topo, in priority order: descending offer, then ascending
// seq (FIFO), then ascending contract id (spec.md §4.D: "priority-ordered
// by offer ... ties break by FIFO then contract id").
func (s *State) DueScheduledExecutions(ctx context.Context, topo uint64) ([]ScheduledExecution, error) {
	var hi [8]byte
	binary.BigEndian.PutUint64(hi[:], topo+1)
	pairs, err := s.sn.Iterate(storage.CFScheduledExecutions, storage.IterRange(nil, hi[:], storage.Forward))
	if err != nil {
		return nil, fmt.Errorf("chainstate: iterate due scheduled executions: %w", err)
	}
	out := make([]ScheduledExecution, 0, len(pairs))
	for _, p := range pairs {
		if len(p.Key) != 8+types.HashSize {
			continue
		}
		dueTopo := binary.BigEndian.Uint64(p.Key[:8])
		var id types.Hash
		copy(id[:], p.Key[8:])
		se, err := decodeScheduledExecutionRecord(id, dueTopo, p.Value)
		if err != nil {
			return nil, err
		}
		out = append(out, se)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Offer != out[j].Offer {
			return out[i].Offer > out[j].Offer
		}
		if out[i].Seq != out[j].Seq {
			return out[i].Seq < out[j].Seq
		}
		return out[i].Contract.Less(out[j].Contract)
	})
	return out, nil
}

// ConsumeScheduledExecution removes a fired scheduled execution so it is
// never swept twice (spec.md §4.D: a due execution fires exactly once).
func (s *State) ConsumeScheduledExecution(se ScheduledExecution) {
	s.sn.Delete(storage.CFScheduledExecutions, scheduledExecutionKey(se.DueTopo, se.ID))
}
