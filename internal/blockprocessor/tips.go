package blockprocessor

import (
	"bytes"
	"fmt"
	"io"

	"ghostdagcore/internal/storage"
	"ghostdagcore/internal/types"
)

// tipsKey is the single sentinel key CFTips is stored under (spec.md
// §3.7: "the current DAG leaf set", one value rather than one row per
// tip since a node's tip set is read and rewritten as a whole on every
// commit).
var tipsKey = []byte(storage.KeyTipsSet)

func readTips(sn *storage.Snapshot) ([]types.Hash, error) {
	raw, ok, err := sn.Get(storage.CFTips, tipsKey)
	if err != nil {
		return nil, fmt.Errorf("blockprocessor: read tip set: %w", err)
	}
	if !ok {
		return nil, nil
	}
	r := bytes.NewReader(raw)
	n, err := types.DecodeVarUint(r)
	if err != nil {
		return nil, fmt.Errorf("blockprocessor: decode tip set count: %w", err)
	}
	tips := make([]types.Hash, 0, n)
	for i := uint64(0); i < n; i++ {
		var h types.Hash
		if _, err := io.ReadFull(r, h[:]); err != nil {
			return nil, fmt.Errorf("blockprocessor: decode tip set entry %d: %w", i, err)
		}
		tips = append(tips, h)
	}
	return tips, nil
}

func writeTips(sn *storage.Snapshot, tips []types.Hash) error {
	buf := new(bytes.Buffer)
	if err := types.EncodeVarUint(buf, uint64(len(tips))); err != nil {
		return fmt.Errorf("blockprocessor: encode tip set count: %w", err)
	}
	for _, h := range tips {
		buf.Write(h[:])
	}
	sn.Put(storage.CFTips, tipsKey, buf.Bytes())
	return nil
}

// advanceTips removes every parent the new block references (it is no
// longer a leaf once referenced) and adds the new block itself.
func advanceTips(existing []types.Hash, parents []types.Hash, newTip types.Hash) []types.Hash {
	parentSet := make(map[types.Hash]bool, len(parents))
	for _, p := range parents {
		parentSet[p] = true
	}
	out := make([]types.Hash, 0, len(existing)+1)
	for _, h := range existing {
		if !parentSet[h] {
			out = append(out, h)
		}
	}
	out = append(out, newTip)
	return out
}
