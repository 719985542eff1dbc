// Package types defines the consensus-level primitives shared by every
// subsystem: hashes, topological positions, blue-work accumulators, the
// block and transaction shapes, and the account/versioned-record model.
package types

import (
	"bytes"
	"encoding/hex"
	"sort"
)

// HashSize is the width in bytes of every consensus hash in the system.
const HashSize = 32

// Hash is an opaque 32-byte identifier for a block or transaction.
type Hash [HashSize]byte

// ZeroHash is the empty/genesis-parent sentinel.
var ZeroHash = Hash{}

// String renders the hash as lowercase hex, matching the teacher's
// Address.Hex()/String() convention.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// Less orders hashes byte-for-byte; used by GHOSTDAG's selected-parent
// and mergeset tie-breaks (spec.md 4.C: "tie-break by smallest hash").
func (h Hash) Less(other Hash) bool {
	return bytes.Compare(h[:], other[:]) < 0
}

// IsZero reports whether h is the zero hash (used to detect genesis).
func (h Hash) IsZero() bool {
	return h == ZeroHash
}

// HashFromBytes copies b into a Hash, erroring if the length is wrong.
func HashFromBytes(b []byte) (Hash, bool) {
	var h Hash
	if len(b) != HashSize {
		return h, false
	}
	copy(h[:], b)
	return h, true
}

// SortHashes returns a new slice of hashes sorted ascending. GHOSTDAG
// requires the mergeset be processed in a deterministic order; sorting by
// hash is the tie-break spec.md names whenever topological order alone
// does not decide.
func SortHashes(hs []Hash) []Hash {
	out := make([]Hash, len(hs))
	copy(out, hs)
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}
