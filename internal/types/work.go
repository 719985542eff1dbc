package types

import "github.com/holiman/uint256"

// BlueWork is the cumulative-difficulty accumulator described in spec.md
// §3.1. It is backed by uint256.Int (the same fixed-width 256-bit integer
// Erigon uses for EVM words and total-difficulty accumulators) so repeated
// addition across a long selected-parent chain never silently wraps.
type BlueWork struct {
	v uint256.Int
}

// ZeroBlueWork is the additive identity, the blue_work of the genesis.
func ZeroBlueWork() BlueWork { return BlueWork{} }

// NewBlueWorkFromUint64 builds a BlueWork from a plain counter, convenient
// in tests and for genesis configuration.
func NewBlueWorkFromUint64(v uint64) BlueWork {
	return BlueWork{v: *uint256.NewInt(v)}
}

// Add returns w + other without mutating either receiver.
func (w BlueWork) Add(other BlueWork) BlueWork {
	var out uint256.Int
	out.Add(&w.v, &other.v)
	return BlueWork{v: out}
}

// Cmp reports -1/0/1 the way bytes.Compare does, comparing magnitude.
func (w BlueWork) Cmp(other BlueWork) int {
	return w.v.Cmp(&other.v)
}

// GreaterThan reports whether w > other.
func (w BlueWork) GreaterThan(other BlueWork) bool { return w.Cmp(other) > 0 }

// Bytes32 returns the big-endian 32-byte representation, used by the
// fixed-layout block codec.
func (w BlueWork) Bytes32() [32]byte {
	return w.v.Bytes32()
}

// BlueWorkFromBytes32 parses the big-endian 32-byte representation.
func BlueWorkFromBytes32(b [32]byte) BlueWork {
	var v uint256.Int
	v.SetBytes32(b[:])
	return BlueWork{v: v}
}

// String renders the decimal value, useful for logging.
func (w BlueWork) String() string { return w.v.Dec() }

// DifficultyBits is the compact ("nBits"-style) encoding of a block's
// target difficulty, carried in the fixed-width header (spec.md §3.2).
type DifficultyBits uint32

// Work derives the proof-of-work contribution of a single block from its
// compact difficulty bits, per spec.md §4.C step 4
// ("work(b) derives from the compact difficulty bits"). The compact
// encoding follows the Bitcoin-style nBits layout: the high byte is the
// exponent, the low three bytes are the mantissa; work is the standard
// cumulative-work definition 2^256 / (target+1) used by every
// Nakamoto-style chain in the corpus. uint256.Int cannot represent 2^256
// itself, so the division is carried out against 2^256-1 and corrected by
// one when the remainder shows the true quotient rounds up (floor((m+1)/d)
// == floor(m/d) + 1 iff m%d == d-1).
func (d DifficultyBits) Work() BlueWork {
	target := compactToTarget(uint32(d))
	if target.IsZero() {
		return ZeroBlueWork()
	}
	one := uint256.NewInt(1)
	denom := new(uint256.Int).Add(target, one)
	if denom.IsZero() {
		// target == 2^256-1: denom overflowed past the full range, so the
		// true divisor is 2^256 and the quotient is exactly 1.
		return NewBlueWorkFromUint64(1)
	}
	maxVal := new(uint256.Int).Not(uint256.NewInt(0)) // 2^256 - 1
	var quotient, remainder uint256.Int
	quotient.DivMod(maxVal, denom, &remainder)
	denomMinusOne := new(uint256.Int).Sub(denom, one)
	if remainder.Eq(denomMinusOne) {
		quotient.AddUint64(&quotient, 1)
	}
	return BlueWork{v: quotient}
}

// Satisfies reports whether hash, read as a big-endian 256-bit integer,
// meets d's target — the proof-of-work check internal/blockprocessor's
// shape-validation step runs unless skip_pow_verification is set (spec.md
// §6).
func (d DifficultyBits) Satisfies(hash Hash) bool {
	target := compactToTarget(uint32(d))
	var h uint256.Int
	h.SetBytes(hash[:])
	return h.Cmp(target) <= 0
}

func compactToTarget(bits uint32) *uint256.Int {
	exponent := bits >> 24
	mantissa := bits & 0x007fffff
	target := new(uint256.Int)
	if exponent <= 3 {
		mantissa >>= (8 * (3 - exponent))
		target.SetUint64(uint64(mantissa))
		return target
	}
	target.SetUint64(uint64(mantissa))
	target.Lsh(target, uint(8*(exponent-3)))
	return target
}
