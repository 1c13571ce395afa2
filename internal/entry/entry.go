// Package entry implements the fixed-base windowed exponentiator
// described in spec.md §4.2: an Entry holds one (base, modulus) pair
// for a single (subscription, stream) binding and, optionally, a
// precomputed acceleration table that turns repeated
// base^exponent mod modulus calls into a handful of table lookups and
// modular multiplies instead of a full square-and-multiply ladder.
//
// This is the classic fixed-base windowing time/space tradeoff: a
// k-bit table costs (ceil(L/k))*(2^k-1) stored residues and turns an
// L-bit exponentiation into roughly L/k modular multiplies instead of
// L.
package entry

import "github.com/rishav/cruncher/internal/bignum"

// MaxTradeoff is the largest acceleration-table window width
// accepted, per spec.md §3 (Entry invariant: tradeoff k in [0, 16]).
const MaxTradeoff = 16

// BitWidth is the global exponent bit-length L used to size tables,
// per spec.md §4.2. All tabled exponents must fit in this many bits;
// see internal/validate for the overflow check this implies.
const BitWidth = 1024

// Entry is a fixed-base exponentiator bound to a modulus supplied by
// the owning subscription at call time (spec.md §9: "borrow or index"
// — the modulus is passed into Exponentiate rather than stored via a
// back-pointer to the Subscription).
type Entry struct {
	base   *bignum.Int
	k      int          // tradeoff; 0 means no table
	chunks int          // ceil(BitWidth/k), 0 when k == 0
	table  []*bignum.Int // length chunks*(2^k-1)
}

// New creates an Entry with the given base and no acceleration table.
func New(base *bignum.Int) *Entry {
	return &Entry{base: base.Clone()}
}

// SetBase stores b as the new base and clears any existing table
// (tradeoff reverts to 0), per spec.md §4.2's set_base contract.
func (e *Entry) SetBase(b *bignum.Int) {
	e.base = b.Clone()
	e.k = 0
	e.chunks = 0
	e.table = nil
}

// Tradeoff returns the entry's current table width (0 if untabled).
func (e *Entry) Tradeoff() int {
	return e.k
}

// Chunks returns the number of base-2^k digits the current table
// covers (0 if untabled).
func (e *Entry) Chunks() int {
	return e.chunks
}

// clamp restricts k to [0, MaxTradeoff] per the Entry invariant.
func clamp(k int) int {
	if k < 0 {
		return 0
	}
	if k > MaxTradeoff {
		return MaxTradeoff
	}
	return k
}

// RebuildTable installs a k-bit acceleration table against modulus
// (or clears the table when k == 0), following the two-level loop of
// spec.md §4.2: maintain a running value x (initially base); for each
// chunk store [x, x^2, ..., x^(2^k-1)] mod modulus, then advance
// x <- x^(2^k) mod modulus. Every stored residue is fully reduced,
// satisfying invariant I2.
func (e *Entry) RebuildTable(k int, modulus *bignum.Int) {
	k = clamp(k)
	if k == 0 {
		e.k = 0
		e.chunks = 0
		e.table = nil
		return
	}

	chunks := (BitWidth + k - 1) / k
	digitsPerChunk := (1 << uint(k)) - 1
	table := make([]*bignum.Int, chunks*digitsPerChunk)

	x := e.base.Clone()
	x.Mod(x, modulus)
	for c := 0; c < chunks; c++ {
		cur := x.Clone()
		for d := 0; d < digitsPerChunk; d++ {
			table[c*digitsPerChunk+d] = cur.Clone()
			if d+1 < digitsPerChunk {
				cur = bignum.New().MulMod(cur, x, modulus)
			}
		}
		// Advance x <- x^(2^k) mod modulus for the next chunk, by
		// repeated squaring k times (x^(2^k) = ((x^2)^2)...).
		next := x.Clone()
		for i := 0; i < k; i++ {
			next = bignum.New().MulMod(next, next, modulus)
		}
		x = next
	}

	e.k = k
	e.chunks = chunks
	e.table = table
}

// Exponentiate computes base^exp mod modulus into a fresh Int and
// returns it. With no table (k == 0) this delegates to general
// modular exponentiation. With a k-bit table it walks exp as
// base-2^k digits, lowest first, multiplying in the corresponding
// table entry whenever the digit is non-zero, per spec.md §4.2. The
// caller's exp value is never mutated; bits beyond chunks*k are
// ignored here (see internal/validate, which rejects such exponents
// before they reach a tabled Entry).
func (e *Entry) Exponentiate(exp, modulus *bignum.Int) *bignum.Int {
	out := bignum.FromUint64(1)
	out.Mod(out, modulus)

	if e.k == 0 {
		return out.PowMod(e.base, exp, modulus)
	}

	digitsPerChunk := (1 << uint(e.k)) - 1
	working := exp.Clone()
	for c := 0; c < e.chunks; c++ {
		digit := working.LowBits(uint(e.k))
		working.Rsh(working, uint(e.k))
		if digit != 0 {
			out.MulMod(out, e.table[c*digitsPerChunk+int(digit-1)], modulus)
		}
	}
	return out
}
