// Package validate implements the exponent-width admission check
// called for by spec.md §9's Open Question on exponent bit-width:
// a tabled Entry's acceleration table only covers chunks*k bits, and
// an exponent wider than that is silently truncated by
// entry.Exponentiate if let through. This package validates before
// that happens and tells the dispatcher to drop the contribution
// instead, exactly the "documented assumption... recommends
// validation with an error returned to the command dispatcher, which
// logs and drops the c" resolution spec.md proposes.
//
// Shaped after internal/risk/checker.go from the teacher: a Checker
// holding a Config, with a Check method returning a typed Result
// rather than a bare bool, generalized from trading risk limits
// (order size, position, price bands) to arithmetic limits (exponent
// bit length against a table's covered width).
package validate

import "fmt"

// Result is the outcome of an exponent-width check.
type Result struct {
	Passed bool
	Reason string
}

// Checker validates datum exponents against Entry table widths.
type Checker struct {
	bitWidth int // the global L from spec.md §4.2
}

// NewChecker creates a Checker for the given global exponent bit
// width (entry.BitWidth in production; parameterized here so tests
// can use small widths).
func NewChecker(bitWidth int) *Checker {
	return &Checker{bitWidth: bitWidth}
}

// CheckTabled reports whether an exponent of the given bit length is
// safe to feed into a tabled Entry covering chunks*k bits. An
// untabled Entry (k == 0) has no width restriction — general modular
// exponentiation in internal/bignum handles exponents of any size —
// so callers should only invoke this when the target Entry has
// tradeoff > 0.
//
// The table's nominal coverage (chunks*k) is additionally capped at
// the Checker's configured global exponent width: a table built with
// a chunks*k wider than the system's L is a configuration error, not
// a license to accept wider exponents than the rest of the cruncher
// ever produces.
func (c *Checker) CheckTabled(expBitLen, k, chunks int) Result {
	covered := k * chunks
	if covered > c.bitWidth {
		covered = c.bitWidth
	}
	if expBitLen > covered {
		return Result{
			Passed: false,
			Reason: fmt.Sprintf("exponent is %d bits wide, table covers only %d bits (k=%d, chunks=%d, global width=%d)", expBitLen, covered, k, chunks, c.bitWidth),
		}
	}
	return Result{Passed: true}
}
