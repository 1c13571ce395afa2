// Package compute implements spec.md §4.4: a Computation is the
// per-(round, subscription) accumulator strip that workers write into
// concurrently, one slot per worker, with no locking on the strip
// itself — only the worker owning a slot ever writes it.
//
// The slot type is cache-line padded the same way the teacher's
// disruptor.RingBufferSlot is (internal/disruptor/ring_buffer.go):
// concurrent writers touching adjacent slots on different CPU cores
// would otherwise false-share the containing cache line.
package compute

import "github.com/rishav/cruncher/internal/bignum"

// accumSlot is one worker's cell in a Computation's strip. Padded to
// 64 bytes (a pointer is 8 bytes; the rest is padding) so adjacent
// slots in the strip slice never share a cache line.
type accumSlot struct {
	v *bignum.Int
	_ [56]byte
}

// Computation aggregates one round's contributions for one
// subscription across all workers (spec.md §3). It holds the
// modulus by value (a clone taken at construction time) rather than a
// pointer back to the Subscription, per spec.md §9's "borrow or
// index" guidance — a Computation never needs anything else from its
// Subscription once built.
type Computation struct {
	modulus *bignum.Int
	slots   []accumSlot
}

// New constructs a Computation with n accumulators, each initialised
// to 1 mod modulus, per spec.md §3.
func New(modulus *bignum.Int, n int) *Computation {
	one := bignum.FromUint64(1)
	one.Mod(one, modulus)

	c := &Computation{
		modulus: modulus.Clone(),
		slots:   make([]accumSlot, n),
	}
	for i := range c.slots {
		c.slots[i].v = one.Clone()
	}
	return c
}

// ProcessDatum multiplies local = entryExp(exp) into the accumulator
// at slot, per spec.md §4.4. The caller (internal/registry's
// ProcessJob, run on a pool worker) has
// already resolved the Subscription's Entry for this stream (or
// determined there is none, in which case this is never called — a
// missing Entry is a no-op handled by the caller, not here).
func (c *Computation) ProcessDatum(slot int, local *bignum.Int) {
	s := &c.slots[slot]
	s.v.MulMod(s.v, local, c.modulus)
}

// ProduceResult reduces the accumulator strip to a single product mod
// modulus, per spec.md §4.4. Must only be called once the per-round
// completion barrier has drained (internal/registry).
func (c *Computation) ProduceResult() *bignum.Int {
	out := bignum.FromUint64(1)
	out.Mod(out, c.modulus)
	for i := range c.slots {
		out.MulMod(out, c.slots[i].v, c.modulus)
	}
	return out
}

// NumSlots returns the size of the accumulator strip.
func (c *Computation) NumSlots() int {
	return len(c.slots)
}
