// Package subscription implements spec.md §4.3: a Subscription groups
// a modulus with a keyed collection of Entries, one per stream.
//
// Subscriptions are mutated only by the dispatcher under the
// registry's write barrier (internal/registry); this package itself
// does no locking, matching the teacher's pattern of plain, unlocked
// value types wherever a single owner already guarantees exclusive
// access (e.g. orders.Order, orderbook.PriceLevel).
package subscription

import (
	"github.com/rishav/cruncher/internal/bignum"
	"github.com/rishav/cruncher/internal/entry"
)

// Subscription is identified by its SubId in the owning registry; the
// id itself is not stored here, matching spec.md §9's guidance to
// replace back-pointers with borrowed/contextual references rather
// than shared ownership.
type Subscription struct {
	Modulus *bignum.Int
	entries map[uint64]*entry.Entry

	// refs counts Computations bound to this subscription across all
	// active rounds. A Subscription whose Removed flag is set is kept
	// alive by the registry only until refs drops to zero (spec.md §9,
	// Open Question "removal during an active round", policy (a)).
	refs    int
	Removed bool
}

// New creates a Subscription with the given modulus and no entries.
func New(modulus *bignum.Int) *Subscription {
	return &Subscription{
		Modulus: modulus.Clone(),
		entries: make(map[uint64]*entry.Entry),
	}
}

// AddEntry creates or replaces the Entry at stream with the given
// base, then rebuilds its acceleration table to width k, per spec.md
// §4.3. Replacement discards the previous Entry (spec.md §3: "a" with
// an existing (sub, stream) replaces, it does not merge).
func (s *Subscription) AddEntry(stream uint64, base *bignum.Int, k int) {
	e := entry.New(base)
	e.RebuildTable(k, s.Modulus)
	s.entries[stream] = e
}

// RemoveEntry deletes the Entry at stream, if any.
func (s *Subscription) RemoveEntry(stream uint64) {
	delete(s.entries, stream)
}

// Entry returns the Entry bound to stream, or nil if the subscription
// has no Entry for that stream. A nil return is the "semantic no-op"
// case of spec.md §7: the caller must treat it as a contribution of
// the identity, never auto-insert a default Entry.
func (s *Subscription) Entry(stream uint64) *entry.Entry {
	return s.entries[stream]
}

// EntryCount returns the number of entries currently installed,
// exposed for internal/stats.
func (s *Subscription) EntryCount() int {
	return len(s.entries)
}

// Ref increments the Computation reference count.
func (s *Subscription) Ref() {
	s.refs++
}

// Unref decrements the Computation reference count and reports
// whether the subscription is now both removed and unreferenced —
// i.e. safe for the registry to drop entirely.
func (s *Subscription) Unref() bool {
	s.refs--
	return s.Removed && s.refs <= 0
}

// MarkRemoved flags the subscription as logically removed: no new `a`
// or `c` may bind to it, but its storage (and modulus) survives until
// Unref reports zero outstanding references.
func (s *Subscription) MarkRemoved() {
	s.Removed = true
}
