// Package stats tracks lightweight engine counters, purely for
// observability: they never feed back into the wire protocol's
// reply semantics (spec.md §6.1) and hold nothing that needs to
// survive a restart (spec.md §6.3: no persisted state).
//
// Shaped after internal/settlement/clearing.go's
// GetSettlementStats() map[string]int — a mutex-guarded counter block
// with a single snapshot accessor — generalized from settlement
// counters (trades settled, pending trades) to dispatcher counters.
package stats

import "sync"

// Counters is the set of tracked values.
type Counters struct {
	SubscriptionsActive int
	EntriesInstalled    int
	RoundsCompleted     int
	CommandsProcessed   int
	ProtocolErrors      int
	DroppedNoOps        int
}

// Tracker guards a Counters block with a mutex; the dispatcher and the
// pool workers (which report dropped no-ops) write it, while a
// background logger goroutine reads it concurrently.
type Tracker struct {
	mu sync.Mutex
	c  Counters
}

// NewTracker returns a zeroed Tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// IncSubscriptions adjusts the active-subscription count by delta.
func (t *Tracker) IncSubscriptions(delta int) {
	t.mu.Lock()
	t.c.SubscriptionsActive += delta
	t.mu.Unlock()
}

// IncEntries adjusts the installed-entry count by delta.
func (t *Tracker) IncEntries(delta int) {
	t.mu.Lock()
	t.c.EntriesInstalled += delta
	t.mu.Unlock()
}

// RoundCompleted records one more drained round.
func (t *Tracker) RoundCompleted() {
	t.mu.Lock()
	t.c.RoundsCompleted++
	t.mu.Unlock()
}

// CommandProcessed records one more dispatched command.
func (t *Tracker) CommandProcessed() {
	t.mu.Lock()
	t.c.CommandsProcessed++
	t.mu.Unlock()
}

// ProtocolError records one more connection-ending protocol error.
func (t *Tracker) ProtocolError() {
	t.mu.Lock()
	t.c.ProtocolErrors++
	t.mu.Unlock()
}

// DroppedNoOp records one more semantic no-op (spec.md §7): an `a`
// for an unknown subscription, a `c` contribution overflowing a tabled
// Entry's width, a `d` for an unknown subscription. A `c` touching a
// stream a subscription has no Entry for is not counted.
func (t *Tracker) DroppedNoOp() {
	t.mu.Lock()
	t.c.DroppedNoOps++
	t.mu.Unlock()
}

// Snapshot returns a copy of the current counters.
func (t *Tracker) Snapshot() Counters {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.c
}
