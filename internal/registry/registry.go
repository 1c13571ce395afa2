// Package registry implements spec.md §4.7 and §3's "Round state":
// the reader-writer-guarded subscription table and the per-round
// Computation maps, plus the per-round completion barrier described
// in §4.6/§5.
//
// Per spec.md §9's design notes, this package is the single typed
// handle ("Engine... aggregates the registry, round map, ... No
// globals") that replaces the reference implementation's
// process-wide module state; internal/engine wraps a *Registry
// together with the worker pool to form the complete dispatcher.
//
// The single POSIX completion semaphore of the reference
// implementation becomes a sync.WaitGroup per round: one Add(1) per
// `c` job admitted (registry.BeginJob), one Done() per job retired by
// a worker (registry.ProcessJob) — the idiomatic Go shape for "wait
// until N things finish," and exactly the typed-channel/no-raw-
// semaphore redesign spec.md §9 calls for.
package registry

import (
	"fmt"
	"sync"

	"github.com/rishav/cruncher/internal/bignum"
	"github.com/rishav/cruncher/internal/compute"
	"github.com/rishav/cruncher/internal/ordtree"
	"github.com/rishav/cruncher/internal/subscription"
	"github.com/rishav/cruncher/internal/validate"
)

// subComputation pairs a round's Computation with a non-owning
// reference to the Subscription it was built from. spec.md §3
// describes a Computation as holding "a reference to the
// Subscription"; internal/compute itself stores only a cloned
// modulus (spec.md §9: prefer a borrowed/copied value over a shared
// back-pointer), so the pairing — used only to drive the
// Subscription's reference count at drain time — lives here, at the
// granularity the spec actually needs it: round bookkeeping, not the
// Computation's hot accumulation path.
type subComputation struct {
	sub  *subscription.Subscription
	comp *compute.Computation
}

// roundState is the per-RoundNum bundle described in spec.md §3:
// "Round state — per RoundNum: the map of Computations ... plus a
// completion counter."
type roundState struct {
	computations *ordtree.Tree[*subComputation]
	wg           sync.WaitGroup
}

// Result is one field of an `r` reply: a subscription id and its
// accumulated product for the drained round.
type Result struct {
	SubID uint64
	Value *bignum.Int
}

// Registry is the single aggregate described in spec.md §9: it owns
// the SubId->Subscription map and the RoundNum->roundState map behind
// one reader-writer lock, matching spec.md §4.7 ("a single global
// read-write lock; contention is low because the hot path in workers
// holds only the read barrier").
type Registry struct {
	mu          sync.RWMutex
	subs        *ordtree.Tree[*subscription.Subscription]
	rounds      map[uint64]*roundState
	workerCount int
	validator   *validate.Checker
}

// New creates a Registry for a pool of workerCount workers, validating
// datum exponents for tabled Entries against the given global exponent
// bit width (entry.BitWidth in production).
func New(workerCount int, bitWidth int) *Registry {
	return &Registry{
		subs:        ordtree.New[*subscription.Subscription](),
		rounds:      make(map[uint64]*roundState),
		workerCount: workerCount,
		validator:   validate.NewChecker(bitWidth),
	}
}

// AddSubscription implements command `s`: registers sub_id -> modulus,
// replacing any existing Subscription at that id (spec.md §3: "If
// sub_id already exists, behaviour is 'replace': destroy the old,
// create a new"). If the old Subscription still has Computations
// bound to it in an active round, it is marked removed rather than
// discarded outright, per spec.md §9 Open Question policy (a); it
// stays reachable through those Computations' pairing until the
// owning rounds drain.
func (r *Registry) AddSubscription(subID uint64, modulus *bignum.Int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.subs.Get(subID); ok {
		old.MarkRemoved()
	}
	r.subs.Set(subID, subscription.New(modulus))
}

// RemoveSubscription implements command `d`. Returns false if sub_id
// was not registered (a semantic no-op per spec.md §7).
func (r *Registry) RemoveSubscription(subID uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.subs.Get(subID)
	if !ok {
		return false
	}
	sub.MarkRemoved()
	r.subs.Delete(subID)
	return true
}

// AddEntry implements command `a`. Returns false if sub_id is not
// registered (silently dropped per spec.md §6.1).
func (r *Registry) AddEntry(subID, stream uint64, base *bignum.Int, k int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.subs.Get(subID)
	if !ok {
		return false
	}
	sub.AddEntry(stream, base, k)
	return true
}

// SubscriptionCount returns the number of currently registered
// (non-removed) subscriptions, for internal/stats.
func (r *Registry) SubscriptionCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.subs.Size()
}

// EntryCount returns the total number of entries installed across all
// registered subscriptions, for internal/stats.
func (r *Registry) EntryCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	total := 0
	r.subs.ForEach(func(_ uint64, sub *subscription.Subscription) bool {
		total += sub.EntryCount()
		return true
	})
	return total
}

// BeginJob implements spec.md §4.6 steps 1-5 for one `c` command: it
// ensures round state exists, constructs a Computation for every
// currently-registered subscription not yet represented in the
// round, and registers one outstanding job unit. Must be called
// before the job description is published to the worker pool.
func (r *Registry) BeginJob(round uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rs, ok := r.rounds[round]
	if !ok {
		rs = &roundState{computations: ordtree.New[*subComputation]()}
		r.rounds[round] = rs
	}

	r.subs.ForEach(func(subID uint64, sub *subscription.Subscription) bool {
		if _, exists := rs.computations.Get(subID); !exists {
			sub.Ref()
			rs.computations.Set(subID, &subComputation{
				sub:  sub,
				comp: compute.New(sub.Modulus, r.workerCount),
			})
		}
		return true
	})

	rs.wg.Add(1)
}

// ProcessJob implements spec.md §4.5's per-job work: for every
// currently-registered subscription, resolve its Entry for stream
// (missing Entry is a no-op, spec.md §9), validate the exponent width
// against any table, and fold the result into that subscription's
// Computation for round at the caller's accumulator slot. Returns the
// number of contributions dropped as a validation no-op, for
// internal/stats. Must be called with the job already retired from
// the dispatcher's handoff (the caller still owes one
// roundState.wg.Done(), performed here).
func (r *Registry) ProcessJob(streamID, round uint64, exp *bignum.Int, slot int) int {
	r.mu.RLock()
	rs := r.rounds[round]
	dropped := 0

	if rs != nil {
		expBits := exp.BitLen()
		r.subs.ForEach(func(subID uint64, sub *subscription.Subscription) bool {
			e := sub.Entry(streamID)
			if e == nil {
				return true
			}
			if k, chunks := e.Tradeoff(), e.Chunks(); k > 0 {
				if res := r.validator.CheckTabled(expBits, k, chunks); !res.Passed {
					dropped++
					return true
				}
			}
			sc, ok := rs.computations.Get(subID)
			if !ok {
				return true
			}
			local := e.Exponentiate(exp, sub.Modulus)
			sc.comp.ProcessDatum(slot, local)
			return true
		})
	}
	r.mu.RUnlock()

	if rs != nil {
		rs.wg.Done()
	}
	return dropped
}

// Drain implements command `r`: blocks until every job issued for
// round has been retired (spec.md §4.6's barrier soundness
// requirement), then reduces and removes every Computation for the
// round in ascending SubId order, releasing each bound Subscription's
// reference. Returns (nil, false) if round never saw a `c` — a
// semantic no-op per spec.md §7, not an error.
func (r *Registry) Drain(round uint64) ([]Result, bool) {
	r.mu.RLock()
	rs := r.rounds[round]
	r.mu.RUnlock()

	if rs == nil {
		return nil, false
	}

	rs.wg.Wait()

	r.mu.Lock()
	defer r.mu.Unlock()

	results := make([]Result, 0, rs.computations.Size())
	rs.computations.ForEach(func(subID uint64, sc *subComputation) bool {
		results = append(results, Result{SubID: subID, Value: sc.comp.ProduceResult()})
		sc.sub.Unref()
		return true
	})
	delete(r.rounds, round)
	return results, true
}

// String renders registry size for debug logging.
func (r *Registry) String() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return fmt.Sprintf("Registry{subs=%d, rounds=%d}", r.subs.Size(), len(r.rounds))
}
