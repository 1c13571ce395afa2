// Package workerpool implements spec.md §4.5's fixed worker pool and
// the single-outstanding-job handoff of §5, adapted from two corpus
// patterns: the persistent-goroutine-pool shape of a plain Go worker
// pool (e.g. the retrieval pack's go-highway workerpool.go — workers
// spawned once, fed through a channel, reused for the program's
// lifetime) and the single-producer handoff discipline of the
// teacher's LMAX disruptor (internal/disruptor/sequencer.go).
//
// spec.md §9 calls for the raw job_available/job_consumed semaphore
// pair around a shared mailbox to become "a bounded channel of
// capacity one with an explicit back-pressure reply." An *unbuffered*
// Go channel gives exactly that for free: Submit's send does not
// return until some worker's receive has taken the value, which is
// precisely the job-consumed acknowledgement the reference
// implementation built by hand out of two semaphores. No separate
// signalling primitive is needed.
package workerpool

import "github.com/rishav/cruncher/internal/bignum"

// Job is one datum contribution, published by the dispatcher and
// consumed by exactly one worker.
type Job struct {
	StreamID uint64
	Round    uint64
	Datum    *bignum.Int
}

// Processor is the callback a worker invokes for each Job it
// consumes, implemented by internal/engine against an
// internal/registry.Registry. slot is the worker's permanent
// accumulator-strip index (spec.md §4.5). The return value is the
// number of contributions this job dropped as validation no-ops.
type Processor func(job Job, slot int) (dropped int)

// Pool is a fixed set of N workers, each with a permanent slot index
// in [0, N), consuming Jobs from a single shared channel.
type Pool struct {
	jobs chan Job
	done chan struct{}
}

// New starts n workers, each invoking process for every Job it
// receives with its assigned slot index. onDrop, if non-nil, is
// called with the number of no-ops ProcessJob reported for a job
// (used to feed internal/stats without coupling this package to it).
func New(n int, process Processor, onDrop func(int)) *Pool {
	p := &Pool{
		jobs: make(chan Job), // unbuffered: see package doc
		done: make(chan struct{}),
	}
	for slot := 0; slot < n; slot++ {
		go p.worker(slot, process, onDrop)
	}
	return p
}

func (p *Pool) worker(slot int, process Processor, onDrop func(int)) {
	for {
		select {
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			dropped := process(job, slot)
			if onDrop != nil && dropped > 0 {
				onDrop(dropped)
			}
		case <-p.done:
			return
		}
	}
}

// Submit publishes job to the pool. It blocks until exactly one
// worker has received it (spec.md §5's single-outstanding-job
// invariant), so the dispatcher must not call Submit again until this
// call returns — matching the reference implementation's
// wait-on-job-consumed discipline.
func (p *Pool) Submit(job Job) {
	p.jobs <- job
}

// Close stops all workers. Pending Submit calls already blocked on
// the channel are abandoned; callers must not Submit after Close.
func (p *Pool) Close() {
	close(p.done)
}
