// Package telemetry decouples the dispatcher's hot path from slow
// observers by fanning round-completion reports out over buffered
// channels, the same non-blocking subscriber pattern
// internal/marketdata/publisher.go uses to fan out L1 quotes and
// trade reports without letting a slow subscriber stall order
// processing.
//
// Nothing here is required for wire-protocol correctness (spec.md
// §6.1's reply is built and sent by internal/engine regardless of
// whether anything is subscribed); it exists purely so
// cmd/cruncherd can log a per-round summary without adding that cost
// to the dispatcher's critical section.
package telemetry

import (
	"sync"
	"time"
)

// RoundReport summarizes one drained round.
type RoundReport struct {
	Round      uint64
	NumResults int
	Elapsed    time.Duration
}

// Publisher fans RoundReports out to subscribers. Publishing never
// blocks: a subscriber whose buffer is full simply misses the report.
type Publisher struct {
	mu   sync.RWMutex
	subs []chan RoundReport
}

// NewPublisher creates an empty Publisher.
func NewPublisher() *Publisher {
	return &Publisher{}
}

// Subscribe registers a new channel of the given buffer size and
// returns it.
func (p *Publisher) Subscribe(bufferSize int) <-chan RoundReport {
	if bufferSize <= 0 {
		bufferSize = 16
	}
	ch := make(chan RoundReport, bufferSize)
	p.mu.Lock()
	p.subs = append(p.subs, ch)
	p.mu.Unlock()
	return ch
}

// Publish sends report to every subscriber, dropping it for any
// subscriber whose buffer is currently full.
func (p *Publisher) Publish(report RoundReport) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, ch := range p.subs {
		select {
		case ch <- report:
		default:
		}
	}
}

// Close closes every subscriber channel. Publish must not be called
// after Close.
func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, ch := range p.subs {
		close(ch)
	}
	p.subs = nil
}
