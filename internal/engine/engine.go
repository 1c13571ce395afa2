// Package engine is the command dispatcher of spec.md §4.6: the
// single typed handle spec.md §9 calls for in place of the reference
// implementation's process-wide globals. An Engine owns the
// registry, the worker pool, and the supporting stats/telemetry
// collaborators, and drives one connection's command stream end to
// end — decode, mutate, fan out, reply.
//
// Shaped after cmd/server/main.go's per-connection handler loop: one
// goroutine per TCP connection, reading framed messages until EOF or
// a fatal decode error, with every mutation routed through a single
// owning type rather than package-level state.
package engine

import (
	"bufio"
	"io"
	"net"
	"time"

	"github.com/golang/glog"

	"github.com/rishav/cruncher/internal/bignum"
	"github.com/rishav/cruncher/internal/entry"
	"github.com/rishav/cruncher/internal/registry"
	"github.com/rishav/cruncher/internal/stats"
	"github.com/rishav/cruncher/internal/telemetry"
	"github.com/rishav/cruncher/internal/wire"
	"github.com/rishav/cruncher/internal/workerpool"
)

// Config bundles the start-up parameters of spec.md §6.2.
type Config struct {
	WorkerCount     int // -t, clamped to [1, 1024] by the caller
	DefaultTradeoff int // -z, clamped to [0, 16] by the caller
}

// Engine aggregates every piece of mutable dispatcher state behind
// one value: the registry (subscriptions, rounds, barriers), the
// worker pool, and the stats/telemetry collaborators. Nothing in this
// package is a package-level variable; a process that wanted two
// independent workers side by side could construct two Engines.
type Engine struct {
	cfg      Config
	registry *registry.Registry
	pool     *workerpool.Pool
	stats    *stats.Tracker
	reports  *telemetry.Publisher
}

// New constructs an Engine and starts its worker pool.
func New(cfg Config) *Engine {
	e := &Engine{
		cfg:      cfg,
		registry: registry.New(cfg.WorkerCount, entry.BitWidth),
		stats:    stats.NewTracker(),
		reports:  telemetry.NewPublisher(),
	}
	e.pool = workerpool.New(cfg.WorkerCount, e.process, e.recordDrop)
	return e
}

// Stats returns the Engine's counter tracker, for a periodic
// background logger such as cmd/cruncherd's heartbeat.
func (e *Engine) Stats() *stats.Tracker { return e.stats }

// Reports returns the Engine's telemetry publisher, for subscribers
// that want a per-round summary without touching the hot path.
func (e *Engine) Reports() *telemetry.Publisher { return e.reports }

// Close stops the worker pool and telemetry fan-out. Serve must not
// be called again afterward.
func (e *Engine) Close() {
	e.pool.Close()
	e.reports.Close()
}

// process implements workerpool.Processor against the registry, the
// callback each pool worker invokes for every Job it consumes.
func (e *Engine) process(job workerpool.Job, slot int) int {
	return e.registry.ProcessJob(job.StreamID, job.Round, job.Datum, slot)
}

func (e *Engine) recordDrop(n int) {
	glog.Warningf("engine: dropped %d contribution(s) whose exponent exceeds the entry's table width", n)
	for i := 0; i < n; i++ {
		e.stats.DroppedNoOp()
	}
}

// Serve drives one connection's command stream to completion: it
// reads and dispatches commands until the peer disconnects cleanly
// (spec.md §6.2 exit code 0) or a protocol error tears the connection
// down (exit code conventions are cmd/cruncherd's concern; Serve just
// reports which it was). spec.md §4.1 treats the core as a single
// connection, single peer; Serve's caller is responsible for not
// calling it concurrently for the same Engine from two connections,
// since every Serve call on one Engine shares that Engine's registry
// and round state (one fleet node, one upstream server).
func (e *Engine) Serve(conn net.Conn) error {
	r := bufio.NewReader(conn)
	w := bufio.NewWriter(conn)

	for {
		cmd, err := wire.ReadCommand(r)
		if err != nil {
			if err == io.EOF {
				glog.Info("engine: clean EOF on command stream")
				return nil
			}
			e.stats.ProtocolError()
			glog.Errorf("engine: protocol error reading command: %v", err)
			return err
		}

		if err := e.dispatch(cmd, w); err != nil {
			e.stats.ProtocolError()
			glog.Errorf("engine: protocol error handling command %q: %v", cmd.Type, err)
			return err
		}
		e.stats.CommandProcessed()
	}
}

func (e *Engine) dispatch(cmd wire.Command, w *bufio.Writer) error {
	switch cmd.Type {
	case wire.TypeSubscribe:
		modulus, err := bignum.FromHex(cmd.Hex)
		if err != nil {
			return &wire.ProtocolError{Reason: err.Error()}
		}
		before := e.registry.SubscriptionCount()
		e.registry.AddSubscription(cmd.SubID, modulus)
		e.stats.IncSubscriptions(e.registry.SubscriptionCount() - before)
		return nil

	case wire.TypeAddEntry:
		base, err := bignum.FromHex(cmd.Hex)
		if err != nil {
			return &wire.ProtocolError{Reason: err.Error()}
		}
		if e.registry.AddEntry(cmd.SubID, cmd.StreamID, base, e.cfg.DefaultTradeoff) {
			e.stats.IncEntries(1)
		} else {
			e.stats.DroppedNoOp()
		}
		return nil

	case wire.TypeRemove:
		if e.registry.RemoveSubscription(cmd.SubID) {
			e.stats.IncSubscriptions(-1)
		} else {
			e.stats.DroppedNoOp()
		}
		return nil

	case wire.TypeContribute:
		datum, err := bignum.FromHex(cmd.Hex)
		if err != nil {
			return &wire.ProtocolError{Reason: err.Error()}
		}
		e.registry.BeginJob(cmd.Round)
		e.pool.Submit(workerpool.Job{StreamID: cmd.StreamID, Round: cmd.Round, Datum: datum})
		return nil

	case wire.TypeReply:
		return e.drainAndReply(cmd.Round, w)

	case wire.TypeStatus:
		if err := wire.WriteStatus(w); err != nil {
			return err
		}
		return w.Flush()

	default:
		return &wire.ProtocolError{Reason: "unreachable: wire.ReadCommand should have rejected this"}
	}
}

func (e *Engine) drainAndReply(round uint64, w *bufio.Writer) error {
	start := time.Now()
	results, _ := e.registry.Drain(round)

	fields := make([]wire.ReplyField, len(results))
	for i, res := range results {
		fields[i] = wire.ReplyField{SubID: res.SubID, ResultHex: res.Value.Hex()}
	}
	if err := wire.WriteReply(w, fields); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return err
	}

	e.stats.RoundCompleted()
	e.reports.Publish(telemetry.RoundReport{
		Round:      round,
		NumResults: len(results),
		Elapsed:    time.Since(start),
	})
	return nil
}
