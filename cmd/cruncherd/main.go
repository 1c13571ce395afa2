// Command cruncherd is the cruncher worker daemon of spec.md §6.2: it
// dials out to a central server, then feeds every command it reads
// off that connection into an internal/engine.Engine until the
// connection closes or a protocol error tears it down.
//
// The dial-out direction matches the reference implementation: the
// worker is a client of the fleet's central server
// (create_connection(host, port), never a listener), not the other
// way around.
package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/golang/glog"

	"github.com/rishav/cruncher/internal/engine"
)

const (
	minWorkers = 1
	maxWorkers = 1024

	minTradeoff = 0
	maxTradeoff = 16

	heartbeatInterval = 30 * time.Second
	reportBufferSize  = 64
)

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("cruncherd", flag.ContinueOnError)
	workers := fs.Int("t", 8, "worker-pool size, clamped to [1, 1024]")
	tradeoff := fs.Int("z", 8, "default acceleration-table width, clamped to [0, 16]")
	fs.SetOutput(os.Stderr)

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 2 {
		fmt.Fprintf(os.Stderr, "usage: cruncherd [-t N] [-z K] <host> <port>\n")
		return 2
	}
	host, port := fs.Arg(0), fs.Arg(1)

	cfg := engine.Config{
		WorkerCount:     clamp(*workers, minWorkers, maxWorkers),
		DefaultTradeoff: clamp(*tradeoff, minTradeoff, maxTradeoff),
	}

	conn, err := net.Dial("tcp", net.JoinHostPort(host, port))
	if err != nil {
		glog.Errorf("cruncherd: connect to %s:%s failed: %v", host, port, err)
		return 1
	}
	defer conn.Close()
	glog.Infof("cruncherd: connected to %s:%s (workers=%d, tradeoff=%d)", host, port, cfg.WorkerCount, cfg.DefaultTradeoff)

	e := engine.New(cfg)
	defer e.Close()

	stopHeartbeat := make(chan struct{})
	defer close(stopHeartbeat)
	go logHeartbeat(e, stopHeartbeat)
	go logReports(e, stopHeartbeat)

	if err := e.Serve(conn); err != nil {
		glog.Errorf("cruncherd: connection terminated: %v", err)
		return 1
	}
	glog.Info("cruncherd: command stream closed cleanly")
	return 0
}

// logHeartbeat periodically logs the engine's counters, per
// SPEC_FULL.md's S3: purely observational, never touched by the wire
// protocol itself.
func logHeartbeat(e *engine.Engine, stop <-chan struct{}) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c := e.Stats().Snapshot()
			glog.Infof("cruncherd: heartbeat subs=%d entries=%d rounds=%d commands=%d protocol_errors=%d dropped=%d",
				c.SubscriptionsActive, c.EntriesInstalled, c.RoundsCompleted, c.CommandsProcessed, c.ProtocolErrors, c.DroppedNoOps)
		case <-stop:
			return
		}
	}
}

// logReports drains the engine's per-round telemetry and logs a
// summary line for each, per SPEC_FULL.md's S4.
func logReports(e *engine.Engine, stop <-chan struct{}) {
	reports := e.Reports().Subscribe(reportBufferSize)
	for {
		select {
		case report, ok := <-reports:
			if !ok {
				return
			}
			glog.Infof("cruncherd: round %d done, %d results, %s", report.Round, report.NumResults, report.Elapsed)
		case <-stop:
			return
		}
	}
}
