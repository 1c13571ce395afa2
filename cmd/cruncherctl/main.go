// Command cruncherctl is a manual test client for a running cruncherd,
// mirroring cmd/client/main.go's one-subcommand-per-invocation style
// but speaking the binary wire protocol of spec.md §6.1 instead of
// JSON-over-HTTP.
//
// cruncherd always dials out (it is the fleet node, not the central
// server), so cruncherctl plays the server's role for manual testing:
// each invocation listens on an address, waits for exactly one worker
// to connect, sends one command (or a scripted sequence, for "demo"),
// prints any reply, then exits.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"net"
	"os"

	"github.com/rishav/cruncher/internal/wire"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "sub":
		fs := flag.NewFlagSet("sub", flag.ExitOnError)
		listenAddr := fs.String("listen", "localhost:9000", "address to wait for a cruncherd on")
		id := fs.Uint64("id", 1, "subscription id")
		modulus := fs.String("modulus", "", "modulus, hex")
		fs.Parse(os.Args[2:])
		withWorker(*listenAddr, func(r *bufio.Reader, w *bufio.Writer) error {
			return wire.WriteSubscribe(w, *id, *modulus)
		})

	case "entry":
		fs := flag.NewFlagSet("entry", flag.ExitOnError)
		listenAddr := fs.String("listen", "localhost:9000", "address to wait for a cruncherd on")
		sub := fs.Uint64("sub", 1, "subscription id")
		stream := fs.Uint64("stream", 1, "stream id")
		base := fs.String("base", "", "base, hex")
		fs.Parse(os.Args[2:])
		withWorker(*listenAddr, func(r *bufio.Reader, w *bufio.Writer) error {
			return wire.WriteAddEntry(w, *sub, *stream, *base)
		})

	case "remove":
		fs := flag.NewFlagSet("remove", flag.ExitOnError)
		listenAddr := fs.String("listen", "localhost:9000", "address to wait for a cruncherd on")
		id := fs.Uint64("id", 1, "subscription id")
		fs.Parse(os.Args[2:])
		withWorker(*listenAddr, func(r *bufio.Reader, w *bufio.Writer) error {
			return wire.WriteRemove(w, *id)
		})

	case "contribute":
		fs := flag.NewFlagSet("contribute", flag.ExitOnError)
		listenAddr := fs.String("listen", "localhost:9000", "address to wait for a cruncherd on")
		stream := fs.Uint64("stream", 1, "stream id")
		round := fs.Uint64("round", 1, "round number")
		datum := fs.String("datum", "", "datum, hex")
		fs.Parse(os.Args[2:])
		withWorker(*listenAddr, func(r *bufio.Reader, w *bufio.Writer) error {
			return wire.WriteContribute(w, *stream, *round, *datum)
		})

	case "reply":
		fs := flag.NewFlagSet("reply", flag.ExitOnError)
		listenAddr := fs.String("listen", "localhost:9000", "address to wait for a cruncherd on")
		round := fs.Uint64("round", 1, "round number")
		fs.Parse(os.Args[2:])
		withWorker(*listenAddr, func(r *bufio.Reader, w *bufio.Writer) error {
			if err := wire.WriteReplyRequest(w, *round); err != nil {
				return err
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fields, err := wire.ReadReply(r)
			if err != nil {
				return err
			}
			for _, f := range fields {
				fmt.Printf("sub_id=%d result=%s\n", f.SubID, f.ResultHex)
			}
			return nil
		})

	case "status":
		fs := flag.NewFlagSet("status", flag.ExitOnError)
		listenAddr := fs.String("listen", "localhost:9000", "address to wait for a cruncherd on")
		fs.Parse(os.Args[2:])
		withWorker(*listenAddr, func(r *bufio.Reader, w *bufio.Writer) error {
			if err := wire.WriteStatusRequest(w); err != nil {
				return err
			}
			if err := w.Flush(); err != nil {
				return err
			}
			banner := make([]byte, len(wire.StatusBanner))
			if _, err := r.Read(banner); err != nil {
				return err
			}
			fmt.Print(string(banner))
			return nil
		})

	case "demo":
		fs := flag.NewFlagSet("demo", flag.ExitOnError)
		listenAddr := fs.String("listen", "localhost:9000", "address to wait for a cruncherd on")
		fs.Parse(os.Args[2:])
		runDemo(*listenAddr)

	default:
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`cruncherctl - manual driver for a cruncherd worker

Usage:
  cruncherctl <command> [options]

Commands:
  sub         Register a subscription
  entry       Install/replace an entry
  remove      Remove a subscription
  contribute  Contribute one datum
  reply       Request a round's reply
  status      Request the status banner
  demo        Run a short scripted interaction

Every command listens on -listen (default localhost:9000) and waits
for exactly one cruncherd to dial in before sending anything.`)
}

// withWorker listens on addr, accepts one connection, runs fn against
// it, then closes both the connection and the listener.
func withWorker(addr string, fn func(r *bufio.Reader, w *bufio.Writer) error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "listen on %s: %v\n", addr, err)
		os.Exit(1)
	}
	defer ln.Close()

	fmt.Fprintf(os.Stderr, "waiting for a cruncherd on %s...\n", addr)
	conn, err := ln.Accept()
	if err != nil {
		fmt.Fprintf(os.Stderr, "accept: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close()

	r := bufio.NewReader(conn)
	w := bufio.NewWriter(conn)
	if err := fn(r, w); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if err := w.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "flush: %v\n", err)
		os.Exit(1)
	}
}

// runDemo drives a single connected worker through a small scripted
// sequence: one subscription, one entry, one contribution, then a
// reply request, printing the result.
func runDemo(addr string) {
	withWorker(addr, func(r *bufio.Reader, w *bufio.Writer) error {
		steps := []struct {
			name string
			fn   func() error
		}{
			{"s", func() error { return wire.WriteSubscribe(w, 1, "65") }},        // modulus 101
			{"a", func() error { return wire.WriteAddEntry(w, 1, 1, "5") }},       // base 5
			{"c", func() error { return wire.WriteContribute(w, 1, 1, "3") }},     // datum 3
			{"r", func() error { return wire.WriteReplyRequest(w, 1) }},
		}
		for _, step := range steps {
			if err := step.fn(); err != nil {
				return fmt.Errorf("demo step %q: %w", step.name, err)
			}
			if err := w.Flush(); err != nil {
				return fmt.Errorf("demo step %q flush: %w", step.name, err)
			}
		}
		fields, err := wire.ReadReply(r)
		if err != nil {
			return fmt.Errorf("demo reply: %w", err)
		}
		for _, f := range fields {
			fmt.Printf("sub_id=%d result=%s\n", f.SubID, f.ResultHex)
		}
		return nil
	})
}
