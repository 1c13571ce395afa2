package engine

import (
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rishav/cruncher/internal/wire"
)

// harness wires an Engine to one end of an in-process pipe and treats
// the other end as the central server, the same role cmd/cruncherd's
// TCP connection plays in production.
type harness struct {
	t    *testing.T
	r    *bufio.Reader
	w    *bufio.Writer
	conn net.Conn
	done chan error
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	serverSide, workerSide := net.Pipe()

	e := New(cfg)
	done := make(chan error, 1)
	go func() {
		done <- e.Serve(workerSide)
	}()
	t.Cleanup(func() {
		serverSide.Close()
		e.Close()
	})

	return &harness{
		t:    t,
		r:    bufio.NewReader(serverSide),
		w:    bufio.NewWriter(serverSide),
		conn: serverSide,
		done: done,
	}
}

func (h *harness) flush() {
	h.t.Helper()
	require.NoError(h.t, h.w.Flush())
}

func (h *harness) reply(round uint64) []wire.ReplyField {
	h.t.Helper()
	require.NoError(h.t, wire.WriteReplyRequest(h.w, round))
	h.flush()
	h.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	fields, err := wire.ReadReply(h.r)
	require.NoError(h.t, err)
	return fields
}

func fieldsBySubID(fields []wire.ReplyField) map[uint64]string {
	m := make(map[uint64]string, len(fields))
	for _, f := range fields {
		m[f.SubID] = f.ResultHex
	}
	return m
}

// TestS1SingleSubscriptionSingleStream implements spec.md §8 scenario
// S1: 2^10 mod 101 = 14 = "e".
func TestS1SingleSubscriptionSingleStream(t *testing.T) {
	h := newHarness(t, Config{WorkerCount: 2, DefaultTradeoff: 0})

	require.NoError(t, wire.WriteSubscribe(h.w, 1, "65"))
	require.NoError(t, wire.WriteAddEntry(h.w, 1, 1, "02"))
	require.NoError(t, wire.WriteContribute(h.w, 1, 1, "0a"))
	h.flush()

	fields := h.reply(1)
	require.Len(t, fields, 1)
	require.Equal(t, "e", fields[0].ResultHex)
}

// TestS2TwoContributionsSameRound implements spec.md §8 scenario S2:
// (2^4 * 3^3) mod 101 = 432 mod 101 = 28 = "1c".
func TestS2TwoContributionsSameRound(t *testing.T) {
	h := newHarness(t, Config{WorkerCount: 2, DefaultTradeoff: 0})

	require.NoError(t, wire.WriteSubscribe(h.w, 1, "65"))
	require.NoError(t, wire.WriteAddEntry(h.w, 1, 1, "02"))
	require.NoError(t, wire.WriteAddEntry(h.w, 1, 2, "03"))
	require.NoError(t, wire.WriteContribute(h.w, 1, 1, "04"))
	require.NoError(t, wire.WriteContribute(h.w, 2, 1, "03"))
	h.flush()

	fields := h.reply(1)
	require.Len(t, fields, 1)
	require.Equal(t, "1c", fields[0].ResultHex)
}

// TestS3MultiSubscriptionIsolation implements spec.md §8 scenario S3.
func TestS3MultiSubscriptionIsolation(t *testing.T) {
	h := newHarness(t, Config{WorkerCount: 2, DefaultTradeoff: 0})

	require.NoError(t, wire.WriteSubscribe(h.w, 1, "07"))
	require.NoError(t, wire.WriteSubscribe(h.w, 2, "0b"))
	require.NoError(t, wire.WriteAddEntry(h.w, 1, 1, "03"))
	require.NoError(t, wire.WriteAddEntry(h.w, 2, 1, "03"))
	require.NoError(t, wire.WriteContribute(h.w, 1, 1, "05"))
	h.flush()

	byID := fieldsBySubID(h.reply(1))
	require.Equal(t, "5", byID[1])
	require.Equal(t, "1", byID[2])
}

// TestS4UnknownStreamIsNoOp implements spec.md §8 scenario S4.
func TestS4UnknownStreamIsNoOp(t *testing.T) {
	h := newHarness(t, Config{WorkerCount: 2, DefaultTradeoff: 0})

	require.NoError(t, wire.WriteSubscribe(h.w, 1, "65"))
	require.NoError(t, wire.WriteAddEntry(h.w, 1, 1, "02"))
	require.NoError(t, wire.WriteContribute(h.w, 99, 1, "05"))
	h.flush()

	fields := h.reply(1)
	require.Len(t, fields, 1)
	require.Equal(t, "1", fields[0].ResultHex)
}

// TestS5RoundReuseAfterReply implements spec.md §8 scenario S5: round
// 1 can be run twice with fresh contributions, and round state does
// not leak between runs.
func TestS5RoundReuseAfterReply(t *testing.T) {
	h := newHarness(t, Config{WorkerCount: 2, DefaultTradeoff: 0})

	require.NoError(t, wire.WriteSubscribe(h.w, 1, "65"))
	require.NoError(t, wire.WriteAddEntry(h.w, 1, 1, "02"))
	h.flush()

	for i := 0; i < 2; i++ {
		require.NoError(t, wire.WriteContribute(h.w, 1, 1, "0a"))
		h.flush()
		fields := h.reply(1)
		require.Len(t, fields, 1)
		require.Equal(t, "e", fields[0].ResultHex)
	}

	// Round 1 never saw another `c` after the second reply: draining it
	// again must behave as the no-`c`-ever-issued case (empty reply),
	// not replay stale results.
	fields := h.reply(1)
	require.Empty(t, fields)
}

// TestS6TableWidthEquivalence implements spec.md §8 scenario S6: for
// k in {0, 1, 4, 8}, the same (sub, entry, contribution) inputs
// produce bit-identical replies.
func TestS6TableWidthEquivalence(t *testing.T) {
	for _, k := range []int{0, 1, 4, 8} {
		h := newHarness(t, Config{WorkerCount: 2, DefaultTradeoff: k})

		require.NoError(t, wire.WriteSubscribe(h.w, 1, "65"))
		require.NoError(t, wire.WriteAddEntry(h.w, 1, 1, "02"))
		require.NoError(t, wire.WriteContribute(h.w, 1, 1, "0a"))
		h.flush()

		fields := h.reply(1)
		require.Len(t, fields, 1)
		require.Equalf(t, "e", fields[0].ResultHex, "k=%d", k)
	}
}

// TestStatusBanner covers the `i` command of spec.md §6.1.
func TestStatusBanner(t *testing.T) {
	h := newHarness(t, Config{WorkerCount: 1, DefaultTradeoff: 0})

	require.NoError(t, wire.WriteStatusRequest(h.w))
	h.flush()

	banner := make([]byte, len(wire.StatusBanner))
	h.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, err := h.r.Read(banner)
	require.NoError(t, err)
	require.Equal(t, wire.StatusBanner, string(banner))
}

// TestUnknownCommandByteTearsDownConnection covers spec.md §7:
// protocol errors end the connection.
func TestUnknownCommandByteTearsDownConnection(t *testing.T) {
	h := newHarness(t, Config{WorkerCount: 1, DefaultTradeoff: 0})

	_, err := h.conn.Write([]byte{'z'})
	require.NoError(t, err)

	select {
	case err := <-h.done:
		require.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after an unknown command byte")
	}
}
