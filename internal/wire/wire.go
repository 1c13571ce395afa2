// Package wire implements the byte-level command/reply framing of
// spec.md §6.1. spec.md §1 treats the TCP connection and its framing
// as an external collaborator to the core proper, but a runnable
// worker still needs a concrete codec, so this package supplies one:
// a small, explicit encode/decode layer that internal/engine's
// dispatcher drives one command at a time.
//
// spec.md §9's Open Question on reply byte order is resolved here:
// all u64 fields are little-endian, fixed and documented, rather than
// the reference implementation's unspecified host byte order.
package wire

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
)

// Command type bytes, per spec.md §6.1.
const (
	TypeSubscribe   = 's'
	TypeAddEntry    = 'a'
	TypeRemove      = 'd'
	TypeContribute  = 'c'
	TypeReply       = 'r'
	TypeStatus      = 'i'
)

// MaxFieldLen is the bound on a single NUL-terminated hex field; a
// field of MaxFieldLen bytes or more is a protocol error per spec.md
// §6.1.
const MaxFieldLen = 65536

// StatusBanner is the fixed 8-byte reply to an `i` command.
const StatusBanner = "Status.\n"

// ProtocolError is returned for anything spec.md §7 classifies as a
// protocol error: an unknown command byte, an oversized hex field, or
// malformed hex (the last is detected one layer up, in
// internal/bignum, and wrapped as a ProtocolError by internal/engine
// before it tears the connection down).
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error: %s", e.Reason)
}

// Command is a decoded inbound command. Type selects which of the
// remaining fields are meaningful, matching spec.md §6.1's per-byte
// payload table.
type Command struct {
	Type     byte
	SubID    uint64 // s, a, d
	StreamID uint64 // a, c
	Round    uint64 // c, r
	Hex      string // modulus_hex (s) / base_hex (a) / datum_hex (c)
}

// ReadCommand decodes one command from r. A nil, io.EOF return means
// clean transport shutdown (spec.md §7); any other error is a
// protocol error and the connection must be torn down.
func ReadCommand(r *bufio.Reader) (_ Command, err error) {
	t, err := r.ReadByte()
	if err != nil {
		return Command{}, err
	}
	// EOF after the type byte is a truncated command, not a clean close.
	defer func() {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
	}()

	cmd := Command{Type: t}
	switch t {
	case TypeSubscribe:
		cmd.SubID, err = readU64(r)
		if err != nil {
			return Command{}, err
		}
		cmd.Hex, err = readCStr(r)
	case TypeAddEntry:
		if cmd.SubID, err = readU64(r); err != nil {
			return Command{}, err
		}
		if cmd.StreamID, err = readU64(r); err != nil {
			return Command{}, err
		}
		cmd.Hex, err = readCStr(r)
	case TypeRemove:
		cmd.SubID, err = readU64(r)
	case TypeContribute:
		if cmd.StreamID, err = readU64(r); err != nil {
			return Command{}, err
		}
		if cmd.Round, err = readU64(r); err != nil {
			return Command{}, err
		}
		cmd.Hex, err = readCStr(r)
	case TypeReply:
		cmd.Round, err = readU64(r)
	case TypeStatus:
		// no payload
	default:
		return Command{}, &ProtocolError{Reason: fmt.Sprintf("unknown command byte %q", t)}
	}
	if err != nil {
		return Command{}, err
	}
	return cmd, nil
}

// ReplyField is one (sub_id, result_hex) pair in an `r` reply.
type ReplyField struct {
	SubID     uint64
	ResultHex string
}

// WriteReply writes the num_fields-prefixed reply of spec.md §6.1.
func WriteReply(w io.Writer, fields []ReplyField) error {
	if err := writeU64(w, uint64(len(fields))); err != nil {
		return err
	}
	for _, f := range fields {
		if err := writeU64(w, f.SubID); err != nil {
			return err
		}
		if err := writeCStr(w, f.ResultHex); err != nil {
			return err
		}
	}
	return nil
}

// WriteStatus writes the fixed banner reply to an `i` command.
func WriteStatus(w io.Writer) error {
	_, err := io.WriteString(w, StatusBanner)
	return err
}

// WriteSubscribe, WriteAddEntry, WriteRemove, WriteContribute and
// WriteReplyRequest are the client-side encoders, used by
// cmd/cruncherctl to drive a running worker the way a real central
// server would.

func WriteSubscribe(w io.Writer, subID uint64, modulusHex string) error {
	if err := writeByte(w, TypeSubscribe); err != nil {
		return err
	}
	if err := writeU64(w, subID); err != nil {
		return err
	}
	return writeCStr(w, modulusHex)
}

func WriteAddEntry(w io.Writer, subID, streamID uint64, baseHex string) error {
	if err := writeByte(w, TypeAddEntry); err != nil {
		return err
	}
	if err := writeU64(w, subID); err != nil {
		return err
	}
	if err := writeU64(w, streamID); err != nil {
		return err
	}
	return writeCStr(w, baseHex)
}

func WriteRemove(w io.Writer, subID uint64) error {
	if err := writeByte(w, TypeRemove); err != nil {
		return err
	}
	return writeU64(w, subID)
}

func WriteContribute(w io.Writer, streamID, round uint64, datumHex string) error {
	if err := writeByte(w, TypeContribute); err != nil {
		return err
	}
	if err := writeU64(w, streamID); err != nil {
		return err
	}
	if err := writeU64(w, round); err != nil {
		return err
	}
	return writeCStr(w, datumHex)
}

func WriteReplyRequest(w io.Writer, round uint64) error {
	if err := writeByte(w, TypeReply); err != nil {
		return err
	}
	return writeU64(w, round)
}

func WriteStatusRequest(w io.Writer) error {
	return writeByte(w, TypeStatus)
}

// ReadReply decodes the reply to an `r` command, for cmd/cruncherctl.
func ReadReply(r *bufio.Reader) ([]ReplyField, error) {
	n, err := readU64(r)
	if err != nil {
		return nil, err
	}
	fields := make([]ReplyField, 0, n)
	for i := uint64(0); i < n; i++ {
		subID, err := readU64(r)
		if err != nil {
			return nil, err
		}
		hex, err := readCStr(r)
		if err != nil {
			return nil, err
		}
		fields = append(fields, ReplyField{SubID: subID, ResultHex: hex})
	}
	return fields, nil
}

func readU64(r io.Reader) (uint64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}

func writeU64(w io.Writer, v uint64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}

func writeByte(w io.Writer, b byte) error {
	_, err := w.Write([]byte{b})
	return err
}

func readCStr(r *bufio.Reader) (string, error) {
	buf := make([]byte, 0, 64)
	for {
		b, err := r.ReadByte()
		if err != nil {
			return "", err
		}
		if b == 0 {
			return string(buf), nil
		}
		buf = append(buf, b)
		if len(buf) >= MaxFieldLen {
			return "", &ProtocolError{Reason: fmt.Sprintf("hex field exceeds %d bytes", MaxFieldLen)}
		}
	}
}

func writeCStr(w io.Writer, s string) error {
	if _, err := io.WriteString(w, s); err != nil {
		return err
	}
	_, err := w.Write([]byte{0})
	return err
}
