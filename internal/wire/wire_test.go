package wire

import (
	"bufio"
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCommandRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSubscribe(&buf, 1, "65"))
	require.NoError(t, WriteAddEntry(&buf, 1, 2, "02"))
	require.NoError(t, WriteRemove(&buf, 1))
	require.NoError(t, WriteContribute(&buf, 2, 7, "0a"))
	require.NoError(t, WriteReplyRequest(&buf, 7))
	require.NoError(t, WriteStatusRequest(&buf))

	r := bufio.NewReader(&buf)

	cmd, err := ReadCommand(r)
	require.NoError(t, err)
	require.Equal(t, Command{Type: TypeSubscribe, SubID: 1, Hex: "65"}, cmd)

	cmd, err = ReadCommand(r)
	require.NoError(t, err)
	require.Equal(t, Command{Type: TypeAddEntry, SubID: 1, StreamID: 2, Hex: "02"}, cmd)

	cmd, err = ReadCommand(r)
	require.NoError(t, err)
	require.Equal(t, Command{Type: TypeRemove, SubID: 1}, cmd)

	cmd, err = ReadCommand(r)
	require.NoError(t, err)
	require.Equal(t, Command{Type: TypeContribute, StreamID: 2, Round: 7, Hex: "0a"}, cmd)

	cmd, err = ReadCommand(r)
	require.NoError(t, err)
	require.Equal(t, Command{Type: TypeReply, Round: 7}, cmd)

	cmd, err = ReadCommand(r)
	require.NoError(t, err)
	require.Equal(t, Command{Type: TypeStatus}, cmd)
}

func TestReadCommandUnknownByteIsProtocolError(t *testing.T) {
	r := bufio.NewReader(strings.NewReader("x"))
	_, err := ReadCommand(r)
	require.Error(t, err)
	var pe *ProtocolError
	require.ErrorAs(t, err, &pe)
}

func TestReadCommandCleanEOF(t *testing.T) {
	r := bufio.NewReader(strings.NewReader(""))
	_, err := ReadCommand(r)
	require.ErrorIs(t, err, io.EOF)
}

func TestReplyRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	fields := []ReplyField{
		{SubID: 1, ResultHex: "e"},
		{SubID: 2, ResultHex: "1c"},
	}
	require.NoError(t, WriteReply(&buf, fields))

	r := bufio.NewReader(&buf)
	got, err := ReadReply(r)
	require.NoError(t, err)
	require.Equal(t, fields, got)
}

func TestU64FieldsAreLittleEndian(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteReply(&buf, []ReplyField{{SubID: 0x0102030405060708, ResultHex: "e"}}))
	require.Equal(t, []byte{
		1, 0, 0, 0, 0, 0, 0, 0, // num_fields
		8, 7, 6, 5, 4, 3, 2, 1, // sub_id
		'e', 0,
	}, buf.Bytes())

	buf.Reset()
	require.NoError(t, WriteReplyRequest(&buf, 0x0a0b))
	require.Equal(t, []byte{TypeReply, 0x0b, 0x0a, 0, 0, 0, 0, 0, 0}, buf.Bytes())
}

func TestHexFieldOverflowIsProtocolError(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteByte(TypeSubscribe)
	buf.Write(make([]byte, 8)) // sub_id
	buf.Write(bytes.Repeat([]byte{'a'}, MaxFieldLen+1))
	buf.WriteByte(0)

	r := bufio.NewReader(&buf)
	_, err := ReadCommand(r)
	require.Error(t, err)
	var pe *ProtocolError
	require.ErrorAs(t, err, &pe)
}

func TestWriteStatusBanner(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteStatus(&buf))
	require.Equal(t, "Status.\n", buf.String())
}
