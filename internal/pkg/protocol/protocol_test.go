package protocol

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		line string
		want Command
	}{
		{"MENU", Command{Verb: VerbMenu, Args: []string{}}},
		{"order 3 1 2", Command{Verb: VerbOrder, Args: []string{"3", "1", "2"}}},
		{"  Pay\t3  ", Command{Verb: VerbPay, Args: []string{"3"}}},
		{"AUTH Staff", Command{Verb: VerbAuth, Args: []string{"Staff"}}},
		{"get_orders", Command{Verb: VerbGetOrders, Args: []string{}}},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := ParseCommand(tt.line)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}

	_, err := ParseCommand(" \t ")
	require.True(t, errors.Is(err, ErrEmptyCommand))
}

func TestCommandString(t *testing.T) {
	require.Equal(t, "ORDER 3 1 2", NewCommand(VerbOrder, "3", "1", "2").String())
	require.Equal(t, "QUIT", NewCommand(VerbQuit).String())
}

func TestReaderHandlesFragmentedAndCoalescedReads(t *testing.T) {
	stream := "AUTH STAFF\r\nORDER 3 1 2\n\nMENU\nPAY 3\n"
	// one byte per Read exercises fragmentation, a single Read of the whole
	// string exercises coalescing
	for name, r := range map[string]io.Reader{
		"fragmented": iotest.OneByteReader(strings.NewReader(stream)),
		"coalesced":  strings.NewReader(stream),
	} {
		t.Run(name, func(t *testing.T) {
			reader := NewReader(r, MaxLineLength)
			var verbs []Verb
			for {
				cmd, err := reader.ReadCommand()
				if errors.Is(err, io.EOF) {
					break
				}
				require.NoError(t, err)
				verbs = append(verbs, cmd.Verb)
			}
			require.Equal(t, []Verb{VerbAuth, VerbOrder, VerbMenu, VerbPay}, verbs)
		})
	}
}

func TestReaderLineTooLong(t *testing.T) {
	reader := NewReader(strings.NewReader(strings.Repeat("A", 64)+"\n"), 16)
	_, err := reader.ReadLine()
	require.True(t, errors.Is(err, ErrLineTooLong))
}

func TestResponseRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteResponse(&buf, Lines("TABLE 3", "Pho;5;50000;250000", "TOTAL 250000")))
	require.NoError(t, WriteResponse(&buf, Lines()))
	require.NoError(t, WriteResponse(&buf, Error(ReasonItemNotFound)))
	require.Equal(t, "TABLE 3\nPho;5;50000;250000\nTOTAL 250000\n\n\nERROR Item not found\n\n", buf.String())

	reader := NewReader(&buf, MaxLineLength)
	resp, err := reader.ReadResponse()
	require.NoError(t, err)
	require.Equal(t, "TABLE 3\nPho;5;50000;250000\nTOTAL 250000", resp.String())

	resp, err = reader.ReadResponse()
	require.NoError(t, err)
	require.Empty(t, resp.Body)

	resp, err = reader.ReadResponse()
	require.NoError(t, err)
	reason, ok := resp.ErrorReason()
	require.True(t, ok)
	require.Equal(t, ReasonItemNotFound, reason)

	_, err = reader.ReadResponse()
	require.True(t, errors.Is(err, io.EOF))
}

func TestReadResponseTruncated(t *testing.T) {
	reader := NewReader(strings.NewReader("TABLE 3\nPho;1;1;1\n"), MaxLineLength)
	_, err := reader.ReadResponse()
	require.True(t, errors.Is(err, io.ErrUnexpectedEOF))
}

func TestResponseHelpers(t *testing.T) {
	detail, ok := OK("100000").OKDetail()
	require.True(t, ok)
	require.Equal(t, "100000", detail)

	_, ok = Lines(Empty).ErrorReason()
	require.False(t, ok)
	require.True(t, Lines(Bye).Is(Bye))
	require.False(t, Lines(Bye, Bye).Is(Bye))
}
