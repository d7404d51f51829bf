package cli

import (
	"bufio"
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func rdr(s string) *bufio.Reader {
	return bufio.NewReader(strings.NewReader(s))
}

// fakeTerminal swaps the terminal seams for the duration of a test.
func fakeTerminal(t *testing.T, terminal bool, read func(int) ([]byte, error)) {
	t.Helper()
	oldRead, oldIs := readPassword, isTerminal
	t.Cleanup(func() { readPassword, isTerminal = oldRead, oldIs })
	isTerminal = func(int) bool { return terminal }
	if read != nil {
		readPassword = read
	}
}

func TestGetSimpleText(t *testing.T) {
	var out bytes.Buffer
	got, err := GetSimpleText(rdr("hello world\n"), "Name?", &out)
	require.NoError(t, err)
	require.Equal(t, "hello world", got)
	require.Equal(t, "Name?\n> ", out.String())
}

func TestGetSimpleTextEOF(t *testing.T) {
	var out bytes.Buffer
	got, err := GetSimpleText(rdr("lastline"), "Name?", &out)
	require.NoError(t, err)
	require.Equal(t, "lastline", got)

	_, err = GetSimpleText(rdr(""), "Name?", &out)
	require.Error(t, err)
}

func TestGetMultiline(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "double enter", input: "a\nb\n\n\n", want: "a\nb"},
		{name: "windows newlines", input: "a\r\nb\r\n\r\n", want: "a\nb"},
		{name: "eof without blank line", input: "a\nb", want: "a\nb"},
		{name: "immediate blank line", input: "\n", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			got, err := GetMultiline(rdr(tt.input), "Enter text", &out)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestGetPassword_Terminal(t *testing.T) {
	fakeTerminal(t, true, func(int) ([]byte, error) { return []byte("s3cret"), nil })

	var out bytes.Buffer
	pw, err := GetPassword(rdr("ignored\n"), "Secret", &out)
	require.NoError(t, err)
	require.Equal(t, []byte("s3cret"), pw)
	require.Equal(t, "Secret: \n", out.String())
}

func TestGetPassword_TerminalError(t *testing.T) {
	fakeTerminal(t, true, func(int) ([]byte, error) { return nil, errors.New("boom") })

	var out bytes.Buffer
	_, err := GetPassword(rdr(""), "Secret", &out)
	require.Error(t, err)
}

func TestGetPassword_PipedInput(t *testing.T) {
	fakeTerminal(t, false, nil)

	var out bytes.Buffer
	r := rdr("piped secret\r\nnext\n")
	pw, err := GetPassword(r, "Secret", &out)
	require.NoError(t, err)
	require.Equal(t, []byte("piped secret"), pw)

	rest, err := r.ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, "next\n", rest)

	_, err = GetPassword(rdr(""), "Secret", &out)
	require.Error(t, err)
}
