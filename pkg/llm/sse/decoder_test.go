package sse

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chunkedReader returns its pieces one Read at a time.
type chunkedReader struct {
	pieces [][]byte
}

func (r *chunkedReader) Read(p []byte) (int, error) {
	if len(r.pieces) == 0 {
		return 0, io.EOF
	}
	n := copy(p, r.pieces[0])
	if n < len(r.pieces[0]) {
		r.pieces[0] = r.pieces[0][n:]
	} else {
		r.pieces = r.pieces[1:]
	}
	return n, nil
}

func collect(t *testing.T, r io.Reader) []string {
	t.Helper()
	var out []string
	err := ReadRecords(context.Background(), r, func(payload string) bool {
		out = append(out, payload)
		return true
	})
	require.NoError(t, err)
	return out
}

func TestReadRecordsBasic(t *testing.T) {
	stream := "data: {\"a\":1}\n\ndata: {\"a\":2}\n\n"
	assert.Equal(t, []string{`{"a":1}`, `{"a":2}`}, collect(t, strings.NewReader(stream)))
}

func TestReadRecordsSkipsCommentsAndFields(t *testing.T) {
	stream := ": keepalive\n\nevent: message\nid: 7\nretry: 1000\ndata: {\"x\":true}\n\n\n\n"
	assert.Equal(t, []string{`{"x":true}`}, collect(t, strings.NewReader(stream)))
}

func TestReadRecordsJoinsMultilineData(t *testing.T) {
	stream := "data: {\"text\":\ndata: \"hi\"}\n\n"
	assert.Equal(t, []string{`{"text":"hi"}`}, collect(t, strings.NewReader(stream)))
}

func TestReadRecordsCRLF(t *testing.T) {
	stream := "data: one\r\n\r\ndata: two\r\n\r\n"
	assert.Equal(t, []string{"one", "two"}, collect(t, strings.NewReader(stream)))
}

func TestReadRecordsFlushesTrailingRecord(t *testing.T) {
	assert.Equal(t, []string{"a", "tail"}, collect(t, strings.NewReader("data: a\n\ndata: tail")))
}

func TestReadRecordsOneByteAtATime(t *testing.T) {
	stream := "data: {\"text\":\"héllo 世界\"}\n\ndata: {\"text\":\"✓\"}\n\n"
	got := collect(t, iotest.OneByteReader(strings.NewReader(stream)))
	assert.Equal(t, []string{`{"text":"héllo 世界"}`, `{"text":"✓"}`}, got)
}

func TestReadRecordsSplitMultibyteAcrossReads(t *testing.T) {
	full := []byte("data: 世\n\n")
	// Split inside the 3-byte encoding of 世.
	r := &chunkedReader{pieces: [][]byte{full[:7], full[7:]}}
	assert.Equal(t, []string{"世"}, collect(t, r))
}

func TestReadRecordsSeparatorSplitAcrossReads(t *testing.T) {
	r := &chunkedReader{pieces: [][]byte{[]byte("data: a\n"), []byte("\ndata: b\n"), []byte("\n")}}
	assert.Equal(t, []string{"a", "b"}, collect(t, r))
}

func TestReadRecordsStopsWhenHandlerDeclines(t *testing.T) {
	var got []string
	err := ReadRecords(context.Background(), strings.NewReader("data: a\n\ndata: b\n\n"), func(p string) bool {
		got = append(got, p)
		return false
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, got)
}

func TestReadRecordsReturnsReadError(t *testing.T) {
	boom := errors.New("connection reset")
	r := io.MultiReader(strings.NewReader("data: a\n\n"), iotest.ErrReader(boom))

	var got []string
	err := ReadRecords(context.Background(), r, func(p string) bool {
		got = append(got, p)
		return true
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"a"}, got)
}

func TestReadRecordsCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := ReadRecords(ctx, strings.NewReader("data: a\n\n"), func(string) bool { return true })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDecoderRecordTooLarge(t *testing.T) {
	dec := NewDecoder(strings.NewReader("data: " + strings.Repeat("x", 10000)))
	dec.SetMaxRecordSize(1024)
	_, err := dec.Next()
	assert.ErrorIs(t, err, ErrRecordTooLarge)
}
