// Package sse decodes server-sent event streams into record payloads.
//
// Records are separated by a blank line. Within a record, "data:" prefixes
// are stripped and the remaining lines are joined without separators, which
// reassembles JSON payloads split across several data lines. Comment lines
// and the event/id/retry fields are ignored.
package sse

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
)

// DefaultMaxRecordSize bounds a single buffered record.
const DefaultMaxRecordSize = 4 << 20

// ErrRecordTooLarge is returned when a record exceeds the decoder limit
// without a terminating blank line.
var ErrRecordTooLarge = errors.New("sse: record too large")

// Decoder reads records from an event stream. Bytes are buffered until a
// record separator arrives, so multi-byte characters split across reads
// are reassembled before decoding.
type Decoder struct {
	r       io.Reader
	buf     []byte
	scratch []byte
	err     error
	max     int
}

// NewDecoder creates a decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{
		r:       r,
		scratch: make([]byte, 4096),
		max:     DefaultMaxRecordSize,
	}
}

// SetMaxRecordSize changes the per-record buffer limit.
func (d *Decoder) SetMaxRecordSize(n int) {
	if n > 0 {
		d.max = n
	}
}

// Next returns the payload of the next non-empty record. At the end of the
// stream a trailing unterminated record is flushed first, then io.EOF is
// returned. Read errors are returned as-is once the buffer is drained.
func (d *Decoder) Next() (string, error) {
	for {
		if end, sepLen := recordEnd(d.buf); end >= 0 {
			payload := parseRecord(d.buf[:end])
			d.buf = append(d.buf[:0], d.buf[end+sepLen:]...)
			if payload != "" {
				return payload, nil
			}
			continue
		}

		if d.err != nil {
			if len(d.buf) > 0 {
				payload := parseRecord(d.buf)
				d.buf = d.buf[:0]
				if payload != "" {
					return payload, nil
				}
			}
			return "", d.err
		}

		if len(d.buf) > d.max {
			return "", ErrRecordTooLarge
		}

		n, err := d.r.Read(d.scratch)
		d.buf = append(d.buf, d.scratch[:n]...)
		if err != nil {
			d.err = err
		}
	}
}

// ReadRecords calls handle for every record payload until the stream ends,
// handle returns false, or ctx is done. A clean end of stream returns nil.
func ReadRecords(ctx context.Context, r io.Reader, handle func(payload string) bool) error {
	dec := NewDecoder(r)
	for {
		if err := ctx.Err(); err != nil {
			return context.Cause(ctx)
		}
		payload, err := dec.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if !handle(payload) {
			return nil
		}
	}
}

// recordEnd finds the first blank line in b. It returns the index where the
// record ends and the length of the separator, or -1 if none is buffered.
// Both "\n\n" and "\n\r\n" separate records.
func recordEnd(b []byte) (int, int) {
	from := 0
	for {
		i := bytes.IndexByte(b[from:], '\n')
		if i < 0 {
			return -1, 0
		}
		i += from
		j := i + 1
		if j < len(b) && b[j] == '\r' {
			j++
		}
		if j < len(b) && b[j] == '\n' {
			return i, j + 1 - i
		}
		from = i + 1
	}
}

// parseRecord joins the data of one record.
func parseRecord(rec []byte) string {
	text := strings.ToValidUTF8(string(rec), "�")
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}

	var b strings.Builder
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if isIgnoredField(line) {
			continue
		}
		if rest, ok := strings.CutPrefix(line, "data:"); ok {
			line = strings.TrimPrefix(rest, " ")
		}
		b.WriteString(strings.TrimSpace(line))
	}
	return b.String()
}

func isIgnoredField(line string) bool {
	return strings.HasPrefix(line, ":") ||
		strings.HasPrefix(line, "event:") ||
		strings.HasPrefix(line, "id:") ||
		strings.HasPrefix(line, "retry:")
}
