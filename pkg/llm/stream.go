package llm

import (
	"context"
	"strings"
)

// StreamChunk is one element of a provider stream.
type StreamChunk struct {
	// Content is a non-empty text increment.
	Content string

	// Finished marks the normal end of the stream.
	Finished bool

	// Error is set when decoding failed. It is always the last chunk.
	Error error
}

// IsError reports whether the chunk carries an error.
func (c *StreamChunk) IsError() bool {
	return c != nil && c.Error != nil
}

// DecodeDeltas drains chunks, calling onDelta for every text increment in
// order, and returns the aggregated text. It stops at the first error chunk,
// at channel close, or when ctx is done, whichever comes first.
func DecodeDeltas(ctx context.Context, chunks <-chan *StreamChunk, onDelta func(string)) (string, error) {
	var aggregate strings.Builder
	for {
		select {
		case <-ctx.Done():
			return aggregate.String(), context.Cause(ctx)
		case chunk, ok := <-chunks:
			if !ok {
				return aggregate.String(), nil
			}
			if chunk.IsError() {
				return aggregate.String(), chunk.Error
			}
			if chunk.Content == "" {
				continue
			}
			aggregate.WriteString(chunk.Content)
			if onDelta != nil {
				onDelta(chunk.Content)
			}
		}
	}
}

// Send delivers chunk unless ctx is done first. Providers use it from their
// stream goroutines so a cancelled consumer never blocks them.
func Send(ctx context.Context, chunks chan<- *StreamChunk, chunk *StreamChunk) bool {
	select {
	case chunks <- chunk:
		return true
	case <-ctx.Done():
		return false
	}
}
