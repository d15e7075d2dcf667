// Package llm provides abstractions for generation backend integration.
//
// Example usage:
//
//	package main
//
//	import (
//	    "context"
//	    "fmt"
//	    "log"
//	    "os"
//
//	    "github.com/entrhq/pagechat/pkg/llm"
//	    "github.com/entrhq/pagechat/pkg/llm/gemini"
//	    "github.com/entrhq/pagechat/pkg/prompts"
//	)
//
//	func main() {
//	    provider := gemini.NewProvider()
//
//	    req := &llm.Request{
//	        APIKey:   os.Getenv("GEMINI_API_KEY"),
//	        Model:    "gemini-2.5-flash-lite",
//	        Contents: prompts.BuildContents(nil, "Hello!", ""),
//	    }
//
//	    stream, err := provider.Stream(context.Background(), req)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    text, err := llm.DecodeDeltas(context.Background(), stream, func(delta string) {
//	        fmt.Print(delta)
//	    })
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    fmt.Println()
//	    _ = text
//	}
package llm

import (
	"context"
)

// Provider defines the interface for generation backends.
//
// Providers only speak the wire protocol. Retries, fallback from streaming to
// batch, and error classification live in the orchestrator.
type Provider interface {
	// Name identifies the backend in logs and error messages.
	Name() string

	// Generate issues one batch request and returns the concatenated text of
	// the first candidate. A non-2xx status is returned as *HTTPError.
	Generate(ctx context.Context, req *Request) (string, error)

	// Stream opens a streaming request and returns a channel of decoded text
	// increments.
	//
	// Returns an error only if the stream cannot be opened, including a non-2xx
	// status (as *HTTPError). Decode-time errors are sent as StreamChunk
	// instances with Error set. The channel is closed when the stream ends or
	// ctx is cancelled; no chunks are sent after cancellation.
	Stream(ctx context.Context, req *Request) (<-chan *StreamChunk, error)
}
