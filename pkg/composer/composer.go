// Package composer turns a page snapshot into the bounded context block that
// accompanies a question.
package composer

import (
	"strings"

	"github.com/entrhq/pagechat/pkg/types"
)

// Composer builds page context. The zero value uses the default limits and
// no URL policy.
type Composer struct {
	MaxChunkChars int
	MaxChunks     int
	Policy        *Policy
}

// Option configures a Composer.
type Option func(*Composer)

// WithChunking overrides the chunk size and chunk cap.
func WithChunking(maxChars, maxChunks int) Option {
	return func(c *Composer) {
		c.MaxChunkChars = maxChars
		c.MaxChunks = maxChunks
	}
}

// WithPolicy installs a URL policy.
func WithPolicy(p *Policy) Option {
	return func(c *Composer) {
		c.Policy = p
	}
}

// New creates a Composer with default limits.
func New(opts ...Option) *Composer {
	c := &Composer{
		MaxChunkChars: DefaultMaxChunkChars,
		MaxChunks:     DefaultMaxChunks,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var defaultComposer = New()

// Compose builds context with the default limits.
func Compose(snap *types.PageSnapshot, includePage bool) string {
	return defaultComposer.Compose(snap, includePage)
}

// Compose returns the context text for snap.
//
// Without includePage only the selection is used. With it, the metadata
// block is followed by a newline and the first chunk of the body text.
// A nil snapshot yields an empty string.
func (c *Composer) Compose(snap *types.PageSnapshot, includePage bool) string {
	if snap == nil {
		return ""
	}
	if includePage && c.Policy.AllowsPage(snap.URL) {
		chunks := ChunkText(snap.Text, c.MaxChunkChars, c.MaxChunks)
		first := ""
		if len(chunks) > 0 {
			first = chunks[0]
		}
		return MetaBlock(snap) + "\n" + first
	}
	if snap.Selection != "" {
		return "SELECTION: " + snap.Selection
	}
	return ""
}

// MetaBlock renders the TITLE/URL lines plus META and SELECTION when present.
func MetaBlock(snap *types.PageSnapshot) string {
	if snap == nil {
		snap = &types.PageSnapshot{}
	}
	var b strings.Builder
	b.WriteString("TITLE: ")
	b.WriteString(snap.Title)
	b.WriteString("\nURL: ")
	b.WriteString(snap.URL)
	if snap.Meta != "" {
		b.WriteString("\nMETA: ")
		b.WriteString(snap.Meta)
	}
	if snap.Selection != "" {
		b.WriteString("\nSELECTION: ")
		b.WriteString(snap.Selection)
	}
	return b.String()
}
