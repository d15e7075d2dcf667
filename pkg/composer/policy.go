package composer

import (
	"fmt"

	"github.com/gobwas/glob"
)

// Policy decides which page URLs may contribute body text and metadata.
// A URL matching any deny pattern only ever contributes its selection.
type Policy struct {
	patterns []string
	denied   []glob.Glob
}

// NewPolicy compiles the given glob patterns, e.g. "https://*.bank.example/*".
func NewPolicy(deny []string) (*Policy, error) {
	p := &Policy{}
	for _, pattern := range deny {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid deny pattern '%s': %w", pattern, err)
		}
		p.patterns = append(p.patterns, pattern)
		p.denied = append(p.denied, g)
	}
	return p, nil
}

// AllowsPage reports whether page content from url may be sent to the model.
func (p *Policy) AllowsPage(url string) bool {
	if p == nil {
		return true
	}
	for _, g := range p.denied {
		if g.Match(url) {
			return false
		}
	}
	return true
}

// Patterns returns the source patterns.
func (p *Policy) Patterns() []string {
	if p == nil {
		return nil
	}
	return append([]string(nil), p.patterns...)
}
