package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/entrhq/pagechat/pkg/types"
)

// ErrUnknownTab is returned for a tab with no snapshot source.
var ErrUnknownTab = errors.New("unknown tab")

// StaticProvider serves snapshots pushed by the host.
type StaticProvider struct {
	mu    sync.RWMutex
	pages map[string]*types.PageSnapshot
}

// NewStaticProvider creates an empty provider.
func NewStaticProvider() *StaticProvider {
	return &StaticProvider{pages: make(map[string]*types.PageSnapshot)}
}

// Put stores a copy of snap for tabID.
func (p *StaticProvider) Put(tabID string, snap types.PageSnapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pages[tabID] = Normalize(&snap)
}

// Delete forgets tabID.
func (p *StaticProvider) Delete(tabID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.pages, tabID)
}

// Snapshot returns a copy of the stored snapshot.
func (p *StaticProvider) Snapshot(ctx context.Context, tabID string) (*types.PageSnapshot, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	snap, ok := p.pages[tabID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTab, tabID)
	}
	cp := *snap
	return &cp, nil
}

// DefaultMaxPageBytes caps the HTML read by FetchProvider.
const DefaultMaxPageBytes = 5 << 20

// FetchProvider treats a tab as a URL and extracts the snapshot from the
// fetched HTML on every call.
type FetchProvider struct {
	client   *http.Client
	maxBytes int64

	mu   sync.RWMutex
	tabs map[string]fetchTab
}

type fetchTab struct {
	url       string
	selection string
}

// FetchOption configures a FetchProvider.
type FetchOption func(*FetchProvider)

// WithFetchClient sets the HTTP client.
func WithFetchClient(c *http.Client) FetchOption {
	return func(p *FetchProvider) {
		if c != nil {
			p.client = c
		}
	}
}

// WithMaxPageBytes caps the response body size.
func WithMaxPageBytes(n int64) FetchOption {
	return func(p *FetchProvider) {
		if n > 0 {
			p.maxBytes = n
		}
	}
}

// NewFetchProvider creates a provider with no tabs.
func NewFetchProvider(opts ...FetchOption) *FetchProvider {
	p := &FetchProvider{
		client:   &http.Client{Timeout: 15 * time.Second},
		maxBytes: DefaultMaxPageBytes,
		tabs:     make(map[string]fetchTab),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SetTab points tabID at pageURL. selection is reported as the user's selection.
func (p *FetchProvider) SetTab(tabID, pageURL, selection string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tabs[tabID] = fetchTab{url: pageURL, selection: selection}
}

// Snapshot fetches the tab's URL and extracts a snapshot.
func (p *FetchProvider) Snapshot(ctx context.Context, tabID string) (*types.PageSnapshot, error) {
	p.mu.RLock()
	tab, ok := p.tabs[tabID]
	p.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTab, tabID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, tab.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("failed to fetch page: %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, p.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read page: %w", err)
	}
	return FromHTML(string(body), resp.Request.URL.String(), tab.selection), nil
}
