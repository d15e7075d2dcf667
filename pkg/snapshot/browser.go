package snapshot

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/pagechat/pkg/types"
)

// extractScript runs in the page and returns the same fields FromHTML
// extracts, using the live layout to drop hidden elements.
const extractScript = `() => {
  const marker = "data-pagechat-hidden";
  const pick = document.querySelector("main, article") || document.body;
  pick.querySelectorAll("*").forEach((el) => {
    const style = window.getComputedStyle(el);
    if (style && (style.display === "none" || style.visibility === "hidden")) el.setAttribute(marker, "");
  });
  const clone = pick.cloneNode(true);
  pick.querySelectorAll("[" + marker + "]").forEach((el) => el.removeAttribute(marker));
  clone.querySelectorAll("script, style, nav, header, footer, aside, noscript, [" + marker + "]").forEach((n) => n.remove());
  const meta = document.querySelector('meta[name="description"], meta[property="og:description"]');
  const selection = (window.getSelection && window.getSelection().toString().trim()) || "";
  return {
    title: document.title || "",
    url: location.href,
    meta: (meta && meta.getAttribute("content")) || "",
    selection,
    text: clone.innerText || clone.textContent || ""
  };
}`

// BrowserProvider treats Playwright pages as tabs.
type BrowserProvider struct {
	mu          sync.RWMutex
	playwright  *playwright.Playwright
	browser     playwright.Browser
	context     playwright.BrowserContext
	pages       map[string]playwright.Page
	headless    bool
	initialized bool
}

// NewBrowserProvider creates a provider. Initialize must be called before
// opening tabs.
func NewBrowserProvider(headless bool) *BrowserProvider {
	return &BrowserProvider{
		pages:    make(map[string]playwright.Page),
		headless: headless,
	}
}

// Initialize installs and starts Playwright and launches Chromium.
func (p *BrowserProvider) Initialize() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initialized {
		return nil
	}

	opts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}
	if err := playwright.Install(opts); err != nil {
		return fmt.Errorf("failed to install playwright: %w", err)
	}

	pw, err := playwright.Run(opts)
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{Headless: &p.headless})
	if err != nil {
		pw.Stop()
		return fmt.Errorf("failed to launch browser: %w", err)
	}

	bctx, err := browser.NewContext()
	if err != nil {
		browser.Close()
		pw.Stop()
		return fmt.Errorf("failed to create context: %w", err)
	}

	p.playwright = pw
	p.browser = browser
	p.context = bctx
	p.initialized = true
	return nil
}

// OpenTab opens pageURL in a new page registered as tabID. An existing page
// for tabID is navigated instead.
func (p *BrowserProvider) OpenTab(tabID, pageURL string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.initialized {
		return fmt.Errorf("browser provider not initialized")
	}

	page, ok := p.pages[tabID]
	if !ok {
		var err error
		if page, err = p.context.NewPage(); err != nil {
			return fmt.Errorf("failed to create page: %w", err)
		}
		p.pages[tabID] = page
	}

	if _, err := page.Goto(pageURL); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	return nil
}

// CloseTab closes the page of tabID.
func (p *BrowserProvider) CloseTab(tabID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	page, ok := p.pages[tabID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTab, tabID)
	}
	delete(p.pages, tabID)
	return page.Close()
}

// Snapshot evaluates the extraction script in the tab's page.
func (p *BrowserProvider) Snapshot(ctx context.Context, tabID string) (*types.PageSnapshot, error) {
	p.mu.RLock()
	page, ok := p.pages[tabID]
	p.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTab, tabID)
	}

	type result struct {
		value interface{}
		err   error
	}
	done := make(chan result, 1)
	go func() {
		v, err := page.Evaluate(extractScript)
		done <- result{v, err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		if r.err != nil {
			return nil, fmt.Errorf("page extraction failed: %w", r.err)
		}
		return snapshotFromEval(r.value)
	}
}

// snapshotFromEval converts the extraction script's result.
func snapshotFromEval(v interface{}) (*types.PageSnapshot, error) {
	m, ok := v.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected extraction result %T", v)
	}
	field := func(key string) string {
		s, _ := m[key].(string)
		return s
	}
	return Normalize(&types.PageSnapshot{
		Title:     field("title"),
		URL:       field("url"),
		Meta:      field("meta"),
		Selection: field("selection"),
		Text:      NormalizeText(field("text")),
	}), nil
}

// Shutdown closes every page, the browser and Playwright.
func (p *BrowserProvider) Shutdown() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for id, page := range p.pages {
		page.Close()
		delete(p.pages, id)
	}
	if !p.initialized {
		return nil
	}

	p.context.Close()
	p.browser.Close()
	p.initialized = false
	if err := p.playwright.Stop(); err != nil {
		return fmt.Errorf("failed to stop playwright: %w", err)
	}
	return nil
}
