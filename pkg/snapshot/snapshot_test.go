package snapshot

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/pagechat/pkg/composer"
	"github.com/entrhq/pagechat/pkg/types"
)

const articlePage = `<html><head><title> Docs </title>` +
	`<meta property="og:description" content="About docs"></head>` +
	`<body><nav>Menu</nav><main><h1>Heading</h1><p>First   para
 text.</p><script>track()</script><div hidden>secret</div>` +
	`<p style="display: none">gone</p><p>Second</p></main><footer>foot</footer></body></html>`

func TestFromHTML(t *testing.T) {
	snap := FromHTML(articlePage, "https://example.com/docs", "  picked  ")

	assert.Equal(t, "Docs", snap.Title)
	assert.Equal(t, "https://example.com/docs", snap.URL)
	assert.Equal(t, "About docs", snap.Meta)
	assert.Equal(t, "picked", snap.Selection)
	assert.Equal(t, "Heading\nFirst para text.\nSecond", snap.Text)
}

func TestFromHTMLFallsBackToBody(t *testing.T) {
	page := `<html><head><meta name="description" content="desc"></head><body>` +
		`<header>Site</header><p>Only body</p><aside>ads</aside>` +
		`<span aria-hidden="true">icon</span><p>More <b>bold</b> text<br>next</p></body></html>`
	snap := FromHTML(page, "u", "")

	assert.Equal(t, "desc", snap.Meta)
	assert.Equal(t, "Only body\nMore bold text\nnext", snap.Text)
}

func TestFromHTMLPrefersFirstArticle(t *testing.T) {
	page := `<body><div>outside</div><article>inside</article><main>later</main></body>`
	assert.Equal(t, "inside", FromHTML(page, "u", "").Text)
}

func TestFromHTMLEmptyDocument(t *testing.T) {
	snap := FromHTML("", "https://example.com", "")
	assert.Equal(t, "https://example.com", snap.URL)
	assert.Empty(t, snap.Title)
	assert.Empty(t, snap.Text)
}

func TestFromHTMLClampsSelection(t *testing.T) {
	snap := FromHTML("<p>x</p>", "u", strings.Repeat("s", composer.DefaultClampChars+10))
	assert.Len(t, snap.Selection, composer.DefaultClampChars)
}

func TestNormalizeText(t *testing.T) {
	assert.Equal(t, "a\nb c", NormalizeText("  a  \n\n\n\n   b c \n"))
	assert.Equal(t, "", NormalizeText(" \n\t "))
}

func TestStaticProvider(t *testing.T) {
	p := NewStaticProvider()

	_, err := p.Snapshot(context.Background(), "t1")
	assert.ErrorIs(t, err, ErrUnknownTab)

	p.Put("t1", types.PageSnapshot{Title: "T", Text: "body"})
	snap, err := p.Snapshot(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, "T", snap.Title)

	snap.Title = "changed"
	again, err := p.Snapshot(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, "T", again.Title, "callers get copies")

	p.Delete("t1")
	_, err = p.Snapshot(context.Background(), "t1")
	assert.ErrorIs(t, err, ErrUnknownTab)
}

func TestFetchProvider(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/page":
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte(articlePage))
		case "/moved":
			http.Redirect(w, r, "/page", http.StatusFound)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	p := NewFetchProvider(WithFetchClient(server.Client()))
	p.SetTab("t1", server.URL+"/moved", "sel")
	p.SetTab("missing", server.URL+"/nope", "")

	snap, err := p.Snapshot(context.Background(), "t1")
	require.NoError(t, err)
	assert.Equal(t, server.URL+"/page", snap.URL)
	assert.Equal(t, "Docs", snap.Title)
	assert.Equal(t, "sel", snap.Selection)
	assert.Contains(t, snap.Text, "Second")

	_, err = p.Snapshot(context.Background(), "missing")
	assert.ErrorContains(t, err, "404")

	_, err = p.Snapshot(context.Background(), "unknown")
	assert.ErrorIs(t, err, ErrUnknownTab)
}

func TestFetchProviderMaxBytes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<body><p>" + strings.Repeat("a", 100) + "</p></body>"))
	}))
	defer server.Close()

	p := NewFetchProvider(WithFetchClient(server.Client()), WithMaxPageBytes(20))
	p.SetTab("t1", server.URL, "")

	snap, err := p.Snapshot(context.Background(), "t1")
	require.NoError(t, err)
	assert.Less(t, len(snap.Text), 20)
}

func TestSnapshotFromEval(t *testing.T) {
	snap, err := snapshotFromEval(map[string]interface{}{
		"title":     "T",
		"url":       "https://example.com",
		"meta":      "m",
		"selection": "s",
		"text":      "line one   \n\n\nline two",
	})
	require.NoError(t, err)
	assert.Equal(t, &types.PageSnapshot{
		Title:     "T",
		URL:       "https://example.com",
		Meta:      "m",
		Selection: "s",
		Text:      "line one\nline two",
	}, snap)

	_, err = snapshotFromEval("nope")
	assert.Error(t, err)
}

func TestBrowserProviderRequiresInitialize(t *testing.T) {
	p := NewBrowserProvider(true)
	assert.Error(t, p.OpenTab("t1", "https://example.com"))

	_, err := p.Snapshot(context.Background(), "t1")
	assert.ErrorIs(t, err, ErrUnknownTab)
	assert.ErrorIs(t, p.CloseTab("t1"), ErrUnknownTab)
	assert.NoError(t, p.Shutdown())
}
