package composer

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/pagechat/pkg/types"
)

func TestComposeNilSnapshot(t *testing.T) {
	assert.Equal(t, "", Compose(nil, true))
	assert.Equal(t, "", Compose(nil, false))
}

func TestComposeSelectionOnly(t *testing.T) {
	snap := &types.PageSnapshot{Title: "T", URL: "https://a.example", Selection: "x", Text: "body"}
	assert.Equal(t, "SELECTION: x", Compose(snap, false))
	assert.Equal(t, "", Compose(&types.PageSnapshot{Text: "body"}, false))
}

func TestComposeIncludePage(t *testing.T) {
	snap := &types.PageSnapshot{
		Title:     "Doc",
		URL:       "https://a.example/doc",
		Meta:      "about docs",
		Selection: "sel",
		Text:      "body text",
	}
	want := "TITLE: Doc\nURL: https://a.example/doc\nMETA: about docs\nSELECTION: sel\nbody text"
	assert.Equal(t, want, Compose(snap, true))
}

func TestComposeOmitsEmptyOptionalLines(t *testing.T) {
	snap := &types.PageSnapshot{Title: "Doc", URL: "u", Text: "b"}
	assert.Equal(t, "TITLE: Doc\nURL: u\nb", Compose(snap, true))
}

func TestComposeUsesOnlyFirstChunk(t *testing.T) {
	snap := &types.PageSnapshot{Text: strings.Repeat("a", 40000)}
	got := Compose(snap, true)

	prefix := MetaBlock(snap) + "\n"
	require.True(t, strings.HasPrefix(got, prefix))
	assert.Equal(t, strings.Repeat("a", DefaultMaxChunkChars), strings.TrimPrefix(got, prefix))
}

func TestComposeDeterministic(t *testing.T) {
	snap := &types.PageSnapshot{Title: "T", URL: "u", Text: strings.Repeat("xyz ", 10000)}
	assert.Equal(t, Compose(snap, true), Compose(snap, true))
}

func TestComposePolicyDeniesPage(t *testing.T) {
	policy, err := NewPolicy([]string{"https://*.bank.example/*"})
	require.NoError(t, err)
	c := New(WithPolicy(policy))

	denied := &types.PageSnapshot{URL: "https://my.bank.example/accounts", Selection: "balance", Text: "secret"}
	assert.Equal(t, "SELECTION: balance", c.Compose(denied, true))

	allowed := &types.PageSnapshot{URL: "https://news.example/a", Text: "story"}
	assert.Equal(t, "TITLE: \nURL: https://news.example/a\nstory", c.Compose(allowed, true))
}

func TestNewPolicyInvalidPattern(t *testing.T) {
	_, err := NewPolicy([]string{"[unterminated"})
	assert.Error(t, err)
}

func TestNilPolicyAllowsEverything(t *testing.T) {
	var p *Policy
	assert.True(t, p.AllowsPage("https://anything"))
	assert.Nil(t, p.Patterns())
}

func TestChunkText(t *testing.T) {
	tests := []struct {
		name      string
		length    int
		maxChars  int
		maxChunks int
		want      int
	}{
		{"empty", 0, 10, 6, 0},
		{"shorter than chunk", 5, 10, 6, 1},
		{"exact multiple", 30, 10, 6, 3},
		{"remainder", 31, 10, 6, 4},
		{"capped", 1000, 10, 6, 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := strings.Repeat("b", tt.length)
			chunks := ChunkText(s, tt.maxChars, tt.maxChunks)
			require.Len(t, chunks, tt.want)

			for _, c := range chunks {
				assert.LessOrEqual(t, utf8.RuneCountInString(c), tt.maxChars)
			}
			covered := tt.want * tt.maxChars
			if covered > tt.length {
				covered = tt.length
			}
			assert.Equal(t, s[:covered], strings.Join(chunks, ""))
		})
	}
}

func TestChunkTextCountsRunes(t *testing.T) {
	chunks := ChunkText("héllo wörld", 3, 6)
	assert.Equal(t, []string{"hél", "lo ", "wör", "ld"}, chunks)
	for _, c := range chunks {
		assert.True(t, utf8.ValidString(c))
	}
}

func TestChunkTextDefaults(t *testing.T) {
	chunks := ChunkText(strings.Repeat("c", DefaultMaxChunkChars+1), 0, 0)
	require.Len(t, chunks, 2)
	assert.Len(t, chunks[1], 1)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, "abc", Clamp("abcdef", 3))
	assert.Equal(t, "ab", Clamp("ab", 3))
	assert.Equal(t, "日本", Clamp("日本語", 2))
	assert.Len(t, Clamp(strings.Repeat("z", 5000), 0), DefaultClampChars)
}
