package composer

// Default limits for page context. Sizes are counted in runes.
const (
	DefaultMaxChunkChars = 18000
	DefaultMaxChunks     = 6
	DefaultClampChars    = 4000
)

// ChunkText splits s into consecutive pieces of at most maxChars runes and
// stops after maxChunks pieces. Text past maxChars*maxChunks is dropped.
// Non-positive limits fall back to the defaults.
func ChunkText(s string, maxChars, maxChunks int) []string {
	if maxChars <= 0 {
		maxChars = DefaultMaxChunkChars
	}
	if maxChunks <= 0 {
		maxChunks = DefaultMaxChunks
	}

	var chunks []string
	for len(s) > 0 && len(chunks) < maxChunks {
		end := runeOffset(s, maxChars)
		chunks = append(chunks, s[:end])
		s = s[end:]
	}
	return chunks
}

// Clamp truncates s to at most max runes. A non-positive max uses DefaultClampChars.
func Clamp(s string, max int) string {
	if max <= 0 {
		max = DefaultClampChars
	}
	return s[:runeOffset(s, max)]
}

// runeOffset returns the byte offset just past the first n runes of s.
func runeOffset(s string, n int) int {
	count := 0
	for i := range s {
		if count == n {
			return i
		}
		count++
	}
	return len(s)
}
