package assistant

import "strings"

// SentenceBuffer accumulates streamed text fragments and emits complete
// sentences as they form. A sentence ends at '.', '?' or '!' followed by
// whitespace; the trailing incomplete fragment is retained until Flush.
type SentenceBuffer struct {
	pending string
}

// Feed appends a fragment and returns any sentences completed by it,
// in order.
func (b *SentenceBuffer) Feed(fragment string) []string {
	b.pending += fragment

	var out []string
	for {
		idx := sentenceEnd(b.pending)
		if idx < 0 {
			break
		}
		sentence := strings.TrimSpace(b.pending[:idx+1])
		b.pending = strings.TrimLeft(b.pending[idx+1:], " \t\r\n")
		if sentence != "" {
			out = append(out, sentence)
		}
	}
	return out
}

// Flush returns the trailing fragment, trimmed, and resets the buffer.
func (b *SentenceBuffer) Flush() string {
	rest := strings.TrimSpace(b.pending)
	b.pending = ""
	return rest
}

// sentenceEnd finds the first terminator followed by whitespace. A
// terminator at the very end of the buffer does not count: the next
// fragment may continue the sentence (e.g. "3." then "5 miles").
func sentenceEnd(s string) int {
	for i := 0; i+1 < len(s); i++ {
		switch s[i] {
		case '.', '?', '!':
			if isSpace(s[i+1]) {
				return i
			}
		}
	}
	return -1
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
