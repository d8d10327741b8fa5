package orchestrator

import (
	"strings"
	"sync"

	"github.com/vakya-ai/vakya/internal/types"
)

// Deduplicator confirms recognition events as new utterances. It keeps a
// single last-utterance slot: an event passes only when it is end-of-turn,
// formatted, non-empty after trimming, and different from the previous
// confirmed utterance.
type Deduplicator struct {
	mu   sync.Mutex
	last string
}

// Accept filters one recognition event. It returns the trimmed utterance
// and true when the event confirms a new utterance.
func (d *Deduplicator) Accept(ev types.RecognitionEvent) (string, bool) {
	if !ev.EndOfTurn || !ev.Formatted {
		return "", false
	}
	text := strings.TrimSpace(ev.Text)
	if text == "" {
		return "", false
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if text == d.last {
		return "", false
	}
	d.last = text
	return text, true
}
