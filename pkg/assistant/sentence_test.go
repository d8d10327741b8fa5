package assistant

import (
	"reflect"
	"strings"
	"testing"
)

func TestSentenceBufferStreamedFragments(t *testing.T) {
	var b SentenceBuffer

	got := b.Feed("Hello. ")
	if !reflect.DeepEqual(got, []string{"Hello."}) {
		t.Errorf("first fragment: got %v, want [Hello.]", got)
	}

	if got := b.Feed("How are "); got != nil {
		t.Errorf("mid-sentence fragment should emit nothing, got %v", got)
	}

	// Terminator at the end of the stream stays buffered until Flush.
	if got := b.Feed("you?"); got != nil {
		t.Errorf("trailing fragment should emit nothing, got %v", got)
	}

	if rest := b.Flush(); rest != "How are you?" {
		t.Errorf("flush: got %q, want %q", rest, "How are you?")
	}
}

func TestSentenceBufferMultipleSentencesInOneFragment(t *testing.T) {
	var b SentenceBuffer

	got := b.Feed("One. Two! Three? Four")
	want := []string{"One.", "Two!", "Three?"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if rest := b.Flush(); rest != "Four" {
		t.Errorf("flush: got %q, want %q", rest, "Four")
	}
}

func TestSentenceBufferChunkedMatchesOneShot(t *testing.T) {
	text := "The sun rose slowly. Birds sang in the trees! Was anyone listening? Probably not. The town kept sleeping"

	var oneShot SentenceBuffer
	wholeUnits := oneShot.Feed(text)
	wholeRest := oneShot.Flush()

	// Re-split the same text fed in awkward small chunks.
	var chunked SentenceBuffer
	var chunkUnits []string
	for i := 0; i < len(text); i += 7 {
		end := i + 7
		if end > len(text) {
			end = len(text)
		}
		chunkUnits = append(chunkUnits, chunked.Feed(text[i:end])...)
	}
	chunkRest := chunked.Flush()

	if !reflect.DeepEqual(wholeUnits, chunkUnits) {
		t.Errorf("chunked units %v differ from one-shot units %v", chunkUnits, wholeUnits)
	}
	if wholeRest != chunkRest {
		t.Errorf("chunked remainder %q differs from one-shot %q", chunkRest, wholeRest)
	}
}

func TestSentenceBufferDoesNotSplitDecimals(t *testing.T) {
	var b SentenceBuffer
	if got := b.Feed("It is 3.5 miles away"); got != nil {
		t.Errorf("decimal point should not split, got %v", got)
	}
	if rest := b.Flush(); !strings.Contains(rest, "3.5") {
		t.Errorf("decimal lost from remainder: %q", rest)
	}
}

func TestSentenceBufferFlushResets(t *testing.T) {
	var b SentenceBuffer
	b.Feed("partial")
	if rest := b.Flush(); rest != "partial" {
		t.Errorf("got %q, want %q", rest, "partial")
	}
	if rest := b.Flush(); rest != "" {
		t.Errorf("second flush should be empty, got %q", rest)
	}
}
