package audio

import (
	"bytes"
	"testing"
)

func TestFrameQueueRoundTrip(t *testing.T) {
	q := NewFrameQueue(1024)

	frames := [][]byte{
		{1, 2, 3, 4},
		{5, 6},
		{7, 8, 9},
	}
	for i, f := range frames {
		if err := q.Enqueue(f); err != nil {
			t.Fatalf("enqueue frame %d: %v", i, err)
		}
	}

	for i, want := range frames {
		got, ok := q.Dequeue()
		if !ok {
			t.Fatalf("dequeue frame %d: queue empty", i)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("frame %d: got %v, want %v", i, got, want)
		}
	}

	if _, ok := q.Dequeue(); ok {
		t.Error("expected empty queue after draining")
	}
}

func TestFrameQueueDropsOldestWhenFull(t *testing.T) {
	// Room for roughly two 16-byte frames plus prefixes.
	q := NewFrameQueue(48)

	first := bytes.Repeat([]byte{1}, 16)
	second := bytes.Repeat([]byte{2}, 16)
	third := bytes.Repeat([]byte{3}, 16)

	for _, f := range [][]byte{first, second, third} {
		if err := q.Enqueue(f); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}

	got, ok := q.Dequeue()
	if !ok {
		t.Fatal("queue unexpectedly empty")
	}
	if got[0] == 1 {
		t.Error("oldest frame should have been evicted")
	}
}

func TestFrameQueueRejectsOversizedFrame(t *testing.T) {
	q := NewFrameQueue(16)
	if err := q.Enqueue(bytes.Repeat([]byte{9}, 64)); err == nil {
		t.Error("expected error for frame larger than buffer")
	}
}
