package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/vakya-ai/vakya/internal/domains/conversation"
	"github.com/vakya-ai/vakya/internal/domains/skills"
	"github.com/vakya-ai/vakya/internal/types"
	"github.com/vakya-ai/vakya/pkg/Logger"
	"github.com/vakya-ai/vakya/pkg/assistant"
)

// fakeSink records every outbound message in order.
type fakeSink struct {
	mu   sync.Mutex
	msgs []string
}

func (s *fakeSink) record(msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, msg)
	return nil
}

func (s *fakeSink) SendTranscription(text string) error { return s.record("transcription:" + text) }
func (s *fakeSink) SendLLMChunk(text string) error      { return s.record("llm_chunk:" + text) }
func (s *fakeSink) SendAudioStart() error               { return s.record("audio_start") }
func (s *fakeSink) SendAudio(b64 string) error          { return s.record("audio:" + b64) }
func (s *fakeSink) SendAudioEnd() error                 { return s.record("audio_end") }
func (s *fakeSink) SendInterrupt() error                { return s.record("audio_interrupt") }
func (s *fakeSink) SendStatus(text string) error        { return s.record("status:" + text) }
func (s *fakeSink) SendError(text string) error         { return s.record("error:" + text) }

func (s *fakeSink) messages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.msgs))
	copy(out, s.msgs)
	return out
}

func (s *fakeSink) count(prefix string) int {
	n := 0
	for _, m := range s.messages() {
		if strings.HasPrefix(m, prefix) {
			n++
		}
	}
	return n
}

// fakeResponder replays scripted fragments, optionally blocking until its
// context is cancelled.
type fakeResponder struct {
	fragments []string
	err       error
	blocking  bool
	calls     int
	mu        sync.Mutex
}

func (r *fakeResponder) StreamReply(ctx context.Context, _ assistant.Persona, _ []types.Turn, _ string, onDelta func(string)) (string, error) {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()

	var full strings.Builder
	for _, f := range r.fragments {
		if ctx.Err() != nil {
			return full.String(), ctx.Err()
		}
		full.WriteString(f)
		if onDelta != nil {
			onDelta(f)
		}
	}
	r.mu.Lock()
	blocking := r.blocking
	r.mu.Unlock()
	if blocking {
		<-ctx.Done()
		return full.String(), ctx.Err()
	}
	return full.String(), r.err
}

func (r *fakeResponder) setBlocking(v bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.blocking = v
}

func (r *fakeResponder) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

// fakeSynth hands out fakeStreams that echo one audio chunk per unit and
// a final chunk after the end unit.
type fakeSynth struct {
	mu      sync.Mutex
	streams []*fakeStream
}

func (f *fakeSynth) OpenStream(_ context.Context, contextID string) (SynthStream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := &fakeStream{contextID: contextID, chunks: make(chan types.SynthChunk, 16)}
	f.streams = append(f.streams, s)
	return s, nil
}

func (f *fakeSynth) opened() []*fakeStream {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*fakeStream, len(f.streams))
	copy(out, f.streams)
	return out
}

type sentUnit struct {
	Text string
	End  bool
}

type fakeStream struct {
	contextID string
	mu        sync.Mutex
	units     []sentUnit
	chunks    chan types.SynthChunk
	closed    bool
}

func (s *fakeStream) SendText(text string, end bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.units = append(s.units, sentUnit{Text: text, End: end})
	s.chunks <- types.SynthChunk{Audio: fmt.Sprintf("chunk-%d", len(s.units))}
	if end {
		s.chunks <- types.SynthChunk{Final: true}
	}
	return nil
}

func (s *fakeStream) Chunks() <-chan types.SynthChunk { return s.chunks }

func (s *fakeStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeStream) sentUnits() []sentUnit {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]sentUnit, len(s.units))
	copy(out, s.units)
	return out
}

func newTestOrchestrator(responder *fakeResponder) (*Orchestrator, *fakeSink, *fakeSynth, conversation.Store) {
	logger := Logger.New(true)
	sink := &fakeSink{}
	synth := &fakeSynth{}
	store := conversation.NewMemoryStore()
	o := New(Options{
		SessionID: "test-session",
		Sink:      sink,
		Responder: responder,
		Synth:     synth,
		Store:     store,
		Skills:    skills.NewRunner("", time.Second, logger),
		Persona:   assistant.PersonaFriendly,
		Budget:    5 * time.Second,
		Grace:     time.Second,
		Logger:    logger,
	})
	return o, sink, synth, store
}

func confirmed(text string) types.RecognitionEvent {
	return types.RecognitionEvent{Text: text, EndOfTurn: true, Formatted: true}
}

func waitIdle(t *testing.T, o *Orchestrator) {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		o.mu.Lock()
		idle := o.active == nil
		o.mu.Unlock()
		if idle {
			return
		}
		select {
		case <-deadline:
			t.Fatal("orchestrator never went idle")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestGeneralTurnStreamsAndSynthesizes(t *testing.T) {
	responder := &fakeResponder{fragments: []string{"Hello there. ", "How can I ", "help?"}}
	o, sink, synth, store := newTestOrchestrator(responder)

	o.HandleEvent(context.Background(), confirmed("What can you do?"))
	waitIdle(t, o)

	msgs := sink.messages()
	if sink.count("llm_chunk:") != 3 {
		t.Errorf("got %d llm chunks, want one per fragment: %v", sink.count("llm_chunk:"), msgs)
	}

	streams := synth.opened()
	if len(streams) != 1 {
		t.Fatalf("got %d synthesis streams, want 1", len(streams))
	}
	units := streams[0].sentUnits()
	want := []sentUnit{{Text: "Hello there.", End: false}, {Text: "How can I help?", End: true}}
	if len(units) != len(want) {
		t.Fatalf("got units %v, want %v", units, want)
	}
	for i := range want {
		if units[i] != want[i] {
			t.Errorf("unit %d: got %+v, want %+v", i, units[i], want[i])
		}
	}

	// Boundary markers in order, each exactly once.
	if sink.count("audio_start") != 1 || sink.count("audio_end") != 1 {
		t.Errorf("audio boundaries wrong: %v", msgs)
	}
	var startIdx, endIdx, firstAudio int
	for i, m := range msgs {
		switch {
		case m == "audio_start":
			startIdx = i
		case m == "audio_end":
			endIdx = i
		case strings.HasPrefix(m, "audio:") && firstAudio == 0:
			firstAudio = i
		}
	}
	if !(startIdx < firstAudio && firstAudio < endIdx) {
		t.Errorf("audio boundary order wrong: %v", msgs)
	}

	// Completed turn lands in history: user then assistant.
	turns, _ := store.History("test-session")
	if len(turns) != 2 {
		t.Fatalf("got %d history turns, want 2", len(turns))
	}
	if turns[0].Role != types.RoleUser || turns[0].Content != "What can you do?" {
		t.Errorf("unexpected user turn: %+v", turns[0])
	}
	if turns[1].Role != types.RoleAssistant || turns[1].Content != "Hello there. How can I help?" {
		t.Errorf("unexpected assistant turn: %+v", turns[1])
	}
}

func TestSkillTurnShortCircuitsLanguageModel(t *testing.T) {
	responder := &fakeResponder{fragments: []string{"should not be used"}}
	o, sink, synth, _ := newTestOrchestrator(responder)

	o.HandleEvent(context.Background(), confirmed("Tell me a joke"))
	waitIdle(t, o)

	if responder.callCount() != 0 {
		t.Error("skill turn must not reach the language model")
	}

	streams := synth.opened()
	if len(streams) != 1 {
		t.Fatalf("got %d synthesis streams, want 1", len(streams))
	}
	units := streams[0].sentUnits()
	if len(units) != 1 || !units[0].End {
		t.Fatalf("skill reply should be a single end unit, got %v", units)
	}
	if units[0].Text == "" {
		t.Error("skill reply is empty")
	}
	if sink.count("audio_end") != 1 {
		t.Errorf("got %d audio_end, want 1", sink.count("audio_end"))
	}
}

func TestEmptyReplyFallsBackToPlaceholder(t *testing.T) {
	responder := &fakeResponder{}
	o, _, synth, store := newTestOrchestrator(responder)

	o.HandleEvent(context.Background(), confirmed("Say nothing"))
	waitIdle(t, o)

	streams := synth.opened()
	if len(streams) != 1 {
		t.Fatalf("got %d synthesis streams, want 1", len(streams))
	}
	units := streams[0].sentUnits()
	if len(units) != 1 || units[0].Text != "Okay." || !units[0].End {
		t.Errorf("got units %v, want single end unit Okay.", units)
	}

	turns, _ := store.History("test-session")
	if len(turns) != 2 || turns[1].Content != "Okay." {
		t.Errorf("placeholder reply should be recorded, got %+v", turns)
	}
}

func TestBargeInSendsExactlyOneInterrupt(t *testing.T) {
	responder := &fakeResponder{fragments: []string{"This answer goes on. "}, blocking: true}
	o, sink, _, store := newTestOrchestrator(responder)

	o.HandleEvent(context.Background(), confirmed("First question?"))

	// Wait until the first turn is mid-generation.
	deadline := time.After(2 * time.Second)
	for sink.count("llm_chunk:") == 0 {
		select {
		case <-deadline:
			t.Fatal("first turn never started generating")
		case <-time.After(5 * time.Millisecond):
		}
	}

	responder.setBlocking(false)
	o.HandleEvent(context.Background(), confirmed("Second question?"))
	waitIdle(t, o)

	if got := sink.count("audio_interrupt"); got != 1 {
		t.Fatalf("got %d interrupts, want exactly 1: %v", got, sink.messages())
	}

	// The interrupt lands before any of the second turn's output.
	msgs := sink.messages()
	interruptIdx := -1
	secondTranscript := -1
	for i, m := range msgs {
		if m == "audio_interrupt" {
			interruptIdx = i
		}
		if m == "transcription:Second question?" {
			secondTranscript = i
		}
	}
	if interruptIdx == -1 || secondTranscript == -1 || interruptIdx > secondTranscript {
		t.Errorf("interrupt must precede the new turn's output: %v", msgs)
	}

	// Only the completed second turn is recorded.
	turns, _ := store.History("test-session")
	for _, turn := range turns {
		if turn.Content == "First question?" {
			t.Errorf("cancelled turn leaked into history: %+v", turns)
		}
	}
}

func TestFailedTurnReportsErrorAndSkipsHistory(t *testing.T) {
	responder := &fakeResponder{fragments: []string{"Partial "}, err: errors.New("upstream exploded")}
	o, sink, _, store := newTestOrchestrator(responder)

	o.HandleEvent(context.Background(), confirmed("Break please"))
	waitIdle(t, o)

	if sink.count("error:") != 1 {
		t.Errorf("got %d error messages, want 1: %v", sink.count("error:"), sink.messages())
	}
	turns, _ := store.History("test-session")
	if len(turns) != 0 {
		t.Errorf("failed turn must not be recorded, got %+v", turns)
	}
}

func TestDuplicateUtteranceStartsNoTurn(t *testing.T) {
	responder := &fakeResponder{fragments: []string{"Reply one."}}
	o, _, synth, _ := newTestOrchestrator(responder)

	o.HandleEvent(context.Background(), confirmed("Same thing."))
	waitIdle(t, o)
	o.HandleEvent(context.Background(), confirmed("Same thing."))
	waitIdle(t, o)

	if got := len(synth.opened()); got != 1 {
		t.Errorf("duplicate should not start a second turn, got %d streams", got)
	}
	if responder.callCount() != 1 {
		t.Errorf("got %d responder calls, want 1", responder.callCount())
	}
}

func TestReceiverWaitReportsCancellationSentinel(t *testing.T) {
	logger := Logger.New(true)
	sink := &fakeSink{}
	stream := &fakeStream{chunks: make(chan types.SynthChunk)}

	ctx, cancel := context.WithCancel(context.Background())
	r := &receiver{done: make(chan struct{})}
	go r.run(ctx, stream, sink, logger)

	cancel()
	if err := r.wait(ctx); !errors.Is(err, types.ErrTurnCancelled) {
		t.Errorf("got %v, want ErrTurnCancelled", err)
	}
	if sink.count("audio_end") != 0 {
		t.Error("cancelled receive loop must not emit audio_end")
	}
}

func TestReceiverWaitKeepsDeadlineError(t *testing.T) {
	logger := Logger.New(true)
	sink := &fakeSink{}
	stream := &fakeStream{chunks: make(chan types.SynthChunk)}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	r := &receiver{done: make(chan struct{})}
	go r.run(ctx, stream, sink, logger)

	if err := r.wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("got %v, want DeadlineExceeded", err)
	}
}

func TestFreshContextIDPerTurn(t *testing.T) {
	responder := &fakeResponder{fragments: []string{"Reply."}}
	o, _, synth, _ := newTestOrchestrator(responder)

	o.HandleEvent(context.Background(), confirmed("First."))
	waitIdle(t, o)
	o.HandleEvent(context.Background(), confirmed("Second."))
	waitIdle(t, o)

	streams := synth.opened()
	if len(streams) != 2 {
		t.Fatalf("got %d streams, want 2", len(streams))
	}
	if streams[0].contextID == streams[1].contextID {
		t.Error("synthesis context id reused across turns")
	}
}
