package orchestrator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/looplab/fsm"

	"github.com/vakya-ai/vakya/internal/domains/conversation"
	"github.com/vakya-ai/vakya/internal/domains/skills"
	"github.com/vakya-ai/vakya/internal/types"
	"github.com/vakya-ai/vakya/pkg/Logger"
	"github.com/vakya-ai/vakya/pkg/assistant"
)

// Turn lifecycle states.
const (
	StateIdle         = "idle"
	StateListening    = "listening"
	StateGenerating   = "generating"
	StateSynthesizing = "synthesizing"
	StateDone         = "done"
	StateCancelled    = "cancelled"
	StateFailed       = "failed"
)

// ClientSink is the outbound half of a client connection. Implementations
// must serialize writes internally.
type ClientSink interface {
	SendTranscription(text string) error
	SendLLMChunk(text string) error
	SendAudioStart() error
	SendAudio(b64 string) error
	SendAudioEnd() error
	SendInterrupt() error
	SendStatus(text string) error
	SendError(text string) error
}

// Synthesizer opens one synthesis stream per turn. The context identifier
// must be fresh for every call so audio never bleeds across turns.
type Synthesizer interface {
	OpenStream(ctx context.Context, contextID string) (SynthStream, error)
}

// SynthStream is one live synthesis session.
type SynthStream interface {
	SendText(text string, end bool) error
	Chunks() <-chan types.SynthChunk
	Close() error
}

// Options wires one orchestrator to its collaborators.
type Options struct {
	SessionID string
	Sink      ClientSink
	Responder assistant.Responder
	Synth     Synthesizer
	Store     conversation.Store
	Skills    *skills.Runner
	Persona   assistant.Persona

	// Budget bounds a whole turn; Grace bounds how long a preempted turn
	// may take to wind down before the new one proceeds.
	Budget time.Duration
	Grace  time.Duration

	Logger *Logger.Logger
}

// Orchestrator owns the turn lifecycle for one client connection: it
// confirms utterances, cancels any in-flight turn on barge-in, and drives
// intent routing, generation and synthesis for the new turn.
type Orchestrator struct {
	opts  Options
	dedup Deduplicator

	mu     sync.Mutex
	active *activeTurn
}

type activeTurn struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func New(opts Options) *Orchestrator {
	if opts.Budget <= 0 {
		opts.Budget = 60 * time.Second
	}
	if opts.Grace <= 0 {
		opts.Grace = 5 * time.Second
	}
	return &Orchestrator{opts: opts}
}

// HandleEvent feeds one recognition event through the deduplicator and,
// when it confirms a new utterance, preempts any active turn and starts a
// new one. Callers must feed events from a single goroutine.
func (o *Orchestrator) HandleEvent(ctx context.Context, ev types.RecognitionEvent) {
	utterance, ok := o.dedup.Accept(ev)
	if !ok {
		if ev.EndOfTurn {
			o.opts.Logger.Debugf("suppressed duplicate or empty utterance for %s", o.opts.SessionID)
		}
		return
	}

	o.preempt()

	turnCtx, cancel := context.WithTimeout(ctx, o.opts.Budget)
	at := &activeTurn{cancel: cancel, done: make(chan struct{})}
	o.mu.Lock()
	o.active = at
	o.mu.Unlock()

	go func() {
		defer close(at.done)
		defer cancel()
		o.runTurn(turnCtx, utterance)
		o.mu.Lock()
		if o.active == at {
			o.active = nil
		}
		o.mu.Unlock()
	}()
}

// Shutdown cancels any in-flight turn and waits for it to finish.
func (o *Orchestrator) Shutdown() {
	o.mu.Lock()
	at := o.active
	o.mu.Unlock()
	if at == nil {
		return
	}
	at.cancel()
	<-at.done
}

// preempt cancels the in-flight turn, waits up to Grace for it to wind
// down, and tells the client to drop buffered audio. Exactly one interrupt
// is sent per preemption, before the new turn produces any output.
func (o *Orchestrator) preempt() {
	o.mu.Lock()
	at := o.active
	o.active = nil
	o.mu.Unlock()
	if at == nil {
		return
	}

	at.cancel()
	select {
	case <-at.done:
	case <-time.After(o.opts.Grace):
		o.opts.Logger.Warnf("preempted turn for %s did not wind down within grace", o.opts.SessionID)
	}
	if err := o.opts.Sink.SendInterrupt(); err != nil {
		o.opts.Logger.Warnf("failed to send interrupt: %v", err)
	}
}

func newTurnFSM(logger *Logger.Logger) *fsm.FSM {
	return fsm.NewFSM(
		StateIdle,
		fsm.Events{
			{Name: "listen", Src: []string{StateIdle}, Dst: StateListening},
			{Name: "generate", Src: []string{StateListening}, Dst: StateGenerating},
			{Name: "synthesize", Src: []string{StateGenerating}, Dst: StateSynthesizing},
			{Name: "finish", Src: []string{StateSynthesizing}, Dst: StateDone},
			{Name: "cancel", Src: []string{StateListening, StateGenerating, StateSynthesizing}, Dst: StateCancelled},
			{Name: "fail", Src: []string{StateListening, StateGenerating, StateSynthesizing}, Dst: StateFailed},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				logger.Debugf("turn state %s -> %s", e.Src, e.Dst)
			},
		},
	)
}

// cancellationError maps a preempted context onto the turn-cancelled
// sentinel; budget expiry keeps its deadline error so the two terminal
// paths stay distinguishable.
func cancellationError(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return types.ErrTurnCancelled
	}
	return ctx.Err()
}

// runTurn drives one confirmed utterance to a terminal state.
func (o *Orchestrator) runTurn(ctx context.Context, utterance string) {
	log := o.opts.Logger
	machine := newTurnFSM(log)
	if err := machine.Event(ctx, "listen"); err != nil {
		log.Errorf("turn fsm: %v", err)
		return
	}

	if err := o.opts.Sink.SendTranscription(utterance); err != nil {
		log.Warnf("failed to relay transcript: %v", err)
	}
	if err := machine.Event(ctx, "generate"); err != nil {
		log.Errorf("turn fsm: %v", err)
		return
	}

	reply, err := o.produce(ctx, machine, utterance)
	switch {
	case err == nil:
		if ferr := machine.Event(ctx, "finish"); ferr != nil {
			log.Errorf("turn fsm: %v", ferr)
		}
		o.recordExchange(utterance, reply)
		if serr := o.opts.Sink.SendStatus("turn complete"); serr != nil {
			log.Warnf("failed to send status: %v", serr)
		}

	case errors.Is(err, context.DeadlineExceeded):
		// The turn budget ran out. Behaves like a barge-in cancellation:
		// the client drops whatever audio it buffered.
		machine.Event(context.Background(), "cancel")
		log.Warnf("turn for %s exceeded budget, cancelling", o.opts.SessionID)
		o.opts.Sink.SendInterrupt()
		o.opts.Sink.SendStatus("turn cancelled")

	case errors.Is(err, context.Canceled), errors.Is(err, types.ErrTurnCancelled):
		// Preempted. The preemptor owns the interrupt message.
		machine.Event(context.Background(), "cancel")
		log.Infof("turn for %s cancelled", o.opts.SessionID)

	default:
		machine.Event(context.Background(), "fail")
		log.Errorf("turn for %s failed: %v", o.opts.SessionID, err)
		o.opts.Sink.SendError("Sorry, something went wrong while answering.")
	}
}

// produce routes the utterance and streams the reply through synthesis.
// It returns the full reply text on success.
func (o *Orchestrator) produce(ctx context.Context, machine *fsm.FSM, utterance string) (string, error) {
	intent := skills.Resolve(utterance)
	if intent.IsSkill() {
		reply := o.opts.Skills.Execute(ctx, intent)
		if ctx.Err() != nil {
			return "", cancellationError(ctx)
		}
		if err := machine.Event(ctx, "synthesize"); err != nil {
			return "", err
		}
		if err := o.opts.Sink.SendLLMChunk(reply); err != nil {
			o.opts.Logger.Warnf("failed to send display update: %v", err)
		}
		return reply, o.speak(ctx, []string{reply})
	}

	return o.generateAndSpeak(ctx, machine, utterance)
}

// generateAndSpeak streams the language-model reply, splitting it into
// sentence units and relaying them to synthesis as they complete. Units
// are held one behind so the last one can carry the end flag.
func (o *Orchestrator) generateAndSpeak(ctx context.Context, machine *fsm.FSM, utterance string) (string, error) {
	history, err := o.opts.Store.History(o.opts.SessionID)
	if err != nil {
		o.opts.Logger.Warnf("failed to load history for %s: %v", o.opts.SessionID, err)
	}

	var (
		buf      assistant.SentenceBuffer
		stream   SynthStream
		recv     *receiver
		pending  string
		sinkErr  error
		streamMu sync.Mutex
	)

	defer func() {
		if stream != nil {
			stream.Close()
		}
	}()

	pushUnit := func(unit string) {
		streamMu.Lock()
		defer streamMu.Unlock()
		if sinkErr != nil {
			return
		}
		if stream == nil {
			if err := machine.Event(ctx, "synthesize"); err != nil {
				sinkErr = err
				return
			}
			s, r, err := o.openSynth(ctx)
			if err != nil {
				sinkErr = err
				return
			}
			stream, recv = s, r
		}
		if pending != "" {
			if err := stream.SendText(pending, false); err != nil {
				sinkErr = err
				return
			}
		}
		pending = unit
	}

	full, genErr := o.opts.Responder.StreamReply(ctx, o.opts.Persona, history, utterance, func(frag string) {
		if err := o.opts.Sink.SendLLMChunk(frag); err != nil {
			o.opts.Logger.Warnf("failed to send display update: %v", err)
		}
		for _, unit := range buf.Feed(frag) {
			pushUnit(unit)
		}
	})
	if genErr != nil {
		return full, genErr
	}
	if sinkErr != nil {
		return full, sinkErr
	}

	if rest := buf.Flush(); rest != "" {
		pushUnit(rest)
	}
	if pending == "" {
		// Nothing synthesizable came back from the model; keep the voice
		// alive with a fixed placeholder.
		full = "Okay."
		if err := o.opts.Sink.SendLLMChunk(full); err != nil {
			o.opts.Logger.Warnf("failed to send display update: %v", err)
		}
		pushUnit(full)
	}
	if sinkErr != nil {
		return full, sinkErr
	}

	if err := stream.SendText(pending, true); err != nil {
		return full, err
	}
	return full, recv.wait(ctx)
}

// speak synthesizes pre-built units, used by the skill path. The last
// unit carries the end flag.
func (o *Orchestrator) speak(ctx context.Context, units []string) error {
	stream, recv, err := o.openSynth(ctx)
	if err != nil {
		return err
	}
	defer stream.Close()

	for i, unit := range units {
		if err := stream.SendText(unit, i == len(units)-1); err != nil {
			return err
		}
	}
	return recv.wait(ctx)
}

// openSynth opens a per-turn synthesis stream with a fresh context id and
// starts its receive loop.
func (o *Orchestrator) openSynth(ctx context.Context) (SynthStream, *receiver, error) {
	stream, err := o.opts.Synth.OpenStream(ctx, uuid.NewString())
	if err != nil {
		return nil, nil, err
	}
	recv := &receiver{done: make(chan struct{})}
	go recv.run(ctx, stream, o.opts.Sink, o.opts.Logger)
	return stream, recv, nil
}

// receiver consumes synthesis chunks and relays them to the client with
// audio_start/audio_end boundaries.
type receiver struct {
	done chan struct{}
	err  error
}

func (r *receiver) run(ctx context.Context, stream SynthStream, sink ClientSink, log *Logger.Logger) {
	defer close(r.done)
	started := false
	ended := false
	endAudio := func() {
		if started && !ended {
			ended = true
			if err := sink.SendAudioEnd(); err != nil {
				log.Warnf("failed to send audio end: %v", err)
			}
		}
	}
	defer endAudio()

	for {
		select {
		case <-ctx.Done():
			r.err = cancellationError(ctx)
			// Cancellation: the interrupt replaces the end marker.
			ended = true
			return
		case chunk, open := <-stream.Chunks():
			if !open {
				// Closure before a final flag is a graceful end.
				return
			}
			if chunk.Audio != "" {
				if !started {
					started = true
					if err := sink.SendAudioStart(); err != nil {
						log.Warnf("failed to send audio start: %v", err)
					}
				}
				if err := sink.SendAudio(chunk.Audio); err != nil {
					log.Warnf("failed to send audio: %v", err)
				}
			}
			if chunk.Final {
				return
			}
		}
	}
}

// wait blocks until the receive loop finishes or the turn is cancelled.
func (r *receiver) wait(ctx context.Context) error {
	select {
	case <-r.done:
		return r.err
	case <-ctx.Done():
		<-r.done
		return cancellationError(ctx)
	}
}

// recordExchange appends both sides of a completed turn to history.
// Nothing is recorded for cancelled or failed turns.
func (o *Orchestrator) recordExchange(utterance, reply string) {
	if err := o.opts.Store.Append(o.opts.SessionID, types.RoleUser, utterance); err != nil {
		o.opts.Logger.Warnf("failed to record user turn: %v", err)
		return
	}
	if err := o.opts.Store.Append(o.opts.SessionID, types.RoleAssistant, reply); err != nil {
		o.opts.Logger.Warnf("failed to record assistant turn: %v", err)
	}
}
