package websocket

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/vakya-ai/vakya/internal/config"
	"github.com/vakya-ai/vakya/internal/domains/conversation"
	"github.com/vakya-ai/vakya/internal/domains/orchestrator"
	"github.com/vakya-ai/vakya/internal/domains/skills"
	"github.com/vakya-ai/vakya/pkg/Logger"
	"github.com/vakya-ai/vakya/pkg/assistant"
	"github.com/vakya-ai/vakya/pkg/audio"
	"github.com/vakya-ai/vakya/pkg/stt/assembly"
	"github.com/vakya-ai/vakya/pkg/tts/murf"
)

// frameQueueSize buffers roughly ten seconds of 16kHz PCM16 mic audio.
const frameQueueSize = 320 * 1024

// sendInterval paces buffered mic frames to the recognition service.
const sendInterval = 20 * time.Millisecond

// Handler upgrades voice connections and runs the streaming pipeline for
// each: mic frames in, recognition events through the orchestrator, audio
// back out.
type Handler struct {
	cfg      *config.Settings
	store    conversation.Store
	upgrader websocket.Upgrader
	logger   *Logger.Logger
}

func NewHandler(cfg *config.Settings, store conversation.Store, logger *Logger.Logger) *Handler {
	return &Handler{
		cfg:   cfg,
		store: store,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger: logger,
	}
}

// connParams are resolved per connection: config defaults overridden by
// query parameters.
type connParams struct {
	persona     assistant.Persona
	voiceID     string
	sessionID   string
	assemblyKey string
	geminiKey   string
	murfKey     string
	newsKey     string
}

func (h *Handler) resolveParams(c *gin.Context) connParams {
	pick := func(query, fallback string) string {
		if v := c.Query(query); v != "" {
			return v
		}
		return fallback
	}
	return connParams{
		persona:     assistant.ParsePersona(pick("persona", h.cfg.Persona)),
		voiceID:     pick("voice", h.cfg.Voice.DefaultVoiceID),
		sessionID:   pick("session", c.Request.RemoteAddr),
		assemblyKey: pick("assembly", h.cfg.Keys.AssemblyAI),
		geminiKey:   pick("gemini", h.cfg.Keys.Gemini),
		murfKey:     pick("murf", h.cfg.Keys.Murf),
		newsKey:     pick("news", h.cfg.Keys.News),
	}
}

// Handle serves one voice connection until the client goes away.
func (h *Handler) Handle(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Errorf("websocket upgrade failed: %v", err)
		return
	}
	session := NewSession(conn)
	defer session.Close()

	params := h.resolveParams(c)
	log := h.logger.Named("ws").With("session", params.sessionID)

	if missing := h.missingCredential(params); missing != "" {
		log.Warnf("rejecting connection, missing %s key", missing)
		session.SendError("Missing API key for " + missing + ". Configure it on the server or pass it as a query parameter.")
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	responder, err := assistant.NewResponder(assistant.Options{
		Provider:    h.cfg.LLM.Provider,
		GeminiKey:   params.geminiKey,
		GeminiModel: h.cfg.LLM.GeminiModel,
		OpenAIKey:   h.cfg.LLM.OpenAIKey,
		OpenAIModel: h.cfg.LLM.OpenAIModel,
		OllamaURLs:  h.cfg.LLM.OllamaURLs,
		OllamaModel: h.cfg.LLM.OllamaModel,
	}, h.logger)
	if err != nil {
		log.Errorf("responder init failed: %v", err)
		session.SendError("The language model backend is unavailable.")
		return
	}
	// The responder is per-connection (it may carry an override key);
	// release its client connections when the socket goes away.
	if closer, ok := responder.(io.Closer); ok {
		defer closer.Close()
	}

	recognizer, err := assembly.DialRealtime(ctx, assembly.StreamParams{
		APIKey:     params.assemblyKey,
		SampleRate: h.cfg.Voice.STTSampleRate,
	}, h.logger)
	if err != nil {
		log.Errorf("recognition dial failed: %v", err)
		session.SendError("Could not reach the speech recognition service.")
		return
	}
	defer recognizer.Close()

	orch := orchestrator.New(orchestrator.Options{
		SessionID: params.sessionID,
		Sink:      session,
		Responder: responder,
		Synth: &murfSynthesizer{
			params: murf.StreamParams{
				APIKey:      params.murfKey,
				VoiceID:     params.voiceID,
				Style:       h.cfg.Voice.Style,
				SampleRate:  h.cfg.Voice.SampleRate,
				ChannelType: h.cfg.Voice.ChannelType,
				Format:      h.cfg.Voice.Format,
			},
			logger: h.logger,
		},
		Store:   h.store,
		Skills:  skills.NewRunner(params.newsKey, h.cfg.Turn.SkillTimeout, h.logger),
		Persona: params.persona,
		Budget:  h.cfg.Turn.Budget,
		Grace:   h.cfg.Turn.CancelGrace,
		Logger:  log,
	})
	defer orch.Shutdown()

	session.SendStatus("Connected. Start speaking when ready.")

	frames := audio.NewFrameQueue(frameQueueSize)
	go h.pumpFrames(ctx, frames, recognizer, log)
	go h.consumeEvents(ctx, recognizer, orch)

	h.readLoop(ctx, session, frames, log)
}

func (h *Handler) missingCredential(p connParams) string {
	switch {
	case p.assemblyKey == "":
		return "AssemblyAI"
	case p.murfKey == "":
		return "Murf"
	case h.cfg.LLM.Provider == "" || h.cfg.LLM.Provider == "gemini":
		if p.geminiKey == "" {
			return "Gemini"
		}
	}
	return ""
}

// readLoop is the single reader on the client socket: binary frames go
// into the queue, ping messages get a pong.
func (h *Handler) readLoop(ctx context.Context, session *Session, frames *audio.FrameQueue, log *Logger.Logger) {
	for {
		kind, data, err := session.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warnf("client connection dropped: %v", err)
			} else {
				log.Infof("client disconnected")
			}
			return
		}
		if ctx.Err() != nil {
			return
		}

		switch kind {
		case websocket.BinaryMessage:
			if err := frames.Enqueue(data); err != nil {
				log.Warnf("dropping mic frame: %v", err)
			}
		case websocket.TextMessage:
			var msg clientMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				continue
			}
			if msg.Type == "ping" {
				session.SendPong()
			}
		}
	}
}

// pumpFrames drains buffered mic audio to the recognition service on a
// fixed cadence.
func (h *Handler) pumpFrames(ctx context.Context, frames *audio.FrameQueue, recognizer *assembly.RealtimeSession, log *Logger.Logger) {
	ticker := time.NewTicker(sendInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for {
				frame, ok := frames.Dequeue()
				if !ok {
					break
				}
				if err := recognizer.SendAudio(frame); err != nil {
					log.Warnf("recognition send failed: %v", err)
					return
				}
			}
		}
	}
}

// consumeEvents is the single consumer of recognition events; the
// orchestrator relies on events arriving from one goroutine.
func (h *Handler) consumeEvents(ctx context.Context, recognizer *assembly.RealtimeSession, orch *orchestrator.Orchestrator) {
	for ev := range recognizer.Events() {
		if ctx.Err() != nil {
			return
		}
		orch.HandleEvent(ctx, ev)
	}
}

// murfSynthesizer opens one synthesis stream per turn with a fresh
// context id.
type murfSynthesizer struct {
	params murf.StreamParams
	logger *Logger.Logger
}

func (m *murfSynthesizer) OpenStream(ctx context.Context, contextID string) (orchestrator.SynthStream, error) {
	p := m.params
	p.ContextID = contextID
	return murf.DialStream(ctx, p, m.logger)
}
