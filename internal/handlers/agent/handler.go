package agent

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vakya-ai/vakya/internal/config"
	"github.com/vakya-ai/vakya/internal/domains/conversation"
	"github.com/vakya-ai/vakya/internal/types"
	"github.com/vakya-ai/vakya/pkg/Logger"
	"github.com/vakya-ai/vakya/pkg/assistant"
	"github.com/vakya-ai/vakya/pkg/stt/assembly"
	"github.com/vakya-ai/vakya/pkg/tts/murf"
)

// Handler serves the non-streaming chat path: one uploaded recording in,
// one transcript, reply and rendered audio URL out.
type Handler struct {
	cfg         *config.Settings
	store       conversation.Store
	transcriber *assembly.Transcriber
	responder   assistant.Responder
	tts         *murf.Client
	logger      *Logger.Logger
}

func NewHandler(
	cfg *config.Settings,
	store conversation.Store,
	transcriber *assembly.Transcriber,
	responder assistant.Responder,
	tts *murf.Client,
	logger *Logger.Logger,
) *Handler {
	return &Handler{
		cfg:         cfg,
		store:       store,
		transcriber: transcriber,
		responder:   responder,
		tts:         tts,
		logger:      logger.Named("agent"),
	}
}

type chatResponse struct {
	Transcript  string `json:"transcript"`
	LLMResponse string `json:"llm_response"`
	AudioURL    string `json:"audio_url"`
}

type historyEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Chat handles POST /agent/chat/:session_id: transcribe the uploaded
// recording, answer with history context and render the reply to speech.
// The session history is cleared when the exchange fails partway, so a
// half-recorded turn never poisons later context.
func (h *Handler) Chat(c *gin.Context) {
	if h.responder == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "language model backend is not configured"})
		return
	}
	sessionID := c.Param("session_id")

	file, _, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing audio file upload"})
		return
	}
	defer file.Close()

	voiceID := c.PostForm("voice_id")
	if voiceID == "" {
		voiceID = h.cfg.Voice.DefaultVoiceID
	}

	ctx := c.Request.Context()

	transcript, err := h.transcriber.Transcribe(ctx, file)
	if err != nil {
		h.logger.Errorf("transcription failed for %s: %v", sessionID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "transcription failed"})
		return
	}
	if transcript == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no speech detected in the recording"})
		return
	}

	history, err := h.store.History(sessionID)
	if err != nil {
		h.logger.Warnf("failed to load history for %s: %v", sessionID, err)
	}
	if err := h.store.Append(sessionID, types.RoleUser, transcript); err != nil {
		h.logger.Warnf("failed to record user turn for %s: %v", sessionID, err)
	}

	persona := assistant.ParsePersona(h.cfg.Persona)
	reply, err := h.responder.StreamReply(ctx, persona, history, transcript, nil)
	if err != nil {
		h.logger.Errorf("generation failed for %s: %v", sessionID, err)
		h.clearHistory(sessionID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "language model request failed"})
		return
	}
	if reply == "" {
		reply = "Okay."
	}
	if err := h.store.Append(sessionID, types.RoleAssistant, reply); err != nil {
		h.logger.Warnf("failed to record assistant turn for %s: %v", sessionID, err)
	}

	audioURL, err := h.tts.Generate(ctx, reply, voiceID, h.cfg.Voice.Style)
	if err != nil {
		h.logger.Errorf("synthesis failed for %s: %v", sessionID, err)
		h.clearHistory(sessionID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "speech synthesis failed"})
		return
	}

	c.JSON(http.StatusOK, chatResponse{
		Transcript:  transcript,
		LLMResponse: reply,
		AudioURL:    audioURL,
	})
}

// History handles GET /agent/chat/history/:session_id. System turns are
// internal and never shown.
func (h *Handler) History(c *gin.Context) {
	sessionID := c.Param("session_id")
	turns, err := h.store.History(sessionID)
	if err != nil {
		h.logger.Errorf("failed to load history for %s: %v", sessionID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load history"})
		return
	}

	out := make([]historyEntry, 0, len(turns))
	for _, t := range turns {
		if t.Role == types.RoleSystem {
			continue
		}
		out = append(out, historyEntry{Role: string(t.Role), Content: t.Content})
	}
	c.JSON(http.StatusOK, gin.H{"session_id": sessionID, "history": out})
}

func (h *Handler) clearHistory(sessionID string) {
	if err := h.store.Clear(sessionID); err != nil {
		h.logger.Warnf("failed to clear history for %s: %v", sessionID, err)
	}
}
