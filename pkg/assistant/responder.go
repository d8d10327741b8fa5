package assistant

import (
	"context"
	"fmt"

	"github.com/vakya-ai/vakya/internal/types"
	"github.com/vakya-ai/vakya/pkg/Logger"
)

// Responder streams a reply to one user utterance. Fragments are pushed
// through onDelta (which may be nil) as they arrive; the full accumulated
// text is returned when the stream ends. A stream is not restartable: a
// fresh call must be made to regenerate.
type Responder interface {
	StreamReply(
		ctx context.Context,
		persona Persona,
		history []types.Turn,
		utterance string,
		onDelta func(string),
	) (string, error)
}

// Options selects and configures a responder backend.
type Options struct {
	Provider    string // gemini | openai | ollama
	GeminiKey   string
	GeminiModel string
	OpenAIKey   string
	OpenAIModel string
	OllamaURLs  []string
	OllamaModel string
}

// NewResponder builds the configured language-model backend.
func NewResponder(opts Options, logger *Logger.Logger) (Responder, error) {
	switch opts.Provider {
	case "", "gemini":
		return newGeminiResponder(opts.GeminiKey, opts.GeminiModel, logger)
	case "openai":
		return newOpenAIResponder(opts.OpenAIKey, opts.OpenAIModel, logger), nil
	case "ollama":
		return newOllamaResponder(opts.OllamaURLs, opts.OllamaModel, logger)
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", opts.Provider)
	}
}
