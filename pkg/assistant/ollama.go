package assistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/ollama/ollama/api"
	"github.com/presbrey/ollamafarm"

	"github.com/vakya-ai/vakya/internal/types"
	"github.com/vakya-ai/vakya/pkg/Logger"
)

// ollamaResponder streams replies from a pool of local ollama servers.
// The farm picks the first server that is online.
type ollamaResponder struct {
	farm   *ollamafarm.Farm
	model  string
	logger *Logger.Logger
}

func newOllamaResponder(urls []string, model string, logger *Logger.Logger) (*ollamaResponder, error) {
	if len(urls) == 0 {
		return nil, fmt.Errorf("no ollama urls configured")
	}
	farm := ollamafarm.New()
	for _, u := range urls {
		if err := farm.RegisterURL(u, nil); err != nil {
			logger.Warnf("failed to register ollama server %s: %v", u, err)
		}
	}
	return &ollamaResponder{
		farm:   farm,
		model:  model,
		logger: logger,
	}, nil
}

// StreamReply implements Responder.
func (o *ollamaResponder) StreamReply(
	ctx context.Context,
	persona Persona,
	history []types.Turn,
	utterance string,
	onDelta func(string),
) (string, error) {
	server := o.farm.First(&ollamafarm.Where{Offline: false})
	if server == nil {
		return "", &types.UpstreamError{Service: "ollama", Err: fmt.Errorf("no online server for model %s", o.model)}
	}

	msgs := make([]api.Message, 0, len(history)+2)
	msgs = append(msgs, api.Message{Role: "system", Content: persona.Instruction()})
	for _, t := range history {
		switch t.Role {
		case types.RoleUser, types.RoleAssistant:
			msgs = append(msgs, api.Message{Role: string(t.Role), Content: t.Content})
		}
	}
	msgs = append(msgs, api.Message{Role: "user", Content: utterance})

	streaming := true
	req := api.ChatRequest{
		Model:    o.model,
		Messages: msgs,
		Stream:   &streaming,
	}

	var full strings.Builder
	err := server.Client().Chat(ctx, &req, func(resp api.ChatResponse) error {
		if resp.Message.Content != "" {
			full.WriteString(resp.Message.Content)
			if onDelta != nil {
				onDelta(resp.Message.Content)
			}
		}
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return full.String(), ctx.Err()
		}
		return full.String(), &types.UpstreamError{Service: "ollama", Err: err}
	}
	return full.String(), nil
}
