package assistant

import (
	"context"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/vakya-ai/vakya/internal/types"
	"github.com/vakya-ai/vakya/pkg/Logger"
)

// openAIResponder streams replies via the chat completions API.
type openAIResponder struct {
	client openai.Client
	model  string
	logger *Logger.Logger
}

func newOpenAIResponder(apiKey, model string, logger *Logger.Logger) *openAIResponder {
	if model == "" {
		model = openai.ChatModelGPT4oMini
	}
	return &openAIResponder{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
		logger: logger,
	}
}

// StreamReply implements Responder.
func (o *openAIResponder) StreamReply(
	ctx context.Context,
	persona Persona,
	history []types.Turn,
	utterance string,
	onDelta func(string),
) (string, error) {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+2)
	msgs = append(msgs, openai.SystemMessage(persona.Instruction()))
	for _, t := range history {
		switch t.Role {
		case types.RoleAssistant:
			msgs = append(msgs, openai.AssistantMessage(t.Content))
		case types.RoleUser:
			msgs = append(msgs, openai.UserMessage(t.Content))
		}
	}
	msgs = append(msgs, openai.UserMessage(utterance))

	stream := o.client.Chat.Completions.NewStreaming(ctx, openai.ChatCompletionNewParams{
		Messages: msgs,
		Model:    o.model,
	})
	defer stream.Close()

	var full strings.Builder
	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		full.WriteString(delta)
		if onDelta != nil {
			onDelta(delta)
		}
	}
	if err := stream.Err(); err != nil {
		if ctx.Err() != nil {
			return full.String(), ctx.Err()
		}
		return full.String(), &types.UpstreamError{Service: "openai", Err: err}
	}
	return full.String(), nil
}
