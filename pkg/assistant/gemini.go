package assistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/vakya-ai/vakya/internal/types"
	"github.com/vakya-ai/vakya/pkg/Logger"
)

// geminiResponder streams replies from the Gemini API.
type geminiResponder struct {
	client *genai.Client
	model  string
	logger *Logger.Logger
}

func newGeminiResponder(apiKey, model string, logger *Logger.Logger) (*geminiResponder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	if model == "" {
		model = "gemini-1.5-flash-002"
	}
	return &geminiResponder{
		client: client,
		model:  model,
		logger: logger,
	}, nil
}

// StreamReply implements Responder.
func (g *geminiResponder) StreamReply(
	ctx context.Context,
	persona Persona,
	history []types.Turn,
	utterance string,
	onDelta func(string),
) (string, error) {
	model := g.client.GenerativeModel(g.model)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(persona.Instruction())},
	}

	cs := model.StartChat()
	cs.History = historyToContents(history)

	iter := cs.SendMessageStream(ctx, genai.Text(utterance))

	var full strings.Builder
	for {
		resp, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			if ctx.Err() != nil {
				return full.String(), ctx.Err()
			}
			return full.String(), &types.UpstreamError{Service: "gemini", Err: err}
		}
		for _, cand := range resp.Candidates {
			if cand.Content == nil {
				continue
			}
			for _, part := range cand.Content.Parts {
				txt, ok := part.(genai.Text)
				if !ok || len(txt) == 0 {
					continue
				}
				full.WriteString(string(txt))
				if onDelta != nil {
					onDelta(string(txt))
				}
			}
		}
	}
	return full.String(), nil
}

func (g *geminiResponder) Close() error {
	return g.client.Close()
}

// historyToContents maps stored turns onto Gemini chat history. System
// entries are carried in the model's system instruction instead.
func historyToContents(history []types.Turn) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history))
	for _, t := range history {
		role := "user"
		switch t.Role {
		case types.RoleAssistant:
			role = "model"
		case types.RoleSystem:
			continue
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(t.Content)},
		})
	}
	return contents
}
