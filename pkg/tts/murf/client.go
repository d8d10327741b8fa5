package murf

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/vakya-ai/vakya/internal/types"
	"github.com/vakya-ai/vakya/pkg/Logger"
)

// DefaultRESTURL is the Murf REST base for one-shot synthesis.
const DefaultRESTURL = "https://api.murf.ai/v1"

// Client runs one-shot synthesis over the REST API, returning a hosted
// audio URL rather than raw bytes.
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
	logger  *Logger.Logger
}

// NewClient builds a REST synthesis client. baseURL falls back to the
// public API when empty.
func NewClient(apiKey, baseURL string, logger *Logger.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultRESTURL
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
		logger:  logger,
	}
}

type generateRequest struct {
	Text    string `json:"text"`
	VoiceID string `json:"voiceId"`
	Style   string `json:"style,omitempty"`
}

type generateResponse struct {
	AudioFile string `json:"audioFile"`
}

// Generate synthesizes text with the given voice and returns the URL of
// the rendered audio file.
func (c *Client) Generate(ctx context.Context, text, voiceID, style string) (string, error) {
	if c.apiKey == "" {
		return "", &types.ConfigurationError{Missing: "murf api key"}
	}

	body, err := json.Marshal(generateRequest{Text: text, VoiceID: voiceID, Style: style})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/speech/generate", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", &types.UpstreamError{Service: "murf", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", &types.UpstreamError{
			Service: "murf",
			Err:     fmt.Errorf("status %d: %s", resp.StatusCode, string(data)),
		}
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &types.UpstreamError{Service: "murf", Err: err}
	}
	if out.AudioFile == "" {
		return "", &types.UpstreamError{Service: "murf", Err: fmt.Errorf("generate returned no audio url")}
	}
	return out.AudioFile, nil
}
