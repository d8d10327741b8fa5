package assembly

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

// DefaultRESTURL is the AssemblyAI REST base for batch transcription.
const DefaultRESTURL = "https://api.assemblyai.com/v2"

// Transcriber runs one-shot transcriptions over the REST API: upload the
// full recording, then poll until the transcript settles.
type Transcriber struct {
	apiKey  string
	baseURL string
	client  *http.Client
	logger  *Logger.Logger
	// pollInterval is shortened in tests.
	pollInterval time.Duration
}

// NewTranscriber builds a REST transcriber. baseURL falls back to the
// public API when empty.
func NewTranscriber(apiKey, baseURL string, logger *Logger.Logger) *Transcriber {
	if baseURL == "" {
		baseURL = DefaultRESTURL
	}
	return &Transcriber{
		apiKey:       apiKey,
		baseURL:      baseURL,
		client:       &http.Client{Timeout: 30 * time.Second},
		logger:       logger,
		pollInterval: time.Second,
	}
}

type uploadResponse struct {
	UploadURL string `json:"upload_url"`
}

type transcriptResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Text   string `json:"text"`
	Error  string `json:"error"`
}

// Transcribe uploads audio and blocks until the transcript is ready.
func (t *Transcriber) Transcribe(ctx context.Context, audio io.Reader) (string, error) {
	if t.apiKey == "" {
		return "", &types.ConfigurationError{Missing: "assemblyai api key"}
	}

	uploadURL, err := t.upload(ctx, audio)
	if err != nil {
		return "", err
	}
	id, err := t.submit(ctx, uploadURL)
	if err != nil {
		return "", err
	}
	return t.poll(ctx, id)
}

func (t *Transcriber) upload(ctx context.Context, audio io.Reader) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/upload", audio)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", t.apiKey)
	req.Header.Set("Content-Type", "application/octet-stream")

	var out uploadResponse
	if err := t.do(req, &out); err != nil {
		return "", err
	}
	if out.UploadURL == "" {
		return "", &types.UpstreamError{Service: "assemblyai", Err: fmt.Errorf("upload returned no url")}
	}
	return out.UploadURL, nil
}

func (t *Transcriber) submit(ctx context.Context, audioURL string) (string, error) {
	body, _ := json.Marshal(map[string]string{"audio_url": audioURL})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/transcript", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", t.apiKey)
	req.Header.Set("Content-Type", "application/json")

	var out transcriptResponse
	if err := t.do(req, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", &types.UpstreamError{Service: "assemblyai", Err: fmt.Errorf("transcript submission returned no id")}
	}
	return out.ID, nil
}

func (t *Transcriber) poll(ctx context.Context, id string) (string, error) {
	ticker := time.NewTicker(t.pollInterval)
	defer ticker.Stop()

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"/transcript/"+id, nil)
		if err != nil {
			return "", err
		}
		req.Header.Set("Authorization", t.apiKey)

		var out transcriptResponse
		if err := t.do(req, &out); err != nil {
			return "", err
		}
		switch out.Status {
		case "completed":
			return out.Text, nil
		case "error":
			return "", &types.UpstreamError{Service: "assemblyai", Err: fmt.Errorf("transcription failed: %s", out.Error)}
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}
	}
}

func (t *Transcriber) do(req *http.Request, out interface{}) error {
	resp, err := t.client.Do(req)
	if err != nil {
		return &types.UpstreamError{Service: "assemblyai", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &types.UpstreamError{
			Service: "assemblyai",
			Err:     fmt.Errorf("status %d: %s", resp.StatusCode, string(data)),
		}
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
