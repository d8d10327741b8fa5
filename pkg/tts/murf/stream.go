package murf

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vakya-ai/vakya/internal/types"
	"github.com/vakya-ai/vakya/pkg/Logger"
)

// DefaultStreamURL is the Murf streaming synthesis endpoint.
const DefaultStreamURL = "wss://api.murf.ai/v1/speech/stream-input"

// StreamParams configures a streaming synthesis session.
type StreamParams struct {
	APIKey      string
	VoiceID     string
	Style       string
	SampleRate  int
	ChannelType string
	Format      string
	// ContextID groups all text of one reply into a single voice context
	// so prosody carries across sentence boundaries.
	ContextID string
	// BaseURL overrides the endpoint, mainly for tests.
	BaseURL string
}

// Stream is one live synthesis session. Text units go in via SendText;
// base64 audio chunks come out on Chunks. The chunk channel closes when
// the upstream finishes or the socket drops.
type Stream struct {
	conn      *websocket.Conn
	chunks    chan types.SynthChunk
	contextID string
	logger    *Logger.Logger
	writeMu   sync.Mutex
	closeMu   sync.Once
	quit      chan struct{}
}

type voiceConfigMessage struct {
	VoiceConfig voiceConfig `json:"voice_config"`
	ContextID   string      `json:"context_id,omitempty"`
}

type voiceConfig struct {
	VoiceID string `json:"voiceId"`
	Style   string `json:"style,omitempty"`
}

type textMessage struct {
	Text      string `json:"text"`
	End       bool   `json:"end,omitempty"`
	ContextID string `json:"context_id,omitempty"`
}

type audioMessage struct {
	Audio string `json:"audio"`
	Final bool   `json:"final"`
	Error string `json:"error"`
}

// DialStream opens a synthesis session and sends the voice configuration.
func DialStream(ctx context.Context, params StreamParams, logger *Logger.Logger) (*Stream, error) {
	if params.APIKey == "" {
		return nil, &types.ConfigurationError{Missing: "murf api key"}
	}
	base := params.BaseURL
	if base == "" {
		base = DefaultStreamURL
	}

	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("invalid synthesis url: %w", err)
	}
	q := u.Query()
	q.Set("api-key", params.APIKey)
	q.Set("sample_rate", fmt.Sprintf("%d", params.SampleRate))
	q.Set("channel_type", params.ChannelType)
	q.Set("format", params.Format)
	u.RawQuery = q.Encode()

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, resp, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil {
			return nil, &types.UpstreamError{Service: "murf", Err: fmt.Errorf("dial failed with status %s: %w", resp.Status, err)}
		}
		return nil, &types.UpstreamError{Service: "murf", Err: err}
	}

	s := &Stream{
		conn:      conn,
		chunks:    make(chan types.SynthChunk, 16),
		contextID: params.ContextID,
		logger:    logger,
		quit:      make(chan struct{}),
	}

	cfg := voiceConfigMessage{
		VoiceConfig: voiceConfig{VoiceID: params.VoiceID, Style: params.Style},
		ContextID:   params.ContextID,
	}
	if err := s.writeJSON(cfg); err != nil {
		conn.Close()
		return nil, err
	}

	go s.readLoop()
	return s, nil
}

// SendText submits one text unit. end marks the last unit of the reply;
// the upstream flushes remaining audio and sends a final chunk after it.
func (s *Stream) SendText(text string, end bool) error {
	return s.writeJSON(textMessage{Text: text, End: end, ContextID: s.contextID})
}

// Chunks delivers synthesized audio in playback order.
func (s *Stream) Chunks() <-chan types.SynthChunk {
	return s.chunks
}

// Close tears the socket down. Safe to call more than once; the chunk
// channel closes shortly after.
func (s *Stream) Close() error {
	var err error
	s.closeMu.Do(func() {
		close(s.quit)
		err = s.conn.Close()
	})
	return err
}

func (s *Stream) writeJSON(v interface{}) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.WriteJSON(v); err != nil {
		return &types.UpstreamError{Service: "murf", Err: err}
	}
	return nil
}

func (s *Stream) readLoop() {
	defer close(s.chunks)
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warnf("murf stream closed: %v", err)
			}
			return
		}

		var msg audioMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.logger.Warnf("unparseable murf message: %v", err)
			continue
		}
		if msg.Error != "" {
			s.logger.Errorf("murf error: %s", msg.Error)
			return
		}
		if msg.Audio != "" || msg.Final {
			select {
			case s.chunks <- types.SynthChunk{Audio: msg.Audio, Final: msg.Final}:
			case <-s.quit:
				return
			}
		}
		if msg.Final {
			return
		}
	}
}
