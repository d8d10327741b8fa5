package assembly

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vakya-ai/vakya/internal/types"
	"github.com/vakya-ai/vakya/pkg/Logger"
)

// DefaultStreamURL is the AssemblyAI v3 realtime endpoint.
const DefaultStreamURL = "wss://streaming.assemblyai.com/v3/ws"

// StreamParams configures a realtime transcription session.
type StreamParams struct {
	APIKey     string
	SampleRate int
	// BaseURL overrides the streaming endpoint, mainly for tests.
	BaseURL string
}

// RealtimeSession is a live transcription stream: PCM16 audio goes in as
// binary frames, recognition events come out on Events.
type RealtimeSession struct {
	conn    *websocket.Conn
	events  chan types.RecognitionEvent
	logger  *Logger.Logger
	writeMu sync.Mutex
	closeMu sync.Once
	quit    chan struct{}
	done    chan struct{}
}

// turnMessage is the subset of the v3 server messages we act on.
type turnMessage struct {
	Type            string `json:"type"`
	Transcript      string `json:"transcript"`
	EndOfTurn       bool   `json:"end_of_turn"`
	TurnIsFormatted bool   `json:"turn_is_formatted"`
	Error           string `json:"error"`
}

// DialRealtime opens a realtime transcription session.
func DialRealtime(ctx context.Context, params StreamParams, logger *Logger.Logger) (*RealtimeSession, error) {
	if params.APIKey == "" {
		return nil, &types.ConfigurationError{Missing: "assemblyai api key"}
	}
	base := params.BaseURL
	if base == "" {
		base = DefaultStreamURL
	}
	sampleRate := params.SampleRate
	if sampleRate == 0 {
		sampleRate = 16000
	}

	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("invalid streaming url: %w", err)
	}
	q := u.Query()
	q.Set("sample_rate", fmt.Sprintf("%d", sampleRate))
	q.Set("format_turns", "true")
	u.RawQuery = q.Encode()

	header := http.Header{}
	header.Set("Authorization", params.APIKey)

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, resp, err := dialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil {
			return nil, &types.UpstreamError{Service: "assemblyai", Err: fmt.Errorf("dial failed with status %s: %w", resp.Status, err)}
		}
		return nil, &types.UpstreamError{Service: "assemblyai", Err: err}
	}

	s := &RealtimeSession{
		conn:   conn,
		events: make(chan types.RecognitionEvent, 16),
		logger: logger,
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go s.readLoop()
	return s, nil
}

// Events delivers recognition events in arrival order. The channel is
// closed when the upstream socket closes.
func (s *RealtimeSession) Events() <-chan types.RecognitionEvent {
	return s.events
}

// SendAudio forwards one PCM16 frame upstream.
func (s *RealtimeSession) SendAudio(frame []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		return &types.UpstreamError{Service: "assemblyai", Err: err}
	}
	return nil
}

// Close asks the upstream to terminate and tears the socket down. Safe to
// call more than once.
func (s *RealtimeSession) Close() error {
	var err error
	s.closeMu.Do(func() {
		close(s.quit)
		s.writeMu.Lock()
		werr := s.conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"Terminate"}`))
		s.writeMu.Unlock()
		if werr != nil {
			err = s.conn.Close()
			return
		}
		select {
		case <-s.done:
		case <-time.After(2 * time.Second):
		}
		err = s.conn.Close()
	})
	return err
}

func (s *RealtimeSession) readLoop() {
	defer close(s.done)
	defer close(s.events)
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warnf("assemblyai stream closed: %v", err)
			}
			return
		}

		var msg turnMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.logger.Warnf("unparseable assemblyai message: %v", err)
			continue
		}
		switch msg.Type {
		case "Turn":
			ev := types.RecognitionEvent{
				Text:      msg.Transcript,
				EndOfTurn: msg.EndOfTurn,
				Formatted: msg.TurnIsFormatted,
			}
			select {
			case s.events <- ev:
			case <-s.quit:
				return
			}
		case "Termination":
			return
		default:
			if msg.Error != "" {
				s.logger.Errorf("assemblyai error: %s", msg.Error)
			}
		}
	}
}
