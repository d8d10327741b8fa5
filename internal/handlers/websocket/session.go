package websocket

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Session wraps one client connection. gorilla/websocket allows only one
// concurrent writer, so every outbound message goes through the mutex.
type Session struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func NewSession(conn *websocket.Conn) *Session {
	return &Session{conn: conn}
}

func (s *Session) sendJSON(msg serverMessage) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteJSON(msg)
}

// SendTranscription relays a confirmed utterance back to the client.
func (s *Session) SendTranscription(text string) error {
	return s.sendJSON(serverMessage{Type: "transcription", Text: text, EndOfTurn: true})
}

// SendLLMChunk forwards an incremental display update.
func (s *Session) SendLLMChunk(text string) error {
	return s.sendJSON(serverMessage{Type: "llm_chunk", Data: text})
}

func (s *Session) SendAudioStart() error {
	return s.sendJSON(serverMessage{Type: "audio_start"})
}

// SendAudio forwards one base64 audio payload.
func (s *Session) SendAudio(b64 string) error {
	return s.sendJSON(serverMessage{Type: "audio", Data: b64})
}

func (s *Session) SendAudioEnd() error {
	return s.sendJSON(serverMessage{Type: "audio_end"})
}

// SendInterrupt tells the client to drop all buffered audio immediately.
func (s *Session) SendInterrupt() error {
	return s.sendJSON(serverMessage{Type: "audio_interrupt"})
}

func (s *Session) SendStatus(text string) error {
	return s.sendJSON(serverMessage{Type: "status", Message: text})
}

func (s *Session) SendError(text string) error {
	return s.sendJSON(serverMessage{Type: "error", Message: text})
}

func (s *Session) SendPong() error {
	return s.sendJSON(serverMessage{Type: "pong"})
}

func (s *Session) Close() error {
	return s.conn.Close()
}
