package websocket

// serverMessage is the JSON envelope for every server-to-client message.
// Types: status, error, transcription, llm_chunk, audio_start, audio,
// audio_end, audio_interrupt, pong.
type serverMessage struct {
	Type      string `json:"type"`
	Data      string `json:"data,omitempty"`
	Text      string `json:"text,omitempty"`
	Message   string `json:"message,omitempty"`
	EndOfTurn bool   `json:"end_of_turn,omitempty"`
}

// clientMessage is the only JSON message clients send; audio travels as
// binary frames.
type clientMessage struct {
	Type string `json:"type"`
}
