package types

import "time"

// TurnRole tags a turn in a session's history.
type TurnRole string

const (
	RoleUser      TurnRole = "user"
	RoleAssistant TurnRole = "assistant"
	RoleSystem    TurnRole = "system"
)

// Turn is one entry in a session's conversation history: a user utterance
// or the assistant's reply. Immutable once appended.
type Turn struct {
	Role      TurnRole  `json:"role"`
	Content   string    `json:"content"`
	Seq       int       `json:"seq"`
	CreatedAt time.Time `json:"createdAt"`
}

// RecognitionEvent is a transient speech-to-text result. It is consumed
// immediately by the transcript deduplicator and never stored.
type RecognitionEvent struct {
	Text      string `json:"text"`
	EndOfTurn bool   `json:"endOfTurn"`
	Formatted bool   `json:"formatted"`
}

// SynthChunk is one message from the synthesis service: a base64 audio
// payload, with Final set on the last chunk of a turn.
type SynthChunk struct {
	Audio string `json:"audio"`
	Final bool   `json:"final"`
}
