package conversation

import (
	"github.com/vakya-ai/vakya/internal/types"
)

// Store keeps per-session conversation history. Implementations must be
// safe for concurrent use; turns are returned in append order.
type Store interface {
	Append(sessionID string, role types.TurnRole, content string) error
	History(sessionID string) ([]types.Turn, error)
	Clear(sessionID string) error
}
