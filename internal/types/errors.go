package types

import (
	"errors"
	"fmt"
)

// ErrTurnCancelled marks a turn that was preempted by a newer utterance or
// ran out of its wall-clock budget. Not a failure: the session stays usable.
var ErrTurnCancelled = errors.New("turn cancelled")

// ConfigurationError is a missing required credential. Fatal at connection
// start: the connection is refused with an error message.
type ConfigurationError struct {
	Missing string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("missing required credential: %s", e.Missing)
}

// UpstreamError wraps a failure from one of the external services
// (recognition, language model, synthesis). The turn fails but the
// session survives.
type UpstreamError struct {
	Service string
	Err     error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s service error: %v", e.Service, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
