package skills

import (
	"context"
	"net/http"
	"time"

	"github.com/vakya-ai/vakya/pkg/Logger"
)

// Runner executes skill handlers. Handlers return user-facing text in
// every case: failures come back as spoken apologies, never as errors,
// so the synthesis path downstream is uniform.
type Runner struct {
	client  *http.Client
	newsKey string
	logger  *Logger.Logger
}

// NewRunner builds a skill runner. timeout bounds every outbound call;
// zero selects the 10s default.
func NewRunner(newsKey string, timeout time.Duration, logger *Logger.Logger) *Runner {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Runner{
		client:  &http.Client{Timeout: timeout},
		newsKey: newsKey,
		logger:  logger,
	}
}

// Execute runs the matched skill and returns its spoken reply.
func (r *Runner) Execute(ctx context.Context, intent Intent) string {
	switch intent.Name {
	case IntentWeather:
		return r.weather(ctx, intent.Arg)
	case IntentNews:
		return r.news(ctx)
	case IntentJoke:
		return joke()
	default:
		return "I'm not sure how to help with that."
	}
}
