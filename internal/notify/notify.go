// Package notify delivers the run summary to an external chat sink.
// Delivery is best effort: failures are logged and never change the run's
// outcome.
package notify

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/bgricker/checkin/internal/workflow"
)

// Sink receives one message per run.
type Sink interface {
	Send(ctx context.Context, title, body string) error
}

// Options control delivery retries.
type Options struct {
	Attempts int
	// Backoff grows linearly: attempt n waits n*Backoff before retrying.
	Backoff time.Duration
	Timeout time.Duration

	Sleep  func(ctx context.Context, d time.Duration) error
	Logger *zap.Logger
}

// Deliver sends the message, retrying with linear backoff. It reports
// whether the sink accepted the message.
func Deliver(ctx context.Context, sink Sink, title, body string, opts Options) bool {
	if opts.Attempts <= 0 {
		opts.Attempts = 3
	}
	if opts.Backoff < 0 {
		opts.Backoff = 0
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Sleep == nil {
		opts.Sleep = workflow.Sleep
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	log := opts.Logger

	if sink == nil {
		log.Info("notification not configured, skipping")
		return false
	}

	for attempt := 1; attempt <= opts.Attempts; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
		err := sink.Send(callCtx, title, body)
		cancel()
		if err == nil {
			log.Info("notification sent", zap.Int("attempt", attempt))
			return true
		}

		log.Warn("notification attempt failed", zap.Int("attempt", attempt), zap.Int("maxAttempts", opts.Attempts), zap.Error(err))
		if attempt == opts.Attempts {
			break
		}
		if err := opts.Sleep(ctx, time.Duration(attempt)*opts.Backoff); err != nil {
			break
		}
	}

	log.Error("notification not delivered", zap.Int("attempts", opts.Attempts))
	return false
}
