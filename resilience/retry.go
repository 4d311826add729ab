// Package resilience provides the retry discipline shared by the narration
// and speech synthesis stages.
package resilience

import (
	"context"
	"fmt"
	"log"
	"time"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = time.Second
	DefaultMaxDelay    = 30 * time.Second
)

// Config holds retry settings for one stage. MaxAttempts counts the first
// try, so MaxAttempts=3 allows two retries. When Fixed is set every wait is
// BaseDelay; otherwise delays double up to MaxDelay.
type Config struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Fixed       bool
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = DefaultBaseDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = DefaultMaxDelay
	}
	return c
}

// Retry runs fn until it succeeds or attempts are exhausted. All errors are
// treated as transient; callers that can recover locally (the scorer, the
// content fetcher) do so before reaching this loop.
func Retry(ctx context.Context, cfg Config, op string, fn func() error) error {
	cfg = cfg.withDefaults()

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		if lastErr = fn(); lastErr == nil {
			return nil
		}

		if attempt == cfg.MaxAttempts {
			break
		}

		delay := cfg.delay(attempt)
		log.Printf("%s failed (attempt %d/%d), retrying in %s: %v",
			op, attempt, cfg.MaxAttempts, delay, lastErr)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return fmt.Errorf("%s: exhausted %d attempts: %w", op, cfg.MaxAttempts, lastErr)
}

func (c Config) delay(attempt int) time.Duration {
	if c.Fixed {
		return c.BaseDelay
	}
	d := c.BaseDelay << min(attempt-1, 10)
	if d > c.MaxDelay {
		d = c.MaxDelay
	}
	return d
}
