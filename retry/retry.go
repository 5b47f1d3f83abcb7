// Package retry provides exponential backoff for retryable failures.
package retry

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/voocel/agentcore/schema"
)

// Config defines retry behavior.
type Config struct {
	MaxAttempts int           `json:"max_attempts"` // Maximum attempts including the first
	BaseDelay   time.Duration `json:"base_delay"`   // Base delay duration
	MaxDelay    time.Duration `json:"max_delay"`    // Maximum delay duration
	Multiplier  float64       `json:"multiplier"`   // Backoff multiplier
	Jitter      bool          `json:"jitter"`       // Whether to add random jitter
}

// Default provides default retry settings.
var Default = &Config{
	MaxAttempts: 3,
	BaseDelay:   100 * time.Millisecond,
	MaxDelay:    5 * time.Second,
	Multiplier:  2.0,
	Jitter:      true,
}

// Execute runs the function with retry semantics. Non-retryable errors
// return immediately; retryable ones wait for the backoff delay or context
// cancellation, whichever comes first.
func (c *Config) Execute(ctx context.Context, fn func() error) error {
	var lastErr error

	for attempt := 1; attempt <= c.MaxAttempts; attempt++ {
		if err := fn(); err == nil {
			return nil
		} else if !schema.IsRetryable(err) {
			return err
		} else {
			lastErr = err
		}

		if attempt < c.MaxAttempts {
			if err := c.Wait(ctx, attempt); err != nil {
				return err
			}
		}
	}

	return lastErr
}

// Wait sleeps for the backoff delay of the given attempt, observing
// context cancellation.
func (c *Config) Wait(ctx context.Context, attempt int) error {
	select {
	case <-time.After(c.Delay(attempt)):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Delay determines the backoff delay for an attempt (1-based).
func (c *Config) Delay(attempt int) time.Duration {
	delay := time.Duration(float64(c.BaseDelay) * math.Pow(c.Multiplier, float64(attempt-1)))

	if delay > c.MaxDelay {
		delay = c.MaxDelay
	}

	if c.Jitter {
		jitter := time.Duration(rand.Float64() * float64(delay) * 0.1) // 10% jitter
		delay += jitter
	}

	return delay
}

// Exponential creates an exponential backoff configuration.
func Exponential(maxAttempts int, baseDelay, maxDelay time.Duration, jitter bool) *Config {
	return &Config{
		MaxAttempts: maxAttempts,
		BaseDelay:   baseDelay,
		MaxDelay:    maxDelay,
		Multiplier:  2.0,
		Jitter:      jitter,
	}
}
