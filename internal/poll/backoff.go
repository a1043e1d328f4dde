// Package poll drives non-blocking socket operations.  An operation
// that reports ErrWouldBlock is tried again after an exponentially
// growing pause; any other result ends the loop.
package poll

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	ncerr "mininet/internal/errors"
)

// Backoff spaces out attempts of a non-blocking operation.
type Backoff struct {
	// InitialDelay is the pause after the first would-block (default 1ms).
	InitialDelay time.Duration
	// MaxDelay caps the pause (default 100ms).
	MaxDelay time.Duration
	// Multiplier grows the pause each attempt (default 2.0).
	Multiplier float64
	// MaxAttempts is the total number of tries including the first.
	// 0 means keep trying until the context is cancelled.
	MaxAttempts int
	// Jitter adds ±25% randomisation to each pause.
	Jitter bool
}

// DefaultBackoff suits an accept loop on a non-blocking listener.
func DefaultBackoff() *Backoff {
	return &Backoff{
		InitialDelay: time.Millisecond,
		MaxDelay:     100 * time.Millisecond,
		Multiplier:   2.0,
		Jitter:       true,
	}
}

// Do calls fn until it returns something other than a would-block
// error, the attempt budget runs out, or ctx is cancelled.  The attempt
// number passed to fn is 1-based.
func (b *Backoff) Do(ctx context.Context, fn func(attempt int) error) error {
	delay := b.InitialDelay
	if delay == 0 {
		delay = time.Millisecond
	}
	multiplier := b.Multiplier
	if multiplier <= 0 {
		multiplier = 2.0
	}
	maxDelay := b.MaxDelay
	if maxDelay == 0 {
		maxDelay = 100 * time.Millisecond
	}

	for attempt := 1; ; attempt++ {
		err := fn(attempt)
		if !ncerr.IsWouldBlock(err) {
			return err
		}

		if b.MaxAttempts > 0 && attempt >= b.MaxAttempts {
			return fmt.Errorf("still pending after %d attempts: %w", b.MaxAttempts, err)
		}

		wait := delay
		if b.Jitter {
			wait = addJitter(delay)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("poll cancelled: %w", ctx.Err())
		case <-time.After(wait):
		}

		delay = time.Duration(float64(delay) * multiplier)
		if delay > maxDelay {
			delay = maxDelay
		}
	}
}

// addJitter adds ±25% randomisation to a duration.
func addJitter(d time.Duration) time.Duration {
	quarter := float64(d) * 0.25
	delta := (rand.Float64() * 2 * quarter) - quarter
	result := float64(d) + delta
	return time.Duration(math.Max(result, float64(time.Microsecond)))
}
