// Package retry provides exponential backoff for transient failures.
//
// Retry decisions follow the error taxonomy in the errors package:
// transient and unclassified errors are retried, invalid and fatal
// errors abort immediately.
package retry

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/truongquangDat1103/robot-homeguard/errors"
)

// Policy configures backoff behavior for a retried operation.
type Policy struct {
	Attempts     int           // total attempts, minimum 1
	InitialDelay time.Duration // delay before the second attempt
	MaxDelay     time.Duration // backoff ceiling
	Multiplier   float64       // growth factor between attempts
	Jitter       bool          // randomize delays to avoid thundering herd
}

// DefaultPolicy suits short-lived operations in request paths.
func DefaultPolicy() Policy {
	return Policy{
		Attempts:     3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
	}
}

// Startup suits boot-time connects to external services that may still
// be coming up, such as the NATS broker.
func Startup() Policy {
	return Policy{
		Attempts:     10,
		InitialDelay: 200 * time.Millisecond,
		MaxDelay:     3 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
	}
}

func (p Policy) normalize() Policy {
	if p.Attempts < 1 {
		p.Attempts = 1
	}
	if p.InitialDelay <= 0 {
		p.InitialDelay = 100 * time.Millisecond
	}
	if p.Multiplier < 1 {
		p.Multiplier = 2.0
	}
	if p.MaxDelay < p.InitialDelay {
		p.MaxDelay = p.InitialDelay
	}
	return p
}

// Do runs fn until it succeeds, returns a non-retryable error, the
// attempts are exhausted, or ctx is cancelled.
func Do(ctx context.Context, p Policy, fn func() error) error {
	p = p.normalize()

	var lastErr error
	delay := p.InitialDelay

	for attempt := 1; attempt <= p.Attempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		if errors.IsInvalid(lastErr) || errors.IsFatal(lastErr) {
			return lastErr
		}

		if attempt == p.Attempts {
			break
		}

		wait := delay
		if p.Jitter {
			// up to 25% extra
			wait += time.Duration(rand.Int63n(int64(delay/4) + 1))
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("retry cancelled after attempt %d: %w", attempt, ctx.Err())
		case <-timer.C:
		}

		next := time.Duration(float64(delay) * p.Multiplier)
		if next > p.MaxDelay || next < delay {
			next = p.MaxDelay
		}
		delay = next
	}

	return fmt.Errorf("retry exhausted after %d attempts: %w", p.Attempts, lastErr)
}

// DoWithResult is Do for operations that produce a value.
func DoWithResult[T any](ctx context.Context, p Policy, fn func() (T, error)) (T, error) {
	var result T
	err := Do(ctx, p, func() error {
		var innerErr error
		result, innerErr = fn()
		return innerErr
	})
	return result, err
}
