// Package retry runs a callable under a bounded exponential backoff policy.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"
)

// Policy bounds how often and how long a call is retried.
type Policy struct {
	// MaxAttempts counts the first call. 1 disables retries.
	MaxAttempts int
	// BaseDelay is the wait before the second attempt.
	BaseDelay time.Duration
	// MaxDelay caps any single wait, including server supplied Retry-After hints.
	MaxDelay time.Duration
	// MaxTotalWait caps the summed waits of one invocation. Zero means no cap.
	MaxTotalWait time.Duration
	// Multiplier grows the delay per attempt (default 2).
	Multiplier float64
	// Jitter adds up to Jitter*delay of random slack.
	Jitter float64
	// OnRetry, when set, is called before each wait.
	OnRetry func(attempt int, delay time.Duration, err error)
}

// DefaultPolicy returns the policy used when nothing is configured.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:  5,
		BaseDelay:    time.Second,
		MaxDelay:     10 * time.Second,
		MaxTotalWait: time.Minute,
		Multiplier:   2,
		Jitter:       0.1,
	}
}

// Validate reports configuration errors.
func (p Policy) Validate() error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("max attempts must be at least 1, got %d", p.MaxAttempts)
	}
	if p.BaseDelay < 0 {
		return fmt.Errorf("base delay must be non-negative, got %v", p.BaseDelay)
	}
	if p.MaxDelay < p.BaseDelay {
		return fmt.Errorf("max delay (%v) must be >= base delay (%v)", p.MaxDelay, p.BaseDelay)
	}
	if p.Multiplier != 0 && p.Multiplier < 1 {
		return fmt.Errorf("multiplier must be >= 1, got %f", p.Multiplier)
	}
	if p.Jitter < 0 || p.Jitter > 1 {
		return fmt.Errorf("jitter must be within [0, 1], got %f", p.Jitter)
	}
	return nil
}

// RetryAfterer is implemented by errors carrying a server backoff hint.
type RetryAfterer interface {
	RetryAfter() time.Duration
}

// ExhaustedError is returned when every permitted attempt failed transiently.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("gave up after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// AbortedError is returned when the context ends while waiting between attempts.
type AbortedError struct {
	Attempts int
	Err      error // last attempt error
	Cause    error // context error
}

func (e *AbortedError) Error() string {
	return fmt.Sprintf("retry aborted after %d attempts: %v (last error: %v)", e.Attempts, e.Cause, e.Err)
}

func (e *AbortedError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Cause}
	}
	return []error{e.Cause, e.Err}
}

// Do calls fn until it succeeds, returns an error isTransient rejects, or the
// policy is exhausted. The attempt count is returned in every case. Permanent
// errors are returned unchanged.
func Do[T any](ctx context.Context, p Policy, isTransient func(error) bool, fn func(context.Context) (T, error)) (T, int, error) {
	var zero T
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	b := newBackoff(p)

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, attempt - 1, &AbortedError{Attempts: attempt - 1, Cause: err}
		}

		v, err := fn(ctx)
		if err == nil {
			return v, attempt, nil
		}
		if !isTransient(err) {
			return zero, attempt, err
		}
		if attempt >= p.MaxAttempts {
			return zero, attempt, &ExhaustedError{Attempts: attempt, Err: err}
		}

		delay, ok := b.next(retryAfter(err))
		if !ok {
			return zero, attempt, &ExhaustedError{Attempts: attempt, Err: err}
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt, delay, err)
		}

		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return zero, attempt, &AbortedError{Attempts: attempt, Err: err, Cause: ctx.Err()}
		}
	}
}

func retryAfter(err error) time.Duration {
	var ra RetryAfterer
	if errors.As(err, &ra) {
		return ra.RetryAfter()
	}
	return 0
}

// backoff is per invocation state. Delays never shrink between attempts and
// never exceed MaxDelay.
type backoff struct {
	policy  Policy
	retries int
	prev    time.Duration
	waited  time.Duration
	jitter  func() float64
}

func newBackoff(p Policy) *backoff {
	if p.Multiplier == 0 {
		p.Multiplier = 2
	}
	return &backoff{policy: p, jitter: rand.Float64}
}

// next returns the wait before the following attempt, or false when waiting
// would break MaxTotalWait.
func (b *backoff) next(hint time.Duration) (time.Duration, bool) {
	p := b.policy
	b.retries++

	d := float64(p.BaseDelay) * math.Pow(p.Multiplier, float64(b.retries-1))
	if d > float64(p.MaxDelay) {
		d = float64(p.MaxDelay)
	}
	if p.Jitter > 0 {
		d += d * p.Jitter * b.jitter()
	}
	delay := time.Duration(d)
	if hint > delay {
		delay = hint
	}
	if delay > p.MaxDelay {
		delay = p.MaxDelay
	}
	if delay < b.prev {
		delay = b.prev
	}

	if p.MaxTotalWait > 0 && b.waited+delay > p.MaxTotalWait {
		return 0, false
	}
	b.prev = delay
	b.waited += delay
	return delay, true
}
