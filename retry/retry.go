// Package retry runs idempotent operations under an exponential-backoff
// policy. Transport-level failures and HTTP 429/5xx responses are retried;
// every other failure is terminal and short-circuits immediately.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"net"
	"net/url"
	"time"
)

// Policy configures the retry loop. A Policy is immutable once constructed
// and safe to share across concurrent dispatches.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int
	// BaseDelay is the delay before the first retry.
	BaseDelay time.Duration
	// MaxDelay caps the computed delay.
	MaxDelay time.Duration
	// Multiplier grows the delay between consecutive retries.
	Multiplier float64
	// Jitter is the fraction of the computed delay used as a symmetric
	// random offset, in [0, 1].
	Jitter float64
	// Classify overrides the default retryable-vs-terminal decision.
	Classify func(error) bool
}

// DefaultPolicy is used by callers that don't configure their own.
var DefaultPolicy = Policy{
	MaxAttempts: 4,
	BaseDelay:   500 * time.Millisecond,
	MaxDelay:    8 * time.Second,
	Multiplier:  2,
	Jitter:      0.25,
}

// ExhaustedError is returned when every attempt allowed by the policy failed
// with a retryable error. It wraps the last attempt's failure.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retries exhausted after %d attempts: %s", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as terminal so the dispatcher never retries it, even
// when it would otherwise classify as retryable.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// StatusCoder is implemented by errors that carry an HTTP status code, such
// as oai.HTTPError. The dispatcher uses it to classify failures.
type StatusCoder interface {
	HTTPStatus() int
}

// RetryAfterer is implemented by errors carrying a server-suggested retry
// delay (the Retry-After header on a 429). When present and sane it
// overrides the computed backoff delay.
type RetryAfterer interface {
	RetryAfter() (time.Duration, bool)
}

// maximum server-suggested delay we'll honor before falling back to backoff
const maxRetryAfter = 5 * time.Minute

// Retryable reports whether err is worth another attempt: network transport
// errors and HTTP 429/5xx are; everything else (other 4xx, serialization and
// validation errors, cancellation) is terminal.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	var perm *permanentError
	if errors.As(err, &perm) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var sc StatusCoder
	if errors.As(err, &sc) {
		code := sc.HTTPStatus()
		return code == 429 || code >= 500
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

// Do runs op until it succeeds, fails terminally, or the policy's attempts
// run out. The wait between attempts is timer-based and honors ctx; a
// cancelled context aborts the loop without a further attempt.
func Do[T any](ctx context.Context, p Policy, op func() (T, error)) (T, error) {
	var zero T
	if p.MaxAttempts < 1 {
		p = DefaultPolicy
	}
	classify := p.Classify
	if classify == nil {
		classify = Retryable
	}

	var lastErr error
	for attempt := 1; ; attempt++ {
		v, err := op()
		if err == nil {
			return v, nil
		}
		if !classify(err) {
			return zero, err
		}
		lastErr = err
		if attempt >= p.MaxAttempts {
			return zero, &ExhaustedError{Attempts: attempt, Err: lastErr}
		}
		if err := sleep(ctx, p.delay(attempt, lastErr)); err != nil {
			return zero, err
		}
	}
}

// delay computes the wait before the retry following the given attempt:
// min(base * multiplier^(attempt-1), max) plus symmetric jitter, unless the
// server asked for a specific delay.
func (p Policy) delay(attempt int, err error) time.Duration {
	var ra RetryAfterer
	if errors.As(err, &ra) {
		if d, ok := ra.RetryAfter(); ok && d > 0 && d <= maxRetryAfter {
			return d
		}
	}

	d := float64(p.BaseDelay) * math.Pow(p.Multiplier, float64(attempt-1))
	if max := float64(p.MaxDelay); p.MaxDelay > 0 && d > max {
		d = max
	}
	if p.Jitter > 0 {
		d += d * p.Jitter * (2*rand.Float64() - 1)
	}
	if p.MaxDelay > 0 && d > float64(p.MaxDelay) {
		d = float64(p.MaxDelay)
	}
	if d < 0 {
		d = 0
	}
	return time.Duration(d)
}

// sleep waits for d without occupying a goroutine beyond the timer, and
// returns early when ctx is cancelled.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
