package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type statusErr struct {
	code       int
	retryAfter time.Duration
}

func (e *statusErr) Error() string   { return fmt.Sprintf("HTTP %d", e.code) }
func (e *statusErr) HTTPStatus() int { return e.code }

func (e *statusErr) RetryAfter() (time.Duration, bool) {
	return e.retryAfter, e.retryAfter > 0
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}

func fastPolicy(maxAttempts int) Policy {
	return Policy{
		MaxAttempts: maxAttempts,
		BaseDelay:   10 * time.Millisecond,
		MaxDelay:    50 * time.Millisecond,
		Multiplier:  2,
	}
}

func TestDoSucceedsFirstAttempt(t *testing.T) {
	calls := 0
	v, err := Do(context.Background(), fastPolicy(3), func() (string, error) {
		calls++
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, 1, calls)
}

func TestDoRetriesServerErrorsThenSucceeds(t *testing.T) {
	p := fastPolicy(3)
	var stamps []time.Time
	v, err := Do(context.Background(), p, func() (int, error) {
		stamps = append(stamps, time.Now())
		if len(stamps) < 3 {
			return 0, &statusErr{code: 500}
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	require.Len(t, stamps, 3)

	// Two inter-attempt delays, each within [base, max] (no jitter set).
	for i := 1; i < 3; i++ {
		gap := stamps[i].Sub(stamps[i-1])
		assert.GreaterOrEqual(t, gap, p.BaseDelay, "gap %d", i)
		assert.Less(t, gap, p.MaxDelay+40*time.Millisecond, "gap %d", i)
	}
}

func TestDoTerminalOnClientError(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fastPolicy(5), func() (int, error) {
		calls++
		return 0, &statusErr{code: 400}
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)

	var se *statusErr
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 400, se.code)

	var ex *ExhaustedError
	assert.False(t, errors.As(err, &ex), "a terminal error must not be wrapped as exhaustion")
}

func TestDoExhaustsAttempts(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fastPolicy(3), func() (int, error) {
		calls++
		return 0, &statusErr{code: 503}
	})
	assert.Equal(t, 3, calls)

	var ex *ExhaustedError
	require.ErrorAs(t, err, &ex)
	assert.Equal(t, 3, ex.Attempts)

	var se *statusErr
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 503, se.code)
}

func TestDoPermanentShortCircuits(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fastPolicy(5), func() (int, error) {
		calls++
		return 0, Permanent(&statusErr{code: 500})
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoHonorsRetryAfter(t *testing.T) {
	p := fastPolicy(2)
	var stamps []time.Time
	_, err := Do(context.Background(), p, func() (int, error) {
		stamps = append(stamps, time.Now())
		return 0, &statusErr{code: 429, retryAfter: 60 * time.Millisecond}
	})
	require.Error(t, err)
	require.Len(t, stamps, 2)
	assert.GreaterOrEqual(t, stamps[1].Sub(stamps[0]), 60*time.Millisecond)
}

func TestDoCancelledDuringWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := Policy{MaxAttempts: 3, BaseDelay: time.Hour, MaxDelay: time.Hour, Multiplier: 2}

	calls := 0
	done := make(chan error, 1)
	go func() {
		_, err := Do(ctx, p, func() (int, error) {
			calls++
			return 0, &statusErr{code: 500}
		})
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls, "no attempt may run after cancellation")
	case <-time.After(time.Second):
		t.Fatal("Do did not return after cancellation")
	}
}

func TestRetryableClassification(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"HTTP 429", &statusErr{code: 429}, true},
		{"HTTP 500", &statusErr{code: 500}, true},
		{"HTTP 503", &statusErr{code: 503}, true},
		{"HTTP 400", &statusErr{code: 400}, false},
		{"HTTP 401", &statusErr{code: 401}, false},
		{"HTTP 404", &statusErr{code: 404}, false},
		{"wrapped HTTP 502", fmt.Errorf("request failed: %w", &statusErr{code: 502}), true},
		{"net timeout", timeoutErr{}, true},
		{"url error", &url.Error{Op: "Post", URL: "https://api.test", Err: errors.New("connection refused")}, true},
		{"plain error", errors.New("invalid argument"), false},
		{"context canceled", context.Canceled, false},
		{"deadline exceeded", context.DeadlineExceeded, false},
		{"permanent 500", Permanent(&statusErr{code: 500}), false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Retryable(tc.err))
		})
	}
}

func TestDelayGrowthAndCap(t *testing.T) {
	p := Policy{
		MaxAttempts: 10,
		BaseDelay:   100 * time.Millisecond,
		MaxDelay:    time.Second,
		Multiplier:  2,
	}
	cause := errors.New("boom")
	assert.Equal(t, 100*time.Millisecond, p.delay(1, cause))
	assert.Equal(t, 200*time.Millisecond, p.delay(2, cause))
	assert.Equal(t, 400*time.Millisecond, p.delay(3, cause))
	assert.Equal(t, 800*time.Millisecond, p.delay(4, cause))
	assert.Equal(t, time.Second, p.delay(5, cause))
	assert.Equal(t, time.Second, p.delay(9, cause))
}

func TestDelayJitterBounds(t *testing.T) {
	p := Policy{
		MaxAttempts: 5,
		BaseDelay:   100 * time.Millisecond,
		MaxDelay:    time.Second,
		Multiplier:  2,
		Jitter:      0.25,
	}
	cause := errors.New("boom")
	for range 200 {
		d := p.delay(2, cause) // nominal 200ms
		assert.GreaterOrEqual(t, d, 150*time.Millisecond)
		assert.LessOrEqual(t, d, 250*time.Millisecond)
	}
}
