package retry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSleep captures requested waits without blocking
type recordingSleep struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *recordingSleep) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delays = append(r.delays, d)
	return ctx.Err()
}

func TestRun_RateLimitedThenSuccess_WaitsRetryAfter(t *testing.T) {
	rec := &recordingSleep{}
	policy := NewPolicy(WithSleep(rec.sleep))

	calls := 0
	got, err := Run(context.Background(), policy, "quote", func(ctx context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", &RateLimitError{Provider: "finnhub", RetryAfter: 7 * time.Second}
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 2, calls)
	require.Len(t, rec.delays, 1)
	assert.GreaterOrEqual(t, rec.delays[0], 7*time.Second)
}

func TestRun_RateLimitedWithoutHint_UsesFixedCooldown(t *testing.T) {
	rec := &recordingSleep{}
	policy := NewPolicy(WithSleep(rec.sleep))

	_, err := Run(context.Background(), policy, "quote", func(ctx context.Context) (int, error) {
		return 0, &RateLimitError{Provider: "fmp"}
	})

	require.Error(t, err)
	require.Len(t, rec.delays, DefaultMaxRetries)
	for _, d := range rec.delays {
		assert.Equal(t, DefaultRateLimitCooldown, d, "rate-limit waits must not grow")
	}
}

func TestRun_TransientUsesExponentialBackoff(t *testing.T) {
	rec := &recordingSleep{}
	policy := NewPolicy(WithSleep(rec.sleep), WithLimits(4, time.Second, 5*time.Second, 2.0, time.Second))

	calls := 0
	_, err := Run(context.Background(), policy, "bars", func(ctx context.Context) (int, error) {
		calls++
		return 0, &TransientError{Provider: "alpaca", Err: errors.New("connection reset")}
	})

	require.Error(t, err)
	assert.Equal(t, 5, calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 5 * time.Second}, rec.delays)
}

func TestRun_FatalPropagatesImmediately(t *testing.T) {
	rec := &recordingSleep{}
	policy := NewPolicy(WithSleep(rec.sleep))

	authErr := &AuthError{Provider: "polygon", StatusCode: 403, Message: "forbidden"}
	calls := 0
	_, err := Run(context.Background(), policy, "profile", func(ctx context.Context) (int, error) {
		calls++
		return 0, authErr
	})

	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, authErr)
	assert.Empty(t, rec.delays)
}

func TestRun_CancelledContextStopsWaiting(t *testing.T) {
	policy := NewPolicy(WithLimits(3, time.Hour, time.Hour, 2, time.Hour))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, policy, "quote", func(ctx context.Context) (int, error) {
		return 0, &TransientError{Provider: "x", Err: errors.New("boom")}
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"rate limit typed", &RateLimitError{Provider: "a"}, KindRateLimited},
		{"rate limit wrapped", fmt.Errorf("fetch: %w", &RateLimitError{Provider: "a"}), KindRateLimited},
		{"auth", &AuthError{Provider: "a", StatusCode: 401}, KindFatal},
		{"transient", &TransientError{Provider: "a", Err: errors.New("eof")}, KindTransient},
		{"gemini quota message", errors.New("Error 429, Status: RESOURCE_EXHAUSTED"), KindRateLimited},
		{"per-minute quota on 429", errors.New("Error 429, Message: quota exceeded. Please retry in 4s"), KindRateLimited},
		{"too many requests", errors.New("Too Many Requests"), KindRateLimited},
		{"daily quota exhausted", errors.New("daily request quota exhausted for this key"), KindFatal},
		{"quota without status", errors.New("API quota exceeded for plan"), KindFatal},
		{"insufficient quota", errors.New("status 429: insufficient_quota: You exceeded your current quota"), KindFatal},
		{"deadline", context.DeadlineExceeded, KindFatal},
		{"plain", errors.New("bad json"), KindFatal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestIsAuthError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"typed auth", fmt.Errorf("quote: %w", &AuthError{Provider: "a", StatusCode: 403}), true},
		{"quota exhausted message", errors.New("API quota exceeded for plan"), true},
		{"insufficient quota", errors.New("429: insufficient_quota"), true},
		{"typed rate limit with quota wording", &RateLimitError{Provider: "a", Message: "quota"}, false},
		{"per-window limit", errors.New("Error 429, Status: RESOURCE_EXHAUSTED, quota exceeded"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsAuthError(tt.err))
		})
	}
}

func TestRetryAfterHint_FromMessage(t *testing.T) {
	err := errors.New("Error 429, Message: quota exceeded. Please retry in 45.5s., Status: RESOURCE_EXHAUSTED")
	assert.Equal(t, time.Duration(45.5*float64(time.Second)), RetryAfterHint(err))
	assert.Zero(t, RetryAfterHint(errors.New("nothing here")))
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2026, 1, 2, 15, 0, 0, 0, time.UTC)
	assert.Equal(t, 12*time.Second, ParseRetryAfter("12", now))
	assert.Equal(t, 30*time.Second, ParseRetryAfter("Fri, 02 Jan 2026 15:00:30 GMT", now))
	assert.Zero(t, ParseRetryAfter("", now))
	assert.Zero(t, ParseRetryAfter("soon", now))
}
