// Package retry provides the backoff/retry wrapper used by every adapter call.
package retry

import (
	"context"
	"time"

	"github.com/ternarybob/arbor"
)

// Default retry constants
const (
	DefaultMaxRetries        = 3
	DefaultInitialDelay      = 1 * time.Second
	DefaultMaxDelay          = 10 * time.Second
	DefaultMultiplier        = 2.0
	DefaultRateLimitCooldown = 5 * time.Second
)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Policy defines retry behavior. The zero value is not usable; use NewPolicy.
type Policy struct {
	// MaxRetries is the number of retries after the first attempt
	MaxRetries int

	// InitialDelay is the first transient backoff
	InitialDelay time.Duration

	// MaxDelay caps the transient backoff
	MaxDelay time.Duration

	// Multiplier is applied to the transient backoff on each retry
	Multiplier float64

	// RateLimitCooldown is used when a rate-limited failure carries no hint
	RateLimitCooldown time.Duration

	sleep  SleepFunc
	logger arbor.ILogger
}

// Option configures a Policy.
type Option func(*Policy)

// WithSleep replaces the context-aware timer wait, for tests.
func WithSleep(sleep SleepFunc) Option {
	return func(p *Policy) {
		p.sleep = sleep
	}
}

// WithLogger sets a logger.
func WithLogger(logger arbor.ILogger) Option {
	return func(p *Policy) {
		p.logger = logger
	}
}

// WithLimits overrides the retry limits.
func WithLimits(maxRetries int, initialDelay, maxDelay time.Duration, multiplier float64, rateLimitCooldown time.Duration) Option {
	return func(p *Policy) {
		p.MaxRetries = maxRetries
		p.InitialDelay = initialDelay
		p.MaxDelay = maxDelay
		p.Multiplier = multiplier
		p.RateLimitCooldown = rateLimitCooldown
	}
}

// NewPolicy returns a Policy with defaults applied before opts.
func NewPolicy(opts ...Option) *Policy {
	p := &Policy{
		MaxRetries:        DefaultMaxRetries,
		InitialDelay:      DefaultInitialDelay,
		MaxDelay:          DefaultMaxDelay,
		Multiplier:        DefaultMultiplier,
		RateLimitCooldown: DefaultRateLimitCooldown,
		sleep:             sleepContext,
		logger:            arbor.NewNoOpLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Backoff returns the transient wait before retry number attempt (0-based).
func (p *Policy) Backoff(attempt int) time.Duration {
	multiplier := 1.0
	for i := 0; i < attempt; i++ {
		multiplier *= p.Multiplier
	}
	backoff := time.Duration(float64(p.InitialDelay) * multiplier)
	if backoff > p.MaxDelay {
		backoff = p.MaxDelay
	}
	return backoff
}

// Delay returns how long to wait after err before retry number attempt,
// and false when err must not be retried.
func (p *Policy) Delay(err error, attempt int) (time.Duration, bool) {
	switch Classify(err) {
	case KindRateLimited:
		if hint := RetryAfterHint(err); hint > 0 {
			return hint, true
		}
		return p.RateLimitCooldown, true
	case KindTransient:
		return p.Backoff(attempt), true
	default:
		return 0, false
	}
}

// Run invokes op, retrying rate-limited and transient failures up to
// p.MaxRetries times. Fatal failures and exhaustion return the last error.
func Run[T any](ctx context.Context, p *Policy, tag string, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if attempt == p.MaxRetries {
			break
		}

		delay, retryable := p.Delay(err, attempt)
		if !retryable {
			return zero, err
		}

		p.logger.Debug().
			Str("tag", tag).
			Str("kind", Classify(err).String()).
			Int("attempt", attempt+1).
			Dur("delay", delay).
			Err(err).
			Msg("Retrying operation")

		if sleepErr := p.sleep(ctx, delay); sleepErr != nil {
			return zero, sleepErr
		}
	}

	return zero, lastErr
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
