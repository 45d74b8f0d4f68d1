package retry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"regexp"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// Kind is the retry classification of a failure.
type Kind int

const (
	// KindFatal failures propagate immediately.
	KindFatal Kind = iota
	// KindTransient failures are retried with exponential backoff.
	KindTransient
	// KindRateLimited failures are retried after the provider's hint or a fixed cooldown.
	KindRateLimited
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindRateLimited:
		return "rate_limited"
	default:
		return "fatal"
	}
}

// RateLimitError represents a rate limit error.
type RateLimitError struct {
	Provider   string
	RetryAfter time.Duration // zero when the provider gave no hint
	Message    string
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s rate limit exceeded, retry after %v", e.Provider, e.RetryAfter)
	}
	return fmt.Sprintf("%s rate limit exceeded: %s", e.Provider, e.Message)
}

// AuthError is an authentication or quota failure. It is never retried
// and causes the provider to be blacklisted.
type AuthError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s auth/quota failure (status: %d): %s", e.Provider, e.StatusCode, e.Message)
}

// TransientError wraps a retryable I/O or server failure.
type TransientError struct {
	Provider string
	Err      error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s transient failure: %v", e.Provider, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// Classify maps an error onto a retry Kind.
func Classify(err error) Kind {
	if err == nil {
		return KindFatal
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindFatal
	}

	var rateErr *RateLimitError
	if errors.As(err, &rateErr) {
		return KindRateLimited
	}
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return KindFatal
	}
	var transientErr *TransientError
	if errors.As(err, &transientErr) {
		return KindTransient
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindTransient
	}
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) {
		return KindTransient
	}

	if IsRateLimitMessage(err.Error()) {
		return KindRateLimited
	}
	return KindFatal
}

// IsAuthError reports whether err is an auth/quota failure.
func IsAuthError(err error) bool {
	if err == nil {
		return false
	}
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return true
	}
	var rateErr *RateLimitError
	if errors.As(err, &rateErr) {
		return false
	}
	return IsQuotaExhaustedMessage(err.Error())
}

// IsQuotaExhaustedMessage matches billing or quota exhaustion that waiting
// will not fix. Quota wording on a 429 or RESOURCE_EXHAUSTED reply is a
// per-window limit unless it names the account's quota as used up.
func IsQuotaExhaustedMessage(msg string) bool {
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "insufficient_quota") ||
		strings.Contains(lower, "exceeded your current quota") ||
		strings.Contains(lower, "quota exhausted") ||
		strings.Contains(lower, "quota has been exhausted") {
		return true
	}
	return strings.Contains(lower, "quota") &&
		!strings.Contains(msg, "429") &&
		!strings.Contains(msg, "RESOURCE_EXHAUSTED")
}

// IsRateLimitMessage matches 429 status codes, RESOURCE_EXHAUSTED and rate
// limit wording in errors produced by SDKs that do not expose typed errors.
func IsRateLimitMessage(msg string) bool {
	if IsQuotaExhaustedMessage(msg) {
		return false
	}
	lower := strings.ToLower(msg)
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "RESOURCE_EXHAUSTED") ||
		strings.Contains(lower, "rate limit") ||
		strings.Contains(lower, "too many requests")
}

// retryDelayRegex matches "Please retry in Xs" or "retryDelay:Xs" patterns
var retryDelayRegex = regexp.MustCompile(`(?i)(?:Please retry in |retryDelay[:\s]+)(\d+(?:\.\d+)?)\s*s`)

// RetryAfterHint returns the provider-supplied wait for a rate-limited error,
// or 0 when none is available.
func RetryAfterHint(err error) time.Duration {
	if err == nil {
		return 0
	}

	var rateErr *RateLimitError
	if errors.As(err, &rateErr) && rateErr.RetryAfter > 0 {
		return rateErr.RetryAfter
	}

	matches := retryDelayRegex.FindStringSubmatch(err.Error())
	if len(matches) < 2 {
		return 0
	}
	seconds, parseErr := strconv.ParseFloat(matches[1], 64)
	if parseErr != nil {
		return 0
	}
	return time.Duration(seconds * float64(time.Second))
}

// ParseRetryAfter parses a Retry-After header value (delta seconds or HTTP date).
func ParseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := time.Parse(time.RFC1123, value); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}
