package marketdata

import (
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"github.com/ternarybob/arbor"
)

// BreakerSettings configures the per-provider circuit breaker. A zero
// ConsecutiveFailures disables breaking.
type BreakerSettings struct {
	ConsecutiveFailures uint32
	OpenTimeout         time.Duration
	HalfOpenRequests    uint32
}

// DefaultBreakerSettings trips after five consecutive exhausted calls.
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		ConsecutiveFailures: 5,
		OpenTimeout:         60 * time.Second,
		HalfOpenRequests:    1,
	}
}

// breakerSet lazily creates one breaker per provider.
type breakerSet struct {
	mu       sync.Mutex
	settings BreakerSettings
	breakers map[string]*gobreaker.CircuitBreaker
	logger   arbor.ILogger
}

func newBreakerSet(settings BreakerSettings, logger arbor.ILogger) *breakerSet {
	return &breakerSet{
		settings: settings,
		breakers: make(map[string]*gobreaker.CircuitBreaker),
		logger:   logger,
	}
}

func (s *breakerSet) get(provider string) *gobreaker.CircuitBreaker {
	if s == nil || s.settings.ConsecutiveFailures == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if cb, ok := s.breakers[provider]; ok {
		return cb
	}

	threshold := s.settings.ConsecutiveFailures
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        provider,
		MaxRequests: s.settings.HalfOpenRequests,
		Timeout:     s.settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			s.logger.Warn().
				Str("provider", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Provider circuit breaker state changed")
		},
	})
	s.breakers[provider] = cb
	return cb
}

// isOpen reports whether provider's breaker currently rejects calls.
func (s *breakerSet) isOpen(provider string) bool {
	cb := s.get(provider)
	return cb != nil && cb.State() == gobreaker.StateOpen
}

// state returns the breaker state name, or "disabled".
func (s *breakerSet) state(provider string) string {
	cb := s.get(provider)
	if cb == nil {
		return "disabled"
	}
	return cb.State().String()
}
