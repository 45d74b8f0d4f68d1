// Package health tracks market-data providers in cool-down after auth or quota failures.
package health

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/vigil/internal/interfaces"
	"github.com/ternarybob/vigil/internal/models"
)

// DefaultEnforcedCooldown is the blacklist duration applied after an auth/quota failure.
const DefaultEnforcedCooldown = 10 * time.Minute

// BlacklistFunc is called after a provider is blacklisted.
type BlacklistFunc func(provider string, until time.Time)

// Registry records provider blacklist deadlines. Entries expire lazily on
// the next check; there is no background sweeper.
type Registry struct {
	mu      sync.Mutex
	entries map[string]time.Time

	storage       interfaces.HealthStorage
	logger        arbor.ILogger
	now           func() time.Time
	onBlacklisted BlacklistFunc
}

// Option configures the Registry.
type Option func(*Registry)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

// WithStorage makes blacklist state durable.
func WithStorage(storage interfaces.HealthStorage) Option {
	return func(r *Registry) {
		r.storage = storage
	}
}

// WithOnBlacklisted registers a callback fired on every new blacklist event.
func WithOnBlacklisted(fn BlacklistFunc) Option {
	return func(r *Registry) {
		r.onBlacklisted = fn
	}
}

// NewRegistry creates an empty registry. Call Load to restore persisted state.
func NewRegistry(logger arbor.ILogger, opts ...Option) *Registry {
	r := &Registry{
		entries: make(map[string]time.Time),
		logger:  logger,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Load restores persisted entries, dropping any that have already expired.
func (r *Registry) Load(ctx context.Context) error {
	if r.storage == nil {
		return nil
	}

	entries, err := r.storage.ListEntries(ctx)
	if err != nil {
		return err
	}

	now := r.now()
	restored := 0

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, entry := range entries {
		if now.After(entry.BlacklistedUntil) {
			if err := r.storage.DeleteEntry(ctx, entry.Provider); err != nil {
				r.logger.Warn().Err(err).Str("provider", entry.Provider).Msg("Failed to delete expired health entry")
			}
			continue
		}
		r.entries[entry.Provider] = entry.BlacklistedUntil
		restored++
	}

	r.logger.Debug().Int("restored", restored).Int("stored", len(entries)).Msg("Provider health loaded")
	return nil
}

// Blacklist puts provider in cool-down for d.
func (r *Registry) Blacklist(provider string, d time.Duration) {
	until := r.now().Add(d)

	r.mu.Lock()
	r.entries[provider] = until
	r.mu.Unlock()

	r.persist(models.ProviderHealthEntry{Provider: provider, BlacklistedUntil: until})

	r.logger.Warn().
		Str("provider", provider).
		Dur("duration", d).
		Str("until", until.Format(time.RFC3339)).
		Msg("Provider blacklisted")

	if r.onBlacklisted != nil {
		r.onBlacklisted(provider, until)
	}
}

// IsBlacklisted purges the entry if it has expired, then reports membership.
func (r *Registry) IsBlacklisted(provider string) bool {
	r.mu.Lock()
	until, ok := r.entries[provider]
	if !ok {
		r.mu.Unlock()
		return false
	}
	if r.now().After(until) {
		delete(r.entries, provider)
		r.mu.Unlock()
		r.remove(provider)
		return false
	}
	r.mu.Unlock()
	return true
}

// Clear removes provider from the blacklist.
func (r *Registry) Clear(provider string) {
	r.mu.Lock()
	_, ok := r.entries[provider]
	delete(r.entries, provider)
	r.mu.Unlock()

	if ok {
		r.remove(provider)
	}
}

// Blacklisted returns the active entries sorted by provider, purging expired ones.
func (r *Registry) Blacklisted() []models.ProviderHealthEntry {
	now := r.now()
	var expired []string
	var active []models.ProviderHealthEntry

	r.mu.Lock()
	for provider, until := range r.entries {
		if now.After(until) {
			delete(r.entries, provider)
			expired = append(expired, provider)
			continue
		}
		active = append(active, models.ProviderHealthEntry{Provider: provider, BlacklistedUntil: until})
	}
	r.mu.Unlock()

	for _, provider := range expired {
		r.remove(provider)
	}

	sort.Slice(active, func(i, j int) bool { return active[i].Provider < active[j].Provider })
	return active
}

func (r *Registry) persist(entry models.ProviderHealthEntry) {
	if r.storage == nil {
		return
	}
	if err := r.storage.SaveEntry(context.Background(), entry); err != nil {
		r.logger.Warn().Err(err).Str("provider", entry.Provider).Msg("Failed to persist health entry")
	}
}

func (r *Registry) remove(provider string) {
	if r.storage == nil {
		return
	}
	if err := r.storage.DeleteEntry(context.Background(), provider); err != nil {
		r.logger.Warn().Err(err).Str("provider", provider).Msg("Failed to delete health entry")
	}
}
