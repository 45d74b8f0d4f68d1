package cache

import (
	"context"
	"encoding/json"

	"github.com/ternarybob/arbor"
)

// Lookup results reported to metrics
const (
	ResultHit       = "hit"
	ResultSharedHit = "shared_hit"
	ResultMiss      = "miss"
)

// Tiered layers a local TTLCache over an optional SharedTier. Values are
// JSON-encoded in the shared tier. Shared-tier failures degrade to local-only.
type Tiered[V any] struct {
	kind   string
	local  *TTLCache[V]
	shared SharedTier
	logger arbor.ILogger
}

// NewTiered creates a tiered cache for one data kind. shared may be nil.
func NewTiered[V any](kind string, local *TTLCache[V], shared SharedTier, logger arbor.ILogger) *Tiered[V] {
	return &Tiered[V]{kind: kind, local: local, shared: shared, logger: logger}
}

// Get returns the cached value and the lookup result label.
func (t *Tiered[V]) Get(ctx context.Context, key string) (V, string, bool) {
	if v, ok := t.local.Get(key); ok {
		return v, ResultHit, true
	}

	var zero V
	if t.shared == nil {
		return zero, ResultMiss, false
	}

	data, ok, err := t.shared.Get(ctx, t.kind+":"+key)
	if err != nil {
		t.logger.Debug().Err(err).Str("kind", t.kind).Str("key", key).Msg("Shared cache read failed")
		return zero, ResultMiss, false
	}
	if !ok {
		return zero, ResultMiss, false
	}

	var v V
	if err := json.Unmarshal(data, &v); err != nil {
		t.logger.Debug().Err(err).Str("kind", t.kind).Str("key", key).Msg("Shared cache entry undecodable")
		return zero, ResultMiss, false
	}
	t.local.Put(key, v)
	return v, ResultSharedHit, true
}

// Put stores value in both tiers.
func (t *Tiered[V]) Put(ctx context.Context, key string, value V) {
	t.local.Put(key, value)
	if t.shared == nil {
		return
	}

	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := t.shared.Set(ctx, t.kind+":"+key, data, t.local.TTL()); err != nil {
		t.logger.Debug().Err(err).Str("kind", t.kind).Str("key", key).Msg("Shared cache write failed")
	}
}

// ClearLocal drops the in-process tier.
func (t *Tiered[V]) ClearLocal() {
	t.local.Clear()
}
