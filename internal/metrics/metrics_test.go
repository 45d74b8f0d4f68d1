package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRegistry_RecordsCounters(t *testing.T) {
	r := NewRegistry()

	r.RecordCacheLookup("quote", "hit")
	r.RecordCacheLookup("quote", "hit")
	r.RecordCacheLookup("quote", "miss")
	r.RecordProviderCall("finnhub", "quote", "success", 120*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.CacheLookups.WithLabelValues("quote", "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.CacheLookups.WithLabelValues("quote", "miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.ProviderCalls.WithLabelValues("finnhub", "quote", "success")))
}

func TestRegistry_NilIsSafe(t *testing.T) {
	var r *Registry
	assert.NotPanics(t, func() {
		r.RecordCacheLookup("quote", "hit")
		r.RecordStage("SHORTLIST", "anthropic", "success", time.Second)
		r.RecordPipelineRun("ok")
	})
}

func TestRegistry_IndependentInstances(t *testing.T) {
	assert.NotPanics(t, func() {
		NewRegistry()
		NewRegistry()
	})
}
