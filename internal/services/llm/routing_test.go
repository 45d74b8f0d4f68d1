package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/vigil/internal/common"
	"github.com/ternarybob/vigil/internal/interfaces"
)

type memoryKV struct {
	values map[string]string
}

func newMemoryKV() *memoryKV { return &memoryKV{values: make(map[string]string)} }

func (m *memoryKV) Get(ctx context.Context, key string) (string, error) {
	if v, ok := m.values[key]; ok {
		return v, nil
	}
	return "", interfaces.ErrKeyNotFound
}
func (m *memoryKV) Set(ctx context.Context, key, value, description string) error {
	m.values[key] = value
	return nil
}
func (m *memoryKV) Delete(ctx context.Context, key string) error { delete(m.values, key); return nil }
func (m *memoryKV) List(ctx context.Context) ([]interfaces.KeyValuePair, error) {
	return nil, nil
}
func (m *memoryKV) GetAll(ctx context.Context) (map[string]string, error) { return m.values, nil }
func (m *memoryKV) ListByPrefix(ctx context.Context, prefix string) ([]interfaces.KeyValuePair, error) {
	return nil, nil
}

func TestRoutingTable_Defaults(t *testing.T) {
	table := NewRoutingTable(common.LLMConfig{DefaultProvider: "gemini"}, nil)

	tests := []struct {
		stage     Stage
		temp      float64
		depth     ReasoningDepth
		maxTokens int
		timeoutMs int64
		tools     ToolsMode
	}{
		{StageShortlist, 0.2, DepthMedium, 1000, 30_000, ToolsNone},
		{StageDecisionUpdate, 0.2, DepthHigh, 1500, 30_000, ToolsNone},
		{StageFundamentalsNewsSynthesis, 0.3, DepthHigh, 2000, 30_000, ToolsNone},
		{StageDeepDive, 0.2, DepthHigh, 2000, 60_000, ToolsWebSearch},
		{StageRssVerify, 0.1, DepthMinimal, 500, 30_000, ToolsNone},
	}

	for _, tt := range tests {
		t.Run(string(tt.stage), func(t *testing.T) {
			cfg := table.ConfigFor(tt.stage)
			assert.Equal(t, ProviderGemini, cfg.Provider)
			assert.Equal(t, DefaultModel(ProviderGemini), cfg.Model)
			assert.Equal(t, tt.temp, cfg.Temperature)
			assert.Equal(t, tt.depth, cfg.ReasoningDepth)
			assert.Equal(t, tt.maxTokens, cfg.MaxOutputTokens)
			assert.Equal(t, tt.timeoutMs, cfg.TimeoutMs)
			assert.Equal(t, tt.tools, cfg.Tools)
		})
	}
}

func TestRoutingTable_ConfigRoutesApplyOverDefaults(t *testing.T) {
	table := NewRoutingTable(common.LLMConfig{
		DefaultProvider: "anthropic",
		DefaultModel:    "claude-sonnet-4-5",
		Routes: map[string]common.StageRoute{
			"deep_dive": {Provider: "gemini", Timeout: "90s"},
			"bogus":     {Provider: "openai"},
		},
	}, nil)

	cfg := table.ConfigFor(StageDeepDive)
	assert.Equal(t, ProviderGemini, cfg.Provider)
	assert.Equal(t, DefaultModel(ProviderGemini), cfg.Model)
	assert.Equal(t, int64(90_000), cfg.TimeoutMs)
	assert.Equal(t, ToolsWebSearch, cfg.Tools)

	assert.Equal(t, ProviderAnthropic, table.ConfigFor(StageShortlist).Provider)
}

func TestRoutingTable_OverrideValidation(t *testing.T) {
	table := NewRoutingTable(common.LLMConfig{DefaultProvider: "anthropic"}, nil)

	err := table.Override(StageShortlist, StageModelConfig{Provider: "mystery", MaxOutputTokens: 100, TimeoutMs: 5000})
	assert.Error(t, err)

	err = table.Override(Stage("NOPE"), StageModelConfig{Provider: ProviderOpenAI, MaxOutputTokens: 100, TimeoutMs: 5000})
	assert.Error(t, err)

	err = table.Override(StageShortlist, StageModelConfig{Provider: ProviderOpenAI, MaxOutputTokens: 100, TimeoutMs: 5000})
	require.NoError(t, err)
	cfg := table.ConfigFor(StageShortlist)
	assert.Equal(t, ProviderOpenAI, cfg.Provider)
	assert.Equal(t, DefaultModel(ProviderOpenAI), cfg.Model)
	assert.Equal(t, ToolsNone, cfg.Tools)

	table.Reset(StageShortlist)
	assert.Equal(t, ProviderAnthropic, table.ConfigFor(StageShortlist).Provider)
}

func TestRoutingTable_SaveAndLoad(t *testing.T) {
	ctx := context.Background()
	kv := newMemoryKV()

	table := NewRoutingTable(common.LLMConfig{DefaultProvider: "anthropic"}, kv)
	require.NoError(t, table.Override(StageRssVerify, StageModelConfig{
		Provider:        ProviderGemini,
		Model:           "gemini-2.5-flash-lite",
		Temperature:     0.1,
		MaxOutputTokens: 300,
		TimeoutMs:       10_000,
		ReasoningDepth:  DepthMinimal,
	}))
	require.NoError(t, table.Save(ctx))
	assert.Contains(t, kv.values[RoutingKey], "gemini-2.5-flash-lite")

	restored := NewRoutingTable(common.LLMConfig{DefaultProvider: "anthropic"}, kv)
	require.NoError(t, restored.Load(ctx))

	cfg := restored.ConfigFor(StageRssVerify)
	assert.Equal(t, "gemini-2.5-flash-lite", cfg.Model)
	assert.Equal(t, 300, cfg.MaxOutputTokens)
	assert.Len(t, restored.Overrides(), 1)
}

func TestRoutingTable_LoadSkipsInvalidEntries(t *testing.T) {
	kv := newMemoryKV()
	kv.values[RoutingKey] = `{
		"SHORTLIST": {"provider":"openai","model":"gpt-4o","max_output_tokens":800,"timeout_ms":20000},
		"DECISION_UPDATE": {"provider":"nobody","max_output_tokens":800,"timeout_ms":20000},
		"UNKNOWN": {"provider":"openai","max_output_tokens":800,"timeout_ms":20000}
	}`

	table := NewRoutingTable(common.LLMConfig{DefaultProvider: "anthropic"}, kv)
	require.NoError(t, table.Load(context.Background()))

	assert.Equal(t, "gpt-4o", table.ConfigFor(StageShortlist).Model)
	assert.Equal(t, ProviderAnthropic, table.ConfigFor(StageDecisionUpdate).Provider)
	assert.Len(t, table.Overrides(), 1)
}

func TestRoutingTable_LoadMissingKey(t *testing.T) {
	table := NewRoutingTable(common.LLMConfig{}, newMemoryKV())
	require.NoError(t, table.Load(context.Background()))
	assert.Empty(t, table.Overrides())
	assert.Equal(t, ProviderAnthropic, table.ConfigFor(StageShortlist).Provider)
}
