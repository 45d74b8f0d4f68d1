package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/ternarybob/vigil/internal/common"
	"github.com/ternarybob/vigil/internal/interfaces"
)

// RoutingKey is the settings-store key holding user routing overrides.
const RoutingKey = "llm_routing"

var routingValidator = validator.New()

// DefaultModel returns the model used when neither config nor overrides name one.
func DefaultModel(p Provider) string {
	switch p {
	case ProviderGemini:
		return "gemini-2.5-flash"
	case ProviderOpenAI:
		return "gpt-4o-mini"
	default:
		return "claude-sonnet-4-5"
	}
}

// RoutingTable resolves per-stage model configuration: user overrides from
// the settings store win over config-file routes, which win over defaults.
type RoutingTable struct {
	mu              sync.RWMutex
	defaultProvider Provider
	defaultModel    string
	routes          map[Stage]StageModelConfig
	overrides       map[Stage]StageModelConfig
	kv              interfaces.KeyValueStorage
}

// NewRoutingTable builds a table from the [llm] config section. kv may be nil.
func NewRoutingTable(cfg common.LLMConfig, kv interfaces.KeyValueStorage) *RoutingTable {
	provider := Provider(strings.ToLower(cfg.DefaultProvider))
	switch provider {
	case ProviderAnthropic, ProviderGemini, ProviderOpenAI:
	default:
		provider = ProviderAnthropic
	}
	model := cfg.DefaultModel
	if model == "" {
		model = DefaultModel(provider)
	}

	t := &RoutingTable{
		defaultProvider: provider,
		defaultModel:    model,
		routes:          make(map[Stage]StageModelConfig),
		overrides:       make(map[Stage]StageModelConfig),
		kv:              kv,
	}

	for name, route := range cfg.Routes {
		stage := Stage(strings.ToUpper(name))
		if !stage.Valid() {
			continue
		}
		t.routes[stage] = t.applyRoute(t.Defaults(stage), route)
	}
	return t
}

// DefaultProvider returns the provider stages route to unless configured otherwise.
func (t *RoutingTable) DefaultProvider() Provider {
	return t.defaultProvider
}

// Defaults returns the built-in configuration for stage.
func (t *RoutingTable) Defaults(stage Stage) StageModelConfig {
	cfg := StageModelConfig{
		Provider:        t.defaultProvider,
		Model:           t.defaultModel,
		Tools:           ToolsNone,
		Temperature:     0.2,
		MaxOutputTokens: 2000,
		TimeoutMs:       30_000,
		ReasoningDepth:  DepthMedium,
	}

	switch stage {
	case StageShortlist:
		cfg.MaxOutputTokens = 1000
	case StageDecisionUpdate:
		cfg.ReasoningDepth = DepthHigh
		cfg.MaxOutputTokens = 1500
	case StageFundamentalsNewsSynthesis:
		cfg.Temperature = 0.3
		cfg.ReasoningDepth = DepthHigh
	case StageDeepDive:
		cfg.Tools = ToolsWebSearch
		cfg.ReasoningDepth = DepthHigh
		cfg.TimeoutMs = 60_000
	case StageRssVerify:
		cfg.Temperature = 0.1
		cfg.ReasoningDepth = DepthMinimal
		cfg.MaxOutputTokens = 500
	}
	return cfg
}

func (t *RoutingTable) applyRoute(cfg StageModelConfig, route common.StageRoute) StageModelConfig {
	if route.Provider != "" {
		cfg.Provider = Provider(strings.ToLower(route.Provider))
		if route.Model == "" {
			cfg.Model = DefaultModel(cfg.Provider)
		}
	}
	if route.Model != "" {
		cfg.Model = route.Model
	}
	if route.Tools != "" {
		cfg.Tools = ToolsMode(strings.ToUpper(route.Tools))
	}
	if route.Temperature > 0 {
		cfg.Temperature = route.Temperature
	}
	if route.MaxOutputTokens > 0 {
		cfg.MaxOutputTokens = route.MaxOutputTokens
	}
	if d := common.ParseDuration(route.Timeout, 0); d > 0 {
		cfg.TimeoutMs = d.Milliseconds()
	}
	if route.ReasoningDepth != "" {
		cfg.ReasoningDepth = ReasoningDepth(strings.ToUpper(route.ReasoningDepth))
	}
	return cfg
}

// ConfigFor returns the effective configuration for stage.
func (t *RoutingTable) ConfigFor(stage Stage) StageModelConfig {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if cfg, ok := t.overrides[stage]; ok {
		return cfg
	}
	if cfg, ok := t.routes[stage]; ok {
		return cfg
	}
	return t.Defaults(stage)
}

// Override installs a user override for stage. An empty model takes the provider default.
func (t *RoutingTable) Override(stage Stage, cfg StageModelConfig) error {
	if !stage.Valid() {
		return fmt.Errorf("unknown stage %q", stage)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel(cfg.Provider)
	}
	if cfg.Tools == "" {
		cfg.Tools = ToolsNone
	}
	if err := routingValidator.Struct(cfg); err != nil {
		return fmt.Errorf("invalid routing for %s: %w", stage, err)
	}

	t.mu.Lock()
	t.overrides[stage] = cfg
	t.mu.Unlock()
	return nil
}

// Reset removes the user override for stage.
func (t *RoutingTable) Reset(stage Stage) {
	t.mu.Lock()
	delete(t.overrides, stage)
	t.mu.Unlock()
}

// Overrides returns a copy of the user overrides.
func (t *RoutingTable) Overrides() map[Stage]StageModelConfig {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[Stage]StageModelConfig, len(t.overrides))
	for k, v := range t.overrides {
		out[k] = v
	}
	return out
}

// Load replaces the user overrides with those persisted in the settings
// store. A missing key leaves no overrides; invalid entries are skipped.
func (t *RoutingTable) Load(ctx context.Context) error {
	if t.kv == nil {
		return nil
	}
	raw, err := t.kv.Get(ctx, RoutingKey)
	if err != nil {
		if errors.Is(err, interfaces.ErrKeyNotFound) {
			return nil
		}
		return fmt.Errorf("failed to read routing overrides: %w", err)
	}
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	var stored map[Stage]StageModelConfig
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return fmt.Errorf("failed to decode routing overrides: %w", err)
	}

	loaded := make(map[Stage]StageModelConfig, len(stored))
	for stage, cfg := range stored {
		if !stage.Valid() || routingValidator.Struct(cfg) != nil {
			continue
		}
		loaded[stage] = cfg
	}

	t.mu.Lock()
	t.overrides = loaded
	t.mu.Unlock()
	return nil
}

// Save persists the user overrides to the settings store.
func (t *RoutingTable) Save(ctx context.Context) error {
	if t.kv == nil {
		return errors.New("routing table has no settings store")
	}
	data, err := json.Marshal(t.Overrides())
	if err != nil {
		return fmt.Errorf("failed to encode routing overrides: %w", err)
	}
	if err := t.kv.Set(ctx, RoutingKey, string(data), "Per-stage LLM routing overrides"); err != nil {
		return fmt.Errorf("failed to save routing overrides: %w", err)
	}
	return nil
}
