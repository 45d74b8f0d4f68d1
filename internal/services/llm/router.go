package llm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/vigil/internal/common"
	"github.com/ternarybob/vigil/internal/interfaces"
	"github.com/ternarybob/vigil/internal/metrics"
	"github.com/ternarybob/vigil/internal/services/retry"
)

var (
	// ErrMissingAPIKey means the routed provider has no resolvable credential.
	ErrMissingAPIKey = errors.New("missing LLM API key")
	// ErrNoRunner means no runner is registered for the routed provider.
	ErrNoRunner = errors.New("no runner for provider")
)

// keyOptional is implemented by runners that can call unauthenticated endpoints.
type keyOptional interface {
	KeyOptional() bool
}

// Router dispatches each stage to the runner its routing table selects.
type Router struct {
	table        *RoutingTable
	runners      map[Provider]StageRunner
	kv           interfaces.KeyValueStorage
	keysMu       sync.RWMutex
	fallbackKeys map[Provider]string
	policy       *retry.Policy
	metrics      *metrics.Registry
	audit        *AuditLog
	logger       arbor.ILogger
	now          func() time.Time
}

// RouterOption configures the Router.
type RouterOption func(*Router)

// WithRunner registers the runner for provider.
func WithRunner(p Provider, runner StageRunner) RouterOption {
	return func(r *Router) {
		r.runners[p] = runner
	}
}

// WithKeyStore resolves credentials from the settings store.
func WithKeyStore(kv interfaces.KeyValueStorage) RouterOption {
	return func(r *Router) {
		r.kv = kv
	}
}

// WithFallbackKey sets the config-file credential for provider.
func WithFallbackKey(p Provider, key string) RouterOption {
	return func(r *Router) {
		if key != "" {
			r.fallbackKeys[p] = key
		}
	}
}

// WithRetryPolicy retries rate-limited and transient runner failures.
func WithRetryPolicy(policy *retry.Policy) RouterOption {
	return func(r *Router) {
		r.policy = policy
	}
}

// WithStageMetrics records stage outcomes and latency.
func WithStageMetrics(m *metrics.Registry) RouterOption {
	return func(r *Router) {
		r.metrics = m
	}
}

// WithAudit records every call in log.
func WithAudit(log *AuditLog) RouterOption {
	return func(r *Router) {
		r.audit = log
	}
}

// WithRouterClock replaces time.Now for audit timestamps and latency.
func WithRouterClock(now func() time.Time) RouterOption {
	return func(r *Router) {
		r.now = now
	}
}

// NewRouter creates a router over table.
func NewRouter(table *RoutingTable, logger arbor.ILogger, opts ...RouterOption) *Router {
	if logger == nil {
		logger = arbor.NewNoOpLogger()
	}
	r := &Router{
		table:        table,
		runners:      make(map[Provider]StageRunner),
		fallbackKeys: make(map[Provider]string),
		logger:       logger,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Table returns the routing table.
func (r *Router) Table() *RoutingTable {
	return r.table
}

// Audit returns the audit log, which may be nil.
func (r *Router) Audit() *AuditLog {
	return r.audit
}

// SetFallbackKey replaces the lowest-priority credential for provider.
func (r *Router) SetFallbackKey(p Provider, key string) {
	r.keysMu.Lock()
	r.fallbackKeys[p] = key
	r.keysMu.Unlock()
}

type requestKeyCtx struct{}

type scopedKey struct {
	provider Provider
	key      string
}

// WithRequestKey scopes a caller-supplied credential to ctx for the routing
// table's default provider. It wins over env, store and config credentials
// for that provider and is never sent to any other.
func WithRequestKey(ctx context.Context, key string) context.Context {
	return WithProviderRequestKey(ctx, "", key)
}

// WithProviderRequestKey scopes a caller-supplied credential to ctx for p.
// An empty p means the default provider.
func WithProviderRequestKey(ctx context.Context, p Provider, key string) context.Context {
	if key == "" {
		return ctx
	}
	return context.WithValue(ctx, requestKeyCtx{}, scopedKey{provider: p, key: key})
}

func (r *Router) requestKey(ctx context.Context, p Provider) string {
	rk, ok := ctx.Value(requestKeyCtx{}).(scopedKey)
	if !ok {
		return ""
	}
	target := rk.provider
	if target == "" {
		target = r.table.DefaultProvider()
	}
	if target != p {
		return ""
	}
	return rk.key
}

// resolveKey prefers the request key, then env, store and config.
func (r *Router) resolveKey(ctx context.Context, p Provider) (string, error) {
	if key := r.requestKey(ctx, p); key != "" {
		return key, nil
	}
	r.keysMu.RLock()
	fallback := r.fallbackKeys[p]
	r.keysMu.RUnlock()
	return common.ResolveAPIKey(ctx, r.kv, p.KeyName(), fallback)
}

// HasKey reports whether provider's credential resolves.
func (r *Router) HasKey(ctx context.Context, p Provider) bool {
	_, err := r.resolveKey(ctx, p)
	return err == nil
}

// webSearcher is implemented by runners whose web search depends on the
// endpoint they target.
type webSearcher interface {
	SupportsWebSearch() bool
}

// EffectiveTools applies the tool guardrails: only DEEP_DIVE may use tools,
// and a web search request becomes the provider's own tool identifier.
func EffectiveTools(stage Stage, cfg StageModelConfig) ToolsMode {
	if stage != StageDeepDive {
		return ToolsNone
	}
	switch cfg.Tools {
	case ToolsWebSearch, ToolsGoogleSearch:
		return cfg.Provider.WebSearchTool()
	default:
		return ToolsNone
	}
}

// Run resolves routing for stage, applies the stage timeout and dispatches
// req to the provider's runner.
func (r *Router) Run(ctx context.Context, stage Stage, req StageRequest) (*StageResponse, error) {
	cfg := r.table.ConfigFor(stage)
	cfg.Tools = EffectiveTools(stage, cfg)

	runner, ok := r.runners[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoRunner, cfg.Provider)
	}
	if ws, ok := runner.(webSearcher); ok && !ws.SupportsWebSearch() {
		cfg.Tools = ToolsNone
	}

	apiKey, err := r.resolveKey(ctx, cfg.Provider)
	if err != nil {
		if opt, ok := runner.(keyOptional); !ok || !opt.KeyOptional() {
			r.logger.Error().Str("stage", string(stage)).Str("provider", string(cfg.Provider)).Msg("API key missing for stage provider")
			return nil, fmt.Errorf("%w for %s", ErrMissingAPIKey, cfg.Provider)
		}
	}

	r.logger.Info().
		Str("stage", string(stage)).
		Str("provider", string(cfg.Provider)).
		Str("model", cfg.Model).
		Str("tools", string(cfg.Tools)).
		Str("depth", string(cfg.ReasoningDepth)).
		Msg("Routing stage")

	call := StageCall{Stage: stage, Request: req, Config: cfg, APIKey: apiKey}
	start := r.now()

	stageCtx, cancel := context.WithTimeout(ctx, cfg.Timeout())
	defer cancel()

	var resp *StageResponse
	if r.policy != nil {
		resp, err = retry.Run(stageCtx, r.policy, "llm:"+string(stage), func(ctx context.Context) (*StageResponse, error) {
			return runner.Run(ctx, call)
		})
	} else {
		resp, err = runner.Run(stageCtx, call)
	}
	elapsed := r.now().Sub(start)

	if err == nil && resp != nil && req.ExpectJSON && resp.ParsedJSON == "" {
		resp.ParsedJSON, _ = ExtractJSON(resp.RawText)
	}

	r.record(call, resp, err, start, elapsed)

	if err != nil {
		r.logger.Error().
			Str("stage", string(stage)).
			Str("provider", string(cfg.Provider)).
			Str("model", cfg.Model).
			Err(err).
			Msg("Stage call failed")
		return nil, fmt.Errorf("stage %s on %s/%s failed: %w", stage, cfg.Provider, cfg.Model, err)
	}
	return resp, nil
}

func (r *Router) record(call StageCall, resp *StageResponse, err error, start time.Time, elapsed time.Duration) {
	status := "success"
	entry := AuditEntry{
		Timestamp:   start,
		Stage:       call.Stage,
		Provider:    call.Config.Provider,
		Model:       call.Config.Model,
		Tools:       call.Config.Tools,
		Success:     err == nil,
		DurationMs:  elapsed.Milliseconds(),
		PromptChars: len(call.Request.SystemPrompt) + len(call.Request.UserPrompt),
	}
	if err != nil {
		status = "error"
		entry.Error = err.Error()
	} else if resp != nil {
		entry.ReplyChars = len(resp.RawText)
	}

	r.metrics.RecordStage(string(call.Stage), string(call.Config.Provider), status, elapsed)
	r.audit.Record(entry)
}
