package flagenv

import (
	"errors"
	"sync"
	"time"
)

var ErrNoEvaluator = errors.New("flagenv: evaluator not configured")

// RuleContext carries inputs needed when evaluating a rule expression. Value
// is bound as `value`, Option as `option`, Now as `now` and Metadata as
// `metadata`.
type RuleContext struct {
	Value    any
	Option   string
	Now      *time.Time
	Metadata map[string]any
}

func (ctx RuleContext) withDefaults() RuleContext {
	if ctx.Now == nil {
		now := time.Now()
		ctx.Now = &now
	}
	if ctx.Metadata == nil {
		ctx.Metadata = map[string]any{}
	}
	return ctx
}

func (ctx RuleContext) timestamp() time.Time {
	ctx = ctx.withDefaults()
	return *ctx.Now
}

func (ctx RuleContext) label() string {
	if ctx.Option != "" {
		return ctx.Option
	}
	return "unknown"
}

func (ctx RuleContext) bindings() map[string]any {
	return map[string]any{
		"value":    ctx.Value,
		"option":   ctx.Option,
		"now":      ctx.timestamp(),
		"metadata": ctx.Metadata,
	}
}

// Evaluator executes expressions against a rule context.
type Evaluator interface {
	Evaluate(ctx RuleContext, expr string) (any, error)
	Compile(expr string, opts ...CompileOption) (CompiledRule, error)
}

// CompiledRule represents a reusable expression program.
type CompiledRule interface {
	Evaluate(ctx RuleContext) (any, error)
}

// CompileOption configures evaluator compile behaviour.
type CompileOption interface {
	applyCompileOption(*compileConfig)
}

type compileConfig struct{}


// ProgramCache stores compiled expression programs keyed by expression strings.
type ProgramCache interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

// NewProgramCache returns a ProgramCache safe for concurrent use.
func NewProgramCache() ProgramCache {
	return &programCache{entries: make(map[string]any)}
}

type programCache struct {
	mu      sync.RWMutex
	entries map[string]any
}

func (c *programCache) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	value, ok := c.entries[key]
	return value, ok
}

func (c *programCache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
}

var errEmptyExpression = errors.New("expression must not be empty")

func cacheKey(engine, expression string) string {
	return engine + ":" + expression
}
