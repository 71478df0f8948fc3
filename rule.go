package flagenv

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
	"time"
)

// ErrRuleRejected marks a rule that evaluated to false.
var ErrRuleRejected = errors.New("rule rejected value")

// RuleOption configures a Rule validator.
type RuleOption func(*ruleConfig)

type ruleConfig struct {
	option   string
	metadata map[string]any
	logger   EvaluatorLogger
}

// RuleWithOption labels the rule with the option it validates, for logs and
// evaluation errors.
func RuleWithOption(name string) RuleOption {
	return func(cfg *ruleConfig) {
		cfg.option = name
	}
}

// RuleWithMetadata binds metadata as `metadata` in the expression.
func RuleWithMetadata(metadata map[string]any) RuleOption {
	return func(cfg *ruleConfig) {
		cfg.metadata = make(map[string]any, len(metadata))
		for key, value := range metadata {
			cfg.metadata[key] = value
		}
	}
}

// RuleWithLogger reports every evaluation to logger.
func RuleWithLogger(logger EvaluatorLogger) RuleOption {
	return func(cfg *ruleConfig) {
		cfg.logger = logger
	}
}

// Rule builds a Validator that runs expression against the resolved value,
// bound as `value`. The expression is compiled on first use. A true result
// accepts the value, false rejects it with ErrRuleRejected and any other
// result or evaluator failure is reported as an *EvaluationError.
//
//	Validate: flagenv.Rule[string](flagenv.NewExprEvaluator(), "len(value) >= 3")
func Rule[V any](evaluator Evaluator, expression string, opts ...RuleOption) Validator[V] {
	cfg := ruleConfig{logger: noopEvaluatorLogger{}}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.logger == nil {
		cfg.logger = noopEvaluatorLogger{}
	}
	engine := engineName(evaluator)

	var (
		once       sync.Once
		compiled   CompiledRule
		compileErr error
	)
	return func(value V) error {
		if evaluator == nil {
			return ErrNoEvaluator
		}
		start := time.Now()
		once.Do(func() {
			compiled, compileErr = evaluator.Compile(expression)
		})
		if compileErr != nil {
			err := wrapEvaluationError(engine, expression, cfg.option, compileErr)
			cfg.logger.LogEvaluation(EvaluatorLogEvent{Engine: engine, Expr: expression, Option: cfg.option, Duration: time.Since(start), Err: err})
			return err
		}

		out, err := compiled.Evaluate(RuleContext{
			Value:    ruleValue(value),
			Option:   cfg.option,
			Metadata: cfg.metadata,
		})
		if err == nil {
			err = ruleOutcome(expression, out)
		}
		var evalErr *EvaluationError
		if err != nil && !errors.Is(err, ErrRuleRejected) && !errors.As(err, &evalErr) {
			err = wrapEvaluationError(engine, expression, cfg.option, err)
		}
		cfg.logger.LogEvaluation(EvaluatorLogEvent{Engine: engine, Expr: expression, Option: cfg.option, Duration: time.Since(start), Err: err})
		return err
	}
}

func ruleOutcome(expression string, out any) error {
	ok, isBool := out.(bool)
	if !isBool {
		return fmt.Errorf("rule must return bool, got %T", out)
	}
	if !ok {
		return fmt.Errorf("%w: %q", ErrRuleRejected, expression)
	}
	return nil
}

func engineName(evaluator Evaluator) string {
	if named, ok := evaluator.(interface{ engine() string }); ok {
		return named.engine()
	}
	if evaluator == nil {
		return "none"
	}
	return fmt.Sprintf("%T", evaluator)
}

// ruleValue widens resolved values to the types every engine handles:
// int64, uint64, float64, string, bool and []any.
func ruleValue(value any) any {
	switch v := value.(type) {
	case nil:
		return nil
	case Char:
		return v.String()
	case string, bool, int64, uint64, float64:
		return v
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint()
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	case reflect.String:
		return rv.String()
	case reflect.Bool:
		return rv.Bool()
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := range out {
			out[i] = ruleValue(rv.Index(i).Interface())
		}
		return out
	default:
		return value
	}
}
