package flagenv

import (
	"fmt"

	celgo "github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
)

// celMaxArity bounds the overloads generated for registry functions.
const celMaxArity = 4

// CELEvaluatorOption configures the CEL evaluator.
type CELEvaluatorOption func(*celEvaluator)

// CELWithProgramCache wires a ProgramCache into the CEL evaluator.
func CELWithProgramCache(cache ProgramCache) CELEvaluatorOption {
	return func(e *celEvaluator) {
		e.cache = cache
	}
}

// CELWithFunctionRegistry wires a FunctionRegistry into the CEL evaluator.
// Each function is exposed with overloads taking one to four dyn arguments.
func CELWithFunctionRegistry(registry *FunctionRegistry) CELEvaluatorOption {
	return func(e *celEvaluator) {
		if registry == nil {
			return
		}
		e.registry = registry.Clone()
	}
}

type celEvaluator struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// NewCELEvaluator constructs an Evaluator backed by cel-go.
func NewCELEvaluator(opts ...CELEvaluatorOption) Evaluator {
	e := &celEvaluator{}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

func (e *celEvaluator) Evaluate(ctx RuleContext, expression string) (any, error) {
	rule, err := e.Compile(expression)
	if err != nil {
		return nil, err
	}
	return rule.Evaluate(ctx)
}

func (e *celEvaluator) Compile(expression string, _ ...CompileOption) (CompiledRule, error) {
	if expression == "" {
		return nil, wrapEvaluatorError("cel", errEmptyExpression)
	}
	program, err := e.loadOrCompile(expression)
	if err != nil {
		return nil, err
	}
	return &celCompiledRule{
		program:    program,
		expression: expression,
	}, nil
}

func (e *celEvaluator) loadOrCompile(expression string) (celgo.Program, error) {
	if e.cache != nil {
		if cached, ok := e.cache.Get(cacheKey("cel", expression)); ok {
			if program, ok := cached.(celgo.Program); ok {
				return program, nil
			}
		}
	}

	env, err := e.buildEnv()
	if err != nil {
		return nil, wrapEvaluatorError("cel", err)
	}
	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, wrapEvaluationError("cel", expression, "", issues.Err())
	}
	program, err := env.Program(ast)
	if err != nil {
		return nil, wrapEvaluationError("cel", expression, "", err)
	}
	if e.cache != nil {
		e.cache.Set(cacheKey("cel", expression), program)
	}
	return program, nil
}

func (e *celEvaluator) buildEnv() (*celgo.Env, error) {
	opts := []celgo.EnvOption{
		celgo.Variable("value", celgo.DynType),
		celgo.Variable("option", celgo.StringType),
		celgo.Variable("now", celgo.TimestampType),
		celgo.Variable("metadata", celgo.MapType(celgo.StringType, celgo.DynType)),
	}
	if e.registry != nil {
		for _, name := range e.registry.Names() {
			opts = append(opts, celgo.Function(name, e.overloads(name)...))
		}
	}
	return celgo.NewEnv(opts...)
}

func (e *celEvaluator) overloads(name string) []celgo.FunctionOpt {
	overloads := make([]celgo.FunctionOpt, 0, celMaxArity)
	for arity := 1; arity <= celMaxArity; arity++ {
		args := make([]*celgo.Type, arity)
		for i := range args {
			args[i] = celgo.DynType
		}
		overloads = append(overloads, celgo.Overload(
			fmt.Sprintf("%s_dyn_%d", name, arity),
			args,
			celgo.DynType,
			celgo.FunctionBinding(e.callBinding(name)),
		))
	}
	return overloads
}

func (e *celEvaluator) callBinding(name string) func(values ...ref.Val) ref.Val {
	return func(values ...ref.Val) ref.Val {
		args := make([]any, 0, len(values))
		for _, val := range values {
			args = append(args, val.Value())
		}
		result, err := e.registry.Call(name, args...)
		if err != nil {
			return types.NewErr("%s", err.Error())
		}
		if result == nil {
			return types.NullValue
		}
		return types.DefaultTypeAdapter.NativeToValue(result)
	}
}

type celCompiledRule struct {
	program    celgo.Program
	expression string
}

func (r *celCompiledRule) Evaluate(ctx RuleContext) (any, error) {
	ctx = ctx.withDefaults()
	out, _, err := r.program.Eval(ctx.bindings())
	if err != nil {
		return nil, wrapEvaluationError("cel", r.expression, ctx.label(), err)
	}
	return out.Value(), nil
}

func (e *celEvaluator) engine() string { return "cel" }
