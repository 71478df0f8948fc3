package manifest

import (
	"fmt"
	"sort"
	"strings"
	"time"

	flagenv "github.com/goliatone/go-flagenv"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// Rule engines accepted by the engine attribute.
const (
	EngineExpr = "expr"
	EngineCEL  = "cel"
	EngineJS   = "js"
)

// jsRuleTimeout bounds a single JS rule evaluation.
const jsRuleTimeout = time.Second

type builder func(spec OptionSpec, env *buildEnv) (flagenv.Option, error)

type buildEnv struct {
	evaluators map[string]flagenv.Evaluator
	logger     flagenv.EvaluatorLogger
}

// evaluator returns the evaluator for engine, creating the default one on
// first use.
func (env *buildEnv) evaluator(engine string) flagenv.Evaluator {
	if engine == "" {
		engine = EngineExpr
	}
	if ev, ok := env.evaluators[engine]; ok {
		return ev
	}
	var ev flagenv.Evaluator
	switch engine {
	case EngineCEL:
		ev = flagenv.NewCELEvaluator(flagenv.CELWithFunctionRegistry(flagenv.NewValidationFunctions()))
	case EngineJS:
		ev = flagenv.NewJSEvaluator(flagenv.JSWithFunctionRegistry(flagenv.NewValidationFunctions()), flagenv.JSWithTimeout(jsRuleTimeout))
	default:
		ev = flagenv.NewExprEvaluator(flagenv.ExprWithFunctionRegistry(flagenv.NewValidationFunctions()))
	}
	env.evaluators[engine] = ev
	return ev
}

func (env *buildEnv) ruleOptions(spec OptionSpec) []flagenv.RuleOption {
	opts := []flagenv.RuleOption{flagenv.RuleWithOption(spec.Name)}
	if env.logger != nil {
		opts = append(opts, flagenv.RuleWithLogger(env.logger))
	}
	return opts
}

var builders = map[string]builder{
	"string":        scalarBuilder[string],
	"bool":          scalarBuilder[bool],
	"char":          scalarBuilder[flagenv.Char],
	"int":           scalarBuilder[int],
	"int64":         scalarBuilder[int64],
	"uint":          scalarBuilder[uint],
	"uint16":        scalarBuilder[uint16],
	"uint64":        scalarBuilder[uint64],
	"float64":       scalarBuilder[float64],
	"list(string)":  listBuilder[string],
	"list(int)":     listBuilder[int],
	"list(int64)":   listBuilder[int64],
	"list(uint)":    listBuilder[uint],
	"list(float64)": listBuilder[float64],
	"list(bool)":    listBuilder[bool],
	"list(char)":    listBuilder[flagenv.Char],
}

func supportedTypes() string {
	names := make([]string, 0, len(builders))
	for name := range builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

// BuildOption configures Build.
type BuildOption func(*buildEnv)

// WithEvaluator overrides the evaluator used for engine.
func WithEvaluator(engine string, evaluator flagenv.Evaluator) BuildOption {
	return func(cfg *buildEnv) {
		if evaluator != nil {
			cfg.evaluators[engine] = evaluator
		}
	}
}

// WithEvaluatorLogger reports every rule evaluation to logger.
func WithEvaluatorLogger(logger flagenv.EvaluatorLogger) BuildOption {
	return func(cfg *buildEnv) {
		cfg.logger = logger
	}
}

// Build turns every option block into a flagenv.Option, in file order. Rules
// run on an expr, CEL or JS evaluator carrying the validation functions.
func (m *Manifest) Build(opts ...BuildOption) ([]flagenv.Option, error) {
	env := &buildEnv{evaluators: map[string]flagenv.Evaluator{}}
	for _, opt := range opts {
		if opt != nil {
			opt(env)
		}
	}

	options := make([]flagenv.Option, 0, len(m.Options))
	for _, spec := range m.Options {
		build, ok := builders[spec.Type]
		if !ok {
			return nil, fmt.Errorf("manifest: option %q: unsupported type %q", spec.Name, spec.Type)
		}
		opt, err := build(spec, env)
		if err != nil {
			return nil, err
		}
		options = append(options, opt)
	}
	return options, nil
}

// Compose builds the options and registers them on a new Compose. The
// manifest's program name is applied before opts, so opts can override it.
func (m *Manifest) Compose(build []BuildOption, opts ...flagenv.ComposeOption) (*flagenv.Compose, error) {
	options, err := m.Build(build...)
	if err != nil {
		return nil, err
	}
	composeOpts := make([]flagenv.ComposeOption, 0, len(opts)+1)
	if m.Program != "" {
		composeOpts = append(composeOpts, flagenv.WithProgramName(m.Program))
	}
	composeOpts = append(composeOpts, opts...)
	return flagenv.New(composeOpts...).Add(options...), nil
}

func scalarBuilder[T flagenv.Scalar](spec OptionSpec, env *buildEnv) (flagenv.Option, error) {
	decl := flagenv.Declaration[T]{
		Description: spec.Description,
		Env:         spec.Env,
		Short:       spec.Short,
		Long:        spec.Long,
		Required:    spec.Required,
	}
	tokens, err := defaultTokens(spec)
	if err != nil {
		return nil, err
	}
	switch len(tokens) {
	case 0:
	case 1:
		v, err := flagenv.Convert[T](tokens[0])
		if err != nil {
			return nil, fmt.Errorf("manifest: option %q default: %w", spec.Name, err)
		}
		decl.Default = flagenv.Value(v)
	default:
		return nil, fmt.Errorf("manifest: option %q default must be a single value", spec.Name)
	}
	if spec.Rule != "" {
		decl.Validate = flagenv.Rule[T](env.evaluator(spec.Engine), spec.Rule, env.ruleOptions(spec)...)
	}
	return flagenv.NewScalar(decl), nil
}

func listBuilder[T flagenv.Scalar](spec OptionSpec, env *buildEnv) (flagenv.Option, error) {
	decl := flagenv.Declaration[[]T]{
		Description: spec.Description,
		Env:         spec.Env,
		Short:       spec.Short,
		Long:        spec.Long,
		Required:    spec.Required,
	}
	tokens, err := defaultTokens(spec)
	if err != nil {
		return nil, err
	}
	if tokens != nil {
		values := make([]T, 0, len(tokens))
		for _, token := range tokens {
			v, err := flagenv.Convert[T](token)
			if err != nil {
				return nil, fmt.Errorf("manifest: option %q default: %w", spec.Name, err)
			}
			values = append(values, v)
		}
		decl.Default = flagenv.Value(values)
	}
	if spec.Rule != "" {
		decl.Validate = flagenv.Rule[[]T](env.evaluator(spec.Engine), spec.Rule, env.ruleOptions(spec)...)
	}
	return flagenv.NewList(decl), nil
}

// defaultTokens renders the default attribute as literal tokens: one for a
// primitive, one per element for a list or tuple, nil when absent.
func defaultTokens(spec OptionSpec) ([]string, error) {
	if spec.Default == nil {
		return nil, nil
	}
	value, diags := spec.Default.Value(nil)
	if diags.HasErrors() {
		return nil, fmt.Errorf("manifest: option %q default: %w", spec.Name, diags)
	}
	if value.IsNull() {
		return nil, nil
	}
	if !value.IsWhollyKnown() {
		return nil, fmt.Errorf("manifest: option %q default must be a constant", spec.Name)
	}

	ty := value.Type()
	if ty.IsListType() || ty.IsTupleType() || ty.IsSetType() {
		tokens := []string{}
		for it := value.ElementIterator(); it.Next(); {
			_, elem := it.Element()
			token, err := primitiveToken(spec.Name, elem)
			if err != nil {
				return nil, err
			}
			tokens = append(tokens, token)
		}
		return tokens, nil
	}
	token, err := primitiveToken(spec.Name, value)
	if err != nil {
		return nil, err
	}
	return []string{token}, nil
}

func primitiveToken(name string, value cty.Value) (string, error) {
	if !value.Type().IsPrimitiveType() || value.IsNull() {
		return "", fmt.Errorf("manifest: option %q default has unsupported type %s", name, value.Type().FriendlyName())
	}
	str, err := convert.Convert(value, cty.String)
	if err != nil {
		return "", fmt.Errorf("manifest: option %q default: %w", name, err)
	}
	return str.AsString(), nil
}
