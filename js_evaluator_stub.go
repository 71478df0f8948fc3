//go:build !js_eval

package flagenv

// JSAvailable reports whether JS rules can run in this binary.
func JSAvailable() bool { return false }

// NewJSEvaluator returns an evaluator whose rules all fail with
// ErrJSUnavailable. Build with -tags js_eval for the goja engine.
func NewJSEvaluator(opts ...JSEvaluatorOption) Evaluator {
	_ = newJSOptions(opts)
	return jsUnavailable{}
}

type jsUnavailable struct{}

func (jsUnavailable) Evaluate(ctx RuleContext, expression string) (any, error) {
	return nil, wrapEvaluationError("js", expression, ctx.label(), ErrJSUnavailable)
}

func (jsUnavailable) Compile(expression string, _ ...CompileOption) (CompiledRule, error) {
	return nil, wrapEvaluationError("js", expression, "", ErrJSUnavailable)
}

func (jsUnavailable) engine() string { return "js" }
