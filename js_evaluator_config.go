package flagenv

import (
	"errors"
	"time"
)

// ErrJSUnavailable is returned by the JS evaluator of binaries built without
// the js_eval tag.
var ErrJSUnavailable = errors.New("flagenv: js rules need a build with -tags js_eval")

// JSEvaluatorOption tunes NewJSEvaluator.
type JSEvaluatorOption func(*jsOptions)

type jsOptions struct {
	cache     ProgramCache
	functions *FunctionRegistry
	timeout   time.Duration
}

// JSWithProgramCache shares compiled rule programs through cache.
func JSWithProgramCache(cache ProgramCache) JSEvaluatorOption {
	return func(o *jsOptions) { o.cache = cache }
}

// JSWithFunctionRegistry exposes a copy of registry as global functions.
func JSWithFunctionRegistry(registry *FunctionRegistry) JSEvaluatorOption {
	return func(o *jsOptions) {
		if registry != nil {
			o.functions = registry.Clone()
		}
	}
}

// JSWithTimeout interrupts a rule that runs longer than d. Zero disables it.
func JSWithTimeout(d time.Duration) JSEvaluatorOption {
	return func(o *jsOptions) {
		if d > 0 {
			o.timeout = d
		}
	}
}

func newJSOptions(opts []JSEvaluatorOption) jsOptions {
	var o jsOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}
