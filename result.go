package flagenv

import (
	"fmt"

	"github.com/goliatone/go-flagenv/internal/hydrate"
)

// Resolution is the outcome of one option after a successful run.
type Resolution struct {
	Name     string
	Identity Identity
	Value    any
	Set      bool
	Source   Source
	Trace    Trace
}

// Result maps option names to their resolved values. Callers merge it into
// their own variables with Lookup or Decode.
type Result struct {
	RunID         string
	Program       string
	HelpRequested bool

	resolutions []Resolution
	index       map[string]int
}

func newResult(runID, program string, helped bool, options []Option) *Result {
	r := &Result{
		RunID:         runID,
		Program:       program,
		HelpRequested: helped,
		resolutions:   make([]Resolution, 0, len(options)),
		index:         make(map[string]int, len(options)),
	}
	for _, opt := range options {
		res := opt.resolution()
		r.resolutions = append(r.resolutions, res)
		if _, dup := r.index[res.Name]; !dup {
			r.index[res.Name] = len(r.resolutions) - 1
		}
	}
	return r
}

// Get returns the resolution registered under name. When several options
// share a name the first registered one wins.
func (r *Result) Get(name string) (Resolution, bool) {
	if r == nil {
		return Resolution{}, false
	}
	i, ok := r.index[name]
	if !ok {
		return Resolution{}, false
	}
	return r.resolutions[i], true
}

// Resolutions returns every resolution in registration order.
func (r *Result) Resolutions() []Resolution {
	if r == nil {
		return nil
	}
	return append([]Resolution(nil), r.resolutions...)
}

// Values returns the set values keyed by option name.
func (r *Result) Values() map[string]any {
	out := map[string]any{}
	if r == nil {
		return out
	}
	for name, i := range r.index {
		if res := r.resolutions[i]; res.Set {
			out[name] = res.Value
		}
	}
	return out
}

// Trace returns the provenance trace for name.
func (r *Result) Trace(name string) (Trace, bool) {
	res, ok := r.Get(name)
	if !ok {
		return Trace{}, false
	}
	return res.Trace, true
}

// Lookup returns the typed value of name. It reports false when the option is
// unknown, unset, or holds a different type.
func Lookup[V any](r *Result, name string) (V, bool) {
	var zero V
	res, ok := r.Get(name)
	if !ok || !res.Set {
		return zero, false
	}
	v, ok := res.Value.(V)
	if !ok {
		return zero, false
	}
	return v, true
}

// DecodeOption adjusts how Decode hydrates T.
type DecodeOption[T any] func(*[]hydrate.DecoderOption[T])

// DecodeKeys renames option names before they are matched against json tags.
// Names mapped to "" are dropped.
func DecodeKeys[T any](rename func(name string) string) DecodeOption[T] {
	return func(opts *[]hydrate.DecoderOption[T]) {
		if rename == nil {
			return
		}
		*opts = append(*opts, hydrate.WithPreHook[T](func(_ hydrate.Context, payload map[string]any) (map[string]any, error) {
			out := make(map[string]any, len(payload))
			for name, value := range payload {
				if key := rename(name); key != "" {
					out[key] = value
				}
			}
			return out, nil
		}))
	}
}

// DecodeCheck runs check on the hydrated value. A non-nil error fails the
// decode.
func DecodeCheck[T any](check func(*T) error) DecodeOption[T] {
	return func(opts *[]hydrate.DecoderOption[T]) {
		if check == nil {
			return
		}
		*opts = append(*opts, hydrate.WithPostHook[T](func(_ hydrate.Context, value *T) error {
			return check(value)
		}))
	}
}

// DecodeRejectUnknown fails the decode when a set option has no field in T.
func DecodeRejectUnknown[T any]() DecodeOption[T] {
	return func(opts *[]hydrate.DecoderOption[T]) {
		*opts = append(*opts, hydrate.WithDisallowUnknownFields[T]())
	}
}

// Decode hydrates T from the resolved values. Fields are matched by their
// json tags against option names.
func Decode[T any](r *Result, opts ...DecodeOption[T]) (T, error) {
	var zero T
	if r == nil {
		return zero, fmt.Errorf("flagenv: decode: result is nil")
	}
	var decoderOpts []hydrate.DecoderOption[T]
	for _, opt := range opts {
		if opt != nil {
			opt(&decoderOpts)
		}
	}
	decoder := hydrate.NewDecoder(decoderOpts...)
	return decoder.Decode(hydrate.Context{RunID: r.RunID, Program: r.Program}, r.Values())
}

// DecodeStrict is Decode with unknown option names rejected.
func DecodeStrict[T any](r *Result, opts ...DecodeOption[T]) (T, error) {
	return Decode(r, append(opts[:len(opts):len(opts)], DecodeRejectUnknown[T]())...)
}
