package flagenv

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/goliatone/go-flagenv/pkg/activity"
)

// countingOption wraps an option and counts phase calls.
type countingOption struct {
	Option
	envCalls  int
	argCalls  int
	evalCalls int
}

func (c *countingOption) ResolveEnv(env map[string]string) {
	c.envCalls++
	c.Option.ResolveEnv(env)
}

func (c *countingOption) ResolveArgs(args []string) {
	c.argCalls++
	c.Option.ResolveArgs(args)
}

func (c *countingOption) Evaluate() error {
	c.evalCalls++
	return c.Option.Evaluate()
}

func TestParseOptionWithoutIdentifierFails(t *testing.T) {
	decls := []Declaration[string]{
		{},
		{Required: true},
		{Default: Value("d")},
		{Required: true, Default: Value("d"), Description: "nothing"},
	}
	for _, decl := range decls {
		_, err := New(WithEnv(map[string]string{"A": "b"}), WithArgs([]string{"--a", "b"})).
			Add(NewString(decl)).
			Parse(context.Background())
		if !errors.Is(err, ErrParsing) {
			t.Fatalf("expected parsing error for %+v, got %v", decl, err)
		}
	}
}

func TestParseRequiredMissing(t *testing.T) {
	opt := NewString(Declaration[string]{Env: "TEST_ENV", Required: true})
	_, err := New().Add(opt).Parse(context.Background())
	if err == nil || err.Error() != "Validation error: {TEST_ENV} is required" {
		t.Fatalf("unexpected error %v", err)
	}
	var typed *Error
	if !errors.As(err, &typed) || typed.Kind != KindValidation {
		t.Fatalf("expected *Error of validation kind, got %T", err)
	}
}

func TestParseEnvPhase(t *testing.T) {
	present := NewString(Declaration[string]{Env: "K"})
	absent := NewString(Declaration[string]{Env: "MISSING"})
	res, err := New(WithEnv(map[string]string{"K": "x"})).Add(present, absent).Parse(context.Background())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if v, _ := present.Get(); v != "x" {
		t.Fatalf("expected x, got %q", v)
	}
	if _, ok := absent.Get(); ok {
		t.Fatalf("expected absent option to stay unset")
	}
	if v, ok := Lookup[string](res, "K"); !ok || v != "x" {
		t.Fatalf("expected result lookup x, got %q %v", v, ok)
	}
	if _, ok := Lookup[string](res, "MISSING"); ok {
		t.Fatalf("expected unset option to be absent from lookup")
	}
}

func TestParseScalarShortWins(t *testing.T) {
	opt := NewString(Declaration[string]{Short: 'n', Long: "name"})
	res, err := New(WithArgs([]string{"--name", "a", "-n", "b"})).Add(opt).Parse(context.Background())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if v, _ := Lookup[string](res, "name"); v != "b" {
		t.Fatalf("expected b, got %q", v)
	}
}

func TestParseListAccumulates(t *testing.T) {
	opt := NewList(Declaration[[]string]{Long: "tags"})
	res, err := New(WithArgs([]string{"--tags", "x,y", "--tags", "z"})).Add(opt).Parse(context.Background())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	v, ok := Lookup[[]string](res, "tags")
	if !ok || !reflect.DeepEqual(v, []string{"x", "y", "z"}) {
		t.Fatalf("expected [x y z], got %v", v)
	}
}

func TestParseDefaultOnlyWhenAbsent(t *testing.T) {
	t.Run("absent", func(t *testing.T) {
		opt := NewString(Declaration[string]{Env: "MODE", Long: "mode", Default: Value("d")})
		res, err := New().Add(opt).Parse(context.Background())
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if v, _ := Lookup[string](res, "mode"); v != "d" {
			t.Fatalf("expected default d, got %q", v)
		}
		if r, _ := res.Get("mode"); r.Source != SourceDefault {
			t.Fatalf("expected default source, got %v", r.Source)
		}
	})

	t.Run("supplied and rejected", func(t *testing.T) {
		var seen string
		opt := NewString(Declaration[string]{
			Env:     "MODE",
			Default: Value("d"),
			Validate: func(v string) error {
				seen = v
				return errors.New("nope")
			},
		})
		_, err := New(WithEnv(map[string]string{"MODE": "supplied"})).Add(opt).Parse(context.Background())
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("expected validation error, got %v", err)
		}
		if seen != "supplied" {
			t.Fatalf("validator should see the supplied value, saw %q", seen)
		}
		if v, _ := opt.Get(); v != "supplied" {
			t.Fatalf("default must not be applied, got %q", v)
		}
	})
}

func TestParseFailFast(t *testing.T) {
	first := &countingOption{Option: NewString(Declaration[string]{Env: "FIRST", Required: true})}
	second := &countingOption{Option: NewString(Declaration[string]{Env: "SECOND", Required: true})}

	_, err := New(WithEnv(map[string]string{"OTHER": "1"}), WithArgs([]string{"x"})).
		Add(first, second).
		Parse(context.Background())
	if err == nil || err.Error() != "Validation error: {FIRST} is required" {
		t.Fatalf("expected first option's error, got %v", err)
	}
	if first.evalCalls != 1 {
		t.Fatalf("expected first option evaluated once, got %d", first.evalCalls)
	}
	if second.evalCalls != 0 {
		t.Fatalf("expected second option never evaluated, got %d", second.evalCalls)
	}
	if first.envCalls != 1 || second.envCalls != 1 || first.argCalls != 1 || second.argCalls != 1 {
		t.Fatalf("parse phases must visit every option: %+v %+v", first, second)
	}
}

func TestParseSkipsEmptyPhases(t *testing.T) {
	opt := &countingOption{Option: NewString(Declaration[string]{Env: "A", Long: "a"})}
	if _, err := New().Add(opt).Parse(context.Background()); err != nil {
		t.Fatalf("parse: %v", err)
	}
	if opt.envCalls != 0 || opt.argCalls != 0 || opt.evalCalls != 1 {
		t.Fatalf("expected only evaluation to run, got %+v", opt)
	}
}

func TestParseHelpIsSideEffectOnly(t *testing.T) {
	var rendered []string
	name := NewString(Declaration[string]{Env: "NAME", Short: 'n', Long: "name", Required: true, Description: "Your name"})
	port := NewScalar(Declaration[uint16]{Long: "port", Default: Value[uint16](8080), Description: "Port"})

	res, err := New(
		WithArgs([]string{"--help", "--name", "bob", "-h"}),
		WithHelpSink(func(text string) { rendered = append(rendered, text) }),
	).Add(name, port).Parse(context.Background())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(rendered) != 1 {
		t.Fatalf("expected help rendered once, got %d", len(rendered))
	}
	want := "Usage: <program> [options]\n\n" +
		"Options:\n" +
		" - ENV:NAME ARGS:-n,--name  Required - Your name\n" +
		" - ARGS:--port  Default: 8080 - Port\n"
	if rendered[0] != want {
		t.Fatalf("unexpected help text:\n%q\nwant:\n%q", rendered[0], want)
	}
	if v, _ := name.Get(); v != "bob" {
		t.Fatalf("argument phase must still run after help, got %q", v)
	}
	if !res.HelpRequested {
		t.Fatalf("expected HelpRequested")
	}
}

func TestParseHelpWithoutOptionsOrSink(t *testing.T) {
	var buf bytes.Buffer
	res, err := New(WithArgs([]string{"-h"}), WithHelpWriter(&buf), WithProgramName("greet")).Parse(context.Background())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if buf.String() != "Usage: greet [options]\n\n" {
		t.Fatalf("unexpected banner %q", buf.String())
	}
	if !res.HelpRequested {
		t.Fatalf("expected HelpRequested")
	}

	res, err = New(WithArgs([]string{"--help"})).Parse(context.Background())
	if err != nil || !res.HelpRequested {
		t.Fatalf("expected help to be recorded without a sink, got %v %v", res, err)
	}
}

func TestParseHelpNotTriggeredByValue(t *testing.T) {
	called := false
	opt := NewString(Declaration[string]{Long: "name"})
	_, err := New(WithArgs([]string{"--name", "--helpful"}), WithHelpSink(func(string) { called = true })).
		Add(opt).
		Parse(context.Background())
	if err != nil || called {
		t.Fatalf("expected no help, err=%v called=%v", err, called)
	}
}

func TestParseTwiceFails(t *testing.T) {
	c := New()
	if _, err := c.Parse(context.Background()); err != nil {
		t.Fatalf("first parse: %v", err)
	}
	if _, err := c.Parse(context.Background()); !errors.Is(err, ErrConsumed) {
		t.Fatalf("expected ErrConsumed, got %v", err)
	}
}

func TestParseConversionErrorOrdering(t *testing.T) {
	bad := NewList(Declaration[[]int]{Long: "ids"})
	required := NewString(Declaration[string]{Env: "NAME", Required: true})
	_, err := New(WithArgs([]string{"--ids", "1,x"})).Add(required, bad).Parse(context.Background())
	if err == nil || err.Error() != "Validation error: {NAME} is required" {
		t.Fatalf("registration order decides which error wins, got %v", err)
	}

	bad = NewList(Declaration[[]int]{Long: "ids"})
	_, err = New(WithArgs([]string{"--ids", "1,x"})).Add(bad).Parse(context.Background())
	if err == nil || err.Error() != `Parsing error: cannot convert "x" to int` {
		t.Fatalf("expected conversion error, got %v", err)
	}
}

func TestComposeAccessors(t *testing.T) {
	env := map[string]string{"A": "1"}
	args := []string{"--a", "2"}
	c := New(WithEnv(env), WithArgs(args)).Add(nil, NewString(Declaration[string]{Long: "a"}))
	env["A"] = "changed"
	args[1] = "changed"
	if c.Env()["A"] != "1" || c.Args()[1] != "2" {
		t.Fatalf("snapshots must be copied: %v %v", c.Env(), c.Args())
	}
	if c.Len() != 1 {
		t.Fatalf("nil options must be skipped, got %d", c.Len())
	}
}

func TestWithEnviron(t *testing.T) {
	c := New(WithEnviron([]string{"A=1", "B=x=y", "broken", "=v", "A=2"}))
	env := c.Env()
	if env["A"] != "2" || env["B"] != "x=y" || len(env) != 2 {
		t.Fatalf("unexpected environ parsing %v", env)
	}
}

func TestParseResultAndTrace(t *testing.T) {
	port := NewScalar(Declaration[int]{Env: "PORT", Long: "port"})
	host := NewString(Declaration[string]{Env: "HOST", Default: Value("localhost")})
	res, err := New(
		WithEnv(map[string]string{"PORT": "80"}),
		WithArgs([]string{"--port", "8080"}),
		WithRunID("run-1"),
		WithProgramName("svc"),
	).Add(port, host).Parse(context.Background())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if res.RunID != "run-1" || res.Program != "svc" {
		t.Fatalf("unexpected run metadata %+v", res)
	}

	trace, ok := res.Trace("port")
	if !ok {
		t.Fatalf("expected trace for port")
	}
	winner, ok := trace.Winner()
	if !ok || winner.Source != SourceArgs || !reflect.DeepEqual(winner.Raw, []string{"8080"}) {
		t.Fatalf("unexpected winner %+v", winner)
	}
	if !trace.Layers[1].Found || trace.Layers[1].Raw[0] != "80" {
		t.Fatalf("expected env layer recorded, got %+v", trace.Layers[1])
	}

	hostTrace, _ := res.Trace("HOST")
	if w, _ := hostTrace.Winner(); w.Source != SourceDefault {
		t.Fatalf("expected default winner, got %+v", w)
	}

	values := res.Values()
	if values["port"] != 8080 || values["HOST"] != "localhost" {
		t.Fatalf("unexpected values %v", values)
	}
	names := make([]string, 0)
	for _, r := range res.Resolutions() {
		names = append(names, r.Name)
	}
	if strings.Join(names, ",") != "port,HOST" {
		t.Fatalf("expected registration order, got %v", names)
	}
}

func TestParseEmitsActivity(t *testing.T) {
	capture := &activity.CaptureHook{}
	name := NewString(Declaration[string]{Long: "name"})
	_, err := New(
		WithArgs([]string{"--name", "bob", "--help"}),
		WithRunID("run-7"),
		WithActivityHooks(activity.Hooks{capture, nil}),
	).Add(name).Parse(context.Background())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	verbs := strings.Join(capture.Verbs(), ",")
	if verbs != "options.help.rendered,options.option.resolved,options.run.completed" {
		t.Fatalf("unexpected verbs %s", verbs)
	}
	resolved := capture.Find("options.option.resolved")[0]
	if resolved.ObjectID != "name" || resolved.Metadata["source"] != "args" || resolved.Metadata["value"] != "bob" {
		t.Fatalf("unexpected resolved event %+v", resolved)
	}
	if resolved.RunID != "run-7" || resolved.Channel != activity.DefaultChannel {
		t.Fatalf("expected run id and channel, got %+v", resolved)
	}
}

func TestParseEmitsFailure(t *testing.T) {
	capture := &activity.CaptureHook{}
	_, err := New(WithActivityHooks(activity.Hooks{capture})).
		Add(NewString(Declaration[string]{Env: "NAME", Required: true})).
		Parse(context.Background())
	if err == nil {
		t.Fatalf("expected error")
	}
	failed := capture.Find("options.run.failed")
	if len(failed) != 1 || failed[0].Metadata["error"] != err.Error() || failed[0].Metadata["option"] != "NAME" {
		t.Fatalf("unexpected failure events %+v", capture.Events)
	}
	if len(capture.Find("options.run.completed")) != 0 {
		t.Fatalf("failed run must not report completion")
	}
}

func TestParseActivityDisabled(t *testing.T) {
	capture := &activity.CaptureHook{}
	_, err := New(
		WithActivityHooks(activity.Hooks{capture}),
		WithActivityConfig(activity.Config{Enabled: false}),
	).Add(NewString(Declaration[string]{Long: "a"})).Parse(context.Background())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(capture.Events) != 0 {
		t.Fatalf("expected no events, got %d", len(capture.Events))
	}
}

func TestParseLogsPhases(t *testing.T) {
	var phases []Phase
	logger := ResolveLoggerFunc(func(event ResolveEvent) {
		if event.RunID != "r" {
			t.Errorf("expected run id on every event, got %q", event.RunID)
		}
		phases = append(phases, event.Phase)
	})
	_, err := New(
		WithEnv(map[string]string{"A": "1"}),
		WithArgs([]string{"-h"}),
		WithRunID("r"),
		WithLogger(logger),
	).Add(NewString(Declaration[string]{Env: "A"})).Parse(context.Background())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := []Phase{PhaseEnv, PhaseHelp, PhaseArgs, PhaseEval}
	if !reflect.DeepEqual(phases, want) {
		t.Fatalf("expected phases %v, got %v", want, phases)
	}
}

func TestParseGeneratesRunID(t *testing.T) {
	res, err := New().Parse(context.Background())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(res.RunID) != 36 {
		t.Fatalf("expected uuid run id, got %q", res.RunID)
	}
}
