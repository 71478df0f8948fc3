package flagenv

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-flagenv/pkg/activity"
	"github.com/google/uuid"
)

// Compose owns the declared options and the raw inputs of one resolution run.
// It is consumed by the first call to Parse and is not safe for concurrent use.
type Compose struct {
	cfg      composeConfig
	options  []Option
	consumed bool
}

// New builds a Compose configured by opts.
func New(opts ...ComposeOption) *Compose {
	return &Compose{cfg: applyComposeOptions(opts)}
}

// Add registers options in order. Nil options are skipped.
func (c *Compose) Add(options ...Option) *Compose {
	for _, opt := range options {
		if opt != nil {
			c.options = append(c.options, opt)
		}
	}
	return c
}

// Len returns the number of registered options.
func (c *Compose) Len() int {
	return len(c.options)
}

// Env returns a copy of the environment snapshot.
func (c *Compose) Env() map[string]string {
	out := make(map[string]string, len(c.cfg.env))
	for key, value := range c.cfg.env {
		out[key] = value
	}
	return out
}

// Args returns a copy of the argument snapshot.
func (c *Compose) Args() []string {
	return append([]string(nil), c.cfg.args...)
}

// Usage renders the help banner followed by one line per option.
func (c *Compose) Usage() string {
	var b strings.Builder
	b.WriteString("Usage: ")
	b.WriteString(c.cfg.program)
	b.WriteString(" [options]\n\n")
	if len(c.options) > 0 {
		b.WriteString("Options:\n")
		for _, opt := range c.options {
			b.WriteString(" - ")
			b.WriteString(opt.Help())
			b.WriteString("\n")
		}
	}
	return b.String()
}

// Parse runs the environment phase, the argument phase and the evaluation
// phase. It returns the first evaluation error in registration order.
func (c *Compose) Parse(ctx context.Context) (*Result, error) {
	if c.consumed {
		return nil, ErrConsumed
	}
	c.consumed = true
	if ctx == nil {
		ctx = context.Background()
	}

	run := c.newRun(ctx)

	if len(c.cfg.env) > 0 {
		start := time.Now()
		for _, opt := range c.options {
			opt.ResolveEnv(c.cfg.env)
		}
		run.log(ResolveEvent{Phase: PhaseEnv, Count: len(c.cfg.env), Duration: time.Since(start)})
	}

	helped := false
	if len(c.cfg.args) > 0 {
		if hasHelpFlag(c.cfg.args) {
			helped = true
			c.renderHelp(run)
		}
		start := time.Now()
		for _, opt := range c.options {
			opt.ResolveArgs(c.cfg.args)
		}
		run.log(ResolveEvent{Phase: PhaseArgs, Count: len(c.cfg.args), Duration: time.Since(start)})
	}

	for _, opt := range c.options {
		start := time.Now()
		err := opt.Evaluate()
		name := opt.Identity().Name()
		if err != nil {
			run.log(ResolveEvent{Phase: PhaseEval, Option: name, Duration: time.Since(start), Err: err})
			run.emit(activity.BuildResolutionFailedEvent(run.input(activity.OptionEventInput{
				Option:   name,
				Identity: opt.Identity().String(),
				Err:      err,
			})))
			return nil, err
		}
		run.log(ResolveEvent{Phase: PhaseEval, Option: name, Source: opt.resolution().Source, Duration: time.Since(start)})
	}

	result := newResult(run.id, c.cfg.program, helped, c.options)
	for _, res := range result.resolutions {
		run.emit(activity.BuildOptionResolvedEvent(run.input(resolvedEventInput(res))))
	}
	run.emit(activity.BuildRunCompletedEvent(run.input(activity.OptionEventInput{})))
	return result, nil
}

func (c *Compose) renderHelp(run *runState) {
	start := time.Now()
	if c.cfg.helpSink != nil {
		c.cfg.helpSink(c.Usage())
	}
	run.log(ResolveEvent{Phase: PhaseHelp, Count: len(c.options), Duration: time.Since(start)})
	run.emit(activity.BuildHelpRenderedEvent(run.input(activity.OptionEventInput{})))
}

// hasHelpFlag reports whether a standalone --help or -h token is present.
func hasHelpFlag(args []string) bool {
	for _, arg := range args {
		if arg == "--help" || arg == "-h" {
			return true
		}
	}
	return false
}

type runState struct {
	ctx     context.Context
	id      string
	program string
	logger  ResolveLogger
	emitter *activity.Emitter
}

func (c *Compose) newRun(ctx context.Context) *runState {
	id := c.cfg.runID
	if id == "" {
		id = uuid.NewString()
	}
	return &runState{
		ctx:     ctx,
		id:      id,
		program: c.cfg.program,
		logger:  c.cfg.resolveLogger(),
		emitter: activity.NewEmitter(c.cfg.activityHooks, c.cfg.activityConfig),
	}
}

func (r *runState) log(event ResolveEvent) {
	event.RunID = r.id
	r.logger.LogResolve(event)
}

// emit forwards event to the activity hooks. Hook failures are logged and
// never change the outcome of the run.
func (r *runState) emit(event activity.Event) {
	if !r.emitter.Enabled() {
		return
	}
	if err := r.emitter.Emit(r.ctx, event); err != nil {
		r.log(ResolveEvent{Phase: PhaseActivity, Option: event.ObjectID, Err: err})
	}
}

func (r *runState) input(in activity.OptionEventInput) activity.OptionEventInput {
	in.RunID = r.id
	in.Program = r.program
	return in
}

func resolvedEventInput(res Resolution) activity.OptionEventInput {
	in := activity.OptionEventInput{
		Option:   res.Name,
		Identity: res.Identity.String(),
		Value:    res.Value,
	}
	if res.Set {
		in.Source = activity.SourceContext{
			Name:     res.Source.String(),
			Priority: res.Source.Priority(),
		}
		if layer, ok := res.Trace.Winner(); ok {
			in.Source.Raw = layer.Raw
		}
	}
	return in
}
