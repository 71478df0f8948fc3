package flagenv

import (
	"context"
	"log/slog"
	"time"
)

// Phase names a step of a resolution run.
type Phase string

const (
	PhaseEnv      Phase = "env"
	PhaseArgs     Phase = "args"
	PhaseHelp     Phase = "help"
	PhaseEval     Phase = "eval"
	PhaseActivity Phase = "activity"
)

// ResolveEvent describes one step of a resolution run for logging.
type ResolveEvent struct {
	RunID    string
	Phase    Phase
	Option   string
	Source   Source
	Count    int
	Duration time.Duration
	Err      error
}

// ResolveLogger records resolution events.
type ResolveLogger interface {
	LogResolve(ResolveEvent)
}

// ResolveLoggerFunc adapts a function to ResolveLogger.
type ResolveLoggerFunc func(ResolveEvent)

// LogResolve implements ResolveLogger.
func (f ResolveLoggerFunc) LogResolve(event ResolveEvent) {
	if f != nil {
		f(event)
	}
}

type noopResolveLogger struct{}

func (noopResolveLogger) LogResolve(ResolveEvent) {}

// EvaluatorLogEvent describes a rule evaluation attempt for logging.
type EvaluatorLogEvent struct {
	Engine   string
	Expr     string
	Option   string
	Duration time.Duration
	Err      error
}

// EvaluatorLogger records rule evaluator events.
type EvaluatorLogger interface {
	LogEvaluation(EvaluatorLogEvent)
}

// EvaluatorLoggerFunc adapts a function to EvaluatorLogger.
type EvaluatorLoggerFunc func(EvaluatorLogEvent)

// LogEvaluation implements EvaluatorLogger.
func (f EvaluatorLoggerFunc) LogEvaluation(event EvaluatorLogEvent) {
	if f != nil {
		f(event)
	}
}

type noopEvaluatorLogger struct{}

func (noopEvaluatorLogger) LogEvaluation(EvaluatorLogEvent) {}

// SlogLogger writes resolution and rule events to logger at debug level;
// events carrying an error are written at warn level.
type SlogLogger struct {
	Logger *slog.Logger
}

// NewSlogLogger wraps logger, falling back to slog.Default when nil.
func NewSlogLogger(logger *slog.Logger) SlogLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return SlogLogger{Logger: logger}
}

// LogResolve implements ResolveLogger.
func (l SlogLogger) LogResolve(event ResolveEvent) {
	attrs := []slog.Attr{
		slog.String("run_id", event.RunID),
		slog.String("phase", string(event.Phase)),
		slog.Duration("duration", event.Duration),
	}
	if event.Option != "" {
		attrs = append(attrs, slog.String("option", event.Option))
	}
	if event.Source != SourceNone {
		attrs = append(attrs, slog.String("source", event.Source.String()))
	}
	if event.Count > 0 {
		attrs = append(attrs, slog.Int("count", event.Count))
	}
	l.log("flagenv resolve", event.Err, attrs)
}

// LogEvaluation implements EvaluatorLogger.
func (l SlogLogger) LogEvaluation(event EvaluatorLogEvent) {
	attrs := []slog.Attr{
		slog.String("engine", event.Engine),
		slog.String("expr", event.Expr),
		slog.Duration("duration", event.Duration),
	}
	if event.Option != "" {
		attrs = append(attrs, slog.String("option", event.Option))
	}
	l.log("flagenv rule", event.Err, attrs)
}

func (l SlogLogger) log(msg string, err error, attrs []slog.Attr) {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	level := slog.LevelDebug
	if err != nil {
		level = slog.LevelWarn
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	logger.LogAttrs(context.Background(), level, msg, attrs...)
}
