package flagenv

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goliatone/go-flagenv/pkg/activity"
)

// DefaultProgramName is the placeholder used in the usage banner.
const DefaultProgramName = "<program>"

// ComposeOption configures a Compose.
type ComposeOption func(*composeConfig)

type composeConfig struct {
	env             map[string]string
	args            []string
	helpSink        func(string)
	program         string
	runID           string
	logger          ResolveLogger
	activityHooks   activity.Hooks
	activityConfig  activity.Config
	schemaGenerator SchemaGenerator
}

func applyComposeOptions(opts []ComposeOption) composeConfig {
	cfg := composeConfig{
		program: DefaultProgramName,
		activityConfig: activity.Config{
			Enabled: true,
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

func (cfg composeConfig) resolveLogger() ResolveLogger {
	if cfg.logger != nil {
		return cfg.logger
	}
	return noopResolveLogger{}
}

// WithEnv sets the environment snapshot. The map is copied.
func WithEnv(env map[string]string) ComposeOption {
	return func(cfg *composeConfig) {
		cfg.env = make(map[string]string, len(env))
		for key, value := range env {
			cfg.env[key] = value
		}
	}
}

// WithEnviron sets the environment snapshot from "KEY=VALUE" pairs, the
// format returned by os.Environ. Entries without '=' are skipped and later
// duplicates win.
func WithEnviron(environ []string) ComposeOption {
	return func(cfg *composeConfig) {
		cfg.env = make(map[string]string, len(environ))
		for _, entry := range environ {
			key, value, ok := strings.Cut(entry, "=")
			if !ok || key == "" {
				continue
			}
			cfg.env[key] = value
		}
	}
}

// WithOSEnv snapshots the process environment.
func WithOSEnv() ComposeOption {
	return WithEnviron(os.Environ())
}

// WithArgs sets the argument snapshot. Pass os.Args[1:], not os.Args.
func WithArgs(args []string) ComposeOption {
	return func(cfg *composeConfig) {
		cfg.args = append([]string(nil), args...)
	}
}

// WithHelpSink registers the consumer of rendered usage text.
func WithHelpSink(sink func(string)) ComposeOption {
	return func(cfg *composeConfig) {
		cfg.helpSink = sink
	}
}

// WithHelpWriter writes rendered usage text to w.
func WithHelpWriter(w io.Writer) ComposeOption {
	return func(cfg *composeConfig) {
		if w == nil {
			cfg.helpSink = nil
			return
		}
		cfg.helpSink = func(text string) {
			_, _ = fmt.Fprint(w, text)
		}
	}
}

// WithProgramName replaces the "<program>" placeholder in the usage banner.
func WithProgramName(name string) ComposeOption {
	return func(cfg *composeConfig) {
		if name = strings.TrimSpace(name); name != "" {
			cfg.program = name
		}
	}
}

// WithRunID fixes the run identifier instead of generating a UUID.
func WithRunID(id string) ComposeOption {
	return func(cfg *composeConfig) {
		cfg.runID = strings.TrimSpace(id)
	}
}

// WithLogger attaches a resolution logger.
func WithLogger(logger ResolveLogger) ComposeOption {
	return func(cfg *composeConfig) {
		cfg.logger = logger
	}
}

// WithActivityHooks attaches activity hooks notified about the run. Nil
// entries are dropped.
func WithActivityHooks(hooks activity.Hooks) ComposeOption {
	normalized := cloneActivityHooks(hooks)
	return func(cfg *composeConfig) {
		cfg.activityHooks = normalized
	}
}

// WithActivityConfig overrides activity emission defaults.
func WithActivityConfig(config activity.Config) ComposeOption {
	return func(cfg *composeConfig) {
		cfg.activityConfig = config
	}
}

// WithSchemaGenerator configures a custom schema generator implementation.
func WithSchemaGenerator(generator SchemaGenerator) ComposeOption {
	return func(cfg *composeConfig) {
		cfg.schemaGenerator = generator
	}
}

func cloneActivityHooks(hooks activity.Hooks) activity.Hooks {
	if len(hooks) == 0 {
		return nil
	}
	normalized := make([]activity.ActivityHook, 0, len(hooks))
	for _, hook := range hooks {
		if hook == nil {
			continue
		}
		normalized = append(normalized, hook)
	}
	if len(normalized) == 0 {
		return nil
	}
	return activity.Hooks(normalized)
}
