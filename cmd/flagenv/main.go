// Command flagenv resolves the options declared in an HCL manifest against
// the process environment and arguments, and prints the result.
//
//	flagenv options.hcl --name ada -t 3
//
// The tool itself is configured through the environment so every argument
// after the manifest path is handed to the manifest's options:
//
//	FLAGENV_MANIFEST  manifest path, instead of the first argument
//	FLAGENV_FORMAT    json (default), env or schema
//	FLAGENV_STATE     SQLite file that records each successful run
//	FLAGENV_PROFILE   profile name the run is recorded under
//	FLAGENV_DEBUG     log resolution phases to stderr
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fatih/color"
	flagenv "github.com/goliatone/go-flagenv"
	"github.com/goliatone/go-flagenv/manifest"
	"github.com/goliatone/go-flagenv/pkg/state"
	"github.com/goliatone/go-flagenv/schema/openapi"
)

const usage = `Usage: flagenv <manifest.hcl> [options]

Resolves the options declared in the manifest and prints them.
`

// ExitError carries the process exit code.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

func main() {
	if err := run(context.Background(), os.Stdout, os.Stderr, os.Args[1:], os.Environ()); err != nil {
		color.New(color.FgRed).Fprintln(os.Stderr, err)
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

type toolConfig struct {
	Manifest string `json:"manifest"`
	Format   string `json:"format"`
	State    string `json:"state"`
	Profile  string `json:"profile"`
	Debug    bool   `json:"debug"`
}

func toolKey(name string) string {
	return strings.ToLower(strings.TrimPrefix(name, "FLAGENV_"))
}

func checkToolConfig(cfg *toolConfig) error {
	if cfg.Profile != "" && cfg.State == "" {
		return &ExitError{Code: 2, Message: "FLAGENV_PROFILE needs FLAGENV_STATE"}
	}
	return nil
}

func loadToolConfig(ctx context.Context, environ []string) (toolConfig, error) {
	result, err := flagenv.New(
		flagenv.WithEnviron(environ),
		flagenv.WithProgramName("flagenv"),
	).Add(
		flagenv.NewString(flagenv.Declaration[string]{Env: "FLAGENV_MANIFEST", Description: "Manifest path"}),
		flagenv.NewString(flagenv.Declaration[string]{
			Env:         "FLAGENV_FORMAT",
			Description: "Output format",
			Default:     flagenv.Value("json"),
			Validate:    flagenv.Rule[string](flagenv.NewExprEvaluator(), `value in ["json", "env", "schema"]`, flagenv.RuleWithOption("FLAGENV_FORMAT")),
		}),
		flagenv.NewString(flagenv.Declaration[string]{Env: "FLAGENV_STATE", Description: "SQLite state file"}),
		flagenv.NewString(flagenv.Declaration[string]{Env: "FLAGENV_PROFILE", Description: "State profile"}),
		flagenv.NewScalar(flagenv.Declaration[bool]{Env: "FLAGENV_DEBUG", Description: "Debug logging", Default: flagenv.Value(false)}),
	).Parse(ctx)
	if err != nil {
		return toolConfig{}, &ExitError{Code: 2, Message: err.Error()}
	}
	return flagenv.DecodeStrict(result, flagenv.DecodeKeys[toolConfig](toolKey), flagenv.DecodeCheck(checkToolConfig))
}

func run(ctx context.Context, stdout, stderr io.Writer, args, environ []string) error {
	cfg, err := loadToolConfig(ctx, environ)
	if err != nil {
		return err
	}
	path := cfg.Manifest
	if path == "" && len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		path, args = args[0], args[1:]
	}
	if path == "" {
		return &ExitError{Code: 2, Message: strings.TrimSpace(usage)}
	}

	m, err := manifest.Load(path)
	if err != nil {
		return err
	}

	level := slog.LevelWarn
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := flagenv.NewSlogLogger(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})))

	composeOpts := []flagenv.ComposeOption{
		flagenv.WithEnviron(environ),
		flagenv.WithArgs(args),
		flagenv.WithHelpWriter(stdout),
		flagenv.WithLogger(logger),
		openapi.Option(openapi.WithInfo(programName(m, path), "1.0.0",
			openapi.WithDescription("Options declared in "+filepath.Base(path)))),
	}
	if m.Program == "" {
		composeOpts = append(composeOpts, flagenv.WithProgramName(programName(m, path)))
	}
	compose, err := m.Compose([]manifest.BuildOption{manifest.WithEvaluatorLogger(logger)}, composeOpts...)
	if err != nil {
		return err
	}

	if cfg.Format == "schema" {
		doc, err := compose.Schema()
		if err != nil {
			return err
		}
		return writeJSON(stdout, doc.Document)
	}

	result, err := compose.Parse(ctx)
	if err != nil {
		return err
	}
	if result.HelpRequested {
		return nil
	}

	if cfg.State != "" {
		if err := record(ctx, cfg, result, stderr); err != nil {
			return err
		}
	}

	if cfg.Format == "env" {
		return writeEnv(stdout, result)
	}
	return writeJSON(stdout, result.Values())
}

func programName(m *manifest.Manifest, path string) string {
	if m.Program != "" {
		return m.Program
	}
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

func record(ctx context.Context, cfg toolConfig, result *flagenv.Result, stderr io.Writer) error {
	store, err := state.OpenSQLiteStore[state.Snapshot](cfg.State)
	if err != nil {
		return err
	}
	defer store.Close()

	ref := state.Ref{Program: result.Program, Profile: cfg.Profile}
	meta, err := state.Recorder{Store: store}.Record(ctx, ref, result, state.Meta{})
	if err != nil {
		return err
	}
	fmt.Fprintf(stderr, "recorded snapshot %s (etag %s)\n", meta.SnapshotID, meta.ETag)
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeEnv prints one NAME=value line per set option, sorted by name. Lists
// are joined with the list separator.
func writeEnv(w io.Writer, result *flagenv.Result) error {
	values := result.Values()
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, err := fmt.Fprintf(w, "%s=%s\n", envName(name), envValue(values[name])); err != nil {
			return err
		}
	}
	return nil
}

func envName(name string) string {
	return strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
}

func envValue(v any) string {
	return flagenv.FormatValue(v)
}
