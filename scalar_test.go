package flagenv

import (
	"errors"
	"fmt"
	"testing"
)

func TestScalarEnvOverwrites(t *testing.T) {
	opt := NewString(Declaration[string]{Env: "K"})
	opt.ResolveEnv(map[string]string{"K": "x"})
	if v, ok := opt.Get(); !ok || v != "x" || opt.Source() != SourceEnv {
		t.Fatalf("expected x from env, got %q %v %v", v, ok, opt.Source())
	}
	opt.ResolveEnv(map[string]string{"K": "y"})
	if v, _ := opt.Get(); v != "y" {
		t.Fatalf("expected second env pass to overwrite, got %q", v)
	}
}

func TestScalarEnvMissingLeavesSlotUnset(t *testing.T) {
	opt := NewString(Declaration[string]{Env: "K"})
	opt.ResolveEnv(map[string]string{"OTHER": "x"})
	if _, ok := opt.Get(); ok {
		t.Fatalf("expected slot to stay unset")
	}
	if opt.Source() != SourceNone {
		t.Fatalf("expected no source, got %v", opt.Source())
	}
}

func TestScalarArgsShortPassWins(t *testing.T) {
	opt := NewString(Declaration[string]{Short: 'n', Long: "name"})
	opt.ResolveArgs([]string{"--name", "a", "-n", "b"})
	if v, _ := opt.Get(); v != "b" {
		t.Fatalf("expected b, got %q", v)
	}

	reversed := NewString(Declaration[string]{Short: 'n', Long: "name"})
	reversed.ResolveArgs([]string{"-n", "b", "--name", "a"})
	if v, _ := reversed.Get(); v != "b" {
		t.Fatalf("short pass runs after long pass regardless of position, got %q", v)
	}
}

func TestScalarArgsLastOccurrenceWins(t *testing.T) {
	opt := NewScalar(Declaration[int]{Long: "port"})
	opt.ResolveArgs([]string{"--port", "1", "--port", "2"})
	if v, _ := opt.Get(); v != 2 {
		t.Fatalf("expected 2, got %d", v)
	}
}

func TestScalarArgsOverrideEnv(t *testing.T) {
	opt := NewScalar(Declaration[uint16]{Env: "PORT", Long: "port"})
	opt.ResolveEnv(map[string]string{"PORT": "80"})
	opt.ResolveArgs([]string{"--port", "8080"})
	if v, _ := opt.Get(); v != 8080 || opt.Source() != SourceArgs {
		t.Fatalf("expected args to win, got %d from %v", v, opt.Source())
	}
}

func TestScalarArgsExactMatchOnly(t *testing.T) {
	opt := NewString(Declaration[string]{Short: 'n', Long: "name"})
	opt.ResolveArgs([]string{"--name=a", "--nam", "b", "-nb", "--NAME", "c"})
	if _, ok := opt.Get(); ok {
		t.Fatalf("expected no match for non-exact tokens")
	}
}

func TestScalarArgsTrailingFlagIgnored(t *testing.T) {
	opt := NewString(Declaration[string]{Long: "name"})
	opt.ResolveArgs([]string{"--name"})
	if _, ok := opt.Get(); ok {
		t.Fatalf("expected trailing flag without value to be ignored")
	}
}

func TestScalarArgsValueNotReadAsFlag(t *testing.T) {
	opt := NewString(Declaration[string]{Long: "name"})
	opt.ResolveArgs([]string{"--name", "--name", "x"})
	if v, _ := opt.Get(); v != "--name" {
		t.Fatalf("expected the paired token as value, got %q", v)
	}
}

func TestScalarConversionErrorDeferredToEvaluate(t *testing.T) {
	opt := NewScalar(Declaration[int]{Env: "N", Long: "n"})
	opt.ResolveEnv(map[string]string{"N": "abc"})
	opt.ResolveArgs([]string{"--n", "5"})
	err := opt.Evaluate()
	if !errors.Is(err, ErrParsing) {
		t.Fatalf("expected deferred parsing error, got %v", err)
	}
	if err.Error() != `Parsing error: cannot convert "abc" to int` {
		t.Fatalf("expected first failure to be kept, got %q", err.Error())
	}
}

func TestScalarEvaluateRules(t *testing.T) {
	t.Run("no identifier beats default and required", func(t *testing.T) {
		opt := NewString(Declaration[string]{Required: true, Default: Value("d")})
		err := opt.Evaluate()
		if !errors.Is(err, ErrParsing) || err.Error() != "Parsing error: no identifier set" {
			t.Fatalf("expected no identifier error, got %v", err)
		}
	})

	t.Run("required", func(t *testing.T) {
		opt := NewString(Declaration[string]{Env: "TEST_ENV", Required: true})
		err := opt.Evaluate()
		if err == nil || err.Error() != "Validation error: {TEST_ENV} is required" {
			t.Fatalf("unexpected error %v", err)
		}
	})

	t.Run("default applied when absent", func(t *testing.T) {
		opt := NewString(Declaration[string]{Long: "mode", Default: Value("d")})
		if err := opt.Evaluate(); err != nil {
			t.Fatalf("evaluate: %v", err)
		}
		if v, ok := opt.Get(); !ok || v != "d" || opt.Source() != SourceDefault {
			t.Fatalf("expected default d, got %q %v %v", v, ok, opt.Source())
		}
	})

	t.Run("validator sees supplied value not default", func(t *testing.T) {
		var seen []string
		opt := NewString(Declaration[string]{
			Long:    "mode",
			Default: Value("good"),
			Validate: func(v string) error {
				seen = append(seen, v)
				if v != "good" {
					return fmt.Errorf("bad mode %q", v)
				}
				return nil
			},
		})
		opt.ResolveArgs([]string{"--mode", "bad"})
		err := opt.Evaluate()
		if err == nil || err.Error() != `Validation error: {--mode} failed validation: bad mode "bad"` {
			t.Fatalf("unexpected error %v", err)
		}
		if v, _ := opt.Get(); v != "bad" {
			t.Fatalf("default must not replace a supplied value, got %q", v)
		}
		if len(seen) != 1 || seen[0] != "bad" {
			t.Fatalf("validator should run once on the supplied value, saw %v", seen)
		}
	})

	t.Run("validator runs on default", func(t *testing.T) {
		called := false
		opt := NewScalar(Declaration[int]{Env: "N", Default: Value(3), Validate: func(v int) error {
			called = v == 3
			return nil
		}})
		if err := opt.Evaluate(); err != nil || !called {
			t.Fatalf("expected validator on default value, err=%v called=%v", err, called)
		}
	})

	t.Run("validator error unwraps", func(t *testing.T) {
		base := errors.New("too short")
		opt := NewString(Declaration[string]{Env: "N", Validate: func(string) error { return base }})
		opt.ResolveEnv(map[string]string{"N": "x"})
		err := opt.Evaluate()
		if !errors.Is(err, base) || !errors.Is(err, ErrValidation) {
			t.Fatalf("expected wrapped validator error, got %v", err)
		}
	})

	t.Run("optional absent stays unset", func(t *testing.T) {
		opt := NewScalar(Declaration[bool]{Long: "verbose"})
		if err := opt.Evaluate(); err != nil {
			t.Fatalf("evaluate: %v", err)
		}
		if _, ok := opt.Get(); ok {
			t.Fatalf("expected unset slot")
		}
	})
}

func TestScalarDefaultIsCopied(t *testing.T) {
	def := []string{"a"}
	opt := NewList(Declaration[[]string]{Long: "tags", Default: &def})
	if err := opt.Evaluate(); err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	v, _ := opt.Get()
	v[0] = "changed"
	if def[0] != "a" {
		t.Fatalf("default must not alias the slot")
	}
}
