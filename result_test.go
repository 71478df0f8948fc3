package flagenv

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type greetConfig struct {
	Name    string   `json:"name"`
	Port    uint16   `json:"port"`
	Tags    []string `json:"tags"`
	Sep     Char     `json:"sep"`
	Verbose bool     `json:"verbose"`
}

func parseGreet(t *testing.T, args []string) *Result {
	t.Helper()
	res, err := New(WithArgs(args), WithRunID("run-1")).Add(
		NewString(Declaration[string]{Long: "name"}),
		NewScalar(Declaration[uint16]{Long: "port", Default: Value[uint16](8080)}),
		NewList(Declaration[[]string]{Long: "tags"}),
		NewScalar(Declaration[Char]{Long: "sep"}),
		NewScalar(Declaration[bool]{Long: "verbose"}),
	).Parse(context.Background())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return res
}

func TestDecode(t *testing.T) {
	res := parseGreet(t, []string{"--name", "bob", "--tags", "a,b", "--sep", ";"})
	cfg, err := Decode[greetConfig](res)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cfg.Name != "bob" || cfg.Port != 8080 || len(cfg.Tags) != 2 || cfg.Sep != ';' || cfg.Verbose {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestDecodeStrictRejectsUnknown(t *testing.T) {
	type partial struct {
		Name string `json:"name"`
	}
	res := parseGreet(t, []string{"--name", "bob"})
	if _, err := Decode[partial](res); err != nil {
		t.Fatalf("lenient decode: %v", err)
	}
	if _, err := DecodeStrict[partial](res); err == nil {
		t.Fatalf("expected strict decode to reject unknown option names")
	}
	if _, err := Decode[partial](nil); err == nil {
		t.Fatalf("expected error for nil result")
	}
}

func TestDecodeKeysAndCheck(t *testing.T) {
	type upper struct {
		Name string `json:"NAME"`
		Port uint16 `json:"PORT"`
	}
	res := parseGreet(t, []string{"--name", "bob"})

	rename := DecodeKeys[upper](func(name string) string {
		if name == "tags" || name == "sep" || name == "verbose" {
			return ""
		}
		return strings.ToUpper(name)
	})
	cfg, err := DecodeStrict(res, rename)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cfg.Name != "bob" || cfg.Port != 8080 {
		t.Fatalf("unexpected config %+v", cfg)
	}

	errLowPort := errors.New("port below 10000")
	_, err = Decode(res, rename, DecodeCheck(func(u *upper) error {
		if u.Port < 10000 {
			return errLowPort
		}
		return nil
	}))
	if !errors.Is(err, errLowPort) {
		t.Fatalf("expected check error, got %v", err)
	}
}

func TestLookupTypeMismatch(t *testing.T) {
	res := parseGreet(t, []string{"--name", "bob"})
	if _, ok := Lookup[int](res, "name"); ok {
		t.Fatalf("expected type mismatch to report false")
	}
	if _, ok := Lookup[string](res, "unknown"); ok {
		t.Fatalf("expected unknown name to report false")
	}
	if _, ok := Lookup[string](nil, "name"); ok {
		t.Fatalf("expected nil result to report false")
	}
	if r, ok := res.Get("verbose"); !ok || r.Set {
		t.Fatalf("expected verbose known but unset, got %+v", r)
	}
}

func TestResultValuesAreCopies(t *testing.T) {
	tags := NewList(Declaration[[]string]{Long: "tags"})
	res, err := New(WithArgs([]string{"--tags", "a"})).Add(tags).Parse(context.Background())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	v, _ := Lookup[[]string](res, "tags")
	v[0] = "changed"
	if slot, _ := tags.Get(); slot[0] != "a" {
		t.Fatalf("result must not alias the option slot")
	}
}

func TestResultDuplicateNamesFirstWins(t *testing.T) {
	res, err := New(WithEnv(map[string]string{"A": "1", "B": "2"})).Add(
		NewString(Declaration[string]{Env: "A", Long: "x"}),
		NewString(Declaration[string]{Env: "B", Long: "x"}),
	).Parse(context.Background())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if v, _ := Lookup[string](res, "x"); v != "1" {
		t.Fatalf("expected first registration to win, got %q", v)
	}
	if len(res.Resolutions()) != 2 {
		t.Fatalf("expected both resolutions kept")
	}
}
