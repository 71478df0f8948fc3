package hydrate

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

type serverSettings struct {
	Host    string   `json:"host"`
	Port    int      `json:"port"`
	Verbose bool     `json:"verbose"`
	Tags    []string `json:"tags"`
}

func TestDecoderCases(t *testing.T) {
	cases := []struct {
		name      string
		input     map[string]any
		options   []DecoderOption[serverSettings]
		expect    serverSettings
		expectErr string
	}{
		{
			name:   "basic",
			input:  map[string]any{"host": "localhost", "port": uint16(8080), "verbose": true, "tags": []string{"a", "b"}},
			expect: serverSettings{Host: "localhost", Port: 8080, Verbose: true, Tags: []string{"a", "b"}},
		},
		{
			name:   "missing fields keep zero values",
			input:  map[string]any{"host": "h"},
			expect: serverSettings{Host: "h"},
		},
		{
			name:   "unknown fields tolerated by default",
			input:  map[string]any{"host": "h", "extra": 1},
			expect: serverSettings{Host: "h"},
		},
		{
			name:      "unknown fields rejected",
			input:     map[string]any{"host": "h", "extra": 1},
			options:   []DecoderOption[serverSettings]{WithDisallowUnknownFields[serverSettings]()},
			expectErr: `unknown field "extra"`,
		},
		{
			name:      "type mismatch",
			input:     map[string]any{"port": "not-a-number"},
			expectErr: "hydrate: decode run",
		},
		{
			name:      "nil payload",
			input:     nil,
			expectErr: "payload is nil",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			decoder := NewDecoder(tc.options...)
			result, err := decoder.Decode(Context{RunID: "run-1", Program: "greet"}, tc.input)
			if tc.expectErr != "" {
				if err == nil || !strings.Contains(err.Error(), tc.expectErr) {
					t.Fatalf("expected error containing %q, got %v", tc.expectErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected decode error: %v", err)
			}
			if !reflect.DeepEqual(tc.expect, result) {
				t.Fatalf("decoded mismatch:\nwant: %#v\n got: %#v", tc.expect, result)
			}
		})
	}
}

func TestDecoderHooks(t *testing.T) {
	errReject := errors.New("reject")
	var seen Context
	decoder := NewDecoder(
		WithPreHook[serverSettings](func(ctx Context, payload map[string]any) (map[string]any, error) {
			seen = ctx
			payload["host"] = strings.ToUpper(payload["host"].(string))
			return payload, nil
		}),
		WithPostHook[serverSettings](func(_ Context, s *serverSettings) error {
			if s.Port == 0 {
				s.Port = 80
			}
			return nil
		}),
	)
	input := map[string]any{"host": "example"}
	result, err := decoder.Decode(Context{RunID: "r"}, input)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Host != "EXAMPLE" || result.Port != 80 {
		t.Fatalf("unexpected result %+v", result)
	}
	if input["host"] != "example" {
		t.Fatalf("pre-hook must not mutate the caller payload")
	}
	if seen.RunID != "r" {
		t.Fatalf("expected context passed to hooks, got %+v", seen)
	}

	failing := NewDecoder(WithPostHook[serverSettings](func(Context, *serverSettings) error { return errReject }))
	if _, err := failing.Decode(Context{Program: "greet"}, map[string]any{}); !errors.Is(err, errReject) {
		t.Fatalf("expected post-hook error, got %v", err)
	} else if !strings.Contains(err.Error(), `"greet"`) {
		t.Fatalf("expected program label in error, got %v", err)
	}
}

func TestContextLabel(t *testing.T) {
	cases := map[Context]string{
		{}:                         "<unknown>",
		{RunID: "r"}:               "r",
		{Program: "p"}:             "p",
		{RunID: "r", Program: "p"}: "p/r",
	}
	for ctx, want := range cases {
		if got := ctx.label(); got != want {
			t.Fatalf("label(%+v) = %q, want %q", ctx, got, want)
		}
	}
}
