package flagenv

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Validator inspects a resolved value. A non-nil error rejects the value.
type Validator[V any] func(V) error

// Declaration describes one option. V is the option's value type: T for a
// Scalar[T] and []T for a List[T].
type Declaration[V any] struct {
	Description string
	Env         string
	Short       rune
	Long        string
	Required    bool
	Default     *V
	Validate    Validator[V]
}

// Value returns a pointer to v, for Declaration.Default literals.
func Value[V any](v V) *V {
	return &v
}

// Identity names an option across its sources.
type Identity struct {
	Env   string
	Short rune
	Long  string
}

// IsZero reports whether no identifier is set.
func (id Identity) IsZero() bool {
	return id.Env == "" && id.Short == 0 && id.Long == ""
}

// Name is the key used in results and schemas: the long flag, the env key or
// the short flag, whichever is set first.
func (id Identity) Name() string {
	switch {
	case id.Long != "":
		return id.Long
	case id.Env != "":
		return id.Env
	case id.Short != 0:
		return string(id.Short)
	}
	return ""
}

// ShortFlag returns "-s" or "".
func (id Identity) ShortFlag() string {
	if id.Short == 0 {
		return ""
	}
	return "-" + string(id.Short)
}

// LongFlag returns "--long" or "".
func (id Identity) LongFlag() string {
	if id.Long == "" {
		return ""
	}
	return "--" + id.Long
}

// Flags returns the configured argument forms, short first.
func (id Identity) Flags() []string {
	var flags []string
	if f := id.ShortFlag(); f != "" {
		flags = append(flags, f)
	}
	if f := id.LongFlag(); f != "" {
		flags = append(flags, f)
	}
	return flags
}

// String renders the identifier set used in error messages, e.g.
// "{PORT, -p, --port}".
func (id Identity) String() string {
	parts := make([]string, 0, 3)
	if id.Env != "" {
		parts = append(parts, id.Env)
	}
	parts = append(parts, id.Flags()...)
	return "{" + strings.Join(parts, ", ") + "}"
}

func (d Declaration[V]) identity() Identity {
	return Identity{Env: d.Env, Short: d.Short, Long: d.Long}
}

// check reports a malformed identifier. Missing identifiers are not reported
// here; Evaluate handles them separately.
func (d Declaration[V]) check() *Error {
	if d.Long != "" {
		if strings.HasPrefix(d.Long, "-") {
			return Parsing("long flag %q must not start with '-'", d.Long)
		}
		if strings.ContainsFunc(d.Long, unicode.IsSpace) || strings.Contains(d.Long, "=") {
			return Parsing("long flag %q must not contain whitespace or '='", d.Long)
		}
	}
	if d.Short != 0 && (d.Short == '-' || unicode.IsSpace(d.Short) || d.Short == utf8.RuneError || !utf8.ValidRune(d.Short)) {
		return Parsing("short flag %q is not usable", d.Short)
	}
	if d.Env != "" && (strings.ContainsFunc(d.Env, unicode.IsSpace) || strings.Contains(d.Env, "=")) {
		return Parsing("env key %q must not contain whitespace or '='", d.Env)
	}
	return nil
}
