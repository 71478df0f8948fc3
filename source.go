package flagenv

import "fmt"

// Source names where a resolved value came from. Higher priorities win when
// several sources supply the same option.
type Source int

const (
	SourceNone Source = iota
	SourceDefault
	SourceEnv
	SourceArgs
)

const (
	// Source priorities used in provenance traces. Higher numbers win.
	SourcePriorityDefault = 100
	SourcePriorityEnv     = 200
	SourcePriorityArgs    = 300
)

func (s Source) String() string {
	switch s {
	case SourceDefault:
		return "default"
	case SourceEnv:
		return "env"
	case SourceArgs:
		return "args"
	default:
		return "none"
	}
}

// Priority returns the precedence of the source.
func (s Source) Priority() int {
	switch s {
	case SourceDefault:
		return SourcePriorityDefault
	case SourceEnv:
		return SourcePriorityEnv
	case SourceArgs:
		return SourcePriorityArgs
	default:
		return 0
	}
}

// ParseSource converts a string representation into a Source.
func ParseSource(value string) (Source, error) {
	switch value {
	case "none", "":
		return SourceNone, nil
	case "default":
		return SourceDefault, nil
	case "env":
		return SourceEnv, nil
	case "args":
		return SourceArgs, nil
	}
	return SourceNone, fmt.Errorf("flagenv: unknown source %q", value)
}

// MarshalText implements encoding.TextMarshaler.
func (s Source) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Source) UnmarshalText(text []byte) error {
	parsed, err := ParseSource(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
