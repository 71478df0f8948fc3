package flagenv

import (
	"errors"
	"fmt"
)

// Kind classifies resolution failures.
type Kind int

const (
	// KindParsing covers malformed tokens and declarations without a usable
	// identifier.
	KindParsing Kind = iota + 1
	// KindValidation covers missing required values and validator rejections.
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindParsing:
		return "parsing"
	case KindValidation:
		return "validation"
	default:
		return "unknown"
	}
}

var (
	// ErrParsing matches any *Error of KindParsing via errors.Is.
	ErrParsing = errors.New("parsing error")
	// ErrValidation matches any *Error of KindValidation via errors.Is.
	ErrValidation = errors.New("validation error")
	// ErrConsumed is returned when Parse is invoked twice on the same Compose.
	ErrConsumed = errors.New("flagenv: compose already parsed")
)

// Error is the error surface of a resolution run.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// Parsing builds a KindParsing error.
func Parsing(format string, args ...any) *Error {
	return &Error{Kind: KindParsing, Message: fmt.Sprintf(format, args...)}
}

// Validation builds a KindValidation error.
func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch e.Kind {
	case KindParsing:
		return "Parsing error: " + e.Message
	case KindValidation:
		return "Validation error: " + e.Message
	default:
		return e.Message
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is lets errors.Is match the ErrParsing and ErrValidation sentinels.
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	switch target {
	case ErrParsing:
		return e.Kind == KindParsing
	case ErrValidation:
		return e.Kind == KindValidation
	}
	return false
}

func wrapValidatorError(ident Identity, err error) error {
	if err == nil {
		return nil
	}
	return &Error{
		Kind:    KindValidation,
		Message: fmt.Sprintf("%s failed validation: %v", ident, err),
		Err:     err,
	}
}
