package flagenv

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Char is a single character value. It is distinct from int32 so that
// "x" converts to a rune rather than failing integer parsing.
type Char rune

func (c Char) String() string {
	return string(rune(c))
}

// MarshalText implements encoding.TextMarshaler.
func (c Char) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Char) UnmarshalText(text []byte) error {
	parsed, err := convertScalar[Char](string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Scalar enumerates the value types an option can convert tokens into.
type Scalar interface {
	string | bool | Char |
		int | int8 | int16 | int32 | int64 |
		uint | uint8 | uint16 | uint32 | uint64 |
		float32 | float64
}

// ListSeparator splits multi-value tokens.
const ListSeparator = ","

// Convert parses token into T using the canonical literal grammar of T.
func Convert[T Scalar](token string) (T, error) {
	value, err := convertScalar[T](token)
	if err != nil {
		return value, err
	}
	return value, nil
}

// ConvertList splits token on ListSeparator and converts every part. A single
// failing part fails the whole list.
func ConvertList[T Scalar](token string) ([]T, error) {
	values, err := convertList[T](token)
	if err != nil {
		return nil, err
	}
	return values, nil
}

func convertScalar[T Scalar](token string) (T, *Error) {
	var out T
	var err error
	switch p := any(&out).(type) {
	case *string:
		*p = token
	case *bool:
		*p, err = strconv.ParseBool(token)
	case *Char:
		r, size := utf8.DecodeRuneInString(token)
		if token == "" || size != len(token) || (r == utf8.RuneError && size == 1) {
			err = strconv.ErrSyntax
			break
		}
		*p = Char(r)
	case *int:
		*p, err = parseSigned[int](token, strconv.IntSize)
	case *int8:
		*p, err = parseSigned[int8](token, 8)
	case *int16:
		*p, err = parseSigned[int16](token, 16)
	case *int32:
		*p, err = parseSigned[int32](token, 32)
	case *int64:
		*p, err = parseSigned[int64](token, 64)
	case *uint:
		*p, err = parseUnsigned[uint](token, strconv.IntSize)
	case *uint8:
		*p, err = parseUnsigned[uint8](token, 8)
	case *uint16:
		*p, err = parseUnsigned[uint16](token, 16)
	case *uint32:
		*p, err = parseUnsigned[uint32](token, 32)
	case *uint64:
		*p, err = parseUnsigned[uint64](token, 64)
	case *float32:
		var f float64
		f, err = strconv.ParseFloat(token, 32)
		*p = float32(f)
	case *float64:
		*p, err = strconv.ParseFloat(token, 64)
	}
	if err != nil {
		var zero T
		return zero, conversionError(token, zero)
	}
	return out, nil
}

func convertList[T Scalar](token string) ([]T, *Error) {
	parts := strings.Split(token, ListSeparator)
	out := make([]T, 0, len(parts))
	for _, part := range parts {
		value, err := convertScalar[T](part)
		if err != nil {
			return nil, err
		}
		out = append(out, value)
	}
	return out, nil
}

func parseSigned[T int | int8 | int16 | int32 | int64](token string, bits int) (T, error) {
	v, err := strconv.ParseInt(token, 10, bits)
	return T(v), err
}

func parseUnsigned[T uint | uint8 | uint16 | uint32 | uint64](token string, bits int) (T, error) {
	v, err := strconv.ParseUint(token, 10, bits)
	return T(v), err
}

func conversionError(token string, target any) *Error {
	return Parsing("cannot convert %q to %s", token, typeName(target))
}

func typeName(value any) string {
	if _, ok := value.(Char); ok {
		return "char"
	}
	return fmt.Sprintf("%T", value)
}

// formatValue renders a scalar the way help text and schemas show defaults.
func formatValue(value any) string {
	if c, ok := value.(Char); ok {
		return c.String()
	}
	return fmt.Sprint(value)
}

// FormatValue renders a resolved value as a token Convert or ConvertList
// accepts: scalars in their literal form, slices joined with ListSeparator.
func FormatValue(value any) string {
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice {
		return formatValue(value)
	}
	parts := make([]string, rv.Len())
	for i := range parts {
		parts[i] = formatValue(rv.Index(i).Interface())
	}
	return strings.Join(parts, ListSeparator)
}

func formatValues[T Scalar](values []T) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = formatValue(v)
	}
	return strings.Join(parts, ListSeparator)
}
