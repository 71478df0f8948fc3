package flagenv

import (
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// Function represents a callable registered against evaluators.
type Function func(args ...any) (any, error)

// FunctionRegistry stores custom functions. Lookups ignore case; Names
// reports the spelling used at registration.
type FunctionRegistry struct {
	mu        sync.RWMutex
	functions map[string]registeredFunction
}

type registeredFunction struct {
	name string
	fn   Function
}

// NewFunctionRegistry constructs an empty registry.
func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{
		functions: make(map[string]registeredFunction),
	}
}

// Register stores fn under name guarding against duplicates.
func (r *FunctionRegistry) Register(name string, fn Function) error {
	if fn == nil {
		return fmt.Errorf("flagenv: function %q is nil", name)
	}
	if name == "" {
		return fmt.Errorf("flagenv: function name must not be empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.functions == nil {
		r.functions = make(map[string]registeredFunction)
	}
	key := strings.ToLower(name)
	if _, exists := r.functions[key]; exists {
		return fmt.Errorf("flagenv: function %q already registered", name)
	}
	r.functions[key] = registeredFunction{name: name, fn: fn}
	return nil
}

// Clone returns a shallow copy of the registry.
func (r *FunctionRegistry) Clone() *FunctionRegistry {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	clone := &FunctionRegistry{
		functions: make(map[string]registeredFunction, len(r.functions)),
	}
	for key, entry := range r.functions {
		clone.functions[key] = entry
	}
	return clone
}

// Call executes the function registered for name.
func (r *FunctionRegistry) Call(name string, args ...any) (any, error) {
	if r == nil {
		return nil, fmt.Errorf("flagenv: function registry is nil")
	}
	r.mu.RLock()
	entry, ok := r.functions[strings.ToLower(name)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("flagenv: function %q not registered", name)
	}
	return entry.fn(args...)
}

// Names returns registered function names sorted alphabetically.
func (r *FunctionRegistry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.functions))
	for _, entry := range r.functions {
		names = append(names, entry.name)
	}
	sort.Strings(names)
	return names
}

// NewValidationFunctions returns a registry preloaded with helpers commonly
// needed by option rules:
//
//	oneOf(value, choices...)   value equals one of choices
//	matchRegex(value, pattern) value matches the regular expression
//	between(value, low, high)  low <= value <= high for numeric values
func NewValidationFunctions() *FunctionRegistry {
	registry := NewFunctionRegistry()
	_ = registry.Register("oneOf", oneOfFunction)
	_ = registry.Register("matchRegex", matchesFunction)
	_ = registry.Register("between", betweenFunction)
	return registry
}

func oneOfFunction(args ...any) (any, error) {
	if len(args) < 2 {
		return nil, fmt.Errorf("flagenv: oneOf requires a value and at least one choice")
	}
	want := fmt.Sprint(args[0])
	for _, choice := range args[1:] {
		if fmt.Sprint(choice) == want {
			return true, nil
		}
	}
	return false, nil
}

func matchesFunction(args ...any) (any, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("flagenv: matchRegex requires a value and a pattern")
	}
	pattern, ok := args[1].(string)
	if !ok {
		return nil, fmt.Errorf("flagenv: matchRegex pattern must be a string, got %T", args[1])
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("flagenv: matchRegex pattern: %w", err)
	}
	return re.MatchString(fmt.Sprint(args[0])), nil
}

func betweenFunction(args ...any) (any, error) {
	if len(args) != 3 {
		return nil, fmt.Errorf("flagenv: between requires a value, a low and a high bound")
	}
	nums := make([]float64, len(args))
	for i, arg := range args {
		n, ok := toFloat(arg)
		if !ok {
			return nil, fmt.Errorf("flagenv: between argument %d is not numeric: %T", i, arg)
		}
		nums[i] = n
	}
	return nums[1] <= nums[0] && nums[0] <= nums[2], nil
}

func toFloat(value any) (float64, bool) {
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	default:
		return 0, false
	}
}
