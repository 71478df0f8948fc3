package flagenv

import (
	"strings"
)

// attributes holds the state shared by every option variant: the declaration,
// the output slot and what the parse phases observed.
type attributes[V any] struct {
	decl    Declaration[V]
	ident   Identity
	declErr *Error

	value  V
	set    bool
	source Source

	parseErr  *Error
	envRaw    []string
	argRaw    []string
	defaulted bool

	typeName string
	format   func(V) string
	clone    func(V) V
}

func newAttributes[V any](decl Declaration[V], typeName string, format func(V) string, clone func(V) V) attributes[V] {
	decl.Long = strings.TrimSpace(decl.Long)
	decl.Env = strings.TrimSpace(decl.Env)
	return attributes[V]{
		decl:     decl,
		ident:    decl.identity(),
		declErr:  decl.check(),
		typeName: typeName,
		format:   format,
		clone:    clone,
	}
}

// Identity returns the option's identifier set.
func (a *attributes[V]) Identity() Identity {
	return a.ident
}

// Description returns the declared help text.
func (a *attributes[V]) Description() string {
	return a.decl.Description
}

// Get returns the slot contents and whether the slot holds a value.
func (a *attributes[V]) Get() (V, bool) {
	return a.value, a.set
}

// Source reports which source wrote the slot.
func (a *attributes[V]) Source() Source {
	return a.source
}

func (a *attributes[V]) store(value V, source Source) {
	a.value = value
	a.set = true
	a.source = source
}

// fail keeps the first conversion failure so Evaluate can report it.
func (a *attributes[V]) fail(err *Error) {
	if a.parseErr == nil {
		a.parseErr = err
	}
}

func (a *attributes[V]) lookupEnv(env map[string]string) (string, bool) {
	if a.ident.Env == "" {
		return "", false
	}
	raw, ok := env[a.ident.Env]
	if ok {
		a.envRaw = append(a.envRaw, raw)
	}
	return raw, ok
}

// Evaluate enforces identifier, conversion, required, default and validator
// rules, in that order.
func (a *attributes[V]) Evaluate() error {
	if a.ident.IsZero() {
		return Parsing("no identifier set")
	}
	if a.declErr != nil {
		return a.declErr
	}
	if a.parseErr != nil {
		return a.parseErr
	}
	if !a.set {
		if a.decl.Required {
			return Validation("%s is required", a.ident)
		}
		if a.decl.Default != nil {
			a.store(a.clone(*a.decl.Default), SourceDefault)
			a.defaulted = true
		}
	}
	if a.set && a.decl.Validate != nil {
		if err := a.decl.Validate(a.value); err != nil {
			return wrapValidatorError(a.ident, err)
		}
	}
	return nil
}

// Help renders the option's line in the usage text.
func (a *attributes[V]) Help() string {
	var b strings.Builder
	if a.ident.Env != "" {
		b.WriteString("ENV:")
		b.WriteString(a.ident.Env)
		b.WriteString(" ")
	}
	if flags := a.ident.Flags(); len(flags) > 0 {
		b.WriteString("ARGS:")
		b.WriteString(strings.Join(flags, ","))
	}
	if a.decl.Required {
		b.WriteString("  Required")
	} else if a.decl.Default != nil {
		b.WriteString("  Default: ")
		b.WriteString(a.format(*a.decl.Default))
	}
	b.WriteString(" - ")
	b.WriteString(a.decl.Description)
	return b.String()
}

func (a *attributes[V]) trace() Trace {
	return Trace{
		Option: a.ident.Name(),
		Layers: []Provenance{
			{
				Source:   SourceArgs,
				Priority: SourcePriorityArgs,
				Raw:      append([]string(nil), a.argRaw...),
				Found:    len(a.argRaw) > 0,
			},
			{
				Source:   SourceEnv,
				Priority: SourcePriorityEnv,
				Raw:      append([]string(nil), a.envRaw...),
				Found:    len(a.envRaw) > 0,
			},
			{
				Source:   SourceDefault,
				Priority: SourcePriorityDefault,
				Found:    a.defaulted,
			},
		},
	}
}

func (a *attributes[V]) resolution() Resolution {
	res := Resolution{
		Name:     a.ident.Name(),
		Identity: a.ident,
		Set:      a.set,
		Source:   a.source,
		Trace:    a.trace(),
	}
	if a.set {
		res.Value = a.clone(a.value)
	}
	return res
}

func (a *attributes[V]) describe() FieldDescriptor {
	fd := FieldDescriptor{
		Path:        a.ident.Name(),
		Type:        a.typeName,
		Env:         a.ident.Env,
		Flags:       a.ident.Flags(),
		Required:    a.decl.Required,
		Description: a.decl.Description,
	}
	if a.decl.Default != nil && !a.decl.Required {
		fd.Default = a.clone(*a.decl.Default)
	}
	return fd
}
