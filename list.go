package flagenv

// ListOption resolves a comma-delimited list. Environment values overwrite the
// slot; argument occurrences append to whatever the slot already holds.
type ListOption[T Scalar] struct {
	attributes[[]T]
}

// NewList builds a multi-value option from decl.
func NewList[T Scalar](decl Declaration[[]T]) *ListOption[T] {
	var zero T
	return &ListOption[T]{
		attributes: newAttributes(decl, "[]"+typeName(zero), formatValues[T], cloneSlice[T]),
	}
}

// ResolveEnv overwrites the slot with the comma-split environment value.
func (o *ListOption[T]) ResolveEnv(env map[string]string) {
	raw, ok := o.lookupEnv(env)
	if !ok {
		return
	}
	values, err := convertList[T](raw)
	if err != nil {
		o.fail(err)
		return
	}
	o.store(values, SourceEnv)
}

// ResolveArgs appends the values of every long flag occurrence and then every
// short flag occurrence.
func (o *ListOption[T]) ResolveArgs(args []string) {
	for _, flag := range []string{o.ident.LongFlag(), o.ident.ShortFlag()} {
		for _, raw := range flagValues(args, flag) {
			o.argRaw = append(o.argRaw, raw)
			values, err := convertList[T](raw)
			if err != nil {
				o.fail(err)
				continue
			}
			o.store(append(o.value, values...), SourceArgs)
		}
	}
}

func cloneSlice[T any](values []T) []T {
	if values == nil {
		return nil
	}
	return append(make([]T, 0, len(values)), values...)
}
