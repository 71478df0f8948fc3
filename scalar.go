package flagenv

// ScalarOption resolves a single value. Environment values overwrite the slot
// and every matching argument overwrites it again, so the last one wins.
type ScalarOption[T Scalar] struct {
	attributes[T]
}

// NewScalar builds a scalar option from decl.
func NewScalar[T Scalar](decl Declaration[T]) *ScalarOption[T] {
	var zero T
	return &ScalarOption[T]{
		attributes: newAttributes(decl, typeName(zero), formatScalar[T], sameValue[T]),
	}
}

// NewString is NewScalar for string options.
func NewString(decl Declaration[string]) *ScalarOption[string] {
	return NewScalar(decl)
}

// ResolveEnv overwrites the slot with the converted environment value.
func (o *ScalarOption[T]) ResolveEnv(env map[string]string) {
	raw, ok := o.lookupEnv(env)
	if !ok {
		return
	}
	value, err := convertScalar[T](raw)
	if err != nil {
		o.fail(err)
		return
	}
	o.store(value, SourceEnv)
}

// ResolveArgs scans the long flag and then the short flag. Each match
// overwrites the slot.
func (o *ScalarOption[T]) ResolveArgs(args []string) {
	for _, flag := range []string{o.ident.LongFlag(), o.ident.ShortFlag()} {
		for _, raw := range flagValues(args, flag) {
			o.argRaw = append(o.argRaw, raw)
			value, err := convertScalar[T](raw)
			if err != nil {
				o.fail(err)
				continue
			}
			o.store(value, SourceArgs)
		}
	}
}

func formatScalar[T Scalar](v T) string {
	return formatValue(v)
}

func sameValue[V any](v V) V {
	return v
}
