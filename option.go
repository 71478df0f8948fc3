package flagenv

// Option is a single declared option. The set of implementations is closed:
// *ScalarOption[T] and *ListOption[T].
type Option interface {
	Identity() Identity
	ResolveEnv(env map[string]string)
	ResolveArgs(args []string)
	Evaluate() error
	Help() string

	resolution() Resolution
	describe() FieldDescriptor
}

var (
	_ Option = (*ScalarOption[string])(nil)
	_ Option = (*ListOption[string])(nil)
)

// flagValues returns the token following every occurrence of flag. A token
// consumed as a value is never read as a flag. A trailing flag with no value
// is ignored.
func flagValues(args []string, flag string) []string {
	if flag == "" {
		return nil
	}
	var values []string
	for i := 0; i < len(args); i++ {
		if args[i] != flag {
			continue
		}
		if i+1 < len(args) {
			values = append(values, args[i+1])
			i++
		}
	}
	return values
}
