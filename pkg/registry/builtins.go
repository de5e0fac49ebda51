package registry

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Builtins returns a registry holding the standard functions:
//
//	upper, lower, trim   string case and whitespace
//	concat               concatenation of the string forms of its arguments
//	join                 join(sep, items...)
//	sum                  sum of numeric arguments, as float64
//	len                  length of a string, slice or map
//	uuid                 a random UUID string
func Builtins() *Registry {
	r := NewRegistry()
	r.MustRegister("upper", strings.ToUpper)
	r.MustRegister("lower", strings.ToLower)
	r.MustRegister("trim", strings.TrimSpace)
	r.MustRegister("concat", func(parts ...any) string {
		var b strings.Builder
		for _, p := range parts {
			fmt.Fprint(&b, p)
		}
		return b.String()
	})
	r.MustRegister("join", func(sep string, items ...any) string {
		parts := make([]string, len(items))
		for i, it := range items {
			parts[i] = fmt.Sprint(it)
		}
		return strings.Join(parts, sep)
	})
	r.MustRegister("sum", func(nums ...float64) float64 {
		var total float64
		for _, n := range nums {
			total += n
		}
		return total
	})
	r.MustRegister("len", func(v any) (int, error) {
		switch x := v.(type) {
		case string:
			return len(x), nil
		case []any:
			return len(x), nil
		case map[string]any:
			return len(x), nil
		default:
			return 0, fmt.Errorf("len: unsupported type %T", v)
		}
	})
	r.MustRegister("uuid", uuid.NewString)
	return r
}
