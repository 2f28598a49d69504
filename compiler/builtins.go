package compiler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rubiojr/tplc/value"
)

type builtinFn func(f *frame, args []any) (any, error)

// builtins are available to every template without registration. isset
// and empty are compiled separately since they evaluate quietly.
var builtins = map[string]builtinFn{
	"count":            builtinCount,
	"trim":             builtinTrim,
	"strtolower":       stringFunc("strtolower", strings.ToLower),
	"strtoupper":       stringFunc("strtoupper", strings.ToUpper),
	"implode":          builtinImplode,
	"in_array":         builtinInArray,
	"nl2br":            stringFunc("nl2br", nl2br),
	"htmlspecialchars": stringFunc("htmlspecialchars", value.EscapeHTML),
}

// Builtins returns the names of the built-in functions, sorted.
func Builtins() []string {
	names := []string{"isset", "empty"}
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsBuiltin reports whether name is a built-in function.
func IsBuiltin(name string) bool {
	name = strings.ToLower(name)
	_, ok := builtins[name]
	return ok || name == "isset" || name == "empty"
}

func arity(name string, args []any, min, max int) error {
	if len(args) < min {
		return fmt.Errorf("%s() expects at least %d argument(s), %d given", name, min, len(args))
	}
	if max >= 0 && len(args) > max {
		return fmt.Errorf("%s() expects at most %d argument(s), %d given", name, max, len(args))
	}
	return nil
}

func builtinCount(f *frame, args []any) (any, error) {
	if err := arity("count", args, 1, 1); err != nil {
		return nil, err
	}
	if _, isString := args[0].(string); !isString && args[0] != nil {
		if n, ok := value.Len(args[0]); ok {
			return n, nil
		}
	}
	return nil, fmt.Errorf("count(): Argument #1 ($value) must be of type Countable|array, %s given", value.TypeName(args[0]))
}

func builtinTrim(f *frame, args []any) (any, error) {
	if err := arity("trim", args, 1, 2); err != nil {
		return nil, err
	}
	s, err := f.toString(args[0])
	if err != nil {
		return nil, err
	}
	if len(args) == 2 {
		chars, err := f.toString(args[1])
		if err != nil {
			return nil, err
		}
		return strings.Trim(s, chars), nil
	}
	return strings.Trim(s, " \t\n\r\x00\x0B"), nil
}

func stringFunc(name string, fn func(string) string) builtinFn {
	return func(f *frame, args []any) (any, error) {
		if err := arity(name, args, 1, 1); err != nil {
			return nil, err
		}
		s, err := f.toString(args[0])
		if err != nil {
			return nil, err
		}
		return fn(s), nil
	}
}

func nl2br(s string) string {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\r':
			sb.WriteString("<br />\r")
			if i+1 < len(s) && s[i+1] == '\n' {
				sb.WriteByte('\n')
				i++
			}
		case '\n':
			sb.WriteString("<br />\n")
		default:
			sb.WriteByte(s[i])
		}
	}
	return sb.String()
}

// builtinImplode accepts implode(glue, pieces) and implode(pieces[, glue]).
func builtinImplode(f *frame, args []any) (any, error) {
	if err := arity("implode", args, 1, 2); err != nil {
		return nil, err
	}
	var glue, pieces any = "", nil
	switch {
	case len(args) == 1:
		pieces = args[0]
	case value.Iterable(args[0]):
		pieces, glue = args[0], args[1]
	default:
		glue, pieces = args[0], args[1]
	}
	if !value.Iterable(pieces) {
		return nil, fmt.Errorf("implode(): Argument must be of type array, %s given", value.TypeName(pieces))
	}
	sep, err := f.toString(glue)
	if err != nil {
		return nil, err
	}
	var parts []string
	err = value.Iterate(pieces, func(_, v any) (bool, error) {
		s, err := f.toString(v)
		if err != nil {
			return false, err
		}
		parts = append(parts, s)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return strings.Join(parts, sep), nil
}

func builtinInArray(f *frame, args []any) (any, error) {
	if err := arity("in_array", args, 2, 3); err != nil {
		return nil, err
	}
	if !value.Iterable(args[1]) {
		return nil, fmt.Errorf("in_array(): Argument #2 ($haystack) must be of type array, %s given", value.TypeName(args[1]))
	}
	strict := len(args) == 3 && value.Truthy(args[2])
	found := false
	err := value.Iterate(args[1], func(_, v any) (bool, error) {
		if strict {
			found = value.Identical(args[0], v)
		} else {
			found = value.Equal(args[0], v)
		}
		return !found, nil
	})
	return found, err
}
