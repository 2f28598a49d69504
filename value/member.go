package value

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"unicode"
)

// Member resolves obj.name. Lookup order: record key, map key, exported
// struct field (exact or capitalized), zero-argument method. The boolean
// is false when nothing matched.
func Member(obj any, name string) (any, bool) {
	switch o := obj.(type) {
	case nil:
		return nil, false
	case *Record:
		return o.Get(name)
	}
	rv := reflect.ValueOf(obj)
	if m, ok := findMethod(rv, name); ok && m.Type().NumIn() == 0 && m.Type().NumOut() > 0 {
		out, err := callReflect(m, nil)
		if err == nil {
			return out, true
		}
	}
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		mv := rv.MapIndex(reflect.ValueOf(name).Convert(rv.Type().Key()))
		if !mv.IsValid() {
			return nil, false
		}
		return Normalize(mv.Interface()), true
	case reflect.Struct:
		for _, candidate := range []string{name, exportName(name)} {
			f := rv.FieldByName(candidate)
			if f.IsValid() && f.CanInterface() {
				return Normalize(f.Interface()), true
			}
		}
	}
	return nil, false
}

// Index resolves obj[key] on records, slices, arrays, maps and strings.
func Index(obj any, key any) (any, bool) {
	switch o := obj.(type) {
	case nil:
		return nil, false
	case *Record:
		return o.Get(key)
	case string:
		n, ok := ToNumber(key)
		if !ok || n.Int() < 0 || n.Int() >= len(o) {
			return nil, false
		}
		return o[n.Int() : n.Int()+1], true
	}
	rv := reflect.ValueOf(obj)
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		n, ok := ToNumber(key)
		if !ok || n.Int() < 0 || n.Int() >= rv.Len() {
			return nil, false
		}
		return Normalize(rv.Index(n.Int()).Interface()), true
	case reflect.Map:
		kv, err := convertArg(key, rv.Type().Key())
		if err != nil {
			return nil, false
		}
		mv := rv.MapIndex(kv)
		if !mv.IsValid() {
			return nil, false
		}
		return Normalize(mv.Interface()), true
	case reflect.Struct:
		if s, ok := key.(string); ok {
			return Member(obj, s)
		}
	}
	return nil, false
}

// CallMethod invokes obj.name(args...). Records holding a callable under
// name are invoked directly; Go values are searched for a method named
// name or its capitalized form.
func CallMethod(obj any, name string, args []any) (any, error) {
	if rec, ok := obj.(*Record); ok {
		fn, found := rec.Get(name)
		if !found {
			return nil, fmt.Errorf("call to undefined method record.%s()", name)
		}
		return Call(fn, args)
	}
	if obj == nil {
		return nil, fmt.Errorf("call to a member function %s() on null", name)
	}
	rv := reflect.ValueOf(obj)
	if m, ok := findMethod(rv, name); ok {
		return callReflect(m, args)
	}
	if fn, ok := Member(obj, name); ok && IsCallable(fn) {
		return Call(fn, args)
	}
	return nil, fmt.Errorf("call to undefined method %s.%s()", TypeName(obj), name)
}

func findMethod(rv reflect.Value, name string) (reflect.Value, bool) {
	if !rv.IsValid() {
		return reflect.Value{}, false
	}
	for _, candidate := range []string{name, exportName(name)} {
		if m := rv.MethodByName(candidate); m.IsValid() {
			return m, true
		}
	}
	return reflect.Value{}, false
}

func exportName(name string) string {
	if name == "" {
		return name
	}
	r := []rune(name)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

// Iterable reports whether Iterate accepts v.
func Iterable(v any) bool {
	if _, ok := v.(*Record); ok {
		return true
	}
	if v == nil {
		return false
	}
	switch reflect.Indirect(reflect.ValueOf(v)).Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return true
	}
	return false
}

// Iterate calls fn for each key/value of a record, slice, array or map
// (maps in sorted key order). fn returns false to stop.
func Iterate(v any, fn func(k, v any) (bool, error)) error {
	var ferr error
	if rec, ok := v.(*Record); ok {
		rec.Each(func(k, val any) bool {
			var cont bool
			cont, ferr = fn(k, val)
			return cont && ferr == nil
		})
		return ferr
	}
	if !Iterable(v) {
		return fmt.Errorf("foreach() argument must be iterable, %s given", TypeName(v))
	}
	rv := reflect.Indirect(reflect.ValueOf(v))
	if rv.Kind() == reflect.Map {
		return Iterate(normalizeMap(rv), fn)
	}
	for i := 0; i < rv.Len(); i++ {
		cont, err := fn(i, Normalize(rv.Index(i).Interface()))
		if err != nil || !cont {
			return err
		}
	}
	return nil
}

// LastKey returns the final key of an ordered collection.
func LastKey(v any) (any, bool) {
	switch c := v.(type) {
	case *Record:
		return c.LastKey()
	case nil:
		return nil, false
	}
	rv := reflect.Indirect(reflect.ValueOf(v))
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Len() == 0 {
			return nil, false
		}
		return rv.Len() - 1, true
	case reflect.Map:
		return normalizeMap(rv).LastKey()
	case reflect.Struct:
		t := rv.Type()
		var names []string
		for i := 0; i < t.NumField(); i++ {
			if t.Field(i).IsExported() {
				names = append(names, t.Field(i).Name)
			}
		}
		if len(names) == 0 {
			return nil, false
		}
		return names[len(names)-1], true
	}
	return nil, false
}

// SortedKeys returns the string keys of m in sorted order.
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var htmlReplacer = strings.NewReplacer(
	"&", "&amp;",
	"\"", "&quot;",
	"'", "&#039;",
	"<", "&lt;",
	">", "&gt;",
)

// EscapeHTML escapes &, <, >, and both quote characters.
func EscapeHTML(s string) string {
	return htmlReplacer.Replace(s)
}
