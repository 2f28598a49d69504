package value

import (
	"fmt"
	"reflect"
	"sort"
)

// Callable is implemented by values that templates can invoke.
type Callable interface {
	Call(args []any) (any, error)
}

// Func adapts a plain function to Callable.
type Func func(args []any) (any, error)

// Call implements Callable.
func (f Func) Call(args []any) (any, error) { return f(args) }

// Normalize converts host data into the template value model. Ordered
// sequences and keyed maps become *Record recursively (maps in sorted key
// order so renders are deterministic). Scalars, booleans, nil, callables,
// records and opaque objects pass through untouched.
func Normalize(v any) any {
	switch v.(type) {
	case nil, bool, string, *Record, Callable,
		int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return v
	case []byte:
		return string(v.([]byte))
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		r := NewRecord()
		for i := 0; i < rv.Len(); i++ {
			r.Set(i, Normalize(rv.Index(i).Interface()))
		}
		return r
	case reflect.Map:
		return normalizeMap(rv)
	}
	return v
}

func normalizeMap(rv reflect.Value) *Record {
	type entry struct {
		key any
		val reflect.Value
	}
	entries := make([]entry, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		entries = append(entries, entry{key: normKey(iter.Key().Interface()), val: iter.Value()})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		a, aInt := entries[i].key.(int)
		b, bInt := entries[j].key.(int)
		switch {
		case aInt && bInt:
			return a < b
		case aInt != bInt:
			return aInt
		}
		return fmt.Sprint(entries[i].key) < fmt.Sprint(entries[j].key)
	})
	r := NewRecord()
	for _, e := range entries {
		r.Set(e.key, Normalize(e.val.Interface()))
	}
	return r
}

// IsStructured reports whether v is a record or an opaque object, i.e.
// anything that is not a scalar, boolean or nil.
func IsStructured(v any) bool {
	switch v.(type) {
	case nil, bool, string,
		int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return false
	}
	return true
}

// IsCallable reports whether v can be invoked by a template.
func IsCallable(v any) bool {
	if _, ok := v.(Callable); ok {
		return true
	}
	return v != nil && reflect.TypeOf(v).Kind() == reflect.Func
}

// Call invokes v with args. Go funcs are called through reflection; a
// trailing error result is returned as the error.
func Call(v any, args []any) (any, error) {
	if c, ok := v.(Callable); ok {
		return c.Call(args)
	}
	if v == nil {
		return nil, fmt.Errorf("value of type null is not callable")
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Func {
		return nil, fmt.Errorf("value of type %s is not callable", TypeName(v))
	}
	return callReflect(rv, args)
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

func callReflect(fn reflect.Value, args []any) (any, error) {
	ft := fn.Type()
	in := make([]reflect.Value, 0, len(args))
	fixed := ft.NumIn()
	if ft.IsVariadic() {
		fixed--
	}
	if len(args) < fixed || (!ft.IsVariadic() && len(args) > fixed) {
		return nil, fmt.Errorf("expects %d argument(s), got %d", fixed, len(args))
	}
	for i, a := range args {
		var want reflect.Type
		if i < fixed {
			want = ft.In(i)
		} else {
			want = ft.In(ft.NumIn() - 1).Elem()
		}
		av, err := convertArg(a, want)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
		in = append(in, av)
	}
	out := fn.Call(in)
	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		if ft.Out(0) == errorType {
			err, _ := out[0].Interface().(error)
			return nil, err
		}
		return Normalize(out[0].Interface()), nil
	default:
		last := out[len(out)-1]
		if ft.Out(len(out)-1) == errorType && !last.IsNil() {
			return nil, last.Interface().(error)
		}
		return Normalize(out[0].Interface()), nil
	}
}

func convertArg(a any, want reflect.Type) (reflect.Value, error) {
	if a == nil {
		return reflect.Zero(want), nil
	}
	if want.Kind() == reflect.Interface {
		av := reflect.ValueOf(a)
		if av.Type().Implements(want) {
			return av, nil
		}
		return reflect.Value{}, fmt.Errorf("cannot use %s as %s", TypeName(a), want)
	}
	switch want.Kind() {
	case reflect.String:
		s, err := ToString(a)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(s).Convert(want), nil
	case reflect.Bool:
		return reflect.ValueOf(Truthy(a)).Convert(want), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, ok := ToNumber(a)
		if !ok {
			return reflect.Value{}, fmt.Errorf("cannot use %s as %s", TypeName(a), want)
		}
		return reflect.ValueOf(n.Int()).Convert(want), nil
	case reflect.Float32, reflect.Float64:
		n, ok := ToNumber(a)
		if !ok {
			return reflect.Value{}, fmt.Errorf("cannot use %s as %s", TypeName(a), want)
		}
		return reflect.ValueOf(n.Float()).Convert(want), nil
	}
	av := reflect.ValueOf(a)
	if av.Type().AssignableTo(want) {
		return av, nil
	}
	if rec, ok := a.(*Record); ok {
		plain := reflect.ValueOf(rec.Map())
		if plain.Type().AssignableTo(want) {
			return plain, nil
		}
	}
	if av.Type().ConvertibleTo(want) {
		return av.Convert(want), nil
	}
	return reflect.Value{}, fmt.Errorf("cannot use %s as %s", TypeName(a), want)
}

// TypeName returns a short, template-facing name for the kind of v.
func TypeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "bool"
	case string:
		return "string"
	case *Record:
		return "record"
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return "int"
	case float32, float64:
		return "float"
	}
	if IsCallable(v) {
		return "callable"
	}
	return reflect.TypeOf(v).String()
}
