package value

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// ErrDivisionByZero is returned by Arith for '/' and '%' with a zero divisor.
var ErrDivisionByZero = errors.New("division by zero")

// Number is an int or float operand.
type Number struct {
	I       int
	F       float64
	IsFloat bool
}

// Int returns the integer part.
func (n Number) Int() int {
	if n.IsFloat {
		return int(n.F)
	}
	return n.I
}

// Float returns the value as float64.
func (n Number) Float() float64 {
	if n.IsFloat {
		return n.F
	}
	return float64(n.I)
}

// Value returns the number as int or float64.
func (n Number) Value() any {
	if n.IsFloat {
		return n.F
	}
	return n.I
}

// toInt converts integer kinds. Unsigned values above math.MaxInt do not
// fit and report false.
func toInt(v any) (int, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return int(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if u := rv.Uint(); u <= math.MaxInt {
			return int(u), true
		}
	}
	return 0, false
}

func toUint(v any) (uint64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint(), true
	}
	return 0, false
}

// ToNumber converts ints, floats, booleans, nil and numeric strings.
// Unsigned values that overflow int become floats.
func ToNumber(v any) (Number, bool) {
	switch x := v.(type) {
	case nil:
		return Number{}, true
	case bool:
		if x {
			return Number{I: 1}, true
		}
		return Number{}, true
	case float64:
		return Number{F: x, IsFloat: true}, true
	case float32:
		return Number{F: float64(x), IsFloat: true}, true
	case string:
		return parseNumeric(x)
	}
	if n, ok := toInt(v); ok {
		return Number{I: n}, true
	}
	if u, ok := toUint(v); ok {
		return Number{F: float64(u), IsFloat: true}, true
	}
	return Number{}, false
}

func parseNumeric(s string) (Number, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Number{}, false
	}
	if i, err := strconv.Atoi(s); err == nil {
		return Number{I: i}, true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return Number{F: f, IsFloat: true}, true
	}
	return Number{}, false
}

// IsNumeric reports whether v is a number or a numeric string.
func IsNumeric(v any) bool {
	switch v.(type) {
	case nil, bool:
		return false
	}
	_, ok := ToNumber(v)
	return ok
}

// ToString returns the string form of a scalar. Records, callables and
// opaque objects without a String method cannot be converted.
func ToString(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", nil
	case string:
		return x, nil
	case bool:
		if x {
			return "1", nil
		}
		return "", nil
	case float64:
		return formatFloat(x), nil
	case float32:
		return formatFloat(float64(x)), nil
	case fmt.Stringer:
		return x.String(), nil
	case error:
		return x.Error(), nil
	case *Record:
		return "", fmt.Errorf("record could not be converted to string")
	}
	if n, ok := toInt(v); ok {
		return strconv.Itoa(n), nil
	}
	if u, ok := toUint(v); ok {
		return strconv.FormatUint(u, 10), nil
	}
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.String {
		return rv.String(), nil
	}
	return "", fmt.Errorf("object of type %s could not be converted to string", TypeName(v))
}

func formatFloat(f float64) string {
	if math.IsInf(f, 1) {
		return "INF"
	}
	if math.IsInf(f, -1) {
		return "-INF"
	}
	if math.IsNaN(f) {
		return "NAN"
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Truthy reports the boolean value of v. Empty records are false.
func Truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != "" && x != "0"
	case *Record:
		return x.Len() > 0
	case float64:
		return x != 0
	case float32:
		return x != 0
	}
	if n, ok := toInt(v); ok {
		return n != 0
	}
	if _, ok := toUint(v); ok {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map:
		return rv.Len() > 0
	case reflect.Ptr, reflect.Interface, reflect.Func:
		return !rv.IsNil()
	}
	return true
}

// Len returns the element count of a record, slice, array, map or string.
func Len(v any) (int, bool) {
	switch x := v.(type) {
	case nil:
		return 0, true
	case *Record:
		return x.Len(), true
	case string:
		return len(x), true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len(), true
	}
	return 0, false
}

// Equal implements loose equality (==).
func Equal(a, b any) bool {
	if a == nil || b == nil {
		other := b
		if b == nil {
			other = a
		}
		return !Truthy(other) && !IsNumericString(other)
	}
	if ab, ok := a.(bool); ok {
		return ab == Truthy(b)
	}
	if bb, ok := b.(bool); ok {
		return bb == Truthy(a)
	}
	if IsNumeric(a) && IsNumeric(b) {
		na, _ := ToNumber(a)
		nb, _ := ToNumber(b)
		return na.Float() == nb.Float()
	}
	ra, aRec := a.(*Record)
	rb, bRec := b.(*Record)
	if aRec || bRec {
		if !aRec || !bRec || ra.Len() != rb.Len() {
			return false
		}
		equal := true
		ra.Each(func(k, v any) bool {
			w, ok := rb.Get(k)
			if !ok || !Equal(v, w) {
				equal = false
			}
			return equal
		})
		return equal
	}
	sa, errA := ToString(a)
	sb, errB := ToString(b)
	if errA != nil || errB != nil {
		return reflect.DeepEqual(a, b)
	}
	return sa == sb
}

// IsNumericString reports whether v is a string holding a number.
func IsNumericString(v any) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	_, ok = parseNumeric(s)
	return ok
}

// Identical implements strict equality (===): same kind and same value.
func Identical(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	na, aInt := toInt(a)
	nb, bInt := toInt(b)
	if aInt || bInt {
		return aInt && bInt && na == nb
	}
	switch x := a.(type) {
	case string:
		y, ok := b.(string)
		return ok && x == y
	case bool:
		y, ok := b.(bool)
		return ok && x == y
	case float64:
		y, ok := b.(float64)
		return ok && x == y
	case *Record:
		y, ok := b.(*Record)
		return ok && (x == y || Equal(x, y))
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if ta.Comparable() {
		return a == b
	}
	return reflect.DeepEqual(a, b)
}

// Compare orders a and b: numerically when both are numeric, otherwise by
// string form. Returns -1, 0 or 1.
func Compare(a, b any) (int, error) {
	if (IsNumeric(a) || a == nil || isBool(a)) && (IsNumeric(b) || b == nil || isBool(b)) {
		na, _ := ToNumber(a)
		nb, _ := ToNumber(b)
		switch {
		case na.Float() < nb.Float():
			return -1, nil
		case na.Float() > nb.Float():
			return 1, nil
		}
		return 0, nil
	}
	sa, err := ToString(a)
	if err != nil {
		return 0, err
	}
	sb, err := ToString(b)
	if err != nil {
		return 0, err
	}
	return strings.Compare(sa, sb), nil
}

func isBool(v any) bool {
	_, ok := v.(bool)
	return ok
}

// Arith applies one of + - * / % to numeric operands.
func Arith(op string, a, b any) (any, error) {
	na, okA := ToNumber(a)
	nb, okB := ToNumber(b)
	if !okA || !okB {
		bad := a
		if okA {
			bad = b
		}
		return nil, fmt.Errorf("unsupported operand types: %s %s %s (%s)", TypeName(a), op, TypeName(b), describe(bad))
	}
	if op == "%" {
		if nb.Int() == 0 {
			return nil, ErrDivisionByZero
		}
		return na.Int() % nb.Int(), nil
	}
	if op == "/" {
		if nb.Float() == 0 {
			return nil, ErrDivisionByZero
		}
		if !na.IsFloat && !nb.IsFloat && na.I%nb.I == 0 {
			return na.I / nb.I, nil
		}
		return na.Float() / nb.Float(), nil
	}
	if na.IsFloat || nb.IsFloat {
		x, y := na.Float(), nb.Float()
		switch op {
		case "+":
			return x + y, nil
		case "-":
			return x - y, nil
		case "*":
			return x * y, nil
		}
	} else {
		x, y := na.I, nb.I
		switch op {
		case "+":
			return x + y, nil
		case "-":
			return x - y, nil
		case "*":
			return x * y, nil
		}
	}
	return nil, fmt.Errorf("unknown arithmetic operator %q", op)
}

func describe(v any) string {
	if s, ok := v.(string); ok {
		return strconv.Quote(s) + " is not numeric"
	}
	return TypeName(v) + " is not numeric"
}
