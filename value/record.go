// Package value defines the runtime value model shared by compiled
// templates and the host: normalization of host data into records,
// string/number/boolean coercion, HTML escaping and member access.
//
// Template values are plain Go values of these kinds:
//
//	nil, bool, string, int/uint/float kinds  scalars
//	*Record                                  ordered keyed record
//	Callable or a Go func                    callable
//	anything else                            opaque object (passed through)
package value

import (
	"fmt"
	"strconv"
)

// Record is the uniform representation of ordered sequences and keyed
// records. Keys are int or string and keep insertion order.
type Record struct {
	keys  []any
	vals  []any
	index map[any]int
}

// NewRecord returns an empty record.
func NewRecord() *Record {
	return &Record{index: make(map[any]int)}
}

// List builds a record with int keys 0..n-1 from items.
func List(items ...any) *Record {
	r := NewRecord()
	for _, it := range items {
		r.Append(it)
	}
	return r
}

// normKey folds every integer kind to int so that 1, int64(1) and uint(1)
// address the same entry.
func normKey(k any) any {
	switch v := k.(type) {
	case int:
		return v
	case string:
		return v
	case nil:
		return ""
	case bool:
		if v {
			return 1
		}
		return 0
	}
	if n, ok := toInt(k); ok {
		return n
	}
	return fmt.Sprint(k)
}

// Set stores v under k, keeping the original position if k exists.
func (r *Record) Set(k, v any) {
	k = normKey(k)
	if i, ok := r.index[k]; ok {
		r.vals[i] = v
		return
	}
	r.index[k] = len(r.keys)
	r.keys = append(r.keys, k)
	r.vals = append(r.vals, v)
}

// Append stores v under the next integer key (one past the largest
// integer key in use, or 0).
func (r *Record) Append(v any) {
	next := 0
	for _, k := range r.keys {
		if n, ok := k.(int); ok && n >= next {
			next = n + 1
		}
	}
	r.Set(next, v)
}

// Get returns the value stored under k. String keys that spell an integer
// also match integer keys.
func (r *Record) Get(k any) (any, bool) {
	if r == nil {
		return nil, false
	}
	k = normKey(k)
	if i, ok := r.index[k]; ok {
		return r.vals[i], true
	}
	if s, ok := k.(string); ok {
		if n, err := strconv.Atoi(s); err == nil {
			if i, ok := r.index[n]; ok {
				return r.vals[i], true
			}
		}
	}
	return nil, false
}

// Has reports whether k is present.
func (r *Record) Has(k any) bool {
	_, ok := r.Get(k)
	return ok
}

// Len returns the number of entries.
func (r *Record) Len() int {
	if r == nil {
		return 0
	}
	return len(r.keys)
}

// Keys returns the keys in insertion order.
func (r *Record) Keys() []any {
	if r == nil {
		return nil
	}
	out := make([]any, len(r.keys))
	copy(out, r.keys)
	return out
}

// LastKey returns the key of the final entry.
func (r *Record) LastKey() (any, bool) {
	if r.Len() == 0 {
		return nil, false
	}
	return r.keys[len(r.keys)-1], true
}

// Each calls fn for every entry in order until fn returns false.
func (r *Record) Each(fn func(k, v any) bool) {
	if r == nil {
		return
	}
	for i, k := range r.keys {
		if !fn(k, r.vals[i]) {
			return
		}
	}
}

// Values returns the values in order.
func (r *Record) Values() []any {
	if r == nil {
		return nil
	}
	out := make([]any, len(r.vals))
	copy(out, r.vals)
	return out
}

// Map converts the record back into plain Go values: records with
// consecutive int keys from 0 become []any, others map[string]any.
func (r *Record) Map() any {
	if r == nil {
		return nil
	}
	sequential := true
	for i, k := range r.keys {
		if n, ok := k.(int); !ok || n != i {
			sequential = false
			break
		}
	}
	unwrap := func(v any) any {
		if rec, ok := v.(*Record); ok {
			return rec.Map()
		}
		return v
	}
	if sequential {
		out := make([]any, len(r.vals))
		for i, v := range r.vals {
			out[i] = unwrap(v)
		}
		return out
	}
	out := make(map[string]any, len(r.keys))
	for i, k := range r.keys {
		out[fmt.Sprint(k)] = unwrap(r.vals[i])
	}
	return out
}
