// Package modules holds the pseudo-function binding table: the host
// callables a template can invoke with the short {name(args)} syntax.
package modules

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/rubiojr/tplc/preprocess"
	"github.com/rubiojr/tplc/scanner"
	"github.com/rubiojr/tplc/value"
)

// ErrInvalidBinding is returned when a binding is rejected at registration.
var ErrInvalidBinding = errors.New("invalid binding")

// Kind selects how a binding is invoked.
type Kind int

const (
	// KindFunc bindings call Fn directly.
	KindFunc Kind = iota
	// KindMethod bindings invoke Method on Receiver.
	KindMethod
)

func (k Kind) String() string {
	if k == KindMethod {
		return "method"
	}
	return "func"
}

// Variadic as MaxArgs accepts any number of arguments beyond MinArgs.
const Variadic = -1

// Binding describes one pseudo-function.
type Binding struct {
	// Name is the template-facing name (e.g. "shorten").
	Name string
	Kind Kind
	// MinArgs and MaxArgs bound the accepted argument count. MaxArgs may
	// be Variadic.
	MinArgs int
	MaxArgs int
	// Fn is the implementation of a KindFunc binding.
	Fn value.Func
	// Receiver and Method name the implementation of a KindMethod
	// binding. Method is resolved like a template method call, so
	// "format" finds Format.
	Receiver any
	Method   string
	// Doc is a one-line usage summary shown by `tplc funcs`.
	Doc string
}

// Arity renders the accepted argument count: "1", "1..3" or "2+".
func (b *Binding) Arity() string {
	switch {
	case b.MaxArgs == Variadic:
		return fmt.Sprintf("%d+", b.MinArgs)
	case b.MinArgs == b.MaxArgs:
		return fmt.Sprint(b.MinArgs)
	}
	return fmt.Sprintf("%d..%d", b.MinArgs, b.MaxArgs)
}

// Call checks the argument count and dispatches to the implementation.
func (b *Binding) Call(args []any) (any, error) {
	if len(args) < b.MinArgs || (b.MaxArgs != Variadic && len(args) > b.MaxArgs) {
		return nil, fmt.Errorf("%s() expects %s argument(s), %d given", b.Name, b.Arity(), len(args))
	}
	if b.Kind == KindMethod {
		return value.CallMethod(b.Receiver, b.Method, args)
	}
	return b.Fn(args)
}

func (b *Binding) validate() error {
	if !scanner.IsIdent(b.Name) {
		return fmt.Errorf("%w: %q is not an identifier", ErrInvalidBinding, b.Name)
	}
	if preprocess.Keywords[strings.ToLower(b.Name)] {
		return fmt.Errorf("%w: %q is a reserved word", ErrInvalidBinding, b.Name)
	}
	if b.MinArgs < 0 || (b.MaxArgs != Variadic && b.MaxArgs < b.MinArgs) {
		return fmt.Errorf("%w: %s: arity %d..%d", ErrInvalidBinding, b.Name, b.MinArgs, b.MaxArgs)
	}
	switch b.Kind {
	case KindFunc:
		if b.Fn == nil {
			return fmt.Errorf("%w: %s: missing func", ErrInvalidBinding, b.Name)
		}
	case KindMethod:
		if b.Receiver == nil || b.Method == "" {
			return fmt.Errorf("%w: %s: missing receiver or method", ErrInvalidBinding, b.Name)
		}
	default:
		return fmt.Errorf("%w: %s: unknown kind %d", ErrInvalidBinding, b.Name, b.Kind)
	}
	return nil
}

// Table is a set of bindings keyed by name. It is safe for concurrent use.
type Table struct {
	mu       sync.RWMutex
	bindings map[string]*Binding
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{bindings: make(map[string]*Binding)}
}

// Register validates b and adds it, replacing any binding with the same
// name.
func (t *Table) Register(b Binding) error {
	if err := b.validate(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.bindings[b.Name] = &b
	return nil
}

// Get returns the binding registered under name.
func (t *Table) Get(name string) (*Binding, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	b, ok := t.bindings[name]
	return b, ok
}

// Has reports whether name is registered.
func (t *Table) Has(name string) bool {
	_, ok := t.Get(name)
	return ok
}

// Names returns sorted names of all registered bindings.
func (t *Table) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	names := make([]string, 0, len(t.bindings))
	for name := range t.bindings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
