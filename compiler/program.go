package compiler

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rubiojr/tplc/ast"
	"github.com/rubiojr/tplc/preprocess"
)

// Program is a compiled template: a closure tree generated from the AST.
// A Program holds no render state and may be executed concurrently.
type Program struct {
	Name   string
	Tree   *ast.Template
	Code   string   // listing of the compiled form, one statement per line
	Pseudo []string // pseudo-functions referenced by the template

	lines []string // original source lines
	body  execFn
	funcs map[string]*function
}

// SlotTable resolves the render-scoped slots a prelude reads from.
type SlotTable interface {
	Slot(key string) (any, bool)
}

// Bind is a prelude instruction: the local variable Name takes the value
// stored under Slot.
type Bind struct {
	Name string
	Slot string
}

// Run carries everything one execution needs.
type Run struct {
	Out     io.Writer
	Slots   SlotTable
	Prelude []Bind
	// Notice receives informational diagnostics; nil ignores them.
	Notice func(*Fault)
}

// Execute binds the prelude into a fresh local scope and runs the body.
// Panics raised by host callables are recovered and returned as faults.
// The returned error, if any, is a fatal *Fault.
func (p *Program) Execute(r *Run) (err error) {
	f := &frame{prog: p, run: r, out: r.Out, vars: make(map[string]any, len(r.Prelude))}
	defer func() {
		if rec := recover(); rec != nil {
			err = f.fault(fmt.Errorf("%v", rec))
		}
	}()
	for _, b := range r.Prelude {
		v, ok := r.Slots.Slot(b.Slot)
		if !ok {
			return f.fatalf("unbound variable slot %s for $%s", b.Slot, b.Name)
		}
		f.vars[b.Name] = v
	}
	err = p.body(f)
	var ret *returnSignal
	if errors.As(err, &ret) {
		return nil
	}
	if errors.Is(err, errBreak) || errors.Is(err, errContinue) {
		return f.fatalf("cannot break out of template")
	}
	return err
}

var (
	errBreak    = errors.New("break")
	errContinue = errors.New("continue")
)

type returnSignal struct{ val any }

func (*returnSignal) Error() string { return "return" }

type (
	execFn func(*frame) error
	evalFn func(*frame) (any, error)
)

// frame is the local scope of one fragment or template function call.
type frame struct {
	prog  *Program
	run   *Run
	out   io.Writer
	vars  map[string]any
	line  int
	code  string
	quiet int
}

func (f *frame) at(line int, code string) {
	f.line, f.code = line, code
}

func (f *frame) newFault(level Level, msg string, cause error) *Fault {
	return &Fault{
		Level:    level,
		Msg:      msg,
		Template: f.prog.Name,
		Line:     f.line,
		Source:   sourceLine(f.prog.lines, f.line),
		Code:     f.code,
		Err:      cause,
	}
}

// fault converts err into a fatal *Fault at the current position unless
// it already is one or is a control-flow signal.
func (f *frame) fault(err error) error {
	if err == nil {
		return nil
	}
	var flt *Fault
	if errors.As(err, &flt) {
		return err
	}
	var ret *returnSignal
	if errors.As(err, &ret) || errors.Is(err, errBreak) || errors.Is(err, errContinue) {
		return err
	}
	return f.newFault(Fatal, err.Error(), err)
}

func (f *frame) fatalf(format string, args ...any) error {
	return f.newFault(Fatal, fmt.Sprintf(format, args...), nil)
}

func (f *frame) notice(format string, args ...any) {
	if f.quiet > 0 || f.run.Notice == nil {
		return
	}
	f.run.Notice(f.newFault(Notice, fmt.Sprintf(format, args...), nil))
}

// pseudoVars returns the pseudo-function temporaries visible in f, used to
// seed the scope of template function calls.
func (f *frame) pseudoVars() map[string]any {
	vars := make(map[string]any)
	for k, v := range f.vars {
		if strings.HasPrefix(k, preprocess.TempPrefix) {
			vars[k] = v
		}
	}
	return vars
}

// MapSlots is a SlotTable backed by a map.
type MapSlots map[string]any

// Slot implements SlotTable.
func (m MapSlots) Slot(key string) (any, bool) {
	v, ok := m[key]
	return v, ok
}
