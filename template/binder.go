package template

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/rubiojr/tplc/compiler"
	"github.com/rubiojr/tplc/modules"
	"github.com/rubiojr/tplc/preprocess"
	"github.com/rubiojr/tplc/value"
)

// RenderContext is the state of one render: the slots its prelude reads
// from and the prelude itself. Slot keys carry the render ID, so two
// renders never share a key even when they bind the same names.
type RenderContext struct {
	ID       string
	Template string

	slots   compiler.MapSlots
	prelude []compiler.Bind
	seq     int
}

func newRenderContext(template string) *RenderContext {
	return &RenderContext{
		ID:       uuid.NewString(),
		Template: template,
		slots:    compiler.MapSlots{},
	}
}

// Bind installs v in a fresh slot and appends a prelude instruction
// binding the local name to it. Later binds of the same name win.
func (rc *RenderContext) Bind(name string, v any) string {
	rc.seq++
	key := fmt.Sprintf("%s:%d:%s", rc.ID, rc.seq, name)
	rc.slots[key] = v
	rc.prelude = append(rc.prelude, compiler.Bind{Name: name, Slot: key})
	return key
}

// Prelude returns the bind instructions in installation order.
func (rc *RenderContext) Prelude() []compiler.Bind { return rc.prelude }

// Slots returns the slot table backing the prelude.
func (rc *RenderContext) Slots() compiler.SlotTable { return rc.slots }

// bindRender prepares the context for one execution of prog: globals,
// then the assigned variables, then a forwarding callable for every
// pseudo-function the template uses. The assigned set moves to the
// carryover consumed by include() calls without variables.
func (e *Engine) bindRender(name string, prog *compiler.Program) *RenderContext {
	rc := newRenderContext(name)

	e.mu.Lock()
	for _, k := range value.SortedKeys(e.globals) {
		rc.Bind(k, e.globals[k])
	}
	for _, k := range value.SortedKeys(e.vars) {
		rc.Bind(k, e.vars[k])
	}
	e.last = e.vars
	e.vars = make(map[string]any)
	e.mu.Unlock()

	for _, fn := range prog.Pseudo {
		b, ok := e.bindings.Get(fn)
		if !ok {
			continue
		}
		rc.Bind(preprocess.TempName(fn), forward(b))
	}
	return rc
}

// forward wraps a binding in a callable that receives the call-site
// arguments.
func forward(b *modules.Binding) value.Func {
	return func(args []any) (any, error) {
		return b.Call(args)
	}
}
