package template

import (
	"errors"
	"strings"

	"github.com/rubiojr/tplc/compiler"
)

// execute runs src as a top-level render. Partial output of a failed
// render is discarded: the result is the fault's diagnostic.
func (e *Engine) execute(src *Source) (string, error) {
	out, err := e.run(src)
	if err == nil {
		return out, nil
	}
	var fault *Fault
	if !errors.As(err, &fault) {
		return "", err
	}
	e.log.Error("template fault", "template", fault.Template, "line", fault.Line, "msg", fault.Msg)
	return fault.Diagnostic(), fault
}

// run compiles src, binds the current variables and executes the
// program. Faults raised by nested includes surface unchanged.
func (e *Engine) run(src *Source) (string, error) {
	name := src.Name
	if src.Inline {
		name = "string"
	}
	prog, err := e.compile(name, src.Text, e.bindings.Names())
	if err != nil {
		return "", err
	}

	rc := e.bindRender(name, prog)
	var out strings.Builder
	err = prog.Execute(&compiler.Run{
		Out:     &out,
		Slots:   rc.Slots(),
		Prelude: rc.Prelude(),
		Notice: func(f *compiler.Fault) {
			e.log.Debug("template notice", "template", f.Template, "line", f.Line, "msg", f.Msg)
		},
	})
	if err != nil {
		return "", err
	}
	return out.String(), nil
}
