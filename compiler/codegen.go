package compiler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rubiojr/tplc/ast"
	"github.com/rubiojr/tplc/value"
)

// function is a compiled {function} declaration.
type function struct {
	decl     *ast.FuncStmt
	defaults []evalFn
	body     execFn
}

type generator struct {
	prog    *Program
	listing strings.Builder
	depth   int
}

// generate builds the closure tree for tree. Function declarations are
// compiled first so calls may precede them in the source.
func generate(tree *ast.Template, lines []string) *Program {
	g := &generator{prog: &Program{Name: tree.Name, Tree: tree, lines: lines, funcs: make(map[string]*function)}}
	for _, fn := range tree.Funcs {
		g.emit(fn.SourceLine, ast.Code(fn))
		g.depth++
		compiled := &function{decl: fn, body: g.block(fn.Body)}
		for _, p := range fn.Params {
			var d evalFn
			if p.Default != nil {
				d = g.expr(p.Default)
			}
			compiled.defaults = append(compiled.defaults, d)
		}
		g.depth--
		g.emit(0, "}")
		g.prog.funcs[fn.Name] = compiled
	}
	g.prog.body = g.block(tree.Body)
	g.prog.Code = g.listing.String()
	return g.prog
}

// emit appends a line to the code listing.
func (g *generator) emit(line int, code string) {
	if line > 0 {
		fmt.Fprintf(&g.listing, "%4d  ", line)
	} else {
		g.listing.WriteString("      ")
	}
	g.listing.WriteString(strings.Repeat("  ", g.depth))
	g.listing.WriteString(code)
	g.listing.WriteByte('\n')
}

func (g *generator) block(body []ast.Statement) execFn {
	fns := make([]execFn, 0, len(body))
	for _, s := range body {
		fns = append(fns, g.stmt(s))
	}
	return func(f *frame) error {
		for _, fn := range fns {
			if err := fn(f); err != nil {
				return err
			}
		}
		return nil
	}
}

// stmt compiles one statement. Every statement records its position in the
// frame before running so faults point at the original line.
func (g *generator) stmt(s ast.Statement) execFn {
	line := s.StmtLine()
	code := ast.Code(s)
	if _, ok := s.(*ast.TextStmt); !ok {
		g.emit(line, code)
	}
	inner := g.stmtBody(s)
	return func(f *frame) error {
		f.at(line, code)
		return f.fault(inner(f))
	}
}

func (g *generator) stmtBody(s ast.Statement) execFn {
	switch n := s.(type) {
	case *ast.TextStmt:
		text := n.Text
		return func(f *frame) error {
			_, err := f.out.Write([]byte(text))
			return err
		}
	case *ast.EchoStmt:
		return g.echo(n)
	case *ast.ExprStmt:
		x := g.expr(n.X)
		return func(f *frame) error {
			_, err := x(f)
			return err
		}
	case *ast.IfStmt:
		return g.ifStmt(n)
	case *ast.ForeachStmt:
		return g.foreach(n)
	case *ast.WhileStmt:
		cond := g.expr(n.Cond)
		line, code := n.SourceLine, ast.Code(n)
		body := g.nested(n.Body, "endwhile;")
		return func(f *frame) error {
			for {
				f.at(line, code)
				c, err := cond(f)
				if err != nil {
					return err
				}
				if !value.Truthy(c) {
					return nil
				}
				if stop, err := loopControl(body(f)); stop || err != nil {
					return err
				}
			}
		}
	case *ast.ForStmt:
		return g.forStmt(n)
	case *ast.SwitchStmt:
		return g.switchStmt(n)
	case *ast.BranchStmt:
		if n.Continue {
			return func(*frame) error { return errContinue }
		}
		return func(*frame) error { return errBreak }
	case *ast.ReturnStmt:
		if n.X == nil {
			return func(*frame) error { return &returnSignal{} }
		}
		x := g.expr(n.X)
		return func(f *frame) error {
			v, err := x(f)
			if err != nil {
				return err
			}
			return &returnSignal{val: v}
		}
	}
	return func(f *frame) error { return f.fatalf("unsupported statement %T", s) }
}

// nested compiles a block one level deeper in the listing and emits its
// closer.
func (g *generator) nested(body []ast.Statement, closer string) execFn {
	g.depth++
	fn := g.block(body)
	g.depth--
	if closer != "" {
		g.emit(0, closer)
	}
	return fn
}

// loopControl interprets the result of a loop body: stop reports whether
// the loop must end, err is a non-loop error to propagate.
func loopControl(err error) (stop bool, _ error) {
	switch {
	case err == nil, errors.Is(err, errContinue):
		return false, nil
	case errors.Is(err, errBreak):
		return true, nil
	}
	return true, err
}

func (g *generator) echo(n *ast.EchoStmt) execFn {
	x := g.expr(n.X)
	mode := n.Mode
	return func(f *frame) error {
		if mode == ast.Escape {
			f.quiet++
		}
		v, err := x(f)
		if mode == ast.Escape {
			f.quiet--
		}
		if err != nil {
			return err
		}
		var s string
		switch mode {
		case ast.Guard:
			if _, isBool := v.(bool); isBool || value.IsStructured(v) {
				return nil
			}
			s, err = f.toString(v)
		case ast.Escape:
			if v == nil {
				return nil
			}
			s, err = f.toString(v)
			s = value.EscapeHTML(s)
		default:
			s, err = f.toString(v)
		}
		if err != nil {
			return err
		}
		_, err = f.out.Write([]byte(s))
		return err
	}
}

// toString converts v for output. Records have no string form and
// converting one is fatal.
func (f *frame) toString(v any) (string, error) {
	if _, ok := v.(*value.Record); ok {
		return "", f.fatalf("record could not be converted to string")
	}
	return value.ToString(v)
}

func (g *generator) ifStmt(n *ast.IfStmt) execFn {
	type branch struct {
		line int
		code string
		cond evalFn
		body execFn
	}
	var branches []branch
	for i, b := range n.Branches {
		code := "if (" + ast.Format(b.Cond) + "):"
		if i > 0 {
			code = "elseif (" + ast.Format(b.Cond) + "):"
			g.emit(b.Line, code)
		}
		branches = append(branches, branch{line: b.Line, code: code, cond: g.expr(b.Cond), body: g.nested(b.Body, "")})
	}
	var els execFn
	if n.Else != nil {
		g.emit(0, "else:")
		els = g.nested(n.Else, "")
	}
	g.emit(0, "endif;")
	return func(f *frame) error {
		for _, b := range branches {
			f.at(b.line, b.code)
			c, err := b.cond(f)
			if err != nil {
				return err
			}
			if value.Truthy(c) {
				return b.body(f)
			}
		}
		if els != nil {
			return els(f)
		}
		return nil
	}
}

func (g *generator) foreach(n *ast.ForeachStmt) execFn {
	x := g.expr(n.X)
	key, val := n.Key, n.Val
	body := g.nested(n.Body, "endforeach;")
	return func(f *frame) error {
		coll, err := x(f)
		if err != nil {
			return err
		}
		if coll == nil {
			f.notice("foreach() argument must be of type array|object, null given")
			return nil
		}
		if !value.Iterable(coll) {
			return f.fatalf("foreach() argument must be of type array|object, %s given", value.TypeName(coll))
		}
		var loopErr error
		err = value.Iterate(coll, func(k, v any) (bool, error) {
			if key != "" {
				f.vars[key] = k
			}
			f.vars[val] = v
			stop, err := loopControl(body(f))
			loopErr = err
			return !stop, nil
		})
		if err != nil {
			return err
		}
		return loopErr
	}
}

func (g *generator) forStmt(n *ast.ForStmt) execFn {
	init := g.exprs(n.Init)
	cond := g.exprs(n.Cond)
	step := g.exprs(n.Step)
	line, code := n.SourceLine, ast.Code(n)
	body := g.nested(n.Body, "endfor;")
	return func(f *frame) error {
		if _, err := evalAll(f, init); err != nil {
			return err
		}
		for {
			f.at(line, code)
			if len(cond) > 0 {
				c, err := evalAll(f, cond)
				if err != nil {
					return err
				}
				if !value.Truthy(c) {
					return nil
				}
			}
			if stop, err := loopControl(body(f)); stop || err != nil {
				return err
			}
			f.at(line, code)
			if _, err := evalAll(f, step); err != nil {
				return err
			}
		}
	}
}

// evalAll evaluates list in order and returns the last value.
func evalAll(f *frame, list []evalFn) (any, error) {
	var last any
	for _, e := range list {
		v, err := e(f)
		if err != nil {
			return nil, err
		}
		last = v
	}
	return last, nil
}

func (g *generator) switchStmt(n *ast.SwitchStmt) execFn {
	x := g.expr(n.X)
	type clause struct {
		line int
		code string
		x    evalFn
		body execFn
	}
	var clauses []clause
	def := -1
	for i, c := range n.Cases {
		cl := clause{line: c.Line, code: "default:"}
		if c.X == nil {
			def = i
		} else {
			cl.code = "case " + ast.Format(c.X) + ":"
			cl.x = g.expr(c.X)
		}
		g.emit(c.Line, cl.code)
		cl.body = g.nested(c.Body, "")
		clauses = append(clauses, cl)
	}
	g.emit(0, "endswitch;")
	run := func(f *frame, body execFn) error {
		err := body(f)
		if errors.Is(err, errBreak) {
			return nil
		}
		return err
	}
	return func(f *frame) error {
		v, err := x(f)
		if err != nil {
			return err
		}
		for _, c := range clauses {
			if c.x == nil {
				continue
			}
			f.at(c.line, c.code)
			cv, err := c.x(f)
			if err != nil {
				return err
			}
			if value.Equal(v, cv) {
				return run(f, c.body)
			}
		}
		if def >= 0 {
			return run(f, clauses[def].body)
		}
		return nil
	}
}
