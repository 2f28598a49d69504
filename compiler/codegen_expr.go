package compiler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rubiojr/tplc/ast"
	"github.com/rubiojr/tplc/value"
)

func (g *generator) exprs(list []ast.Expr) []evalFn {
	out := make([]evalFn, len(list))
	for i, e := range list {
		out[i] = g.expr(e)
	}
	return out
}

func (g *generator) expr(e ast.Expr) evalFn {
	switch n := e.(type) {
	case *ast.LitExpr:
		v := n.Value
		return func(*frame) (any, error) { return v, nil }
	case *ast.VarExpr:
		name := n.Name
		return func(f *frame) (any, error) {
			v, ok := f.vars[name]
			if !ok {
				f.notice("Undefined variable $%s", name)
			}
			return v, nil
		}
	case *ast.ArrayExpr:
		return g.array(n)
	case *ast.MemberExpr:
		x := g.expr(n.X)
		name := n.Name
		return func(f *frame) (any, error) {
			obj, err := x(f)
			if err != nil {
				return nil, err
			}
			if obj == nil {
				f.notice("Attempt to read property %q on null", name)
				return nil, nil
			}
			v, ok := value.Member(obj, name)
			if !ok {
				f.notice("Undefined property: %s::$%s", value.TypeName(obj), name)
			}
			return v, nil
		}
	case *ast.IndexExpr:
		x := g.expr(n.X)
		idx := g.expr(n.Index)
		return func(f *frame) (any, error) {
			obj, err := x(f)
			if err != nil {
				return nil, err
			}
			k, err := idx(f)
			if err != nil {
				return nil, err
			}
			v, ok := value.Index(obj, k)
			if !ok {
				f.notice("Undefined array key %v", k)
			}
			return v, nil
		}
	case *ast.CallExpr:
		return g.call(n)
	case *ast.UnaryExpr:
		return g.unary(n)
	case *ast.BinaryExpr:
		return g.binary(n)
	case *ast.TernaryExpr:
		cond := g.expr(n.Cond)
		els := g.expr(n.Else)
		var then evalFn
		if n.Then != nil {
			then = g.expr(n.Then)
		}
		return func(f *frame) (any, error) {
			c, err := cond(f)
			if err != nil {
				return nil, err
			}
			if value.Truthy(c) {
				if then == nil {
					return c, nil
				}
				return then(f)
			}
			return els(f)
		}
	case *ast.AssignExpr:
		return g.assign(n)
	case *ast.IncDecExpr:
		return g.incDec(n)
	case *ast.NameExpr:
		name := n.Name
		return func(f *frame) (any, error) {
			return nil, fmt.Errorf("undefined constant %q", name)
		}
	}
	return func(*frame) (any, error) { return nil, fmt.Errorf("unsupported expression %T", e) }
}

func (g *generator) array(n *ast.ArrayExpr) evalFn {
	type item struct{ key, val evalFn }
	items := make([]item, len(n.Items))
	for i, it := range n.Items {
		items[i].val = g.expr(it.Val)
		if it.Key != nil {
			items[i].key = g.expr(it.Key)
		}
	}
	return func(f *frame) (any, error) {
		rec := value.NewRecord()
		for _, it := range items {
			v, err := it.val(f)
			if err != nil {
				return nil, err
			}
			if it.key == nil {
				rec.Append(v)
				continue
			}
			k, err := it.key(f)
			if err != nil {
				return nil, err
			}
			rec.Set(recordKey(k), v)
		}
		return rec, nil
	}
}

// recordKey folds numeric string keys to ints so '1' and 1 address the
// same entry.
func recordKey(k any) any {
	if s, ok := k.(string); ok {
		if n, ok := value.ToNumber(s); ok && !n.IsFloat && fmt.Sprint(n.I) == s {
			return n.I
		}
	}
	return k
}

func (g *generator) args(list []ast.Expr) func(*frame) ([]any, error) {
	fns := g.exprs(list)
	return func(f *frame) ([]any, error) {
		out := make([]any, len(fns))
		for i, fn := range fns {
			v, err := fn(f)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	}
}

func (g *generator) call(n *ast.CallExpr) evalFn {
	switch fn := n.Fn.(type) {
	case *ast.NameExpr:
		name := fn.Name
		lower := strings.ToLower(name)
		if lower == "isset" || lower == "empty" {
			return g.quietBuiltin(lower, n.Args)
		}
		args := g.args(n.Args)
		if b, ok := builtins[lower]; ok {
			return func(f *frame) (any, error) {
				a, err := args(f)
				if err != nil {
					return nil, err
				}
				return b(f, a)
			}
		}
		return func(f *frame) (any, error) {
			tf, ok := f.prog.funcs[name]
			if !ok {
				return nil, fmt.Errorf("Call to undefined function %s()", name)
			}
			a, err := args(f)
			if err != nil {
				return nil, err
			}
			return f.callFunc(tf, a)
		}
	case *ast.MemberExpr:
		obj := g.expr(fn.X)
		method := fn.Name
		args := g.args(n.Args)
		return func(f *frame) (any, error) {
			o, err := obj(f)
			if err != nil {
				return nil, err
			}
			a, err := args(f)
			if err != nil {
				return nil, err
			}
			return value.CallMethod(o, method, a)
		}
	}
	callee := g.expr(n.Fn)
	args := g.args(n.Args)
	label := ast.Format(n.Fn)
	return func(f *frame) (any, error) {
		c, err := callee(f)
		if err != nil {
			return nil, err
		}
		if !value.IsCallable(c) {
			return nil, fmt.Errorf("%s is not callable, %s given", label, value.TypeName(c))
		}
		a, err := args(f)
		if err != nil {
			return nil, err
		}
		return value.Call(c, a)
	}
}

// callFunc invokes a template function in a fresh scope holding its
// parameters and the pseudo-function temporaries of the caller.
func (f *frame) callFunc(fn *function, args []any) (any, error) {
	callee := &frame{prog: f.prog, run: f.run, out: f.out, vars: f.pseudoVars(), line: f.line, code: f.code}
	decl := fn.decl
	for i, p := range decl.Params {
		if i < len(args) {
			callee.vars[p.Name] = args[i]
			continue
		}
		if fn.defaults[i] == nil {
			required := 0
			for _, q := range decl.Params {
				if q.Default == nil {
					required++
				}
			}
			return nil, fmt.Errorf("Too few arguments to function %s(), %d passed and at least %d expected", decl.Name, len(args), required)
		}
		v, err := fn.defaults[i](callee)
		if err != nil {
			return nil, err
		}
		callee.vars[p.Name] = v
	}
	err := fn.body(callee)
	var ret *returnSignal
	if errors.As(err, &ret) {
		return ret.val, nil
	}
	return nil, err
}

// quietBuiltin compiles isset() and empty(), whose arguments never raise
// undefined notices.
func (g *generator) quietBuiltin(name string, list []ast.Expr) evalFn {
	fns := g.exprs(list)
	return func(f *frame) (any, error) {
		if len(fns) == 0 {
			return nil, fmt.Errorf("%s() expects at least 1 argument, 0 given", name)
		}
		f.quiet++
		defer func() { f.quiet-- }()
		if name == "empty" {
			v, err := fns[0](f)
			if err != nil {
				return nil, err
			}
			return !value.Truthy(v), nil
		}
		for _, fn := range fns {
			v, err := fn(f)
			if err != nil {
				return nil, err
			}
			if v == nil {
				return false, nil
			}
		}
		return true, nil
	}
}

func (g *generator) unary(n *ast.UnaryExpr) evalFn {
	x := g.expr(n.X)
	op := n.Op
	return func(f *frame) (any, error) {
		v, err := x(f)
		if err != nil {
			return nil, err
		}
		switch op {
		case "!":
			return !value.Truthy(v), nil
		case "-":
			return value.Arith("*", v, -1)
		}
		return value.Arith("+", v, 0)
	}
}

func (g *generator) binary(n *ast.BinaryExpr) evalFn {
	l := g.expr(n.L)
	r := g.expr(n.R)
	op := n.Op
	switch op {
	case "&&", "||":
		return func(f *frame) (any, error) {
			lv, err := l(f)
			if err != nil {
				return nil, err
			}
			if value.Truthy(lv) == (op == "||") {
				return op == "||", nil
			}
			rv, err := r(f)
			if err != nil {
				return nil, err
			}
			return value.Truthy(rv), nil
		}
	case "??":
		return func(f *frame) (any, error) {
			f.quiet++
			lv, err := l(f)
			f.quiet--
			if err != nil {
				return nil, err
			}
			if lv != nil {
				return lv, nil
			}
			return r(f)
		}
	}
	return func(f *frame) (any, error) {
		lv, err := l(f)
		if err != nil {
			return nil, err
		}
		rv, err := r(f)
		if err != nil {
			return nil, err
		}
		return f.operate(op, lv, rv)
	}
}

func (f *frame) operate(op string, lv, rv any) (any, error) {
	switch op {
	case ".":
		ls, err := f.toString(lv)
		if err != nil {
			return nil, err
		}
		rs, err := f.toString(rv)
		if err != nil {
			return nil, err
		}
		return ls + rs, nil
	case "==":
		return value.Equal(lv, rv), nil
	case "!=":
		return !value.Equal(lv, rv), nil
	case "===":
		return value.Identical(lv, rv), nil
	case "!==":
		return !value.Identical(lv, rv), nil
	case "<", "<=", ">", ">=":
		c, err := value.Compare(lv, rv)
		if err != nil {
			return nil, err
		}
		switch op {
		case "<":
			return c < 0, nil
		case "<=":
			return c <= 0, nil
		case ">":
			return c > 0, nil
		}
		return c >= 0, nil
	}
	return value.Arith(op, lv, rv)
}

// lvalue compiles an assignment target into a getter and a setter.
func (g *generator) lvalue(e ast.Expr) (get evalFn, set func(*frame, any) error) {
	switch n := e.(type) {
	case *ast.VarExpr:
		name := n.Name
		return g.expr(n), func(f *frame, v any) error {
			f.vars[name] = v
			return nil
		}
	case *ast.MemberExpr:
		cont := g.container(n.X)
		name := n.Name
		return g.expr(n), func(f *frame, v any) error {
			rec, err := cont(f)
			if err != nil {
				return err
			}
			rec.Set(name, v)
			return nil
		}
	case *ast.IndexExpr:
		cont := g.container(n.X)
		idx := g.expr(n.Index)
		return g.expr(n), func(f *frame, v any) error {
			rec, err := cont(f)
			if err != nil {
				return err
			}
			k, err := idx(f)
			if err != nil {
				return err
			}
			rec.Set(recordKey(k), v)
			return nil
		}
	}
	return g.expr(e), func(*frame, any) error { return fmt.Errorf("cannot assign to %s", ast.Format(e)) }
}

// container resolves the record an element assignment writes into,
// creating it when the target is unset.
func (g *generator) container(e ast.Expr) func(*frame) (*value.Record, error) {
	get, set := g.lvalue(e)
	label := ast.Format(e)
	return func(f *frame) (*value.Record, error) {
		f.quiet++
		cur, err := get(f)
		f.quiet--
		if err != nil {
			return nil, err
		}
		switch c := cur.(type) {
		case *value.Record:
			return c, nil
		case nil:
			rec := value.NewRecord()
			if err := set(f, rec); err != nil {
				return nil, err
			}
			return rec, nil
		}
		return nil, fmt.Errorf("cannot use %s of type %s as array", label, value.TypeName(cur))
	}
}

func (g *generator) assign(n *ast.AssignExpr) evalFn {
	get, set := g.lvalue(n.Target)
	rhs := g.expr(n.Value)
	op := strings.TrimSuffix(n.Op, "=")
	return func(f *frame) (any, error) {
		v, err := rhs(f)
		if err != nil {
			return nil, err
		}
		if op != "" {
			cur, err := get(f)
			if err != nil {
				return nil, err
			}
			if v, err = f.operate(op, cur, v); err != nil {
				return nil, err
			}
		}
		if err := set(f, v); err != nil {
			return nil, err
		}
		return v, nil
	}
}

func (g *generator) incDec(n *ast.IncDecExpr) evalFn {
	get, set := g.lvalue(n.Target)
	delta := 1
	if n.Op == "--" {
		delta = -1
	}
	prefix := n.Prefix
	return func(f *frame) (any, error) {
		cur, err := get(f)
		if err != nil {
			return nil, err
		}
		next, err := value.Arith("+", cur, delta)
		if err != nil {
			return nil, err
		}
		if err := set(f, next); err != nil {
			return nil, err
		}
		if prefix {
			return next, nil
		}
		return cur, nil
	}
}
