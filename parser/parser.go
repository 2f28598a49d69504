// Package parser turns normalized template text into an ast.Template.
//
// Tokenize splits the text into literal segments and classified tags in a
// single pass; each tag expression is lexed, its dotted paths are folded by
// ResolvePaths, and a recursive-descent parser builds the tree. Control
// blocks are matched with an explicit stack of open tags so an unclosed
// opener is reported at the line it was written on.
//
// Syntax errors are collected in a scanner.ErrList. A malformed expression
// tag is recorded and parsing continues with the next tag; a block
// structure error stops the parse.
package parser

import (
	"errors"
	"fmt"
	"go/token"
	"strings"

	"modernc.org/scanner"

	"github.com/rubiojr/tplc/ast"
	"github.com/rubiojr/tplc/preprocess"
)

// Error is one syntax error. Its position is held by the
// scanner.ErrWithPosition that carries it.
type Error struct {
	Msg    string
	Source string // offending tag text
}

func (e *Error) Error() string { return e.Msg }

// errStop unwinds the parser after a block structure error has been
// recorded.
var errStop = errors.New("parse stopped")

// FirstError returns the first error of a list returned by Parse.
func FirstError(err error) (scanner.ErrWithPosition, bool) {
	var el scanner.ErrList
	if errors.As(err, &el) && len(el) > 0 {
		return el[0], true
	}
	return scanner.ErrWithPosition{}, false
}

// Parser parses one template. Lines is the line map produced by
// preprocess.Normalize; nil maps lines to themselves.
type Parser struct {
	Lines []int

	name  string
	items []Item
	pos   int
	funcs []*ast.FuncStmt
	errs  scanner.ErrList
}

// Parse parses src as the template called name.
func (p *Parser) Parse(name, src string) (*ast.Template, error) {
	p.name = name
	p.items = Tokenize(src)
	p.pos = 0
	p.funcs = nil
	p.errs = nil
	body, end, err := p.parseBlock()
	if err == nil && end != nil {
		p.errorf(end, "syntax error, unexpected {%s}", end.Keyword)
	}
	if err := p.errs.Err(); err != nil {
		return nil, err
	}
	return &ast.Template{Name: name, Body: body, Funcs: p.funcs}, nil
}

// Items returns the tokenized items of the last Parse call.
func (p *Parser) Items() []Item { return p.items }

func (p *Parser) line(it *Item) int {
	if p.Lines == nil {
		return it.Line
	}
	return preprocess.OrigLine(p.Lines, it.Line)
}

func (p *Parser) position(it *Item) token.Position {
	return token.Position{Filename: p.name, Offset: it.Offset, Line: p.line(it)}
}

// errorf records a syntax error at it and returns errStop.
func (p *Parser) errorf(it *Item, format string, args ...any) error {
	p.errs = append(p.errs, scanner.ErrWithPosition{
		Pos: p.position(it),
		Err: &Error{Msg: fmt.Sprintf(format, args...), Source: it.Raw},
	})
	return errStop
}

func (p *Parser) exprError(it *Item, err error) error {
	return p.errorf(it, "%s", err)
}

// parseBlock collects statements until a control tag that it does not
// open itself (a closer or a branch marker) and returns that tag.
func (p *Parser) parseBlock() ([]ast.Statement, *Item, error) {
	var body []ast.Statement
	for p.pos < len(p.items) {
		it := &p.items[p.pos]
		p.pos++
		base := ast.BaseStmt{SourceLine: p.line(it)}
		switch it.Kind {
		case ItemText:
			body = append(body, &ast.TextStmt{BaseStmt: base, Text: it.Body})
		case ItemRaw, ItemEscape:
			x, err := ParseExpr("$" + it.Body)
			if err != nil {
				p.exprError(it, err)
				continue
			}
			mode := ast.Raw
			if it.Kind == ItemEscape {
				mode = ast.Escape
			}
			body = append(body, &ast.EchoStmt{BaseStmt: base, Mode: mode, X: x})
		case ItemGuard, ItemPlain:
			x, err := ParseExpr(it.Body)
			if err != nil {
				p.exprError(it, err)
				continue
			}
			mode := ast.Guard
			if it.Kind == ItemPlain {
				mode = ast.Plain
			}
			body = append(body, &ast.EchoStmt{BaseStmt: base, Mode: mode, X: x})
		case ItemStmt:
			stmts, err := parseStatements(it.Body, base)
			if err != nil {
				p.exprError(it, err)
				continue
			}
			body = append(body, stmts...)
		case ItemControl:
			stmt, err := p.parseControl(it, base)
			if err != nil {
				return nil, nil, err
			}
			if stmt == nil {
				return body, it, nil
			}
			if _, ok := stmt.(*ast.FuncStmt); !ok {
				body = append(body, stmt)
			}
		}
	}
	return body, nil, nil
}

// parseControl parses a block opened by it. It returns (nil, nil) when it
// is a closer or branch marker that ends the enclosing block.
func (p *Parser) parseControl(it *Item, base ast.BaseStmt) (ast.Statement, error) {
	switch it.Keyword {
	case "if":
		return p.parseIf(it, base)
	case "foreach":
		return p.parseForeach(it, base)
	case "while":
		cond, err := p.header(it)
		if err != nil {
			return nil, err
		}
		body, err := p.parseBody(it, "endwhile")
		if err != nil {
			return nil, err
		}
		return &ast.WhileStmt{BaseStmt: base, Cond: cond, Body: body}, nil
	case "for":
		return p.parseFor(it, base)
	case "switch":
		return p.parseSwitch(it, base)
	case "function":
		return p.parseFunc(it, base)
	}
	return nil, nil
}

// header parses the expression of a control tag, which must be present.
func (p *Parser) header(it *Item) (ast.Expr, error) {
	if strings.TrimSpace(it.Body) == "" {
		return nil, p.errorf(it, "syntax error, missing expression in {%s}", it.Keyword)
	}
	x, err := ParseExpr(it.Body)
	if err != nil {
		return nil, p.exprError(it, err)
	}
	return x, nil
}

// parseBody parses a block that must end with the closer want.
func (p *Parser) parseBody(open *Item, want string) ([]ast.Statement, error) {
	body, end, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	if end == nil {
		return nil, p.errorf(open, "syntax error, unclosed {%s}: expecting {%s}", open.Keyword, want)
	}
	if end.Keyword != want {
		return nil, p.errorf(end, "syntax error, unexpected {%s}, expecting {%s}", end.Keyword, want)
	}
	return body, nil
}

func (p *Parser) parseIf(open *Item, base ast.BaseStmt) (ast.Statement, error) {
	stmt := &ast.IfStmt{BaseStmt: base}
	it := open
	for {
		cond, err := p.header(it)
		if err != nil {
			return nil, err
		}
		body, end, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		stmt.Branches = append(stmt.Branches, ast.IfBranch{Line: p.line(it), Cond: cond, Body: body})
		if end == nil {
			return nil, p.errorf(open, "syntax error, unclosed {if}: expecting {endif}")
		}
		switch end.Keyword {
		case "elseif":
			it = end
			continue
		case "else":
			els, err := p.parseBody(open, "endif")
			if err != nil {
				return nil, err
			}
			stmt.Else = els
			return stmt, nil
		case "endif":
			return stmt, nil
		}
		return nil, p.errorf(end, "syntax error, unexpected {%s}, expecting {endif}", end.Keyword)
	}
}

func (p *Parser) parseForeach(it *Item, base ast.BaseStmt) (ast.Statement, error) {
	toks, err := Lex(it.Body)
	if err != nil {
		return nil, p.exprError(it, err)
	}
	toks = ResolvePaths(toks)
	as := -1
	for i, t := range toks {
		if t.Kind == TokIdent && strings.EqualFold(t.Text, "as") {
			as = i
		}
	}
	if as <= 0 {
		return nil, p.errorf(it, "syntax error, expecting 'as' in {foreach}")
	}
	x, err := parseTokens(toks[:as])
	if err != nil {
		return nil, p.exprError(it, err)
	}
	stmt := &ast.ForeachStmt{BaseStmt: base, X: x}
	vars := toks[as+1:]
	switch {
	case len(vars) == 1 && vars[0].Kind == TokVar:
		stmt.Val = vars[0].Text
	case len(vars) == 3 && vars[0].Kind == TokVar && vars[1].Text == "=>" && vars[2].Kind == TokVar:
		stmt.Key, stmt.Val = vars[0].Text, vars[2].Text
	default:
		return nil, p.errorf(it, "syntax error, invalid {foreach} variables %q", strings.TrimSpace(it.Body[toks[as].Pos+2:]))
	}
	if stmt.Body, err = p.parseBody(it, "endforeach"); err != nil {
		return nil, err
	}
	return stmt, nil
}

func (p *Parser) parseFor(it *Item, base ast.BaseStmt) (ast.Statement, error) {
	hdr := strings.TrimSpace(it.Body)
	if strings.HasPrefix(hdr, "(") && strings.HasSuffix(hdr, ")") {
		hdr = hdr[1 : len(hdr)-1]
	}
	toks, err := Lex(hdr)
	if err != nil {
		return nil, p.exprError(it, err)
	}
	ep := &exprParser{toks: ResolvePaths(toks)}
	var clauses [3][]ast.Expr
	for i := range clauses {
		if clauses[i], err = ep.parseList(); err != nil {
			return nil, p.exprError(it, err)
		}
		if i < 2 {
			if err := ep.expect(";"); err != nil {
				return nil, p.exprError(it, err)
			}
		}
	}
	if !ep.eof() {
		return nil, p.exprError(it, ep.unexpected())
	}
	stmt := &ast.ForStmt{BaseStmt: base, Init: clauses[0], Cond: clauses[1], Step: clauses[2]}
	if stmt.Body, err = p.parseBody(it, "endfor"); err != nil {
		return nil, err
	}
	return stmt, nil
}

func (p *Parser) parseSwitch(open *Item, base ast.BaseStmt) (ast.Statement, error) {
	x, err := p.header(open)
	if err != nil {
		return nil, err
	}
	stmt := &ast.SwitchStmt{BaseStmt: base, X: x}
	lead, end, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	for _, s := range lead {
		if txt, ok := s.(*ast.TextStmt); !ok || strings.TrimSpace(txt.Text) != "" {
			return nil, p.errorf(open, "syntax error, unexpected content before first {case}")
		}
	}
	for {
		if end == nil {
			return nil, p.errorf(open, "syntax error, unclosed {switch}: expecting {endswitch}")
		}
		switch end.Keyword {
		case "endswitch":
			return stmt, nil
		case "case", "default":
			clause := ast.CaseClause{Line: p.line(end)}
			if end.Keyword == "case" {
				if clause.X, err = p.header(end); err != nil {
					return nil, err
				}
			}
			var next *Item
			if clause.Body, next, err = p.parseBlock(); err != nil {
				return nil, err
			}
			stmt.Cases = append(stmt.Cases, clause)
			end = next
		default:
			return nil, p.errorf(end, "syntax error, unexpected {%s}, expecting {case} or {endswitch}", end.Keyword)
		}
	}
}

func (p *Parser) parseFunc(it *Item, base ast.BaseStmt) (ast.Statement, error) {
	toks, err := Lex(it.Body)
	if err != nil {
		return nil, p.exprError(it, err)
	}
	if len(toks) < 3 || toks[0].Kind != TokIdent || toks[1].Text != "(" {
		return nil, p.errorf(it, "syntax error, expecting {function name(params)}")
	}
	fn := &ast.FuncStmt{BaseStmt: base, Name: toks[0].Text}
	ep := &exprParser{toks: toks, pos: 2}
	for !ep.isOp(")") {
		v := ep.next()
		if v.Kind != TokVar {
			return nil, p.errorf(it, "syntax error, unexpected '%s', expecting variable", v)
		}
		param := ast.Param{Name: v.Text}
		if ep.isOp("=") {
			ep.pos++
			if param.Default, err = ep.parseTernary(); err != nil {
				return nil, p.exprError(it, err)
			}
		}
		fn.Params = append(fn.Params, param)
		if !ep.isOp(",") {
			break
		}
		ep.pos++
	}
	if err := ep.expect(")"); err != nil {
		return nil, p.exprError(it, err)
	}
	if !ep.eof() {
		return nil, p.exprError(it, ep.unexpected())
	}
	if fn.Body, err = p.parseBody(it, "endfunction"); err != nil {
		return nil, err
	}
	p.funcs = append(p.funcs, fn)
	return fn, nil
}

func parseTokens(toks []Token) (ast.Expr, error) {
	ep := &exprParser{toks: toks}
	e, err := ep.parseExpr()
	if err != nil {
		return nil, err
	}
	if !ep.eof() {
		return nil, ep.unexpected()
	}
	return e, nil
}

// parseStatements parses the body of a {@...} tag: one or more statements
// separated by ';'.
func parseStatements(src string, base ast.BaseStmt) ([]ast.Statement, error) {
	toks, err := Lex(src)
	if err != nil {
		return nil, err
	}
	toks = ResolvePaths(toks)
	var out []ast.Statement
	start := 0
	for i := 0; i <= len(toks); i++ {
		if i < len(toks) && !(toks[i].Kind == TokOp && toks[i].Text == ";") {
			continue
		}
		part := toks[start:i]
		start = i + 1
		if len(part) == 0 {
			continue
		}
		s, err := parseStatement(part, base)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("syntax error, empty statement")
	}
	return out, nil
}

func parseStatement(toks []Token, base ast.BaseStmt) (ast.Statement, error) {
	if toks[0].Kind == TokIdent {
		switch strings.ToLower(toks[0].Text) {
		case "break", "continue":
			if len(toks) > 1 {
				return nil, fmt.Errorf("syntax error, unexpected '%s'", toks[1])
			}
			return &ast.BranchStmt{BaseStmt: base, Continue: strings.EqualFold(toks[0].Text, "continue")}, nil
		case "return":
			ret := &ast.ReturnStmt{BaseStmt: base}
			if len(toks) > 1 {
				x, err := parseTokens(toks[1:])
				if err != nil {
					return nil, err
				}
				ret.X = x
			}
			return ret, nil
		}
	}
	x, err := parseTokens(toks)
	if err != nil {
		return nil, err
	}
	return &ast.ExprStmt{BaseStmt: base, X: x}, nil
}
