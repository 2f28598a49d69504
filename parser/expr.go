package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rubiojr/tplc/ast"
)

// ParseExpr lexes, path-resolves and parses a single expression.
func ParseExpr(src string) (ast.Expr, error) {
	toks, err := Lex(src)
	if err != nil {
		return nil, err
	}
	ep := &exprParser{toks: ResolvePaths(toks)}
	e, err := ep.parseExpr()
	if err != nil {
		return nil, err
	}
	if !ep.eof() {
		return nil, ep.unexpected()
	}
	return e, nil
}

type exprParser struct {
	toks []Token
	pos  int
}

func (p *exprParser) eof() bool { return p.pos >= len(p.toks) }

func (p *exprParser) peek() Token {
	if p.eof() {
		return Token{Kind: TokEOF}
	}
	return p.toks[p.pos]
}

func (p *exprParser) next() Token {
	t := p.peek()
	if !p.eof() {
		p.pos++
	}
	return t
}

func (p *exprParser) isOp(ops ...string) bool {
	t := p.peek()
	if t.Kind != TokOp {
		return false
	}
	for _, o := range ops {
		if t.Text == o {
			return true
		}
	}
	return false
}

func (p *exprParser) isWord(words ...string) bool {
	t := p.peek()
	if t.Kind != TokIdent {
		return false
	}
	for _, w := range words {
		if strings.EqualFold(t.Text, w) {
			return true
		}
	}
	return false
}

func (p *exprParser) expect(op string) error {
	if !p.isOp(op) {
		if p.eof() {
			return fmt.Errorf("syntax error, unexpected end of expression, expecting '%s'", op)
		}
		return fmt.Errorf("syntax error, unexpected '%s', expecting '%s'", p.peek(), op)
	}
	p.pos++
	return nil
}

func (p *exprParser) unexpected() error {
	if p.eof() {
		return fmt.Errorf("syntax error, unexpected end of expression")
	}
	return fmt.Errorf("syntax error, unexpected '%s'", p.peek())
}

// parseList parses comma separated expressions until a ';' or the end.
func (p *exprParser) parseList() ([]ast.Expr, error) {
	var list []ast.Expr
	for !p.eof() && !p.isOp(";") {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		list = append(list, e)
		if !p.isOp(",") {
			break
		}
		p.pos++
	}
	return list, nil
}

func (p *exprParser) parseExpr() (ast.Expr, error) { return p.parseWordOr() }

func (p *exprParser) parseWordOr() (ast.Expr, error) {
	l, err := p.parseWordAnd()
	if err != nil {
		return nil, err
	}
	for p.isWord("or") {
		p.pos++
		r, err := p.parseWordAnd()
		if err != nil {
			return nil, err
		}
		l = &ast.BinaryExpr{Op: "||", L: l, R: r}
	}
	return l, nil
}

func (p *exprParser) parseWordAnd() (ast.Expr, error) {
	l, err := p.parseAssign()
	if err != nil {
		return nil, err
	}
	for p.isWord("and") {
		p.pos++
		r, err := p.parseAssign()
		if err != nil {
			return nil, err
		}
		l = &ast.BinaryExpr{Op: "&&", L: l, R: r}
	}
	return l, nil
}

func (p *exprParser) parseAssign() (ast.Expr, error) {
	l, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	if p.isOp("=", "+=", "-=", "*=", "/=", ".=") {
		op := p.next().Text
		if !assignable(l) {
			return nil, fmt.Errorf("syntax error, cannot assign to %s", ast.Format(l))
		}
		r, err := p.parseAssign()
		if err != nil {
			return nil, err
		}
		return &ast.AssignExpr{Op: op, Target: l, Value: r}, nil
	}
	return l, nil
}

func assignable(e ast.Expr) bool {
	switch e.(type) {
	case *ast.VarExpr, *ast.MemberExpr, *ast.IndexExpr:
		return true
	}
	return false
}

func (p *exprParser) parseTernary() (ast.Expr, error) {
	cond, err := p.parseCoalesce()
	if err != nil {
		return nil, err
	}
	if !p.isOp("?") {
		return cond, nil
	}
	p.pos++
	var then ast.Expr
	if !p.isOp(":") {
		if then, err = p.parseAssign(); err != nil {
			return nil, err
		}
	}
	if err := p.expect(":"); err != nil {
		return nil, err
	}
	els, err := p.parseAssign()
	if err != nil {
		return nil, err
	}
	return &ast.TernaryExpr{Cond: cond, Then: then, Else: els}, nil
}

func (p *exprParser) parseCoalesce() (ast.Expr, error) {
	l, err := p.parseBinary(0)
	if err != nil {
		return nil, err
	}
	if p.isOp("??") {
		p.pos++
		r, err := p.parseCoalesce()
		if err != nil {
			return nil, err
		}
		return &ast.BinaryExpr{Op: "??", L: l, R: r}, nil
	}
	return l, nil
}

// binaryLevels lists left-associative operators from lowest to highest
// precedence.
var binaryLevels = [][]string{
	{"||"},
	{"&&"},
	{"==", "!=", "===", "!==", "<>"},
	{"<", "<=", ">", ">="},
	{"."},
	{"+", "-"},
	{"*", "/", "%"},
}

func (p *exprParser) parseBinary(level int) (ast.Expr, error) {
	if level == len(binaryLevels) {
		return p.parseUnary()
	}
	l, err := p.parseBinary(level + 1)
	if err != nil {
		return nil, err
	}
	for p.isOp(binaryLevels[level]...) {
		op := p.next().Text
		if op == "<>" {
			op = "!="
		}
		r, err := p.parseBinary(level + 1)
		if err != nil {
			return nil, err
		}
		l = &ast.BinaryExpr{Op: op, L: l, R: r}
	}
	return l, nil
}

func (p *exprParser) parseUnary() (ast.Expr, error) {
	if p.isOp("!", "-", "+") {
		op := p.next().Text
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{Op: op, X: x}, nil
	}
	if p.isOp("++", "--") {
		op := p.next().Text
		x, err := p.parsePostfix()
		if err != nil {
			return nil, err
		}
		if !assignable(x) {
			return nil, fmt.Errorf("syntax error, cannot increment %s", ast.Format(x))
		}
		return &ast.IncDecExpr{Op: op, Target: x, Prefix: true}, nil
	}
	return p.parsePostfix()
}

func (p *exprParser) parsePostfix() (ast.Expr, error) {
	x, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		switch {
		case t.Kind == TokMember:
			p.pos++
			x = &ast.MemberExpr{X: x, Name: t.Text}
		case p.isOp("->"):
			p.pos++
			name := p.next()
			if name.Kind != TokIdent {
				return nil, fmt.Errorf("syntax error, unexpected '%s', expecting identifier", name)
			}
			x = &ast.MemberExpr{X: x, Name: name.Text}
		case p.isOp("["):
			p.pos++
			idx, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if err := p.expect("]"); err != nil {
				return nil, err
			}
			x = &ast.IndexExpr{X: x, Index: idx}
		case p.isOp("("):
			args, err := p.parseArgs(")")
			if err != nil {
				return nil, err
			}
			x = &ast.CallExpr{Fn: x, Args: args}
		case p.isOp("++", "--"):
			if !assignable(x) {
				return x, nil
			}
			x = &ast.IncDecExpr{Op: p.next().Text, Target: x}
		default:
			return x, nil
		}
	}
}

// parseArgs parses '(' args ')' (or '[' ... ']') with the opener current.
func (p *exprParser) parseArgs(closer string) ([]ast.Expr, error) {
	p.pos++
	var args []ast.Expr
	for !p.isOp(closer) {
		a, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, a)
		if !p.isOp(",") {
			break
		}
		p.pos++
	}
	if err := p.expect(closer); err != nil {
		return nil, err
	}
	return args, nil
}

func (p *exprParser) parsePrimary() (ast.Expr, error) {
	t := p.peek()
	switch t.Kind {
	case TokEOF:
		return nil, p.unexpected()
	case TokVar:
		p.pos++
		return &ast.VarExpr{Name: t.Text}, nil
	case TokInt:
		p.pos++
		n, err := strconv.Atoi(t.Text)
		if err != nil {
			f, _ := strconv.ParseFloat(t.Text, 64)
			return &ast.LitExpr{Value: f, Raw: t.Text}, nil
		}
		return &ast.LitExpr{Value: n, Raw: t.Text}, nil
	case TokFloat:
		p.pos++
		f, err := strconv.ParseFloat(t.Text, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %s", t.Text)
		}
		return &ast.LitExpr{Value: f, Raw: t.Text}, nil
	case TokString:
		p.pos++
		return stringExpr(t), nil
	case TokIdent:
		p.pos++
		switch strings.ToLower(t.Text) {
		case "true":
			return &ast.LitExpr{Value: true, Raw: "true"}, nil
		case "false":
			return &ast.LitExpr{Value: false, Raw: "false"}, nil
		case "null":
			return &ast.LitExpr{Value: nil, Raw: "null"}, nil
		case "array":
			if p.isOp("(") {
				return p.parseArray(")")
			}
		}
		if !p.isOp("(") {
			return nil, fmt.Errorf("syntax error, unexpected '%s'", t.Text)
		}
		return &ast.NameExpr{Name: t.Text}, nil
	case TokOp:
		switch t.Text {
		case "(":
			p.pos++
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if err := p.expect(")"); err != nil {
				return nil, err
			}
			return e, nil
		case "[":
			return p.parseArray("]")
		}
	}
	return nil, p.unexpected()
}

// parseArray parses [a, 'k' => v] or array(...) with the opener current.
func (p *exprParser) parseArray(closer string) (ast.Expr, error) {
	p.pos++
	arr := &ast.ArrayExpr{}
	for !p.isOp(closer) {
		v, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		item := ast.ArrayItem{Val: v}
		if p.isOp("=>") {
			p.pos++
			if item.Val, err = p.parseExpr(); err != nil {
				return nil, err
			}
			item.Key = v
		}
		arr.Items = append(arr.Items, item)
		if !p.isOp(",") {
			break
		}
		p.pos++
	}
	if err := p.expect(closer); err != nil {
		return nil, err
	}
	return arr, nil
}

// stringExpr turns a string token into a literal, or a concatenation when
// a double-quoted string interpolates variables.
func stringExpr(t Token) ast.Expr {
	if len(t.Parts) == 1 && t.Parts[0].Var == "" {
		return &ast.LitExpr{Value: t.Parts[0].Lit}
	}
	var e ast.Expr
	for _, part := range t.Parts {
		var x ast.Expr
		if part.Var != "" {
			x = &ast.VarExpr{Name: part.Var}
		} else {
			x = &ast.LitExpr{Value: part.Lit}
		}
		if e == nil {
			e = x
			continue
		}
		e = &ast.BinaryExpr{Op: ".", L: e, R: x}
	}
	if _, ok := e.(*ast.VarExpr); ok {
		e = &ast.BinaryExpr{Op: ".", L: &ast.LitExpr{Value: ""}, R: e}
	}
	return e
}
