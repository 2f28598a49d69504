package parser

import (
	"fmt"
	"strings"

	"github.com/rubiojr/tplc/scanner"
)

// TokKind classifies an expression token.
type TokKind int

const (
	TokEOF TokKind = iota
	TokVar         // $name
	TokIdent       // bare identifier or keyword
	TokInt
	TokFloat
	TokString
	TokOp     // operator or punctuation
	TokMember // .name folded by ResolvePaths
)

func (k TokKind) String() string {
	switch k {
	case TokEOF:
		return "EOF"
	case TokVar:
		return "VAR"
	case TokIdent:
		return "IDENT"
	case TokInt:
		return "INT"
	case TokFloat:
		return "FLOAT"
	case TokString:
		return "STRING"
	case TokOp:
		return "OP"
	case TokMember:
		return "MEMBER"
	}
	return "?"
}

// StrPart is a piece of a string literal: literal text, or a variable
// interpolated from a double-quoted string.
type StrPart struct {
	Lit string
	Var string
}

// Token is a lexed expression token.
type Token struct {
	Kind  TokKind
	Text  string // source spelling; the name for Var, Ident and Member
	Pos   int    // byte offset in the expression
	Space bool   // whitespace precedes the token
	Parts []StrPart
}

func (t Token) String() string {
	if t.Kind == TokMember {
		return "." + t.Text
	}
	if t.Kind == TokVar {
		return "$" + t.Text
	}
	return t.Text
}

// operators, longest first.
var operators = []string{
	"===", "!==",
	"==", "!=", "<>", "<=", ">=", "&&", "||", "??", "++", "--",
	"+=", "-=", "*=", "/=", ".=", "->", "=>",
	"+", "-", "*", "/", "%", ".", "<", ">", "!", "?", ":", "=",
	"(", ")", "[", "]", ",", ";",
}

// Lex splits an expression into tokens. String literals become single
// tokens, so no later pass can see a dot inside quotes.
func Lex(src string) ([]Token, error) {
	var toks []Token
	i := 0
	space := false
	for i < len(src) {
		ch := src[i]
		if ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' {
			space = true
			i++
			continue
		}
		start := i
		switch {
		case ch == '$':
			i++
			for i < len(src) && scanner.IsIdentByte(src[i]) {
				i++
			}
			if i == start+1 || !scanner.IsIdentStart(src[start+1]) {
				return nil, fmt.Errorf("unexpected '$' at offset %d", start)
			}
			toks = append(toks, Token{Kind: TokVar, Text: src[start+1 : i], Pos: start, Space: space})
		case scanner.IsIdentStart(ch):
			for i < len(src) && scanner.IsIdentByte(src[i]) {
				i++
			}
			toks = append(toks, Token{Kind: TokIdent, Text: src[start:i], Pos: start, Space: space})
		case ch >= '0' && ch <= '9':
			// digits right after a glued '.' are a member segment, never a fraction
			afterDot := len(toks) > 0 && toks[len(toks)-1].Text == "." && toks[len(toks)-1].Kind == TokOp && !space
			kind := TokInt
			for i < len(src) && src[i] >= '0' && src[i] <= '9' {
				i++
			}
			if !afterDot && i+1 < len(src) && src[i] == '.' && src[i+1] >= '0' && src[i+1] <= '9' {
				kind = TokFloat
				i++
				for i < len(src) && src[i] >= '0' && src[i] <= '9' {
					i++
				}
			}
			toks = append(toks, Token{Kind: kind, Text: src[start:i], Pos: start, Space: space})
		case ch == '\'' || ch == '"':
			end, parts, err := lexString(src, i)
			if err != nil {
				return nil, err
			}
			i = end
			toks = append(toks, Token{Kind: TokString, Text: src[start:i], Pos: start, Space: space, Parts: parts})
		default:
			op := ""
			for _, o := range operators {
				if strings.HasPrefix(src[i:], o) {
					op = o
					break
				}
			}
			if op == "" {
				return nil, fmt.Errorf("unexpected character %q at offset %d", ch, i)
			}
			i += len(op)
			toks = append(toks, Token{Kind: TokOp, Text: op, Pos: start, Space: space})
		}
		space = false
	}
	return toks, nil
}

// lexString scans the literal starting at src[start] and returns the offset
// just past the closing quote plus its decoded parts.
func lexString(src string, start int) (int, []StrPart, error) {
	quote := src[start]
	var parts []StrPart
	var lit strings.Builder
	flush := func() {
		if lit.Len() > 0 {
			parts = append(parts, StrPart{Lit: lit.String()})
			lit.Reset()
		}
	}
	i := start + 1
	for i < len(src) {
		ch := src[i]
		switch {
		case ch == quote:
			flush()
			if len(parts) == 0 {
				parts = []StrPart{{}}
			}
			return i + 1, parts, nil
		case ch == '\\' && i+1 < len(src):
			next := src[i+1]
			if quote == '\'' {
				if next == '\'' || next == '\\' {
					lit.WriteByte(next)
				} else {
					lit.WriteByte('\\')
					lit.WriteByte(next)
				}
			} else {
				switch next {
				case 'n':
					lit.WriteByte('\n')
				case 't':
					lit.WriteByte('\t')
				case 'r':
					lit.WriteByte('\r')
				case '"', '\\', '$':
					lit.WriteByte(next)
				default:
					lit.WriteByte('\\')
					lit.WriteByte(next)
				}
			}
			i += 2
		case ch == '$' && quote == '"' && i+1 < len(src) && scanner.IsIdentStart(src[i+1]):
			flush()
			j := i + 1
			for j < len(src) && scanner.IsIdentByte(src[j]) {
				j++
			}
			parts = append(parts, StrPart{Var: src[i+1 : j]})
			i = j
		default:
			lit.WriteByte(ch)
			i++
		}
	}
	return 0, nil, fmt.Errorf("unterminated string literal at offset %d", start)
}
