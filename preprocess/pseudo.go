package preprocess

import (
	"strings"

	"github.com/rubiojr/tplc/scanner"
)

// TempPrefix prefixes the variable that carries a pseudo-function binding
// into compiled code.
const TempPrefix = "__pf_"

// TempName returns the temporary variable name bound to a pseudo-function.
func TempName(name string) string { return TempPrefix + name }

// RewritePseudoFunctions rewrites short custom-function calls into calls
// through a temporary variable ($__pf_<name>). For each name two passes run
// over every tag:
//
//	{name(args)...}            becomes {{$__pf_name(args)...}}
//	{if ... name(args) ...}    the first name( call in the header is rewritten
//
// Tags already written as {{name(...)}} or {@name(...)} keep their form and
// only have the name replaced. Only the first occurrence per tag is
// rewritten. The second return value lists the names that were rewritten at
// least once, in the order given.
func RewritePseudoFunctions(src string, names []string) (string, []string) {
	var used []string
	for _, name := range names {
		if name == "" {
			continue
		}
		var hit bool
		src, hit = rewriteName(src, name)
		if hit {
			used = append(used, name)
		}
	}
	return src, used
}

func rewriteName(src, name string) (string, bool) {
	var sb strings.Builder
	ref := "$" + TempName(name)
	hit := false
	last := 0
	for i := 0; i < len(src); i++ {
		if src[i] != '{' || i+1 >= len(src) || isSpace(src[i+1]) || src[i+1] == '}' {
			continue
		}
		if strings.HasPrefix(src[i:], "{{") {
			end := scanner.FindClose(src, i+2)
			if end < 0 || end+1 >= len(src) || src[end+1] != '}' {
				continue
			}
			body := src[i+2 : end]
			if callAt(body, 0, name) {
				sb.WriteString(src[last:i])
				sb.WriteString("{{" + ref + body[len(name):] + "}}")
				last, hit = end+2, true
			}
			i = end + 1
			continue
		}
		end := scanner.FindClose(src, i+1)
		if end < 0 {
			continue
		}
		body := src[i+1 : end]
		switch {
		case callAt(body, 0, name):
			sb.WriteString(src[last:i])
			sb.WriteString("{{" + ref + body[len(name):] + "}}")
			last, hit = end+1, true
		case strings.HasPrefix(body, "@") && callAt(body, 1, name):
			sb.WriteString(src[last:i])
			sb.WriteString("{@" + ref + body[1+len(name):] + "}")
			last, hit = end+1, true
		case controlHeader(body) != "":
			if at := findCall(body, name); at >= 0 {
				sb.WriteString(src[last:i])
				sb.WriteString("{" + body[:at] + ref + body[at+len(name):] + "}")
				last, hit = end+1, true
			}
		}
		i = end
	}
	if !hit {
		return src, false
	}
	sb.WriteString(src[last:])
	return sb.String(), true
}

// callAt reports whether body[at:] starts with name followed by '('.
func callAt(body string, at int, name string) bool {
	rest := body[at:]
	return strings.HasPrefix(rest, name) && len(rest) > len(name) && rest[len(name)] == '('
}

// controlHeader returns the control keyword a tag body starts with, or "".
func controlHeader(body string) string {
	for _, kw := range ControlHeaders {
		if strings.HasPrefix(body, kw) && len(body) > len(kw) && isSpace(body[len(kw)]) {
			return kw
		}
	}
	return ""
}

// findCall locates the first name( call outside string literals that is a
// bare function call: not part of a longer identifier, a variable or a
// member access.
func findCall(body, name string) int {
	sc := scanner.New(body)
	for _, ok := sc.Next(); ok; _, ok = sc.Next() {
		if sc.InString() {
			continue
		}
		p := sc.Pos()
		if !callAt(body, p, name) {
			continue
		}
		if p > 0 {
			prev := body[p-1]
			if scanner.IsIdentByte(prev) || prev == '$' || prev == '.' || prev == '>' {
				continue
			}
		}
		return p
	}
	return -1
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}
