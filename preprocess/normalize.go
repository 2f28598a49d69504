// Package preprocess implements the textual passes that run before a
// template is tokenized: comment stripping, neutralization of embedded
// executable spans, closer canonicalization and pseudo-function rewriting.
//
// Every pass that can change the number of lines returns a line map so
// later stages report positions in the original source.
package preprocess

import (
	"regexp"
	"strings"

	"github.com/rubiojr/tplc/value"
)

// Keywords are the reserved control words of the template language.
// Pseudo-functions may not use these names.
var Keywords = map[string]bool{
	"if": true, "elseif": true, "else": true, "endif": true,
	"foreach": true, "endforeach": true, "as": true,
	"while": true, "endwhile": true,
	"for": true, "endfor": true,
	"switch": true, "case": true, "default": true, "endswitch": true,
	"function": true, "endfunction": true,
	"break": true, "continue": true, "return": true,
	"true": true, "false": true, "null": true,
	"and": true, "or": true,
}

// ControlHeaders are the keywords that open a block taking an expression.
var ControlHeaders = []string{"if", "elseif", "foreach", "while", "for", "switch"}

var (
	commentRe = regexp.MustCompile(`(?s)\{\*.*?\*\}`)
	foreignRe = regexp.MustCompile(`(?s)<\?.*?\?>`)
	closerRe  = regexp.MustCompile(`(?i)\{/(if|foreach|while|for|switch|function)\}`)
)

// Normalize strips comments, escapes embedded <? ... ?> spans so they render
// as inert text, and rewrites {/if} style closers to {endif}. The returned
// line map holds, for each line of the result, the 1-based line of the
// original source it came from.
func Normalize(src string) (string, []int) {
	out, lines := stripComments(src)
	out = foreignRe.ReplaceAllStringFunc(out, value.EscapeHTML)
	out = closerRe.ReplaceAllStringFunc(out, func(m string) string {
		kw := strings.ToLower(m[2 : len(m)-1])
		return "{end" + kw + "}"
	})
	return out, lines
}

// stripComments removes {* ... *} spans. Newlines inside a comment are
// dropped, so the line map records where each surviving line started.
func stripComments(src string) (string, []int) {
	var sb strings.Builder
	lines := []int{1}
	orig := 1
	last := 0
	emit := func(s string) {
		for i := 0; i < len(s); i++ {
			sb.WriteByte(s[i])
			if s[i] == '\n' {
				orig++
				lines = append(lines, orig)
			}
		}
	}
	for _, m := range commentRe.FindAllStringIndex(src, -1) {
		emit(src[last:m[0]])
		orig += strings.Count(src[m[0]:m[1]], "\n")
		if out := sb.String(); out == "" || out[len(out)-1] == '\n' {
			lines[len(lines)-1] = orig
		}
		last = m[1]
	}
	emit(src[last:])
	return sb.String(), lines
}

// OrigLine maps a 1-based line of normalized text back to the source.
func OrigLine(lines []int, line int) int {
	if line < 1 || len(lines) == 0 {
		return line
	}
	if line > len(lines) {
		return lines[len(lines)-1] + line - len(lines)
	}
	return lines[line-1]
}
