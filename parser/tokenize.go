package parser

import (
	"strings"

	"github.com/rubiojr/tplc/scanner"
)

// ItemKind classifies a segment of template text.
type ItemKind int

const (
	ItemText    ItemKind = iota
	ItemRaw              // {{$expr}}
	ItemEscape           // {$expr}
	ItemStmt             // {@stmt}
	ItemGuard            // {expr}
	ItemPlain            // {expr)}
	ItemControl          // {if ...}, {endif}, {function ...}, ...
)

var itemNames = map[ItemKind]string{
	ItemText: "text", ItemRaw: "raw", ItemEscape: "escape", ItemStmt: "stmt",
	ItemGuard: "guard", ItemPlain: "plain", ItemControl: "control",
}

func (k ItemKind) String() string { return itemNames[k] }

// Item is one segment of a template: literal text or a classified tag.
type Item struct {
	Kind    ItemKind
	Keyword string // control keyword for ItemControl
	Body    string // tag body without delimiters, keyword and sigils
	Raw     string // full source text of the segment
	Line    int    // line of the segment start in the tokenized text
	Offset  int    // byte offset of the segment start
}

// controlWords are the keywords that turn a tag into a control tag.
var controlWords = map[string]bool{
	"if": true, "elseif": true, "else": true, "endif": true,
	"foreach": true, "endforeach": true,
	"while": true, "endwhile": true,
	"for": true, "endfor": true,
	"switch": true, "case": true, "default": true, "endswitch": true,
	"function": true, "endfunction": true,
}

// Tokenize splits normalized template text into literal text and tags in a
// single pass. A '{' followed by whitespace, '}' or the end of input is
// literal, as is a '{' whose tag never closes.
func Tokenize(src string) []Item {
	var items []Item
	line := 1
	textStart, textLine := 0, 1
	flushText := func(end int) {
		if end > textStart {
			items = append(items, Item{Kind: ItemText, Raw: src[textStart:end], Body: src[textStart:end], Line: textLine, Offset: textStart})
		}
	}
	i := 0
	for i < len(src) {
		ch := src[i]
		if ch == '\n' {
			line++
			i++
			continue
		}
		if ch != '{' || i+1 >= len(src) || isSpace(src[i+1]) || src[i+1] == '}' {
			i++
			continue
		}
		if strings.HasPrefix(src[i:], "{{$") {
			if end := scanner.FindClose(src, i+3); end >= 0 && end+1 < len(src) && src[end+1] == '}' {
				flushText(i)
				items = append(items, Item{Kind: ItemRaw, Body: src[i+3 : end], Raw: src[i : end+2], Line: line, Offset: i})
				line += strings.Count(src[i:end+2], "\n")
				i = end + 2
				textStart, textLine = i, line
				continue
			}
		}
		end := scanner.FindClose(src, i+1)
		if end < 0 || src[i+1] == '{' {
			i++
			continue
		}
		flushText(i)
		it := classify(src[i+1:end], src[i:end+1], line)
		it.Offset = i
		items = append(items, it)
		line += strings.Count(src[i:end+1], "\n")
		i = end + 1
		textStart, textLine = i, line
	}
	flushText(len(src))
	return items
}

func classify(body, raw string, line int) Item {
	it := Item{Raw: raw, Line: line}
	switch body[0] {
	case '$':
		it.Kind, it.Body = ItemEscape, body[1:]
		return it
	case '@':
		it.Kind, it.Body = ItemStmt, body[1:]
		return it
	}
	if kw := leadingWord(body); controlWords[kw] {
		rest := body[len(kw):]
		if rest == "" || isSpace(rest[0]) || rest[0] == '(' {
			it.Kind, it.Keyword, it.Body = ItemControl, kw, strings.TrimSpace(rest)
			return it
		}
	}
	it.Body = body
	if strings.HasSuffix(strings.TrimRight(body, " \t\r\n"), ")") {
		it.Kind = ItemPlain
	} else {
		it.Kind = ItemGuard
	}
	return it
}

func leadingWord(s string) string {
	i := 0
	for i < len(s) && scanner.IsIdentByte(s[i]) {
		i++
	}
	return s[:i]
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}
