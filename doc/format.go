package doc

import (
	"fmt"
	"strings"

	"github.com/mitchellh/go-wordwrap"

	"github.com/rubiojr/tplc/modules"
)

// FormatFile formats a FileDoc for terminal display.
func FormatFile(fd *FileDoc) string {
	var sb strings.Builder

	if fd.Doc != "" {
		sb.WriteString(fd.Doc)
		sb.WriteString("\n\n")
	}

	for _, f := range fd.Funcs {
		if f.Doc == "" {
			continue
		}
		sb.WriteString(FormatSymbol(f.Doc, f.Signature()))
		sb.WriteString("\n")
	}

	return strings.TrimRight(sb.String(), "\n") + "\n"
}

// FormatSymbol formats a single symbol lookup result.
func FormatSymbol(docStr, signature string) string {
	var sb strings.Builder
	sb.WriteString(signature)
	sb.WriteString("\n")
	if docStr != "" {
		sb.WriteString("    ")
		sb.WriteString(strings.ReplaceAll(docStr, "\n", "\n    "))
		sb.WriteString("\n")
	}
	return sb.String()
}

// FormatBindings lists the pseudo-functions of t with their arity and
// doc, wrapping docs at width columns.
func FormatBindings(t *modules.Table, width uint) string {
	var sb strings.Builder
	sb.WriteString("Pseudo-functions:\n")
	for _, name := range t.Names() {
		b, _ := t.Get(name)
		fmt.Fprintf(&sb, "  %-16s %-6s %s\n", name, b.Arity(), b.Kind)
		if b.Doc != "" {
			wrapped := wordwrap.WrapString(b.Doc, width)
			sb.WriteString("      ")
			sb.WriteString(strings.ReplaceAll(wrapped, "\n", "\n      "))
			sb.WriteString("\n")
		}
	}
	return sb.String()
}
