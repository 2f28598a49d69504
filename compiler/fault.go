package compiler

import (
	"fmt"
	"strings"
)

// Level is the severity of a diagnostic raised while compiling or running
// a template.
type Level int

const (
	// Notice diagnostics (undefined variable, member or index) are logged
	// and execution continues.
	Notice Level = iota
	// Fatal diagnostics abort the render.
	Fatal
)

func (l Level) String() string {
	if l == Notice {
		return "notice"
	}
	return "fatal"
}

// Fault is a diagnostic tied to an original template line. Fatal faults
// are returned as errors; their Diagnostic text replaces the document.
type Fault struct {
	Level    Level
	Msg      string
	Template string
	Line     int
	Source   string // original template line
	Code     string // compiled form of the failing node
	Err      error  // underlying cause, if any
}

func (f *Fault) Error() string {
	return fmt.Sprintf("%s:%d: %s", f.Template, f.Line, f.Msg)
}

func (f *Fault) Unwrap() error { return f.Err }

// Diagnostic renders the message, the original line and its compiled form.
func (f *Fault) Diagnostic() string {
	var sb strings.Builder
	sb.WriteString(f.Msg)
	sb.WriteString("\n\n")
	fmt.Fprintf(&sb, "%s:%d: %s", f.Template, f.Line, f.Source)
	if f.Code != "" {
		sb.WriteString("\n\nCompiled:\n\n")
		sb.WriteString(f.Code)
	}
	sb.WriteString("\n")
	return sb.String()
}

// sourceLine returns line n (1-based) of src, or "".
func sourceLine(lines []string, n int) string {
	if n < 1 || n > len(lines) {
		return ""
	}
	return strings.TrimRight(lines[n-1], "\r")
}
