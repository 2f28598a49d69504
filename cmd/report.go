package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"

	"github.com/agext/levenshtein"
	"github.com/gookit/color"
	"golang.org/x/term"
	"modernc.org/scanner"

	"github.com/rubiojr/tplc/compiler"
	"github.com/rubiojr/tplc/template"
)

var undefinedFuncRe = regexp.MustCompile(`Call to undefined function (\w+)\(\)`)

// reportFault writes the fault diagnostic to stderr, colored when stderr
// is a terminal, with a suggestion for misspelled function names.
func (a *app) reportFault(f *template.Fault, names []string) {
	colored := useColor(a.stderr)
	paint := func(c color.Color, s string) string {
		if !colored {
			return s
		}
		return c.Sprint(s)
	}
	fmt.Fprintf(a.stderr, "%s %s\n", paint(color.Red, "fault:"), f.Msg)
	fmt.Fprintf(a.stderr, "  %s %s\n", paint(color.Cyan, fmt.Sprintf("%s:%d:", f.Template, f.Line)), f.Source)
	if f.Code != "" {
		fmt.Fprintf(a.stderr, "  %s %s\n", paint(color.Gray, "compiled:"), f.Code)
	}
	// Syntax faults carry every error the parser collected; the first one
	// is the fault itself.
	var el scanner.ErrList
	if errors.As(f.Err, &el) && len(el) > 1 {
		for _, e := range el[1:] {
			fmt.Fprintf(a.stderr, "  %s\n", paint(color.Gray, e.Error()))
		}
	}
	if m := undefinedFuncRe.FindStringSubmatch(f.Msg); m != nil {
		if s := suggest(m[1], names); s != "" {
			fmt.Fprintf(a.stderr, "  %s\n", paint(color.Yellow, fmt.Sprintf("did you mean %s()?", s)))
		}
	}
}

// candidates lists the function names a template can call.
func candidates(eng *template.Engine) []string {
	return append(eng.Bindings().Names(), compiler.Builtins()...)
}

// suggest returns the candidate closest to name within an edit distance
// of two, or "".
func suggest(name string, candidates []string) string {
	best, bestDist := "", 3
	for _, c := range candidates {
		if d := levenshtein.Distance(name, c, nil); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

func useColor(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
