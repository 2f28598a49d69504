// Package doc extracts documentation from template sources.
//
// It works on raw template text, before normalization strips comments.
// The extraction rule is simple: a {* ... *} comment immediately before a
// {function name(params)} definition (no blank line gap) is attached as the
// doc comment for that function. The first comment before any other
// content is the file-level doc.
package doc

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// FileDoc holds all extracted documentation for a single template.
type FileDoc struct {
	Path  string
	Doc   string // file-level doc
	Funcs []FuncDoc
}

// FuncDoc describes a template-defined function.
type FuncDoc struct {
	Name   string   // e.g. "card"
	Params []string // parameters as written, e.g. "$title", "$level = 1"
	Doc    string
	Line   int // 1-based line number of the {function} tag
}

// ExtractFile reads a template file and extracts its documentation.
func ExtractFile(path string) (*FileDoc, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Extract(string(data), path), nil
}

// ExtractDir extracts every .tpl file in dir (non-recursive). Functions
// are aggregated in file name order; the file-level doc is the first one
// found.
func ExtractDir(dir string) (*FileDoc, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	result := &FileDoc{Path: dir}
	for _, e := range entries {
		if e.IsDir() || !isTemplateFile(e.Name()) {
			continue
		}
		fd, err := ExtractFile(filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		if result.Doc == "" {
			result.Doc = fd.Doc
		}
		result.Funcs = append(result.Funcs, fd.Funcs...)
	}
	return result, nil
}

var (
	commentRe  = regexp.MustCompile(`(?s)\{\*(.*?)\*\}`)
	functionRe = regexp.MustCompile(`(?i)\{function\s+([A-Za-z_][A-Za-z0-9_]*)\s*\(([^)]*)\)\s*\}`)
)

type span struct {
	start, end int
	comment    string
	fn         *FuncDoc
}

// Extract parses raw template source and returns structured documentation.
func Extract(src, path string) *FileDoc {
	fd := &FileDoc{Path: path}

	var spans []span
	comments := commentRe.FindAllStringSubmatchIndex(src, -1)
	for _, m := range comments {
		spans = append(spans, span{start: m[0], end: m[1], comment: cleanComment(src[m[2]:m[3]])})
	}
	for _, m := range functionRe.FindAllStringSubmatchIndex(src, -1) {
		if insideComment(comments, m[0]) {
			continue
		}
		spans = append(spans, span{start: m[0], end: m[1], fn: &FuncDoc{
			Name:   src[m[2]:m[3]],
			Params: splitParams(src[m[4]:m[5]]),
			Line:   1 + strings.Count(src[:m[0]], "\n"),
		}})
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })

	seenContent := false
	var pending *span
	prev := 0
	for i := range spans {
		s := &spans[i]
		gap := src[prev:s.start]
		if strings.TrimSpace(gap) != "" {
			seenContent = true
		}
		if s.fn != nil {
			if pending != nil && attached(gap) {
				s.fn.Doc = pending.comment
			}
			fd.Funcs = append(fd.Funcs, *s.fn)
			pending = nil
			seenContent = true
		} else {
			if !seenContent && fd.Doc == "" {
				fd.Doc = s.comment
			}
			pending = s
		}
		prev = s.end
	}
	return fd
}

// attached reports whether gap separates a comment from the next tag by
// whitespace only, with no blank line.
func attached(gap string) bool {
	return strings.TrimSpace(gap) == "" && strings.Count(gap, "\n") <= 1
}

func insideComment(comments [][]int, pos int) bool {
	for _, m := range comments {
		if pos >= m[0] && pos < m[1] {
			return true
		}
	}
	return false
}

// cleanComment trims each line and drops leading "*" decorations.
func cleanComment(text string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	out := lines[:0]
	for _, l := range lines {
		l = strings.TrimSpace(l)
		l = strings.TrimSpace(strings.TrimPrefix(l, "*"))
		out = append(out, l)
	}
	return strings.Join(out, "\n")
}

func splitParams(s string) []string {
	var params []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			params = append(params, p)
		}
	}
	return params
}

// isTemplateFile returns true if the filename has the template extension.
func isTemplateFile(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".tpl")
}

// Signature renders the definition tag of f.
func (f FuncDoc) Signature() string {
	return "{function " + f.Name + "(" + strings.Join(f.Params, ", ") + ")}"
}

// LookupSymbol finds a template function by name in a FileDoc.
func LookupSymbol(fd *FileDoc, name string) (doc string, signature string, found bool) {
	for _, f := range fd.Funcs {
		if f.Name == name {
			return f.Doc, f.Signature(), true
		}
	}
	return "", "", false
}
