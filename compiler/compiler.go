// Package compiler orchestrates the template pipeline: normalization,
// pseudo-function rewriting, parsing, AST checks and generation of a
// closure tree (*Program) that the host interprets.
package compiler

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rubiojr/tplc/ast"
	"github.com/rubiojr/tplc/parser"
	"github.com/rubiojr/tplc/preprocess"
)

// Stage names recorded in the parser log.
const (
	StageSource    = "source"
	StageNormalize = "normalize"
	StagePseudo    = "pseudo"
	StageTokens    = "tokens"
	StageCode      = "code"
)

// LogEntry is one (stage, content) pair of the parser log.
type LogEntry struct {
	Template string
	Stage    string
	Content  string
}

// ParserLog is an append-only record of intermediate compilation results.
type ParserLog struct {
	mu      sync.Mutex
	entries []LogEntry
}

// Add appends an entry.
func (l *ParserLog) Add(template, stage, content string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, LogEntry{Template: template, Stage: stage, Content: content})
}

// Entries returns a copy of the log.
func (l *ParserLog) Entries() []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]LogEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Compiler compiles template sources into programs. The zero value is
// ready to use.
type Compiler struct {
	// Checks run on every parsed tree; nil means ast.DefaultChecks.
	Checks ast.CheckChain

	log ParserLog
}

// Log returns the parser log shared by every compilation of c.
func (c *Compiler) Log() *ParserLog { return &c.log }

// Compile runs the full pipeline over src. pseudo lists the registered
// pseudo-function names; Program.Pseudo reports those the template uses.
// Compile errors are returned as *Fault.
func (c *Compiler) Compile(name, src string, pseudo []string) (*Program, error) {
	c.log.Add(name, StageSource, src)

	normalized, lines := preprocess.Normalize(src)
	c.log.Add(name, StageNormalize, normalized)

	rewritten, used := preprocess.RewritePseudoFunctions(normalized, pseudo)
	c.log.Add(name, StagePseudo, rewritten)

	srcLines := strings.Split(src, "\n")
	p := &parser.Parser{Lines: lines}
	tree, err := p.Parse(name, rewritten)
	c.log.Add(name, StageTokens, formatItems(p.Items()))
	if err != nil {
		return nil, parseFault(name, srcLines, err)
	}

	checks := c.Checks
	if checks == nil {
		checks = ast.DefaultChecks
	}
	if err := checks.Run(tree); err != nil {
		f := &Fault{Level: Fatal, Msg: err.Error(), Template: name, Err: err}
		var le *ast.LineError
		if errors.As(err, &le) {
			f.Msg, f.Line, f.Source = le.Msg, le.Line, sourceLine(srcLines, le.Line)
		}
		return nil, f
	}

	prog := generate(tree, srcLines)
	prog.Pseudo = used
	c.log.Add(name, StageCode, prog.Code)
	return prog, nil
}

// parseFault reports the first syntax error of a parse error list. Err
// keeps the whole list.
func parseFault(name string, lines []string, err error) *Fault {
	first, ok := parser.FirstError(err)
	if !ok {
		return &Fault{Level: Fatal, Msg: err.Error(), Template: name, Err: err}
	}
	f := &Fault{Level: Fatal, Msg: first.Err.Error(), Template: name, Line: first.Pos.Line,
		Source: sourceLine(lines, first.Pos.Line), Err: err}
	var pe *parser.Error
	if errors.As(first.Err, &pe) {
		f.Code = pe.Source
	}
	return f
}

func formatItems(items []parser.Item) string {
	var sb strings.Builder
	for _, it := range items {
		fmt.Fprintf(&sb, "%d\t%s\t%q\n", it.Line, it.Kind, it.Raw)
	}
	return sb.String()
}
