package ast

import "fmt"

// Check validates an AST without modifying it.
type Check interface {
	Name() string
	Check(t *Template) error
}

// CheckChain runs checks in order, stopping at the first error.
type CheckChain []Check

// Run executes each check in sequence. Returns nil if all pass.
func (cc CheckChain) Run(t *Template) error {
	for _, c := range cc {
		if err := c.Check(t); err != nil {
			return err
		}
	}
	return nil
}

// LineError is a check failure tied to a template line.
type LineError struct {
	Line int
	Msg  string
}

func (e *LineError) Error() string { return fmt.Sprintf("%d: %s", e.Line, e.Msg) }

// DefaultChecks are run by the compiler after parsing.
var DefaultChecks = CheckChain{BranchCheck{}, FuncCheck{}}

// BranchCheck rejects break outside of a loop or switch and continue
// outside of a loop.
type BranchCheck struct{}

func (BranchCheck) Name() string { return "branch" }

func (BranchCheck) Check(t *Template) error {
	if err := checkBranches(t.Body, 0, 0); err != nil {
		return err
	}
	for _, f := range t.Funcs {
		if err := checkBranches(f.Body, 0, 0); err != nil {
			return err
		}
	}
	return nil
}

// checkBranches walks body tracking how many loops and switches enclose it.
// continue needs a loop; break accepts either.
func checkBranches(body []Statement, loops, switches int) error {
	for _, s := range body {
		var err error
		switch n := s.(type) {
		case *BranchStmt:
			if n.Continue && loops == 0 {
				return &LineError{Line: n.SourceLine, Msg: "'continue' not in the 'loop' context"}
			}
			if loops+switches == 0 {
				return &LineError{Line: n.SourceLine, Msg: "'break' not in the 'loop' or 'switch' context"}
			}
		case *IfStmt:
			for _, b := range n.Branches {
				if err = checkBranches(b.Body, loops, switches); err != nil {
					return err
				}
			}
			err = checkBranches(n.Else, loops, switches)
		case *ForeachStmt:
			err = checkBranches(n.Body, loops+1, switches)
		case *WhileStmt:
			err = checkBranches(n.Body, loops+1, switches)
		case *ForStmt:
			err = checkBranches(n.Body, loops+1, switches)
		case *SwitchStmt:
			for _, c := range n.Cases {
				if err = checkBranches(c.Body, loops, switches+1); err != nil {
					return err
				}
			}
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// FuncCheck rejects duplicate function declarations and duplicate or
// misordered parameters.
type FuncCheck struct{}

func (FuncCheck) Name() string { return "func" }

func (FuncCheck) Check(t *Template) error {
	seen := make(map[string]bool)
	for _, f := range t.Funcs {
		if seen[f.Name] {
			return &LineError{Line: f.SourceLine, Msg: fmt.Sprintf("cannot redeclare %s()", f.Name)}
		}
		seen[f.Name] = true
		params := make(map[string]bool)
		for _, p := range f.Params {
			if params[p.Name] {
				return &LineError{Line: f.SourceLine, Msg: fmt.Sprintf("redefinition of parameter $%s", p.Name)}
			}
			params[p.Name] = true
		}
	}
	return nil
}
