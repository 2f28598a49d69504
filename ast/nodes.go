// Package ast defines the syntax tree of a compiled template: literal text,
// output tags, statements, control blocks and template functions, plus the
// expression nodes they carry.
package ast

// Node is the interface for all AST nodes.
type Node interface {
	node()
}

// Statement is the interface for template-level nodes.
type Statement interface {
	Node
	stmt()
	StmtLine() int
}

// BaseStmt provides common fields for all statements.
type BaseStmt struct {
	SourceLine int // line in the original template source
}

func (b BaseStmt) StmtLine() int { return b.SourceLine }

// Expr is the interface for expression nodes.
type Expr interface {
	Node
	expr()
}

// Template is the root node of one compiled fragment.
type Template struct {
	Name  string
	Body  []Statement
	Funcs []*FuncStmt // hoisted function declarations
}

func (t *Template) node() {}

// EchoMode selects how an output tag converts its value.
type EchoMode int

const (
	// Raw is {{$expr}}: string form, unescaped.
	Raw EchoMode = iota
	// Escape is {$expr}: string form, HTML-escaped; undefined is "".
	Escape
	// Guard is {expr}: "" for booleans and structured values.
	Guard
	// Plain is {expr)}: string form unconditionally.
	Plain
)

func (m EchoMode) String() string {
	switch m {
	case Raw:
		return "raw"
	case Escape:
		return "escape"
	case Guard:
		return "guard"
	case Plain:
		return "plain"
	}
	return "unknown"
}

// TextStmt is literal text copied to the output.
type TextStmt struct {
	BaseStmt
	Text string
}

// EchoStmt writes the value of an expression.
type EchoStmt struct {
	BaseStmt
	Mode EchoMode
	X    Expr
}

// ExprStmt evaluates an expression for its side effects ({@expr}).
type ExprStmt struct {
	BaseStmt
	X Expr
}

// IfBranch is one if/elseif arm.
type IfBranch struct {
	Line int
	Cond Expr
	Body []Statement
}

// IfStmt is {if}...{elseif}...{else}...{endif}.
type IfStmt struct {
	BaseStmt
	Branches []IfBranch
	Else     []Statement
}

// ForeachStmt is {foreach X as $Val} or {foreach X as $Key => $Val}.
type ForeachStmt struct {
	BaseStmt
	X    Expr
	Key  string // empty when no key variable
	Val  string
	Body []Statement
}

// WhileStmt is {while Cond}...{endwhile}.
type WhileStmt struct {
	BaseStmt
	Cond Expr
	Body []Statement
}

// ForStmt is {for Init; Cond; Step}...{endfor}.
type ForStmt struct {
	BaseStmt
	Init []Expr
	Cond []Expr // last value decides; empty means true
	Step []Expr
	Body []Statement
}

// CaseClause is one {case X} arm; X is nil for {default}.
type CaseClause struct {
	Line int
	X    Expr
	Body []Statement
}

// SwitchStmt is {switch X}{case ...}...{endswitch}.
type SwitchStmt struct {
	BaseStmt
	X     Expr
	Cases []CaseClause
}

// Param is a template function parameter.
type Param struct {
	Name    string
	Default Expr // nil when required
}

// FuncStmt is {function name(params)}...{endfunction}.
type FuncStmt struct {
	BaseStmt
	Name   string
	Params []Param
	Body   []Statement
}

// BranchStmt is {@break} or {@continue}.
type BranchStmt struct {
	BaseStmt
	Continue bool
}

// ReturnStmt is {@return expr}. X may be nil.
type ReturnStmt struct {
	BaseStmt
	X Expr
}

func (s *TextStmt) node()    {}
func (s *TextStmt) stmt()    {}
func (s *EchoStmt) node()    {}
func (s *EchoStmt) stmt()    {}
func (s *ExprStmt) node()    {}
func (s *ExprStmt) stmt()    {}
func (s *IfStmt) node()      {}
func (s *IfStmt) stmt()      {}
func (s *ForeachStmt) node() {}
func (s *ForeachStmt) stmt() {}
func (s *WhileStmt) node()   {}
func (s *WhileStmt) stmt()   {}
func (s *ForStmt) node()     {}
func (s *ForStmt) stmt()     {}
func (s *SwitchStmt) node()  {}
func (s *SwitchStmt) stmt()  {}
func (s *FuncStmt) node()    {}
func (s *FuncStmt) stmt()    {}
func (s *BranchStmt) node()  {}
func (s *BranchStmt) stmt()  {}
func (s *ReturnStmt) node()  {}
func (s *ReturnStmt) stmt()  {}

// --- Expressions ---

// VarExpr is $name.
type VarExpr struct {
	Name string
}

// NameExpr is a bare identifier, only valid as the callee of a call.
type NameExpr struct {
	Name string
}

// LitExpr is a scalar literal: int, float64, string, bool or nil.
type LitExpr struct {
	Value any
	Raw   string // source spelling
}

// ArrayItem is one element of an array literal. Key is nil for positional items.
type ArrayItem struct {
	Key Expr
	Val Expr
}

// ArrayExpr is [a, 'k' => v].
type ArrayExpr struct {
	Items []ArrayItem
}

// MemberExpr is X.Name, produced by the path resolver.
type MemberExpr struct {
	X    Expr
	Name string
}

// IndexExpr is X[Index].
type IndexExpr struct {
	X     Expr
	Index Expr
}

// CallExpr is Fn(Args). Fn is a NameExpr (function), a MemberExpr (method)
// or any other expression yielding a callable.
type CallExpr struct {
	Fn   Expr
	Args []Expr
}

// UnaryExpr is Op X for ! - +.
type UnaryExpr struct {
	Op string
	X  Expr
}

// BinaryExpr is L Op R.
type BinaryExpr struct {
	Op string
	L  Expr
	R  Expr
}

// TernaryExpr is Cond ? Then : Else. Then is nil for Cond ?: Else.
type TernaryExpr struct {
	Cond Expr
	Then Expr
	Else Expr
}

// AssignExpr is Target Op Value for = += -= .=.
type AssignExpr struct {
	Op     string
	Target Expr
	Value  Expr
}

// IncDecExpr is Target++ / Target-- (or prefix).
type IncDecExpr struct {
	Op     string // "++" or "--"
	Target Expr
	Prefix bool
}

func (e *VarExpr) node()     {}
func (e *VarExpr) expr()     {}
func (e *NameExpr) node()    {}
func (e *NameExpr) expr()    {}
func (e *LitExpr) node()     {}
func (e *LitExpr) expr()     {}
func (e *ArrayExpr) node()   {}
func (e *ArrayExpr) expr()   {}
func (e *MemberExpr) node()  {}
func (e *MemberExpr) expr()  {}
func (e *IndexExpr) node()   {}
func (e *IndexExpr) expr()   {}
func (e *CallExpr) node()    {}
func (e *CallExpr) expr()    {}
func (e *UnaryExpr) node()   {}
func (e *UnaryExpr) expr()   {}
func (e *BinaryExpr) node()  {}
func (e *BinaryExpr) expr()  {}
func (e *TernaryExpr) node() {}
func (e *TernaryExpr) expr() {}
func (e *AssignExpr) node()  {}
func (e *AssignExpr) expr()  {}
func (e *IncDecExpr) node()  {}
func (e *IncDecExpr) expr()  {}
