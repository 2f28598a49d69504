package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name string
		expr Expr
		want string
	}{
		{"var", &VarExpr{Name: "x"}, "$x"},
		{"member", &MemberExpr{X: &VarExpr{Name: "user"}, Name: "name"}, "$user->{'name'}"},
		{"chain", &MemberExpr{X: &MemberExpr{X: &VarExpr{Name: "a"}, Name: "b"}, Name: "c"}, "$a->{'b'}->{'c'}"},
		{"index", &IndexExpr{X: &VarExpr{Name: "a"}, Index: &LitExpr{Value: "k"}}, "$a['k']"},
		{"call", &CallExpr{Fn: &NameExpr{Name: "count"}, Args: []Expr{&VarExpr{Name: "a"}}}, "count($a)"},
		{"binary nested", &BinaryExpr{Op: "+", L: &LitExpr{Value: 1}, R: &BinaryExpr{Op: "*", L: &LitExpr{Value: 2}, R: &LitExpr{Value: 3}}}, "1 + (2 * 3)"},
		{"ternary", &TernaryExpr{Cond: &VarExpr{Name: "c"}, Then: &LitExpr{Value: "y"}, Else: &LitExpr{Value: "n"}}, "$c ? 'y' : 'n'"},
		{"array", &ArrayExpr{Items: []ArrayItem{{Val: &LitExpr{Value: 1}}, {Key: &LitExpr{Value: "k"}, Val: &LitExpr{Value: true}}}}, "[1, 'k' => true]"},
		{"raw literal", &LitExpr{Value: 1.5, Raw: "1.50"}, "1.50"},
		{"quoted", &LitExpr{Value: "it's"}, `'it\'s'`},
		{"postfix", &IncDecExpr{Op: "++", Target: &VarExpr{Name: "i"}}, "$i++"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(tt.expr))
		})
	}
}

func TestCode(t *testing.T) {
	x := &VarExpr{Name: "name"}
	assert.Equal(t, "echo (string)$name;", Code(&EchoStmt{Mode: Raw, X: x}))
	assert.Equal(t, `echo htmlspecialchars(isset($name) ? (string)$name : "");`, Code(&EchoStmt{Mode: Escape, X: x}))
	assert.Equal(t, "foreach ($items as $k => $v):", Code(&ForeachStmt{X: &VarExpr{Name: "items"}, Key: "k", Val: "v"}))
	assert.Equal(t, "function f($a, $b = 1) {", Code(&FuncStmt{Name: "f", Params: []Param{{Name: "a"}, {Name: "b", Default: &LitExpr{Value: 1}}}}))
}

func TestBranchCheck(t *testing.T) {
	loop := &Template{Body: []Statement{
		&ForeachStmt{X: &VarExpr{Name: "a"}, Val: "v", Body: []Statement{
			&IfStmt{Branches: []IfBranch{{Cond: &VarExpr{Name: "v"}, Body: []Statement{&BranchStmt{}}}}},
		}},
	}}
	require.NoError(t, DefaultChecks.Run(loop))

	bare := &Template{Body: []Statement{&BranchStmt{BaseStmt: BaseStmt{SourceLine: 3}, Continue: true}}}
	err := DefaultChecks.Run(bare)
	require.Error(t, err)
	var le *LineError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, 3, le.Line)
	assert.Contains(t, err.Error(), "'continue' not in the 'loop' context")

	inSwitch := &Template{Body: []Statement{&SwitchStmt{X: &VarExpr{Name: "x"}, Cases: []CaseClause{{Body: []Statement{&BranchStmt{}}}}}}}
	require.NoError(t, DefaultChecks.Run(inSwitch))
}

func TestFuncCheck(t *testing.T) {
	dup := &Template{Funcs: []*FuncStmt{{Name: "f"}, {BaseStmt: BaseStmt{SourceLine: 9}, Name: "f"}}}
	err := FuncCheck{}.Check(dup)
	require.Error(t, err)
	assert.Equal(t, "9: cannot redeclare f()", err.Error())

	params := &Template{Funcs: []*FuncStmt{{Name: "g", Params: []Param{{Name: "a"}, {Name: "a"}}}}}
	assert.ErrorContains(t, FuncCheck{}.Check(params), "redefinition of parameter $a")
}
