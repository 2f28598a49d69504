package ast

import (
	"strconv"
	"strings"
)

// Format renders an expression in canonical code form. Member access is
// written as $x->{'name'}, the form dotted paths resolve to.
func Format(e Expr) string {
	var sb strings.Builder
	formatExpr(&sb, e)
	return sb.String()
}

func formatExpr(sb *strings.Builder, e Expr) {
	switch n := e.(type) {
	case nil:
		sb.WriteString("null")
	case *VarExpr:
		sb.WriteString("$" + n.Name)
	case *NameExpr:
		sb.WriteString(n.Name)
	case *LitExpr:
		sb.WriteString(formatLit(n))
	case *ArrayExpr:
		sb.WriteByte('[')
		for i, it := range n.Items {
			if i > 0 {
				sb.WriteString(", ")
			}
			if it.Key != nil {
				formatExpr(sb, it.Key)
				sb.WriteString(" => ")
			}
			formatExpr(sb, it.Val)
		}
		sb.WriteByte(']')
	case *MemberExpr:
		formatOperand(sb, n.X)
		sb.WriteString("->{'" + n.Name + "'}")
	case *IndexExpr:
		formatOperand(sb, n.X)
		sb.WriteByte('[')
		formatExpr(sb, n.Index)
		sb.WriteByte(']')
	case *CallExpr:
		formatOperand(sb, n.Fn)
		sb.WriteByte('(')
		for i, a := range n.Args {
			if i > 0 {
				sb.WriteString(", ")
			}
			formatExpr(sb, a)
		}
		sb.WriteByte(')')
	case *UnaryExpr:
		sb.WriteString(n.Op)
		formatOperand(sb, n.X)
	case *BinaryExpr:
		formatOperand(sb, n.L)
		sb.WriteString(" " + n.Op + " ")
		formatOperand(sb, n.R)
	case *TernaryExpr:
		formatOperand(sb, n.Cond)
		if n.Then == nil {
			sb.WriteString(" ?: ")
		} else {
			sb.WriteString(" ? ")
			formatOperand(sb, n.Then)
			sb.WriteString(" : ")
		}
		formatOperand(sb, n.Else)
	case *AssignExpr:
		formatExpr(sb, n.Target)
		sb.WriteString(" " + n.Op + " ")
		formatExpr(sb, n.Value)
	case *IncDecExpr:
		if n.Prefix {
			sb.WriteString(n.Op)
			formatExpr(sb, n.Target)
		} else {
			formatExpr(sb, n.Target)
			sb.WriteString(n.Op)
		}
	}
}

// formatOperand parenthesizes compound operands.
func formatOperand(sb *strings.Builder, e Expr) {
	switch e.(type) {
	case *BinaryExpr, *TernaryExpr, *AssignExpr:
		sb.WriteByte('(')
		formatExpr(sb, e)
		sb.WriteByte(')')
	default:
		formatExpr(sb, e)
	}
}

func formatLit(n *LitExpr) string {
	if n.Raw != "" {
		return n.Raw
	}
	switch v := n.Value.(type) {
	case nil:
		return "null"
	case bool:
		return strconv.FormatBool(v)
	case string:
		return "'" + strings.ReplaceAll(strings.ReplaceAll(v, `\`, `\\`), "'", `\'`) + "'"
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	return "null"
}

// Code renders the compiled form of a single statement header, as written
// to diagnostics next to the original template line.
func Code(s Statement) string {
	switch n := s.(type) {
	case *TextStmt:
		return "echo " + strconv.Quote(n.Text) + ";"
	case *EchoStmt:
		x := Format(n.X)
		switch n.Mode {
		case Raw:
			return "echo (string)" + x + ";"
		case Escape:
			return "echo htmlspecialchars(isset(" + x + ") ? (string)" + x + " : \"\");"
		case Guard:
			return "echo (!is_bool(" + x + ") && !is_object(" + x + ") ? (string)" + x + " : \"\");"
		default:
			return "echo (string)" + x + ";"
		}
	case *ExprStmt:
		return Format(n.X) + ";"
	case *IfStmt:
		if len(n.Branches) == 0 {
			return "if ():"
		}
		return "if (" + Format(n.Branches[0].Cond) + "):"
	case *ForeachStmt:
		if n.Key != "" {
			return "foreach (" + Format(n.X) + " as $" + n.Key + " => $" + n.Val + "):"
		}
		return "foreach (" + Format(n.X) + " as $" + n.Val + "):"
	case *WhileStmt:
		return "while (" + Format(n.Cond) + "):"
	case *ForStmt:
		return "for (" + formatList(n.Init) + "; " + formatList(n.Cond) + "; " + formatList(n.Step) + "):"
	case *SwitchStmt:
		return "switch (" + Format(n.X) + "):"
	case *FuncStmt:
		var params []string
		for _, p := range n.Params {
			if p.Default != nil {
				params = append(params, "$"+p.Name+" = "+Format(p.Default))
			} else {
				params = append(params, "$"+p.Name)
			}
		}
		return "function " + n.Name + "(" + strings.Join(params, ", ") + ") {"
	case *BranchStmt:
		if n.Continue {
			return "continue;"
		}
		return "break;"
	case *ReturnStmt:
		if n.X == nil {
			return "return;"
		}
		return "return " + Format(n.X) + ";"
	}
	return ""
}

func formatList(list []Expr) string {
	parts := make([]string, len(list))
	for i, e := range list {
		parts[i] = Format(e)
	}
	return strings.Join(parts, ", ")
}
