package parser

// ResolvePaths folds dotted property chains into member tokens. A '.' is a
// member access when it is glued on both sides: to a variable, a member, a
// closing ')' or ']' on the left and to an identifier or digits on the
// right. Any other dot stays the concatenation operator. Malformed chains
// such as $a..b are left as they are for the parser to reject.
func ResolvePaths(toks []Token) []Token {
	out := make([]Token, 0, len(toks))
	for i := 0; i < len(toks); i++ {
		t := toks[i]
		if t.Kind == TokOp && t.Text == "." && !t.Space && len(out) > 0 && i+1 < len(toks) {
			prev := out[len(out)-1]
			next := toks[i+1]
			if chainable(prev) && !next.Space && (next.Kind == TokIdent || next.Kind == TokInt) {
				out = append(out, Token{Kind: TokMember, Text: next.Text, Pos: t.Pos})
				i++
				continue
			}
		}
		out = append(out, t)
	}
	return out
}

func chainable(t Token) bool {
	switch t.Kind {
	case TokVar, TokMember:
		return true
	case TokOp:
		return t.Text == ")" || t.Text == "]"
	}
	return false
}
