// Package scanner walks template text byte by byte while tracking quoted
// literals, so passes looking for tag delimiters or call names skip
// whatever sits inside '...' or "...".
package scanner

// Scanner reports, for each byte returned by Next, whether it belongs to a
// quoted literal. Both delimiters count as part of the literal. A backslash
// escapes the next byte inside a literal and is plain text outside one.
type Scanner struct {
	src    string
	pos    int
	quote  byte // delimiter of the open literal, 0 outside
	closed bool // the current byte closed a literal
	esc    bool
}

// New returns a Scanner positioned before the first byte of src.
func New(src string) *Scanner { return NewAt(src, 0) }

// NewAt returns a Scanner whose first Next call yields src[start]. No
// literal is open at start.
func NewAt(src string, start int) *Scanner {
	return &Scanner{src: src, pos: start - 1}
}

// Next advances one byte. It returns false at the end of input.
func (s *Scanner) Next() (byte, bool) {
	s.closed = false
	s.pos++
	if s.pos >= len(s.src) {
		return 0, false
	}
	ch := s.src[s.pos]
	switch {
	case s.quote == 0:
		if ch == '"' || ch == '\'' {
			s.quote = ch
		}
	case s.esc:
		s.esc = false
	case ch == '\\':
		s.esc = true
	case ch == s.quote:
		s.quote, s.closed = 0, true
	}
	return ch, true
}

// InString reports whether the current byte is part of a quoted literal.
func (s *Scanner) InString() bool { return s.quote != 0 || s.closed }

// Pos is the offset of the current byte, -1 before the first Next.
func (s *Scanner) Pos() int { return s.pos }

// FindClose returns the offset of the first '}' at or after start that is
// outside quoted literals, or -1. Tag bodies never nest braces.
func FindClose(src string, start int) int {
	s := NewAt(src, start)
	for ch, ok := s.Next(); ok; ch, ok = s.Next() {
		if ch == '}' && !s.InString() {
			return s.pos
		}
	}
	return -1
}

func IsIdentStart(ch byte) bool {
	return ch == '_' || (ch|0x20 >= 'a' && ch|0x20 <= 'z')
}

func IsIdentByte(ch byte) bool {
	return IsIdentStart(ch) || (ch >= '0' && ch <= '9')
}

// IsIdent reports whether s is a non-empty ASCII identifier.
func IsIdent(s string) bool {
	if s == "" || !IsIdentStart(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !IsIdentByte(s[i]) {
			return false
		}
	}
	return true
}
