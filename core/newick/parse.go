// core/newick/parse.go
package newick

import (
	"fmt"
	"strconv"
	"strings"
)

// SyntaxError reports malformed Newick input.
type SyntaxError struct {
	Offset int
	Msg    string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("newick: offset %d: %s", e.Offset, e.Msg)
}

type parser struct {
	s   string
	pos int
}

// Parse reads a single Newick tree. The terminating ';' is optional but
// nothing other than whitespace may follow it. Comments in square brackets
// are skipped.
func Parse(text string) (*Tree, error) {
	p := &parser{s: text}
	p.skip()
	if p.eof() {
		return nil, p.errorf("empty tree")
	}
	t, err := p.subtree()
	if err != nil {
		return nil, err
	}
	p.skip()
	if !p.eof() && p.peek() == ';' {
		p.pos++
		p.skip()
	}
	if !p.eof() {
		return nil, p.errorf("unexpected %q after tree", p.peek())
	}
	return t, nil
}

func (p *parser) subtree() (*Tree, error) {
	t := &Tree{}
	p.skip()
	if !p.eof() && p.peek() == '(' {
		p.pos++
		for {
			c, err := p.subtree()
			if err != nil {
				return nil, err
			}
			t.Children = append(t.Children, c)
			p.skip()
			if p.eof() {
				return nil, p.errorf("unterminated '('")
			}
			ch := p.peek()
			p.pos++
			if ch == ',' {
				continue
			}
			if ch == ')' {
				break
			}
			return nil, &SyntaxError{Offset: p.pos - 1, Msg: fmt.Sprintf("expected ',' or ')', got %q", ch)}
		}
	}
	label, err := p.label()
	if err != nil {
		return nil, err
	}
	t.Label = label
	p.skip()
	if !p.eof() && p.peek() == ':' {
		p.pos++
		p.skip()
		start := p.pos
		for !p.eof() && !strings.ContainsRune("(),:;[ \t\r\n", rune(p.peek())) {
			p.pos++
		}
		v, err := strconv.ParseFloat(p.s[start:p.pos], 64)
		if err != nil {
			return nil, &SyntaxError{Offset: start, Msg: fmt.Sprintf("bad branch length %q", p.s[start:p.pos])}
		}
		t.Length, t.HasLength = v, true
	}
	return t, nil
}

func (p *parser) label() (string, error) {
	p.skip()
	if p.eof() {
		return "", nil
	}
	if p.peek() == '\'' {
		start := p.pos
		p.pos++
		var b strings.Builder
		for {
			if p.eof() {
				return "", &SyntaxError{Offset: start, Msg: "unterminated quoted label"}
			}
			c := p.s[p.pos]
			p.pos++
			if c != '\'' {
				b.WriteByte(c)
				continue
			}
			if !p.eof() && p.peek() == '\'' {
				b.WriteByte('\'')
				p.pos++
				continue
			}
			return b.String(), nil
		}
	}
	start := p.pos
	for !p.eof() && !strings.ContainsRune("(),:;[' \t\r\n", rune(p.peek())) {
		p.pos++
	}
	return p.s[start:p.pos], nil
}

// skip consumes whitespace and [comments].
func (p *parser) skip() {
	for !p.eof() {
		switch c := p.peek(); {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			p.pos++
		case c == '[':
			end := strings.IndexByte(p.s[p.pos:], ']')
			if end < 0 {
				p.pos = len(p.s)
				return
			}
			p.pos += end + 1
		default:
			return
		}
	}
}

func (p *parser) eof() bool  { return p.pos >= len(p.s) }
func (p *parser) peek() byte { return p.s[p.pos] }

func (p *parser) errorf(format string, a ...any) error {
	return &SyntaxError{Offset: p.pos, Msg: fmt.Sprintf(format, a...)}
}
