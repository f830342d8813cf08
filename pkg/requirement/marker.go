package requirement

import (
	"fmt"
	"strings"
)

// Marker variables accepted in environment markers, including the legacy
// dotted spellings still found in older metadata.
var markerVars = map[string]bool{
	"python_version":                 true,
	"python_full_version":            true,
	"os_name":                        true,
	"sys_platform":                   true,
	"platform_release":               true,
	"platform_system":                true,
	"platform_version":               true,
	"platform_machine":               true,
	"platform_python_implementation": true,
	"implementation_name":            true,
	"implementation_version":         true,
	"extra":                          true,
	"os.name":                        true,
	"sys.platform":                   true,
	"platform.version":               true,
	"platform.machine":               true,
	"platform.python_implementation": true,
	"python_implementation":          true,
}

var markerOps = map[string]bool{
	"<": true, "<=": true, ">": true, ">=": true,
	"==": true, "!=": true, "~=": true, "===": true,
	"in": true, "not in": true,
}

type tokenKind int

const (
	tokVar tokenKind = iota
	tokString
	tokOp
	tokAnd
	tokOr
	tokLParen
	tokRParen
)

type token struct {
	kind tokenKind
	text string
}

// NormalizeMarker validates an environment marker and returns its canonical
// rendering: tokens separated by single spaces and string literals in double
// quotes, so "python_version<'3.4'" becomes `python_version < "3.4"`.
// The marker is never evaluated.
func NormalizeMarker(m string) (string, error) {
	toks, err := lexMarker(m)
	if err != nil {
		return "", err
	}
	if len(toks) == 0 {
		return "", fmt.Errorf("empty marker")
	}
	p := &markerParser{toks: toks}
	if err := p.expr(); err != nil {
		return "", err
	}
	if p.pos != len(toks) {
		return "", fmt.Errorf("unexpected %q", toks[p.pos].text)
	}
	return renderMarker(toks), nil
}

func lexMarker(s string) ([]token, error) {
	var toks []token
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == ' ' || c == '\t':
			i++
		case c == '(':
			toks = append(toks, token{tokLParen, "("})
			i++
		case c == ')':
			toks = append(toks, token{tokRParen, ")"})
			i++
		case c == '\'' || c == '"':
			end := strings.IndexByte(s[i+1:], c)
			if end < 0 {
				return nil, fmt.Errorf("unterminated string in marker %q", s)
			}
			toks = append(toks, token{tokString, s[i+1 : i+1+end]})
			i += end + 2
		case strings.IndexByte("<>=!~", c) >= 0:
			j := i
			for j < len(s) && strings.IndexByte("<>=!~", s[j]) >= 0 {
				j++
			}
			op := s[i:j]
			if !markerOps[op] {
				return nil, fmt.Errorf("invalid marker operator %q", op)
			}
			toks = append(toks, token{tokOp, op})
			i = j
		case isWordByte(c):
			j := i
			for j < len(s) && isWordByte(s[j]) {
				j++
			}
			word := s[i:j]
			i = j
			switch word {
			case "and":
				toks = append(toks, token{tokAnd, word})
			case "or":
				toks = append(toks, token{tokOr, word})
			case "in":
				toks = append(toks, token{tokOp, word})
			case "not":
				rest := strings.TrimLeft(s[i:], " \t")
				if !strings.HasPrefix(rest, "in") || (len(rest) > 2 && isWordByte(rest[2])) {
					return nil, fmt.Errorf("expected \"in\" after \"not\" in marker %q", s)
				}
				i = len(s) - len(rest) + 2
				toks = append(toks, token{tokOp, "not in"})
			default:
				if !markerVars[word] {
					return nil, fmt.Errorf("unknown marker variable %q", word)
				}
				toks = append(toks, token{tokVar, word})
			}
		default:
			return nil, fmt.Errorf("unexpected character %q in marker", c)
		}
	}
	return toks, nil
}

func isWordByte(c byte) bool {
	return c == '_' || c == '.' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

// markerParser checks the PEP 508 marker grammar:
//
//	expr  := and ("or" and)*
//	and   := atom ("and" atom)*
//	atom  := "(" expr ")" | value op value
//	value := variable | string
type markerParser struct {
	toks []token
	pos  int
}

func (p *markerParser) peek() (token, bool) {
	if p.pos >= len(p.toks) {
		return token{}, false
	}
	return p.toks[p.pos], true
}

func (p *markerParser) expr() error {
	if err := p.and(); err != nil {
		return err
	}
	for t, ok := p.peek(); ok && t.kind == tokOr; t, ok = p.peek() {
		p.pos++
		if err := p.and(); err != nil {
			return err
		}
	}
	return nil
}

func (p *markerParser) and() error {
	if err := p.atom(); err != nil {
		return err
	}
	for t, ok := p.peek(); ok && t.kind == tokAnd; t, ok = p.peek() {
		p.pos++
		if err := p.atom(); err != nil {
			return err
		}
	}
	return nil
}

func (p *markerParser) atom() error {
	t, ok := p.peek()
	if !ok {
		return fmt.Errorf("unexpected end of marker")
	}
	if t.kind == tokLParen {
		p.pos++
		if err := p.expr(); err != nil {
			return err
		}
		if t, ok := p.peek(); !ok || t.kind != tokRParen {
			return fmt.Errorf("missing closing parenthesis in marker")
		}
		p.pos++
		return nil
	}
	if err := p.value(); err != nil {
		return err
	}
	if t, ok := p.peek(); !ok || t.kind != tokOp {
		return fmt.Errorf("expected comparison operator in marker")
	}
	p.pos++
	return p.value()
}

func (p *markerParser) value() error {
	t, ok := p.peek()
	if !ok || (t.kind != tokVar && t.kind != tokString) {
		return fmt.Errorf("expected marker variable or string")
	}
	p.pos++
	return nil
}

func renderMarker(toks []token) string {
	var b strings.Builder
	for i, t := range toks {
		if i > 0 && toks[i-1].kind != tokLParen && t.kind != tokRParen {
			b.WriteByte(' ')
		}
		if t.kind == tokString {
			q := `"`
			if strings.Contains(t.text, `"`) {
				q = `'`
			}
			b.WriteString(q + t.text + q)
			continue
		}
		b.WriteString(t.text)
	}
	return b.String()
}
