// ABOUTME: Minimal parser for Python dict literals as produced by str(dict)
// ABOUTME: Handles quoted strings, escapes, numbers, True/False/None, nested lists and dicts

package backend

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// literalPair is one key/value of a parsed mapping, in source order.
type literalPair struct {
	Key   string
	Value any
}

// literalNumber keeps a numeric literal's source text.
type literalNumber string

// parseDictLiteral parses a mapping written either as JSON or as a Python
// dict repr, e.g. {'a': 'Trip planning', "b": 'x'}.
func parseDictLiteral(src string) ([]literalPair, error) {
	p := &literalParser{src: src}
	p.skipSpace()
	if !p.peekIs('{') {
		return nil, p.errorf("expected '{'")
	}
	v, err := p.value()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, p.errorf("unexpected trailing input")
	}
	pairs, _ := v.([]literalPair)
	return pairs, nil
}

type literalParser struct {
	src string
	pos int
}

func (p *literalParser) errorf(format string, args ...any) error {
	return fmt.Errorf("literal at offset %d: %s", p.pos, fmt.Sprintf(format, args...))
}

func (p *literalParser) skipSpace() {
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *literalParser) peekIs(c byte) bool {
	return p.pos < len(p.src) && p.src[p.pos] == c
}

func (p *literalParser) value() (any, error) {
	p.skipSpace()
	if p.pos >= len(p.src) {
		return nil, p.errorf("unexpected end of input")
	}

	switch c := p.src[p.pos]; {
	case c == '{':
		return p.dict()
	case c == '[':
		return p.sequence('[', ']')
	case c == '(':
		return p.sequence('(', ')')
	case c == '\'' || c == '"':
		return p.str()
	case c == '-' || c == '+' || c == '.' || (c >= '0' && c <= '9'):
		return p.number()
	default:
		return p.keyword()
	}
}

func (p *literalParser) dict() ([]literalPair, error) {
	p.pos++ // {
	pairs := []literalPair{}
	for {
		p.skipSpace()
		if p.peekIs('}') {
			p.pos++
			return pairs, nil
		}

		k, err := p.value()
		if err != nil {
			return nil, err
		}
		key, ok := literalKey(k)
		if !ok {
			return nil, p.errorf("unsupported key type %T", k)
		}

		p.skipSpace()
		if !p.peekIs(':') {
			return nil, p.errorf("expected ':'")
		}
		p.pos++

		v, err := p.value()
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, literalPair{Key: key, Value: v})

		p.skipSpace()
		switch {
		case p.peekIs(','):
			p.pos++
		case p.peekIs('}'):
		default:
			return nil, p.errorf("expected ',' or '}'")
		}
	}
}

func (p *literalParser) sequence(open, closing byte) ([]any, error) {
	p.pos++ // open
	items := []any{}
	for {
		p.skipSpace()
		if p.peekIs(closing) {
			p.pos++
			return items, nil
		}
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		items = append(items, v)

		p.skipSpace()
		switch {
		case p.peekIs(','):
			p.pos++
		case p.peekIs(closing):
		default:
			return nil, p.errorf("expected ',' or %q", closing)
		}
	}
}

func (p *literalParser) str() (string, error) {
	quote := p.src[p.pos]
	p.pos++

	var b strings.Builder
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case c == quote:
			p.pos++
			return b.String(), nil
		case c == '\\':
			if err := p.escape(&b); err != nil {
				return "", err
			}
		default:
			b.WriteByte(c)
			p.pos++
		}
	}
	return "", p.errorf("unterminated string")
}

func (p *literalParser) escape(b *strings.Builder) error {
	p.pos++ // backslash
	if p.pos >= len(p.src) {
		return p.errorf("dangling escape")
	}
	c := p.src[p.pos]
	p.pos++

	switch c {
	case '\\', '\'', '"':
		b.WriteByte(c)
	case 'n':
		b.WriteByte('\n')
	case 't':
		b.WriteByte('\t')
	case 'r':
		b.WriteByte('\r')
	case 'b':
		b.WriteByte('\b')
	case 'f':
		b.WriteByte('\f')
	case '/':
		b.WriteByte('/')
	case 'x':
		return p.codepoint(b, 2)
	case 'u':
		return p.codepoint(b, 4)
	case 'U':
		return p.codepoint(b, 8)
	default:
		// Python keeps unknown escapes verbatim.
		b.WriteByte('\\')
		b.WriteByte(c)
	}
	return nil
}

func (p *literalParser) codepoint(b *strings.Builder, digits int) error {
	if p.pos+digits > len(p.src) {
		return p.errorf("short escape")
	}
	n, err := strconv.ParseUint(p.src[p.pos:p.pos+digits], 16, 32)
	if err != nil {
		return p.errorf("bad escape %q", p.src[p.pos:p.pos+digits])
	}
	p.pos += digits

	r := rune(n)
	if !utf8.ValidRune(r) {
		r = utf8.RuneError
	}
	b.WriteRune(r)
	return nil
}

func (p *literalParser) number() (literalNumber, error) {
	start := p.pos
	for p.pos < len(p.src) && strings.IndexByte("+-.0123456789eEjJ_xXabcdefABCDEF", p.src[p.pos]) >= 0 {
		p.pos++
	}
	text := p.src[start:p.pos]
	if strings.Trim(text, "+-.") == "" {
		return "", p.errorf("invalid number %q", text)
	}
	return literalNumber(text), nil
}

func (p *literalParser) keyword() (any, error) {
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_') {
			break
		}
		p.pos++
	}

	switch word := p.src[start:p.pos]; word {
	case "True", "true":
		return true, nil
	case "False", "false":
		return false, nil
	case "None", "null":
		return nil, nil
	case "":
		p.pos = start
		return nil, p.errorf("unexpected character %q", p.src[start])
	default:
		return nil, errors.New("unsupported literal " + strconv.Quote(word))
	}
}

func literalKey(v any) (string, bool) {
	switch k := v.(type) {
	case string:
		return k, true
	case literalNumber:
		return string(k), true
	case bool:
		return strconv.FormatBool(k), true
	default:
		return "", false
	}
}
