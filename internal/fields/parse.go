package fields

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// QueryParam is the query parameter holding a field selection
const QueryParam = "fields"

// ErrSyntax is returned for malformed selector notation
var ErrSyntax = errors.New("invalid field selection")

// Parse parses selector notation into a Selector.
//
// Fields are comma separated; a parenthesised list restricts a field's
// subtree, and a dotted path is shorthand for one level of nesting:
//
//	first_name,played_movies(release_year,owner(email))
//	first_name,played_movies.release_year
//
// An empty string yields the empty selector.
func Parse(s string) (*Selector, error) {
	p := &parser{src: s}
	sel, err := p.list()
	if err != nil {
		return nil, err
	}
	p.skipSpace()
	if p.pos < len(p.src) {
		return nil, p.errorf("unexpected %q", p.src[p.pos])
	}
	return sel, nil
}

// MustParse is like Parse but panics on error. Intended for fixtures.
func MustParse(s string) *Selector {
	sel, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return sel
}

// FromQuery reads the fields parameter from query values.
// Returns nil (unrestricted) when the parameter is absent. Repeated
// parameters are concatenated.
func FromQuery(values url.Values) (*Selector, error) {
	raw, ok := values[QueryParam]
	if !ok {
		return nil, nil
	}

	parts := make([]string, 0, len(raw))
	for _, v := range raw {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return Parse(strings.Join(parts, ","))
}

// FromRequest parses the field selection of an HTTP request.
// Example: ?fields=first_name,played_movies(release_year)
func FromRequest(r *http.Request) (*Selector, error) {
	return FromQuery(r.URL.Query())
}

type parser struct {
	src string
	pos int
}

func (p *parser) errorf(format string, args ...any) error {
	return fmt.Errorf("%w at offset %d: %s", ErrSyntax, p.pos, fmt.Sprintf(format, args...))
}

func (p *parser) skipSpace() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
}

func (p *parser) peek() byte {
	if p.pos >= len(p.src) {
		return 0
	}
	return p.src[p.pos]
}

// list parses entries until end of input or a closing parenthesis
func (p *parser) list() (*Selector, error) {
	sel := New()
	for {
		p.skipSpace()
		switch p.peek() {
		case 0, ')':
			return sel, nil
		case ',':
			p.pos++
			continue
		}

		entry, err := p.entry()
		if err != nil {
			return nil, err
		}
		sel.entries = append(sel.entries, entry)

		p.skipSpace()
		switch p.peek() {
		case ',':
			p.pos++
		case 0, ')':
			return sel, nil
		default:
			return nil, p.errorf("expected ',' got %q", p.peek())
		}
	}
}

func (p *parser) entry() (Entry, error) {
	name := p.name()
	if name == "" {
		return Entry{}, p.errorf("expected field name")
	}

	p.skipSpace()
	switch p.peek() {
	case '(':
		p.pos++
		nested, err := p.list()
		if err != nil {
			return Entry{}, err
		}
		if p.peek() != ')' {
			return Entry{}, p.errorf("unclosed '(' after %q", name)
		}
		p.pos++
		return Entry{Name: name, Nested: nested}, nil
	case '.':
		p.pos++
		child, err := p.entry()
		if err != nil {
			return Entry{}, err
		}
		return Entry{Name: name, Nested: New(child)}, nil
	}

	return Field(name), nil
}

func (p *parser) name() string {
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if c == ',' || c == '(' || c == ')' || c == '.' || c == ' ' || c == '\t' {
			break
		}
		p.pos++
	}
	return p.src[start:p.pos]
}
