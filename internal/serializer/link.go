package serializer

import (
	"fmt"

	"github.com/conduit-lang/projector/internal/inflect"
	"github.com/conduit-lang/projector/internal/record"
)

// LinkValue is one entry of a document's links array
type LinkValue struct {
	Rel    string `json:"rel"`
	System string `json:"system"`
	Type   string `json:"type"`
	Href   string `json:"href"`
}

// Link describes how to build a link entry for a record
type Link struct {
	rel       string
	system    string
	method    string
	href      Source
	condition Condition
	policy    Policy
}

// LinkOption configures a Link
type LinkOption func(*Link)

// LinkSystem sets the link's system, overriding the caller's default
func LinkSystem(system string) LinkOption {
	return func(l *Link) { l.system = system }
}

// LinkMethod sets the link's type (HTTP method), "GET" by default
func LinkMethod(method string) LinkOption {
	return func(l *Link) { l.method = method }
}

// LinkIf only emits the link when cond holds
func LinkIf(cond Condition) LinkOption {
	return func(l *Link) { l.condition = cond }
}

// LinkPolicy sets how an href failure is handled
func LinkPolicy(p Policy) LinkOption {
	return func(l *Link) { l.policy = p }
}

// NewLink creates a link descriptor with the given rel and href source
func NewLink(rel string, href Source, opts ...LinkOption) *Link {
	l := &Link{
		rel:    rel,
		method: "GET",
		href:   href,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Rel returns the link relation
func (l *Link) Rel() string {
	return l.rel
}

// Emit builds the link entry for rec. The second return value is false
// when the link is omitted, either by its condition or by a tolerated
// href failure.
func (l *Link) Emit(rec record.Record, opts Options) (LinkValue, bool, error) {
	if l.condition != nil && !l.condition(rec, opts.Params) {
		return LinkValue{}, false, nil
	}

	href, err := l.resolveHref(rec, opts.Params)
	if err != nil {
		if l.policy == Tolerant {
			return LinkValue{}, false, nil
		}
		return LinkValue{}, false, &LinkError{Rel: l.rel, RecordType: rec.Type(), Err: err}
	}

	system := l.system
	if system == "" {
		system = opts.SystemType
	}

	return LinkValue{
		Rel:    l.rel,
		System: system,
		Type:   l.method,
		Href:   href,
	}, true, nil
}

func (l *Link) resolveHref(rec record.Record, params record.Params) (string, error) {
	if l.href.IsZero() {
		return "", fmt.Errorf("link %q has no href source", l.rel)
	}

	v, err := l.href.fetch(rec, params)
	if err != nil {
		return "", err
	}
	if record.IsNil(v) {
		return "", nil
	}
	if s, ok := v.(string); ok {
		return s, nil
	}
	return fmt.Sprint(v), nil
}

// emitLinks builds every link of a document. Links dropped by their
// condition or policy leave their siblings untouched.
func emitLinks(links []*Link, rec record.Record, opts Options) ([]LinkValue, error) {
	out := make([]LinkValue, 0, len(links))
	for _, l := range links {
		v, ok, err := l.Emit(rec, opts)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, v)
		}
	}
	return out, nil
}

// CanonicalSelf builds the conventional self link for an identifier and a
// record type: "/" + plural(recordType) + "/" + id. An empty record type
// yields "/" + id.
func CanonicalSelf(in inflect.Inflector, id, recordType string, opts Options) LinkValue {
	href := "/" + id
	if recordType != "" {
		href = "/" + in.Pluralize(recordType) + "/" + id
	}
	return LinkValue{
		Rel:    "self",
		System: opts.SystemType,
		Type:   "GET",
		Href:   href,
	}
}
