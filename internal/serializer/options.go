package serializer

import (
	"github.com/conduit-lang/projector/internal/fields"
	"github.com/conduit-lang/projector/internal/record"
)

// DefaultMaxDepth is the deepest nesting level at which relationships are
// still inlined as full documents
const DefaultMaxDepth = 2

// Options carries the per-call serialization state. Values are never
// mutated; each nesting step derives a new one.
type Options struct {
	// Level is the nesting level, 0 at the root document
	Level int
	// Fields restricts emitted fields at this level; nil means unrestricted
	Fields *fields.Selector
	// Params is passed through to callables and predicates
	Params record.Params
	// NoLinks disables link emission for the whole document
	NoLinks bool
	// SystemType is the default "system" value of emitted links
	SystemType string
}

func (o Options) linksEnabled() bool {
	return !o.NoLinks
}

// nested derives the options for one level deeper
func (o Options) nested(next *fields.Selector) Options {
	o.Level++
	o.Fields = next
	return o
}
