package serializer

import (
	"github.com/conduit-lang/projector/internal/inflect"
	"github.com/conduit-lang/projector/internal/record"
)

// stubMode controls the shape of identity stubs
type stubMode struct {
	// nullID yields {id: null} for absent identifiers instead of null
	nullID bool
	// typeTag adds a "type" key (polymorphic stubs)
	typeTag string
	// forceLinks keeps the self link even when links are disabled
	forceLinks bool
}

// buildStub produces the identity stub for one identifier. The second
// return value is false when the stub is null.
func buildStub(in inflect.Inflector, id any, recordType string, opts Options, mode stubMode) (*Document, bool) {
	text, ok := record.IDText(id)
	if !ok {
		if !mode.nullID {
			return nil, false
		}
		doc := NewDocument()
		doc.Set(KeyID, nil)
		return doc, true
	}

	doc := NewDocument()
	doc.Set(KeyID, text)
	if mode.typeTag != "" {
		doc.Set(KeyType, mode.typeTag)
	}
	if opts.linksEnabled() || mode.forceLinks {
		doc.Set(KeyLinks, []LinkValue{CanonicalSelf(in, text, recordType, opts)})
	}
	return doc, true
}

// BuildStubs maps identifiers to identity stubs. A sequence of identifiers
// yields a slice with absent entries dropped; a single identifier yields one
// stub or nil.
func BuildStubs(in inflect.Inflector, ids any, recordType string, opts Options) any {
	return buildStubs(in, ids, recordType, opts, stubMode{})
}

func buildStubs(in inflect.Inflector, ids any, recordType string, opts Options, mode stubMode) any {
	if record.IsNil(ids) {
		return nil
	}

	values, isSeq := record.Values(ids)
	if !isSeq {
		doc, ok := buildStub(in, values[0], recordType, opts, mode)
		if !ok {
			return nil
		}
		return doc
	}

	out := make([]any, 0, len(values))
	for _, id := range values {
		if doc, ok := buildStub(in, id, recordType, opts, mode); ok {
			out = append(out, doc)
		}
	}
	return out
}
