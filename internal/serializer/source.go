package serializer

import (
	"github.com/conduit-lang/projector/internal/record"
)

// FetchFunc computes a value from a record and the caller's params
type FetchFunc func(rec record.Record, params record.Params) (any, error)

// Condition gates an attribute, relationship or link
type Condition func(rec record.Record, params record.Params) bool

// Source is where a value comes from: a named accessor on the record, or a
// callable. The variant is fixed when the source is built.
type Source struct {
	name string
	fn   FetchFunc
}

// Accessor returns a source invoking the named accessor on the record
func Accessor(name string) Source {
	return Source{name: name}
}

// Callable returns a source invoking fn
func Callable(fn FetchFunc) Source {
	return Source{fn: fn}
}

// Static returns a source that always yields v
func Static(v any) Source {
	return Callable(func(record.Record, record.Params) (any, error) {
		return v, nil
	})
}

// IsZero reports whether the source was never configured
func (s Source) IsZero() bool {
	return s.name == "" && s.fn == nil
}

// IsCallable reports whether the source is a callable
func (s Source) IsCallable() bool {
	return s.fn != nil
}

// Name returns the accessor name, empty for callables
func (s Source) Name() string {
	return s.name
}

// fetch evaluates the source against rec
func (s Source) fetch(rec record.Record, params record.Params) (any, error) {
	if s.fn != nil {
		return s.fn(rec, params)
	}
	return rec.Access(s.name)
}
