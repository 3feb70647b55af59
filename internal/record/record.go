// Package record defines the capability the serializer needs from the objects
// it projects: a stable type tag and named accessor dispatch.
package record

import (
	"errors"
	"fmt"
	"reflect"
)

// ErrNoAccessor is returned when a record does not expose the requested accessor
var ErrNoAccessor = errors.New("no such accessor")

// Record is an object that can be serialized
type Record interface {
	// Type returns the concrete type name of the record (e.g. "Actor")
	Type() string

	// Access invokes the named accessor. Implementations return an error
	// wrapping ErrNoAccessor when the name is unknown.
	Access(name string) (any, error)
}

// Params is the opaque bag of caller parameters passed through to callables
// and predicates
type Params map[string]any

// Get returns the parameter value for key, or nil when the bag is empty
func (p Params) Get(key string) any {
	if p == nil {
		return nil
	}
	return p[key]
}

// Has reports whether key is present
func (p Params) Has(key string) bool {
	if p == nil {
		return false
	}
	_, ok := p[key]
	return ok
}

// MissingAccessor builds the error returned for an unknown accessor name
func MissingAccessor(typeName, name string) error {
	return fmt.Errorf("%w: %s.%s", ErrNoAccessor, typeName, name)
}

// Map is a Record backed by a plain map, mostly useful for fixtures and tests
type Map struct {
	TypeName string
	Values   map[string]any
}

// NewMap creates a map-backed record
func NewMap(typeName string, values map[string]any) *Map {
	return &Map{TypeName: typeName, Values: values}
}

// Type returns the record's type name
func (m *Map) Type() string {
	return m.TypeName
}

// Access returns the value stored under name
func (m *Map) Access(name string) (any, error) {
	v, ok := m.Values[name]
	if !ok {
		return nil, MissingAccessor(m.TypeName, name)
	}
	return v, nil
}

// IsNil reports whether v is nil, including typed nil pointers wrapped in an interface
func IsNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

// One converts an accessor result into a single Record.
// Returns nil, false when v is nil.
func One(v any) (Record, bool) {
	if IsNil(v) {
		return nil, false
	}
	r, ok := v.(Record)
	return r, ok
}

// List converts an accessor result into an ordered slice of Records.
// Accepts []Record or any slice whose elements implement Record. Nil
// elements are skipped. The second return value is false when v is not a
// sequence.
func List(v any) ([]Record, bool) {
	if IsNil(v) {
		return nil, true
	}

	switch typed := v.(type) {
	case []Record:
		out := make([]Record, 0, len(typed))
		for _, r := range typed {
			if !IsNil(r) {
				out = append(out, r)
			}
		}
		return out, true
	case Record:
		return nil, false
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return nil, false
	}

	out := make([]Record, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		elem := rv.Index(i).Interface()
		if IsNil(elem) {
			continue
		}
		r, ok := elem.(Record)
		if !ok {
			return nil, false
		}
		out = append(out, r)
	}
	return out, true
}

// Values converts an accessor result holding identifiers into a slice.
// A non-sequence value yields a single-element slice; ok is false in that case.
func Values(v any) ([]any, bool) {
	if IsNil(v) {
		return nil, true
	}
	if s, ok := v.([]any); ok {
		return s, true
	}
	if _, ok := v.(string); ok {
		return []any{v}, false
	}
	if _, ok := v.([]byte); ok {
		return []any{v}, false
	}

	// arrays are treated as scalars so fixed-size ids such as UUIDs stay whole
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return []any{v}, false
	}

	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
