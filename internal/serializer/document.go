package serializer

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Well-known document keys
const (
	KeyID    = "id"
	KeyType  = "type"
	KeyLinks = "links"
)

// Document is a wire document whose keys keep their insertion order
type Document struct {
	m *orderedmap.OrderedMap[string, any]
}

// NewDocument creates an empty document
func NewDocument() *Document {
	return &Document{m: orderedmap.New[string, any]()}
}

// Set stores value under key, keeping the original position of existing keys
func (d *Document) Set(key string, value any) {
	d.m.Set(key, value)
}

// Get returns the value stored under key
func (d *Document) Get(key string) (any, bool) {
	return d.m.Get(key)
}

// Has reports whether key is present
func (d *Document) Has(key string) bool {
	_, ok := d.m.Get(key)
	return ok
}

// Len returns the number of keys
func (d *Document) Len() int {
	return d.m.Len()
}

// Keys returns the keys in insertion order
func (d *Document) Keys() []string {
	keys := make([]string, 0, d.m.Len())
	for pair := d.m.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// MarshalJSON encodes the document preserving key order
func (d *Document) MarshalJSON() ([]byte, error) {
	if d == nil {
		return []byte("null"), nil
	}
	return d.m.MarshalJSON()
}
