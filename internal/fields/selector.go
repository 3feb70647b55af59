// Package fields implements sparse field selection trees.
//
// A Selector restricts which attributes and relationships are emitted at one
// level of a document. Each entry is either a bare field name, which
// includes the field with no further restriction below it, or a field name
// paired with a nested Selector restricting only that subtree. A nil
// *Selector means "unrestricted" at that level and every level below it.
package fields

import "strings"

// Selector is one level of a field selection tree
type Selector struct {
	entries []Entry
}

// Entry is a single selected field
type Entry struct {
	// Name is the output key the entry matches
	Name string
	// Nested restricts the subtree below Name; nil means a bare field
	Nested *Selector
}

// New creates a selector from entries. New() with no entries is the empty
// selector, which restricts a level to identity-only output.
func New(entries ...Entry) *Selector {
	s := &Selector{entries: make([]Entry, 0, len(entries))}
	s.entries = append(s.entries, entries...)
	return s
}

// Names is shorthand for a selector made of bare fields
func Names(names ...string) *Selector {
	s := &Selector{entries: make([]Entry, 0, len(names))}
	for _, n := range names {
		s.entries = append(s.entries, Field(n))
	}
	return s
}

// Field returns a bare entry
func Field(name string) Entry {
	return Entry{Name: name}
}

// Nest returns an entry restricting name's subtree to entries
func Nest(name string, entries ...Entry) Entry {
	return Entry{Name: name, Nested: New(entries...)}
}

// IsBare reports whether the entry carries no nested restriction
func (e Entry) IsBare() bool {
	return e.Nested == nil
}

// Len returns the number of entries. A nil selector has zero entries.
func (s *Selector) Len() int {
	if s == nil {
		return 0
	}
	return len(s.entries)
}

// Entries returns a copy of the selector's entries in order
func (s *Selector) Entries() []Entry {
	if s == nil {
		return nil
	}
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Lookup returns the first entry whose name equals key
func (s *Selector) Lookup(key string) (Entry, bool) {
	if s == nil {
		return Entry{}, false
	}
	for _, e := range s.entries {
		if e.Name == key {
			return e, true
		}
	}
	return Entry{}, false
}

// Includes reports whether a field named key should be emitted at this
// level. A nil selector includes everything.
func (s *Selector) Includes(key string) bool {
	if s == nil {
		return true
	}
	_, ok := s.Lookup(key)
	return ok
}

// String renders the selector in the notation accepted by Parse.
// The nil selector renders as "*".
func (s *Selector) String() string {
	if s == nil {
		return "*"
	}
	var b strings.Builder
	s.write(&b)
	return b.String()
}

func (s *Selector) write(b *strings.Builder) {
	for i, e := range s.entries {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(e.Name)
		if e.Nested != nil {
			b.WriteByte('(')
			e.Nested.write(b)
			b.WriteByte(')')
		}
	}
}
