// Package serializer projects records and their relationships into nested
// wire documents.
//
// A Serializer declares a record type's identifier, attributes,
// relationships and links. Relationships are inlined as full nested
// documents while the nesting level stays within the registry's maximum
// depth, and degrade to identity stubs ({id, links}) beyond it, when the
// client's field selection does not reach them, or when no nested
// serializer can be resolved. Polymorphic relationships always render as
// {id, type, links}.
//
// Typical setup:
//
//	reg := serializer.NewRegistry()
//	reg.MustRegister(movie, actor, user)
//	if err := reg.Compile(); err != nil {
//	    return err
//	}
//	doc, err := movie.Serialize(ctx, m, serializer.Options{Fields: sel})
package serializer

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/conduit-lang/projector/internal/cache"
	"github.com/conduit-lang/projector/internal/fields"
	"github.com/conduit-lang/projector/internal/inflect"
	"github.com/conduit-lang/projector/internal/record"
)

// attribute is one scalar field of a document
type attribute struct {
	key       string
	source    Source
	condition Condition
}

// Serializer renders records of one type
type Serializer struct {
	name          string
	recordType    string
	id            Source
	attributes    []attribute
	relationships []*Relationship
	links         []*Link
	selfLink      bool
	transform     inflect.Transform

	fragments cache.Cache
	ttl       time.Duration

	registry *Registry
}

// Option configures a Serializer
type Option func(*Serializer)

// Type sets the wire record type, the serializer name by default
func Type(recordType string) Option {
	return func(s *Serializer) { s.recordType = recordType }
}

// ID sets the identifier source, Accessor("id") by default
func ID(src Source) Option {
	return func(s *Serializer) { s.id = src }
}

// Attributes declares attributes read through accessors of the same name
func Attributes(names ...string) Option {
	return func(s *Serializer) {
		for _, name := range names {
			s.attributes = append(s.attributes, attribute{key: name, source: Accessor(name)})
		}
	}
}

// Attribute declares one attribute with an explicit source
func Attribute(key string, src Source) Option {
	return func(s *Serializer) {
		s.attributes = append(s.attributes, attribute{key: key, source: src})
	}
}

// ConditionalAttribute declares an attribute emitted only when cond holds
func ConditionalAttribute(key string, src Source, cond Condition) Option {
	return func(s *Serializer) {
		s.attributes = append(s.attributes, attribute{key: key, source: src, condition: cond})
	}
}

// HasMany declares a to-many relationship
func HasMany(name string, opts ...RelationshipOption) Option {
	return Relate(NewRelationship(ToMany, name, opts...))
}

// HasOne declares a to-one relationship
func HasOne(name string, opts ...RelationshipOption) Option {
	return Relate(NewRelationship(ToOne, name, opts...))
}

// BelongsTo declares a to-one relationship
func BelongsTo(name string, opts ...RelationshipOption) Option {
	return HasOne(name, opts...)
}

// Relate attaches a prebuilt relationship
func Relate(rel *Relationship) Option {
	return func(s *Serializer) {
		s.relationships = append(s.relationships, rel)
	}
}

// Links declares the document's links
func Links(links ...*Link) Option {
	return func(s *Serializer) {
		s.links = append(s.links, links...)
	}
}

// SelfLink adds the canonical self link ("/<plural type>/<id>") first in
// the document's links
func SelfLink() Option {
	return func(s *Serializer) { s.selfLink = true }
}

// KeyTransform sets the casing transform for output keys and type tags
func KeyTransform(t inflect.Transform) Option {
	return func(s *Serializer) { s.transform = t }
}

// Cached stores nested documents rendered by this serializer in c.
// A zero ttl uses the cache's default.
func Cached(c cache.Cache, ttl time.Duration) Option {
	return func(s *Serializer) {
		s.fragments = c
		s.ttl = ttl
	}
}

// New defines a serializer
func New(name string, opts ...Option) *Serializer {
	s := &Serializer{
		name:       name,
		recordType: name,
		id:         Accessor(KeyID),
	}
	for _, opt := range opts {
		opt(s)
	}

	for _, rel := range s.relationships {
		rel.owner = s
		if !rel.transformSet {
			rel.transform = s.transform
		}
	}
	return s
}

// Name returns the serializer's registry name
func (s *Serializer) Name() string { return s.name }

// RecordType returns the wire record type
func (s *Serializer) RecordType() string { return s.recordType }

// Relationships returns the declared relationships in order
func (s *Serializer) Relationships() []*Relationship {
	out := make([]*Relationship, len(s.relationships))
	copy(out, s.relationships)
	return out
}

// Relationship returns the relationship declared under key
func (s *Serializer) Relationship(key string) (*Relationship, bool) {
	for _, rel := range s.relationships {
		if rel.key == key {
			return rel, true
		}
	}
	return nil, false
}

func (s *Serializer) env() *Registry {
	if s.registry == nil {
		return standalone
	}
	return s.registry
}

// Serialize renders rec as a document
func (s *Serializer) Serialize(ctx context.Context, rec record.Record, opts Options) (*Document, error) {
	if record.IsNil(rec) {
		return nil, ErrNotRecord
	}
	return s.build(ctx, s.env(), rec, opts)
}

// SerializeMany renders each record in order
func (s *Serializer) SerializeMany(ctx context.Context, recs []record.Record, opts Options) ([]*Document, error) {
	out := make([]*Document, 0, len(recs))
	for _, rec := range recs {
		doc, err := s.Serialize(ctx, rec, opts)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, nil
}

// serializeNested renders a related object, consulting the fragment cache
// when one is configured
func (s *Serializer) serializeNested(ctx context.Context, env *Registry, rec record.Record, opts Options) (any, error) {
	if s.fragments == nil {
		return s.build(ctx, env, rec, opts)
	}

	idValue, err := s.id.fetch(rec, opts.Params)
	if err != nil {
		return nil, fmt.Errorf("%s: id: %w", s.name, err)
	}
	id, ok := record.IDText(idValue)
	if !ok {
		return s.build(ctx, env, rec, opts)
	}

	key := cache.FragmentKey{
		RecordType: s.recordType,
		ID:         id,
		Level:      opts.Level,
		NoLinks:    opts.NoLinks,
		Fields:     fieldsDigest(opts.Fields),
		Extra:      []string{opts.SystemType, paramsDigest(opts.Params)},
	}.String()

	raw, err := s.fragments.Get(ctx, key)
	switch {
	case err == nil && json.Valid(raw):
		return json.RawMessage(raw), nil
	case err == nil:
		env.logger.Warn("discarding corrupt fragment", zap.String("key", key))
		if err := s.fragments.Delete(ctx, key); err != nil {
			env.logger.Warn("fragment cache delete failed", zap.String("key", key), zap.Error(err))
		}
	case !cache.IsCacheMiss(err):
		env.logger.Warn("fragment cache read failed", zap.String("key", key), zap.Error(err))
	}

	doc, err := s.build(ctx, env, rec, opts)
	if err != nil {
		return nil, err
	}

	raw, err = json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("%s: encode fragment: %w", s.name, err)
	}
	if err := s.fragments.Set(ctx, key, raw, s.ttl); err != nil {
		env.logger.Warn("fragment cache write failed", zap.String("key", key), zap.Error(err))
	}
	return doc, nil
}

// build assembles {id, attributes..., relationships..., links}
func (s *Serializer) build(ctx context.Context, env *Registry, rec record.Record, opts Options) (*Document, error) {
	doc := NewDocument()

	idValue, err := s.id.fetch(rec, opts.Params)
	if err != nil {
		return nil, fmt.Errorf("%s: id: %w", s.name, err)
	}
	id, hasID := record.IDText(idValue)
	if hasID {
		doc.Set(KeyID, id)
	} else {
		doc.Set(KeyID, nil)
	}

	for _, attr := range s.attributes {
		if !opts.Fields.Includes(attr.key) {
			continue
		}
		if attr.condition != nil && !attr.condition(rec, opts.Params) {
			continue
		}
		v, err := attr.source.fetch(rec, opts.Params)
		if err != nil {
			return nil, fmt.Errorf("%s: attribute %s: %w", s.name, attr.key, err)
		}
		doc.Set(s.transform.Apply(attr.key), v)
	}

	for _, rel := range s.relationships {
		v, present, err := rel.Serialize(ctx, env, rec, opts)
		if err != nil {
			return nil, err
		}
		if present {
			doc.Set(s.transform.Apply(rel.key), v)
		}
	}

	if opts.linksEnabled() && (s.selfLink || len(s.links) > 0) {
		links := make([]LinkValue, 0, len(s.links)+1)
		if s.selfLink && hasID {
			links = append(links, CanonicalSelf(env.inflector, id, s.recordType, opts))
		}
		emitted, err := emitLinks(s.links, rec, opts)
		if err != nil {
			return nil, err
		}
		doc.Set(KeyLinks, append(links, emitted...))
	}

	return doc, nil
}

// fieldsDigest renders the selector for cache keys. The unrestricted
// selector is kept apart from every parsed selection, including one naming
// a field "*".
func fieldsDigest(sel *fields.Selector) string {
	if sel == nil {
		return "all"
	}
	return "sel:" + sel.String()
}

// paramsDigest renders params deterministically for cache keys
func paramsDigest(params record.Params) string {
	if len(params) == 0 {
		return ""
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := ""
	for _, k := range keys {
		out += fmt.Sprintf("%s=%v;", k, params[k])
	}
	return out
}
