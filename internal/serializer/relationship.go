package serializer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/conduit-lang/projector/internal/fields"
	"github.com/conduit-lang/projector/internal/inflect"
	"github.com/conduit-lang/projector/internal/record"
)

// Kind is the cardinality of a relationship
type Kind int

const (
	// ToOne relates a record to at most one object
	ToOne Kind = iota
	// ToMany relates a record to an ordered sequence of objects
	ToMany
)

// String returns the kind name
func (k Kind) String() string {
	if k == ToMany {
		return "to_many"
	}
	return "to_one"
}

type specKind int

const (
	specInfer specKind = iota
	specRef
	specNamed
	specPerObject
)

// PerObjectFunc picks the nested serializer for one related object
type PerObjectFunc func(obj record.Record, params record.Params) (*Serializer, error)

// SerializerSpec says which nested serializer renders related objects
type SerializerSpec struct {
	kind specKind
	ref  *Serializer
	name string
	fn   PerObjectFunc
}

// Ref uses s directly
func Ref(s *Serializer) SerializerSpec {
	return SerializerSpec{kind: specRef, ref: s}
}

// Named resolves the serializer by name through the registry
func Named(name string) SerializerSpec {
	return SerializerSpec{kind: specNamed, name: name}
}

// PerObject picks the serializer for each related object at serialize time
func PerObject(fn PerObjectFunc) SerializerSpec {
	return SerializerSpec{kind: specPerObject, fn: fn}
}

// Relationship describes how one related object or collection of a record
// is projected into its document: fully inlined, as identity stubs, or not
// at all.
type Relationship struct {
	key   string
	name  string
	kind  Kind
	owner *Serializer

	ids     string
	objects Source
	spec    SerializerSpec

	polymorphic  bool
	recordType   string
	condition    Condition
	lazy         bool
	nullIDs      bool
	transform    inflect.Transform
	transformSet bool

	associationPolicy Policy
	serializerPolicy  Policy

	once sync.Once
	res  *resolution
	// resolvedIn is the registry the resolution was computed against
	resolvedIn atomic.Pointer[Registry]
}

// RelationshipOption configures a Relationship
type RelationshipOption func(*Relationship)

// Key sets the output key, the relationship name by default
func Key(key string) RelationshipOption {
	return func(r *Relationship) { r.key = key }
}

// IDs sets the identifier accessor. Without a fetch callable it is invoked
// on the record; with one it is invoked on every fetched object.
func IDs(name string) RelationshipOption {
	return func(r *Relationship) { r.ids = name }
}

// Objects sets how related objects are obtained, Accessor(name) by default
func Objects(src Source) RelationshipOption {
	return func(r *Relationship) { r.objects = src }
}

// Fetch is shorthand for Objects(Callable(fn))
func Fetch(fn FetchFunc) RelationshipOption {
	return Objects(Callable(fn))
}

// Using sets the nested serializer spec
func Using(spec SerializerSpec) RelationshipOption {
	return func(r *Relationship) { r.spec = spec }
}

// Polymorphic marks a relationship whose objects may have differing types.
// Each object renders as {id, type, links}.
func Polymorphic() RelationshipOption {
	return func(r *Relationship) { r.polymorphic = true }
}

// RecordType overrides the inferred wire type tag
func RecordType(recordType string) RelationshipOption {
	return func(r *Relationship) { r.recordType = recordType }
}

// When includes the relationship only when cond holds
func When(cond Condition) RelationshipOption {
	return func(r *Relationship) { r.condition = cond }
}

// Lazy omits the relationship entirely once it is too deep to be shown
func Lazy() RelationshipOption {
	return func(r *Relationship) { r.lazy = true }
}

// NullIDs renders absent identifiers as {id: null} instead of null
func NullIDs() RelationshipOption {
	return func(r *Relationship) { r.nullIDs = true }
}

// TypeTransform sets the key transform applied to inferred type tags.
// Defaults to the owning serializer's transform.
func TypeTransform(t inflect.Transform) RelationshipOption {
	return func(r *Relationship) {
		r.transform = t
		r.transformSet = true
	}
}

// OnAssociationError sets how accessor failures are handled
func OnAssociationError(p Policy) RelationshipOption {
	return func(r *Relationship) { r.associationPolicy = p }
}

// OnMissingSerializer sets how a named serializer lookup miss is handled
func OnMissingSerializer(p Policy) RelationshipOption {
	return func(r *Relationship) { r.serializerPolicy = p }
}

// NewRelationship creates a relationship descriptor
func NewRelationship(kind Kind, name string, opts ...RelationshipOption) *Relationship {
	r := &Relationship{
		key:  name,
		name: name,
		kind: kind,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.objects.IsZero() {
		r.objects = Accessor(name)
	}
	return r
}

// Key returns the output key
func (r *Relationship) Key() string { return r.key }

// Name returns the logical relationship name
func (r *Relationship) Name() string { return r.name }

// Kind returns the relationship cardinality
func (r *Relationship) Kind() Kind { return r.kind }

// IsPolymorphic reports whether the relationship renders typed stubs
func (r *Relationship) IsPolymorphic() bool { return r.polymorphic }

// IsPerObject reports whether the nested serializer is chosen per object
func (r *Relationship) IsPerObject() bool { return r.spec.kind == specPerObject }

// IsLazy reports whether the relationship is dropped past depth+1
func (r *Relationship) IsLazy() bool { return r.lazy }

// Target returns the statically resolved nested serializer name and the
// stub record type. Both are empty for per-object or unresolved
// relationships and for relationships not yet attached to a serializer.
func (r *Relationship) Target() (serializerName, recordType string) {
	if r.owner == nil {
		return "", ""
	}
	res := r.resolve(r.owner.env())
	if res.serializer != nil {
		serializerName = res.serializer.name
	}
	return serializerName, res.recordType
}

func (r *Relationship) ownerName() string {
	if r.owner == nil {
		return ""
	}
	return r.owner.name
}

// identifierAccessor returns the configured identifier accessor or its
// default: "id" on fetched objects, otherwise <name>_id / <singular>_ids on
// the record
func (r *Relationship) identifierAccessor(in inflect.Inflector) string {
	if r.ids != "" {
		return r.ids
	}
	if r.objects.IsCallable() || r.polymorphic {
		return KeyID
	}
	if r.kind == ToMany {
		return in.Singularize(r.name) + "_ids"
	}
	return r.name + "_id"
}

// resolve populates the resolution cache exactly once
func (r *Relationship) resolve(env *Registry) *resolution {
	r.once.Do(func() {
		r.res = env.resolve(r)
		r.resolvedIn.Store(env)
	})
	return r.res
}

// empty is the output for a relationship without data
func (r *Relationship) empty() any {
	if r.kind == ToMany {
		return []any{}
	}
	return nil
}

// Serialize projects the relationship of rec. The second return value is
// false when the key must be omitted from the document.
func (r *Relationship) Serialize(ctx context.Context, env *Registry, rec record.Record, opts Options) (any, bool, error) {
	if env == nil {
		env = standalone
	}

	if r.condition != nil && !r.condition(rec, opts.Params) {
		return nil, false, nil
	}

	res := r.resolve(env)
	if res.err != nil {
		return nil, false, res.err
	}

	// Lazy data is never inlined this deep, so skip fetching it at all
	if r.lazy && opts.Level > env.maxDepth+1 {
		return nil, false, nil
	}

	if r.polymorphic {
		v, err := r.serializePolymorphic(env, res, rec, opts)
		return v, true, err
	}

	proj := fields.Project(opts.Fields, r.key)
	inlinable := res.serializer != nil || r.spec.kind == specPerObject
	if inlinable && !proj.Suppressed() && opts.Level <= env.maxDepth {
		v, err := r.serializeInline(ctx, env, res, rec, opts.nested(proj.Next))
		return v, true, err
	}

	v, err := r.serializeStubs(env, res, rec, opts)
	return v, true, err
}

// associationFailure applies the association policy to err
func (r *Relationship) associationFailure(env *Registry, rec record.Record, err error) (any, error) {
	assocErr := &AssociationError{RecordType: rec.Type(), Relationship: r.name, Err: err}
	if r.associationPolicy == Tolerant {
		env.logger.Warn("association suppressed", zap.Error(assocErr))
		return r.empty(), nil
	}
	return nil, assocErr
}

// fetchObjects resolves the related objects of rec
func (r *Relationship) fetchObjects(rec record.Record, params record.Params) ([]record.Record, error) {
	v, err := r.objects.fetch(rec, params)
	if err != nil {
		return nil, err
	}

	if r.kind == ToOne {
		obj, ok := record.One(v)
		if !ok {
			if record.IsNil(v) {
				return nil, nil
			}
			return nil, fmt.Errorf("%w: expected a record, got %T", ErrInvalidAssociation, v)
		}
		return []record.Record{obj}, nil
	}

	objs, ok := record.List(v)
	if !ok {
		return nil, fmt.Errorf("%w: expected a sequence of records, got %T", ErrInvalidAssociation, v)
	}
	return objs, nil
}

func (r *Relationship) serializeInline(ctx context.Context, env *Registry, res *resolution, rec record.Record, nested Options) (any, error) {
	objs, err := r.fetchObjects(rec, nested.Params)
	if err != nil {
		return r.associationFailure(env, rec, err)
	}

	if r.kind == ToOne {
		if len(objs) == 0 {
			return nil, nil
		}
		return r.inlineOne(ctx, env, res, objs[0], nested)
	}

	out := make([]any, 0, len(objs))
	for _, obj := range objs {
		v, err := r.inlineOne(ctx, env, res, obj, nested)
		if err != nil {
			return nil, err
		}
		if v != nil {
			out = append(out, v)
		}
	}
	return out, nil
}

func (r *Relationship) inlineOne(ctx context.Context, env *Registry, res *resolution, obj record.Record, nested Options) (any, error) {
	s := res.serializer
	if r.spec.kind == specPerObject {
		var err error
		s, err = r.spec.fn(obj, nested.Params)
		if err != nil || s == nil {
			resErr := &SerializerResolutionError{Name: obj.Type(), Owner: r.ownerName(), Relationship: r.name, Err: err}
			if r.serializerPolicy == Tolerant {
				env.logger.Warn("no serializer for object", zap.Error(resErr))
				return nil, nil
			}
			return nil, resErr
		}
	}
	return s.serializeNested(ctx, env, obj, nested)
}

func (r *Relationship) serializePolymorphic(env *Registry, res *resolution, rec record.Record, opts Options) (any, error) {
	objs, err := r.fetchObjects(rec, opts.Params)
	if err != nil {
		return r.associationFailure(env, rec, err)
	}

	stubs := make([]any, 0, len(objs))
	for _, obj := range objs {
		id, err := obj.Access(res.ids)
		if err != nil {
			return r.associationFailure(env, rec, err)
		}

		tag := r.transform.Apply(inflect.TypeTag(env.inflector, obj.Type()))
		doc, ok := buildStub(env.inflector, id, tag, opts, stubMode{
			nullID:     r.nullIDs,
			typeTag:    tag,
			forceLinks: true,
		})
		if ok {
			stubs = append(stubs, doc)
		}
	}

	if r.kind == ToOne {
		if len(stubs) == 0 {
			return nil, nil
		}
		return stubs[0], nil
	}
	return stubs, nil
}

// identifiers resolves the identifier(s) of the related objects of rec
func (r *Relationship) identifiers(res *resolution, rec record.Record, params record.Params) (any, error) {
	if !r.objects.IsCallable() {
		return rec.Access(res.ids)
	}

	objs, err := r.fetchObjects(rec, params)
	if err != nil {
		return nil, err
	}

	if r.kind == ToOne {
		if len(objs) == 0 {
			return nil, nil
		}
		return objs[0].Access(res.ids)
	}

	ids := make([]any, 0, len(objs))
	for _, obj := range objs {
		id, err := obj.Access(res.ids)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *Relationship) serializeStubs(env *Registry, res *resolution, rec record.Record, opts Options) (any, error) {
	ids, err := r.identifiers(res, rec, opts.Params)
	if err != nil {
		return r.associationFailure(env, rec, err)
	}

	mode := stubMode{nullID: r.nullIDs}

	if r.kind == ToOne {
		if values, isSeq := record.Values(ids); isSeq {
			if len(values) > 0 {
				return nil, &AssociationError{
					RecordType:   rec.Type(),
					Relationship: r.name,
					Err:          fmt.Errorf("%w: expected a single identifier, got %T", ErrInvalidAssociation, ids),
				}
			}
			// an empty identifier list is an absent identifier
			ids = nil
		}
		doc, ok := buildStub(env.inflector, ids, res.recordType, opts, mode)
		if !ok {
			return nil, nil
		}
		return doc, nil
	}

	stubs := buildStubs(env.inflector, ids, res.recordType, opts, mode)
	list, ok := stubs.([]any)
	if !ok {
		if stubs == nil {
			return []any{}, nil
		}
		// a single identifier on a to-many relationship
		list = []any{stubs}
	}
	return list, nil
}

// IsAssociationError reports whether err is an AssociationError
func IsAssociationError(err error) bool {
	var target *AssociationError
	return errors.As(err, &target)
}
