package serializer

import (
	"go.uber.org/zap"
)

// resolution is the one-time derived state of a relationship
type resolution struct {
	// serializer is the statically known nested serializer, if any
	serializer *Serializer
	// recordType is the wire type tag used for identity stubs
	recordType string
	// ids is the identifier accessor name
	ids string
	err error
}

// resolve derives a relationship's resolution against a registry
func (r *Registry) resolve(rel *Relationship) *resolution {
	res := &resolution{}
	res.serializer, res.err = r.staticSerializer(rel)
	res.recordType = r.staticRecordType(rel, res.serializer)
	res.ids = rel.identifierAccessor(r.inflector)

	r.logger.Debug("relationship resolved",
		zap.String("owner", rel.ownerName()),
		zap.String("relationship", rel.name),
		zap.Bool("static", res.serializer != nil),
		zap.String("record_type", res.recordType),
	)
	return res
}

func (r *Registry) staticSerializer(rel *Relationship) (*Serializer, error) {
	switch {
	case rel.polymorphic:
		// determined object by object
		return nil, nil

	case rel.spec.kind == specNamed:
		s, ok := r.Lookup(rel.spec.name)
		if ok {
			return s, nil
		}
		err := &SerializerResolutionError{Name: rel.spec.name, Owner: rel.ownerName(), Relationship: rel.name}
		if rel.serializerPolicy == Tolerant {
			r.logger.Warn("serializer not found, falling back to identity stubs", zap.Error(err))
			return nil, nil
		}
		return nil, err

	case rel.spec.kind == specPerObject:
		return nil, nil

	case rel.spec.kind == specRef:
		return rel.spec.ref, nil

	case rel.objects.IsCallable():
		// a fetch callable may return heterogeneous objects
		return nil, nil
	}

	name := rel.name
	if rel.kind == ToMany {
		name = r.inflector.Singularize(name)
	}
	s, ok := r.Lookup(name)
	if !ok {
		r.logger.Debug("no serializer inferred",
			zap.String("owner", rel.ownerName()),
			zap.String("relationship", rel.name),
			zap.String("name", name),
		)
		return nil, nil
	}
	return s, nil
}

func (r *Registry) staticRecordType(rel *Relationship, s *Serializer) string {
	switch {
	case rel.polymorphic:
		return ""
	case rel.recordType != "":
		return rel.transform.Apply(rel.recordType)
	case s != nil:
		return rel.transform.Apply(s.recordType)
	default:
		return ""
	}
}
