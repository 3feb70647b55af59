package serializer

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateSerializer is returned when two serializers register under the same name
	ErrDuplicateSerializer = errors.New("serializer already registered")

	// ErrInvalidAssociation is returned when an accessor yields a value of the wrong shape
	ErrInvalidAssociation = errors.New("invalid association value")

	// ErrNotRecord is returned when a value passed for serialization is not a record
	ErrNotRecord = errors.New("value is not a record")

	// ErrAlreadyResolved is returned when registering a serializer whose
	// relationships were already resolved against another registry
	ErrAlreadyResolved = errors.New("serializer relationships already resolved")
)

// Policy selects how a relationship or link reacts to a resolution failure
type Policy int

const (
	// Strict propagates the failure to the caller
	Strict Policy = iota
	// Tolerant suppresses the failure: relationships are treated as absent
	// and links are dropped from the output
	Tolerant
)

// String returns the policy name
func (p Policy) String() string {
	switch p {
	case Strict:
		return "strict"
	case Tolerant:
		return "tolerant"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// SerializerResolutionError is returned when a serializer requested by name
// cannot be found in the registry
type SerializerResolutionError struct {
	// Name is the requested serializer identifier
	Name string
	// Owner is the serializer declaring the relationship
	Owner string
	// Relationship is the relationship being resolved
	Relationship string
	// Err is the failure reported by a per-object selector, if any
	Err error
}

func (e *SerializerResolutionError) Error() string {
	msg := fmt.Sprintf("cannot resolve a serializer for '%s'", e.Name)
	if e.Relationship != "" {
		msg += fmt.Sprintf(" (relationship %s.%s)", e.Owner, e.Relationship)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SerializerResolutionError) Unwrap() error {
	return e.Err
}

// AssociationError is returned when the related objects or identifiers of a
// relationship cannot be obtained from a record
type AssociationError struct {
	RecordType   string
	Relationship string
	Err          error
}

func (e *AssociationError) Error() string {
	return fmt.Sprintf("cannot resolve association %s.%s: %v", e.RecordType, e.Relationship, e.Err)
}

func (e *AssociationError) Unwrap() error {
	return e.Err
}

// LinkError is returned when a link's href cannot be computed
type LinkError struct {
	Rel        string
	RecordType string
	Err        error
}

func (e *LinkError) Error() string {
	return fmt.Sprintf("cannot resolve link %q for %s: %v", e.Rel, e.RecordType, e.Err)
}

func (e *LinkError) Unwrap() error {
	return e.Err
}
