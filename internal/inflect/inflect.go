// Package inflect provides the English inflection and key casing capabilities
// used to infer serializer names and wire type tags.
package inflect

import (
	"fmt"
	"strings"

	"github.com/iancoleman/strcase"
	"github.com/jinzhu/inflection"
)

// Inflector pluralizes and singularizes English nouns
type Inflector interface {
	Pluralize(word string) string
	Singularize(word string) string
}

// English is the default Inflector backed by jinzhu/inflection
type English struct{}

// Default returns the default English inflector
func Default() Inflector {
	return English{}
}

// Pluralize returns the plural form of word
func (English) Pluralize(word string) string {
	if word == "" {
		return word
	}
	return inflection.Plural(word)
}

// Singularize returns the singular form of word
func (English) Singularize(word string) string {
	if word == "" {
		return word
	}
	return inflection.Singular(word)
}

// TypeTag converts a concrete type name ("ActorOrUser", "Actors") to a
// lower-case, singular wire tag ("actor_or_user", "actor")
func TypeTag(in Inflector, typeName string) string {
	if typeName == "" {
		return ""
	}
	tag := strings.ToLower(strcase.ToSnake(typeName))
	if in == nil {
		return tag
	}
	return in.Singularize(tag)
}

// Transform is a key casing transform applied to output keys and type tags
type Transform int

const (
	// None leaves keys unchanged
	None Transform = iota
	// Camel produces UpperCamelCase ("ReleaseYear")
	Camel
	// CamelLower produces lowerCamelCase ("releaseYear")
	CamelLower
	// Dash produces kebab-case ("release-year")
	Dash
	// Underscore produces snake_case ("release_year")
	Underscore
)

// String returns the config name of the transform
func (t Transform) String() string {
	switch t {
	case None:
		return "none"
	case Camel:
		return "camel"
	case CamelLower:
		return "camel_lower"
	case Dash:
		return "dash"
	case Underscore:
		return "underscore"
	default:
		return fmt.Sprintf("Transform(%d)", int(t))
	}
}

// Apply runs the transform over s
func (t Transform) Apply(s string) string {
	switch t {
	case Camel:
		return strcase.ToCamel(s)
	case CamelLower:
		return strcase.ToLowerCamel(s)
	case Dash:
		return strcase.ToKebab(s)
	case Underscore:
		return strcase.ToSnake(s)
	default:
		return s
	}
}

// ParseTransform parses a transform name as written in configuration
func ParseTransform(name string) (Transform, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none":
		return None, nil
	case "camel":
		return Camel, nil
	case "camel_lower", "lower_camel":
		return CamelLower, nil
	case "dash", "kebab":
		return Dash, nil
	case "underscore", "snake":
		return Underscore, nil
	default:
		return None, fmt.Errorf("unknown key transform: %q", name)
	}
}
