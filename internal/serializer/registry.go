package serializer

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/iancoleman/strcase"
	"go.uber.org/zap"

	"github.com/conduit-lang/projector/internal/inflect"
)

// Finder looks up serializers by name
type Finder interface {
	Lookup(name string) (*Serializer, bool)
}

// Registry holds named serializers together with the policies shared by
// every document they produce: maximum inlining depth, inflection and
// logging.
//
// A registry is populated at startup, compiled once, and then only read.
type Registry struct {
	mu          sync.RWMutex
	serializers map[string]*Serializer

	inflector inflect.Inflector
	logger    *zap.Logger
	maxDepth  int
}

// RegistryOption configures a Registry
type RegistryOption func(*Registry)

// WithInflector sets the inflector used to infer names and type tags
func WithInflector(in inflect.Inflector) RegistryOption {
	return func(r *Registry) { r.inflector = in }
}

// WithLogger sets the registry's logger
func WithLogger(logger *zap.Logger) RegistryOption {
	return func(r *Registry) { r.logger = logger }
}

// WithMaxDepth sets the deepest level at which relationships are inlined
func WithMaxDepth(depth int) RegistryOption {
	return func(r *Registry) { r.maxDepth = depth }
}

// NewRegistry creates an empty registry
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		serializers: make(map[string]*Serializer),
		inflector:   inflect.Default(),
		logger:      zap.NewNop(),
		maxDepth:    DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.inflector == nil {
		r.inflector = inflect.Default()
	}
	if r.logger == nil {
		r.logger = zap.NewNop()
	}
	return r
}

// standalone serves serializers that were never registered. It is never
// mutated after initialization.
var standalone = NewRegistry()

// normalizeName maps "Movie", "movie" and " movie " to the same key
func normalizeName(name string) string {
	return strings.ToLower(strcase.ToSnake(strings.TrimSpace(name)))
}

// Register adds serializers to the registry and binds them to it.
// Relationships resolve once, so a serializer that has already rendered
// through another registry (or unregistered) cannot be registered here.
func (r *Registry) Register(serializers ...*Serializer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range serializers {
		key := normalizeName(s.name)
		if existing, ok := r.serializers[key]; ok && existing != s {
			return fmt.Errorf("%w: %s", ErrDuplicateSerializer, s.name)
		}
		for _, rel := range s.relationships {
			if env := rel.resolvedIn.Load(); env != nil && env != r {
				return fmt.Errorf("%w: %s.%s", ErrAlreadyResolved, s.name, rel.name)
			}
		}
		r.serializers[key] = s
		s.registry = r
	}
	return nil
}

// MustRegister is like Register but panics on error
func (r *Registry) MustRegister(serializers ...*Serializer) {
	if err := r.Register(serializers...); err != nil {
		panic(err)
	}
}

// Lookup finds a serializer by name
func (r *Registry) Lookup(name string) (*Serializer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.serializers[normalizeName(name)]
	return s, ok
}

// Names returns the registered serializer names, sorted
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.serializers))
	for name := range r.serializers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MaxDepth returns the inlining depth policy
func (r *Registry) MaxDepth() int {
	return r.maxDepth
}

// Inflector returns the registry's inflector
func (r *Registry) Inflector() inflect.Inflector {
	return r.inflector
}

// Compile resolves the nested serializer and record type of every
// registered relationship. After Compile returns, serialization never
// writes shared state, so documents may be built concurrently.
func (r *Registry) Compile() error {
	var errs []error
	for _, name := range r.Names() {
		s, _ := r.Lookup(name)
		for _, rel := range s.relationships {
			if res := rel.resolve(r); res.err != nil {
				errs = append(errs, res.err)
			}
		}
	}
	return errors.Join(errs...)
}
