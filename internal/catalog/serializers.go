package catalog

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/conduit-lang/projector/internal/cache"
	"github.com/conduit-lang/projector/internal/inflect"
	"github.com/conduit-lang/projector/internal/record"
	"github.com/conduit-lang/projector/internal/serializer"
)

// ParamConditionalsOff hides conditional attributes and relationships when
// set to "yes"
const ParamConditionalsOff = "conditionals_off"

// Options configures the catalog serializers
type Options struct {
	MaxDepth     int
	KeyTransform inflect.Transform
	Logger       *zap.Logger
	// Fragments caches nested actor and user documents when set
	Fragments   cache.Cache
	FragmentTTL time.Duration
}

// DefaultOptions returns options with the default inlining depth
func DefaultOptions() Options {
	return Options{MaxDepth: serializer.DefaultMaxDepth}
}

// Serializers is the compiled set of catalog serializers
type Serializers struct {
	Registry *serializer.Registry
	Movie    *serializer.Serializer
	Actor    *serializer.Serializer
	User     *serializer.Serializer
}

// NewSerializers defines, registers and compiles the catalog serializers
func NewSerializers(opts Options) (*Serializers, error) {
	reg := serializer.NewRegistry(
		serializer.WithMaxDepth(opts.MaxDepth),
		serializer.WithLogger(opts.Logger),
	)

	var nested []serializer.Option
	if opts.Fragments != nil {
		nested = append(nested, serializer.Cached(opts.Fragments, opts.FragmentTTL))
	}

	s := &Serializers{
		Registry: reg,
		Movie:    movieSerializer(reg, opts.KeyTransform),
		Actor:    actorSerializer(opts.KeyTransform, nested...),
		User:     userSerializer(opts.KeyTransform, nested...),
	}

	if err := reg.Register(s.Movie, s.Actor, s.User); err != nil {
		return nil, err
	}
	if err := reg.Compile(); err != nil {
		return nil, fmt.Errorf("failed to compile catalog serializers: %w", err)
	}
	return s, nil
}

// Lookup returns the serializer for a record type or collection name
// ("movie", "movies", "Actor")
func (s *Serializers) Lookup(name string) (*serializer.Serializer, bool) {
	if found, ok := s.Registry.Lookup(name); ok {
		return found, true
	}
	return s.Registry.Lookup(s.Registry.Inflector().Singularize(name))
}

func movieSerializer(reg *serializer.Registry, t inflect.Transform) *serializer.Serializer {
	return serializer.New("movie",
		serializer.KeyTransform(t),
		serializer.Attributes("name", "release_year"),
		serializer.BelongsTo("owner", serializer.Using(serializer.Named("user"))),
		serializer.BelongsTo("actor_or_user", serializer.Polymorphic()),
		serializer.HasMany("actors"),
		// the creator is the owner, reached through the owner accessors
		serializer.HasOne("creator",
			serializer.Objects(serializer.Accessor("owner")),
			serializer.IDs("owner_id"),
			serializer.RecordType("user"),
			serializer.Using(serializer.PerObject(
				func(obj record.Record, _ record.Params) (*serializer.Serializer, error) {
					s, _ := reg.Lookup(obj.Type())
					return s, nil
				},
			)),
		),
		serializer.HasMany("actors_and_users",
			serializer.Polymorphic(),
			serializer.Objects(serializer.Accessor("polymorphics")),
		),
		serializer.HasMany("non_polymorphic_actors_and_users",
			serializer.Fetch(func(rec record.Record, _ record.Params) (any, error) {
				return rec.Access("polymorphics")
			}),
		),
		serializer.Links(serializer.NewLink("self", serializer.Accessor("url"))),
	)
}

// conditionalsOn gates the actor's conditional attributes and relationships
func conditionalsOn(_ record.Record, params record.Params) bool {
	return params.Get(ParamConditionalsOff) != "yes"
}

func actorSerializer(t inflect.Transform, opts ...serializer.Option) *serializer.Serializer {
	salon := serializer.Callable(func(rec record.Record, _ record.Params) (any, error) {
		uid, err := rec.Access("uid")
		if err != nil {
			return nil, err
		}
		return fmt.Sprintf("www.somesalon.com/%v", uid), nil
	})

	opts = append([]serializer.Option{
		serializer.KeyTransform(t),
		serializer.ID(serializer.Accessor("uid")),
		serializer.Attributes("first_name", "last_name"),
		serializer.ConditionalAttribute("email", serializer.Accessor("email"), conditionalsOn),
		serializer.HasMany("played_movies",
			serializer.Using(serializer.Named("movie")),
			serializer.When(conditionalsOn),
		),
		serializer.BelongsTo("favorite_movie",
			serializer.Using(serializer.Named("movie")),
			serializer.Lazy(),
		),
		serializer.Links(
			serializer.NewLink("self", serializer.Accessor("url")),
			serializer.NewLink("bio", serializer.Static("https://www.imdb.com/name/nm0000098/")),
			serializer.NewLink("hair_salon_discount", salon, serializer.LinkPolicy(serializer.Tolerant)),
		),
	}, opts...)
	return serializer.New("actor", opts...)
}

func userSerializer(t inflect.Transform, opts ...serializer.Option) *serializer.Serializer {
	opts = append([]serializer.Option{
		serializer.KeyTransform(t),
		serializer.ID(serializer.Accessor("uid")),
		serializer.Attributes("first_name", "last_name", "email"),
		serializer.Links(serializer.NewLink("self", serializer.Accessor("url"))),
	}, opts...)
	return serializer.New("user", opts...)
}
