package serializer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/projector/internal/fields"
	"github.com/conduit-lang/projector/internal/record"
)

func TestRelationship_InlinesAtMaxDepth(t *testing.T) {
	c := newCatalog(t)

	got := render(t, c.movie, c.starWars, Options{Level: DefaultMaxDepth, NoLinks: true})
	assert.JSONEq(t, `{
		"id": "232",
		"name": "Star Wars",
		"release_year": 1977,
		"actors": [
			{"id": "1", "name": "Mark Hamill", "email": "mark@example.com", "played_movies": [{"id": "232"}]},
			{"id": "2", "name": "Carrie Fisher", "email": "carrie@example.com", "played_movies": [{"id": "232"}]}
		],
		"owner": {"id": "3", "name": "Owner"}
	}`, got)
}

func TestRelationship_StubsBeyondMaxDepth(t *testing.T) {
	c := newCatalog(t)

	got := render(t, c.movie, c.starWars, Options{Level: DefaultMaxDepth + 1})
	assert.JSONEq(t, toJSON(t, map[string]any{
		"id":           "232",
		"name":         "Star Wars",
		"release_year": 1977,
		"actors": []any{
			map[string]any{"id": "1", "links": []any{selfLink("/actors/1")}},
			map[string]any{"id": "2", "links": []any{selfLink("/actors/2")}},
		},
		"owner": map[string]any{"id": "3", "links": []any{selfLink("/users/3")}},
		"links": []any{selfLink("/movies/232")},
	}), got)
}

func TestRelationship_MaxDepthFromRegistry(t *testing.T) {
	c := newCatalog(t, WithMaxDepth(0))

	doc, err := c.movie.Serialize(context.Background(), c.starWars, Options{NoLinks: true})
	require.NoError(t, err)

	actors, ok := doc.Get("actors")
	require.True(t, ok)
	first := actors.([]any)[0].(*Document)
	assert.True(t, first.Has("name"))

	// the actor document sits at level 1, past the limit
	played, _ := first.Get("played_movies")
	stub := played.([]any)[0].(*Document)
	assert.Equal(t, []string{"id"}, stub.Keys())
}

func TestRelationship_RootTraversesCycleToDepthLimit(t *testing.T) {
	c := newCatalog(t)

	doc, err := c.movie.Serialize(context.Background(), c.starWars, Options{NoLinks: true})
	require.NoError(t, err)

	// movie(0) -> actor(1) -> movie(2) -> actor(3) -> stub
	level := any(doc)
	for _, key := range []string{"actors", "played_movies", "actors"} {
		v, ok := level.(*Document).Get(key)
		require.True(t, ok, key)
		level = v.([]any)[0]
		assert.True(t, level.(*Document).Has("name"), key)
	}

	played, _ := level.(*Document).Get("played_movies")
	assert.Equal(t, []string{"id"}, played.([]any)[0].(*Document).Keys())
}

func TestRelationship_Lazy(t *testing.T) {
	c := newCatalog(t)

	calls := 0
	rel := NewRelationship(ToMany, "played_movies",
		Using(Named("movie")),
		Lazy(),
		Fetch(func(rec record.Record, _ record.Params) (any, error) {
			calls++
			return rec.Access("played_movies")
		}),
	)
	c.reg.MustRegister(New("lazy_actor", Relate(rel)))
	ctx := context.Background()

	v, present, err := rel.Serialize(ctx, c.reg, c.mark, Options{Level: DefaultMaxDepth, NoLinks: true})
	require.NoError(t, err)
	require.True(t, present)
	assert.True(t, v.([]any)[0].(*Document).Has("release_year"))

	v, present, err = rel.Serialize(ctx, c.reg, c.mark, Options{Level: DefaultMaxDepth + 1, NoLinks: true})
	require.NoError(t, err)
	require.True(t, present)
	assert.JSONEq(t, `[{"id":"232"}]`, toJSON(t, v))

	before := calls
	_, present, err = rel.Serialize(ctx, c.reg, c.mark, Options{Level: DefaultMaxDepth + 2})
	require.NoError(t, err)
	assert.False(t, present)
	assert.Equal(t, before, calls, "lazy data must not be fetched when omitted")
}

func TestRelationship_EagerPresentBeyondDepthPlusOne(t *testing.T) {
	c := newCatalog(t)
	rel, ok := c.actor.Relationship("played_movies")
	require.True(t, ok)

	_, present, err := rel.Serialize(context.Background(), c.reg, c.mark, Options{Level: DefaultMaxDepth + 5})
	require.NoError(t, err)
	assert.True(t, present)
}

func TestRelationship_FieldProjectionPerBranch(t *testing.T) {
	c := newCatalog(t)
	sel := fields.New(fields.Field("name"), fields.Nest("actors", fields.Field("email")))

	got := render(t, c.movie, c.starWars, Options{Fields: sel, NoLinks: true})
	assert.JSONEq(t, `{
		"id": "232",
		"name": "Star Wars",
		"actors": [
			{"id": "1", "email": "mark@example.com", "played_movies": [{"id": "232"}]},
			{"id": "2", "email": "carrie@example.com", "played_movies": [{"id": "232"}]}
		],
		"owner": {"id": "3"}
	}`, got)
}

func TestRelationship_BareNameIsUnrestricted(t *testing.T) {
	c := newCatalog(t)

	doc, err := c.movie.Serialize(context.Background(), c.starWars, Options{Fields: fields.Names("actors"), NoLinks: true})
	require.NoError(t, err)

	assert.False(t, doc.Has("name"))
	actors, _ := doc.Get("actors")
	actor := actors.([]any)[0].(*Document)
	assert.Equal(t, []string{"id", "name", "email", "played_movies"}, actor.Keys())

	played, _ := actor.Get("played_movies")
	movie := played.([]any)[0].(*Document)
	assert.True(t, movie.Has("release_year"))
	assert.True(t, movie.Has("owner"))
}

func TestRelationship_UnselectedKeyDegradesToStubs(t *testing.T) {
	c := newCatalog(t)

	got := render(t, c.movie, c.starWars, Options{Fields: fields.Names("name"), NoLinks: true})
	assert.JSONEq(t, `{
		"id": "232",
		"name": "Star Wars",
		"actors": [{"id": "1"}, {"id": "2"}],
		"owner": {"id": "3"}
	}`, got)
}

func TestRelationship_PolymorphicAlwaysStubs(t *testing.T) {
	c := newCatalog(t)
	c.starWars.Values["actors_and_users"] = []record.Record{c.mark, c.owner}
	c.starWars.Values["creator"] = c.mark

	s := New("polymorphic_movie",
		HasMany("actors_and_users", Polymorphic()),
		BelongsTo("creator", Polymorphic()),
	)
	c.reg.MustRegister(s)
	require.NoError(t, c.reg.Compile())

	want := toJSON(t, map[string]any{
		"id": "232",
		"actors_and_users": []any{
			map[string]any{"id": "1", "type": "actor", "links": []any{selfLink("/actors/1")}},
			map[string]any{"id": "3", "type": "user", "links": []any{selfLink("/users/3")}},
		},
		"creator": map[string]any{"id": "1", "type": "actor", "links": []any{selfLink("/actors/1")}},
	})

	for _, level := range []int{0, DefaultMaxDepth, DefaultMaxDepth + 1} {
		assert.JSONEq(t, want, render(t, s, c.starWars, Options{Level: level}))
	}

	// polymorphic stubs keep their links
	assert.JSONEq(t, want, render(t, s, c.starWars, Options{NoLinks: true}))
}

func TestRelationship_PolymorphicFetch(t *testing.T) {
	c := newCatalog(t)

	s := New("fetching_movie", HasMany("cast",
		Polymorphic(),
		Fetch(func(rec record.Record, params record.Params) (any, error) {
			if params.Has("only_users") {
				return []record.Record{c.owner}, nil
			}
			return []record.Record{c.carrie, c.owner}, nil
		}),
	))
	c.reg.MustRegister(s)

	doc, err := s.Serialize(context.Background(), c.starWars, Options{Params: record.Params{"only_users": true}})
	require.NoError(t, err)
	cast, _ := doc.Get("cast")
	require.Len(t, cast.([]any), 1)
	tag, _ := cast.([]any)[0].(*Document).Get(KeyType)
	assert.Equal(t, "user", tag)
}

func TestRelationship_ToOneAbsent(t *testing.T) {
	c := newCatalog(t)
	c.starWars.Values["owner_id"] = nil
	c.starWars.Values["owner"] = nil

	for _, level := range []int{0, DefaultMaxDepth + 1} {
		doc, err := c.movie.Serialize(context.Background(), c.starWars, Options{Level: level})
		require.NoError(t, err)
		owner, ok := doc.Get("owner")
		require.True(t, ok)
		assert.Nil(t, owner)
	}
}

func TestRelationship_NullIDs(t *testing.T) {
	c := newCatalog(t)
	c.starWars.Values["owner_id"] = nil

	rel := NewRelationship(ToOne, "owner", Using(Named("user")), NullIDs())
	c.reg.MustRegister(New("null_movie", Relate(rel)))

	v, present, err := rel.Serialize(context.Background(), c.reg, c.starWars, Options{Level: DefaultMaxDepth + 1})
	require.NoError(t, err)
	require.True(t, present)
	assert.JSONEq(t, `{"id":null}`, toJSON(t, v))
}

func TestRelationship_ToManyStubsDropAbsentIDs(t *testing.T) {
	c := newCatalog(t)
	c.starWars.Values["actor_ids"] = []any{1, nil, "", "7"}

	got := render(t, c.movie, c.starWars, Options{Level: DefaultMaxDepth + 1, NoLinks: true})
	assert.JSONEq(t, `{
		"id": "232", "name": "Star Wars", "release_year": 1977,
		"actors": [{"id": "1"}, {"id": "7"}],
		"owner": {"id": "3"}
	}`, got)
}

func TestRelationship_ToManyWithoutIDsIsEmpty(t *testing.T) {
	c := newCatalog(t)
	c.starWars.Values["actor_ids"] = nil

	doc, err := c.movie.Serialize(context.Background(), c.starWars, Options{Level: DefaultMaxDepth + 1, NoLinks: true})
	require.NoError(t, err)
	actors, _ := doc.Get("actors")
	assert.Equal(t, []any{}, actors)
	assert.JSONEq(t, `{"id":"232","name":"Star Wars","release_year":1977,"actors":[],"owner":{"id":"3"}}`, toJSON(t, doc))
}

func TestRelationship_ToOneEmptyIdentifierListIsAbsent(t *testing.T) {
	c := newCatalog(t)
	c.starWars.Values["owner_id"] = []int{}

	doc, err := c.movie.Serialize(context.Background(), c.starWars, Options{Level: DefaultMaxDepth + 1})
	require.NoError(t, err)
	owner, ok := doc.Get("owner")
	require.True(t, ok)
	assert.Nil(t, owner)

	rel := NewRelationship(ToOne, "owner", Using(Named("user")), NullIDs())
	c.reg.MustRegister(New("empty_owner_movie", Relate(rel)))
	v, present, err := rel.Serialize(context.Background(), c.reg, c.starWars, Options{Level: DefaultMaxDepth + 1})
	require.NoError(t, err)
	require.True(t, present)
	assert.JSONEq(t, `{"id":null}`, toJSON(t, v))
}

func TestRelationship_ToOneRejectsIdentifierList(t *testing.T) {
	c := newCatalog(t)
	c.starWars.Values["owner_id"] = []int{3, 4}

	_, err := c.movie.Serialize(context.Background(), c.starWars, Options{Level: DefaultMaxDepth + 1})
	require.Error(t, err)
	assert.True(t, IsAssociationError(err))
	assert.ErrorIs(t, err, ErrInvalidAssociation)
}

func TestRelationship_When(t *testing.T) {
	c := newCatalog(t)
	s := New("gated_movie", HasMany("actors", When(func(_ record.Record, params record.Params) bool {
		return params.Get("with_actors") == true
	})))
	c.reg.MustRegister(s)

	doc, err := s.Serialize(context.Background(), c.starWars, Options{})
	require.NoError(t, err)
	assert.False(t, doc.Has("actors"))

	doc, err = s.Serialize(context.Background(), c.starWars, Options{Params: record.Params{"with_actors": true}})
	require.NoError(t, err)
	assert.True(t, doc.Has("actors"))
}

func TestRelationship_AssociationPolicy(t *testing.T) {
	c := newCatalog(t)

	strict := New("strict_movie", HasMany("reviews"))
	tolerant := New("tolerant_movie", HasMany("reviews", OnAssociationError(Tolerant)), HasOne("studio", OnAssociationError(Tolerant)))
	c.reg.MustRegister(strict, tolerant)

	_, err := strict.Serialize(context.Background(), c.starWars, Options{})
	require.Error(t, err)
	var assocErr *AssociationError
	require.ErrorAs(t, err, &assocErr)
	assert.Equal(t, "Movie", assocErr.RecordType)
	assert.Equal(t, "reviews", assocErr.Relationship)
	assert.ErrorIs(t, err, record.ErrNoAccessor)

	got := render(t, tolerant, c.starWars, Options{})
	assert.JSONEq(t, `{"id":"232","reviews":[],"studio":null}`, got)
}

func TestRelationship_FetchErrorsAreAssociationErrors(t *testing.T) {
	c := newCatalog(t)
	boom := errors.New("database unavailable")
	s := New("failing_movie", HasMany("actors",
		Using(Ref(c.actor)),
		Fetch(func(record.Record, record.Params) (any, error) { return nil, boom }),
	))

	_, err := s.Serialize(context.Background(), c.starWars, Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.True(t, IsAssociationError(err))
}

func TestRelationship_WrongObjectShape(t *testing.T) {
	c := newCatalog(t)
	c.starWars.Values["actors"] = "not a list"

	_, err := c.movie.Serialize(context.Background(), c.starWars, Options{})
	assert.ErrorIs(t, err, ErrInvalidAssociation)
}

func TestRelationship_FetchWithoutSpecUsesStubs(t *testing.T) {
	c := newCatalog(t)
	s := New("fetch_movie", HasMany("actors",
		IDs("name"),
		Fetch(func(rec record.Record, _ record.Params) (any, error) {
			return rec.Access("actors")
		}),
	))
	c.reg.MustRegister(s)
	require.NoError(t, c.reg.Compile())

	got := render(t, s, c.starWars, Options{NoLinks: true})
	assert.JSONEq(t, `{"id":"232","actors":[{"id":"Mark Hamill"},{"id":"Carrie Fisher"}]}`, got)
}

func TestRelationship_PerObjectSerializer(t *testing.T) {
	c := newCatalog(t)
	studio := record.NewMap("Studio", map[string]any{"id": 9})

	rel := NewRelationship(ToOne, "creator", Using(PerObject(func(obj record.Record, _ record.Params) (*Serializer, error) {
		s, _ := c.reg.Lookup(obj.Type())
		return s, nil
	})))
	s := New("review", Relate(rel))
	c.reg.MustRegister(s)

	review := record.NewMap("Review", map[string]any{"id": 5, "creator": c.owner})
	assert.JSONEq(t, `{"id":"5","creator":{"id":"3","name":"Owner"}}`, render(t, s, review, Options{NoLinks: true}))

	review.Values["creator"] = studio
	_, err := s.Serialize(context.Background(), review, Options{})
	var resErr *SerializerResolutionError
	require.ErrorAs(t, err, &resErr)
	assert.Equal(t, "Studio", resErr.Name)

	tolerant := NewRelationship(ToOne, "creator", OnMissingSerializer(Tolerant), Using(PerObject(func(record.Record, record.Params) (*Serializer, error) {
		return nil, nil
	})))
	c.reg.MustRegister(New("tolerant_review", Relate(tolerant)))
	v, present, err := tolerant.Serialize(context.Background(), c.reg, review, Options{})
	require.NoError(t, err)
	assert.True(t, present)
	assert.Nil(t, v)
}

func TestRelationship_PerObjectSelectorError(t *testing.T) {
	c := newCatalog(t)
	selectorErr := errors.New("no serializer for studios")
	pick := PerObject(func(record.Record, record.Params) (*Serializer, error) {
		return nil, selectorErr
	})

	strict := NewRelationship(ToOne, "creator", Using(pick))
	c.reg.MustRegister(New("strict_review", Relate(strict)))
	review := record.NewMap("Review", map[string]any{"id": 5, "creator": c.owner})

	_, _, err := strict.Serialize(context.Background(), c.reg, review, Options{})
	var resErr *SerializerResolutionError
	require.ErrorAs(t, err, &resErr)
	assert.Equal(t, "User", resErr.Name)
	assert.Equal(t, "creator", resErr.Relationship)
	assert.ErrorIs(t, err, selectorErr)

	tolerant := NewRelationship(ToOne, "creator", OnMissingSerializer(Tolerant), Using(pick))
	c.reg.MustRegister(New("lenient_review", Relate(tolerant)))
	v, present, err := tolerant.Serialize(context.Background(), c.reg, review, Options{})
	require.NoError(t, err)
	assert.True(t, present)
	assert.Nil(t, v)
}

func TestRelationship_DefaultIdentifierAccessor(t *testing.T) {
	in := NewRegistry().Inflector()

	assert.Equal(t, "played_movie_ids", NewRelationship(ToMany, "played_movies").identifierAccessor(in))
	assert.Equal(t, "owner_id", NewRelationship(ToOne, "owner").identifierAccessor(in))
	assert.Equal(t, "id", NewRelationship(ToMany, "cast", Polymorphic()).identifierAccessor(in))
	fetch := Fetch(func(record.Record, record.Params) (any, error) { return nil, nil })
	assert.Equal(t, "id", NewRelationship(ToMany, "cast", fetch).identifierAccessor(in))
	assert.Equal(t, "uid", NewRelationship(ToMany, "cast", IDs("uid")).identifierAccessor(in))
}

func TestRelationship_RecordTypeOverride(t *testing.T) {
	c := newCatalog(t)
	s := New("typed_movie", HasMany("actors", RecordType("performer")))
	c.reg.MustRegister(s)

	got := render(t, s, c.starWars, Options{Level: DefaultMaxDepth + 1})
	assert.JSONEq(t, toJSON(t, map[string]any{
		"id": "232",
		"actors": []any{
			map[string]any{"id": "1", "links": []any{selfLink("/performers/1")}},
			map[string]any{"id": "2", "links": []any{selfLink("/performers/2")}},
		},
	}), got)
}

func TestRelationship_StandaloneSerializer(t *testing.T) {
	c := newCatalog(t)
	actor := New("cast_member", Attributes("name"))
	movie := New("standalone_movie", HasMany("actors", Using(Ref(actor))))

	got := render(t, movie, c.starWars, Options{NoLinks: true})
	assert.JSONEq(t, `{"id":"232","actors":[{"id":"1","name":"Mark Hamill"},{"id":"2","name":"Carrie Fisher"}]}`, got)
}

func TestRelationship_Describe(t *testing.T) {
	c := newCatalog(t)

	owner, ok := c.movie.Relationship("owner")
	require.True(t, ok)
	name, recordType := owner.Target()
	assert.Equal(t, "user", name)
	assert.Equal(t, "user", recordType)
	assert.Equal(t, ToOne, owner.Kind())
	assert.False(t, owner.IsLazy())
	assert.False(t, owner.IsPolymorphic())

	actors, _ := c.movie.Relationship("actors")
	name, _ = actors.Target()
	assert.Equal(t, "actor", name)
	assert.Equal(t, "to_many", actors.Kind().String())

	detached := NewRelationship(ToOne, "studio", Lazy(), Polymorphic())
	name, recordType = detached.Target()
	assert.Empty(t, name)
	assert.Empty(t, recordType)
	assert.False(t, owner.IsPerObject())
	assert.True(t, NewRelationship(ToOne, "creator", Using(PerObject(nil))).IsPerObject())
	assert.True(t, detached.IsLazy())
	assert.True(t, detached.IsPolymorphic())
}
