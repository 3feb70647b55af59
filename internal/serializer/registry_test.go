package serializer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/projector/internal/record"
)

func TestRegistry_RegisterAndLookup(t *testing.T) {
	reg := NewRegistry()
	movie := New("Movie")
	reg.MustRegister(movie)

	for _, name := range []string{"movie", "Movie", " movie "} {
		s, ok := reg.Lookup(name)
		require.True(t, ok, name)
		assert.Same(t, movie, s)
	}

	_, ok := reg.Lookup("actor")
	assert.False(t, ok)
}

func TestRegistry_Duplicate(t *testing.T) {
	reg := NewRegistry()
	movie := New("movie")
	require.NoError(t, reg.Register(movie))
	require.NoError(t, reg.Register(movie), "registering the same serializer twice is a no-op")

	err := reg.Register(New("Movie"))
	assert.ErrorIs(t, err, ErrDuplicateSerializer)
	assert.Panics(t, func() { reg.MustRegister(New("movie")) })
}

func TestRegistry_RefusesSerializerResolvedElsewhere(t *testing.T) {
	c := newCatalog(t)
	movie := New("late_movie", HasMany("actors", Using(Named("actor"))))

	// rendering unregistered resolves against the standalone registry
	_, err := movie.Serialize(context.Background(), c.starWars, Options{})
	var resErr *SerializerResolutionError
	require.ErrorAs(t, err, &resErr)

	err = c.reg.Register(movie)
	assert.ErrorIs(t, err, ErrAlreadyResolved)
	assert.Contains(t, err.Error(), "late_movie.actors")
	_, ok := c.reg.Lookup("late_movie")
	assert.False(t, ok)

	other := NewRegistry()
	require.NoError(t, other.Register(c.user), "serializers without relationships carry no resolution")
	assert.ErrorIs(t, other.Register(c.movie), ErrAlreadyResolved)
}

func TestRegistry_Names(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister(New("user"), New("ActorOrUser"), New("movie"))

	assert.Equal(t, []string{"actor_or_user", "movie", "user"}, reg.Names())
	assert.Equal(t, DefaultMaxDepth, reg.MaxDepth())
	assert.Equal(t, 5, NewRegistry(WithMaxDepth(5)).MaxDepth())
	assert.NotNil(t, NewRegistry(WithInflector(nil), WithLogger(nil)).Inflector())
}

func TestRegistry_CompileUnknownName(t *testing.T) {
	post := New("post", HasMany("comments", Using(Named("bad"))))
	reg := NewRegistry()
	reg.MustRegister(post)

	err := reg.Compile()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "'bad'")

	var resErr *SerializerResolutionError
	require.ErrorAs(t, err, &resErr)
	assert.Equal(t, "bad", resErr.Name)
	assert.Equal(t, "post", resErr.Owner)
	assert.Equal(t, "comments", resErr.Relationship)

	// the resolution is cached and keeps failing
	rec := record.NewMap("Post", map[string]any{"id": 1})
	_, err = post.Serialize(context.Background(), rec, Options{})
	require.ErrorAs(t, err, &resErr)
}

func TestRegistry_CompileTolerantUnknownName(t *testing.T) {
	post := New("post", HasMany("comments", Using(Named("bad")), OnMissingSerializer(Tolerant)))
	reg := NewRegistry()
	reg.MustRegister(post)
	require.NoError(t, reg.Compile())

	rec := record.NewMap("Post", map[string]any{"id": 1, "comment_ids": []int{4}})
	assert.JSONEq(t, `{"id":"1","comments":[{"id":"4"}]}`, render(t, post, rec, Options{NoLinks: true}))
}

func TestRegistry_InfersSingularName(t *testing.T) {
	comment := New("comment", Attributes("body"))
	post := New("post", HasMany("comments"), HasMany("comment", Key("remarks")))
	reg := NewRegistry()
	reg.MustRegister(post, comment)
	require.NoError(t, reg.Compile())

	for _, key := range []string{"comments", "remarks"} {
		rel, ok := post.Relationship(key)
		require.True(t, ok)
		res := rel.resolve(reg)
		assert.Same(t, comment, res.serializer, key)
		assert.Equal(t, "comment", res.recordType, key)
	}

	c := record.NewMap("Comment", map[string]any{"id": 5, "body": "hi"})
	rec := record.NewMap("Post", map[string]any{"id": 1, "comments": []record.Record{c}, "comment": []record.Record{c}})

	// the wire key is never inflected
	assert.JSONEq(t, `{
		"id": "1",
		"comments": [{"id": "5", "body": "hi"}],
		"remarks": [{"id": "5", "body": "hi"}]
	}`, render(t, post, rec, Options{NoLinks: true}))
}

func TestRegistry_InferenceMissIsSilent(t *testing.T) {
	post := New("post", HasMany("tags"))
	reg := NewRegistry()
	reg.MustRegister(post)
	require.NoError(t, reg.Compile())

	rel, _ := post.Relationship("tags")
	res := rel.resolve(reg)
	assert.Nil(t, res.serializer)
	assert.Equal(t, "", res.recordType)
	assert.NoError(t, res.err)

	rec := record.NewMap("Post", map[string]any{"id": 1, "tag_ids": []string{"go"}})
	assert.JSONEq(t, toJSON(t, map[string]any{
		"id":   "1",
		"tags": []any{map[string]any{"id": "go", "links": []any{selfLink("/go")}}},
	}), render(t, post, rec, Options{}))
}

func TestRegistry_ResolutionIsStable(t *testing.T) {
	c := newCatalog(t)
	rel, _ := c.movie.Relationship("actors")

	first := rel.resolve(c.reg)
	require.NoError(t, c.reg.Compile())
	assert.Same(t, first, rel.resolve(c.reg))
	assert.Same(t, c.actor, first.serializer)
}
