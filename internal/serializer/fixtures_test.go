package serializer

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/projector/internal/record"
)

// catalog is a small cyclic movie graph with its serializers
type catalog struct {
	reg *Registry

	movie *Serializer
	actor *Serializer
	user  *Serializer

	starWars *record.Map
	mark     *record.Map
	carrie   *record.Map
	owner    *record.Map
}

func newCatalog(t *testing.T, opts ...RegistryOption) *catalog {
	t.Helper()

	c := &catalog{}
	c.owner = record.NewMap("User", map[string]any{"id": 3, "name": "Owner"})
	c.mark = record.NewMap("Actor", map[string]any{"id": 1, "name": "Mark Hamill", "email": "mark@example.com"})
	c.carrie = record.NewMap("Actor", map[string]any{"id": 2, "name": "Carrie Fisher", "email": "carrie@example.com"})
	c.starWars = record.NewMap("Movie", map[string]any{
		"id":           232,
		"name":         "Star Wars",
		"release_year": 1977,
		"actor_ids":    []int{1, 2},
		"actors":       []record.Record{c.mark, c.carrie},
		"owner_id":     3,
		"owner":        c.owner,
	})
	for _, a := range []*record.Map{c.mark, c.carrie} {
		a.Values["played_movies"] = []record.Record{c.starWars}
		a.Values["played_movie_ids"] = []int{232}
	}

	c.user = New("user", Attributes("name"))
	c.actor = New("actor",
		Attributes("name", "email"),
		HasMany("played_movies", Using(Named("movie"))),
	)
	c.movie = New("movie",
		Attributes("name", "release_year"),
		HasMany("actors"),
		BelongsTo("owner", Using(Named("user"))),
		SelfLink(),
	)

	c.reg = NewRegistry(opts...)
	c.reg.MustRegister(c.movie, c.actor, c.user)
	require.NoError(t, c.reg.Compile())
	return c
}

func toJSON(t *testing.T, v any) string {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return string(raw)
}

func render(t *testing.T, s *Serializer, rec record.Record, opts Options) string {
	t.Helper()
	doc, err := s.Serialize(context.Background(), rec, opts)
	require.NoError(t, err)
	return toJSON(t, doc)
}

func selfLink(href string) map[string]any {
	return map[string]any{"rel": "self", "system": "", "type": "GET", "href": href}
}
