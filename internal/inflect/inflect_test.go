package inflect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnglish_Pluralize(t *testing.T) {
	in := Default()

	tests := []struct {
		word string
		want string
	}{
		{"movie", "movies"},
		{"actor", "actors"},
		{"person", "people"},
		{"category", "categories"},
		{"box", "boxes"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.word, func(t *testing.T) {
			assert.Equal(t, tt.want, in.Pluralize(tt.word))
		})
	}
}

func TestEnglish_Singularize(t *testing.T) {
	in := Default()

	assert.Equal(t, "comment", in.Singularize("comments"))
	assert.Equal(t, "comment", in.Singularize("comment"))
	assert.Equal(t, "played_movie", in.Singularize("played_movies"))
	assert.Equal(t, "person", in.Singularize("people"))
	assert.Equal(t, "", in.Singularize(""))
}

func TestTypeTag(t *testing.T) {
	in := Default()

	assert.Equal(t, "actor", TypeTag(in, "Actor"))
	assert.Equal(t, "user", TypeTag(in, "Users"))
	assert.Equal(t, "actor_or_user", TypeTag(in, "ActorOrUser"))
	assert.Equal(t, "actors", TypeTag(nil, "Actors"))
	assert.Equal(t, "", TypeTag(in, ""))
}

func TestTransform_Apply(t *testing.T) {
	tests := []struct {
		transform Transform
		in        string
		want      string
	}{
		{None, "release_year", "release_year"},
		{Camel, "release_year", "ReleaseYear"},
		{CamelLower, "release_year", "releaseYear"},
		{Dash, "release_year", "release-year"},
		{Underscore, "ReleaseYear", "release_year"},
	}

	for _, tt := range tests {
		t.Run(tt.transform.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.transform.Apply(tt.in))
		})
	}
}

func TestParseTransform(t *testing.T) {
	tr, err := ParseTransform("camel_lower")
	require.NoError(t, err)
	assert.Equal(t, CamelLower, tr)

	tr, err = ParseTransform("")
	require.NoError(t, err)
	assert.Equal(t, None, tr)

	tr, err = ParseTransform(" Dash ")
	require.NoError(t, err)
	assert.Equal(t, Dash, tr)

	_, err = ParseTransform("shout")
	assert.Error(t, err)
}
