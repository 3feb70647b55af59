package commands

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, dir string, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("DATABASE_URL", "")
	t.Setenv("PROJECTOR_LOG_DISABLED", "true")

	cmd := NewRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config-dir", dir, "--no-color"}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, _, err := run(t, t.TempDir(), "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Projector version: dev")
	assert.Contains(t, out, "Go version: go")
}

func TestRenderCommand(t *testing.T) {
	out, _, err := run(t, t.TempDir(), "render", "movies", "232", "--compact", "--no-links", "--fields", "name,actors(first_name)")
	require.NoError(t, err)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "Star Wars", doc["name"])
	assert.NotContains(t, doc, "release_year")
	assert.NotContains(t, doc, "links")
	assert.Equal(t, map[string]interface{}{"id": "u1"}, doc["owner"])

	actor := doc["actors"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "Mark", actor["first_name"])
	assert.NotContains(t, actor, "email")
}

func TestRenderCommand_Params(t *testing.T) {
	out, _, err := run(t, t.TempDir(), "render", "actor", "a1", "--param", "conditionals_off=yes")
	require.NoError(t, err)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.NotContains(t, doc, "played_movies")
	assert.NotContains(t, doc, "email")
	assert.Contains(t, doc, "links")
}

func TestRenderCommand_Depth(t *testing.T) {
	out, _, err := run(t, t.TempDir(), "render", "movie", "232", "--depth", "0", "--no-links")
	require.NoError(t, err)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	actor := doc["actors"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "Mark", actor["first_name"])
	assert.Equal(t, []interface{}{map[string]interface{}{"id": "232"}, map[string]interface{}{"id": "233"}}, actor["played_movies"])
}

func TestRenderCommand_UnknownSerializer(t *testing.T) {
	_, stderr, err := run(t, t.TempDir(), "render", "moive", "232")
	require.Error(t, err)

	var reported *reportedError
	assert.True(t, errors.As(err, &reported))
	assert.Contains(t, stderr, "Cannot find serializer 'moive'.")
	assert.Contains(t, stderr, "Did you mean: movie?")
}

func TestRenderCommand_UnknownRecord(t *testing.T) {
	_, stderr, err := run(t, t.TempDir(), "render", "actor", "a4")
	require.Error(t, err)
	assert.Contains(t, stderr, "No actor with id 'a4'.")
	assert.Contains(t, stderr, "Did you mean: a1, a2, a3?")
}

func TestRenderCommand_BadFields(t *testing.T) {
	_, _, err := run(t, t.TempDir(), "render", "movie", "232", "--fields", "name(")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --fields")
}

func TestInspectCommand(t *testing.T) {
	out, _, err := run(t, t.TempDir(), "inspect", "movies")
	require.NoError(t, err)

	assert.Contains(t, out, "max depth: 2")
	assert.Contains(t, out, "movie (type movie)")
	assert.Contains(t, out, "actors_and_users")
	assert.Contains(t, out, "(polymorphic)")
	assert.Contains(t, out, "(dynamic)")
	assert.NotContains(t, out, "actor (type actor)")

	out, _, err = run(t, t.TempDir(), "inspect")
	require.NoError(t, err)
	assert.Contains(t, out, "actor (type actor)")
	assert.Contains(t, out, "lazy")
}

func TestMigrateCommand_RequiresDatabase(t *testing.T) {
	_, stderr, err := run(t, t.TempDir(), "migrate")
	require.Error(t, err)
	assert.Contains(t, stderr, "database.url is not set")
}

func TestMigrateAndRenderFromDatabase(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "catalog.db")
	config := "database:\n  driver: sqlite3\n  url: " + dbPath + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "projector.yml"), []byte(config), 0644))

	out, _, err := run(t, dir, "migrate", "--seed")
	require.NoError(t, err)
	assert.Contains(t, out, "Catalog tables ready")
	assert.Contains(t, out, "Seeded 3 movies, 3 actors, 2 users")

	out, _, err = run(t, dir, "render", "user", "u2", "--compact")
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"id": "u2",
		"first_name": "Marcia",
		"last_name": "Lucas",
		"email": "marcia@example.com",
		"links": [{"rel": "self", "system": "", "type": "GET", "href": "/users/u2"}]
	}`, out)
}

func TestMigrateSeedClearsFragmentCache(t *testing.T) {
	mr := miniredis.RunT(t)
	require.NoError(t, mr.Set("projector:fragment:actor:a1:abc", `{"id":"a1"}`))
	require.NoError(t, mr.Set("sessions:1", "keep"))

	dir := t.TempDir()
	config := "database:\n  driver: sqlite3\n  url: " + filepath.Join(dir, "catalog.db") + "\n" +
		"cache:\n  backend: redis\n" +
		"redis:\n  addr: " + mr.Addr() + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "projector.yml"), []byte(config), 0644))

	out, _, err := run(t, dir, "migrate", "--seed")
	require.NoError(t, err)
	assert.Contains(t, out, "Cleared cached fragments")
	assert.False(t, mr.Exists("projector:fragment:actor:a1:abc"))
	assert.True(t, mr.Exists("sessions:1"))

	out, _, err = run(t, dir, "migrate")
	require.NoError(t, err)
	assert.NotContains(t, out, "Cleared cached fragments")
}

func TestInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "projector.yml"), []byte("serializer:\n  max_depth: -1\n"), 0644))

	_, _, err := run(t, dir, "render", "movie", "232")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_depth")
}
