package cli_test

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"gameforge/internal/cli"
	"gameforge/internal/config"
	"gameforge/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupMockEnv forces mock mode: no key in the environment, no secrets, no .env.
func setupMockEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("AI_API_KEY", "")
	t.Setenv("MISTRAL_API_KEY", "")

	previous := config.SecretsDir
	config.SecretsDir = filepath.Join(dir, "secrets")
	t.Cleanup(func() { config.SecretsDir = previous })
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := cli.NewRootCommand(&out)
	root.SetArgs(append(args, "--log-level", "error"))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRandom(t *testing.T) {
	out, err := run(t, "random")
	require.NoError(t, err)

	var params model.RandomParameters
	require.NoError(t, json.Unmarshal([]byte(out), &params))
	assert.True(t, params.Genre.Valid())
	assert.True(t, params.Mood.Valid())
	assert.Len(t, params.Keywords, 3)
}

func TestGenerate_StoresHistory(t *testing.T) {
	dir := setupMockEnv(t)
	db := filepath.Join(dir, "history.db")

	out, err := run(t, "generate", "--db", db, "--genre", "rpg", "--mood", "sombre", "--keywords", "dragons, magie", "--characters", "2")
	require.NoError(t, err)

	var concept model.GameConcept
	require.NoError(t, json.Unmarshal([]byte(out), &concept))
	assert.NotEmpty(t, concept.ID)
	assert.NotEmpty(t, concept.Title)
	assert.Equal(t, "local", concept.UserID)
	assert.Equal(t, model.GenreRPG, concept.Genre)
	assert.Equal(t, []string{"dragons", "magie"}, concept.Keywords)
	assert.Len(t, concept.Characters, 2)
	assert.NotEmpty(t, concept.Cover.Description)

	out, err = run(t, "history", "--db", db)
	require.NoError(t, err)
	var entries []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, concept.ID, entries[0]["id"])
	assert.Equal(t, false, entries[0]["has_cover"])

	out, err = run(t, "show", concept.ID, "--db", db)
	require.NoError(t, err)
	var shown model.GameConcept
	require.NoError(t, json.Unmarshal([]byte(out), &shown))
	assert.Equal(t, concept.Title, shown.Title)
	assert.Equal(t, concept.Characters, shown.Characters)

	_, err = run(t, "show", concept.ID, "--db", db, "--user", "someone-else")
	assert.ErrorContains(t, err, "not found")

	out, err = run(t, "history", "--db", db, "--user", "someone-else")
	require.NoError(t, err)
	assert.JSONEq(t, "[]", out)
}

func TestGenerate_SurpriseStopsAtQuota(t *testing.T) {
	setupMockEnv(t)

	out, err := run(t, "generate", "--db", "", "--surprise", "--count", "3", "--quota", "2")
	require.NoError(t, err)

	var concepts []model.GameConcept
	require.NoError(t, json.Unmarshal([]byte(out), &concepts))
	require.Len(t, concepts, 2)
	for _, c := range concepts {
		assert.True(t, c.Genre.Valid())
		assert.Len(t, c.Keywords, 3)
	}
}

func TestGenerate_InvalidInput(t *testing.T) {
	setupMockEnv(t)

	_, err := run(t, "generate", "--db", "", "--genre", "kart")
	assert.ErrorContains(t, err, "invalid genre")

	_, err = run(t, "generate", "--db", "", "--genre", "rpg", "--mood", "grumpy")
	assert.ErrorContains(t, err, "invalid mood")

	_, err = run(t, "generate", "--db", "", "--genre", "rpg", "--count", "0")
	assert.ErrorContains(t, err, "--count")
}

func TestHistory_Disabled(t *testing.T) {
	_, err := run(t, "history", "--db", "")
	assert.ErrorContains(t, err, "history is disabled")
}

func TestDelete(t *testing.T) {
	dir := setupMockEnv(t)
	db := filepath.Join(dir, "history.db")

	out, err := run(t, "generate", "--db", db, "--genre", "horror", "--private")
	require.NoError(t, err)
	var concept model.GameConcept
	require.NoError(t, json.Unmarshal([]byte(out), &concept))
	assert.False(t, concept.Public)

	_, err = run(t, "delete", concept.ID, "--db", db, "--user", "someone-else")
	assert.ErrorContains(t, err, "not found")

	out, err = run(t, "delete", concept.ID, "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, concept.ID)

	out, err = run(t, "history", "--db", db)
	require.NoError(t, err)
	assert.JSONEq(t, "[]", out)
}
