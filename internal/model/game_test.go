package model_test

import (
	"testing"

	"gameforge/internal/model"

	"github.com/stretchr/testify/assert"
)

func TestGenreAndMoodValid(t *testing.T) {
	for _, g := range model.AllGenres {
		assert.True(t, g.Valid(), "genre %s", g)
	}
	for _, m := range model.AllMoods {
		assert.True(t, m.Valid(), "mood %s", m)
	}
	assert.False(t, model.Genre("kart").Valid())
	assert.False(t, model.Genre("").Valid())
	assert.False(t, model.Mood("grumpy").Valid())
}

func TestParseKeywords(t *testing.T) {
	assert.Equal(t, []string{"dragons", "magie"}, model.ParseKeywords(" dragons, ,magie ,"))
	assert.Equal(t, []string{}, model.ParseKeywords(""))
}

func TestSummary_NormalizesMood(t *testing.T) {
	a := model.GenerationContext{Title: "Nexus", Genre: model.GenreRPG, Mood: " Sombre ", Keywords: []string{"a", "b"}}
	b := a
	b.Mood = model.MoodSombre
	assert.Equal(t, "Nexus|rpg|sombre|a,b", a.Summary())
	assert.Equal(t, a.Summary(), b.Summary())
}

func TestImageResult_IsDemo(t *testing.T) {
	assert.True(t, model.ImageResult{Description: "texte"}.IsDemo())
	assert.False(t, model.ImageResult{ImageBytes: []byte{0x89, 'P', 'N', 'G'}}.IsDemo())
}

func TestGameConcept_VisibleTo(t *testing.T) {
	private := &model.GameConcept{UserID: "alice"}
	assert.True(t, private.VisibleTo("alice"))
	assert.False(t, private.VisibleTo("bob"))

	public := &model.GameConcept{UserID: "alice", Public: true}
	assert.True(t, public.VisibleTo("bob"))
}
