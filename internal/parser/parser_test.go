package parser_test

import (
	"strings"
	"testing"

	"gameforge/internal/parser"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const threeCharacters = `NOM: Aldric
ROLE: héros
CLASSE: paladin
PERSONNALITE: Loyal, têtu, généreux
BACKGROUND: Ancien garde royal.
APPARENCE: Grand, cicatrice au menton
COMPETENCES: Bouclier sacré
GAMEPLAY: Tank de première ligne
---
NOM: Morwen
RÔLE: antagoniste
BACKGROUND: Sorcière exilée.
---
NOM: Pip
PERSONNALITÉ: Farceur
BACKGROUND: Voleur des rues.`

func TestStripEmphasis(t *testing.T) {
	cases := map[string]string{
		"**NOM:** Aldric":          "NOM: Aldric",
		"*ROLE:* _héros_":          "ROLE: héros",
		"__BACKGROUND__: Exilé":    "BACKGROUND: Exilé",
		"type_monde: open_world":   "type_monde: open_world",
		"***TWIST***: __trahison__": "TWIST: trahison",
	}
	for in, want := range cases {
		assert.Equal(t, want, parser.StripEmphasis(in), "input %q", in)
	}
}

func TestStripEmphasis_Idempotent(t *testing.T) {
	inputs := []string{
		threeCharacters,
		"**gras** et _italique_ et __souligné__ et open_world",
		"_ _a_ _",
		"___x___y___",
		"",
	}
	for _, in := range inputs {
		once := parser.StripEmphasis(in)
		assert.Equal(t, once, parser.StripEmphasis(once), "input %q", in)
	}
}

func TestParseCharacters_AllBlocks(t *testing.T) {
	chars := parser.ParseCharacters(threeCharacters)
	require.Len(t, chars, 3)

	assert.Equal(t, "Aldric", chars[0].Name)
	assert.Equal(t, "héros", chars[0].Role)
	assert.Equal(t, "paladin", chars[0].Class)
	assert.Equal(t, "Tank de première ligne", chars[0].Gameplay)

	// Accented label spelling and defaults.
	assert.Equal(t, "antagoniste", chars[1].Role)
	assert.Equal(t, "guerrier", chars[1].Class)
	assert.Equal(t, "Courageux et déterminé", chars[1].Personality)
	assert.Equal(t, "Apparence héroïque", chars[1].Appearance)
	assert.Equal(t, "Combat et leadership", chars[1].Skills)
	assert.Equal(t, "Personnage équilibré", chars[1].Gameplay)

	assert.Equal(t, "Farceur", chars[2].Personality)
	assert.Equal(t, "allié", chars[2].Role)
}

func TestParseCharacters_MalformedBlockDropped(t *testing.T) {
	text := threeCharacters + "\n---\nROLE: mentor\nBACKGROUND: Sans nom."
	segments := strings.Split(text, parser.RecordSeparator)
	require.Len(t, segments, 4)

	chars := parser.ParseCharacters(text)
	assert.Len(t, chars, len(segments)-1)
}

func TestParseCharacters_RequiresBackground(t *testing.T) {
	chars := parser.ParseCharacters("NOM: Solo\nROLE: héros\nCLASSE: mage")
	assert.Empty(t, chars)
}

func TestParseCharacters_ContinuableBackground(t *testing.T) {
	text := `NOM: Ysolde
BACKGROUND: Née dans les marais.
Elle a perdu sa famille lors de la grande crue.
Depuis, elle traque le dragon responsable.
APPARENCE: Cheveux noirs
Cette ligne n'est rattachée à aucun champ continuable.`

	chars := parser.ParseCharacters(text)
	require.Len(t, chars, 1)
	assert.Equal(t,
		"Née dans les marais. Elle a perdu sa famille lors de la grande crue. Depuis, elle traque le dragon responsable.",
		chars[0].Background)
	assert.Equal(t, "Cheveux noirs", chars[0].Appearance)
}

func TestParseCharacters_MarkdownWrapped(t *testing.T) {
	text := "**NOM:** Kira\n**BACKGROUND:** Pilote de *mecha*.\n**CLASSE:** __pilote__"
	chars := parser.ParseCharacters(text)
	require.Len(t, chars, 1)
	assert.Equal(t, "Kira", chars[0].Name)
	assert.Equal(t, "Pilote de mecha.", chars[0].Background)
	assert.Equal(t, "pilote", chars[0].Class)
}

func TestParseLocations(t *testing.T) {
	text := `Voici les lieux:
NOM: Forteresse d'Onyx
TYPE: château
DESCRIPTION: Une citadelle noire
bâtie sur un volcan endormi.
TRÉSORS: La couronne perdue
---
NOM: Marché Flottant
DESCRIPTION: Des barges reliées par des cordes.
---
Texte final sans lieu.`

	locs := parser.ParseLocations(text)
	require.Len(t, locs, 2)

	assert.Equal(t, "Forteresse d'Onyx", locs[0].Name)
	assert.Equal(t, "château", locs[0].Type)
	assert.Equal(t, "Une citadelle noire bâtie sur un volcan endormi.", locs[0].Description)
	assert.Equal(t, "La couronne perdue", locs[0].Treasure)
	assert.Equal(t, "Créatures hostiles et pièges anciens", locs[0].Dangers)

	assert.Equal(t, "zone mystérieuse", locs[1].Type)
	assert.Equal(t, "Lieu clé pour la quête principale", locs[1].Importance)
	assert.Equal(t, "Artéfacts puissants et connaissances perdues", locs[1].Treasure)
}

func TestParseRecords_NoRecords(t *testing.T) {
	assert.Empty(t, parser.ParseRecords("", parser.CharacterSchema))
	assert.Empty(t, parser.ParseRecords("Désolé, je ne peux pas.", parser.LocationSchema))
}

func TestSegmentScenario_NumberedActs(t *testing.T) {
	text := "1. ACTE 1: Le héros part.\n\n2. ACTE 2: Le héros combat.\n\n3. ACTE 3: Le héros triomphe.\n\n4. TWIST: Le traître est révélé."
	s := parser.SegmentScenario(text)

	assert.Equal(t, "Le héros part.", s.Act1)
	assert.Equal(t, "Le héros combat.", s.Act2)
	assert.Equal(t, "Le héros triomphe.", s.Act3)
	assert.Equal(t, "Le traître est révélé.", s.Twist)
}

func TestSegmentScenario_PlainParagraphsAndDefaults(t *testing.T) {
	text := "Un village brûle.\n\n  \n\nLa vengeance commence."
	s := parser.SegmentScenario(text)

	assert.Equal(t, "Un village brûle.", s.Act1)
	assert.Equal(t, "La vengeance commence.", s.Act2)
	assert.Equal(t, parser.DefaultAct3, s.Act3)
	assert.Equal(t, parser.DefaultTwist, s.Twist)
}

func TestSegmentScenario_LabelSeparators(t *testing.T) {
	text := "**ACTE 1 (Introduction)**: Réveil.\n\nACTE 2 - Exil.\n\nClimax. Le duel final.\n\nTWIST sans séparateur"
	s := parser.SegmentScenario(text)

	assert.Equal(t, "Réveil.", s.Act1)
	assert.Equal(t, "Exil.", s.Act2)
	assert.Equal(t, "Le duel final.", s.Act3)
	assert.Equal(t, parser.DefaultTwist, s.Twist)
}

func TestSegmentScenario_Empty(t *testing.T) {
	s := parser.SegmentScenario("")
	assert.Equal(t, parser.DefaultAct1, s.Act1)
	assert.Equal(t, parser.DefaultAct2, s.Act2)
	assert.Equal(t, parser.DefaultAct3, s.Act3)
	assert.Equal(t, parser.DefaultTwist, s.Twist)
}
