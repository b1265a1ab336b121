package model

import (
	"strings"
	"time"
)

// Genre is the video-game genre requested by the user.
type Genre string

const (
	GenreRPG       Genre = "rpg"
	GenreAction    Genre = "action"
	GenreAventure  Genre = "aventure"
	GenreStrategie Genre = "strategie"
	GenreHorror    Genre = "horror"
	GenreSciFi     Genre = "sci-fi"
	GenreFantasy   Genre = "fantasy"
	GenreCyberpunk Genre = "cyberpunk"
)

// AllGenres lists the genres accepted by the generator, in display order.
var AllGenres = []Genre{
	GenreRPG, GenreAction, GenreAventure, GenreStrategie,
	GenreHorror, GenreSciFi, GenreFantasy, GenreCyberpunk,
}

// Valid reports whether g is one of AllGenres.
func (g Genre) Valid() bool {
	for _, known := range AllGenres {
		if g == known {
			return true
		}
	}
	return false
}

// Mood is the tone tag that steers prompt phrasing and fallback templates.
type Mood string

const (
	MoodSombre       Mood = "sombre"
	MoodJoyeux       Mood = "joyeux"
	MoodMysterieux   Mood = "mysterieux"
	MoodEpique       Mood = "epique"
	MoodHumoristique Mood = "humoristique"
)

// AllMoods lists the moods accepted by the generator.
var AllMoods = []Mood{MoodSombre, MoodJoyeux, MoodMysterieux, MoodEpique, MoodHumoristique}

// Valid reports whether m is one of AllMoods.
func (m Mood) Valid() bool {
	for _, known := range AllMoods {
		if m == known {
			return true
		}
	}
	return false
}

// Normalized returns the lower-cased, trimmed mood used for table lookups.
func (m Mood) Normalized() Mood {
	return Mood(strings.ToLower(strings.TrimSpace(string(m))))
}

// ArtStyle is the suggested graphic style of a universe.
type ArtStyle string

const (
	ArtStyleRealiste ArtStyle = "realiste"
	ArtStyleCartoon  ArtStyle = "cartoon"
	ArtStylePixelArt ArtStyle = "pixel_art"
	ArtStyleAnime    ArtStyle = "anime"
	ArtStyleLowPoly  ArtStyle = "low_poly"
)

// WorldType is the suggested level structure of a universe.
type WorldType string

const (
	WorldTypeOpenWorld WorldType = "open_world"
	WorldTypeLineaire  WorldType = "lineaire"
	WorldTypeHub       WorldType = "hub"
	WorldTypeArene     WorldType = "arene"
)

// GenerationContext carries everything a generation step knows about the game so far.
// Title and Genre are always set when characters or locations are generated.
type GenerationContext struct {
	Title               string   `json:"title"`
	Genre               Genre    `json:"genre"`
	Mood                Mood     `json:"mood,omitempty"`
	Keywords            []string `json:"keywords,omitempty"`
	UniverseDescription string   `json:"universe_description,omitempty"`
}

// Summary is the stable string used to seed deterministic fallback content.
func (c GenerationContext) Summary() string {
	return strings.Join([]string{
		c.Title,
		string(c.Genre),
		string(c.Mood.Normalized()),
		strings.Join(c.Keywords, ","),
	}, "|")
}

// CharacterRecord is one generated character.
// Name and Background are mandatory, the other fields are defaulted when missing.
type CharacterRecord struct {
	Name        string `json:"name"`
	Role        string `json:"role"`
	Class       string `json:"class"`
	Personality string `json:"personality"`
	Background  string `json:"background"`
	Appearance  string `json:"appearance"`
	Skills      string `json:"skills"`
	Gameplay    string `json:"gameplay_description"`
}

// LocationRecord is one generated location. Name and Description are mandatory.
type LocationRecord struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Importance  string `json:"importance"`
	Dangers     string `json:"dangers"`
	Treasure    string `json:"treasure"`
}

// ScenarioRecord is the three-act plot plus twist.
type ScenarioRecord struct {
	Act1  string `json:"act_1"`
	Act2  string `json:"act_2"`
	Act3  string `json:"act_3"`
	Twist string `json:"twist"`
}

// Universe is the world description with the styles suggested for the genre.
type Universe struct {
	Description string    `json:"description"`
	ArtStyle    ArtStyle  `json:"art_style"`
	WorldType   WorldType `json:"world_type"`
}

// ImageResult is the outcome of cover generation.
// ImageURL stays empty: the upstream agent does not expose public URLs.
type ImageResult struct {
	Description string `json:"description"`
	ImageBytes  []byte `json:"-"`
	ImageURL    string `json:"image_url,omitempty"`
}

// IsDemo reports whether the result carries no binary payload.
func (r ImageResult) IsDemo() bool {
	return len(r.ImageBytes) == 0
}

// RandomParameters are the inputs of a "surprise me" generation.
type RandomParameters struct {
	Genre    Genre    `json:"genre"`
	Mood     Mood     `json:"mood"`
	Keywords []string `json:"keywords"`
}

// GameConcept is a complete generated game, ready to be persisted.
type GameConcept struct {
	ID         string            `json:"id" db:"id"`
	UserID     string            `json:"user_id" db:"user_id"`
	Title      string            `json:"title" db:"title"`
	Genre      Genre             `json:"genre" db:"genre"`
	Mood       Mood              `json:"mood" db:"mood"`
	Keywords   []string          `json:"keywords" db:"keywords"`
	Universe   Universe          `json:"universe" db:"-"`
	Scenario   ScenarioRecord    `json:"scenario" db:"scenario"`
	Characters []CharacterRecord `json:"characters" db:"characters"`
	Locations  []LocationRecord  `json:"locations" db:"locations"`
	Cover      ImageResult       `json:"cover" db:"-"`
	Public     bool              `json:"public" db:"is_public"`
	LikesCount int               `json:"likes_count" db:"likes_count"`
	CreatedAt  time.Time         `json:"created_at" db:"created_at"`
}

// VisibleTo reports whether userID may read the concept: its owner always
// can, everyone else only when it is public.
func (g *GameConcept) VisibleTo(userID string) bool {
	return g.Public || g.UserID == userID
}

// Context returns the generation context derived from the concept.
func (g *GameConcept) Context() GenerationContext {
	return GenerationContext{
		Title:               g.Title,
		Genre:               g.Genre,
		Mood:                g.Mood,
		Keywords:            g.Keywords,
		UniverseDescription: g.Universe.Description,
	}
}

// ParseKeywords splits a comma separated keyword string, dropping blanks.
func ParseKeywords(raw string) []string {
	parts := strings.Split(raw, ",")
	keywords := make([]string, 0, len(parts))
	for _, p := range parts {
		if k := strings.TrimSpace(p); k != "" {
			keywords = append(keywords, k)
		}
	}
	return keywords
}
