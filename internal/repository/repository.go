package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gameforge/internal/model"
)

// ErrNotFound is returned when no concept has the requested id.
var ErrNotFound = errors.New("game concept not found")

// List limits of ListByUser.
const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// ConceptRepository persists generated game concepts.
type ConceptRepository interface {
	// Save inserts the concept or replaces the stored one with the same id.
	Save(ctx context.Context, concept *model.GameConcept) error
	GetByID(ctx context.Context, id string) (*model.GameConcept, error)
	// ListByUser returns the concepts of userID, newest first.
	ListByUser(ctx context.Context, userID string, limit int) ([]*model.GameConcept, error)
	// Delete removes a concept of userID together with its favorites.
	// Unknown ids and concepts of other users give ErrNotFound.
	Delete(ctx context.Context, id, userID string) error
	// ToggleFavorite adds the concept to the favorites of userID, or removes
	// it when it already is one.
	ToggleFavorite(ctx context.Context, id, userID string) (FavoriteState, error)
	// ListFavorites returns the favorites of userID, most recently added first.
	ListFavorites(ctx context.Context, userID string, limit int) ([]*model.GameConcept, error)
	// ListPublic returns public concepts, newest first. A non-empty query keeps
	// the ones whose title, genre or keywords contain it, ignoring case.
	ListPublic(ctx context.Context, query string, limit int) ([]*model.GameConcept, error)
}

// FavoriteState is the outcome of ToggleFavorite.
type FavoriteState struct {
	ConceptID  string `json:"concept_id"`
	Favorited  bool   `json:"favorited"`
	LikesCount int    `json:"likes_count"`
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern turns a search query into a LIKE pattern matching it anywhere.
// The empty query matches everything.
func likePattern(query string) string {
	return "%" + likeEscaper.Replace(strings.TrimSpace(query)) + "%"
}

func normalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultListLimit
	case limit > MaxListLimit:
		return MaxListLimit
	default:
		return limit
	}
}

// conceptRow is the flat storage form shared by both backends.
// Slices and the scenario are stored as JSON.
type conceptRow struct {
	ID                  string    `db:"id"`
	UserID              string    `db:"user_id"`
	Title               string    `db:"title"`
	Genre               string    `db:"genre"`
	Mood                string    `db:"mood"`
	Keywords            []byte    `db:"keywords"`
	UniverseDescription string    `db:"universe_description"`
	ArtStyle            string    `db:"art_style"`
	WorldType           string    `db:"world_type"`
	Scenario            []byte    `db:"scenario"`
	Characters          []byte    `db:"characters"`
	Locations           []byte    `db:"locations"`
	CoverDescription    string    `db:"cover_description"`
	CoverImage          []byte    `db:"cover_image"`
	IsPublic            bool      `db:"is_public"`
	LikesCount          int       `db:"likes_count"`
	CreatedAt           time.Time `db:"created_at"`
}

func toRow(c *model.GameConcept) (*conceptRow, error) {
	keywords := c.Keywords
	if keywords == nil {
		keywords = []string{}
	}
	characters := c.Characters
	if characters == nil {
		characters = []model.CharacterRecord{}
	}
	locations := c.Locations
	if locations == nil {
		locations = []model.LocationRecord{}
	}

	row := &conceptRow{
		ID:                  c.ID,
		UserID:              c.UserID,
		Title:               c.Title,
		Genre:               string(c.Genre),
		Mood:                string(c.Mood),
		UniverseDescription: c.Universe.Description,
		ArtStyle:            string(c.Universe.ArtStyle),
		WorldType:           string(c.Universe.WorldType),
		CoverDescription:    c.Cover.Description,
		CoverImage:          c.Cover.ImageBytes,
		IsPublic:            c.Public,
		CreatedAt:           c.CreatedAt.UTC(),
	}
	var err error
	if row.Keywords, err = json.Marshal(keywords); err != nil {
		return nil, fmt.Errorf("failed to encode keywords: %w", err)
	}
	if row.Scenario, err = json.Marshal(c.Scenario); err != nil {
		return nil, fmt.Errorf("failed to encode scenario: %w", err)
	}
	if row.Characters, err = json.Marshal(characters); err != nil {
		return nil, fmt.Errorf("failed to encode characters: %w", err)
	}
	if row.Locations, err = json.Marshal(locations); err != nil {
		return nil, fmt.Errorf("failed to encode locations: %w", err)
	}
	return row, nil
}

func (r *conceptRow) toModel() (*model.GameConcept, error) {
	c := &model.GameConcept{
		ID:     r.ID,
		UserID: r.UserID,
		Title:  r.Title,
		Genre:  model.Genre(r.Genre),
		Mood:   model.Mood(r.Mood),
		Universe: model.Universe{
			Description: r.UniverseDescription,
			ArtStyle:    model.ArtStyle(r.ArtStyle),
			WorldType:   model.WorldType(r.WorldType),
		},
		Cover: model.ImageResult{
			Description: r.CoverDescription,
			ImageBytes:  r.CoverImage,
		},
		Public:     r.IsPublic,
		LikesCount: r.LikesCount,
		CreatedAt:  r.CreatedAt.UTC(),
	}
	if err := decodeJSON(r.Keywords, &c.Keywords); err != nil {
		return nil, fmt.Errorf("failed to decode keywords of concept %s: %w", r.ID, err)
	}
	if err := decodeJSON(r.Scenario, &c.Scenario); err != nil {
		return nil, fmt.Errorf("failed to decode scenario of concept %s: %w", r.ID, err)
	}
	if err := decodeJSON(r.Characters, &c.Characters); err != nil {
		return nil, fmt.Errorf("failed to decode characters of concept %s: %w", r.ID, err)
	}
	if err := decodeJSON(r.Locations, &c.Locations); err != nil {
		return nil, fmt.Errorf("failed to decode locations of concept %s: %w", r.ID, err)
	}
	if c.Keywords == nil {
		c.Keywords = []string{}
	}
	return c, nil
}

func decodeJSON(raw []byte, dst any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}
