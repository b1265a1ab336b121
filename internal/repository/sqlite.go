package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gameforge/internal/model"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS game_concepts (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	title TEXT NOT NULL,
	genre TEXT NOT NULL,
	mood TEXT NOT NULL DEFAULT '',
	keywords TEXT NOT NULL DEFAULT '[]',
	universe_description TEXT NOT NULL DEFAULT '',
	art_style TEXT NOT NULL DEFAULT '',
	world_type TEXT NOT NULL DEFAULT '',
	scenario TEXT NOT NULL DEFAULT '{}',
	characters TEXT NOT NULL DEFAULT '[]',
	locations TEXT NOT NULL DEFAULT '[]',
	cover_description TEXT NOT NULL DEFAULT '',
	cover_image BLOB,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_game_concepts_user_created ON game_concepts (user_id, created_at DESC);
CREATE TABLE IF NOT EXISTS game_favorites (
	user_id TEXT NOT NULL,
	concept_id TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	PRIMARY KEY (user_id, concept_id)
);
CREATE INDEX IF NOT EXISTS idx_game_favorites_concept ON game_favorites (concept_id);
`

// History files written before visibility existed lack is_public.
const sqliteAddPublicColumn = `ALTER TABLE game_concepts ADD COLUMN is_public INTEGER NOT NULL DEFAULT 1`

const sqliteSelect = `
	SELECT gc.id, gc.user_id, gc.title, gc.genre, gc.mood, gc.keywords, gc.universe_description, gc.art_style,
		gc.world_type, gc.scenario, gc.characters, gc.locations, gc.cover_description, gc.cover_image, gc.is_public,
		(SELECT COUNT(*) FROM game_favorites lf WHERE lf.concept_id = gc.id) AS likes_count, gc.created_at
`

var _ ConceptRepository = (*SQLiteConceptRepository)(nil)

// SQLiteConceptRepository keeps the local generation history of the CLI.
type SQLiteConceptRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLiteConceptRepository opens dataSourceName and creates the table when missing.
// ":memory:" gives a throwaway database.
func NewSQLiteConceptRepository(dataSourceName string, logger *zap.Logger) (*SQLiteConceptRepository, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" databases alive and serializes writes.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	if err := ensurePublicColumn(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteConceptRepository{db: db, logger: logger.Named("SQLiteConceptRepo")}, nil
}

func ensurePublicColumn(db *sql.DB) error {
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info('game_concepts') WHERE name = 'is_public'`).Scan(&n)
	if err != nil {
		return fmt.Errorf("failed to inspect game_concepts: %w", err)
	}
	if n > 0 {
		return nil
	}
	if _, err := db.Exec(sqliteAddPublicColumn); err != nil {
		return fmt.Errorf("failed to add is_public column: %w", err)
	}
	return nil
}

func (r *SQLiteConceptRepository) Close() error {
	return r.db.Close()
}

func (r *SQLiteConceptRepository) Save(ctx context.Context, concept *model.GameConcept) error {
	row, err := toRow(concept)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO game_concepts (id, user_id, title, genre, mood, keywords, universe_description,
			art_style, world_type, scenario, characters, locations, cover_description, cover_image, is_public, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		row.ID, row.UserID, row.Title, row.Genre, row.Mood, string(row.Keywords), row.UniverseDescription,
		row.ArtStyle, row.WorldType, string(row.Scenario), string(row.Characters), string(row.Locations),
		row.CoverDescription, row.CoverImage, row.IsPublic, row.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Error saving game concept", zap.String("concept_id", concept.ID), zap.Error(err))
		return fmt.Errorf("failed to save game concept %s: %w", concept.ID, err)
	}
	return nil
}

func (r *SQLiteConceptRepository) GetByID(ctx context.Context, id string) (*model.GameConcept, error) {
	c, err := scanSQLiteRow(r.db.QueryRowContext(ctx, sqliteSelect+` FROM game_concepts gc WHERE gc.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get game concept %s: %w", id, err)
	}
	return c, nil
}

func (r *SQLiteConceptRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*model.GameConcept, error) {
	concepts, err := r.selectConcepts(ctx, sqliteSelect+` FROM game_concepts gc WHERE gc.user_id = ? ORDER BY gc.created_at DESC LIMIT ?`,
		userID, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list game concepts of user %s: %w", userID, err)
	}
	return concepts, nil
}

func (r *SQLiteConceptRepository) Delete(ctx context.Context, id, userID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to delete game concept %s: %w", id, err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM game_concepts WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete game concept %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("failed to delete game concept %s: %w", id, err)
	} else if n == 0 {
		return ErrNotFound
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM game_favorites WHERE concept_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete favorites of game concept %s: %w", id, err)
	}
	return tx.Commit()
}

func (r *SQLiteConceptRepository) ToggleFavorite(ctx context.Context, id, userID string) (FavoriteState, error) {
	state := FavoriteState{ConceptID: id}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return state, fmt.Errorf("failed to toggle favorite: %w", err)
	}
	defer tx.Rollback()

	var exists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM game_concepts WHERE id = ?)`, id).Scan(&exists); err != nil {
		return state, fmt.Errorf("failed to toggle favorite: %w", err)
	}
	if !exists {
		return state, ErrNotFound
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM game_favorites WHERE user_id = ? AND concept_id = ?`, userID, id)
	if err != nil {
		return state, fmt.Errorf("failed to remove favorite: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return state, fmt.Errorf("failed to remove favorite: %w", err)
	}
	if removed == 0 {
		if _, err := tx.ExecContext(ctx, `INSERT INTO game_favorites (user_id, concept_id, created_at) VALUES (?, ?, ?)`,
			userID, id, time.Now().UTC()); err != nil {
			return state, fmt.Errorf("failed to add favorite: %w", err)
		}
		state.Favorited = true
	}
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM game_favorites WHERE concept_id = ?`, id).Scan(&state.LikesCount); err != nil {
		return state, fmt.Errorf("failed to count favorites: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return state, fmt.Errorf("failed to toggle favorite: %w", err)
	}
	return state, nil
}

func (r *SQLiteConceptRepository) ListFavorites(ctx context.Context, userID string, limit int) ([]*model.GameConcept, error) {
	concepts, err := r.selectConcepts(ctx, sqliteSelect+` FROM game_favorites f JOIN game_concepts gc ON gc.id = f.concept_id
		WHERE f.user_id = ? ORDER BY f.created_at DESC LIMIT ?`, userID, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list favorites of user %s: %w", userID, err)
	}
	return concepts, nil
}

func (r *SQLiteConceptRepository) ListPublic(ctx context.Context, query string, limit int) ([]*model.GameConcept, error) {
	pattern := likePattern(query)
	concepts, err := r.selectConcepts(ctx, sqliteSelect+` FROM game_concepts gc
		WHERE gc.is_public AND (gc.title LIKE ? ESCAPE '\' OR gc.genre LIKE ? ESCAPE '\' OR gc.keywords LIKE ? ESCAPE '\')
		ORDER BY gc.created_at DESC LIMIT ?`, pattern, pattern, pattern, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list public game concepts: %w", err)
	}
	return concepts, nil
}

func (r *SQLiteConceptRepository) selectConcepts(ctx context.Context, query string, args ...any) ([]*model.GameConcept, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	concepts := []*model.GameConcept{}
	for rows.Next() {
		c, err := scanSQLiteRow(rows)
		if err != nil {
			return nil, err
		}
		concepts = append(concepts, c)
	}
	return concepts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteRow(s rowScanner) (*model.GameConcept, error) {
	var row conceptRow
	var keywords, scenario, characters, locations string
	err := s.Scan(
		&row.ID, &row.UserID, &row.Title, &row.Genre, &row.Mood, &keywords, &row.UniverseDescription,
		&row.ArtStyle, &row.WorldType, &scenario, &characters, &locations,
		&row.CoverDescription, &row.CoverImage, &row.IsPublic, &row.LikesCount, &row.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	row.Keywords = []byte(keywords)
	row.Scenario = []byte(scenario)
	row.Characters = []byte(characters)
	row.Locations = []byte(locations)
	return row.toModel()
}
