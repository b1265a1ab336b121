package repository

import (
	"context"
	"errors"
	"fmt"

	"gameforge/internal/model"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

const (
	conceptColumns = `gc.id::text AS id, gc.user_id, gc.title, gc.genre, gc.mood, gc.keywords, gc.universe_description,
        gc.art_style, gc.world_type, gc.scenario, gc.characters, gc.locations, gc.cover_description, gc.cover_image,
        gc.is_public, (SELECT COUNT(*) FROM game_favorites lf WHERE lf.concept_id = gc.id)::int AS likes_count, gc.created_at`

	upsertConceptQuery = `
        INSERT INTO game_concepts (id, user_id, title, genre, mood, keywords, universe_description,
            art_style, world_type, scenario, characters, locations, cover_description, cover_image, is_public, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
        ON CONFLICT (id) DO UPDATE SET
            title = EXCLUDED.title,
            genre = EXCLUDED.genre,
            mood = EXCLUDED.mood,
            keywords = EXCLUDED.keywords,
            universe_description = EXCLUDED.universe_description,
            art_style = EXCLUDED.art_style,
            world_type = EXCLUDED.world_type,
            scenario = EXCLUDED.scenario,
            characters = EXCLUDED.characters,
            locations = EXCLUDED.locations,
            cover_description = EXCLUDED.cover_description,
            cover_image = EXCLUDED.cover_image,
            is_public = EXCLUDED.is_public
    `
	getConceptByIDQuery     = `SELECT ` + conceptColumns + ` FROM game_concepts gc WHERE gc.id = $1`
	listConceptsByUserQuery = `SELECT ` + conceptColumns + ` FROM game_concepts gc WHERE gc.user_id = $1 ORDER BY gc.created_at DESC LIMIT $2`
	listFavoritesQuery      = `SELECT ` + conceptColumns + ` FROM game_favorites f JOIN game_concepts gc ON gc.id = f.concept_id
        WHERE f.user_id = $1 ORDER BY f.created_at DESC LIMIT $2`
	listPublicQuery = `SELECT ` + conceptColumns + ` FROM game_concepts gc
        WHERE gc.is_public AND (gc.title ILIKE $1 OR gc.genre ILIKE $1 OR gc.keywords::text ILIKE $1)
        ORDER BY gc.created_at DESC LIMIT $2`

	deleteConceptQuery  = `DELETE FROM game_concepts WHERE id = $1 AND user_id = $2`
	removeFavoriteQuery = `DELETE FROM game_favorites WHERE user_id = $1 AND concept_id = $2`
	addFavoriteQuery    = `INSERT INTO game_favorites (user_id, concept_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	countFavoritesQuery = `SELECT COUNT(*) FROM game_favorites WHERE concept_id = $1`
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ ConceptRepository = (*PgConceptRepository)(nil)

// PgConceptRepository stores concepts in the game_concepts table.
type PgConceptRepository struct {
	db     DBTX
	logger *zap.Logger
}

func NewPgConceptRepository(db DBTX, logger *zap.Logger) *PgConceptRepository {
	return &PgConceptRepository{
		db:     db,
		logger: logger.Named("PgConceptRepo"),
	}
}

func (r *PgConceptRepository) Save(ctx context.Context, concept *model.GameConcept) error {
	log := r.logger.With(zap.String("concept_id", concept.ID), zap.String("user_id", concept.UserID))

	row, err := toRow(concept)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, upsertConceptQuery,
		row.ID, row.UserID, row.Title, row.Genre, row.Mood, row.Keywords, row.UniverseDescription,
		row.ArtStyle, row.WorldType, row.Scenario, row.Characters, row.Locations,
		row.CoverDescription, row.CoverImage, row.IsPublic, row.CreatedAt,
	)
	if err != nil {
		log.Error("Error saving game concept", zap.Error(err))
		return fmt.Errorf("failed to save game concept %s: %w", concept.ID, err)
	}
	log.Debug("Game concept saved")
	return nil
}

func (r *PgConceptRepository) GetByID(ctx context.Context, id string) (*model.GameConcept, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}

	var row conceptRow
	if err := pgxscan.Get(ctx, r.db, &row, getConceptByIDQuery, id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		r.logger.Error("Error getting game concept", zap.String("concept_id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get game concept %s: %w", id, err)
	}
	return row.toModel()
}

func (r *PgConceptRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*model.GameConcept, error) {
	concepts, err := r.selectConcepts(ctx, listConceptsByUserQuery, userID, normalizeLimit(limit))
	if err != nil {
		r.logger.Error("Error listing game concepts", zap.String("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("failed to list game concepts of user %s: %w", userID, err)
	}
	return concepts, nil
}

func (r *PgConceptRepository) Delete(ctx context.Context, id, userID string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	log := r.logger.With(zap.String("concept_id", id), zap.String("user_id", userID))

	tag, err := r.db.Exec(ctx, deleteConceptQuery, id, userID)
	if err != nil {
		log.Error("Error deleting game concept", zap.Error(err))
		return fmt.Errorf("failed to delete game concept %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	log.Info("Game concept deleted")
	return nil
}

func (r *PgConceptRepository) ToggleFavorite(ctx context.Context, id, userID string) (FavoriteState, error) {
	state := FavoriteState{ConceptID: id}
	if _, err := uuid.Parse(id); err != nil {
		return state, ErrNotFound
	}
	log := r.logger.With(zap.String("concept_id", id), zap.String("user_id", userID))

	tag, err := r.db.Exec(ctx, removeFavoriteQuery, userID, id)
	if err != nil {
		log.Error("Error removing favorite", zap.Error(err))
		return state, fmt.Errorf("failed to remove favorite: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.db.Exec(ctx, addFavoriteQuery, userID, id); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23503" { // foreign_key_violation
				return state, ErrNotFound
			}
			log.Error("Error adding favorite", zap.Error(err))
			return state, fmt.Errorf("failed to add favorite: %w", err)
		}
		state.Favorited = true
	}

	if err := r.db.QueryRow(ctx, countFavoritesQuery, id).Scan(&state.LikesCount); err != nil {
		log.Error("Error counting favorites", zap.Error(err))
		return state, fmt.Errorf("failed to count favorites: %w", err)
	}
	log.Debug("Favorite toggled", zap.Bool("favorited", state.Favorited), zap.Int("likes", state.LikesCount))
	return state, nil
}

func (r *PgConceptRepository) ListFavorites(ctx context.Context, userID string, limit int) ([]*model.GameConcept, error) {
	concepts, err := r.selectConcepts(ctx, listFavoritesQuery, userID, normalizeLimit(limit))
	if err != nil {
		r.logger.Error("Error listing favorites", zap.String("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("failed to list favorites of user %s: %w", userID, err)
	}
	return concepts, nil
}

func (r *PgConceptRepository) ListPublic(ctx context.Context, query string, limit int) ([]*model.GameConcept, error) {
	concepts, err := r.selectConcepts(ctx, listPublicQuery, likePattern(query), normalizeLimit(limit))
	if err != nil {
		r.logger.Error("Error listing public game concepts", zap.String("query", query), zap.Error(err))
		return nil, fmt.Errorf("failed to list public game concepts: %w", err)
	}
	return concepts, nil
}

func (r *PgConceptRepository) selectConcepts(ctx context.Context, query string, args ...any) ([]*model.GameConcept, error) {
	var rows []*conceptRow
	if err := pgxscan.Select(ctx, r.db, &rows, query, args...); err != nil {
		return nil, err
	}

	concepts := make([]*model.GameConcept, 0, len(rows))
	for _, row := range rows {
		c, err := row.toModel()
		if err != nil {
			return nil, err
		}
		concepts = append(concepts, c)
	}
	return concepts, nil
}
