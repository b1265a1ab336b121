package api

import (
	"time"

	"gameforge/internal/model"
)

// CreateGameRequest is the body of POST /games.
// Keywords may be omitted. Zero counts use the defaults.
type CreateGameRequest struct {
	Genre          model.Genre `json:"genre" binding:"required"`
	Mood           model.Mood  `json:"mood"`
	Keywords       []string    `json:"keywords"`
	CharacterCount int         `json:"character_count" binding:"min=0,max=10"`
	LocationCount  int         `json:"location_count" binding:"min=0,max=10"`
	// Public defaults to true when omitted.
	Public *bool `json:"public"`
}

// TaskAcceptedResponse is returned when a generation task is queued.
type TaskAcceptedResponse struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}

// GameSummary is one entry of the game listings.
type GameSummary struct {
	ID         string      `json:"id"`
	UserID     string      `json:"user_id"`
	Title      string      `json:"title"`
	Genre      model.Genre `json:"genre"`
	Mood       model.Mood  `json:"mood"`
	Public     bool        `json:"public"`
	LikesCount int         `json:"likes_count"`
	HasCover   bool        `json:"has_cover"`
	CreatedAt  time.Time   `json:"created_at"`
}

// GameResponse is a stored concept with the URL of its cover when one exists.
type GameResponse struct {
	*model.GameConcept
	CoverURL string `json:"cover_url,omitempty"`
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Code        string `json:"code"`
	Message     string `json:"message"`
	Description string `json:"description,omitempty"`
}

const (
	ErrCodeBadRequest    = "bad_request"
	ErrCodeUnauthorized  = "unauthorized"
	ErrCodeNotFound      = "not_found"
	ErrCodeNoImage       = "no_image"
	ErrCodeQuotaExceeded = "quota_exceeded"
	ErrCodeRateLimited   = "rate_limited"
	ErrCodeInternal      = "internal_error"
)

func summaryOf(c *model.GameConcept) GameSummary {
	return GameSummary{
		ID:         c.ID,
		UserID:     c.UserID,
		Title:      c.Title,
		Genre:      c.Genre,
		Mood:       c.Mood,
		Public:     c.Public,
		LikesCount: c.LikesCount,
		HasCover:   !c.Cover.IsDemo(),
		CreatedAt:  c.CreatedAt,
	}
}

func summariesOf(concepts []*model.GameConcept) []GameSummary {
	summaries := make([]GameSummary, 0, len(concepts))
	for _, c := range concepts {
		summaries = append(summaries, summaryOf(c))
	}
	return summaries
}
