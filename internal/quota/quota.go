package quota

import (
	"context"
	"errors"
	"time"
)

// DefaultDailyLimit is the number of generations a user may run per UTC day.
const DefaultDailyLimit = 5

// counterTTL keeps a day counter alive a little past its day.
const counterTTL = 48 * time.Hour

// ErrQuotaExceeded is returned by Consume when the user has no generation left today.
var ErrQuotaExceeded = errors.New("daily generation quota exceeded")

// Status is the quota of a user for the current day.
type Status struct {
	UserID    string    `json:"user_id"`
	Used      int       `json:"used"`
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	ResetsAt  time.Time `json:"resets_at"`
}

// Limiter enforces per-user daily generation quotas.
type Limiter interface {
	// Consume atomically takes one generation. When the quota is exhausted it
	// returns ErrQuotaExceeded and leaves the counter unchanged.
	Consume(ctx context.Context, userID string) (Status, error)
	// Release gives back one generation taken today by Consume, when the
	// generation could not be delivered. The counter never goes below zero.
	Release(ctx context.Context, userID string) (Status, error)
	Status(ctx context.Context, userID string) (Status, error)
	// SetDailyLimit overrides the limit of a user. n <= 0 restores the default.
	SetDailyLimit(ctx context.Context, userID string, n int) error
	// Reset clears today's counter of a user.
	Reset(ctx context.Context, userID string) error
}

func dayOf(now time.Time) string {
	return now.UTC().Format(time.DateOnly)
}

func nextReset(now time.Time) time.Time {
	y, m, d := now.UTC().Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, time.UTC)
}

func newStatus(userID string, used, limit int, now time.Time) Status {
	remaining := limit - used
	if remaining < 0 {
		remaining = 0
	}
	return Status{
		UserID:    userID,
		Used:      used,
		Limit:     limit,
		Remaining: remaining,
		ResetsAt:  nextReset(now),
	}
}
