package messaging

import "gameforge/internal/model"

// NotificationStatus is the outcome of a generation task.
type NotificationStatus string

const (
	StatusSuccess       NotificationStatus = "success"
	StatusError         NotificationStatus = "error"
	StatusQuotaExceeded NotificationStatus = "quota_exceeded"
)

// GenerationTaskPayload is the message the API publishes for the worker.
// With Surprise set, Genre, Mood and Keywords are drawn by the worker.
type GenerationTaskPayload struct {
	TaskID         string      `json:"task_id"`
	UserID         string      `json:"user_id"`
	Genre          model.Genre `json:"genre,omitempty"`
	Mood           model.Mood  `json:"mood,omitempty"`
	Keywords       []string    `json:"keywords,omitempty"`
	CharacterCount int         `json:"character_count,omitempty"`
	LocationCount  int         `json:"location_count,omitempty"`
	Surprise       bool        `json:"surprise,omitempty"`
	Public         bool        `json:"public"`
}

// NotificationPayload reports the end of a generation task.
type NotificationPayload struct {
	TaskID       string             `json:"task_id"`
	UserID       string             `json:"user_id"`
	ConceptID    string             `json:"concept_id,omitempty"`
	Title        string             `json:"title,omitempty"`
	Status       NotificationStatus `json:"status"`
	ErrorDetails string             `json:"error_details,omitempty"`
}
