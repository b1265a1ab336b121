package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gameforge/internal/generator"
	"gameforge/internal/messaging"
	"gameforge/internal/model"
	"gameforge/internal/quota"
	"gameforge/internal/repository"

	"go.uber.org/zap"
)

// ConceptGenerator is the part of generator.Service the worker drives.
type ConceptGenerator interface {
	GenerateConcept(ctx context.Context, userID string, req generator.ConceptRequest) *model.GameConcept
	RandomParameters() model.RandomParameters
}

var _ messaging.TaskHandler = (*TaskHandler)(nil)

// TaskHandler turns one generation task into a stored concept and a notification.
type TaskHandler struct {
	generator ConceptGenerator
	quota     quota.Limiter
	repo      repository.ConceptRepository
	notifier  messaging.Notifier
	metrics   *Metrics
	logger    *zap.Logger
}

func NewTaskHandler(
	gen ConceptGenerator,
	limiter quota.Limiter,
	repo repository.ConceptRepository,
	notifier messaging.Notifier,
	metrics *Metrics,
	logger *zap.Logger,
) *TaskHandler {
	return &TaskHandler{
		generator: gen,
		quota:     limiter,
		repo:      repo,
		notifier:  notifier,
		metrics:   metrics,
		logger:    logger.Named("TaskHandler"),
	}
}

// Handle processes a task. Quota denials and invalid parameters are reported
// to the user and acknowledged. Infrastructure failures are returned. A
// concept that cannot be stored gives its quota slot back.
func (h *TaskHandler) Handle(ctx context.Context, payload messaging.GenerationTaskPayload) error {
	start := time.Now()
	h.metrics.TaskReceived()
	defer func() {
		h.metrics.ObserveTask(time.Since(start))
		h.metrics.Push()
	}()

	log := h.logger.With(zap.String("task_id", payload.TaskID), zap.String("user_id", payload.UserID))

	if payload.Surprise {
		params := h.generator.RandomParameters()
		payload.Genre, payload.Mood, payload.Keywords = params.Genre, params.Mood, params.Keywords
		log.Info("Surprise parameters drawn", zap.String("genre", string(payload.Genre)), zap.String("mood", string(payload.Mood)))
	}

	if err := validateTask(payload); err != nil {
		log.Warn("Invalid generation task", zap.Error(err))
		h.metrics.TaskFailed("invalid_payload")
		return h.notify(ctx, payload, messaging.StatusError, nil, err.Error())
	}

	status, err := h.quota.Consume(ctx, payload.UserID)
	if errors.Is(err, quota.ErrQuotaExceeded) {
		log.Info("Daily quota exceeded", zap.Int("limit", status.Limit))
		h.metrics.TaskFailed("quota_exceeded")
		return h.notify(ctx, payload, messaging.StatusQuotaExceeded, nil,
			fmt.Sprintf("daily limit of %d generations reached", status.Limit))
	}
	if err != nil {
		h.metrics.TaskFailed("quota_error")
		return fmt.Errorf("task %s: %w", payload.TaskID, err)
	}

	concept := h.generator.GenerateConcept(ctx, payload.UserID, generator.ConceptRequest{
		Genre:          payload.Genre,
		Mood:           payload.Mood,
		Keywords:       payload.Keywords,
		CharacterCount: payload.CharacterCount,
		LocationCount:  payload.LocationCount,
	})
	concept.Public = payload.Public

	if err := h.repo.Save(ctx, concept); err != nil {
		log.Error("Failed to save concept", zap.String("concept_id", concept.ID), zap.Error(err))
		h.metrics.TaskFailed("save_error")
		if _, relErr := h.quota.Release(ctx, payload.UserID); relErr != nil {
			log.Error("Failed to release quota after save error", zap.Error(relErr))
		}
		if notifyErr := h.notify(ctx, payload, messaging.StatusError, nil, "failed to store the generated game"); notifyErr != nil {
			log.Error("Failed to report save error", zap.Error(notifyErr))
		}
		return fmt.Errorf("task %s: %w", payload.TaskID, err)
	}

	if err := h.notify(ctx, payload, messaging.StatusSuccess, concept, ""); err != nil {
		h.metrics.TaskFailed("notify_error")
		return err
	}
	h.metrics.TaskSucceeded()
	log.Info("Task completed", zap.String("concept_id", concept.ID), zap.Duration("duration", time.Since(start)))
	return nil
}

func (h *TaskHandler) notify(ctx context.Context, payload messaging.GenerationTaskPayload, status messaging.NotificationStatus, concept *model.GameConcept, details string) error {
	n := messaging.NotificationPayload{
		TaskID:       payload.TaskID,
		UserID:       payload.UserID,
		Status:       status,
		ErrorDetails: details,
	}
	if concept != nil {
		n.ConceptID = concept.ID
		n.Title = concept.Title
	}
	if err := h.notifier.Notify(ctx, n); err != nil {
		return fmt.Errorf("task %s: %w", payload.TaskID, err)
	}
	return nil
}

func validateTask(p messaging.GenerationTaskPayload) error {
	if !p.Genre.Valid() {
		return fmt.Errorf("unknown genre %q", p.Genre)
	}
	if p.Mood != "" && !p.Mood.Valid() {
		return fmt.Errorf("unknown mood %q", p.Mood)
	}
	return nil
}
