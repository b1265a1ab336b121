package worker_test

import (
	"context"
	"errors"
	"testing"

	"gameforge/internal/generator"
	"gameforge/internal/image"
	"gameforge/internal/messaging"
	"gameforge/internal/mocks"
	"gameforge/internal/model"
	"gameforge/internal/quota"
	"gameforge/internal/service"
	"gameforge/internal/worker"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testUserID = "user-123"
	testTaskID = "task-456"
)

type handlerDeps struct {
	quota    *mocks.MockLimiter
	repo     *mocks.MockConceptRepository
	notifier *mocks.MockNotifier
	metrics  *worker.Metrics
	handler  *worker.TaskHandler
}

func newHandler(t *testing.T) handlerDeps {
	t.Helper()
	completion := service.NewCompletion(nil, "", zap.NewNop())
	covers := image.NewAdapter(nil, image.DefaultAgentSpec("m", "n"), completion, zap.NewNop())
	gen := generator.NewService(completion, covers, zap.NewNop())

	d := handlerDeps{
		quota:    mocks.NewMockLimiter(t),
		repo:     mocks.NewMockConceptRepository(t),
		notifier: mocks.NewMockNotifier(t),
		metrics:  worker.NewMetrics(zap.NewNop()),
	}
	d.handler = worker.NewTaskHandler(gen, d.quota, d.repo, d.notifier, d.metrics, zap.NewNop())
	return d
}

// counterValue sums the samples of a counter family, optionally filtered by one label.
func counterValue(t *testing.T, reg *prometheus.Registry, name, label, value string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	var total float64
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, m := range f.GetMetric() {
			if label != "" {
				matched := false
				for _, lp := range m.GetLabel() {
					if lp.GetName() == label && lp.GetValue() == value {
						matched = true
					}
				}
				if !matched {
					continue
				}
			}
			total += m.GetCounter().GetValue()
		}
	}
	return total
}

func TestTaskHandler_Success(t *testing.T) {
	d := newHandler(t)
	ctx := context.Background()

	var saved *model.GameConcept
	d.quota.On("Consume", mock.Anything, testUserID).Return(quota.Status{Used: 1, Limit: 5}, nil).Once()
	d.repo.On("Save", mock.Anything, mock.AnythingOfType("*model.GameConcept")).
		Run(func(args mock.Arguments) { saved = args.Get(1).(*model.GameConcept) }).
		Return(nil).Once()
	d.notifier.On("Notify", mock.Anything, mock.MatchedBy(func(n messaging.NotificationPayload) bool {
		return n.Status == messaging.StatusSuccess && n.TaskID == testTaskID && n.ConceptID != "" && n.Title != ""
	})).Return(nil).Once()

	err := d.handler.Handle(ctx, messaging.GenerationTaskPayload{
		TaskID:         testTaskID,
		UserID:         testUserID,
		Genre:          model.GenreFantasy,
		Mood:           model.MoodMysterieux,
		Keywords:       []string{"magie"},
		CharacterCount: 2,
		Public:         true,
	})
	require.NoError(t, err)

	require.NotNil(t, saved)
	assert.True(t, saved.Public)
	assert.Equal(t, testUserID, saved.UserID)
	assert.Equal(t, model.GenreFantasy, saved.Genre)
	assert.Len(t, saved.Characters, 2)
	assert.Len(t, saved.Locations, generator.DefaultLocationCount)
	assert.Equal(t, 1.0, counterValue(t, d.metrics.Registry, "gameforge_tasks_succeeded_total", "", ""))
	assert.Equal(t, 1.0, counterValue(t, d.metrics.Registry, "gameforge_tasks_received_total", "", ""))
}

func TestTaskHandler_SurpriseDrawsParameters(t *testing.T) {
	d := newHandler(t)

	var saved *model.GameConcept
	d.quota.On("Consume", mock.Anything, testUserID).Return(quota.Status{Used: 1, Limit: 5}, nil).Once()
	d.repo.On("Save", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { saved = args.Get(1).(*model.GameConcept) }).
		Return(nil).Once()
	d.notifier.On("Notify", mock.Anything, mock.Anything).Return(nil).Once()

	err := d.handler.Handle(context.Background(), messaging.GenerationTaskPayload{
		TaskID:   testTaskID,
		UserID:   testUserID,
		Surprise: true,
	})
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.True(t, saved.Genre.Valid())
	assert.True(t, saved.Mood.Valid())
	assert.Len(t, saved.Keywords, 3)
}

func TestTaskHandler_QuotaExceeded(t *testing.T) {
	d := newHandler(t)

	d.quota.On("Consume", mock.Anything, testUserID).
		Return(quota.Status{Used: 5, Limit: 5}, quota.ErrQuotaExceeded).Once()
	d.notifier.On("Notify", mock.Anything, mock.MatchedBy(func(n messaging.NotificationPayload) bool {
		return n.Status == messaging.StatusQuotaExceeded && n.ConceptID == "" && n.ErrorDetails != ""
	})).Return(nil).Once()

	err := d.handler.Handle(context.Background(), messaging.GenerationTaskPayload{
		TaskID: testTaskID,
		UserID: testUserID,
		Genre:  model.GenreRPG,
	})
	require.NoError(t, err)
	d.repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	assert.Equal(t, 1.0, counterValue(t, d.metrics.Registry, "gameforge_tasks_failed_total", "reason", "quota_exceeded"))
}

func TestTaskHandler_InvalidGenreIsReported(t *testing.T) {
	d := newHandler(t)

	d.notifier.On("Notify", mock.Anything, mock.MatchedBy(func(n messaging.NotificationPayload) bool {
		return n.Status == messaging.StatusError
	})).Return(nil).Once()

	err := d.handler.Handle(context.Background(), messaging.GenerationTaskPayload{
		TaskID: testTaskID,
		UserID: testUserID,
		Genre:  "western",
	})
	require.NoError(t, err)
	d.quota.AssertNotCalled(t, "Consume", mock.Anything, mock.Anything)
}

func TestTaskHandler_SaveErrorIsReturned(t *testing.T) {
	d := newHandler(t)
	saveErr := errors.New("connection refused")

	d.quota.On("Consume", mock.Anything, testUserID).Return(quota.Status{Used: 1, Limit: 5}, nil).Once()
	d.repo.On("Save", mock.Anything, mock.Anything).Return(saveErr).Once()
	d.quota.On("Release", mock.Anything, testUserID).Return(quota.Status{Used: 0, Limit: 5}, nil).Once()
	d.notifier.On("Notify", mock.Anything, mock.MatchedBy(func(n messaging.NotificationPayload) bool {
		return n.Status == messaging.StatusError
	})).Return(nil).Once()

	err := d.handler.Handle(context.Background(), messaging.GenerationTaskPayload{
		TaskID: testTaskID,
		UserID: testUserID,
		Genre:  model.GenreSciFi,
	})
	require.ErrorIs(t, err, saveErr)
	assert.Equal(t, 1.0, counterValue(t, d.metrics.Registry, "gameforge_tasks_failed_total", "reason", "save_error"))
}

func TestTaskHandler_QuotaBackendErrorIsReturned(t *testing.T) {
	d := newHandler(t)
	redisErr := errors.New("redis unavailable")

	d.quota.On("Consume", mock.Anything, testUserID).Return(quota.Status{}, redisErr).Once()

	err := d.handler.Handle(context.Background(), messaging.GenerationTaskPayload{
		TaskID: testTaskID,
		UserID: testUserID,
		Genre:  model.GenreAction,
	})
	require.ErrorIs(t, err, redisErr)
	d.notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything)
}

func TestTaskHandler_NotifyErrorIsReturned(t *testing.T) {
	d := newHandler(t)
	notifyErr := errors.New("channel closed")

	d.quota.On("Consume", mock.Anything, testUserID).Return(quota.Status{Used: 1, Limit: 5}, nil).Once()
	d.repo.On("Save", mock.Anything, mock.Anything).Return(nil).Once()
	d.notifier.On("Notify", mock.Anything, mock.Anything).Return(notifyErr).Once()

	err := d.handler.Handle(context.Background(), messaging.GenerationTaskPayload{
		TaskID: testTaskID,
		UserID: testUserID,
		Genre:  model.GenreHorror,
	})
	require.ErrorIs(t, err, notifyErr)
}

func TestTaskHandler_SaveErrorGivesQuotaBack(t *testing.T) {
	completion := service.NewCompletion(nil, "", zap.NewNop())
	covers := image.NewAdapter(nil, image.DefaultAgentSpec("m", "n"), completion, zap.NewNop())
	gen := generator.NewService(completion, covers, zap.NewNop())

	limiter := quota.NewMemoryLimiter(1)
	repo := mocks.NewMockConceptRepository(t)
	notifier := mocks.NewMockNotifier(t)
	handler := worker.NewTaskHandler(gen, limiter, repo, notifier, worker.NewMetrics(zap.NewNop()), zap.NewNop())

	ctx := context.Background()
	repo.On("Save", mock.Anything, mock.Anything).Return(errors.New("db down")).Once()
	notifier.On("Notify", mock.Anything, mock.Anything).Return(nil).Once()

	task := messaging.GenerationTaskPayload{TaskID: testTaskID, UserID: testUserID, Genre: model.GenreFantasy}
	require.Error(t, handler.Handle(ctx, task))

	st, err := limiter.Status(ctx, testUserID)
	require.NoError(t, err)
	assert.Equal(t, 0, st.Used)
	assert.Equal(t, 1, st.Remaining)

	repo.On("Save", mock.Anything, mock.Anything).Return(nil).Once()
	notifier.On("Notify", mock.Anything, mock.MatchedBy(func(n messaging.NotificationPayload) bool {
		return n.Status == messaging.StatusSuccess
	})).Return(nil).Once()
	require.NoError(t, handler.Handle(ctx, task), "the redelivered task still fits in the quota")

	st, err = limiter.Status(ctx, testUserID)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Used)
}
