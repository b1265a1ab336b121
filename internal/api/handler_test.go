package api_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gameforge/internal/api"
	"gameforge/internal/messaging"
	"gameforge/internal/mocks"
	"gameforge/internal/model"
	"gameforge/internal/quota"
	"gameforge/internal/repository"

	rateli "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testUser = "user-1"

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type fixedRandom struct{}

func (fixedRandom) RandomParameters() model.RandomParameters {
	return model.RandomParameters{Genre: model.GenreCyberpunk, Mood: model.MoodSombre, Keywords: []string{"robots", "espace", "ninjas"}}
}

type testAPI struct {
	router    *gin.Engine
	publisher *mocks.MockTaskPublisher
	repo      *mocks.MockConceptRepository
	quota     *mocks.MockLimiter
}

func newTestAPI(t *testing.T, middleware ...gin.HandlerFunc) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	a := &testAPI{
		publisher: mocks.NewMockTaskPublisher(t),
		repo:      mocks.NewMockConceptRepository(t),
		quota:     mocks.NewMockLimiter(t),
	}
	h := api.NewHandler(a.publisher, a.repo, a.quota, fixedRandom{}, zap.NewNop())

	a.router = gin.New()
	a.router.Use(api.GinZapLogger(zap.NewNop()), gin.Recovery())
	h.RegisterRoutes(a.router, middleware...)
	return a
}

func (a *testAPI) do(method, path, body string, userID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set(api.UserIDHeader, userID)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) api.ErrorResponse {
	t.Helper()
	var resp api.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func storedConcept(id, userID string, cover []byte) *model.GameConcept {
	return &model.GameConcept{
		ID:        id,
		UserID:    userID,
		Title:     "Nexus",
		Genre:     model.GenreRPG,
		Mood:      model.MoodEpique,
		Keywords:  []string{},
		Cover:     model.ImageResult{Description: "Une cité flottante.", ImageBytes: cover},
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestCreateGame_Accepted(t *testing.T) {
	a := newTestAPI(t)
	a.quota.On("Status", mock.Anything, testUser).Return(quota.Status{Used: 1, Limit: 5, Remaining: 4}, nil).Once()

	var published messaging.GenerationTaskPayload
	a.publisher.On("PublishTask", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { published = args.Get(1).(messaging.GenerationTaskPayload) }).
		Return(nil).Once()

	rec := a.do(http.MethodPost, "/api/v1/games", `{"genre":"rpg","mood":"epique","keywords":["dragons"],"character_count":4}`, testUser)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var resp api.TaskAcceptedResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.TaskID)
	assert.Equal(t, "pending", resp.Status)

	assert.Equal(t, resp.TaskID, published.TaskID)
	assert.Equal(t, testUser, published.UserID)
	assert.Equal(t, model.GenreRPG, published.Genre)
	assert.Equal(t, []string{"dragons"}, published.Keywords)
	assert.Equal(t, 4, published.CharacterCount)
	assert.False(t, published.Surprise)
	assert.True(t, published.Public, "games are public unless asked otherwise")
}

func TestCreateGame_Private(t *testing.T) {
	a := newTestAPI(t)
	a.quota.On("Status", mock.Anything, testUser).Return(quota.Status{Limit: 5, Remaining: 5}, nil).Once()
	a.publisher.On("PublishTask", mock.Anything, mock.MatchedBy(func(p messaging.GenerationTaskPayload) bool {
		return !p.Public
	})).Return(nil).Once()

	rec := a.do(http.MethodPost, "/api/v1/games", `{"genre":"rpg","public":false}`, testUser)
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestCreateGame_EmptyKeywordsAllowed(t *testing.T) {
	a := newTestAPI(t)
	a.quota.On("Status", mock.Anything, testUser).Return(quota.Status{Limit: 5, Remaining: 5}, nil).Once()
	a.publisher.On("PublishTask", mock.Anything, mock.Anything).Return(nil).Once()

	rec := a.do(http.MethodPost, "/api/v1/games", `{"genre":"horror","keywords":[]}`, testUser)
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestCreateGame_Validation(t *testing.T) {
	cases := map[string]string{
		"missing genre":  `{"mood":"sombre"}`,
		"unknown genre":  `{"genre":"western"}`,
		"unknown mood":   `{"genre":"rpg","mood":"triste"}`,
		"too many chars": `{"genre":"rpg","character_count":11}`,
		"negative count": `{"genre":"rpg","location_count":-1}`,
		"malformed":      `{"genre":`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			a := newTestAPI(t)
			rec := a.do(http.MethodPost, "/api/v1/games", body, testUser)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, api.ErrCodeBadRequest, decodeError(t, rec).Code)
		})
	}
}

func TestCreateGame_RequiresUser(t *testing.T) {
	a := newTestAPI(t)
	rec := a.do(http.MethodPost, "/api/v1/games", `{"genre":"rpg"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCreateGame_QuotaSpent(t *testing.T) {
	a := newTestAPI(t)
	a.quota.On("Status", mock.Anything, testUser).Return(quota.Status{Used: 5, Limit: 5, Remaining: 0}, nil).Once()

	rec := a.do(http.MethodPost, "/api/v1/games", `{"genre":"rpg"}`, testUser)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, api.ErrCodeQuotaExceeded, decodeError(t, rec).Code)
	a.publisher.AssertNotCalled(t, "PublishTask", mock.Anything, mock.Anything)
}

func TestCreateGame_QuotaBackendDownStillQueues(t *testing.T) {
	a := newTestAPI(t)
	a.quota.On("Status", mock.Anything, testUser).Return(quota.Status{}, errors.New("redis down")).Once()
	a.publisher.On("PublishTask", mock.Anything, mock.Anything).Return(nil).Once()

	rec := a.do(http.MethodPost, "/api/v1/games", `{"genre":"rpg"}`, testUser)
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestCreateGame_PublishFailure(t *testing.T) {
	a := newTestAPI(t)
	a.quota.On("Status", mock.Anything, testUser).Return(quota.Status{Limit: 5, Remaining: 5}, nil).Once()
	a.publisher.On("PublishTask", mock.Anything, mock.Anything).Return(errors.New("channel closed")).Once()

	rec := a.do(http.MethodPost, "/api/v1/games", `{"genre":"rpg"}`, testUser)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, api.ErrCodeInternal, decodeError(t, rec).Code)
}

func TestCreateSurpriseGame(t *testing.T) {
	a := newTestAPI(t)
	a.quota.On("Status", mock.Anything, testUser).Return(quota.Status{Limit: 5, Remaining: 5}, nil).Once()
	a.publisher.On("PublishTask", mock.Anything, mock.MatchedBy(func(p messaging.GenerationTaskPayload) bool {
		return p.Surprise && p.Public && p.UserID == testUser && p.Genre == ""
	})).Return(nil).Once()

	rec := a.do(http.MethodPost, "/api/v1/games/surprise", "", testUser)
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestListGames(t *testing.T) {
	a := newTestAPI(t)
	a.repo.On("ListByUser", mock.Anything, testUser, 2).
		Return([]*model.GameConcept{storedConcept("g-1", testUser, pngBytes), storedConcept("g-2", testUser, nil)}, nil).Once()

	rec := a.do(http.MethodGet, "/api/v1/games?limit=2", "", testUser)
	require.Equal(t, http.StatusOK, rec.Code)

	var summaries []api.GameSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summaries))
	require.Len(t, summaries, 2)
	assert.True(t, summaries[0].HasCover)
	assert.False(t, summaries[1].HasCover)
}

func TestListGames_DefaultAndBadLimit(t *testing.T) {
	a := newTestAPI(t)
	a.repo.On("ListByUser", mock.Anything, testUser, repository.DefaultListLimit).Return([]*model.GameConcept{}, nil).Once()

	rec := a.do(http.MethodGet, "/api/v1/games", "", testUser)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = a.do(http.MethodGet, "/api/v1/games?limit=abc", "", testUser)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetGame(t *testing.T) {
	a := newTestAPI(t)
	a.repo.On("GetByID", mock.Anything, "g-1").Return(storedConcept("g-1", testUser, pngBytes), nil).Once()

	rec := a.do(http.MethodGet, "/api/v1/games/g-1", "", testUser)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "g-1", body["id"])
	assert.Equal(t, "Nexus", body["title"])
	assert.Equal(t, "/api/v1/games/g-1/cover", body["cover_url"])
}

func TestGetGame_NotFoundAndForeign(t *testing.T) {
	a := newTestAPI(t)
	a.repo.On("GetByID", mock.Anything, "missing").Return(nil, repository.ErrNotFound).Once()
	a.repo.On("GetByID", mock.Anything, "g-2").Return(storedConcept("g-2", "someone-else", nil), nil).Once()

	assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, "/api/v1/games/missing", "", testUser).Code)
	assert.Equal(t, http.StatusNotFound, a.do(http.MethodGet, "/api/v1/games/g-2", "", testUser).Code)
}

func TestGetGame_PublicGameOfAnotherUser(t *testing.T) {
	a := newTestAPI(t)
	shared := storedConcept("g-3", "someone-else", nil)
	shared.Public = true
	shared.LikesCount = 7
	a.repo.On("GetByID", mock.Anything, "g-3").Return(shared, nil).Once()

	rec := a.do(http.MethodGet, "/api/v1/games/g-3", "", testUser)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["public"])
	assert.EqualValues(t, 7, body["likes_count"])
}

func TestDeleteGame(t *testing.T) {
	a := newTestAPI(t)
	a.repo.On("Delete", mock.Anything, "g-1", testUser).Return(nil).Once()
	a.repo.On("Delete", mock.Anything, "g-2", testUser).Return(repository.ErrNotFound).Once()
	a.repo.On("Delete", mock.Anything, "g-3", testUser).Return(errors.New("db down")).Once()

	rec := a.do(http.MethodDelete, "/api/v1/games/g-1", "", testUser)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = a.do(http.MethodDelete, "/api/v1/games/g-2", "", testUser)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, api.ErrCodeNotFound, decodeError(t, rec).Code)

	assert.Equal(t, http.StatusInternalServerError, a.do(http.MethodDelete, "/api/v1/games/g-3", "", testUser).Code)
}

func TestToggleFavorite(t *testing.T) {
	a := newTestAPI(t)
	shared := storedConcept("g-3", "someone-else", nil)
	shared.Public = true
	a.repo.On("GetByID", mock.Anything, "g-3").Return(shared, nil).Once()
	a.repo.On("ToggleFavorite", mock.Anything, "g-3", testUser).
		Return(repository.FavoriteState{ConceptID: "g-3", Favorited: true, LikesCount: 4}, nil).Once()

	rec := a.do(http.MethodPost, "/api/v1/games/g-3/favorite", "", testUser)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"concept_id":"g-3","favorited":true,"likes_count":4}`, rec.Body.String())
}

func TestToggleFavorite_PrivateGameOfAnotherUser(t *testing.T) {
	a := newTestAPI(t)
	a.repo.On("GetByID", mock.Anything, "g-2").Return(storedConcept("g-2", "someone-else", nil), nil).Once()

	rec := a.do(http.MethodPost, "/api/v1/games/g-2/favorite", "", testUser)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	a.repo.AssertNotCalled(t, "ToggleFavorite", mock.Anything, mock.Anything, mock.Anything)
}

func TestListFavorites(t *testing.T) {
	a := newTestAPI(t)
	liked := storedConcept("g-3", "someone-else", pngBytes)
	liked.Public = true
	liked.LikesCount = 1
	a.repo.On("ListFavorites", mock.Anything, testUser, repository.DefaultListLimit).
		Return([]*model.GameConcept{liked}, nil).Once()

	rec := a.do(http.MethodGet, "/api/v1/favorites", "", testUser)
	require.Equal(t, http.StatusOK, rec.Code)

	var summaries []api.GameSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summaries))
	require.Len(t, summaries, 1)
	assert.Equal(t, "someone-else", summaries[0].UserID)
	assert.Equal(t, 1, summaries[0].LikesCount)
}

func TestListPublicGames(t *testing.T) {
	a := newTestAPI(t)
	shared := storedConcept("g-3", "someone-else", nil)
	shared.Public = true
	a.repo.On("ListPublic", mock.Anything, "dragons", 5).Return([]*model.GameConcept{shared}, nil).Once()

	rec := a.do(http.MethodGet, "/api/v1/games/public?q=dragons&limit=5", "", testUser)
	require.Equal(t, http.StatusOK, rec.Code)

	var summaries []api.GameSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summaries))
	require.Len(t, summaries, 1)
	assert.Equal(t, "g-3", summaries[0].ID)
	assert.True(t, summaries[0].Public)

	rec = a.do(http.MethodGet, "/api/v1/games/public?limit=0", "", testUser)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetCover(t *testing.T) {
	a := newTestAPI(t)
	a.repo.On("GetByID", mock.Anything, "g-1").Return(storedConcept("g-1", testUser, pngBytes), nil).Once()

	rec := a.do(http.MethodGet, "/api/v1/games/g-1/cover", "", testUser)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, pngBytes, rec.Body.Bytes())
}

func TestGetCover_DemoReturnsDescription(t *testing.T) {
	a := newTestAPI(t)
	a.repo.On("GetByID", mock.Anything, "g-1").Return(storedConcept("g-1", testUser, nil), nil).Once()

	rec := a.do(http.MethodGet, "/api/v1/games/g-1/cover", "", testUser)
	require.Equal(t, http.StatusNotFound, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, api.ErrCodeNoImage, resp.Code)
	assert.Equal(t, "Une cité flottante.", resp.Description)
}

func TestRandomParameters(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(http.MethodGet, "/api/v1/random", "", testUser)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"genre":"cyberpunk","mood":"sombre","keywords":["robots","espace","ninjas"]}`, rec.Body.String())
}

func TestQuotaStatus(t *testing.T) {
	a := newTestAPI(t)
	resets := time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	a.quota.On("Status", mock.Anything, testUser).
		Return(quota.Status{UserID: testUser, Used: 2, Limit: 5, Remaining: 3, ResetsAt: resets}, nil).Once()

	rec := a.do(http.MethodGet, "/api/v1/quota", "", testUser)
	require.Equal(t, http.StatusOK, rec.Code)

	var status quota.Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, 3, status.Remaining)
	assert.True(t, resets.Equal(status.ResetsAt))
}

func TestRateLimit(t *testing.T) {
	store := rateli.InMemoryStore(&rateli.InMemoryOptions{Rate: time.Minute, Limit: 2})
	a := newTestAPI(t, api.RateLimit(store, zap.NewNop()))

	assert.Equal(t, http.StatusOK, a.do(http.MethodGet, "/api/v1/random", "", testUser).Code)
	assert.Equal(t, http.StatusOK, a.do(http.MethodGet, "/api/v1/random", "", testUser).Code)

	rec := a.do(http.MethodGet, "/api/v1/random", "", testUser)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, api.ErrCodeRateLimited, decodeError(t, rec).Code)
}

func TestCORS(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(api.CORS([]string{"https://gameforge.example"}))
	router.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://gameforge.example")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, "https://gameforge.example", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
