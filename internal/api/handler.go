package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"gameforge/internal/messaging"
	"gameforge/internal/model"
	"gameforge/internal/quota"
	"gameforge/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RandomSource draws "surprise me" parameters.
type RandomSource interface {
	RandomParameters() model.RandomParameters
}

// Handler serves the game generation API.
type Handler struct {
	publisher messaging.TaskPublisher
	repo      repository.ConceptRepository
	quota     quota.Limiter
	random    RandomSource
	logger    *zap.Logger
}

func NewHandler(
	publisher messaging.TaskPublisher,
	repo repository.ConceptRepository,
	limiter quota.Limiter,
	random RandomSource,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		publisher: publisher,
		repo:      repo,
		quota:     limiter,
		random:    random,
		logger:    logger.Named("APIHandler"),
	}
}

// RegisterRoutes mounts the API under /api/v1. Extra middleware, such as the
// rate limiter, runs before the user check.
func (h *Handler) RegisterRoutes(router gin.IRouter, middleware ...gin.HandlerFunc) {
	v1 := router.Group("/api/v1")
	v1.Use(middleware...)
	v1.Use(RequireUser())
	{
		v1.POST("/games", h.createGame)
		v1.POST("/games/surprise", h.createSurpriseGame)
		v1.GET("/games", h.listGames)
		v1.GET("/games/public", h.listPublicGames)
		v1.GET("/games/:id", h.getGame)
		v1.DELETE("/games/:id", h.deleteGame)
		v1.GET("/games/:id/cover", h.getCover)
		v1.POST("/games/:id/favorite", h.toggleFavorite)
		v1.GET("/favorites", h.listFavorites)
		v1.GET("/random", h.randomParameters)
		v1.GET("/quota", h.quotaStatus)
	}
}

func (h *Handler) createGame(c *gin.Context) {
	var req CreateGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}
	if !req.Genre.Valid() {
		badRequest(c, fmt.Sprintf("unknown genre %q", req.Genre))
		return
	}
	if req.Mood != "" && !req.Mood.Valid() {
		badRequest(c, fmt.Sprintf("unknown mood %q", req.Mood))
		return
	}

	public := true
	if req.Public != nil {
		public = *req.Public
	}
	h.enqueue(c, messaging.GenerationTaskPayload{
		Genre:          req.Genre,
		Mood:           req.Mood,
		Keywords:       req.Keywords,
		CharacterCount: req.CharacterCount,
		LocationCount:  req.LocationCount,
		Public:         public,
	})
}

func (h *Handler) createSurpriseGame(c *gin.Context) {
	h.enqueue(c, messaging.GenerationTaskPayload{Surprise: true, Public: true})
}

// enqueue rejects early when today's quota is already spent. The worker does
// the authoritative check when it consumes the task.
func (h *Handler) enqueue(c *gin.Context, payload messaging.GenerationTaskPayload) {
	userID := c.GetString(userIDKey)
	ctx := c.Request.Context()

	status, err := h.quota.Status(ctx, userID)
	if err != nil {
		h.logger.Warn("Quota status unavailable, deferring to worker", zap.String("user_id", userID), zap.Error(err))
	} else if status.Remaining <= 0 {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{
			Code:    ErrCodeQuotaExceeded,
			Message: fmt.Sprintf("daily limit of %d generations reached", status.Limit),
		})
		return
	}

	payload.TaskID = uuid.NewString()
	payload.UserID = userID
	if err := h.publisher.PublishTask(ctx, payload); err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, TaskAcceptedResponse{TaskID: payload.TaskID, Status: "pending"})
}

func (h *Handler) listGames(c *gin.Context) {
	limit, ok := parseLimit(c)
	if !ok {
		return
	}
	concepts, err := h.repo.ListByUser(c.Request.Context(), c.GetString(userIDKey), limit)
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, summariesOf(concepts))
}

// listPublicGames lists the public concepts of every user. q filters on
// title, genre and keywords.
func (h *Handler) listPublicGames(c *gin.Context) {
	limit, ok := parseLimit(c)
	if !ok {
		return
	}
	concepts, err := h.repo.ListPublic(c.Request.Context(), c.Query("q"), limit)
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, summariesOf(concepts))
}

func (h *Handler) listFavorites(c *gin.Context) {
	limit, ok := parseLimit(c)
	if !ok {
		return
	}
	concepts, err := h.repo.ListFavorites(c.Request.Context(), c.GetString(userIDKey), limit)
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, summariesOf(concepts))
}

func (h *Handler) getGame(c *gin.Context) {
	concept, ok := h.loadVisibleConcept(c)
	if !ok {
		return
	}
	resp := GameResponse{GameConcept: concept}
	if !concept.Cover.IsDemo() {
		resp.CoverURL = "/api/v1/games/" + concept.ID + "/cover"
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) deleteGame(c *gin.Context) {
	userID := c.GetString(userIDKey)
	err := h.repo.Delete(c.Request.Context(), c.Param("id"), userID)
	if errors.Is(err, repository.ErrNotFound) {
		notFound(c)
		return
	}
	if err != nil {
		internalError(c, err)
		return
	}
	h.logger.Info("Game deleted", zap.String("concept_id", c.Param("id")), zap.String("user_id", userID))
	c.Status(http.StatusNoContent)
}

func (h *Handler) toggleFavorite(c *gin.Context) {
	concept, ok := h.loadVisibleConcept(c)
	if !ok {
		return
	}
	state, err := h.repo.ToggleFavorite(c.Request.Context(), concept.ID, c.GetString(userIDKey))
	if errors.Is(err, repository.ErrNotFound) {
		notFound(c)
		return
	}
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (h *Handler) getCover(c *gin.Context) {
	concept, ok := h.loadVisibleConcept(c)
	if !ok {
		return
	}
	if concept.Cover.IsDemo() {
		c.AbortWithStatusJSON(http.StatusNotFound, ErrorResponse{
			Code:        ErrCodeNoImage,
			Message:     "no cover image was generated for this game",
			Description: concept.Cover.Description,
		})
		return
	}
	c.Data(http.StatusOK, http.DetectContentType(concept.Cover.ImageBytes), concept.Cover.ImageBytes)
}

func (h *Handler) randomParameters(c *gin.Context) {
	c.JSON(http.StatusOK, h.random.RandomParameters())
}

func (h *Handler) quotaStatus(c *gin.Context) {
	status, err := h.quota.Status(c.Request.Context(), c.GetString(userIDKey))
	if err != nil {
		internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// loadVisibleConcept answers 404 for unknown ids and for private concepts of other users.
func (h *Handler) loadVisibleConcept(c *gin.Context) (*model.GameConcept, bool) {
	concept, err := h.repo.GetByID(c.Request.Context(), c.Param("id"))
	if errors.Is(err, repository.ErrNotFound) || (err == nil && !concept.VisibleTo(c.GetString(userIDKey))) {
		notFound(c)
		return nil, false
	}
	if err != nil {
		internalError(c, err)
		return nil, false
	}
	return concept, true
}

func parseLimit(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return repository.DefaultListLimit, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		badRequest(c, "limit must be a positive integer")
		return 0, false
	}
	return n, true
}

func notFound(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusNotFound, ErrorResponse{Code: ErrCodeNotFound, Message: "game not found"})
}

func badRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Code: ErrCodeBadRequest, Message: message})
}

func internalError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
		Code:    ErrCodeInternal,
		Message: "An unexpected internal error occurred",
	})
}
