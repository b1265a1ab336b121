package image

import (
	"context"
	"fmt"
	"sync"

	"gameforge/internal/model"
	"gameforge/internal/prompt"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// Completer produces text for a prompt and never fails.
type Completer interface {
	Complete(ctx context.Context, req prompt.Request) string
}

// CoverRequest is the game information a cover is generated from.
type CoverRequest struct {
	Title               string
	Genre               model.Genre
	Mood                model.Mood
	UniverseDescription string
}

// Adapter produces cover images through the agent API and degrades to a
// textual concept-art description when no image can be obtained.
type Adapter struct {
	agent      AgentAPI
	spec       AgentSpec
	completion Completer
	agents     *gocache.Cache
	mu         sync.Mutex
	logger     *zap.Logger
}

// NewAdapter builds an adapter. A nil agent keeps the adapter in demo mode.
func NewAdapter(agent AgentAPI, spec AgentSpec, completion Completer, logger *zap.Logger) *Adapter {
	return &Adapter{
		agent:      agent,
		spec:       spec,
		completion: completion,
		agents:     gocache.New(gocache.NoExpiration, 0),
		logger:     logger.Named("image_adapter"),
	}
}

// Enabled reports whether real images can be attempted.
func (a *Adapter) Enabled() bool {
	return a.agent != nil
}

// GenerateCover returns image bytes and the prompt used when the agent succeeds,
// or a generated description without bytes otherwise.
func (a *Adapter) GenerateCover(ctx context.Context, req CoverRequest) model.ImageResult {
	log := a.logger.With(zap.String("title", req.Title))
	if a.agent == nil {
		log.Debug("Image agent not configured, using description")
		return a.describe(ctx, req)
	}

	coverPrompt := prompt.CoverArt(req.Title, req.Genre, req.Mood, req.UniverseDescription)
	data, err := a.generate(ctx, coverPrompt.Text)
	if err != nil {
		log.Warn("Cover generation failed, using description", zap.Error(err))
		return a.describe(ctx, req)
	}

	log.Info("Cover generated", zap.Int("bytes", len(data)))
	return model.ImageResult{Description: coverPrompt.Text, ImageBytes: data}
}

func (a *Adapter) generate(ctx context.Context, inputs string) ([]byte, error) {
	agentID, err := a.agentID(ctx)
	if err != nil {
		return nil, err
	}
	fileID, err := a.agent.StartConversation(ctx, agentID, inputs)
	if err != nil {
		return nil, err
	}
	return a.agent.DownloadFile(ctx, fileID)
}

// agentID returns the cached agent id, creating the agent on first use.
func (a *Adapter) agentID(ctx context.Context) (string, error) {
	if id, ok := a.agents.Get(a.spec.Name); ok {
		return id.(string), nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if id, ok := a.agents.Get(a.spec.Name); ok {
		return id.(string), nil
	}
	id, err := a.agent.CreateAgent(ctx, a.spec)
	if err != nil {
		return "", fmt.Errorf("failed to create image agent: %w", err)
	}
	a.agents.Set(a.spec.Name, id, gocache.NoExpiration)
	return id, nil
}

func (a *Adapter) describe(ctx context.Context, req CoverRequest) model.ImageResult {
	descPrompt := prompt.ImageDescription(req.Title, req.Genre, req.Mood, req.UniverseDescription)
	return model.ImageResult{Description: a.completion.Complete(ctx, descPrompt)}
}
