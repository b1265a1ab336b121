package generator

import (
	"fmt"

	"gameforge/internal/config"
	"gameforge/internal/image"
	"gameforge/internal/service"

	"go.uber.org/zap"
)

// NewFromConfig wires the AI client, the resilient completion and the cover
// adapter described by cfg. Without a usable API key everything runs in mock mode.
func NewFromConfig(cfg config.AIConfig, logger *zap.Logger) (*Service, service.Mode, error) {
	mode := service.ModeFromCredential(cfg.APIKey)

	var client service.AIClient
	if mode == service.ModeLive {
		var err error
		if client, err = service.NewAIClient(cfg, logger); err != nil {
			return nil, mode, fmt.Errorf("failed to create AI client: %w", err)
		}
	}

	policy := service.DefaultRetryPolicy()
	if cfg.MaxAttempts > 0 {
		policy.MaxAttempts = cfg.MaxAttempts
	}
	if cfg.BaseRetryDelay > 0 {
		policy.BaseDelay = cfg.BaseRetryDelay
	}
	if cfg.TransportRetryDelay > 0 {
		policy.TransportDelay = cfg.TransportRetryDelay
	}
	completion := service.NewCompletion(client, cfg.APIKey, logger,
		service.WithRetryPolicy(policy),
		service.WithRequestsPerSecond(cfg.RequestsPerSecond),
	)

	// agent stays a nil interface in demo mode.
	var agent image.AgentAPI
	if mode == service.ModeLive && cfg.ImageEnabled {
		agent = image.NewHTTPAgentClient(cfg.ImageAgentBaseURL, cfg.APIKey, cfg.ImageTimeout, logger)
	}
	covers := image.NewAdapter(agent, image.DefaultAgentSpec(cfg.ImageAgentModel, cfg.ImageAgentName), completion, logger)

	logger.Info("Generation pipeline ready",
		zap.Stringer("mode", completion.Mode()),
		zap.Bool("images", covers.Enabled()))
	return NewService(completion, covers, logger), completion.Mode(), nil
}
