package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"gameforge/internal/config"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ollama/ollama/api"
	"github.com/pkoukk/tiktoken-go"
	openaigo "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Prices used for the cost estimate, per million tokens.
const (
	pricePerMillionInputTokensUSD  = 0.1
	pricePerMillionOutputTokensUSD = 0.3
)

var (
	// ErrAIGenerationFailed wraps every upstream text generation failure.
	ErrAIGenerationFailed = errors.New("ai text generation failed")
	// ErrRateLimited marks failures caused by upstream throttling.
	ErrRateLimited = errors.New("ai upstream rate limited")
)

// GenerationParams are optional sampling parameters. Nil means the upstream default.
type GenerationParams struct {
	Temperature *float64
	MaxTokens   *int
	TopP        *float64
}

// UsageInfo reports token usage of one completion.
type UsageInfo struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	EstimatedCostUSD float64
}

// AIClient is an upstream text-completion provider.
type AIClient interface {
	// GenerateText returns the completion of userInput under systemPrompt.
	GenerateText(ctx context.Context, userID string, systemPrompt string, userInput string, params GenerationParams) (string, UsageInfo, error)
}

// IsRateLimited reports whether err was caused by upstream throttling.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) {
		return true
	}

	var apiErr *openaigo.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
		return true
	}
	var reqErr *openaigo.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode == http.StatusTooManyRequests {
		return true
	}
	var statusErr api.StatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusTooManyRequests {
		return true
	}
	var anthropicErr *anthropic.Error
	// 529 is the Anthropic "overloaded" status.
	if errors.As(err, &anthropicErr) && (anthropicErr.StatusCode == http.StatusTooManyRequests || anthropicErr.StatusCode == 529) {
		return true
	}

	return strings.Contains(strings.ToLower(err.Error()), "capacity exceeded")
}

// wrapUpstreamError tags err with ErrAIGenerationFailed, and ErrRateLimited when it applies.
func wrapUpstreamError(err error) error {
	if IsRateLimited(err) {
		return fmt.Errorf("%w: %w: %v", ErrAIGenerationFailed, ErrRateLimited, err)
	}
	return fmt.Errorf("%w: %w", ErrAIGenerationFailed, err)
}

func calculateCost(promptTokens, completionTokens int) float64 {
	inputCost := float64(promptTokens) * pricePerMillionInputTokensUSD / 1_000_000.0
	outputCost := float64(completionTokens) * pricePerMillionOutputTokensUSD / 1_000_000.0
	return inputCost + outputCost
}

// estimateTokens counts tokens locally when the upstream omits usage.
func estimateTokens(model string, texts ...string) int {
	tke, err := tiktoken.EncodingForModel(model)
	if err != nil {
		tke, err = tiktoken.GetEncoding(tiktoken.MODEL_CL100K_BASE)
		if err != nil {
			return 0
		}
	}
	total := 0
	for _, t := range texts {
		total += len(tke.Encode(t, nil, nil))
	}
	return total
}

func float32Val(f64 *float64) float32 {
	if f64 == nil {
		return 1.0
	}
	return float32(*f64)
}

func intVal(i *int) int {
	if i == nil {
		return 0
	}
	return *i
}

// --- OpenAI-compatible client (Mistral by default) ---

type openAIClient struct {
	client *openaigo.Client
	model  string
	logger *zap.Logger
}

func (c *openAIClient) GenerateText(ctx context.Context, userID string, systemPrompt string, userInput string, params GenerationParams) (string, UsageInfo, error) {
	usageInfo := UsageInfo{}
	if strings.TrimSpace(systemPrompt) == "" {
		recordAIRequest(c.model, "error", 0)
		return "", usageInfo, fmt.Errorf("%w: empty system prompt", ErrAIGenerationFailed)
	}

	messages := []openaigo.ChatCompletionMessage{
		{Role: openaigo.ChatMessageRoleSystem, Content: systemPrompt},
	}
	if userInput != "" {
		messages = append(messages, openaigo.ChatCompletionMessage{Role: openaigo.ChatMessageRoleUser, Content: userInput})
	}

	log := c.logger.With(zap.String("model", c.model), zap.String("user_id", userID))
	log.Debug("Sending completion request", zap.Int("prompt_bytes", len(userInput)))

	startTime := time.Now()
	resp, err := c.client.CreateChatCompletion(ctx, openaigo.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: float32Val(params.Temperature),
		MaxTokens:   intVal(params.MaxTokens),
		TopP:        float32Val(params.TopP),
	})
	duration := time.Since(startTime)

	if err != nil {
		log.Warn("Completion request failed", zap.Duration("duration", duration), zap.Error(err))
		recordAIRequest(c.model, "error", duration)
		return "", usageInfo, wrapUpstreamError(err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		log.Warn("Completion response is empty", zap.Duration("duration", duration))
		recordAIRequest(c.model, "error_empty_response", duration)
		return "", usageInfo, fmt.Errorf("%w: empty response", ErrAIGenerationFailed)
	}

	text := resp.Choices[0].Message.Content
	if resp.Usage.TotalTokens > 0 {
		usageInfo.PromptTokens = resp.Usage.PromptTokens
		usageInfo.CompletionTokens = resp.Usage.CompletionTokens
		usageInfo.TotalTokens = resp.Usage.TotalTokens
	} else {
		usageInfo.PromptTokens = estimateTokens(c.model, systemPrompt, userInput)
		usageInfo.CompletionTokens = estimateTokens(c.model, text)
		usageInfo.TotalTokens = usageInfo.PromptTokens + usageInfo.CompletionTokens
	}
	usageInfo.EstimatedCostUSD = calculateCost(usageInfo.PromptTokens, usageInfo.CompletionTokens)

	recordAIRequest(c.model, "success", duration)
	recordAIUsage(c.model, usageInfo)
	log.Debug("Completion received",
		zap.Duration("duration", duration),
		zap.Int("response_len", len(text)),
		zap.Int("total_tokens", usageInfo.TotalTokens))
	return text, usageInfo, nil
}

// --- Ollama client ---

type ollamaClient struct {
	client  *api.Client
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

func newOllamaClient(cfg config.AIConfig, logger *zap.Logger) (AIClient, error) {
	httpClient := &http.Client{Timeout: cfg.Timeout}

	// api.NewClient expects the server root, without /v1.
	ollamaBaseURL := strings.TrimSuffix(cfg.BaseURL, "/v1")
	ollamaBaseURL = strings.TrimSuffix(ollamaBaseURL, "/")
	parsedURL, err := url.Parse(ollamaBaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama base url %q: %w", ollamaBaseURL, err)
	}

	logger.Info("Ollama client created",
		zap.String("base_url", ollamaBaseURL),
		zap.String("model", cfg.Model),
		zap.Duration("timeout", cfg.Timeout))
	return &ollamaClient{
		client:  api.NewClient(parsedURL, httpClient),
		model:   cfg.Model,
		timeout: cfg.Timeout,
		logger:  logger,
	}, nil
}

func (c *ollamaClient) GenerateText(ctx context.Context, userID string, systemPrompt string, userInput string, params GenerationParams) (string, UsageInfo, error) {
	usageInfo := UsageInfo{}
	if strings.TrimSpace(systemPrompt) == "" {
		recordAIRequest(c.model, "error", 0)
		return "", usageInfo, fmt.Errorf("%w: empty system prompt", ErrAIGenerationFailed)
	}

	messages := []api.Message{{Role: "system", Content: systemPrompt}}
	if userInput != "" {
		messages = append(messages, api.Message{Role: "user", Content: userInput})
	}

	options := map[string]interface{}{"num_predict": intVal(params.MaxTokens)}
	if params.Temperature != nil {
		options["temperature"] = *params.Temperature
	}
	if params.TopP != nil {
		options["top_p"] = *params.TopP
	}
	stream := false
	req := &api.ChatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   &stream,
		Options:  options,
	}

	// A zero timeout leaves the deadline to ctx.
	requestCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		requestCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	log := c.logger.With(zap.String("model", c.model), zap.String("user_id", userID))
	startTime := time.Now()
	var resp api.ChatResponse
	err := c.client.Chat(requestCtx, req, func(r api.ChatResponse) error {
		resp = r
		return nil
	})
	duration := time.Since(startTime)

	if err != nil {
		log.Warn("Ollama request failed", zap.Duration("duration", duration), zap.Error(err))
		recordAIRequest(c.model, "error", duration)
		return "", usageInfo, wrapUpstreamError(err)
	}
	if resp.Message.Content == "" {
		recordAIRequest(c.model, "error_empty_response", duration)
		return "", usageInfo, fmt.Errorf("%w: empty response", ErrAIGenerationFailed)
	}

	usageInfo.PromptTokens = resp.PromptEvalCount
	usageInfo.CompletionTokens = resp.EvalCount
	usageInfo.TotalTokens = resp.PromptEvalCount + resp.EvalCount

	recordAIRequest(c.model, "success", duration)
	recordAIUsage(c.model, usageInfo)
	return resp.Message.Content, usageInfo, nil
}

// --- Anthropic client ---

type anthropicClient struct {
	client *anthropic.Client
	model  string
	logger *zap.Logger
}

func newAnthropicClient(cfg config.AIConfig, logger *zap.Logger) AIClient {
	logger.Info("Anthropic client created", zap.String("model", cfg.Model))
	return &anthropicClient{
		client: anthropic.NewClient(
			option.WithAPIKey(cfg.APIKey),
			option.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
			// Retries are driven by RetryPolicy.
			option.WithMaxRetries(0),
		),
		model:  cfg.Model,
		logger: logger,
	}
}

func (c *anthropicClient) GenerateText(ctx context.Context, userID string, systemPrompt string, userInput string, params GenerationParams) (string, UsageInfo, error) {
	usageInfo := UsageInfo{}
	if strings.TrimSpace(systemPrompt) == "" {
		recordAIRequest(c.model, "error", 0)
		return "", usageInfo, fmt.Errorf("%w: empty system prompt", ErrAIGenerationFailed)
	}

	maxTokens := int64(intVal(params.MaxTokens))
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	body := anthropic.MessageNewParams{
		Model:     anthropic.F(anthropic.Model(c.model)),
		MaxTokens: anthropic.F(maxTokens),
		System: anthropic.F([]anthropic.TextBlockParam{
			anthropic.NewTextBlock(systemPrompt),
		}),
		Messages: anthropic.F([]anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userInput)),
		}),
	}
	if params.Temperature != nil {
		body.Temperature = anthropic.F(*params.Temperature)
	}
	if params.TopP != nil {
		body.TopP = anthropic.F(*params.TopP)
	}

	log := c.logger.With(zap.String("model", c.model), zap.String("user_id", userID))
	startTime := time.Now()
	message, err := c.client.Messages.New(ctx, body)
	duration := time.Since(startTime)
	if err != nil {
		log.Warn("Anthropic request failed", zap.Duration("duration", duration), zap.Error(err))
		recordAIRequest(c.model, "error", duration)
		return "", usageInfo, wrapUpstreamError(err)
	}

	var sb strings.Builder
	for _, block := range message.Content {
		sb.WriteString(block.Text)
	}
	text := sb.String()
	if text == "" {
		recordAIRequest(c.model, "error_empty_response", duration)
		return "", usageInfo, fmt.Errorf("%w: empty response", ErrAIGenerationFailed)
	}

	usageInfo.PromptTokens = int(message.Usage.InputTokens)
	usageInfo.CompletionTokens = int(message.Usage.OutputTokens)
	usageInfo.TotalTokens = usageInfo.PromptTokens + usageInfo.CompletionTokens
	usageInfo.EstimatedCostUSD = calculateCost(usageInfo.PromptTokens, usageInfo.CompletionTokens)

	recordAIRequest(c.model, "success", duration)
	recordAIUsage(c.model, usageInfo)
	return text, usageInfo, nil
}

// NewAIClient builds the client selected by cfg.ClientType.
func NewAIClient(cfg config.AIConfig, logger *zap.Logger) (AIClient, error) {
	logger = logger.Named("ai_client")
	switch strings.ToLower(cfg.ClientType) {
	case "openai", "mistral", "":
		openaiConfig := openaigo.DefaultConfig(cfg.APIKey)
		openaiConfig.BaseURL = cfg.BaseURL
		openaiConfig.HTTPClient = &http.Client{Timeout: cfg.Timeout}
		logger.Info("OpenAI-compatible client created",
			zap.String("base_url", cfg.BaseURL),
			zap.String("model", cfg.Model),
			zap.Duration("timeout", cfg.Timeout))
		return &openAIClient{
			client: openaigo.NewClientWithConfig(openaiConfig),
			model:  cfg.Model,
			logger: logger,
		}, nil
	case "ollama":
		return newOllamaClient(cfg, logger)
	case "anthropic":
		return newAnthropicClient(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unknown AI client type %q", cfg.ClientType)
	}
}
