package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gameforge/internal/fallback"
	"gameforge/internal/prompt"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Sampling parameters sent with every completion.
const (
	DefaultTemperature = 0.8
	DefaultTopP        = 0.95
)

// minCredentialLen is the shortest key considered a real credential.
const minCredentialLen = 10

// Mode selects between the upstream model and deterministic mock content.
type Mode int

const (
	ModeMock Mode = iota
	ModeLive
)

func (m Mode) String() string {
	if m == ModeLive {
		return "live"
	}
	return "mock"
}

// ModeFromCredential returns ModeLive only for a plausible API key.
// Keys copied from .env files sometimes keep a leading '='.
func ModeFromCredential(key string) Mode {
	key = strings.TrimLeft(strings.TrimSpace(key), "=")
	if len(key) > minCredentialLen {
		return ModeLive
	}
	return ModeMock
}

// State is the position of a completion in its retry state machine.
type State string

const (
	StateNotConfigured      State = "not_configured"
	StateAttempting         State = "attempting"
	StateRateLimitedBackoff State = "rate_limited_backoff"
	StateSucceeded          State = "succeeded"
	StateExhaustedFallback  State = "exhausted_fallback"
)

// Outcome is the terminal result of one completion.
type Outcome struct {
	Text     string
	State    State
	Attempts int
	Usage    UsageInfo
}

type userIDKey struct{}

// ContextWithUserID attaches the requesting user to ctx, for upstream accounting.
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

// UserIDFromContext returns the user attached by ContextWithUserID, or "".
func UserIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey{}).(string)
	return id
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Completion turns prompts into text and never fails: when the upstream is not
// configured or keeps failing, deterministic mock text is returned instead.
type Completion struct {
	client  AIClient
	mode    Mode
	policy  RetryPolicy
	limiter *rate.Limiter
	sleep   SleepFunc
	logger  *zap.Logger
}

// CompletionOption customizes a Completion.
type CompletionOption func(*Completion)

// WithRetryPolicy replaces DefaultRetryPolicy.
func WithRetryPolicy(p RetryPolicy) CompletionOption {
	return func(c *Completion) { c.policy = p }
}

// WithSleep replaces the wait between attempts.
func WithSleep(fn SleepFunc) CompletionOption {
	return func(c *Completion) { c.sleep = fn }
}

// WithRequestsPerSecond gates every upstream attempt with a token bucket.
// A non-positive rps disables the limiter.
func WithRequestsPerSecond(rps float64) CompletionOption {
	return func(c *Completion) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// NewCompletion builds a completion over client. The mode is derived once from apiKey;
// a nil client also means mock mode.
func NewCompletion(client AIClient, apiKey string, logger *zap.Logger, opts ...CompletionOption) *Completion {
	c := &Completion{
		client: client,
		mode:   ModeFromCredential(apiKey),
		policy: DefaultRetryPolicy(),
		sleep:  sleepContext,
		logger: logger.Named("completion"),
	}
	if client == nil {
		c.mode = ModeMock
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.policy.MaxAttempts < 1 {
		c.policy.MaxAttempts = 1
	}
	c.logger.Info("Completion initialized", zap.Stringer("mode", c.mode), zap.Int("max_attempts", c.policy.MaxAttempts))
	return c
}

// Mode returns the mode chosen at construction.
func (c *Completion) Mode() Mode {
	return c.mode
}

// Complete returns the completion text of req, or mock text.
func (c *Completion) Complete(ctx context.Context, req prompt.Request) string {
	return c.Execute(ctx, req).Text
}

// Execute runs the retry state machine for req and reports how it ended.
func (c *Completion) Execute(ctx context.Context, req prompt.Request) Outcome {
	if c.mode == ModeMock {
		return c.finish(req, Outcome{Text: fallback.MockText(req), State: StateNotConfigured})
	}

	temperature, topP, maxTokens := DefaultTemperature, DefaultTopP, req.MaxTokens
	params := GenerationParams{Temperature: &temperature, TopP: &topP, MaxTokens: &maxTokens}
	userID := UserIDFromContext(ctx)
	log := c.logger.With(zap.String("task", string(req.Task)))

	var state RetryState
	attempts := 0
	for attempt := 0; attempt < c.policy.MaxAttempts; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				log.Warn("Rate limiter wait aborted", zap.Error(err))
				break
			}
		}

		attempts++
		log.Debug("Completion attempt", zap.String("state", string(StateAttempting)), zap.Int("attempt", attempts))
		text, usage, err := c.client.GenerateText(ctx, userID, prompt.SystemPrompt, req.Text, params)
		if err == nil && strings.TrimSpace(text) != "" {
			return c.finish(req, Outcome{Text: strings.TrimSpace(text), State: StateSucceeded, Attempts: attempts, Usage: usage})
		}
		if err == nil {
			err = fmt.Errorf("%w: blank response", ErrAIGenerationFailed)
		}

		state.Attempt = attempt
		rateLimited := IsRateLimited(err)
		if !rateLimited {
			state.TransportFailures++
		}
		if ctx.Err() != nil || !c.policy.Retryable(err, state) {
			log.Warn("Completion attempt failed, giving up", zap.Int("attempt", attempts), zap.Error(err))
			break
		}

		delay := c.policy.Backoff(attempt, err)
		if rateLimited {
			log.Warn("Upstream rate limited, backing off",
				zap.String("state", string(StateRateLimitedBackoff)),
				zap.Int("attempt", attempts),
				zap.Duration("delay", delay))
		} else {
			log.Warn("Completion attempt failed, retrying",
				zap.Int("attempt", attempts),
				zap.Duration("delay", delay),
				zap.Error(err))
		}
		completionBackoff.Observe(delay.Seconds())
		if err := c.sleep(ctx, delay); err != nil {
			break
		}
	}

	return c.finish(req, Outcome{Text: fallback.MockText(req), State: StateExhaustedFallback, Attempts: attempts})
}

func (c *Completion) finish(req prompt.Request, out Outcome) Outcome {
	completionOutcomes.WithLabelValues(string(req.Task), string(out.State)).Inc()
	if out.State == StateExhaustedFallback {
		c.logger.Warn("Falling back to mock text", zap.String("task", string(req.Task)), zap.Int("attempts", out.Attempts))
	}
	return out
}
