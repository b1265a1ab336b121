package service

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	aiRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gameforge_ai_requests_total",
			Help: "Total number of requests sent to the AI upstream.",
		},
		[]string{"model", "status"},
	)
	aiRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gameforge_ai_request_duration_seconds",
			Help:    "Histogram of AI upstream request durations.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"model"},
	)
	aiPromptTokens = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gameforge_ai_prompt_tokens",
			Help:    "Histogram of prompt token counts.",
			Buckets: prometheus.LinearBuckets(100, 100, 15),
		},
		[]string{"model"},
	)
	aiCompletionTokens = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gameforge_ai_completion_tokens",
			Help:    "Histogram of completion token counts.",
			Buckets: prometheus.LinearBuckets(50, 50, 20),
		},
		[]string{"model"},
	)
	aiEstimatedCostUSD = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gameforge_ai_estimated_cost_usd_total",
			Help: "Estimated total cost of AI requests in USD.",
		},
		[]string{"model"},
	)

	completionOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gameforge_completion_outcomes_total",
			Help: "Terminal states of resilient completions, per task.",
		},
		[]string{"task", "state"},
	)
	completionBackoff = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gameforge_completion_backoff_seconds",
			Help:    "Delays waited between completion attempts.",
			Buckets: []float64{0.5, 1, 2, 4, 8, 16},
		},
	)
)

func recordAIRequest(model, status string, duration time.Duration) {
	aiRequestsTotal.WithLabelValues(model, status).Inc()
	if duration > 0 {
		aiRequestDuration.WithLabelValues(model).Observe(duration.Seconds())
	}
}

func recordAIUsage(model string, usage UsageInfo) {
	if usage.TotalTokens <= 0 {
		return
	}
	aiPromptTokens.WithLabelValues(model).Observe(float64(usage.PromptTokens))
	aiCompletionTokens.WithLabelValues(model).Observe(float64(usage.CompletionTokens))
	if usage.EstimatedCostUSD > 0 {
		aiEstimatedCostUSD.WithLabelValues(model).Add(usage.EstimatedCostUSD)
	}
}
