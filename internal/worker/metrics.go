package worker

import (
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
	"go.uber.org/zap"
)

const jobName = "gameforge_worker"

// Metrics holds the worker counters on a private registry, so they can be
// pushed to a Pushgateway without the process-wide collectors.
type Metrics struct {
	Registry *prometheus.Registry

	tasksReceived  prometheus.Counter
	tasksSucceeded prometheus.Counter
	tasksFailed    *prometheus.CounterVec
	taskDuration   prometheus.Histogram

	pusher *push.Pusher
	logger *zap.Logger
}

func NewMetrics(logger *zap.Logger) *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	return &Metrics{
		Registry: registry,
		tasksReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "gameforge_tasks_received_total",
			Help: "Total number of generation tasks received by the worker.",
		}),
		tasksSucceeded: factory.NewCounter(prometheus.CounterOpts{
			Name: "gameforge_tasks_succeeded_total",
			Help: "Total number of generation tasks that produced a stored concept.",
		}),
		tasksFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "gameforge_tasks_failed_total",
			Help: "Total number of generation tasks that failed, partitioned by reason.",
		}, []string{"reason"}),
		taskDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "gameforge_task_processing_duration_seconds",
			Help:    "Duration of generation task processing.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 60, 120, 300},
		}),
		logger: logger.Named("Metrics"),
	}
}

func (m *Metrics) TaskReceived()               { m.tasksReceived.Inc() }
func (m *Metrics) TaskSucceeded()              { m.tasksSucceeded.Inc() }
func (m *Metrics) TaskFailed(reason string)    { m.tasksFailed.WithLabelValues(reason).Inc() }
func (m *Metrics) ObserveTask(d time.Duration) { m.taskDuration.Observe(d.Seconds()) }

// InitPusher connects the registry to a Pushgateway and pushes once to check it.
func (m *Metrics) InitPusher(pushgatewayURL string) error {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	instanceID := fmt.Sprintf("%s-%d", hostname, os.Getpid())

	m.pusher = push.New(pushgatewayURL, jobName).Gatherer(m.Registry).Grouping("instance", instanceID)
	if err := m.pusher.Push(); err != nil {
		m.pusher = nil
		return fmt.Errorf("could not push initial metrics to Pushgateway: %w", err)
	}
	m.logger.Info("Pushgateway pusher initialized", zap.String("url", pushgatewayURL), zap.String("instance", instanceID))
	return nil
}

// Push sends the current values to the Pushgateway, when one is configured.
func (m *Metrics) Push() {
	if m.pusher == nil {
		return
	}
	if err := m.pusher.Push(); err != nil {
		m.logger.Warn("Failed to push metrics", zap.Error(err))
	}
}

// Cleanup removes this instance's group from the Pushgateway.
func (m *Metrics) Cleanup() {
	if m.pusher == nil {
		return
	}
	if err := m.pusher.Delete(); err != nil {
		m.logger.Warn("Failed to delete metrics from Pushgateway", zap.Error(err))
	}
}
