package metrics

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

const (
	JobReasonDeadlineExceeded     = "deadline_exceeded"
	JobReasonDBLockTimeout        = "db_lock_timeout"
	JobReasonSerializationFailure = "serialization_failure"
	JobReasonUniqueViolation      = "unique_violation"
	JobReasonUnknown              = "unknown"
)

const (
	WebhookOutcomeProcessed        = "processed"
	WebhookOutcomeBadPayload       = "bad_payload"
	WebhookOutcomeInvalidSignature = "invalid_signature"
	WebhookOutcomeUnknownOrder     = "unknown_order"
	WebhookOutcomeDuplicate        = "duplicate_settlement"
	WebhookOutcomeRateLimited      = "rate_limited"
)

// BillingMetrics holds the prometheus collectors exported at /metrics.
type BillingMetrics struct {
	jobRuns       *prometheus.CounterVec
	jobDuration   *prometheus.HistogramVec
	jobTimeouts   *prometheus.CounterVec
	jobErrors     *prometheus.CounterVec
	webhooks      *prometheus.CounterVec
	activations   *prometheus.CounterVec
	notifications *prometheus.CounterVec
	warnings      *prometheus.CounterVec
}

var (
	billingMetricsOnce sync.Once
	billingMetrics     *BillingMetrics
)

// Billing returns the process-wide billing metrics registry.
func Billing() *BillingMetrics {
	return BillingWithConfig(Config{})
}

// BillingWithConfig returns the singleton, using cfg for const labels on first use.
func BillingWithConfig(cfg Config) *BillingMetrics {
	billingMetricsOnce.Do(func() {
		billingMetrics = newBillingMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return billingMetrics
}

// NewBillingMetricsForTest registers a fresh set of collectors on registerer.
func NewBillingMetricsForTest(registerer prometheus.Registerer) *BillingMetrics {
	return newBillingMetrics(registerer, Config{ServiceName: "test", Environment: "test"})
}

func newBillingMetrics(registerer prometheus.Registerer, cfg Config) *BillingMetrics {
	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "jobboard"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{"service": serviceName, "env": environment}

	m := &BillingMetrics{
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "jobboard_scheduler_job_runs_total",
			Help:        "Scheduler job runs by name.",
			ConstLabels: constLabels,
		}, []string{"job"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "jobboard_scheduler_job_duration_seconds",
			Help:        "Scheduler job latency.",
			Buckets:     []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			ConstLabels: constLabels,
		}, []string{"job"}),
		jobTimeouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "jobboard_scheduler_job_timeouts_total",
			Help:        "Scheduler jobs that ran past their deadline.",
			ConstLabels: constLabels,
		}, []string{"job"}),
		jobErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "jobboard_scheduler_job_errors_total",
			Help:        "Scheduler job errors by low-cardinality reason.",
			ConstLabels: constLabels,
		}, []string{"job", "reason"}),
		webhooks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "jobboard_payment_webhooks_total",
			Help:        "Payment notifications by provider and outcome.",
			ConstLabels: constLabels,
		}, []string{"provider", "outcome"}),
		activations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "jobboard_premium_activations_total",
			Help:        "Premium activations and extensions by source.",
			ConstLabels: constLabels,
		}, []string{"source"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "jobboard_notifications_total",
			Help:        "Billing e-mails by kind and result.",
			ConstLabels: constLabels,
		}, []string{"kind", "result"}),
		warnings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "jobboard_renewal_warnings_total",
			Help:        "Renewal warnings by kind and result.",
			ConstLabels: constLabels,
		}, []string{"kind", "result"}),
	}

	registerer.MustRegister(
		m.jobRuns,
		m.jobDuration,
		m.jobTimeouts,
		m.jobErrors,
		m.webhooks,
		m.activations,
		m.notifications,
		m.warnings,
	)
	return m
}

func (m *BillingMetrics) IncJobRun(job string) {
	if m == nil {
		return
	}
	m.jobRuns.WithLabelValues(job).Inc()
}

func (m *BillingMetrics) ObserveJobDuration(job string, d time.Duration) {
	if m == nil {
		return
	}
	m.jobDuration.WithLabelValues(job).Observe(d.Seconds())
}

func (m *BillingMetrics) IncJobTimeout(job string) {
	if m == nil {
		return
	}
	m.jobTimeouts.WithLabelValues(job).Inc()
}

func (m *BillingMetrics) IncJobError(job string, err error) {
	if m == nil || err == nil {
		return
	}
	m.jobErrors.WithLabelValues(job, ClassifyJobReason(err)).Inc()
}

func (m *BillingMetrics) IncWebhook(provider, outcome string) {
	if m == nil {
		return
	}
	m.webhooks.WithLabelValues(provider, outcome).Inc()
}

func (m *BillingMetrics) IncActivation(source string) {
	if m == nil {
		return
	}
	m.activations.WithLabelValues(source).Inc()
}

func (m *BillingMetrics) IncNotification(kind, result string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(kind, result).Inc()
}

func (m *BillingMetrics) IncWarning(kind, result string) {
	if m == nil {
		return
	}
	m.warnings.WithLabelValues(kind, result).Inc()
}

// ClassifyJobReason maps job errors to low-cardinality reasons.
func ClassifyJobReason(err error) string {
	switch {
	case err == nil:
		return JobReasonUnknown
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return JobReasonDeadlineExceeded
	case hasPGCode(err, "55P03"):
		return JobReasonDBLockTimeout
	case hasPGCode(err, "40001"):
		return JobReasonSerializationFailure
	case errors.Is(err, gorm.ErrDuplicatedKey), hasPGCode(err, "23505"):
		return JobReasonUniqueViolation
	default:
		return JobReasonUnknown
	}
}

func hasPGCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == code
	}
	return false
}
