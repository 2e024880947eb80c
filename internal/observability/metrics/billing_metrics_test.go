package metrics

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"gorm.io/gorm"
)

func TestClassifyJobReason(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{name: "deadline", err: context.DeadlineExceeded, want: JobReasonDeadlineExceeded},
		{name: "db_lock_timeout", err: &pgconn.PgError{Code: "55P03"}, want: JobReasonDBLockTimeout},
		{name: "serialization_failure", err: &pgconn.PgError{Code: "40001"}, want: JobReasonSerializationFailure},
		{name: "unique_violation", err: gorm.ErrDuplicatedKey, want: JobReasonUniqueViolation},
		{name: "unknown", err: errors.New("boom"), want: JobReasonUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifyJobReason(tc.err); got != tc.want {
				t.Fatalf("expected reason %q, got %q", tc.want, got)
			}
		})
	}
}

func TestBillingMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBillingMetricsForTest(reg)

	m.IncWebhook("midtrans", WebhookOutcomeProcessed)
	m.IncWebhook("midtrans", WebhookOutcomeProcessed)
	m.IncWebhook("midtrans", WebhookOutcomeInvalidSignature)
	m.IncJobError("billing_warnings", &pgconn.PgError{Code: "40001"})

	if got := testutil.ToFloat64(m.webhooks.WithLabelValues("midtrans", WebhookOutcomeProcessed)); got != 2 {
		t.Fatalf("expected 2 processed webhooks, got %v", got)
	}
	if got := testutil.ToFloat64(m.webhooks.WithLabelValues("midtrans", WebhookOutcomeInvalidSignature)); got != 1 {
		t.Fatalf("expected 1 invalid signature, got %v", got)
	}
	if got := testutil.ToFloat64(m.jobErrors.WithLabelValues("billing_warnings", JobReasonSerializationFailure)); got != 1 {
		t.Fatalf("expected serialization failure counted, got %v", got)
	}
}
