package logger

import (
	"context"
	"testing"

	obscontext "github.com/smallbiznis/jobboard/internal/observability/context"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestWithContextAddsCorrelationFields(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	base := zap.New(core)

	ctx := obscontext.WithRequestID(context.Background(), "req-9")
	ctx = obscontext.WithEmployerID(ctx, "77")
	WithContext(ctx, base).Info("hello")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["request_id"] != "req-9" {
		t.Fatalf("expected request_id field, got %v", fields["request_id"])
	}
	if fields["employer_id"] != "77" {
		t.Fatalf("expected employer_id field, got %v", fields["employer_id"])
	}
	if _, ok := fields["trace_id"]; ok {
		t.Fatalf("unexpected trace_id without a span")
	}
}

func TestOperationFromSQL(t *testing.T) {
	cases := map[string]string{
		"SELECT * FROM plans":                          "SELECT",
		"  update payments set status = 'x'":           "UPDATE",
		"WITH due AS (SELECT 1) SELECT * FROM due":     "SELECT",
		"INSERT INTO billing_warnings (id) VALUES (1)": "INSERT",
		"": "UNKNOWN",
	}
	for sql, want := range cases {
		if got := operationFromSQL(sql); got != want {
			t.Fatalf("operationFromSQL(%q) = %q, want %q", sql, got, want)
		}
	}
}
