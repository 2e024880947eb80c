package context

import (
	"context"
	"testing"
)

func TestCorrelationValues(t *testing.T) {
	ctx := WithRequestID(context.Background(), " req-1 ")
	ctx = WithEmployerID(ctx, "42")
	ctx = WithJob(ctx, "billing_warnings")

	if got := RequestIDFromContext(ctx); got != "req-1" {
		t.Fatalf("expected trimmed request id, got %q", got)
	}
	if got := EmployerIDFromContext(ctx); got != "42" {
		t.Fatalf("expected employer id 42, got %q", got)
	}
	if got := JobFromContext(ctx); got != "billing_warnings" {
		t.Fatalf("expected job name, got %q", got)
	}
	if got := RequestIDFromContext(context.Background()); got != "" {
		t.Fatalf("expected empty request id, got %q", got)
	}
}
