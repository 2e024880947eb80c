package domain

import (
	"context"
	"net/http"
)

// Gateway is a hosted-checkout payment provider.
type Gateway interface {
	Provider() string
	CreateTransaction(ctx context.Context, req TransactionRequest) (TransactionResponse, error)
	// ParseNotification verifies and decodes a webhook delivery. It returns ErrBadPayload,
	// ErrInvalidSignature or ErrEventIgnored for deliveries that must not touch state.
	ParseNotification(ctx context.Context, payload []byte, headers http.Header) (*Notification, error)
}

// GatewayFactory builds a Gateway from process configuration; ErrInvalidConfig means
// the provider is not configured.
type GatewayFactory interface {
	Provider() string
	NewGateway(cfg GatewayConfig) (Gateway, error)
}
