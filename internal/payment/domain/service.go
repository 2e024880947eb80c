package domain

import (
	"context"
	"net/http"
)

//go:generate mockgen -source=service.go -destination=../mocks/mock_service.go -package=mocks
type Service interface {
	CreateCheckout(ctx context.Context, req CheckoutRequest) (CheckoutResult, error)
	// HandleNotification never fails a delivery for gateway-side reasons; see NotificationResult.Reason.
	HandleNotification(ctx context.Context, provider string, payload []byte, headers http.Header) (NotificationResult, error)
	GetByOrderID(ctx context.Context, orderID string) (PaymentDetail, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
}
