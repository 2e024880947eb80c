// Package stripe runs checkout through Stripe Checkout Sessions.
package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/webhook"

	paymentdomain "github.com/smallbiznis/jobboard/internal/payment/domain"
)

const ProviderName = "stripe"

const (
	eventCompleted          = "checkout.session.completed"
	eventAsyncSucceeded     = "checkout.session.async_payment_succeeded"
	eventAsyncPaymentFailed = "checkout.session.async_payment_failed"
	eventExpired            = "checkout.session.expired"
)

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Provider() string {
	return ProviderName
}

func (f *Factory) NewGateway(cfg paymentdomain.GatewayConfig) (paymentdomain.Gateway, error) {
	secretKey := strings.TrimSpace(cfg.StripeSecretKey)
	webhookSecret := strings.TrimSpace(cfg.StripeWebhookSecret)
	if secretKey == "" || webhookSecret == "" {
		return nil, paymentdomain.ErrInvalidConfig
	}

	backendCfg := &stripe.BackendConfig{
		MaxNetworkRetries: stripe.Int64(1),
	}
	if cfg.HTTPClient != nil {
		backendCfg.HTTPClient = cfg.HTTPClient
	}
	if base := strings.TrimSpace(cfg.StripeBackendBaseURL); base != "" {
		backendCfg.URL = stripe.String(strings.TrimRight(base, "/"))
	}

	currency := strings.ToLower(strings.TrimSpace(cfg.StripeCurrency))
	if currency == "" {
		currency = "idr"
	}

	return &Gateway{
		sessions: session.Client{
			B:   stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg),
			Key: secretKey,
		},
		webhookSecret: webhookSecret,
		currency:      currency,
	}, nil
}

type Gateway struct {
	sessions      session.Client
	webhookSecret string
	currency      string
}

func (g *Gateway) Provider() string {
	return ProviderName
}

func (g *Gateway) CreateTransaction(ctx context.Context, req paymentdomain.TransactionRequest) (paymentdomain.TransactionResponse, error) {
	currency := strings.ToLower(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = g.currency
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		ClientReferenceID: stripe.String(req.OrderID),
		SuccessURL:        stripe.String(req.Callbacks.Finish),
		CancelURL:         stripe.String(req.Callbacks.Error),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Quantity: stripe.Int64(int64(max(req.Item.Quantity, 1))),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(currency),
				UnitAmount: stripe.Int64(unitAmount(req.Item.Price, currency)),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(req.Item.Name),
				},
			},
		}},
		Metadata: map[string]string{"order_id": req.OrderID},
	}
	if req.Customer.Email != "" {
		params.CustomerEmail = stripe.String(req.Customer.Email)
	}
	if len(req.EnabledPayments) > 0 {
		params.PaymentMethodTypes = stripe.StringSlice(req.EnabledPayments)
	}
	params.Context = ctx

	s, err := g.sessions.New(params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) {
			return paymentdomain.TransactionResponse{}, paymentdomain.NewGatewayError(ProviderName, stripeErr.HTTPStatusCode, stripeErr.Msg, nil, err)
		}
		return paymentdomain.TransactionResponse{}, paymentdomain.NewGatewayError(ProviderName, 0, "", nil, err)
	}

	return paymentdomain.TransactionResponse{Token: s.ID, RedirectURL: s.URL}, nil
}

// unitAmount converts a whole-unit plan price to Stripe's minor units. Stripe prices IDR in sen.
func unitAmount(amount int64, currency string) int64 {
	if currency == "idr" {
		return amount * 100
	}
	return amount
}

func (g *Gateway) ParseNotification(ctx context.Context, payload []byte, headers http.Header) (*paymentdomain.Notification, error) {
	sigHeader := strings.TrimSpace(headers.Get("Stripe-Signature"))
	if sigHeader == "" {
		return nil, paymentdomain.ErrInvalidSignature
	}

	event, err := webhook.ConstructEventWithOptions(payload, sigHeader, g.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		if isSignatureError(err) {
			return nil, paymentdomain.ErrInvalidSignature
		}
		return nil, paymentdomain.ErrBadPayload
	}

	var status string
	switch string(event.Type) {
	case eventCompleted:
		status = paymentdomain.StatusPending
	case eventAsyncSucceeded:
		status = paymentdomain.StatusSettlement
	case eventAsyncPaymentFailed:
		status = paymentdomain.StatusFailure
	case eventExpired:
		status = paymentdomain.StatusExpire
	default:
		return nil, paymentdomain.ErrEventIgnored
	}

	var s stripe.CheckoutSession
	if event.Data == nil || json.Unmarshal(event.Data.Raw, &s) != nil {
		return nil, paymentdomain.ErrBadPayload
	}
	if string(event.Type) == eventCompleted && s.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid {
		status = paymentdomain.StatusSettlement
	}

	orderID := strings.TrimSpace(s.Metadata["order_id"])
	if orderID == "" {
		orderID = strings.TrimSpace(s.ClientReferenceID)
	}
	if orderID == "" {
		return nil, paymentdomain.ErrBadPayload
	}

	transactionID := s.ID
	if s.PaymentIntent != nil && s.PaymentIntent.ID != "" {
		transactionID = s.PaymentIntent.ID
	}
	method := ""
	if len(s.PaymentMethodTypes) > 0 {
		method = s.PaymentMethodTypes[0]
	}

	return &paymentdomain.Notification{
		Provider:          ProviderName,
		OrderID:           orderID,
		TransactionStatus: status,
		PaymentType:       method,
		TransactionID:     transactionID,
		Status:            status,
		Meta:              payload,
	}, nil
}

func isSignatureError(err error) bool {
	return errors.Is(err, webhook.ErrNotSigned) ||
		errors.Is(err, webhook.ErrInvalidHeader) ||
		errors.Is(err, webhook.ErrNoValidSignature) ||
		errors.Is(err, webhook.ErrTooOld)
}
