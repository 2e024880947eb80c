package domain

import (
	"net/http"
	"time"
)

// GatewayConfig is what adapter factories need from process configuration.
type GatewayConfig struct {
	MidtransServerKey    string
	MidtransClientKey    string
	MidtransProduction   bool
	MidtransBaseURL      string
	StripeSecretKey      string
	StripeWebhookSecret  string
	StripeCurrency       string
	StripeBackendBaseURL string
	Timeout              time.Duration
	HTTPClient           *http.Client
}
