// Package midtrans talks to the Midtrans Snap hosted checkout.
package midtrans

import (
	"bytes"
	"context"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	paymentdomain "github.com/smallbiznis/jobboard/internal/payment/domain"
)

const (
	ProviderName = "midtrans"

	SandboxBaseURL    = "https://app.sandbox.midtrans.com"
	ProductionBaseURL = "https://app.midtrans.com"

	transactionsPath = "/snap/v1/transactions"
	maxResponseBytes = 1 << 20
)

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Provider() string {
	return ProviderName
}

func (f *Factory) NewGateway(cfg paymentdomain.GatewayConfig) (paymentdomain.Gateway, error) {
	serverKey := strings.TrimSpace(cfg.MidtransServerKey)
	if serverKey == "" {
		return nil, paymentdomain.ErrInvalidConfig
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.MidtransBaseURL), "/")
	if baseURL == "" {
		baseURL = SandboxBaseURL
		if cfg.MidtransProduction {
			baseURL = ProductionBaseURL
		}
	}

	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}

	return &Gateway{serverKey: serverKey, baseURL: baseURL, client: client}, nil
}

type Gateway struct {
	serverKey string
	baseURL   string
	client    *http.Client
}

func (g *Gateway) Provider() string {
	return ProviderName
}

type snapRequest struct {
	TransactionDetails snapTransactionDetails `json:"transaction_details"`
	ItemDetails        []snapItem             `json:"item_details"`
	CustomerDetails    snapCustomer           `json:"customer_details"`
	CreditCard         snapCreditCard         `json:"credit_card"`
	Callbacks          snapCallbacks          `json:"callbacks"`
	EnabledPayments    []string               `json:"enabled_payments,omitempty"`
}

type snapTransactionDetails struct {
	OrderID     string `json:"order_id"`
	GrossAmount int64  `json:"gross_amount"`
}

type snapItem struct {
	ID       string `json:"id"`
	Price    int64  `json:"price"`
	Quantity int    `json:"quantity"`
	Name     string `json:"name"`
}

type snapCustomer struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

type snapCreditCard struct {
	Secure bool `json:"secure"`
}

type snapCallbacks struct {
	Finish  string `json:"finish"`
	Pending string `json:"pending,omitempty"`
	Error   string `json:"error,omitempty"`
}

type snapResponse struct {
	Token         string   `json:"token"`
	RedirectURL   string   `json:"redirect_url"`
	StatusMessage string   `json:"status_message"`
	ErrorMessages []string `json:"error_messages"`
}

func (g *Gateway) CreateTransaction(ctx context.Context, req paymentdomain.TransactionRequest) (paymentdomain.TransactionResponse, error) {
	body, err := json.Marshal(snapRequest{
		TransactionDetails: snapTransactionDetails{OrderID: req.OrderID, GrossAmount: req.GrossAmount},
		ItemDetails: []snapItem{{
			ID:       req.Item.ID,
			Price:    req.Item.Price,
			Quantity: req.Item.Quantity,
			Name:     req.Item.Name,
		}},
		CustomerDetails: snapCustomer{
			FirstName: req.Customer.FirstName,
			LastName:  req.Customer.LastName,
			Email:     req.Customer.Email,
			Phone:     req.Customer.Phone,
		},
		CreditCard: snapCreditCard{Secure: true},
		Callbacks: snapCallbacks{
			Finish:  req.Callbacks.Finish,
			Pending: req.Callbacks.Pending,
			Error:   req.Callbacks.Error,
		},
		EnabledPayments: req.EnabledPayments,
	})
	if err != nil {
		return paymentdomain.TransactionResponse{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+transactionsPath, bytes.NewReader(body))
	if err != nil {
		return paymentdomain.TransactionResponse{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.SetBasicAuth(g.serverKey, "")

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return paymentdomain.TransactionResponse{}, paymentdomain.NewGatewayError(ProviderName, 0, "", nil, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return paymentdomain.TransactionResponse{}, paymentdomain.NewGatewayError(ProviderName, resp.StatusCode, "", nil, err)
	}

	var out snapResponse
	decodeErr := json.Unmarshal(raw, &out)
	if resp.StatusCode >= 300 || decodeErr != nil || out.Token == "" {
		cause := fmt.Errorf("midtrans: http %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
		return paymentdomain.TransactionResponse{}, paymentdomain.NewGatewayError(ProviderName, resp.StatusCode, out.StatusMessage, out.ErrorMessages, cause)
	}

	return paymentdomain.TransactionResponse{Token: out.Token, RedirectURL: out.RedirectURL}, nil
}

var requiredFields = []string{"order_id", "status_code", "gross_amount", "signature_key"}

func (g *Gateway) ParseNotification(ctx context.Context, payload []byte, headers http.Header) (*paymentdomain.Notification, error) {
	var body map[string]any
	if err := json.Unmarshal(payload, &body); err != nil || body == nil {
		return nil, paymentdomain.ErrBadPayload
	}

	fields := make(map[string]string, len(requiredFields))
	for _, key := range requiredFields {
		value, ok := body[key].(string)
		if !ok || value == "" {
			return nil, fmt.Errorf("%w: %s", paymentdomain.ErrBadPayload, key)
		}
		fields[key] = value
	}

	if !VerifySignature(fields["order_id"], fields["status_code"], fields["gross_amount"], g.serverKey, fields["signature_key"]) {
		return nil, paymentdomain.ErrInvalidSignature
	}

	txStatus := stringField(body, "transaction_status")
	fraud := stringField(body, "fraud_status")

	meta, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Join(paymentdomain.ErrBadPayload, err)
	}

	return &paymentdomain.Notification{
		Provider:          ProviderName,
		OrderID:           fields["order_id"],
		TransactionStatus: txStatus,
		FraudStatus:       fraud,
		PaymentType:       stringField(body, "payment_type"),
		TransactionID:     stringField(body, "transaction_id"),
		Status:            paymentdomain.NormalizeStatus(txStatus, fraud),
		Meta:              meta,
	}, nil
}

// Signature is hex(SHA-512(order_id + status_code + gross_amount + server_key)).
func Signature(orderID, statusCode, grossAmount, serverKey string) string {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + serverKey))
	return hex.EncodeToString(sum[:])
}

func VerifySignature(orderID, statusCode, grossAmount, serverKey, signature string) bool {
	expected := Signature(orderID, statusCode, grossAmount, serverKey)
	got := strings.ToLower(strings.TrimSpace(signature))
	return subtle.ConstantTimeCompare([]byte(expected), []byte(got)) == 1
}

func stringField(body map[string]any, key string) string {
	if v, ok := body[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}
