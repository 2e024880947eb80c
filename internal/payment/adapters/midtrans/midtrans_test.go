package midtrans

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	paymentdomain "github.com/smallbiznis/jobboard/internal/payment/domain"
)

const testServerKey = "SB-Mid-server-test"

func newGateway(t *testing.T, baseURL string) paymentdomain.Gateway {
	t.Helper()
	gw, err := NewFactory().NewGateway(paymentdomain.GatewayConfig{
		MidtransServerKey: testServerKey,
		MidtransBaseURL:   baseURL,
	})
	require.NoError(t, err)
	return gw
}

func notificationBody(t *testing.T, fields map[string]any) []byte {
	t.Helper()
	b, err := json.Marshal(fields)
	require.NoError(t, err)
	return b
}

func signedFields(orderID, status, fraud string) map[string]any {
	return map[string]any{
		"order_id":           orderID,
		"status_code":        "200",
		"gross_amount":       "1000000.00",
		"signature_key":      Signature(orderID, "200", "1000000.00", testServerKey),
		"transaction_status": status,
		"fraud_status":       fraud,
		"payment_type":       "bank_transfer",
		"transaction_id":     "tx-1",
	}
}

func TestFactoryRequiresServerKey(t *testing.T) {
	_, err := NewFactory().NewGateway(paymentdomain.GatewayConfig{})
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidConfig)
}

func TestFactoryPicksBaseURL(t *testing.T) {
	gw, err := NewFactory().NewGateway(paymentdomain.GatewayConfig{MidtransServerKey: "k", MidtransProduction: true})
	require.NoError(t, err)
	assert.Equal(t, ProductionBaseURL, gw.(*Gateway).baseURL)

	gw, err = NewFactory().NewGateway(paymentdomain.GatewayConfig{MidtransServerKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, SandboxBaseURL, gw.(*Gateway).baseURL)
}

func TestCreateTransaction(t *testing.T) {
	var got snapRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, transactionsPath, r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, testServerKey, user)
		assert.Empty(t, pass)

		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"token":"snap-token","redirect_url":"https://app.sandbox.midtrans.com/snap/v2/vtweb/snap-token"}`))
	}))
	defer srv.Close()

	res, err := newGateway(t, srv.URL).CreateTransaction(context.Background(), paymentdomain.TransactionRequest{
		OrderID:         "plan-annual-1767225600000",
		GrossAmount:     1000000,
		Item:            paymentdomain.LineItem{ID: "1", Name: "Annual", Price: 1000000, Quantity: 1},
		Customer:        paymentdomain.Customer{FirstName: "User", LastName: "guest"},
		EnabledPayments: []string{"bca_va"},
		Callbacks:       paymentdomain.Callbacks{Finish: "https://jobs.example/payments/finish"},
	})
	require.NoError(t, err)
	assert.Equal(t, "snap-token", res.Token)
	assert.Contains(t, res.RedirectURL, "snap-token")

	assert.Equal(t, "plan-annual-1767225600000", got.TransactionDetails.OrderID)
	assert.EqualValues(t, 1000000, got.TransactionDetails.GrossAmount)
	require.Len(t, got.ItemDetails, 1)
	assert.Equal(t, 1, got.ItemDetails[0].Quantity)
	assert.Equal(t, []string{"bca_va"}, got.EnabledPayments)
	assert.True(t, got.CreditCard.Secure)
	assert.Equal(t, "https://jobs.example/payments/finish", got.Callbacks.Finish)
}

func TestCreateTransactionNormalizesGatewayErrors(t *testing.T) {
	cases := []struct {
		name string
		code int
		body string
		want string
	}{
		{"status message", http.StatusUnauthorized, `{"status_message":"Access denied"}`, "Access denied"},
		{"first error message", http.StatusBadRequest, `{"error_messages":["gross_amount is required","other"]}`, "gross_amount is required"},
		{"opaque body", http.StatusBadGateway, `<html>bad gateway</html>`, "payment gateway createTransaction failed"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.code)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := newGateway(t, srv.URL).CreateTransaction(context.Background(), paymentdomain.TransactionRequest{OrderID: "o", GrossAmount: 1})
			var gwErr *paymentdomain.GatewayError
			require.True(t, errors.As(err, &gwErr))
			assert.Equal(t, tc.want, gwErr.Message)
			assert.Equal(t, tc.code, gwErr.Status)
		})
	}
}

func TestParseNotification(t *testing.T) {
	gw := newGateway(t, "")

	n, err := gw.ParseNotification(context.Background(), notificationBody(t, signedFields("plan-pro-1", "capture", "accept")), nil)
	require.NoError(t, err)
	assert.Equal(t, "plan-pro-1", n.OrderID)
	assert.Equal(t, paymentdomain.StatusSettlement, n.Status)
	assert.True(t, n.Succeeded())
	assert.Equal(t, "bank_transfer", n.PaymentType)
	assert.Equal(t, "tx-1", n.TransactionID)

	var meta map[string]any
	require.NoError(t, json.Unmarshal(n.Meta, &meta))
	assert.Equal(t, "plan-pro-1", meta["order_id"])
	assert.NotContains(t, meta, "updatedAt")
}

func TestParseNotificationRejectsTamperedAmount(t *testing.T) {
	fields := signedFields("plan-pro-1", "settlement", "")
	fields["gross_amount"] = "1.00"

	_, err := newGateway(t, "").ParseNotification(context.Background(), notificationBody(t, fields), nil)
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidSignature)
}

func TestParseNotificationGuards(t *testing.T) {
	gw := newGateway(t, "")

	for _, key := range requiredFields {
		t.Run("missing "+key, func(t *testing.T) {
			fields := signedFields("plan-pro-1", "settlement", "")
			delete(fields, key)
			_, err := gw.ParseNotification(context.Background(), notificationBody(t, fields), nil)
			assert.ErrorIs(t, err, paymentdomain.ErrBadPayload)
		})
	}

	t.Run("numeric amount", func(t *testing.T) {
		fields := signedFields("plan-pro-1", "settlement", "")
		fields["gross_amount"] = 1000000
		_, err := gw.ParseNotification(context.Background(), notificationBody(t, fields), nil)
		assert.ErrorIs(t, err, paymentdomain.ErrBadPayload)
	})

	t.Run("not json", func(t *testing.T) {
		_, err := gw.ParseNotification(context.Background(), []byte("order_id=1"), nil)
		assert.ErrorIs(t, err, paymentdomain.ErrBadPayload)
	})
}

func TestVerifySignatureIsCaseInsensitive(t *testing.T) {
	sig := Signature("o-1", "200", "10.00", "key")
	assert.True(t, VerifySignature("o-1", "200", "10.00", "key", sig))
	assert.False(t, VerifySignature("o-1", "201", "10.00", "key", sig))
	assert.Len(t, sig, 128)
}
