package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/golang/mock/gomock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	billingdomain "github.com/smallbiznis/jobboard/internal/billing/domain"
	billingmocks "github.com/smallbiznis/jobboard/internal/billing/mocks"
	billingrepo "github.com/smallbiznis/jobboard/internal/billing/repository"
	billingservice "github.com/smallbiznis/jobboard/internal/billing/service"
	"github.com/smallbiznis/jobboard/internal/clock"
	"github.com/smallbiznis/jobboard/internal/config"
	employerdomain "github.com/smallbiznis/jobboard/internal/employer/domain"
	employerrepo "github.com/smallbiznis/jobboard/internal/employer/repository"
	"github.com/smallbiznis/jobboard/internal/notification"
	obsmetrics "github.com/smallbiznis/jobboard/internal/observability/metrics"
	"github.com/smallbiznis/jobboard/internal/payment/adapters"
	"github.com/smallbiznis/jobboard/internal/payment/adapters/midtrans"
	paymentdomain "github.com/smallbiznis/jobboard/internal/payment/domain"
	paymentrepo "github.com/smallbiznis/jobboard/internal/payment/repository"
	planrepo "github.com/smallbiznis/jobboard/internal/plan/repository"
	planservice "github.com/smallbiznis/jobboard/internal/plan/service"
	"github.com/smallbiznis/jobboard/internal/subscriber"
	"github.com/smallbiznis/jobboard/internal/testutil"
)

const serverKey = "SB-Mid-server-test"

var testNow = time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)

type nopSender struct{ sent atomic.Int64 }

func (s *nopSender) Send(_ context.Context, msg notification.Message) (notification.Receipt, error) {
	s.sent.Add(1)
	return notification.Receipt{MessageID: "m", Provider: "test", Recipients: msg.To, SentAt: testNow}, nil
}

type fixture struct {
	db      *gorm.DB
	node    *snowflake.Node
	clock   *clock.FakeClock
	svc     paymentdomain.Service
	snap    *httptest.Server
	snapHit atomic.Int64
	metrics *obsmetrics.BillingMetrics
	sender  *nopSender
}

func newFixture(t *testing.T, billingSvc billingdomain.Service) *fixture {
	t.Helper()
	f := &fixture{
		db:      testutil.OpenDB(t),
		node:    testutil.NewNode(t),
		clock:   clock.NewFakeClock(testNow),
		metrics: obsmetrics.NewBillingMetricsForTest(prometheus.NewRegistry()),
		sender:  &nopSender{},
	}

	f.snap = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.snapHit.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"token":"snap-token","redirect_url":"https://app.sandbox.midtrans.com/snap/v4/redirection/snap-token"}`))
	}))
	t.Cleanup(f.snap.Close)

	log := zap.NewNop()
	registry, err := adapters.NewRegistry(log, paymentdomain.GatewayConfig{
		MidtransServerKey: serverKey,
		MidtransBaseURL:   f.snap.URL,
	}, midtrans.ProviderName, midtrans.NewFactory())
	require.NoError(t, err)

	plans := planrepo.Provide()
	if billingSvc == nil {
		billingSvc = newLedger(f, log)
	}

	f.svc = NewService(Params{
		DB:       f.db,
		Log:      log,
		GenID:    f.node,
		Clock:    f.clock,
		Config:   config.Config{FrontendOrigin: "https://jobs.example/"},
		Repo:     paymentrepo.Provide(),
		Registry: registry,
		PlanSvc: planservice.NewService(planservice.Params{
			DB:   f.db,
			Log:  log,
			Repo: plans,
		}),
		PlanRepo:       plans,
		BillingSvc:     billingSvc,
		BillingMetrics: f.metrics,
	})
	return f
}

func newLedger(f *fixture, log *zap.Logger) billingdomain.Service {
	employers := employerrepo.Provide()
	billingCfg := config.DefaultBillingConfig()
	billingCfg.Timezone = "UTC"
	return billingservice.NewService(billingservice.Params{
		DB:           f.db,
		Log:          log,
		GenID:        f.node,
		Clock:        f.clock,
		Config:       config.Config{FrontendOrigin: "https://jobs.example"},
		BillingCfg:   config.NewStaticBillingConfigHolder(billingCfg),
		Repo:         billingrepo.Provide(),
		EmployerRepo: employers,
		PlanRepo:     planrepo.Provide(),
		Directory: subscriber.NewDirectory(subscriber.Params{
			DB:    f.db,
			Log:   log,
			GenID: f.node,
			Clock: f.clock,
			Repo:  employers,
		}),
		Sender: f.sender,
	})
}

func notificationPayload(t *testing.T, orderID, status, fraud, grossAmount string) []byte {
	t.Helper()
	body := map[string]any{
		"order_id":           orderID,
		"status_code":        "200",
		"gross_amount":       grossAmount,
		"transaction_status": status,
		"payment_type":       "bank_transfer",
		"transaction_id":     "tx-" + orderID,
		"signature_key":      midtrans.Signature(orderID, "200", grossAmount, serverKey),
	}
	if fraud != "" {
		body["fraud_status"] = fraud
	}
	b, err := json.Marshal(body)
	require.NoError(t, err)
	return b
}

func (f *fixture) payment(t *testing.T, orderID string) *paymentdomain.Payment {
	t.Helper()
	p, err := paymentrepo.Provide().FindByOrderID(context.Background(), f.db, orderID)
	require.NoError(t, err)
	require.NotNil(t, p)
	return p
}

func (f *fixture) employer(t *testing.T, id snowflake.ID) *employerdomain.Employer {
	t.Helper()
	emp, err := employerrepo.Provide().FindByID(context.Background(), f.db, id)
	require.NoError(t, err)
	require.NotNil(t, emp)
	return emp
}

var orderIDPattern = regexp.MustCompile(`^plan-[a-z0-9-]{1,23}-\d{13}$`)

func TestNewOrderID(t *testing.T) {
	now := time.UnixMilli(1767225600123).UTC()

	assert.Equal(t, "plan-pro-1767225600123", NewOrderID("pro", now))

	long := NewOrderID("Enterprise Annual Unlimited Plus", now)
	assert.True(t, strings.HasPrefix(long, "plan-enterprise-annual-unlim-"), long)
	assert.Regexp(t, orderIDPattern, long)
	assert.LessOrEqual(t, len(long), 50)
}

func TestCreateCheckout(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	planID := testutil.InsertPlan(t, f.db, f.node, testutil.PlanFixture{Slug: "pro-annual", Amount: 1500000, Interval: "year", Active: true})
	empID := testutil.InsertEmployer(t, f.db, f.node, testutil.EmployerFixture{Slug: "acme"})

	res, err := f.svc.CreateCheckout(ctx, paymentdomain.CheckoutRequest{PlanID: "pro-annual", EmployerID: &empID})
	require.NoError(t, err)
	assert.Equal(t, "snap-token", res.Token)
	assert.Equal(t, int64(1500000), res.Amount)
	assert.Equal(t, "IDR", res.Currency)
	assert.Equal(t, fmt.Sprintf("plan-pro-annual-%d", testNow.UnixMilli()), res.OrderID)

	p := f.payment(t, res.OrderID)
	assert.Equal(t, paymentdomain.StatusPending, p.Status)
	assert.Equal(t, "midtrans", p.Provider)
	assert.Equal(t, planID, p.PlanID)
	require.NotNil(t, p.EmployerID)
	assert.Equal(t, empID, *p.EmployerID)
	require.NotNil(t, p.Token)
	assert.Equal(t, "snap-token", *p.Token)

	var meta map[string]any
	require.NoError(t, json.Unmarshal(p.Meta, &meta))
	assert.Equal(t, "midtrans", meta["provider"])
	assert.Contains(t, meta, "createdAt")
}

func TestCreateCheckoutByPlanID(t *testing.T) {
	f := newFixture(t, nil)
	planID := testutil.InsertPlan(t, f.db, f.node, testutil.PlanFixture{Slug: "pro", Amount: 150000, Active: true})

	res, err := f.svc.CreateCheckout(context.Background(), paymentdomain.CheckoutRequest{PlanID: planID.String()})
	require.NoError(t, err)
	assert.Nil(t, f.payment(t, res.OrderID).EmployerID)
}

func TestCreateCheckoutRejectsUnavailablePlans(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	testutil.InsertPlan(t, f.db, f.node, testutil.PlanFixture{Slug: "free", Amount: 0, Active: true})
	testutil.InsertPlan(t, f.db, f.node, testutil.PlanFixture{Slug: "legacy", Amount: 90000, Active: false})

	_, err := f.svc.CreateCheckout(ctx, paymentdomain.CheckoutRequest{})
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidPlan)

	_, err = f.svc.CreateCheckout(ctx, paymentdomain.CheckoutRequest{PlanID: "missing"})
	assert.ErrorIs(t, err, paymentdomain.ErrPlanNotFound)

	_, err = f.svc.CreateCheckout(ctx, paymentdomain.CheckoutRequest{PlanID: "legacy"})
	assert.ErrorIs(t, err, paymentdomain.ErrPlanNotFound)

	_, err = f.svc.CreateCheckout(ctx, paymentdomain.CheckoutRequest{PlanID: "free"})
	assert.ErrorIs(t, err, paymentdomain.ErrFreePlan)

	_, err = f.svc.CreateCheckout(ctx, paymentdomain.CheckoutRequest{PlanID: "legacy", Provider: "paypal"})
	assert.ErrorIs(t, err, paymentdomain.ErrPlanNotFound)

	assert.Zero(t, f.snapHit.Load())
	testutil.AssertCount(t, f.db, `SELECT COUNT(*) FROM payments`, 0)
}

func TestCreateCheckoutUnknownProvider(t *testing.T) {
	f := newFixture(t, nil)
	testutil.InsertPlan(t, f.db, f.node, testutil.PlanFixture{Slug: "pro", Amount: 150000, Active: true})

	_, err := f.svc.CreateCheckout(context.Background(), paymentdomain.CheckoutRequest{PlanID: "pro", Provider: "paypal"})
	assert.ErrorIs(t, err, paymentdomain.ErrProviderNotFound)
}

func TestAnnualCheckoutSettlementActivatesPremium(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	planID := testutil.InsertPlan(t, f.db, f.node, testutil.PlanFixture{Slug: "pro-annual", Amount: 1500000, Interval: "year", Active: true})
	empID := testutil.InsertEmployer(t, f.db, f.node, testutil.EmployerFixture{Slug: "acme", Admins: []string{"owner@acme.io"}})

	checkout, err := f.svc.CreateCheckout(ctx, paymentdomain.CheckoutRequest{PlanID: "pro-annual", EmployerID: &empID})
	require.NoError(t, err)

	res, err := f.svc.HandleNotification(ctx, "midtrans", notificationPayload(t, checkout.OrderID, "settlement", "", "1500000.00"), nil)
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, paymentdomain.StatusSettlement, res.Status)

	p := f.payment(t, checkout.OrderID)
	assert.Equal(t, paymentdomain.StatusSettlement, p.Status)
	require.NotNil(t, p.SettledAt)
	require.NotNil(t, p.Method)
	assert.Equal(t, "bank_transfer", *p.Method)
	var meta map[string]any
	require.NoError(t, json.Unmarshal(p.Meta, &meta))
	assert.Equal(t, testNow.Format(time.RFC3339Nano), meta["updatedAt"])

	emp := f.employer(t, empID)
	assert.Equal(t, employerdomain.BillingStatusActive, emp.BillingStatus)
	require.NotNil(t, emp.PremiumUntil)
	assert.True(t, emp.PremiumUntil.Equal(testNow.AddDate(1, 0, 0)), "premium until %s", emp.PremiumUntil)
	require.NotNil(t, emp.CurrentPlanID)
	assert.Equal(t, planID, *emp.CurrentPlanID)
	testutil.AssertCount(t, f.db, `SELECT COUNT(*) FROM subscriptions WHERE employer_id = ?`, 1, empID)
}

func TestDuplicateSettlementActivatesOnce(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	testutil.InsertPlan(t, f.db, f.node, testutil.PlanFixture{Slug: "pro", Amount: 150000, Active: true})
	empID := testutil.InsertEmployer(t, f.db, f.node, testutil.EmployerFixture{Slug: "acme", Admins: []string{"owner@acme.io"}})

	checkout, err := f.svc.CreateCheckout(ctx, paymentdomain.CheckoutRequest{PlanID: "pro", EmployerID: &empID})
	require.NoError(t, err)
	payload := notificationPayload(t, checkout.OrderID, "settlement", "", "150000.00")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.svc.HandleNotification(ctx, "midtrans", payload, nil)
			assert.NoError(t, err)
			assert.True(t, res.OK)
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(1), f.sender.sent.Load())

	_, err = f.svc.HandleNotification(ctx, "midtrans", payload, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), f.sender.sent.Load())

	emp := f.employer(t, empID)
	require.NotNil(t, emp.PremiumUntil)
	assert.True(t, emp.PremiumUntil.Equal(testNow.AddDate(0, 1, 0)), "premium until %s", emp.PremiumUntil)
	testutil.AssertCount(t, f.db, `SELECT COUNT(*) FROM subscriptions WHERE employer_id = ?`, 1, empID)
}

func TestCaptureAcceptActivatesThroughLedger(t *testing.T) {
	ctrl := gomock.NewController(t)
	ledger := billingmocks.NewMockService(ctrl)
	f := newFixture(t, ledger)
	ctx := context.Background()
	planID := testutil.InsertPlan(t, f.db, f.node, testutil.PlanFixture{Slug: "pro", Amount: 150000, Active: true})
	empID := testutil.InsertEmployer(t, f.db, f.node, testutil.EmployerFixture{Slug: "acme"})

	checkout, err := f.svc.CreateCheckout(ctx, paymentdomain.CheckoutRequest{PlanID: "pro", EmployerID: &empID})
	require.NoError(t, err)

	ledger.EXPECT().ActivatePremium(gomock.Any(), billingdomain.ActivatePremiumRequest{
		EmployerID: empID,
		PlanID:     &planID,
		Interval:   "month",
		Source:     billingservice.ActivationSourceCheckout,
	}).Return(billingdomain.PremiumResult{PremiumUntil: testNow.AddDate(0, 1, 0)}, nil).Times(1)
	ledger.EXPECT().RecomputeBillingStatus(gomock.Any(), empID).Return(&billingdomain.BillingStatus{EmployerID: empID}, nil).Times(1)

	res, err := f.svc.HandleNotification(ctx, "midtrans", notificationPayload(t, checkout.OrderID, "capture", "accept", "150000.00"), nil)
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, paymentdomain.StatusSettlement, res.Status)
}

func TestSettlementWithoutPlanIntervalSkipsActivation(t *testing.T) {
	ctrl := gomock.NewController(t)
	ledger := billingmocks.NewMockService(ctrl)
	f := newFixture(t, ledger)
	ctx := context.Background()
	planID := testutil.InsertPlan(t, f.db, f.node, testutil.PlanFixture{Slug: "pro", Amount: 150000, Active: true})
	empID := testutil.InsertEmployer(t, f.db, f.node, testutil.EmployerFixture{Slug: "acme"})

	checkout, err := f.svc.CreateCheckout(ctx, paymentdomain.CheckoutRequest{PlanID: "pro", EmployerID: &empID})
	require.NoError(t, err)
	require.NoError(t, f.db.Exec(`UPDATE plans SET billing_interval = '' WHERE id = ?`, planID).Error)

	res, err := f.svc.HandleNotification(ctx, "midtrans", notificationPayload(t, checkout.OrderID, "settlement", "", "150000.00"), nil)
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, paymentdomain.StatusSettlement, f.payment(t, checkout.OrderID).Status)
}

func TestNonSuccessNotificationsDoNotActivate(t *testing.T) {
	ctrl := gomock.NewController(t)
	ledger := billingmocks.NewMockService(ctrl)
	f := newFixture(t, ledger)
	ctx := context.Background()
	testutil.InsertPlan(t, f.db, f.node, testutil.PlanFixture{Slug: "pro", Amount: 150000, Active: true})
	empID := testutil.InsertEmployer(t, f.db, f.node, testutil.EmployerFixture{Slug: "acme"})

	checkout, err := f.svc.CreateCheckout(ctx, paymentdomain.CheckoutRequest{PlanID: "pro", EmployerID: &empID})
	require.NoError(t, err)

	cases := []struct {
		status, fraud, want string
	}{
		{"pending", "", paymentdomain.StatusPending},
		{"capture", "challenge", paymentdomain.StatusChallenge},
		{"deny", "", paymentdomain.StatusDeny},
		{"expire", "", paymentdomain.StatusExpire},
		{"cancel", "", paymentdomain.StatusCancel},
	}
	for _, tc := range cases {
		res, err := f.svc.HandleNotification(ctx, "midtrans", notificationPayload(t, checkout.OrderID, tc.status, tc.fraud, "150000.00"), nil)
		require.NoError(t, err)
		assert.Equal(t, tc.want, res.Status, tc.status)
		assert.Equal(t, tc.want, f.payment(t, checkout.OrderID).Status)
	}
	assert.Nil(t, f.payment(t, checkout.OrderID).SettledAt)
}

func TestTamperedNotificationIsRejected(t *testing.T) {
	ctrl := gomock.NewController(t)
	ledger := billingmocks.NewMockService(ctrl)
	f := newFixture(t, ledger)
	ctx := context.Background()
	testutil.InsertPlan(t, f.db, f.node, testutil.PlanFixture{Slug: "pro", Amount: 150000, Active: true})
	empID := testutil.InsertEmployer(t, f.db, f.node, testutil.EmployerFixture{Slug: "acme"})

	checkout, err := f.svc.CreateCheckout(ctx, paymentdomain.CheckoutRequest{PlanID: "pro", EmployerID: &empID})
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(notificationPayload(t, checkout.OrderID, "settlement", "", "150000.00"), &body))
	body["gross_amount"] = "1.00"
	tampered, err := json.Marshal(body)
	require.NoError(t, err)

	res, err := f.svc.HandleNotification(ctx, "midtrans", tampered, nil)
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Equal(t, paymentdomain.ReasonInvalidSignature, res.Reason)

	p := f.payment(t, checkout.OrderID)
	assert.Equal(t, paymentdomain.StatusPending, p.Status)
	assert.Nil(t, p.SettledAt)
}

func TestNotificationGuards(t *testing.T) {
	f := newFixture(t, billingmocks.NewMockService(gomock.NewController(t)))
	ctx := context.Background()

	res, err := f.svc.HandleNotification(ctx, "midtrans", []byte(`{"order_id":"x"}`), nil)
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.NotificationResult{Reason: paymentdomain.ReasonBadPayload}, res)

	res, err = f.svc.HandleNotification(ctx, "paypal", []byte(`{}`), nil)
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.ReasonUnknownProvider, res.Reason)

	res, err = f.svc.HandleNotification(ctx, "midtrans", notificationPayload(t, "plan-ghost-1", "settlement", "", "10.00"), nil)
	require.NoError(t, err)
	assert.True(t, res.OK)
	testutil.AssertCount(t, f.db, `SELECT COUNT(*) FROM payments`, 0)
}

func TestGetByOrderID(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	testutil.InsertPlan(t, f.db, f.node, testutil.PlanFixture{Slug: "pro", Amount: 150000, Active: true})

	checkout, err := f.svc.CreateCheckout(ctx, paymentdomain.CheckoutRequest{PlanID: "pro"})
	require.NoError(t, err)

	detail, err := f.svc.GetByOrderID(ctx, checkout.OrderID)
	require.NoError(t, err)
	assert.Equal(t, checkout.OrderID, detail.OrderID)
	assert.Equal(t, paymentdomain.StatusPending, detail.Status)
	assert.Equal(t, int64(150000), detail.GrossAmount)
	assert.Nil(t, detail.TransactionID)

	_, err = f.svc.GetByOrderID(ctx, "missing")
	assert.ErrorIs(t, err, paymentdomain.ErrPaymentNotFound)
}

func TestListPaginatesNewestFirst(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	testutil.InsertPlan(t, f.db, f.node, testutil.PlanFixture{Slug: "pro", Amount: 150000, Active: true})
	empID := testutil.InsertEmployer(t, f.db, f.node, testutil.EmployerFixture{Slug: "acme", Name: "Acme"})

	var orders []string
	for i := 0; i < 5; i++ {
		res, err := f.svc.CreateCheckout(ctx, paymentdomain.CheckoutRequest{PlanID: "pro", EmployerID: &empID})
		require.NoError(t, err)
		orders = append(orders, res.OrderID)
		f.clock.Advance(time.Second)
	}

	page, err := f.svc.List(ctx, paymentdomain.ListRequest{Take: 2})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, orders[4], page.Items[0].OrderID)
	assert.Equal(t, orders[3], page.Items[1].OrderID)
	require.NotNil(t, page.Items[0].Plan)
	assert.Equal(t, "pro", page.Items[0].Plan.Slug)
	assert.Equal(t, "month", page.Items[0].Plan.Interval)
	require.NotNil(t, page.Items[0].Employer)
	assert.Equal(t, "Acme", page.Items[0].Employer.DisplayName)
	require.NotNil(t, page.NextCursor)

	var seen []string
	cursor := *page.NextCursor
	for cursor != "" {
		next, err := f.svc.List(ctx, paymentdomain.ListRequest{Take: 2, Cursor: cursor})
		require.NoError(t, err)
		for _, item := range next.Items {
			seen = append(seen, item.OrderID)
		}
		cursor = ""
		if next.NextCursor != nil {
			cursor = *next.NextCursor
		}
	}
	assert.Equal(t, []string{orders[2], orders[1], orders[0]}, seen)

	filtered, err := f.svc.List(ctx, paymentdomain.ListRequest{Status: paymentdomain.StatusSettlement})
	require.NoError(t, err)
	assert.Empty(t, filtered.Items)
	assert.Nil(t, filtered.NextCursor)

	_, err = f.svc.List(ctx, paymentdomain.ListRequest{Cursor: "%%%"})
	assert.ErrorIs(t, err, paymentdomain.ErrInvalidCursor)
}
