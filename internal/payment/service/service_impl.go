package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	billingdomain "github.com/smallbiznis/jobboard/internal/billing/domain"
	billingservice "github.com/smallbiznis/jobboard/internal/billing/service"
	"github.com/smallbiznis/jobboard/internal/clock"
	"github.com/smallbiznis/jobboard/internal/config"
	obslogger "github.com/smallbiznis/jobboard/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/jobboard/internal/observability/metrics"
	"github.com/smallbiznis/jobboard/internal/payment/adapters"
	paymentdomain "github.com/smallbiznis/jobboard/internal/payment/domain"
	plandomain "github.com/smallbiznis/jobboard/internal/plan/domain"
	"github.com/smallbiznis/jobboard/pkg/db/pagination"
)

const (
	orderPrefixMax = 28
	orderIDMax     = 50

	defaultGatewayTimeout = 15 * time.Second
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Config     config.Config
	Repo       paymentdomain.Repository
	Registry   *adapters.Registry
	PlanSvc    plandomain.Service
	PlanRepo   plandomain.Repository
	BillingSvc billingdomain.Service

	ObsMetrics     *obsmetrics.Metrics        `optional:"true"`
	BillingMetrics *obsmetrics.BillingMetrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       paymentdomain.Repository
	registry   *adapters.Registry
	planSvc    plandomain.Service
	planRepo   plandomain.Repository
	billingSvc billingdomain.Service

	frontendOrigin string
	gatewayTimeout time.Duration

	obsMetrics     *obsmetrics.Metrics
	billingMetrics *obsmetrics.BillingMetrics
}

func NewService(p Params) paymentdomain.Service {
	timeout := p.Config.PaymentGatewayTimeout
	if timeout <= 0 {
		timeout = defaultGatewayTimeout
	}
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("payment.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		registry:   p.Registry,
		planSvc:    p.PlanSvc,
		planRepo:   p.PlanRepo,
		billingSvc: p.BillingSvc,

		frontendOrigin: strings.TrimRight(p.Config.FrontendOrigin, "/"),
		gatewayTimeout: timeout,

		obsMetrics:     p.ObsMetrics,
		billingMetrics: p.BillingMetrics,
	}
}

func (s *Service) CreateCheckout(ctx context.Context, req paymentdomain.CheckoutRequest) (paymentdomain.CheckoutResult, error) {
	log := obslogger.WithContext(ctx, s.log)

	if strings.TrimSpace(req.PlanID) == "" {
		return paymentdomain.CheckoutResult{}, paymentdomain.ErrInvalidPlan
	}
	plan, err := s.planSvc.GetByIDOrSlug(ctx, req.PlanID)
	if err != nil {
		if errors.Is(err, plandomain.ErrPlanNotFound) {
			return paymentdomain.CheckoutResult{}, paymentdomain.ErrPlanNotFound
		}
		return paymentdomain.CheckoutResult{}, err
	}
	if !plan.Active {
		return paymentdomain.CheckoutResult{}, paymentdomain.ErrPlanNotFound
	}
	if plan.IsFree() {
		return paymentdomain.CheckoutResult{}, paymentdomain.ErrFreePlan
	}

	gateway, err := s.registry.Gateway(req.Provider)
	if err != nil {
		return paymentdomain.CheckoutResult{}, err
	}
	provider := gateway.Provider()

	now := s.clock.Now().UTC()
	orderID := NewOrderID(plan.Slug, now)
	currency := strings.ToUpper(strings.TrimSpace(plan.Currency))
	if currency == "" {
		currency = "IDR"
	}

	txReq := paymentdomain.TransactionRequest{
		OrderID:     orderID,
		GrossAmount: plan.Amount,
		Currency:    currency,
		Item: paymentdomain.LineItem{
			ID:       plan.ID.String(),
			Name:     plan.Name,
			Price:    plan.Amount,
			Quantity: 1,
		},
		Customer:        customerFor(req),
		EnabledPayments: req.EnabledPayments,
		Callbacks: paymentdomain.Callbacks{
			Finish:  s.frontendOrigin + "/payments/finish",
			Pending: s.frontendOrigin + "/payments/pending",
			Error:   s.frontendOrigin + "/payments/error",
		},
	}

	callCtx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	started := time.Now()
	resp, err := gateway.CreateTransaction(callCtx, txReq)
	cancel()
	s.obsMetrics.ObserveGatewayLatency(ctx, provider, time.Since(started))
	if err != nil {
		s.obsMetrics.RecordCheckout(ctx, provider, "failed")
		log.Error("payment gateway createTransaction failed",
			zap.String("provider", provider),
			zap.String("order_id", orderID),
			zap.Error(err),
		)
		var gwErr *paymentdomain.GatewayError
		if errors.As(err, &gwErr) {
			return paymentdomain.CheckoutResult{}, gwErr
		}
		return paymentdomain.CheckoutResult{}, paymentdomain.NewGatewayError(provider, 0, "", nil, err)
	}

	meta, err := json.Marshal(map[string]any{
		"provider":  provider,
		"createdAt": now.Format(time.RFC3339Nano),
	})
	if err != nil {
		return paymentdomain.CheckoutResult{}, err
	}

	payment := &paymentdomain.Payment{
		ID:          s.genID.Generate(),
		OrderID:     orderID,
		Provider:    provider,
		PlanID:      plan.ID,
		EmployerID:  req.EmployerID,
		UserID:      optionalString(req.UserID),
		GrossAmount: plan.Amount,
		Currency:    currency,
		Status:      paymentdomain.StatusPending,
		Token:       optionalString(resp.Token),
		RedirectURL: optionalString(resp.RedirectURL),
		Meta:        datatypes.JSON(meta),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Insert(ctx, s.db, payment); err != nil {
		s.obsMetrics.RecordCheckout(ctx, provider, "persist_failed")
		return paymentdomain.CheckoutResult{}, fmt.Errorf("persist payment %s: %w", orderID, err)
	}

	s.obsMetrics.RecordCheckout(ctx, provider, "created")
	log.Info("checkout created",
		zap.String("provider", provider),
		zap.String("order_id", orderID),
		zap.String("plan", plan.Slug),
		zap.Int64("amount", plan.Amount),
	)

	return paymentdomain.CheckoutResult{
		Token:       resp.Token,
		RedirectURL: resp.RedirectURL,
		OrderID:     orderID,
		Amount:      plan.Amount,
		Currency:    currency,
	}, nil
}

// NewOrderID builds "plan-<slug>" cut to 28 characters followed by "-<unix millis>".
func NewOrderID(planSlug string, now time.Time) string {
	prefix := "plan-" + slug.Make(planSlug)
	if len(prefix) > orderPrefixMax {
		prefix = prefix[:orderPrefixMax]
	}
	id := prefix + "-" + strconv.FormatInt(now.UnixMilli(), 10)
	if len(id) > orderIDMax {
		id = id[:orderIDMax]
	}
	return id
}

func customerFor(req paymentdomain.CheckoutRequest) paymentdomain.Customer {
	var c paymentdomain.Customer
	if req.Customer != nil {
		c = *req.Customer
	}
	if strings.TrimSpace(c.FirstName) == "" {
		c.FirstName = "User"
	}
	if strings.TrimSpace(c.LastName) == "" {
		c.LastName = strings.TrimSpace(req.UserID)
		if c.LastName == "" {
			c.LastName = "guest"
		}
	}
	return c
}

func (s *Service) HandleNotification(ctx context.Context, provider string, payload []byte, headers http.Header) (paymentdomain.NotificationResult, error) {
	log := obslogger.WithContext(ctx, s.log).With(zap.String("provider", provider))

	gateway, err := s.registry.Gateway(provider)
	if err != nil {
		log.Warn("notification for unknown payment provider")
		return paymentdomain.NotificationResult{Reason: paymentdomain.ReasonUnknownProvider}, nil
	}
	provider = gateway.Provider()

	n, err := gateway.ParseNotification(ctx, payload, headers)
	switch {
	case err == nil:
	case errors.Is(err, paymentdomain.ErrInvalidSignature):
		s.billingMetrics.IncWebhook(provider, obsmetrics.WebhookOutcomeInvalidSignature)
		log.Warn("security: payment notification signature mismatch",
			zap.String("event", "invalid_signature"),
			zap.Int("payload_bytes", len(payload)),
		)
		return paymentdomain.NotificationResult{Reason: paymentdomain.ReasonInvalidSignature}, nil
	case errors.Is(err, paymentdomain.ErrEventIgnored):
		return paymentdomain.NotificationResult{OK: true, Reason: paymentdomain.ReasonIgnored}, nil
	default:
		s.billingMetrics.IncWebhook(provider, obsmetrics.WebhookOutcomeBadPayload)
		log.Warn("malformed payment notification", zap.Error(err))
		return paymentdomain.NotificationResult{Reason: paymentdomain.ReasonBadPayload}, nil
	}

	log = log.With(zap.String("order_id", n.OrderID), zap.String("status", n.Status))
	now := s.clock.Now().UTC()

	meta, err := withUpdatedAt(n.Meta, now)
	if err != nil {
		return paymentdomain.NotificationResult{Reason: paymentdomain.ReasonBadPayload}, nil
	}

	found, err := s.repo.ApplyNotification(ctx, s.db, paymentdomain.NotificationUpdate{
		OrderID:       n.OrderID,
		Status:        n.Status,
		Method:        n.PaymentType,
		TransactionID: n.TransactionID,
		FraudStatus:   n.FraudStatus,
		Meta:          meta,
		UpdatedAt:     now,
	})
	if err != nil {
		return paymentdomain.NotificationResult{}, fmt.Errorf("apply notification %s: %w", n.OrderID, err)
	}
	result := paymentdomain.NotificationResult{OK: true, OrderID: n.OrderID, Status: n.Status}
	if !found {
		s.billingMetrics.IncWebhook(provider, obsmetrics.WebhookOutcomeUnknownOrder)
		log.Warn("notification for unknown order")
		return result, nil
	}
	s.obsMetrics.RecordPaymentEvent(ctx, provider, n.Status)

	if !n.Succeeded() {
		s.billingMetrics.IncWebhook(provider, obsmetrics.WebhookOutcomeProcessed)
		return result, nil
	}

	won, err := s.repo.MarkSettled(ctx, s.db, n.OrderID, now)
	if err != nil {
		return result, fmt.Errorf("mark settled %s: %w", n.OrderID, err)
	}
	if !won {
		s.billingMetrics.IncWebhook(provider, obsmetrics.WebhookOutcomeDuplicate)
		log.Info("payment already settled")
		return result, nil
	}

	s.billingMetrics.IncWebhook(provider, obsmetrics.WebhookOutcomeProcessed)
	s.activate(ctx, log, n.OrderID)
	return result, nil
}

// activate grants premium for a freshly settled payment. Failures are logged only.
func (s *Service) activate(ctx context.Context, log *zap.Logger, orderID string) {
	payment, err := s.repo.FindByOrderID(ctx, s.db, orderID)
	if err != nil || payment == nil {
		log.Error("load settled payment failed", zap.Error(err))
		return
	}
	if payment.EmployerID == nil || *payment.EmployerID == 0 {
		log.Warn("settled payment has no employer")
		return
	}
	employerID := *payment.EmployerID

	plan, err := s.planRepo.FindByID(ctx, s.db, payment.PlanID)
	if err != nil {
		log.Error("load plan for settled payment failed", zap.Error(err))
		return
	}
	if plan == nil || strings.TrimSpace(string(plan.Interval)) == "" {
		log.Warn("settled payment plan has no interval, premium not activated",
			zap.String("employer_id", employerID.String()),
			zap.String("plan_id", payment.PlanID.String()),
		)
		return
	}
	interval := string(plandomain.NormalizeInterval(string(plan.Interval)))

	planID := payment.PlanID
	res, err := s.billingSvc.ActivatePremium(ctx, billingdomain.ActivatePremiumRequest{
		EmployerID: employerID,
		PlanID:     &planID,
		Interval:   interval,
		Source:     billingservice.ActivationSourceCheckout,
	})
	if err != nil {
		log.Error("activate premium failed", zap.String("employer_id", employerID.String()), zap.Error(err))
		return
	}
	if _, err := s.billingSvc.RecomputeBillingStatus(ctx, employerID); err != nil {
		log.Error("recompute billing status failed", zap.String("employer_id", employerID.String()), zap.Error(err))
	}
	log.Info("premium activated from payment",
		zap.String("employer_id", employerID.String()),
		zap.Time("premium_until", res.PremiumUntil),
	)
}

func withUpdatedAt(raw []byte, now time.Time) ([]byte, error) {
	meta := map[string]any{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &meta); err != nil {
			return nil, err
		}
	}
	meta["updatedAt"] = now.Format(time.RFC3339Nano)
	return json.Marshal(meta)
}

func (s *Service) GetByOrderID(ctx context.Context, orderID string) (paymentdomain.PaymentDetail, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return paymentdomain.PaymentDetail{}, paymentdomain.ErrPaymentNotFound
	}
	payment, err := s.repo.FindByOrderID(ctx, s.db, orderID)
	if err != nil {
		return paymentdomain.PaymentDetail{}, err
	}
	if payment == nil {
		return paymentdomain.PaymentDetail{}, paymentdomain.ErrPaymentNotFound
	}
	return toDetail(*payment), nil
}

func (s *Service) List(ctx context.Context, req paymentdomain.ListRequest) (paymentdomain.ListResponse, error) {
	take := pagination.ClampTake(req.Take)

	filter := paymentdomain.ListFilter{
		Status: strings.TrimSpace(req.Status),
		Limit:  take,
	}
	cursor, err := pagination.DecodeCursor(req.Cursor)
	if err != nil {
		return paymentdomain.ListResponse{}, paymentdomain.ErrInvalidCursor
	}
	if cursor != nil {
		id, err := snowflake.ParseString(cursor.ID)
		if err != nil {
			return paymentdomain.ListResponse{}, paymentdomain.ErrInvalidCursor
		}
		filter.CursorID = id
	}

	rows, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return paymentdomain.ListResponse{}, err
	}

	items := make([]paymentdomain.PaymentListItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, toListItem(row))
	}

	resp := paymentdomain.ListResponse{Items: items}
	if len(rows) == take {
		last := rows[len(rows)-1]
		next, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        last.ID.String(),
			CreatedAt: last.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			return paymentdomain.ListResponse{}, err
		}
		resp.NextCursor = &next
	}
	return resp, nil
}

func toDetail(p paymentdomain.Payment) paymentdomain.PaymentDetail {
	return paymentdomain.PaymentDetail{
		OrderID:       p.OrderID,
		Status:        p.Status,
		Method:        p.Method,
		GrossAmount:   p.GrossAmount,
		Currency:      p.Currency,
		CreatedAt:     p.CreatedAt,
		TransactionID: p.TransactionID,
	}
}

func toListItem(row paymentdomain.PaymentRow) paymentdomain.PaymentListItem {
	item := paymentdomain.PaymentListItem{
		ID:            row.ID.String(),
		PaymentDetail: toDetail(row.Payment),
	}
	if row.PlanSlug != nil {
		item.Plan = &paymentdomain.PlanSummary{
			ID:       row.PlanID.String(),
			Slug:     *row.PlanSlug,
			Name:     deref(row.PlanName),
			Interval: deref(row.PlanInterval),
		}
	}
	if row.EmployerID != nil && row.EmployerSlug != nil {
		item.Employer = &paymentdomain.EmployerSummary{
			ID:          row.EmployerID.String(),
			DisplayName: deref(row.EmployerDisplayName),
			Slug:        *row.EmployerSlug,
		}
	}
	return item
}

func optionalString(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
