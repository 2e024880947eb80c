package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	billingdomain "github.com/smallbiznis/jobboard/internal/billing/domain"
	"github.com/smallbiznis/jobboard/internal/config"
	"github.com/smallbiznis/jobboard/internal/observability"
	obsmiddleware "github.com/smallbiznis/jobboard/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/jobboard/internal/observability/metrics"
	obstracing "github.com/smallbiznis/jobboard/internal/observability/tracing"
	paymentdomain "github.com/smallbiznis/jobboard/internal/payment/domain"
	plandomain "github.com/smallbiznis/jobboard/internal/plan/domain"
	"github.com/smallbiznis/jobboard/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(func(*Server) {}),
	fx.Invoke(RunHTTP),
)

func NewEngine(obsCfg observability.Config) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func RunHTTP(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	addr := cfg.HTTPAddr
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine         *gin.Engine
	cfg            config.Config
	log            *zap.Logger
	planSvc        plandomain.Service
	billingSvc     billingdomain.Service
	paymentSvc     paymentdomain.Service
	webhookLimiter ratelimit.Limiter
	obsMetrics     *obsmetrics.Metrics
	billingMetrics *obsmetrics.BillingMetrics
}

type ServerParams struct {
	fx.In

	Gin            *gin.Engine
	Cfg            config.Config
	Log            *zap.Logger
	PlanSvc        plandomain.Service
	BillingSvc     billingdomain.Service
	PaymentSvc     paymentdomain.Service
	WebhookLimiter ratelimit.Limiter          `optional:"true"`
	ObsMetrics     *obsmetrics.Metrics        `optional:"true"`
	BillingMetrics *obsmetrics.BillingMetrics `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:         p.Gin,
		cfg:            p.Cfg,
		log:            p.Log.Named("http.server"),
		planSvc:        p.PlanSvc,
		billingSvc:     p.BillingSvc,
		paymentSvc:     p.PaymentSvc,
		webhookLimiter: p.WebhookLimiter,
		obsMetrics:     p.ObsMetrics,
		billingMetrics: p.BillingMetrics,
	}

	s.registerPaymentRoutes()
	s.registerEmployerRoutes()
	s.registerDevRoutes()

	return s
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerPaymentRoutes() {
	payments := s.engine.Group("/api/payments")

	payments.GET("/plans", s.ListPlans)
	payments.POST("/employers/step3", s.SelectPlan)
	payments.POST("/checkout", s.CreateCheckout)

	// -------- Webhooks --------
	payments.POST("/midtrans/notify", s.HandleMidtransNotify)
	payments.POST("/webhooks/:provider", s.HandlePaymentWebhook)

	payments.GET("", s.ListPayments)
	payments.GET("/:orderId", s.GetPayment)
}

func (s *Server) registerEmployerRoutes() {
	employers := s.engine.Group("/api/employers")

	employers.GET("/:id/billing-status", s.GetBillingStatus)
	employers.POST("/:id/billing/recompute", s.RecomputeBillingStatus)
}

func (s *Server) registerDevRoutes() {
	if s.cfg.IsProduction() {
		return
	}

	dev := s.engine.Group("/dev")
	dev.GET("/mail/try", s.DevTryMail)
}
