package server

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	obslogger "github.com/smallbiznis/jobboard/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/jobboard/internal/observability/metrics"
	"go.uber.org/zap"
)

const (
	maxWebhookBody    = 1 << 20
	webhookRetryAfter = "5"
)

func (s *Server) HandleMidtransNotify(c *gin.Context) {
	s.handleWebhook(c, "midtrans")
}

func (s *Server) HandlePaymentWebhook(c *gin.Context) {
	s.handleWebhook(c, strings.ToLower(strings.TrimSpace(c.Param("provider"))))
}

// handleWebhook answers 200 once the delivery has been handed to the payment service, whatever the
// outcome. Throttled deliveries get 429 so the gateway redelivers them later.
func (s *Server) handleWebhook(c *gin.Context, provider string) {
	ctx := c.Request.Context()
	log := obslogger.WithContext(ctx, s.log).With(
		zap.String("provider", provider),
		zap.String("client_ip", c.ClientIP()),
	)

	if s.webhookLimiter != nil && !s.webhookLimiter.Allow(ctx, c.ClientIP()) {
		s.billingMetrics.IncWebhook(provider, obsmetrics.WebhookOutcomeRateLimited)
		s.obsMetrics.RecordRateLimitDenied(ctx, "payment_webhook")
		log.Warn("webhook rate limited")
		c.Header("Retry-After", webhookRetryAfter)
		c.JSON(http.StatusTooManyRequests, gin.H{"ok": false, "error": "rate limited"})
		return
	}

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		log.Warn("webhook body unreadable", zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}

	result, err := s.paymentSvc.HandleNotification(ctx, provider, payload, c.Request.Header)
	switch {
	case err != nil:
		log.Error("webhook handling failed", zap.Error(err))
	case result.Reason != "":
		log.Info("webhook not applied",
			zap.String("reason", result.Reason),
			zap.String("order_id", result.OrderID),
		)
	default:
		log.Debug("webhook applied",
			zap.String("order_id", result.OrderID),
			zap.String("status", result.Status),
		)
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}
