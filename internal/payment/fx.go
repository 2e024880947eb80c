package payment

import (
	"github.com/smallbiznis/jobboard/internal/config"
	"github.com/smallbiznis/jobboard/internal/payment/adapters"
	"github.com/smallbiznis/jobboard/internal/payment/adapters/midtrans"
	"github.com/smallbiznis/jobboard/internal/payment/adapters/stripe"
	"github.com/smallbiznis/jobboard/internal/payment/domain"
	"github.com/smallbiznis/jobboard/internal/payment/repository"
	paymentservice "github.com/smallbiznis/jobboard/internal/payment/service"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("payment.service",
	fx.Provide(repository.Provide),
	fx.Provide(NewGatewayConfig),
	fx.Provide(func(log *zap.Logger, cfg config.Config, gwCfg domain.GatewayConfig) (*adapters.Registry, error) {
		return adapters.NewRegistry(log.Named("payment.registry"), gwCfg, cfg.PaymentProvider,
			midtrans.NewFactory(),
			stripe.NewFactory(),
		)
	}),
	fx.Provide(paymentservice.NewService),
)

func NewGatewayConfig(cfg config.Config) domain.GatewayConfig {
	return domain.GatewayConfig{
		MidtransServerKey:   cfg.Midtrans.ServerKey,
		MidtransClientKey:   cfg.Midtrans.ClientKey,
		MidtransProduction:  cfg.Midtrans.IsProduction,
		MidtransBaseURL:     cfg.Midtrans.BaseURL,
		StripeSecretKey:     cfg.Stripe.SecretKey,
		StripeWebhookSecret: cfg.Stripe.WebhookSecret,
		StripeCurrency:      cfg.Stripe.Currency,
		Timeout:             cfg.PaymentGatewayTimeout,
	}
}
