package email

import (
	"fmt"
	"strings"

	"github.com/smallbiznis/jobboard/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("providers.email",
	fx.Provide(NewFromConfig),
)

// NewFromConfig selects the delivery provider. Missing credentials yield a
// DisabledProvider so sends fail with ErrNotConfigured instead of blocking startup.
func NewFromConfig(cfg config.Config, log *zap.Logger) Provider {
	log = log.Named("providers.email")
	switch strings.ToLower(cfg.Email.Provider) {
	case "log":
		return NewLogProvider(log)
	case "postmark":
		p, err := NewPostmark(PostmarkConfig{
			ServerToken:  cfg.Email.PostmarkServerToken,
			AccountToken: cfg.Email.PostmarkAccountToken,
		})
		if err != nil {
			log.Warn("postmark disabled", zap.Error(err))
			return DisabledProvider{Reason: err.Error()}
		}
		return p
	case "smtp", "":
		if cfg.Email.SMTPHost == "" {
			log.Warn("smtp disabled: SMTP_HOST is empty")
			return DisabledProvider{Reason: "smtp host is empty"}
		}
		return NewSMTP(SMTPConfig{
			Host:     cfg.Email.SMTPHost,
			Port:     cfg.Email.SMTPPort,
			Username: cfg.Email.SMTPUsername,
			Password: cfg.Email.SMTPPassword,
		})
	default:
		reason := fmt.Sprintf("unknown email provider %q", cfg.Email.Provider)
		log.Warn("email disabled", zap.String("reason", reason))
		return DisabledProvider{Reason: reason}
	}
}
