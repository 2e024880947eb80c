// Package notification is the outbound e-mail gateway used by billing flows.
package notification

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/samber/lo"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/smallbiznis/jobboard/internal/clock"
	"github.com/smallbiznis/jobboard/internal/config"
	obslogger "github.com/smallbiznis/jobboard/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/jobboard/internal/observability/metrics"
	"github.com/smallbiznis/jobboard/internal/providers/email"
)

var (
	ErrNotConfigured = errors.New("notification_not_configured")
	ErrDelivery      = errors.New("notification_delivery_failed")
	ErrNoRecipients  = errors.New("notification_no_recipients")
)

const defaultSendTimeout = 20 * time.Second

var emailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)

// LooksLikeEmail is the loose address check shared by the gateway and the directory.
func LooksLikeEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// NormalizeRecipients trims, lower-cases, validates and de-duplicates addresses,
// keeping first-seen order.
func NormalizeRecipients(in []string) []string {
	cleaned := lo.FilterMap(in, func(s string, _ int) (string, bool) {
		s = strings.ToLower(strings.TrimSpace(s))
		return s, LooksLikeEmail(s)
	})
	return lo.Uniq(cleaned)
}

type Message struct {
	To      []string
	Subject string
	HTML    string
	Text    string
	// Kind labels the message for metrics, e.g. "trial_started".
	Kind string
}

type Receipt struct {
	MessageID  string
	Provider   string
	Recipients []string
	SentAt     time.Time
}

//go:generate mockgen -source=notification.go -destination=./mocks/mock_sender.go -package=mocks
type Sender interface {
	Send(ctx context.Context, msg Message) (Receipt, error)
}

type Params struct {
	fx.In

	Provider email.Provider
	Config   config.Config
	Log      *zap.Logger
	Clock    clock.Clock
	Metrics  *obsmetrics.BillingMetrics `optional:"true"`
}

type Gateway struct {
	provider email.Provider
	from     string
	replyTo  string
	timeout  time.Duration
	log      *zap.Logger
	clock    clock.Clock
	metrics  *obsmetrics.BillingMetrics
}

func NewGateway(p Params) *Gateway {
	return &Gateway{
		provider: p.Provider,
		from:     strings.TrimSpace(p.Config.Email.From),
		replyTo:  strings.TrimSpace(p.Config.Email.ReplyTo),
		timeout:  defaultSendTimeout,
		log:      p.Log.Named("notification.gateway"),
		clock:    p.Clock,
		metrics:  p.Metrics,
	}
}

func (g *Gateway) Send(ctx context.Context, msg Message) (Receipt, error) {
	recipients := NormalizeRecipients(msg.To)
	if len(recipients) == 0 {
		return Receipt{}, ErrNoRecipients
	}
	if g.provider == nil || g.from == "" {
		g.record(msg.Kind, "not_configured")
		return Receipt{}, ErrNotConfigured
	}

	sendCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	id, err := g.provider.Send(sendCtx, email.Email{
		From:     g.from,
		ReplyTo:  g.replyTo,
		To:       recipients,
		Subject:  msg.Subject,
		HTMLBody: msg.HTML,
		TextBody: msg.Text,
		Tag:      msg.Kind,
	})
	if err != nil {
		if errors.Is(err, email.ErrNotConfigured) {
			g.record(msg.Kind, "not_configured")
			return Receipt{}, fmt.Errorf("%w: %v", ErrNotConfigured, err)
		}
		g.record(msg.Kind, "failed")
		obslogger.WithContext(ctx, g.log).Warn("email delivery failed",
			zap.String("provider", g.provider.Name()),
			zap.String("kind", msg.Kind),
			zap.Int("recipients", len(recipients)),
			zap.Error(err),
		)
		return Receipt{}, fmt.Errorf("%w: %v", ErrDelivery, err)
	}

	g.record(msg.Kind, "sent")
	return Receipt{
		MessageID:  id,
		Provider:   g.provider.Name(),
		Recipients: recipients,
		SentAt:     g.clock.Now(),
	}, nil
}

func (g *Gateway) record(kind, result string) {
	if kind == "" {
		kind = "generic"
	}
	g.metrics.IncNotification(kind, result)
}
