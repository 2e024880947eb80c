package email

import (
	"context"
	"errors"
)

var (
	ErrNotConfigured = errors.New("email_not_configured")
	ErrSendFailed    = errors.New("email_send_failed")
)

// Email is a fully addressed message ready for delivery.
type Email struct {
	From     string
	ReplyTo  string
	To       []string
	Subject  string
	HTMLBody string
	TextBody string
	Tag      string
}

// Provider delivers a single email and returns the provider message id.
type Provider interface {
	Name() string
	Send(ctx context.Context, msg Email) (string, error)
}

// DisabledProvider rejects every send with ErrNotConfigured.
type DisabledProvider struct {
	Reason string
}

func (DisabledProvider) Name() string { return "disabled" }

func (p DisabledProvider) Send(context.Context, Email) (string, error) {
	if p.Reason == "" {
		return "", ErrNotConfigured
	}
	return "", errors.Join(ErrNotConfigured, errors.New(p.Reason))
}
