package domain

import (
	"errors"
	"fmt"
)

var (
	ErrPlanNotFound      = errors.New("plan_not_found")
	ErrFreePlan          = errors.New("free_plan")
	ErrInvalidPlan       = errors.New("invalid_plan")
	ErrProviderNotFound  = errors.New("payment_provider_not_found")
	ErrInvalidConfig     = errors.New("invalid_provider_config")
	ErrBadPayload        = errors.New("bad_payload")
	ErrInvalidSignature  = errors.New("invalid_signature")
	ErrEventIgnored      = errors.New("event_ignored")
	ErrPaymentNotFound   = errors.New("payment_not_found")
	ErrInvalidCursor     = errors.New("invalid_cursor")
	ErrInvalidEmployerID = errors.New("invalid_employer_id")
)

const (
	ReasonBadPayload       = "BAD_PAYLOAD"
	ReasonInvalidSignature = "INVALID_SIGNATURE"
	ReasonUnknownProvider  = "UNKNOWN_PROVIDER"
	ReasonIgnored          = "IGNORED"
)

const defaultGatewayMessage = "payment gateway createTransaction failed"

// GatewayError carries a message that is safe to show to the buyer.
type GatewayError struct {
	Provider string
	Message  string
	Status   int
	Err      error
}

func (e *GatewayError) Error() string {
	if e.Message == "" {
		return defaultGatewayMessage
	}
	return e.Message
}

func (e *GatewayError) Unwrap() error { return e.Err }

// NewGatewayError picks statusMessage, then the first of errorMessages, then a generic message.
func NewGatewayError(provider string, status int, statusMessage string, errorMessages []string, cause error) *GatewayError {
	msg := statusMessage
	if msg == "" && len(errorMessages) > 0 {
		msg = errorMessages[0]
	}
	if msg == "" {
		msg = defaultGatewayMessage
	}
	if cause == nil {
		cause = fmt.Errorf("%s: http %d", provider, status)
	}
	return &GatewayError{Provider: provider, Message: msg, Status: status, Err: cause}
}
