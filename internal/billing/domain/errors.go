package domain

import "errors"

var (
	ErrEmployerNotFound   = errors.New("employer_not_found")
	ErrPlanUnavailable    = errors.New("plan_unavailable")
	ErrInvalidEmployerID  = errors.New("invalid_employer_id")
	ErrNoRecipients       = errors.New("no_admin_recipients")
	ErrInvalidPreviewKind = errors.New("invalid_preview_kind")
	ErrInvalidWarningDays = errors.New("invalid_warning_days")
)
