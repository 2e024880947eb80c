package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

//go:generate mockgen -source=service.go -destination=../mocks/mock_service.go -package=mocks
type Service interface {
	StartTrial(ctx context.Context, req StartTrialRequest) (StartTrialResult, error)
	ActivatePremium(ctx context.Context, req ActivatePremiumRequest) (PremiumResult, error)
	ExtendPremium(ctx context.Context, req ExtendPremiumRequest) (PremiumResult, error)
	// RecomputeBillingStatus returns nil without error for an unknown employer.
	RecomputeBillingStatus(ctx context.Context, employerID snowflake.ID) (*BillingStatus, error)
	// RecomputeStale recomputes every employer whose stored status disagrees with its timestamps.
	RecomputeStale(ctx context.Context, batchSize int) (int, error)

	FindEmployersToWarn(ctx context.Context, daysAhead []int) ([]WarningRecord, error)
	// SendWarning delivers one renewal reminder and records it; already-recorded warnings are skipped.
	SendWarning(ctx context.Context, record WarningRecord) (bool, error)

	BillingStatusView(ctx context.Context, employerID snowflake.ID) (StatusView, error)
	SelectPlan(ctx context.Context, req SelectPlanRequest) (SelectPlanResult, error)

	// SendPreviewMail renders one of the billing templates for an employer's admins.
	SendPreviewMail(ctx context.Context, employerID snowflake.ID, kind PreviewMailKind) (PreviewMailResult, error)
}
