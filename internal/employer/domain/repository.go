package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Every write returns whether a row matched, so callers can tell unknown employers apart.
type Repository interface {
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Employer, error)
	// ListExpiringBetween returns employers whose trial or premium end falls in [from, to].
	ListExpiringBetween(ctx context.Context, db *gorm.DB, from, to time.Time) ([]Employer, error)
	// ListStatusCandidates pages through employers whose stored status may be stale at now.
	ListStatusCandidates(ctx context.Context, db *gorm.DB, now time.Time, afterID snowflake.ID, limit int) ([]Employer, error)

	StartTrial(ctx context.Context, db *gorm.DB, id, planID snowflake.ID, startedAt, endsAt, now time.Time) (bool, error)
	ActivatePremium(ctx context.Context, db *gorm.DB, id snowflake.ID, planID *snowflake.ID, until, now time.Time) (bool, error)
	ExtendPremium(ctx context.Context, db *gorm.DB, id snowflake.ID, until, now time.Time) (bool, error)
	UpdateBillingStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status BillingStatus, now time.Time) (bool, error)
	SetCurrentPlan(ctx context.Context, db *gorm.DB, id, planID snowflake.ID, now time.Time) (bool, error)
	SetOnboardingStep(ctx context.Context, db *gorm.DB, id snowflake.ID, step string, now time.Time) (bool, error)

	ListAdmins(ctx context.Context, db *gorm.DB, employerID snowflake.ID) ([]AdminUser, error)
	ListAdminsByEmployers(ctx context.Context, db *gorm.DB, employerIDs []snowflake.ID) ([]AdminUser, error)
	InsertAdmin(ctx context.Context, db *gorm.DB, admin *AdminUser) (bool, error)
}
