package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertSubscription(ctx context.Context, db *gorm.DB, sub *Subscription) error
	ListSubscriptions(ctx context.Context, db *gorm.DB, employerID snowflake.ID) ([]Subscription, error)

	WarningExists(ctx context.Context, db *gorm.DB, employerID snowflake.ID, kind WarningKind, warnForDate string, daysAhead int) (bool, error)
	// InsertWarning returns false when the same warning was already recorded.
	InsertWarning(ctx context.Context, db *gorm.DB, w *BillingWarning) (bool, error)
}
