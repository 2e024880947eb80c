package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/jobboard/internal/billing/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertSubscription(ctx context.Context, db *gorm.DB, sub *domain.Subscription) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO subscriptions (id, employer_id, plan_id, status, current_period_start, current_period_end, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sub.ID,
		sub.EmployerID,
		sub.PlanID,
		sub.Status,
		sub.CurrentPeriodStart,
		sub.CurrentPeriodEnd,
		sub.CreatedAt,
	).Error
}

func (r *repo) ListSubscriptions(ctx context.Context, db *gorm.DB, employerID snowflake.ID) ([]domain.Subscription, error) {
	var items []domain.Subscription
	err := db.WithContext(ctx).Raw(
		`SELECT id, employer_id, plan_id, status, current_period_start, current_period_end, created_at
		 FROM subscriptions
		 WHERE employer_id = ?
		 ORDER BY current_period_start ASC, id ASC`,
		employerID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) WarningExists(ctx context.Context, db *gorm.DB, employerID snowflake.ID, kind domain.WarningKind, warnForDate string, daysAhead int) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM billing_warnings
		 WHERE employer_id = ? AND kind = ? AND warn_for_date = ? AND days_ahead = ?`,
		employerID, kind, warnForDate, daysAhead,
	).Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) InsertWarning(ctx context.Context, db *gorm.DB, w *domain.BillingWarning) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`INSERT INTO billing_warnings (id, employer_id, kind, warn_for_date, days_ahead, recipients, sent_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (employer_id, kind, warn_for_date, days_ahead) DO NOTHING`,
		w.ID,
		w.EmployerID,
		w.Kind,
		w.WarnForDate,
		w.DaysAhead,
		w.Recipients,
		w.SentAt,
	)
	return res.RowsAffected > 0, res.Error
}
