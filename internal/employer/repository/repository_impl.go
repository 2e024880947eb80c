package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/jobboard/internal/employer/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const employerColumns = `id, slug, display_name, billing_status, current_plan_id, trial_started_at,
	trial_ends_at, premium_until, onboarding_step, created_at, updated_at`

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Employer, error) {
	var item domain.Employer
	err := db.WithContext(ctx).Raw(
		`SELECT `+employerColumns+` FROM employers WHERE id = ? LIMIT 1`,
		id,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) ListExpiringBetween(ctx context.Context, db *gorm.DB, from, to time.Time) ([]domain.Employer, error) {
	var items []domain.Employer
	err := db.WithContext(ctx).Raw(
		`SELECT `+employerColumns+`
		 FROM employers
		 WHERE (trial_ends_at >= ? AND trial_ends_at <= ?)
		    OR (premium_until >= ? AND premium_until <= ?)
		 ORDER BY id ASC`,
		from, to, from, to,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) ListStatusCandidates(ctx context.Context, db *gorm.DB, now time.Time, afterID snowflake.ID, limit int) ([]domain.Employer, error) {
	var items []domain.Employer
	err := db.WithContext(ctx).Raw(
		`SELECT `+employerColumns+`
		 FROM employers
		 WHERE id > ?
		   AND (
		     (billing_status = ? AND (premium_until IS NULL OR premium_until <= ?))
		     OR (billing_status = ? AND (premium_until > ? OR trial_ends_at IS NULL OR trial_ends_at <= ?))
		     OR (billing_status = ? AND (premium_until IS NOT NULL OR trial_ends_at > ?))
		     OR (billing_status = ? AND (premium_until IS NULL OR premium_until > ? OR trial_ends_at > ?))
		   )
		 ORDER BY id ASC
		 LIMIT ?`,
		afterID,
		domain.BillingStatusActive, now,
		domain.BillingStatusTrial, now, now,
		domain.BillingStatusNone, now,
		domain.BillingStatusPastDue, now, now,
		limit,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) StartTrial(ctx context.Context, db *gorm.DB, id, planID snowflake.ID, startedAt, endsAt, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE employers
		 SET current_plan_id = ?, billing_status = ?, trial_started_at = ?, trial_ends_at = ?, updated_at = ?
		 WHERE id = ?`,
		planID, domain.BillingStatusTrial, startedAt, endsAt, now, id,
	)
	return res.RowsAffected > 0, res.Error
}

func (r *repo) ActivatePremium(ctx context.Context, db *gorm.DB, id snowflake.ID, planID *snowflake.ID, until, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE employers
		 SET current_plan_id = ?, billing_status = ?, premium_until = ?,
		     trial_started_at = NULL, trial_ends_at = NULL, updated_at = ?
		 WHERE id = ?`,
		planID, domain.BillingStatusActive, until, now, id,
	)
	return res.RowsAffected > 0, res.Error
}

func (r *repo) ExtendPremium(ctx context.Context, db *gorm.DB, id snowflake.ID, until, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE employers
		 SET billing_status = ?, premium_until = ?, trial_started_at = NULL, trial_ends_at = NULL, updated_at = ?
		 WHERE id = ?`,
		domain.BillingStatusActive, until, now, id,
	)
	return res.RowsAffected > 0, res.Error
}

func (r *repo) UpdateBillingStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status domain.BillingStatus, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE employers SET billing_status = ?, updated_at = ? WHERE id = ?`,
		status, now, id,
	)
	return res.RowsAffected > 0, res.Error
}

func (r *repo) SetCurrentPlan(ctx context.Context, db *gorm.DB, id, planID snowflake.ID, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE employers SET current_plan_id = ?, updated_at = ? WHERE id = ?`,
		planID, now, id,
	)
	return res.RowsAffected > 0, res.Error
}

func (r *repo) SetOnboardingStep(ctx context.Context, db *gorm.DB, id snowflake.ID, step string, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE employers SET onboarding_step = ?, updated_at = ? WHERE id = ?`,
		step, now, id,
	)
	return res.RowsAffected > 0, res.Error
}

func (r *repo) ListAdmins(ctx context.Context, db *gorm.DB, employerID snowflake.ID) ([]domain.AdminUser, error) {
	var items []domain.AdminUser
	err := db.WithContext(ctx).Raw(
		`SELECT id, employer_id, email, name, is_owner, created_at
		 FROM employer_admin_users
		 WHERE employer_id = ?
		 ORDER BY id ASC`,
		employerID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) ListAdminsByEmployers(ctx context.Context, db *gorm.DB, employerIDs []snowflake.ID) ([]domain.AdminUser, error) {
	if len(employerIDs) == 0 {
		return nil, nil
	}
	var items []domain.AdminUser
	err := db.WithContext(ctx).Raw(
		`SELECT id, employer_id, email, name, is_owner, created_at
		 FROM employer_admin_users
		 WHERE employer_id IN ?
		 ORDER BY employer_id ASC, id ASC`,
		employerIDs,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) InsertAdmin(ctx context.Context, db *gorm.DB, admin *domain.AdminUser) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`INSERT INTO employer_admin_users (id, employer_id, email, name, is_owner, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (employer_id, email) DO NOTHING`,
		admin.ID, admin.EmployerID, admin.Email, admin.Name, admin.IsOwner, admin.CreatedAt,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
