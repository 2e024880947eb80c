package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type defaultPlan struct {
	Slug        string
	Name        string
	Description string
	Amount      int64
	Interval    string
	TrialDays   int
}

var defaultPlans = []defaultPlan{
	{Slug: "free", Name: "Free", Description: "Post jobs with basic visibility", Amount: 0, Interval: "month"},
	{Slug: "starter", Name: "Starter", Description: "Monthly premium listing", Amount: 99000, Interval: "month", TrialDays: 14},
	{Slug: "pro-annual", Name: "Pro Annual", Description: "Yearly premium listing", Amount: 999000, Interval: "year"},
}

// EnsureDefaultPlans inserts the starter plan catalog; existing slugs are left untouched.
func EnsureDefaultPlans(db *gorm.DB, genID *snowflake.Node) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}
	if genID == nil {
		return errors.New("seed id generator is required")
	}

	ctx := context.Background()
	now := time.Now().UTC()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, p := range defaultPlans {
			err := tx.Exec(
				`INSERT INTO plans (id, slug, name, description, amount, currency, billing_interval, active, trial_days, created_at, updated_at)
				 VALUES (?, ?, ?, ?, ?, 'IDR', ?, TRUE, ?, ?, ?)
				 ON CONFLICT (slug) DO NOTHING`,
				genID.Generate().Int64(), p.Slug, p.Name, p.Description, p.Amount, p.Interval, p.TrialDays, now, now,
			).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}
