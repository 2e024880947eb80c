package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Interval string

const (
	IntervalMonth Interval = "month"
	IntervalYear  Interval = "year"
)

// NormalizeInterval maps anything that is not "year" to month.
func NormalizeInterval(raw string) Interval {
	if Interval(raw) == IntervalYear {
		return IntervalYear
	}
	return IntervalMonth
}

type Plan struct {
	ID          snowflake.ID `json:"id" gorm:"primaryKey"`
	Slug        string       `json:"slug" gorm:"type:text;not null;uniqueIndex"`
	Name        string       `json:"name" gorm:"type:text;not null"`
	Description string       `json:"description" gorm:"type:text"`
	Amount      int64        `json:"amount" gorm:"not null"`
	Currency    string       `json:"currency" gorm:"type:text;not null;default:IDR"`
	Interval    Interval     `json:"interval" gorm:"column:billing_interval;type:text;not null"`
	Active      bool         `json:"active" gorm:"not null"`
	TrialDays   int          `json:"trialDays" gorm:"not null"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

func (Plan) TableName() string { return "plans" }

// IsFree reports whether the plan can be activated without checkout.
func (p Plan) IsFree() bool { return p.Amount <= 0 }
