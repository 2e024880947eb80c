package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	employerdomain "github.com/smallbiznis/jobboard/internal/employer/domain"
)

const SubscriptionStatusActive = "active"

// Subscription is an append-only record of one paid or free premium period.
type Subscription struct {
	ID                 snowflake.ID  `json:"id" gorm:"primaryKey"`
	EmployerID         snowflake.ID  `json:"employerId"`
	PlanID             *snowflake.ID `json:"planId,omitempty"`
	Status             string        `json:"status"`
	CurrentPeriodStart time.Time     `json:"currentPeriodStart"`
	CurrentPeriodEnd   time.Time     `json:"currentPeriodEnd"`
	CreatedAt          time.Time     `json:"createdAt"`
}

func (Subscription) TableName() string { return "subscriptions" }

type WarningKind string

const (
	WarningKindTrial   WarningKind = "trial"
	WarningKindPremium WarningKind = "premium"
)

// WarningRecord describes one upcoming expiry that falls on a configured warning horizon.
type WarningRecord struct {
	Employer    employerdomain.Employer `json:"employer"`
	Type        WarningKind             `json:"type"`
	WarnForDate time.Time               `json:"warnForDate"`
	DaysAhead   int                     `json:"daysAhead"`
	AdminEmails []string                `json:"adminEmails"`
}

// WarnForDay is the calendar date of WarnForDate in loc, formatted YYYY-MM-DD.
func (w WarningRecord) WarnForDay(loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return w.WarnForDate.In(loc).Format("2006-01-02")
}

// BillingWarning marks a renewal warning that was delivered.
type BillingWarning struct {
	ID          snowflake.ID
	EmployerID  snowflake.ID
	Kind        WarningKind
	WarnForDate string
	DaysAhead   int
	Recipients  string
	SentAt      time.Time
}

func (BillingWarning) TableName() string { return "billing_warnings" }

type BillingStatus struct {
	EmployerID snowflake.ID                 `json:"employerId"`
	Status     employerdomain.BillingStatus `json:"status"`
	Changed    bool                         `json:"changed"`
}

type StatusView struct {
	ID            string                       `json:"id"`
	Name          string                       `json:"name"`
	BillingStatus employerdomain.BillingStatus `json:"billingStatus"`
	TrialEndsAt   *time.Time                   `json:"trialEndsAt"`
	PremiumUntil  *time.Time                   `json:"premiumUntil"`
	Active        bool                         `json:"active"`
	TimeLeft      string                       `json:"timeLeft"`
}

type StartTrialRequest struct {
	EmployerID snowflake.ID
	PlanID     snowflake.ID
	TrialDays  int
}

type StartTrialResult struct {
	TrialEndsAt time.Time `json:"trialEndsAt"`
}

type ActivatePremiumRequest struct {
	EmployerID snowflake.ID
	PlanID     *snowflake.ID
	Interval   string
	// BaseFrom overrides the computed period start.
	BaseFrom *time.Time
	// Source labels the activation for metrics: "checkout", "free_plan", "manual".
	Source string
}

type ExtendPremiumRequest struct {
	EmployerID snowflake.ID
	Interval   string
}

type PremiumResult struct {
	PremiumUntil time.Time `json:"premiumUntil"`
}

type Contact struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type SelectPlanRequest struct {
	EmployerID snowflake.ID
	PlanSlug   string
	Contact    *Contact
}

type SelectPlanMode string

const (
	SelectPlanModeTrial        SelectPlanMode = "trial"
	SelectPlanModeFreeActive   SelectPlanMode = "free_active"
	SelectPlanModeNeedsPayment SelectPlanMode = "needs_payment"
)

type SelectPlanResult struct {
	Mode         SelectPlanMode `json:"mode"`
	TrialEndsAt  *time.Time     `json:"trialEndsAt,omitempty"`
	PremiumUntil *time.Time     `json:"premiumUntil,omitempty"`
	PlanID       snowflake.ID   `json:"planId"`
}

type PreviewMailKind string

const (
	PreviewMailTrial   PreviewMailKind = "trial"
	PreviewMailPaid    PreviewMailKind = "paid"
	PreviewMailWarn3   PreviewMailKind = "warn3"
	PreviewMailWarn1   PreviewMailKind = "warn1"
	PreviewMailExpired PreviewMailKind = "expired"
)

type PreviewMailResult struct {
	SentTo  []string `json:"sentTo"`
	Subject string   `json:"subject"`
}
