package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type BillingStatus string

const (
	BillingStatusNone    BillingStatus = "none"
	BillingStatusTrial   BillingStatus = "trial"
	BillingStatusActive  BillingStatus = "active"
	BillingStatusPastDue BillingStatus = "past_due"
)

const OnboardingStepVerify = "VERIFY"

type Employer struct {
	ID             snowflake.ID  `json:"id" gorm:"primaryKey"`
	Slug           string        `json:"slug"`
	DisplayName    string        `json:"displayName"`
	BillingStatus  BillingStatus `json:"billingStatus"`
	CurrentPlanID  *snowflake.ID `json:"currentPlanId,omitempty"`
	TrialStartedAt *time.Time    `json:"trialStartedAt,omitempty"`
	TrialEndsAt    *time.Time    `json:"trialEndsAt,omitempty"`
	PremiumUntil   *time.Time    `json:"premiumUntil,omitempty"`
	OnboardingStep string        `json:"onboardingStep"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`
}

func (Employer) TableName() string { return "employers" }

type AdminUser struct {
	ID         snowflake.ID `json:"id" gorm:"primaryKey"`
	EmployerID snowflake.ID `json:"employerId"`
	Email      string       `json:"email"`
	Name       string       `json:"name"`
	IsOwner    bool         `json:"isOwner"`
	CreatedAt  time.Time    `json:"createdAt"`
}

func (AdminUser) TableName() string { return "employer_admin_users" }
