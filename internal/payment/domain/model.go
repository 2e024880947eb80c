package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Payment is one checkout attempt; OrderID is the gateway-facing idempotency key.
type Payment struct {
	ID            snowflake.ID   `json:"id" gorm:"primaryKey"`
	OrderID       string         `json:"orderId" gorm:"type:text;not null;uniqueIndex"`
	Provider      string         `json:"provider" gorm:"type:text;not null"`
	PlanID        snowflake.ID   `json:"planId" gorm:"not null"`
	EmployerID    *snowflake.ID  `json:"employerId,omitempty"`
	UserID        *string        `json:"userId,omitempty"`
	GrossAmount   int64          `json:"grossAmount" gorm:"not null"`
	Currency      string         `json:"currency" gorm:"type:text;not null"`
	Status        string         `json:"status" gorm:"type:text;not null"`
	Method        *string        `json:"method"`
	TransactionID *string        `json:"transactionId"`
	FraudStatus   *string        `json:"fraudStatus,omitempty"`
	Token         *string        `json:"token,omitempty"`
	RedirectURL   *string        `json:"redirectUrl,omitempty"`
	Meta          datatypes.JSON `json:"meta" gorm:"type:jsonb;not null"`
	SettledAt     *time.Time     `json:"settledAt,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

func (Payment) TableName() string { return "payments" }

// Notification is a verified, provider-neutral webhook delivery.
type Notification struct {
	Provider          string
	OrderID           string
	TransactionStatus string
	FraudStatus       string
	PaymentType       string
	TransactionID     string
	// Status is the normalized status stored on the payment.
	Status string
	// Meta is the raw payload recorded as the payment's latest gateway state.
	Meta datatypes.JSON
}

// Succeeded reports whether the delivery confirms captured funds.
func (n Notification) Succeeded() bool {
	return n.Status == StatusSettlement ||
		(n.TransactionStatus == StatusCapture && n.FraudStatus == FraudAccept)
}

type Customer struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

type LineItem struct {
	ID       string
	Name     string
	Price    int64
	Quantity int
}

type Callbacks struct {
	Finish  string
	Pending string
	Error   string
}

type TransactionRequest struct {
	OrderID         string
	GrossAmount     int64
	Currency        string
	Item            LineItem
	Customer        Customer
	EnabledPayments []string
	Callbacks       Callbacks
}

type TransactionResponse struct {
	Token       string
	RedirectURL string
}

type CheckoutRequest struct {
	// PlanID accepts a plan id or slug.
	PlanID          string
	EmployerID      *snowflake.ID
	UserID          string
	Customer        *Customer
	EnabledPayments []string
	Provider        string
}

type CheckoutResult struct {
	Token       string `json:"token"`
	RedirectURL string `json:"redirect_url"`
	OrderID     string `json:"orderId"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
}

type NotificationResult struct {
	OK      bool   `json:"ok"`
	OrderID string `json:"orderId,omitempty"`
	Status  string `json:"status,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

type PaymentDetail struct {
	OrderID       string    `json:"orderId"`
	Status        string    `json:"status"`
	Method        *string   `json:"method"`
	GrossAmount   int64     `json:"grossAmount"`
	Currency      string    `json:"currency"`
	CreatedAt     time.Time `json:"createdAt"`
	TransactionID *string   `json:"transactionId"`
}

type PlanSummary struct {
	ID       string `json:"id"`
	Slug     string `json:"slug"`
	Name     string `json:"name"`
	Interval string `json:"interval"`
}

type EmployerSummary struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Slug        string `json:"slug"`
}

type PaymentListItem struct {
	ID       string           `json:"id"`
	Plan     *PlanSummary     `json:"plan"`
	Employer *EmployerSummary `json:"employer"`
	PaymentDetail
}

// PaymentRow is the joined row behind PaymentListItem.
type PaymentRow struct {
	Payment
	PlanSlug            *string
	PlanName            *string
	PlanInterval        *string
	EmployerSlug        *string
	EmployerDisplayName *string
}

type ListRequest struct {
	Status string
	Cursor string
	Take   int
}

type ListResponse struct {
	Items      []PaymentListItem `json:"items"`
	NextCursor *string           `json:"nextCursor"`
}
