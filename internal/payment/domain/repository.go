package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type NotificationUpdate struct {
	OrderID       string
	Status        string
	Method        string
	TransactionID string
	FraudStatus   string
	Meta          []byte
	UpdatedAt     time.Time
}

// ListFilter pages newest first; CursorID is the last payment of the previous page.
type ListFilter struct {
	Status   string
	CursorID snowflake.ID
	Limit    int
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, p *Payment) error
	FindByOrderID(ctx context.Context, db *gorm.DB, orderID string) (*Payment, error)
	// ApplyNotification records the latest gateway state; false means no payment has that order id.
	ApplyNotification(ctx context.Context, db *gorm.DB, u NotificationUpdate) (bool, error)
	// MarkSettled sets settled_at only if it is still NULL; true means this caller won the settlement.
	MarkSettled(ctx context.Context, db *gorm.DB, orderID string, at time.Time) (bool, error)
	List(ctx context.Context, db *gorm.DB, f ListFilter) ([]PaymentRow, error)
}
