package repository

import (
	"context"
	"time"

	"github.com/smallbiznis/jobboard/internal/payment/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const paymentColumns = `p.id, p.order_id, p.provider, p.plan_id, p.employer_id, p.user_id,
	p.gross_amount, p.currency, p.status, p.method, p.transaction_id, p.fraud_status,
	p.token, p.redirect_url, p.meta, p.settled_at, p.created_at, p.updated_at`

func (r *repo) Insert(ctx context.Context, db *gorm.DB, p *domain.Payment) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO payments (
			id, order_id, provider, plan_id, employer_id, user_id, gross_amount, currency,
			status, method, transaction_id, fraud_status, token, redirect_url, meta,
			settled_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID,
		p.OrderID,
		p.Provider,
		p.PlanID,
		p.EmployerID,
		p.UserID,
		p.GrossAmount,
		p.Currency,
		p.Status,
		p.Method,
		p.TransactionID,
		p.FraudStatus,
		p.Token,
		p.RedirectURL,
		p.Meta,
		p.SettledAt,
		p.CreatedAt,
		p.UpdatedAt,
	).Error
}

func (r *repo) FindByOrderID(ctx context.Context, db *gorm.DB, orderID string) (*domain.Payment, error) {
	var item domain.Payment
	err := db.WithContext(ctx).Raw(
		`SELECT `+paymentColumns+`
		 FROM payments p
		 WHERE p.order_id = ?
		 LIMIT 1`,
		orderID,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) ApplyNotification(ctx context.Context, db *gorm.DB, u domain.NotificationUpdate) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE payments
		 SET status = ?,
			method = COALESCE(?, method),
			transaction_id = COALESCE(?, transaction_id),
			fraud_status = COALESCE(?, fraud_status),
			meta = ?,
			updated_at = ?
		 WHERE order_id = ?`,
		u.Status,
		nullable(u.Method),
		nullable(u.TransactionID),
		nullable(u.FraudStatus),
		string(u.Meta),
		u.UpdatedAt,
		u.OrderID,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) MarkSettled(ctx context.Context, db *gorm.DB, orderID string, at time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE payments
		 SET settled_at = ?
		 WHERE order_id = ? AND settled_at IS NULL`,
		at,
		orderID,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, f domain.ListFilter) ([]domain.PaymentRow, error) {
	var items []domain.PaymentRow
	err := db.WithContext(ctx).Raw(
		`SELECT `+paymentColumns+`,
			pl.slug AS plan_slug,
			pl.name AS plan_name,
			pl.billing_interval AS plan_interval,
			e.slug AS employer_slug,
			e.display_name AS employer_display_name
		 FROM payments p
		 LEFT JOIN plans pl ON pl.id = p.plan_id
		 LEFT JOIN employers e ON e.id = p.employer_id
		 WHERE (? = '' OR p.status = ?)
		   AND (? = 0 OR EXISTS (
			SELECT 1 FROM payments c
			WHERE c.id = ?
			  AND (p.created_at < c.created_at OR (p.created_at = c.created_at AND p.id < c.id))
		   ))
		 ORDER BY p.created_at DESC, p.id DESC
		 LIMIT ?`,
		f.Status, f.Status,
		int64(f.CursorID), int64(f.CursorID),
		f.Limit,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func nullable(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
