package domain

import (
	"context"
	"errors"
)

var ErrPlanNotFound = errors.New("plan_not_found")

type Service interface {
	// GetByIDOrSlug resolves a numeric id first and falls back to slug lookup.
	GetByIDOrSlug(ctx context.Context, ref string) (*Plan, error)
	GetBySlug(ctx context.Context, slug string) (*Plan, error)
	// ListActive returns active plans ordered by amount, then id.
	ListActive(ctx context.Context) ([]Plan, error)
}
