package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/jobboard/internal/plan/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB   *gorm.DB
	Log  *zap.Logger
	Repo domain.Repository
}

type Service struct {
	db   *gorm.DB
	log  *zap.Logger
	repo domain.Repository
}

func NewService(p Params) domain.Service {
	return &Service{
		db:   p.DB,
		log:  p.Log.Named("plan.service"),
		repo: p.Repo,
	}
}

func (s *Service) GetByIDOrSlug(ctx context.Context, ref string) (*domain.Plan, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, domain.ErrPlanNotFound
	}
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		item, err := s.repo.FindByID(ctx, s.db, snowflake.ID(id))
		if err != nil {
			return nil, err
		}
		if item != nil {
			return item, nil
		}
	}
	return s.GetBySlug(ctx, ref)
}

func (s *Service) GetBySlug(ctx context.Context, slug string) (*domain.Plan, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, domain.ErrPlanNotFound
	}
	item, err := s.repo.FindBySlug(ctx, s.db, slug)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrPlanNotFound
	}
	return item, nil
}

func (s *Service) ListActive(ctx context.Context) ([]domain.Plan, error) {
	return s.repo.ListActive(ctx, s.db)
}
