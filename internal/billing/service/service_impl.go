package service

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/smallbiznis/jobboard/internal/billing/domain"
	"github.com/smallbiznis/jobboard/internal/clock"
	"github.com/smallbiznis/jobboard/internal/config"
	employerdomain "github.com/smallbiznis/jobboard/internal/employer/domain"
	"github.com/smallbiznis/jobboard/internal/notification"
	obslogger "github.com/smallbiznis/jobboard/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/jobboard/internal/observability/metrics"
	plandomain "github.com/smallbiznis/jobboard/internal/plan/domain"
	"github.com/smallbiznis/jobboard/internal/subscriber"
)

const (
	ActivationSourceManual   = "manual"
	ActivationSourceExtend   = "extend"
	ActivationSourceFreePlan = "free_plan"
	ActivationSourceCheckout = "checkout"
)

const defaultRecomputeBatch = 200

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Config     config.Config
	BillingCfg *config.BillingConfigHolder
	Repo       domain.Repository

	EmployerRepo employerdomain.Repository
	PlanRepo     plandomain.Repository
	Directory    subscriber.Directory
	Sender       notification.Sender
	Metrics      *obsmetrics.BillingMetrics `optional:"true"`
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock

	billingCfg     *config.BillingConfigHolder
	frontendOrigin string
	production     bool

	repo         domain.Repository
	employerRepo employerdomain.Repository
	planRepo     plandomain.Repository
	directory    subscriber.Directory
	sender       notification.Sender
	metrics      *obsmetrics.BillingMetrics
}

func NewService(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("billing.service"),
		genID: p.GenID,
		clock: p.Clock,

		billingCfg:     p.BillingCfg,
		frontendOrigin: p.Config.FrontendOrigin,
		production:     p.Config.IsProduction(),

		repo:         p.Repo,
		employerRepo: p.EmployerRepo,
		planRepo:     p.PlanRepo,
		directory:    p.Directory,
		sender:       p.Sender,
		metrics:      p.Metrics,
	}
}

func (s *Service) now() time.Time {
	return s.clock.Now().UTC()
}

func (s *Service) location() *time.Location {
	if s.billingCfg == nil {
		return time.UTC
	}
	return s.billingCfg.Get().Location()
}

func (s *Service) StartTrial(ctx context.Context, req domain.StartTrialRequest) (domain.StartTrialResult, error) {
	if req.EmployerID == 0 {
		return domain.StartTrialResult{}, domain.ErrInvalidEmployerID
	}

	now := s.now()
	start, end := domain.TrialWindow(req.TrialDays, now)

	ok, err := s.employerRepo.StartTrial(ctx, s.db, req.EmployerID, req.PlanID, start, end, now)
	if err != nil {
		return domain.StartTrialResult{}, err
	}
	if !ok {
		return domain.StartTrialResult{}, domain.ErrEmployerNotFound
	}

	obslogger.WithContext(ctx, s.log).Info("trial started",
		zap.String("employer_id", req.EmployerID.String()),
		zap.String("plan_id", req.PlanID.String()),
		zap.Time("trial_ends_at", end),
	)

	s.notifyTrialStarted(ctx, req.EmployerID, end)
	return domain.StartTrialResult{TrialEndsAt: end}, nil
}

func (s *Service) ActivatePremium(ctx context.Context, req domain.ActivatePremiumRequest) (domain.PremiumResult, error) {
	if req.EmployerID == 0 {
		return domain.PremiumResult{}, domain.ErrInvalidEmployerID
	}
	source := req.Source
	if source == "" {
		source = ActivationSourceManual
	}

	until, err := s.applyPremium(ctx, req.EmployerID, req.Interval, req.BaseFrom, func(emp *employerdomain.Employer) *snowflake.ID {
		return req.PlanID
	})
	if err != nil {
		return domain.PremiumResult{}, err
	}

	s.metrics.IncActivation(source)
	s.notifyPremiumActivated(ctx, req.EmployerID, until)
	return domain.PremiumResult{PremiumUntil: until}, nil
}

func (s *Service) ExtendPremium(ctx context.Context, req domain.ExtendPremiumRequest) (domain.PremiumResult, error) {
	if req.EmployerID == 0 {
		return domain.PremiumResult{}, domain.ErrInvalidEmployerID
	}

	until, err := s.applyPremium(ctx, req.EmployerID, req.Interval, nil, func(emp *employerdomain.Employer) *snowflake.ID {
		return emp.CurrentPlanID
	})
	if err != nil {
		return domain.PremiumResult{}, err
	}

	s.metrics.IncActivation(ActivationSourceExtend)
	s.notifyPremiumActivated(ctx, req.EmployerID, until)
	return domain.PremiumResult{PremiumUntil: until}, nil
}

// applyPremium moves premium_until forward by one interval and appends the matching
// subscription period in a single transaction. A nil planFor result keeps the current plan.
func (s *Service) applyPremium(
	ctx context.Context,
	employerID snowflake.ID,
	interval string,
	baseFrom *time.Time,
	planFor func(emp *employerdomain.Employer) *snowflake.ID,
) (time.Time, error) {
	now := s.now()
	var until time.Time

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		emp, err := s.employerRepo.FindByID(ctx, tx, employerID)
		if err != nil {
			return err
		}
		if emp == nil {
			return domain.ErrEmployerNotFound
		}

		base := domain.PremiumBase(baseFrom, emp.PremiumUntil, now).UTC()
		until = domain.AddInterval(base, interval)
		planID := planFor(emp)

		var ok bool
		if planID != nil && !sameID(planID, emp.CurrentPlanID) {
			ok, err = s.employerRepo.ActivatePremium(ctx, tx, employerID, planID, until, now)
		} else {
			planID = emp.CurrentPlanID
			ok, err = s.employerRepo.ExtendPremium(ctx, tx, employerID, until, now)
		}
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrEmployerNotFound
		}

		return s.repo.InsertSubscription(ctx, tx, &domain.Subscription{
			ID:                 s.genID.Generate(),
			EmployerID:         employerID,
			PlanID:             planID,
			Status:             domain.SubscriptionStatusActive,
			CurrentPeriodStart: base,
			CurrentPeriodEnd:   until,
			CreatedAt:          now,
		})
	})
	if err != nil {
		if !errors.Is(err, domain.ErrEmployerNotFound) {
			obslogger.WithContext(ctx, s.log).Error("premium activation failed",
				zap.String("employer_id", employerID.String()),
				zap.Error(err),
			)
		}
		return time.Time{}, err
	}

	obslogger.WithContext(ctx, s.log).Info("premium activated",
		zap.String("employer_id", employerID.String()),
		zap.Time("premium_until", until),
	)
	return until, nil
}

func sameID(a, b *snowflake.ID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func (s *Service) RecomputeBillingStatus(ctx context.Context, employerID snowflake.ID) (*domain.BillingStatus, error) {
	emp, err := s.employerRepo.FindByID(ctx, s.db, employerID)
	if err != nil {
		return nil, err
	}
	if emp == nil {
		return nil, nil
	}
	return s.recompute(ctx, emp, s.now())
}

func (s *Service) recompute(ctx context.Context, emp *employerdomain.Employer, now time.Time) (*domain.BillingStatus, error) {
	next := domain.DeriveStatus(emp.TrialEndsAt, emp.PremiumUntil, now)
	result := &domain.BillingStatus{EmployerID: emp.ID, Status: next}
	if next == emp.BillingStatus {
		return result, nil
	}

	if _, err := s.employerRepo.UpdateBillingStatus(ctx, s.db, emp.ID, next, now); err != nil {
		return nil, err
	}
	result.Changed = true

	obslogger.WithContext(ctx, s.log).Info("billing status changed",
		zap.String("employer_id", emp.ID.String()),
		zap.String("from", string(emp.BillingStatus)),
		zap.String("to", string(next)),
	)
	return result, nil
}

func (s *Service) RecomputeStale(ctx context.Context, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = defaultRecomputeBatch
	}

	now := s.now()
	var (
		afterID snowflake.ID
		changed int
	)
	for {
		if err := ctx.Err(); err != nil {
			return changed, err
		}
		batch, err := s.employerRepo.ListStatusCandidates(ctx, s.db, now, afterID, batchSize)
		if err != nil {
			return changed, err
		}
		for i := range batch {
			res, err := s.recompute(ctx, &batch[i], now)
			if err != nil {
				return changed, err
			}
			if res.Changed {
				changed++
			}
		}
		if len(batch) < batchSize {
			return changed, nil
		}
		afterID = batch[len(batch)-1].ID
	}
}

func (s *Service) BillingStatusView(ctx context.Context, employerID snowflake.ID) (domain.StatusView, error) {
	emp, err := s.employerRepo.FindByID(ctx, s.db, employerID)
	if err != nil {
		return domain.StatusView{}, err
	}
	if emp == nil {
		return domain.StatusView{}, domain.ErrEmployerNotFound
	}

	now := s.now()
	trialRunning := emp.TrialEndsAt != nil && emp.TrialEndsAt.After(now)
	premiumRunning := emp.PremiumUntil != nil && emp.PremiumUntil.After(now)

	target := emp.PremiumUntil
	if emp.BillingStatus == employerdomain.BillingStatusTrial {
		target = emp.TrialEndsAt
	}

	return domain.StatusView{
		ID:            emp.ID.String(),
		Name:          emp.DisplayName,
		BillingStatus: emp.BillingStatus,
		TrialEndsAt:   emp.TrialEndsAt,
		PremiumUntil:  emp.PremiumUntil,
		Active: (trialRunning && emp.BillingStatus == employerdomain.BillingStatusTrial) ||
			(premiumRunning && emp.BillingStatus == employerdomain.BillingStatusActive),
		TimeLeft: domain.LeftDaysText(target, now, s.location()),
	}, nil
}
