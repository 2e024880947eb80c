package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/smallbiznis/jobboard/internal/billing/domain"
	employerdomain "github.com/smallbiznis/jobboard/internal/employer/domain"
	obslogger "github.com/smallbiznis/jobboard/internal/observability/logger"
)

// SelectPlan is the onboarding plan step: trial plans start a trial, free plans activate
// premium immediately and paid plans are parked until checkout settles.
func (s *Service) SelectPlan(ctx context.Context, req domain.SelectPlanRequest) (domain.SelectPlanResult, error) {
	if req.EmployerID == 0 {
		return domain.SelectPlanResult{}, domain.ErrInvalidEmployerID
	}

	emp, err := s.employerRepo.FindByID(ctx, s.db, req.EmployerID)
	if err != nil {
		return domain.SelectPlanResult{}, err
	}
	if emp == nil {
		return domain.SelectPlanResult{}, domain.ErrEmployerNotFound
	}

	plan, err := s.planRepo.FindBySlug(ctx, s.db, strings.TrimSpace(req.PlanSlug))
	if err != nil {
		return domain.SelectPlanResult{}, err
	}
	if plan == nil || !plan.Active {
		return domain.SelectPlanResult{}, domain.ErrPlanUnavailable
	}

	if req.Contact != nil {
		if _, err := s.directory.EnsureAdmin(ctx, emp.ID, req.Contact.Email, req.Contact.Name); err != nil {
			return domain.SelectPlanResult{}, err
		}
	}

	result := domain.SelectPlanResult{PlanID: plan.ID}
	switch {
	case plan.TrialDays > 0:
		trial, err := s.StartTrial(ctx, domain.StartTrialRequest{
			EmployerID: emp.ID,
			PlanID:     plan.ID,
			TrialDays:  plan.TrialDays,
		})
		if err != nil {
			return domain.SelectPlanResult{}, err
		}
		result.Mode = domain.SelectPlanModeTrial
		result.TrialEndsAt = &trial.TrialEndsAt

	case plan.IsFree():
		planID := plan.ID
		premium, err := s.ActivatePremium(ctx, domain.ActivatePremiumRequest{
			EmployerID: emp.ID,
			PlanID:     &planID,
			Interval:   string(plan.Interval),
			Source:     ActivationSourceFreePlan,
		})
		if err != nil {
			return domain.SelectPlanResult{}, err
		}
		result.Mode = domain.SelectPlanModeFreeActive
		result.PremiumUntil = &premium.PremiumUntil

	default:
		if _, err := s.employerRepo.SetCurrentPlan(ctx, s.db, emp.ID, plan.ID, s.now()); err != nil {
			return domain.SelectPlanResult{}, err
		}
		result.Mode = domain.SelectPlanModeNeedsPayment
	}

	if _, err := s.employerRepo.SetOnboardingStep(ctx, s.db, emp.ID, employerdomain.OnboardingStepVerify, s.now()); err != nil {
		return domain.SelectPlanResult{}, err
	}

	obslogger.WithContext(ctx, s.log).Info("plan selected",
		zap.String("employer_id", emp.ID.String()),
		zap.String("plan", plan.Slug),
		zap.String("mode", string(result.Mode)),
	)
	return result, nil
}
