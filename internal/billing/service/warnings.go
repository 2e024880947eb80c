package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/smallbiznis/jobboard/internal/billing/domain"
	employerdomain "github.com/smallbiznis/jobboard/internal/employer/domain"
	obslogger "github.com/smallbiznis/jobboard/internal/observability/logger"
)

var defaultWarningDays = []int{7, 3, 1}

// FindEmployersToWarn uses the default days when daysAhead is empty. A list without any
// non-negative day is rejected.
func (s *Service) FindEmployersToWarn(ctx context.Context, daysAhead []int) ([]domain.WarningRecord, error) {
	days := defaultWarningDays
	if len(daysAhead) > 0 {
		days = lo.Uniq(lo.Filter(daysAhead, func(d int, _ int) bool { return d >= 0 }))
		if len(days) == 0 {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidWarningDays, daysAhead)
		}
	}
	horizon := max(lo.Max(days), 1)

	loc := s.location()
	now := s.now()
	from := domain.StartOfDay(now, loc)
	to := domain.EndOfDay(from.AddDate(0, 0, horizon), loc)

	candidates, err := s.employerRepo.ListExpiringBetween(ctx, s.db, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	ids := lo.Map(candidates, func(e employerdomain.Employer, _ int) snowflake.ID { return e.ID })
	emails, err := s.directory.GetAdminEmailsByEmployer(ctx, ids)
	if err != nil {
		return nil, err
	}

	var out []domain.WarningRecord
	for _, emp := range candidates {
		for _, target := range []struct {
			kind domain.WarningKind
			at   *time.Time
		}{
			{domain.WarningKindTrial, emp.TrialEndsAt},
			{domain.WarningKindPremium, emp.PremiumUntil},
		} {
			if target.at == nil || target.at.Before(from) || target.at.After(to) {
				continue
			}
			distance := domain.CalendarDaysBetween(now, *target.at, loc)
			if !lo.Contains(days, distance) {
				continue
			}
			out = append(out, domain.WarningRecord{
				Employer:    emp,
				Type:        target.kind,
				WarnForDate: *target.at,
				DaysAhead:   distance,
				AdminEmails: emails[emp.ID],
			})
		}
	}
	return out, nil
}

func (s *Service) SendWarning(ctx context.Context, record domain.WarningRecord) (bool, error) {
	kind := string(record.Type)
	log := obslogger.WithContext(ctx, s.log).With(
		zap.String("employer_id", record.Employer.ID.String()),
		zap.String("kind", kind),
		zap.Int("days_ahead", record.DaysAhead),
	)

	if len(record.AdminEmails) == 0 {
		s.metrics.IncWarning(kind, "no_recipients")
		log.Warn("renewal warning skipped, no admin recipients")
		return false, nil
	}

	day := record.WarnForDay(s.location())
	sent, err := s.repo.WarningExists(ctx, s.db, record.Employer.ID, record.Type, day, record.DaysAhead)
	if err != nil {
		return false, err
	}
	if sent {
		s.metrics.IncWarning(kind, "duplicate")
		log.Debug("renewal warning already sent", zap.String("warn_for_date", day))
		return false, nil
	}

	mail, err := s.renewalWarningMail(record.Employer.DisplayName, record.Type, record.WarnForDate)
	if err != nil {
		return false, err
	}
	receipt, err := s.send(ctx, record.AdminEmails, mail)
	if err != nil {
		s.metrics.IncWarning(kind, "failed")
		return false, err
	}

	inserted, err := s.repo.InsertWarning(ctx, s.db, &domain.BillingWarning{
		ID:          s.genID.Generate(),
		EmployerID:  record.Employer.ID,
		Kind:        record.Type,
		WarnForDate: day,
		DaysAhead:   record.DaysAhead,
		Recipients:  strings.Join(receipt.Recipients, ","),
		SentAt:      s.now(),
	})
	if err != nil {
		// Mail is already out; a missing marker only risks one repeat on the next tick.
		log.Error("record renewal warning failed", zap.Error(err))
	} else if !inserted {
		log.Warn("renewal warning recorded concurrently", zap.String("warn_for_date", day))
	}

	s.metrics.IncWarning(kind, "sent")
	log.Info("renewal warning sent",
		zap.String("warn_for_date", day),
		zap.Int("recipients", len(receipt.Recipients)),
	)
	return true, nil
}
