package domain

import (
	"fmt"
	"time"

	employerdomain "github.com/smallbiznis/jobboard/internal/employer/domain"
	plandomain "github.com/smallbiznis/jobboard/internal/plan/domain"
)

// AddInterval advances t by one calendar year for "year" and one calendar month otherwise.
// Month overflow follows time.AddDate normalization (Jan 31 + 1 month = Mar 3 or Mar 2).
func AddInterval(t time.Time, interval string) time.Time {
	if plandomain.NormalizeInterval(interval) == plandomain.IntervalYear {
		return t.AddDate(1, 0, 0)
	}
	return t.AddDate(0, 1, 0)
}

// TrialWindow returns [from, from+days]; negative days collapse to a zero-length window.
func TrialWindow(days int, from time.Time) (time.Time, time.Time) {
	if days < 0 {
		days = 0
	}
	return from, from.AddDate(0, 0, days)
}

func StartOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

func EndOfDay(t time.Time, loc *time.Location) time.Time {
	return StartOfDay(t, loc).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// CalendarDaysBetween counts day boundaries from `from` to `to` in loc, ignoring time of day.
func CalendarDaysBetween(from, to time.Time, loc *time.Location) int {
	a := StartOfDay(from, loc)
	b := StartOfDay(to, loc)
	// Dates are rebuilt in UTC so DST transitions in loc do not skew the division.
	ua := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	ub := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}

// LeftDaysText renders the remaining time until target as "-", "expired", "today", "1 day" or "N days".
func LeftDaysText(target *time.Time, now time.Time, loc *time.Location) string {
	if target == nil {
		return "-"
	}
	days := CalendarDaysBetween(now, *target, loc)
	switch {
	case days < 0:
		return "expired"
	case days == 0:
		return "today"
	case days == 1:
		return "1 day"
	default:
		return fmt.Sprintf("%d days", days)
	}
}

// DeriveStatus is the single source of truth for billing_status.
func DeriveStatus(trialEndsAt, premiumUntil *time.Time, now time.Time) employerdomain.BillingStatus {
	switch {
	case premiumUntil != nil && premiumUntil.After(now):
		return employerdomain.BillingStatusActive
	case trialEndsAt != nil && trialEndsAt.After(now):
		return employerdomain.BillingStatusTrial
	case premiumUntil != nil:
		return employerdomain.BillingStatusPastDue
	default:
		return employerdomain.BillingStatusNone
	}
}

// PremiumBase picks the start of the next premium period: an explicit base wins,
// then a still-running premium_until, then now.
func PremiumBase(baseFrom, premiumUntil *time.Time, now time.Time) time.Time {
	if baseFrom != nil {
		return *baseFrom
	}
	if premiumUntil != nil && premiumUntil.After(now) {
		return *premiumUntil
	}
	return now
}
