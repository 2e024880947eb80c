package repository

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/jobboard/internal/employer/domain"
	"github.com/smallbiznis/jobboard/internal/testutil"
)

func TestActivatePremiumClearsTrial(t *testing.T) {
	db := testutil.OpenDB(t)
	node := testutil.NewNode(t)
	ctx := context.Background()
	r := Provide()

	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	planID := testutil.InsertPlan(t, db, node, testutil.PlanFixture{Slug: "starter", Amount: 99000, Active: true})
	id := testutil.InsertEmployer(t, db, node, testutil.EmployerFixture{Slug: "acme"})

	ok, err := r.StartTrial(ctx, db, id, planID, now, now.AddDate(0, 0, 14), now)
	if err != nil || !ok {
		t.Fatalf("start trial: ok=%v err=%v", ok, err)
	}

	until := now.AddDate(0, 1, 0)
	ok, err = r.ActivatePremium(ctx, db, id, &planID, until, now)
	if err != nil || !ok {
		t.Fatalf("activate: ok=%v err=%v", ok, err)
	}

	got, err := r.FindByID(ctx, db, id)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.BillingStatus != domain.BillingStatusActive {
		t.Fatalf("expected active, got %s", got.BillingStatus)
	}
	if got.TrialEndsAt != nil || got.TrialStartedAt != nil {
		t.Fatalf("expected trial fields cleared, got %v %v", got.TrialStartedAt, got.TrialEndsAt)
	}
	if got.PremiumUntil == nil || !got.PremiumUntil.Equal(until) {
		t.Fatalf("expected premium until %v, got %v", until, got.PremiumUntil)
	}
	if got.CurrentPlanID == nil || *got.CurrentPlanID != planID {
		t.Fatalf("expected current plan %v, got %v", planID, got.CurrentPlanID)
	}
}

func TestWritesReportUnknownEmployer(t *testing.T) {
	db := testutil.OpenDB(t)
	node := testutil.NewNode(t)
	r := Provide()

	ok, err := r.UpdateBillingStatus(context.Background(), db, node.Generate(), domain.BillingStatusTrial, time.Now().UTC())
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if ok {
		t.Fatalf("expected no row matched")
	}
	got, err := r.FindByID(context.Background(), db, node.Generate())
	if err != nil || got != nil {
		t.Fatalf("expected nil employer, got %+v err=%v", got, err)
	}
}

func TestListExpiringBetween(t *testing.T) {
	db := testutil.OpenDB(t)
	node := testutil.NewNode(t)
	r := Provide()

	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	in := testutil.InsertEmployer(t, db, node, testutil.EmployerFixture{Slug: "in", TrialEndsAt: testutil.TimePtr(base.AddDate(0, 0, 3))})
	testutil.InsertEmployer(t, db, node, testutil.EmployerFixture{Slug: "out", PremiumUntil: testutil.TimePtr(base.AddDate(0, 0, 30))})
	both := testutil.InsertEmployer(t, db, node, testutil.EmployerFixture{Slug: "both", PremiumUntil: testutil.TimePtr(base.AddDate(0, 0, 1))})

	items, err := r.ListExpiringBetween(context.Background(), db, base, base.AddDate(0, 0, 7))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 2 || items[0].ID != in || items[1].ID != both {
		t.Fatalf("unexpected employers: %+v", items)
	}
}

func TestInsertAdminIgnoresDuplicates(t *testing.T) {
	db := testutil.OpenDB(t)
	node := testutil.NewNode(t)
	ctx := context.Background()
	r := Provide()

	id := testutil.InsertEmployer(t, db, node, testutil.EmployerFixture{Slug: "acme"})
	admin := &domain.AdminUser{ID: node.Generate(), EmployerID: id, Email: "owner@acme.com", Name: "Owner", CreatedAt: time.Now().UTC()}
	inserted, err := r.InsertAdmin(ctx, db, admin)
	if err != nil || !inserted {
		t.Fatalf("first insert: inserted=%v err=%v", inserted, err)
	}
	admin.ID = node.Generate()
	inserted, err = r.InsertAdmin(ctx, db, admin)
	if err != nil || inserted {
		t.Fatalf("second insert: inserted=%v err=%v", inserted, err)
	}
	testutil.AssertCount(t, db, "SELECT COUNT(1) FROM employer_admin_users WHERE employer_id = ?", 1, id)
}

func TestListStatusCandidates(t *testing.T) {
	db := testutil.OpenDB(t)
	node := testutil.NewNode(t)
	r := Provide()

	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	past := testutil.TimePtr(now.Add(-time.Hour))
	future := testutil.TimePtr(now.Add(time.Hour))

	var want []snowflake.ID
	stale := func(f testutil.EmployerFixture) {
		want = append(want, testutil.InsertEmployer(t, db, node, f))
	}
	stale(testutil.EmployerFixture{Slug: "active-lapsed", Status: "active", PremiumUntil: past})
	stale(testutil.EmployerFixture{Slug: "active-empty", Status: "active"})
	stale(testutil.EmployerFixture{Slug: "trial-over", Status: "trial", TrialEndsAt: past})
	stale(testutil.EmployerFixture{Slug: "trial-paid", Status: "trial", TrialEndsAt: future, PremiumUntil: future})
	stale(testutil.EmployerFixture{Slug: "none-lapsed", Status: "none", PremiumUntil: past})
	stale(testutil.EmployerFixture{Slug: "none-trial", Status: "none", TrialEndsAt: future})
	stale(testutil.EmployerFixture{Slug: "past-due-flag", Status: "past_due"})
	stale(testutil.EmployerFixture{Slug: "past-due-renewed", Status: "past_due", PremiumUntil: future})
	stale(testutil.EmployerFixture{Slug: "past-due-trial", Status: "past_due", PremiumUntil: past, TrialEndsAt: future})

	testutil.InsertEmployer(t, db, node, testutil.EmployerFixture{Slug: "ok-active", Status: "active", PremiumUntil: future})
	testutil.InsertEmployer(t, db, node, testutil.EmployerFixture{Slug: "ok-trial", Status: "trial", TrialEndsAt: future})
	testutil.InsertEmployer(t, db, node, testutil.EmployerFixture{Slug: "ok-none", Status: "none", TrialEndsAt: past})
	testutil.InsertEmployer(t, db, node, testutil.EmployerFixture{Slug: "ok-past-due", Status: "past_due", PremiumUntil: past})

	items, err := r.ListStatusCandidates(context.Background(), db, now, 0, 100)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != len(want) {
		t.Fatalf("expected %d candidates, got %d: %+v", len(want), len(items), items)
	}
	for i, item := range items {
		if item.ID != want[i] {
			t.Fatalf("candidate %d: expected %s, got %s (%s)", i, want[i], item.ID, item.Slug)
		}
	}
}
