// Package testutil holds fixtures shared by package tests that need the billing schema.
package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dbSeq atomic.Int64

var schema = []string{
	`CREATE TABLE plans (
		id BIGINT PRIMARY KEY,
		slug TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		amount BIGINT NOT NULL DEFAULT 0,
		currency TEXT NOT NULL DEFAULT 'IDR',
		billing_interval TEXT NOT NULL DEFAULT 'month',
		active BOOLEAN NOT NULL DEFAULT TRUE,
		trial_days INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE employers (
		id BIGINT PRIMARY KEY,
		slug TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL,
		billing_status TEXT NOT NULL DEFAULT 'none',
		current_plan_id BIGINT,
		trial_started_at DATETIME,
		trial_ends_at DATETIME,
		premium_until DATETIME,
		onboarding_step TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE employer_admin_users (
		id BIGINT PRIMARY KEY,
		employer_id BIGINT NOT NULL,
		email TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		is_owner BOOLEAN NOT NULL DEFAULT FALSE,
		created_at DATETIME NOT NULL,
		UNIQUE (employer_id, email)
	)`,
	`CREATE TABLE subscriptions (
		id BIGINT PRIMARY KEY,
		employer_id BIGINT NOT NULL,
		plan_id BIGINT,
		status TEXT NOT NULL,
		current_period_start DATETIME NOT NULL,
		current_period_end DATETIME NOT NULL,
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE payments (
		id BIGINT PRIMARY KEY,
		order_id TEXT NOT NULL UNIQUE,
		provider TEXT NOT NULL,
		plan_id BIGINT NOT NULL,
		employer_id BIGINT,
		user_id TEXT,
		gross_amount BIGINT NOT NULL,
		currency TEXT NOT NULL,
		status TEXT NOT NULL,
		method TEXT,
		transaction_id TEXT,
		fraud_status TEXT,
		token TEXT,
		redirect_url TEXT,
		meta TEXT NOT NULL DEFAULT '{}',
		settled_at DATETIME,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE billing_warnings (
		id BIGINT PRIMARY KEY,
		employer_id BIGINT NOT NULL,
		kind TEXT NOT NULL,
		warn_for_date TEXT NOT NULL,
		days_ahead INTEGER NOT NULL,
		recipients TEXT NOT NULL DEFAULT '',
		sent_at DATETIME NOT NULL,
		UNIQUE (employer_id, kind, warn_for_date, days_ahead)
	)`,
}

// OpenDB returns an isolated in-memory sqlite database with the billing schema.
// A single connection serializes access so concurrent tests do not hit SQLITE_LOCKED.
func OpenDB(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_%d_%d?mode=memory&cache=shared", time.Now().UnixNano(), dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return db
}

func NewNode(t testing.TB) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake: %v", err)
	}
	return node
}

// AssertCount fails the test when query does not return want.
func AssertCount(t testing.TB, db *gorm.DB, query string, want int64, args ...any) {
	t.Helper()
	var got int64
	if err := db.Raw(query, args...).Scan(&got).Error; err != nil {
		t.Fatalf("count query failed: %v", err)
	}
	if got != want {
		t.Fatalf("expected %d rows for %q, got %d", want, query, got)
	}
}

type PlanFixture struct {
	Slug      string
	Amount    int64
	Interval  string
	TrialDays int
	Active    bool
}

func InsertPlan(t testing.TB, db *gorm.DB, node *snowflake.Node, p PlanFixture) snowflake.ID {
	t.Helper()
	id := node.Generate()
	if p.Interval == "" {
		p.Interval = "month"
	}
	now := time.Now().UTC()
	err := db.Exec(
		`INSERT INTO plans (id, slug, name, amount, currency, billing_interval, active, trial_days, created_at, updated_at)
		 VALUES (?, ?, ?, ?, 'IDR', ?, ?, ?, ?, ?)`,
		id, p.Slug, p.Slug, p.Amount, p.Interval, p.Active, p.TrialDays, now, now,
	).Error
	if err != nil {
		t.Fatalf("insert plan: %v", err)
	}
	return id
}

type EmployerFixture struct {
	Slug          string
	Name          string
	Status        string
	TrialEndsAt   *time.Time
	PremiumUntil  *time.Time
	CurrentPlanID *snowflake.ID
	Admins        []string
}

func InsertEmployer(t testing.TB, db *gorm.DB, node *snowflake.Node, e EmployerFixture) snowflake.ID {
	t.Helper()
	id := node.Generate()
	if e.Status == "" {
		e.Status = "none"
	}
	if e.Name == "" {
		e.Name = e.Slug
	}
	now := time.Now().UTC()
	err := db.Exec(
		`INSERT INTO employers (id, slug, display_name, billing_status, current_plan_id, trial_ends_at, premium_until, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, e.Slug, e.Name, e.Status, e.CurrentPlanID, e.TrialEndsAt, e.PremiumUntil, now, now,
	).Error
	if err != nil {
		t.Fatalf("insert employer: %v", err)
	}
	for _, email := range e.Admins {
		err := db.Exec(
			`INSERT INTO employer_admin_users (id, employer_id, email, name, is_owner, created_at) VALUES (?, ?, ?, '', FALSE, ?)`,
			node.Generate(), id, email, now,
		).Error
		if err != nil {
			t.Fatalf("insert admin: %v", err)
		}
	}
	return id
}

func TimePtr(t time.Time) *time.Time { return &t }
