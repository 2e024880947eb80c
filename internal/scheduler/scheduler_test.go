package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/alicebob/miniredis/v2"
	"github.com/bwmarrin/snowflake"
	"github.com/golang/mock/gomock"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	billingdomain "github.com/smallbiznis/jobboard/internal/billing/domain"
	billingmocks "github.com/smallbiznis/jobboard/internal/billing/mocks"
	billingrepo "github.com/smallbiznis/jobboard/internal/billing/repository"
	billingservice "github.com/smallbiznis/jobboard/internal/billing/service"
	"github.com/smallbiznis/jobboard/internal/clock"
	"github.com/smallbiznis/jobboard/internal/config"
	employerdomain "github.com/smallbiznis/jobboard/internal/employer/domain"
	employerrepo "github.com/smallbiznis/jobboard/internal/employer/repository"
	"github.com/smallbiznis/jobboard/internal/notification"
	obsmetrics "github.com/smallbiznis/jobboard/internal/observability/metrics"
	planrepo "github.com/smallbiznis/jobboard/internal/plan/repository"
	"github.com/smallbiznis/jobboard/internal/ratelimit"
	"github.com/smallbiznis/jobboard/internal/subscriber"
	"github.com/smallbiznis/jobboard/internal/testutil"
)

var testNow = time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)

type outbox struct {
	mu   sync.Mutex
	sent []notification.Message
}

func (o *outbox) Send(_ context.Context, msg notification.Message) (notification.Receipt, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, msg)
	return notification.Receipt{MessageID: "m", Provider: "test", Recipients: msg.To, SentAt: testNow}, nil
}

func (o *outbox) subjects() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]string, 0, len(o.sent))
	for _, m := range o.sent {
		out = append(out, m.Subject)
	}
	return out
}

func billingConfig() *config.BillingConfigHolder {
	cfg := config.DefaultBillingConfig()
	cfg.Timezone = "UTC"
	return config.NewStaticBillingConfigHolder(cfg)
}

func newScheduler(t *testing.T, billingSvc billingdomain.Service, cfg Config, locker *ratelimit.Locker, metrics *obsmetrics.BillingMetrics) *Scheduler {
	t.Helper()
	s, err := New(Params{
		Log:        zap.NewNop(),
		GenID:      testutil.NewNode(t),
		Clock:      clock.NewFakeClock(testNow),
		BillingSvc: billingSvc,
		BillingCfg: billingConfig(),
		Config:     cfg,
		Locker:     locker,
		Metrics:    metrics,
	})
	require.NoError(t, err)
	return s
}

func newLedger(t *testing.T, db *gorm.DB, node *snowflake.Node, sender notification.Sender) billingdomain.Service {
	t.Helper()
	log := zap.NewNop()
	clk := clock.NewFakeClock(testNow)
	employers := employerrepo.Provide()
	return billingservice.NewService(billingservice.Params{
		DB:           db,
		Log:          log,
		GenID:        node,
		Clock:        clk,
		Config:       config.Config{FrontendOrigin: "https://jobs.example"},
		BillingCfg:   billingConfig(),
		Repo:         billingrepo.Provide(),
		EmployerRepo: employers,
		PlanRepo:     planrepo.Provide(),
		Directory: subscriber.NewDirectory(subscriber.Params{
			DB:    db,
			Log:   log,
			GenID: node,
			Clock: clk,
			Repo:  employers,
		}),
		Sender: sender,
	})
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New(Params{Log: zap.NewNop()})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestRunJobTimeoutDoesNotReturnErrorAndIncrementsTimeout(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := obsmetrics.NewBillingMetricsForTest(registry)
	s := newScheduler(t, billingmocks.NewMockService(gomock.NewController(t)), Config{}, nil, metrics)

	err := s.runJob(context.Background(), "timeout_job", 5*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	require.NoError(t, err)

	labels := map[string]string{"service": "test", "env": "test", "job": "timeout_job"}
	assert.Equal(t, float64(1), getCounterValue(t, registry, "jobboard_scheduler_job_timeouts_total", labels))
	assert.Equal(t, float64(1), getCounterValue(t, registry, "jobboard_scheduler_job_runs_total", labels))

	errorLabels := map[string]string{"service": "test", "env": "test", "job": "timeout_job", "reason": obsmetrics.JobReasonDeadlineExceeded}
	assert.Equal(t, float64(1), getCounterValue(t, registry, "jobboard_scheduler_job_errors_total", errorLabels))
}

func TestRunJobWrapsErrors(t *testing.T) {
	s := newScheduler(t, billingmocks.NewMockService(gomock.NewController(t)), Config{}, nil, nil)
	boom := errors.New("boom")

	err := s.runJob(context.Background(), "failing_job", time.Second, func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "failing_job")
}

func TestRunOnceSendsWarningsOnce(t *testing.T) {
	db := testutil.OpenDB(t)
	node := testutil.NewNode(t)
	sender := &outbox{}
	ledger := newLedger(t, db, node, sender)

	testutil.InsertEmployer(t, db, node, testutil.EmployerFixture{
		Slug: "acme", Name: "Acme", Status: "trial",
		TrialEndsAt: testutil.TimePtr(testNow.AddDate(0, 0, 3)),
		Admins:      []string{"owner@acme.io"},
	})
	testutil.InsertEmployer(t, db, node, testutil.EmployerFixture{
		Slug: "nobody", Status: "active",
		PremiumUntil: testutil.TimePtr(testNow.AddDate(0, 0, 1)),
	})

	s := newScheduler(t, ledger, Config{}, nil, nil)
	require.NoError(t, s.RunOnce(context.Background()))
	require.NoError(t, s.RunOnce(context.Background()))

	subjects := sender.subjects()
	require.Len(t, subjects, 1)
	assert.Contains(t, subjects[0], "Acme")
	testutil.AssertCount(t, db, `SELECT COUNT(*) FROM billing_warnings`, 1)
}

func TestRecomputeSweepDowngradesLapsedEmployers(t *testing.T) {
	db := testutil.OpenDB(t)
	node := testutil.NewNode(t)
	ledger := newLedger(t, db, node, &outbox{})

	lapsed := testutil.InsertEmployer(t, db, node, testutil.EmployerFixture{
		Slug: "lapsed", Status: "active",
		PremiumUntil: testutil.TimePtr(testNow.Add(-time.Hour)),
	})
	current := testutil.InsertEmployer(t, db, node, testutil.EmployerFixture{
		Slug: "current", Status: "trial",
		TrialEndsAt: testutil.TimePtr(testNow.AddDate(0, 0, 20)),
	})

	s := newScheduler(t, ledger, Config{RecomputeSweep: true}, nil, nil)
	require.NoError(t, s.runJob(context.Background(), JobRecompute, time.Minute, s.RecomputeJob))

	repo := employerrepo.Provide()
	got, err := repo.FindByID(context.Background(), db, lapsed)
	require.NoError(t, err)
	assert.Equal(t, employerdomain.BillingStatusPastDue, got.BillingStatus)

	got, err = repo.FindByID(context.Background(), db, current)
	require.NoError(t, err)
	assert.Equal(t, employerdomain.BillingStatusTrial, got.BillingStatus)
}

func TestWarningJobContinuesAfterFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	ledger := billingmocks.NewMockService(ctrl)

	first := billingdomain.WarningRecord{Employer: employerdomain.Employer{ID: 1}, Type: billingdomain.WarningKindTrial, DaysAhead: 3}
	second := billingdomain.WarningRecord{Employer: employerdomain.Employer{ID: 2}, Type: billingdomain.WarningKindPremium, DaysAhead: 1}

	ledger.EXPECT().FindEmployersToWarn(gomock.Any(), []int{7, 3, 1}).Return([]billingdomain.WarningRecord{first, second}, nil)
	ledger.EXPECT().SendWarning(gomock.Any(), first).Return(false, errors.New("smtp down"))
	ledger.EXPECT().SendWarning(gomock.Any(), second).Return(true, nil)

	s := newScheduler(t, ledger, Config{}, nil, nil)
	require.NoError(t, s.runJob(context.Background(), JobWarnings, time.Minute, s.WarningJob))
}

func TestHeldLockSkipsJob(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	locker := ratelimit.NewLocker(client)

	_, ok, err := locker.TryLock(context.Background(), lockKeyPrefix+JobRecompute, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	ctrl := gomock.NewController(t)
	ledger := billingmocks.NewMockService(ctrl)
	ledger.EXPECT().FindEmployersToWarn(gomock.Any(), gomock.Any()).Return(nil, nil).Times(1)

	s := newScheduler(t, ledger, Config{RecomputeSweep: true}, locker, nil)
	require.NoError(t, s.RunOnce(context.Background()))

	// the warning lock is released after its run
	_, ok, err = locker.TryLock(context.Background(), lockKeyPrefix+JobWarnings, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStartRegistersBothEntries(t *testing.T) {
	s := newScheduler(t, billingmocks.NewMockService(gomock.NewController(t)), Config{}, nil, nil)
	require.NoError(t, s.Start())
	require.NoError(t, s.Start())
	assert.Len(t, s.cron.Entries(), 2)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
	assert.Nil(t, s.cron)
}

func TestBillingConfigReloadReschedules(t *testing.T) {
	s := newScheduler(t, billingmocks.NewMockService(gomock.NewController(t)), Config{}, nil, nil)
	require.NoError(t, s.Start())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		s.Stop(ctx)
	})
	first := s.cron

	same := s.billingCfg.Get()
	same.WarningDays = []int{5}
	s.billingCfg.Store(same)
	assert.Same(t, first, s.cron)

	moved := same
	moved.WarningCron = "0 8 * * *"
	moved.Timezone = "Asia/Jakarta"
	s.billingCfg.Store(moved)

	require.NotSame(t, first, s.cron)
	assert.Len(t, s.cron.Entries(), 2)
	assert.Equal(t, "Asia/Jakarta", s.cron.Location().String())
}

func getCounterValue(t *testing.T, registry *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	metricFamilies, err := registry.Gather()
	require.NoError(t, err)
	for _, mf := range metricFamilies {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.Metric {
			if labelsMatch(metric, labels) {
				return metric.GetCounter().GetValue()
			}
		}
	}
	t.Fatalf("metric %s with labels %v not found", name, labels)
	return 0
}

func labelsMatch(metric *dto.Metric, labels map[string]string) bool {
	if len(metric.Label) != len(labels) {
		return false
	}
	for _, label := range metric.Label {
		if labels[label.GetName()] != label.GetValue() {
			return false
		}
	}
	return true
}
