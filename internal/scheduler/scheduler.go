package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/robfig/cron/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"

	billingdomain "github.com/smallbiznis/jobboard/internal/billing/domain"
	"github.com/smallbiznis/jobboard/internal/clock"
	"github.com/smallbiznis/jobboard/internal/config"
	obsmetrics "github.com/smallbiznis/jobboard/internal/observability/metrics"
	"github.com/smallbiznis/jobboard/internal/ratelimit"
)

const (
	JobRecompute = "recompute_billing_status"
	JobWarnings  = "renewal_warnings"
)

var ErrInvalidConfig = errors.New("invalid_scheduler_config")

type Params struct {
	fx.In

	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	BillingSvc billingdomain.Service
	BillingCfg *config.BillingConfigHolder
	Config     Config                     `optional:"true"`
	Locker     *ratelimit.Locker          `optional:"true"`
	Metrics    *obsmetrics.BillingMetrics `optional:"true"`
}

type Scheduler struct {
	log        *zap.Logger
	cfg        Config
	genID      *snowflake.Node
	clock      clock.Clock
	billingSvc billingdomain.Service
	billingCfg *config.BillingConfigHolder
	locker     *ratelimit.Locker
	metrics    *obsmetrics.BillingMetrics

	mu       sync.Mutex
	cron     *cron.Cron
	schedule cronSchedule
	watching bool
}

// cronSchedule is the part of the billing config that shapes the cron entries.
type cronSchedule struct {
	recompute string
	warning   string
	timezone  string
}

func scheduleOf(bc config.BillingConfig) cronSchedule {
	return cronSchedule{recompute: bc.RecomputeCron, warning: bc.WarningCron, timezone: bc.Location().String()}
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.GenID == nil || p.Clock == nil || p.BillingSvc == nil || p.BillingCfg == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:        p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:        p.Config.withDefaults(),
		genID:      p.GenID,
		clock:      p.Clock,
		billingSvc: p.BillingSvc,
		billingCfg: p.BillingCfg,
		locker:     p.Locker,
		metrics:    p.Metrics,
	}, nil
}

// Start registers both cron entries in the configured billing timezone. Later billing config
// reloads that change a cron spec or the timezone rebuild the entries.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return nil
	}

	bc := s.billingCfg.Get()
	c, err := s.newCron(bc)
	if err != nil {
		return err
	}
	c.Start()
	s.cron = c
	s.schedule = scheduleOf(bc)
	if !s.watching {
		s.watching = true
		s.billingCfg.OnChange(s.reschedule)
	}

	s.log.Info("scheduler started",
		zap.String("recompute_cron", bc.RecomputeCron),
		zap.String("warning_cron", bc.WarningCron),
		zap.String("timezone", s.schedule.timezone),
		zap.Bool("distributed_lock", s.locker != nil),
	)
	return nil
}

func (s *Scheduler) newCron(bc config.BillingConfig) (*cron.Cron, error) {
	logger := cronLogger{log: s.log.Sugar()}
	c := cron.New(
		cron.WithLocation(bc.Location()),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)

	if _, err := c.AddFunc(bc.RecomputeCron, func() { s.tick(JobRecompute, s.cfg.RecomputeTimeout, s.RecomputeJob) }); err != nil {
		return nil, fmt.Errorf("schedule %s: %w", JobRecompute, err)
	}
	if _, err := c.AddFunc(bc.WarningCron, func() { s.tick(JobWarnings, s.cfg.WarningTimeout, s.WarningJob) }); err != nil {
		return nil, fmt.Errorf("schedule %s: %w", JobWarnings, err)
	}
	return c, nil
}

// reschedule swaps in a new cron when the schedule changed. Jobs already running on the
// old cron finish in the background.
func (s *Scheduler) reschedule(bc config.BillingConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := scheduleOf(bc)
	if s.cron == nil || next == s.schedule {
		return
	}
	c, err := s.newCron(bc)
	if err != nil {
		s.log.Warn("reschedule failed, keeping previous entries", zap.Error(err))
		return
	}
	c.Start()
	previous := s.cron
	s.cron = c
	s.schedule = next
	previous.Stop()

	s.log.Info("scheduler rescheduled",
		zap.String("recompute_cron", bc.RecomputeCron),
		zap.String("warning_cron", bc.WarningCron),
		zap.String("timezone", next.timezone),
	)
}

// Stop waits for running jobs or ctx, whichever ends first.
func (s *Scheduler) Stop(ctx context.Context) {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()
	if c == nil {
		return
	}
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
	}
}

func (s *Scheduler) tick(name string, timeout time.Duration, fn func(context.Context) error) {
	if err := s.runJob(context.Background(), name, timeout, fn); err != nil {
		s.log.Error("scheduler job failed", zap.String("job", name), zap.Error(err))
	}
}

func (s *Scheduler) runJob(parent context.Context, name string, timeout time.Duration, fn func(ctx context.Context) error) error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	ctx, run := s.startJobRun(ctx, name)
	s.logJobStart(ctx, run)
	s.metrics.IncJobRun(name)

	err := s.withLock(ctx, name, fn)
	s.metrics.ObserveJobDuration(name, time.Since(start))
	if err != nil && run.errorCount == 0 {
		run.IncError()
	}
	s.logJobFinish(ctx, run)
	if err == nil {
		return nil
	}

	s.metrics.IncJobError(name, err)
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		s.metrics.IncJobTimeout(name)
		s.logger(ctx).Warn("job timed out", zap.String("job", name), zap.Duration("timeout", timeout), zap.Error(err))
		return nil
	}
	return fmt.Errorf("%s: %w", name, err)
}

// RunOnce executes both jobs immediately.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	return errors.Join(
		s.runJob(ctx, JobRecompute, s.cfg.RecomputeTimeout, s.RecomputeJob),
		s.runJob(ctx, JobWarnings, s.cfg.WarningTimeout, s.WarningJob),
	)
}

// RecomputeJob sweeps employers whose stored status has lapsed when the sweep is enabled.
func (s *Scheduler) RecomputeJob(ctx context.Context) error {
	log := s.logger(ctx)
	if !s.cfg.RecomputeSweep {
		log.Info("recompute tick", zap.Time("at", s.clock.Now().UTC()))
		return nil
	}
	changed, err := s.billingSvc.RecomputeStale(ctx, s.cfg.RecomputeBatch)
	jobRunFromContext(ctx).AddProcessed(changed)
	if err != nil {
		return err
	}
	log.Info("recompute sweep finished", zap.Int("changed", changed))
	return nil
}

// WarningJob sends every due renewal warning. One failing employer does not stop the rest.
func (s *Scheduler) WarningJob(ctx context.Context) error {
	run := jobRunFromContext(ctx)
	log := s.logger(ctx)

	records, err := s.billingSvc.FindEmployersToWarn(ctx, s.billingCfg.Get().WarningDays)
	if err != nil {
		return err
	}

	sent := 0
	for _, record := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		ok, err := s.billingSvc.SendWarning(ctx, record)
		if err != nil {
			run.IncError()
			log.Error("renewal warning failed",
				zap.String("employer_id", record.Employer.ID.String()),
				zap.String("kind", string(record.Type)),
				zap.Int("days_ahead", record.DaysAhead),
				zap.Error(err),
			)
			continue
		}
		if ok {
			sent++
		}
	}
	run.AddProcessed(sent)
	log.Info("renewal warnings processed", zap.Int("candidates", len(records)), zap.Int("sent", sent))
	return nil
}
