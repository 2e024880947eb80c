package scheduler

import (
	"time"

	"github.com/smallbiznis/jobboard/internal/config"
)

// Config controls job timeouts, batch sizes and cross-instance locking.
type Config struct {
	Enabled          bool
	RecomputeSweep   bool
	RecomputeBatch   int
	RecomputeTimeout time.Duration
	WarningTimeout   time.Duration
	LockTTL          time.Duration
}

func DefaultConfig() Config {
	return Config{
		Enabled:          true,
		RecomputeBatch:   200,
		RecomputeTimeout: 10 * time.Minute,
		WarningTimeout:   10 * time.Minute,
		LockTTL:          10 * time.Minute,
	}
}

func ProvideConfig(cfg config.Config) Config {
	return Config{
		Enabled:        cfg.Scheduler.Enabled,
		RecomputeSweep: cfg.Scheduler.RecomputeSweep,
		LockTTL:        cfg.Scheduler.LockTTL,
	}.withDefaults()
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RecomputeBatch <= 0 {
		c.RecomputeBatch = defaults.RecomputeBatch
	}
	if c.RecomputeTimeout <= 0 {
		c.RecomputeTimeout = defaults.RecomputeTimeout
	}
	if c.WarningTimeout <= 0 {
		c.WarningTimeout = defaults.WarningTimeout
	}
	if c.LockTTL <= 0 {
		c.LockTTL = defaults.LockTTL
	}
	return c
}
