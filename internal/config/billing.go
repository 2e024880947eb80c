package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// BillingConfig carries the tunables of the renewal scheduler and the ledger.
type BillingConfig struct {
	WarningDays   []int  `mapstructure:"warningDays"`
	RecomputeCron string `mapstructure:"recomputeCron"`
	WarningCron   string `mapstructure:"warningCron"`
	Timezone      string `mapstructure:"timezone"`
}

func DefaultBillingConfig() BillingConfig {
	return BillingConfig{
		WarningDays:   []int{7, 3, 1},
		RecomputeCron: "30 0 * * *",
		WarningCron:   "0 9 * * *",
		Timezone:      "Asia/Jakarta",
	}
}

// Location resolves the configured timezone, falling back to UTC.
func (c BillingConfig) Location() *time.Location {
	if strings.TrimSpace(c.Timezone) == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

type BillingConfigHolder struct {
	current atomic.Value // holds BillingConfig

	mu        sync.Mutex
	listeners []func(BillingConfig)
}

// NewStaticBillingConfigHolder returns a holder that is not backed by a watched file.
func NewStaticBillingConfigHolder(cfg BillingConfig) *BillingConfigHolder {
	holder := &BillingConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewBillingConfigHolder(log *zap.Logger) (*BillingConfigHolder, error) {
	log = log.Named("config.billing")
	v := viper.New()

	v.SetConfigName("billing")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/jobboard")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	v.SetEnvPrefix("JOBBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultBillingConfig()
	v.SetDefault("billing.warningDays", defaults.WarningDays)
	v.SetDefault("billing.recomputeCron", defaults.RecomputeCron)
	v.SetDefault("billing.warningCron", defaults.WarningCron)
	v.SetDefault("billing.timezone", defaults.Timezone)

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileFound = false
	}

	var cfg BillingConfig
	if err := v.UnmarshalKey("billing", &cfg); err != nil {
		return nil, err
	}
	if err := ValidateBillingConfig(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticBillingConfigHolder(cfg)
	if !fileFound {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated BillingConfig
		if err := v.UnmarshalKey("billing", &updated); err != nil {
			log.Warn("billing config reload failed", zap.Error(err))
			return
		}
		if err := ValidateBillingConfig(updated); err != nil {
			log.Warn("invalid billing config ignored", zap.Error(err))
			return
		}
		holder.Store(updated)
		log.Info("billing config reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *BillingConfigHolder) Get() BillingConfig {
	return h.current.Load().(BillingConfig)
}

// Store replaces the current config and notifies listeners in registration order.
func (h *BillingConfigHolder) Store(cfg BillingConfig) {
	h.current.Store(cfg)

	h.mu.Lock()
	listeners := make([]func(BillingConfig), len(h.listeners))
	copy(listeners, h.listeners)
	h.mu.Unlock()
	for _, fn := range listeners {
		fn(cfg)
	}
}

// OnChange registers fn to run after every Store.
func (h *BillingConfigHolder) OnChange(fn func(BillingConfig)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listeners = append(h.listeners, fn)
}

func ValidateBillingConfig(cfg BillingConfig) error {
	if len(cfg.WarningDays) == 0 {
		return errors.New("billing.warningDays cannot be empty")
	}
	for _, d := range cfg.WarningDays {
		if d < 0 {
			return fmt.Errorf("billing.warningDays contains negative value %d", d)
		}
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(cfg.RecomputeCron); err != nil {
		return fmt.Errorf("billing.recomputeCron: %w", err)
	}
	if _, err := parser.Parse(cfg.WarningCron); err != nil {
		return fmt.Errorf("billing.warningCron: %w", err)
	}
	if cfg.Timezone != "" {
		if _, err := time.LoadLocation(cfg.Timezone); err != nil {
			return fmt.Errorf("billing.timezone: %w", err)
		}
	}
	return nil
}
