package selectfranchisephone

import (
	"fmt"
	"time"

	"leadflow-workers/internal/common/config"
)

type Config struct {
	Enabled       bool          `mapstructure:"enabled"`
	MaxJobsActive int           `mapstructure:"max_jobs_active"`
	Timeout       time.Duration `mapstructure:"timeout"`
	// ClaimByDefault records the assignment in the selecting transaction
	// whenever a leadId is present and the job does not say otherwise.
	ClaimByDefault bool `mapstructure:"claim_by_default"`
	// PublishTimeout bounds the event write for a claimed assignment.
	PublishTimeout time.Duration `mapstructure:"publish_timeout"`
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:       true,
		MaxJobsActive:  10,
		Timeout:        10 * time.Second,
		PublishTimeout: 3 * time.Second,
	}
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.MaxJobsActive <= 0 {
		return fmt.Errorf("max_jobs_active must be positive")
	}
	if c.PublishTimeout <= 0 {
		return fmt.Errorf("publish_timeout must be positive")
	}
	return nil
}

// LoadConfig derives the worker config from the application config.
func LoadConfig(appCfg *config.Config) *Config {
	cfg := DefaultConfig()
	if appCfg == nil {
		return cfg
	}
	w := config.GetWorkerConfig(appCfg, TaskType)
	cfg.Enabled = w.Enabled
	if w.MaxJobsActive > 0 {
		cfg.MaxJobsActive = w.MaxJobsActive
	}
	if w.Timeout > 0 {
		cfg.Timeout = config.GetDuration(w.Timeout)
	}
	cfg.ClaimByDefault = appCfg.Distribution.ClaimByDefault
	return cfg
}
