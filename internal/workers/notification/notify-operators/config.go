package notifyoperators

import (
	"fmt"
	"time"

	"leadflow-workers/internal/common/config"
)

type Config struct {
	Enabled       bool          `mapstructure:"enabled"`
	MaxJobsActive int           `mapstructure:"max_jobs_active"`
	Timeout       time.Duration `mapstructure:"timeout"`

	EmailEnabled bool     `mapstructure:"email_enabled"`
	FromEmail    string   `mapstructure:"from_email"`
	Recipients   []string `mapstructure:"recipients"`

	SMSEnabled     bool     `mapstructure:"sms_enabled"`
	PhoneNumbers   []string `mapstructure:"phone_numbers"`
	SMSMinSeverity string   `mapstructure:"sms_min_severity"`

	AWSRegion string `mapstructure:"aws_region"`
}

func DefaultConfig() *Config {
	return &Config{
		Enabled:        true,
		MaxJobsActive:  5,
		Timeout:        10 * time.Second,
		SMSMinSeverity: SeverityHigh,
		AWSRegion:      "us-east-1",
	}
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.EmailEnabled && c.FromEmail == "" {
		return fmt.Errorf("from_email is required when email is enabled")
	}
	if _, ok := severityRank[c.SMSMinSeverity]; !ok {
		return fmt.Errorf("unknown sms min severity %q", c.SMSMinSeverity)
	}
	return nil
}

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

	n := appCfg.Notifications
	cfg.EmailEnabled = n.Email.Enabled
	cfg.FromEmail = n.Email.FromEmail
	cfg.Recipients = n.Email.Recipients
	cfg.SMSEnabled = n.SMS.Enabled
	cfg.PhoneNumbers = n.SMS.PhoneNumbers
	if n.SMS.MinSeverity != "" {
		cfg.SMSMinSeverity = n.SMS.MinSeverity
	}
	if n.AWS.Region != "" {
		cfg.AWSRegion = n.AWS.Region
	}
	return cfg
}
