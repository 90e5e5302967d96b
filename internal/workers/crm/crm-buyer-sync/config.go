package crmbuyersync

import (
	"fmt"
	"time"

	"wholesale-crm/internal/common/config"
)

type Config struct {
	Enabled    bool
	Timeout    time.Duration
	LeadSource string
}

func LoadConfig(wc config.WorkerConfig) *Config {
	timeout := config.GetDuration(wc.Timeout)
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Config{
		Enabled:    wc.Enabled,
		Timeout:    timeout,
		LeadSource: "Wholesale CRM",
	}
}

func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	return nil
}
