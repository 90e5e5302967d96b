package notifymatchedbuyers

import (
	"time"

	"wholesale-crm/internal/common/config"
)

type Config struct {
	Timeout      time.Duration
	EmailEnabled bool
	SMSEnabled   bool
}

func LoadConfig(wc config.WorkerConfig, integrations config.IntegrationConfig) *Config {
	timeout := config.GetDuration(wc.Timeout)
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Config{
		Timeout:      timeout,
		EmailEnabled: integrations.AWS.SES.Enabled,
		SMSEnabled:   integrations.AWS.SNS.Enabled,
	}
}
