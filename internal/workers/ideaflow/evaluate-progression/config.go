package evaluateprogression

import (
	"time"

	"ideaflow/internal/common/config"
)

type Config struct {
	Timeout time.Duration
	// MaxRetries caps the retries a failed job is given; 0 leaves the error's own budget.
	MaxRetries int
	// ReportTimeout bounds the complete or fail command sent after execution.
	ReportTimeout time.Duration
}

func NewConfig(wc config.WorkerConfig) *Config {
	timeout := config.GetDuration(wc.Timeout)
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Config{
		Timeout:       timeout,
		MaxRetries:    wc.MaxRetries,
		ReportTimeout: 5 * time.Second,
	}
}
