package action

import (
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/listen-rs/listen-engine/pkg/pipeline"
)

// ExecutorConfig is the base configuration for all executors.
type ExecutorConfig struct {
	Type       string                 `yaml:"type" json:"type"` // e.g., "redis_notification"
	Enabled    bool                   `yaml:"enabled" json:"enabled"`
	Retry      *RetryConfig           `yaml:"retry,omitempty" json:"retry,omitempty"`
	Parameters map[string]interface{} `yaml:"parameters" json:"parameters"`
}

// RetryConfig defines retry behavior for failed dispatches.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts" json:"max_attempts"`
	Delay       time.Duration `yaml:"delay" json:"delay"`
	MaxDelay    time.Duration `yaml:"max_delay" json:"max_delay"`
	Backoff     string        `yaml:"backoff" json:"backoff"` // "constant", "exponential"
}

// DefaultRetry returns the retry policy for an action kind.
// Swaps get a single attempt: a duplicate order is worse than a missed one.
func DefaultRetry(kind pipeline.ActionKind) RetryConfig {
	switch kind {
	case pipeline.KindNotification:
		return RetryConfig{MaxAttempts: 3, Delay: 200 * time.Millisecond, MaxDelay: 2 * time.Second, Backoff: "exponential"}
	default:
		return RetryConfig{MaxAttempts: 1}
	}
}

func (c RetryConfig) backOff() backoff.BackOff {
	if c.MaxAttempts <= 1 {
		return &backoff.StopBackOff{}
	}
	retries := uint64(c.MaxAttempts - 1)

	if c.Backoff == "constant" {
		return backoff.WithMaxRetries(backoff.NewConstantBackOff(c.Delay), retries)
	}

	exp := backoff.NewExponentialBackOff()
	if c.Delay > 0 {
		exp.InitialInterval = c.Delay
	}
	if c.MaxDelay > 0 {
		exp.MaxInterval = c.MaxDelay
	}
	exp.MaxElapsedTime = 0
	return backoff.WithMaxRetries(exp, retries)
}

// GetParameterString retrieves a string parameter with a default.
func (c *ExecutorConfig) GetParameterString(key string, defaultValue string) string {
	if val, ok := c.Parameters[key]; ok {
		if strVal, ok := val.(string); ok && strVal != "" {
			return strVal
		}
	}
	return defaultValue
}

// GetParameterDuration retrieves a duration parameter, accepting either a
// time.Duration or a string such as "30s".
func (c *ExecutorConfig) GetParameterDuration(key string, defaultValue time.Duration) time.Duration {
	if val, ok := c.Parameters[key]; ok {
		switch v := val.(type) {
		case time.Duration:
			return v
		case string:
			if d, err := time.ParseDuration(v); err == nil {
				return d
			}
		}
	}
	return defaultValue
}
