package resilience

import (
	"time"
)

// FromRetryConfig builds a fixed-delay RetryConfig from config values.
// Non-positive values keep the defaults (3 attempts, 500ms).
func FromRetryConfig(maxAttempts, delayMs int) RetryConfig {
	attempts := 3
	if maxAttempts > 0 {
		attempts = maxAttempts
	}
	delay := 500 * time.Millisecond
	if delayMs > 0 {
		delay = time.Duration(delayMs) * time.Millisecond
	}
	return FixedRetryConfig(attempts, delay)
}

// FromCircuitConfig converts config values to a CircuitBreakerConfig.
func FromCircuitConfig(failureThreshold, resetTimeoutSecs int) CircuitBreakerConfig {
	cfg := DefaultCircuitBreakerConfig()
	if failureThreshold > 0 {
		cfg.FailureThreshold = failureThreshold
	}
	if resetTimeoutSecs > 0 {
		cfg.ResetTimeout = time.Duration(resetTimeoutSecs) * time.Second
	}
	return cfg
}
