package circuitbreaker

import "time"

// DefaultConfig trips after five consecutive failures and allows a single
// recovery probe once the open window elapses.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		OpenTimeout:      60 * time.Second,
		MaxHalfOpenCalls: 1,
	}
}
