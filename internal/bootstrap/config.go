// Package bootstrap loads configuration from the environment and wires the
// engine's components into a runnable server.
package bootstrap

import (
	"fmt"
	"time"

	"github.com/LerianStudio/payment-engine/pkg/env"
)

// ServiceName identifies this process in telemetry resources.
const ServiceName = "payment-engine"

// Config carries every tunable of the service. Fields are overlaid from the
// environment onto the defaults, so an empty environment yields a working
// local configuration.
type Config struct {
	EnvName       string `env:"ENV_NAME"`
	Version       string `env:"VERSION"`
	ServerAddress string `env:"SERVER_ADDRESS"`
	LogLevel      string `env:"LOG_LEVEL"`

	// Risk scorer.
	RiskFailureRate    float64       `env:"RISK_FAILURE_RATE"`
	RiskFraudThreshold float64       `env:"RISK_FRAUD_THRESHOLD"`
	RiskHighAmount     int64         `env:"RISK_HIGH_AMOUNT"`
	RiskMediumAmount   int64         `env:"RISK_MEDIUM_AMOUNT"`
	RiskLatencyMin     time.Duration `env:"RISK_LATENCY_MIN"`
	RiskLatencyMax     time.Duration `env:"RISK_LATENCY_MAX"`

	// Circuit breaker guarding the risk scorer.
	BreakerFailureThreshold uint32        `env:"CIRCUIT_BREAKER_FAILURE_THRESHOLD"`
	BreakerOpenTimeout      time.Duration `env:"CIRCUIT_BREAKER_OPEN_TIMEOUT"`

	// Settlement pool.
	SettlementWorkers       int           `env:"SETTLEMENT_WORKERS"`
	SettlementQueueSize     int           `env:"SETTLEMENT_QUEUE_SIZE"`
	SettlementMaxAttempts   int           `env:"SETTLEMENT_MAX_ATTEMPTS"`
	SettlementSuccessRate   float64       `env:"SETTLEMENT_SUCCESS_RATE"`
	SettlementBaseDelay     time.Duration `env:"SETTLEMENT_BASE_DELAY"`
	SettlementProcessingMin time.Duration `env:"SETTLEMENT_PROCESSING_MIN"`
	SettlementProcessingMax time.Duration `env:"SETTLEMENT_PROCESSING_MAX"`

	// Query surface.
	ListDefaultLimit int `env:"LIST_DEFAULT_LIMIT"`
	ListMaxLimit     int `env:"LIST_MAX_LIMIT"`

	// Telemetry.
	EnableTelemetry    bool   `env:"ENABLE_TELEMETRY"`
	OtelServiceName    string `env:"OTEL_RESOURCE_SERVICE_NAME"`
	OtelServiceVersion string `env:"OTEL_RESOURCE_SERVICE_VERSION"`
	OtelDeploymentEnv  string `env:"OTEL_RESOURCE_DEPLOYMENT_ENV"`
	OtelEndpoint       string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OtelLibraryName    string `env:"OTEL_LIBRARY_NAME"`
}

// defaultConfig returns the local development defaults.
func defaultConfig() *Config {
	return &Config{
		EnvName:       "local",
		Version:       "1.0.0",
		ServerAddress: ":8000",
		LogLevel:      "info",

		RiskFailureRate:    0.05,
		RiskFraudThreshold: 0.8,
		RiskHighAmount:     100000,
		RiskMediumAmount:   50000,
		RiskLatencyMin:     100 * time.Millisecond,
		RiskLatencyMax:     300 * time.Millisecond,

		BreakerFailureThreshold: 5,
		BreakerOpenTimeout:      60 * time.Second,

		SettlementWorkers:       16,
		SettlementQueueSize:     256,
		SettlementMaxAttempts:   3,
		SettlementSuccessRate:   0.95,
		SettlementBaseDelay:     time.Second,
		SettlementProcessingMin: 2 * time.Second,
		SettlementProcessingMax: 8 * time.Second,

		ListDefaultLimit: 10,
		ListMaxLimit:     100,

		EnableTelemetry:    false,
		OtelServiceName:    ServiceName,
		OtelServiceVersion: "1.0.0",
		OtelDeploymentEnv:  "local",
		OtelEndpoint:       "localhost:4317",
		OtelLibraryName:    "github.com/LerianStudio/payment-engine",
	}
}

// NewConfig builds the configuration: defaults first, then environment
// overrides. Unparsable variables fail loudly so typos surface at startup.
func NewConfig() (*Config, error) {
	cfg := defaultConfig()

	if err := env.SetConfigFromEnvVars(cfg); err != nil {
		return nil, fmt.Errorf("load config from environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.RiskFailureRate < 0 || c.RiskFailureRate > 1 {
		return fmt.Errorf("RISK_FAILURE_RATE must be in [0,1], got %v", c.RiskFailureRate)
	}

	if c.SettlementSuccessRate < 0 || c.SettlementSuccessRate > 1 {
		return fmt.Errorf("SETTLEMENT_SUCCESS_RATE must be in [0,1], got %v", c.SettlementSuccessRate)
	}

	if c.RiskFraudThreshold <= 0 || c.RiskFraudThreshold > 1 {
		return fmt.Errorf("RISK_FRAUD_THRESHOLD must be in (0,1], got %v", c.RiskFraudThreshold)
	}

	if c.RiskLatencyMax < c.RiskLatencyMin {
		return fmt.Errorf("RISK_LATENCY_MAX (%v) is below RISK_LATENCY_MIN (%v)", c.RiskLatencyMax, c.RiskLatencyMin)
	}

	if c.SettlementProcessingMax < c.SettlementProcessingMin {
		return fmt.Errorf("SETTLEMENT_PROCESSING_MAX (%v) is below SETTLEMENT_PROCESSING_MIN (%v)",
			c.SettlementProcessingMax, c.SettlementProcessingMin)
	}

	if c.BreakerFailureThreshold == 0 {
		return fmt.Errorf("CIRCUIT_BREAKER_FAILURE_THRESHOLD must be positive")
	}

	return nil
}
