package bootstrap

import (
	"fmt"

	"github.com/LerianStudio/payment-engine/internal/api"
	"github.com/LerianStudio/payment-engine/internal/payment"
	"github.com/LerianStudio/payment-engine/pkg/circuitbreaker"
	"github.com/LerianStudio/payment-engine/pkg/log"
	"github.com/LerianStudio/payment-engine/pkg/opentelemetry"
	"github.com/LerianStudio/payment-engine/pkg/runtime"
	"github.com/LerianStudio/payment-engine/pkg/server"
	libZap "github.com/LerianStudio/payment-engine/pkg/zap"
	"github.com/shopspring/decimal"
)

// riskGateName labels the breaker guarding the fraud scorer in logs and the
// health endpoint.
const riskGateName = "fraud_scorer"

// InitServer wires configuration into a ready-to-run ServerManager: logger,
// telemetry, breaker, scorer, store, settlement pool, admission service,
// HTTP router, and the graceful shutdown ordering.
func InitServer(cfg *Config) (*server.ServerManager, error) {
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}

	telemetry, err := opentelemetry.InitializeTelemetryWithError(&opentelemetry.TelemetryConfig{
		LibraryName:               cfg.OtelLibraryName,
		ServiceName:               cfg.OtelServiceName,
		ServiceVersion:            cfg.OtelServiceVersion,
		DeploymentEnv:             cfg.OtelDeploymentEnv,
		CollectorExporterEndpoint: cfg.OtelEndpoint,
		EnableTelemetry:           cfg.EnableTelemetry,
		Logger:                    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("initialize telemetry: %w", err)
	}

	runtime.InitPanicMetrics(telemetry.MetricsFactory, logger)

	engineMetrics := payment.NewOTelMetrics(telemetry.MetricsFactory, logger)

	breaker := circuitbreaker.New(riskGateName, circuitbreaker.Config{
		FailureThreshold: cfg.BreakerFailureThreshold,
		OpenTimeout:      cfg.BreakerOpenTimeout,
		MaxHalfOpenCalls: 1,
	}, logger)

	scorer := payment.NewSimulatedRiskScorer(payment.RiskConfig{
		FailureRate:  cfg.RiskFailureRate,
		HighAmount:   decimal.NewFromInt(cfg.RiskHighAmount),
		MediumAmount: decimal.NewFromInt(cfg.RiskMediumAmount),
		LatencyMin:   cfg.RiskLatencyMin,
		LatencyMax:   cfg.RiskLatencyMax,
	}, engineMetrics, logger)

	store := payment.NewInMemoryStore()

	pool := payment.NewPool(payment.PoolConfig{
		Workers:       cfg.SettlementWorkers,
		QueueSize:     cfg.SettlementQueueSize,
		MaxAttempts:   cfg.SettlementMaxAttempts,
		BaseDelay:     cfg.SettlementBaseDelay,
		ProcessingMin: cfg.SettlementProcessingMin,
		ProcessingMax: cfg.SettlementProcessingMax,
	}, store, engineMetrics, payment.NewRandomOutcomes(cfg.SettlementSuccessRate), logger)

	service := payment.NewService(payment.ServiceConfig{
		FraudThreshold: cfg.RiskFraudThreshold,
		DefaultLimit:   cfg.ListDefaultLimit,
		MaxLimit:       cfg.ListMaxLimit,
	}, store, scorer, breaker, pool, engineMetrics, logger)

	app := api.NewRouter(
		logger,
		telemetry,
		api.NewPaymentHandler(service),
		api.NewHealthHandler(cfg.Version, map[string]api.BreakerProbe{
			riskGateName: breaker,
		}),
	)

	manager := server.NewServerManager(telemetry, logger).
		WithHTTPServer(app, cfg.ServerAddress).
		WithShutdownHook("settlement_pool_drain", pool.Shutdown)

	return manager, nil
}

// newLogger builds the environment-profiled zap logger behind the engine's
// Logger interface.
func newLogger(cfg *Config) (log.Logger, error) {
	logger, err := libZap.New(libZap.Config{
		Environment:     environmentProfile(cfg.EnvName),
		Level:           cfg.LogLevel,
		OTelLibraryName: cfg.OtelLibraryName,
	})
	if err != nil {
		return nil, fmt.Errorf("initialize logger: %w", err)
	}

	return logger, nil
}

// environmentProfile maps the deployment name onto a logger profile.
// Unrecognized names get the local profile, which is the safest for debugging.
func environmentProfile(envName string) libZap.Environment {
	switch libZap.Environment(envName) {
	case libZap.EnvironmentProduction, libZap.EnvironmentStaging, libZap.EnvironmentUAT, libZap.EnvironmentDevelopment:
		return libZap.Environment(envName)
	default:
		return libZap.EnvironmentLocal
	}
}
