package payment

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/LerianStudio/payment-engine/pkg/backoff"
	"github.com/LerianStudio/payment-engine/pkg/log"
	"github.com/shopspring/decimal"
)

// ErrRiskUnavailable is the dependency failure of the risk scorer. It is
// distinguishable from any score so callers never confuse an outage with a
// verdict.
var ErrRiskUnavailable = errors.New("fraud service unavailable")

// RiskScorer estimates the fraud likelihood of a payment as a value in [0,1].
type RiskScorer interface {
	Score(ctx context.Context, amount decimal.Decimal, method Method) (float64, error)
}

// RiskConfig tunes the simulated scorer. The amount bands and the failure
// rate are configuration, not constants, so operators can reshape the risk
// model without a rebuild.
type RiskConfig struct {
	// FailureRate is the probability in [0,1] that a call fails with
	// ErrRiskUnavailable, modeling upstream flakiness.
	FailureRate float64
	// HighAmount is the band above which +0.3 base risk applies.
	HighAmount decimal.Decimal
	// MediumAmount is the band above which +0.2 base risk applies.
	MediumAmount decimal.Decimal
	// LatencyMin and LatencyMax bound the simulated upstream latency.
	LatencyMin time.Duration
	LatencyMax time.Duration
}

// DefaultRiskConfig mirrors the production risk model defaults: 5% outage
// rate, 100k/50k NGN amount bands, 100-300ms latency.
func DefaultRiskConfig() RiskConfig {
	return RiskConfig{
		FailureRate:  0.05,
		HighAmount:   decimal.NewFromInt(100000),
		MediumAmount: decimal.NewFromInt(50000),
		LatencyMin:   100 * time.Millisecond,
		LatencyMax:   300 * time.Millisecond,
	}
}

// SimulatedRiskScorer stands in for the upstream fraud detection service:
// bounded latency, a configured failure probability, and a banded score with
// random perturbation.
type SimulatedRiskScorer struct {
	config    RiskConfig
	metrics   Metrics
	logger    log.Logger
	randFloat func() float64
}

var _ RiskScorer = (*SimulatedRiskScorer)(nil)

// RiskOption customizes a SimulatedRiskScorer.
type RiskOption func(*SimulatedRiskScorer)

// WithRandomSource replaces the scorer's randomness source. Tests use it to
// make failure draws and perturbations deterministic.
func WithRandomSource(randFloat func() float64) RiskOption {
	return func(s *SimulatedRiskScorer) {
		s.randFloat = randFloat
	}
}

// NewSimulatedRiskScorer builds a scorer with the given configuration.
func NewSimulatedRiskScorer(config RiskConfig, m Metrics, logger log.Logger, opts ...RiskOption) *SimulatedRiskScorer {
	if m == nil {
		m = NopMetrics{}
	}

	if logger == nil {
		logger = &log.NoneLogger{}
	}

	scorer := &SimulatedRiskScorer{
		config:    config,
		metrics:   m,
		logger:    logger,
		randFloat: rand.Float64,
	}

	for _, opt := range opts {
		opt(scorer)
	}

	return scorer
}

// Score implements RiskScorer. The risk level counter is keyed on the raw
// score before clamping, so a perturbed score above 1.0 still counts as high.
func (s *SimulatedRiskScorer) Score(ctx context.Context, amount decimal.Decimal, method Method) (float64, error) {
	latency := backoff.RandomBetween(s.config.LatencyMin, s.config.LatencyMax)
	if err := backoff.SleepWithContext(ctx, latency); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrRiskUnavailable, err)
	}

	if s.randFloat() < s.config.FailureRate {
		return 0, ErrRiskUnavailable
	}

	score := 0.0

	switch {
	case amount.GreaterThan(s.config.HighAmount):
		score += 0.3
	case amount.GreaterThan(s.config.MediumAmount):
		score += 0.2
	}

	if method == MethodCard {
		score += 0.1
	}

	score += s.randFloat() * 0.2

	s.logger.Infof("fraud check completed: amount=%s method=%s risk_score=%.4f",
		amount.String(), method, score)

	switch {
	case score > 0.7:
		s.metrics.RecordFraudDetection(ctx, RiskLevelHigh)
	case score > 0.4:
		s.metrics.RecordFraudDetection(ctx, RiskLevelMedium)
	default:
		s.metrics.RecordFraudDetection(ctx, RiskLevelLow)
	}

	return min(score, 1.0), nil
}
