package payment

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/LerianStudio/payment-engine/pkg/circuitbreaker"
	"github.com/LerianStudio/payment-engine/pkg/log"
	"github.com/LerianStudio/payment-engine/pkg/pointers"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Gate runs a fallible call through the circuit breaker guarding the risk
// scorer. *circuitbreaker.Breaker satisfies it.
type Gate interface {
	Execute(fn func() (any, error)) (any, error)
}

// Submitter schedules an admitted transaction for settlement. *Pool
// satisfies it.
type Submitter interface {
	Submit(pmt Payment) error
}

// ServiceConfig tunes admission and the query surface.
type ServiceConfig struct {
	// FraudThreshold blocks admissions whose risk score exceeds it.
	FraudThreshold float64
	// DefaultLimit applies to list calls that specify no limit.
	DefaultLimit int
	// MaxLimit caps the limit a caller may request.
	MaxLimit int
}

// DefaultServiceConfig returns the production admission defaults.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		FraudThreshold: 0.8,
		DefaultLimit:   10,
		MaxLimit:       100,
	}
}

// CreateInput is an admission request after transport decoding.
type CreateInput struct {
	Amount      decimal.Decimal
	Currency    string
	Method      Method
	CustomerID  string
	MerchantID  string
	Description string
	CallbackURL string
}

// Service orchestrates admission: validate, score through the breaker,
// decide pending vs fraud_detected, persist, and hand admitted transactions
// to the settlement pool. Queries read the store directly.
type Service struct {
	config  ServiceConfig
	store   Store
	scorer  RiskScorer
	gate    Gate
	pool    Submitter
	metrics Metrics
	logger  log.Logger
	now     func() time.Time
}

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

// WithClock replaces the service's time source for deterministic tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		s.now = now
	}
}

// NewService wires the admission engine. The gate must wrap the given scorer;
// the pool receives every admitted (pending) transaction.
func NewService(
	config ServiceConfig,
	store Store,
	scorer RiskScorer,
	gate Gate,
	pool Submitter,
	m Metrics,
	logger log.Logger,
	opts ...ServiceOption,
) *Service {
	defaults := DefaultServiceConfig()

	if config.FraudThreshold <= 0 {
		config.FraudThreshold = defaults.FraudThreshold
	}

	if config.DefaultLimit <= 0 {
		config.DefaultLimit = defaults.DefaultLimit
	}

	if config.MaxLimit <= 0 {
		config.MaxLimit = defaults.MaxLimit
	}

	if m == nil {
		m = NopMetrics{}
	}

	if logger == nil {
		logger = &log.NoneLogger{}
	}

	svc := &Service{
		config:  config,
		store:   store,
		scorer:  scorer,
		gate:    gate,
		pool:    pool,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(svc)
	}

	return svc
}

// Create admits one payment request. The caller gets the persisted record
// synchronously; settlement, when scheduled, runs on the pool afterwards.
func (s *Service) Create(ctx context.Context, input CreateInput) (Payment, error) {
	started := s.now()
	defer func() {
		s.metrics.ObserveDuration(ctx, s.now().Sub(started).Seconds())
	}()

	input, err := s.normalize(input)
	if err != nil {
		return Payment{}, err
	}

	logger := log.NewLoggerFromContext(ctx)

	transactionID := uuid.New().String()

	logger.Infof("payment request received: transaction_id=%s customer_id=%s amount=%s method=%s",
		transactionID, input.CustomerID, input.Amount.String(), input.Method)

	score, err := s.score(ctx, input)
	if err != nil {
		s.metrics.RecordRequest(ctx, input.Method, OutcomeError)
		return Payment{}, err
	}

	now := s.now().UTC()

	pmt := Payment{
		ID:          transactionID,
		Status:      StatusPending,
		Amount:      input.Amount,
		Currency:    input.Currency,
		Method:      input.Method,
		CustomerID:  input.CustomerID,
		MerchantID:  input.MerchantID,
		Description: input.Description,
		CallbackURL: input.CallbackURL,
		RiskScore:   score,
		CreatedAt:   now,
	}

	if score > s.config.FraudThreshold {
		pmt.Status = StatusFraudDetected
		pmt.EstimatedCompletion = pointers.Ptr(now)

		logger.Warnf("high risk payment blocked: transaction_id=%s risk_score=%.4f",
			transactionID, score)
	}

	s.metrics.RecordRequest(ctx, pmt.Method, string(pmt.Status))
	s.metrics.ObserveAmount(ctx, pmt.Amount)

	if err := s.store.Create(ctx, pmt); err != nil {
		return Payment{}, err
	}

	if pmt.Status == StatusPending {
		if err := s.pool.Submit(pmt); err != nil {
			logger.Errorf("settlement submission failed: transaction_id=%s error=%v",
				transactionID, err)
		}
	}

	return pmt, nil
}

// Get returns the record for the given transaction id.
func (s *Service) Get(ctx context.Context, id string) (Payment, error) {
	return s.store.Get(ctx, id)
}

// List returns matching records, newest first. The limit defaults and is
// capped by configuration.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Payment, error) {
	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, *filter.Status)
	}

	if filter.Limit <= 0 {
		filter.Limit = s.config.DefaultLimit
	}

	if filter.Limit > s.config.MaxLimit {
		filter.Limit = s.config.MaxLimit
	}

	return s.store.List(ctx, filter)
}

// normalize applies defaults and validates the admission input. Violations
// are rejected before any state is created.
func (s *Service) normalize(input CreateInput) (CreateInput, error) {
	if input.Currency == "" {
		input.Currency = DefaultCurrency
	}

	if !input.Amount.IsPositive() {
		return input, fmt.Errorf("%w: amount must be positive, got %s", ErrValidation, input.Amount.String())
	}

	if !input.Method.IsValid() {
		return input, fmt.Errorf("%w: unknown payment method %q", ErrValidation, input.Method)
	}

	if input.CustomerID == "" {
		return input, fmt.Errorf("%w: customer_id is required", ErrValidation)
	}

	if input.MerchantID == "" {
		return input, fmt.Errorf("%w: merchant_id is required", ErrValidation)
	}

	if input.CallbackURL != "" {
		parsed, err := url.Parse(input.CallbackURL)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return input, fmt.Errorf("%w: callback_url is not a valid URL", ErrValidation)
		}
	}

	return input, nil
}

// score runs the risk scorer through the circuit breaker. Breaker rejections
// and scorer outages both collapse into ErrUnavailable for the caller.
func (s *Service) score(ctx context.Context, input CreateInput) (float64, error) {
	result, err := s.gate.Execute(func() (any, error) {
		return s.scorer.Score(ctx, input.Amount, input.Method)
	})
	if err != nil {
		if errors.Is(err, circuitbreaker.ErrOpen) {
			log.NewLoggerFromContext(ctx).Warnf("admission rejected, risk gate open: %v", err)
		}

		return 0, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	score, ok := result.(float64)
	if !ok {
		return 0, fmt.Errorf("%w: unexpected scorer result %T", ErrUnavailable, result)
	}

	return score, nil
}
