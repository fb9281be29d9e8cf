package payment

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/LerianStudio/payment-engine/pkg/backoff"
	"github.com/LerianStudio/payment-engine/pkg/log"
	"github.com/LerianStudio/payment-engine/pkg/runtime"
)

// ErrPoolClosed is returned by Submit once the pool began shutting down.
var ErrPoolClosed = errors.New("settlement pool is closed")

// errAttemptFailed is the simulated settlement decline. It flows through the
// same retry path as unexpected attempt errors.
var errAttemptFailed = errors.New("settlement attempt declined")

// Outcomes decides whether a settlement attempt succeeds. The production
// implementation draws at random; tests supply deterministic stand-ins.
type Outcomes interface {
	Succeeds() bool
}

// RandomOutcomes succeeds with a fixed probability.
type RandomOutcomes struct {
	successRate float64
	randFloat   func() float64
}

var _ Outcomes = (*RandomOutcomes)(nil)

// NewRandomOutcomes draws successes at the given rate in [0,1].
func NewRandomOutcomes(successRate float64) *RandomOutcomes {
	return &RandomOutcomes{successRate: successRate, randFloat: rand.Float64}
}

// Succeeds implements Outcomes.
func (o *RandomOutcomes) Succeeds() bool {
	return o.randFloat() < o.successRate
}

// PoolConfig bounds the settlement pool. The worker and queue bounds exist so
// load cannot create unbounded concurrent settlement goroutines.
type PoolConfig struct {
	// Workers is the number of concurrent settlement goroutines.
	Workers int
	// QueueSize is the submission buffer; a full queue applies backpressure
	// to admission.
	QueueSize int
	// MaxAttempts bounds the retry loop per transaction.
	MaxAttempts int
	// BaseDelay seeds the exponential backoff between attempts.
	BaseDelay time.Duration
	// ProcessingMin and ProcessingMax bound the simulated settlement latency.
	ProcessingMin time.Duration
	ProcessingMax time.Duration
}

// DefaultPoolConfig mirrors the production settlement defaults: 16 workers,
// 3 attempts, 1s backoff base, 2-8s simulated processing.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		Workers:       16,
		QueueSize:     256,
		MaxAttempts:   3,
		BaseDelay:     time.Second,
		ProcessingMin: 2 * time.Second,
		ProcessingMax: 8 * time.Second,
	}
}

// Pool drives admitted transactions to a terminal state on a bounded set of
// workers. Each job owns its transaction exclusively while it runs (single
// writer per key); jobs are isolated, so one transaction's fault never blocks
// or corrupts another's settlement.
type Pool struct {
	config   PoolConfig
	store    Store
	metrics  Metrics
	outcomes Outcomes
	logger   log.Logger

	queue     chan Payment
	closed    chan struct{}
	closeOnce sync.Once
	workers   sync.WaitGroup
}

// NewPool starts the settlement workers immediately. Zero or negative bounds
// fall back to the defaults.
func NewPool(config PoolConfig, store Store, m Metrics, outcomes Outcomes, logger log.Logger) *Pool {
	defaults := DefaultPoolConfig()

	if config.Workers <= 0 {
		config.Workers = defaults.Workers
	}

	if config.QueueSize <= 0 {
		config.QueueSize = defaults.QueueSize
	}

	if config.MaxAttempts <= 0 {
		config.MaxAttempts = defaults.MaxAttempts
	}

	if m == nil {
		m = NopMetrics{}
	}

	if logger == nil {
		logger = &log.NoneLogger{}
	}

	pool := &Pool{
		config:   config,
		store:    store,
		metrics:  m,
		outcomes: outcomes,
		logger:   logger,
		queue:    make(chan Payment, config.QueueSize),
		closed:   make(chan struct{}),
	}

	pool.workers.Add(config.Workers)

	for i := 0; i < config.Workers; i++ {
		worker := i
		runtime.SafeGo(logger, fmt.Sprintf("settlement_worker_%d", worker), func() {
			defer pool.workers.Done()
			pool.run()
		})
	}

	return pool
}

// Submit enqueues an admitted transaction for settlement. It blocks only on
// queue backpressure and returns ErrPoolClosed once shutdown began.
func (p *Pool) Submit(pmt Payment) error {
	select {
	case <-p.closed:
		return ErrPoolClosed
	default:
	}

	select {
	case p.queue <- pmt:
		return nil
	case <-p.closed:
		return ErrPoolClosed
	}
}

// Shutdown stops accepting new work and waits for queued and in-flight jobs
// to reach a terminal state, up to the context deadline. Settlement does not
// depend on this for correctness; it only bounds process exit.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.closeOnce.Do(func() {
		close(p.closed)
	})

	drained := make(chan struct{})

	go func() {
		p.workers.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("settlement pool drain interrupted: %w", ctx.Err())
	}
}

// run consumes jobs until shutdown, then drains whatever is still queued so
// every accepted submission reaches a terminal state.
func (p *Pool) run() {
	for {
		select {
		case pmt := <-p.queue:
			p.runJob(pmt)
		case <-p.closed:
			for {
				select {
				case pmt := <-p.queue:
					p.runJob(pmt)
				default:
					return
				}
			}
		}
	}
}

// runJob executes one settlement with fault isolation: the active payments
// gauge is decremented exactly once no matter how the job ends, and a panic
// escaping the retry loop is logged instead of killing the worker.
func (p *Pool) runJob(pmt Payment) {
	ctx := log.ContextWithLogger(context.Background(), p.logger)

	p.metrics.SettlementStarted(ctx)
	defer p.metrics.SettlementFinished(ctx)
	defer runtime.RecoverAndLog(p.logger, "settlement_job_"+pmt.ID)

	p.settle(ctx, pmt)
}

// settle runs the bounded retry loop for one transaction.
func (p *Pool) settle(ctx context.Context, pmt Payment) {
	for attempt := 0; attempt < p.config.MaxAttempts; attempt++ {
		err := p.attempt(ctx, pmt, attempt)
		if err == nil {
			p.logger.Infof("payment completed: transaction_id=%s attempt=%d", pmt.ID, attempt+1)
			p.metrics.RecordRequest(ctx, pmt.Method, string(StatusCompleted))

			return
		}

		p.logger.Errorf("payment processing error: transaction_id=%s attempt=%d error=%v",
			pmt.ID, attempt+1, err)

		if attempt < p.config.MaxAttempts-1 {
			delay := backoff.Exponential(p.config.BaseDelay, attempt)
			if sleepErr := backoff.SleepWithContext(ctx, delay); sleepErr != nil {
				break
			}
		}
	}

	p.fail(ctx, pmt)
}

// attempt performs one settlement cycle: re-enter processing, hold for the
// simulated settlement latency, then draw the outcome. Panics inside the
// attempt are converted to errors so they follow the same retry policy.
func (p *Pool) attempt(ctx context.Context, pmt Payment, attempt int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("settlement attempt panic: %v", r)
		}
	}()

	if err := p.store.UpdateStatus(ctx, pmt.ID, StatusProcessing); err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}

	p.logger.Infof("payment processing started: transaction_id=%s attempt=%d", pmt.ID, attempt+1)

	processingTime := backoff.RandomBetween(p.config.ProcessingMin, p.config.ProcessingMax)
	if err := backoff.SleepWithContext(ctx, processingTime); err != nil {
		return fmt.Errorf("processing interrupted: %w", err)
	}

	if !p.outcomes.Succeeds() {
		return errAttemptFailed
	}

	if err := p.store.UpdateStatus(ctx, pmt.ID, StatusCompleted); err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}

	return nil
}

// fail forces the terminal failed write after the retry budget is exhausted.
// A missing record makes the write a logged anomaly, never a crash.
func (p *Pool) fail(ctx context.Context, pmt Payment) {
	p.metrics.RecordRequest(ctx, pmt.Method, string(StatusFailed))

	if err := p.store.UpdateStatus(ctx, pmt.ID, StatusFailed); err != nil {
		p.logger.Errorf("terminal failure write skipped: transaction_id=%s error=%v", pmt.ID, err)
		return
	}

	p.logger.Errorf("payment failed after %d attempts: transaction_id=%s",
		p.config.MaxAttempts, pmt.ID)
}
