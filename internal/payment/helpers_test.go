//go:build unit

package payment

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/shopspring/decimal"
)

// spyMetrics records every measurement so tests can assert on gauge balance
// and outcome counts.
type spyMetrics struct {
	mu        sync.Mutex
	requests  map[string]int
	fraud     map[string]int
	started   atomic.Int64
	finished  atomic.Int64
	amounts   []decimal.Decimal
	durations int
}

func newSpyMetrics() *spyMetrics {
	return &spyMetrics{
		requests: make(map[string]int),
		fraud:    make(map[string]int),
	}
}

func (s *spyMetrics) RecordRequest(_ context.Context, method Method, outcome string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests[string(method)+"/"+outcome]++
}

func (s *spyMetrics) ObserveDuration(context.Context, float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.durations++
}

func (s *spyMetrics) ObserveAmount(_ context.Context, amount decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.amounts = append(s.amounts, amount)
}

func (s *spyMetrics) SettlementStarted(context.Context)  { s.started.Add(1) }
func (s *spyMetrics) SettlementFinished(context.Context) { s.finished.Add(1) }

func (s *spyMetrics) RecordFraudDetection(_ context.Context, riskLevel string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fraud[riskLevel]++
}

func (s *spyMetrics) requestCount(method Method, outcome string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.requests[string(method)+"/"+outcome]
}

func (s *spyMetrics) fraudCount(riskLevel string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.fraud[riskLevel]
}

// stubScorer returns a scripted score or error and counts invocations.
type stubScorer struct {
	score float64
	err   error
	calls atomic.Int64
}

func (s *stubScorer) Score(context.Context, decimal.Decimal, Method) (float64, error) {
	s.calls.Add(1)

	if s.err != nil {
		return 0, s.err
	}

	return s.score, nil
}

// passGate is a Gate that calls through without any breaker logic.
type passGate struct{}

func (passGate) Execute(fn func() (any, error)) (any, error) {
	return fn()
}

// spySubmitter records submitted payments instead of settling them.
type spySubmitter struct {
	mu        sync.Mutex
	submitted []Payment
	err       error
}

func (s *spySubmitter) Submit(pmt Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.err != nil {
		return s.err
	}

	s.submitted = append(s.submitted, pmt)

	return nil
}

func (s *spySubmitter) all() []Payment {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]Payment(nil), s.submitted...)
}

// scriptedOutcomes replays a fixed success/failure sequence, then repeats the
// last element forever.
type scriptedOutcomes struct {
	mu    sync.Mutex
	draws []bool
	next  int
}

func (o *scriptedOutcomes) Succeeds() bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if len(o.draws) == 0 {
		return true
	}

	draw := o.draws[min(o.next, len(o.draws)-1)]
	o.next++

	return draw
}

// recordingStore decorates a Store and keeps the sequence of status writes
// per transaction.
type recordingStore struct {
	Store

	mu     sync.Mutex
	writes map[string][]Status
}

func newRecordingStore(inner Store) *recordingStore {
	return &recordingStore{Store: inner, writes: make(map[string][]Status)}
}

func (r *recordingStore) UpdateStatus(ctx context.Context, id string, status Status) error {
	err := r.Store.UpdateStatus(ctx, id, status)

	r.mu.Lock()
	defer r.mu.Unlock()

	if err == nil {
		r.writes[id] = append(r.writes[id], status)
	}

	return err
}

func (r *recordingStore) statusWrites(id string) []Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]Status(nil), r.writes[id]...)
}
