package payment

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Store is the concurrent repository of payment records.
type Store interface {
	// Create inserts a new record keyed by its id. ErrAlreadyExists signals
	// an id collision, which callers must treat as an invariant violation.
	Create(ctx context.Context, p Payment) error
	// Get returns a copy of the record or ErrNotFound.
	Get(ctx context.Context, id string) (Payment, error)
	// UpdateStatus atomically transitions the record's status. It returns
	// ErrNotFound for an unknown id and ErrInvalidTransition when the state
	// machine forbids the move.
	UpdateStatus(ctx context.Context, id string, status Status) error
	// List returns a snapshot of matching records, newest first, truncated
	// to the filter's limit.
	List(ctx context.Context, filter ListFilter) ([]Payment, error)
}

// ListFilter narrows and bounds a List call. A nil Status matches every
// status; an empty CustomerID matches every customer. Limit must be positive.
type ListFilter struct {
	Status     *Status
	CustomerID string
	Limit      int
}

// record pairs a payment with its own lock so settlement of one transaction
// never serializes against reads or writes of another.
type record struct {
	mu sync.RWMutex
	p  Payment
}

// InMemoryStore keeps all records in process memory. The keyed index is a
// sync.Map, so unrelated transactions share no lock; each record carries its
// own RWMutex for status updates and snapshot reads.
type InMemoryStore struct {
	records sync.Map // string -> *record
}

var _ Store = (*InMemoryStore)(nil)

// NewInMemoryStore returns an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

// Create implements Store.
func (s *InMemoryStore) Create(_ context.Context, p Payment) error {
	if _, loaded := s.records.LoadOrStore(p.ID, &record{p: p}); loaded {
		return fmt.Errorf("%w: id %s", ErrAlreadyExists, p.ID)
	}

	return nil
}

// Get implements Store.
func (s *InMemoryStore) Get(_ context.Context, id string) (Payment, error) {
	value, ok := s.records.Load(id)
	if !ok {
		return Payment{}, fmt.Errorf("%w: id %s", ErrNotFound, id)
	}

	rec := value.(*record)

	rec.mu.RLock()
	defer rec.mu.RUnlock()

	return rec.p, nil
}

// UpdateStatus implements Store.
func (s *InMemoryStore) UpdateStatus(_ context.Context, id string, status Status) error {
	value, ok := s.records.Load(id)
	if !ok {
		return fmt.Errorf("%w: id %s", ErrNotFound, id)
	}

	rec := value.(*record)

	rec.mu.Lock()
	defer rec.mu.Unlock()

	if !rec.p.Status.CanTransitionTo(status) {
		return fmt.Errorf("%w: %s -> %s (id %s)", ErrInvalidTransition, rec.p.Status, status, id)
	}

	rec.p.Status = status

	return nil
}

// List implements Store. The result is a point-in-time snapshot: records
// created or updated while the scan runs may or may not be reflected.
func (s *InMemoryStore) List(_ context.Context, filter ListFilter) ([]Payment, error) {
	matches := make([]Payment, 0)

	s.records.Range(func(_, value any) bool {
		rec := value.(*record)

		rec.mu.RLock()
		p := rec.p
		rec.mu.RUnlock()

		if filter.Status != nil && p.Status != *filter.Status {
			return true
		}

		if filter.CustomerID != "" && p.CustomerID != filter.CustomerID {
			return true
		}

		matches = append(matches, p)

		return true
	})

	// Newest first; id breaks ties so the order is stable across calls.
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].ID > matches[j].ID
		}

		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})

	if filter.Limit > 0 && len(matches) > filter.Limit {
		matches = matches[:filter.Limit]
	}

	return matches, nil
}
