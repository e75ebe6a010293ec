package payment

import (
	"context"
	"sync"

	id "xs2a/pkg/domain"
	"xs2a/pkg/platform/sentinel"
	"xs2a/pkg/requestcontext"
)

// InMemoryStore keeps payments in a mutex-guarded map.
type InMemoryStore struct {
	mu       sync.RWMutex
	payments map[id.PaymentID]*Payment
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{payments: make(map[id.PaymentID]*Payment)}
}

func (s *InMemoryStore) Save(_ context.Context, payment *Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *payment
	s.payments[payment.ID] = &cp
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, paymentID id.PaymentID) (*Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.payments[paymentID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *InMemoryStore) UpdateStatus(ctx context.Context, paymentID id.PaymentID, status TransactionStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[paymentID]
	if !ok {
		return sentinel.ErrNotFound
	}
	p.TransactionStatus = status
	p.StatusChangedAt = requestcontext.Now(ctx)
	return nil
}

func (s *InMemoryStore) UpdateMultilevelScaRequired(_ context.Context, paymentID id.PaymentID, required bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.payments[paymentID]
	if !ok {
		return sentinel.ErrNotFound
	}
	p.MultilevelScaRequired = required
	return nil
}
