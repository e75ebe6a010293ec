package consent

import (
	"context"
	"sync"

	id "xs2a/pkg/domain"
	"xs2a/pkg/platform/sentinel"
	"xs2a/pkg/requestcontext"
)

// InMemoryStore keeps consents in a mutex-guarded map. Used by unit tests and
// local runs; the mutex gives the same read-modify-write consistency the
// postgres store gets from row locks.
type InMemoryStore struct {
	mu       sync.RWMutex
	consents map[id.ConsentID]*AccountConsent
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{consents: make(map[id.ConsentID]*AccountConsent)}
}

func (s *InMemoryStore) Save(_ context.Context, consent *AccountConsent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *consent
	s.consents[consent.ID] = &cp
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, consentID id.ConsentID) (*AccountConsent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.consents[consentID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *InMemoryStore) UpdateStatus(ctx context.Context, consentID id.ConsentID, status Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.consents[consentID]
	if !ok {
		return sentinel.ErrNotFound
	}
	c.Status = status
	c.StatusChangedAt = requestcontext.Now(ctx)
	return nil
}

func (s *InMemoryStore) UpdateMultilevelScaRequired(_ context.Context, consentID id.ConsentID, required bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.consents[consentID]
	if !ok {
		return sentinel.ErrNotFound
	}
	c.MultilevelScaRequired = required
	return nil
}

func (s *InMemoryStore) FindOldConsents(_ context.Context, newConsentID id.ConsentID) ([]*AccountConsent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	newer, ok := s.consents[newConsentID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	var old []*AccountConsent
	for _, c := range s.consents {
		if c.ID == newConsentID || c.TppID != newer.TppID || c.Status.IsFinalised() {
			continue
		}
		if !sharesPsu(c, newer) {
			continue
		}
		cp := *c
		old = append(old, &cp)
	}
	return old, nil
}

func sharesPsu(a, b *AccountConsent) bool {
	for _, p := range a.PsuIDs {
		if b.HasPsu(p) {
			return true
		}
	}
	return false
}
