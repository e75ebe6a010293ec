package authorisation

import (
	"context"
	"sync"

	id "xs2a/pkg/domain"
	"xs2a/pkg/platform/sentinel"
	"xs2a/pkg/requestcontext"
)

// InMemoryStore keeps authorisation records in a mutex-guarded map. The
// mutex provides the read-modify-write consistency the Store contract asks
// for; the postgres store gets the same from row versioning.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[id.AuthorisationID]*Record
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[id.AuthorisationID]*Record)}
}

func (s *InMemoryStore) Create(_ context.Context, record *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[record.ID]; exists {
		return sentinel.ErrConflict
	}
	cp := *record
	s.records[record.ID] = &cp
	return nil
}

func (s *InMemoryStore) GetByID(_ context.Context, authorisationID id.AuthorisationID) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[authorisationID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *InMemoryStore) Update(ctx context.Context, record *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.records[record.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	// A terminal row never changes again; losing a race against another
	// finalising request surfaces as a conflict, not silent corruption.
	if stored.ScaStatus.IsTerminal() && stored.ScaStatus != record.ScaStatus {
		return sentinel.ErrTerminal
	}
	cp := *record
	cp.UpdatedAt = requestcontext.Now(ctx)
	s.records[record.ID] = &cp
	return nil
}

func (s *InMemoryStore) ListByResource(_ context.Context, serviceType id.ServiceType, resourceID string) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var records []*Record
	for _, r := range s.records {
		if r.ServiceType == serviceType && r.ResourceID == resourceID {
			cp := *r
			records = append(records, &cp)
		}
	}
	return records, nil
}
