package authorisation

import (
	"context"

	id "xs2a/pkg/domain"
)

// Store persists authorisation records. Implementations return
// sentinel.ErrNotFound (optionally wrapped) for unknown ids. The store must
// provide single-row read-modify-write consistency: two concurrent updates of
// one authorisation id must not interleave into an invalid status. Records
// are never physically deleted here; retention is handled elsewhere.
type Store interface {
	Create(ctx context.Context, record *Record) error
	GetByID(ctx context.Context, authorisationID id.AuthorisationID) (*Record, error)
	Update(ctx context.Context, record *Record) error

	// ListByResource returns all authorisations attached to an owning
	// consent or payment, needed for multilevel SCA bookkeeping.
	ListByResource(ctx context.Context, serviceType id.ServiceType, resourceID string) ([]*Record, error)
}
