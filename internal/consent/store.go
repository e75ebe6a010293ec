package consent

import (
	"context"

	id "xs2a/pkg/domain"
)

// Store persists consent aggregates. Implementations return
// sentinel.ErrNotFound (optionally wrapped) for unknown ids and must keep
// single-row read-modify-write consistency so concurrent status updates on
// one consent do not interleave.
type Store interface {
	Save(ctx context.Context, consent *AccountConsent) error
	FindByID(ctx context.Context, consentID id.ConsentID) (*AccountConsent, error)

	// UpdateStatus persists a status change. Implementations write
	// unconditionally; the service layer decides whether a write is needed.
	UpdateStatus(ctx context.Context, consentID id.ConsentID, status Status) error

	// UpdateMultilevelScaRequired persists the multilevel-SCA flag.
	UpdateMultilevelScaRequired(ctx context.Context, consentID id.ConsentID, required bool) error

	// FindOldConsents returns non-finalised consents of the same TPP and PSU
	// set, excluding the given consent.
	FindOldConsents(ctx context.Context, newConsentID id.ConsentID) ([]*AccountConsent, error)
}
