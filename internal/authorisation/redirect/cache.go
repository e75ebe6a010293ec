// Package redirect keeps short-lived redirect sessions: the opaque id a PSU
// carries back from the ASPSP redirect page, mapped to its authorisation.
// Entries live exactly as long as the profile's redirect URL expiry.
package redirect

import (
	"context"

	id "xs2a/pkg/domain"
)

// Cache stores redirect sessions with a TTL. Lookups after expiry return
// sentinel.ErrExpired; the authorisation itself is untouched.
type Cache interface {
	Save(ctx context.Context, redirectID id.RedirectID, authorisationID id.AuthorisationID) error
	Resolve(ctx context.Context, redirectID id.RedirectID) (id.AuthorisationID, error)
	Delete(ctx context.Context, redirectID id.RedirectID) error
}
