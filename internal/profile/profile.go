// Package profile holds the ASPSP profile settings consumed by the
// authorisation flow. The settings are built once at startup and passed by
// value; nothing mutates them afterwards.
package profile

import (
	"time"

	id "xs2a/pkg/domain"
)

// AspspSettings is the immutable slice of the bank profile the authorisation
// core needs: which SCA approaches are on offer and how long redirect
// sessions and authorisation sub-resources live.
type AspspSettings struct {
	// ScaApproaches lists the supported approaches in preference order.
	ScaApproaches []id.ScaApproach

	// RedirectURLExpiry bounds the lifetime of a redirect session.
	RedirectURLExpiry time.Duration

	// AuthorisationExpiry bounds the lifetime of an authorisation sub-resource.
	AuthorisationExpiry time.Duration

	// MultilevelScaEnabled allows consents/payments requiring more than one
	// PSU to authorise.
	MultilevelScaEnabled bool

	// ScaExemptionAllowed lets the adapter exempt low-risk operations from SCA.
	ScaExemptionAllowed bool
}

// Default returns the settings used when the environment configures nothing.
func Default() AspspSettings {
	return AspspSettings{
		ScaApproaches:        []id.ScaApproach{id.ScaApproachEmbedded, id.ScaApproachRedirect, id.ScaApproachDecoupled},
		RedirectURLExpiry:    10 * time.Minute,
		AuthorisationExpiry:  24 * time.Hour,
		MultilevelScaEnabled: true,
		ScaExemptionAllowed:  false,
	}
}

// Supports reports whether the approach is offered by this ASPSP.
func (s AspspSettings) Supports(approach id.ScaApproach) bool {
	for _, a := range s.ScaApproaches {
		if a == approach {
			return true
		}
	}
	return false
}

// PreferredApproach returns the first configured approach, defaulting to
// embedded when the list is empty.
func (s AspspSettings) PreferredApproach() id.ScaApproach {
	if len(s.ScaApproaches) == 0 {
		return id.ScaApproachEmbedded
	}
	return s.ScaApproaches[0]
}
