package domain

import (
	"github.com/google/uuid"

	dErrors "xs2a/pkg/domain-errors"
)

// Typed identifiers for the XS2A domain. Distinct types keep authorisation,
// consent and payment ids from being swapped at call sites; the compiler
// enforces what code review would otherwise have to catch.
//
// Authorisation ids are generated by this service (UUID). Consent and payment
// ids arrive from the CMS layer as opaque external ids and are never parsed
// beyond a non-empty check.
type (
	// AuthorisationID identifies one SCA authorisation sub-resource.
	AuthorisationID string

	// ConsentID is the external id of an account consent.
	ConsentID string

	// PaymentID is the external id of a payment or cancellation target.
	PaymentID string

	// RedirectID keys a short-lived redirect session in the SCA redirect approach.
	RedirectID string

	// TppID identifies the calling Third Party Provider (authorisation number).
	TppID string

	// PsuID identifies the Payment Service User as known to the ASPSP.
	PsuID string
)

// NewAuthorisationID generates a fresh authorisation id.
func NewAuthorisationID() AuthorisationID {
	return AuthorisationID(uuid.NewString())
}

// NewRedirectID generates a fresh redirect session id.
func NewRedirectID() RedirectID {
	return RedirectID(uuid.NewString())
}

// ParseAuthorisationID constructs an AuthorisationID from external input.
//
// Errors: returns CodeInvalidInput when the value is empty or not a UUID.
func ParseAuthorisationID(s string) (AuthorisationID, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "authorisation id cannot be empty")
	}
	if _, err := uuid.Parse(s); err != nil {
		return "", dErrors.New(dErrors.CodeInvalidInput, "authorisation id must be a UUID")
	}
	return AuthorisationID(s), nil
}

// ParseConsentID validates an external consent id at a trust boundary.
func ParseConsentID(s string) (ConsentID, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "consent id cannot be empty")
	}
	return ConsentID(s), nil
}

// ParsePaymentID validates an external payment id at a trust boundary.
func ParsePaymentID(s string) (PaymentID, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "payment id cannot be empty")
	}
	return PaymentID(s), nil
}

func (id AuthorisationID) String() string { return string(id) }
func (id ConsentID) String() string       { return string(id) }
func (id PaymentID) String() string       { return string(id) }
func (id RedirectID) String() string      { return string(id) }
func (id TppID) String() string           { return string(id) }
func (id PsuID) String() string           { return string(id) }

func (id AuthorisationID) IsEmpty() bool { return id == "" }
func (id ConsentID) IsEmpty() bool       { return id == "" }
func (id PaymentID) IsEmpty() bool       { return id == "" }
func (id RedirectID) IsEmpty() bool      { return id == "" }
func (id TppID) IsEmpty() bool           { return id == "" }
func (id PsuID) IsEmpty() bool           { return id == "" }
