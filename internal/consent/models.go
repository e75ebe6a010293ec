// Package consent owns the account-consent aggregate as seen by the
// authorisation core: its status lifecycle, the multilevel-SCA flag, and the
// synchronizer operations that apply authorisation side effects to it.
package consent

import (
	"time"

	id "xs2a/pkg/domain"
)

// Status is the lifecycle state of an account consent.
type Status string

const (
	StatusReceived            Status = "received"
	StatusPartiallyAuthorised Status = "partiallyAuthorised"
	StatusValid               Status = "valid"
	StatusRejected            Status = "rejected"
	StatusRevokedByPsu        Status = "revokedByPsu"
	StatusExpired             Status = "expired"
	StatusTerminatedByTpp     Status = "terminatedByTpp"
	StatusTerminatedByAspsp   Status = "terminatedByAspsp"
)

var validStatuses = map[Status]bool{
	StatusReceived:            true,
	StatusPartiallyAuthorised: true,
	StatusValid:               true,
	StatusRejected:            true,
	StatusRevokedByPsu:        true,
	StatusExpired:             true,
	StatusTerminatedByTpp:     true,
	StatusTerminatedByAspsp:   true,
}

// IsValid checks if the status is one of the supported enum values.
func (s Status) IsValid() bool {
	return validStatuses[s]
}

// IsFinalised reports whether the consent accepts no further status changes.
func (s Status) IsFinalised() bool {
	switch s {
	case StatusRejected, StatusRevokedByPsu, StatusExpired, StatusTerminatedByTpp, StatusTerminatedByAspsp:
		return true
	}
	return false
}

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// AccountConsent is the consent aggregate. The core reads it to make
// authorisation decisions and writes back only Status and
// MultilevelScaRequired; everything else belongs to the consent service
// surrounding this core.
type AccountConsent struct {
	ID                    id.ConsentID
	TppID                 id.TppID
	PsuIDs                []id.PsuID
	Status                Status
	MultilevelScaRequired bool
	Recurring             bool
	FrequencyPerDay       int
	ValidUntil            time.Time
	CreatedAt             time.Time
	StatusChangedAt       time.Time
}

// HasPsu reports whether the PSU participates in this consent.
func (c *AccountConsent) HasPsu(psuID id.PsuID) bool {
	for _, p := range c.PsuIDs {
		if p == psuID {
			return true
		}
	}
	return false
}

// IsExpiredAt checks the validity period against the given instant. Expiry is
// advisory data; callers decide what to do with it.
func (c *AccountConsent) IsExpiredAt(now time.Time) bool {
	return !c.ValidUntil.IsZero() && c.ValidUntil.Before(now)
}
