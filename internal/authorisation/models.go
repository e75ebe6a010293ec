// Package authorisation implements the multi-step SCA authorisation state
// machine shared by AIS consent authorisation, PIS payment authorisation and
// PIS payment cancellation. One Record tracks one authorisation sub-resource;
// stage handlers advance it until a terminal status is reached.
package authorisation

import (
	"time"

	"xs2a/internal/spi"
	id "xs2a/pkg/domain"
	dErrors "xs2a/pkg/domain-errors"
	msgErrors "xs2a/pkg/message-errors"
	"xs2a/pkg/platform/sentinel"
)

// Record is the persisted state of one authorisation process. It belongs to
// exactly one consent or payment for its entire lifetime and is mutated only
// by stage handlers; once terminal it is read-only.
type Record struct {
	ID          id.AuthorisationID
	ServiceType id.ServiceType
	// ResourceID is the external id of the owning consent or payment.
	ResourceID  string
	ScaStatus   id.ScaStatus
	ScaApproach id.ScaApproach

	// Psu is empty until the PSU has been identified.
	Psu spi.PsuIdData

	// ChosenMethodID is set by a method-selection step, before verification.
	ChosenMethodID string

	// authenticationData is write-once, recorded during verification.
	authenticationData string

	AvailableMethods []spi.AuthenticationObject

	// Expiry timestamps are immutable once set.
	RedirectURLExpiresAt time.Time
	ExpiresAt            time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewRecord creates an authorisation in status received.
func NewRecord(serviceType id.ServiceType, resourceID string, approach id.ScaApproach, expiresAt time.Time, now time.Time) (*Record, error) {
	if !serviceType.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "invalid service type")
	}
	if resourceID == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "owning resource id is required")
	}
	if !approach.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "invalid sca approach")
	}
	return &Record{
		ID:          id.NewAuthorisationID(),
		ServiceType: serviceType,
		ResourceID:  resourceID,
		ScaStatus:   id.ScaStatusReceived,
		ScaApproach: approach,
		ExpiresAt:   expiresAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// ApplyStatus advances the authorisation. Terminal records reject any change;
// non-terminal records accept only forward edges of the state machine.
func (r *Record) ApplyStatus(next id.ScaStatus, now time.Time) error {
	if r.ScaStatus.IsTerminal() {
		return dErrors.Wrap(sentinel.ErrTerminal, dErrors.CodeInvariantViolation, "authorisation is terminal")
	}
	if !r.ScaStatus.CanTransitionTo(next) {
		return dErrors.Wrap(sentinel.ErrInvalidTransition, dErrors.CodeInvariantViolation,
			"cannot move from "+r.ScaStatus.String()+" to "+next.String())
	}
	r.ScaStatus = next
	r.UpdatedAt = now
	return nil
}

// SetAuthenticationData records the verified authentication data. Write-once:
// a second write is an invariant violation.
func (r *Record) SetAuthenticationData(data string) error {
	if r.authenticationData != "" {
		return dErrors.New(dErrors.CodeInvariantViolation, "authentication data already recorded")
	}
	r.authenticationData = data
	return nil
}

// AuthenticationData returns the recorded authentication data.
func (r *Record) AuthenticationData() string {
	return r.authenticationData
}

// SetRedirectExpiry pins the redirect session expiry. Immutable once set.
func (r *Record) SetRedirectExpiry(expiresAt time.Time) error {
	if !r.RedirectURLExpiresAt.IsZero() {
		return dErrors.New(dErrors.CodeInvariantViolation, "redirect expiry already set")
	}
	r.RedirectURLExpiresAt = expiresAt
	return nil
}

// IsExpiredAt checks the authorisation lifetime against the given instant.
// Expiry is advisory data; enforcement sits with the endpoint access checks.
func (r *Record) IsExpiredAt(now time.Time) bool {
	return !r.ExpiresAt.IsZero() && r.ExpiresAt.Before(now)
}

// UpdateRequest is one inbound PSU data update for an authorisation.
type UpdateRequest struct {
	AuthorisationID id.AuthorisationID
	ResourceID      string
	ServiceType     id.ServiceType

	Psu                    spi.PsuIdData
	Password               string
	AuthenticationMethodID string
	ScaAuthenticationData  string
}

// Response is the per-request result of an authorisation step. Not persisted;
// reconstructed each call from the record and the stage outcome. It always
// carries the authorisation and owning resource ids so the caller can
// correlate, error or not.
type Response struct {
	ScaStatus       id.ScaStatus
	ResourceID      string
	AuthorisationID id.AuthorisationID

	AvailableMethods []spi.AuthenticationObject
	ChosenScaMethod  *spi.AuthenticationObject
	Challenge        *spi.ChallengeData
	PsuMessage       string

	Error *msgErrors.ErrorHolder
}

// Failed builds a failure response preserving the request's identifiers.
func Failed(req UpdateRequest, holder msgErrors.ErrorHolder) Response {
	return Response{
		ScaStatus:       id.ScaStatusFailed,
		ResourceID:      req.ResourceID,
		AuthorisationID: req.AuthorisationID,
		PsuMessage:      holder.Message(),
		Error:           &holder,
	}
}

// IsFailure reports whether the response carries an error payload.
func (r Response) IsFailure() bool {
	return r.Error != nil
}
