// Package audit captures the authorisation-relevant actions of the service as
// events. Domain services emit; a worker fans events out to a store and an
// optional kafka sink. Keep the event transport-agnostic so sinks can vary.
package audit

import (
	"context"
	"time"

	id "xs2a/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategoryCompliance covers events with regulatory significance under
	// PSD2: consent and payment status changes, authorisation outcomes.
	CategoryCompliance EventCategory = "compliance"

	// CategorySecurity covers events relevant to security monitoring:
	// failed SCA attempts, credential failures.
	CategorySecurity EventCategory = "security"

	// CategoryOperations covers routine events useful for debugging; these
	// can be sampled or aggregated with shorter retention.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture one authorisation-relevant
// action.
type Event struct {
	Category        EventCategory
	Timestamp       time.Time
	Action          Action
	AuthorisationID id.AuthorisationID
	ResourceID      string
	ServiceType     id.ServiceType
	ScaStatus       id.ScaStatus
	PsuID           id.PsuID
	TppID           id.TppID
	Reason          string
	RequestID       string
}

// Action names one audited authorisation action.
type Action string

const (
	// Authorisation lifecycle
	ActionAuthorisationStarted   Action = "authorisation_started"
	ActionPsuIdentified          Action = "psu_identified"
	ActionPsuAuthenticated       Action = "psu_authenticated"
	ActionScaMethodSelected      Action = "sca_method_selected"
	ActionDecoupledScaStarted    Action = "decoupled_sca_started"
	ActionAuthorisationFinalised Action = "authorisation_finalised"
	ActionAuthorisationFailed    Action = "authorisation_failed"

	// Aggregate side effects
	ActionConsentStatusChanged Action = "consent_status_changed"
	ActionConsentTerminated    Action = "consent_terminated"
	ActionPaymentStatusChanged Action = "payment_status_changed"
	ActionMultilevelScaFlagged Action = "multilevel_sca_flagged"

	// PIIS
	ActionFundsConfirmationChecked Action = "funds_confirmation_checked"
)

// actionCategories maps each action to its category; the map is the single
// source of truth for routing and retention.
var actionCategories = map[Action]EventCategory{
	ActionAuthorisationStarted:   CategoryOperations,
	ActionPsuIdentified:          CategoryOperations,
	ActionPsuAuthenticated:       CategoryOperations,
	ActionScaMethodSelected:      CategoryOperations,
	ActionDecoupledScaStarted:    CategoryOperations,
	ActionAuthorisationFinalised: CategoryCompliance,
	ActionAuthorisationFailed:    CategorySecurity,

	ActionConsentStatusChanged: CategoryCompliance,
	ActionConsentTerminated:    CategoryCompliance,
	ActionPaymentStatusChanged: CategoryCompliance,
	ActionMultilevelScaFlagged: CategoryCompliance,

	ActionFundsConfirmationChecked: CategoryOperations,
}

// Category returns the EventCategory for this action.
// Unknown actions default to CategoryOperations.
func (a Action) Category() EventCategory {
	if cat, ok := actionCategories[a]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, event Event) error
}

// Publisher emits audit events for security- and compliance-relevant
// operations. Implementations must be safe for concurrent use.
type Publisher interface {
	Emit(ctx context.Context, event Event) error
}

// Emit is a nil-safe helper: services emit without checking whether an audit
// publisher was wired.
func Emit(ctx context.Context, p Publisher, event Event) error {
	if p == nil {
		return nil
	}
	if event.Category == "" {
		event.Category = event.Action.Category()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	return p.Emit(ctx, event)
}
