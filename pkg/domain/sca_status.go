package domain

import dErrors "xs2a/pkg/domain-errors"

// ScaStatus is the state of one SCA authorisation sub-resource.
// Invariant: transitions are monotonic along the state machine encoded in
// CanTransitionTo; terminal statuses accept no further transitions.
//
// Usage: construct via ParseScaStatus at trust boundaries; mutate records only
// through Record.ApplyStatus so the transition table is enforced.
type ScaStatus string

// SCA statuses per the Berlin Group XS2A vocabulary.
const (
	ScaStatusReceived          ScaStatus = "received"
	ScaStatusPsuIdentified     ScaStatus = "psuIdentified"
	ScaStatusPsuAuthenticated  ScaStatus = "psuAuthenticated"
	ScaStatusScaMethodSelected ScaStatus = "scaMethodSelected"
	ScaStatusStarted           ScaStatus = "started"
	ScaStatusUnconfirmed       ScaStatus = "unconfirmed"
	ScaStatusFinalised         ScaStatus = "finalised"
	ScaStatusFailed            ScaStatus = "failed"
	ScaStatusExempted          ScaStatus = "exempted"
)

// validScaStatuses is the single source of truth for valid statuses.
var validScaStatuses = map[ScaStatus]bool{
	ScaStatusReceived:          true,
	ScaStatusPsuIdentified:     true,
	ScaStatusPsuAuthenticated:  true,
	ScaStatusScaMethodSelected: true,
	ScaStatusStarted:           true,
	ScaStatusUnconfirmed:       true,
	ScaStatusFinalised:         true,
	ScaStatusFailed:            true,
	ScaStatusExempted:          true,
}

// scaTransitions encodes the forward edges of the authorisation state machine.
// The embedded path walks received -> psuIdentified -> psuAuthenticated ->
// scaMethodSelected -> finalised; a single available SCA method shortcuts
// psuAuthenticated -> finalised; starting a decoupled flow jumps any
// pre-terminal status to scaMethodSelected. Failure edges are handled
// separately: every non-terminal status may move to failed.
var scaTransitions = map[ScaStatus][]ScaStatus{
	ScaStatusReceived:          {ScaStatusPsuIdentified, ScaStatusPsuAuthenticated, ScaStatusScaMethodSelected, ScaStatusStarted, ScaStatusExempted},
	ScaStatusStarted:           {ScaStatusPsuIdentified, ScaStatusPsuAuthenticated, ScaStatusScaMethodSelected},
	ScaStatusPsuIdentified:     {ScaStatusPsuAuthenticated, ScaStatusScaMethodSelected, ScaStatusExempted},
	ScaStatusPsuAuthenticated:  {ScaStatusScaMethodSelected, ScaStatusFinalised, ScaStatusExempted},
	ScaStatusScaMethodSelected: {ScaStatusUnconfirmed, ScaStatusFinalised},
	ScaStatusUnconfirmed:       {ScaStatusFinalised},
}

// ParseScaStatus constructs a ScaStatus from external input.
//
// Errors: returns CodeInvalidInput when the value is empty or unsupported.
func ParseScaStatus(s string) (ScaStatus, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "sca status cannot be empty")
	}
	st := ScaStatus(s)
	if !validScaStatuses[st] {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid sca status")
	}
	return st, nil
}

// IsValid checks if the status is one of the supported enum values.
func (s ScaStatus) IsValid() bool {
	return validScaStatuses[s]
}

// IsTerminal reports whether the authorisation accepts further PSU input.
func (s ScaStatus) IsTerminal() bool {
	return s == ScaStatusFinalised || s == ScaStatusFailed || s == ScaStatusExempted
}

// CanTransitionTo reports whether moving from s to next is a legal step.
// Staying on the same status is always allowed (idempotent re-apply), and any
// non-terminal status may fail.
func (s ScaStatus) CanTransitionTo(next ScaStatus) bool {
	if s.IsTerminal() {
		return false
	}
	if next == s {
		return true
	}
	if next == ScaStatusFailed {
		return true
	}
	for _, allowed := range scaTransitions[s] {
		if next == allowed {
			return true
		}
	}
	return false
}

// String returns the string representation of the status.
func (s ScaStatus) String() string {
	return string(s)
}
