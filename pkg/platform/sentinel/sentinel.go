package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and caches return these
// (optionally wrapped) so services can translate them into domain errors or
// protocol error holders.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: authorisation/consent/payment does not exist in the store
// - ErrExpired: redirect session or authorisation has passed its expiry
// - ErrTerminal: authorisation is finalised or failed and rejects mutation
// - ErrInvalidTransition: requested SCA status move breaks the state machine
// - ErrUnavailable: backing service temporarily unreachable
//
// For validation errors (bad input, missing fields), use pkg/domain-errors.
var (
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrExpired           = errors.New("expired")
	ErrTerminal          = errors.New("terminal status")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrUnavailable       = errors.New("unavailable")
)
