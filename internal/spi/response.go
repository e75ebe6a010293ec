package spi

import id "xs2a/pkg/domain"

// Status categorizes an adapter outcome. The bank adapter classifies its own
// failures; the error mapper translates the category, never the cause.
type Status string

const (
	StatusSuccess             Status = "SUCCESS"
	StatusLogicalFailure      Status = "LOGICAL_FAILURE"
	StatusTechnicalFailure    Status = "TECHNICAL_FAILURE"
	StatusUnauthorizedFailure Status = "UNAUTHORIZED_FAILURE"
	StatusNotSupported        Status = "NOT_SUPPORTED"
)

// Response is the tagged result of one adapter operation: either a payload on
// success or a failure category with optional messages.
type Response[T any] struct {
	Payload  T
	Status   Status
	Messages []string
}

// Success wraps a payload in a successful response.
func Success[T any](payload T) Response[T] {
	return Response[T]{Payload: payload, Status: StatusSuccess}
}

// Failure builds a failed response with a category and messages.
func Failure[T any](status Status, messages ...string) Response[T] {
	return Response[T]{Status: status, Messages: messages}
}

// IsSuccessful reports whether the payload may be read.
func (r Response[T]) IsSuccessful() bool {
	return r.Status == StatusSuccess
}

// Adapter payloads. Each carries exactly what the stage needs to compute the
// next SCA status; interpretation happens in the stage handlers.

// AuthorisePsuResponse reports the outcome of PSU credential validation.
type AuthorisePsuResponse struct {
	ScaStatus  id.ScaStatus
	PsuMessage string
}

// AvailableMethodsResponse lists the SCA methods the ASPSP offers this PSU.
type AvailableMethodsResponse struct {
	Methods []AuthenticationObject
}

// SelectMethodResponse carries the challenge for the chosen SCA method.
type SelectMethodResponse struct {
	Challenge  *ChallengeData
	PsuMessage string
}

// VerifyConsentResponse is the result of verifying SCA on a consent.
type VerifyConsentResponse struct {
	ConsentStatus string
	PsuMessage    string
}

// VerifyPaymentResponse is the result of verifying SCA and executing or
// cancelling a payment.
type VerifyPaymentResponse struct {
	TransactionStatus string
	PsuMessage        string
}

// StartDecoupledResponse acknowledges that an out-of-band confirmation was
// triggered on the PSU's device.
type StartDecoupledResponse struct {
	PsuMessage string
}

// FundsConfirmationResponse answers a PIIS availability check.
type FundsConfirmationResponse struct {
	FundsAvailable bool
}
