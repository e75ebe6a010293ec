package spi

import (
	"context"

	id "xs2a/pkg/domain"
)

// ConsentAdapter is the SPI surface for AIS consent authorisation. The bank
// implements it against its core systems; everything here may block on I/O
// and must honour the context.
type ConsentAdapter interface {
	// AuthorisePsu validates the PSU's credentials for the consent.
	AuthorisePsu(ctx context.Context, contextData ContextData, consentID id.ConsentID, password string) Response[AuthorisePsuResponse]

	// RequestAvailableScaMethods lists the SCA methods offered to this PSU.
	RequestAvailableScaMethods(ctx context.Context, contextData ContextData, consentID id.ConsentID) Response[AvailableMethodsResponse]

	// RequestAuthorisationCode triggers challenge generation for a chosen method.
	RequestAuthorisationCode(ctx context.Context, contextData ContextData, consentID id.ConsentID, methodID string) Response[SelectMethodResponse]

	// VerifyScaAuthorisation checks the submitted authentication code and, on
	// success, reports the resulting consent status.
	VerifyScaAuthorisation(ctx context.Context, contextData ContextData, confirmation ScaConfirmation) Response[VerifyConsentResponse]

	// StartScaDecoupled triggers out-of-band confirmation, optionally with a
	// pre-chosen authentication method.
	StartScaDecoupled(ctx context.Context, contextData ContextData, authorisationID id.AuthorisationID, methodID string) Response[StartDecoupledResponse]
}

// PaymentAdapter is the SPI surface for PIS payment authorisation.
type PaymentAdapter interface {
	AuthorisePsu(ctx context.Context, contextData ContextData, paymentID id.PaymentID, password string) Response[AuthorisePsuResponse]
	RequestAvailableScaMethods(ctx context.Context, contextData ContextData, paymentID id.PaymentID) Response[AvailableMethodsResponse]
	RequestAuthorisationCode(ctx context.Context, contextData ContextData, paymentID id.PaymentID, methodID string) Response[SelectMethodResponse]

	// VerifyScaAuthorisationAndExecutePayment checks the code and, on success,
	// submits the payment for execution, reporting the transaction status.
	VerifyScaAuthorisationAndExecutePayment(ctx context.Context, contextData ContextData, confirmation ScaConfirmation) Response[VerifyPaymentResponse]

	StartScaDecoupled(ctx context.Context, contextData ContextData, authorisationID id.AuthorisationID, methodID string) Response[StartDecoupledResponse]
}

// CancellationAdapter is the SPI surface for authorising payment cancellation.
type CancellationAdapter interface {
	AuthorisePsu(ctx context.Context, contextData ContextData, paymentID id.PaymentID, password string) Response[AuthorisePsuResponse]
	RequestAvailableScaMethods(ctx context.Context, contextData ContextData, paymentID id.PaymentID) Response[AvailableMethodsResponse]
	RequestAuthorisationCode(ctx context.Context, contextData ContextData, paymentID id.PaymentID, methodID string) Response[SelectMethodResponse]

	// VerifyScaAuthorisationAndCancelPayment checks the code and, on success,
	// cancels the payment, reporting the transaction status.
	VerifyScaAuthorisationAndCancelPayment(ctx context.Context, contextData ContextData, confirmation ScaConfirmation) Response[VerifyPaymentResponse]

	StartScaDecoupled(ctx context.Context, contextData ContextData, authorisationID id.AuthorisationID, methodID string) Response[StartDecoupledResponse]
}

// FundsAdapter answers PIIS funds-confirmation checks.
type FundsAdapter interface {
	PerformFundsConfirmation(ctx context.Context, contextData ContextData, consentID id.ConsentID, accountIBAN string, amount string, currency string) Response[FundsConfirmationResponse]
}
