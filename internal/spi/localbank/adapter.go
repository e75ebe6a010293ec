// Package localbank is a self-contained SPI adapter for development and
// demos. It accepts any PSU whose password matches the configured value,
// offers a single SMS OTP method and verifies against a static TAN. Real
// deployments replace it with an adapter talking to the bank's core systems.
package localbank

import (
	"context"

	"xs2a/internal/spi"
	id "xs2a/pkg/domain"
)

// Adapter implements all four SPI surfaces against in-process rules.
type Adapter struct {
	password string
	tan      string
	methods  []spi.AuthenticationObject
}

// New builds the adapter. Empty password or tan fall back to the demo
// defaults "12345".
func New(password, tan string) *Adapter {
	if password == "" {
		password = "12345"
	}
	if tan == "" {
		tan = "12345"
	}
	return &Adapter{
		password: password,
		tan:      tan,
		methods: []spi.AuthenticationObject{
			{ID: "sms-otp", Type: "SMS_OTP", Name: "SMS one-time password"},
		},
	}
}

func (a *Adapter) authorise(password string) spi.Response[spi.AuthorisePsuResponse] {
	if password != a.password {
		return spi.Success(spi.AuthorisePsuResponse{
			ScaStatus:  id.ScaStatusFailed,
			PsuMessage: "invalid credentials",
		})
	}
	return spi.Success(spi.AuthorisePsuResponse{ScaStatus: id.ScaStatusPsuAuthenticated})
}

func (a *Adapter) availableMethods() spi.Response[spi.AvailableMethodsResponse] {
	return spi.Success(spi.AvailableMethodsResponse{Methods: a.methods})
}

func (a *Adapter) authorisationCode(methodID string) spi.Response[spi.SelectMethodResponse] {
	for _, m := range a.methods {
		if m.ID == methodID {
			return spi.Success(spi.SelectMethodResponse{
				Challenge:  &spi.ChallengeData{OtpMaxLength: 5, OtpFormat: "integer"},
				PsuMessage: "enter the code sent to your phone",
			})
		}
	}
	return spi.Failure[spi.SelectMethodResponse](spi.StatusLogicalFailure, "unknown authentication method")
}

func (a *Adapter) verify(tan string) bool {
	return tan == a.tan
}

func (a *Adapter) startDecoupled() spi.Response[spi.StartDecoupledResponse] {
	return spi.Success(spi.StartDecoupledResponse{PsuMessage: "please confirm in your banking app"})
}

// ConsentAdapter surface.

func (a *Adapter) AuthorisePsu(_ context.Context, _ spi.ContextData, _ id.ConsentID, password string) spi.Response[spi.AuthorisePsuResponse] {
	return a.authorise(password)
}

func (a *Adapter) RequestAvailableScaMethods(_ context.Context, _ spi.ContextData, _ id.ConsentID) spi.Response[spi.AvailableMethodsResponse] {
	return a.availableMethods()
}

func (a *Adapter) RequestAuthorisationCode(_ context.Context, _ spi.ContextData, _ id.ConsentID, methodID string) spi.Response[spi.SelectMethodResponse] {
	return a.authorisationCode(methodID)
}

func (a *Adapter) VerifyScaAuthorisation(_ context.Context, _ spi.ContextData, confirmation spi.ScaConfirmation) spi.Response[spi.VerifyConsentResponse] {
	if !a.verify(confirmation.TanNumber) {
		return spi.Failure[spi.VerifyConsentResponse](spi.StatusUnauthorizedFailure, "authentication code mismatch")
	}
	return spi.Success(spi.VerifyConsentResponse{ConsentStatus: "valid"})
}

func (a *Adapter) StartScaDecoupled(_ context.Context, _ spi.ContextData, _ id.AuthorisationID, _ string) spi.Response[spi.StartDecoupledResponse] {
	return a.startDecoupled()
}

func (a *Adapter) PerformFundsConfirmation(_ context.Context, _ spi.ContextData, _ id.ConsentID, _ string, _ string, _ string) spi.Response[spi.FundsConfirmationResponse] {
	return spi.Success(spi.FundsConfirmationResponse{FundsAvailable: true})
}

// PaymentAdapter wraps Adapter with the payment-keyed operations. Execution
// reports ACSP, cancellation CANC.
type PaymentAdapter struct {
	*Adapter
	verifiedStatus string
}

// NewPayment builds the PIS surface over the shared rules.
func NewPayment(base *Adapter) *PaymentAdapter {
	return &PaymentAdapter{Adapter: base, verifiedStatus: "ACSP"}
}

// NewCancellation builds the cancellation surface over the shared rules.
func NewCancellation(base *Adapter) *PaymentAdapter {
	return &PaymentAdapter{Adapter: base, verifiedStatus: "CANC"}
}

func (a *PaymentAdapter) AuthorisePsu(_ context.Context, _ spi.ContextData, _ id.PaymentID, password string) spi.Response[spi.AuthorisePsuResponse] {
	return a.authorise(password)
}

func (a *PaymentAdapter) RequestAvailableScaMethods(_ context.Context, _ spi.ContextData, _ id.PaymentID) spi.Response[spi.AvailableMethodsResponse] {
	return a.availableMethods()
}

func (a *PaymentAdapter) RequestAuthorisationCode(_ context.Context, _ spi.ContextData, _ id.PaymentID, methodID string) spi.Response[spi.SelectMethodResponse] {
	return a.authorisationCode(methodID)
}

func (a *PaymentAdapter) verifyPayment(confirmation spi.ScaConfirmation) spi.Response[spi.VerifyPaymentResponse] {
	if !a.verify(confirmation.TanNumber) {
		return spi.Failure[spi.VerifyPaymentResponse](spi.StatusUnauthorizedFailure, "authentication code mismatch")
	}
	return spi.Success(spi.VerifyPaymentResponse{TransactionStatus: a.verifiedStatus})
}

func (a *PaymentAdapter) VerifyScaAuthorisationAndExecutePayment(_ context.Context, _ spi.ContextData, confirmation spi.ScaConfirmation) spi.Response[spi.VerifyPaymentResponse] {
	return a.verifyPayment(confirmation)
}

func (a *PaymentAdapter) VerifyScaAuthorisationAndCancelPayment(_ context.Context, _ spi.ContextData, confirmation spi.ScaConfirmation) spi.Response[spi.VerifyPaymentResponse] {
	return a.verifyPayment(confirmation)
}
