package stages

import (
	"context"
	"io"
	"log/slog"

	"xs2a/internal/consent"
	"xs2a/internal/spi"
	id "xs2a/pkg/domain"
)

// fakeConsentAdapter records every call and delegates to per-operation
// functions. Operations without a configured function fail technically, so a
// test that forgot to stub a path surfaces as an unexpected failure instead
// of a panic.
type fakeConsentAdapter struct {
	calls []string

	authorise func(consentID id.ConsentID, password string) spi.Response[spi.AuthorisePsuResponse]
	methods   func(consentID id.ConsentID) spi.Response[spi.AvailableMethodsResponse]
	code      func(consentID id.ConsentID, methodID string) spi.Response[spi.SelectMethodResponse]
	verify    func(confirmation spi.ScaConfirmation) spi.Response[spi.VerifyConsentResponse]
	decoupled func(authorisationID id.AuthorisationID, methodID string) spi.Response[spi.StartDecoupledResponse]
}

func (f *fakeConsentAdapter) AuthorisePsu(_ context.Context, _ spi.ContextData, consentID id.ConsentID, password string) spi.Response[spi.AuthorisePsuResponse] {
	f.calls = append(f.calls, "AuthorisePsu")
	if f.authorise == nil {
		return spi.Failure[spi.AuthorisePsuResponse](spi.StatusTechnicalFailure, "not stubbed")
	}
	return f.authorise(consentID, password)
}

func (f *fakeConsentAdapter) RequestAvailableScaMethods(_ context.Context, _ spi.ContextData, consentID id.ConsentID) spi.Response[spi.AvailableMethodsResponse] {
	f.calls = append(f.calls, "RequestAvailableScaMethods")
	if f.methods == nil {
		return spi.Failure[spi.AvailableMethodsResponse](spi.StatusTechnicalFailure, "not stubbed")
	}
	return f.methods(consentID)
}

func (f *fakeConsentAdapter) RequestAuthorisationCode(_ context.Context, _ spi.ContextData, consentID id.ConsentID, methodID string) spi.Response[spi.SelectMethodResponse] {
	f.calls = append(f.calls, "RequestAuthorisationCode")
	if f.code == nil {
		return spi.Failure[spi.SelectMethodResponse](spi.StatusTechnicalFailure, "not stubbed")
	}
	return f.code(consentID, methodID)
}

func (f *fakeConsentAdapter) VerifyScaAuthorisation(_ context.Context, _ spi.ContextData, confirmation spi.ScaConfirmation) spi.Response[spi.VerifyConsentResponse] {
	f.calls = append(f.calls, "VerifyScaAuthorisation")
	if f.verify == nil {
		return spi.Failure[spi.VerifyConsentResponse](spi.StatusTechnicalFailure, "not stubbed")
	}
	return f.verify(confirmation)
}

func (f *fakeConsentAdapter) StartScaDecoupled(_ context.Context, _ spi.ContextData, authorisationID id.AuthorisationID, methodID string) spi.Response[spi.StartDecoupledResponse] {
	f.calls = append(f.calls, "StartScaDecoupled")
	if f.decoupled == nil {
		return spi.Failure[spi.StartDecoupledResponse](spi.StatusTechnicalFailure, "not stubbed")
	}
	return f.decoupled(authorisationID, methodID)
}

// fakePaymentAdapter covers both the payment and the cancellation adapter
// surfaces; tests distinguish the verify paths through the execute and
// cancel functions.
type fakePaymentAdapter struct {
	calls []string

	authorise func(paymentID id.PaymentID, password string) spi.Response[spi.AuthorisePsuResponse]
	methods   func(paymentID id.PaymentID) spi.Response[spi.AvailableMethodsResponse]
	code      func(paymentID id.PaymentID, methodID string) spi.Response[spi.SelectMethodResponse]
	execute   func(confirmation spi.ScaConfirmation) spi.Response[spi.VerifyPaymentResponse]
	cancel    func(confirmation spi.ScaConfirmation) spi.Response[spi.VerifyPaymentResponse]
	decoupled func(authorisationID id.AuthorisationID, methodID string) spi.Response[spi.StartDecoupledResponse]
}

func (f *fakePaymentAdapter) AuthorisePsu(_ context.Context, _ spi.ContextData, paymentID id.PaymentID, password string) spi.Response[spi.AuthorisePsuResponse] {
	f.calls = append(f.calls, "AuthorisePsu")
	if f.authorise == nil {
		return spi.Failure[spi.AuthorisePsuResponse](spi.StatusTechnicalFailure, "not stubbed")
	}
	return f.authorise(paymentID, password)
}

func (f *fakePaymentAdapter) RequestAvailableScaMethods(_ context.Context, _ spi.ContextData, paymentID id.PaymentID) spi.Response[spi.AvailableMethodsResponse] {
	f.calls = append(f.calls, "RequestAvailableScaMethods")
	if f.methods == nil {
		return spi.Failure[spi.AvailableMethodsResponse](spi.StatusTechnicalFailure, "not stubbed")
	}
	return f.methods(paymentID)
}

func (f *fakePaymentAdapter) RequestAuthorisationCode(_ context.Context, _ spi.ContextData, paymentID id.PaymentID, methodID string) spi.Response[spi.SelectMethodResponse] {
	f.calls = append(f.calls, "RequestAuthorisationCode")
	if f.code == nil {
		return spi.Failure[spi.SelectMethodResponse](spi.StatusTechnicalFailure, "not stubbed")
	}
	return f.code(paymentID, methodID)
}

func (f *fakePaymentAdapter) VerifyScaAuthorisationAndExecutePayment(_ context.Context, _ spi.ContextData, confirmation spi.ScaConfirmation) spi.Response[spi.VerifyPaymentResponse] {
	f.calls = append(f.calls, "VerifyScaAuthorisationAndExecutePayment")
	if f.execute == nil {
		return spi.Failure[spi.VerifyPaymentResponse](spi.StatusTechnicalFailure, "not stubbed")
	}
	return f.execute(confirmation)
}

func (f *fakePaymentAdapter) VerifyScaAuthorisationAndCancelPayment(_ context.Context, _ spi.ContextData, confirmation spi.ScaConfirmation) spi.Response[spi.VerifyPaymentResponse] {
	f.calls = append(f.calls, "VerifyScaAuthorisationAndCancelPayment")
	if f.cancel == nil {
		return spi.Failure[spi.VerifyPaymentResponse](spi.StatusTechnicalFailure, "not stubbed")
	}
	return f.cancel(confirmation)
}

func (f *fakePaymentAdapter) StartScaDecoupled(_ context.Context, _ spi.ContextData, authorisationID id.AuthorisationID, methodID string) spi.Response[spi.StartDecoupledResponse] {
	f.calls = append(f.calls, "StartScaDecoupled")
	if f.decoupled == nil {
		return spi.Failure[spi.StartDecoupledResponse](spi.StatusTechnicalFailure, "not stubbed")
	}
	return f.decoupled(authorisationID, methodID)
}

// recordingConsentStore wraps a consent store and logs the mutating calls so
// tests can assert write ordering.
type recordingConsentStore struct {
	consent.Store
	ops *[]string
}

func (r recordingConsentStore) UpdateStatus(ctx context.Context, consentID id.ConsentID, status consent.Status) error {
	*r.ops = append(*r.ops, "UpdateStatus:"+status.String())
	return r.Store.UpdateStatus(ctx, consentID, status)
}

func (r recordingConsentStore) UpdateMultilevelScaRequired(ctx context.Context, consentID id.ConsentID, required bool) error {
	*r.ops = append(*r.ops, "UpdateMultilevelScaRequired")
	return r.Store.UpdateMultilevelScaRequired(ctx, consentID, required)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
