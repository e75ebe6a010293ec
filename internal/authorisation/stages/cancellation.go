package stages

import (
	"net/http"

	"xs2a/internal/payment"
	id "xs2a/pkg/domain"
	msgErrors "xs2a/pkg/message-errors"
)

// Cancellation authorisation is the payment flow with the cancel verify
// operation: a finalised payment cannot be cancelled, and an SCA exemption
// cancels it directly.
func registerCancellation(r *Resolver, deps *Deps, coordinator *DecoupledCoordinator) {
	p := paymentStages{
		deps:         deps,
		coordinator:  coordinator,
		service:      id.ServicePISCancellation,
		adapter:      deps.CancellationAdapter,
		verify:       deps.CancellationAdapter.VerifyScaAuthorisationAndCancelPayment,
		exemptStatus: payment.StatusCancelled,
		checkPayment: func(owner *payment.Payment) *msgErrors.ErrorHolder {
			if !owner.IsCancellable() {
				holder := msgErrors.NewErrorHolder(
					msgErrors.ForService(id.ServicePISCancellation, http.StatusBadRequest),
					msgErrors.NewTppMessage(msgErrors.CodeCancellationInvalid, ""),
				)
				return &holder
			}
			return nil
		},
	}
	p.registerAll(r)
}
