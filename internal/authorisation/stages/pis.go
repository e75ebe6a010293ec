package stages

import (
	"context"

	"xs2a/internal/authorisation"
	"xs2a/internal/payment"
	"xs2a/internal/spi"
	id "xs2a/pkg/domain"
	dErrors "xs2a/pkg/domain-errors"
	msgErrors "xs2a/pkg/message-errors"
	txcontext "xs2a/pkg/platform/tx"
	"xs2a/pkg/requestcontext"
)

// paymentFlowAdapter is the adapter surface shared by payment authorisation
// and payment cancellation; only the verify operation differs between the
// two, so it is passed separately.
type paymentFlowAdapter interface {
	AuthorisePsu(ctx context.Context, contextData spi.ContextData, paymentID id.PaymentID, password string) spi.Response[spi.AuthorisePsuResponse]
	RequestAvailableScaMethods(ctx context.Context, contextData spi.ContextData, paymentID id.PaymentID) spi.Response[spi.AvailableMethodsResponse]
	RequestAuthorisationCode(ctx context.Context, contextData spi.ContextData, paymentID id.PaymentID, methodID string) spi.Response[spi.SelectMethodResponse]
	StartScaDecoupled(ctx context.Context, contextData spi.ContextData, authorisationID id.AuthorisationID, methodID string) spi.Response[spi.StartDecoupledResponse]
}

// paymentStages builds the handlers for flows owning a payment: PIS
// authorisation and PIS cancellation share everything except the verify
// operation, the SCA-exemption outcome and an extra cancellability check.
type paymentStages struct {
	deps        *Deps
	coordinator *DecoupledCoordinator
	service     id.ServiceType
	adapter     paymentFlowAdapter

	verify func(ctx context.Context, contextData spi.ContextData, confirmation spi.ScaConfirmation) spi.Response[spi.VerifyPaymentResponse]

	// exemptStatus is the transaction status applied when the adapter exempts
	// the flow from SCA.
	exemptStatus payment.TransactionStatus

	// checkPayment runs service-specific precondition checks on the owning
	// payment. Optional.
	checkPayment func(p *payment.Payment) *msgErrors.ErrorHolder
}

func registerPis(r *Resolver, deps *Deps, coordinator *DecoupledCoordinator) {
	p := paymentStages{
		deps:        deps,
		coordinator: coordinator,
		service:     id.ServicePIS,
		adapter:     deps.PaymentAdapter,
		verify:      deps.PaymentAdapter.VerifyScaAuthorisationAndExecutePayment,
		// Exemption accepts the payment after technical validation; execution
		// proceeds without SCA.
		exemptStatus: payment.StatusAcceptedTechnical,
	}
	p.registerAll(r)
}

func (p paymentStages) registerAll(r *Resolver) {
	embedded := map[id.ScaStatus]authorisation.StageHandler{
		id.ScaStatusReceived:          p.received(),
		id.ScaStatusPsuIdentified:     p.psuIdentified(),
		id.ScaStatusPsuAuthenticated:  p.psuAuthenticated(),
		id.ScaStatusScaMethodSelected: p.scaMethodSelected(),
	}
	for status, h := range embedded {
		r.register(p.service, id.ScaApproachEmbedded, status, h)
		r.register(p.service, id.ScaApproachRedirect, status, h)
	}

	r.register(p.service, id.ScaApproachDecoupled, id.ScaStatusReceived, p.receivedDecoupled())
	r.register(p.service, id.ScaApproachDecoupled, id.ScaStatusPsuIdentified, p.psuIdentifiedDecoupled())
	r.register(p.service, id.ScaApproachDecoupled, id.ScaStatusPsuAuthenticated, p.psuAuthenticatedDecoupled())
	r.register(p.service, id.ScaApproachDecoupled, id.ScaStatusScaMethodSelected, p.scaMethodSelected())
}

func (p paymentStages) resolveOwner(ctx context.Context, req authorisation.UpdateRequest) (*payment.Payment, error) {
	paymentID, err := id.ParsePaymentID(req.ResourceID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "payment not found")
	}
	return p.deps.Payments.GetPayment(ctx, paymentID)
}

func (p paymentStages) validateIdentity(owner *payment.Payment, record *authorisation.Record, req authorisation.UpdateRequest) *msgErrors.ErrorHolder {
	if req.Psu.IsEmpty() {
		holder := validationFailure(p.service, msgErrors.CodeFormatError, "PSU identification data is required")
		return &holder
	}
	if !record.Psu.IsEmpty() && !req.Psu.Matches(record.Psu) {
		holder := psuMismatch(p.service)
		return &holder
	}
	if len(owner.PsuIDs) > 0 && !owner.HasPsu(req.Psu.PsuID) {
		holder := psuMismatch(p.service)
		return &holder
	}
	if p.checkPayment != nil {
		return p.checkPayment(owner)
	}
	return nil
}

func (p paymentStages) identifyOnly(ctx context.Context, _ *payment.Payment, record *authorisation.Record, req authorisation.UpdateRequest) (*authorisation.Response, error) {
	if req.Password != "" {
		return nil, nil
	}
	record.Psu = req.Psu
	if err := record.ApplyStatus(id.ScaStatusPsuIdentified, requestcontext.Now(ctx)); err != nil {
		return nil, err
	}
	return &authorisation.Response{
		ScaStatus:       id.ScaStatusPsuIdentified,
		ResourceID:      req.ResourceID,
		AuthorisationID: req.AuthorisationID,
	}, nil
}

func (p paymentStages) invokeAuthorisePsu(ctx context.Context, data spi.ContextData, owner *payment.Payment, _ *authorisation.Record, req authorisation.UpdateRequest) spi.Response[spi.AuthorisePsuResponse] {
	return p.adapter.AuthorisePsu(ctx, data, owner.ID, req.Password)
}

func (p paymentStages) received() authorisation.StageHandler {
	return &stage[*payment.Payment, spi.AuthorisePsuResponse]{
		deps:         p.deps,
		service:      p.service,
		operation:    "AuthorisePsu",
		resolveOwner: p.resolveOwner,
		validate:     p.validateIdentity,
		complete:     p.identifyOnly,
		invoke:       p.invokeAuthorisePsu,
		interpret:    p.interpretAuthentication,
	}
}

func (p paymentStages) psuIdentified() authorisation.StageHandler {
	return &stage[*payment.Payment, spi.AuthorisePsuResponse]{
		deps:         p.deps,
		service:      p.service,
		operation:    "AuthorisePsu",
		resolveOwner: p.resolveOwner,
		validate:     p.validateCredentials,
		invoke:       p.invokeAuthorisePsu,
		interpret:    p.interpretAuthentication,
	}
}

func (p paymentStages) psuAuthenticated() authorisation.StageHandler {
	return &stage[*payment.Payment, spi.SelectMethodResponse]{
		deps:         p.deps,
		service:      p.service,
		operation:    "RequestAuthorisationCode",
		resolveOwner: p.resolveOwner,
		validate:     p.validateMethodChoice,
		complete: func(ctx context.Context, owner *payment.Payment, record *authorisation.Record, req authorisation.UpdateRequest) (*authorisation.Response, error) {
			out, err := p.selectMethod(ctx, owner, record, req, record.AvailableMethods, req.AuthenticationMethodID, "")
			if err != nil {
				return nil, err
			}
			return &out, nil
		},
	}
}

func (p paymentStages) scaMethodSelected() authorisation.StageHandler {
	return &stage[*payment.Payment, spi.VerifyPaymentResponse]{
		deps:         p.deps,
		service:      p.service,
		operation:    "VerifyScaAuthorisation",
		resolveOwner: p.resolveOwner,
		validate:     validateAuthenticationData[*payment.Payment](p.service),
		invoke: func(ctx context.Context, data spi.ContextData, owner *payment.Payment, record *authorisation.Record, req authorisation.UpdateRequest) spi.Response[spi.VerifyPaymentResponse] {
			return p.verify(ctx, data, spi.ScaConfirmation{
				AuthorisationID: record.ID,
				OwnerID:         owner.ID.String(),
				MethodID:        record.ChosenMethodID,
				TanNumber:       req.ScaAuthenticationData,
			})
		},
		interpret: p.interpretVerification,
	}
}

func (p paymentStages) receivedDecoupled() authorisation.StageHandler {
	return &stage[*payment.Payment, spi.AuthorisePsuResponse]{
		deps:         p.deps,
		service:      p.service,
		operation:    "AuthorisePsu",
		resolveOwner: p.resolveOwner,
		validate:     p.validateIdentity,
		complete:     p.identifyOnly,
		invoke:       p.invokeAuthorisePsu,
		interpret:    p.interpretAuthenticationDecoupled,
	}
}

func (p paymentStages) psuIdentifiedDecoupled() authorisation.StageHandler {
	return &stage[*payment.Payment, spi.AuthorisePsuResponse]{
		deps:         p.deps,
		service:      p.service,
		operation:    "AuthorisePsu",
		resolveOwner: p.resolveOwner,
		validate:     p.validateCredentials,
		invoke:       p.invokeAuthorisePsu,
		interpret:    p.interpretAuthenticationDecoupled,
	}
}

func (p paymentStages) psuAuthenticatedDecoupled() authorisation.StageHandler {
	return &stage[*payment.Payment, spi.StartDecoupledResponse]{
		deps:         p.deps,
		service:      p.service,
		operation:    "StartScaDecoupled",
		resolveOwner: p.resolveOwner,
		validate:     p.validateMethodChoice,
		complete: func(ctx context.Context, _ *payment.Payment, record *authorisation.Record, req authorisation.UpdateRequest) (*authorisation.Response, error) {
			out, err := p.coordinator.Proceed(ctx, p.service, p.adapter, record, req, req.AuthenticationMethodID)
			if err != nil {
				return nil, err
			}
			return &out, nil
		},
	}
}

func (p paymentStages) validateCredentials(owner *payment.Payment, record *authorisation.Record, req authorisation.UpdateRequest) *msgErrors.ErrorHolder {
	if req.Password == "" {
		holder := validationFailure(p.service, msgErrors.CodeFormatError, "PSU password is required")
		return &holder
	}
	return p.validateIdentity(owner, record, req)
}

func (p paymentStages) validateMethodChoice(_ *payment.Payment, record *authorisation.Record, req authorisation.UpdateRequest) *msgErrors.ErrorHolder {
	if req.AuthenticationMethodID == "" {
		holder := validationFailure(p.service, msgErrors.CodeFormatError, "authentication method id is required")
		return &holder
	}
	if len(record.AvailableMethods) > 0 && !methodKnown(record.AvailableMethods, req.AuthenticationMethodID) {
		holder := validationFailure(p.service, msgErrors.CodeScaMethodUnknown, "")
		return &holder
	}
	return nil
}

func (p paymentStages) interpretAuthentication(ctx context.Context, owner *payment.Payment, record *authorisation.Record, req authorisation.UpdateRequest, payload spi.AuthorisePsuResponse) (authorisation.Response, error) {
	now := requestcontext.Now(ctx)
	if record.Psu.IsEmpty() {
		record.Psu = req.Psu
	}

	if payload.ScaStatus == id.ScaStatusFailed {
		return authorisation.Failed(req, psuMismatch(p.service)), nil
	}

	if payload.ScaStatus == id.ScaStatusExempted && p.deps.Settings.ScaExemptionAllowed {
		if err := record.ApplyStatus(id.ScaStatusExempted, now); err != nil {
			return authorisation.Response{}, err
		}
		if err := p.deps.Payments.UpdatePaymentStatus(ctx, owner.ID, p.exemptStatus); err != nil {
			return authorisation.Response{}, err
		}
		return authorisation.Response{
			ScaStatus:       id.ScaStatusExempted,
			ResourceID:      req.ResourceID,
			AuthorisationID: req.AuthorisationID,
			PsuMessage:      payload.PsuMessage,
		}, nil
	}

	data := p.deps.contextData(ctx, record, req)
	methods := call(ctx, p.deps, p.service, "RequestAvailableScaMethods", func(ctx context.Context) spi.Response[spi.AvailableMethodsResponse] {
		return p.adapter.RequestAvailableScaMethods(ctx, data, owner.ID)
	})
	if !methods.IsSuccessful() {
		return authorisation.Failed(req, spi.MapFailure(p.deps.Mapper, methods, p.service)), nil
	}

	available := methods.Payload.Methods
	switch len(available) {
	case 0:
		return authorisation.Failed(req, validationFailure(p.service, msgErrors.CodeScaMethodUnknown,
			"no SCA methods are available for the PSU")), nil
	case 1:
		return p.selectMethod(ctx, owner, record, req, available, available[0].ID, payload.PsuMessage)
	default:
		record.AvailableMethods = available
		if err := record.ApplyStatus(id.ScaStatusPsuAuthenticated, now); err != nil {
			return authorisation.Response{}, err
		}
		return authorisation.Response{
			ScaStatus:        id.ScaStatusPsuAuthenticated,
			ResourceID:       req.ResourceID,
			AuthorisationID:  req.AuthorisationID,
			AvailableMethods: available,
			PsuMessage:       payload.PsuMessage,
		}, nil
	}
}

func (p paymentStages) interpretAuthenticationDecoupled(ctx context.Context, _ *payment.Payment, record *authorisation.Record, req authorisation.UpdateRequest, payload spi.AuthorisePsuResponse) (authorisation.Response, error) {
	if record.Psu.IsEmpty() {
		record.Psu = req.Psu
	}
	if payload.ScaStatus == id.ScaStatusFailed {
		return authorisation.Failed(req, psuMismatch(p.service)), nil
	}
	return p.coordinator.Proceed(ctx, p.service, p.adapter, record, req, req.AuthenticationMethodID)
}

func (p paymentStages) selectMethod(ctx context.Context, owner *payment.Payment, record *authorisation.Record, req authorisation.UpdateRequest, available []spi.AuthenticationObject, methodID, psuMessage string) (authorisation.Response, error) {
	data := p.deps.contextData(ctx, record, req)
	code := call(ctx, p.deps, p.service, "RequestAuthorisationCode", func(ctx context.Context) spi.Response[spi.SelectMethodResponse] {
		return p.adapter.RequestAuthorisationCode(ctx, data, owner.ID, methodID)
	})
	if !code.IsSuccessful() {
		return authorisation.Failed(req, spi.MapFailure(p.deps.Mapper, code, p.service)), nil
	}

	if len(available) > 0 {
		record.AvailableMethods = available
	}
	record.ChosenMethodID = methodID
	if err := record.ApplyStatus(id.ScaStatusScaMethodSelected, requestcontext.Now(ctx)); err != nil {
		return authorisation.Response{}, err
	}

	message := code.Payload.PsuMessage
	if message == "" {
		message = psuMessage
	}
	return authorisation.Response{
		ScaStatus:       id.ScaStatusScaMethodSelected,
		ResourceID:      req.ResourceID,
		AuthorisationID: req.AuthorisationID,
		ChosenScaMethod: methodByID(available, methodID),
		Challenge:       code.Payload.Challenge,
		PsuMessage:      message,
	}, nil
}

func (p paymentStages) interpretVerification(ctx context.Context, owner *payment.Payment, record *authorisation.Record, req authorisation.UpdateRequest, payload spi.VerifyPaymentResponse) (authorisation.Response, error) {
	status := payment.TransactionStatus(payload.TransactionStatus)
	if !status.IsValid() {
		return authorisation.Response{}, dErrors.New(dErrors.CodeInternal,
			"adapter reported unknown transaction status: "+payload.TransactionStatus)
	}

	// The multilevel flag and the status land together or not at all.
	err := txcontext.RunInTx(ctx, p.deps.DB, func(ctx context.Context) error {
		if status == payment.StatusPartiallyAuthorised && !owner.MultilevelScaRequired {
			if err := p.deps.Payments.UpdateMultilevelScaRequired(ctx, owner.ID, true); err != nil {
				return err
			}
		}
		return p.deps.Payments.UpdatePaymentStatus(ctx, owner.ID, status)
	})
	if err != nil {
		return authorisation.Response{}, err
	}

	if err := record.SetAuthenticationData(req.ScaAuthenticationData); err != nil {
		return authorisation.Response{}, err
	}
	if err := record.ApplyStatus(id.ScaStatusFinalised, requestcontext.Now(ctx)); err != nil {
		return authorisation.Response{}, err
	}
	return authorisation.Response{
		ScaStatus:       id.ScaStatusFinalised,
		ResourceID:      req.ResourceID,
		AuthorisationID: req.AuthorisationID,
		PsuMessage:      payload.PsuMessage,
	}, nil
}
