package stages

import (
	"context"

	"xs2a/internal/authorisation"
	"xs2a/internal/consent"
	"xs2a/internal/spi"
	id "xs2a/pkg/domain"
	dErrors "xs2a/pkg/domain-errors"
	msgErrors "xs2a/pkg/message-errors"
	txcontext "xs2a/pkg/platform/tx"
	"xs2a/pkg/requestcontext"
)

// aisStages builds the consent-authorisation handlers. The owning resource is
// the account consent; verification side effects go through the consent
// synchronizer.
type aisStages struct {
	deps        *Deps
	coordinator *DecoupledCoordinator
}

func registerAis(r *Resolver, deps *Deps, coordinator *DecoupledCoordinator) {
	a := aisStages{deps: deps, coordinator: coordinator}

	embedded := map[id.ScaStatus]authorisation.StageHandler{
		id.ScaStatusReceived:          a.received(),
		id.ScaStatusPsuIdentified:     a.psuIdentified(),
		id.ScaStatusPsuAuthenticated:  a.psuAuthenticated(),
		id.ScaStatusScaMethodSelected: a.scaMethodSelected(),
	}
	// Redirect authorisations accept the same inline updates; the redirect
	// session itself is issued at creation time.
	for status, h := range embedded {
		r.register(id.ServiceAIS, id.ScaApproachEmbedded, status, h)
		r.register(id.ServiceAIS, id.ScaApproachRedirect, status, h)
	}

	r.register(id.ServiceAIS, id.ScaApproachDecoupled, id.ScaStatusReceived, a.receivedDecoupled())
	r.register(id.ServiceAIS, id.ScaApproachDecoupled, id.ScaStatusPsuIdentified, a.psuIdentifiedDecoupled())
	r.register(id.ServiceAIS, id.ScaApproachDecoupled, id.ScaStatusPsuAuthenticated, a.psuAuthenticatedDecoupled())
	r.register(id.ServiceAIS, id.ScaApproachDecoupled, id.ScaStatusScaMethodSelected, a.scaMethodSelected())
}

func (a aisStages) resolveOwner(ctx context.Context, req authorisation.UpdateRequest) (*consent.AccountConsent, error) {
	consentID, err := id.ParseConsentID(req.ResourceID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "consent not found")
	}
	return a.deps.Consents.GetConsent(ctx, consentID)
}

// validateIdentity covers the identification steps: a PSU must be present and
// must match both the record and the consent's PSU list.
func (a aisStages) validateIdentity(c *consent.AccountConsent, record *authorisation.Record, req authorisation.UpdateRequest) *msgErrors.ErrorHolder {
	if req.Psu.IsEmpty() {
		holder := validationFailure(id.ServiceAIS, msgErrors.CodeFormatError, "PSU identification data is required")
		return &holder
	}
	if !record.Psu.IsEmpty() && !req.Psu.Matches(record.Psu) {
		holder := psuMismatch(id.ServiceAIS)
		return &holder
	}
	if len(c.PsuIDs) > 0 && !c.HasPsu(req.Psu.PsuID) {
		holder := psuMismatch(id.ServiceAIS)
		return &holder
	}
	return nil
}

// identifyOnly completes a credential-less update: record the PSU identity
// and stop at psuIdentified without calling the adapter.
func (a aisStages) identifyOnly(ctx context.Context, _ *consent.AccountConsent, record *authorisation.Record, req authorisation.UpdateRequest) (*authorisation.Response, error) {
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

func (a aisStages) invokeAuthorisePsu(ctx context.Context, data spi.ContextData, c *consent.AccountConsent, _ *authorisation.Record, req authorisation.UpdateRequest) spi.Response[spi.AuthorisePsuResponse] {
	return a.deps.ConsentAdapter.AuthorisePsu(ctx, data, c.ID, req.Password)
}

func (a aisStages) received() authorisation.StageHandler {
	return &stage[*consent.AccountConsent, spi.AuthorisePsuResponse]{
		deps:         a.deps,
		service:      id.ServiceAIS,
		operation:    "AuthorisePsu",
		resolveOwner: a.resolveOwner,
		validate:     a.validateIdentity,
		complete:     a.identifyOnly,
		invoke:       a.invokeAuthorisePsu,
		interpret:    a.interpretAuthentication,
	}
}

func (a aisStages) psuIdentified() authorisation.StageHandler {
	return &stage[*consent.AccountConsent, spi.AuthorisePsuResponse]{
		deps:         a.deps,
		service:      id.ServiceAIS,
		operation:    "AuthorisePsu",
		resolveOwner: a.resolveOwner,
		validate: func(c *consent.AccountConsent, record *authorisation.Record, req authorisation.UpdateRequest) *msgErrors.ErrorHolder {
			if req.Password == "" {
				holder := validationFailure(id.ServiceAIS, msgErrors.CodeFormatError, "PSU password is required")
				return &holder
			}
			return a.validateIdentity(c, record, req)
		},
		invoke:    a.invokeAuthorisePsu,
		interpret: a.interpretAuthentication,
	}
}

func (a aisStages) psuAuthenticated() authorisation.StageHandler {
	return &stage[*consent.AccountConsent, spi.SelectMethodResponse]{
		deps:         a.deps,
		service:      id.ServiceAIS,
		operation:    "RequestAuthorisationCode",
		resolveOwner: a.resolveOwner,
		validate:     a.validateMethodChoice,
		complete: func(ctx context.Context, c *consent.AccountConsent, record *authorisation.Record, req authorisation.UpdateRequest) (*authorisation.Response, error) {
			out, err := a.selectMethod(ctx, c, record, req, record.AvailableMethods, req.AuthenticationMethodID, "")
			if err != nil {
				return nil, err
			}
			return &out, nil
		},
	}
}

func (a aisStages) scaMethodSelected() authorisation.StageHandler {
	return &stage[*consent.AccountConsent, spi.VerifyConsentResponse]{
		deps:         a.deps,
		service:      id.ServiceAIS,
		operation:    "VerifyScaAuthorisation",
		resolveOwner: a.resolveOwner,
		validate:     validateAuthenticationData[*consent.AccountConsent](id.ServiceAIS),
		invoke: func(ctx context.Context, data spi.ContextData, c *consent.AccountConsent, record *authorisation.Record, req authorisation.UpdateRequest) spi.Response[spi.VerifyConsentResponse] {
			return a.deps.ConsentAdapter.VerifyScaAuthorisation(ctx, data, spi.ScaConfirmation{
				AuthorisationID: record.ID,
				OwnerID:         c.ID.String(),
				MethodID:        record.ChosenMethodID,
				TanNumber:       req.ScaAuthenticationData,
			})
		},
		interpret: a.interpretVerification,
	}
}

func (a aisStages) receivedDecoupled() authorisation.StageHandler {
	return &stage[*consent.AccountConsent, spi.AuthorisePsuResponse]{
		deps:         a.deps,
		service:      id.ServiceAIS,
		operation:    "AuthorisePsu",
		resolveOwner: a.resolveOwner,
		validate:     a.validateIdentity,
		complete:     a.identifyOnly,
		invoke:       a.invokeAuthorisePsu,
		interpret:    a.interpretAuthenticationDecoupled,
	}
}

func (a aisStages) psuIdentifiedDecoupled() authorisation.StageHandler {
	return &stage[*consent.AccountConsent, spi.AuthorisePsuResponse]{
		deps:         a.deps,
		service:      id.ServiceAIS,
		operation:    "AuthorisePsu",
		resolveOwner: a.resolveOwner,
		validate: func(c *consent.AccountConsent, record *authorisation.Record, req authorisation.UpdateRequest) *msgErrors.ErrorHolder {
			if req.Password == "" {
				holder := validationFailure(id.ServiceAIS, msgErrors.CodeFormatError, "PSU password is required")
				return &holder
			}
			return a.validateIdentity(c, record, req)
		},
		invoke:    a.invokeAuthorisePsu,
		interpret: a.interpretAuthenticationDecoupled,
	}
}

func (a aisStages) psuAuthenticatedDecoupled() authorisation.StageHandler {
	return &stage[*consent.AccountConsent, spi.StartDecoupledResponse]{
		deps:         a.deps,
		service:      id.ServiceAIS,
		operation:    "StartScaDecoupled",
		resolveOwner: a.resolveOwner,
		validate:     a.validateMethodChoice,
		complete: func(ctx context.Context, _ *consent.AccountConsent, record *authorisation.Record, req authorisation.UpdateRequest) (*authorisation.Response, error) {
			out, err := a.coordinator.Proceed(ctx, id.ServiceAIS, a.deps.ConsentAdapter, record, req, req.AuthenticationMethodID)
			if err != nil {
				return nil, err
			}
			return &out, nil
		},
	}
}

func (a aisStages) validateMethodChoice(_ *consent.AccountConsent, record *authorisation.Record, req authorisation.UpdateRequest) *msgErrors.ErrorHolder {
	if req.AuthenticationMethodID == "" {
		holder := validationFailure(id.ServiceAIS, msgErrors.CodeFormatError, "authentication method id is required")
		return &holder
	}
	if len(record.AvailableMethods) > 0 && !methodKnown(record.AvailableMethods, req.AuthenticationMethodID) {
		holder := validationFailure(id.ServiceAIS, msgErrors.CodeScaMethodUnknown, "")
		return &holder
	}
	return nil
}

// interpretAuthentication handles a successful credential check on the
// embedded path: fetch the offered SCA methods and either present them, or
// shortcut straight to method selection when exactly one exists.
func (a aisStages) interpretAuthentication(ctx context.Context, c *consent.AccountConsent, record *authorisation.Record, req authorisation.UpdateRequest, payload spi.AuthorisePsuResponse) (authorisation.Response, error) {
	now := requestcontext.Now(ctx)
	if record.Psu.IsEmpty() {
		record.Psu = req.Psu
	}

	if payload.ScaStatus == id.ScaStatusFailed {
		return authorisation.Failed(req, psuMismatch(id.ServiceAIS)), nil
	}

	if payload.ScaStatus == id.ScaStatusExempted && a.deps.Settings.ScaExemptionAllowed {
		if err := record.ApplyStatus(id.ScaStatusExempted, now); err != nil {
			return authorisation.Response{}, err
		}
		if err := a.deps.Consents.UpdateConsentStatus(ctx, c.ID, consent.StatusValid); err != nil {
			return authorisation.Response{}, err
		}
		return authorisation.Response{
			ScaStatus:       id.ScaStatusExempted,
			ResourceID:      req.ResourceID,
			AuthorisationID: req.AuthorisationID,
			PsuMessage:      payload.PsuMessage,
		}, nil
	}

	data := a.deps.contextData(ctx, record, req)
	methods := call(ctx, a.deps, id.ServiceAIS, "RequestAvailableScaMethods", func(ctx context.Context) spi.Response[spi.AvailableMethodsResponse] {
		return a.deps.ConsentAdapter.RequestAvailableScaMethods(ctx, data, c.ID)
	})
	if !methods.IsSuccessful() {
		return authorisation.Failed(req, spi.MapFailure(a.deps.Mapper, methods, id.ServiceAIS)), nil
	}

	available := methods.Payload.Methods
	switch len(available) {
	case 0:
		return authorisation.Failed(req, validationFailure(id.ServiceAIS, msgErrors.CodeScaMethodUnknown,
			"no SCA methods are available for the PSU")), nil
	case 1:
		return a.selectMethod(ctx, c, record, req, available, available[0].ID, payload.PsuMessage)
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

func (a aisStages) interpretAuthenticationDecoupled(ctx context.Context, _ *consent.AccountConsent, record *authorisation.Record, req authorisation.UpdateRequest, payload spi.AuthorisePsuResponse) (authorisation.Response, error) {
	if record.Psu.IsEmpty() {
		record.Psu = req.Psu
	}
	if payload.ScaStatus == id.ScaStatusFailed {
		return authorisation.Failed(req, psuMismatch(id.ServiceAIS)), nil
	}
	return a.coordinator.Proceed(ctx, id.ServiceAIS, a.deps.ConsentAdapter, record, req, req.AuthenticationMethodID)
}

// selectMethod requests the challenge for a chosen method and advances to
// scaMethodSelected. Shared by the explicit selection step and the
// single-method shortcut.
func (a aisStages) selectMethod(ctx context.Context, c *consent.AccountConsent, record *authorisation.Record, req authorisation.UpdateRequest, available []spi.AuthenticationObject, methodID, psuMessage string) (authorisation.Response, error) {
	data := a.deps.contextData(ctx, record, req)
	code := call(ctx, a.deps, id.ServiceAIS, "RequestAuthorisationCode", func(ctx context.Context) spi.Response[spi.SelectMethodResponse] {
		return a.deps.ConsentAdapter.RequestAuthorisationCode(ctx, data, c.ID, methodID)
	})
	if !code.IsSuccessful() {
		return authorisation.Failed(req, spi.MapFailure(a.deps.Mapper, code, id.ServiceAIS)), nil
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

// interpretVerification applies a successful SCA verification: the multilevel
// flag is raised before the status write, the consent status is synchronized
// with the adapter-reported one, and superseded consents are terminated.
func (a aisStages) interpretVerification(ctx context.Context, c *consent.AccountConsent, record *authorisation.Record, req authorisation.UpdateRequest, payload spi.VerifyConsentResponse) (authorisation.Response, error) {
	status := consent.Status(payload.ConsentStatus)
	if !status.IsValid() {
		return authorisation.Response{}, dErrors.New(dErrors.CodeInternal,
			"adapter reported unknown consent status: "+payload.ConsentStatus)
	}

	// The multilevel flag, the status and the termination of superseded
	// consents land together or not at all.
	err := txcontext.RunInTx(ctx, a.deps.DB, func(ctx context.Context) error {
		if status == consent.StatusPartiallyAuthorised && !c.MultilevelScaRequired {
			if err := a.deps.Consents.UpdateMultilevelScaRequired(ctx, c.ID, true); err != nil {
				return err
			}
		}
		if err := a.deps.Consents.UpdateConsentStatus(ctx, c.ID, status); err != nil {
			return err
		}
		return a.deps.Consents.FindAndTerminateOldConsentsByNewConsentID(ctx, c.ID)
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
