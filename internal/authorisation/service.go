package authorisation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"xs2a/internal/authorisation/redirect"
	"xs2a/internal/profile"
	"xs2a/internal/spi"
	id "xs2a/pkg/domain"
	dErrors "xs2a/pkg/domain-errors"
	msgErrors "xs2a/pkg/message-errors"
	"xs2a/pkg/platform/audit"
	"xs2a/pkg/platform/sentinel"
	"xs2a/pkg/requestcontext"
)

// Service is the entry point of the authorisation core: it creates
// authorisation sub-resources, guards access before dispatching a stage
// handler, and persists the advanced record after a successful step.
type Service struct {
	store          Store
	resolver       StageResolver
	settings       profile.AspspSettings
	redirects      redirect.Cache
	auditPublisher audit.Publisher
	logger         *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher audit.Publisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

// WithRedirectCache enables redirect sessions for the redirect SCA approach.
func WithRedirectCache(cache redirect.Cache) Option {
	return func(s *Service) {
		s.redirects = cache
	}
}

func New(store Store, resolver StageResolver, settings profile.AspspSettings, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("authorisation store is required")
	}
	if resolver == nil {
		return nil, fmt.Errorf("stage resolver is required")
	}

	svc := &Service{store: store, resolver: resolver, settings: settings}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// CreateResult is the outcome of starting an authorisation.
type CreateResult struct {
	Record *Record

	// RedirectID is set only for the redirect approach: the session id the
	// TPP embeds in the redirect link.
	RedirectID id.RedirectID
}

// CreateAuthorisation starts a new authorisation sub-resource in status
// received, or psuIdentified when the request already carried a PSU identity.
// For the redirect approach a redirect session is issued alongside.
func (s *Service) CreateAuthorisation(ctx context.Context, serviceType id.ServiceType, resourceID string, psu spi.PsuIdData) (*CreateResult, error) {
	now := requestcontext.Now(ctx)
	approach := s.settings.PreferredApproach()

	record, err := NewRecord(serviceType, resourceID, approach, now.Add(s.settings.AuthorisationExpiry), now)
	if err != nil {
		return nil, err
	}
	if !psu.IsEmpty() {
		record.Psu = psu
		if err := record.ApplyStatus(id.ScaStatusPsuIdentified, now); err != nil {
			return nil, err
		}
	}

	result := &CreateResult{Record: record}
	if approach == id.ScaApproachRedirect {
		if err := record.SetRedirectExpiry(now.Add(s.settings.RedirectURLExpiry)); err != nil {
			return nil, err
		}
		if s.redirects != nil {
			redirectID := id.NewRedirectID()
			if err := s.redirects.Save(ctx, redirectID, record.ID); err != nil {
				return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save redirect session")
			}
			result.RedirectID = redirectID
		}
	}

	if err := s.store.Create(ctx, record); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create authorisation")
	}

	s.emit(ctx, record, audit.Event{Action: audit.ActionAuthorisationStarted})
	if s.logger != nil {
		s.logger.InfoContext(ctx, "authorisation started",
			"authorisation_id", record.ID,
			"service_type", serviceType,
			"sca_approach", approach,
		)
	}
	return result, nil
}

// UpdatePsuData processes one PSU data update: it checks the authorisation is
// still open, dispatches the stage handler for the current status, and
// persists the record only when the step succeeded. A failed step leaves the
// persisted state exactly as it was.
func (s *Service) UpdatePsuData(ctx context.Context, req UpdateRequest) (Response, error) {
	record, err := s.load(ctx, req.ServiceType, req.ResourceID, req.AuthorisationID)
	if err != nil {
		return Response{}, err
	}

	if record.ScaStatus.IsTerminal() {
		return Failed(req, statusInvalid(record.ServiceType)), nil
	}
	if record.IsExpiredAt(requestcontext.Now(ctx)) {
		return s.expire(ctx, record, req)
	}

	handler, err := s.resolver.Resolve(record.ServiceType, record.ScaApproach, record.ScaStatus)
	if err != nil {
		return Response{}, err
	}

	previous := record.ScaStatus
	resp, err := handler.Apply(ctx, record, req)
	if err != nil {
		return Response{}, err
	}

	if resp.IsFailure() {
		// The failed attempt is not persisted; the PSU may retry from the
		// last recorded status.
		s.emit(ctx, record, audit.Event{
			Action: audit.ActionAuthorisationFailed,
			Reason: resp.Error.Error(),
		})
		return resp, nil
	}

	if record.ScaStatus != previous {
		if err := s.store.Update(ctx, record); err != nil {
			return Response{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist authorisation")
		}
		s.emit(ctx, record, audit.Event{Action: transitionAction(record)})
		if s.logger != nil {
			s.logger.InfoContext(ctx, "authorisation advanced",
				"authorisation_id", record.ID,
				"from", previous,
				"to", record.ScaStatus,
			)
		}
	}
	return resp, nil
}

// GetScaStatus returns the current status of an authorisation owned by the
// given resource.
func (s *Service) GetScaStatus(ctx context.Context, serviceType id.ServiceType, resourceID string, authorisationID id.AuthorisationID) (id.ScaStatus, error) {
	record, err := s.load(ctx, serviceType, resourceID, authorisationID)
	if err != nil {
		return "", err
	}
	return record.ScaStatus, nil
}

// GetAuthorisation returns the record owned by the given resource.
func (s *Service) GetAuthorisation(ctx context.Context, serviceType id.ServiceType, resourceID string, authorisationID id.AuthorisationID) (*Record, error) {
	return s.load(ctx, serviceType, resourceID, authorisationID)
}

// ListAuthorisations returns all authorisations attached to a resource.
func (s *Service) ListAuthorisations(ctx context.Context, serviceType id.ServiceType, resourceID string) ([]*Record, error) {
	records, err := s.store.ListByResource(ctx, serviceType, resourceID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list authorisations")
	}
	return records, nil
}

// ResolveRedirect maps a redirect session back to its authorisation. An
// expired session is reported as CodeNotFound; the authorisation itself is
// untouched.
func (s *Service) ResolveRedirect(ctx context.Context, redirectID id.RedirectID) (*Record, error) {
	if s.redirects == nil {
		return nil, dErrors.New(dErrors.CodeConfiguration, "redirect sessions are not enabled")
	}
	authorisationID, err := s.redirects.Resolve(ctx, redirectID)
	if err != nil {
		if errors.Is(err, sentinel.ErrExpired) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "redirect session expired")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve redirect session")
	}
	record, err := s.store.GetByID(ctx, authorisationID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "authorisation not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load authorisation")
	}
	return record, nil
}

// load fetches a record and checks it belongs to the addressed resource. An
// authorisation reached through the wrong resource is indistinguishable from
// an absent one.
func (s *Service) load(ctx context.Context, serviceType id.ServiceType, resourceID string, authorisationID id.AuthorisationID) (*Record, error) {
	if authorisationID.IsEmpty() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "authorisation id is required")
	}
	record, err := s.store.GetByID(ctx, authorisationID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "authorisation not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load authorisation")
	}
	if record.ServiceType != serviceType || record.ResourceID != resourceID {
		return nil, dErrors.Wrap(sentinel.ErrNotFound, dErrors.CodeNotFound, "authorisation not found")
	}
	return record, nil
}

// expire fails an authorisation whose lifetime has passed and persists the
// terminal state.
func (s *Service) expire(ctx context.Context, record *Record, req UpdateRequest) (Response, error) {
	if err := record.ApplyStatus(id.ScaStatusFailed, requestcontext.Now(ctx)); err != nil {
		return Response{}, err
	}
	if err := s.store.Update(ctx, record); err != nil {
		return Response{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist authorisation")
	}
	s.emit(ctx, record, audit.Event{
		Action: audit.ActionAuthorisationFailed,
		Reason: "authorisation expired",
	})
	return Failed(req, statusInvalid(record.ServiceType)), nil
}

func (s *Service) emit(ctx context.Context, record *Record, event audit.Event) {
	event.AuthorisationID = record.ID
	event.ResourceID = record.ResourceID
	event.ServiceType = record.ServiceType
	event.ScaStatus = record.ScaStatus
	event.PsuID = record.Psu.PsuID
	event.TppID = requestcontext.TppID(ctx)
	event.RequestID = requestcontext.RequestID(ctx)
	if err := audit.Emit(ctx, s.auditPublisher, event); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "audit emit failed", "action", event.Action, "error", err)
	}
}

// transitionAction maps the status a record just reached onto its audit
// action.
func transitionAction(record *Record) audit.Action {
	switch record.ScaStatus {
	case id.ScaStatusPsuIdentified:
		return audit.ActionPsuIdentified
	case id.ScaStatusPsuAuthenticated:
		return audit.ActionPsuAuthenticated
	case id.ScaStatusScaMethodSelected:
		if record.ScaApproach == id.ScaApproachDecoupled {
			return audit.ActionDecoupledScaStarted
		}
		return audit.ActionScaMethodSelected
	case id.ScaStatusFinalised, id.ScaStatusExempted:
		return audit.ActionAuthorisationFinalised
	case id.ScaStatusFailed:
		return audit.ActionAuthorisationFailed
	}
	return audit.ActionAuthorisationStarted
}

// statusInvalid is the failure returned when an authorisation accepts no
// further steps.
func statusInvalid(service id.ServiceType) msgErrors.ErrorHolder {
	return msgErrors.NewErrorHolder(
		msgErrors.ForService(service, http.StatusBadRequest),
		msgErrors.NewTppMessage(msgErrors.CodeStatusInvalid, ""),
	)
}
