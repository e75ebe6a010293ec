package consent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	id "xs2a/pkg/domain"
	dErrors "xs2a/pkg/domain-errors"
	"xs2a/pkg/platform/audit"
	"xs2a/pkg/platform/sentinel"
	"xs2a/pkg/requestcontext"
)

// Service applies authorisation side effects to the consent aggregate. All
// operations are idempotent: re-applying the current state performs no write
// and emits no event.
type Service struct {
	store          Store
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

func New(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("consent store is required")
	}

	svc := &Service{store: store}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// GetConsent resolves a consent by its external id.
func (s *Service) GetConsent(ctx context.Context, consentID id.ConsentID) (*AccountConsent, error) {
	if consentID.IsEmpty() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "consent id is required")
	}
	c, err := s.store.FindByID(ctx, consentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "consent not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load consent")
	}
	return c, nil
}

// UpdateConsentStatus persists a status change. Updating to the current
// status is a no-op write: no row touched, no event emitted.
func (s *Service) UpdateConsentStatus(ctx context.Context, consentID id.ConsentID, status Status) error {
	if !status.IsValid() {
		return dErrors.New(dErrors.CodeBadRequest, "invalid consent status")
	}
	current, err := s.GetConsent(ctx, consentID)
	if err != nil {
		return err
	}
	if current.Status == status {
		return nil
	}
	if current.Status.IsFinalised() {
		return dErrors.New(dErrors.CodeConflict, "consent status is finalised")
	}

	if err := s.store.UpdateStatus(ctx, consentID, status); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update consent status")
	}

	s.emit(ctx, audit.Event{
		Action:     audit.ActionConsentStatusChanged,
		ResourceID: consentID.String(),
		Reason:     fmt.Sprintf("%s -> %s", current.Status, status),
	})
	return nil
}

// UpdateMultilevelScaRequired sets the multilevel-SCA flag. Setting the flag
// to its current value is a no-op.
func (s *Service) UpdateMultilevelScaRequired(ctx context.Context, consentID id.ConsentID, required bool) error {
	current, err := s.GetConsent(ctx, consentID)
	if err != nil {
		return err
	}
	if current.MultilevelScaRequired == required {
		return nil
	}

	if err := s.store.UpdateMultilevelScaRequired(ctx, consentID, required); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update multilevel sca flag")
	}

	s.emit(ctx, audit.Event{
		Action:     audit.ActionMultilevelScaFlagged,
		ResourceID: consentID.String(),
	})
	return nil
}

// FindAndTerminateOldConsentsByNewConsentID terminates every non-finalised
// consent of the same TPP and PSU that the new consent supersedes. Running it
// again finds nothing left to terminate, so the operation is idempotent.
func (s *Service) FindAndTerminateOldConsentsByNewConsentID(ctx context.Context, newConsentID id.ConsentID) error {
	newConsent, err := s.GetConsent(ctx, newConsentID)
	if err != nil {
		return err
	}
	// Only a recurring consent supersedes earlier ones.
	if !newConsent.Recurring {
		return nil
	}

	old, err := s.store.FindOldConsents(ctx, newConsentID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to find old consents")
	}

	for _, c := range old {
		if err := s.store.UpdateStatus(ctx, c.ID, StatusTerminatedByAspsp); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to terminate old consent")
		}
		s.emit(ctx, audit.Event{
			Action:     audit.ActionConsentTerminated,
			ResourceID: c.ID.String(),
			Reason:     "superseded by " + newConsentID.String(),
		})
		if s.logger != nil {
			s.logger.InfoContext(ctx, "terminated superseded consent",
				"old_consent_id", c.ID,
				"new_consent_id", newConsentID,
			)
		}
	}
	return nil
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	event.RequestID = requestcontext.RequestID(ctx)
	event.TppID = requestcontext.TppID(ctx)
	if err := audit.Emit(ctx, s.auditPublisher, event); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "audit emit failed", "action", event.Action, "error", err)
	}
}
