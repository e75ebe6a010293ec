package payment

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

// Service applies authorisation side effects to the payment aggregate.
// Operations are idempotent: re-applying the current state is a no-op write.
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
		return nil, fmt.Errorf("payment store is required")
	}

	svc := &Service{store: store}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// GetPayment resolves a payment by its external id.
func (s *Service) GetPayment(ctx context.Context, paymentID id.PaymentID) (*Payment, error) {
	if paymentID.IsEmpty() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "payment id is required")
	}
	p, err := s.store.FindByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeNotFound, "payment not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load payment")
	}
	return p, nil
}

// UpdatePaymentStatus persists a transaction status change. Updating to the
// current status is a no-op write: no row touched, no event emitted.
func (s *Service) UpdatePaymentStatus(ctx context.Context, paymentID id.PaymentID, status TransactionStatus) error {
	if !status.IsValid() {
		return dErrors.New(dErrors.CodeBadRequest, "invalid transaction status")
	}
	current, err := s.GetPayment(ctx, paymentID)
	if err != nil {
		return err
	}
	if current.TransactionStatus == status {
		return nil
	}
	if current.TransactionStatus.IsFinalised() {
		return dErrors.New(dErrors.CodeConflict, "payment status is finalised")
	}

	if err := s.store.UpdateStatus(ctx, paymentID, status); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update payment status")
	}

	s.emit(ctx, audit.Event{
		Action:     audit.ActionPaymentStatusChanged,
		ResourceID: paymentID.String(),
		Reason:     fmt.Sprintf("%s -> %s", current.TransactionStatus, status),
	})
	return nil
}

// UpdateMultilevelScaRequired sets the multilevel-SCA flag on a payment.
func (s *Service) UpdateMultilevelScaRequired(ctx context.Context, paymentID id.PaymentID, required bool) error {
	current, err := s.GetPayment(ctx, paymentID)
	if err != nil {
		return err
	}
	if current.MultilevelScaRequired == required {
		return nil
	}

	if err := s.store.UpdateMultilevelScaRequired(ctx, paymentID, required); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update multilevel sca flag")
	}

	s.emit(ctx, audit.Event{
		Action:     audit.ActionMultilevelScaFlagged,
		ResourceID: paymentID.String(),
	})
	return nil
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	event.RequestID = requestcontext.RequestID(ctx)
	event.TppID = requestcontext.TppID(ctx)
	if err := audit.Emit(ctx, s.auditPublisher, event); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "audit emit failed", "action", event.Action, "error", err)
	}
}
