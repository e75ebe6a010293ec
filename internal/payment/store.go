package payment

import (
	"context"

	id "xs2a/pkg/domain"
)

// Store persists payment aggregates. Implementations return
// sentinel.ErrNotFound (optionally wrapped) for unknown ids and must keep
// single-row read-modify-write consistency.
type Store interface {
	Save(ctx context.Context, payment *Payment) error
	FindByID(ctx context.Context, paymentID id.PaymentID) (*Payment, error)
	UpdateStatus(ctx context.Context, paymentID id.PaymentID, status TransactionStatus) error
	UpdateMultilevelScaRequired(ctx context.Context, paymentID id.PaymentID, required bool) error
}
