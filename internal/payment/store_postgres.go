package payment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	id "xs2a/pkg/domain"
	"xs2a/pkg/platform/sentinel"
	txcontext "xs2a/pkg/platform/tx"
	"xs2a/pkg/requestcontext"
)

// PostgresStore persists payments in PostgreSQL. Writes join an ambient
// transaction when one travels in the context.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed payment store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Save(ctx context.Context, payment *Payment) error {
	if payment == nil {
		return fmt.Errorf("payment is required")
	}
	psuIDs := make([]string, 0, len(payment.PsuIDs))
	for _, p := range payment.PsuIDs {
		psuIDs = append(psuIDs, p.String())
	}
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO payments (
			payment_id, tpp_id, psu_ids, transaction_status, payment_product,
			multilevel_sca_required, created_at, status_changed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (payment_id) DO UPDATE SET
			transaction_status = EXCLUDED.transaction_status,
			multilevel_sca_required = EXCLUDED.multilevel_sca_required,
			status_changed_at = EXCLUDED.status_changed_at`,
		payment.ID.String(), payment.TppID.String(), pq.Array(psuIDs),
		payment.TransactionStatus.String(), payment.PaymentProduct,
		payment.MultilevelScaRequired, payment.CreatedAt, payment.StatusChangedAt,
	)
	if err != nil {
		return fmt.Errorf("save payment: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, paymentID id.PaymentID) (*Payment, error) {
	var (
		p      Payment
		pid    string
		tppID  string
		psuIDs pq.StringArray
		status string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT payment_id, tpp_id, psu_ids, transaction_status, payment_product,
		       multilevel_sca_required, created_at, status_changed_at
		FROM payments WHERE payment_id = $1`,
		paymentID.String(),
	).Scan(&pid, &tppID, &psuIDs, &status, &p.PaymentProduct,
		&p.MultilevelScaRequired, &p.CreatedAt, &p.StatusChangedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find payment: %w", err)
	}
	p.ID = id.PaymentID(pid)
	p.TppID = id.TppID(tppID)
	for _, psu := range psuIDs {
		p.PsuIDs = append(p.PsuIDs, id.PsuID(psu))
	}
	p.TransactionStatus = TransactionStatus(status)
	return &p, nil
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, paymentID id.PaymentID, status TransactionStatus) error {
	res, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE payments SET transaction_status = $2, status_changed_at = $3
		WHERE payment_id = $1`,
		paymentID.String(), status.String(), requestcontext.Now(ctx),
	)
	if err != nil {
		return fmt.Errorf("update payment status: %w", err)
	}
	return requireRow(res)
}

func (s *PostgresStore) UpdateMultilevelScaRequired(ctx context.Context, paymentID id.PaymentID, required bool) error {
	res, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE payments SET multilevel_sca_required = $2
		WHERE payment_id = $1`,
		paymentID.String(), required,
	)
	if err != nil {
		return fmt.Errorf("update multilevel sca flag: %w", err)
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
