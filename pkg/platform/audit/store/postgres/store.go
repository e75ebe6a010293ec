package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	audit "xs2a/pkg/platform/audit"
	txcontext "xs2a/pkg/platform/tx"
)

// Store persists audit events in PostgreSQL. Rows are append-only; the
// retention job that prunes them lives outside this service.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	_, err := s.execer(ctx).ExecContext(ctx, `
		INSERT INTO audit_events (
			event_id, category, occurred_at, action, authorisation_id,
			resource_id, service_type, sca_status, psu_id, tpp_id, reason, request_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		uuid.NewString(), string(event.Category), event.Timestamp, string(event.Action),
		event.AuthorisationID.String(), event.ResourceID, event.ServiceType.String(),
		event.ScaStatus.String(), event.PsuID.String(), event.TppID.String(),
		event.Reason, event.RequestID,
	)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}
