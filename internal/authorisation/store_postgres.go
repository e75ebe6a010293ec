package authorisation

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	id "xs2a/pkg/domain"
	"xs2a/pkg/platform/sentinel"
	txcontext "xs2a/pkg/platform/tx"
	"xs2a/pkg/requestcontext"
)

// PostgresStore persists authorisation records in PostgreSQL. Updates are
// guarded by the status column so a record that went terminal under a
// concurrent request is not silently rewritten.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed authorisation store.
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

func (s *PostgresStore) Create(ctx context.Context, record *Record) error {
	if record == nil {
		return fmt.Errorf("authorisation record is required")
	}
	methods, err := json.Marshal(record.AvailableMethods)
	if err != nil {
		return fmt.Errorf("marshal available methods: %w", err)
	}
	_, err = s.execer(ctx).ExecContext(ctx, `
		INSERT INTO authorisations (
			authorisation_id, service_type, resource_id, sca_status, sca_approach,
			psu_id, psu_id_type, psu_corporate_id, chosen_method_id,
			authentication_data, available_methods, redirect_expires_at,
			expires_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		record.ID.String(), record.ServiceType.String(), record.ResourceID,
		record.ScaStatus.String(), record.ScaApproach.String(),
		record.Psu.PsuID.String(), record.Psu.PsuIDType, record.Psu.PsuCorporateID,
		record.ChosenMethodID, record.authenticationData, methods,
		nullTime(record.RedirectURLExpiresAt), nullTime(record.ExpiresAt),
		record.CreatedAt, record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create authorisation: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetByID(ctx context.Context, authorisationID id.AuthorisationID) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT authorisation_id, service_type, resource_id, sca_status, sca_approach,
		       psu_id, psu_id_type, psu_corporate_id, chosen_method_id,
		       authentication_data, available_methods, redirect_expires_at,
		       expires_at, created_at, updated_at
		FROM authorisations WHERE authorisation_id = $1`,
		authorisationID.String(),
	)
	return scanRecord(row)
}

func (s *PostgresStore) Update(ctx context.Context, record *Record) error {
	methods, err := json.Marshal(record.AvailableMethods)
	if err != nil {
		return fmt.Errorf("marshal available methods: %w", err)
	}
	res, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE authorisations SET
			sca_status = $2, psu_id = $3, psu_id_type = $4, psu_corporate_id = $5,
			chosen_method_id = $6, authentication_data = $7, available_methods = $8,
			redirect_expires_at = $9, updated_at = $10
		WHERE authorisation_id = $1
		  AND sca_status NOT IN ('finalised', 'failed', 'exempted')`,
		record.ID.String(), record.ScaStatus.String(),
		record.Psu.PsuID.String(), record.Psu.PsuIDType, record.Psu.PsuCorporateID,
		record.ChosenMethodID, record.authenticationData, methods,
		nullTime(record.RedirectURLExpiresAt), requestcontext.Now(ctx),
	)
	if err != nil {
		return fmt.Errorf("update authorisation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		// Either unknown or already terminal; distinguish for the caller.
		if _, getErr := s.GetByID(ctx, record.ID); getErr != nil {
			return getErr
		}
		return sentinel.ErrTerminal
	}
	return nil
}

func (s *PostgresStore) ListByResource(ctx context.Context, serviceType id.ServiceType, resourceID string) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT authorisation_id, service_type, resource_id, sca_status, sca_approach,
		       psu_id, psu_id_type, psu_corporate_id, chosen_method_id,
		       authentication_data, available_methods, redirect_expires_at,
		       expires_at, created_at, updated_at
		FROM authorisations WHERE service_type = $1 AND resource_id = $2`,
		serviceType.String(), resourceID,
	)
	if err != nil {
		return nil, fmt.Errorf("list authorisations: %w", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate authorisations: %w", err)
	}
	return records, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var r Record
	var aid, service, status, approach, psuID string
	var methods []byte
	var redirectExpiry, expiry sql.NullTime
	err := row.Scan(&aid, &service, &r.ResourceID, &status, &approach,
		&psuID, &r.Psu.PsuIDType, &r.Psu.PsuCorporateID, &r.ChosenMethodID,
		&r.authenticationData, &methods, &redirectExpiry, &expiry,
		&r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan authorisation: %w", err)
	}
	r.ID = id.AuthorisationID(aid)
	r.ServiceType = id.ServiceType(service)
	r.ScaStatus = id.ScaStatus(status)
	r.ScaApproach = id.ScaApproach(approach)
	r.Psu.PsuID = id.PsuID(psuID)
	if len(methods) > 0 {
		if err := json.Unmarshal(methods, &r.AvailableMethods); err != nil {
			return nil, fmt.Errorf("unmarshal available methods: %w", err)
		}
	}
	if redirectExpiry.Valid {
		r.RedirectURLExpiresAt = redirectExpiry.Time
	}
	if expiry.Valid {
		r.ExpiresAt = expiry.Time
	}
	return &r, nil
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}
