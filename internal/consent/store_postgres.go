package consent

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

// PostgresStore persists consents in PostgreSQL. Writes join an ambient
// transaction when one travels in the context, so status and flag updates of
// a single authorisation step commit together.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed consent store.
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

func (s *PostgresStore) Save(ctx context.Context, consent *AccountConsent) error {
	if consent == nil {
		return fmt.Errorf("consent is required")
	}
	psuIDs := make([]string, 0, len(consent.PsuIDs))
	for _, p := range consent.PsuIDs {
		psuIDs = append(psuIDs, p.String())
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO account_consents (
			consent_id, tpp_id, psu_ids, status, multilevel_sca_required,
			recurring, frequency_per_day, valid_until, created_at, status_changed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (consent_id) DO UPDATE SET
			status = EXCLUDED.status,
			multilevel_sca_required = EXCLUDED.multilevel_sca_required,
			status_changed_at = EXCLUDED.status_changed_at`,
		consent.ID.String(), consent.TppID.String(), pq.Array(psuIDs),
		consent.Status.String(), consent.MultilevelScaRequired,
		consent.Recurring, consent.FrequencyPerDay, consent.ValidUntil,
		consent.CreatedAt, consent.StatusChangedAt,
	)
	if err != nil {
		return fmt.Errorf("save consent: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, consentID id.ConsentID) (*AccountConsent, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT consent_id, tpp_id, psu_ids, status, multilevel_sca_required,
		       recurring, frequency_per_day, valid_until, created_at, status_changed_at
		FROM account_consents WHERE consent_id = $1`,
		consentID.String(),
	)
	return scanConsent(row)
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, consentID id.ConsentID, status Status) error {
	res, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE account_consents SET status = $2, status_changed_at = $3
		WHERE consent_id = $1`,
		consentID.String(), status.String(), requestcontext.Now(ctx),
	)
	if err != nil {
		return fmt.Errorf("update consent status: %w", err)
	}
	return requireRow(res)
}

func (s *PostgresStore) UpdateMultilevelScaRequired(ctx context.Context, consentID id.ConsentID, required bool) error {
	res, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE account_consents SET multilevel_sca_required = $2
		WHERE consent_id = $1`,
		consentID.String(), required,
	)
	if err != nil {
		return fmt.Errorf("update multilevel sca flag: %w", err)
	}
	return requireRow(res)
}

func (s *PostgresStore) FindOldConsents(ctx context.Context, newConsentID id.ConsentID) ([]*AccountConsent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT old.consent_id, old.tpp_id, old.psu_ids, old.status, old.multilevel_sca_required,
		       old.recurring, old.frequency_per_day, old.valid_until, old.created_at, old.status_changed_at
		FROM account_consents old
		JOIN account_consents new ON new.consent_id = $1
		WHERE old.consent_id <> new.consent_id
		  AND old.tpp_id = new.tpp_id
		  AND old.psu_ids && new.psu_ids
		  AND old.status NOT IN ('rejected', 'revokedByPsu', 'expired', 'terminatedByTpp', 'terminatedByAspsp')`,
		newConsentID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("find old consents: %w", err)
	}
	defer rows.Close()

	var consents []*AccountConsent
	for rows.Next() {
		c, err := scanConsent(rows)
		if err != nil {
			return nil, err
		}
		consents = append(consents, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate old consents: %w", err)
	}
	return consents, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConsent(row rowScanner) (*AccountConsent, error) {
	var (
		c      AccountConsent
		cid    string
		tppID  string
		psuIDs pq.StringArray
		status string
	)
	err := row.Scan(&cid, &tppID, &psuIDs, &status, &c.MultilevelScaRequired,
		&c.Recurring, &c.FrequencyPerDay, &c.ValidUntil, &c.CreatedAt, &c.StatusChangedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan consent: %w", err)
	}
	c.ID = id.ConsentID(cid)
	c.TppID = id.TppID(tppID)
	for _, p := range psuIDs {
		c.PsuIDs = append(c.PsuIDs, id.PsuID(p))
	}
	c.Status = Status(status)
	return &c, nil
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
