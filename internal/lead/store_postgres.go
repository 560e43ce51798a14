package lead

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// PostgresStore persists leads in PostgreSQL. Per-lead exclusion is provided by
// the same in-process keyed mutex as the in-memory store; the single-writer
// deployment model means cross-process coordination is delegated to callers.
type PostgresStore struct {
	db    *sql.DB
	keyed *keyedMutex
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, keyed: newKeyedMutex()}
}

// Schema returns the DDL for the leads table. Applied by migrations or, in
// tests, directly against a fresh database.
func Schema() string {
	return `
CREATE TABLE IF NOT EXISTS leads (
    lead_id             TEXT PRIMARY KEY,
    first_name          TEXT NOT NULL,
    last_name           TEXT NOT NULL,
    email               TEXT NOT NULL UNIQUE,
    phone               TEXT NOT NULL UNIQUE,
    timezone            TEXT NOT NULL DEFAULT 'America/Phoenix',
    relationship        TEXT NOT NULL DEFAULT 'self',
    stage               TEXT NOT NULL,
    has_consent         BOOLEAN NOT NULL DEFAULT FALSE,
    consent_type        TEXT,
    consent_version     TEXT,
    consent_timestamp   TIMESTAMPTZ,
    required_docs       TEXT[] NOT NULL DEFAULT '{}',
    received_docs       TEXT[] NOT NULL DEFAULT '{}',
    missing_docs        TEXT[] NOT NULL DEFAULT '{}',
    consent_envelope_id TEXT,
    owner_user_id       TEXT,
    last_touch          TIMESTAMPTZ NOT NULL,
    idempotency_key     TEXT UNIQUE,
    created_at          TIMESTAMPTZ NOT NULL,
    stage_history       JSONB NOT NULL DEFAULT '[]'
);
CREATE INDEX IF NOT EXISTS leads_stage_idx ON leads (stage);
CREATE INDEX IF NOT EXISTS leads_envelope_idx ON leads (consent_envelope_id);
`
}

const leadColumns = `lead_id, first_name, last_name, email, phone, timezone, relationship,
stage, has_consent, consent_type, consent_version, consent_timestamp,
required_docs, received_docs, missing_docs, consent_envelope_id,
owner_user_id, last_touch, idempotency_key, created_at, stage_history`

func (s *PostgresStore) Create(ctx context.Context, l *Lead) error {
	history, err := json.Marshal(l.StageHistory)
	if err != nil {
		return fmt.Errorf("marshal stage history: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO leads (`+leadColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)`,
		l.ID, l.FirstName, l.LastName, l.Email, l.Phone, l.Timezone, string(l.Relationship),
		string(l.Stage), l.HasConsent, nullable(l.ConsentType), nullable(l.ConsentVersion), nullTime(l.ConsentTimestamp),
		pq.Array(l.RequiredDocs), pq.Array(l.ReceivedDocs), pq.Array(l.MissingDocs), nullable(l.ConsentEnvelopeID),
		nullable(l.OwnerUserID), l.LastTouch, nullable(l.IdempotencyKey), l.CreatedAt, history,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return ErrConflict
		}
		return fmt.Errorf("insert lead: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id string) (*Lead, error) {
	return s.findOne(ctx, `SELECT `+leadColumns+` FROM leads WHERE lead_id = $1`, id)
}

func (s *PostgresStore) FindByIdempotencyKey(ctx context.Context, key string) (*Lead, error) {
	if key == "" {
		return nil, ErrNotFound
	}
	return s.findOne(ctx, `SELECT `+leadColumns+` FROM leads WHERE idempotency_key = $1`, key)
}

func (s *PostgresStore) FindByEnvelopeID(ctx context.Context, envelopeID string) (*Lead, error) {
	if envelopeID == "" {
		return nil, ErrNotFound
	}
	return s.findOne(ctx, `SELECT `+leadColumns+` FROM leads WHERE consent_envelope_id = $1`, envelopeID)
}

func (s *PostgresStore) List(ctx context.Context) ([]*Lead, error) {
	return s.findMany(ctx, `SELECT `+leadColumns+` FROM leads ORDER BY created_at`)
}

func (s *PostgresStore) ListByStage(ctx context.Context, stage Stage) ([]*Lead, error) {
	return s.findMany(ctx, `SELECT `+leadColumns+` FROM leads WHERE stage = $1 ORDER BY created_at`, string(stage))
}

func (s *PostgresStore) Update(ctx context.Context, l *Lead) error {
	history, err := json.Marshal(l.StageHistory)
	if err != nil {
		return fmt.Errorf("marshal stage history: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
UPDATE leads SET
    first_name = $2, last_name = $3, email = $4, phone = $5, timezone = $6,
    relationship = $7, stage = $8, has_consent = $9, consent_type = $10,
    consent_version = $11, consent_timestamp = $12, required_docs = $13,
    received_docs = $14, missing_docs = $15, consent_envelope_id = $16,
    owner_user_id = $17, last_touch = $18, stage_history = $19
WHERE lead_id = $1`,
		l.ID, l.FirstName, l.LastName, l.Email, l.Phone, l.Timezone,
		string(l.Relationship), string(l.Stage), l.HasConsent, nullable(l.ConsentType),
		nullable(l.ConsentVersion), nullTime(l.ConsentTimestamp), pq.Array(l.RequiredDocs),
		pq.Array(l.ReceivedDocs), pq.Array(l.MissingDocs), nullable(l.ConsentEnvelopeID),
		nullable(l.OwnerUserID), l.LastTouch, history,
	)
	if err != nil {
		return fmt.Errorf("update lead: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update lead: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM leads WHERE lead_id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete lead: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete lead: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM leads`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count leads: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) Lock(id string) func() {
	return s.keyed.Lock(id)
}

func (s *PostgresStore) findOne(ctx context.Context, query string, args ...any) (*Lead, error) {
	l, err := scanLead(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find lead: %w", err)
	}
	return l, nil
}

func (s *PostgresStore) findMany(ctx context.Context, query string, args ...any) ([]*Lead, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	defer rows.Close()

	var out []*Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lead: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLead(row rowScanner) (*Lead, error) {
	var (
		l                             Lead
		relationship, stage           string
		consentType, consentVersion   sql.NullString
		consentTS                     sql.NullTime
		envelopeID, owner, idempotent sql.NullString
		history                       []byte
	)
	err := row.Scan(
		&l.ID, &l.FirstName, &l.LastName, &l.Email, &l.Phone, &l.Timezone, &relationship,
		&stage, &l.HasConsent, &consentType, &consentVersion, &consentTS,
		pq.Array(&l.RequiredDocs), pq.Array(&l.ReceivedDocs), pq.Array(&l.MissingDocs), &envelopeID,
		&owner, &l.LastTouch, &idempotent, &l.CreatedAt, &history,
	)
	if err != nil {
		return nil, err
	}
	l.Relationship = Relationship(relationship)
	l.Stage = Stage(stage)
	l.ConsentType = consentType.String
	l.ConsentVersion = consentVersion.String
	if consentTS.Valid {
		l.ConsentTimestamp = consentTS.Time
	}
	l.ConsentEnvelopeID = envelopeID.String
	l.OwnerUserID = owner.String
	l.IdempotencyKey = idempotent.String
	if len(history) > 0 {
		if err := json.Unmarshal(history, &l.StageHistory); err != nil {
			return nil, fmt.Errorf("unmarshal stage history: %w", err)
		}
	}
	return &l, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
