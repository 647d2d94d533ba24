package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"signup/internal/registration/models"
	id "signup/pkg/domain"
	"signup/pkg/platform/sentinel"
)

// Schema creates the table used by Postgres. It is idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS registrations (
	id         TEXT PRIMARY KEY,
	email      TEXT NOT NULL,
	payload    JSONB NOT NULL,
	expires_at TIMESTAMPTZ,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS registrations_email_updated_idx ON registrations (email, updated_at DESC);
`

// Postgres persists registration snapshots as JSONB rows.
type Postgres struct {
	db    *sql.DB
	ttl   time.Duration
	clock func() time.Time
}

// PostgresOption configures a Postgres store.
type PostgresOption func(*Postgres)

// WithPostgresClock sets the clock function for testability.
func WithPostgresClock(clock func() time.Time) PostgresOption {
	return func(s *Postgres) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// NewPostgres constructs a PostgreSQL-backed store. A zero ttl keeps rows forever.
func NewPostgres(db *sql.DB, ttl time.Duration, opts ...PostgresOption) *Postgres {
	s := &Postgres{db: db, ttl: ttl, clock: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// EnsureSchema applies Schema.
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("apply registration schema: %w", classify(err))
	}
	return nil
}

func (s *Postgres) Save(ctx context.Context, r *models.Registration) error {
	payload, err := json.Marshal(r.Snapshot())
	if err != nil {
		return fmt.Errorf("encode registration: %w", err)
	}

	now := s.clock()
	var expiresAt sql.NullTime
	if s.ttl > 0 {
		expiresAt = sql.NullTime{Time: now.Add(s.ttl), Valid: true}
	}

	query := `
		INSERT INTO registrations (id, email, payload, expires_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			payload = EXCLUDED.payload,
			expires_at = EXCLUDED.expires_at,
			updated_at = EXCLUDED.updated_at
	`
	if _, err := s.db.ExecContext(ctx, query, r.ID().String(), r.Email(), payload, expiresAt, now); err != nil {
		return fmt.Errorf("save registration: %w", classify(err))
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, regID id.RegistrationID) (*models.Registration, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT payload, expires_at FROM registrations WHERE id = $1`, regID.String())
	return s.scan(row)
}

func (s *Postgres) FindByEmail(ctx context.Context, email string) (*models.Registration, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT payload, expires_at FROM registrations
		WHERE email = $1
		ORDER BY updated_at DESC
		LIMIT 1`, email)
	return s.scan(row)
}

// DeleteExpired removes rows whose TTL has passed.
func (s *Postgres) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM registrations WHERE expires_at IS NOT NULL AND expires_at <= $1`, s.clock())
	if err != nil {
		return 0, fmt.Errorf("delete expired registrations: %w", classify(err))
	}
	return res.RowsAffected()
}

func (s *Postgres) scan(row *sql.Row) (*models.Registration, error) {
	var (
		payload   []byte
		expiresAt sql.NullTime
	)
	if err := row.Scan(&payload, &expiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load registration: %w", classify(err))
	}
	if expiresAt.Valid && !s.clock().Before(expiresAt.Time) {
		return nil, ErrNotFound
	}

	var snap models.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, fmt.Errorf("decode registration: %w", err)
	}
	return models.Restore(snap)
}

// classify marks connection-class failures as unavailable.
func classify(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Class() == "08" {
		return fmt.Errorf("%w: %w", sentinel.ErrUnavailable, err)
	}
	return err
}
