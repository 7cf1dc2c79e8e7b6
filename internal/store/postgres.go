package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/tartampluch/go-remind/internal/config"
	"github.com/tartampluch/go-remind/internal/reminder"
)

const schema = `CREATE TABLE IF NOT EXISTS reminder_policies (
	entity_id    TEXT PRIMARY KEY,
	enabled      BOOLEAN NOT NULL,
	offsets_days INTEGER[] NOT NULL DEFAULT '{}',
	hour         SMALLINT NOT NULL,
	minute       SMALLINT NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// PostgresStore keeps policies in the reminder_policies table. The global
// default lives in the same table under config.DefaultPolicyRecordID.
type PostgresStore struct {
	db       *sql.DB
	fallback reminder.Policy
}

// NewPostgresStore prepares the schema. fallback is returned as the default
// policy until one is stored.
func NewPostgresStore(ctx context.Context, db *sql.DB, fallback reminder.Policy) (*PostgresStore, error) {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrDBMigrate, err)
	}
	return &PostgresStore{db: db, fallback: fallback.Normalize()}, nil
}

func (s *PostgresStore) Policy(ctx context.Context, id uuid.UUID) (reminder.Policy, error) {
	p, err := s.get(ctx, id.String())
	if errors.Is(err, errPolicyNotFound) {
		return s.DefaultPolicy(ctx)
	}
	return p, err
}

func (s *PostgresStore) SetPolicy(ctx context.Context, id uuid.UUID, p reminder.Policy) error {
	return s.put(ctx, id.String(), p)
}

func (s *PostgresStore) DeletePolicy(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM reminder_policies WHERE entity_id = $1`
	if _, err := s.db.ExecContext(ctx, query, id.String()); err != nil {
		return fmt.Errorf("%s: %w", config.ErrPolicyDelete, err)
	}
	return nil
}

func (s *PostgresStore) DefaultPolicy(ctx context.Context) (reminder.Policy, error) {
	p, err := s.get(ctx, config.DefaultPolicyRecordID)
	if errors.Is(err, errPolicyNotFound) {
		return s.fallback.Clone(), nil
	}
	return p, err
}

func (s *PostgresStore) SetDefaultPolicy(ctx context.Context, p reminder.Policy) error {
	return s.put(ctx, config.DefaultPolicyRecordID, p)
}

func (s *PostgresStore) get(ctx context.Context, key string) (reminder.Policy, error) {
	query := `SELECT enabled, offsets_days, hour, minute
	          FROM reminder_policies WHERE entity_id = $1`

	var (
		p       reminder.Policy
		offsets pq.Int64Array
	)
	err := s.db.QueryRowContext(ctx, query, key).Scan(&p.Enabled, &offsets, &p.Hour, &p.Minute)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return reminder.Policy{}, errPolicyNotFound
		}
		return reminder.Policy{}, fmt.Errorf("%s: %w", config.ErrPolicyLoad, err)
	}

	p.OffsetsDays = make([]int, len(offsets))
	for i, o := range offsets {
		p.OffsetsDays[i] = int(o)
	}
	return p.Normalize(), nil
}

func (s *PostgresStore) put(ctx context.Context, key string, p reminder.Policy) error {
	if err := p.Validate(); err != nil {
		return err
	}
	p = p.Normalize()

	offsets := make([]int64, len(p.OffsetsDays))
	for i, o := range p.OffsetsDays {
		offsets[i] = int64(o)
	}

	query := `INSERT INTO reminder_policies (entity_id, enabled, offsets_days, hour, minute)
	          VALUES ($1, $2, $3, $4, $5)
	          ON CONFLICT (entity_id) DO UPDATE
	          SET enabled = EXCLUDED.enabled,
	              offsets_days = EXCLUDED.offsets_days,
	              hour = EXCLUDED.hour,
	              minute = EXCLUDED.minute,
	              updated_at = NOW()`

	if _, err := s.db.ExecContext(ctx, query, key, p.Enabled, pq.Array(offsets), p.Hour, p.Minute); err != nil {
		return fmt.Errorf("%s: %w", config.ErrPolicySave, err)
	}
	return nil
}
