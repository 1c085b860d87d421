package repo

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository stores dashboard state in Postgres.
type PostgresRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
	schema string
}

// NewPostgres opens a new connection pool to the database with the desired search_path.
func NewPostgres(ctx context.Context, databaseURL, schema string, logger *slog.Logger) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	if cfg.ConnConfig.RuntimeParams == nil {
		cfg.ConnConfig.RuntimeParams = map[string]string{}
	}
	if schema != "" {
		cfg.ConnConfig.RuntimeParams["search_path"] = schema
	}
	cfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	r := &PostgresRepository{
		pool:   pool,
		logger: logger.With("component", "repo"),
		schema: schema,
	}

	if err := r.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

// Close releases the connection pool.
func (r *PostgresRepository) Close() {
	if r.pool != nil {
		r.pool.Close()
	}
}

// Ping ensures the database is reachable.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// RunMigrations applies schema migrations on the connected database.
func (r *PostgresRepository) RunMigrations(ctx context.Context, filesystem fs.FS) error {
	return ApplyMigrations(ctx, r.pool, filesystem)
}

// LoadPrefs returns the stored preference document of profile.
func (r *PostgresRepository) LoadPrefs(ctx context.Context, profile string) ([]byte, bool, error) {
	const q = `SELECT payload::text FROM ui_state WHERE profile = $1`
	var payload string
	if err := r.pool.QueryRow(ctx, q, profile).Scan(&payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("load prefs: %w", err)
	}
	return []byte(payload), true, nil
}

// SavePrefs upserts the preference document of profile.
func (r *PostgresRepository) SavePrefs(ctx context.Context, profile string, payload []byte) error {
	const q = `
INSERT INTO ui_state (profile, payload, updated_at)
VALUES ($1, $2::jsonb, NOW())
ON CONFLICT (profile) DO UPDATE SET
    payload = EXCLUDED.payload,
    updated_at = NOW();
`
	if _, err := r.pool.Exec(ctx, q, profile, string(payload)); err != nil {
		return fmt.Errorf("save prefs: %w", err)
	}
	return nil
}

// RecordDispatch appends a dispatch attempt.
func (r *PostgresRepository) RecordDispatch(ctx context.Context, rec DispatchRecord) (*DispatchRecord, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	const q = `
INSERT INTO dispatch_log (id, client_id, notice_kind, channel, phone, status, error)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING created_at;
`
	err := r.pool.QueryRow(ctx, q,
		rec.ID,
		rec.ClientID,
		rec.NoticeKind,
		rec.Channel,
		rec.Phone,
		rec.Status,
		rec.Error,
	).Scan(&rec.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("record dispatch: %w", err)
	}
	return &rec, nil
}

// LastDispatch returns the time of the newest successful dispatch to clientID.
func (r *PostgresRepository) LastDispatch(ctx context.Context, clientID int64) (time.Time, bool, error) {
	const q = `
SELECT created_at
FROM dispatch_log
WHERE client_id = $1 AND status = 'sent'
ORDER BY created_at DESC
LIMIT 1;
`
	var at time.Time
	if err := r.pool.QueryRow(ctx, q, clientID).Scan(&at); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("last dispatch: %w", err)
	}
	return at, true, nil
}

// ListDispatches returns the newest dispatch attempts first.
func (r *PostgresRepository) ListDispatches(ctx context.Context, limit int) ([]DispatchRecord, error) {
	const q = `
SELECT id::text, client_id, notice_kind, channel, phone, status, error, created_at
FROM dispatch_log
ORDER BY created_at DESC
LIMIT $1;
`
	rows, err := r.pool.Query(ctx, q, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list dispatches: %w", err)
	}
	defer rows.Close()

	var records []DispatchRecord
	for rows.Next() {
		var rec DispatchRecord
		if err := rows.Scan(&rec.ID, &rec.ClientID, &rec.NoticeKind, &rec.Channel, &rec.Phone, &rec.Status, &rec.Error, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan dispatch: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dispatches: %w", err)
	}
	return records, nil
}
