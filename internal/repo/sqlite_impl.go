package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// -- Preferences --

func (r *SQLiteRepository) LoadPrefs(ctx context.Context, profile string) ([]byte, bool, error) {
	const q = `SELECT payload FROM ui_state WHERE profile = ?`
	var payload string
	if err := r.db.QueryRowContext(ctx, q, profile).Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("load prefs: %w", err)
	}
	return []byte(payload), true, nil
}

func (r *SQLiteRepository) SavePrefs(ctx context.Context, profile string, payload []byte) error {
	const q = `
INSERT INTO ui_state (profile, payload, updated_at)
VALUES (?, ?, ?)
ON CONFLICT (profile) DO UPDATE SET
    payload = excluded.payload,
    updated_at = excluded.updated_at;
`
	if _, err := r.db.ExecContext(ctx, q, profile, string(payload), r.now()); err != nil {
		return fmt.Errorf("save prefs: %w", err)
	}
	return nil
}

// -- Dispatch log --

func (r *SQLiteRepository) RecordDispatch(ctx context.Context, rec DispatchRecord) (*DispatchRecord, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	created := r.now()
	const q = `
INSERT INTO dispatch_log (id, client_id, notice_kind, channel, phone, status, error, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?);
`
	_, err := r.db.ExecContext(ctx, q,
		rec.ID,
		rec.ClientID,
		rec.NoticeKind,
		rec.Channel,
		rec.Phone,
		rec.Status,
		rec.Error,
		created,
	)
	if err != nil {
		return nil, fmt.Errorf("record dispatch: %w", err)
	}
	rec.CreatedAt = time.UnixMilli(created).UTC()
	return &rec, nil
}

func (r *SQLiteRepository) LastDispatch(ctx context.Context, clientID int64) (time.Time, bool, error) {
	const q = `
SELECT created_at
FROM dispatch_log
WHERE client_id = ? AND status = 'sent'
ORDER BY created_at DESC
LIMIT 1;
`
	var ms int64
	if err := r.db.QueryRowContext(ctx, q, clientID).Scan(&ms); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, fmt.Errorf("last dispatch: %w", err)
	}
	return time.UnixMilli(ms).UTC(), true, nil
}

func (r *SQLiteRepository) ListDispatches(ctx context.Context, limit int) ([]DispatchRecord, error) {
	const q = `
SELECT id, client_id, notice_kind, channel, phone, status, error, created_at
FROM dispatch_log
ORDER BY created_at DESC, rowid DESC
LIMIT ?;
`
	rows, err := r.db.QueryContext(ctx, q, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list dispatches: %w", err)
	}
	defer rows.Close()

	var records []DispatchRecord
	for rows.Next() {
		var (
			rec     DispatchRecord
			errText sql.NullString
			ms      int64
		)
		if err := rows.Scan(&rec.ID, &rec.ClientID, &rec.NoticeKind, &rec.Channel, &rec.Phone, &rec.Status, &errText, &ms); err != nil {
			return nil, fmt.Errorf("scan dispatch: %w", err)
		}
		if errText.Valid {
			rec.Error = &errText.String
		}
		rec.CreatedAt = time.UnixMilli(ms).UTC()
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dispatches: %w", err)
	}
	return records, nil
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}
