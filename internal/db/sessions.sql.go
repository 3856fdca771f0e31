package db

import (
	"context"
	"database/sql"
	"time"
)

type Session struct {
	ID          string
	TokenHash   string
	UserID      string
	UserPayload []byte
	ExpiresAt   sql.NullTime
	RefreshedAt time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

const getSessionByTokenHash = `
SELECT id, token_hash, user_id, user_payload, expires_at, refreshed_at, created_at, updated_at
FROM sessions
WHERE token_hash = ?
`

func (q *Queries) GetSessionByTokenHash(ctx context.Context, tokenHash string) (Session, error) {
	row := q.db.QueryRowContext(ctx, getSessionByTokenHash, tokenHash)
	var i Session
	err := row.Scan(
		&i.ID,
		&i.TokenHash,
		&i.UserID,
		&i.UserPayload,
		&i.ExpiresAt,
		&i.RefreshedAt,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

type UpsertSessionParams struct {
	ID          string
	TokenHash   string
	UserID      string
	UserPayload []byte
	ExpiresAt   sql.NullTime
	RefreshedAt time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

const upsertSession = `
INSERT INTO sessions (id, token_hash, user_id, user_payload, expires_at, refreshed_at, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (token_hash) DO UPDATE SET
    user_id = excluded.user_id,
    user_payload = excluded.user_payload,
    expires_at = excluded.expires_at,
    refreshed_at = excluded.refreshed_at,
    updated_at = excluded.updated_at
`

func (q *Queries) UpsertSession(ctx context.Context, arg UpsertSessionParams) error {
	_, err := q.db.ExecContext(ctx, upsertSession,
		arg.ID,
		arg.TokenHash,
		arg.UserID,
		arg.UserPayload,
		arg.ExpiresAt,
		arg.RefreshedAt,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	return err
}

const deleteExpiredSessions = `
DELETE FROM sessions WHERE expires_at IS NOT NULL AND expires_at < ?
`

func (q *Queries) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteExpiredSessions, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
