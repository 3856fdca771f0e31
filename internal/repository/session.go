package repository

import (
	"context"
	"cpulse-tracker/internal/db"
	"cpulse-tracker/internal/domain"
	"cpulse-tracker/internal/session"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

type SessionRepository struct {
	queries *db.Queries
	logger  zerolog.Logger
}

func NewSessionRepository(queries *db.Queries, logger zerolog.Logger) *SessionRepository {
	return &SessionRepository{queries: queries, logger: logger}
}

// Get looks a session up by its bearer token. Only the token's hash is stored,
// so the returned session carries the caller's token back.
func (r *SessionRepository) Get(ctx context.Context, token string) (*session.Snapshot, error) {
	row, err := r.queries.GetSessionByTokenHash(ctx, session.HashToken(token))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var user domain.User
	if err := json.Unmarshal(row.UserPayload, &user); err != nil {
		return nil, fmt.Errorf("failed to decode stored user %s: %w", row.UserID, err)
	}

	sess := session.Session{
		Token:   token,
		Subject: row.UserID,
		User:    &user,
	}
	if row.ExpiresAt.Valid {
		sess.ExpiresAt = row.ExpiresAt.Time
	}

	return &session.Snapshot{Session: sess, RefreshedAt: row.RefreshedAt}, nil
}

func (r *SessionRepository) Upsert(ctx context.Context, sess session.Session, refreshedAt time.Time) error {
	if sess.User == nil {
		return fmt.Errorf("session for subject %q has no user", sess.Subject)
	}
	if !sess.HasToken() {
		return fmt.Errorf("session for subject %q has no token", sess.Subject)
	}

	payload, err := json.Marshal(sess.User)
	if err != nil {
		return fmt.Errorf("failed to encode user: %w", err)
	}

	id, err := gonanoid.New()
	if err != nil {
		return fmt.Errorf("failed to generate nanoid: %w", err)
	}

	now := time.Now()
	return r.queries.UpsertSession(ctx, db.UpsertSessionParams{
		ID:          id,
		TokenHash:   sess.TokenHash(),
		UserID:      sess.User.ID,
		UserPayload: payload,
		ExpiresAt:   sql.NullTime{Time: sess.ExpiresAt.UTC(), Valid: !sess.ExpiresAt.IsZero()},
		RefreshedAt: refreshedAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}

func (r *SessionRepository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	n, err := r.queries.DeleteExpiredSessions(ctx, now.UTC())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		r.logger.Info().Int64("count", n).Msg("purged expired sessions")
	}
	return n, nil
}
