package session

import (
	"context"
	"cpulse-tracker/internal/apperr"
	"cpulse-tracker/internal/domain"
	"time"

	"github.com/rs/zerolog"
)

type UserFetcher interface {
	Me(ctx context.Context, sess Session) (*domain.User, error)
}

type Snapshot struct {
	Session     Session
	RefreshedAt time.Time
}

// Store persists the last known user for a token. Get returns (nil, nil)
// when nothing is stored.
type Store interface {
	Get(ctx context.Context, token string) (*Snapshot, error)
	Upsert(ctx context.Context, sess Session, refreshedAt time.Time) error
}

type Holder struct {
	fetcher UserFetcher
	store   Store
	ttl     time.Duration
	now     func() time.Time
	logger  zerolog.Logger
}

func NewHolder(fetcher UserFetcher, store Store, ttl time.Duration, logger zerolog.Logger) *Holder {
	return &Holder{fetcher: fetcher, store: store, ttl: ttl, now: time.Now, logger: logger}
}

// Refresh resolves the user behind sess. A stored snapshot younger than the
// holder's TTL is reused unless force is set.
func (h *Holder) Refresh(ctx context.Context, sess Session, force bool) (Session, error) {
	if !sess.HasToken() {
		return sess, apperr.Unauthorized("missing_token", "no bearer token supplied")
	}
	now := h.now()
	if sess.Expired(now) {
		return sess, apperr.Unauthorized("session_expired", "bearer token has expired")
	}

	if !force {
		snap, err := h.store.Get(ctx, sess.Token)
		if err != nil {
			h.logger.Warn().Err(err).Msg("failed to read stored session, refetching")
		} else if snap != nil && snap.Session.User != nil && now.Sub(snap.RefreshedAt) < h.ttl {
			h.logger.Debug().Str("user_id", snap.Session.User.ID).Msg("returning stored session")
			sess.User = snap.Session.User
			return sess, nil
		}
	}

	user, err := h.fetcher.Me(ctx, sess)
	if err != nil {
		h.logger.Error().Err(err).Str("kind", apperr.KindOf(err).String()).Msg("failed to refresh session")
		return sess, err
	}
	sess.User = user
	if sess.Subject == "" {
		sess.Subject = user.ID
	}

	if err := h.store.Upsert(ctx, sess, now); err != nil {
		// the caller still gets a valid session; only the snapshot is lost
		h.logger.Warn().Err(err).Str("user_id", user.ID).Msg("failed to persist session snapshot")
	}

	h.logger.Info().Str("user_id", user.ID).Msg("session refreshed")
	return sess, nil
}
