package stats

import (
	"context"
	"cpulse-tracker/internal/api"
	"cpulse-tracker/internal/apperr"
	"cpulse-tracker/internal/config"
	"cpulse-tracker/internal/constants"
	"cpulse-tracker/internal/domain"
	"cpulse-tracker/internal/repository"
	"cpulse-tracker/internal/session"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

type Service struct {
	client *api.Client
	repo   *repository.StatsRepository
	ttl    time.Duration
	group  singleflight.Group
	logger zerolog.Logger
}

func NewService(client *api.Client, repo *repository.StatsRepository, cfg *config.Config, logger zerolog.Logger) *Service {
	return &Service{client: client, repo: repo, ttl: cfg.StatsTTL, logger: logger}
}

func (s *Service) GetUserStats(ctx context.Context, sess session.Session, platform domain.Platform, handle string, refresh bool) (*domain.UserStats, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	handle = strings.TrimSpace(handle)
	if handle == "" {
		return nil, apperr.Validation("empty_handle", "handle is required")
	}

	s.logger.Info().Str("platform", string(platform)).Str("handle", handle).Bool("refresh", refresh).Msg("getting user stats")

	if !refresh {
		if stats, ok := s.fromSnapshot(ctx, platform, handle); ok {
			return stats, nil
		}
	}

	key := fetchKey(sess, platform, handle)
	ch := s.group.DoChan(key, func() (any, error) {
		// the shared fetch outlives any single caller so a cancelled waiter
		// does not fail the others
		fetchCtx, fetchCancel := context.WithTimeout(context.WithoutCancel(ctx), constants.RequestTimeout)
		defer fetchCancel()
		return s.fetchAndStore(fetchCtx, sess, platform, handle)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			s.logger.Debug().Str("platform", string(platform)).Str("handle", handle).Msg("metrics fetch shared with concurrent caller")
		}
		return res.Val.(*domain.UserStats), nil
	case <-ctx.Done():
		return nil, apperr.Upstream("request_cancelled", fmt.Sprintf("stats for %s/%s", platform, handle), ctx.Err())
	}
}

// fetchKey scopes in-flight deduplication to one credential: callers with
// different tokens never share an upstream call.
func fetchKey(sess session.Session, platform domain.Platform, handle string) string {
	owner := "anon"
	if sess.HasToken() {
		owner = sess.TokenHash()
	}
	return string(platform) + ":" + strings.ToLower(handle) + ":" + owner
}

func (s *Service) fromSnapshot(ctx context.Context, platform domain.Platform, handle string) (*domain.UserStats, bool) {
	snap, err := s.repo.Get(ctx, platform, handle)
	if err != nil {
		s.logger.Warn().Err(err).Str("platform", string(platform)).Str("handle", handle).Msg("failed to read snapshot, fetching from API")
		return nil, false
	}
	if snap == nil {
		s.logger.Debug().Str("platform", string(platform)).Str("handle", handle).Msg("snapshot not found, fetching from API")
		return nil, false
	}
	if time.Since(snap.FetchedAt) > s.ttl {
		s.logger.Debug().Str("platform", string(platform)).Str("handle", handle).Time("fetched_at", snap.FetchedAt).Msg("snapshot is stale")
		return nil, false
	}

	res, err := Normalize(platform, handle, snap.Payload)
	if err != nil {
		s.logger.Warn().Err(err).Str("platform", string(platform)).Str("handle", handle).Msg("stored snapshot unreadable, refetching")
		return nil, false
	}
	res.Stats.FetchedAt = snap.FetchedAt
	s.logger.Info().Str("platform", string(platform)).Str("handle", handle).Msg("returning cached stats")
	return res.Stats, true
}

func (s *Service) fetchAndStore(ctx context.Context, sess session.Session, platform domain.Platform, handle string) (*domain.UserStats, error) {
	apiCtx, apiCancel := context.WithTimeout(ctx, constants.ExternalAPITimeout)
	defer apiCancel()

	raw, err := s.client.Metrics(apiCtx, sess, platform, handle)
	if err != nil {
		s.logger.Error().Err(err).Str("platform", string(platform)).Str("handle", handle).Msg("failed to fetch metrics")
		return nil, err
	}

	res, err := Normalize(platform, handle, raw)
	if err != nil {
		s.logger.Error().Err(err).Str("platform", string(platform)).Str("handle", handle).Msg("failed to normalize metrics")
		return nil, err
	}
	if res.Dropped > 0 {
		s.logger.Warn().Int("dropped", res.Dropped).Str("platform", string(platform)).Str("handle", handle).Msg("history points with unreadable dates dropped")
	}

	fetchedAt := time.Now()
	res.Stats.FetchedAt = fetchedAt

	// persistence failures cost a cache entry, not the response
	if err := s.repo.Save(ctx, platform, handle, raw, fetchedAt); err != nil {
		s.logger.Warn().Err(err).Str("platform", string(platform)).Str("handle", handle).Msg("failed to store snapshot")
	}
	if err := s.repo.UpsertHistory(ctx, platform, handle, res.Stats.History); err != nil {
		s.logger.Warn().Err(err).Str("platform", string(platform)).Str("handle", handle).Msg("failed to store rating history")
	}

	s.logger.Info().Str("platform", string(platform)).Str("handle", handle).Int("history_points", len(res.Stats.History)).Msg("stats fetched successfully")
	return res.Stats, nil
}

// History returns every point recorded for the handle across fetches, which
// can reach further back than the latest upstream payload.
func (s *Service) History(ctx context.Context, sess session.Session, platform domain.Platform, handle string) ([]domain.HistoryPoint, error) {
	if _, err := s.GetUserStats(ctx, sess, platform, handle, false); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	points, err := s.repo.History(ctx, platform, handle, constants.HistoryQueryLimit)
	if err != nil {
		return nil, apperr.Internal("history_read", fmt.Sprintf("failed to read history for %s/%s", platform, handle), err)
	}
	return points, nil
}

// Card is one platform tile of a dashboard. Exactly one of Stats and Err is set.
type Card struct {
	Platform domain.Platform
	Handle   string
	Stats    *domain.UserStats
	Err      error
}

// Dashboard fetches every requested platform concurrently. A failing platform
// yields a card carrying its error; the other cards are unaffected.
func (s *Service) Dashboard(ctx context.Context, sess session.Session, handles map[domain.Platform]string, refresh bool) []Card {
	var cards []Card
	for _, p := range domain.Platforms {
		if h, ok := handles[p]; ok && strings.TrimSpace(h) != "" {
			cards = append(cards, Card{Platform: p, Handle: h})
		}
	}

	var g errgroup.Group
	for i := range cards {
		card := &cards[i]
		g.Go(func() error {
			card.Stats, card.Err = s.GetUserStats(ctx, sess, card.Platform, card.Handle, refresh)
			return nil
		})
	}
	_ = g.Wait() // errors live on the cards

	for _, card := range cards {
		if card.Err != nil {
			s.logger.Warn().Err(card.Err).Str("platform", string(card.Platform)).Str("kind", apperr.KindOf(card.Err).String()).Msg("dashboard card failed")
		}
	}
	return cards
}
