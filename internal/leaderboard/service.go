package leaderboard

import (
	"cmp"
	"context"
	"cpulse-tracker/internal/api"
	"cpulse-tracker/internal/apperr"
	"cpulse-tracker/internal/cache"
	"cpulse-tracker/internal/config"
	"cpulse-tracker/internal/domain"
	"cpulse-tracker/internal/session"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	globalKey   = "leaderboard:global"
	collegesKey = "leaderboard:colleges"
)

func courseKey(courseID string) string {
	return "leaderboard:course:" + courseID
}

type Service struct {
	client *api.Client
	cache  cache.Cache
	ttl    time.Duration
	logger zerolog.Logger
}

func NewService(client *api.Client, c cache.Cache, cfg *config.Config, logger zerolog.Logger) *Service {
	return &Service{
		client: client,
		cache:  c,
		ttl:    cfg.LeaderboardTTL,
		logger: logger,
	}
}

// cached reads key from the cache or calls fetch and stores the result. Cache
// failures degrade to a direct fetch.
func cached[T any](ctx context.Context, s *Service, key string, fetch func() (T, error)) (T, error) {
	var value T
	found, err := s.cache.Get(ctx, key, &value)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("cache read failed")
	}
	if found {
		return value, nil
	}

	value, err = fetch()
	if err != nil {
		return value, err
	}

	if err := s.cache.Set(ctx, key, value, s.ttl); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
	return value, nil
}

func (s *Service) Global(ctx context.Context, sess session.Session, q Query) ([]domain.LeaderboardEntry, error) {
	entries, err := cached(ctx, s, globalKey, func() ([]domain.LeaderboardEntry, error) {
		s.logger.Debug().Msg("fetching global leaderboard")
		return s.client.Leaderboard(ctx, sess)
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to fetch leaderboard")
		return nil, err
	}
	return Apply(entries, q), nil
}

func (s *Service) Colleges(ctx context.Context, sess session.Session) ([]domain.College, error) {
	colleges, err := cached(ctx, s, collegesKey, func() ([]domain.College, error) {
		return s.client.Colleges(ctx, sess)
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to fetch colleges")
		return nil, err
	}

	out := slices.Clone(colleges)
	slices.SortStableFunc(out, func(a, b domain.College) int {
		return cmp.Compare(b.AverageRating, a.AverageRating)
	})
	return out, nil
}

type CourseBoard struct {
	Course  domain.Course
	Entries []domain.LeaderboardEntry
}

func (s *Service) Course(ctx context.Context, sess session.Session, courseID string, q Query) (*CourseBoard, error) {
	courseID = strings.TrimSpace(courseID)
	if courseID == "" {
		return nil, apperr.Validation("missing_course", "course id is required")
	}

	resp, err := cached(ctx, s, courseKey(courseID), func() (*api.CourseLeaderboardResponse, error) {
		return s.client.CourseLeaderboard(ctx, sess, courseID)
	})
	if err != nil {
		s.logger.Error().Err(err).Str("course_id", courseID).Msg("failed to fetch course leaderboard")
		return nil, err
	}

	return &CourseBoard{Course: resp.Course, Entries: Apply(resp.Entries, q)}, nil
}
