package compare

import (
	"context"
	"cpulse-tracker/internal/apperr"
	"cpulse-tracker/internal/domain"
	"cpulse-tracker/internal/session"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

type StatsSource interface {
	GetUserStats(ctx context.Context, sess session.Session, platform domain.Platform, handle string, refresh bool) (*domain.UserStats, error)
}

type Service struct {
	stats  StatsSource
	logger zerolog.Logger
}

func NewService(stats StatsSource, logger zerolog.Logger) *Service {
	return &Service{stats: stats, logger: logger}
}

type Summary struct {
	Latest1 *float64 `json:"latest1,omitempty"`
	Latest2 *float64 `json:"latest2,omitempty"`
	// Delta is Latest1 - Latest2 when both exist.
	Delta       *float64 `json:"delta,omitempty"`
	SharedDates int      `json:"sharedDates"`
}

type Comparison struct {
	Platform domain.Platform
	User1    *domain.UserStats
	User2    *domain.UserStats
	Rows     []Row
	Summary  Summary
}

// Compare fetches both users concurrently. If either fetch fails the other is
// cancelled and the whole comparison fails.
func (s *Service) Compare(ctx context.Context, sess session.Session, platform domain.Platform, handle1, handle2 string) (*Comparison, error) {
	handle1, handle2 = strings.TrimSpace(handle1), strings.TrimSpace(handle2)
	if handle1 == "" || handle2 == "" {
		return nil, apperr.Validation("missing_handle", "two handles are required for a comparison")
	}

	s.logger.Info().Str("platform", string(platform)).Str("user1", handle1).Str("user2", handle2).Msg("comparing users")

	g, gCtx := errgroup.WithContext(ctx)
	var user1, user2 *domain.UserStats

	g.Go(func() error {
		var err error
		user1, err = s.stats.GetUserStats(gCtx, sess, platform, handle1, false)
		return err
	})

	g.Go(func() error {
		var err error
		user2, err = s.stats.GetUserStats(gCtx, sess, platform, handle2, false)
		return err
	})

	if err := g.Wait(); err != nil {
		s.logger.Error().Err(err).Str("platform", string(platform)).Str("user1", handle1).Str("user2", handle2).Msg("comparison aborted")
		return nil, err
	}

	rows := Merge(user1.History, user2.History)
	return &Comparison{
		Platform: platform,
		User1:    user1,
		User2:    user2,
		Rows:     rows,
		Summary:  summarize(rows),
	}, nil
}

func summarize(rows []Row) Summary {
	var sum Summary
	for _, r := range rows {
		if r.User1 != nil {
			sum.Latest1 = r.User1
		}
		if r.User2 != nil {
			sum.Latest2 = r.User2
		}
		if r.User1 != nil && r.User2 != nil {
			sum.SharedDates++
		}
	}
	if sum.Latest1 != nil && sum.Latest2 != nil {
		d := *sum.Latest1 - *sum.Latest2
		sum.Delta = &d
	}
	return sum
}
