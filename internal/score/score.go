package score

import (
	"cmp"
	"context"
	"cpulse-tracker/internal/api"
	"cpulse-tracker/internal/apperr"
	"cpulse-tracker/internal/domain"
	"cpulse-tracker/internal/session"
	"slices"

	"github.com/rs/zerolog"
)

type Service struct {
	client *api.Client
	logger zerolog.Logger
}

func NewService(client *api.Client, logger zerolog.Logger) *Service {
	return &Service{client: client, logger: logger}
}

// Get returns the signed-in user's score. The score is computed by the
// backend and only summarized here.
func (s *Service) Get(ctx context.Context, sess session.Session) (*Summary, error) {
	if !sess.HasToken() {
		return nil, apperr.Unauthorized("login_required", "sign in to see your CPulse score")
	}

	score, err := s.client.CPulseScore(ctx, sess)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to fetch cpulse score")
		return nil, err
	}

	summary := Summarize(*score)
	s.logger.Debug().
		Int("score", summary.Score.Score).
		Int("earned", summary.EarnedCount).
		Int("locked", summary.LockedCount).
		Msg("cpulse score fetched")
	return &summary, nil
}

type Summary struct {
	Score       domain.CPulseScore
	Earned      []domain.Reward
	Locked      []domain.Reward
	EarnedCount int
	LockedCount int
	// NextReward is the locked reward with the lowest threshold.
	NextReward *domain.Reward
	// PointsToNext is zero when there is no locked reward left.
	PointsToNext int
}

func Summarize(score domain.CPulseScore) Summary {
	sum := Summary{Score: score}
	for _, r := range score.Rewards {
		if r.Earned {
			sum.Earned = append(sum.Earned, r)
		} else {
			sum.Locked = append(sum.Locked, r)
		}
	}
	sum.EarnedCount = len(sum.Earned)
	sum.LockedCount = len(sum.Locked)

	if len(sum.Locked) > 0 {
		next := slices.MinFunc(sum.Locked, func(a, b domain.Reward) int {
			return cmp.Compare(a.Threshold, b.Threshold)
		})
		sum.NextReward = &next
		sum.PointsToNext = max(next.Threshold-score.Score, 0)
	}
	return sum
}
