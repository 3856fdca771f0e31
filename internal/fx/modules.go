package fx

import (
	"context"
	"cpulse-tracker/internal/api"
	"cpulse-tracker/internal/cache"
	"cpulse-tracker/internal/community"
	"cpulse-tracker/internal/compare"
	"cpulse-tracker/internal/config"
	"cpulse-tracker/internal/constants"
	"cpulse-tracker/internal/database"
	"cpulse-tracker/internal/db"
	"cpulse-tracker/internal/leaderboard"
	"cpulse-tracker/internal/logger"
	"cpulse-tracker/internal/repository"
	"cpulse-tracker/internal/score"
	"cpulse-tracker/internal/server"
	"cpulse-tracker/internal/session"
	"cpulse-tracker/internal/stats"
	"database/sql"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

func ProvideQueries(sqlDB *sql.DB) *db.Queries {
	return db.New(sqlDB)
}

func ProvideCache(lc fx.Lifecycle, cfg *config.Config, logger zerolog.Logger) (cache.Cache, error) {
	c, err := cache.New(cfg, logger)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return c.Close()
		},
	})
	return c, nil
}

func ProvideSessionHolder(client *api.Client, repo *repository.SessionRepository, cfg *config.Config, logger zerolog.Logger) *session.Holder {
	return session.NewHolder(client, repo, cfg.StatsTTL, logger)
}

func ProvideCompareService(statsSvc *stats.Service, logger zerolog.Logger) *compare.Service {
	return compare.NewService(statsSvc, logger)
}

// PurgeExpiredSessions drops stored sessions whose token has expired.
func PurgeExpiredSessions(lc fx.Lifecycle, repo *repository.SessionRepository, logger zerolog.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
			defer cancel()

			n, err := repo.PurgeExpired(ctx, time.Now())
			if err != nil {
				logger.Warn().Err(err).Msg("failed to purge expired sessions")
				return nil
			}
			logger.Info().Int64("purged", n).Msg("expired sessions purged")
			return nil
		},
	})
}

var Module = fx.Options(
	logger.Module,
	config.Module,
	fx.Provide(database.New),
	fx.Provide(ProvideQueries),
	fx.Provide(ProvideCache),
	// repos
	fx.Provide(repository.NewStatsRepository),
	fx.Provide(repository.NewSessionRepository),
	// api client
	fx.Provide(api.NewClient),
	fx.Provide(ProvideSessionHolder),
	// svc
	fx.Provide(stats.NewService),
	fx.Provide(ProvideCompareService),
	fx.Provide(leaderboard.NewService),
	fx.Provide(community.NewService),
	fx.Provide(score.NewService),
	// server
	fx.Provide(server.NewTrackerServer),
	fx.Invoke(PurgeExpiredSessions),
)
