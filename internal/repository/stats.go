package repository

import (
	"context"
	"cpulse-tracker/internal/db"
	"cpulse-tracker/internal/domain"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

type StatsRepository struct {
	queries *db.Queries
	db      *sql.DB
	logger  zerolog.Logger
}

func NewStatsRepository(sqlDB *sql.DB, queries *db.Queries, logger zerolog.Logger) *StatsRepository {
	return &StatsRepository{
		queries: queries,
		db:      sqlDB,
		logger:  logger,
	}
}

// Snapshot is the raw upstream payload as last fetched.
type Snapshot struct {
	Platform  domain.Platform
	Handle    string
	Payload   []byte
	FetchedAt time.Time
}

// handles are case-insensitive on every supported platform
func handleKey(handle string) string {
	return strings.ToLower(strings.TrimSpace(handle))
}

// Get returns (nil, nil) when no snapshot has been stored yet.
func (r *StatsRepository) Get(ctx context.Context, platform domain.Platform, handle string) (*Snapshot, error) {
	row, err := r.queries.GetStatsSnapshot(ctx, string(platform), handleKey(handle))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &Snapshot{
		Platform:  domain.Platform(row.Platform),
		Handle:    row.Handle,
		Payload:   row.Payload,
		FetchedAt: row.FetchedAt,
	}, nil
}

func (r *StatsRepository) Save(ctx context.Context, platform domain.Platform, handle string, payload []byte, fetchedAt time.Time) error {
	now := time.Now()
	return r.queries.UpsertStatsSnapshot(ctx, db.UpsertStatsSnapshotParams{
		Platform:  string(platform),
		Handle:    handleKey(handle),
		Payload:   payload,
		FetchedAt: fetchedAt,
		CreatedAt: now,
		UpdatedAt: now,
	})
}
