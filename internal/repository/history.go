package repository

import (
	"context"
	"cpulse-tracker/internal/constants"
	"cpulse-tracker/internal/db"
	"cpulse-tracker/internal/domain"
	"fmt"
	"slices"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

func (r *StatsRepository) UpsertHistory(ctx context.Context, platform domain.Platform, handle string, points []domain.HistoryPoint) error {
	if len(points) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := r.queries.WithTx(tx)
	now := time.Now()
	key := handleKey(handle)

	for i := 0; i < len(points); i += constants.DBBatchSize {
		end := min(i+constants.DBBatchSize, len(points))

		for _, point := range points[i:end] {
			id, err := gonanoid.New()
			if err != nil {
				return fmt.Errorf("failed to generate nanoid: %w", err)
			}

			err = qtx.UpsertRatingHistory(ctx, db.UpsertRatingHistoryParams{
				ID:        id,
				Platform:  string(platform),
				Handle:    key,
				Date:      point.Date,
				Score:     point.Score,
				CreatedAt: now,
				UpdatedAt: now,
			})
			if err != nil {
				return fmt.Errorf("failed to upsert rating history %s/%s@%s: %w", platform, handle, point.Date, err)
			}
		}
	}

	return tx.Commit()
}

// History returns up to limit of the most recent points, oldest first.
func (r *StatsRepository) History(ctx context.Context, platform domain.Platform, handle string, limit int) ([]domain.HistoryPoint, error) {
	records, err := r.queries.GetRatingHistory(ctx, db.GetRatingHistoryParams{
		Platform: string(platform),
		Handle:   handleKey(handle),
		Limit:    int64(limit),
	})
	if err != nil {
		return nil, err
	}

	result := make([]domain.HistoryPoint, len(records))
	for i, rec := range records {
		result[i] = domain.HistoryPoint{Date: rec.Date, Score: rec.Score}
	}
	slices.Reverse(result)
	return result, nil
}
