package db

import (
	"context"
	"time"
)

type StatsSnapshot struct {
	Platform  string
	Handle    string
	Payload   []byte
	FetchedAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

const getStatsSnapshot = `
SELECT platform, handle, payload, fetched_at, created_at, updated_at
FROM stats_snapshots
WHERE platform = ? AND handle = ?
`

func (q *Queries) GetStatsSnapshot(ctx context.Context, platform, handle string) (StatsSnapshot, error) {
	row := q.db.QueryRowContext(ctx, getStatsSnapshot, platform, handle)
	var i StatsSnapshot
	err := row.Scan(
		&i.Platform,
		&i.Handle,
		&i.Payload,
		&i.FetchedAt,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

type UpsertStatsSnapshotParams struct {
	Platform  string
	Handle    string
	Payload   []byte
	FetchedAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

const upsertStatsSnapshot = `
INSERT INTO stats_snapshots (platform, handle, payload, fetched_at, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (platform, handle) DO UPDATE SET
    payload = excluded.payload,
    fetched_at = excluded.fetched_at,
    updated_at = excluded.updated_at
`

func (q *Queries) UpsertStatsSnapshot(ctx context.Context, arg UpsertStatsSnapshotParams) error {
	_, err := q.db.ExecContext(ctx, upsertStatsSnapshot,
		arg.Platform,
		arg.Handle,
		arg.Payload,
		arg.FetchedAt,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	return err
}

type RatingHistory struct {
	ID        string
	Platform  string
	Handle    string
	Date      string
	Score     float64
	CreatedAt time.Time
	UpdatedAt time.Time
}

type UpsertRatingHistoryParams struct {
	ID        string
	Platform  string
	Handle    string
	Date      string
	Score     float64
	CreatedAt time.Time
	UpdatedAt time.Time
}

const upsertRatingHistory = `
INSERT INTO rating_history (id, platform, handle, date, score, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (platform, handle, date) DO UPDATE SET
    score = excluded.score,
    updated_at = excluded.updated_at
`

func (q *Queries) UpsertRatingHistory(ctx context.Context, arg UpsertRatingHistoryParams) error {
	_, err := q.db.ExecContext(ctx, upsertRatingHistory,
		arg.ID,
		arg.Platform,
		arg.Handle,
		arg.Date,
		arg.Score,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	return err
}

type GetRatingHistoryParams struct {
	Platform string
	Handle   string
	Limit    int64
}

// newest first so the limit keeps the most recent points
const getRatingHistory = `
SELECT id, platform, handle, date, score, created_at, updated_at
FROM rating_history
WHERE platform = ? AND handle = ?
ORDER BY date DESC
LIMIT ?
`

func (q *Queries) GetRatingHistory(ctx context.Context, arg GetRatingHistoryParams) ([]RatingHistory, error) {
	rows, err := q.db.QueryContext(ctx, getRatingHistory, arg.Platform, arg.Handle, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []RatingHistory
	for rows.Next() {
		var i RatingHistory
		if err := rows.Scan(
			&i.ID,
			&i.Platform,
			&i.Handle,
			&i.Date,
			&i.Score,
			&i.CreatedAt,
			&i.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
