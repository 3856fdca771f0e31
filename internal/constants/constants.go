package constants

import "time"

const (
	StatsRefreshTTL    = 5 * time.Minute
	LeaderboardTTL     = 2 * time.Minute
	HistoryQueryLimit  = 500
	PostListDefaultCap = 50
)

const (
	ExternalAPITimeout = 10 * time.Second
	DatabaseTimeout    = 5 * time.Second
	RequestTimeout     = 30 * time.Second
	HealthCheckTimeout = 2 * time.Second
)

const (
	DBMaxOpenConns    = 100
	DBMaxIdleConns    = 10
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
	DBBatchSize       = 100
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	ChartWidth  = 960
	ChartHeight = 480
)

const (
	UpstreamMaxConnsPerHost = 100
	UpstreamIdleConnTimeout = 1 * time.Minute
	DefaultRateLimit        = 90
	DefaultRateLimitReset   = 60
)
