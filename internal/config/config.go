package config

import (
	"cpulse-tracker/internal/constants"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

type Config struct {
	APIBaseURL     string
	DBPath         string
	ServerPort     string
	LogLevel       string
	StatsTTL       time.Duration
	LeaderboardTTL time.Duration
	RedisURL       string
	AllowedOrigins []string
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	statsTTL, err := getDuration("STATS_TTL", constants.StatsRefreshTTL)
	if err != nil {
		return nil, err
	}
	leaderboardTTL, err := getDuration("LEADERBOARD_TTL", constants.LeaderboardTTL)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		APIBaseURL:     strings.TrimRight(getEnv("CPULSE_API_URL", ""), "/"),
		DBPath:         getEnv("DB_PATH", "cpulse.db"),
		ServerPort:     getEnv("SERVER_PORT", "8080"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		StatsTTL:       statsTTL,
		LeaderboardTTL: leaderboardTTL,
		RedisURL:       getEnv("REDIS_URL", ""),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "*")),
	}

	if cfg.APIBaseURL == "" {
		return nil, fmt.Errorf("CPULSE_API_URL is required")
	}

	logger.Info().
		Str("api_base_url", cfg.APIBaseURL).
		Str("db_path", cfg.DBPath).
		Str("server_port", cfg.ServerPort).
		Str("log_level", cfg.LogLevel).
		Dur("stats_ttl", cfg.StatsTTL).
		Dur("leaderboard_ttl", cfg.LeaderboardTTL).
		Bool("redis_enabled", cfg.RedisURL != "").
		Msg("configuration loaded")

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return d, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

var Module = fx.Provide(Load)
