package config

import (
	"fmt"
	"net/url"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

type Config struct {
	// BackendOrigin is the http(s) origin of the platform API. WebSocket
	// feed URLs are derived from it by swapping the scheme.
	BackendOrigin string

	// SessionCookie is the ambient session credential sent with every
	// REST request. Empty means unauthenticated.
	SessionCookie string

	// UserID addresses the per-user chat/notification feed. Optional;
	// without it only the match broadcast feed is available.
	UserID string

	// LeagueID is the league filter used for the initial match load.
	LeagueID string

	DBPath   string
	LogLevel string
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	cfg := &Config{
		BackendOrigin: getEnv("BACKEND_ORIGIN", ""),
		SessionCookie: getEnv("SESSION_COOKIE", ""),
		UserID:        getEnv("USER_ID", ""),
		LeagueID:      getEnv("LEAGUE_ID", ""),
		DBPath:        getEnv("DB_PATH", "footysync.db"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
	}

	if cfg.BackendOrigin == "" {
		return nil, fmt.Errorf("BACKEND_ORIGIN is required")
	}
	origin, err := url.Parse(cfg.BackendOrigin)
	if err != nil || (origin.Scheme != "http" && origin.Scheme != "https") {
		return nil, fmt.Errorf("BACKEND_ORIGIN must be an http(s) origin, got %q", cfg.BackendOrigin)
	}

	logger.Info().
		Str("backend_origin", cfg.BackendOrigin).
		Str("user_id", cfg.UserID).
		Str("db_path", cfg.DBPath).
		Str("log_level", cfg.LogLevel).
		Bool("authenticated", cfg.SessionCookie != "").
		Msg("configuration loaded")

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

var Module = fx.Provide(Load)
