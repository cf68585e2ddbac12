// Package session is the durable session-scoped handoff: a small sqlite
// key/value table holding the theme preference, the view-mode preference
// and at most one parked pending-mutation record. Values are opaque
// strings; nothing else in the client persists across restarts.
package session

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"footysync/internal/config"
	"footysync/internal/domain"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

const (
	keyTheme            = "theme"
	keyViewMode         = "view_mode"
	keyParkedPrediction = "parked_prediction"
)

// ParkedPrediction is the one mutation serialized while the user was
// unauthenticated, replayed exactly once after login.
type ParkedPrediction struct {
	ID       string        `json:"id"`
	MatchID  int64         `json:"match_id"`
	Choice   domain.Choice `json:"choice"`
	ParkedAt time.Time     `json:"parked_at"`
}

type Store struct {
	db     *sql.DB
	logger zerolog.Logger
}

func New(cfg *config.Config, logger zerolog.Logger) (*Store, error) {
	logger.Info().Str("path", cfg.DBPath).Msg("opening session store")

	db, err := sql.Open("sqlite3", cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}

	// Single connection: the store is a handful of keys, and it keeps
	// in-memory databases from fragmenting across pool connections.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	if err := runMigrations(db, logger); err != nil {
		return nil, err
	}

	return &Store{db: db, logger: logger}, nil
}

func runMigrations(db *sql.DB, logger zerolog.Logger) error {
	goose.SetBaseFS(embedMigrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("run goose migrations: %w", err)
	}

	logger.Debug().Msg("session store migrations completed")
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get %q: %w", key, err)
	}
	return value, true, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at",
		key, value, time.Now())
	if err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM kv WHERE key = ?", key); err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return nil
}

func (s *Store) Theme(ctx context.Context) (string, error) {
	v, _, err := s.Get(ctx, keyTheme)
	return v, err
}

func (s *Store) SetTheme(ctx context.Context, theme string) error {
	return s.Set(ctx, keyTheme, theme)
}

func (s *Store) ViewMode(ctx context.Context) (string, error) {
	v, _, err := s.Get(ctx, keyViewMode)
	return v, err
}

func (s *Store) SetViewMode(ctx context.Context, mode string) error {
	return s.Set(ctx, keyViewMode, mode)
}

// ParkPrediction serializes the deferred mutation. At most one record
// exists; a later park overwrites an earlier one.
func (s *Store) ParkPrediction(ctx context.Context, matchID int64, choice domain.Choice) error {
	id, err := gonanoid.New()
	if err != nil {
		return fmt.Errorf("generate parked mutation id: %w", err)
	}

	record := ParkedPrediction{ID: id, MatchID: matchID, Choice: choice, ParkedAt: time.Now()}
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode parked prediction: %w", err)
	}

	s.logger.Debug().Str("parked_id", id).Int64("match_id", matchID).Msg("parking prediction until login")
	return s.Set(ctx, keyParkedPrediction, string(payload))
}

// TakeParkedPrediction returns the parked record and clears it, so a
// replay happens exactly once. Nil without error means nothing parked.
func (s *Store) TakeParkedPrediction(ctx context.Context) (*ParkedPrediction, error) {
	raw, ok, err := s.Get(ctx, keyParkedPrediction)
	if err != nil || !ok {
		return nil, err
	}

	var record ParkedPrediction
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		// Corrupt record: clear it rather than replay garbage forever.
		s.logger.Warn().Err(err).Msg("discarding unreadable parked prediction")
		_ = s.Delete(ctx, keyParkedPrediction)
		return nil, nil
	}

	if err := s.Delete(ctx, keyParkedPrediction); err != nil {
		return nil, err
	}
	return &record, nil
}

var Module = fx.Provide(New)
