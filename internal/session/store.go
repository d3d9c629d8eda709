// Package session persists client state the browser kept in local
// storage: the authenticated user with its token and the selected
// barbershop.
package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"
)

// ErrNotFound is returned when no value is stored for the user.
var ErrNotFound = errors.New("session: not found")

// Store persists per-user client session values.
type Store interface {
	SaveUser(ctx context.Context, userID int64, name, token string) error
	User(ctx context.Context, userID int64) (name, token string, err error)
	SetSelectedBarbershop(ctx context.Context, userID, shopID int64) error
	SelectedBarbershop(ctx context.Context, userID int64) (int64, error)
	Clear(ctx context.Context, userID int64) error
	Close() error
}

// SQLiteStore keeps session values in a local SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	logger *zerolog.Logger
}

// NewSQLiteStore opens (creating if needed) the session database.
func NewSQLiteStore(path string, logger *zerolog.Logger) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create session directory: %w", err)
	}

	dsn := path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping session store: %w", err)
	}

	s := &SQLiteStore{db: db, logger: logger}
	if err := s.createTables(); err != nil {
		return nil, fmt.Errorf("create session tables: %w", err)
	}
	logger.Info().Str("path", path).Msg("session store initialized")
	return s, nil
}

func (s *SQLiteStore) createTables() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS client_sessions (
		user_id INTEGER PRIMARY KEY,
		user_name TEXT NOT NULL DEFAULT '',
		token TEXT NOT NULL DEFAULT '',
		selected_barbershop_id INTEGER NOT NULL DEFAULT 0,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`)
	return err
}

// SaveUser stores the authenticated user and token.
func (s *SQLiteStore) SaveUser(ctx context.Context, userID int64, name, token string) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO client_sessions (user_id, user_name, token, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(user_id) DO UPDATE SET user_name = excluded.user_name, token = excluded.token, updated_at = CURRENT_TIMESTAMP`,
		userID, name, token)
	if err != nil {
		return fmt.Errorf("save user %d: %w", userID, err)
	}
	return nil
}

// User returns the stored name and token for the user.
func (s *SQLiteStore) User(ctx context.Context, userID int64) (string, string, error) {
	var name, token string
	err := s.db.QueryRowContext(ctx,
		`SELECT user_name, token FROM client_sessions WHERE user_id = ?`, userID).Scan(&name, &token)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", ErrNotFound
	}
	if err != nil {
		return "", "", fmt.Errorf("load user %d: %w", userID, err)
	}
	return name, token, nil
}

// SetSelectedBarbershop persists the shop picked in the locator.
func (s *SQLiteStore) SetSelectedBarbershop(ctx context.Context, userID, shopID int64) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO client_sessions (user_id, selected_barbershop_id, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(user_id) DO UPDATE SET selected_barbershop_id = excluded.selected_barbershop_id, updated_at = CURRENT_TIMESTAMP`,
		userID, shopID)
	if err != nil {
		return fmt.Errorf("save selected barbershop for user %d: %w", userID, err)
	}
	return nil
}

// SelectedBarbershop returns the persisted shop id for the user.
func (s *SQLiteStore) SelectedBarbershop(ctx context.Context, userID int64) (int64, error) {
	var shopID int64
	err := s.db.QueryRowContext(ctx,
		`SELECT selected_barbershop_id FROM client_sessions WHERE user_id = ?`, userID).Scan(&shopID)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && shopID == 0) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("load selected barbershop for user %d: %w", userID, err)
	}
	return shopID, nil
}

// Clear drops the user's session row.
func (s *SQLiteStore) Clear(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM client_sessions WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("clear session for user %d: %w", userID, err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Open returns a SQLite-backed store, falling back to an in-memory one
// when the file store cannot be opened. The fallback loses persistence
// across restarts but keeps the app usable.
func Open(path string, logger *zerolog.Logger) Store {
	store, err := NewSQLiteStore(path, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("session store unavailable, falling back to memory")
		return NewMemoryStore()
	}
	return store
}
