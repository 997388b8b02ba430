package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// Store persists session payloads in the sessions table.
// Payloads are msgpack encoded; expires_at is a unix timestamp.
type Store struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewStore creates a session store on sessions.db
func NewStore(db *sql.DB, log zerolog.Logger) *Store {
	return &Store{
		db:  db,
		log: log.With().Str("repo", "session").Logger(),
	}
}

// Get returns the payload and expiry of a live session.
// Unknown and expired ids both yield ErrNoSession.
func (s *Store) Get(ctx context.Context, id string, now time.Time) (Data, time.Time, error) {
	var (
		blob      []byte
		expiresAt int64
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT data, expires_at FROM sessions WHERE id = ?", id,
	).Scan(&blob, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Data{}, time.Time{}, ErrNoSession
	}
	if err != nil {
		return Data{}, time.Time{}, fmt.Errorf("failed to load session: %w", err)
	}

	if expiresAt <= now.Unix() {
		return Data{}, time.Time{}, ErrNoSession
	}

	var data Data
	if err := msgpack.Unmarshal(blob, &data); err != nil {
		return Data{}, time.Time{}, fmt.Errorf("failed to decode session: %w", err)
	}
	return data, time.Unix(expiresAt, 0), nil
}

// Put inserts or replaces a session
func (s *Store) Put(ctx context.Context, id string, data Data, expiresAt time.Time) error {
	blob, err := msgpack.Marshal(&data)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, data, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET data = excluded.data, expires_at = excluded.expires_at
	`, id, blob, expiresAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Delete removes a session; deleting an unknown id is not an error
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteExpired removes sessions expired at now and returns how many were removed
func (s *Store) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at <= ?", now.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return result.RowsAffected()
}

// Count returns the number of stored sessions, expired ones included
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sessions").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	return n, nil
}
