// Package users is the registry of people who have logged in. Names are the
// only credential; the row mostly anchors history and explanation ownership.
package users

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"
)

var ErrEmptyName = errors.New("user name required")

type Store interface {
	// Ensure creates the user if absent. Existing users are left untouched.
	Ensure(ctx context.Context, name string) error
	Exists(ctx context.Context, name string) (bool, error)
}

type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore { return &SQLStore{db: db} }

func (s *SQLStore) Ensure(ctx context.Context, name string) error {
	if name == "" {
		return ErrEmptyName
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO users (user_name, created_at)
		VALUES ($1,$2) ON CONFLICT (user_name) DO NOTHING`,
		name, time.Now().Unix())
	return err
}

func (s *SQLStore) Exists(ctx context.Context, name string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM users WHERE user_name=$1`, name).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

type memoryStore struct {
	mu    sync.Mutex
	names map[string]bool
}

func NewInMemoryStore() Store { return &memoryStore{names: map[string]bool{}} }

func (m *memoryStore) Ensure(_ context.Context, name string) error {
	if name == "" {
		return ErrEmptyName
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.names[name] = true
	return nil
}

func (m *memoryStore) Exists(_ context.Context, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.names[name], nil
}
