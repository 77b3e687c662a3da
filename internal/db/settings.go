package db

import (
	"context"
	"database/sql"
	"fmt"
)

// SettingsStore persists operator settings (admin password hash, JWT
// secret) in the settings table.
type SettingsStore struct {
	db *sql.DB
}

func NewSettingsStore(conn *sql.DB) *SettingsStore {
	return &SettingsStore{db: conn}
}

func (s *SettingsStore) Get(ctx context.Context, key string) (*Setting, error) {
	setting := &Setting{}
	err := s.db.QueryRowContext(ctx,
		"SELECT key, value, updated_at FROM settings WHERE key = ?", key,
	).Scan(&setting.Key, &setting.Value, &setting.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("failed to get setting %s: %w", key, err)
	}
	return setting, nil
}

func (s *SettingsStore) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set setting %s: %w", key, err)
	}
	return nil
}
