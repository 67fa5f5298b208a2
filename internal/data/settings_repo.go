package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	apperrors "github.com/aslab/autoscore/internal/errors"
)

// SettingsRepo stores provider configuration in the llm_settings table. Keys
// are tri-state: present with a value, present with an empty value, or absent.
// The distinction matters because an operator clearing an API key through the
// settings store must not be silently overridden by an environment default.
type SettingsRepo struct {
	DB    *sql.DB
	clock TimeProvider
}

// NewSettingsRepo creates a SettingsRepo with the given database connection.
func NewSettingsRepo(db *sql.DB, cfg RepoConfig) *SettingsRepo {
	tp := cfg.TimeProvider
	if tp == nil {
		tp = RealTimeProvider{}
	}
	return &SettingsRepo{DB: db, clock: tp}
}

// Get returns (value, true, nil) when the key exists, even with an empty
// value, and ("", false, nil) when it was never set.
func (r *SettingsRepo) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.DB.QueryRowContext(ctx,
		`SELECT value FROM llm_settings WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get setting %q: %w", key, apperrors.MapDBError(err))
	}
	return value, true, nil
}

// GetAll returns every stored setting.
func (r *SettingsRepo) GetAll(ctx context.Context) (map[string]string, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT key, value FROM llm_settings`)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", apperrors.MapDBError(err))
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		settings[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list settings: %w", apperrors.MapDBError(err))
	}
	return settings, nil
}

// Set stores or replaces a setting.
func (r *SettingsRepo) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return apperrors.ValidationField("key", "setting key is required")
	}
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO llm_settings (key, value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		key, value, r.clock.Now())
	if err != nil {
		return fmt.Errorf("set setting %q: %w", key, apperrors.MapDBError(err))
	}
	return nil
}

// Delete removes a setting, reverting it to unset. Deleting an absent key is
// a no-op.
func (r *SettingsRepo) Delete(ctx context.Context, key string) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM llm_settings WHERE key = $1`, key)
	if err != nil {
		return fmt.Errorf("delete setting %q: %w", key, apperrors.MapDBError(err))
	}
	return nil
}
