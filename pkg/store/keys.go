package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// ErrKeyNotFound is returned when no API key matches the requested hash or id.
var ErrKeyNotFound = errors.New("store: api key not found")

// MasterScope grants every permission.
const MasterScope = "*"

// APIKey describes a stored API key. The raw key is never stored, only its hash.
type APIKey struct {
	ID          int      `json:"id"`
	Scopes      []string `json:"scopes"`
	Description string   `json:"description"`
}

// CountKeys returns the number of stored API keys.
func (s *Store) CountKeys(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM api_keys").Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// CreateKey stores the hash of a new API key. The first key ever created is
// given MasterScope regardless of the requested scopes, so the key set can
// never lock its owner out.
func (s *Store) CreateKey(ctx context.Context, keyHash string, scopes []string, description string) (APIKey, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return APIKey{}, fmt.Errorf("could not begin transaction for key: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	var keyCount int
	if err = tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM api_keys").Scan(&keyCount); err != nil {
		return APIKey{}, err
	}
	if keyCount == 0 {
		scopes = []string{MasterScope}
	}

	key := APIKey{Scopes: scopes, Description: description}
	err = tx.QueryRowContext(ctx,
		`INSERT INTO api_keys (key_hash, description, scopes) VALUES (?, ?, ?) RETURNING id`,
		keyHash, description, strings.Join(scopes, " ")).Scan(&key.ID)
	if err != nil {
		return APIKey{}, fmt.Errorf("failed to insert api key: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return APIKey{}, err
	}

	s.logger.InfoContext(ctx, "API key created",
		slog.Int("key_id", key.ID),
		slog.String("scopes", strings.Join(scopes, " ")),
	)
	return key, nil
}

// KeyScopes returns the scopes of the key with the given hash.
func (s *Store) KeyScopes(ctx context.Context, keyHash string) ([]string, error) {
	var scopes string
	if err := s.stmtKeyScopes.QueryRowContext(ctx, keyHash).Scan(&scopes); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrKeyNotFound
		}
		return nil, err
	}
	return strings.Fields(scopes), nil
}

// ListKeys returns every stored key ordered by id.
func (s *Store) ListKeys(ctx context.Context) ([]APIKey, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, description, scopes FROM api_keys ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	keys := make([]APIKey, 0)
	for rows.Next() {
		var key APIKey
		var scopes string
		if err = rows.Scan(&key.ID, &key.Description, &scopes); err != nil {
			return nil, err
		}
		key.Scopes = strings.Fields(scopes)
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// DeleteKey removes the key with the given id.
func (s *Store) DeleteKey(ctx context.Context, id int) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM api_keys WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete api key %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrKeyNotFound
	}
	s.logger.InfoContext(ctx, "API key deleted", slog.Int("key_id", id))
	return nil
}
