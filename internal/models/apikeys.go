package models

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/codescanai/codescan/internal/crypto"
)

// APIKey identifies one API caller. The raw key has the shape
// csk_<keyID>.<secret>; keyID is the public lookup handle and only the
// hash of the secret is stored, so a leaked table cannot be replayed.
type APIKey struct {
	ID         int64      `json:"id"`
	KeyID      string     `json:"key_id"`
	Name       string     `json:"name"`
	Tier       string     `json:"tier"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
}

const (
	apiKeyPrefix = "csk_"

	// keyIDBytes and keySecretBytes size the two halves of a raw key.
	keyIDBytes     = 6
	keySecretBytes = 24
)

// ParseAPIKey splits a raw key into its lookup handle and secret.
// Any shape violation is ErrInvalidAPIKey; callers must not distinguish
// malformed keys from unknown ones.
func ParseAPIKey(raw string) (keyID, secret string, err error) {
	rest, ok := strings.CutPrefix(raw, apiKeyPrefix)
	if !ok {
		return "", "", ErrInvalidAPIKey
	}
	keyID, secret, ok = strings.Cut(rest, ".")
	if !ok || keyID == "" || secret == "" {
		return "", "", ErrInvalidAPIKey
	}
	return keyID, secret, nil
}

// APIKeyService creates and verifies API keys.
type APIKeyService struct {
	DB *Database
}

func NewAPIKeyService(db *Database) *APIKeyService {
	return &APIKeyService{DB: db}
}

// Create mints a key under the given name and tier and returns the raw key
// exactly once. Names are unique.
func (s *APIKeyService) Create(ctx context.Context, name, tier string) (string, *APIKey, error) {
	if strings.TrimSpace(name) == "" {
		return "", nil, errors.New("key name is required")
	}

	keyID, err := crypto.RandomID(keyIDBytes)
	if err != nil {
		return "", nil, fmt.Errorf("create api key: %w", err)
	}
	secret, err := crypto.GenerateToken(keySecretBytes)
	if err != nil {
		return "", nil, fmt.Errorf("create api key: %w", err)
	}

	key := &APIKey{
		KeyID: keyID,
		Name:  name,
		Tier:  tier,
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	err = s.DB.Pool.QueryRow(ctx, `
		INSERT INTO api_keys (key_id, key_hash, name, tier)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		keyID, crypto.HashToken(secret), name, tier,
	).Scan(&key.ID, &key.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return "", nil, ErrDuplicateKeyName
		}
		return "", nil, fmt.Errorf("create api key: %w", err)
	}

	return apiKeyPrefix + keyID + "." + secret, key, nil
}

// VerifyKey resolves a raw key to its record. Malformed keys, unknown
// handles and wrong secrets all collapse to ErrInvalidAPIKey.
func (s *APIKeyService) VerifyKey(ctx context.Context, raw string) (*APIKey, error) {
	keyID, secret, err := ParseAPIKey(raw)
	if err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var (
		key        APIKey
		storedHash string
	)
	err = s.DB.Pool.QueryRow(ctx, `
		SELECT id, key_id, name, tier, key_hash, created_at, last_used_at
		FROM api_keys
		WHERE key_id = $1`,
		keyID,
	).Scan(&key.ID, &key.KeyID, &key.Name, &key.Tier, &storedHash, &key.CreatedAt, &key.LastUsedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidAPIKey
		}
		return nil, fmt.Errorf("verify api key: %w", err)
	}

	if storedHash != crypto.HashToken(secret) {
		return nil, ErrInvalidAPIKey
	}

	// Best effort usage stamp; verification does not depend on it.
	_, _ = s.DB.Pool.Exec(ctx, `UPDATE api_keys SET last_used_at = NOW() WHERE id = $1`, key.ID)

	return &key, nil
}

// List returns all keys, newest first. Hashes never leave the database.
func (s *APIKeyService) List(ctx context.Context) ([]APIKey, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := s.DB.Pool.Query(ctx, `
		SELECT id, key_id, name, tier, created_at, last_used_at
		FROM api_keys
		ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	defer rows.Close()

	keys := []APIKey{}
	for rows.Next() {
		var key APIKey
		if err := rows.Scan(&key.ID, &key.KeyID, &key.Name, &key.Tier, &key.CreatedAt, &key.LastUsedAt); err != nil {
			return nil, fmt.Errorf("list api keys: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	return keys, nil
}

// Revoke deletes a key by its public handle.
func (s *APIKeyService) Revoke(ctx context.Context, keyID string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	tag, err := s.DB.Pool.Exec(ctx, `DELETE FROM api_keys WHERE key_id = $1`, keyID)
	if err != nil {
		return fmt.Errorf("revoke api key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrKeyNotFound
	}
	return nil
}
