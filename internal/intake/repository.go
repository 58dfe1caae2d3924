// Package intake is the webhook intake bounded context: API key
// authentication, verbatim raw payload capture, and normalization of
// provider payloads into communications.
package intake

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrAPIKeyNotFound = errors.New("api key not found")

// APIKey is a provisioned webhook credential. Only the hash is stored.
type APIKey struct {
	ID        uuid.UUID
	CompanyID uuid.UUID
	Name      string
	KeyHash   string
	KeyPrefix string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RawWebhook is the verbatim payload of one inbound webhook request.
type RawWebhook struct {
	ID          uuid.UUID
	CompanyID   uuid.UUID
	Provider    string
	ContentType string
	Payload     []byte
	ReceivedAt  time.Time
}

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GenerateAPIKey creates a new random API key and returns the plaintext key and its hash.
// The plaintext key is returned only once; only the hash is stored.
func GenerateAPIKey() (plaintext string, hash string, prefix string, err error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", "", "", err
	}
	plaintext = "swk_" + hex.EncodeToString(bytes)
	h := sha256.Sum256([]byte(plaintext))
	hash = hex.EncodeToString(h[:])
	prefix = plaintext[:12] // "swk_" + 8 hex chars
	return plaintext, hash, prefix, nil
}

// HashKey hashes a plaintext API key for lookup.
func HashKey(plaintext string) string {
	h := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(h[:])
}

// CreateAPIKey creates a new API key record.
func (r *Repository) CreateAPIKey(ctx context.Context, companyID uuid.UUID, name, keyHash, keyPrefix string) (APIKey, error) {
	var key APIKey
	err := r.pool.QueryRow(ctx, `
		INSERT INTO webhook_api_keys (company_id, name, key_hash, key_prefix)
		VALUES ($1, $2, $3, $4)
		RETURNING id, company_id, name, key_hash, key_prefix, is_active, created_at, updated_at
	`, companyID, name, keyHash, keyPrefix).Scan(
		&key.ID, &key.CompanyID, &key.Name, &key.KeyHash, &key.KeyPrefix,
		&key.IsActive, &key.CreatedAt, &key.UpdatedAt,
	)
	return key, err
}

// GetAPIKeyByHash retrieves an active API key by its hash.
func (r *Repository) GetAPIKeyByHash(ctx context.Context, keyHash string) (APIKey, error) {
	var key APIKey
	err := r.pool.QueryRow(ctx, `
		SELECT id, company_id, name, key_hash, key_prefix, is_active, created_at, updated_at
		FROM webhook_api_keys
		WHERE key_hash = $1 AND is_active = true
	`, keyHash).Scan(
		&key.ID, &key.CompanyID, &key.Name, &key.KeyHash, &key.KeyPrefix,
		&key.IsActive, &key.CreatedAt, &key.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return APIKey{}, ErrAPIKeyNotFound
	}
	return key, err
}

// ListAPIKeys returns all API keys for a company.
func (r *Repository) ListAPIKeys(ctx context.Context, companyID uuid.UUID) ([]APIKey, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, company_id, name, key_hash, key_prefix, is_active, created_at, updated_at
		FROM webhook_api_keys
		WHERE company_id = $1
		ORDER BY created_at DESC
	`, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []APIKey
	for rows.Next() {
		var key APIKey
		if err := rows.Scan(
			&key.ID, &key.CompanyID, &key.Name, &key.KeyHash, &key.KeyPrefix,
			&key.IsActive, &key.CreatedAt, &key.UpdatedAt,
		); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// RevokeAPIKey deactivates an API key.
func (r *Repository) RevokeAPIKey(ctx context.Context, keyID, companyID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE webhook_api_keys SET is_active = false, updated_at = now()
		WHERE id = $1 AND company_id = $2
	`, keyID, companyID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAPIKeyNotFound
	}
	return nil
}

// StoreRaw persists the payload exactly as received, before any parsing.
func (r *Repository) StoreRaw(ctx context.Context, companyID uuid.UUID, provider, contentType string, payload []byte) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.pool.QueryRow(ctx, `
		INSERT INTO raw_webhooks (company_id, provider, content_type, payload)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, companyID, provider, contentType, payload).Scan(&id)
	return id, err
}

// GetRaw fetches one stored raw webhook.
func (r *Repository) GetRaw(ctx context.Context, id uuid.UUID) (RawWebhook, error) {
	var raw RawWebhook
	err := r.pool.QueryRow(ctx, `
		SELECT id, company_id, provider, content_type, payload, received_at
		FROM raw_webhooks
		WHERE id = $1
	`, id).Scan(&raw.ID, &raw.CompanyID, &raw.Provider, &raw.ContentType, &raw.Payload, &raw.ReceivedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return RawWebhook{}, errors.New("raw webhook not found")
	}
	return raw, err
}
