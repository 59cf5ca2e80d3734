package store

import (
	"context"
	"crypto/rand"
	"encoding/hex"
)

type APIKeyStore struct {
	db DB
}

type APIKey struct {
	ID             string `db:"id"`
	VendorID       string `db:"vendor_id"`
	VendorUsername string `db:"vendor_username"`
	Name           string `db:"name"`
	Key            string `db:"key"`
	IsActive       bool   `db:"is_active"`
	CreatedAt      any    `db:"created_at"`
}

func NewAPIKeyStore(db DB) *APIKeyStore {
	return &APIKeyStore{db: db}
}

// Create inserts a new key for the vendor. The opaque key value is 32 random
// bytes, hex encoded.
func (s *APIKeyStore) Create(ctx context.Context, tx Execer, id, vendorID, name string) (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	key := hex.EncodeToString(raw)
	_, err := tx.ExecContext(ctx, `
		INSERT INTO vendor_api_keys (id, vendor_id, name, key, is_active)
		VALUES ($1, $2, $3, $4, TRUE)
	`, id, vendorID, name, key)
	if err != nil {
		return "", err
	}
	return key, nil
}

// GetActiveByKey resolves a credential to its owning vendor. Inactive keys
// never match.
func (s *APIKeyStore) GetActiveByKey(ctx context.Context, key string) (APIKey, error) {
	var row APIKey
	err := s.db.GetContext(ctx, &row, `
		SELECT k.id, k.vendor_id, u.username AS vendor_username, k.name, k.key, k.is_active, k.created_at
		FROM vendor_api_keys k
		JOIN users u ON u.id = k.vendor_id
		WHERE k.key = $1 AND k.is_active = TRUE
	`, key)
	if err != nil {
		return APIKey{}, err
	}
	return row, nil
}

func (s *APIKeyStore) ListByVendor(ctx context.Context, vendorID string) ([]APIKey, error) {
	var rows []APIKey
	err := s.db.SelectContext(ctx, &rows, `
		SELECT k.id, k.vendor_id, u.username AS vendor_username, k.name, k.key, k.is_active, k.created_at
		FROM vendor_api_keys k
		JOIN users u ON u.id = k.vendor_id
		WHERE k.vendor_id = $1
		ORDER BY k.created_at DESC
	`, vendorID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Deactivate revokes a key. Rows are never deleted.
func (s *APIKeyStore) Deactivate(ctx context.Context, tx Execer, vendorID, keyID string) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		UPDATE vendor_api_keys
		SET is_active = FALSE
		WHERE id = $1 AND vendor_id = $2
	`, keyID, vendorID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
