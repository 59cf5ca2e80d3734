package store

import "context"

type WebhookStore struct {
	db DB
}

type Webhook struct {
	ID        string `db:"id"`
	VendorID  string `db:"vendor_id"`
	URL       string `db:"url"`
	Secret    string `db:"secret"`
	IsActive  bool   `db:"is_active"`
	CreatedAt any    `db:"created_at"`
}

func NewWebhookStore(db DB) *WebhookStore {
	return &WebhookStore{db: db}
}

// ListActiveByVendor returns the vendor's active subscriptions. The schema
// enforces at most one row per vendor; the slice keeps the notifier agnostic
// of that cardinality.
func (s *WebhookStore) ListActiveByVendor(ctx context.Context, vendorID string) ([]Webhook, error) {
	var rows []Webhook
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, vendor_id, url, secret, is_active, created_at
		FROM vendor_webhooks
		WHERE vendor_id = $1 AND is_active = TRUE
	`, vendorID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *WebhookStore) GetByVendor(ctx context.Context, vendorID string) (Webhook, error) {
	var row Webhook
	err := s.db.GetContext(ctx, &row, `
		SELECT id, vendor_id, url, secret, is_active, created_at
		FROM vendor_webhooks
		WHERE vendor_id = $1
	`, vendorID)
	if err != nil {
		return Webhook{}, err
	}
	return row, nil
}

// Upsert writes the vendor's single webhook configuration in place.
func (s *WebhookStore) Upsert(ctx context.Context, tx Execer, id, vendorID, url, secret string, isActive bool) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO vendor_webhooks (id, vendor_id, url, secret, is_active)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (vendor_id)
		DO UPDATE SET url = $3, secret = $4, is_active = $5, updated_at = NOW()
	`, id, vendorID, url, secret, isActive)
	return err
}
