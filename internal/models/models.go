package models

import "time"

type User struct {
	ID           string    `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	IsVendor     bool      `db:"is_vendor" json:"is_vendor"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

type TokenAccount struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Balance   int64     `db:"balance" json:"balance"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type Product struct {
	ID          string    `db:"id" json:"id"`
	OwnerID     *string   `db:"owner_id" json:"owner_id,omitempty"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	PriceTokens int64     `db:"price_tokens" json:"price_tokens"`
	Active      bool      `db:"active" json:"active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// TokenTransaction is the append-only audit trail for every balance
// mutation: purchases, transfers, and top-ups share one table.
type TokenTransaction struct {
	ID           string    `db:"id" json:"id"`
	Type         string    `db:"type" json:"type"`
	FromUserID   *string   `db:"from_user_id" json:"from_user_id,omitempty"`
	ToUserID     *string   `db:"to_user_id" json:"to_user_id,omitempty"`
	ProductID    *string   `db:"product_id" json:"product_id,omitempty"`
	Quantity     *int64    `db:"quantity" json:"quantity,omitempty"`
	AmountTokens int64     `db:"amount_tokens" json:"amount_tokens"`
	Description  string    `db:"description" json:"description"`
	APIKeyID     *string   `db:"api_key_id" json:"api_key_id,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

type VendorAPIKey struct {
	ID        string    `db:"id" json:"id"`
	VendorID  string    `db:"vendor_id" json:"vendor_id"`
	Name      string    `db:"name" json:"name"`
	Key       string    `db:"key" json:"key"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type VendorWebhook struct {
	ID        string    `db:"id" json:"id"`
	VendorID  string    `db:"vendor_id" json:"vendor_id"`
	URL       string    `db:"url" json:"url"`
	Secret    string    `db:"secret" json:"secret"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
