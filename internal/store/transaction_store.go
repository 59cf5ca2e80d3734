package store

import (
	"context"
	"fmt"
	"time"
)

// TransactionStore owns the append-only token_transactions table. Rows are
// created inside ledger transactions and never updated or deleted.
type TransactionStore struct {
	db DB
}

type TransactionInput struct {
	ID           string
	Type         string
	FromUserID   *string
	ToUserID     *string
	ProductID    *string
	Quantity     *int64
	AmountTokens int64
	Description  string
	APIKeyID     *string
	CreatedAt    time.Time
}

type transactionRow struct {
	ID           string  `db:"id"`
	Type         string  `db:"type"`
	FromUserID   *string `db:"from_user_id"`
	FromUsername *string `db:"from_username"`
	ToUserID     *string `db:"to_user_id"`
	ToUsername   *string `db:"to_username"`
	ProductID    *string `db:"product_id"`
	ProductName  *string `db:"product_name"`
	Quantity     *int64  `db:"quantity"`
	AmountTokens int64   `db:"amount_tokens"`
	Description  string  `db:"description"`
	APIKeyID     *string `db:"api_key_id"`
	CreatedAt    any     `db:"created_at"`
}

// PurchaseDetail joins a purchase row with buyer, product, and vendor
// identities for the vendor-facing lookup endpoint.
type PurchaseDetail struct {
	ID             string    `db:"id"`
	BuyerID        string    `db:"buyer_id"`
	BuyerUsername  string    `db:"buyer_username"`
	ProductID      string    `db:"product_id"`
	ProductName    string    `db:"product_name"`
	VendorID       *string   `db:"vendor_id"`
	VendorUsername *string   `db:"vendor_username"`
	Quantity       int64     `db:"quantity"`
	TotalTokens    int64     `db:"total_tokens"`
	CreatedAt      time.Time `db:"created_at"`
}

func NewTransactionStore(db DB) *TransactionStore {
	return &TransactionStore{db: db}
}

func (s *TransactionStore) Create(ctx context.Context, tx Execer, input TransactionInput) error {
	query := `
		INSERT INTO token_transactions (id, type, from_user_id, to_user_id, product_id, quantity, amount_tokens, description, api_key_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := tx.ExecContext(ctx, query,
		input.ID, input.Type, input.FromUserID, input.ToUserID, input.ProductID,
		input.Quantity, input.AmountTokens, input.Description, input.APIKeyID, input.CreatedAt,
	)
	return err
}

func (s *TransactionStore) GetPurchaseDetail(ctx context.Context, purchaseID string) (PurchaseDetail, error) {
	var row PurchaseDetail
	err := s.db.GetContext(ctx, &row, `
		SELECT t.id,
		       t.from_user_id AS buyer_id,
		       bu.username AS buyer_username,
		       t.product_id,
		       p.name AS product_name,
		       p.owner_id AS vendor_id,
		       vu.username AS vendor_username,
		       t.quantity,
		       t.amount_tokens AS total_tokens,
		       t.created_at
		FROM token_transactions t
		JOIN users bu ON bu.id = t.from_user_id
		JOIN products p ON p.id = t.product_id
		LEFT JOIN users vu ON vu.id = p.owner_id
		WHERE t.id = $1 AND t.type = 'purchase'
	`, purchaseID)
	if err != nil {
		return PurchaseDetail{}, err
	}
	return row, nil
}

func (s *TransactionStore) ListByUser(ctx context.Context, userID, txType string, limit, offset int) ([]map[string]any, error) {
	var rows []transactionRow
	query := `
		SELECT t.id, t.type, t.from_user_id, fu.username AS from_username,
		       t.to_user_id, tu.username AS to_username,
		       t.product_id, p.name AS product_name,
		       t.quantity, t.amount_tokens, t.description, t.api_key_id, t.created_at
		FROM token_transactions t
		LEFT JOIN users fu ON fu.id = t.from_user_id
		LEFT JOIN users tu ON tu.id = t.to_user_id
		LEFT JOIN products p ON p.id = t.product_id
		WHERE (t.from_user_id = $1 OR t.to_user_id = $1)
	`
	args := []any{userID}
	param := 2
	if txType != "" {
		query += " AND t.type = $2"
		args = append(args, txType)
		param = 3
	}
	query += " ORDER BY t.created_at DESC LIMIT $" + itoa(param) + " OFFSET $" + itoa(param+1)
	args = append(args, limit, offset)
	err := s.db.SelectContext(ctx, &rows, query, args...)
	if err != nil {
		return nil, err
	}
	return transactionRowsToMaps(rows), nil
}

func (s *TransactionStore) ListPurchasesByBuyer(ctx context.Context, buyerID string, limit, offset int) ([]map[string]any, error) {
	var rows []transactionRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT t.id, t.type, t.from_user_id, fu.username AS from_username,
		       t.to_user_id, tu.username AS to_username,
		       t.product_id, p.name AS product_name,
		       t.quantity, t.amount_tokens, t.description, t.api_key_id, t.created_at
		FROM token_transactions t
		LEFT JOIN users fu ON fu.id = t.from_user_id
		LEFT JOIN users tu ON tu.id = t.to_user_id
		LEFT JOIN products p ON p.id = t.product_id
		WHERE t.type = 'purchase' AND t.from_user_id = $1
		ORDER BY t.created_at DESC
		LIMIT $2 OFFSET $3
	`, buyerID, limit, offset)
	if err != nil {
		return nil, err
	}
	return transactionRowsToMaps(rows), nil
}

func itoa(value int) string {
	return fmt.Sprintf("%d", value)
}

func transactionRowsToMaps(rows []transactionRow) []map[string]any {
	maps := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		quantity := int64(0)
		if row.Quantity != nil {
			quantity = *row.Quantity
		}
		maps = append(maps, map[string]any{
			"id":            row.ID,
			"type":          row.Type,
			"from_user_id":  derefStringPtr(row.FromUserID),
			"from_username": derefStringPtr(row.FromUsername),
			"to_user_id":    derefStringPtr(row.ToUserID),
			"to_username":   derefStringPtr(row.ToUsername),
			"product_id":    derefStringPtr(row.ProductID),
			"product_name":  derefStringPtr(row.ProductName),
			"quantity":      quantity,
			"amount_tokens": row.AmountTokens,
			"description":   row.Description,
			"api_key_id":    derefStringPtr(row.APIKeyID),
			"created_at":    row.CreatedAt,
		})
	}
	return maps
}
