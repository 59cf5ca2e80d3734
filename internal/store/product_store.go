package store

import "context"

type ProductStore struct {
	db DB
}

type Product struct {
	ID          string  `db:"id"`
	OwnerID     *string `db:"owner_id"`
	Name        string  `db:"name"`
	Description string  `db:"description"`
	PriceTokens int64   `db:"price_tokens"`
	Active      bool    `db:"active"`
	CreatedAt   any     `db:"created_at"`
}

func NewProductStore(db DB) *ProductStore {
	return &ProductStore{db: db}
}

func (s *ProductStore) Create(ctx context.Context, tx Execer, id string, ownerID *string, name, description string, priceTokens int64, active bool) error {
	query := `
		INSERT INTO products (id, owner_id, name, description, price_tokens, active)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := tx.ExecContext(ctx, query, id, ownerID, name, description, priceTokens, active)
	return err
}

func (s *ProductStore) Update(ctx context.Context, tx Execer, id, name, description string, priceTokens int64, active bool) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE products
		SET name = $1, description = $2, price_tokens = $3, active = $4, updated_at = NOW()
		WHERE id = $5
	`, name, description, priceTokens, active, id)
	return err
}

func (s *ProductStore) GetByID(ctx context.Context, productID string) (Product, error) {
	var row Product
	err := s.db.GetContext(ctx, &row, `
		SELECT id, owner_id, name, description, price_tokens, active, created_at
		FROM products
		WHERE id = $1
	`, productID)
	if err != nil {
		return Product{}, err
	}
	return row, nil
}

func (s *ProductStore) GetActiveByID(ctx context.Context, productID string) (Product, error) {
	var row Product
	err := s.db.GetContext(ctx, &row, `
		SELECT id, owner_id, name, description, price_tokens, active, created_at
		FROM products
		WHERE id = $1 AND active = TRUE
	`, productID)
	if err != nil {
		return Product{}, err
	}
	return row, nil
}

func (s *ProductStore) ListActive(ctx context.Context) ([]Product, error) {
	var rows []Product
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, owner_id, name, description, price_tokens, active, created_at
		FROM products
		WHERE active = TRUE
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *ProductStore) ListByOwner(ctx context.Context, ownerID string) ([]Product, error) {
	var rows []Product
	err := s.db.SelectContext(ctx, &rows, `
		SELECT id, owner_id, name, description, price_tokens, active, created_at
		FROM products
		WHERE owner_id = $1
		ORDER BY name
	`, ownerID)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
