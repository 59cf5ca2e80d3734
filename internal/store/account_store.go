package store

import "context"

type AccountStore struct {
	db DB
}

type Account struct {
	ID        string `db:"id"`
	UserID    string `db:"user_id"`
	Balance   int64  `db:"balance"`
	CreatedAt any    `db:"created_at"`
}

// AccountSummary compares the stored balance against the net of the
// transaction history, for self-check reconciliation.
type AccountSummary struct {
	ID            string `db:"id"`
	UserID        string `db:"user_id"`
	StoredBalance int64  `db:"stored_balance"`
	HistoryNet    int64  `db:"history_net"`
	Difference    int64  `db:"difference"`
}

func NewAccountStore(db DB) *AccountStore {
	return &AccountStore{db: db}
}

func (s *AccountStore) Create(ctx context.Context, tx Execer, id, userID string, balance int64) error {
	query := `
		INSERT INTO token_accounts (id, user_id, balance)
		VALUES ($1, $2, $3)
	`
	_, err := tx.ExecContext(ctx, query, id, userID, balance)
	return err
}

func (s *AccountStore) GetByUser(ctx context.Context, userID string) (Account, error) {
	var row Account
	err := s.db.GetContext(ctx, &row, `
		SELECT id, user_id, balance, created_at
		FROM token_accounts
		WHERE user_id = $1
	`, userID)
	if err != nil {
		return Account{}, err
	}
	return row, nil
}

// GetForUpdate acquires an exclusive row lock on the user's account for the
// duration of the enclosing transaction. Callers must lock multiple accounts
// in ascending user id order.
func (s *AccountStore) GetForUpdate(ctx context.Context, tx Getter, userID string) (Account, error) {
	var row Account
	err := tx.GetContext(ctx, &row, `
		SELECT id, user_id, balance
		FROM token_accounts
		WHERE user_id = $1
		FOR UPDATE
	`, userID)
	if err != nil {
		return Account{}, err
	}
	return row, nil
}

func (s *AccountStore) UpdateBalance(ctx context.Context, tx Execer, accountID string, balance int64) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE token_accounts
		SET balance = $1, updated_at = NOW()
		WHERE id = $2
	`, balance, accountID)
	return err
}

// SummarizeByUser recomputes the user's balance from the transaction history
// and reports any drift from the stored balance.
func (s *AccountStore) SummarizeByUser(ctx context.Context, userID string) (AccountSummary, error) {
	var row AccountSummary
	err := s.db.GetContext(ctx, &row, `
		SELECT a.id,
		       a.user_id,
		       a.balance AS stored_balance,
		       COALESCE((
		           SELECT SUM(CASE
		               WHEN t.to_user_id = a.user_id AND t.from_user_id IS DISTINCT FROM a.user_id THEN t.amount_tokens
		               WHEN t.from_user_id = a.user_id AND t.to_user_id IS DISTINCT FROM a.user_id THEN -t.amount_tokens
		               ELSE 0
		           END)
		           FROM token_transactions t
		           WHERE t.from_user_id = a.user_id OR t.to_user_id = a.user_id
		       ), 0) AS history_net,
		       a.balance - COALESCE((
		           SELECT SUM(CASE
		               WHEN t.to_user_id = a.user_id AND t.from_user_id IS DISTINCT FROM a.user_id THEN t.amount_tokens
		               WHEN t.from_user_id = a.user_id AND t.to_user_id IS DISTINCT FROM a.user_id THEN -t.amount_tokens
		               ELSE 0
		           END)
		           FROM token_transactions t
		           WHERE t.from_user_id = a.user_id OR t.to_user_id = a.user_id
		       ), 0) AS difference
		FROM token_accounts a
		WHERE a.user_id = $1
	`, userID)
	if err != nil {
		return AccountSummary{}, err
	}
	return row, nil
}
