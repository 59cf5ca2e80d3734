package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"time"

	"upbolis/internal/db"
	"upbolis/internal/metrics"
	"upbolis/internal/store"
	"upbolis/internal/webhook"
	"upbolis/internal/websocket"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var (
	ErrInvalidQuantity     = errors.New("invalid quantity")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrSelfTransfer        = errors.New("cannot transfer tokens to self")
	ErrAccountNotFound     = errors.New("account not found")
	ErrProductNotFound     = errors.New("product not found")
)

type AccountStore interface {
	GetForUpdate(ctx context.Context, tx store.Getter, userID string) (store.Account, error)
	UpdateBalance(ctx context.Context, tx store.Execer, accountID string, balance int64) error
}

type ProductStore interface {
	GetActiveByID(ctx context.Context, productID string) (store.Product, error)
}

type TransactionStore interface {
	Create(ctx context.Context, tx store.Execer, input store.TransactionInput) error
}

type UserStore interface {
	GetByID(ctx context.Context, userID string) (map[string]any, error)
}

type AuditStore interface {
	Log(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error
}

type PurchaseNotifier interface {
	NotifyPurchase(ctx context.Context, event webhook.PurchaseEvent)
}

type BalanceHub interface {
	BroadcastBalance(userID string, update websocket.BalanceUpdate)
}

// LedgerService applies all balance mutations. Every operation runs inside a
// single transaction; multi-account operations lock rows in ascending user id
// order so concurrent opposite-direction operations cannot deadlock.
type LedgerService struct {
	txRunner     db.TxRunner
	accounts     AccountStore
	products     ProductStore
	transactions TransactionStore
	users        UserStore
	audit        AuditStore
	notifier     PurchaseNotifier
	hub          BalanceHub
}

func NewLedgerService(txRunner db.TxRunner, accounts AccountStore, products ProductStore, transactions TransactionStore, users UserStore, audit AuditStore, notifier PurchaseNotifier, hub BalanceHub) *LedgerService {
	return &LedgerService{
		txRunner:     txRunner,
		accounts:     accounts,
		products:     products,
		transactions: transactions,
		users:        users,
		audit:        audit,
		notifier:     notifier,
		hub:          hub,
	}
}

type PurchaseRequest struct {
	BuyerID   string
	ProductID string
	Quantity  int64
}

type PurchaseResult struct {
	ID           string
	ProductID    string
	ProductName  string
	VendorID     string
	Quantity     int64
	TotalTokens  int64
	BuyerBalance int64
	CreatedAt    time.Time
}

func (s *LedgerService) Purchase(ctx context.Context, req PurchaseRequest) (PurchaseResult, error) {
	if req.Quantity < 1 {
		return PurchaseResult{}, ErrInvalidQuantity
	}
	product, err := s.products.GetActiveByID(ctx, req.ProductID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return PurchaseResult{}, ErrProductNotFound
		}
		return PurchaseResult{}, err
	}
	// Price is snapshotted here; later product edits do not affect this
	// purchase.
	cost, ok := mulTokens(product.PriceTokens, req.Quantity)
	if !ok {
		return PurchaseResult{}, ErrInvalidQuantity
	}
	vendorID := ""
	if product.OwnerID != nil {
		vendorID = *product.OwnerID
	}

	purchaseID := uuid.NewString()
	createdAt := time.Now().UTC()
	var buyerBalanceAfter int64
	var vendorBalanceAfter int64
	vendorCredited := false

	err = s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		buyer, vendor, vendorFound, err := s.lockBuyerAndVendor(ctx, tx, req.BuyerID, vendorID)
		if err != nil {
			return err
		}
		if buyer.Balance < cost {
			return ErrInsufficientBalance
		}
		if vendorID == req.BuyerID {
			// Vendor buying their own product: debit and credit land on
			// the same row.
			buyerBalanceAfter = buyer.Balance
			vendorBalanceAfter = buyer.Balance
			vendorCredited = true
			if err := s.accounts.UpdateBalance(ctx, tx, buyer.ID, buyer.Balance); err != nil {
				return err
			}
		} else {
			buyerBalanceAfter = buyer.Balance - cost
			if err := s.accounts.UpdateBalance(ctx, tx, buyer.ID, buyerBalanceAfter); err != nil {
				return err
			}
			if vendorFound {
				vendorBalanceAfter = vendor.Balance + cost
				vendorCredited = true
				if err := s.accounts.UpdateBalance(ctx, tx, vendor.ID, vendorBalanceAfter); err != nil {
					return err
				}
			}
		}

		var toUserID *string
		if vendorID != "" {
			toUserID = &vendorID
		}
		quantity := req.Quantity
		if err := s.transactions.Create(ctx, tx, store.TransactionInput{
			ID:           purchaseID,
			Type:         "purchase",
			FromUserID:   &req.BuyerID,
			ToUserID:     toUserID,
			ProductID:    &product.ID,
			Quantity:     &quantity,
			AmountTokens: cost,
			Description:  product.Name,
			CreatedAt:    createdAt,
		}); err != nil {
			return err
		}
		data, _ := json.Marshal(map[string]any{
			"product_id":   product.ID,
			"quantity":     req.Quantity,
			"total_tokens": cost,
		})
		return s.audit.Log(ctx, tx, req.BuyerID, "purchase", "token_transaction", purchaseID, string(data))
	})
	if err != nil {
		return PurchaseResult{}, err
	}

	if vendorID != "" && !vendorCredited {
		// Open question upstream: with no vendor account the cost is not
		// credited anywhere. Flag it loudly instead of inventing a sink.
		log.Printf("ledger: purchase %s debited %d tokens but vendor %s has no account; tokens burned", purchaseID, cost, vendorID)
	}

	metrics.LedgerOperations.WithLabelValues("purchase").Inc()
	s.hub.BroadcastBalance(req.BuyerID, websocket.BalanceUpdate{UserID: req.BuyerID, Balance: buyerBalanceAfter})
	if vendorCredited && vendorID != req.BuyerID {
		s.hub.BroadcastBalance(vendorID, websocket.BalanceUpdate{UserID: vendorID, Balance: vendorBalanceAfter})
	}
	s.notifyPurchase(ctx, purchaseID, req, product, cost, createdAt, vendorID)

	return PurchaseResult{
		ID:           purchaseID,
		ProductID:    product.ID,
		ProductName:  product.Name,
		VendorID:     vendorID,
		Quantity:     req.Quantity,
		TotalTokens:  cost,
		BuyerBalance: buyerBalanceAfter,
		CreatedAt:    createdAt,
	}, nil
}

type TransferRequest struct {
	FromUserID  string
	ToUserID    string
	Amount      int64
	Description string
	APIKeyID    *string
}

type TransferResult struct {
	ID          string
	FromBalance int64
	ToBalance   int64
	CreatedAt   time.Time
}

func (s *LedgerService) Transfer(ctx context.Context, req TransferRequest) (TransferResult, error) {
	if req.Amount <= 0 {
		return TransferResult{}, ErrInvalidAmount
	}
	if req.FromUserID == req.ToUserID {
		return TransferResult{}, ErrSelfTransfer
	}
	transferID := uuid.NewString()
	createdAt := time.Now().UTC()
	var fromBalanceAfter int64
	var toBalanceAfter int64

	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		from, to, err := s.lockTwoAccounts(ctx, tx, req.FromUserID, req.ToUserID)
		if err != nil {
			return err
		}
		if from.Balance < req.Amount {
			return ErrInsufficientBalance
		}
		fromBalanceAfter = from.Balance - req.Amount
		var ok bool
		toBalanceAfter, ok = addTokens(to.Balance, req.Amount)
		if !ok {
			return ErrInvalidAmount
		}
		if err := s.accounts.UpdateBalance(ctx, tx, from.ID, fromBalanceAfter); err != nil {
			return err
		}
		if err := s.accounts.UpdateBalance(ctx, tx, to.ID, toBalanceAfter); err != nil {
			return err
		}
		if err := s.transactions.Create(ctx, tx, store.TransactionInput{
			ID:           transferID,
			Type:         "transfer",
			FromUserID:   &req.FromUserID,
			ToUserID:     &req.ToUserID,
			AmountTokens: req.Amount,
			Description:  req.Description,
			APIKeyID:     req.APIKeyID,
			CreatedAt:    createdAt,
		}); err != nil {
			return err
		}
		data, _ := json.Marshal(map[string]any{
			"to_user_id":    req.ToUserID,
			"amount_tokens": req.Amount,
		})
		return s.audit.Log(ctx, tx, req.FromUserID, "transfer", "token_transaction", transferID, string(data))
	})
	if err != nil {
		return TransferResult{}, err
	}

	metrics.LedgerOperations.WithLabelValues("transfer").Inc()
	s.hub.BroadcastBalance(req.FromUserID, websocket.BalanceUpdate{UserID: req.FromUserID, Balance: fromBalanceAfter})
	s.hub.BroadcastBalance(req.ToUserID, websocket.BalanceUpdate{UserID: req.ToUserID, Balance: toBalanceAfter})

	return TransferResult{
		ID:          transferID,
		FromBalance: fromBalanceAfter,
		ToBalance:   toBalanceAfter,
		CreatedAt:   createdAt,
	}, nil
}

type TopUpRequest struct {
	UserID      string
	Amount      int64
	Description string
}

type TopUpResult struct {
	ID        string
	Balance   int64
	CreatedAt time.Time
}

func (s *LedgerService) TopUp(ctx context.Context, req TopUpRequest) (TopUpResult, error) {
	if req.Amount <= 0 {
		return TopUpResult{}, ErrInvalidAmount
	}
	topUpID := uuid.NewString()
	createdAt := time.Now().UTC()
	var balanceAfter int64

	err := s.txRunner.WithTx(ctx, func(tx *sqlx.Tx) error {
		account, err := s.accounts.GetForUpdate(ctx, tx, req.UserID)
		if err != nil {
			return mapAccountError(err)
		}
		var ok bool
		balanceAfter, ok = addTokens(account.Balance, req.Amount)
		if !ok {
			return ErrInvalidAmount
		}
		if err := s.accounts.UpdateBalance(ctx, tx, account.ID, balanceAfter); err != nil {
			return err
		}
		if err := s.transactions.Create(ctx, tx, store.TransactionInput{
			ID:           topUpID,
			Type:         "topup",
			ToUserID:     &req.UserID,
			AmountTokens: req.Amount,
			Description:  req.Description,
			CreatedAt:    createdAt,
		}); err != nil {
			return err
		}
		data, _ := json.Marshal(map[string]any{
			"amount_tokens": req.Amount,
		})
		return s.audit.Log(ctx, tx, req.UserID, "topup", "token_transaction", topUpID, string(data))
	})
	if err != nil {
		return TopUpResult{}, err
	}

	metrics.LedgerOperations.WithLabelValues("topup").Inc()
	s.hub.BroadcastBalance(req.UserID, websocket.BalanceUpdate{UserID: req.UserID, Balance: balanceAfter})

	return TopUpResult{
		ID:        topUpID,
		Balance:   balanceAfter,
		CreatedAt: createdAt,
	}, nil
}

// lockTwoAccounts acquires both row locks in ascending user id order and
// returns the accounts in the caller's order. Both accounts must exist.
func (s *LedgerService) lockTwoAccounts(ctx context.Context, tx store.Getter, firstUserID, secondUserID string) (store.Account, store.Account, error) {
	leftID, rightID := orderedIDs(firstUserID, secondUserID)
	leftAccount, err := s.accounts.GetForUpdate(ctx, tx, leftID)
	if err != nil {
		return store.Account{}, store.Account{}, mapAccountError(err)
	}
	rightAccount, err := s.accounts.GetForUpdate(ctx, tx, rightID)
	if err != nil {
		return store.Account{}, store.Account{}, mapAccountError(err)
	}
	if firstUserID == leftID {
		return leftAccount, rightAccount, nil
	}
	return rightAccount, leftAccount, nil
}

// lockBuyerAndVendor locks the buyer account and, when the product has a
// distinct owner, the vendor account, in ascending user id order. A missing
// vendor account is not an error: the purchase proceeds without a credit
// side. A missing buyer account is always ErrAccountNotFound.
func (s *LedgerService) lockBuyerAndVendor(ctx context.Context, tx store.Getter, buyerID, vendorID string) (buyer store.Account, vendor store.Account, vendorFound bool, err error) {
	if vendorID == "" || vendorID == buyerID {
		buyer, err = s.accounts.GetForUpdate(ctx, tx, buyerID)
		if err != nil {
			return store.Account{}, store.Account{}, false, mapAccountError(err)
		}
		return buyer, store.Account{}, false, nil
	}
	for _, userID := range orderedPair(buyerID, vendorID) {
		account, lockErr := s.accounts.GetForUpdate(ctx, tx, userID)
		if lockErr != nil {
			if userID == vendorID && errors.Is(lockErr, sql.ErrNoRows) {
				continue
			}
			return store.Account{}, store.Account{}, false, mapAccountError(lockErr)
		}
		if userID == buyerID {
			buyer = account
		} else {
			vendor = account
			vendorFound = true
		}
	}
	return buyer, vendor, vendorFound, nil
}

func (s *LedgerService) notifyPurchase(ctx context.Context, purchaseID string, req PurchaseRequest, product store.Product, cost int64, createdAt time.Time, vendorID string) {
	if vendorID == "" {
		return
	}
	event := webhook.PurchaseEvent{
		PurchaseID:  purchaseID,
		Buyer:       webhook.Party{ID: req.BuyerID},
		Product:     webhook.ProductRef{ID: product.ID, Name: product.Name},
		Quantity:    req.Quantity,
		TotalTokens: cost,
		CreatedAt:   createdAt,
		Vendor:      webhook.Party{ID: vendorID},
	}
	if buyer, err := s.users.GetByID(ctx, req.BuyerID); err == nil {
		event.Buyer.Username = valueToString(buyer["username"])
	}
	if vendor, err := s.users.GetByID(ctx, vendorID); err == nil {
		event.Vendor.Username = valueToString(vendor["username"])
	}
	s.notifier.NotifyPurchase(ctx, event)
}

func mapAccountError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrAccountNotFound
	}
	return err
}

// mulTokens multiplies a price by a quantity, reporting ok=false when the
// product does not fit in int64. Callers reject the request before taking
// any row lock.
func mulTokens(price, quantity int64) (int64, bool) {
	total := price * quantity
	if price != 0 && total/price != quantity {
		return 0, false
	}
	return total, true
}

// addTokens adds a credit to a balance, reporting ok=false on int64
// wraparound.
func addTokens(balance, amount int64) (int64, bool) {
	sum := balance + amount
	if (amount > 0 && sum < balance) || (amount < 0 && sum > balance) {
		return 0, false
	}
	return sum, true
}

func orderedIDs(firstID, secondID string) (string, string) {
	if firstID <= secondID {
		return firstID, secondID
	}
	return secondID, firstID
}

func orderedPair(firstID, secondID string) [2]string {
	left, right := orderedIDs(firstID, secondID)
	return [2]string{left, right}
}

func valueToString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case nil:
		return ""
	default:
		return ""
	}
}
