package handlers

import (
	"context"

	"upbolis/internal/services"
	"upbolis/internal/store"
)

type UserStore interface {
	Create(ctx context.Context, tx store.Execer, id, username, email, passwordHash string, isVendor bool) error
	GetByEmail(ctx context.Context, email string) (map[string]any, error)
	GetByUsername(ctx context.Context, username string) (map[string]any, error)
	GetByID(ctx context.Context, userID string) (map[string]any, error)
	IsVendor(ctx context.Context, userID string) (bool, error)
}

type AccountStore interface {
	Create(ctx context.Context, tx store.Execer, id, userID string, balance int64) error
	GetByUser(ctx context.Context, userID string) (store.Account, error)
	SummarizeByUser(ctx context.Context, userID string) (store.AccountSummary, error)
}

type ProductStore interface {
	Create(ctx context.Context, tx store.Execer, id string, ownerID *string, name, description string, priceTokens int64, active bool) error
	Update(ctx context.Context, tx store.Execer, id, name, description string, priceTokens int64, active bool) error
	GetByID(ctx context.Context, productID string) (store.Product, error)
	GetActiveByID(ctx context.Context, productID string) (store.Product, error)
	ListActive(ctx context.Context) ([]store.Product, error)
	ListByOwner(ctx context.Context, ownerID string) ([]store.Product, error)
}

type TransactionStore interface {
	GetPurchaseDetail(ctx context.Context, purchaseID string) (store.PurchaseDetail, error)
	ListByUser(ctx context.Context, userID, txType string, limit, offset int) ([]map[string]any, error)
	ListPurchasesByBuyer(ctx context.Context, buyerID string, limit, offset int) ([]map[string]any, error)
}

type APIKeyStore interface {
	Create(ctx context.Context, tx store.Execer, id, vendorID, name string) (string, error)
	GetActiveByKey(ctx context.Context, key string) (store.APIKey, error)
	ListByVendor(ctx context.Context, vendorID string) ([]store.APIKey, error)
	Deactivate(ctx context.Context, tx store.Execer, vendorID, keyID string) (int64, error)
}

type WebhookStore interface {
	GetByVendor(ctx context.Context, vendorID string) (store.Webhook, error)
	Upsert(ctx context.Context, tx store.Execer, id, vendorID, url, secret string, isActive bool) error
}

type AuditStore interface {
	Log(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error
}

type LedgerService interface {
	Purchase(ctx context.Context, req services.PurchaseRequest) (services.PurchaseResult, error)
	Transfer(ctx context.Context, req services.TransferRequest) (services.TransferResult, error)
	TopUp(ctx context.Context, req services.TopUpRequest) (services.TopUpResult, error)
}
