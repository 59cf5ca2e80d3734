package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"upbolis/internal/auth"
	"upbolis/internal/config"
	"upbolis/internal/middleware"
	"upbolis/internal/services"
	"upbolis/internal/store"
	"upbolis/internal/websocket"

	"github.com/go-chi/chi/v5"
	"github.com/jmoiron/sqlx"
)

type fakeTxRunner struct {
	withTxFn func(ctx context.Context, fn func(*sqlx.Tx) error) error
}

func (f fakeTxRunner) WithTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	if f.withTxFn != nil {
		return f.withTxFn(ctx, fn)
	}
	return fn(nil)
}

type stubUserStore struct {
	createFn        func(ctx context.Context, tx store.Execer, id, username, email, passwordHash string, isVendor bool) error
	getByEmailFn    func(ctx context.Context, email string) (map[string]any, error)
	getByUsernameFn func(ctx context.Context, username string) (map[string]any, error)
	getByIDFn       func(ctx context.Context, userID string) (map[string]any, error)
	isVendorFn      func(ctx context.Context, userID string) (bool, error)
}

func (s stubUserStore) Create(ctx context.Context, tx store.Execer, id, username, email, passwordHash string, isVendor bool) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, id, username, email, passwordHash, isVendor)
}

func (s stubUserStore) GetByEmail(ctx context.Context, email string) (map[string]any, error) {
	if s.getByEmailFn == nil {
		return nil, nil
	}
	return s.getByEmailFn(ctx, email)
}

func (s stubUserStore) GetByUsername(ctx context.Context, username string) (map[string]any, error) {
	if s.getByUsernameFn == nil {
		return nil, nil
	}
	return s.getByUsernameFn(ctx, username)
}

func (s stubUserStore) GetByID(ctx context.Context, userID string) (map[string]any, error) {
	if s.getByIDFn == nil {
		return nil, nil
	}
	return s.getByIDFn(ctx, userID)
}

func (s stubUserStore) IsVendor(ctx context.Context, userID string) (bool, error) {
	if s.isVendorFn == nil {
		return false, nil
	}
	return s.isVendorFn(ctx, userID)
}

type stubAccountStore struct {
	createFn    func(ctx context.Context, tx store.Execer, id, userID string, balance int64) error
	getByUserFn func(ctx context.Context, userID string) (store.Account, error)
	summarizeFn func(ctx context.Context, userID string) (store.AccountSummary, error)
}

func (s stubAccountStore) Create(ctx context.Context, tx store.Execer, id, userID string, balance int64) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, id, userID, balance)
}

func (s stubAccountStore) GetByUser(ctx context.Context, userID string) (store.Account, error) {
	if s.getByUserFn == nil {
		return store.Account{}, nil
	}
	return s.getByUserFn(ctx, userID)
}

func (s stubAccountStore) SummarizeByUser(ctx context.Context, userID string) (store.AccountSummary, error) {
	if s.summarizeFn == nil {
		return store.AccountSummary{}, nil
	}
	return s.summarizeFn(ctx, userID)
}

type stubProductStore struct {
	createFn        func(ctx context.Context, tx store.Execer, id string, ownerID *string, name, description string, priceTokens int64, active bool) error
	updateFn        func(ctx context.Context, tx store.Execer, id, name, description string, priceTokens int64, active bool) error
	getByIDFn       func(ctx context.Context, productID string) (store.Product, error)
	getActiveByIDFn func(ctx context.Context, productID string) (store.Product, error)
	listActiveFn    func(ctx context.Context) ([]store.Product, error)
	listByOwnerFn   func(ctx context.Context, ownerID string) ([]store.Product, error)
}

func (s stubProductStore) Create(ctx context.Context, tx store.Execer, id string, ownerID *string, name, description string, priceTokens int64, active bool) error {
	if s.createFn == nil {
		return nil
	}
	return s.createFn(ctx, tx, id, ownerID, name, description, priceTokens, active)
}

func (s stubProductStore) Update(ctx context.Context, tx store.Execer, id, name, description string, priceTokens int64, active bool) error {
	if s.updateFn == nil {
		return nil
	}
	return s.updateFn(ctx, tx, id, name, description, priceTokens, active)
}

func (s stubProductStore) GetByID(ctx context.Context, productID string) (store.Product, error) {
	if s.getByIDFn == nil {
		return store.Product{}, nil
	}
	return s.getByIDFn(ctx, productID)
}

func (s stubProductStore) GetActiveByID(ctx context.Context, productID string) (store.Product, error) {
	if s.getActiveByIDFn == nil {
		return store.Product{}, nil
	}
	return s.getActiveByIDFn(ctx, productID)
}

func (s stubProductStore) ListActive(ctx context.Context) ([]store.Product, error) {
	if s.listActiveFn == nil {
		return nil, nil
	}
	return s.listActiveFn(ctx)
}

func (s stubProductStore) ListByOwner(ctx context.Context, ownerID string) ([]store.Product, error) {
	if s.listByOwnerFn == nil {
		return nil, nil
	}
	return s.listByOwnerFn(ctx, ownerID)
}

type stubTransactionStore struct {
	getPurchaseDetailFn func(ctx context.Context, purchaseID string) (store.PurchaseDetail, error)
	listByUserFn        func(ctx context.Context, userID, txType string, limit, offset int) ([]map[string]any, error)
	listPurchasesFn     func(ctx context.Context, buyerID string, limit, offset int) ([]map[string]any, error)
}

func (s stubTransactionStore) GetPurchaseDetail(ctx context.Context, purchaseID string) (store.PurchaseDetail, error) {
	if s.getPurchaseDetailFn == nil {
		return store.PurchaseDetail{}, nil
	}
	return s.getPurchaseDetailFn(ctx, purchaseID)
}

func (s stubTransactionStore) ListByUser(ctx context.Context, userID, txType string, limit, offset int) ([]map[string]any, error) {
	if s.listByUserFn == nil {
		return nil, nil
	}
	return s.listByUserFn(ctx, userID, txType, limit, offset)
}

func (s stubTransactionStore) ListPurchasesByBuyer(ctx context.Context, buyerID string, limit, offset int) ([]map[string]any, error) {
	if s.listPurchasesFn == nil {
		return nil, nil
	}
	return s.listPurchasesFn(ctx, buyerID, limit, offset)
}

type stubAPIKeyStore struct {
	createFn       func(ctx context.Context, tx store.Execer, id, vendorID, name string) (string, error)
	getActiveFn    func(ctx context.Context, key string) (store.APIKey, error)
	listByVendorFn func(ctx context.Context, vendorID string) ([]store.APIKey, error)
	deactivateFn   func(ctx context.Context, tx store.Execer, vendorID, keyID string) (int64, error)
}

func (s stubAPIKeyStore) Create(ctx context.Context, tx store.Execer, id, vendorID, name string) (string, error) {
	if s.createFn == nil {
		return "", nil
	}
	return s.createFn(ctx, tx, id, vendorID, name)
}

func (s stubAPIKeyStore) GetActiveByKey(ctx context.Context, key string) (store.APIKey, error) {
	if s.getActiveFn == nil {
		return store.APIKey{}, nil
	}
	return s.getActiveFn(ctx, key)
}

func (s stubAPIKeyStore) ListByVendor(ctx context.Context, vendorID string) ([]store.APIKey, error) {
	if s.listByVendorFn == nil {
		return nil, nil
	}
	return s.listByVendorFn(ctx, vendorID)
}

func (s stubAPIKeyStore) Deactivate(ctx context.Context, tx store.Execer, vendorID, keyID string) (int64, error) {
	if s.deactivateFn == nil {
		return 1, nil
	}
	return s.deactivateFn(ctx, tx, vendorID, keyID)
}

type stubWebhookStore struct {
	getByVendorFn func(ctx context.Context, vendorID string) (store.Webhook, error)
	upsertFn      func(ctx context.Context, tx store.Execer, id, vendorID, url, secret string, isActive bool) error
}

func (s stubWebhookStore) GetByVendor(ctx context.Context, vendorID string) (store.Webhook, error) {
	if s.getByVendorFn == nil {
		return store.Webhook{}, nil
	}
	return s.getByVendorFn(ctx, vendorID)
}

func (s stubWebhookStore) Upsert(ctx context.Context, tx store.Execer, id, vendorID, url, secret string, isActive bool) error {
	if s.upsertFn == nil {
		return nil
	}
	return s.upsertFn(ctx, tx, id, vendorID, url, secret, isActive)
}

type stubAuditStore struct {
	logFn func(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error
}

func (s stubAuditStore) Log(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error {
	if s.logFn == nil {
		return nil
	}
	return s.logFn(ctx, tx, actorID, action, entityType, entityID, data)
}

type stubLedger struct {
	purchaseFn func(ctx context.Context, req services.PurchaseRequest) (services.PurchaseResult, error)
	transferFn func(ctx context.Context, req services.TransferRequest) (services.TransferResult, error)
	topUpFn    func(ctx context.Context, req services.TopUpRequest) (services.TopUpResult, error)
}

func (s stubLedger) Purchase(ctx context.Context, req services.PurchaseRequest) (services.PurchaseResult, error) {
	if s.purchaseFn == nil {
		return services.PurchaseResult{}, nil
	}
	return s.purchaseFn(ctx, req)
}

func (s stubLedger) Transfer(ctx context.Context, req services.TransferRequest) (services.TransferResult, error) {
	if s.transferFn == nil {
		return services.TransferResult{}, nil
	}
	return s.transferFn(ctx, req)
}

func (s stubLedger) TopUp(ctx context.Context, req services.TopUpRequest) (services.TopUpResult, error) {
	if s.topUpFn == nil {
		return services.TopUpResult{}, nil
	}
	return s.topUpFn(ctx, req)
}

func newTestHandler(txRunner fakeTxRunner, users UserStore, accounts AccountStore, products ProductStore, transactions TransactionStore, apiKeys APIKeyStore, webhooks WebhookStore, audit AuditStore, ledger LedgerService) *Handler {
	cfg := config.Config{
		AppEnv:         "test",
		Port:           "0",
		JWTSecret:      "secret",
		TokenTTL:       time.Minute,
		AllowedOrigins: "*",
		WebhookTimeout: time.Second,
	}
	return New(txRunner, cfg, users, accounts, products, transactions, apiKeys, webhooks, audit, ledger, websocket.NewHub())
}

func authedRequest(t *testing.T, userID, method string, body io.Reader) *http.Request {
	t.Helper()
	token, err := auth.GenerateToken("secret", userID, time.Minute)
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	req := httptest.NewRequest(method, "/", body)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func serveAuthed(t *testing.T, handler http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	middleware.Auth("secret")(handler).ServeHTTP(rr, req)
	return rr
}

func serveWithAuth(t *testing.T, handler http.HandlerFunc, userID, method string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	return serveAuthed(t, handler, authedRequest(t, userID, method, body))
}

func serveWithAPIKey(t *testing.T, keys APIKeyStore, handler http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	middleware.APIKeyAuth(keys)(handler).ServeHTTP(rr, req)
	return rr
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return payload
}

func stringPtr(value string) *string {
	return &value
}
