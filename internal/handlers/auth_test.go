package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"upbolis/internal/auth"
	"upbolis/internal/store"

	"github.com/lib/pq"
)

func TestRegisterCreatesUserAndAccount(t *testing.T) {
	var createdUser, createdAccount bool
	var audited string
	users := stubUserStore{
		createFn: func(ctx context.Context, tx store.Execer, id, username, email, passwordHash string, isVendor bool) error {
			createdUser = true
			if username != "alice" || email != "alice@example.com" {
				t.Fatalf("unexpected user fields: %s %s", username, email)
			}
			if !isVendor {
				t.Fatal("expected vendor flag to carry through")
			}
			if passwordHash == "hunter22" {
				t.Fatal("password stored in plain text")
			}
			return nil
		},
	}
	accounts := stubAccountStore{
		createFn: func(ctx context.Context, tx store.Execer, id, userID string, balance int64) error {
			createdAccount = true
			if balance != 0 {
				t.Fatalf("expected zero opening balance, got %d", balance)
			}
			return nil
		},
	}
	audit := stubAuditStore{
		logFn: func(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error {
			audited = action
			return nil
		},
	}
	h := newTestHandler(fakeTxRunner{}, users, accounts, stubProductStore{}, stubTransactionStore{}, stubAPIKeyStore{}, stubWebhookStore{}, audit, stubLedger{})

	body := strings.NewReader(`{"username":"alice","email":"alice@example.com","password":"hunter22","is_vendor":true}`)
	rr := httptest.NewRecorder()
	h.Register(rr, httptest.NewRequest(http.MethodPost, "/auth/register", body))

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if !createdUser || !createdAccount {
		t.Fatalf("expected user and account creation, got %v/%v", createdUser, createdAccount)
	}
	if audited != "register" {
		t.Fatalf("expected register audit entry, got %q", audited)
	}
	payload := decodeBody(t, rr)
	token, _ := payload["token"].(string)
	claims, err := auth.ParseToken("secret", token)
	if err != nil {
		t.Fatalf("expected usable token, got %v", err)
	}
	if claims.UserID == "" {
		t.Fatal("expected user id claim")
	}
}

func TestRegisterRejectsBadInput(t *testing.T) {
	h := newTestHandler(fakeTxRunner{}, stubUserStore{}, stubAccountStore{}, stubProductStore{}, stubTransactionStore{}, stubAPIKeyStore{}, stubWebhookStore{}, stubAuditStore{}, stubLedger{})

	cases := []struct {
		name string
		body string
	}{
		{"malformed json", `{`},
		{"short username", `{"username":"ab","email":"a@example.com","password":"longenough"}`},
		{"bad email", `{"username":"alice","email":"nope","password":"longenough"}`},
		{"short password", `{"username":"alice","email":"a@example.com","password":"short"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			h.Register(rr, httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(tc.body)))
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d", rr.Code)
			}
		})
	}
}

func TestRegisterDuplicateConflict(t *testing.T) {
	users := stubUserStore{
		createFn: func(ctx context.Context, tx store.Execer, id, username, email, passwordHash string, isVendor bool) error {
			return &pq.Error{Code: "23505"}
		},
	}
	h := newTestHandler(fakeTxRunner{}, users, stubAccountStore{}, stubProductStore{}, stubTransactionStore{}, stubAPIKeyStore{}, stubWebhookStore{}, stubAuditStore{}, stubLedger{})

	body := strings.NewReader(`{"username":"alice","email":"alice@example.com","password":"hunter22"}`)
	rr := httptest.NewRecorder()
	h.Register(rr, httptest.NewRequest(http.MethodPost, "/auth/register", body))
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
}

func TestLoginSuccess(t *testing.T) {
	hash, err := auth.HashPassword("hunter22")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	users := stubUserStore{
		getByEmailFn: func(ctx context.Context, email string) (map[string]any, error) {
			return map[string]any{"id": "user-1", "password_hash": hash}, nil
		},
	}
	h := newTestHandler(fakeTxRunner{}, users, stubAccountStore{}, stubProductStore{}, stubTransactionStore{}, stubAPIKeyStore{}, stubWebhookStore{}, stubAuditStore{}, stubLedger{})

	body := strings.NewReader(`{"email":"alice@example.com","password":"hunter22"}`)
	rr := httptest.NewRecorder()
	h.Login(rr, httptest.NewRequest(http.MethodPost, "/auth/login", body))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	payload := decodeBody(t, rr)
	claims, err := auth.ParseToken("secret", payload["token"].(string))
	if err != nil {
		t.Fatalf("expected usable token, got %v", err)
	}
	if claims.UserID != "user-1" {
		t.Fatalf("unexpected subject: %s", claims.UserID)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	hash, err := auth.HashPassword("hunter22")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	users := stubUserStore{
		getByEmailFn: func(ctx context.Context, email string) (map[string]any, error) {
			return map[string]any{"id": "user-1", "password_hash": hash}, nil
		},
	}
	h := newTestHandler(fakeTxRunner{}, users, stubAccountStore{}, stubProductStore{}, stubTransactionStore{}, stubAPIKeyStore{}, stubWebhookStore{}, stubAuditStore{}, stubLedger{})

	body := strings.NewReader(`{"email":"alice@example.com","password":"hunter23"}`)
	rr := httptest.NewRecorder()
	h.Login(rr, httptest.NewRequest(http.MethodPost, "/auth/login", body))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestMeIncludesVendorFlag(t *testing.T) {
	users := stubUserStore{
		getByIDFn: func(ctx context.Context, userID string) (map[string]any, error) {
			return map[string]any{
				"id":        userID,
				"username":  "alice",
				"email":     "alice@example.com",
				"is_vendor": true,
			}, nil
		},
	}
	h := newTestHandler(fakeTxRunner{}, users, stubAccountStore{}, stubProductStore{}, stubTransactionStore{}, stubAPIKeyStore{}, stubWebhookStore{}, stubAuditStore{}, stubLedger{})

	rr := serveWithAuth(t, h.Me, "user-1", http.MethodGet, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	payload := decodeBody(t, rr)
	if payload["username"] != "alice" || payload["is_vendor"] != true {
		t.Fatalf("unexpected payload: %v", payload)
	}
}
