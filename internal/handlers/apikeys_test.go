package handlers

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"upbolis/internal/store"
)

func TestCreateAPIKeyReturnsKeyOnce(t *testing.T) {
	keys := stubAPIKeyStore{
		createFn: func(ctx context.Context, tx store.Execer, id, vendorID, name string) (string, error) {
			if vendorID != "vendor-1" || name != "integration" {
				t.Fatalf("unexpected args: %s %s", vendorID, name)
			}
			return "k-generated", nil
		},
	}
	var audited string
	audit := stubAuditStore{
		logFn: func(ctx context.Context, tx store.Execer, actorID, action, entityType, entityID, data string) error {
			audited = action
			return nil
		},
	}
	h := newTestHandler(fakeTxRunner{}, stubUserStore{}, stubAccountStore{}, stubProductStore{}, stubTransactionStore{}, keys, stubWebhookStore{}, audit, stubLedger{})

	rr := serveWithAuth(t, h.CreateAPIKey, "vendor-1", http.MethodPost, strings.NewReader(`{"name":"integration"}`))
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	payload := decodeBody(t, rr)
	if payload["key"] != "k-generated" || payload["name"] != "integration" {
		t.Fatalf("unexpected payload: %v", payload)
	}
	if audited != "api_key_create" {
		t.Fatalf("expected audit entry, got %q", audited)
	}
}

func TestCreateAPIKeyRequiresName(t *testing.T) {
	h := newTestHandler(fakeTxRunner{}, stubUserStore{}, stubAccountStore{}, stubProductStore{}, stubTransactionStore{}, stubAPIKeyStore{}, stubWebhookStore{}, stubAuditStore{}, stubLedger{})

	rr := serveWithAuth(t, h.CreateAPIKey, "vendor-1", http.MethodPost, strings.NewReader(`{"name":"  "}`))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestListAPIKeys(t *testing.T) {
	keys := stubAPIKeyStore{
		listByVendorFn: func(ctx context.Context, vendorID string) ([]store.APIKey, error) {
			return []store.APIKey{
				{ID: "key-1", Name: "integration", Key: "k-1", IsActive: true},
				{ID: "key-2", Name: "retired", Key: "k-2", IsActive: false},
			}, nil
		},
	}
	h := newTestHandler(fakeTxRunner{}, stubUserStore{}, stubAccountStore{}, stubProductStore{}, stubTransactionStore{}, keys, stubWebhookStore{}, stubAuditStore{}, stubLedger{})

	rr := serveWithAuth(t, h.ListAPIKeys, "vendor-1", http.MethodGet, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "key-2") {
		t.Fatalf("expected both keys in response: %s", rr.Body.String())
	}
}

func TestDeactivateAPIKeyNotFound(t *testing.T) {
	keys := stubAPIKeyStore{
		deactivateFn: func(ctx context.Context, tx store.Execer, vendorID, keyID string) (int64, error) {
			return 0, nil
		},
	}
	h := newTestHandler(fakeTxRunner{}, stubUserStore{}, stubAccountStore{}, stubProductStore{}, stubTransactionStore{}, keys, stubWebhookStore{}, stubAuditStore{}, stubLedger{})

	req := withURLParam(authedRequest(t, "vendor-1", http.MethodDelete, nil), "id", "ghost")
	rr := serveAuthed(t, h.DeactivateAPIKey, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	if got := decodeBody(t, rr)["error"]; got != "api_key_not_found" {
		t.Fatalf("expected api_key_not_found, got %v", got)
	}
}

func TestDeactivateAPIKeyScopedToVendor(t *testing.T) {
	var gotVendor, gotKey string
	keys := stubAPIKeyStore{
		deactivateFn: func(ctx context.Context, tx store.Execer, vendorID, keyID string) (int64, error) {
			gotVendor, gotKey = vendorID, keyID
			return 1, nil
		},
	}
	h := newTestHandler(fakeTxRunner{}, stubUserStore{}, stubAccountStore{}, stubProductStore{}, stubTransactionStore{}, keys, stubWebhookStore{}, stubAuditStore{}, stubLedger{})

	req := withURLParam(authedRequest(t, "vendor-1", http.MethodDelete, nil), "id", "key-1")
	rr := serveAuthed(t, h.DeactivateAPIKey, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if gotVendor != "vendor-1" || gotKey != "key-1" {
		t.Fatalf("unexpected args: %s %s", gotVendor, gotKey)
	}
	if got := decodeBody(t, rr)["status"]; got != "revoked" {
		t.Fatalf("expected revoked, got %v", got)
	}
}
