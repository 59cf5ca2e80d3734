package store

import (
	"context"
	"database/sql"
	"strings"
	"testing"
)

func TestAPIKeyStoreCreateGeneratesOpaqueKey(t *testing.T) {
	ctx := context.Background()
	var insertedKey string
	execer := stubExecer{
		execFn: func(_ context.Context, query string, args ...any) (sql.Result, error) {
			if !strings.Contains(query, "INSERT INTO vendor_api_keys") {
				t.Fatalf("unexpected query: %s", query)
			}
			if len(args) != 4 || args[0] != "key-1" || args[1] != "user-2" || args[2] != "reporting" {
				t.Fatalf("unexpected args: %#v", args)
			}
			insertedKey = args[3].(string)
			return stubResult{rows: 1}, nil
		},
	}
	store := NewAPIKeyStore(stubDB{})
	key, err := store.Create(ctx, execer, "key-1", "user-2", "reporting")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != insertedKey {
		t.Fatalf("returned key %q does not match inserted key %q", key, insertedKey)
	}
	if len(key) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(key))
	}
}

func TestAPIKeyStoreGetActiveByKey(t *testing.T) {
	ctx := context.Background()
	store := NewAPIKeyStore(stubDB{
		getFn: func(_ context.Context, dest any, query string, args ...any) error {
			if !strings.Contains(query, "is_active = TRUE") || !strings.Contains(query, "JOIN users") {
				t.Fatalf("unexpected query: %s", query)
			}
			if len(args) != 1 || args[0] != "abc123" {
				t.Fatalf("unexpected args: %#v", args)
			}
			*dest.(*APIKey) = APIKey{ID: "key-1", VendorID: "user-2", VendorUsername: "vendor"}
			return nil
		},
	})
	key, err := store.GetActiveByKey(ctx, "abc123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key.VendorID != "user-2" || key.VendorUsername != "vendor" {
		t.Fatalf("unexpected key: %#v", key)
	}
}

func TestAPIKeyStoreDeactivateScopedToVendor(t *testing.T) {
	ctx := context.Background()
	execer := stubExecer{
		execFn: func(_ context.Context, query string, args ...any) (sql.Result, error) {
			if !strings.Contains(query, "SET is_active = FALSE") || !strings.Contains(query, "vendor_id = $2") {
				t.Fatalf("unexpected query: %s", query)
			}
			if len(args) != 2 || args[0] != "key-1" || args[1] != "user-2" {
				t.Fatalf("unexpected args: %#v", args)
			}
			return stubResult{rows: 1}, nil
		},
	}
	store := NewAPIKeyStore(stubDB{})
	rows, err := store.Deactivate(ctx, execer, "user-2", "key-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rows != 1 {
		t.Fatalf("expected 1 row affected, got %d", rows)
	}
}
