package middleware

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"upbolis/internal/store"
)

const apiKeyHeader = "X-API-Key"

const apiKeyContextKey contextKey = "api_key"

type APIKeyStore interface {
	GetActiveByKey(ctx context.Context, key string) (store.APIKey, error)
}

func APIKeyFromContext(ctx context.Context) (store.APIKey, bool) {
	key, ok := ctx.Value(apiKeyContextKey).(store.APIKey)
	return key, ok
}

// APIKeyAuth authenticates machine callers. The credential is looked up in
// order: X-API-Key header, then api_key query parameter, then an api_key
// field in the body. The body is restored afterwards so handlers can decode
// it normally.
func APIKeyAuth(keys APIKeyStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			credential, r2 := extractAPIKey(r)
			if credential == "" {
				respondAPIKeyError(w, http.StatusUnauthorized, "missing_api_key")
				return
			}
			record, err := keys.GetActiveByKey(r2.Context(), credential)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					respondAPIKeyError(w, http.StatusUnauthorized, "invalid_api_key")
					return
				}
				respondAPIKeyError(w, http.StatusInternalServerError, "internal_error")
				return
			}
			ctx := context.WithValue(r2.Context(), apiKeyContextKey, record)
			next.ServeHTTP(w, r2.WithContext(ctx))
		})
	}
}

func extractAPIKey(r *http.Request) (string, *http.Request) {
	if header := strings.TrimSpace(r.Header.Get(apiKeyHeader)); header != "" {
		return header, r
	}
	if query := strings.TrimSpace(r.URL.Query().Get("api_key")); query != "" {
		return query, r
	}
	return apiKeyFromBody(r)
}

// apiKeyFromBody peeks into a JSON or form body for an api_key field. The
// consumed bytes are put back on r.Body either way.
func apiKeyFromBody(r *http.Request) (string, *http.Request) {
	if r.Body == nil {
		return "", r
	}
	body, err := io.ReadAll(r.Body)
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))
	if err != nil || len(body) == 0 {
		return "", r
	}

	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "application/x-www-form-urlencoded") {
		form, err := url.ParseQuery(string(body))
		if err != nil {
			return "", r
		}
		return strings.TrimSpace(form.Get("api_key")), r
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return "", r
	}
	var key string
	if raw, ok := fields["api_key"]; ok {
		_ = json.Unmarshal(raw, &key)
	}
	return strings.TrimSpace(key), r
}

func respondAPIKeyError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
