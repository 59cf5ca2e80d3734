package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"upbolis/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type createAPIKeyRequest struct {
	Name string `json:"name"`
}

func (h *Handler) CreateAPIKey(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req createAPIKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}
	keyID := uuid.NewString()
	var key string
	err := h.txRunner.WithTx(r.Context(), func(tx *sqlx.Tx) error {
		created, err := h.apiKeys.Create(r.Context(), tx, keyID, userID, req.Name)
		if err != nil {
			return err
		}
		key = created
		data, _ := json.Marshal(map[string]string{"name": req.Name})
		return h.audit.Log(r.Context(), tx, userID, "api_key_create", "vendor_api_key", keyID, string(data))
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to create api key")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{
		"id":   keyID,
		"name": req.Name,
		"key":  key,
	})
}

func (h *Handler) ListAPIKeys(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	keys, err := h.apiKeys.ListByVendor(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load api keys")
		return
	}
	payload := make([]map[string]any, 0, len(keys))
	for _, key := range keys {
		payload = append(payload, map[string]any{
			"id":         key.ID,
			"name":       key.Name,
			"key":        key.Key,
			"is_active":  key.IsActive,
			"created_at": key.CreatedAt,
		})
	}
	respondJSON(w, http.StatusOK, payload)
}

func (h *Handler) DeactivateAPIKey(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	keyID := chi.URLParam(r, "id")
	var affected int64
	err := h.txRunner.WithTx(r.Context(), func(tx *sqlx.Tx) error {
		rows, err := h.apiKeys.Deactivate(r.Context(), tx, userID, keyID)
		if err != nil {
			return err
		}
		affected = rows
		if rows == 0 {
			return nil
		}
		return h.audit.Log(r.Context(), tx, userID, "api_key_revoke", "vendor_api_key", keyID, "{}")
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to revoke api key")
		return
	}
	if affected == 0 {
		respondError(w, http.StatusNotFound, "api_key_not_found")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "revoked"})
}
