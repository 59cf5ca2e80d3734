package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"upbolis/internal/middleware"
	"upbolis/internal/validator"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type webhookRequest struct {
	URL    string `json:"url"`
	Secret string `json:"secret"`
	Active bool   `json:"active"`
}

func (h *Handler) GetWebhook(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	webhook, err := h.webhooks.GetByVendor(r.Context(), userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "webhook_not_configured")
			return
		}
		respondError(w, http.StatusInternalServerError, "unable to load webhook")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"url":       webhook.URL,
		"is_active": webhook.IsActive,
	})
}

// PutWebhook writes the vendor's single webhook configuration. An empty URL
// never activates the subscription.
func (h *Handler) PutWebhook(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req webhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_body")
		return
	}
	req.URL = strings.TrimSpace(req.URL)
	if req.URL != "" {
		if err := validator.ValidateWebhookURL(req.URL); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	active := req.Active && req.URL != ""
	err := h.txRunner.WithTx(r.Context(), func(tx *sqlx.Tx) error {
		if err := h.webhooks.Upsert(r.Context(), tx, uuid.NewString(), userID, req.URL, req.Secret, active); err != nil {
			return err
		}
		data, _ := json.Marshal(map[string]any{
			"url":       req.URL,
			"is_active": active,
		})
		return h.audit.Log(r.Context(), tx, userID, "webhook_update", "vendor_webhook", userID, string(data))
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to save webhook")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"url":       req.URL,
		"is_active": active,
	})
}
