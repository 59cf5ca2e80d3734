package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"upbolis/internal/middleware"
	"upbolis/internal/services"
	"upbolis/internal/tokens"
)

const defaultTopUpDescription = "Manual top-up (no real payment yet)"

type topUpRequest struct {
	AmountTokens any    `json:"amount_tokens"`
	Description  string `json:"description"`
}

func (h *Handler) CreateTopUp(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req topUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_body")
		return
	}
	amount, err := tokens.ParseAmount(req.AmountTokens)
	if err != nil || amount <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_amount")
		return
	}
	description := strings.TrimSpace(req.Description)
	if description == "" {
		description = defaultTopUpDescription
	}
	result, err := h.ledger.TopUp(r.Context(), services.TopUpRequest{
		UserID:      userID,
		Amount:      amount,
		Description: description,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidAmount):
			respondError(w, http.StatusBadRequest, "invalid_amount")
		case errors.Is(err, services.ErrAccountNotFound):
			respondError(w, http.StatusNotFound, "account_not_found")
		default:
			respondError(w, http.StatusInternalServerError, "topup_failed")
		}
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{
		"id":            result.ID,
		"amount_tokens": amount,
		"description":   description,
		"balance":       result.Balance,
		"created_at":    result.CreatedAt,
	})
}
