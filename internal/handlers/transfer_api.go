package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"upbolis/internal/middleware"
	"upbolis/internal/services"
	"upbolis/internal/tokens"

	"github.com/go-chi/chi/v5"
)

type apiTransferRequest struct {
	recipientUsername string
	amountRaw         any
	amountPresent     bool
	description       string
}

// APITransfer moves tokens from the authenticated vendor to a recipient
// resolved by username. Accepts a JSON body first, form encoding as a
// fallback.
func (h *Handler) APITransfer(w http.ResponseWriter, r *http.Request) {
	key, ok := middleware.APIKeyFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "invalid_api_key")
		return
	}
	req, err := parseAPITransferBody(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_body")
		return
	}
	if req.recipientUsername == "" {
		respondError(w, http.StatusBadRequest, "recipient_username is required")
		return
	}
	if !req.amountPresent {
		respondError(w, http.StatusBadRequest, "amount_tokens is required")
		return
	}
	amount, err := tokens.ParseAmount(req.amountRaw)
	if err != nil {
		if errors.Is(err, tokens.ErrMissing) {
			respondError(w, http.StatusBadRequest, "amount_tokens is required")
			return
		}
		respondError(w, http.StatusBadRequest, "invalid_amount")
		return
	}
	recipient, err := h.users.GetByUsername(r.Context(), req.recipientUsername)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "recipient_not_found")
			return
		}
		respondError(w, http.StatusInternalServerError, "unable to resolve recipient")
		return
	}
	recipientID := valueToString(recipient["id"])
	result, err := h.ledger.Transfer(r.Context(), services.TransferRequest{
		FromUserID:  key.VendorID,
		ToUserID:    recipientID,
		Amount:      amount,
		Description: req.description,
		APIKeyID:    &key.ID,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidAmount):
			respondError(w, http.StatusBadRequest, "invalid_amount")
		case errors.Is(err, services.ErrSelfTransfer):
			respondError(w, http.StatusBadRequest, "self_transfer")
		case errors.Is(err, services.ErrInsufficientBalance):
			respondError(w, http.StatusBadRequest, "insufficient_balance")
		case errors.Is(err, services.ErrAccountNotFound):
			respondError(w, http.StatusNotFound, "account_not_found")
		default:
			respondError(w, http.StatusInternalServerError, "transfer_failed")
		}
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{
		"status":      "ok",
		"transfer_id": result.ID,
		"from_user": map[string]any{
			"username":    key.VendorUsername,
			"new_balance": result.FromBalance,
		},
		"to_user": map[string]any{
			"username":    valueToString(recipient["username"]),
			"new_balance": result.ToBalance,
		},
		"amount_tokens": amount,
		"description":   req.description,
		"created_at":    result.CreatedAt,
	})
}

func parseAPITransferBody(r *http.Request) (apiTransferRequest, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return apiTransferRequest{}, err
	}

	var fields map[string]json.RawMessage
	if json.Unmarshal(body, &fields) == nil && fields != nil {
		req := apiTransferRequest{}
		if raw, ok := fields["recipient_username"]; ok {
			_ = json.Unmarshal(raw, &req.recipientUsername)
			req.recipientUsername = strings.TrimSpace(req.recipientUsername)
		}
		if raw, ok := fields["amount_tokens"]; ok {
			req.amountPresent = true
			var number json.Number
			if json.Unmarshal(raw, &number) == nil {
				req.amountRaw = number
			} else {
				var text string
				if json.Unmarshal(raw, &text) == nil {
					req.amountRaw = text
				}
			}
		}
		if raw, ok := fields["description"]; ok {
			_ = json.Unmarshal(raw, &req.description)
		}
		return req, nil
	}

	form, err := url.ParseQuery(string(body))
	if err != nil {
		return apiTransferRequest{}, err
	}
	req := apiTransferRequest{
		recipientUsername: strings.TrimSpace(form.Get("recipient_username")),
		description:       form.Get("description"),
	}
	if form.Has("amount_tokens") {
		req.amountPresent = true
		req.amountRaw = form.Get("amount_tokens")
	}
	return req, nil
}

// APIPurchaseDetail returns a purchase the authenticated vendor sold.
func (h *Handler) APIPurchaseDetail(w http.ResponseWriter, r *http.Request) {
	key, ok := middleware.APIKeyFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "invalid_api_key")
		return
	}
	purchaseID := chi.URLParam(r, "id")
	detail, err := h.transactions.GetPurchaseDetail(r.Context(), purchaseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "purchase_not_found")
			return
		}
		respondError(w, http.StatusInternalServerError, "unable to load purchase")
		return
	}
	if detail.VendorID == nil || *detail.VendorID != key.VendorID {
		respondError(w, http.StatusForbidden, "not_authorized_for_purchase")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"id": detail.ID,
		"buyer": map[string]any{
			"id":       detail.BuyerID,
			"username": detail.BuyerUsername,
		},
		"product": map[string]any{
			"id":   detail.ProductID,
			"name": detail.ProductName,
		},
		"vendor": map[string]any{
			"id":       *detail.VendorID,
			"username": derefOrEmpty(detail.VendorUsername),
		},
		"quantity":     detail.Quantity,
		"total_tokens": detail.TotalTokens,
		"created_at":   detail.CreatedAt,
	})
}

func derefOrEmpty(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
