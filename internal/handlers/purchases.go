package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"upbolis/internal/middleware"
	"upbolis/internal/services"
	"upbolis/internal/tokens"
)

type purchaseRequest struct {
	ProductID string `json:"product_id"`
	Quantity  any    `json:"quantity"`
}

func (h *Handler) CreatePurchase(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req purchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_body")
		return
	}
	if req.ProductID == "" {
		respondError(w, http.StatusBadRequest, "product_id is required")
		return
	}
	quantity := int64(1)
	if req.Quantity != nil {
		parsed, err := tokens.ParseAmount(req.Quantity)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid_quantity")
			return
		}
		quantity = parsed
	}
	result, err := h.ledger.Purchase(r.Context(), services.PurchaseRequest{
		BuyerID:   userID,
		ProductID: req.ProductID,
		Quantity:  quantity,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidQuantity):
			respondError(w, http.StatusBadRequest, "invalid_quantity")
		case errors.Is(err, services.ErrProductNotFound):
			respondError(w, http.StatusNotFound, "product_not_found")
		case errors.Is(err, services.ErrInsufficientBalance):
			respondError(w, http.StatusBadRequest, "insufficient_balance")
		case errors.Is(err, services.ErrAccountNotFound):
			respondError(w, http.StatusNotFound, "account_not_found")
		default:
			respondError(w, http.StatusInternalServerError, "purchase_failed")
		}
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{
		"id":           result.ID,
		"product_id":   result.ProductID,
		"product_name": result.ProductName,
		"quantity":     result.Quantity,
		"total_tokens": result.TotalTokens,
		"balance":      result.BuyerBalance,
		"created_at":   result.CreatedAt,
	})
}

func (h *Handler) ListPurchases(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	query := r.URL.Query()
	page := parseInt(query.Get("page"), 1)
	limit := parseInt(query.Get("limit"), 20)
	offset := (page - 1) * limit
	purchases, err := h.transactions.ListPurchasesByBuyer(r.Context(), userID, limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load purchases")
		return
	}
	respondJSON(w, http.StatusOK, purchases)
}
