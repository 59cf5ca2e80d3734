package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"upbolis/internal/middleware"
	"upbolis/internal/store"
	"upbolis/internal/tokens"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type productRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	PriceTokens any    `json:"price_tokens"`
	Active      *bool  `json:"active"`
}

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.ListActive(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load products")
		return
	}
	respondJSON(w, http.StatusOK, productsToMaps(products))
}

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "id")
	product, err := h.products.GetActiveByID(r.Context(), productID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "product_not_found")
			return
		}
		respondError(w, http.StatusInternalServerError, "unable to load product")
		return
	}
	respondJSON(w, http.StatusOK, productToMap(product))
}

func (h *Handler) VendorProducts(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	products, err := h.products.ListByOwner(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to load products")
		return
	}
	respondJSON(w, http.StatusOK, productsToMaps(products))
}

func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}
	price, err := tokens.ParseAmount(req.PriceTokens)
	if err != nil || price <= 0 {
		respondError(w, http.StatusBadRequest, "invalid_price")
		return
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	productID := uuid.NewString()
	err = h.txRunner.WithTx(r.Context(), func(tx *sqlx.Tx) error {
		if err := h.products.Create(r.Context(), tx, productID, &userID, req.Name, req.Description, price, active); err != nil {
			return err
		}
		data, _ := json.Marshal(map[string]any{
			"name":         req.Name,
			"price_tokens": price,
		})
		return h.audit.Log(r.Context(), tx, userID, "product_create", "product", productID, string(data))
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to create product")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{
		"id":           productID,
		"name":         req.Name,
		"description":  req.Description,
		"price_tokens": price,
		"active":       active,
	})
}

func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	productID := chi.URLParam(r, "id")
	existing, err := h.products.GetByID(r.Context(), productID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "product_not_found")
			return
		}
		respondError(w, http.StatusInternalServerError, "unable to load product")
		return
	}
	if existing.OwnerID == nil || *existing.OwnerID != userID {
		respondError(w, http.StatusForbidden, "not_product_owner")
		return
	}
	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_body")
		return
	}
	name := existing.Name
	if strings.TrimSpace(req.Name) != "" {
		name = req.Name
	}
	description := existing.Description
	if req.Description != "" {
		description = req.Description
	}
	price := existing.PriceTokens
	if req.PriceTokens != nil {
		parsed, err := tokens.ParseAmount(req.PriceTokens)
		if err != nil || parsed <= 0 {
			respondError(w, http.StatusBadRequest, "invalid_price")
			return
		}
		price = parsed
	}
	active := existing.Active
	if req.Active != nil {
		active = *req.Active
	}
	err = h.txRunner.WithTx(r.Context(), func(tx *sqlx.Tx) error {
		if err := h.products.Update(r.Context(), tx, productID, name, description, price, active); err != nil {
			return err
		}
		data, _ := json.Marshal(map[string]any{
			"name":         name,
			"price_tokens": price,
			"active":       active,
		})
		return h.audit.Log(r.Context(), tx, userID, "product_update", "product", productID, string(data))
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "unable to update product")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"id":           productID,
		"name":         name,
		"description":  description,
		"price_tokens": price,
		"active":       active,
	})
}

func productToMap(product store.Product) map[string]any {
	ownerID := ""
	if product.OwnerID != nil {
		ownerID = *product.OwnerID
	}
	return map[string]any{
		"id":           product.ID,
		"owner_id":     ownerID,
		"name":         product.Name,
		"description":  product.Description,
		"price_tokens": product.PriceTokens,
		"active":       product.Active,
		"created_at":   product.CreatedAt,
	}
}

func productsToMaps(products []store.Product) []map[string]any {
	maps := make([]map[string]any, 0, len(products))
	for _, product := range products {
		maps = append(maps, productToMap(product))
	}
	return maps
}
