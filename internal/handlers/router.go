package handlers

import (
	"net/http"

	"upbolis/internal/config"
	"upbolis/internal/db"
	"upbolis/internal/middleware"
	"upbolis/internal/websocket"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Handler struct {
	txRunner     db.TxRunner
	cfg          config.Config
	users        UserStore
	accounts     AccountStore
	products     ProductStore
	transactions TransactionStore
	apiKeys      APIKeyStore
	webhooks     WebhookStore
	audit        AuditStore
	ledger       LedgerService
	hub          *websocket.Hub
}

func New(txRunner db.TxRunner, cfg config.Config, users UserStore, accounts AccountStore, products ProductStore, transactions TransactionStore, apiKeys APIKeyStore, webhooks WebhookStore, audit AuditStore, ledger LedgerService, hub *websocket.Hub) *Handler {
	return &Handler{
		txRunner:     txRunner,
		cfg:          cfg,
		users:        users,
		accounts:     accounts,
		products:     products,
		transactions: transactions,
		apiKeys:      apiKeys,
		webhooks:     webhooks,
		audit:        audit,
		ledger:       ledger,
		hub:          hub,
	}
}

func (h *Handler) Routes() http.Handler {
	router := chi.NewRouter()
	router.Use(chimiddleware.Logger)
	router.Use(middleware.Metrics)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{h.cfg.AllowedOrigins},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.With(middleware.Auth(h.cfg.JWTSecret)).Get("/me", h.Me)
	})

	router.Get("/products", h.ListProducts)
	router.Get("/products/{id}", h.GetProduct)

	router.Group(func(r chi.Router) {
		r.Use(middleware.Auth(h.cfg.JWTSecret))
		r.Post("/purchases", h.CreatePurchase)
		r.Get("/purchases", h.ListPurchases)
		r.Post("/topups", h.CreateTopUp)
		r.Get("/account", h.GetAccount)
		r.Get("/account/self-check", h.SelfCheck)
		r.Get("/transactions", h.ListTransactions)
	})

	router.Route("/vendor", func(r chi.Router) {
		r.Use(middleware.Auth(h.cfg.JWTSecret))
		r.Use(middleware.RequireVendor(h.users))
		r.Get("/products", h.VendorProducts)
		r.Post("/api-keys", h.CreateAPIKey)
		r.Get("/api-keys", h.ListAPIKeys)
		r.Delete("/api-keys/{id}", h.DeactivateAPIKey)
		r.Get("/webhook", h.GetWebhook)
		r.Put("/webhook", h.PutWebhook)
	})
	router.Group(func(r chi.Router) {
		r.Use(middleware.Auth(h.cfg.JWTSecret))
		r.Use(middleware.RequireVendor(h.users))
		r.Post("/products", h.CreateProduct)
		r.Put("/products/{id}", h.UpdateProduct)
	})

	router.Route("/api", func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(h.apiKeys))
		r.Post("/transfer", h.APITransfer)
		r.Get("/purchases/{id}", h.APIPurchaseDetail)
	})

	router.Get("/ws/balances", h.WSBalances)
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	router.Method(http.MethodGet, "/metrics", promhttp.Handler())
	return router
}
