package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"upbolis/internal/config"
	"upbolis/internal/db"
	"upbolis/internal/handlers"
	"upbolis/internal/services"
	"upbolis/internal/store"
	"upbolis/internal/webhook"
	"upbolis/internal/websocket"
)

func main() {
	cfg := config.Load()
	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	defer database.Close()

	users := store.NewUserStore(database)
	accounts := store.NewAccountStore(database)
	products := store.NewProductStore(database)
	transactions := store.NewTransactionStore(database)
	apiKeys := store.NewAPIKeyStore(database)
	webhooks := store.NewWebhookStore(database)
	audit := store.NewAuditStore(database)
	txRunner := db.NewTxRunner(database)
	hub := websocket.NewHub()
	notifier := webhook.NewNotifier(webhooks, cfg.WebhookTimeout)
	ledger := services.NewLedgerService(txRunner, accounts, products, transactions, users, audit, notifier, hub)

	handler := handlers.New(txRunner, cfg, users, accounts, products, transactions, apiKeys, webhooks, audit, ledger, hub)
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("upbolis API listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	<-shutdown

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("shutdown error: %v", err)
	}
}
