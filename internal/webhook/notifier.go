package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"upbolis/internal/metrics"
	"upbolis/internal/store"
)

// SignatureHeader carries the hex HMAC-SHA256 digest of the request body,
// keyed with the subscription secret. Present only when a secret is set.
const SignatureHeader = "X-UPBT-Signature"

type Party struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type ProductRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type PurchaseEvent struct {
	PurchaseID  string
	Buyer       Party
	Product     ProductRef
	Quantity    int64
	TotalTokens int64
	CreatedAt   time.Time
	Vendor      Party
}

type purchasePayload struct {
	Event    string          `json:"event"`
	Purchase purchaseSection `json:"purchase"`
	Vendor   Party           `json:"vendor"`
}

type purchaseSection struct {
	ID          string     `json:"id"`
	Buyer       Party      `json:"buyer"`
	Product     ProductRef `json:"product"`
	Quantity    int64      `json:"quantity"`
	TotalTokens int64      `json:"total_tokens"`
	CreatedAt   string     `json:"created_at"`
}

type WebhookStore interface {
	ListActiveByVendor(ctx context.Context, vendorID string) ([]store.Webhook, error)
}

// Notifier delivers purchase events to vendor-registered endpoints.
// Delivery is best-effort: it runs only after the ledger transaction has
// committed, holds no locks, and failures are logged and dropped without
// retry.
type Notifier struct {
	webhooks WebhookStore
	client   *http.Client
}

func NewNotifier(webhooks WebhookStore, timeout time.Duration) *Notifier {
	return &Notifier{
		webhooks: webhooks,
		client:   &http.Client{Timeout: timeout},
	}
}

func (n *Notifier) NotifyPurchase(ctx context.Context, event PurchaseEvent) {
	if event.Vendor.ID == "" {
		return
	}
	subscriptions, err := n.webhooks.ListActiveByVendor(ctx, event.Vendor.ID)
	if err != nil {
		log.Printf("webhook: unable to load subscriptions for vendor %s: %v", event.Vendor.ID, err)
		return
	}
	if len(subscriptions) == 0 {
		return
	}
	body, err := EncodePurchaseEvent(event)
	if err != nil {
		log.Printf("webhook: unable to encode purchase %s: %v", event.PurchaseID, err)
		return
	}
	for _, subscription := range subscriptions {
		n.deliver(ctx, subscription, body)
	}
}

// EncodePurchaseEvent produces the canonical payload bytes. Signatures are
// computed over exactly these bytes.
func EncodePurchaseEvent(event PurchaseEvent) ([]byte, error) {
	return json.Marshal(purchasePayload{
		Event: "purchase.created",
		Purchase: purchaseSection{
			ID:          event.PurchaseID,
			Buyer:       event.Buyer,
			Product:     event.Product,
			Quantity:    event.Quantity,
			TotalTokens: event.TotalTokens,
			CreatedAt:   event.CreatedAt.UTC().Format(time.RFC3339Nano),
		},
		Vendor: event.Vendor,
	})
}

// Sign returns the hex HMAC-SHA256 digest of body under the secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func (n *Notifier) deliver(ctx context.Context, subscription store.Webhook, body []byte) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, subscription.URL, bytes.NewReader(body))
	if err != nil {
		metrics.WebhookDeliveries.WithLabelValues("error").Inc()
		log.Printf("webhook: invalid request for %s: %v", subscription.URL, err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if subscription.Secret != "" {
		req.Header.Set(SignatureHeader, Sign(subscription.Secret, body))
	}
	resp, err := n.client.Do(req)
	if err != nil {
		metrics.WebhookDeliveries.WithLabelValues("error").Inc()
		log.Printf("webhook: delivery to %s failed: %v", subscription.URL, err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.WebhookDeliveries.WithLabelValues("rejected").Inc()
		log.Printf("webhook: delivery to %s returned %d", subscription.URL, resp.StatusCode)
		return
	}
	metrics.WebhookDeliveries.WithLabelValues("ok").Inc()
}
