package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// Webhook event types delivered by the billing provider.
const (
	EventSubscriptionCreated = "subscription.created"
	EventSubscriptionUpdated = "subscription.updated"
	EventSubscriptionDeleted = "subscription.deleted"
	EventInvoicePaid         = "invoice.paid"
	EventInvoiceFailed       = "invoice.payment_failed"
)

// SignatureHeader carries the hex HMAC-SHA256 of the raw payload.
const SignatureHeader = "X-Billing-Signature"

// WebhookEvent is a provider notification. Delivery is at-least-once and may
// be reordered, so all fields are absolute values, never deltas.
type WebhookEvent struct {
	ID   string              `json:"id"`
	Type string              `json:"type"`
	Data WebhookSubscription `json:"data"`
}

// WebhookSubscription is the subscription snapshot embedded in an event.
type WebhookSubscription struct {
	SubscriptionRef    string `json:"subscription_id"`
	CustomerRef        string `json:"customer_id"`
	Plan               string `json:"plan"`
	Status             string `json:"status"`
	CancelAtPeriodEnd  bool   `json:"cancel_at_period_end"`
	CurrentPeriodStart int64  `json:"current_period_start"`
	CurrentPeriodEnd   int64  `json:"current_period_end"`
}

// PeriodStart returns the period start as a time, zero when unset.
func (s WebhookSubscription) PeriodStart() time.Time {
	if s.CurrentPeriodStart == 0 {
		return time.Time{}
	}
	return time.Unix(s.CurrentPeriodStart, 0).UTC()
}

// PeriodEnd returns the period end as a time, zero when unset.
func (s WebhookSubscription) PeriodEnd() time.Time {
	if s.CurrentPeriodEnd == 0 {
		return time.Time{}
	}
	return time.Unix(s.CurrentPeriodEnd, 0).UTC()
}

// ParseWebhook verifies the payload signature and decodes the event.
func ParseWebhook(payload []byte, signature, secret string) (*WebhookEvent, error) {
	if err := VerifySignature(payload, signature, secret); err != nil {
		return nil, err
	}
	var event WebhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("decode webhook payload: %w", err)
	}
	if event.Type == "" {
		return nil, fmt.Errorf("webhook event missing type")
	}
	return &event, nil
}

// VerifySignature checks the hex HMAC-SHA256 signature of the raw payload.
func VerifySignature(payload []byte, signature, secret string) error {
	if signature == "" {
		return fmt.Errorf("missing webhook signature")
	}
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return fmt.Errorf("invalid webhook signature")
	}
	return nil
}

// Sign computes the signature for a payload. Exposed for tests and for the
// provider sandbox tooling.
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
