package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/classdesk/classdesk-api/internal/models"
	"github.com/classdesk/classdesk-api/pkg/config"
)

// HTTPClient talks to the billing provider's REST API.
type HTTPClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *zap.Logger
}

// NewHTTPClient constructs a provider client from configuration.
func NewHTTPClient(cfg config.BillingConfig, logger *zap.Logger) *HTTPClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPClient{
		baseURL: cfg.APIBaseURL,
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// CreateCustomer registers a billing customer for a teacher.
func (c *HTTPClient) CreateCustomer(ctx context.Context, teacherID, email string) (string, error) {
	body := map[string]string{"external_id": teacherID, "email": email}
	var out struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/customers", body, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// CreateSubscription opens a subscription for a customer.
func (c *HTTPClient) CreateSubscription(ctx context.Context, customerRef string, plan models.Plan, cycle models.BillingCycle) (string, error) {
	body := map[string]string{
		"customer_id": customerRef,
		"plan":        string(plan),
		"interval":    string(cycle),
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/subscriptions", body, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

// CancelAtPeriodEnd flags the subscription for end-of-period cancellation.
func (c *HTTPClient) CancelAtPeriodEnd(ctx context.Context, subscriptionRef string) error {
	body := map[string]bool{"cancel_at_period_end": true}
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/subscriptions/%s/cancel", subscriptionRef), body, nil)
}

// ChangePlan swaps the subscription plan and resumes a pending cancellation.
func (c *HTTPClient) ChangePlan(ctx context.Context, subscriptionRef string, plan models.Plan, cycle models.BillingCycle) error {
	body := map[string]interface{}{
		"plan":                 string(plan),
		"interval":             string(cycle),
		"cancel_at_period_end": false,
	}
	return c.do(ctx, http.MethodPost, fmt.Sprintf("/subscriptions/%s", subscriptionRef), body, nil)
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal billing request: %w", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build billing request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("billing request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("billing provider error",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
		)
		return fmt.Errorf("billing provider returned status %d", resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode billing response: %w", err)
		}
	}
	return nil
}
