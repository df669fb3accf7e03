package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classdesk/classdesk-api/internal/billing"
	"github.com/classdesk/classdesk-api/internal/models"
	"github.com/classdesk/classdesk-api/internal/service"
)

const webhookSecret = "whsec_test"

type webhookSubscriptionRepo struct {
	byRef map[string]*models.Subscription
}

func (m *webhookSubscriptionRepo) FindByTeacher(ctx context.Context, teacherID string) (*models.Subscription, error) {
	for _, sub := range m.byRef {
		if sub.TeacherID == teacherID {
			return sub, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *webhookSubscriptionRepo) FindByRef(ctx context.Context, ref string) (*models.Subscription, error) {
	if sub, ok := m.byRef[ref]; ok {
		copied := *sub
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *webhookSubscriptionRepo) Create(ctx context.Context, sub *models.Subscription) error {
	return nil
}

func (m *webhookSubscriptionRepo) Update(ctx context.Context, sub *models.Subscription) error {
	copied := *sub
	m.byRef[sub.SubscriptionRef] = &copied
	return nil
}

type noopUserFinder struct{}

func (noopUserFinder) FindByID(ctx context.Context, id string) (*models.User, error) {
	return nil, sql.ErrNoRows
}

type noopProvider struct{}

func (noopProvider) CreateCustomer(ctx context.Context, teacherID, email string) (string, error) {
	return "", nil
}

func (noopProvider) CreateSubscription(ctx context.Context, customerRef string, plan models.Plan, cycle models.BillingCycle) (string, error) {
	return "", nil
}

func (noopProvider) CancelAtPeriodEnd(ctx context.Context, ref string) error { return nil }

func (noopProvider) ChangePlan(ctx context.Context, ref string, plan models.Plan, cycle models.BillingCycle) error {
	return nil
}

func newWebhookFixture() (*WebhookHandler, *webhookSubscriptionRepo) {
	repo := &webhookSubscriptionRepo{byRef: map[string]*models.Subscription{
		"sub_1": {
			ID:              "row-1",
			TeacherID:       "t1",
			Plan:            models.PlanProfessional,
			Status:          models.SubscriptionStatusActive,
			BillingCycle:    models.BillingCycleMonthly,
			SubscriptionRef: "sub_1",
		},
	}}
	svc := service.NewSubscriptionService(repo, noopUserFinder{}, noopProvider{}, nil, nil, nil)
	return NewWebhookHandler(svc, webhookSecret, nil), repo
}

func postWebhook(t *testing.T, h *WebhookHandler, payload []byte, signature string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, err := http.NewRequest(http.MethodPost, "/webhooks/billing", bytes.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set(billing.SignatureHeader, signature)
	}
	c.Request = req
	h.Handle(c)
	return w
}

func TestWebhookHandlerAppliesSignedEvent(t *testing.T) {
	h, repo := newWebhookFixture()
	payload, err := json.Marshal(billing.WebhookEvent{
		ID:   "evt_1",
		Type: billing.EventSubscriptionUpdated,
		Data: billing.WebhookSubscription{
			SubscriptionRef:  "sub_1",
			Status:           "past_due",
			CurrentPeriodEnd: time.Now().Add(24 * time.Hour).Unix(),
		},
	})
	require.NoError(t, err)

	w := postWebhook(t, h, payload, billing.Sign(payload, webhookSecret))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"received":true`)
	assert.Equal(t, models.SubscriptionStatusPastDue, repo.byRef["sub_1"].Status)
}

func TestWebhookHandlerRejectsBadSignature(t *testing.T) {
	h, repo := newWebhookFixture()
	payload := []byte(`{"id":"evt_2","type":"subscription.updated","data":{"subscription_id":"sub_1","status":"canceled"}}`)

	w := postWebhook(t, h, payload, billing.Sign([]byte("tampered"), webhookSecret))

	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, models.SubscriptionStatusActive, repo.byRef["sub_1"].Status)
}

func TestWebhookHandlerRejectsMissingSignature(t *testing.T) {
	h, _ := newWebhookFixture()
	payload := []byte(`{"id":"evt_3","type":"invoice.paid","data":{"subscription_id":"sub_1"}}`)

	w := postWebhook(t, h, payload, "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestWebhookHandlerAcknowledgesUnknownSubscription(t *testing.T) {
	h, _ := newWebhookFixture()
	payload, err := json.Marshal(billing.WebhookEvent{
		ID:   "evt_4",
		Type: billing.EventSubscriptionDeleted,
		Data: billing.WebhookSubscription{SubscriptionRef: "sub_unknown"},
	})
	require.NoError(t, err)

	w := postWebhook(t, h, payload, billing.Sign(payload, webhookSecret))

	assert.Equal(t, http.StatusOK, w.Code)
}
