package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/classdesk/classdesk-api/internal/billing"
	"github.com/classdesk/classdesk-api/internal/models"
	appErrors "github.com/classdesk/classdesk-api/pkg/errors"
)

type mockSubscriptionRepo struct {
	byTeacher map[string]*models.Subscription
	byRef     map[string]*models.Subscription
	updated   int
}

func (m *mockSubscriptionRepo) FindByTeacher(ctx context.Context, teacherID string) (*models.Subscription, error) {
	if sub, ok := m.byTeacher[teacherID]; ok {
		copied := *sub
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockSubscriptionRepo) FindByRef(ctx context.Context, ref string) (*models.Subscription, error) {
	if sub, ok := m.byRef[ref]; ok {
		copied := *sub
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockSubscriptionRepo) Create(ctx context.Context, sub *models.Subscription) error {
	sub.ID = "sub-row-1"
	m.store(sub)
	return nil
}

func (m *mockSubscriptionRepo) Update(ctx context.Context, sub *models.Subscription) error {
	m.updated++
	m.store(sub)
	return nil
}

func (m *mockSubscriptionRepo) store(sub *models.Subscription) {
	if m.byTeacher == nil {
		m.byTeacher = make(map[string]*models.Subscription)
	}
	if m.byRef == nil {
		m.byRef = make(map[string]*models.Subscription)
	}
	copied := *sub
	m.byTeacher[sub.TeacherID] = &copied
	m.byRef[sub.SubscriptionRef] = &copied
}

type mockUserFinder struct {
	users map[string]*models.User
}

func (m *mockUserFinder) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

type mockBillingProvider struct {
	canceled  []string
	changed   []string
	failCalls bool
}

func (m *mockBillingProvider) CreateCustomer(ctx context.Context, teacherID, email string) (string, error) {
	if m.failCalls {
		return "", assert.AnError
	}
	return "cus_" + teacherID, nil
}

func (m *mockBillingProvider) CreateSubscription(ctx context.Context, customerRef string, plan models.Plan, cycle models.BillingCycle) (string, error) {
	if m.failCalls {
		return "", assert.AnError
	}
	return "sub_" + customerRef, nil
}

func (m *mockBillingProvider) CancelAtPeriodEnd(ctx context.Context, ref string) error {
	if m.failCalls {
		return assert.AnError
	}
	m.canceled = append(m.canceled, ref)
	return nil
}

func (m *mockBillingProvider) ChangePlan(ctx context.Context, ref string, plan models.Plan, cycle models.BillingCycle) error {
	if m.failCalls {
		return assert.AnError
	}
	m.changed = append(m.changed, ref)
	return nil
}

func activeSubscription() *models.Subscription {
	now := time.Now().UTC().Truncate(time.Second)
	return &models.Subscription{
		ID:                 "sub-row-1",
		TeacherID:          "t1",
		Plan:               models.PlanProfessional,
		Status:             models.SubscriptionStatusActive,
		BillingCycle:       models.BillingCycleMonthly,
		CurrentPeriodStart: now,
		CurrentPeriodEnd:   now.Add(30 * 24 * time.Hour),
		CustomerRef:        "cus_t1",
		SubscriptionRef:    "sub_cus_t1",
	}
}

func newSubscriptionRepoWith(sub *models.Subscription) *mockSubscriptionRepo {
	repo := &mockSubscriptionRepo{}
	if sub != nil {
		repo.store(sub)
	}
	return repo
}

func TestSubscriptionCreateStoresTrialingRecord(t *testing.T) {
	repo := newSubscriptionRepoWith(nil)
	users := &mockUserFinder{users: map[string]*models.User{
		"t1": {ID: "t1", Email: "teacher@example.com"},
	}}
	svc := NewSubscriptionService(repo, users, &mockBillingProvider{}, nil, nil, nil)

	sub, err := svc.Create(context.Background(), "t1", CreateSubscriptionRequest{
		Plan:         "professional",
		BillingCycle: "monthly",
	})

	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionStatusTrialing, sub.Status)
	assert.Equal(t, models.PlanProfessional, sub.Plan)
	assert.Equal(t, "cus_t1", sub.CustomerRef)
	assert.Equal(t, "sub_cus_t1", sub.SubscriptionRef)
	assert.WithinDuration(t, sub.CurrentPeriodStart.AddDate(0, 1, 0), sub.CurrentPeriodEnd, time.Second)
}

func TestSubscriptionCreatePeriodEndFollowsCycle(t *testing.T) {
	cases := []struct {
		cycle string
		want  func(start time.Time) time.Time
	}{
		{"monthly", func(start time.Time) time.Time { return start.AddDate(0, 1, 0) }},
		{"yearly", func(start time.Time) time.Time { return start.AddDate(1, 0, 0) }},
	}
	for _, tc := range cases {
		t.Run(tc.cycle, func(t *testing.T) {
			users := &mockUserFinder{users: map[string]*models.User{
				"t1": {ID: "t1", Email: "teacher@example.com"},
			}}
			svc := NewSubscriptionService(newSubscriptionRepoWith(nil), users, &mockBillingProvider{}, nil, nil, nil)

			sub, err := svc.Create(context.Background(), "t1", CreateSubscriptionRequest{
				Plan:         "professional",
				BillingCycle: tc.cycle,
			})

			require.NoError(t, err)
			assert.Equal(t, models.BillingCycle(tc.cycle), sub.BillingCycle)
			assert.WithinDuration(t, tc.want(sub.CurrentPeriodStart), sub.CurrentPeriodEnd, time.Second)
		})
	}
}

func TestSubscriptionCreateRejectsDuplicate(t *testing.T) {
	repo := newSubscriptionRepoWith(activeSubscription())
	svc := NewSubscriptionService(repo, &mockUserFinder{}, &mockBillingProvider{}, nil, nil, nil)

	_, err := svc.Create(context.Background(), "t1", CreateSubscriptionRequest{
		Plan:         "professional",
		BillingCycle: "monthly",
	})

	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestSubscriptionCreateProviderFailureIsUpstream(t *testing.T) {
	users := &mockUserFinder{users: map[string]*models.User{"t1": {ID: "t1", Email: "t@example.com"}}}
	svc := NewSubscriptionService(newSubscriptionRepoWith(nil), users, &mockBillingProvider{failCalls: true}, nil, nil, nil)

	_, err := svc.Create(context.Background(), "t1", CreateSubscriptionRequest{
		Plan:         "school",
		BillingCycle: "yearly",
	})

	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrUpstream.Code, appErr.Code)
}

func TestSubscriptionCancelSetsOnlyTheFlag(t *testing.T) {
	existing := activeSubscription()
	repo := newSubscriptionRepoWith(existing)
	provider := &mockBillingProvider{}
	svc := NewSubscriptionService(repo, &mockUserFinder{}, provider, nil, nil, nil)

	sub, err := svc.Cancel(context.Background(), "t1")

	require.NoError(t, err)
	assert.True(t, sub.CancelAtPeriodEnd)
	// Status and periods stay as last reported until a webhook changes them.
	assert.Equal(t, models.SubscriptionStatusActive, sub.Status)
	assert.Equal(t, existing.CurrentPeriodEnd, sub.CurrentPeriodEnd)
	assert.Equal(t, []string{"sub_cus_t1"}, provider.canceled)
}

func TestSubscriptionChangePlanClearsPendingCancel(t *testing.T) {
	existing := activeSubscription()
	existing.CancelAtPeriodEnd = true
	repo := newSubscriptionRepoWith(existing)
	svc := NewSubscriptionService(repo, &mockUserFinder{}, &mockBillingProvider{}, nil, nil, nil)

	sub, err := svc.ChangePlan(context.Background(), "t1", ChangePlanRequest{
		Plan:         "school",
		BillingCycle: "yearly",
	})

	require.NoError(t, err)
	assert.Equal(t, models.PlanSchool, sub.Plan)
	assert.Equal(t, models.BillingCycleYearly, sub.BillingCycle)
	assert.False(t, sub.CancelAtPeriodEnd)
}

func TestLimitsFallBackToStarterWithoutSubscription(t *testing.T) {
	svc := NewSubscriptionService(newSubscriptionRepoWith(nil), &mockUserFinder{}, &mockBillingProvider{}, nil, nil, nil)

	limits, err := svc.Limits(context.Background(), "t1")

	require.NoError(t, err)
	assert.Equal(t, billing.LimitsFor(models.PlanStarter), limits)
}

func TestLimitsFallBackToStarterWhenCanceled(t *testing.T) {
	existing := activeSubscription()
	existing.Status = models.SubscriptionStatusCanceled
	svc := NewSubscriptionService(newSubscriptionRepoWith(existing), &mockUserFinder{}, &mockBillingProvider{}, nil, nil, nil)

	limits, err := svc.Limits(context.Background(), "t1")

	require.NoError(t, err)
	assert.Equal(t, billing.LimitsFor(models.PlanStarter), limits)
}

func TestLimitsHonorPlanWhilePastDue(t *testing.T) {
	existing := activeSubscription()
	existing.Status = models.SubscriptionStatusPastDue
	svc := NewSubscriptionService(newSubscriptionRepoWith(existing), &mockUserFinder{}, &mockBillingProvider{}, nil, nil, nil)

	limits, err := svc.Limits(context.Background(), "t1")

	require.NoError(t, err)
	assert.Equal(t, billing.LimitsFor(models.PlanProfessional), limits)
}

func TestWebhookAppliesAbsoluteSnapshot(t *testing.T) {
	existing := activeSubscription()
	repo := newSubscriptionRepoWith(existing)
	svc := NewSubscriptionService(repo, &mockUserFinder{}, &mockBillingProvider{}, nil, nil, nil)

	periodStart := time.Now().UTC().Truncate(time.Second)
	periodEnd := periodStart.Add(30 * 24 * time.Hour)
	event := &billing.WebhookEvent{
		ID:   "evt_1",
		Type: billing.EventSubscriptionUpdated,
		Data: billing.WebhookSubscription{
			SubscriptionRef:    "sub_cus_t1",
			Plan:               "school",
			Status:             "past_due",
			CancelAtPeriodEnd:  true,
			CurrentPeriodStart: periodStart.Unix(),
			CurrentPeriodEnd:   periodEnd.Unix(),
		},
	}

	require.NoError(t, svc.HandleWebhook(context.Background(), event))

	stored := repo.byRef["sub_cus_t1"]
	assert.Equal(t, models.PlanSchool, stored.Plan)
	assert.Equal(t, models.SubscriptionStatusPastDue, stored.Status)
	assert.True(t, stored.CancelAtPeriodEnd)
	assert.Equal(t, periodStart, stored.CurrentPeriodStart)
	assert.Equal(t, periodEnd, stored.CurrentPeriodEnd)

	// Redelivering the same event converges on the same state.
	require.NoError(t, svc.HandleWebhook(context.Background(), event))
	assert.Equal(t, *stored, *repo.byRef["sub_cus_t1"])
}

func TestWebhookUnknownStatusLeavesStatusUntouched(t *testing.T) {
	existing := activeSubscription()
	repo := newSubscriptionRepoWith(existing)
	svc := NewSubscriptionService(repo, &mockUserFinder{}, &mockBillingProvider{}, nil, nil, nil)

	event := &billing.WebhookEvent{
		ID:   "evt_9",
		Type: billing.EventSubscriptionUpdated,
		Data: billing.WebhookSubscription{
			SubscriptionRef: "sub_cus_t1",
			Plan:            "school",
			Status:          "paused",
		},
	}

	require.NoError(t, svc.HandleWebhook(context.Background(), event))

	stored := repo.byRef["sub_cus_t1"]
	assert.Equal(t, models.PlanSchool, stored.Plan)
	assert.Equal(t, models.SubscriptionStatusActive, stored.Status)
}

func TestWebhookDeletedEventCancels(t *testing.T) {
	existing := activeSubscription()
	existing.CancelAtPeriodEnd = true
	repo := newSubscriptionRepoWith(existing)
	svc := NewSubscriptionService(repo, &mockUserFinder{}, &mockBillingProvider{}, nil, nil, nil)

	event := &billing.WebhookEvent{
		ID:   "evt_2",
		Type: billing.EventSubscriptionDeleted,
		Data: billing.WebhookSubscription{SubscriptionRef: "sub_cus_t1"},
	}

	require.NoError(t, svc.HandleWebhook(context.Background(), event))

	stored := repo.byRef["sub_cus_t1"]
	assert.Equal(t, models.SubscriptionStatusCanceled, stored.Status)
	assert.False(t, stored.CancelAtPeriodEnd)
}

func TestWebhookUnknownSubscriptionIsAcknowledged(t *testing.T) {
	repo := newSubscriptionRepoWith(nil)
	svc := NewSubscriptionService(repo, &mockUserFinder{}, &mockBillingProvider{}, nil, nil, nil)

	event := &billing.WebhookEvent{
		ID:   "evt_3",
		Type: billing.EventSubscriptionUpdated,
		Data: billing.WebhookSubscription{SubscriptionRef: "sub_unknown"},
	}

	require.NoError(t, svc.HandleWebhook(context.Background(), event))
	assert.Zero(t, repo.updated)
}

func TestWebhookMissingRefIsRejected(t *testing.T) {
	svc := NewSubscriptionService(newSubscriptionRepoWith(nil), &mockUserFinder{}, &mockBillingProvider{}, nil, nil, nil)

	err := svc.HandleWebhook(context.Background(), &billing.WebhookEvent{Type: billing.EventInvoicePaid})

	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestWebhookUnhandledEventIsIgnored(t *testing.T) {
	existing := activeSubscription()
	repo := newSubscriptionRepoWith(existing)
	svc := NewSubscriptionService(repo, &mockUserFinder{}, &mockBillingProvider{}, nil, nil, nil)

	event := &billing.WebhookEvent{
		ID:   "evt_4",
		Type: "customer.updated",
		Data: billing.WebhookSubscription{SubscriptionRef: "sub_cus_t1"},
	}

	require.NoError(t, svc.HandleWebhook(context.Background(), event))
	assert.Zero(t, repo.updated)
}
