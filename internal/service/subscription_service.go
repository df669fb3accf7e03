package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/classdesk/classdesk-api/internal/billing"
	"github.com/classdesk/classdesk-api/internal/models"
	appErrors "github.com/classdesk/classdesk-api/pkg/errors"
)

type subscriptionRepository interface {
	FindByTeacher(ctx context.Context, teacherID string) (*models.Subscription, error)
	FindByRef(ctx context.Context, subscriptionRef string) (*models.Subscription, error)
	Create(ctx context.Context, sub *models.Subscription) error
	Update(ctx context.Context, sub *models.Subscription) error
}

type userFinder interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// CreateSubscriptionRequest opens a paid subscription for a teacher.
type CreateSubscriptionRequest struct {
	Plan         string `json:"plan" validate:"required"`
	BillingCycle string `json:"billing_cycle" validate:"required"`
}

// ChangePlanRequest switches the teacher to a different plan or cycle.
type ChangePlanRequest struct {
	Plan         string `json:"plan" validate:"required"`
	BillingCycle string `json:"billing_cycle" validate:"required"`
}

// SubscriptionService owns the billing lifecycle. It talks to the provider
// for mutations, but provider webhooks remain the sole source of truth for
// status and billing periods.
type SubscriptionService struct {
	repo      subscriptionRepository
	users     userFinder
	provider  billing.Provider
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSubscriptionService constructs the subscription service.
func NewSubscriptionService(repo subscriptionRepository, users userFinder, provider billing.Provider, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *SubscriptionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubscriptionService{
		repo:      repo,
		users:     users,
		provider:  provider,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
	}
}

// Get returns the teacher's subscription record.
func (s *SubscriptionService) Get(ctx context.Context, teacherID string) (*models.Subscription, error) {
	sub, err := s.repo.FindByTeacher(ctx, teacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no subscription found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subscription")
	}
	return sub, nil
}

// Limits resolves the capability table for the teacher's current plan.
// Teachers without a subscription, or whose subscription is canceled or
// incomplete, get the starter tier.
func (s *SubscriptionService) Limits(ctx context.Context, teacherID string) (billing.PlanLimits, error) {
	sub, err := s.repo.FindByTeacher(ctx, teacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return billing.LimitsFor(models.PlanStarter), nil
		}
		return billing.PlanLimits{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subscription")
	}
	switch sub.Status {
	case models.SubscriptionStatusActive, models.SubscriptionStatusTrialing, models.SubscriptionStatusPastDue:
		return billing.LimitsFor(sub.Plan), nil
	default:
		return billing.LimitsFor(models.PlanStarter), nil
	}
}

// Create opens a subscription with the provider and stores it locally in
// trialing state. The provider's webhooks settle the real status afterwards.
func (s *SubscriptionService) Create(ctx context.Context, teacherID string, req CreateSubscriptionRequest) (*models.Subscription, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid subscription payload")
	}
	plan := models.Plan(req.Plan)
	cycle := models.BillingCycle(req.BillingCycle)
	if !plan.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown plan")
	}
	if !cycle.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown billing cycle")
	}

	if _, err := s.repo.FindByTeacher(ctx, teacherID); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "teacher already has a subscription")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subscription")
	}

	user, err := s.users.FindByID(ctx, teacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}

	customerRef, err := s.provider.CreateCustomer(ctx, teacherID, user.Email)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "billing provider rejected customer")
	}
	subscriptionRef, err := s.provider.CreateSubscription(ctx, customerRef, plan, cycle)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "billing provider rejected subscription")
	}

	now := time.Now().UTC()
	sub := &models.Subscription{
		TeacherID:          teacherID,
		Plan:               plan,
		Status:             models.SubscriptionStatusTrialing,
		BillingCycle:       cycle,
		CurrentPeriodStart: now,
		CurrentPeriodEnd:   cycle.PeriodEnd(now),
		CustomerRef:        customerRef,
		SubscriptionRef:    subscriptionRef,
	}
	if err := s.repo.Create(ctx, sub); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store subscription")
	}
	s.logger.Info("subscription created",
		zap.String("teacher_id", teacherID),
		zap.String("plan", string(plan)),
		zap.String("subscription_ref", subscriptionRef))
	return sub, nil
}

// Cancel asks the provider to end the subscription at period end. Only the
// cancel flag changes locally; the status stays as the provider last
// reported it until a webhook says otherwise.
func (s *SubscriptionService) Cancel(ctx context.Context, teacherID string) (*models.Subscription, error) {
	sub, err := s.Get(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	if sub.Status == models.SubscriptionStatusCanceled {
		return nil, appErrors.Clone(appErrors.ErrConflict, "subscription is already canceled")
	}
	if err := s.provider.CancelAtPeriodEnd(ctx, sub.SubscriptionRef); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "billing provider rejected cancellation")
	}
	sub.CancelAtPeriodEnd = true
	if err := s.repo.Update(ctx, sub); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store subscription")
	}
	return sub, nil
}

// ChangePlan switches the subscription's plan and cycle with the provider.
// A successful change clears any pending cancellation.
func (s *SubscriptionService) ChangePlan(ctx context.Context, teacherID string, req ChangePlanRequest) (*models.Subscription, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid plan change payload")
	}
	plan := models.Plan(req.Plan)
	cycle := models.BillingCycle(req.BillingCycle)
	if !plan.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown plan")
	}
	if !cycle.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown billing cycle")
	}

	sub, err := s.Get(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	if sub.Status == models.SubscriptionStatusCanceled {
		return nil, appErrors.Clone(appErrors.ErrConflict, "subscription is canceled")
	}
	if err := s.provider.ChangePlan(ctx, sub.SubscriptionRef, plan, cycle); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "billing provider rejected plan change")
	}

	sub.Plan = plan
	sub.BillingCycle = cycle
	sub.CancelAtPeriodEnd = false
	if err := s.repo.Update(ctx, sub); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store subscription")
	}
	return sub, nil
}

// HandleWebhook applies a provider notification to the local record. Events
// carry absolute snapshots, so replaying or reordering deliveries converges
// on the same state. Events for unknown subscriptions are acknowledged and
// dropped.
func (s *SubscriptionService) HandleWebhook(ctx context.Context, event *billing.WebhookEvent) error {
	ref := event.Data.SubscriptionRef
	if ref == "" {
		s.recordWebhook(event.Type, "invalid")
		return appErrors.Clone(appErrors.ErrValidation, "webhook event missing subscription id")
	}

	sub, err := s.repo.FindByRef(ctx, ref)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("webhook for unknown subscription",
				zap.String("event_type", event.Type),
				zap.String("subscription_ref", ref))
			s.recordWebhook(event.Type, "unknown_subscription")
			return nil
		}
		s.recordWebhook(event.Type, "error")
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subscription")
	}

	switch event.Type {
	case billing.EventSubscriptionCreated, billing.EventSubscriptionUpdated, billing.EventInvoicePaid, billing.EventInvoiceFailed:
		s.applySnapshot(sub, event.Data)
	case billing.EventSubscriptionDeleted:
		sub.Status = models.SubscriptionStatusCanceled
		sub.CancelAtPeriodEnd = false
		if end := event.Data.PeriodEnd(); !end.IsZero() {
			sub.CurrentPeriodEnd = end
		}
	default:
		s.logger.Info("ignoring unhandled webhook event", zap.String("event_type", event.Type))
		s.recordWebhook(event.Type, "ignored")
		return nil
	}

	if err := s.repo.Update(ctx, sub); err != nil {
		s.recordWebhook(event.Type, "error")
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store subscription")
	}
	s.recordWebhook(event.Type, "applied")
	return nil
}

func (s *SubscriptionService) applySnapshot(sub *models.Subscription, data billing.WebhookSubscription) {
	if plan := models.Plan(data.Plan); plan.Valid() {
		sub.Plan = plan
	}
	if status := models.SubscriptionStatus(data.Status); status.Valid() {
		sub.Status = status
	}
	sub.CancelAtPeriodEnd = data.CancelAtPeriodEnd
	if start := data.PeriodStart(); !start.IsZero() {
		sub.CurrentPeriodStart = start
	}
	if end := data.PeriodEnd(); !end.IsZero() {
		sub.CurrentPeriodEnd = end
	}
}

func (s *SubscriptionService) recordWebhook(eventType, outcome string) {
	if s.metrics != nil {
		s.metrics.RecordWebhook(eventType, outcome)
	}
}
