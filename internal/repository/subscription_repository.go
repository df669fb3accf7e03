package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/classdesk/classdesk-api/internal/models"
)

// SubscriptionRepository manages the single billing record per teacher.
// Webhook handlers address rows by the provider's subscription reference.
type SubscriptionRepository struct {
	db *sqlx.DB
}

// NewSubscriptionRepository constructs a SubscriptionRepository.
func NewSubscriptionRepository(db *sqlx.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

const subscriptionColumns = `id, teacher_id, plan, status, billing_cycle, cancel_at_period_end,
        current_period_start, current_period_end, customer_ref, subscription_ref, created_at, updated_at`

// FindByTeacher returns the teacher's subscription record.
func (r *SubscriptionRepository) FindByTeacher(ctx context.Context, teacherID string) (*models.Subscription, error) {
	query := "SELECT " + subscriptionColumns + " FROM subscriptions WHERE teacher_id = $1"
	var sub models.Subscription
	if err := r.db.GetContext(ctx, &sub, query, teacherID); err != nil {
		return nil, err
	}
	return &sub, nil
}

// FindByRef returns the subscription matching a provider reference.
func (r *SubscriptionRepository) FindByRef(ctx context.Context, subscriptionRef string) (*models.Subscription, error) {
	query := "SELECT " + subscriptionColumns + " FROM subscriptions WHERE subscription_ref = $1"
	var sub models.Subscription
	if err := r.db.GetContext(ctx, &sub, query, subscriptionRef); err != nil {
		return nil, err
	}
	return &sub, nil
}

// Create inserts a new subscription record.
func (r *SubscriptionRepository) Create(ctx context.Context, sub *models.Subscription) error {
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	sub.CreatedAt = now
	sub.UpdatedAt = now
	const query = `INSERT INTO subscriptions (id, teacher_id, plan, status, billing_cycle, cancel_at_period_end,
        current_period_start, current_period_end, customer_ref, subscription_ref, created_at, updated_at)
        VALUES (:id, :teacher_id, :plan, :status, :billing_cycle, :cancel_at_period_end,
        :current_period_start, :current_period_end, :customer_ref, :subscription_ref, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, sub); err != nil {
		return fmt.Errorf("create subscription: %w", err)
	}
	return nil
}

// Update overwrites the mutable subscription fields.
func (r *SubscriptionRepository) Update(ctx context.Context, sub *models.Subscription) error {
	sub.UpdatedAt = time.Now().UTC()
	const query = `UPDATE subscriptions SET plan = :plan, status = :status, billing_cycle = :billing_cycle,
        cancel_at_period_end = :cancel_at_period_end, current_period_start = :current_period_start,
        current_period_end = :current_period_end, customer_ref = :customer_ref, subscription_ref = :subscription_ref,
        updated_at = :updated_at
        WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, sub)
	if err != nil {
		return fmt.Errorf("update subscription: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update subscription result: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
