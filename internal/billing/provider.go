package billing

import (
	"context"

	"github.com/classdesk/classdesk-api/internal/models"
)

// Provider abstracts the external subscription processor. The API never
// implements payment mechanics itself; it only records what the provider
// reports back.
type Provider interface {
	// CreateCustomer registers a billing customer for a teacher and returns
	// the provider's customer reference.
	CreateCustomer(ctx context.Context, teacherID, email string) (string, error)
	// CreateSubscription opens a subscription on the given plan and returns
	// the provider's subscription reference.
	CreateSubscription(ctx context.Context, customerRef string, plan models.Plan, cycle models.BillingCycle) (string, error)
	// CancelAtPeriodEnd flags the subscription to end when the current
	// billing period closes.
	CancelAtPeriodEnd(ctx context.Context, subscriptionRef string) error
	// ChangePlan swaps the subscription's line item to a new plan/cycle and
	// clears any pending cancellation.
	ChangePlan(ctx context.Context, subscriptionRef string, plan models.Plan, cycle models.BillingCycle) error
}
