package models

import "time"

// Plan enumerates subscription tiers.
type Plan string

const (
	PlanStarter      Plan = "starter"
	PlanProfessional Plan = "professional"
	PlanSchool       Plan = "school"
)

// Valid reports whether the plan is a recognised tier.
func (p Plan) Valid() bool {
	switch p {
	case PlanStarter, PlanProfessional, PlanSchool:
		return true
	default:
		return false
	}
}

// BillingCycle enumerates billing intervals.
type BillingCycle string

const (
	BillingCycleMonthly BillingCycle = "monthly"
	BillingCycleYearly  BillingCycle = "yearly"
)

// Valid reports whether the cycle is a recognised value.
func (c BillingCycle) Valid() bool {
	return c == BillingCycleMonthly || c == BillingCycleYearly
}

// PeriodEnd returns the end of a billing period that starts at t.
func (c BillingCycle) PeriodEnd(t time.Time) time.Time {
	if c == BillingCycleYearly {
		return t.AddDate(1, 0, 0)
	}
	return t.AddDate(0, 1, 0)
}

// SubscriptionStatus mirrors the billing provider's status vocabulary.
// The provider's webhooks are the sole source of truth for this field.
type SubscriptionStatus string

const (
	SubscriptionStatusTrialing   SubscriptionStatus = "trialing"
	SubscriptionStatusActive     SubscriptionStatus = "active"
	SubscriptionStatusPastDue    SubscriptionStatus = "past_due"
	SubscriptionStatusCanceled   SubscriptionStatus = "canceled"
	SubscriptionStatusIncomplete SubscriptionStatus = "incomplete"
)

// Valid reports whether the status is part of the provider vocabulary.
func (s SubscriptionStatus) Valid() bool {
	switch s {
	case SubscriptionStatusTrialing, SubscriptionStatusActive, SubscriptionStatusPastDue,
		SubscriptionStatusCanceled, SubscriptionStatusIncomplete:
		return true
	}
	return false
}

// Subscription is the single billing record for a teacher.
type Subscription struct {
	ID                 string             `db:"id" json:"id"`
	TeacherID          string             `db:"teacher_id" json:"teacher_id"`
	Plan               Plan               `db:"plan" json:"plan"`
	Status             SubscriptionStatus `db:"status" json:"status"`
	BillingCycle       BillingCycle       `db:"billing_cycle" json:"billing_cycle"`
	CancelAtPeriodEnd  bool               `db:"cancel_at_period_end" json:"cancel_at_period_end"`
	CurrentPeriodStart time.Time          `db:"current_period_start" json:"current_period_start"`
	CurrentPeriodEnd   time.Time          `db:"current_period_end" json:"current_period_end"`
	CustomerRef        string             `db:"customer_ref" json:"customer_ref"`
	SubscriptionRef    string             `db:"subscription_ref" json:"subscription_ref"`
	CreatedAt          time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time          `db:"updated_at" json:"updated_at"`
}
