package billing

import "time"

// Subscription reflects the tenant's billing state for one assistant. The
// engine never mutates it; the billing collaborator owns the lifecycle. The
// only contract with the core is "is this assistant authorized to send right
// now?".
type Subscription struct {
	ID          string `json:"id" db:"id"`
	AssistantID string `json:"assistant_id" db:"assistant_id"`

	Status SubscriptionStatus `json:"status" db:"status"`

	TrialEndsAt      *time.Time `json:"trial_ends_at,omitempty" db:"trial_ends_at"`
	CurrentPeriodEnd *time.Time `json:"current_period_end,omitempty" db:"current_period_end"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type SubscriptionStatus string

const (
	SubscriptionStatusActive   SubscriptionStatus = "active"
	SubscriptionStatusTrialing SubscriptionStatus = "trialing"
	SubscriptionStatusPastDue  SubscriptionStatus = "past_due"
	SubscriptionStatusCanceled SubscriptionStatus = "canceled"
)
