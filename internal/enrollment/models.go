package enrollment

import (
	"errors"
	"time"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusStopped   Status = "stopped"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Terminal reports whether the status will never change again. A contact
// re-entering a campaign requires a fresh enrollment row.
func (s Status) Terminal() bool {
	switch s {
	case StatusStopped, StatusCompleted, StatusFailed:
		return true
	default:
		return false
	}
}

type StopReason string

const (
	StopReasonReplied         StopReason = "replied"
	StopReasonKeyword         StopReason = "keyword"
	StopReasonMaxAttempts     StopReason = "max_attempts"
	StopReasonCampaignDeleted StopReason = "campaign_deleted"
)

// Enrollment is the per-contact run state of a campaign.
//
// Invariants:
// - CurrentStep < campaign step count while Status == active.
// - Version changes on every update; writers must pass the version they read
//   (optimistic concurrency), so two concurrent passes never both advance the
//   same enrollment.
// - LastEventAt anchors the due-time check: creation time, then the time of
//   each send try.
type Enrollment struct {
	ID          string `json:"id" db:"id"`
	CampaignID  string `json:"campaign_id" db:"campaign_id"`
	AssistantID string `json:"assistant_id" db:"assistant_id"`
	Phone       string `json:"phone" db:"phone"`

	Status      Status `json:"status" db:"status"`
	CurrentStep int    `json:"current_step" db:"current_step"`

	LastEventAt  time.Time `json:"last_event_at" db:"last_event_at"`
	AttemptsMade int       `json:"attempts_made" db:"attempts_made"`

	StoppedReason StopReason `json:"stopped_reason,omitempty" db:"stopped_reason"`

	Version int64 `json:"version" db:"version"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

type AttemptOutcome string

const (
	OutcomeSuccess        AttemptOutcome = "success"
	OutcomeTransientError AttemptOutcome = "transient_error"
	OutcomeFatalError     AttemptOutcome = "fatal_error"
)

// DeliveryAttempt is an immutable audit record of one physical send try.
// Rows are never mutated after creation.
type DeliveryAttempt struct {
	ID           string         `json:"id" db:"id"`
	EnrollmentID string         `json:"enrollment_id" db:"enrollment_id"`
	CampaignID   string         `json:"campaign_id" db:"campaign_id"`
	StepIndex    int            `json:"step_index" db:"step_index"`
	Outcome      AttemptOutcome `json:"outcome" db:"outcome"`
	ErrorDetail  string         `json:"error_detail,omitempty" db:"error_detail"`
	SentAt       time.Time      `json:"sent_at" db:"sent_at"`
}

// InboundEvent is a message received from a contact. ProviderMessageID is the
// gateway's message id and acts as the dedup key: ingesting the same event
// twice is a no-op.
type InboundEvent struct {
	ID                string    `json:"id" db:"id"`
	ProviderMessageID string    `json:"provider_message_id" db:"provider_message_id"`
	AssistantID       string    `json:"assistant_id" db:"assistant_id"`
	Phone             string    `json:"phone" db:"phone"`
	Text              string    `json:"text" db:"text"`
	ReceivedAt        time.Time `json:"received_at" db:"received_at"`
}

var (
	ErrNotFound            = errors.New("enrollment not found")
	ErrDuplicateEnrollment = errors.New("contact already has an open enrollment for this campaign")
	ErrVersionConflict     = errors.New("enrollment was modified concurrently")
	ErrDuplicateEvent      = errors.New("inbound event already processed")
)
