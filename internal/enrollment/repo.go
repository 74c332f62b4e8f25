package enrollment

import (
	"context"
	"time"
)

// Repository is the persistence contract for enrollments.
//
// Create enforces uniqueness of (campaign_id, phone) among non-terminal rows
// and returns ErrDuplicateEnrollment on violation, which makes enrollment
// selection idempotent.
//
// Update is conditional on the version the caller read; a concurrent writer
// wins and the loser gets ErrVersionConflict. Terminal rows are never
// re-activated.
type Repository interface {
	Create(ctx context.Context, e *Enrollment) error
	GetByID(ctx context.Context, id string) (Enrollment, error)
	Update(ctx context.Context, e *Enrollment) error

	ListActive(ctx context.Context) ([]Enrollment, error)
	ListOpenByContact(ctx context.Context, assistantID, phone string) ([]Enrollment, error)
	ListOpenByCampaign(ctx context.Context, campaignID string) ([]Enrollment, error)
	CountByStatus(ctx context.Context, campaignID string) (map[Status]int, error)
}

// AttemptRepository is append-only. No Update/Delete methods are provided.
type AttemptRepository interface {
	Append(ctx context.Context, a DeliveryAttempt) error
	ListByEnrollment(ctx context.Context, enrollmentID string) ([]DeliveryAttempt, error)
	CountOutcomes(ctx context.Context, campaignID string, since time.Time) (map[AttemptOutcome]int, error)
}

// InboundRepository is append-only with a uniqueness guarantee on the
// provider message id. Insert returns ErrDuplicateEvent for an already-seen id.
type InboundRepository interface {
	Insert(ctx context.Context, ev InboundEvent) error
}
