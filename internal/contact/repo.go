package contact

import (
	"context"
	"time"
)

// Repository abstracts contact persistence.
//
// RecordInbound is an upsert keyed by (assistant_id, phone): it creates the
// contact on first message and refreshes last_inbound_at afterwards. The stop
// evaluator calls it best-effort on every inbound event.
type Repository interface {
	ListEligible(ctx context.Context, assistantID string) ([]Contact, error)
	RecordInbound(ctx context.Context, assistantID, phone string, at time.Time) error
}
