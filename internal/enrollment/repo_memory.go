package enrollment

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo implements Repository in memory with the same conflict and
// uniqueness semantics as the Postgres implementation. Useful for tests.
type MemoryRepo struct {
	mu   sync.Mutex
	rows map[string]Enrollment
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{rows: make(map[string]Enrollment)}
}

func (r *MemoryRepo) Create(ctx context.Context, e *Enrollment) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, cur := range r.rows {
		if cur.CampaignID == e.CampaignID && cur.Phone == e.Phone && !cur.Status.Terminal() {
			return ErrDuplicateEnrollment
		}
	}
	e.Version = 1
	r.rows[e.ID] = *e
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Enrollment, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.rows[id]
	if !ok {
		return Enrollment{}, ErrNotFound
	}
	return e, nil
}

func (r *MemoryRepo) Update(ctx context.Context, e *Enrollment) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.rows[e.ID]
	if !ok {
		return ErrNotFound
	}
	if cur.Version != e.Version {
		return ErrVersionConflict
	}
	e.Version++
	e.UpdatedAt = time.Now().UTC()
	r.rows[e.ID] = *e
	return nil
}

func (r *MemoryRepo) ListActive(ctx context.Context) ([]Enrollment, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []Enrollment{}
	for _, e := range r.rows {
		if e.Status == StatusActive {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *MemoryRepo) ListOpenByContact(ctx context.Context, assistantID, phone string) ([]Enrollment, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []Enrollment{}
	for _, e := range r.rows {
		if e.AssistantID == assistantID && e.Phone == phone && !e.Status.Terminal() {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *MemoryRepo) ListOpenByCampaign(ctx context.Context, campaignID string) ([]Enrollment, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []Enrollment{}
	for _, e := range r.rows {
		if e.CampaignID == campaignID && !e.Status.Terminal() {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *MemoryRepo) CountByStatus(ctx context.Context, campaignID string) (map[Status]int, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[Status]int{}
	for _, e := range r.rows {
		if e.CampaignID == campaignID {
			out[e.Status]++
		}
	}
	return out, nil
}

// MemoryAttemptRepo is an append-only in-memory attempt store for tests.
type MemoryAttemptRepo struct {
	mu       sync.Mutex
	attempts []DeliveryAttempt
}

func NewMemoryAttemptRepo() *MemoryAttemptRepo { return &MemoryAttemptRepo{} }

func (r *MemoryAttemptRepo) Append(ctx context.Context, a DeliveryAttempt) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts = append(r.attempts, a)
	return nil
}

func (r *MemoryAttemptRepo) ListByEnrollment(ctx context.Context, enrollmentID string) ([]DeliveryAttempt, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []DeliveryAttempt{}
	for _, a := range r.attempts {
		if a.EnrollmentID == enrollmentID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *MemoryAttemptRepo) CountOutcomes(ctx context.Context, campaignID string, since time.Time) (map[AttemptOutcome]int, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[AttemptOutcome]int{}
	for _, a := range r.attempts {
		if a.CampaignID != campaignID {
			continue
		}
		if !since.IsZero() && a.SentAt.Before(since) {
			continue
		}
		out[a.Outcome]++
	}
	return out, nil
}

// All returns a copy of every recorded attempt, in append order.
func (r *MemoryAttemptRepo) All() []DeliveryAttempt {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]DeliveryAttempt, len(r.attempts))
	copy(out, r.attempts)
	return out
}

// MemoryInboundRepo deduplicates on provider message id, like the unique
// index in Postgres.
type MemoryInboundRepo struct {
	mu     sync.Mutex
	seen   map[string]struct{}
	events []InboundEvent
}

func NewMemoryInboundRepo() *MemoryInboundRepo {
	return &MemoryInboundRepo{seen: make(map[string]struct{})}
}

func (r *MemoryInboundRepo) Insert(ctx context.Context, ev InboundEvent) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.seen[ev.ProviderMessageID]; ok {
		return ErrDuplicateEvent
	}
	r.seen[ev.ProviderMessageID] = struct{}{}
	r.events = append(r.events, ev)
	return nil
}

func (r *MemoryInboundRepo) Events() []InboundEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]InboundEvent, len(r.events))
	copy(out, r.events)
	return out
}
