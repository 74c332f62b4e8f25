package contact

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepo is an in-memory contact store for tests.
type MemoryRepo struct {
	mu       sync.Mutex
	contacts map[string]Contact // keyed by assistant_id + "|" + phone
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{contacts: make(map[string]Contact)}
}

func key(assistantID, phone string) string { return assistantID + "|" + phone }

func (r *MemoryRepo) Put(c Contact) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	r.contacts[key(c.AssistantID, c.Phone)] = c
}

func (r *MemoryRepo) ListEligible(ctx context.Context, assistantID string) ([]Contact, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []Contact{}
	for _, c := range r.contacts {
		if c.AssistantID == assistantID && c.LastInboundAt != nil {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *MemoryRepo) RecordInbound(ctx context.Context, assistantID, phone string, at time.Time) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key(assistantID, phone)
	c, ok := r.contacts[k]
	if !ok {
		c = Contact{ID: uuid.NewString(), AssistantID: assistantID, Phone: phone, CreatedAt: at}
	}
	c.LastInboundAt = &at
	c.UpdatedAt = at
	r.contacts[k] = c
	return nil
}
