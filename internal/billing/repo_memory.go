package billing

import (
	"context"
	"sync"
)

// MemoryRepo is an in-memory subscription store for tests.
type MemoryRepo struct {
	mu   sync.Mutex
	subs map[string]Subscription // keyed by assistant id
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{subs: make(map[string]Subscription)}
}

func (r *MemoryRepo) Put(s Subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs[s.AssistantID] = s
}

func (r *MemoryRepo) FindByAssistant(ctx context.Context, assistantID string) (Subscription, bool, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.subs[assistantID]
	return s, ok, nil
}
