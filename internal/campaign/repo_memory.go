package campaign

import (
	"context"
	"sync"
)

// MemoryRepo is a simple in-memory repository useful for tests.
// It is not intended for production use.
type MemoryRepo struct {
	mu        sync.Mutex
	campaigns map[string]Campaign
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{campaigns: make(map[string]Campaign)}
}

func (r *MemoryRepo) Put(c Campaign) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.campaigns[c.ID] = c
}

func (r *MemoryRepo) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.campaigns, id)
}

func (r *MemoryRepo) GetByID(ctx context.Context, id string) (Campaign, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.campaigns[id]
	if !ok {
		return Campaign{}, ErrNotFound
	}
	return c, nil
}

func (r *MemoryRepo) ListActive(ctx context.Context) ([]Campaign, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []Campaign{}
	for _, c := range r.campaigns {
		if c.Active {
			out = append(out, c)
		}
	}
	return out, nil
}
