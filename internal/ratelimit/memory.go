package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryLimiter mirrors RedisLimiter semantics in-process. Single-instance
// deployments and tests use it; anything with more than one worker should use
// Redis.
type MemoryLimiter struct {
	mu sync.Mutex

	limit  int
	window time.Duration
	clock  func() time.Time

	windows  map[string]*window    // campaign id -> current window
	lastSent map[string]time.Time // campaign id + contact -> last allowed send
}

type window struct {
	start time.Time
	count int
}

func NewMemoryLimiter(sendsPerWindow int, windowDur time.Duration) *MemoryLimiter {
	if windowDur <= 0 {
		windowDur = time.Minute
	}
	return &MemoryLimiter{
		limit:    sendsPerWindow,
		window:   windowDur,
		clock:    time.Now,
		windows:  make(map[string]*window),
		lastSent: make(map[string]time.Time),
	}
}

func (l *MemoryLimiter) Allow(ctx context.Context, campaignID, contact string, spacing time.Duration) (bool, error) {
	_ = ctx
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()

	if spacing > 0 {
		if last, ok := l.lastSent[campaignID+"|"+contact]; ok && now.Sub(last) < spacing {
			return false, nil
		}
	}

	w := l.windows[campaignID]
	if w == nil || now.Sub(w.start) >= l.window {
		w = &window{start: now}
		l.windows[campaignID] = w
	}
	if w.count >= l.limit {
		return false, nil
	}

	w.count++
	l.lastSent[campaignID+"|"+contact] = now
	return true, nil
}
