package engine

import "sync"

// PassResult aggregates what one pass did. Passes never abort on a single
// enrollment or campaign error; they count and continue.
type PassResult struct {
	// Enrolled: new enrollment rows created (enrollment pass).
	Enrolled int `json:"enrolled"`
	// Sent: successful sends.
	Sent int `json:"sent"`
	// Completed: enrollments that finished their last step.
	Completed int `json:"completed"`
	// Stopped: enrollments stopped (reply, keyword, campaign deleted).
	Stopped int `json:"stopped"`
	// Failed: enrollments transitioned to failed (max attempts).
	Failed int `json:"failed"`
	// SendFailures: consumed attempts that did not (yet) fail the enrollment.
	SendFailures int `json:"send_failures"`
	// Deferred: work pushed to the next pass (throttled or unauthorized).
	Deferred int `json:"deferred"`
	// Skipped: nothing to do (duplicate, conflict, invalid config, already
	// handled by someone else).
	Skipped int `json:"skipped"`
	// Errors: unexpected failures that were logged and isolated.
	Errors int `json:"errors"`
}

// passCounter is the concurrency-safe accumulator used while workers run.
type passCounter struct {
	mu sync.Mutex
	r  PassResult
}

func (c *passCounter) add(f func(*PassResult)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	f(&c.r)
}

func (c *passCounter) result() PassResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.r
}
