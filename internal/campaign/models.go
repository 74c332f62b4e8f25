package campaign

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Kind is a closed set of campaign variants. The sequencer and delivery
// executor switch exhaustively on it; adding a variant is a compile-visible
// change in both places.
type Kind string

const (
	KindManual      Kind = "manual"
	KindAIGenerated Kind = "ai_generated"
)

// Step is one message of a manual sequence. Insertion order is send order.
type Step struct {
	Text         string `json:"text" db:"text"`
	DelayMinutes int    `json:"delay_minutes" db:"delay_minutes"`
}

// Campaign is the configured follow-up sequence for one WhatsApp-connected
// assistant. It is created and edited by the dashboard; the engine only reads
// it.
//
// Shape by kind:
// - manual: Steps carries the ordered literal messages.
// - ai_generated: Prompt + DelayMinutes describe a single synthetic step whose
//   text is generated fresh at send time; Steps is empty.
//
// Validation happens once at write time (and defensively at pass entry), not
// on every read.
type Campaign struct {
	ID          string `json:"id" db:"id"`
	AssistantID string `json:"assistant_id" db:"assistant_id"`
	Name        string `json:"name" db:"name"`

	Kind   Kind `json:"kind" db:"kind"`
	Active bool `json:"active" db:"active"`

	Steps []Step `json:"steps,omitempty" db:"steps"`

	Prompt       string `json:"prompt,omitempty" db:"prompt"`
	DelayMinutes int    `json:"delay_minutes,omitempty" db:"delay_minutes"`

	// MaxAttempts bounds consumed attempts per contact, not retries of a
	// single send.
	MaxAttempts int `json:"max_attempts" db:"max_attempts"`

	StopOnReply  bool     `json:"stop_on_reply" db:"stop_on_reply"`
	StopKeywords []string `json:"stop_keywords,omitempty" db:"stop_keywords"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

var (
	ErrNotFound        = errors.New("campaign not found")
	ErrInvalidCampaign = errors.New("invalid campaign")
)

func (c Campaign) Validate() error {
	if c.ID == "" || c.AssistantID == "" {
		return fmt.Errorf("%w: id and assistant_id are required", ErrInvalidCampaign)
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("%w: max_attempts must be >= 1, got %d", ErrInvalidCampaign, c.MaxAttempts)
	}

	switch c.Kind {
	case KindManual:
		if c.Active && len(c.Steps) == 0 {
			return fmt.Errorf("%w: active manual campaign has no steps", ErrInvalidCampaign)
		}
		for i, s := range c.Steps {
			if s.DelayMinutes < 1 {
				return fmt.Errorf("%w: step %d delay_minutes must be >= 1, got %d", ErrInvalidCampaign, i, s.DelayMinutes)
			}
			if strings.TrimSpace(s.Text) == "" {
				return fmt.Errorf("%w: step %d has empty text", ErrInvalidCampaign, i)
			}
		}
	case KindAIGenerated:
		if c.DelayMinutes < 1 {
			return fmt.Errorf("%w: delay_minutes must be >= 1, got %d", ErrInvalidCampaign, c.DelayMinutes)
		}
		if strings.TrimSpace(c.Prompt) == "" {
			return fmt.Errorf("%w: ai_generated campaign has empty prompt", ErrInvalidCampaign)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidCampaign, c.Kind)
	}
	return nil
}

// StepCount is the number of sends needed to complete an enrollment.
// An ai_generated campaign is a single synthetic step.
func (c Campaign) StepCount() int {
	if c.Kind == KindAIGenerated {
		return 1
	}
	return len(c.Steps)
}

// StepDelay returns the delay before step index i becomes due.
func (c Campaign) StepDelay(i int) (time.Duration, bool) {
	if c.Kind == KindAIGenerated {
		if i != 0 {
			return 0, false
		}
		return time.Duration(c.DelayMinutes) * time.Minute, true
	}
	if i < 0 || i >= len(c.Steps) {
		return 0, false
	}
	return time.Duration(c.Steps[i].DelayMinutes) * time.Minute, true
}

// MinStepDelay is the smallest configured step delay. The rate limiter uses it
// as minimum spacing between sends to the same contact, so a backlog of due
// steps cannot burst.
func (c Campaign) MinStepDelay() time.Duration {
	if c.Kind == KindAIGenerated {
		return time.Duration(c.DelayMinutes) * time.Minute
	}
	min := 0
	for _, s := range c.Steps {
		if min == 0 || s.DelayMinutes < min {
			min = s.DelayMinutes
		}
	}
	return time.Duration(min) * time.Minute
}

// MatchesStopKeyword reports whether text contains any configured stop keyword,
// case-insensitively. Substring match is intentional: low precision, high
// recall ("stop" also matches "please stop now").
func (c Campaign) MatchesStopKeyword(text string) bool {
	if len(c.StopKeywords) == 0 {
		return false
	}
	lower := strings.ToLower(text)
	for _, kw := range c.StopKeywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
