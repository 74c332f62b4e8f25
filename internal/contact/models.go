package contact

import (
	"errors"
	"time"
)

// Contact is a phone-identified person known to one assistant.
// LastInboundAt drives enrollment eligibility: the selector only enrolls
// contacts who have messaged the assistant at least once.
type Contact struct {
	ID          string     `json:"id" db:"id"`
	AssistantID string     `json:"assistant_id" db:"assistant_id"`
	Phone       string     `json:"phone" db:"phone"`
	Name        string     `json:"name,omitempty" db:"name"`
	LastInboundAt *time.Time `json:"last_inbound_at,omitempty" db:"last_inbound_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

var ErrNotFound = errors.New("contact not found")
