package content

import "context"

// Generator produces message text for ai_generated campaigns. It is treated
// as a fallible, possibly slow external call; the delivery executor applies
// the same retry policy it uses for the gateway.
type Generator interface {
	Generate(ctx context.Context, prompt string, contact ContactContext) (string, error)
}

// ContactContext is the minimal per-contact context appended to the campaign
// prompt. Keep it small: the prompt is operator-authored, this is just enough
// to personalize.
type ContactContext struct {
	Name        string `json:"name,omitempty"`
	Phone       string `json:"phone"`
	StepNumber  int    `json:"step_number"`
	LastInbound string `json:"last_inbound,omitempty"`
}
