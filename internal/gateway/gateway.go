package gateway

import "context"

// Sender is the provider-agnostic outbound interface used by the delivery
// executor.
//
// Rules:
// - No provider HTTP details outside gateway adapters.
// - Adapters classify every outcome themselves: a returned error means the
//   request could not even be attempted (bad input), not that the provider
//   failed. Provider and network failures come back as a SendResult.
type Sender interface {
	Name() string
	SendText(ctx context.Context, instance, phone, text string) (SendResult, error)
}

type Outcome string

const (
	// OutcomeOK: the gateway accepted the message.
	OutcomeOK Outcome = "ok"
	// OutcomeTransient: network error, timeout, 429 or 5xx; worth retrying.
	OutcomeTransient Outcome = "transient_error"
	// OutcomeFatal: invalid number, disconnected instance, rejected content;
	// retrying the same send cannot succeed.
	OutcomeFatal Outcome = "fatal_error"
)

type SendResult struct {
	Outcome Outcome `json:"outcome"`

	// ProviderMessageID is set on success when the provider returns one.
	ProviderMessageID string `json:"provider_message_id,omitempty"`

	// Detail carries the provider/network error description for audit rows.
	Detail string `json:"detail,omitempty"`
}
