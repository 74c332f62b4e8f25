package billing

import (
	"context"
	"errors"
	"time"
)

// Repository abstracts subscription lookups.
type Repository interface {
	FindByAssistant(ctx context.Context, assistantID string) (Subscription, bool, error)
}

// Service answers the single question the engine asks of billing.
//
// Contract:
// - A missing or lapsed subscription is not an error; it means "not now".
//   Callers defer the work to a later pass with no state change.
// - Lookup failures are real errors and propagate.
type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

func (s *Service) IsAllowedToSend(ctx context.Context, assistantID string) (bool, error) {
	if assistantID == "" {
		return false, errors.New("billing: assistant id is required")
	}
	if s.repo == nil {
		return false, errors.New("billing: repository not configured")
	}

	sub, ok, err := s.repo.FindByAssistant(ctx, assistantID)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	now := s.clock().UTC()
	switch sub.Status {
	case SubscriptionStatusActive:
		if sub.CurrentPeriodEnd != nil && now.After(*sub.CurrentPeriodEnd) {
			return false, nil
		}
		return true, nil
	case SubscriptionStatusTrialing:
		if sub.TrialEndsAt == nil {
			return false, nil
		}
		return now.Before(*sub.TrialEndsAt), nil
	default:
		return false, nil
	}
}
