package stats

import (
	"context"
	"errors"

	"followup-platform/internal/campaign"
	"followup-platform/internal/enrollment"
)

var ErrInvalidRequest = errors.New("stats: invalid request")

// Service aggregates campaign health from the enrollment rows and the
// immutable delivery-attempt trail. Read-only: it never mutates engine state.
type Service struct {
	campaigns   campaign.Repository
	enrollments enrollment.Repository
	attempts    enrollment.AttemptRepository
}

func NewService(campaigns campaign.Repository, enrollments enrollment.Repository, attempts enrollment.AttemptRepository) *Service {
	return &Service{campaigns: campaigns, enrollments: enrollments, attempts: attempts}
}

func (s *Service) CampaignStats(ctx context.Context, req CampaignStatsRequest) (CampaignStats, error) {
	if req.CampaignID == "" {
		return CampaignStats{}, ErrInvalidRequest
	}

	c, err := s.campaigns.GetByID(ctx, req.CampaignID)
	if err != nil {
		return CampaignStats{}, err
	}

	byStatus, err := s.enrollments.CountByStatus(ctx, c.ID)
	if err != nil {
		return CampaignStats{}, err
	}
	outcomes, err := s.attempts.CountOutcomes(ctx, c.ID, req.Since)
	if err != nil {
		return CampaignStats{}, err
	}

	out := CampaignStats{
		CampaignID:   c.ID,
		CampaignName: c.Name,
		Active:       c.Active,

		PendingEnrollments:   byStatus[enrollment.StatusPending],
		ActiveEnrollments:    byStatus[enrollment.StatusActive],
		StoppedEnrollments:   byStatus[enrollment.StatusStopped],
		CompletedEnrollments: byStatus[enrollment.StatusCompleted],
		FailedEnrollments:    byStatus[enrollment.StatusFailed],

		SuccessfulSends: outcomes[enrollment.OutcomeSuccess],
		TransientErrors: outcomes[enrollment.OutcomeTransientError],
		FatalErrors:     outcomes[enrollment.OutcomeFatalError],
	}
	for _, n := range byStatus {
		out.TotalEnrollments += n
	}
	out.TotalSendTries = out.SuccessfulSends + out.TransientErrors + out.FatalErrors

	if out.TotalSendTries > 0 {
		out.DeliveryRate = float64(out.SuccessfulSends) / float64(out.TotalSendTries)
	}
	terminal := out.StoppedEnrollments + out.CompletedEnrollments + out.FailedEnrollments
	if terminal > 0 {
		out.CompletionRate = float64(out.CompletedEnrollments) / float64(terminal)
	}
	return out, nil
}
