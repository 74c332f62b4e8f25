package engine

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"followup-platform/internal/enrollment"
)

// RunEnrollmentPass creates enrollments for every eligible contact of the
// campaign's assistant. Eligible means: has messaged the assistant at least
// once and has no open enrollment for this campaign (the repository's
// uniqueness guarantee makes re-runs idempotent).
//
// One contact failing must not abort the others; failures are counted and
// logged.
func (g *Engine) RunEnrollmentPass(ctx context.Context, campaignID string) (PassResult, error) {
	var res PassResult

	c, err := g.campaigns.GetByID(ctx, campaignID)
	if err != nil {
		return res, err
	}
	if !c.Active {
		res.Skipped++
		return res, nil
	}
	if err := c.Validate(); err != nil {
		g.log.Warn("enrollment pass skipped: campaign config invalid",
			"campaign_id", c.ID, "err", err)
		res.Skipped++
		return res, nil
	}

	eligible, err := g.contacts.ListEligible(ctx, c.AssistantID)
	if err != nil {
		return res, err
	}

	now := g.clock().UTC()
	for _, ct := range eligible {
		e := &enrollment.Enrollment{
			ID:          uuid.NewString(),
			CampaignID:  c.ID,
			AssistantID: c.AssistantID,
			Phone:       ct.Phone,
			Status:      enrollment.StatusActive,
			CurrentStep: 0,
			LastEventAt: now,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		err := g.enrollments.Create(ctx, e)
		switch {
		case errors.Is(err, enrollment.ErrDuplicateEnrollment):
			res.Skipped++
		case err != nil:
			res.Errors++
			g.log.Error("enroll contact failed",
				"campaign_id", c.ID, "phone", ct.Phone, "err", err)
		default:
			res.Enrolled++
		}
	}

	g.log.Info("enrollment pass done",
		"campaign_id", c.ID, "enrolled", res.Enrolled, "skipped", res.Skipped, "errors", res.Errors)
	return res, nil
}
