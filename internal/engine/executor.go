package engine

import (
	"context"

	"github.com/google/uuid"

	"followup-platform/internal/campaign"
	"followup-platform/internal/content"
	"followup-platform/internal/enrollment"
	"followup-platform/internal/gateway"
)

type deliveryOutcome struct {
	success bool
	detail  string
}

// deliver resolves the message text for the enrollment's current step and
// pushes it through the gateway, retrying transient failures with exponential
// backoff. Exactly one delivery-attempt row is recorded per physical send
// try; a failed delivery (retries exhausted or fatal) consumes one attempt of
// the enrollment's budget, which the caller applies.
func (g *Engine) deliver(ctx context.Context, e enrollment.Enrollment, c campaign.Campaign) deliveryOutcome {
	retry := g.cfg.Retry

	text, genFailure := g.resolveText(ctx, e, c)
	if genFailure != "" {
		// Content generation exhausted its retries. Record a single audit row
		// for the instruction; no gateway call was made.
		g.recordAttempt(ctx, e, enrollment.OutcomeTransientError, genFailure)
		return deliveryOutcome{detail: genFailure}
	}

	var lastDetail string
	for try := 0; try < retry.MaxTries; try++ {
		sendCtx, cancel := context.WithTimeout(ctx, g.cfg.SendTimeout)
		res, err := g.sender.SendText(sendCtx, c.AssistantID, e.Phone, text)
		cancel()
		if err != nil {
			res = gateway.SendResult{Outcome: gateway.OutcomeTransient, Detail: err.Error()}
		}

		switch res.Outcome {
		case gateway.OutcomeOK:
			g.recordAttempt(ctx, e, enrollment.OutcomeSuccess, "")
			return deliveryOutcome{success: true}
		case gateway.OutcomeFatal:
			g.recordAttempt(ctx, e, enrollment.OutcomeFatalError, res.Detail)
			return deliveryOutcome{detail: res.Detail}
		default:
			g.recordAttempt(ctx, e, enrollment.OutcomeTransientError, res.Detail)
			lastDetail = res.Detail
		}

		if try < retry.MaxTries-1 {
			if err := g.sleep(ctx, retry.Backoff(try)); err != nil {
				return deliveryOutcome{detail: "evaluation canceled: " + err.Error()}
			}
		}
	}
	return deliveryOutcome{detail: lastDetail}
}

// resolveText returns the literal step text for manual campaigns, or invokes
// the content generator for ai_generated ones. Generation follows the same
// retry policy as delivery; the second return value is non-empty when all
// tries failed.
func (g *Engine) resolveText(ctx context.Context, e enrollment.Enrollment, c campaign.Campaign) (string, string) {
	switch c.Kind {
	case campaign.KindAIGenerated:
		if g.generator == nil {
			g.log.Error("ai_generated campaign without content generator", "campaign_id", c.ID)
			return "", "content generator not configured"
		}

		cc := content.ContactContext{Phone: e.Phone, StepNumber: e.CurrentStep}
		retry := g.cfg.Retry
		var lastErr error
		for try := 0; try < retry.MaxTries; try++ {
			genCtx, cancel := context.WithTimeout(ctx, g.cfg.SendTimeout)
			text, err := g.generator.Generate(genCtx, c.Prompt, cc)
			cancel()
			if err == nil {
				return text, ""
			}
			lastErr = err
			if try < retry.MaxTries-1 {
				if err := g.sleep(ctx, retry.Backoff(try)); err != nil {
					return "", "evaluation canceled: " + err.Error()
				}
			}
		}
		return "", "generate: " + lastErr.Error()
	default:
		return c.Steps[e.CurrentStep].Text, ""
	}
}

// recordAttempt appends the immutable audit row for one send try.
// Best-effort: a failed append is logged, not propagated, because the
// enrollment's attempts_made counter is the authoritative budget.
func (g *Engine) recordAttempt(ctx context.Context, e enrollment.Enrollment, outcome enrollment.AttemptOutcome, detail string) {
	a := enrollment.DeliveryAttempt{
		ID:           uuid.NewString(),
		EnrollmentID: e.ID,
		CampaignID:   e.CampaignID,
		StepIndex:    e.CurrentStep,
		Outcome:      outcome,
		ErrorDetail:  detail,
		SentAt:       g.clock().UTC(),
	}
	if err := g.attempts.Append(ctx, a); err != nil {
		g.log.Error("delivery attempt append failed",
			"enrollment_id", e.ID, "outcome", outcome, "err", err)
	}
}
