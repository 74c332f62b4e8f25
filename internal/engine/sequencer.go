package engine

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"followup-platform/internal/campaign"
	"followup-platform/internal/enrollment"
)

// RunSequencerPass scans all active enrollments and executes the ones whose
// current step is due. The design is level-triggered: due-ness is recomputed
// from last_event_at and the step delay on every pass, so a missed pass only
// delays a send, never loses it, and a restarted process picks up exactly
// where the data says it should.
//
// Safe to invoke concurrently with itself: every state change goes through a
// version-guarded update, so of two racing passes exactly one advances an
// enrollment and the other counts a skip.
func (g *Engine) RunSequencerPass(ctx context.Context) (PassResult, error) {
	counter := &passCounter{}

	active, err := g.enrollments.ListActive(ctx)
	if err != nil {
		return PassResult{}, err
	}

	// Prefetch campaigns so workers share a read-only map.
	camps := make(map[string]campaign.Campaign)
	missing := make(map[string]bool)
	for _, e := range active {
		if _, ok := camps[e.CampaignID]; ok || missing[e.CampaignID] {
			continue
		}
		c, err := g.campaigns.GetByID(ctx, e.CampaignID)
		if errors.Is(err, campaign.ErrNotFound) {
			missing[e.CampaignID] = true
			continue
		}
		if err != nil {
			return counter.result(), err
		}
		camps[e.CampaignID] = c
	}

	var grp errgroup.Group
	grp.SetLimit(g.cfg.MaxParallel)
	for _, e := range active {
		e := e
		grp.Go(func() error {
			evalCtx, cancel := context.WithTimeout(ctx, g.cfg.EvalTimeout)
			defer cancel()

			c, ok := camps[e.CampaignID]
			if !ok || !c.Active {
				// Deleted or disabled campaign: cascade-stop instead of
				// evaluating.
				g.terminate(evalCtx, e, enrollment.StatusStopped, enrollment.StopReasonCampaignDeleted, counter)
				return nil
			}
			g.evaluate(evalCtx, e, c, counter)
			return nil
		})
	}
	_ = grp.Wait()

	res := counter.result()
	g.log.Info("sequencer pass done",
		"scanned", len(active), "sent", res.Sent, "completed", res.Completed,
		"failed", res.Failed, "deferred", res.Deferred, "stopped", res.Stopped,
		"skipped", res.Skipped, "errors", res.Errors)
	return res, nil
}

func (g *Engine) evaluate(ctx context.Context, e enrollment.Enrollment, c campaign.Campaign, counter *passCounter) {
	if err := c.Validate(); err != nil {
		g.log.Warn("enrollment skipped: campaign config invalid",
			"campaign_id", c.ID, "enrollment_id", e.ID, "err", err)
		counter.add(func(r *PassResult) { r.Skipped++ })
		return
	}

	delay, ok := c.StepDelay(e.CurrentStep)
	if !ok {
		// Step index beyond the configured steps: the operator shortened the
		// sequence after enrollment. Treat the sequence as finished.
		g.terminate(ctx, e, enrollment.StatusCompleted, "", counter)
		return
	}

	now := g.clock().UTC()
	if now.Sub(e.LastEventAt) < delay {
		return // not due yet
	}

	if e.AttemptsMade >= c.MaxAttempts {
		g.terminate(ctx, e, enrollment.StatusFailed, enrollment.StopReasonMaxAttempts, counter)
		return
	}

	allowed, err := g.authz.IsAllowedToSend(ctx, c.AssistantID)
	if err != nil {
		counter.add(func(r *PassResult) { r.Errors++ })
		g.log.Error("authorization check failed", "assistant_id", c.AssistantID, "err", err)
		return
	}
	if !allowed {
		// Not an error: billing says "not now". No attempt is consumed.
		counter.add(func(r *PassResult) { r.Deferred++ })
		return
	}

	ok, err = g.limiter.Allow(ctx, c.ID, e.Phone, c.MinStepDelay())
	if err != nil {
		counter.add(func(r *PassResult) { r.Errors++ })
		g.log.Error("rate limiter check failed", "campaign_id", c.ID, "err", err)
		return
	}
	if !ok {
		counter.add(func(r *PassResult) { r.Deferred++ })
		return
	}

	// Re-validate status right before sending: a reply arriving during the
	// scan may have stopped this enrollment already.
	cur, err := g.enrollments.GetByID(ctx, e.ID)
	if err != nil {
		counter.add(func(r *PassResult) { r.Errors++ })
		g.log.Error("enrollment refetch failed", "enrollment_id", e.ID, "err", err)
		return
	}
	if cur.Status != enrollment.StatusActive {
		counter.add(func(r *PassResult) { r.Skipped++ })
		return
	}

	out := g.deliver(ctx, cur, c)

	cur.LastEventAt = g.clock().UTC()
	if out.success {
		cur.CurrentStep++
		if cur.CurrentStep >= c.StepCount() {
			cur.Status = enrollment.StatusCompleted
		}
	} else {
		cur.AttemptsMade++
		if cur.AttemptsMade >= c.MaxAttempts {
			cur.Status = enrollment.StatusFailed
			cur.StoppedReason = enrollment.StopReasonMaxAttempts
		}
	}

	err = g.enrollments.Update(ctx, &cur)
	switch {
	case errors.Is(err, enrollment.ErrVersionConflict):
		// Someone else advanced or stopped it; their result stands.
		counter.add(func(r *PassResult) { r.Skipped++ })
		return
	case err != nil:
		counter.add(func(r *PassResult) { r.Errors++ })
		g.log.Error("enrollment update failed", "enrollment_id", cur.ID, "err", err)
		return
	}

	counter.add(func(r *PassResult) {
		if out.success {
			r.Sent++
			if cur.Status == enrollment.StatusCompleted {
				r.Completed++
			}
		} else if cur.Status == enrollment.StatusFailed {
			r.Failed++
		} else {
			r.SendFailures++
		}
	})
}

// terminate moves an enrollment to a terminal status, tolerating concurrent
// writers: a version conflict means another pass already handled it.
func (g *Engine) terminate(ctx context.Context, e enrollment.Enrollment, status enrollment.Status, reason enrollment.StopReason, counter *passCounter) {
	e.Status = status
	e.StoppedReason = reason

	err := g.enrollments.Update(ctx, &e)
	switch {
	case errors.Is(err, enrollment.ErrVersionConflict), errors.Is(err, enrollment.ErrNotFound):
		counter.add(func(r *PassResult) { r.Skipped++ })
	case err != nil:
		counter.add(func(r *PassResult) { r.Errors++ })
		g.log.Error("enrollment terminate failed",
			"enrollment_id", e.ID, "status", status, "err", err)
	default:
		counter.add(func(r *PassResult) {
			switch status {
			case enrollment.StatusFailed:
				r.Failed++
			case enrollment.StatusStopped:
				r.Stopped++
			case enrollment.StatusCompleted:
				r.Completed++
			}
		})
	}
}
