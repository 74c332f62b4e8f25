package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"followup-platform/internal/campaign"
	"followup-platform/internal/enrollment"
)

// HandleInboundEvent ingests one message from a contact and stops every open
// enrollment whose campaign says so (stop_on_reply, or a stop keyword in the
// text). Ingestion is idempotent: a previously-seen provider message id is a
// logged no-op with no side effects.
//
// A send already in flight when the reply arrives is accepted; the
// sequencer's pre-send status re-check prevents the step after it.
func (g *Engine) HandleInboundEvent(ctx context.Context, ev enrollment.InboundEvent) error {
	if ev.ProviderMessageID == "" || ev.AssistantID == "" || ev.Phone == "" {
		return fmt.Errorf("engine: inbound event requires provider_message_id, assistant_id and phone")
	}
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.ReceivedAt.IsZero() {
		ev.ReceivedAt = g.clock().UTC()
	}

	err := g.inbound.Insert(ctx, ev)
	if errors.Is(err, enrollment.ErrDuplicateEvent) {
		g.log.Debug("duplicate inbound event ignored",
			"provider_message_id", ev.ProviderMessageID)
		return nil
	}
	if err != nil {
		return err
	}

	// Keeps the contact enrollable; losing this update only delays
	// eligibility, so it is best-effort.
	if err := g.contacts.RecordInbound(ctx, ev.AssistantID, ev.Phone, ev.ReceivedAt); err != nil {
		g.log.Warn("contact inbound upsert failed",
			"assistant_id", ev.AssistantID, "phone", ev.Phone, "err", err)
	}

	open, err := g.enrollments.ListOpenByContact(ctx, ev.AssistantID, ev.Phone)
	if err != nil {
		return err
	}

	counter := &passCounter{}
	for _, e := range open {
		c, err := g.campaigns.GetByID(ctx, e.CampaignID)
		if errors.Is(err, campaign.ErrNotFound) {
			g.terminate(ctx, e, enrollment.StatusStopped, enrollment.StopReasonCampaignDeleted, counter)
			continue
		}
		if err != nil {
			g.log.Error("campaign lookup failed during stop evaluation",
				"campaign_id", e.CampaignID, "err", err)
			continue
		}

		var reason enrollment.StopReason
		switch {
		case c.StopOnReply:
			reason = enrollment.StopReasonReplied
		case c.MatchesStopKeyword(ev.Text):
			reason = enrollment.StopReasonKeyword
		default:
			continue // sequence goes on
		}
		g.terminate(ctx, e, enrollment.StatusStopped, reason, counter)
	}

	res := counter.result()
	if res.Stopped > 0 {
		g.log.Info("inbound event stopped enrollments",
			"assistant_id", ev.AssistantID, "phone", ev.Phone, "stopped", res.Stopped)
	}
	return nil
}

// HandleCampaignDeleted cascades a campaign deletion (or deactivation) to its
// open enrollments. In-flight delivery results cannot re-activate them: the
// terminal update bumps the version, so the delivery's own update loses.
func (g *Engine) HandleCampaignDeleted(ctx context.Context, campaignID string) (PassResult, error) {
	counter := &passCounter{}

	open, err := g.enrollments.ListOpenByCampaign(ctx, campaignID)
	if err != nil {
		return PassResult{}, err
	}
	for _, e := range open {
		g.terminate(ctx, e, enrollment.StatusStopped, enrollment.StopReasonCampaignDeleted, counter)
	}

	res := counter.result()
	g.log.Info("campaign deletion cascade done",
		"campaign_id", campaignID, "stopped", res.Stopped, "skipped", res.Skipped, "errors", res.Errors)
	return res, nil
}
