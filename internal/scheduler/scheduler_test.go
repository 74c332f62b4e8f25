package scheduler

import (
	"context"
	"testing"
	"time"

	"followup-platform/internal/campaign"
	"followup-platform/internal/contact"
	"followup-platform/internal/engine"
	"followup-platform/internal/enrollment"
	"followup-platform/internal/gateway"
)

type okSender struct{ calls int }

func (s *okSender) Name() string { return "ok" }
func (s *okSender) SendText(ctx context.Context, instance, phone, text string) (gateway.SendResult, error) {
	s.calls++
	return gateway.SendResult{Outcome: gateway.OutcomeOK}, nil
}

type openLimiter struct{}

func (openLimiter) Allow(ctx context.Context, campaignID, ct string, spacing time.Duration) (bool, error) {
	return true, nil
}

type openAuthz struct{}

func (openAuthz) IsAllowedToSend(ctx context.Context, assistantID string) (bool, error) {
	return true, nil
}

func newScheduler(t *testing.T) (*Scheduler, *enrollment.MemoryRepo, *campaign.MemoryRepo) {
	t.Helper()

	campaigns := campaign.NewMemoryRepo()
	contacts := contact.NewMemoryRepo()
	enrollments := enrollment.NewMemoryRepo()

	campaigns.Put(campaign.Campaign{
		ID:          "cmp-1",
		AssistantID: "asst-1",
		Name:        "reactivation",
		Kind:        campaign.KindManual,
		Active:      true,
		Steps:       []campaign.Step{{Text: "hi", DelayMinutes: 1}},
		MaxAttempts: 3,
	})
	at := time.Now().UTC().Add(-time.Hour)
	contacts.Put(contact.Contact{AssistantID: "asst-1", Phone: "5511999990001", LastInboundAt: &at})

	eng := engine.New(engine.Deps{
		Campaigns:   campaigns,
		Contacts:    contacts,
		Enrollments: enrollments,
		Attempts:    enrollment.NewMemoryAttemptRepo(),
		Inbound:     enrollment.NewMemoryInboundRepo(),
		Limiter:     openLimiter{},
		Sender:      &okSender{},
		Authz:       openAuthz{},
	}, engine.Config{})

	return New(eng, campaigns, Config{}, nil), enrollments, campaigns
}

func TestEnrollmentTickEnrollsActiveCampaigns(t *testing.T) {
	s, enrollments, _ := newScheduler(t)

	s.EnrollmentTick(context.Background())

	open, err := enrollments.ListOpenByCampaign(context.Background(), "cmp-1")
	if err != nil {
		t.Fatalf("list open: %v", err)
	}
	if len(open) != 1 {
		t.Fatalf("expected 1 enrollment after tick, got %d", len(open))
	}

	// Ticks are idempotent.
	s.EnrollmentTick(context.Background())
	open, _ = enrollments.ListOpenByCampaign(context.Background(), "cmp-1")
	if len(open) != 1 {
		t.Fatalf("expected tick re-run to be a no-op, got %d enrollments", len(open))
	}
}

func TestSequencerTickSurvivesEmptyState(t *testing.T) {
	s, _, _ := newScheduler(t)
	s.SequencerTick(context.Background()) // no enrollments: must not panic or log fatal
}

func TestRunStopsOnCancel(t *testing.T) {
	s, _, _ := newScheduler(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("canceled run must return nil, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
