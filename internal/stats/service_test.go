package stats

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"followup-platform/internal/campaign"
	"followup-platform/internal/enrollment"
)

func seed(t *testing.T) (*Service, string) {
	t.Helper()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	campaigns := campaign.NewMemoryRepo()
	campaigns.Put(campaign.Campaign{
		ID:          "cmp-1",
		AssistantID: "asst-1",
		Name:        "reactivation",
		Kind:        campaign.KindManual,
		Active:      true,
		Steps:       []campaign.Step{{Text: "hi", DelayMinutes: 1}},
		MaxAttempts: 3,
	})

	enrollments := enrollment.NewMemoryRepo()
	rows := []enrollment.Enrollment{
		{ID: "e1", CampaignID: "cmp-1", AssistantID: "asst-1", Phone: "1", Status: enrollment.StatusActive},
		{ID: "e2", CampaignID: "cmp-1", AssistantID: "asst-1", Phone: "2", Status: enrollment.StatusCompleted},
		{ID: "e3", CampaignID: "cmp-1", AssistantID: "asst-1", Phone: "3", Status: enrollment.StatusStopped},
		{ID: "e4", CampaignID: "cmp-1", AssistantID: "asst-1", Phone: "4", Status: enrollment.StatusFailed},
	}
	for i := range rows {
		rows[i].LastEventAt = now
		if err := enrollments.Create(context.Background(), &rows[i]); err != nil {
			t.Fatalf("seed enrollment: %v", err)
		}
	}

	attempts := enrollment.NewMemoryAttemptRepo()
	trail := []enrollment.DeliveryAttempt{
		{ID: "a1", EnrollmentID: "e2", CampaignID: "cmp-1", Outcome: enrollment.OutcomeSuccess, SentAt: now},
		{ID: "a2", EnrollmentID: "e3", CampaignID: "cmp-1", Outcome: enrollment.OutcomeSuccess, SentAt: now},
		{ID: "a3", EnrollmentID: "e4", CampaignID: "cmp-1", Outcome: enrollment.OutcomeTransientError, SentAt: now},
		{ID: "a4", EnrollmentID: "e4", CampaignID: "cmp-1", Outcome: enrollment.OutcomeFatalError, SentAt: now},
		{ID: "old", EnrollmentID: "e4", CampaignID: "cmp-1", Outcome: enrollment.OutcomeFatalError, SentAt: now.Add(-48 * time.Hour)},
	}
	for _, a := range trail {
		if err := attempts.Append(context.Background(), a); err != nil {
			t.Fatalf("seed attempt: %v", err)
		}
	}

	return NewService(campaigns, enrollments, attempts), "cmp-1"
}

func TestCampaignStats(t *testing.T) {
	svc, id := seed(t)

	got, err := svc.CampaignStats(context.Background(), CampaignStatsRequest{CampaignID: id})
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}

	if got.TotalEnrollments != 4 || got.ActiveEnrollments != 1 || got.CompletedEnrollments != 1 ||
		got.StoppedEnrollments != 1 || got.FailedEnrollments != 1 {
		t.Fatalf("unexpected enrollment counts: %+v", got)
	}
	if got.SuccessfulSends != 2 || got.TransientErrors != 1 || got.FatalErrors != 2 || got.TotalSendTries != 5 {
		t.Fatalf("unexpected attempt counts: %+v", got)
	}
	if math.Abs(got.DeliveryRate-0.4) > 1e-9 {
		t.Fatalf("expected delivery rate 0.4, got %v", got.DeliveryRate)
	}
	// 1 completed of 3 terminal enrollments.
	if math.Abs(got.CompletionRate-1.0/3.0) > 1e-9 {
		t.Fatalf("expected completion rate 1/3, got %v", got.CompletionRate)
	}
}

func TestCampaignStatsSinceFiltersAttempts(t *testing.T) {
	svc, id := seed(t)

	since := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	got, err := svc.CampaignStats(context.Background(), CampaignStatsRequest{CampaignID: id, Since: since})
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if got.FatalErrors != 1 || got.TotalSendTries != 4 {
		t.Fatalf("expected the old attempt to be filtered out, got %+v", got)
	}
}

func TestCampaignStatsValidation(t *testing.T) {
	svc, _ := seed(t)

	if _, err := svc.CampaignStats(context.Background(), CampaignStatsRequest{}); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
	if _, err := svc.CampaignStats(context.Background(), CampaignStatsRequest{CampaignID: "nope"}); !errors.Is(err, campaign.ErrNotFound) {
		t.Fatalf("expected campaign.ErrNotFound, got %v", err)
	}
}
