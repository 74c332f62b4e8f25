package billing

import (
	"context"
	"testing"
	"time"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestIsAllowedToSend(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	repo := NewMemoryRepo()
	svc := NewService(repo)
	svc.clock = fixedClock(now)

	// unknown assistant: not allowed, not an error
	allowed, err := svc.IsAllowedToSend(ctx, "asst-unknown")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if allowed {
		t.Fatalf("expected unknown assistant to be disallowed")
	}

	cases := []struct {
		name string
		sub  Subscription
		want bool
	}{
		{"active", Subscription{AssistantID: "a", Status: SubscriptionStatusActive}, true},
		{"active expired period", Subscription{AssistantID: "a", Status: SubscriptionStatusActive, CurrentPeriodEnd: &past}, false},
		{"trialing ok", Subscription{AssistantID: "a", Status: SubscriptionStatusTrialing, TrialEndsAt: &future}, true},
		{"trialing expired", Subscription{AssistantID: "a", Status: SubscriptionStatusTrialing, TrialEndsAt: &past}, false},
		{"trialing without end", Subscription{AssistantID: "a", Status: SubscriptionStatusTrialing}, false},
		{"past due", Subscription{AssistantID: "a", Status: SubscriptionStatusPastDue}, false},
		{"canceled", Subscription{AssistantID: "a", Status: SubscriptionStatusCanceled}, false},
	}

	for _, tc := range cases {
		repo.Put(tc.sub)
		got, err := svc.IsAllowedToSend(ctx, "a")
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
		if got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}
