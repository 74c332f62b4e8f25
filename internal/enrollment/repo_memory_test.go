package enrollment

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCreateRejectsOpenDuplicate(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepo()

	first := &Enrollment{ID: "e1", CampaignID: "c1", AssistantID: "a1", Phone: "+100", Status: StatusActive}
	if err := repo.Create(ctx, first); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	dup := &Enrollment{ID: "e2", CampaignID: "c1", AssistantID: "a1", Phone: "+100", Status: StatusActive}
	if err := repo.Create(ctx, dup); !errors.Is(err, ErrDuplicateEnrollment) {
		t.Fatalf("expected ErrDuplicateEnrollment, got %v", err)
	}

	// A different campaign for the same contact is fine.
	other := &Enrollment{ID: "e3", CampaignID: "c2", AssistantID: "a1", Phone: "+100", Status: StatusActive}
	if err := repo.Create(ctx, other); err != nil {
		t.Fatalf("create for other campaign failed: %v", err)
	}
}

func TestCreateAllowsFreshRowAfterTerminal(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepo()

	done := &Enrollment{ID: "e1", CampaignID: "c1", AssistantID: "a1", Phone: "+100", Status: StatusCompleted}
	if err := repo.Create(ctx, done); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	fresh := &Enrollment{ID: "e2", CampaignID: "c1", AssistantID: "a1", Phone: "+100", Status: StatusActive}
	if err := repo.Create(ctx, fresh); err != nil {
		t.Fatalf("expected fresh enrollment after terminal row, got %v", err)
	}
}

func TestUpdateVersionConflict(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepo()

	e := &Enrollment{ID: "e1", CampaignID: "c1", AssistantID: "a1", Phone: "+100", Status: StatusActive}
	if err := repo.Create(ctx, e); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	a, _ := repo.GetByID(ctx, "e1")
	b, _ := repo.GetByID(ctx, "e1")

	a.CurrentStep = 1
	if err := repo.Update(ctx, &a); err != nil {
		t.Fatalf("first update failed: %v", err)
	}

	b.Status = StatusStopped
	if err := repo.Update(ctx, &b); !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}

	cur, _ := repo.GetByID(ctx, "e1")
	if cur.Status != StatusActive || cur.CurrentStep != 1 {
		t.Fatalf("loser must not overwrite winner: %+v", cur)
	}
}

func TestListOpenByContactSkipsTerminal(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepo()

	_ = repo.Create(ctx, &Enrollment{ID: "e1", CampaignID: "c1", AssistantID: "a1", Phone: "+100", Status: StatusActive})
	_ = repo.Create(ctx, &Enrollment{ID: "e2", CampaignID: "c2", AssistantID: "a1", Phone: "+100", Status: StatusStopped})
	_ = repo.Create(ctx, &Enrollment{ID: "e3", CampaignID: "c3", AssistantID: "a2", Phone: "+100", Status: StatusActive})

	open, err := repo.ListOpenByContact(ctx, "a1", "+100")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(open) != 1 || open[0].ID != "e1" {
		t.Fatalf("expected exactly e1, got %+v", open)
	}
}

func TestInboundDedup(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryInboundRepo()

	ev := InboundEvent{ID: "i1", ProviderMessageID: "wamid-1", AssistantID: "a1", Phone: "+100", Text: "hi", ReceivedAt: time.Now()}
	if err := repo.Insert(ctx, ev); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	ev.ID = "i2"
	if err := repo.Insert(ctx, ev); !errors.Is(err, ErrDuplicateEvent) {
		t.Fatalf("expected ErrDuplicateEvent, got %v", err)
	}
	if n := len(repo.Events()); n != 1 {
		t.Fatalf("expected 1 stored event, got %d", n)
	}
}
