package engine

import (
	"context"
	"testing"
	"time"

	"followup-platform/internal/contact"
	"followup-platform/internal/enrollment"
)

func (f *fixture) addContact(phone string, inbound bool) {
	c := contact.Contact{AssistantID: "asst-1", Phone: phone, CreatedAt: f.now}
	if inbound {
		at := f.now.Add(-time.Hour)
		c.LastInboundAt = &at
	}
	f.contacts.Put(c)
}

func TestEnrollmentPassIsIdempotent(t *testing.T) {
	f := newFixture(t)
	c := f.twoStepCampaign()
	f.addContact("5511999990001", true)
	f.addContact("5511999990002", true)

	res, err := f.eng.RunEnrollmentPass(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("first pass failed: %v", err)
	}
	if res.Enrolled != 2 || res.Errors != 0 {
		t.Fatalf("expected 2 enrolled, got %+v", res)
	}

	// Running it again must not create a second open enrollment per contact.
	res, err = f.eng.RunEnrollmentPass(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("second pass failed: %v", err)
	}
	if res.Enrolled != 0 || res.Skipped != 2 {
		t.Fatalf("expected 0 enrolled / 2 skipped on re-run, got %+v", res)
	}

	open, err := f.store.ListOpenByCampaign(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("list open failed: %v", err)
	}
	if len(open) != 2 {
		t.Fatalf("expected exactly 2 open enrollments, got %d", len(open))
	}
}

func TestEnrollmentPassSkipsContactsWithoutInbound(t *testing.T) {
	f := newFixture(t)
	c := f.twoStepCampaign()
	f.addContact("5511999990001", true)
	f.addContact("5511999990002", false) // never messaged the assistant

	res, err := f.eng.RunEnrollmentPass(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("pass failed: %v", err)
	}
	if res.Enrolled != 1 {
		t.Fatalf("expected 1 enrolled, got %+v", res)
	}
}

func TestEnrollmentPassInactiveCampaign(t *testing.T) {
	f := newFixture(t)
	c := f.twoStepCampaign()
	c.Active = false
	f.campaigns.Put(c)
	f.addContact("5511999990001", true)

	res, err := f.eng.RunEnrollmentPass(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("pass failed: %v", err)
	}
	if res.Enrolled != 0 || res.Skipped != 1 {
		t.Fatalf("inactive campaign must enroll nobody, got %+v", res)
	}
}

func TestEnrollmentPassInvalidConfig(t *testing.T) {
	f := newFixture(t)
	c := f.twoStepCampaign()
	c.Steps = nil // active manual campaign with no steps
	f.campaigns.Put(c)
	f.addContact("5511999990001", true)

	res, err := f.eng.RunEnrollmentPass(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("invalid config must be a skip, not an error: %v", err)
	}
	if res.Enrolled != 0 || res.Skipped != 1 {
		t.Fatalf("expected skip for invalid config, got %+v", res)
	}
}

func TestEnrollmentPassUnknownCampaign(t *testing.T) {
	f := newFixture(t)
	if _, err := f.eng.RunEnrollmentPass(context.Background(), "nope"); err == nil {
		t.Fatal("expected error for unknown campaign")
	}
}

func TestReEnrollmentAfterTerminalStatus(t *testing.T) {
	f := newFixture(t)
	c := f.twoStepCampaign()
	f.addContact("5511999990001", true)

	if _, err := f.eng.RunEnrollmentPass(context.Background(), c.ID); err != nil {
		t.Fatalf("first pass failed: %v", err)
	}
	open, _ := f.store.ListOpenByCampaign(context.Background(), c.ID)
	if len(open) != 1 {
		t.Fatalf("expected 1 open enrollment, got %d", len(open))
	}

	done := open[0]
	done.Status = enrollment.StatusCompleted
	if err := f.store.Update(context.Background(), &done); err != nil {
		t.Fatalf("complete enrollment: %v", err)
	}

	// A finished run does not block a fresh cycle for the same contact.
	res, err := f.eng.RunEnrollmentPass(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("re-enrollment pass failed: %v", err)
	}
	if res.Enrolled != 1 {
		t.Fatalf("expected re-enrollment after completion, got %+v", res)
	}
}
