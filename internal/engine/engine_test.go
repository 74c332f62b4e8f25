package engine

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"followup-platform/internal/campaign"
	"followup-platform/internal/contact"
	"followup-platform/internal/content"
	"followup-platform/internal/enrollment"
	"followup-platform/internal/gateway"
)

type sendCall struct {
	instance string
	phone    string
	text     string
}

type fakeSender struct {
	mu     sync.Mutex
	calls  []sendCall
	queue  []gateway.SendResult
	onSend func()
}

func (s *fakeSender) Name() string { return "fake" }

func (s *fakeSender) SendText(ctx context.Context, instance, phone, text string) (gateway.SendResult, error) {
	s.mu.Lock()
	s.calls = append(s.calls, sendCall{instance: instance, phone: phone, text: text})
	res := gateway.SendResult{Outcome: gateway.OutcomeOK}
	if len(s.queue) > 0 {
		res = s.queue[0]
		s.queue = s.queue[1:]
	}
	hook := s.onSend
	s.mu.Unlock()

	if hook != nil {
		hook()
	}
	return res, nil
}

func (s *fakeSender) sent() []sendCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]sendCall, len(s.calls))
	copy(out, s.calls)
	return out
}

// alwaysResult fills the queue-less default with a fixed outcome.
type repeatSender struct {
	fakeSender
	result gateway.SendResult
}

func (s *repeatSender) SendText(ctx context.Context, instance, phone, text string) (gateway.SendResult, error) {
	s.mu.Lock()
	s.calls = append(s.calls, sendCall{instance: instance, phone: phone, text: text})
	s.mu.Unlock()
	return s.result, nil
}

type fakeLimiter struct {
	mu      sync.Mutex
	allow   bool
	err     error
	calls   int
	onAllow func()
}

func (l *fakeLimiter) Allow(ctx context.Context, campaignID, ct string, spacing time.Duration) (bool, error) {
	l.mu.Lock()
	l.calls++
	hook := l.onAllow
	l.mu.Unlock()
	if hook != nil {
		hook()
	}
	return l.allow, l.err
}

type fakeGenerator struct {
	text    string
	failAll bool
	calls   int
}

func (g *fakeGenerator) Generate(ctx context.Context, prompt string, cc content.ContactContext) (string, error) {
	g.calls++
	if g.failAll {
		return "", context.DeadlineExceeded
	}
	return g.text, nil
}

type fakeAuthz struct {
	allowed bool
	err     error
}

func (a *fakeAuthz) IsAllowedToSend(ctx context.Context, assistantID string) (bool, error) {
	return a.allowed, a.err
}

type fixture struct {
	now time.Time

	campaigns *campaign.MemoryRepo
	contacts  *contact.MemoryRepo
	store     *enrollment.MemoryRepo
	attempts  *enrollment.MemoryAttemptRepo
	inbound   *enrollment.MemoryInboundRepo
	limiter   *fakeLimiter
	sender    *fakeSender
	authz     *fakeAuthz

	sleepMu sync.Mutex
	sleeps  []time.Duration

	eng *Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		now:       time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		campaigns: campaign.NewMemoryRepo(),
		contacts:  contact.NewMemoryRepo(),
		store:     enrollment.NewMemoryRepo(),
		attempts:  enrollment.NewMemoryAttemptRepo(),
		inbound:   enrollment.NewMemoryInboundRepo(),
		limiter:   &fakeLimiter{allow: true},
		sender:    &fakeSender{},
		authz:     &fakeAuthz{allowed: true},
	}
	f.eng = New(Deps{
		Campaigns:   f.campaigns,
		Contacts:    f.contacts,
		Enrollments: f.store,
		Attempts:    f.attempts,
		Inbound:     f.inbound,
		Limiter:     f.limiter,
		Sender:      f.sender,
		Authz:       f.authz,
		Log:         slog.Default(),
	}, Config{})
	f.eng.clock = func() time.Time { return f.now }
	f.eng.sleep = func(ctx context.Context, d time.Duration) error {
		f.sleepMu.Lock()
		f.sleeps = append(f.sleeps, d)
		f.sleepMu.Unlock()
		return nil
	}
	return f
}

func (f *fixture) slept() []time.Duration {
	f.sleepMu.Lock()
	defer f.sleepMu.Unlock()
	out := make([]time.Duration, len(f.sleeps))
	copy(out, f.sleeps)
	return out
}

func (f *fixture) advance(d time.Duration) { f.now = f.now.Add(d) }

// twoStepCampaign mirrors the canonical follow-up: "Hi, following up!" after
// one minute, "Last chance!" two minutes later, stop on reply.
func (f *fixture) twoStepCampaign() campaign.Campaign {
	c := campaign.Campaign{
		ID:          "cmp-1",
		AssistantID: "asst-1",
		Name:        "demo follow-up",
		Kind:        campaign.KindManual,
		Active:      true,
		Steps: []campaign.Step{
			{Text: "Hi, following up!", DelayMinutes: 1},
			{Text: "Last chance!", DelayMinutes: 2},
		},
		MaxAttempts: 3,
		StopOnReply: true,
	}
	f.campaigns.Put(c)
	return c
}

func (f *fixture) enroll(t *testing.T, c campaign.Campaign, phone string) enrollment.Enrollment {
	t.Helper()
	e := &enrollment.Enrollment{
		ID:          "enr-" + phone,
		CampaignID:  c.ID,
		AssistantID: c.AssistantID,
		Phone:       phone,
		Status:      enrollment.StatusActive,
		LastEventAt: f.now,
		CreatedAt:   f.now,
	}
	if err := f.store.Create(context.Background(), e); err != nil {
		t.Fatalf("enroll fixture failed: %v", err)
	}
	return *e
}

func (f *fixture) get(t *testing.T, id string) enrollment.Enrollment {
	t.Helper()
	e, err := f.store.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("get enrollment %s failed: %v", id, err)
	}
	return e
}

func TestRetryPolicyBackoff(t *testing.T) {
	p := RetryPolicy{}.withDefaults()
	if p.MaxTries != 3 {
		t.Fatalf("expected 3 tries, got %d", p.MaxTries)
	}
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}
	for i, w := range want {
		if got := p.Backoff(i); got != w {
			t.Fatalf("backoff(%d): expected %v, got %v", i, w, got)
		}
	}
}
