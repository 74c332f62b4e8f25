package engine

import (
	"context"
	"log/slog"
	"time"

	"followup-platform/internal/campaign"
	"followup-platform/internal/contact"
	"followup-platform/internal/content"
	"followup-platform/internal/enrollment"
	"followup-platform/internal/gateway"
	"followup-platform/internal/ratelimit"
)

// Authorizer answers whether an assistant may send right now. False is a
// deferral, never an error; it reflects subscription/trial state owned by
// billing.
type Authorizer interface {
	IsAllowedToSend(ctx context.Context, assistantID string) (bool, error)
}

// RetryPolicy controls immediate in-pass retries for transient failures of
// the gateway and the content generator. Backoff is exponential from
// BaseDelay (1s, 2s, 4s with the defaults).
type RetryPolicy struct {
	MaxTries  int
	BaseDelay time.Duration
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	out := p
	if out.MaxTries <= 0 {
		out.MaxTries = 3
	}
	if out.BaseDelay <= 0 {
		out.BaseDelay = time.Second
	}
	return out
}

func (p RetryPolicy) Backoff(try int) time.Duration {
	return p.BaseDelay << try
}

type Config struct {
	// MaxParallel bounds concurrent enrollment evaluation within a pass so a
	// stuck external call cannot block the rest.
	MaxParallel int

	// SendTimeout bounds one gateway or generator call.
	SendTimeout time.Duration

	// EvalTimeout bounds the full evaluation of one enrollment, retries
	// included.
	EvalTimeout time.Duration

	Retry RetryPolicy
}

func (c Config) withDefaults() Config {
	out := c
	if out.MaxParallel <= 0 {
		out.MaxParallel = 8
	}
	if out.SendTimeout <= 0 {
		out.SendTimeout = 10 * time.Second
	}
	if out.EvalTimeout <= 0 {
		out.EvalTimeout = 2 * time.Minute
	}
	out.Retry = out.Retry.withDefaults()
	return out
}

// Deps wires the engine's collaborators. Generator may be nil when no
// ai_generated campaigns exist; everything else is required.
type Deps struct {
	Campaigns   campaign.Repository
	Contacts    contact.Repository
	Enrollments enrollment.Repository
	Attempts    enrollment.AttemptRepository
	Inbound     enrollment.InboundRepository
	Limiter     ratelimit.Limiter
	Sender      gateway.Sender
	Generator   content.Generator
	Authz       Authorizer
	Log         *slog.Logger
}

// Engine runs the follow-up campaign passes. It is stateless between
// invocations: due-ness is always recomputed from persisted timestamps, so a
// missed pass fires on the next one and restarts lose nothing.
type Engine struct {
	campaigns   campaign.Repository
	contacts    contact.Repository
	enrollments enrollment.Repository
	attempts    enrollment.AttemptRepository
	inbound     enrollment.InboundRepository
	limiter     ratelimit.Limiter
	sender      gateway.Sender
	generator   content.Generator
	authz       Authorizer

	cfg   Config
	log   *slog.Logger
	clock func() time.Time
	// sleep is injectable so retry backoff is instant in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

func New(deps Deps, cfg Config) *Engine {
	log := deps.Log
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		campaigns:   deps.Campaigns,
		contacts:    deps.Contacts,
		enrollments: deps.Enrollments,
		attempts:    deps.Attempts,
		inbound:     deps.Inbound,
		limiter:     deps.Limiter,
		sender:      deps.Sender,
		generator:   deps.Generator,
		authz:       deps.Authz,
		cfg:         cfg.withDefaults(),
		log:         log,
		clock:       time.Now,
		sleep:       sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
