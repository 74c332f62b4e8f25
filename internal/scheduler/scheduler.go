package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"followup-platform/internal/campaign"
	"followup-platform/internal/engine"
)

// Config holds the poll intervals. The engine is level-triggered, so the
// intervals trade latency against database load; correctness does not depend
// on them.
type Config struct {
	SequencerInterval  time.Duration
	EnrollmentInterval time.Duration
}

func (c Config) withDefaults() Config {
	out := c
	if out.SequencerInterval <= 0 {
		out.SequencerInterval = 30 * time.Second
	}
	if out.EnrollmentInterval <= 0 {
		out.EnrollmentInterval = 5 * time.Minute
	}
	return out
}

// Scheduler drives the engine's passes on fixed intervals until its context
// is canceled. One pass failing is logged and the ticker keeps going; a
// transient database outage must not kill the loop.
type Scheduler struct {
	eng       *engine.Engine
	campaigns campaign.Repository
	cfg       Config
	log       *slog.Logger
}

func New(eng *engine.Engine, campaigns campaign.Repository, cfg Config, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{eng: eng, campaigns: campaigns, cfg: cfg.withDefaults(), log: log}
}

// Run blocks until ctx is canceled. Both loops fire once immediately so a
// fresh process drains any backlog without waiting a full interval.
func (s *Scheduler) Run(ctx context.Context) error {
	grp, ctx := errgroup.WithContext(ctx)
	grp.Go(func() error {
		return s.loop(ctx, s.cfg.SequencerInterval, s.SequencerTick)
	})
	grp.Go(func() error {
		return s.loop(ctx, s.cfg.EnrollmentInterval, s.EnrollmentTick)
	})
	err := grp.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (s *Scheduler) loop(ctx context.Context, every time.Duration, tick func(context.Context)) error {
	tick(ctx)

	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			tick(ctx)
		}
	}
}

// SequencerTick runs one delivery pass over all active enrollments.
func (s *Scheduler) SequencerTick(ctx context.Context) {
	if _, err := s.eng.RunSequencerPass(ctx); err != nil {
		s.log.Error("sequencer pass failed", "err", err)
	}
}

// EnrollmentTick runs one enrollment pass per active campaign.
func (s *Scheduler) EnrollmentTick(ctx context.Context) {
	active, err := s.campaigns.ListActive(ctx)
	if err != nil {
		s.log.Error("active campaign listing failed", "err", err)
		return
	}
	for _, c := range active {
		if _, err := s.eng.RunEnrollmentPass(ctx, c.ID); err != nil {
			s.log.Error("enrollment pass failed", "campaign_id", c.ID, "err", err)
		}
	}
}
