package notification

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/admbtski/miglee-sub001/internal/domain"
)

// RelayConfig tunes the outbox relay. Zero values select defaults.
type RelayConfig struct {
	Schedule    string        // cron spec, default "@every 30s"
	BatchSize   int           // events per pass, default 100
	MaxAttempts int           // give up after this many failed deliveries, default 10
	Parallelism int           // concurrent deliveries, default 4
	Grace       time.Duration // skip events younger than this, default 5s
}

// Relay re-dispatches outbox events whose post-commit delivery failed or was
// interrupted.
type Relay struct {
	cron    *cron.Cron
	outbox  domain.EventOutbox
	emitter *Emitter
	cfg     RelayConfig
	now     domain.Clock
	logger  *slog.Logger
}

// NewRelay creates a Relay.
func NewRelay(outbox domain.EventOutbox, emitter *Emitter, cfg RelayConfig, now domain.Clock, logger *slog.Logger) *Relay {
	if cfg.Schedule == "" {
		cfg.Schedule = "@every 30s"
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 10
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = 4
	}
	if cfg.Grace <= 0 {
		cfg.Grace = 5 * time.Second
	}
	if now == nil {
		now = time.Now
	}
	return &Relay{
		cron:    cron.New(),
		outbox:  outbox,
		emitter: emitter,
		cfg:     cfg,
		now:     now,
		logger:  logger.With("component", "outbox-relay"),
	}
}

// RunOnce redelivers one batch and returns how many events were delivered.
func (r *Relay) RunOnce(ctx context.Context) (int, error) {
	events, err := r.outbox.ListUndelivered(ctx, r.cfg.MaxAttempts, r.cfg.BatchSize)
	if err != nil {
		return 0, err
	}

	cutoff := r.now().Add(-r.cfg.Grace)
	var delivered atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Parallelism)
	for _, ev := range events {
		// The request that committed it may still be dispatching.
		if ev.OccurredAt.After(cutoff) {
			continue
		}
		g.Go(func() error {
			if err := r.emitter.Redeliver(gctx, ev); err == nil {
				delivered.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return int(delivered.Load()), err
	}
	return int(delivered.Load()), nil
}

// Start schedules RunOnce and starts the cron scheduler.
func (r *Relay) Start(ctx context.Context) error {
	_, err := r.cron.AddFunc(r.cfg.Schedule, func() {
		n, err := r.RunOnce(ctx)
		if err != nil {
			r.logger.Error("outbox relay pass failed", "error", err)
			return
		}
		if n > 0 {
			r.logger.Info("outbox relay redelivered events", "count", n)
		}
	})
	if err != nil {
		return err
	}
	r.cron.Start()
	r.logger.Info("outbox relay started", "schedule", r.cfg.Schedule)
	return nil
}

// Stop stops scheduling and waits for a running pass to finish.
func (r *Relay) Stop() {
	<-r.cron.Stop().Done()
	r.logger.Info("outbox relay stopped")
}
