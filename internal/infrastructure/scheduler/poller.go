package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dreschagin/seqpulse/internal/application/port"
	"github.com/dreschagin/seqpulse/internal/domain/entity"
	"github.com/dreschagin/seqpulse/internal/domain/repository"
	"github.com/dreschagin/seqpulse/pkg/logger"
)

// retryBackoff is the fixed backoff ladder for retries 1..3. Attempts beyond
// the ladder clamp to the last value.
var retryBackoff = []time.Duration{30 * time.Second, 120 * time.Second, 300 * time.Second}

// Handler executes one job. Any returned error triggers the retry policy.
type Handler func(ctx context.Context, job *entity.Job) error

type Config struct {
	PollInterval   time.Duration
	BatchSize      int
	StuckThreshold time.Duration
	MaxRetries     int
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = 10 * time.Second
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 5
	}
	if c.StuckThreshold <= 0 {
		c.StuckThreshold = 10 * time.Minute
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	return c
}

// Poller is the durable job scheduler: on a fixed interval it recovers stuck
// jobs, claims a batch of due pending jobs, and executes them serially. The
// conditional claim transition is the only coordination between instances;
// any number of pollers may run against the same store.
type Poller struct {
	jobs     repository.JobRepository
	handlers map[entity.JobKind]Handler
	stats    port.StatsPublisher
	logger   *logger.Logger
	cfg      Config

	// runMu keeps ticks from overlapping: a slow tick is skipped over, not
	// queued behind.
	runMu sync.Mutex

	now func() time.Time
}

func NewPoller(jobs repository.JobRepository, cfg Config, stats port.StatsPublisher, log *logger.Logger) *Poller {
	return &Poller{
		jobs:     jobs,
		handlers: make(map[entity.JobKind]Handler),
		stats:    stats,
		logger:   log,
		cfg:      cfg.withDefaults(),
		now:      time.Now,
	}
}

// Register installs the handler for a job kind. Must be called before Start.
func (p *Poller) Register(kind entity.JobKind, handler Handler) {
	p.handlers[kind] = handler
}

// Start runs the polling loop until ctx is cancelled. Each tick is offloaded
// to its own goroutine so the loop itself never blocks on I/O; cancellation
// stops the next tick, an execution already in flight runs to completion.
func (p *Poller) Start(ctx context.Context) {
	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	p.logger.Info("Job poller started",
		"poll_interval", p.cfg.PollInterval.String(),
		"batch_size", p.cfg.BatchSize,
	)

	for {
		select {
		case <-ticker.C:
			go p.tick(ctx)
		case <-ctx.Done():
			p.logger.Info("Job poller stopped")
			return
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	if !p.runMu.TryLock() {
		// Previous tick still running; skip rather than pile up.
		return
	}
	defer p.runMu.Unlock()

	if err := p.RunOnce(ctx); err != nil {
		p.logger.Error("Poller tick failed", err)
	}
}

// RunOnce executes a single scheduler pass: stuck recovery, then claim and
// execute up to BatchSize due jobs. Individual job failures are absorbed by
// the retry policy and never abort the pass.
func (p *Poller) RunOnce(ctx context.Context) error {
	now := p.now().UTC()

	if err := p.recoverStuck(ctx, now); err != nil {
		// Recovery failure must not starve due jobs.
		p.logger.Error("Stuck-job recovery failed", err)
	}

	due, err := p.jobs.Due(ctx, now, p.cfg.BatchSize)
	if err != nil {
		return fmt.Errorf("query due jobs: %w", err)
	}

	if len(due) == 0 {
		return nil
	}

	p.logger.Info("Processing jobs", "count", len(due))

	for _, job := range due {
		p.executeJob(ctx, job)
	}

	return nil
}

func (p *Poller) recoverStuck(ctx context.Context, now time.Time) error {
	cutoff := now.Add(-p.cfg.StuckThreshold)
	stuck, err := p.jobs.Stuck(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("query stuck jobs: %w", err)
	}

	for _, job := range stuck {
		retryCount := job.RetryCount + 1
		if retryCount > p.cfg.MaxRetries {
			if err := p.jobs.MarkFailed(ctx, job.ID, retryCount, "recovered job exceeded max retries after timeout", now); err != nil {
				return fmt.Errorf("fail stuck job %s: %w", job.ID, err)
			}
			p.count(ctx, "JobsFailed", job.Kind)
			p.logger.Warn("Stuck job exceeded retry budget",
				"job_id", job.ID.String(),
				"kind", string(job.Kind),
				"retry_count", retryCount,
			)
			continue
		}

		if err := p.jobs.Requeue(ctx, job.ID, retryCount, "recovered after timeout", now, now); err != nil {
			return fmt.Errorf("requeue stuck job %s: %w", job.ID, err)
		}
		p.logger.Warn("Stuck job recovered",
			"job_id", job.ID.String(),
			"kind", string(job.Kind),
			"retry_count", retryCount,
		)
	}

	return nil
}

func (p *Poller) executeJob(ctx context.Context, job *entity.Job) {
	now := p.now().UTC()

	claimed, err := p.jobs.Claim(ctx, job.ID, now)
	if err != nil {
		p.logger.Error("Job claim failed", err, "job_id", job.ID.String())
		return
	}
	if !claimed {
		// Another poller won the race.
		p.logger.Debug("Job already claimed", "job_id", job.ID.String())
		return
	}

	p.logger.Info("Job started",
		"job_id", job.ID.String(),
		"kind", string(job.Kind),
		"phase", string(job.Phase),
		"retry_count", job.RetryCount,
	)

	if err := p.dispatch(ctx, job); err != nil {
		p.handleFailure(ctx, job, err)
		return
	}

	if err := p.jobs.MarkCompleted(ctx, job.ID, p.now().UTC()); err != nil {
		p.logger.Error("Failed to mark job completed", err, "job_id", job.ID.String())
		return
	}

	p.count(ctx, "JobsCompleted", job.Kind)
	p.logger.Info("Job completed", "job_id", job.ID.String())
}

func (p *Poller) dispatch(ctx context.Context, job *entity.Job) error {
	handler, ok := p.handlers[job.Kind]
	if !ok {
		return fmt.Errorf("no handler registered for job kind %q", job.Kind)
	}
	return handler(ctx, job)
}

func (p *Poller) handleFailure(ctx context.Context, job *entity.Job, execErr error) {
	now := p.now().UTC()
	retryCount := job.RetryCount + 1

	if retryCount <= p.cfg.MaxRetries {
		delay := nextRetryDelay(retryCount)
		if err := p.jobs.Requeue(ctx, job.ID, retryCount, execErr.Error(), now.Add(delay), now); err != nil {
			p.logger.Error("Failed to requeue job", err, "job_id", job.ID.String())
			return
		}
		p.count(ctx, "JobsRetried", job.Kind)
		p.logger.Warn("Job retry scheduled",
			"job_id", job.ID.String(),
			"kind", string(job.Kind),
			"retry_count", retryCount,
			"delay", delay.String(),
			"error", execErr.Error(),
		)
		return
	}

	if err := p.jobs.MarkFailed(ctx, job.ID, retryCount, execErr.Error(), now); err != nil {
		p.logger.Error("Failed to mark job failed", err, "job_id", job.ID.String())
		return
	}
	p.count(ctx, "JobsFailed", job.Kind)
	p.logger.Error("Job failed permanently", execErr,
		"job_id", job.ID.String(),
		"kind", string(job.Kind),
		"retry_count", retryCount,
	)
}

func (p *Poller) count(ctx context.Context, name string, kind entity.JobKind) {
	if p.stats == nil {
		return
	}
	p.stats.Count(ctx, name, 1, map[string]string{"JobKind": string(kind)})
}

// nextRetryDelay returns the backoff for the given retry attempt (1-based),
// clamped to the last ladder entry.
func nextRetryDelay(retryCount int) time.Duration {
	if retryCount <= 0 {
		return retryBackoff[0]
	}
	if retryCount <= len(retryBackoff) {
		return retryBackoff[retryCount-1]
	}
	return retryBackoff[len(retryBackoff)-1]
}
