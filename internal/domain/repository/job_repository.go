package repository

import (
	"context"
	"time"

	"github.com/dreschagin/seqpulse/internal/domain/entity"
	"github.com/google/uuid"
)

// JobRepository is the durable job store. Status transitions are narrow,
// conditional operations; the conditional Claim is the only concurrency
// control the scheduler relies on.
type JobRepository interface {
	Create(ctx context.Context, job *entity.Job) error
	CreateBatch(ctx context.Context, jobs []*entity.Job) error

	// CreateDeduped inserts the job unless another job with the same dedupe
	// key already exists. Returns whether a row was created.
	CreateDeduped(ctx context.Context, job *entity.Job) (bool, error)

	// Due returns up to limit pending jobs whose scheduled_at has elapsed,
	// oldest first.
	Due(ctx context.Context, now time.Time, limit int) ([]*entity.Job, error)

	// Claim transitions a job from pending to running, succeeding only if the
	// row is still pending. Returns false when another executor won the race.
	Claim(ctx context.Context, id uuid.UUID, now time.Time) (bool, error)

	// Stuck returns running jobs whose updated_at is older than cutoff.
	Stuck(ctx context.Context, cutoff time.Time) ([]*entity.Job, error)

	MarkCompleted(ctx context.Context, id uuid.UUID, now time.Time) error
	Requeue(ctx context.Context, id uuid.UUID, retryCount int, lastError string, scheduledAt, now time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID, retryCount int, lastError string, now time.Time) error
}
