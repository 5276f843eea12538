package repository

import (
	"context"

	"github.com/dreschagin/seqpulse/internal/domain/entity"
	"github.com/google/uuid"
)

type VerdictRepository interface {
	// CreateIfAbsent inserts the verdict unless one already exists for the
	// release. Returns whether a row was created; a duplicate is not an
	// error, it is the idempotency guard for retried analysis jobs.
	CreateIfAbsent(ctx context.Context, verdict *entity.Verdict) (bool, error)

	GetByRelease(ctx context.Context, releaseID uuid.UUID) (*entity.Verdict, error)
}

// HintFilter narrows ListHints. Zero values mean "no constraint".
type HintFilter struct {
	ReleaseID     *uuid.UUID
	Severity      entity.HintSeverity
	Metric        string
	MinConfidence float64
	Limit         int
}

type HintRepository interface {
	// ReplaceForRelease deletes the release's hint set and inserts the new
	// one in a single transaction.
	ReplaceForRelease(ctx context.Context, releaseID uuid.UUID, hints []*entity.Hint) error

	List(ctx context.Context, filter HintFilter) ([]*entity.Hint, error)
}
