package repository

import (
	"context"

	"github.com/dreschagin/seqpulse/internal/domain/entity"
	"github.com/google/uuid"
)

type SampleRepository interface {
	// Insert stores a sample. A duplicate (release, phase, collected_at) is
	// silently dropped so retried collection jobs cannot double-ingest.
	Insert(ctx context.Context, sample *entity.MetricSample) error

	// ListByPhase returns the samples of one release phase ordered by
	// collected_at ascending. The analysis baseline depends on this order.
	ListByPhase(ctx context.Context, releaseID uuid.UUID, phase entity.Phase) ([]*entity.MetricSample, error)
}
