package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dreschagin/seqpulse/internal/domain/entity"
	"github.com/google/uuid"
)

// PostgresSampleRepository implements repository.SampleRepository.
type PostgresSampleRepository struct {
	db *sql.DB
}

func NewPostgresSampleRepository(db *sql.DB) *PostgresSampleRepository {
	return &PostgresSampleRepository{db: db}
}

// Insert stores a sample. The unique (release_id, phase, collected_at)
// constraint plus DO NOTHING makes a retried collection job a no-op instead
// of a duplicate row.
func (r *PostgresSampleRepository) Insert(ctx context.Context, sample *entity.MetricSample) error {
	query := `
		INSERT INTO metric_samples
			(id, release_id, phase, requests_per_sec, latency_p95, error_rate, cpu_usage, memory_usage, collected_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (release_id, phase, collected_at) DO NOTHING
	`

	_, err := r.db.ExecContext(ctx, query,
		sample.ID.String(),
		sample.ReleaseID.String(),
		string(sample.Phase),
		sample.Gauges.RequestsPerSec,
		sample.Gauges.LatencyP95,
		sample.Gauges.ErrorRate,
		sample.Gauges.CPUUsage,
		sample.Gauges.MemoryUsage,
		sample.CollectedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert sample: %w", err)
	}

	return nil
}

func (r *PostgresSampleRepository) ListByPhase(ctx context.Context, releaseID uuid.UUID, phase entity.Phase) ([]*entity.MetricSample, error) {
	query := `
		SELECT id, release_id, phase, requests_per_sec, latency_p95, error_rate, cpu_usage, memory_usage, collected_at
		FROM metric_samples
		WHERE release_id = $1 AND phase = $2
		ORDER BY collected_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, releaseID.String(), string(phase))
	if err != nil {
		return nil, fmt.Errorf("failed to query samples: %w", err)
	}
	defer rows.Close()

	var samples []*entity.MetricSample
	for rows.Next() {
		model, err := scanSampleRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sample row: %w", err)
		}

		sample, err := sampleToEntity(model)
		if err != nil {
			return nil, fmt.Errorf("failed to convert to entity: %w", err)
		}

		samples = append(samples, sample)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return samples, nil
}
