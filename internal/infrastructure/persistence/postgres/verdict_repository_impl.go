package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dreschagin/seqpulse/internal/domain/entity"
	"github.com/dreschagin/seqpulse/internal/domain/repository"
	"github.com/google/uuid"
)

// PostgresVerdictRepository implements repository.VerdictRepository.
type PostgresVerdictRepository struct {
	db *sql.DB
}

func NewPostgresVerdictRepository(db *sql.DB) *PostgresVerdictRepository {
	return &PostgresVerdictRepository{db: db}
}

// CreateIfAbsent inserts the verdict unless the release already has one. The
// unique constraint on release_id plus DO NOTHING is the whole idempotency
// story for retried analysis jobs.
func (r *PostgresVerdictRepository) CreateIfAbsent(ctx context.Context, verdict *entity.Verdict) (bool, error) {
	model, err := verdictToDBModel(verdict)
	if err != nil {
		return false, fmt.Errorf("failed to convert to DB model: %w", err)
	}

	query := `
		INSERT INTO release_verdicts (id, release_id, verdict, confidence, summary, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (release_id) DO NOTHING
	`

	result, err := r.db.ExecContext(ctx, query,
		model.ID,
		model.ReleaseID,
		model.Verdict,
		model.Confidence,
		model.Summary,
		model.Details,
		model.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert verdict: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}

	return affected == 1, nil
}

func (r *PostgresVerdictRepository) GetByRelease(ctx context.Context, releaseID uuid.UUID) (*entity.Verdict, error) {
	query := `
		SELECT id, release_id, verdict, confidence, summary, details, created_at
		FROM release_verdicts
		WHERE release_id = $1
	`

	row := r.db.QueryRowContext(ctx, query, releaseID.String())
	model, err := scanVerdictRow(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan verdict: %w", err)
	}

	return verdictToEntity(model)
}
