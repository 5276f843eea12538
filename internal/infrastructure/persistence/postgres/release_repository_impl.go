package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dreschagin/seqpulse/internal/domain/entity"
	"github.com/dreschagin/seqpulse/internal/domain/repository"
	"github.com/google/uuid"
)

const releaseColumns = `id, project_id, env, state, pipeline_result, started_at, finished_at, duration_ms, created_at`

// PostgresReleaseRepository implements repository.ReleaseRepository.
type PostgresReleaseRepository struct {
	db *sql.DB
}

func NewPostgresReleaseRepository(db *sql.DB) *PostgresReleaseRepository {
	return &PostgresReleaseRepository{db: db}
}

func (r *PostgresReleaseRepository) Create(ctx context.Context, release *entity.Release) error {
	query := `
		INSERT INTO releases (` + releaseColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	var pipelineResult sql.NullString
	if release.PipelineResult != "" {
		pipelineResult = sql.NullString{String: release.PipelineResult, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, query,
		release.ID.String(),
		release.ProjectID.String(),
		release.Env,
		string(release.State),
		pipelineResult,
		release.StartedAt,
		release.FinishedAt,
		release.DurationMS,
		release.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert release: %w", err)
	}

	return nil
}

func (r *PostgresReleaseRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Release, error) {
	query := `
		SELECT ` + releaseColumns + `
		FROM releases
		WHERE id = $1
	`

	row := r.db.QueryRowContext(ctx, query, id.String())
	model, err := scanReleaseRow(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan release: %w", err)
	}

	return releaseToEntity(model)
}

func (r *PostgresReleaseRepository) Finish(ctx context.Context, release *entity.Release) error {
	query := `
		UPDATE releases
		SET state = $2, pipeline_result = $3, finished_at = $4, duration_ms = $5
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		release.ID.String(),
		string(release.State),
		release.PipelineResult,
		release.FinishedAt,
		release.DurationMS,
	)
	if err != nil {
		return fmt.Errorf("failed to finish release: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func (r *PostgresReleaseRepository) UpdateState(ctx context.Context, id uuid.UUID, state entity.ReleaseState) error {
	query := `
		UPDATE releases
		SET state = $2
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, id.String(), string(state))
	if err != nil {
		return fmt.Errorf("failed to update release state: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// PostgresProjectRepository implements repository.ProjectRepository.
type PostgresProjectRepository struct {
	db *sql.DB
}

func NewPostgresProjectRepository(db *sql.DB) *PostgresProjectRepository {
	return &PostgresProjectRepository{db: db}
}

func (r *PostgresProjectRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Project, error) {
	query := `
		SELECT id, name, plan, signing_enabled, signing_secret, allowed_envs
		FROM projects
		WHERE id = $1
	`

	var model ProjectDBModel
	err := r.db.QueryRowContext(ctx, query, id.String()).Scan(
		&model.ID,
		&model.Name,
		&model.Plan,
		&model.SigningEnabled,
		&model.SigningSecret,
		&model.AllowedEnvs,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan project: %w", err)
	}

	return projectToEntity(&model)
}
