package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dreschagin/seqpulse/internal/domain/entity"
	"github.com/google/uuid"
)

const jobColumns = `id, release_id, kind, phase, sequence_index, scheduled_at,
		status, retry_count, last_error, dedupe_key, metadata, created_at, updated_at`

// PostgresJobRepository implements repository.JobRepository over a single
// scheduled_jobs table. Jobs are append-mostly: rows are never deleted, only
// moved through status transitions.
type PostgresJobRepository struct {
	db *sql.DB
}

func NewPostgresJobRepository(db *sql.DB) *PostgresJobRepository {
	return &PostgresJobRepository{db: db}
}

func (r *PostgresJobRepository) Create(ctx context.Context, job *entity.Job) error {
	model := jobToDBModel(job)

	query := `
		INSERT INTO scheduled_jobs (` + jobColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.db.ExecContext(ctx, query,
		model.ID,
		model.ReleaseID,
		model.Kind,
		model.Phase,
		model.SequenceIndex,
		model.ScheduledAt,
		model.Status,
		model.RetryCount,
		model.LastError,
		model.DedupeKey,
		model.Metadata,
		model.CreatedAt,
		model.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert job: %w", err)
	}

	return nil
}

func (r *PostgresJobRepository) CreateBatch(ctx context.Context, jobs []*entity.Job) error {
	if len(jobs) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO scheduled_jobs (`+jobColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, job := range jobs {
		model := jobToDBModel(job)
		_, err = stmt.ExecContext(ctx,
			model.ID,
			model.ReleaseID,
			model.Kind,
			model.Phase,
			model.SequenceIndex,
			model.ScheduledAt,
			model.Status,
			model.RetryCount,
			model.LastError,
			model.DedupeKey,
			model.Metadata,
			model.CreatedAt,
			model.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert job: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// CreateDeduped inserts the job unless its dedupe key is already taken. The
// partial unique index on dedupe_key makes the check and the insert one
// atomic statement.
func (r *PostgresJobRepository) CreateDeduped(ctx context.Context, job *entity.Job) (bool, error) {
	model := jobToDBModel(job)

	query := `
		INSERT INTO scheduled_jobs (` + jobColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (dedupe_key) DO NOTHING
	`

	result, err := r.db.ExecContext(ctx, query,
		model.ID,
		model.ReleaseID,
		model.Kind,
		model.Phase,
		model.SequenceIndex,
		model.ScheduledAt,
		model.Status,
		model.RetryCount,
		model.LastError,
		model.DedupeKey,
		model.Metadata,
		model.CreatedAt,
		model.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert deduped job: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}

	return affected == 1, nil
}

func (r *PostgresJobRepository) Due(ctx context.Context, now time.Time, limit int) ([]*entity.Job, error) {
	query := `
		SELECT ` + jobColumns + `
		FROM scheduled_jobs
		WHERE status = 'pending' AND scheduled_at <= $1
		ORDER BY scheduled_at ASC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query due jobs: %w", err)
	}
	defer rows.Close()

	return r.scanJobs(rows)
}

// Claim flips pending to running with a conditional update. RowsAffected of
// zero means another executor claimed the job first.
func (r *PostgresJobRepository) Claim(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	query := `
		UPDATE scheduled_jobs
		SET status = 'running', updated_at = $2
		WHERE id = $1 AND status = 'pending'
	`

	result, err := r.db.ExecContext(ctx, query, id.String(), now)
	if err != nil {
		return false, fmt.Errorf("failed to claim job: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}

	return affected == 1, nil
}

func (r *PostgresJobRepository) Stuck(ctx context.Context, cutoff time.Time) ([]*entity.Job, error) {
	query := `
		SELECT ` + jobColumns + `
		FROM scheduled_jobs
		WHERE status = 'running' AND updated_at < $1
		ORDER BY updated_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to query stuck jobs: %w", err)
	}
	defer rows.Close()

	return r.scanJobs(rows)
}

func (r *PostgresJobRepository) MarkCompleted(ctx context.Context, id uuid.UUID, now time.Time) error {
	query := `
		UPDATE scheduled_jobs
		SET status = 'completed', updated_at = $2
		WHERE id = $1
	`

	if _, err := r.db.ExecContext(ctx, query, id.String(), now); err != nil {
		return fmt.Errorf("failed to mark job completed: %w", err)
	}

	return nil
}

func (r *PostgresJobRepository) Requeue(ctx context.Context, id uuid.UUID, retryCount int, lastError string, scheduledAt, now time.Time) error {
	query := `
		UPDATE scheduled_jobs
		SET status = 'pending', retry_count = $2, last_error = $3, scheduled_at = $4, updated_at = $5
		WHERE id = $1
	`

	if _, err := r.db.ExecContext(ctx, query, id.String(), retryCount, lastError, scheduledAt, now); err != nil {
		return fmt.Errorf("failed to requeue job: %w", err)
	}

	return nil
}

func (r *PostgresJobRepository) MarkFailed(ctx context.Context, id uuid.UUID, retryCount int, lastError string, now time.Time) error {
	query := `
		UPDATE scheduled_jobs
		SET status = 'failed', retry_count = $2, last_error = $3, updated_at = $4
		WHERE id = $1
	`

	if _, err := r.db.ExecContext(ctx, query, id.String(), retryCount, lastError, now); err != nil {
		return fmt.Errorf("failed to mark job failed: %w", err)
	}

	return nil
}

func (r *PostgresJobRepository) scanJobs(rows *sql.Rows) ([]*entity.Job, error) {
	var jobs []*entity.Job

	for rows.Next() {
		model, err := scanJobRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job row: %w", err)
		}

		job, err := jobToEntity(model)
		if err != nil {
			return nil, fmt.Errorf("failed to convert to entity: %w", err)
		}

		jobs = append(jobs, job)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return jobs, nil
}
