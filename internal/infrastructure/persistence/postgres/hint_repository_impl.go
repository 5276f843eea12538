package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"github.com/dreschagin/seqpulse/internal/domain/entity"
	"github.com/dreschagin/seqpulse/internal/domain/repository"
	"github.com/google/uuid"
)

const hintColumns = `id, release_id, metric, severity, observed_value, threshold,
		confidence, title, diagnosis, suggested_actions, created_at`

// PostgresHintRepository implements repository.HintRepository.
type PostgresHintRepository struct {
	db *sql.DB
}

func NewPostgresHintRepository(db *sql.DB) *PostgresHintRepository {
	return &PostgresHintRepository{db: db}
}

// ReplaceForRelease swaps the release's hint set atomically: delete plus
// re-insert inside one transaction, so readers never observe a partial set.
func (r *PostgresHintRepository) ReplaceForRelease(ctx context.Context, releaseID uuid.UUID, hints []*entity.Hint) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM release_hints WHERE release_id = $1`, releaseID.String()); err != nil {
		return fmt.Errorf("failed to delete existing hints: %w", err)
	}

	if len(hints) > 0 {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO release_hints (`+hintColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, hint := range hints {
			model, err := hintToDBModel(hint)
			if err != nil {
				return fmt.Errorf("failed to convert to DB model: %w", err)
			}

			_, err = stmt.ExecContext(ctx,
				model.ID,
				model.ReleaseID,
				model.Metric,
				model.Severity,
				model.ObservedValue,
				model.Threshold,
				model.Confidence,
				model.Title,
				model.Diagnosis,
				model.SuggestedActions,
				model.CreatedAt,
			)
			if err != nil {
				return fmt.Errorf("failed to insert hint: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (r *PostgresHintRepository) List(ctx context.Context, filter repository.HintFilter) ([]*entity.Hint, error) {
	var (
		conditions []string
		args       []interface{}
	)

	arg := func(value interface{}) string {
		args = append(args, value)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.ReleaseID != nil {
		conditions = append(conditions, "release_id = "+arg(filter.ReleaseID.String()))
	}
	if filter.Severity != "" {
		conditions = append(conditions, "severity = "+arg(string(filter.Severity)))
	}
	if filter.Metric != "" {
		conditions = append(conditions, "metric = "+arg(filter.Metric))
	}
	if filter.MinConfidence > 0 {
		conditions = append(conditions, "confidence >= "+arg(filter.MinConfidence))
	}

	query := `SELECT ` + hintColumns + ` FROM release_hints`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC, confidence DESC"
	if filter.Limit > 0 {
		query += " LIMIT " + arg(filter.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query hints: %w", err)
	}
	defer rows.Close()

	var hints []*entity.Hint
	for rows.Next() {
		model, err := scanHintRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan hint row: %w", err)
		}

		hint, err := hintToEntity(model)
		if err != nil {
			return nil, fmt.Errorf("failed to convert to entity: %w", err)
		}

		hints = append(hints, hint)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return hints, nil
}
