package repository

import (
	"context"
	"errors"

	"github.com/dreschagin/seqpulse/internal/domain/entity"
	"github.com/google/uuid"
)

var ErrNotFound = errors.New("not found")

type ReleaseRepository interface {
	Create(ctx context.Context, release *entity.Release) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Release, error)

	// Finish persists the finished_at/duration/result fields set by
	// entity.Release.Finish.
	Finish(ctx context.Context, release *entity.Release) error

	UpdateState(ctx context.Context, id uuid.UUID, state entity.ReleaseState) error
}

type ProjectRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Project, error)
}
