package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/dreschagin/seqpulse/internal/domain/entity"
	"github.com/dreschagin/seqpulse/internal/domain/repository"
	"github.com/dreschagin/seqpulse/pkg/logger"
	"github.com/google/uuid"
)

type TriggerReleaseCommand struct {
	ProjectID       uuid.UUID
	Env             string
	MetricsEndpoint string
}

// TriggerReleaseUseCase starts a release: it validates the environment
// against the project's allow-list, records the release as running and, when
// a metrics endpoint is supplied, enqueues the pre-release collection job.
type TriggerReleaseUseCase struct {
	projects repository.ProjectRepository
	releases repository.ReleaseRepository
	jobs     repository.JobRepository
	logger   *logger.Logger
}

func NewTriggerReleaseUseCase(
	projects repository.ProjectRepository,
	releases repository.ReleaseRepository,
	jobs repository.JobRepository,
	log *logger.Logger,
) *TriggerReleaseUseCase {
	return &TriggerReleaseUseCase{
		projects: projects,
		releases: releases,
		jobs:     jobs,
		logger:   log,
	}
}

func (uc *TriggerReleaseUseCase) Execute(ctx context.Context, cmd TriggerReleaseCommand) (*entity.Release, error) {
	project, err := uc.projects.GetByID(ctx, cmd.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("load project %s: %w", cmd.ProjectID, err)
	}

	if !project.AllowsEnv(cmd.Env) {
		return nil, fmt.Errorf("environment %q is not allowed for project %s", cmd.Env, project.ID)
	}

	release := entity.NewRelease(project.ID, cmd.Env)
	if err := uc.releases.Create(ctx, release); err != nil {
		return nil, fmt.Errorf("create release: %w", err)
	}

	if cmd.MetricsEndpoint != "" {
		job, err := entity.NewCollectJob(entity.JobKindPreCollect, release.ID, entity.PhasePre, nil, time.Now().UTC(), entity.CollectPayload{
			TargetURL:     cmd.MetricsEndpoint,
			UseSigning:    project.SigningEnabled,
			SigningSecret: project.SigningSecret,
			ProjectID:     project.ID,
		})
		if err != nil {
			return nil, err
		}
		if err := uc.jobs.Create(ctx, job); err != nil {
			return nil, fmt.Errorf("enqueue pre-collection job: %w", err)
		}

		uc.logger.Info("Pre-collection job scheduled",
			"job_id", job.ID.String(),
			"release_id", release.ID.String(),
			"use_signing", project.SigningEnabled,
		)
	}

	uc.logger.Info("Release started",
		"release_id", release.ID.String(),
		"project_id", project.ID.String(),
		"env", cmd.Env,
	)

	return release, nil
}
