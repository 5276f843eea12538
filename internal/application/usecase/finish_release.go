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

// PostCollectionInterval is the spacing between post-release collection jobs.
const PostCollectionInterval = 60 * time.Second

type FinishReleaseCommand struct {
	ReleaseID       uuid.UUID
	Result          string
	MetricsEndpoint string
}

// FinishReleaseUseCase closes a release and schedules the observation burst:
// N post-collection jobs spaced at a fixed interval plus one analysis job
// after the plan's delay. The jobs run asynchronously; this call never blocks
// on collection.
type FinishReleaseUseCase struct {
	projects repository.ProjectRepository
	releases repository.ReleaseRepository
	jobs     repository.JobRepository
	logger   *logger.Logger
}

func NewFinishReleaseUseCase(
	projects repository.ProjectRepository,
	releases repository.ReleaseRepository,
	jobs repository.JobRepository,
	log *logger.Logger,
) *FinishReleaseUseCase {
	return &FinishReleaseUseCase{
		projects: projects,
		releases: releases,
		jobs:     jobs,
		logger:   log,
	}
}

func (uc *FinishReleaseUseCase) Execute(ctx context.Context, cmd FinishReleaseCommand) error {
	release, err := uc.releases.GetByID(ctx, cmd.ReleaseID)
	if err != nil {
		return fmt.Errorf("load release %s: %w", cmd.ReleaseID, err)
	}

	project, err := uc.projects.GetByID(ctx, release.ProjectID)
	if err != nil {
		return fmt.Errorf("load project %s: %w", release.ProjectID, err)
	}

	now := time.Now().UTC()
	release.Finish(cmd.Result, now)
	if err := uc.releases.Finish(ctx, release); err != nil {
		return fmt.Errorf("finish release: %w", err)
	}

	if cmd.MetricsEndpoint != "" {
		if err := uc.schedulePostCollection(ctx, release, project, cmd.MetricsEndpoint, now); err != nil {
			return err
		}
	}

	analysisJob := entity.NewAnalysisJob(release.ID, now.Add(project.Plan.AnalysisDelay()))
	if err := uc.jobs.Create(ctx, analysisJob); err != nil {
		return fmt.Errorf("enqueue analysis job: %w", err)
	}

	uc.logger.Info("Analysis job scheduled",
		"job_id", analysisJob.ID.String(),
		"release_id", release.ID.String(),
		"scheduled_at", analysisJob.ScheduledAt.Format(time.RFC3339),
		"delay", project.Plan.AnalysisDelay().String(),
	)

	return nil
}

func (uc *FinishReleaseUseCase) schedulePostCollection(ctx context.Context, release *entity.Release, project *entity.Project, endpoint string, now time.Time) error {
	payload := entity.CollectPayload{
		TargetURL:     endpoint,
		UseSigning:    project.SigningEnabled,
		SigningSecret: project.SigningSecret,
		ProjectID:     project.ID,
	}

	window := project.Plan.ObservationWindow()
	jobs := make([]*entity.Job, 0, window)
	for index := 0; index < window; index++ {
		sequence := index
		job, err := entity.NewCollectJob(
			entity.JobKindPostCollect,
			release.ID,
			entity.PhasePost,
			&sequence,
			now.Add(time.Duration(index)*PostCollectionInterval),
			payload,
		)
		if err != nil {
			return err
		}
		jobs = append(jobs, job)
	}

	if err := uc.jobs.CreateBatch(ctx, jobs); err != nil {
		return fmt.Errorf("enqueue post-collection jobs: %w", err)
	}

	uc.logger.Info("Post-collection jobs scheduled",
		"release_id", release.ID.String(),
		"jobs_count", len(jobs),
		"observation_window", window,
		"use_signing", project.SigningEnabled,
	)

	return nil
}
