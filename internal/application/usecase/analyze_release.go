package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/dreschagin/seqpulse/internal/application/dto"
	"github.com/dreschagin/seqpulse/internal/application/port"
	"github.com/dreschagin/seqpulse/internal/domain/entity"
	"github.com/dreschagin/seqpulse/internal/domain/repository"
	"github.com/dreschagin/seqpulse/internal/domain/service"
	"github.com/dreschagin/seqpulse/pkg/logger"
	"github.com/google/uuid"
)

// AnalyzeReleaseUseCase turns a finished release's samples into a verdict,
// exactly once. Creating the verdict row is the single trigger for every
// downstream side effect: hint regeneration, event publication, notification
// scheduling. A retried analysis job finds the verdict already present and
// does none of them again.
type AnalyzeReleaseUseCase struct {
	releases repository.ReleaseRepository
	samples  repository.SampleRepository
	verdicts repository.VerdictRepository
	hints    repository.HintRepository
	jobs     repository.JobRepository

	analyzer  *service.HealthAnalyzer
	generator *service.HintGenerator

	cache  port.Cache
	events port.EventPublisher
	stats  port.StatsPublisher

	eventSubject string
	logger       *logger.Logger
}

type AnalyzeReleaseOptions struct {
	Cache        port.Cache
	Events       port.EventPublisher
	Stats        port.StatsPublisher
	EventSubject string
}

func NewAnalyzeReleaseUseCase(
	releases repository.ReleaseRepository,
	samples repository.SampleRepository,
	verdicts repository.VerdictRepository,
	hints repository.HintRepository,
	jobs repository.JobRepository,
	analyzer *service.HealthAnalyzer,
	generator *service.HintGenerator,
	opts AnalyzeReleaseOptions,
	log *logger.Logger,
) *AnalyzeReleaseUseCase {
	return &AnalyzeReleaseUseCase{
		releases:     releases,
		samples:      samples,
		verdicts:     verdicts,
		hints:        hints,
		jobs:         jobs,
		analyzer:     analyzer,
		generator:    generator,
		cache:        opts.Cache,
		events:       opts.Events,
		stats:        opts.Stats,
		eventSubject: opts.EventSubject,
		logger:       log,
	}
}

// Execute analyzes one release. It returns whether analysis actually ran:
// false means the release was not in the finished state.
func (uc *AnalyzeReleaseUseCase) Execute(ctx context.Context, releaseID uuid.UUID) (bool, error) {
	release, err := uc.releases.GetByID(ctx, releaseID)
	if err != nil {
		return false, fmt.Errorf("load release %s: %w", releaseID, err)
	}

	if release.State != entity.ReleaseFinished {
		uc.logger.Debug("Release not in finished state, skipping analysis",
			"release_id", releaseID.String(),
			"state", string(release.State),
		)
		return false, nil
	}

	preSamples, err := uc.samples.ListByPhase(ctx, releaseID, entity.PhasePre)
	if err != nil {
		return false, fmt.Errorf("load pre samples: %w", err)
	}
	postSamples, err := uc.samples.ListByPhase(ctx, releaseID, entity.PhasePost)
	if err != nil {
		return false, fmt.Errorf("load post samples: %w", err)
	}

	// Missing data is a defined terminal outcome, not an error.
	if len(preSamples) == 0 || len(postSamples) == 0 {
		verdict := entity.NewVerdict(releaseID, entity.VerdictWarning, 0.4,
			"Insufficient metrics to assess release health", nil)
		created, err := uc.verdicts.CreateIfAbsent(ctx, verdict)
		if err != nil {
			return false, fmt.Errorf("create verdict: %w", err)
		}
		if created {
			uc.publishStats(ctx, verdict)
		}
		if err := uc.releases.UpdateState(ctx, releaseID, entity.ReleaseAnalyzed); err != nil {
			return false, fmt.Errorf("transition release to analyzed: %w", err)
		}

		uc.logger.Warn("Release analyzed with insufficient data",
			"release_id", releaseID.String(),
			"pre_samples", len(preSamples),
			"post_samples", len(postSamples),
		)
		return true, nil
	}

	pre := uc.analyzer.Baseline(preSamples)
	post := uc.analyzer.AggregatePost(postSamples)
	flags := uc.analyzer.EvaluateFlags(pre, post)
	value, confidence, summary := uc.analyzer.Classify(flags)

	verdict := entity.NewVerdict(releaseID, value, confidence, summary, flags)
	created, err := uc.verdicts.CreateIfAbsent(ctx, verdict)
	if err != nil {
		return false, fmt.Errorf("create verdict: %w", err)
	}

	if created {
		hintsAt := latestCollectedAt(postSamples)
		hints := uc.generator.Generate(releaseID, pre, post, hintsAt)
		if err := uc.hints.ReplaceForRelease(ctx, releaseID, hints); err != nil {
			return false, fmt.Errorf("replace hints: %w", err)
		}

		uc.invalidateHintCache(ctx, releaseID)
		uc.publishVerdictEvent(ctx, release, verdict, len(hints))
		uc.publishStats(ctx, verdict)

		if err := uc.scheduleNotification(ctx, release, verdict); err != nil {
			// Notification is best-effort; the verdict stands either way.
			uc.logger.Error("Failed to schedule verdict notification", err,
				"release_id", releaseID.String(),
			)
		}

		uc.logger.Info("Verdict created",
			"release_id", releaseID.String(),
			"verdict", string(value),
			"confidence", confidence,
			"flags", len(flags),
			"hints", len(hints),
		)
	} else {
		uc.logger.Info("Verdict already exists, analysis is a no-op",
			"release_id", releaseID.String(),
		)
	}

	if err := uc.releases.UpdateState(ctx, releaseID, entity.ReleaseAnalyzed); err != nil {
		return false, fmt.Errorf("transition release to analyzed: %w", err)
	}

	return true, nil
}

func (uc *AnalyzeReleaseUseCase) invalidateHintCache(ctx context.Context, releaseID uuid.UUID) {
	if uc.cache == nil {
		return
	}
	if err := uc.cache.DeletePattern(ctx, "hints:"+releaseID.String()+":*"); err != nil {
		uc.logger.Warn("Failed to invalidate hint cache", "release_id", releaseID.String(), "error", err.Error())
	}
}

func (uc *AnalyzeReleaseUseCase) publishVerdictEvent(ctx context.Context, release *entity.Release, verdict *entity.Verdict, hintCount int) {
	if uc.events == nil {
		return
	}

	event := dto.VerdictCreatedEvent{
		ReleaseID:  release.ID.String(),
		ProjectID:  release.ProjectID.String(),
		Env:        release.Env,
		Verdict:    string(verdict.Verdict),
		Confidence: verdict.Confidence,
		Summary:    verdict.Summary,
		Details:    verdict.Details,
		HintCount:  hintCount,
		CreatedAt:  verdict.CreatedAt,
	}

	if err := uc.events.PublishEvent(ctx, uc.eventSubject, event); err != nil {
		uc.logger.Error("Failed to publish verdict event", err,
			"release_id", release.ID.String(),
		)
	}
}

func (uc *AnalyzeReleaseUseCase) publishStats(ctx context.Context, verdict *entity.Verdict) {
	if uc.stats == nil {
		return
	}
	uc.stats.Count(ctx, "VerdictsCreated", 1, map[string]string{
		"Verdict": string(verdict.Verdict),
	})
}

func (uc *AnalyzeReleaseUseCase) scheduleNotification(ctx context.Context, release *entity.Release, verdict *entity.Verdict) error {
	job, err := entity.NewNotifyJob(time.Now().UTC(), entity.NotifyPayload{
		NotificationType: "verdict_ready",
		DedupeKey:        "verdict-ready:" + release.ID.String(),
		Context: map[string]string{
			"release_id": release.ID.String(),
			"verdict":    string(verdict.Verdict),
			"summary":    verdict.Summary,
		},
	})
	if err != nil {
		return err
	}

	created, err := uc.jobs.CreateDeduped(ctx, job)
	if err != nil {
		return err
	}
	if !created {
		uc.logger.Debug("Verdict notification already scheduled",
			"release_id", release.ID.String(),
		)
	}
	return nil
}

func latestCollectedAt(samples []*entity.MetricSample) time.Time {
	latest := time.Now().UTC()
	for i, s := range samples {
		if i == 0 || s.CollectedAt.After(latest) {
			latest = s.CollectedAt
		}
	}
	return latest
}
