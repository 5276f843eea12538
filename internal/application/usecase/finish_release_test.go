package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/dreschagin/seqpulse/internal/domain/entity"
	"github.com/dreschagin/seqpulse/pkg/logger"
	"github.com/google/uuid"
)

func TestFinishReleaseSchedulesObservationBurst(t *testing.T) {
	project := &entity.Project{
		ID:             uuid.New(),
		Plan:           entity.PlanPro,
		SigningEnabled: true,
		SigningSecret:  "s3cret",
		AllowedEnvs:    []string{"prod"},
	}
	release := entity.NewRelease(project.ID, "prod")

	projects := &mockProjectRepo{projects: map[uuid.UUID]*entity.Project{project.ID: project}}
	releases := &mockReleaseRepo{releases: map[uuid.UUID]*entity.Release{release.ID: release}}
	jobs := &mockJobRepo{}

	uc := NewFinishReleaseUseCase(projects, releases, jobs, logger.New("error"))

	err := uc.Execute(context.Background(), FinishReleaseCommand{
		ReleaseID:       release.ID,
		Result:          "success",
		MetricsEndpoint: "https://svc.example.com/metrics",
	})
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}

	if len(releases.finished) != 1 {
		t.Fatalf("finished releases = %d, want 1", len(releases.finished))
	}
	if release.State != entity.ReleaseFinished {
		t.Errorf("state = %q, want finished", release.State)
	}
	if release.PipelineResult != "success" {
		t.Errorf("pipeline result = %q, want success", release.PipelineResult)
	}
	if release.FinishedAt == nil || release.DurationMS == nil {
		t.Error("finish must stamp finished_at and duration")
	}

	// Pro plan buys five post samples spaced one minute apart.
	if len(jobs.batches) != 1 {
		t.Fatalf("batches = %d, want 1", len(jobs.batches))
	}
	burst := jobs.batches[0]
	if len(burst) != 5 {
		t.Fatalf("post-collection jobs = %d, want 5", len(burst))
	}
	for i, job := range burst {
		if job.Kind != entity.JobKindPostCollect {
			t.Errorf("job[%d].Kind = %q", i, job.Kind)
		}
		if job.Phase != entity.PhasePost {
			t.Errorf("job[%d].Phase = %q", i, job.Phase)
		}
		if job.SequenceIndex == nil || *job.SequenceIndex != i {
			t.Errorf("job[%d].SequenceIndex = %v, want %d", i, job.SequenceIndex, i)
		}
		if i > 0 {
			gap := job.ScheduledAt.Sub(burst[i-1].ScheduledAt)
			if gap != PostCollectionInterval {
				t.Errorf("gap between job %d and %d = %v, want %v", i-1, i, gap, PostCollectionInterval)
			}
		}
		payload, err := job.DecodeCollectPayload()
		if err != nil {
			t.Fatalf("job[%d] payload: %v", i, err)
		}
		if !payload.UseSigning || payload.SigningSecret != "s3cret" {
			t.Errorf("job[%d] payload = %+v, want signing enabled", i, payload)
		}
	}

	if len(jobs.created) != 1 {
		t.Fatalf("individually created jobs = %d, want the analysis job", len(jobs.created))
	}
	analysis := jobs.created[0]
	if analysis.Kind != entity.JobKindAnalysis {
		t.Errorf("kind = %q, want analysis", analysis.Kind)
	}
	delay := analysis.ScheduledAt.Sub(*release.FinishedAt)
	if delay != 7*time.Minute {
		t.Errorf("analysis delay = %v, want 7m for the pro plan", delay)
	}
}

func TestFinishReleaseWithoutEndpointSkipsCollection(t *testing.T) {
	project := &entity.Project{ID: uuid.New(), Plan: entity.PlanFree}
	release := entity.NewRelease(project.ID, "prod")

	projects := &mockProjectRepo{projects: map[uuid.UUID]*entity.Project{project.ID: project}}
	releases := &mockReleaseRepo{releases: map[uuid.UUID]*entity.Release{release.ID: release}}
	jobs := &mockJobRepo{}

	uc := NewFinishReleaseUseCase(projects, releases, jobs, logger.New("error"))

	err := uc.Execute(context.Background(), FinishReleaseCommand{ReleaseID: release.ID, Result: "failed"})
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}

	if len(jobs.batches) != 0 {
		t.Errorf("batches = %d, want 0 without a metrics endpoint", len(jobs.batches))
	}
	// Analysis still runs so the release reaches a terminal verdict.
	if len(jobs.created) != 1 || jobs.created[0].Kind != entity.JobKindAnalysis {
		t.Errorf("created jobs = %v, want exactly the analysis job", jobs.created)
	}
}

func TestFinishReleaseUnknownRelease(t *testing.T) {
	uc := NewFinishReleaseUseCase(
		&mockProjectRepo{},
		&mockReleaseRepo{releases: map[uuid.UUID]*entity.Release{}},
		&mockJobRepo{},
		logger.New("error"),
	)

	if err := uc.Execute(context.Background(), FinishReleaseCommand{ReleaseID: uuid.New()}); err == nil {
		t.Fatal("expected an error for an unknown release")
	}
}
