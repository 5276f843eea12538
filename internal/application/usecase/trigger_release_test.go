package usecase

import (
	"context"
	"testing"

	"github.com/dreschagin/seqpulse/internal/domain/entity"
	"github.com/dreschagin/seqpulse/pkg/logger"
	"github.com/google/uuid"
)

func TestTriggerReleaseCreatesRunningRelease(t *testing.T) {
	project := &entity.Project{
		ID:          uuid.New(),
		Plan:        entity.PlanFree,
		AllowedEnvs: []string{"staging", "prod"},
	}
	projects := &mockProjectRepo{projects: map[uuid.UUID]*entity.Project{project.ID: project}}
	releases := &mockReleaseRepo{}
	jobs := &mockJobRepo{}

	uc := NewTriggerReleaseUseCase(projects, releases, jobs, logger.New("error"))

	release, err := uc.Execute(context.Background(), TriggerReleaseCommand{
		ProjectID: project.ID,
		Env:       "prod",
	})
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}

	if release.State != entity.ReleaseRunning {
		t.Errorf("state = %q, want running", release.State)
	}
	if release.Env != "prod" {
		t.Errorf("env = %q, want prod", release.Env)
	}
	if len(releases.created) != 1 {
		t.Errorf("created releases = %d, want 1", len(releases.created))
	}
	if len(jobs.created) != 0 {
		t.Errorf("jobs = %d, want none without a metrics endpoint", len(jobs.created))
	}
}

func TestTriggerReleaseSchedulesPreCollection(t *testing.T) {
	project := &entity.Project{
		ID:             uuid.New(),
		SigningEnabled: true,
		SigningSecret:  "s3cret",
		AllowedEnvs:    []string{"prod"},
	}
	projects := &mockProjectRepo{projects: map[uuid.UUID]*entity.Project{project.ID: project}}
	releases := &mockReleaseRepo{}
	jobs := &mockJobRepo{}

	uc := NewTriggerReleaseUseCase(projects, releases, jobs, logger.New("error"))

	release, err := uc.Execute(context.Background(), TriggerReleaseCommand{
		ProjectID:       project.ID,
		Env:             "prod",
		MetricsEndpoint: "https://svc.example.com/metrics",
	})
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}

	if len(jobs.created) != 1 {
		t.Fatalf("jobs = %d, want the pre-collection job", len(jobs.created))
	}
	job := jobs.created[0]
	if job.Kind != entity.JobKindPreCollect {
		t.Errorf("kind = %q, want pre_collect", job.Kind)
	}
	if job.Phase != entity.PhasePre {
		t.Errorf("phase = %q, want pre", job.Phase)
	}
	if job.ReleaseID == nil || *job.ReleaseID != release.ID {
		t.Errorf("release id = %v, want %s", job.ReleaseID, release.ID)
	}
	payload, err := job.DecodeCollectPayload()
	if err != nil {
		t.Fatalf("payload: %v", err)
	}
	if payload.TargetURL != "https://svc.example.com/metrics" {
		t.Errorf("target url = %q", payload.TargetURL)
	}
	if !payload.UseSigning || payload.SigningSecret != "s3cret" {
		t.Errorf("payload = %+v, want signing carried over from the project", payload)
	}
}

func TestTriggerReleaseRejectsDisallowedEnv(t *testing.T) {
	project := &entity.Project{ID: uuid.New(), AllowedEnvs: []string{"staging"}}
	projects := &mockProjectRepo{projects: map[uuid.UUID]*entity.Project{project.ID: project}}
	releases := &mockReleaseRepo{}

	uc := NewTriggerReleaseUseCase(projects, releases, &mockJobRepo{}, logger.New("error"))

	if _, err := uc.Execute(context.Background(), TriggerReleaseCommand{ProjectID: project.ID, Env: "prod"}); err == nil {
		t.Fatal("expected an error for an environment outside the allow-list")
	}
	if len(releases.created) != 0 {
		t.Error("no release must be created for a rejected environment")
	}
}

func TestTriggerReleaseUnknownProject(t *testing.T) {
	uc := NewTriggerReleaseUseCase(&mockProjectRepo{}, &mockReleaseRepo{}, &mockJobRepo{}, logger.New("error"))
	if _, err := uc.Execute(context.Background(), TriggerReleaseCommand{ProjectID: uuid.New(), Env: "prod"}); err == nil {
		t.Fatal("expected an error for an unknown project")
	}
}
