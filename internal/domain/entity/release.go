package entity

import (
	"time"

	"github.com/google/uuid"
)

// ReleaseState tracks a release through its lifecycle:
// pending -> running -> finished -> analyzed.
type ReleaseState string

const (
	ReleasePending  ReleaseState = "pending"
	ReleaseRunning  ReleaseState = "running"
	ReleaseFinished ReleaseState = "finished"
	ReleaseAnalyzed ReleaseState = "analyzed"
)

// Release is one versioned rollout of a project to an environment.
type Release struct {
	ID             uuid.UUID
	ProjectID      uuid.UUID
	Env            string
	State          ReleaseState
	PipelineResult string
	StartedAt      time.Time
	FinishedAt     *time.Time
	DurationMS     *int64
	CreatedAt      time.Time
}

func NewRelease(projectID uuid.UUID, env string) *Release {
	now := time.Now().UTC()
	return &Release{
		ID:        uuid.New(),
		ProjectID: projectID,
		Env:       env,
		State:     ReleaseRunning,
		StartedAt: now,
		CreatedAt: now,
	}
}

// Finish stamps the release as finished and records its duration.
func (r *Release) Finish(result string, finishedAt time.Time) {
	r.PipelineResult = result
	r.State = ReleaseFinished
	r.FinishedAt = &finishedAt

	if !r.StartedAt.IsZero() {
		durationMS := finishedAt.Sub(r.StartedAt).Milliseconds()
		r.DurationMS = &durationMS
	}
}
