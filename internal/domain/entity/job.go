package entity

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type JobKind string

const (
	JobKindPreCollect  JobKind = "pre_collect"
	JobKindPostCollect JobKind = "post_collect"
	JobKindAnalysis    JobKind = "analysis"
	JobKindNotify      JobKind = "notify"
)

type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

type Phase string

const (
	PhasePre  Phase = "pre"
	PhasePost Phase = "post"
)

// Job is one durable unit of scheduled work. Jobs are never deleted; failed
// and completed rows stay behind for audit.
type Job struct {
	ID            uuid.UUID
	ReleaseID     *uuid.UUID
	Kind          JobKind
	Phase         Phase
	SequenceIndex *int
	ScheduledAt   time.Time
	Status        JobStatus
	RetryCount    int
	LastError     string
	DedupeKey     string
	Metadata      json.RawMessage
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// CollectPayload parameterizes pre_collect and post_collect jobs.
type CollectPayload struct {
	TargetURL     string    `json:"target_url"`
	UseSigning    bool      `json:"use_signing"`
	SigningSecret string    `json:"signing_secret,omitempty"`
	ProjectID     uuid.UUID `json:"project_id"`
}

// NotifyPayload parameterizes notify jobs.
type NotifyPayload struct {
	UserID           uuid.UUID         `json:"user_id"`
	ToAddress        string            `json:"to_address"`
	NotificationType string            `json:"notification_type"`
	DedupeKey        string            `json:"dedupe_key"`
	Context          map[string]string `json:"context,omitempty"`
}

func newJob(kind JobKind, releaseID *uuid.UUID, scheduledAt time.Time) *Job {
	now := time.Now().UTC()
	return &Job{
		ID:          uuid.New(),
		ReleaseID:   releaseID,
		Kind:        kind,
		ScheduledAt: scheduledAt,
		Status:      JobPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func NewCollectJob(kind JobKind, releaseID uuid.UUID, phase Phase, sequenceIndex *int, scheduledAt time.Time, payload CollectPayload) (*Job, error) {
	if kind != JobKindPreCollect && kind != JobKindPostCollect {
		return nil, fmt.Errorf("kind %q is not a collection job", kind)
	}

	metadata, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode collect payload: %w", err)
	}

	job := newJob(kind, &releaseID, scheduledAt)
	job.Phase = phase
	job.SequenceIndex = sequenceIndex
	job.Metadata = metadata
	return job, nil
}

func NewAnalysisJob(releaseID uuid.UUID, scheduledAt time.Time) *Job {
	return newJob(JobKindAnalysis, &releaseID, scheduledAt)
}

// NewNotifyJob builds a notify job. Notify jobs are not release-scoped; the
// release, when relevant, travels inside the payload context.
func NewNotifyJob(scheduledAt time.Time, payload NotifyPayload) (*Job, error) {
	metadata, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode notify payload: %w", err)
	}

	job := newJob(JobKindNotify, nil, scheduledAt)
	job.DedupeKey = payload.DedupeKey
	job.Metadata = metadata
	return job, nil
}

// DecodeCollectPayload decodes the metadata of a collection job. Decoding
// happens at dispatch time so a malformed payload surfaces as a job error,
// not a scheduling error.
func (j *Job) DecodeCollectPayload() (CollectPayload, error) {
	var payload CollectPayload
	if j.Kind != JobKindPreCollect && j.Kind != JobKindPostCollect {
		return payload, fmt.Errorf("job %s has kind %q, not a collection job", j.ID, j.Kind)
	}
	if len(j.Metadata) == 0 {
		return payload, fmt.Errorf("job %s has no metadata", j.ID)
	}
	if err := json.Unmarshal(j.Metadata, &payload); err != nil {
		return payload, fmt.Errorf("decode collect payload for job %s: %w", j.ID, err)
	}
	if payload.TargetURL == "" {
		return payload, fmt.Errorf("job %s has no target_url in metadata", j.ID)
	}
	return payload, nil
}

func (j *Job) DecodeNotifyPayload() (NotifyPayload, error) {
	var payload NotifyPayload
	if j.Kind != JobKindNotify {
		return payload, fmt.Errorf("job %s has kind %q, not a notify job", j.ID, j.Kind)
	}
	if len(j.Metadata) == 0 {
		return payload, fmt.Errorf("job %s has no metadata", j.ID)
	}
	if err := json.Unmarshal(j.Metadata, &payload); err != nil {
		return payload, fmt.Errorf("decode notify payload for job %s: %w", j.ID, err)
	}
	return payload, nil
}
