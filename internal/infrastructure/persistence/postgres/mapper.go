package postgres

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dreschagin/seqpulse/internal/domain/entity"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// rowScanner abstracts *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// JobDBModel represents a scheduled job row.
type JobDBModel struct {
	ID            string
	ReleaseID     sql.NullString
	Kind          string
	Phase         sql.NullString
	SequenceIndex sql.NullInt64
	ScheduledAt   time.Time
	Status        string
	RetryCount    int
	LastError     sql.NullString
	DedupeKey     sql.NullString
	Metadata      []byte
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func jobToDBModel(job *entity.Job) *JobDBModel {
	model := &JobDBModel{
		ID:          job.ID.String(),
		Kind:        string(job.Kind),
		ScheduledAt: job.ScheduledAt,
		Status:      string(job.Status),
		RetryCount:  job.RetryCount,
		Metadata:    job.Metadata,
		CreatedAt:   job.CreatedAt,
		UpdatedAt:   job.UpdatedAt,
	}
	if job.ReleaseID != nil {
		model.ReleaseID = sql.NullString{String: job.ReleaseID.String(), Valid: true}
	}
	if job.Phase != "" {
		model.Phase = sql.NullString{String: string(job.Phase), Valid: true}
	}
	if job.SequenceIndex != nil {
		model.SequenceIndex = sql.NullInt64{Int64: int64(*job.SequenceIndex), Valid: true}
	}
	if job.LastError != "" {
		model.LastError = sql.NullString{String: job.LastError, Valid: true}
	}
	if job.DedupeKey != "" {
		model.DedupeKey = sql.NullString{String: job.DedupeKey, Valid: true}
	}
	return model
}

func jobToEntity(model *JobDBModel) (*entity.Job, error) {
	id, err := uuid.Parse(model.ID)
	if err != nil {
		return nil, fmt.Errorf("parse job id: %w", err)
	}

	job := &entity.Job{
		ID:          id,
		Kind:        entity.JobKind(model.Kind),
		ScheduledAt: model.ScheduledAt,
		Status:      entity.JobStatus(model.Status),
		RetryCount:  model.RetryCount,
		Metadata:    json.RawMessage(model.Metadata),
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
	if model.ReleaseID.Valid {
		releaseID, err := uuid.Parse(model.ReleaseID.String)
		if err != nil {
			return nil, fmt.Errorf("parse job release id: %w", err)
		}
		job.ReleaseID = &releaseID
	}
	if model.Phase.Valid {
		job.Phase = entity.Phase(model.Phase.String)
	}
	if model.SequenceIndex.Valid {
		idx := int(model.SequenceIndex.Int64)
		job.SequenceIndex = &idx
	}
	if model.LastError.Valid {
		job.LastError = model.LastError.String
	}
	if model.DedupeKey.Valid {
		job.DedupeKey = model.DedupeKey.String
	}
	return job, nil
}

func scanJobRow(row rowScanner) (*JobDBModel, error) {
	var model JobDBModel
	err := row.Scan(
		&model.ID,
		&model.ReleaseID,
		&model.Kind,
		&model.Phase,
		&model.SequenceIndex,
		&model.ScheduledAt,
		&model.Status,
		&model.RetryCount,
		&model.LastError,
		&model.DedupeKey,
		&model.Metadata,
		&model.CreatedAt,
		&model.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &model, nil
}

// SampleDBModel represents a metric sample row.
type SampleDBModel struct {
	ID             string
	ReleaseID      string
	Phase          string
	RequestsPerSec float64
	LatencyP95     float64
	ErrorRate      float64
	CPUUsage       float64
	MemoryUsage    float64
	CollectedAt    time.Time
}

func sampleToEntity(model *SampleDBModel) (*entity.MetricSample, error) {
	id, err := uuid.Parse(model.ID)
	if err != nil {
		return nil, fmt.Errorf("parse sample id: %w", err)
	}
	releaseID, err := uuid.Parse(model.ReleaseID)
	if err != nil {
		return nil, fmt.Errorf("parse sample release id: %w", err)
	}

	return &entity.MetricSample{
		ID:        id,
		ReleaseID: releaseID,
		Phase:     entity.Phase(model.Phase),
		Gauges: entity.Gauges{
			RequestsPerSec: model.RequestsPerSec,
			LatencyP95:     model.LatencyP95,
			ErrorRate:      model.ErrorRate,
			CPUUsage:       model.CPUUsage,
			MemoryUsage:    model.MemoryUsage,
		},
		CollectedAt: model.CollectedAt,
	}, nil
}

func scanSampleRow(row rowScanner) (*SampleDBModel, error) {
	var model SampleDBModel
	err := row.Scan(
		&model.ID,
		&model.ReleaseID,
		&model.Phase,
		&model.RequestsPerSec,
		&model.LatencyP95,
		&model.ErrorRate,
		&model.CPUUsage,
		&model.MemoryUsage,
		&model.CollectedAt,
	)
	if err != nil {
		return nil, err
	}
	return &model, nil
}

// VerdictDBModel represents a release verdict row. Details is a JSON array.
type VerdictDBModel struct {
	ID         string
	ReleaseID  string
	Verdict    string
	Confidence float64
	Summary    string
	Details    []byte
	CreatedAt  time.Time
}

func verdictToDBModel(verdict *entity.Verdict) (*VerdictDBModel, error) {
	details, err := json.Marshal(verdict.Details)
	if err != nil {
		return nil, fmt.Errorf("encode verdict details: %w", err)
	}
	return &VerdictDBModel{
		ID:         verdict.ID.String(),
		ReleaseID:  verdict.ReleaseID.String(),
		Verdict:    string(verdict.Verdict),
		Confidence: verdict.Confidence,
		Summary:    verdict.Summary,
		Details:    details,
		CreatedAt:  verdict.CreatedAt,
	}, nil
}

func verdictToEntity(model *VerdictDBModel) (*entity.Verdict, error) {
	id, err := uuid.Parse(model.ID)
	if err != nil {
		return nil, fmt.Errorf("parse verdict id: %w", err)
	}
	releaseID, err := uuid.Parse(model.ReleaseID)
	if err != nil {
		return nil, fmt.Errorf("parse verdict release id: %w", err)
	}

	details := []string{}
	if len(model.Details) > 0 {
		if err := json.Unmarshal(model.Details, &details); err != nil {
			return nil, fmt.Errorf("decode verdict details: %w", err)
		}
	}

	return &entity.Verdict{
		ID:         id,
		ReleaseID:  releaseID,
		Verdict:    entity.VerdictValue(model.Verdict),
		Confidence: model.Confidence,
		Summary:    model.Summary,
		Details:    details,
		CreatedAt:  model.CreatedAt,
	}, nil
}

func scanVerdictRow(row rowScanner) (*VerdictDBModel, error) {
	var model VerdictDBModel
	err := row.Scan(
		&model.ID,
		&model.ReleaseID,
		&model.Verdict,
		&model.Confidence,
		&model.Summary,
		&model.Details,
		&model.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &model, nil
}

// HintDBModel represents a release hint row.
type HintDBModel struct {
	ID               string
	ReleaseID        string
	Metric           string
	Severity         string
	ObservedValue    sql.NullFloat64
	Threshold        sql.NullFloat64
	Confidence       float64
	Title            string
	Diagnosis        string
	SuggestedActions []byte
	CreatedAt        time.Time
}

func hintToDBModel(hint *entity.Hint) (*HintDBModel, error) {
	actions, err := json.Marshal(hint.SuggestedActions)
	if err != nil {
		return nil, fmt.Errorf("encode suggested actions: %w", err)
	}

	model := &HintDBModel{
		ID:               hint.ID.String(),
		ReleaseID:        hint.ReleaseID.String(),
		Metric:           hint.Metric,
		Severity:         string(hint.Severity),
		Confidence:       hint.Confidence,
		Title:            hint.Title,
		Diagnosis:        hint.Diagnosis,
		SuggestedActions: actions,
		CreatedAt:        hint.CreatedAt,
	}
	if hint.ObservedValue != nil {
		model.ObservedValue = sql.NullFloat64{Float64: *hint.ObservedValue, Valid: true}
	}
	if hint.Threshold != nil {
		model.Threshold = sql.NullFloat64{Float64: *hint.Threshold, Valid: true}
	}
	return model, nil
}

func hintToEntity(model *HintDBModel) (*entity.Hint, error) {
	id, err := uuid.Parse(model.ID)
	if err != nil {
		return nil, fmt.Errorf("parse hint id: %w", err)
	}
	releaseID, err := uuid.Parse(model.ReleaseID)
	if err != nil {
		return nil, fmt.Errorf("parse hint release id: %w", err)
	}

	actions := []string{}
	if len(model.SuggestedActions) > 0 {
		if err := json.Unmarshal(model.SuggestedActions, &actions); err != nil {
			return nil, fmt.Errorf("decode suggested actions: %w", err)
		}
	}

	hint := &entity.Hint{
		ID:               id,
		ReleaseID:        releaseID,
		Metric:           model.Metric,
		Severity:         entity.HintSeverity(model.Severity),
		Confidence:       model.Confidence,
		Title:            model.Title,
		Diagnosis:        model.Diagnosis,
		SuggestedActions: actions,
		CreatedAt:        model.CreatedAt,
	}
	if model.ObservedValue.Valid {
		v := model.ObservedValue.Float64
		hint.ObservedValue = &v
	}
	if model.Threshold.Valid {
		v := model.Threshold.Float64
		hint.Threshold = &v
	}
	return hint, nil
}

func scanHintRow(row rowScanner) (*HintDBModel, error) {
	var model HintDBModel
	err := row.Scan(
		&model.ID,
		&model.ReleaseID,
		&model.Metric,
		&model.Severity,
		&model.ObservedValue,
		&model.Threshold,
		&model.Confidence,
		&model.Title,
		&model.Diagnosis,
		&model.SuggestedActions,
		&model.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &model, nil
}

// ReleaseDBModel represents a release row.
type ReleaseDBModel struct {
	ID             string
	ProjectID      string
	Env            string
	State          string
	PipelineResult sql.NullString
	StartedAt      time.Time
	FinishedAt     sql.NullTime
	DurationMS     sql.NullInt64
	CreatedAt      time.Time
}

func releaseToEntity(model *ReleaseDBModel) (*entity.Release, error) {
	id, err := uuid.Parse(model.ID)
	if err != nil {
		return nil, fmt.Errorf("parse release id: %w", err)
	}
	projectID, err := uuid.Parse(model.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("parse release project id: %w", err)
	}

	release := &entity.Release{
		ID:        id,
		ProjectID: projectID,
		Env:       model.Env,
		State:     entity.ReleaseState(model.State),
		StartedAt: model.StartedAt,
		CreatedAt: model.CreatedAt,
	}
	if model.PipelineResult.Valid {
		release.PipelineResult = model.PipelineResult.String
	}
	if model.FinishedAt.Valid {
		t := model.FinishedAt.Time
		release.FinishedAt = &t
	}
	if model.DurationMS.Valid {
		d := model.DurationMS.Int64
		release.DurationMS = &d
	}
	return release, nil
}

func scanReleaseRow(row rowScanner) (*ReleaseDBModel, error) {
	var model ReleaseDBModel
	err := row.Scan(
		&model.ID,
		&model.ProjectID,
		&model.Env,
		&model.State,
		&model.PipelineResult,
		&model.StartedAt,
		&model.FinishedAt,
		&model.DurationMS,
		&model.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &model, nil
}

// ProjectDBModel represents a project row. AllowedEnvs is a text[] column.
type ProjectDBModel struct {
	ID             string
	Name           string
	Plan           string
	SigningEnabled bool
	SigningSecret  sql.NullString
	AllowedEnvs    pq.StringArray
}

func projectToEntity(model *ProjectDBModel) (*entity.Project, error) {
	id, err := uuid.Parse(model.ID)
	if err != nil {
		return nil, fmt.Errorf("parse project id: %w", err)
	}

	project := &entity.Project{
		ID:             id,
		Name:           model.Name,
		Plan:           entity.Plan(model.Plan),
		SigningEnabled: model.SigningEnabled,
		AllowedEnvs:    []string(model.AllowedEnvs),
	}
	if model.SigningSecret.Valid {
		project.SigningSecret = model.SigningSecret.String
	}
	return project, nil
}
