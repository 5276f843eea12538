package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/dreschagin/seqpulse/internal/application/usecase"
	"github.com/dreschagin/seqpulse/internal/domain/entity"
	"github.com/dreschagin/seqpulse/internal/domain/repository"
	"github.com/dreschagin/seqpulse/pkg/logger"
	"github.com/google/uuid"
)

const maxRequestBodyBytes = 64 * 1024

// PipelineAPIHandler is the control surface CI pipelines call: start a
// release, finish it, read the verdict and hints back. It is not a product
// UI; responses are plain JSON for machines.
type PipelineAPIHandler struct {
	trigger   *usecase.TriggerReleaseUseCase
	finish    *usecase.FinishReleaseUseCase
	listHints *usecase.ListHintsUseCase
	verdicts  repository.VerdictRepository
	logger    *logger.Logger
}

func NewPipelineAPIHandler(
	trigger *usecase.TriggerReleaseUseCase,
	finish *usecase.FinishReleaseUseCase,
	listHints *usecase.ListHintsUseCase,
	verdicts repository.VerdictRepository,
	log *logger.Logger,
) *PipelineAPIHandler {
	return &PipelineAPIHandler{
		trigger:   trigger,
		finish:    finish,
		listHints: listHints,
		verdicts:  verdicts,
		logger:    log,
	}
}

// Register mounts the API routes on the mux.
func (h *PipelineAPIHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/releases", h.TriggerRelease)
	mux.HandleFunc("POST /api/v1/releases/{id}/finish", h.FinishRelease)
	mux.HandleFunc("GET /api/v1/releases/{id}/verdict", h.GetVerdict)
	mux.HandleFunc("GET /api/v1/hints", h.ListHints)
}

type triggerReleaseRequest struct {
	ProjectID       string `json:"project_id"`
	Env             string `json:"env"`
	MetricsEndpoint string `json:"metrics_endpoint,omitempty"`
}

type releaseResponse struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	Env       string    `json:"env"`
	State     string    `json:"state"`
	StartedAt time.Time `json:"started_at"`
}

func (h *PipelineAPIHandler) TriggerRelease(w http.ResponseWriter, r *http.Request) {
	var req triggerReleaseRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	projectID, err := uuid.Parse(req.ProjectID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid project_id"})
		return
	}
	if req.Env == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "env is required"})
		return
	}

	release, err := h.trigger.Execute(r.Context(), usecase.TriggerReleaseCommand{
		ProjectID:       projectID,
		Env:             req.Env,
		MetricsEndpoint: req.MetricsEndpoint,
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "project not found"})
			return
		}
		h.logger.Error("Failed to trigger release", err, "project_id", req.ProjectID)
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusCreated, releaseResponse{
		ID:        release.ID.String(),
		ProjectID: release.ProjectID.String(),
		Env:       release.Env,
		State:     string(release.State),
		StartedAt: release.StartedAt,
	})
}

type finishReleaseRequest struct {
	Result          string `json:"result"`
	MetricsEndpoint string `json:"metrics_endpoint,omitempty"`
}

func (h *PipelineAPIHandler) FinishRelease(w http.ResponseWriter, r *http.Request) {
	releaseID, ok := h.pathUUID(w, r)
	if !ok {
		return
	}

	var req finishReleaseRequest
	if !h.decodeBody(w, r, &req) {
		return
	}
	if req.Result == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "result is required"})
		return
	}

	err := h.finish.Execute(r.Context(), usecase.FinishReleaseCommand{
		ReleaseID:       releaseID,
		Result:          req.Result,
		MetricsEndpoint: req.MetricsEndpoint,
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "release not found"})
			return
		}
		h.logger.Error("Failed to finish release", err, "release_id", releaseID.String())
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to finish release"})
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "observation scheduled"})
}

type verdictResponse struct {
	ReleaseID  string    `json:"release_id"`
	Verdict    string    `json:"verdict"`
	Confidence float64   `json:"confidence"`
	Summary    string    `json:"summary"`
	Details    []string  `json:"details"`
	CreatedAt  time.Time `json:"created_at"`
}

func (h *PipelineAPIHandler) GetVerdict(w http.ResponseWriter, r *http.Request) {
	releaseID, ok := h.pathUUID(w, r)
	if !ok {
		return
	}

	verdict, err := h.verdicts.GetByRelease(r.Context(), releaseID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "no verdict yet"})
			return
		}
		h.logger.Error("Failed to load verdict", err, "release_id", releaseID.String())
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load verdict"})
		return
	}

	writeJSON(w, http.StatusOK, verdictResponse{
		ReleaseID:  verdict.ReleaseID.String(),
		Verdict:    string(verdict.Verdict),
		Confidence: verdict.Confidence,
		Summary:    verdict.Summary,
		Details:    verdict.Details,
		CreatedAt:  verdict.CreatedAt,
	})
}

type hintResponse struct {
	ID               string    `json:"id"`
	ReleaseID        string    `json:"release_id"`
	Metric           string    `json:"metric"`
	Severity         string    `json:"severity"`
	ObservedValue    *float64  `json:"observed_value,omitempty"`
	Threshold        *float64  `json:"threshold,omitempty"`
	Confidence       float64   `json:"confidence"`
	Title            string    `json:"title"`
	Diagnosis        string    `json:"diagnosis"`
	SuggestedActions []string  `json:"suggested_actions"`
	CreatedAt        time.Time `json:"created_at"`
}

func (h *PipelineAPIHandler) ListHints(w http.ResponseWriter, r *http.Request) {
	filter, err := hintFilterFromQuery(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	hints, err := h.listHints.Execute(r.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to list hints", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list hints"})
		return
	}

	out := make([]hintResponse, 0, len(hints))
	for _, hint := range hints {
		out = append(out, hintResponse{
			ID:               hint.ID.String(),
			ReleaseID:        hint.ReleaseID.String(),
			Metric:           hint.Metric,
			Severity:         string(hint.Severity),
			ObservedValue:    hint.ObservedValue,
			Threshold:        hint.Threshold,
			Confidence:       hint.Confidence,
			Title:            hint.Title,
			Diagnosis:        hint.Diagnosis,
			SuggestedActions: hint.SuggestedActions,
			CreatedAt:        hint.CreatedAt,
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"hints": out})
}

func hintFilterFromQuery(r *http.Request) (repository.HintFilter, error) {
	var filter repository.HintFilter
	q := r.URL.Query()

	if raw := q.Get("release_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return filter, errors.New("invalid release_id")
		}
		filter.ReleaseID = &id
	}
	if raw := q.Get("severity"); raw != "" {
		filter.Severity = entity.HintSeverity(raw)
	}
	filter.Metric = q.Get("metric")
	if raw := q.Get("min_confidence"); raw != "" {
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return filter, errors.New("invalid min_confidence")
		}
		filter.MinConfidence = value
	}
	if raw := q.Get("limit"); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value < 0 {
			return filter, errors.New("invalid limit")
		}
		filter.Limit = value
	}

	return filter, nil
}

func (h *PipelineAPIHandler) pathUUID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid release id"})
		return uuid.UUID{}, false
	}
	return id, true
}

func (h *PipelineAPIHandler) decodeBody(w http.ResponseWriter, r *http.Request, dest interface{}) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
	if err := decoder.Decode(dest); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
