package entity

import (
	"time"

	"github.com/google/uuid"
)

// Gauges is one snapshot of the five operational gauges every analysis is
// built on. It doubles as the aggregate type: a mean of samples is itself a
// valid Gauges value.
type Gauges struct {
	RequestsPerSec float64 `json:"requests_per_sec"`
	LatencyP95     float64 `json:"latency_p95"`
	ErrorRate      float64 `json:"error_rate"`
	CPUUsage       float64 `json:"cpu_usage"`
	MemoryUsage    float64 `json:"memory_usage"`
}

// MetricSample is one observation of the gauges for a release phase.
// Samples are immutable once stored; (release, phase, collected_at) is unique
// so a retried collection job cannot double-ingest.
type MetricSample struct {
	ID          uuid.UUID
	ReleaseID   uuid.UUID
	Phase       Phase
	Gauges      Gauges
	CollectedAt time.Time
}

func NewMetricSample(releaseID uuid.UUID, phase Phase, gauges Gauges, collectedAt time.Time) *MetricSample {
	return &MetricSample{
		ID:          uuid.New(),
		ReleaseID:   releaseID,
		Phase:       phase,
		Gauges:      gauges,
		CollectedAt: collectedAt,
	}
}
