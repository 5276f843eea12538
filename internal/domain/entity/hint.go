package entity

import (
	"time"

	"github.com/google/uuid"
)

type HintSeverity string

const (
	SeverityInfo     HintSeverity = "info"
	SeverityWarning  HintSeverity = "warning"
	SeverityCritical HintSeverity = "critical"
)

// Metric names as they appear on hints. MetricComposite marks hints backed by
// more than one gauge.
const (
	MetricRequestsPerSec = "requests_per_sec"
	MetricLatencyP95     = "latency_p95"
	MetricErrorRate      = "error_rate"
	MetricCPUUsage       = "cpu_usage"
	MetricMemoryUsage    = "memory_usage"
	MetricComposite      = "composite"
)

// Hint is one confidence-scored diagnostic explanation attached to a verdict.
// The hint set of a release is a derived snapshot: regeneration replaces it
// wholesale.
type Hint struct {
	ID               uuid.UUID
	ReleaseID        uuid.UUID
	Metric           string
	Severity         HintSeverity
	ObservedValue    *float64
	Threshold        *float64
	Confidence       float64
	Title            string
	Diagnosis        string
	SuggestedActions []string
	CreatedAt        time.Time
}

func severityRank(s HintSeverity) int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityWarning:
		return 1
	default:
		return 2
	}
}

// MoreUrgent reports whether h sorts before other: critical first, then by
// confidence descending.
func (h *Hint) MoreUrgent(other *Hint) bool {
	if severityRank(h.Severity) != severityRank(other.Severity) {
		return severityRank(h.Severity) < severityRank(other.Severity)
	}
	return h.Confidence > other.Confidence
}
