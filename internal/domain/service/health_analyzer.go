package service

import (
	"github.com/dreschagin/seqpulse/internal/domain/entity"
)

// HealthAnalyzer compares post-release aggregates against fixed thresholds
// and the release's own pre-release baseline (Domain Service).
type HealthAnalyzer struct{}

func NewHealthAnalyzer() *HealthAnalyzer {
	return &HealthAnalyzer{}
}

// AggregatePost reduces post samples to their arithmetic mean per gauge.
func (a *HealthAnalyzer) AggregatePost(samples []*entity.MetricSample) entity.Gauges {
	var agg entity.Gauges
	if len(samples) == 0 {
		return agg
	}

	for _, s := range samples {
		agg.RequestsPerSec += s.Gauges.RequestsPerSec
		agg.LatencyP95 += s.Gauges.LatencyP95
		agg.ErrorRate += s.Gauges.ErrorRate
		agg.CPUUsage += s.Gauges.CPUUsage
		agg.MemoryUsage += s.Gauges.MemoryUsage
	}

	n := float64(len(samples))
	agg.RequestsPerSec /= n
	agg.LatencyP95 /= n
	agg.ErrorRate /= n
	agg.CPUUsage /= n
	agg.MemoryUsage /= n
	return agg
}

// Baseline picks the first chronological pre sample. The baseline is a
// snapshot, not a trend; callers must pass samples ordered by collected_at.
func (a *HealthAnalyzer) Baseline(preSamples []*entity.MetricSample) entity.Gauges {
	if len(preSamples) == 0 {
		return entity.Gauges{}
	}
	return preSamples[0].Gauges
}

// EvaluateFlags returns one flag string per breached condition. Absolute
// thresholds always apply; relative thresholds only when the baseline carried
// significant traffic.
func (a *HealthAnalyzer) EvaluateFlags(pre, post entity.Gauges) []string {
	flags := make([]string, 0, 4)

	if post.LatencyP95 > ThresholdLatencyP95 {
		flags = append(flags, "latency_p95 > 300ms")
	}
	if post.ErrorRate > ThresholdErrorRate {
		flags = append(flags, "error_rate > 1%")
	}
	if post.CPUUsage > ThresholdCPUUsage {
		flags = append(flags, "cpu_usage > 80%")
	}
	if post.MemoryUsage > ThresholdMemoryUsage {
		flags = append(flags, "memory_usage > 85%")
	}

	if pre.RequestsPerSec >= MinTrafficThreshold {
		if post.LatencyP95 > pre.LatencyP95*RelativeLatencyFactor {
			flags = append(flags, "latency_p95 increased >30% vs PRE")
		}
		if post.ErrorRate > pre.ErrorRate*RelativeErrorFactor {
			flags = append(flags, "error_rate increased >50% vs PRE")
		}
		if post.RequestsPerSec < pre.RequestsPerSec*RelativeTrafficFloor {
			flags = append(flags, "traffic dropped >40% vs PRE")
		}
	}

	return flags
}

// Classify maps the flag count to a verdict. The policy is intentionally
// coarse and monotonic: 0 flags ok, 1 warning, 2+ rollback.
func (a *HealthAnalyzer) Classify(flags []string) (entity.VerdictValue, float64, string) {
	switch {
	case len(flags) == 0:
		return entity.VerdictOK, 0.9, "No significant regression detected"
	case len(flags) == 1:
		return entity.VerdictWarning, 0.7, "Potential performance degradation detected"
	default:
		return entity.VerdictRollback, 0.85, "Multiple critical regressions detected"
	}
}
