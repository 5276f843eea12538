package service

import (
	"math"
	"time"

	"github.com/dreschagin/seqpulse/internal/domain/entity"
	"github.com/google/uuid"
)

// CompositeKind identifies a multi-metric diagnostic. The mapping to its
// contributing metrics is a static table, not string matching.
type CompositeKind string

const (
	CompositeServiceDegradation CompositeKind = "service_degradation"
	CompositeComputeSaturation  CompositeKind = "compute_saturation"
	CompositePartialOutage      CompositeKind = "partial_outage"
)

// CompositeSignals lists which gauges feed each composite hint. The read
// side uses it to reconstruct contributing metrics without parsing titles.
var CompositeSignals = map[CompositeKind][]string{
	CompositeServiceDegradation: {entity.MetricErrorRate, entity.MetricLatencyP95},
	CompositeComputeSaturation:  {entity.MetricLatencyP95, entity.MetricCPUUsage},
	CompositePartialOutage:      {entity.MetricErrorRate, entity.MetricRequestsPerSec},
}

// HintGenerator derives the diagnostic hint set of a release from the same
// pre/post aggregates the verdict was built on (Domain Service). Composite
// detection runs first and suppresses the single-metric hints it subsumes.
type HintGenerator struct{}

func NewHintGenerator() *HintGenerator {
	return &HintGenerator{}
}

func (g *HintGenerator) Generate(releaseID uuid.UUID, pre, post entity.Gauges, createdAt time.Time) []*entity.Hint {
	hints := make([]*entity.Hint, 0, 4)
	suppressed := make(map[string]bool)

	addHint := func(metric string, severity entity.HintSeverity, observed, threshold *float64, confidence float64, title, diagnosis string, actions []string) {
		hints = append(hints, &entity.Hint{
			ID:               uuid.New(),
			ReleaseID:        releaseID,
			Metric:           metric,
			Severity:         severity,
			ObservedValue:    observed,
			Threshold:        threshold,
			Confidence:       confidence,
			Title:            title,
			Diagnosis:        diagnosis,
			SuggestedActions: actions,
			CreatedAt:        createdAt,
		})
	}

	errorDev := deviationAboveThreshold(post.ErrorRate, ThresholdErrorRate)
	latencyDev := deviationAboveThreshold(post.LatencyP95, ThresholdLatencyP95)
	cpuDev := deviationAboveThreshold(post.CPUUsage, ThresholdCPUUsage)
	memoryDev := deviationAboveThreshold(post.MemoryUsage, ThresholdMemoryUsage)
	trafficDropDev := deviationBelowBaseline(pre.RequestsPerSec, post.RequestsPerSec)

	// Composite diagnostics run first and claim their contributing metrics.
	if post.ErrorRate > ThresholdErrorRate && post.LatencyP95 > ThresholdLatencyP95 {
		suppress(suppressed, CompositeServiceDegradation)
		addHint(entity.MetricComposite, entity.SeverityCritical, nil, nil,
			confidenceFromDeviation(entity.SeverityCritical, math.Max(errorDev, latencyDev), 2),
			"Service degradation detected",
			"Both error rate and latency increased after the release, suggesting a major service degradation.",
			[]string{
				"Inspect error logs and traces",
				"Check upstream dependencies",
				"Validate recent configuration or code changes",
				"Consider rollback if degradation persists",
			})
	}

	if post.LatencyP95 > ThresholdLatencyP95 && post.CPUUsage > ThresholdCPUUsage {
		severity := entity.SeverityWarning
		if post.LatencyP95 >= ThresholdLatencyP95*1.3 {
			severity = entity.SeverityCritical
		}
		suppress(suppressed, CompositeComputeSaturation)
		addHint(entity.MetricComposite, severity, nil, nil,
			confidenceFromDeviation(severity, math.Max(latencyDev, cpuDev), 2),
			"Compute saturation suspected",
			"Latency and CPU usage both increased after the release, which often indicates compute saturation or inefficient code paths.",
			[]string{
				"Profile CPU usage and hot paths",
				"Inspect slow endpoints and traces",
				"Consider horizontal scaling",
				"Review recent changes for inefficiencies",
			})
	}

	if pre.RequestsPerSec >= MinTrafficThreshold &&
		post.ErrorRate > ThresholdErrorRate &&
		post.RequestsPerSec < pre.RequestsPerSec*RelativeTrafficFloor {
		suppress(suppressed, CompositePartialOutage)
		addHint(entity.MetricComposite, entity.SeverityCritical, nil, nil,
			confidenceFromDeviation(entity.SeverityCritical, math.Max(errorDev, trafficDropDev), 2),
			"Partial outage suspected",
			"Error rate increased while traffic dropped significantly after the release, suggesting a partial outage or failed routing.",
			[]string{
				"Verify ingress, routing, and load balancer health",
				"Check error logs for failing endpoints",
				"Validate recent release configuration",
				"Consider rollback if recovery is slow",
			})
	}

	if post.ErrorRate > ThresholdErrorRate && !suppressed[entity.MetricErrorRate] {
		addHint(entity.MetricErrorRate, entity.SeverityCritical,
			ptr(post.ErrorRate), ptr(ThresholdErrorRate),
			confidenceFromDeviation(entity.SeverityCritical, errorDev, 1),
			"High error rate after release",
			"The service is returning an unusually high number of errors after the release, indicating a possible application or dependency failure.",
			[]string{
				"Inspect application error logs",
				"Check database connectivity",
				"Review recent configuration or code changes",
				"Consider rollback if errors persist",
			})
	}

	if post.LatencyP95 > ThresholdLatencyP95 && !suppressed[entity.MetricLatencyP95] {
		severity := entity.SeverityWarning
		if post.LatencyP95 >= ThresholdLatencyP95*1.3 {
			severity = entity.SeverityCritical
		}
		addHint(entity.MetricLatencyP95, severity,
			ptr(post.LatencyP95), ptr(ThresholdLatencyP95),
			confidenceFromDeviation(severity, latencyDev, 1),
			"High latency detected",
			"Response time increased significantly after the release, which may indicate slow dependencies or resource contention.",
			[]string{
				"Check upstream dependencies",
				"Inspect slow queries or external API calls",
				"Enable request tracing",
				"Consider rollback if latency remains high",
			})
	} else if pre.LatencyP95 > 0 && post.LatencyP95 < pre.LatencyP95*0.8 {
		improvement := deviationBelowBaseline(pre.LatencyP95, post.LatencyP95)
		addHint(entity.MetricLatencyP95, entity.SeverityInfo,
			ptr(post.LatencyP95), ptr(ThresholdLatencyP95),
			confidenceFromDeviation(entity.SeverityInfo, improvement, 1),
			"Latency improved after release",
			"Response time decreased after the release, indicating successful performance optimizations in the new version.",
			[]string{
				"Document the optimizations made",
				"Continue monitoring performance trends",
				"Share best practices with other teams",
			})
	}

	if post.CPUUsage > ThresholdCPUUsage && !suppressed[entity.MetricCPUUsage] {
		severity := entity.SeverityWarning
		if post.CPUUsage >= ThresholdCPUUsage*1.2 {
			severity = entity.SeverityCritical
		}
		addHint(entity.MetricCPUUsage, severity,
			ptr(post.CPUUsage), ptr(ThresholdCPUUsage),
			confidenceFromDeviation(severity, cpuDev, 1),
			"CPU usage spike detected",
			"CPU consumption increased significantly after the release and is trending upward, which may lead to performance degradation.",
			[]string{
				"Profile CPU usage patterns",
				"Review recent code changes for inefficiencies",
				"Optimize hot paths in the code",
				"Consider horizontal scaling",
			})
	}

	if !suppressed[entity.MetricMemoryUsage] {
		switch {
		case post.MemoryUsage > ThresholdMemoryUsage:
			severity := entity.SeverityWarning
			if post.MemoryUsage >= ThresholdMemoryUsage*1.1 {
				severity = entity.SeverityCritical
			}
			addHint(entity.MetricMemoryUsage, severity,
				ptr(post.MemoryUsage), ptr(ThresholdMemoryUsage),
				confidenceFromDeviation(severity, memoryDev, 1),
				"Memory usage above threshold",
				"Memory consumption exceeded the configured threshold, which may impact service stability.",
				[]string{
					"Check heap and memory allocation",
					"Review recent code changes",
					"Monitor garbage collection activity",
					"Consider scaling or increasing memory limits",
				})
		case post.MemoryUsage >= ThresholdMemoryUsage*0.9:
			approaching := (post.MemoryUsage - ThresholdMemoryUsage*0.9) / (ThresholdMemoryUsage * 0.1)
			addHint(entity.MetricMemoryUsage, entity.SeverityWarning,
				ptr(post.MemoryUsage), ptr(ThresholdMemoryUsage),
				confidenceFromDeviation(entity.SeverityWarning, math.Max(0, approaching), 1),
				"Memory usage approaching threshold",
				"Memory consumption increased after the release and is approaching critical limits, which may impact service stability.",
				[]string{
					"Check heap and memory allocation",
					"Review recent code changes",
					"Monitor garbage collection activity",
					"Ensure memory limits are correctly set",
				})
		case post.MemoryUsage <= ThresholdMemoryUsage*0.8:
			addHint(entity.MetricMemoryUsage, entity.SeverityInfo,
				ptr(post.MemoryUsage), ptr(ThresholdMemoryUsage),
				confidenceFromDeviation(entity.SeverityInfo, 0, 1),
				"Memory usage within normal range",
				"Memory consumption is stable and well below the configured threshold, indicating healthy resource utilization after the release.",
				[]string{
					"Continue monitoring memory trends",
					"No immediate action required",
					"Consider optimization if usage trends upward",
				})
		}
	}

	if pre.RequestsPerSec >= MinTrafficThreshold &&
		post.RequestsPerSec < pre.RequestsPerSec*RelativeTrafficFloor &&
		!suppressed[entity.MetricRequestsPerSec] {
		addHint(entity.MetricRequestsPerSec, entity.SeverityWarning,
			ptr(post.RequestsPerSec), ptr(pre.RequestsPerSec),
			confidenceFromDeviation(entity.SeverityWarning, trafficDropDev, 1),
			"Traffic lower than baseline after release",
			"Post-release traffic is significantly lower compared to the pre-release baseline, while no strong error or latency increase was detected.",
			[]string{
				"Compare traffic with previous time periods",
				"Check ingress or routing configuration",
				"Verify main endpoints availability",
				"Monitor error rate and latency for further signals",
			})
	}

	return hints
}

func suppress(suppressed map[string]bool, kind CompositeKind) {
	for _, metric := range CompositeSignals[kind] {
		suppressed[metric] = true
	}
}

func deviationAboveThreshold(observed, threshold float64) float64 {
	if threshold <= 0 {
		return 0
	}
	return math.Max(0, (observed-threshold)/threshold)
}

func deviationBelowBaseline(baseline, observed float64) float64 {
	if baseline <= 0 {
		return 0
	}
	return math.Max(0, (baseline-observed)/baseline)
}

// confidenceFromDeviation is the shared scoring formula: a severity base plus
// a deviation bonus plus a multi-signal bonus, capped at 0.95 and rounded to
// two decimals.
func confidenceFromDeviation(severity entity.HintSeverity, deviation float64, signals int) float64 {
	var base float64
	switch severity {
	case entity.SeverityInfo:
		base = 0.45
	case entity.SeverityWarning:
		base = 0.55
	case entity.SeverityCritical:
		base = 0.70
	default:
		base = 0.50
	}

	switch {
	case deviation >= 1.0:
		base += 0.20
	case deviation >= 0.5:
		base += 0.15
	case deviation >= 0.3:
		base += 0.10
	case deviation >= 0.1:
		base += 0.05
	}

	if signals >= 2 {
		base += 0.08
	}
	if signals >= 3 {
		base += 0.05
	}

	return math.Round(math.Min(0.95, base)*100) / 100
}

func ptr(v float64) *float64 {
	return &v
}
