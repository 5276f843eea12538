package service

import (
	"testing"
	"time"

	"github.com/dreschagin/seqpulse/internal/domain/entity"
	"github.com/google/uuid"
)

func hintsByMetric(hints []*entity.Hint) map[string][]*entity.Hint {
	out := make(map[string][]*entity.Hint)
	for _, h := range hints {
		out[h.Metric] = append(out[h.Metric], h)
	}
	return out
}

func findByTitle(hints []*entity.Hint, title string) *entity.Hint {
	for _, h := range hints {
		if h.Title == title {
			return h
		}
	}
	return nil
}

func TestServiceDegradationSuppressesSingleMetricHints(t *testing.T) {
	generator := NewHintGenerator()
	releaseID := uuid.New()
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	pre := entity.Gauges{RequestsPerSec: 100, LatencyP95: 120, ErrorRate: 0.001, CPUUsage: 0.3, MemoryUsage: 0.4}
	post := entity.Gauges{RequestsPerSec: 90, LatencyP95: 350, ErrorRate: 0.02, CPUUsage: 0.5, MemoryUsage: 0.5}

	hints := generator.Generate(releaseID, pre, post, now)
	byMetric := hintsByMetric(hints)

	composite := findByTitle(hints, "Service degradation detected")
	if composite == nil {
		t.Fatalf("expected a service degradation composite hint, got %d hints", len(hints))
	}
	if composite.Severity != entity.SeverityCritical {
		t.Errorf("composite severity = %q, want critical", composite.Severity)
	}
	if composite.Metric != entity.MetricComposite {
		t.Errorf("composite metric = %q, want %q", composite.Metric, entity.MetricComposite)
	}

	if len(byMetric[entity.MetricErrorRate]) != 0 {
		t.Error("standalone error_rate hint should be suppressed by the composite")
	}
	if len(byMetric[entity.MetricLatencyP95]) != 0 {
		t.Error("standalone latency_p95 hint should be suppressed by the composite")
	}

	// Memory is healthy and unrelated to the composite.
	memory := byMetric[entity.MetricMemoryUsage]
	if len(memory) != 1 || memory[0].Severity != entity.SeverityInfo {
		t.Errorf("expected one info memory hint, got %v", memory)
	}
}

func TestComputeSaturationComposite(t *testing.T) {
	generator := NewHintGenerator()
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	pre := entity.Gauges{RequestsPerSec: 100, LatencyP95: 300, ErrorRate: 0.001, CPUUsage: 0.4, MemoryUsage: 0.5}
	post := entity.Gauges{RequestsPerSec: 95, LatencyP95: 350, ErrorRate: 0.005, CPUUsage: 0.9, MemoryUsage: 0.5}

	hints := generator.Generate(uuid.New(), pre, post, now)
	byMetric := hintsByMetric(hints)

	composite := findByTitle(hints, "Compute saturation suspected")
	if composite == nil {
		t.Fatal("expected a compute saturation composite hint")
	}
	// 350 is under the 1.3x escalation point, so the composite stays warning.
	if composite.Severity != entity.SeverityWarning {
		t.Errorf("composite severity = %q, want warning", composite.Severity)
	}

	if len(byMetric[entity.MetricLatencyP95]) != 0 {
		t.Error("standalone latency hint should be suppressed")
	}
	if len(byMetric[entity.MetricCPUUsage]) != 0 {
		t.Error("standalone cpu hint should be suppressed")
	}
}

func TestPartialOutageComposite(t *testing.T) {
	generator := NewHintGenerator()
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	pre := entity.Gauges{RequestsPerSec: 100, LatencyP95: 150, ErrorRate: 0.001, CPUUsage: 0.4, MemoryUsage: 0.5}
	post := entity.Gauges{RequestsPerSec: 40, LatencyP95: 200, ErrorRate: 0.02, CPUUsage: 0.4, MemoryUsage: 0.5}

	hints := generator.Generate(uuid.New(), pre, post, now)
	byMetric := hintsByMetric(hints)

	if findByTitle(hints, "Partial outage suspected") == nil {
		t.Fatal("expected a partial outage composite hint")
	}
	if len(byMetric[entity.MetricErrorRate]) != 0 {
		t.Error("standalone error_rate hint should be suppressed")
	}
	if len(byMetric[entity.MetricRequestsPerSec]) != 0 {
		t.Error("standalone traffic hint should be suppressed")
	}
}

func TestMemoryBands(t *testing.T) {
	generator := NewHintGenerator()
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	pre := entity.Gauges{RequestsPerSec: 100, LatencyP95: 150, ErrorRate: 0.001, CPUUsage: 0.4, MemoryUsage: 0.5}

	tests := []struct {
		name         string
		memory       float64
		wantTitle    string
		wantSeverity entity.HintSeverity
		wantNone     bool
	}{
		{name: "well over threshold", memory: 0.95, wantTitle: "Memory usage above threshold", wantSeverity: entity.SeverityCritical},
		{name: "just over threshold", memory: 0.86, wantTitle: "Memory usage above threshold", wantSeverity: entity.SeverityWarning},
		{name: "approaching threshold", memory: 0.80, wantTitle: "Memory usage approaching threshold", wantSeverity: entity.SeverityWarning},
		{name: "normal range", memory: 0.50, wantTitle: "Memory usage within normal range", wantSeverity: entity.SeverityInfo},
		{name: "quiet gap between bands", memory: 0.70, wantNone: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			post := entity.Gauges{RequestsPerSec: 95, LatencyP95: 150, ErrorRate: 0.001, CPUUsage: 0.4, MemoryUsage: tt.memory}
			hints := generator.Generate(uuid.New(), pre, post, now)
			memory := hintsByMetric(hints)[entity.MetricMemoryUsage]

			if tt.wantNone {
				if len(memory) != 0 {
					t.Fatalf("expected no memory hint, got %v", memory[0].Title)
				}
				return
			}

			if len(memory) != 1 {
				t.Fatalf("expected one memory hint, got %d", len(memory))
			}
			if memory[0].Title != tt.wantTitle {
				t.Errorf("title = %q, want %q", memory[0].Title, tt.wantTitle)
			}
			if memory[0].Severity != tt.wantSeverity {
				t.Errorf("severity = %q, want %q", memory[0].Severity, tt.wantSeverity)
			}
		})
	}
}

func TestLatencyImprovedHint(t *testing.T) {
	generator := NewHintGenerator()
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	pre := entity.Gauges{RequestsPerSec: 100, LatencyP95: 200, ErrorRate: 0.001, CPUUsage: 0.4, MemoryUsage: 0.5}
	post := entity.Gauges{RequestsPerSec: 100, LatencyP95: 150, ErrorRate: 0.001, CPUUsage: 0.4, MemoryUsage: 0.5}

	hints := generator.Generate(uuid.New(), pre, post, now)
	improved := findByTitle(hints, "Latency improved after release")
	if improved == nil {
		t.Fatal("expected a latency improvement hint")
	}
	if improved.Severity != entity.SeverityInfo {
		t.Errorf("severity = %q, want info", improved.Severity)
	}
	// 25% improvement lands in the smallest deviation bonus band.
	if improved.Confidence != 0.50 {
		t.Errorf("confidence = %v, want 0.50", improved.Confidence)
	}
}

func TestConfidenceScoring(t *testing.T) {
	tests := []struct {
		name      string
		severity  entity.HintSeverity
		deviation float64
		signals   int
		want      float64
	}{
		{"critical with huge deviation", entity.SeverityCritical, 1.5, 1, 0.90},
		{"critical composite capped", entity.SeverityCritical, 1.5, 2, 0.95},
		{"warning small deviation", entity.SeverityWarning, 0.15, 1, 0.60},
		{"info no deviation", entity.SeverityInfo, 0, 1, 0.45},
		{"critical composite modest deviation", entity.SeverityCritical, 0.2, 2, 0.83},
		{"three signals", entity.SeverityWarning, 0.4, 3, 0.78},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := confidenceFromDeviation(tt.severity, tt.deviation, tt.signals)
			if got != tt.want {
				t.Errorf("confidenceFromDeviation(%q, %v, %d) = %v, want %v",
					tt.severity, tt.deviation, tt.signals, got, tt.want)
			}
		})
	}
}

func TestStandaloneErrorRateConfidence(t *testing.T) {
	generator := NewHintGenerator()
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	// Latency stays healthy so no composite claims the error hint.
	pre := entity.Gauges{RequestsPerSec: 100, LatencyP95: 150, ErrorRate: 0.001, CPUUsage: 0.4, MemoryUsage: 0.5}
	post := entity.Gauges{RequestsPerSec: 95, LatencyP95: 150, ErrorRate: 0.025, CPUUsage: 0.4, MemoryUsage: 0.5}

	hints := generator.Generate(uuid.New(), pre, post, now)
	errHint := findByTitle(hints, "High error rate after release")
	if errHint == nil {
		t.Fatal("expected a standalone error rate hint")
	}
	// Deviation (0.025-0.01)/0.01 = 1.5 earns the full bonus: 0.70 + 0.20.
	if errHint.Confidence != 0.90 {
		t.Errorf("confidence = %v, want 0.90", errHint.Confidence)
	}
	if errHint.ObservedValue == nil || *errHint.ObservedValue != 0.025 {
		t.Errorf("observed value = %v, want 0.025", errHint.ObservedValue)
	}
	if errHint.Threshold == nil || *errHint.Threshold != ThresholdErrorRate {
		t.Errorf("threshold = %v, want %v", errHint.Threshold, ThresholdErrorRate)
	}
}
