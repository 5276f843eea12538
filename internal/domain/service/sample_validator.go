package service

import (
	"fmt"
	"math"

	"github.com/dreschagin/seqpulse/internal/domain/entity"
)

// SampleValidator checks a collected gauge snapshot before it becomes a
// stored sample (Domain Service). A sample is all-or-nothing: one bad field
// rejects the whole snapshot.
type SampleValidator struct{}

func NewSampleValidator() *SampleValidator {
	return &SampleValidator{}
}

func (v *SampleValidator) Validate(g entity.Gauges) error {
	if err := validFinite("requests_per_sec", g.RequestsPerSec); err != nil {
		return err
	}
	if err := validFinite("latency_p95", g.LatencyP95); err != nil {
		return err
	}
	if err := validFinite("error_rate", g.ErrorRate); err != nil {
		return err
	}
	if err := validFinite("cpu_usage", g.CPUUsage); err != nil {
		return err
	}
	if err := validFinite("memory_usage", g.MemoryUsage); err != nil {
		return err
	}

	if g.RequestsPerSec < 0 {
		return fmt.Errorf("requests_per_sec must be >= 0, got %v", g.RequestsPerSec)
	}
	if g.LatencyP95 < 0 {
		return fmt.Errorf("latency_p95 must be >= 0, got %v", g.LatencyP95)
	}
	if err := validRatio("error_rate", g.ErrorRate); err != nil {
		return err
	}
	if err := validRatio("cpu_usage", g.CPUUsage); err != nil {
		return err
	}
	if err := validRatio("memory_usage", g.MemoryUsage); err != nil {
		return err
	}

	return nil
}

func validFinite(name string, value float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return fmt.Errorf("%s must be finite, got %v", name, value)
	}
	return nil
}

func validRatio(name string, value float64) error {
	if value < 0 || value > 1 {
		return fmt.Errorf("%s must be within [0,1], got %v", name, value)
	}
	return nil
}
