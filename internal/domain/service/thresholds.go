package service

// Absolute thresholds follow common SRE guidance and are deliberately fixed
// and interpretable; there are no adaptive baselines.
const (
	ThresholdLatencyP95  = 300.0 // ms
	ThresholdErrorRate   = 0.01
	ThresholdCPUUsage    = 0.80
	ThresholdMemoryUsage = 0.85

	// MinTrafficThreshold is the baseline traffic floor (req/s) below which
	// relative comparisons are statistically meaningless and skipped.
	MinTrafficThreshold = 0.1

	// Relative multipliers applied against the pre-release baseline.
	RelativeLatencyFactor = 1.3
	RelativeErrorFactor   = 1.5
	RelativeTrafficFloor  = 0.6
)
