package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dreschagin/seqpulse/internal/application/port"
	"github.com/dreschagin/seqpulse/internal/domain/entity"
	"github.com/dreschagin/seqpulse/pkg/logger"
)

const maxResponseBytes = 1 << 20

// HTTPCollector fetches a metrics snapshot from a caller-controlled
// endpoint. It never retries internally: any failure propagates to the
// scheduler's job-level retry policy, which is the system's only retry
// mechanism.
type HTTPCollector struct {
	client *http.Client
	logger *logger.Logger
}

func NewHTTPCollector(timeout time.Duration, log *logger.Logger) *HTTPCollector {
	return &HTTPCollector{
		client: &http.Client{Timeout: timeout},
		logger: log,
	}
}

type metricsEnvelope struct {
	Metrics struct {
		RequestsPerSec *float64 `json:"requests_per_sec"`
		LatencyP95     *float64 `json:"latency_p95"`
		ErrorRate      *float64 `json:"error_rate"`
		CPUUsage       *float64 `json:"cpu_usage"`
		MemoryUsage    *float64 `json:"memory_usage"`
	} `json:"metrics"`
}

func (c *HTTPCollector) Fetch(ctx context.Context, req port.FetchRequest) (entity.Gauges, error) {
	var gauges entity.Gauges

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.TargetURL, nil)
	if err != nil {
		return gauges, fmt.Errorf("build request for %s: %w", req.TargetURL, err)
	}

	if req.UseSigning && req.SigningSecret != "" {
		signer := NewSigner(req.SigningSecret, req.ProjectID)
		if err := signer.Sign(httpReq); err != nil {
			return gauges, fmt.Errorf("sign request: %w", err)
		}
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return gauges, fmt.Errorf("request %s: %w", req.TargetURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		authErr := &AuthError{StatusCode: resp.StatusCode, URL: req.TargetURL}
		c.logger.Warn("Signed metrics request rejected",
			"url", req.TargetURL,
			"status", resp.StatusCode,
		)
		return gauges, authErr
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return gauges, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, req.TargetURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return gauges, fmt.Errorf("read response from %s: %w", req.TargetURL, err)
	}

	var envelope metricsEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return gauges, &PayloadError{Reason: "not a valid JSON object: " + err.Error()}
	}

	m := envelope.Metrics
	fields := []struct {
		name  string
		value *float64
		dest  *float64
	}{
		{"requests_per_sec", m.RequestsPerSec, &gauges.RequestsPerSec},
		{"latency_p95", m.LatencyP95, &gauges.LatencyP95},
		{"error_rate", m.ErrorRate, &gauges.ErrorRate},
		{"cpu_usage", m.CPUUsage, &gauges.CPUUsage},
		{"memory_usage", m.MemoryUsage, &gauges.MemoryUsage},
	}

	for _, f := range fields {
		if f.value == nil {
			return entity.Gauges{}, &PayloadError{Reason: "missing required field " + f.name}
		}
		*f.dest = *f.value
	}

	return gauges, nil
}
