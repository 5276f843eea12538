package selfmetrics

import (
	"encoding/json"
	"net/http"

	"github.com/dreschagin/seqpulse/internal/domain/entity"
	"github.com/dreschagin/seqpulse/pkg/logger"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"golang.org/x/time/rate"
)

// Handler serves the service's own gauges in the envelope the collector
// expects, so a SeqPulse deployment can monitor itself like any other
// project. Requests are rate limited and, when a verifier is configured,
// must carry a valid v2 signature.
type Handler struct {
	recorder *RequestRecorder
	verifier *SignatureVerifier
	limiter  *rate.Limiter
	logger   *logger.Logger
}

func NewHandler(recorder *RequestRecorder, verifier *SignatureVerifier, rps float64, burst int, log *logger.Logger) *Handler {
	if rps <= 0 {
		rps = 5
	}
	if burst <= 0 {
		burst = 10
	}
	return &Handler{
		recorder: recorder,
		verifier: verifier,
		limiter:  rate.NewLimiter(rate.Limit(rps), burst),
		logger:   log,
	}
}

type gaugesResponse struct {
	Metrics entity.Gauges `json:"metrics"`
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if !h.limiter.Allow() {
		http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
		return
	}

	if h.verifier != nil {
		if err := h.verifier.Verify(r); err != nil {
			h.logger.Warn("Rejected unsigned metrics request",
				"remote", r.RemoteAddr,
				"error", err.Error(),
			)
			http.Error(w, "invalid signature", http.StatusUnauthorized)
			return
		}
	}

	gauges, err := h.collect(r)
	if err != nil {
		h.logger.Error("Failed to collect own gauges", err)
		http.Error(w, "failed to collect metrics", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(gaugesResponse{Metrics: gauges}); err != nil {
		h.logger.Error("Failed to encode gauges response", err)
	}
}

func (h *Handler) collect(r *http.Request) (entity.Gauges, error) {
	var gauges entity.Gauges

	// Interval zero returns usage since the previous call instead of
	// blocking the request for a sampling period.
	percentages, err := cpu.PercentWithContext(r.Context(), 0, false)
	if err != nil {
		return gauges, err
	}
	if len(percentages) > 0 {
		gauges.CPUUsage = percentages[0] / 100
	}

	vm, err := mem.VirtualMemoryWithContext(r.Context())
	if err != nil {
		return gauges, err
	}
	gauges.MemoryUsage = vm.UsedPercent / 100

	gauges.RequestsPerSec, gauges.ErrorRate, gauges.LatencyP95 = h.recorder.Snapshot()

	return gauges, nil
}
