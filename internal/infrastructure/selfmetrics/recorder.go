package selfmetrics

import (
	"net/http"
	"sort"
	"sync"
	"time"
)

const defaultWindow = 60 * time.Second

type requestEvent struct {
	at      time.Time
	latency time.Duration
	failed  bool
}

// RequestRecorder keeps a sliding window of request outcomes and derives the
// traffic gauges from it: requests per second, error rate, p95 latency.
type RequestRecorder struct {
	mu     sync.Mutex
	window time.Duration
	events []requestEvent

	now func() time.Time
}

func NewRequestRecorder(window time.Duration) *RequestRecorder {
	if window <= 0 {
		window = defaultWindow
	}
	return &RequestRecorder{
		window: window,
		now:    time.Now,
	}
}

// Record adds one finished request to the window.
func (r *RequestRecorder) Record(latency time.Duration, failed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.pruneLocked(now)
	r.events = append(r.events, requestEvent{at: now, latency: latency, failed: failed})
}

// Snapshot returns the gauges for the current window. An empty window yields
// zeros, which the analysis side treats as no traffic.
func (r *RequestRecorder) Snapshot() (requestsPerSec, errorRate, latencyP95MS float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.pruneLocked(r.now())

	total := len(r.events)
	if total == 0 {
		return 0, 0, 0
	}

	failed := 0
	latencies := make([]float64, 0, total)
	for _, ev := range r.events {
		if ev.failed {
			failed++
		}
		latencies = append(latencies, float64(ev.latency.Milliseconds()))
	}

	sort.Float64s(latencies)
	idx := int(float64(total) * 0.95)
	if idx >= total {
		idx = total - 1
	}

	requestsPerSec = float64(total) / r.window.Seconds()
	errorRate = float64(failed) / float64(total)
	latencyP95MS = latencies[idx]
	return requestsPerSec, errorRate, latencyP95MS
}

func (r *RequestRecorder) pruneLocked(now time.Time) {
	cutoff := now.Add(-r.window)
	keep := r.events[:0]
	for _, ev := range r.events {
		if ev.at.After(cutoff) {
			keep = append(keep, ev)
		}
	}
	r.events = keep
}

// Middleware instruments an HTTP handler so its traffic feeds the recorder.
// A status of 500 or higher counts as a failed request.
func (r *RequestRecorder) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(recorder, req)

		r.Record(time.Since(start), recorder.status >= http.StatusInternalServerError)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}
