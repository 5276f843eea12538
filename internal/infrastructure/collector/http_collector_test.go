package collector

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dreschagin/seqpulse/internal/application/port"
	"github.com/dreschagin/seqpulse/pkg/logger"
)

func newTestCollector() *HTTPCollector {
	return NewHTTPCollector(5*time.Second, logger.New("error"))
}

func TestFetchSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"metrics":{"requests_per_sec":120.5,"latency_p95":180,"error_rate":0.004,"cpu_usage":0.42,"memory_usage":0.63}}`))
	}))
	defer server.Close()

	gauges, err := newTestCollector().Fetch(context.Background(), port.FetchRequest{TargetURL: server.URL + "/metrics"})
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}

	if gauges.RequestsPerSec != 120.5 {
		t.Errorf("RequestsPerSec = %v, want 120.5", gauges.RequestsPerSec)
	}
	if gauges.LatencyP95 != 180 {
		t.Errorf("LatencyP95 = %v, want 180", gauges.LatencyP95)
	}
	if gauges.ErrorRate != 0.004 {
		t.Errorf("ErrorRate = %v, want 0.004", gauges.ErrorRate)
	}
	if gauges.CPUUsage != 0.42 {
		t.Errorf("CPUUsage = %v, want 0.42", gauges.CPUUsage)
	}
	if gauges.MemoryUsage != 0.63 {
		t.Errorf("MemoryUsage = %v, want 0.63", gauges.MemoryUsage)
	}
}

func TestFetchUnauthorizedIsAuthError(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))

		_, err := newTestCollector().Fetch(context.Background(), port.FetchRequest{TargetURL: server.URL})
		server.Close()

		var authErr *AuthError
		if !errors.As(err, &authErr) {
			t.Fatalf("status %d: error = %v, want *AuthError", status, err)
		}
		if authErr.StatusCode != status {
			t.Errorf("AuthError.StatusCode = %d, want %d", authErr.StatusCode, status)
		}
	}
}

func TestFetchServerErrorIsPlainError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := newTestCollector().Fetch(context.Background(), port.FetchRequest{TargetURL: server.URL})
	if err == nil {
		t.Fatal("expected an error for a 502 response")
	}
	var authErr *AuthError
	if errors.As(err, &authErr) {
		t.Error("a 502 must not be classified as an auth failure")
	}
	var payloadErr *PayloadError
	if errors.As(err, &payloadErr) {
		t.Error("a 502 must not be classified as a payload failure")
	}
}

func TestFetchPayloadErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{"metrics": nope}`},
		{"missing field", `{"metrics":{"requests_per_sec":1,"latency_p95":2,"error_rate":0.1,"cpu_usage":0.2}}`},
		{"wrong shape", `[1,2,3]`},
		{"empty object", `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := newTestCollector().Fetch(context.Background(), port.FetchRequest{TargetURL: server.URL})

			var payloadErr *PayloadError
			if !errors.As(err, &payloadErr) {
				t.Fatalf("error = %v, want *PayloadError", err)
			}
		})
	}
}

func TestFetchSignsWhenRequested(t *testing.T) {
	var seen http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Clone()
		w.Write([]byte(`{"metrics":{"requests_per_sec":1,"latency_p95":2,"error_rate":0.1,"cpu_usage":0.2,"memory_usage":0.3}}`))
	}))
	defer server.Close()

	_, err := newTestCollector().Fetch(context.Background(), port.FetchRequest{
		TargetURL:     server.URL + "/probe/metrics/",
		UseSigning:    true,
		SigningSecret: "s3cret",
		ProjectID:     "proj-42",
	})
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}

	if seen.Get(HeaderVersion) != SignatureVersion {
		t.Errorf("version header = %q, want %q", seen.Get(HeaderVersion), SignatureVersion)
	}
	if seen.Get(HeaderCanonicalPath) != "/probe/metrics" {
		t.Errorf("canonical path header = %q, want /probe/metrics", seen.Get(HeaderCanonicalPath))
	}
	if seen.Get(HeaderNonce) == "" {
		t.Error("nonce header must be set")
	}
	if seen.Get(HeaderProjectID) != "proj-42" {
		t.Errorf("project header = %q, want proj-42", seen.Get(HeaderProjectID))
	}

	want := BuildSignature("s3cret", seen.Get(HeaderTimestamp), http.MethodGet, "/probe/metrics", seen.Get(HeaderNonce))
	if got := seen.Get(HeaderSignature); got != want {
		t.Errorf("signature header = %q, want %q", got, want)
	}
}

func TestFetchSkipsSigningWithoutSecret(t *testing.T) {
	var seen http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Clone()
		w.Write([]byte(`{"metrics":{"requests_per_sec":1,"latency_p95":2,"error_rate":0.1,"cpu_usage":0.2,"memory_usage":0.3}}`))
	}))
	defer server.Close()

	_, err := newTestCollector().Fetch(context.Background(), port.FetchRequest{
		TargetURL:  server.URL,
		UseSigning: true,
	})
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if seen.Get(HeaderSignature) != "" {
		t.Error("signature header must be absent when no secret is configured")
	}
}
