package selfmetrics

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dreschagin/seqpulse/internal/infrastructure/collector"
)

func TestVerifyAcceptsSignedRequest(t *testing.T) {
	verifier := NewSignatureVerifier("s3cret", nil)

	req := httptest.NewRequest("GET", "https://svc.example.com/probe/metrics", nil)
	if err := collector.NewSigner("s3cret", "").Sign(req); err != nil {
		t.Fatalf("sign: %v", err)
	}

	if err := verifier.Verify(req); err != nil {
		t.Fatalf("Verify() error: %v", err)
	}
}

func TestVerifyRejectsReplayedNonce(t *testing.T) {
	verifier := NewSignatureVerifier("s3cret", nil)

	req := httptest.NewRequest("GET", "https://svc.example.com/probe/metrics", nil)
	if err := collector.NewSigner("s3cret", "").Sign(req); err != nil {
		t.Fatalf("sign: %v", err)
	}

	if err := verifier.Verify(req); err != nil {
		t.Fatalf("first Verify() error: %v", err)
	}
	if err := verifier.Verify(req); err == nil {
		t.Fatal("a replayed request must be rejected")
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	verifier := NewSignatureVerifier("s3cret", nil)

	req := httptest.NewRequest("GET", "https://svc.example.com/probe/metrics", nil)
	if err := collector.NewSigner("other-secret", "").Sign(req); err != nil {
		t.Fatalf("sign: %v", err)
	}

	if err := verifier.Verify(req); err == nil {
		t.Fatal("a signature from the wrong secret must be rejected")
	}
}

func TestVerifyRejectsTamperedSignature(t *testing.T) {
	verifier := NewSignatureVerifier("s3cret", nil)

	req := httptest.NewRequest("GET", "https://svc.example.com/probe/metrics", nil)
	if err := collector.NewSigner("s3cret", "").Sign(req); err != nil {
		t.Fatalf("sign: %v", err)
	}
	req.Header.Set(collector.HeaderSignature, "sha256=deadbeef")

	if err := verifier.Verify(req); err == nil {
		t.Fatal("a tampered signature must be rejected")
	}
}

func TestVerifyRejectsPathMismatch(t *testing.T) {
	verifier := NewSignatureVerifier("s3cret", nil)

	req := httptest.NewRequest("GET", "https://svc.example.com/probe/metrics", nil)
	if err := collector.NewSigner("s3cret", "").Sign(req); err != nil {
		t.Fatalf("sign: %v", err)
	}
	// The signature binds the path; moving the request elsewhere breaks it.
	req.URL.Path = "/admin"

	if err := verifier.Verify(req); err == nil {
		t.Fatal("a signature for another path must be rejected")
	}
}

func TestVerifyRejectsMissingVersion(t *testing.T) {
	verifier := NewSignatureVerifier("s3cret", nil)

	req := httptest.NewRequest("GET", "https://svc.example.com/probe/metrics", nil)
	if err := collector.NewSigner("s3cret", "").Sign(req); err != nil {
		t.Fatalf("sign: %v", err)
	}
	req.Header.Del(collector.HeaderVersion)

	if err := verifier.Verify(req); err == nil {
		t.Fatal("an unversioned request must be rejected")
	}
}

func TestVerifyRejectsStaleTimestamp(t *testing.T) {
	verifier := NewSignatureVerifier("s3cret", nil)
	verifier.now = func() time.Time { return time.Now().Add(10 * time.Minute) }

	req := httptest.NewRequest("GET", "https://svc.example.com/probe/metrics", nil)
	if err := collector.NewSigner("s3cret", "").Sign(req); err != nil {
		t.Fatalf("sign: %v", err)
	}

	if err := verifier.Verify(req); err == nil {
		t.Fatal("a stale timestamp must be rejected")
	}
}

func TestVerifyRejectsMissingHeaders(t *testing.T) {
	verifier := NewSignatureVerifier("s3cret", nil)

	req := httptest.NewRequest("GET", "https://svc.example.com/probe/metrics", nil)
	req.Header.Set(collector.HeaderVersion, collector.SignatureVersion)

	if err := verifier.Verify(req); err == nil {
		t.Fatal("a bare request must be rejected")
	}
}
