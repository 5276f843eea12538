package collector

import "fmt"

// AuthError marks a 401/403 from a signed request: a signature or replay
// problem, not a generic HTTP failure. Still retryable, the skew may have
// been transient clock drift.
type AuthError struct {
	StatusCode int
	URL        string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("metrics endpoint %s rejected request signature (status %d)", e.URL, e.StatusCode)
}

// PayloadError marks malformed upstream data: a missing or non-numeric
// gauge field. The sample is aborted as a whole.
type PayloadError struct {
	Reason string
}

func (e *PayloadError) Error() string {
	return "malformed metrics payload: " + e.Reason
}
