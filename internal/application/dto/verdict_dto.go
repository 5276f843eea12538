package dto

import "time"

// VerdictCreatedEvent is published to the message broker when a verdict is
// created for the first time.
type VerdictCreatedEvent struct {
	ReleaseID  string    `json:"release_id"`
	ProjectID  string    `json:"project_id"`
	Env        string    `json:"env"`
	Verdict    string    `json:"verdict"`
	Confidence float64   `json:"confidence"`
	Summary    string    `json:"summary"`
	Details    []string  `json:"details"`
	HintCount  int       `json:"hint_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// VerdictNotification is broadcast to connected dashboard clients by notify
// jobs.
type VerdictNotification struct {
	ReleaseID        string            `json:"release_id"`
	NotificationType string            `json:"notification_type"`
	ToAddress        string            `json:"to_address"`
	Context          map[string]string `json:"context,omitempty"`
	SentAt           time.Time         `json:"sent_at"`
}
