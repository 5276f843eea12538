package entity

import (
	"time"

	"github.com/google/uuid"
)

type VerdictValue string

const (
	VerdictOK       VerdictValue = "ok"
	VerdictWarning  VerdictValue = "warning"
	VerdictRollback VerdictValue = "rollback_recommended"
)

// Verdict is the single health classification of a release. At most one
// exists per release; creation is the trigger for every downstream side
// effect.
type Verdict struct {
	ID         uuid.UUID
	ReleaseID  uuid.UUID
	Verdict    VerdictValue
	Confidence float64
	Summary    string
	Details    []string
	CreatedAt  time.Time
}

func NewVerdict(releaseID uuid.UUID, value VerdictValue, confidence float64, summary string, details []string) *Verdict {
	if details == nil {
		details = []string{}
	}
	return &Verdict{
		ID:         uuid.New(),
		ReleaseID:  releaseID,
		Verdict:    value,
		Confidence: confidence,
		Summary:    summary,
		Details:    details,
		CreatedAt:  time.Now().UTC(),
	}
}
