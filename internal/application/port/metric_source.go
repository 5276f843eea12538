package port

import (
	"context"

	"github.com/dreschagin/seqpulse/internal/domain/entity"
)

// FetchRequest describes one outbound metrics collection call.
type FetchRequest struct {
	TargetURL     string
	UseSigning    bool
	SigningSecret string
	ProjectID     string
}

// MetricSource fetches a snapshot of the five gauges from a caller-controlled
// endpoint. Implementations must not retry internally; failures propagate to
// the scheduler's job-level retry policy.
type MetricSource interface {
	Fetch(ctx context.Context, req FetchRequest) (entity.Gauges, error)
}
