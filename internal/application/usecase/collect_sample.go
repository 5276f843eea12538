package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/dreschagin/seqpulse/internal/application/port"
	"github.com/dreschagin/seqpulse/internal/domain/entity"
	"github.com/dreschagin/seqpulse/internal/domain/repository"
	"github.com/dreschagin/seqpulse/internal/domain/service"
	"github.com/dreschagin/seqpulse/pkg/logger"
	"github.com/google/uuid"
)

type CollectSampleCommand struct {
	ReleaseID uuid.UUID
	Phase     entity.Phase
	Payload   entity.CollectPayload
}

// CollectSampleUseCase is the body of pre_collect and post_collect jobs:
// fetch the gauges from the caller's endpoint, validate the snapshot as a
// whole, and persist it. Any error propagates to the job retry policy.
type CollectSampleUseCase struct {
	source    port.MetricSource
	samples   repository.SampleRepository
	validator *service.SampleValidator
	logger    *logger.Logger
}

func NewCollectSampleUseCase(
	source port.MetricSource,
	samples repository.SampleRepository,
	validator *service.SampleValidator,
	log *logger.Logger,
) *CollectSampleUseCase {
	return &CollectSampleUseCase{
		source:    source,
		samples:   samples,
		validator: validator,
		logger:    log,
	}
}

func (uc *CollectSampleUseCase) Execute(ctx context.Context, cmd CollectSampleCommand) error {
	gauges, err := uc.source.Fetch(ctx, port.FetchRequest{
		TargetURL:     cmd.Payload.TargetURL,
		UseSigning:    cmd.Payload.UseSigning,
		SigningSecret: cmd.Payload.SigningSecret,
		ProjectID:     cmd.Payload.ProjectID.String(),
	})
	if err != nil {
		return fmt.Errorf("fetch metrics from %s: %w", cmd.Payload.TargetURL, err)
	}

	if err := uc.validator.Validate(gauges); err != nil {
		return fmt.Errorf("invalid metrics payload from %s: %w", cmd.Payload.TargetURL, err)
	}

	sample := entity.NewMetricSample(cmd.ReleaseID, cmd.Phase, gauges, time.Now().UTC())
	if err := uc.samples.Insert(ctx, sample); err != nil {
		return fmt.Errorf("store sample: %w", err)
	}

	uc.logger.Info("Sample collected",
		"release_id", cmd.ReleaseID.String(),
		"phase", string(cmd.Phase),
		"requests_per_sec", gauges.RequestsPerSec,
		"latency_p95", gauges.LatencyP95,
		"error_rate", gauges.ErrorRate,
	)

	return nil
}
