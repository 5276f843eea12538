package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/dreschagin/seqpulse/internal/application/dto"
	"github.com/dreschagin/seqpulse/internal/application/port"
	"github.com/dreschagin/seqpulse/internal/domain/entity"
	"github.com/dreschagin/seqpulse/internal/domain/repository"
	"github.com/dreschagin/seqpulse/pkg/logger"
	"github.com/google/uuid"
)

type ScheduleNotificationCommand struct {
	UserID           uuid.UUID
	ToAddress        string
	NotificationType string
	DedupeKey        string
	Context          map[string]string
}

// ScheduleNotificationUseCase enqueues a notify job unless one with the same
// dedupe key already exists. Rendering and delivery belong to collaborators;
// this use case only guarantees at-most-once scheduling.
//
// Execute returns (nil, nil) when the dedupe key is already taken: the
// duplicate is not an error, and no job is handed back. Callers must check
// for a nil job before using it.
type ScheduleNotificationUseCase struct {
	jobs   repository.JobRepository
	logger *logger.Logger
}

func NewScheduleNotificationUseCase(jobs repository.JobRepository, log *logger.Logger) *ScheduleNotificationUseCase {
	return &ScheduleNotificationUseCase{jobs: jobs, logger: log}
}

func (uc *ScheduleNotificationUseCase) Execute(ctx context.Context, cmd ScheduleNotificationCommand) (*entity.Job, error) {
	if cmd.DedupeKey == "" {
		return nil, fmt.Errorf("dedupe_key is required")
	}
	if cmd.NotificationType == "" {
		return nil, fmt.Errorf("notification_type is required")
	}

	job, err := entity.NewNotifyJob(time.Now().UTC(), entity.NotifyPayload{
		UserID:           cmd.UserID,
		ToAddress:        cmd.ToAddress,
		NotificationType: cmd.NotificationType,
		DedupeKey:        cmd.DedupeKey,
		Context:          cmd.Context,
	})
	if err != nil {
		return nil, err
	}

	created, err := uc.jobs.CreateDeduped(ctx, job)
	if err != nil {
		return nil, fmt.Errorf("enqueue notify job: %w", err)
	}
	if !created {
		uc.logger.Debug("Notification already scheduled", "dedupe_key", cmd.DedupeKey)
		return nil, nil
	}

	return job, nil
}

// DeliverNotificationUseCase is the body of notify jobs: it decodes the
// payload and pushes the notification to connected clients.
type DeliverNotificationUseCase struct {
	notifier port.Notifier
	logger   *logger.Logger
}

func NewDeliverNotificationUseCase(notifier port.Notifier, log *logger.Logger) *DeliverNotificationUseCase {
	return &DeliverNotificationUseCase{notifier: notifier, logger: log}
}

func (uc *DeliverNotificationUseCase) Execute(_ context.Context, payload entity.NotifyPayload) error {
	if uc.notifier == nil {
		uc.logger.Warn("No notifier configured, dropping notification",
			"notification_type", payload.NotificationType,
			"dedupe_key", payload.DedupeKey,
		)
		return nil
	}

	uc.notifier.NotifyVerdict(&dto.VerdictNotification{
		ReleaseID:        payload.Context["release_id"],
		NotificationType: payload.NotificationType,
		ToAddress:        payload.ToAddress,
		Context:          payload.Context,
		SentAt:           time.Now().UTC(),
	})

	uc.logger.Info("Notification delivered",
		"notification_type", payload.NotificationType,
		"clients", uc.notifier.ClientCount(),
	)

	return nil
}
