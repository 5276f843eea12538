package usecase

import (
	"context"
	"testing"

	"github.com/dreschagin/seqpulse/internal/domain/entity"
	"github.com/dreschagin/seqpulse/pkg/logger"
	"github.com/google/uuid"
)

func TestScheduleNotificationCreatesJob(t *testing.T) {
	jobs := &mockJobRepo{dedupedResult: true}
	uc := NewScheduleNotificationUseCase(jobs, logger.New("error"))

	job, err := uc.Execute(context.Background(), ScheduleNotificationCommand{
		UserID:           uuid.New(),
		ToAddress:        "ops@example.com",
		NotificationType: "verdict_ready",
		DedupeKey:        "verdict-ready:abc",
	})
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if job == nil {
		t.Fatal("expected the created job back")
	}
	if job.Kind != entity.JobKindNotify {
		t.Errorf("kind = %q, want notify", job.Kind)
	}
	if job.DedupeKey != "verdict-ready:abc" {
		t.Errorf("dedupe key = %q", job.DedupeKey)
	}

	payload, err := job.DecodeNotifyPayload()
	if err != nil {
		t.Fatalf("payload: %v", err)
	}
	if payload.NotificationType != "verdict_ready" || payload.ToAddress != "ops@example.com" {
		t.Errorf("payload = %+v", payload)
	}
}

func TestScheduleNotificationDuplicateIsSilent(t *testing.T) {
	jobs := &mockJobRepo{dedupedResult: false}
	uc := NewScheduleNotificationUseCase(jobs, logger.New("error"))

	job, err := uc.Execute(context.Background(), ScheduleNotificationCommand{
		NotificationType: "verdict_ready",
		DedupeKey:        "verdict-ready:abc",
	})
	if err != nil {
		t.Fatalf("a duplicate must not be an error, got: %v", err)
	}
	if job != nil {
		t.Error("a duplicate must not return a job")
	}
}

func TestScheduleNotificationRequiresDedupeKey(t *testing.T) {
	uc := NewScheduleNotificationUseCase(&mockJobRepo{}, logger.New("error"))
	if _, err := uc.Execute(context.Background(), ScheduleNotificationCommand{NotificationType: "verdict_ready"}); err == nil {
		t.Fatal("expected an error without a dedupe key")
	}
}

func TestScheduleNotificationRequiresType(t *testing.T) {
	uc := NewScheduleNotificationUseCase(&mockJobRepo{}, logger.New("error"))
	if _, err := uc.Execute(context.Background(), ScheduleNotificationCommand{DedupeKey: "k"}); err == nil {
		t.Fatal("expected an error without a notification type")
	}
}

func TestDeliverNotificationPushesToClients(t *testing.T) {
	notifier := &mockNotifier{}
	uc := NewDeliverNotificationUseCase(notifier, logger.New("error"))

	releaseID := uuid.New().String()
	err := uc.Execute(context.Background(), entity.NotifyPayload{
		NotificationType: "verdict_ready",
		DedupeKey:        "verdict-ready:" + releaseID,
		Context: map[string]string{
			"release_id": releaseID,
			"verdict":    "rollback_recommended",
		},
	})
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}

	if len(notifier.notifications) != 1 {
		t.Fatalf("notifications = %d, want 1", len(notifier.notifications))
	}
	got := notifier.notifications[0]
	if got.ReleaseID != releaseID {
		t.Errorf("release id = %q, want %q", got.ReleaseID, releaseID)
	}
	if got.Context["verdict"] != "rollback_recommended" {
		t.Errorf("context = %v", got.Context)
	}
	if got.SentAt.IsZero() {
		t.Error("sent_at must be stamped")
	}
}

func TestDeliverNotificationWithoutNotifier(t *testing.T) {
	uc := NewDeliverNotificationUseCase(nil, logger.New("error"))
	if err := uc.Execute(context.Background(), entity.NotifyPayload{NotificationType: "verdict_ready"}); err != nil {
		t.Fatalf("a missing notifier must drop, not fail: %v", err)
	}
}
