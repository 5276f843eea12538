package usecase

import (
	"context"
	"testing"

	"github.com/dreschagin/seqpulse/internal/domain/entity"
	"github.com/dreschagin/seqpulse/internal/domain/repository"
	"github.com/dreschagin/seqpulse/pkg/logger"
	"github.com/google/uuid"
)

func hint(severity entity.HintSeverity, confidence float64) *entity.Hint {
	return &entity.Hint{
		ID:         uuid.New(),
		Severity:   severity,
		Confidence: confidence,
	}
}

func TestListHintsSortsByUrgency(t *testing.T) {
	hints := &mockHintRepo{listResult: []*entity.Hint{
		hint(entity.SeverityInfo, 0.95),
		hint(entity.SeverityCritical, 0.70),
		hint(entity.SeverityWarning, 0.80),
		hint(entity.SeverityCritical, 0.90),
	}}

	uc := NewListHintsUseCase(hints, nil, logger.New("error"))

	got, err := uc.Execute(context.Background(), repository.HintFilter{})
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}

	wantSeverities := []entity.HintSeverity{
		entity.SeverityCritical, entity.SeverityCritical,
		entity.SeverityWarning, entity.SeverityInfo,
	}
	for i, want := range wantSeverities {
		if got[i].Severity != want {
			t.Fatalf("hint[%d].Severity = %q, want %q (order: %v)", i, got[i].Severity, want, severities(got))
		}
	}
	// Within the same severity, higher confidence first.
	if got[0].Confidence != 0.90 || got[1].Confidence != 0.70 {
		t.Errorf("critical confidences = %v, %v, want 0.90 then 0.70", got[0].Confidence, got[1].Confidence)
	}
}

func severities(hints []*entity.Hint) []entity.HintSeverity {
	out := make([]entity.HintSeverity, len(hints))
	for i, h := range hints {
		out[i] = h.Severity
	}
	return out
}

func TestListHintsReleaseScopedCaching(t *testing.T) {
	releaseID := uuid.New()
	hints := &mockHintRepo{listResult: []*entity.Hint{hint(entity.SeverityWarning, 0.6)}}
	cache := newMockCache()

	uc := NewListHintsUseCase(hints, cache, logger.New("error"))
	filter := repository.HintFilter{ReleaseID: &releaseID, Limit: 10}

	first, err := uc.Execute(context.Background(), filter)
	if err != nil {
		t.Fatalf("first Execute() error: %v", err)
	}
	second, err := uc.Execute(context.Background(), filter)
	if err != nil {
		t.Fatalf("second Execute() error: %v", err)
	}

	if hints.listCalls != 1 {
		t.Errorf("repository queries = %d, want 1 (second read served from cache)", hints.listCalls)
	}
	if len(first) != 1 || len(second) != 1 {
		t.Errorf("results = %d and %d hints, want 1 each", len(first), len(second))
	}
}

func TestListHintsUnscopedQueriesBypassCache(t *testing.T) {
	hints := &mockHintRepo{listResult: []*entity.Hint{hint(entity.SeverityInfo, 0.5)}}
	cache := newMockCache()

	uc := NewListHintsUseCase(hints, cache, logger.New("error"))
	filter := repository.HintFilter{Severity: entity.SeverityInfo}

	for i := 0; i < 2; i++ {
		if _, err := uc.Execute(context.Background(), filter); err != nil {
			t.Fatalf("Execute() #%d error: %v", i+1, err)
		}
	}

	if hints.listCalls != 2 {
		t.Errorf("repository queries = %d, want 2 for uncacheable filters", hints.listCalls)
	}
	if len(cache.values) != 0 {
		t.Errorf("cache entries = %d, want none", len(cache.values))
	}
}
