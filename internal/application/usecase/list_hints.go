package usecase

import (
	"context"
	"fmt"
	"sort"

	"github.com/dreschagin/seqpulse/internal/application/port"
	"github.com/dreschagin/seqpulse/internal/domain/entity"
	"github.com/dreschagin/seqpulse/internal/domain/repository"
	"github.com/dreschagin/seqpulse/pkg/logger"
)

// ListHintsUseCase reads the hint set with an optional read-through cache.
// The cache key encodes the full filter; regeneration invalidates by release
// prefix.
type ListHintsUseCase struct {
	hints  repository.HintRepository
	cache  port.Cache
	logger *logger.Logger
}

func NewListHintsUseCase(hints repository.HintRepository, cache port.Cache, log *logger.Logger) *ListHintsUseCase {
	return &ListHintsUseCase{
		hints:  hints,
		cache:  cache,
		logger: log,
	}
}

func (uc *ListHintsUseCase) Execute(ctx context.Context, filter repository.HintFilter) ([]*entity.Hint, error) {
	key := cacheKey(filter)

	if uc.cache != nil && key != "" {
		var cached []*entity.Hint
		if err := uc.cache.Get(ctx, key, &cached); err == nil {
			uc.logger.Debug("Hint cache hit", "key", key)
			return cached, nil
		}
	}

	hints, err := uc.hints.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list hints: %w", err)
	}

	sort.SliceStable(hints, func(i, j int) bool {
		return hints[i].MoreUrgent(hints[j])
	})

	if uc.cache != nil && key != "" {
		if err := uc.cache.Set(ctx, key, hints); err != nil {
			uc.logger.Warn("Failed to cache hints", "key", key, "error", err.Error())
		}
	}

	return hints, nil
}

// cacheKey is only defined for release-scoped queries; unscoped listings are
// not worth caching and would be awkward to invalidate.
func cacheKey(filter repository.HintFilter) string {
	if filter.ReleaseID == nil {
		return ""
	}
	return fmt.Sprintf("hints:%s:%s:%s:%.2f:%d",
		filter.ReleaseID.String(),
		filter.Severity,
		filter.Metric,
		filter.MinConfidence,
		filter.Limit,
	)
}
