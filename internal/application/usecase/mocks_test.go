package usecase

import (
	"context"
	"time"

	"github.com/dreschagin/seqpulse/internal/application/dto"
	"github.com/dreschagin/seqpulse/internal/domain/entity"
	"github.com/dreschagin/seqpulse/internal/domain/repository"
	"github.com/google/uuid"
)

type mockProjectRepo struct {
	projects map[uuid.UUID]*entity.Project
}

func (m *mockProjectRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Project, error) {
	if p, ok := m.projects[id]; ok {
		return p, nil
	}
	return nil, repository.ErrNotFound
}

type mockReleaseRepo struct {
	releases map[uuid.UUID]*entity.Release

	created  []*entity.Release
	finished []*entity.Release
	states   []entity.ReleaseState
}

func (m *mockReleaseRepo) Create(ctx context.Context, release *entity.Release) error {
	m.created = append(m.created, release)
	return nil
}

func (m *mockReleaseRepo) GetByID(ctx context.Context, id uuid.UUID) (*entity.Release, error) {
	if r, ok := m.releases[id]; ok {
		return r, nil
	}
	return nil, repository.ErrNotFound
}

func (m *mockReleaseRepo) Finish(ctx context.Context, release *entity.Release) error {
	m.finished = append(m.finished, release)
	return nil
}

func (m *mockReleaseRepo) UpdateState(ctx context.Context, id uuid.UUID, state entity.ReleaseState) error {
	m.states = append(m.states, state)
	return nil
}

type mockJobRepo struct {
	created       []*entity.Job
	batches       [][]*entity.Job
	dedupedJobs   []*entity.Job
	dedupedResult bool
}

func (m *mockJobRepo) Create(ctx context.Context, job *entity.Job) error {
	m.created = append(m.created, job)
	return nil
}

func (m *mockJobRepo) CreateBatch(ctx context.Context, jobs []*entity.Job) error {
	m.batches = append(m.batches, jobs)
	return nil
}

func (m *mockJobRepo) CreateDeduped(ctx context.Context, job *entity.Job) (bool, error) {
	m.dedupedJobs = append(m.dedupedJobs, job)
	return m.dedupedResult, nil
}

func (m *mockJobRepo) Due(ctx context.Context, now time.Time, limit int) ([]*entity.Job, error) {
	return nil, nil
}

func (m *mockJobRepo) Claim(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	return false, nil
}

func (m *mockJobRepo) Stuck(ctx context.Context, cutoff time.Time) ([]*entity.Job, error) {
	return nil, nil
}

func (m *mockJobRepo) MarkCompleted(ctx context.Context, id uuid.UUID, now time.Time) error {
	return nil
}

func (m *mockJobRepo) Requeue(ctx context.Context, id uuid.UUID, retryCount int, lastError string, scheduledAt, now time.Time) error {
	return nil
}

func (m *mockJobRepo) MarkFailed(ctx context.Context, id uuid.UUID, retryCount int, lastError string, now time.Time) error {
	return nil
}

type mockSampleRepo struct {
	pre  []*entity.MetricSample
	post []*entity.MetricSample

	inserted []*entity.MetricSample
}

func (m *mockSampleRepo) Insert(ctx context.Context, sample *entity.MetricSample) error {
	m.inserted = append(m.inserted, sample)
	return nil
}

func (m *mockSampleRepo) ListByPhase(ctx context.Context, releaseID uuid.UUID, phase entity.Phase) ([]*entity.MetricSample, error) {
	if phase == entity.PhasePre {
		return m.pre, nil
	}
	return m.post, nil
}

type mockVerdictRepo struct {
	existing map[uuid.UUID]*entity.Verdict
	created  []*entity.Verdict
}

func (m *mockVerdictRepo) CreateIfAbsent(ctx context.Context, verdict *entity.Verdict) (bool, error) {
	if m.existing == nil {
		m.existing = make(map[uuid.UUID]*entity.Verdict)
	}
	if _, ok := m.existing[verdict.ReleaseID]; ok {
		return false, nil
	}
	m.existing[verdict.ReleaseID] = verdict
	m.created = append(m.created, verdict)
	return true, nil
}

func (m *mockVerdictRepo) GetByRelease(ctx context.Context, releaseID uuid.UUID) (*entity.Verdict, error) {
	if v, ok := m.existing[releaseID]; ok {
		return v, nil
	}
	return nil, repository.ErrNotFound
}

type mockHintRepo struct {
	listResult []*entity.Hint
	replaced   [][]*entity.Hint
	listCalls  int
}

func (m *mockHintRepo) ReplaceForRelease(ctx context.Context, releaseID uuid.UUID, hints []*entity.Hint) error {
	m.replaced = append(m.replaced, hints)
	return nil
}

func (m *mockHintRepo) List(ctx context.Context, filter repository.HintFilter) ([]*entity.Hint, error) {
	m.listCalls++
	return m.listResult, nil
}

// mockCache keeps JSON-free in-memory values; Get copies hint slices through
// the concrete type used by the listing path.
type mockCache struct {
	values   map[string][]*entity.Hint
	deleted  []string
	patterns []string
}

func newMockCache() *mockCache {
	return &mockCache{values: make(map[string][]*entity.Hint)}
}

func (m *mockCache) Get(ctx context.Context, key string, dest interface{}) error {
	hints, ok := m.values[key]
	if !ok {
		return repository.ErrNotFound
	}
	ptr, ok := dest.(*[]*entity.Hint)
	if !ok {
		return repository.ErrNotFound
	}
	*ptr = hints
	return nil
}

func (m *mockCache) Set(ctx context.Context, key string, value interface{}) error {
	if hints, ok := value.([]*entity.Hint); ok {
		m.values[key] = hints
	}
	return nil
}

func (m *mockCache) SetIfAbsent(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error) {
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = nil
	return true, nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	m.deleted = append(m.deleted, key)
	delete(m.values, key)
	return nil
}

func (m *mockCache) DeletePattern(ctx context.Context, pattern string) error {
	m.patterns = append(m.patterns, pattern)
	return nil
}

func (m *mockCache) Close() error { return nil }

type publishedEvent struct {
	subject string
	event   interface{}
}

type mockEventPublisher struct {
	events []publishedEvent
}

func (m *mockEventPublisher) PublishEvent(ctx context.Context, subject string, event interface{}) error {
	m.events = append(m.events, publishedEvent{subject: subject, event: event})
	return nil
}

func (m *mockEventPublisher) Close() error { return nil }

type mockStatsPublisher struct {
	counts map[string]float64
}

func (m *mockStatsPublisher) Count(ctx context.Context, name string, value float64, dimensions map[string]string) {
	if m.counts == nil {
		m.counts = make(map[string]float64)
	}
	m.counts[name] += value
}

func (m *mockStatsPublisher) Flush(ctx context.Context) error { return nil }
func (m *mockStatsPublisher) Close(ctx context.Context) error { return nil }

type mockNotifier struct {
	notifications []*dto.VerdictNotification
}

func (m *mockNotifier) NotifyVerdict(notification *dto.VerdictNotification) {
	m.notifications = append(m.notifications, notification)
}

func (m *mockNotifier) ClientCount() int { return len(m.notifications) }
