package port

import "context"

// StatsPublisher ships operational counters to an external observability
// platform. Failures to publish are logged, never propagated; losing a
// counter must not fail a job.
type StatsPublisher interface {
	// Count adds value to the named counter with the given dimensions.
	Count(ctx context.Context, name string, value float64, dimensions map[string]string)

	// Flush forces immediate publication of buffered counters.
	Flush(ctx context.Context) error

	// Close stops background flushing and drains the buffer.
	Close(ctx context.Context) error
}
