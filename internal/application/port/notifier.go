package port

import "github.com/dreschagin/seqpulse/internal/application/dto"

// Notifier delivers verdict notifications to connected consumers (Port).
// The implementation lives in the infrastructure layer (WebSocket hub).
type Notifier interface {
	// NotifyVerdict pushes a verdict notification to all connected clients.
	NotifyVerdict(notification *dto.VerdictNotification)

	// ClientCount returns the number of connected clients.
	ClientCount() int
}
