// Package events re-exports the platform event bus and defines the
// outreach domain events carried on it.
package events

import (
	platformevents "outreach_backend/platform/events"
	"outreach_backend/platform/logger"
)

// InMemoryBus is a type alias to the platform InMemoryBus
type InMemoryBus = platformevents.InMemoryBus

// NewInMemoryBus creates a new in-memory event bus.
func NewInMemoryBus(log *logger.Logger) *InMemoryBus {
	return platformevents.NewInMemoryBus(log)
}
