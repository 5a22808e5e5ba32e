package bus

import "time"

// Event kinds published by the daemon.
const (
	KindMessage       = "tg.message"
	KindCommand       = "tg.command"
	KindStatusChanged = "daemon.status_changed"
)

// Event represents a domain event published on the bus.
type Event struct {
	ID        string
	Kind      string
	Timestamp time.Time
	Payload   any
}
