package events

import "time"

// Event type constants for kelindar/event.
const (
	TypeRebuild uint32 = iota + 1
)

// Event is the interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// RebuildEvent signals that an incremental build finished and the supervised
// service should be relaunched.
type RebuildEvent struct {
	// Path is the build artifact whose change triggered the notification,
	// empty when the trigger was not file-based.
	Path      string
	Op        string
	Timestamp time.Time
}

// Type returns the event type identifier for RebuildEvent.
func (e RebuildEvent) Type() uint32 { return TypeRebuild }
