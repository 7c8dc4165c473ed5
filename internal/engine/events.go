package engine

import (
	"time"

	"github.com/devharness/relaunch/internal/runtime"
)

// EventType captures high level lifecycle notifications emitted by the
// supervisor.
type EventType string

const (
	EventTypeStarting  EventType = "starting"
	EventTypeStarted   EventType = "started"
	EventTypeStopping  EventType = "stopping"
	EventTypeKilling   EventType = "killing"
	EventTypeStopped   EventType = "stopped"
	EventTypeCrashed   EventType = "crashed"
	EventTypeAbandoned EventType = "abandoned"
	EventTypeScheduled EventType = "scheduled"
	EventTypeLog       EventType = "log"
)

// Event represents a single lifecycle or log notification.
type Event struct {
	Timestamp time.Time
	Service   string
	Type      EventType
	Message   string
	Level     string
	Source    string
	State     string
	Pid       int
	Err       error
}

func (s *Supervisor) emit(t EventType, level, message string, err error) {
	if s.events == nil {
		return
	}
	evt := Event{
		Timestamp: time.Now(),
		Service:   s.name,
		Type:      t,
		Message:   message,
		Level:     level,
		Source:    runtime.LogSourceSystem,
		State:     s.state.String(),
		Err:       err,
	}
	if s.handle != nil {
		evt.Pid = s.handle.Pid()
	}
	s.events <- evt
}

// forwardLog converts a child output line into a log event. Lines are dropped
// rather than blocking the reaction loop when the consumer falls behind.
func (s *Supervisor) forwardLog(entry runtime.LogEntry) {
	if s.events == nil {
		return
	}
	level := entry.Level
	if level == "" {
		level = "info"
	}
	evt := Event{
		Timestamp: time.Now(),
		Service:   s.name,
		Type:      EventTypeLog,
		Message:   entry.Message,
		Level:     level,
		Source:    entry.Source,
		State:     s.state.String(),
	}
	select {
	case s.events <- evt:
	default:
	}
}
