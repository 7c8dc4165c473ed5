package cliutil

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"golang.org/x/term"

	"github.com/devharness/relaunch/internal/engine"
	"github.com/devharness/relaunch/internal/runtime"
)

// LogRecord represents a structured log event ready for JSON encoding.
type LogRecord struct {
	Timestamp time.Time `json:"ts"`
	Service   string    `json:"service"`
	Level     string    `json:"level"`
	Message   string    `json:"msg"`
	Source    string    `json:"source"`
	State     string    `json:"state,omitempty"`
	Pid       int       `json:"pid,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// NewLogRecord converts a supervisor event into a structured log record.
func NewLogRecord(event engine.Event) LogRecord {
	level := event.Level
	if level == "" {
		level = "info"
	}
	source := event.Source
	if source == "" {
		source = runtime.LogSourceSystem
	}
	record := LogRecord{
		Timestamp: event.Timestamp,
		Service:   event.Service,
		Level:     level,
		Message:   event.Message,
		Source:    source,
		State:     event.State,
		Pid:       event.Pid,
	}
	if event.Err != nil {
		record.Error = event.Err.Error()
	}
	return record
}

// EncodeLogEvent encodes a log event to JSON, reporting errors to stderr if
// needed.
func EncodeLogEvent(enc *json.Encoder, stderr io.Writer, event engine.Event) {
	if enc == nil {
		return
	}
	record := NewLogRecord(event)
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now()
	}
	if err := enc.Encode(&record); err != nil {
		fmt.Fprintf(stderr, "error: encode log: %v\n", err)
	}
}

// WriteHumanEvent renders a log event as a single human-readable line.
func WriteHumanEvent(w io.Writer, event engine.Event) {
	record := NewLogRecord(event)
	if record.Timestamp.IsZero() {
		record.Timestamp = time.Now()
	}
	if event.Type == engine.EventTypeLog {
		fmt.Fprintf(w, "%s [%s] %s | %s\n", record.Timestamp.Format("15:04:05"), record.Service, record.Source, record.Message)
		return
	}
	line := fmt.Sprintf("%s [%s] %-5s %s", record.Timestamp.Format("15:04:05"), record.Service, record.Level, record.Message)
	if record.Error != "" {
		line += ": " + record.Error
	}
	fmt.Fprintln(w, line)
}

// StdoutIsTerminal reports whether stdout is attached to a terminal, used to
// pick the human-readable renderer over JSON.
func StdoutIsTerminal() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}
