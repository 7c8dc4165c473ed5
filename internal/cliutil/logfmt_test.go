package cliutil

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/devharness/relaunch/internal/engine"
	"github.com/devharness/relaunch/internal/runtime"
)

func TestNewLogRecordFillsDefaults(t *testing.T) {
	record := NewLogRecord(engine.Event{
		Service: "myapp",
		Type:    engine.EventTypeStarted,
		Message: "service started",
	})

	if record.Level != "info" {
		t.Fatalf("level = %q, want info", record.Level)
	}
	if record.Source != runtime.LogSourceSystem {
		t.Fatalf("source = %q, want %q", record.Source, runtime.LogSourceSystem)
	}
}

func TestNewLogRecordCarriesError(t *testing.T) {
	record := NewLogRecord(engine.Event{
		Service: "myapp",
		Type:    engine.EventTypeCrashed,
		Level:   "warn",
		Message: "service exited unexpectedly",
		Err:     errors.New("exit status 1"),
	})

	if record.Level != "warn" {
		t.Fatalf("level = %q, want warn", record.Level)
	}
	if record.Error != "exit status 1" {
		t.Fatalf("error = %q", record.Error)
	}
}

func TestEncodeLogEventProducesJSON(t *testing.T) {
	var out bytes.Buffer
	enc := json.NewEncoder(&out)

	EncodeLogEvent(enc, &bytes.Buffer{}, engine.Event{
		Timestamp: time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC),
		Service:   "myapp",
		Type:      engine.EventTypeStopped,
		Level:     "info",
		Message:   "service stopped",
		State:     "stopped",
		Pid:       1234,
	})

	var decoded LogRecord
	if err := json.Unmarshal(out.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON output: %v", err)
	}
	if decoded.Service != "myapp" || decoded.Message != "service stopped" {
		t.Fatalf("unexpected record: %+v", decoded)
	}
	if decoded.Pid != 1234 || decoded.State != "stopped" {
		t.Fatalf("unexpected record: %+v", decoded)
	}
}

func TestWriteHumanEventChildOutput(t *testing.T) {
	var out bytes.Buffer
	WriteHumanEvent(&out, engine.Event{
		Timestamp: time.Now(),
		Service:   "myapp",
		Type:      engine.EventTypeLog,
		Message:   "listening on :3000",
		Source:    runtime.LogSourceStdout,
	})

	line := out.String()
	if !strings.Contains(line, "[myapp]") || !strings.Contains(line, "listening on :3000") {
		t.Fatalf("unexpected line %q", line)
	}
	if !strings.Contains(line, runtime.LogSourceStdout) {
		t.Fatalf("expected source marker in %q", line)
	}
}

func TestWriteHumanEventIncludesError(t *testing.T) {
	var out bytes.Buffer
	WriteHumanEvent(&out, engine.Event{
		Timestamp: time.Now(),
		Service:   "myapp",
		Type:      engine.EventTypeCrashed,
		Level:     "warn",
		Message:   "service exited unexpectedly",
		Err:       errors.New("exit status 2"),
	})

	line := out.String()
	if !strings.Contains(line, "exit status 2") {
		t.Fatalf("expected error detail in %q", line)
	}
}
