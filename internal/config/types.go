package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/devharness/relaunch/internal/runtime"
)

// Defaults applied to unset serve fields.
const (
	DefaultScript            = "serve"
	DefaultWaitBeforeRestart = time.Second
	DefaultWaitForTerminate  = 5 * time.Second
	DefaultWaitForKill       = 5 * time.Second
	DefaultWatchDebounce     = 300 * time.Millisecond
)

// ErrScriptMissing reports that the configured serve script has no entry in
// the manifest's scripts table.
var ErrScriptMissing = errors.New("script not found in manifest")

// Duration wraps time.Duration for YAML unmarshalling.
type Duration struct {
	time.Duration
	explicit bool
}

// UnmarshalText parses a textual duration, accepting empty strings.
func (d *Duration) UnmarshalText(text []byte) error {
	d.explicit = true
	if len(text) == 0 {
		d.Duration = 0
		return nil
	}
	dur, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = dur
	return nil
}

// MarshalText renders the duration using time.Duration formatting.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// IsSet reports whether the duration was explicitly provided or non-zero.
func (d Duration) IsSet() bool {
	return d.explicit || d.Duration != 0
}

// Manifest mirrors the relaunch.yaml document structure.
type Manifest struct {
	Version string            `yaml:"version"`
	Project ProjectMeta       `yaml:"project"`
	Scripts map[string]string `yaml:"scripts"`
	Env     map[string]string `yaml:"env"`
	Serve   *ServeSpec        `yaml:"serve"`
	Watch   *WatchSpec        `yaml:"watch"`
}

// ProjectMeta contains metadata about the project the manifest belongs to.
type ProjectMeta struct {
	Name    string `yaml:"name"`
	Workdir string `yaml:"workdir"`
}

// ServeSpec configures the supervised serve script and its timing policies.
type ServeSpec struct {
	Script              string   `yaml:"script"`
	IgnoreMissingScript bool     `yaml:"ignoreMissingScript"`
	WaitBeforeRestart   Duration `yaml:"waitBeforeRestart"`
	WaitForTerminate    Duration `yaml:"waitForTerminate"`
	WaitForKill         Duration `yaml:"waitForKill"`
}

// WatchSpec configures rebuild detection over the build output paths.
type WatchSpec struct {
	Paths    []string `yaml:"paths"`
	Debounce Duration `yaml:"debounce"`
}

// Plan is the immutable resolved configuration consumed by the supervisor
// host. Produced once at session start.
type Plan struct {
	Name    string
	Script  string
	Command []string
	Dir     string
	Env     map[string]string

	WaitBeforeRestart time.Duration
	WaitForTerminate  time.Duration
	WaitForKill       time.Duration

	WatchPaths    []string
	WatchDebounce time.Duration
}

// ApplyDefaults fills unset fields with their defaults.
func (m *Manifest) ApplyDefaults() error {
	if m.Serve == nil {
		m.Serve = &ServeSpec{}
	}
	if strings.TrimSpace(m.Serve.Script) == "" {
		m.Serve.Script = DefaultScript
	}
	if !m.Serve.WaitBeforeRestart.IsSet() {
		m.Serve.WaitBeforeRestart.Duration = DefaultWaitBeforeRestart
	}
	if !m.Serve.WaitForTerminate.IsSet() {
		m.Serve.WaitForTerminate.Duration = DefaultWaitForTerminate
	}
	if !m.Serve.WaitForKill.IsSet() {
		m.Serve.WaitForKill.Duration = DefaultWaitForKill
	}
	if m.Watch == nil {
		m.Watch = &WatchSpec{}
	}
	if !m.Watch.Debounce.IsSet() {
		m.Watch.Debounce.Duration = DefaultWatchDebounce
	}
	return nil
}

// Validate enforces schema invariants.
func (m *Manifest) Validate() error {
	if m.Version == "" {
		return fmt.Errorf("%s: is required", fieldPath("version"))
	}
	if strings.TrimSpace(m.Project.Name) == "" {
		return fmt.Errorf("%s: is required", fieldPath("project", "name"))
	}
	for name, script := range m.Scripts {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("%s: script name must be non-empty", fieldPath("scripts"))
		}
		if strings.TrimSpace(script) == "" {
			return fmt.Errorf("%s: must have a command", fieldPath("scripts", name))
		}
	}
	if m.Serve != nil {
		if m.Serve.WaitBeforeRestart.Duration < 0 {
			return fmt.Errorf("%s: must be non-negative", serveField("waitBeforeRestart"))
		}
		if m.Serve.WaitForTerminate.Duration < 0 {
			return fmt.Errorf("%s: must be non-negative", serveField("waitForTerminate"))
		}
		if m.Serve.WaitForKill.Duration < 0 {
			return fmt.Errorf("%s: must be non-negative", serveField("waitForKill"))
		}
	}
	if m.Watch != nil {
		if m.Watch.Debounce.Duration < 0 {
			return fmt.Errorf("%s: must be non-negative", fieldPath("watch", "debounce"))
		}
		for i, path := range m.Watch.Paths {
			if strings.TrimSpace(path) == "" {
				return fmt.Errorf("%s: must be non-empty", fieldPath("watch", fmt.Sprintf("paths[%d]", i)))
			}
		}
	}
	return nil
}

// ServePlan resolves the serve script into the plan the supervisor host
// consumes. A (nil, nil) result means the subsystem is disabled: the script
// is absent and the manifest asked for that to be tolerated.
func (m *Manifest) ServePlan() (*Plan, error) {
	script, ok := m.Scripts[m.Serve.Script]
	if !ok {
		if m.Serve.IgnoreMissingScript {
			return nil, nil
		}
		return nil, fmt.Errorf("scripts.%s: %w", m.Serve.Script, ErrScriptMissing)
	}

	var env map[string]string
	if len(m.Env) > 0 {
		env = make(map[string]string, len(m.Env))
		for k, v := range m.Env {
			env[k] = v
		}
	}

	return &Plan{
		Name:              m.Project.Name,
		Script:            m.Serve.Script,
		Command:           runtime.ShellCommand(script),
		Dir:               m.Project.Workdir,
		Env:               env,
		WaitBeforeRestart: m.Serve.WaitBeforeRestart.Duration,
		WaitForTerminate:  m.Serve.WaitForTerminate.Duration,
		WaitForKill:       m.Serve.WaitForKill.Duration,
		WatchPaths:        append([]string(nil), m.Watch.Paths...),
		WatchDebounce:     m.Watch.Debounce.Duration,
	}, nil
}

func fieldPath(parts ...string) string {
	return strings.Join(parts, ".")
}

func serveField(parts ...string) string {
	pathParts := append([]string{"serve"}, parts...)
	return fieldPath(pathParts...)
}
