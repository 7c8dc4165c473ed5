package metrics

import (
	"net/http"
	goruntime "runtime"
	"runtime/debug"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/devharness/relaunch/internal/engine"
)

var (
	registry = prometheus.NewRegistry()

	supervisorState = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "relaunch",
		Name:      "supervisor_state",
		Help:      "Current supervisor state (0=stopped, 1=running, 2=stopping, 3=killing).",
	}, []string{"service"})

	serviceStarts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "relaunch",
		Name:      "service_starts_total",
		Help:      "Total number of child processes launched for each service.",
	}, []string{"service"})

	serviceCrashes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "relaunch",
		Name:      "service_crashes_total",
		Help:      "Total number of unexpected child exits for each service.",
	}, []string{"service"})

	signalsSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "relaunch",
		Name:      "signals_sent_total",
		Help:      "Termination signals sent, labelled by escalation phase.",
	}, []string{"service", "phase"})

	abandonedProcesses = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "relaunch",
		Name:      "abandoned_processes_total",
		Help:      "Child processes the supervisor gave up waiting for.",
	}, []string{"service"})

	rebuildEvents = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "relaunch",
		Name:      "rebuild_events_total",
		Help:      "Rebuild-completed notifications observed.",
	})

	buildInfo = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "relaunch",
		Name:      "build_info",
		Help:      "Build metadata for the running relaunch binary.",
	}, []string{"go_version", "vcs", "vcs_revision", "vcs_time", "vcs_modified"})

	buildInfoOnce sync.Once
)

func init() {
	registry.MustRegister(supervisorState, serviceStarts, serviceCrashes, signalsSent, abandonedProcesses, rebuildEvents, buildInfo)
}

// Registry returns the Prometheus registry containing all relaunch metrics.
func Registry() *prometheus.Registry {
	return registry
}

// Handler serves the registry over HTTP.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// IncrementRebuild records one rebuild-completed notification.
func IncrementRebuild() {
	rebuildEvents.Inc()
}

// Observe applies a lifecycle event to the metric set.
func Observe(evt engine.Event) {
	if evt.Service == "" {
		return
	}
	switch evt.Type {
	case engine.EventTypeStarted:
		serviceStarts.WithLabelValues(evt.Service).Inc()
		supervisorState.WithLabelValues(evt.Service).Set(float64(engine.StateRunning))
	case engine.EventTypeStopping:
		signalsSent.WithLabelValues(evt.Service, "terminate").Inc()
		supervisorState.WithLabelValues(evt.Service).Set(float64(engine.StateStopping))
	case engine.EventTypeKilling:
		signalsSent.WithLabelValues(evt.Service, "kill").Inc()
		supervisorState.WithLabelValues(evt.Service).Set(float64(engine.StateKilling))
	case engine.EventTypeStopped:
		supervisorState.WithLabelValues(evt.Service).Set(float64(engine.StateStopped))
	case engine.EventTypeCrashed:
		serviceCrashes.WithLabelValues(evt.Service).Inc()
		supervisorState.WithLabelValues(evt.Service).Set(float64(engine.StateStopped))
	case engine.EventTypeAbandoned:
		abandonedProcesses.WithLabelValues(evt.Service).Inc()
	}
}

// EmitBuildInfo publishes build metadata from the embedded VCS information.
func EmitBuildInfo() {
	buildInfoOnce.Do(func() {
		labels := prometheus.Labels{
			"go_version":   goruntime.Version(),
			"vcs":          "",
			"vcs_revision": "",
			"vcs_time":     "",
			"vcs_modified": "",
		}
		if info, ok := debug.ReadBuildInfo(); ok {
			for _, setting := range info.Settings {
				switch setting.Key {
				case "vcs":
					labels["vcs"] = setting.Value
				case "vcs.revision":
					labels["vcs_revision"] = setting.Value
				case "vcs.time":
					labels["vcs_time"] = setting.Value
				case "vcs.modified":
					labels["vcs_modified"] = setting.Value
				}
			}
		}
		buildInfo.With(labels).Set(1)
	})
}
