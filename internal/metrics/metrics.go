// Package metrics exposes Prometheus collectors for the identity protocol:
// verification verdicts, probe failures, and worker spawns. The worker serves
// them on /metrics; helpers no-op until Register has been called so library
// embedders pay nothing by default.
package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	regOK atomic.Bool

	verifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stoker",
			Subsystem: "identity",
			Name:      "verifications_total",
			Help:      "Identity verifications by outcome (fresh, stale, indeterminate).",
		}, []string{"outcome"},
	)
	probeFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "stoker",
			Subsystem: "identity",
			Name:      "probe_failures_total",
			Help:      "Start-time probes that found no inspectable process.",
		},
	)
	spawns = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "stoker",
			Subsystem: "worker",
			Name:      "spawns_total",
			Help:      "Worker processes launched.",
		},
	)
	spawnConfigFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "stoker",
			Subsystem: "worker",
			Name:      "spawn_config_failures_total",
			Help:      "Spawns aborted because the platform configurator failed.",
		},
	)
	requests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "stoker",
			Subsystem: "worker",
			Name:      "requests_total",
			Help:      "HTTP requests handled by the worker, by route.",
		}, []string{"route"},
	)
)

// Register registers all collectors with r. Safe to call more than once;
// collectors already present are left in place.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{verifications, probeFailures, spawns, spawnConfigFailures, requests}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Handler serves the default gatherer; the worker mounts it at /metrics.
func Handler() http.Handler { return promhttp.Handler() }

func IncVerification(outcome string) {
	if regOK.Load() {
		verifications.WithLabelValues(outcome).Inc()
	}
}

func IncProbeFailure() {
	if regOK.Load() {
		probeFailures.Inc()
	}
}

func IncSpawn() {
	if regOK.Load() {
		spawns.Inc()
	}
}

func IncSpawnConfigFailure() {
	if regOK.Load() {
		spawnConfigFailures.Inc()
	}
}

func IncRequest(route string) {
	if regOK.Load() {
		requests.WithLabelValues(route).Inc()
	}
}
