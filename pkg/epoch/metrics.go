// pkg/epoch/metrics.go
package epoch

import "github.com/prometheus/client_golang/prometheus"

// Metrics exposes a manager's epoch progression to a Prometheus scraper.
// Each Manager owns a private registry rather than registering into the
// global default registerer, so a process can run more than one Manager
// (as the test suite does) without a "duplicate metrics collector"
// registration panic.
type Metrics struct {
	registry *prometheus.Registry

	globalEpoch       prometheus.Gauge
	tailEpoch         prometheus.Gauge
	registeredThreads prometheus.Gauge
}

func newMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		globalEpoch: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "dem",
			Name:      "global_epoch",
			Help:      "Current value of the global epoch counter.",
		}),
		tailEpoch: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "dem",
			Name:      "tail_epoch",
			Help:      "Most recent safe reclamation horizon returned by GlobalTailEpoch.",
		}),
		registeredThreads: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "dem",
			Name:      "registered_threads",
			Help:      "Number of worker threads currently registered with the manager.",
		}),
	}
	m.registry.MustRegister(m.globalEpoch, m.tailEpoch, m.registeredThreads)
	return m
}

// Registry returns the private Prometheus registry backing these metrics,
// suitable for mounting behind promhttp.HandlerFor in a host process.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
