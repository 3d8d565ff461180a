package deconz

import "github.com/prometheus/client_golang/prometheus"

// Metrics exposes the adapter's internal counters/gauges to a Prometheus
// registry: a handful of named counters the dispatcher, pending-request
// table and waitress increment directly, backed by real
// prometheus.Counter/Gauge collectors so an embedding process can
// register and scrape them. Nothing in the core blocks on scraping, and
// Metrics is optional (nil-safe call sites tolerate a nil *Metrics).
type Metrics struct {
	requestsSubmitted *prometheus.CounterVec
	requestsTimedOut  prometheus.Counter
	requestsRejected  *prometheus.CounterVec
	pendingSize       prometheus.Gauge
	waitressSize      prometheus.Gauge
	zclPayloads       prometheus.Counter
}

// NewMetrics builds a fresh, unregistered Metrics instance. Call
// Collectors() to register it with a prometheus.Registerer.
func NewMetrics() *Metrics {
	return &Metrics{
		requestsSubmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "deconz",
			Name:      "requests_submitted_total",
			Help:      "Dispatcher and sendZclFrameToEndpoint requests accepted by the driver, by operation; permitJoin, group/broadcast sends and the coordinator endpoint write are not counted.",
		}, []string{"operation"}),
		requestsTimedOut: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "deconz",
			Name:      "requests_timed_out_total",
			Help:      "Pending-request entries rejected by the timeout sweeper.",
		}),
		requestsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "deconz",
			Name:      "requests_rejected_total",
			Help:      "Dispatcher requests whose submission to the driver failed, by operation; responses with a non-zero ZDP status byte are not counted.",
		}, []string{"operation"}),
		pendingSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "deconz",
			Name:      "pending_requests",
			Help:      "Current size of the pending-request table.",
		}),
		waitressSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "deconz",
			Name:      "waitress_entries",
			Help:      "Current number of registered waitress futures.",
		}),
		zclPayloads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "deconz",
			Name:      "zcl_payloads_total",
			Help:      "ZCL payloads emitted to the event sink; payloads claimed by a waitress entry are not counted.",
		}),
	}
}

// Collectors returns every collector so the caller can register them:
// for _, c := range m.Collectors() { registerer.MustRegister(c) }
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.requestsSubmitted,
		m.requestsTimedOut,
		m.requestsRejected,
		m.pendingSize,
		m.waitressSize,
		m.zclPayloads,
	}
}
