// Package metrics holds the Prometheus collectors for warpcore cycles.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups every collector warpcore exports.
type Metrics struct {
	// CyclesTotal counts finished cycles by outcome.
	CyclesTotal *prometheus.CounterVec

	// CyclesSkipped counts cycles not started because one was in flight.
	CyclesSkipped *prometheus.CounterVec

	CycleDuration prometheus.Histogram

	// StreamCount is the last stream count read from the activity API.
	StreamCount prometheus.Gauge

	// WarpLevel is the last level sent to the controller.
	WarpLevel prometheus.Gauge

	ControllerResets prometheus.Counter
}

// New creates the collectors and registers them on reg. A nil reg gets a
// private registry that nothing scrapes.
//
// Returns an error if any collector is already registered on reg, which
// happens when two relays share one registry.
func New(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &Metrics{
		CyclesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "warpcore_cycles_total",
			Help: "Total number of finished cycles by outcome.",
		}, []string{"outcome"}),

		CyclesSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "warpcore_cycles_skipped_total",
			Help: "Cycles not started because the previous one was still running.",
		}, []string{"trigger"}),

		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "warpcore_cycle_duration_seconds",
			Help:    "Histogram of full cycle durations.",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}),

		StreamCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "warpcore_stream_count",
			Help: "Active stream count from the most recent successful fetch.",
		}),

		WarpLevel: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "warpcore_warp_level",
			Help: "Warp level sent to the controller by the most recent cycle.",
		}),

		ControllerResets: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "warpcore_controller_resets_total",
			Help: "Controller calls that ended in a tolerated connection reset.",
		}),
	}

	collectors := []prometheus.Collector{
		m.CyclesTotal,
		m.CyclesSkipped,
		m.CycleDuration,
		m.StreamCount,
		m.WarpLevel,
		m.ControllerResets,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}

	return m, nil
}

// ObserveCycle records a finished cycle.
func (m *Metrics) ObserveCycle(outcome string, d time.Duration) {
	m.CyclesTotal.WithLabelValues(outcome).Inc()
	m.CycleDuration.Observe(d.Seconds())
}
