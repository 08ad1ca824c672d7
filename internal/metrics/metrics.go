// Package metrics exposes Prometheus counters for the acquisition pipeline.
//
// Every method is safe on a nil *Collector, so components can be built
// without metrics in tests and in the one-shot fetch command.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "hackathons"

// Collector holds the pipeline metrics.
type Collector struct {
	fetchOutcomes    *prometheus.CounterVec
	detailResults    *prometheus.CounterVec
	upstreamRequests *prometheus.CounterVec
	refreshCycles    *prometheus.CounterVec
	refreshDuration  prometheus.Histogram
	items            *prometheus.GaugeVec
}

// NewCollector creates the metrics and registers them on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		fetchOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_outcomes_total",
			Help:      "Source fetch results by source, status and serving tier",
		}, []string{"source", "status", "tier"}),
		detailResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detail_fetch_total",
			Help:      "Per-item detail fetch results",
		}, []string{"source", "result"}),
		upstreamRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Upstream HTTP requests by host and status code",
		}, []string{"host", "code"}),
		refreshCycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_cycles_total",
			Help:      "Completed refresh cycles by result",
		}, []string{"result"}),
		refreshDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "refresh_duration_seconds",
			Help:      "Refresh cycle wall time",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),
		items: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "items",
			Help:      "Items currently held per source",
		}, []string{"source"}),
	}

	reg.MustRegister(
		c.fetchOutcomes,
		c.detailResults,
		c.upstreamRequests,
		c.refreshCycles,
		c.refreshDuration,
		c.items,
	)
	return c
}

// RecordFetch counts one Source Fetcher outcome.
func (c *Collector) RecordFetch(source, status, tier string) {
	if c == nil {
		return
	}
	c.fetchOutcomes.WithLabelValues(source, status, tier).Inc()
}

// RecordDetail counts one detail page result ("live", "snapshot", "dropped").
func (c *Collector) RecordDetail(source, result string) {
	if c == nil {
		return
	}
	c.detailResults.WithLabelValues(source, result).Inc()
}

// RecordUpstream counts one upstream request. Code 0 means a transport error.
func (c *Collector) RecordUpstream(host string, code int) {
	if c == nil {
		return
	}
	label := "error"
	if code > 0 {
		label = strconv.Itoa(code)
	}
	c.upstreamRequests.WithLabelValues(host, label).Inc()
}

// RecordRefresh counts a finished cycle and observes its duration.
func (c *Collector) RecordRefresh(result string, took time.Duration) {
	if c == nil {
		return
	}
	c.refreshCycles.WithLabelValues(result).Inc()
	c.refreshDuration.Observe(took.Seconds())
}

// SetItems sets the number of items held for source.
func (c *Collector) SetItems(source string, n int) {
	if c == nil {
		return
	}
	c.items.WithLabelValues(source).Set(float64(n))
}
