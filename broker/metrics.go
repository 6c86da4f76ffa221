package broker

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	statsd "github.com/DataDog/datadog-go/v5/statsd"
	"github.com/prometheus/client_golang/prometheus"
)

// metricsCollector accumulates the lock-free counters the Prometheus
// and Datadog exporters below pull from, the same split the teacher's
// metrics_exporters.go documents: "exporters pull via public stats
// methods; no additional instrumentation on publish path" beyond plain
// atomics.
type metricsCollector struct {
	poolCapacity int64

	enqueued  uint64
	overflows uint64
	drained   uint64
	dedupHits uint64
}

func newMetricsCollector(poolCapacity int) *metricsCollector {
	return &metricsCollector{poolCapacity: int64(poolCapacity)}
}

func (m *metricsCollector) observeEnqueue(w *Watcher, pending int) {
	atomic.AddUint64(&m.enqueued, 1)
}

func (m *metricsCollector) observeOverflow(w *Watcher) {
	atomic.AddUint64(&m.overflows, 1)
}

func (m *metricsCollector) observeDrain(w *Watcher, n int) {
	atomic.AddUint64(&m.drained, uint64(n))
}

// Stats is a point-in-time snapshot for /debug and health endpoints.
type Stats struct {
	PoolCapacity   int64
	PoolOutstanding int32
	PendingRenames  int32
	PoolDropCount   uint64
	Enqueued        uint64
	Overflows       uint64
	Drained         uint64
}

// Stats returns a snapshot of broker-wide counters.
func (b *Broker) Stats() Stats {
	return Stats{
		PoolCapacity:    b.metrics.poolCapacity,
		PoolOutstanding: b.pool.Outstanding(),
		PendingRenames:  b.pool.PendingRenames(),
		PoolDropCount:   b.pool.DropCount(),
		Enqueued:        atomic.LoadUint64(&b.metrics.enqueued),
		Overflows:       atomic.LoadUint64(&b.metrics.overflows),
		Drained:         atomic.LoadUint64(&b.metrics.drained),
	}
}

// ----- Prometheus collector -----

// PrometheusCollector implements prometheus.Collector over a Broker's
// pool/queue/drop counters, the same shape as the teacher's
// PrometheusCollector for EventBus delivery stats.
type PrometheusCollector struct {
	b *Broker

	poolOutstandingDesc *prometheus.Desc
	poolCapacityDesc    *prometheus.Desc
	enqueuedDesc        *prometheus.Desc
	overflowsDesc       *prometheus.Desc
	drainedDesc         *prometheus.Desc
	dropsDesc           *prometheus.Desc
}

// NewPrometheusCollector wraps b. namespace defaults to "fsbroker".
func NewPrometheusCollector(b *Broker, namespace string) *PrometheusCollector {
	if namespace == "" {
		namespace = "fsbroker"
	}
	mk := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(fmt.Sprintf("%s_%s", namespace, name), help, nil, nil)
	}
	return &PrometheusCollector{
		b:                   b,
		poolOutstandingDesc: mk("pool_outstanding", "Event slots currently allocated"),
		poolCapacityDesc:    mk("pool_capacity", "Fixed event pool capacity"),
		enqueuedDesc:        mk("watcher_enqueued_total", "Total references enqueued to any watcher"),
		overflowsDesc:       mk("watcher_overflow_total", "Total ring-full overflow events"),
		drainedDesc:         mk("watcher_drained_total", "Total references released by backpressure drains"),
		dropsDesc:           mk("pool_exhausted_total", "Total pool-exhaustion events"),
	}
}

// Describe sends metric descriptors.
func (c *PrometheusCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.poolOutstandingDesc
	ch <- c.poolCapacityDesc
	ch <- c.enqueuedDesc
	ch <- c.overflowsDesc
	ch <- c.drainedDesc
	ch <- c.dropsDesc
}

// Collect gathers current stats and emits ConstMetrics.
func (c *PrometheusCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.b.Stats()
	ch <- prometheus.MustNewConstMetric(c.poolOutstandingDesc, prometheus.GaugeValue, float64(s.PoolOutstanding))
	ch <- prometheus.MustNewConstMetric(c.poolCapacityDesc, prometheus.GaugeValue, float64(s.PoolCapacity))
	ch <- prometheus.MustNewConstMetric(c.enqueuedDesc, prometheus.CounterValue, float64(s.Enqueued))
	ch <- prometheus.MustNewConstMetric(c.overflowsDesc, prometheus.CounterValue, float64(s.Overflows))
	ch <- prometheus.MustNewConstMetric(c.drainedDesc, prometheus.CounterValue, float64(s.Drained))
	ch <- prometheus.MustNewConstMetric(c.dropsDesc, prometheus.CounterValue, float64(s.PoolDropCount))
}

// ----- Datadog / StatsD exporter -----

// DatadogStatsdExporter periodically flushes the same counters to
// DogStatsD, mirroring the teacher's dual Prometheus+Datadog exporter
// pair in metrics_exporters.go.
type DatadogStatsdExporter struct {
	b        *Broker
	client   *statsd.Client
	interval time.Duration
}

// NewDatadogStatsdExporter dials addr (e.g. "127.0.0.1:8125") and
// prepares a periodic flush every interval.
func NewDatadogStatsdExporter(b *Broker, prefix, addr string, interval time.Duration) (*DatadogStatsdExporter, error) {
	if b == nil {
		return nil, fmt.Errorf("fsbroker: nil broker supplied to datadog exporter")
	}
	if interval <= 0 {
		return nil, fmt.Errorf("fsbroker: datadog exporter interval must be > 0")
	}
	if prefix == "" {
		prefix = "fsbroker"
	}
	client, err := statsd.New(addr, statsd.WithNamespace(prefix+"."))
	if err != nil {
		return nil, fmt.Errorf("fsbroker: creating statsd client: %w", err)
	}
	return &DatadogStatsdExporter{b: b, client: client, interval: interval}, nil
}

// Run flushes stats every interval until ctx is cancelled.
func (e *DatadogStatsdExporter) Run(ctx context.Context) {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s := e.b.Stats()
			_ = e.client.Gauge("pool.outstanding", float64(s.PoolOutstanding), nil, 1)
			_ = e.client.Count("watcher.enqueued_total", int64(s.Enqueued), nil, 1)
			_ = e.client.Count("watcher.overflow_total", int64(s.Overflows), nil, 1)
			_ = e.client.Count("watcher.drained_total", int64(s.Drained), nil, 1)
			_ = e.client.Count("pool.exhausted_total", int64(s.PoolDropCount), nil, 1)
		}
	}
}
