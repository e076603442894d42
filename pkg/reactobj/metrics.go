package reactobj

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsConfig configures the Prometheus metrics of a store.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "reactobj").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for flush duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus metrics.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "reactobj",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics holds the Prometheus collectors updated by stores.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	writesTotal       *prometheus.CounterVec
	dirtyPathsTotal   prometheus.Counter
	flushesTotal      prometheus.Counter
	flushDuration     prometheus.Histogram
	checksTotal       *prometheus.CounterVec
	prunedNodesTotal  prometheus.Counter
	trieNodes         prometheus.Gauge
	dependencyRecords prometheus.Gauge
}

// NewMetrics creates and registers the store metrics.
//
// Metrics collected:
//   - reactobj_writes_total: Counter of writes by result (changed, noop)
//   - reactobj_dirty_paths_total: Counter of paths queued for invalidation
//   - reactobj_flushes_total: Counter of invalidation passes
//   - reactobj_flush_duration_seconds: Histogram of invalidation pass duration
//   - reactobj_dependency_checks_total: Counter of compared dependency
//     records by outcome (invalidated, suppressed)
//   - reactobj_pruned_nodes_total: Counter of trie nodes pruned
//   - reactobj_trie_nodes: Gauge of live trie nodes
//   - reactobj_dependency_records: Gauge of live dependency records
//
// Registering twice on the same registry panics, so create one Metrics per
// registry and share it between stores.
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Metrics{
		writesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "writes_total",
			Help:        "Total number of store writes by result",
			ConstLabels: config.ConstLabels,
		}, []string{"result"}),

		dirtyPathsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "dirty_paths_total",
			Help:        "Total number of key paths queued for invalidation",
			ConstLabels: config.ConstLabels,
		}),

		flushesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "flushes_total",
			Help:        "Total number of invalidation passes",
			ConstLabels: config.ConstLabels,
		}),

		flushDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "flush_duration_seconds",
			Help:        "Invalidation pass duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		checksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "dependency_checks_total",
			Help:        "Total number of dependency records compared during invalidation by outcome",
			ConstLabels: config.ConstLabels,
		}, []string{"outcome"}),

		prunedNodesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "pruned_nodes_total",
			Help:        "Total number of dependency trie nodes pruned",
			ConstLabels: config.ConstLabels,
		}),

		trieNodes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "trie_nodes",
			Help:        "Number of live dependency trie nodes",
			ConstLabels: config.ConstLabels,
		}),

		dependencyRecords: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "dependency_records",
			Help:        "Number of live dependency records",
			ConstLabels: config.ConstLabels,
		}),
	}
}

func (m *Metrics) recordWrite(changed bool) {
	if m == nil {
		return
	}
	if changed {
		m.writesTotal.WithLabelValues("changed").Inc()
		m.dirtyPathsTotal.Inc()
		return
	}
	m.writesTotal.WithLabelValues("noop").Inc()
}

func (m *Metrics) recordManualInvalidation() {
	if m == nil {
		return
	}
	m.dirtyPathsTotal.Inc()
}

func (m *Metrics) recordFlush(r passResult, seconds float64) {
	if m == nil {
		return
	}
	m.flushesTotal.Inc()
	m.flushDuration.Observe(seconds)
	m.checksTotal.WithLabelValues("invalidated").Add(float64(r.invalidated))
	m.checksTotal.WithLabelValues("suppressed").Add(float64(r.suppressed))
}

func (m *Metrics) recordPrune(n int) {
	if m == nil {
		return
	}
	m.prunedNodesTotal.Add(float64(n))
}

// addTrieDelta adjusts the gauges by a difference rather than setting them,
// so stores sharing one Metrics report their sum.
func (m *Metrics) addTrieDelta(nodes, records int) {
	if m == nil {
		return
	}
	if nodes != 0 {
		m.trieNodes.Add(float64(nodes))
	}
	if records != 0 {
		m.dependencyRecords.Add(float64(records))
	}
}
