// Package metrics exports binding-core statistics to Prometheus.
//
// A Collector implements the observer interfaces of the dep, resolve and
// instance packages, so one value can be plugged into all three:
//
//	c := metrics.New(metrics.WithRegistry(reg))
//	tracker := dep.NewTracker(0, c)
//	env := &instance.Env{Env: resolve.Env{Tracker: tracker, Observer: c}, Instances: c}
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/vango-dev/viewmodel/pkg/resolve"
)

// Config configures a Collector.
type Config struct {
	// Namespace is the metrics namespace (default: "viewmodel").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// DepthBuckets are the histogram buckets for wave depth.
	DepthBuckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// Option configures a Collector.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) Option {
	return func(c *Config) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithDepthBuckets sets the wave depth histogram buckets.
func WithDepthBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.DepthBuckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

func defaultConfig() Config {
	return Config{
		Namespace:    "viewmodel",
		DepthBuckets: []float64{1, 2, 4, 8, 16, 32, 64, 128},
		Registry:     prometheus.DefaultRegisterer,
	}
}

// Collector holds the binding-core metrics.
type Collector struct {
	notifications    prometheus.Counter
	waveDepth        prometheus.Histogram
	resolversBound   *prometheus.CounterVec
	resolversUnbound *prometheus.CounterVec
	resolversLive    *prometheus.GaugeVec
	instances        *prometheus.CounterVec
	instancesLive    prometheus.Gauge
	constructErrors  *prometheus.CounterVec
}

// New registers the metrics and returns a Collector.
func New(opts ...Option) *Collector {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Collector{
		notifications: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "notifications_total",
			Help:        "Total number of change notifications delivered to dependents",
			ConstLabels: config.ConstLabels,
		}),

		waveDepth: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "wave_depth",
			Help:        "Deepest notification nesting reached by each propagation wave",
			ConstLabels: config.ConstLabels,
			Buckets:     config.DepthBuckets,
		}),

		resolversBound: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "resolvers_bound_total",
			Help:        "Total number of resolvers bound to a source, by kind",
			ConstLabels: config.ConstLabels,
		}, []string{"kind"}),

		resolversUnbound: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "resolvers_unbound_total",
			Help:        "Total number of resolvers released from their source, by kind",
			ConstLabels: config.ConstLabels,
		}, []string{"kind"}),

		resolversLive: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "resolvers_live",
			Help:        "Number of currently bound resolvers, by kind",
			ConstLabels: config.ConstLabels,
		}, []string{"kind"}),

		instances: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "instances_constructed_total",
			Help:        "Total number of instances constructed, by class",
			ConstLabels: config.ConstLabels,
		}, []string{"class"}),

		instancesLive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "instances_live",
			Help:        "Number of instances constructed and not yet torn down",
			ConstLabels: config.ConstLabels,
		}),

		constructErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "construct_errors_total",
			Help:        "Total number of failed constructions, by error code",
			ConstLabels: config.ConstLabels,
		}, []string{"code"}),
	}
}

// Notified implements dep.Observer.
func (c *Collector) Notified() {
	c.notifications.Inc()
}

// WaveDone implements dep.Observer.
func (c *Collector) WaveDone(depth int) {
	c.waveDepth.Observe(float64(depth))
}

// ResolverBound implements resolve.Observer.
func (c *Collector) ResolverBound(kind resolve.Kind) {
	c.resolversBound.WithLabelValues(kind.String()).Inc()
	c.resolversLive.WithLabelValues(kind.String()).Inc()
}

// ResolverUnbound implements resolve.Observer.
func (c *Collector) ResolverUnbound(kind resolve.Kind) {
	c.resolversUnbound.WithLabelValues(kind.String()).Inc()
	c.resolversLive.WithLabelValues(kind.String()).Dec()
}

// InstanceConstructed implements instance.Observer.
func (c *Collector) InstanceConstructed(class string) {
	c.instances.WithLabelValues(className(class)).Inc()
	c.instancesLive.Inc()
}

// InstanceTornDown implements instance.Observer.
func (c *Collector) InstanceTornDown(string) {
	c.instancesLive.Dec()
}

// ConstructFailed implements instance.Observer.
func (c *Collector) ConstructFailed(code string) {
	c.constructErrors.WithLabelValues(code).Inc()
}

func className(class string) string {
	if class == "" {
		return "anonymous"
	}
	return class
}
