package viewmodel

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/vango-dev/viewmodel/pkg/instance"
	"github.com/vango-dev/viewmodel/pkg/metrics"
	"go.opentelemetry.io/otel/trace"
)

// Option configures a Runtime.
type Option func(*options)

type options struct {
	logger   *slog.Logger
	debug    bool
	maxDepth int
	tracer   trace.Tracer
	ids      *instance.IDGenerator

	metrics    bool
	registry   prometheus.Registerer
	metricOpts []metrics.Option
}

// WithLogger sets the structured logger. If unset, logs are discarded.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithDebug enables developer warnings such as missing required
// attributes.
func WithDebug(debug bool) Option {
	return func(o *options) {
		o.debug = debug
	}
}

// WithMaxDepth bounds nested change notifications. Zero keeps
// dep.DefaultMaxDepth.
func WithMaxDepth(depth int) Option {
	return func(o *options) {
		o.maxDepth = depth
	}
}

// WithMetrics exports runtime statistics to reg. A nil reg uses the
// Prometheus default registerer.
func WithMetrics(reg prometheus.Registerer, opts ...metrics.Option) Option {
	return func(o *options) {
		o.metrics = true
		o.registry = reg
		o.metricOpts = opts
	}
}

// WithTracer sets the tracer used for construction and mutation spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) {
		o.tracer = tracer
	}
}

// WithIDGenerator gives the runtime its own guid sequence. Tests use it to
// get stable guids.
func WithIDGenerator(ids *instance.IDGenerator) Option {
	return func(o *options) {
		o.ids = ids
	}
}
