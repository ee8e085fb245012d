package telemetry

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Reportify/teleopsold-sub002/internal/core/port"
)

// RBACMetricsOptions configures the resolution collectors.
type RBACMetricsOptions struct {
	Registerer prometheus.Registerer
	Namespace  string
}

// RBACMetrics records permission resolution, cache and invalidation telemetry.
type RBACMetrics struct {
	CacheHits         prometheus.Counter
	CacheMisses       prometheus.Counter
	CacheErrors       *prometheus.CounterVec
	Resolutions       *prometheus.HistogramVec
	InvalidationLag   prometheus.Histogram
	EnforcementDenied *prometheus.CounterVec
}

// NewRBACMetrics constructs and registers the collectors.
func NewRBACMetrics(opts RBACMetricsOptions) (*RBACMetrics, error) {
	namespace := opts.Namespace
	if namespace == "" {
		namespace = "rbac"
	}
	reg := opts.Registerer

	var (
		m   RBACMetrics
		err error
	)

	if m.CacheHits, err = Register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "hits_total",
		Help:      "Permission maps served from cache.",
	})); err != nil {
		return nil, err
	}

	if m.CacheMisses, err = Register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "misses_total",
		Help:      "Permission map lookups that required recomputation.",
	})); err != nil {
		return nil, err
	}

	if m.CacheErrors, err = Register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "errors_total",
		Help:      "Permission cache failures partitioned by operation.",
	}, []string{"operation"})); err != nil {
		return nil, err
	}

	if m.Resolutions, err = Register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "resolution_duration_seconds",
		Help:      "Time spent computing effective permission maps.",
		Buckets:   []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
	}, []string{"administrator"})); err != nil {
		return nil, err
	}

	if m.InvalidationLag, err = Register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "invalidation_lag_seconds",
		Help:      "Delay between a permission change and its invalidation event reaching this instance.",
		Buckets:   []float64{.01, .05, .1, .5, 1, 5, 10, 30, 60},
	})); err != nil {
		return nil, err
	}

	if m.EnforcementDenied, err = Register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "enforcement_denied_total",
		Help:      "Requests rejected by permission enforcement partitioned by route.",
	}, []string{"route"})); err != nil {
		return nil, err
	}

	return &m, nil
}

var _ port.ResolutionMetrics = (*RBACMetrics)(nil)

func (m *RBACMetrics) IncCacheHit() { m.CacheHits.Inc() }

func (m *RBACMetrics) IncCacheMiss() { m.CacheMisses.Inc() }

func (m *RBACMetrics) IncCacheError(operation string) {
	m.CacheErrors.WithLabelValues(operation).Inc()
}

func (m *RBACMetrics) ObserveResolution(administrator bool, duration time.Duration) {
	m.Resolutions.WithLabelValues(strconv.FormatBool(administrator)).Observe(duration.Seconds())
}

// ObserveInvalidationLag records event propagation delay.
func (m *RBACMetrics) ObserveInvalidationLag(lag time.Duration) {
	m.InvalidationLag.Observe(lag.Seconds())
}

// IncDenied counts a request rejected by enforcement.
func (m *RBACMetrics) IncDenied(route string) {
	m.EnforcementDenied.WithLabelValues(route).Inc()
}
