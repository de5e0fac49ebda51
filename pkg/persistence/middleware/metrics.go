package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors recorded by the metrics middleware.
type Metrics struct {
	Operations *prometheus.CounterVec
	Duration   *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "espalier",
				Subsystem: "cache",
				Name:      "operations_total",
				Help:      "Cache store operations by outcome",
			},
			[]string{"op", "result"},
		),
		Duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "espalier",
				Subsystem: "cache",
				Name:      "operation_duration_seconds",
				Help:      "Duration of cache store operations",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"op"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.Operations, m.Duration)
	}
	return m
}

type metricsMiddleware struct {
	next    ports.Store
	metrics *Metrics
}

// NewMetricsMiddleware records every store operation in m.
func NewMetricsMiddleware(m *Metrics) Middleware {
	return func(next ports.Store) ports.Store {
		return &metricsMiddleware{next: next, metrics: m}
	}
}

func (m *metricsMiddleware) observe(op string, start time.Time, result string) {
	m.metrics.Duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	m.metrics.Operations.WithLabelValues(op, result).Inc()
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrInvalidated):
		return "invalidated"
	case errors.Is(err, domain.ErrCacheMiss):
		return "miss"
	default:
		return "error"
	}
}

func (m *metricsMiddleware) Exists(ctx context.Context, fp ports.Fingerprint) (bool, error) {
	start := time.Now()
	ok, err := m.next.Exists(ctx, fp)
	result := outcome(err)
	if err == nil {
		result = "miss"
		if ok {
			result = "hit"
		}
	}
	m.observe("exists", start, result)
	return ok, err
}

func (m *metricsMiddleware) Get(ctx context.Context, fp ports.Fingerprint) (any, error) {
	start := time.Now()
	v, err := m.next.Get(ctx, fp)
	m.observe("get", start, outcome(err))
	return v, err
}

func (m *metricsMiddleware) Set(ctx context.Context, fp ports.Fingerprint, value any) error {
	start := time.Now()
	err := m.next.Set(ctx, fp, value)
	m.observe("set", start, outcome(err))
	return err
}

func (m *metricsMiddleware) Invalidate(ctx context.Context, fp ports.Fingerprint) error {
	start := time.Now()
	err := invalidate(ctx, m.next, fp)
	m.observe("invalidate", start, outcome(err))
	return err
}
