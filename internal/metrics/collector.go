// Package metrics exposes rule evaluation metrics to Prometheus.
package metrics

import (
	"context"
	"net/http"

	"github.com/aretw0/rules/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector records expression executions and auto-saves.
type Collector struct {
	registry   *prometheus.Registry
	executions *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	autoSaves  *prometheus.CounterVec
}

// NewCollector creates a collector with its own registry.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		executions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rules_expression_executions_total",
				Help: "Total number of expression executions",
			},
			[]string{"plugin", "kind", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rules_expression_duration_seconds",
				Help:    "Duration of expression executions",
				Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
			},
			[]string{"plugin"},
		),
		autoSaves: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rules_autosave_total",
				Help: "Total number of variables handed to the auto-save store",
			},
			[]string{"status"},
		),
	}
	c.registry.MustRegister(c.executions, c.duration, c.autoSaves)
	return c
}

// Hooks returns lifecycle callbacks that feed the collector.
func (c *Collector) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnLeave: func(_ context.Context, e *domain.ExpressionEvent) {
			c.executions.WithLabelValues(e.PluginID, string(e.Kind), status(e.Err)).Inc()
			c.duration.WithLabelValues(e.PluginID).Observe(e.Duration.Seconds())
		},
		OnAutoSave: func(_ context.Context, e *domain.VariableEvent) {
			c.autoSaves.WithLabelValues(status(e.Err)).Inc()
		},
	}
}

// Registry returns the underlying Prometheus registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the metrics in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
