// Package metrics holds the prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry is private to the app so tests can build many servers without
// duplicate-registration panics on the global registry.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	HTTPRequests = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "checklistpro_http_requests_total",
		Help: "HTTP requests by method, route and status code.",
	}, []string{"method", "route", "status"})

	HTTPDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "checklistpro_http_request_duration_seconds",
		Help:    "HTTP request latency by method and route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	TemplatesCreated = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "checklistpro_templates_created_total",
		Help: "Templates created, by source (api, checklist, seed).",
	}, []string{"source"})

	TemplateUses = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "checklistpro_template_uses_total",
		Help: "Checklists derived from templates, by template type.",
	}, []string{"type"})

	TemplateRatings = factory.NewCounter(prometheus.CounterOpts{
		Name: "checklistpro_template_ratings_total",
		Help: "Accepted template ratings.",
	})

	DataQualityWarnings = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "checklistpro_data_quality_warnings_total",
		Help: "Inputs that were accepted after normalization, by kind.",
	}, []string{"kind"})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}
