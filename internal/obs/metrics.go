package obs

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_http_requests_total",
		Help: "HTTP requests served, labelled by route and status code.",
	}, []string{"route", "status"})

	HTTPLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "catalog_http_request_duration_ms",
		Help:    "HTTP request latency in milliseconds.",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
	}, []string{"route"})

	CatalogMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_mutations_total",
		Help: "Catalog mutations, labelled by operation and result.",
	}, []string{"op", "result"})

	EventsDispatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_events_dispatched_total",
		Help: "Audit events handed to the dispatch channel, labelled by event type and result.",
	}, []string{"event_type", "result"})

	EventsRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_events_recorded_total",
		Help: "Audit entries written, labelled by event type.",
	}, []string{"event_type"})

	EventRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_event_record_retries_total",
		Help: "Recorder invocations retried by the local dispatch channel.",
	})

	EventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_events_dropped_total",
		Help: "Audit events abandoned after exhausting delivery attempts.",
	})

	AuditExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_audit_entries_expired_total",
		Help: "Audit entries removed by the expiry sweeper.",
	})

	DispatchBacklog = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "catalog_dispatch_backlog",
		Help: "Events accepted by the local dispatch channel and not yet handed to a worker.",
	})
)
