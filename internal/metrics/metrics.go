package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsPersisted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "alerts_events_persisted_total",
		Help: "Total number of client events persisted through the events API.",
	})

	EventsEnqueued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "alerts_events_enqueued_total",
		Help: "Total number of events placed on the evaluation queue.",
	})

	EventsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "alerts_events_processed_total",
		Help: "Total number of events fully evaluated by the engine.",
	})

	EventsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "alerts_events_dropped_total",
		Help: "Total number of events rejected due to a full queue.",
	})

	EventsGenerated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "alerts_events_generated_total",
		Help: "Total number of events generated by fired triggers.",
	})

	TriggersFired = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "alerts_triggers_fired_total",
		Help: "Total number of trigger firings, labelled by trigger ID.",
	}, []string{"trigger_id"})

	TriggersDampened = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "alerts_triggers_dampened_total",
		Help: "Trigger matches held back by dampening, labelled by trigger ID.",
	}, []string{"trigger_id"})

	ActionsExecuted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "alerts_actions_executed_total",
		Help: "Total number of actions executed, labelled by type and status.",
	}, []string{"action_type", "status"})

	EventProcessingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "alerts_event_processing_duration_ms",
		Help:    "Engine evaluation latency per event in milliseconds.",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
	})

	QueueUtilization = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "alerts_queue_utilization_ratio",
		Help: "Current evaluation queue utilization (0–1).",
	})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "alerts_http_requests_total",
		Help: "HTTP requests served, labelled by method and status code.",
	}, []string{"method", "code"})

	BusMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "alerts_bus_messages_total",
		Help: "Metric data messages consumed from the bus, labelled by outcome.",
	}, []string{"outcome"})
)
