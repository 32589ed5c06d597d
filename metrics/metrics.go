package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var DispatchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "botmanager_dispatches_total",
	Help: "Inbound events dispatched through the flow engine.",
}, []string{"kind"})

var NodeExecutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "botmanager_node_executions_total",
	Help: "Node handler executions by node type and outcome.",
}, []string{"type", "outcome"})

var AiFallbacksTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "botmanager_ai_fallbacks_total",
	Help: "AI requests that fell back to a lower-priority model.",
})

var StreamEditsTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "botmanager_stream_edits_total",
	Help: "Message edits performed by the streaming responder.",
})

var DispatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "botmanager_dispatch_duration_seconds",
	Help:    "Wall-clock duration of one engine dispatch.",
	Buckets: prometheus.DefBuckets,
})

var SchedulerFiringsTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "botmanager_scheduler_firings_total",
	Help: "Periodic task firings dispatched by the scheduler poller.",
})
