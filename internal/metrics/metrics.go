package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WorkflowOperations counts publication workflow calls by operation and outcome.
	WorkflowOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vblog_workflow_operations_total",
		Help: "Total number of publication workflow operations by outcome",
	}, []string{"operation", "outcome"})

	// RenderCache counts rendered-HTML cache lookups by result (hit, miss, error).
	RenderCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vblog_render_cache_total",
		Help: "Rendered post HTML cache lookups by result",
	}, []string{"result"})
)

// ObserveWorkflow records one workflow operation.
func ObserveWorkflow(operation, outcome string) {
	WorkflowOperations.WithLabelValues(operation, outcome).Inc()
}

// ObserveRenderCache records one render cache lookup.
func ObserveRenderCache(result string) {
	RenderCache.WithLabelValues(result).Inc()
}
