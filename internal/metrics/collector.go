// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/BaSui01/pipeflow/workflow"
)

// Collector records engine measurements to Prometheus. It implements
// workflow.MetricsRecorder.
type Collector struct {
	executionsStarted  *prometheus.CounterVec
	executionsFinished *prometheus.CounterVec
	executionDuration  *prometheus.HistogramVec
	activeExecutions   prometheus.Gauge

	stepsExecuted *prometheus.CounterVec
	stepDuration  *prometheus.HistogramVec

	logger *zap.Logger
}

// NewCollector creates a collector registered on the default registry
// under the given namespace.
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	return newCollector(namespace, prometheus.DefaultRegisterer, logger)
}

// NewCollectorWithRegistry creates a collector on a private registry,
// used by tests to avoid duplicate registration.
func NewCollectorWithRegistry(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	return newCollector(namespace, reg, logger)
}

func newCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	factory := promauto.With(reg)

	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.executionsStarted = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflow_executions_started_total",
			Help:      "Workflow executions started",
		},
		[]string{"workflow"},
	)
	c.executionsFinished = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflow_executions_finished_total",
			Help:      "Workflow executions finished, by terminal status",
		},
		[]string{"workflow", "status"},
	)
	c.executionDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "workflow_execution_duration_seconds",
			Help:      "Workflow execution duration",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"workflow"},
	)
	c.activeExecutions = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "workflow_active_executions",
			Help:      "Currently running workflow executions",
		},
	)
	c.stepsExecuted = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflow_steps_executed_total",
			Help:      "Workflow steps executed, by analysis type and outcome",
		},
		[]string{"analysis_type", "outcome"},
	)
	c.stepDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "workflow_step_duration_seconds",
			Help:      "Step execution duration",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"analysis_type"},
	)

	return c
}

// ExecutionStarted records a new execution.
func (c *Collector) ExecutionStarted(workflowName string) {
	c.executionsStarted.WithLabelValues(workflowName).Inc()
	c.activeExecutions.Inc()
}

// ExecutionFinished records a terminal execution.
func (c *Collector) ExecutionFinished(workflowName string, status workflow.ExecutionStatus, duration time.Duration) {
	c.executionsFinished.WithLabelValues(workflowName, string(status)).Inc()
	c.executionDuration.WithLabelValues(workflowName).Observe(duration.Seconds())
	c.activeExecutions.Dec()
}

// StepExecuted records one step invocation.
func (c *Collector) StepExecuted(analysisType string, failed bool, duration time.Duration) {
	outcome := "success"
	if failed {
		outcome = "failure"
	}
	c.stepsExecuted.WithLabelValues(analysisType, outcome).Inc()
	c.stepDuration.WithLabelValues(analysisType).Observe(duration.Seconds())
}
