// Copyright (c) PipeFlow Authors.
// Licensed under the MIT License.

/*
Package workflow implements the PipeFlow orchestration engine: multi-step
analysis pipelines whose steps declare dependencies on one another and
run in a causally-consistent order against pluggable analysis components.

# Core types

  - WorkflowDefinition / WorkflowStep — named pipeline templates
  - GraphBuilder       — adjacency construction + DFS topological ordering
    with cycle and dangling-reference detection
  - WorkflowExecution  — per-run state machine (pending → running →
    completed / failed / cancelled) with per-step status and results
  - StepExecutor       — input preparation via per-type selectors,
    component invocation, confidence scoring, recommendation synthesis
  - Orchestrator       — registration, execution control loop, bounded
    history, cooperative cancellation, concurrent parallel runs
  - ComponentRegistry / Invoker — the analysis-component boundary

# Execution model

Steps within one execution run strictly sequentially in topological
order; there is no intra-execution parallelism, trading throughput for
deterministic, attributable failures. The first step failure halts the
remainder (fail-fast). ExecuteParallelWorkflows runs N executions as N
goroutines with an order-preserving fan-in; sibling failures are
isolated. Cancellation is cooperative and observed at step boundaries;
an in-flight component call is not forcibly aborted.

State is process-local and in-memory. Terminal executions move to a
bounded history (oldest evicted first); durable persistence is an
external collaborator behind the ExecutionStore interface.
*/
package workflow
