package engine

import (
	"context"

	"github.com/rs/zerolog/log"
)

// Stage is one step of a workflow: a single scan, or a batch of scans that
// run concurrently.
type Stage struct {
	Name  string
	Scans []Scan
}

// Workflow is a user-defined ordered sequence of stages run against one
// target. It owns the scan context for the run; all conditional logic
// lives in the scans themselves, the workflow only sequences them.
type Workflow struct {
	name     string
	context  *ScanContext
	executor *Executor
	stages   []Stage
}

// NewWorkflow creates a workflow owning the given scan context.
func NewWorkflow(name string, sc *ScanContext) *Workflow {
	return &Workflow{
		name:     name,
		context:  sc,
		executor: NewExecutor(),
	}
}

// Name returns the workflow name.
func (w *Workflow) Name() string { return w.name }

// Context returns the scan context owned by this workflow.
func (w *Workflow) Context() *ScanContext { return w.context }

// Stages returns the declared stages in order.
func (w *Workflow) Stages() []Stage { return w.stages }

// AddStage appends a stage. A stage with one scan runs alone; a stage with
// several runs them concurrently. Returns the workflow for chaining.
func (w *Workflow) AddStage(name string, scans ...Scan) *Workflow {
	w.stages = append(w.stages, Stage{Name: name, Scans: scans})
	return w
}

// RunOne executes a single scan via the executor and blocks until it
// completes.
func (w *Workflow) RunOne(ctx context.Context, scan Scan) *Result {
	return w.executor.Run(ctx, scan, w.context)
}

// RunConcurrent executes the given scans concurrently, waits for all of
// them, and returns their results in the order the scans were supplied.
func (w *Workflow) RunConcurrent(ctx context.Context, scans ...Scan) []*Result {
	return w.executor.RunBatch(ctx, scans, w.context)
}

// Run executes all declared stages strictly in order. A later stage's
// CanRun predicates observe every result written by earlier stages. Scan
// failures and timeouts never abort the run; the only early exit is
// cancellation of the parent context between stages, reported as an error
// alongside the results gathered so far.
func (w *Workflow) Run(ctx context.Context) ([]*Result, error) {
	logger := log.With().Str("workflow", w.name).Str("target", w.context.TargetIP).Logger()
	logger.Info().Int("stages", len(w.stages)).Msg("starting workflow")

	var all []*Result
	for _, stage := range w.stages {
		if err := ctx.Err(); err != nil {
			logger.Warn().Str("stage", stage.Name).Msg("workflow cancelled")
			return all, err
		}
		logger.Info().Str("stage", stage.Name).Int("scans", len(stage.Scans)).Msg("running stage")

		switch len(stage.Scans) {
		case 0:
			continue
		case 1:
			all = append(all, w.RunOne(ctx, stage.Scans[0]))
		default:
			all = append(all, w.RunConcurrent(ctx, stage.Scans...)...)
		}
	}

	logger.Info().Int("results", len(all)).Msg("workflow complete")
	return all, nil
}
