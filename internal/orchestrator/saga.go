// Package orchestrator executes a sequence of saga steps and unwinds the
// already-completed ones, newest first, when a later step fails.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/felixzhu97/orderflow/pkg/apperr"
)

// Step is a single unit of work in a saga. Execute performs the step;
// Compensate semantically undoes it after a later step has failed.
type Step interface {
	Name() string
	Execute(ctx context.Context) error
	Compensate(ctx context.Context) error
}

// SagaError carries the error that aborted the saga plus any compensation
// failures recorded while unwinding. The cause is never masked: Unwrap
// returns it so errors.Is/As see through to the original failure.
type SagaError struct {
	Cause                 error
	CompensationFailures []error
}

func (e *SagaError) Error() string {
	if len(e.CompensationFailures) == 0 {
		return e.Cause.Error()
	}
	return fmt.Sprintf("%v (plus %d compensation failure(s))", e.Cause, len(e.CompensationFailures))
}

func (e *SagaError) Unwrap() error { return e.Cause }

type Orchestrator struct {
	log   *slog.Logger
	steps []Step
}

func New(log *slog.Logger, steps ...Step) *Orchestrator {
	return &Orchestrator{log: log, steps: steps}
}

// Run executes the steps in order. On the first failure it compensates every
// previously completed step in reverse order and returns a *SagaError whose
// cause is the step's error. Compensation failures are logged and recorded
// for manual reconciliation; there is no durable retry queue.
func (o *Orchestrator) Run(ctx context.Context) error {
	var done []Step

	for _, step := range o.steps {
		o.log.Debug("saga step executing", "step", step.Name())
		if err := o.execute(ctx, step); err != nil {
			o.log.Warn("saga step failed, rolling back", "step", step.Name(), "err", err)
			compErrs := o.rollback(ctx, done)
			return &SagaError{Cause: err, CompensationFailures: compErrs}
		}
		done = append(done, step)
	}
	return nil
}

func (o *Orchestrator) execute(ctx context.Context, step Step) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = apperr.Newf(apperr.CodeInternal, "step %s panicked: %v", step.Name(), r)
		}
	}()
	return step.Execute(ctx)
}

func (o *Orchestrator) rollback(ctx context.Context, done []Step) []error {
	var failures []error
	for i := len(done) - 1; i >= 0; i-- {
		step := done[i]
		o.log.Info("saga compensating", "step", step.Name())
		if err := step.Compensate(ctx); err != nil {
			o.log.Error("saga compensation failed, needs manual reconciliation",
				"step", step.Name(), "err", err)
			failures = append(failures, apperr.Wrap(apperr.CodeCompensationFailure, step.Name(), err))
		}
	}
	return failures
}

// FuncStep adapts plain functions to the Step interface. A nil compensate
// marks a step with no side effect to undo.
type FuncStep struct {
	StepName     string
	ExecuteFn    func(ctx context.Context) error
	CompensateFn func(ctx context.Context) error
}

func (s FuncStep) Name() string { return s.StepName }

func (s FuncStep) Execute(ctx context.Context) error { return s.ExecuteFn(ctx) }

func (s FuncStep) Compensate(ctx context.Context) error {
	if s.CompensateFn == nil {
		return nil
	}
	return s.CompensateFn(ctx)
}
