package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nico-vromans/random-quote-generator/internal/platform/logging"
)

// Operations that write fetched data run as Validate → Perform → Verify →
// Archive → Respond. Nothing is persisted until the fetched payload has been
// verified, so an API returning garbage never leaves half a quote behind.
//
//  1. VALIDATE - check inputs before any call goes out
//  2. PERFORM  - call the external API
//  3. VERIFY   - check the payload independently of the API's own status
//  4. ARCHIVE  - persist the verified payload
//  5. RESPOND  - build the caller's result

// ExecutionStep names a step of an Operation.
type ExecutionStep string

// Operation steps.
const (
	StepValidate ExecutionStep = "validate"
	StepPerform  ExecutionStep = "perform"
	StepVerify   ExecutionStep = "verify"
	StepArchive  ExecutionStep = "archive"
	StepRespond  ExecutionStep = "respond"
)

// ExecutionError records the step an operation failed in. It unwraps to the
// step's error, so domain checks such as domain.IsUnavailable still work.
type ExecutionError struct {
	Step  ExecutionStep
	Cause error
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *ExecutionError) Unwrap() error {
	return e.Cause
}

// Executor runs Operations with per-step logging.
type Executor struct {
	logger *slog.Logger
}

// NewExecutor returns an executor that logs to logger unless the context
// carries a request logger.
func NewExecutor(logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}

	return &Executor{logger: logger}
}

// Operation holds the step functions. Nil steps are skipped and yield the
// zero value of their result type.
type Operation[I, P, V, O any] struct {
	Name string

	Validate func(ctx context.Context, input I) error
	Perform  func(ctx context.Context, input I) (P, error)
	Verify   func(ctx context.Context, input I, performed P) (V, error)
	Archive  func(ctx context.Context, input I, verified V) error
	Respond  func(ctx context.Context, input I, verified V) (O, error)
}

// Execute runs op against input, stopping at the first failing step.
func Execute[I, P, V, O any](ctx context.Context, exec *Executor, op Operation[I, P, V, O], input I) (O, error) {
	var (
		zero      O
		performed P
		verified  V
		result    O
	)

	logger := logging.FromContextOr(ctx, exec.logger).With(slog.String("operation", op.Name))
	start := time.Now()

	fail := func(step ExecutionStep, level slog.Level, err error) (O, error) {
		logger.Log(ctx, level, "operation step failed",
			slog.String("step", string(step)),
			slog.Any("error", err),
		)

		return zero, &ExecutionError{Step: step, Cause: err}
	}

	if op.Validate != nil {
		if err := op.Validate(ctx, input); err != nil {
			return fail(StepValidate, slog.LevelWarn, err)
		}
	}

	if op.Perform != nil {
		p, err := op.Perform(ctx, input)
		if err != nil {
			// External calls fail routinely; callers decide whether it matters.
			return fail(StepPerform, slog.LevelWarn, err)
		}
		performed = p
	}

	if op.Verify != nil {
		v, err := op.Verify(ctx, input, performed)
		if err != nil {
			return fail(StepVerify, slog.LevelWarn, err)
		}
		verified = v
	}

	if op.Archive != nil {
		if err := op.Archive(ctx, input, verified); err != nil {
			return fail(StepArchive, slog.LevelWarn, err)
		}
	}

	if op.Respond != nil {
		r, err := op.Respond(ctx, input, verified)
		if err != nil {
			return fail(StepRespond, slog.LevelError, err)
		}
		result = r
	}

	logger.DebugContext(ctx, "operation completed", slog.Duration("duration", time.Since(start)))

	return result, nil
}

// GetExecutionStep returns the step err failed in, if it came from Execute.
func GetExecutionStep(err error) (ExecutionStep, bool) {
	var execErr *ExecutionError
	if errors.As(err, &execErr) {
		return execErr.Step, true
	}

	return "", false
}
