package pipeline

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"serenity/serenity/utils/logging"
)

// StepUpdate is emitted to the run's observer just before a step executes.
type StepUpdate struct {
	RunID string `json:"runId"`
	Step  string `json:"step"`
}

// Runner executes named units of work within one pipeline run. Each
// distinct step name executes at most once per run even if referenced
// multiple times; later references return the memoized result.
//
// The runner never retries by itself. Retry is the surrounding
// dispatcher's responsibility, which redelivers the whole run on unhandled
// failure, so steps must be idempotent on redelivery.
type Runner struct {
	runID    string
	logger   *zap.Logger
	observer func(StepUpdate)

	mu   sync.Mutex
	memo map[string]interface{}
}

func NewRunner(runID string, logger *zap.Logger, observer func(StepUpdate)) *Runner {
	return &Runner{
		runID:    runID,
		logger:   logger,
		observer: observer,
		memo:     make(map[string]interface{}),
	}
}

// RunStep executes fn under the given step name, memoizing its result for
// the rest of the run. A step's error propagates unchanged; whether that
// fails the whole run depends on the step's own fallback discipline.
func RunStep[T any](ctx context.Context, r *Runner, name string, fn func() (T, error)) (T, error) {
	r.mu.Lock()
	if cached, ok := r.memo[name]; ok {
		r.mu.Unlock()
		typed, ok := cached.(T)
		if !ok {
			var zero T
			return zero, fmt.Errorf("step %q memoized with a different result type", name)
		}
		return typed, nil
	}
	r.mu.Unlock()

	if r.observer != nil {
		r.observer(StepUpdate{RunID: r.runID, Step: name})
	}
	r.logger.Info("running step",
		zap.String("run_id", r.runID),
		zap.String("step", name),
	)
	defer logging.LogDuration(ctx, "step:"+name)()

	result, err := fn()
	if err != nil {
		return result, err
	}

	r.mu.Lock()
	r.memo[name] = result
	r.mu.Unlock()
	return result, nil
}
