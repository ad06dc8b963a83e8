package strategy

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/copp1723/vinny-sub002/internal/application/port/output"
	"github.com/copp1723/vinny-sub002/internal/domain/entity"
)

// Strategy is one way of executing a task interpretation. Implementations
// must not mutate the interpretation: if they fail, the next strategy in the
// chain receives it unchanged.
type Strategy interface {
	Kind() entity.StrategyKind
	Execute(ctx context.Context, interp *entity.TaskInterpretation) (*entity.StrategyOutcome, error)
}

// Engine attempts strategies strictly in order. The first success wins; a
// thrown error is caught, a debug snapshot is captured, and the next
// strategy runs. When every strategy fails, the most recently observed
// error surfaces.
type Engine struct {
	strategies []Strategy
	surface    output.SurfacePort
	budget     *entity.Budget
	logger     output.LoggerPort

	debugDir     string
	captureDebug bool

	attempts    []entity.AttemptRecord
	screenshots []string
}

func NewEngine(strategies []Strategy, surface output.SurfacePort, budget *entity.Budget, logger output.LoggerPort) *Engine {
	return &Engine{
		strategies: strategies,
		surface:    surface,
		budget:     budget,
		logger:     logger,
	}
}

// EnableDebugShots turns on failure screenshots under dir.
func (e *Engine) EnableDebugShots(dir string) {
	e.debugDir = dir
	e.captureDebug = true
}

// Attempts returns the diagnostic log of every strategy attempt so far.
func (e *Engine) Attempts() []entity.AttemptRecord {
	return e.attempts
}

// Screenshots returns paths of debug shots captured during Run.
func (e *Engine) Screenshots() []string {
	return e.screenshots
}

// Run executes the fallback chain. A nil error with Success=false means the
// interaction budget ran out: the partial result stands as-is.
func (e *Engine) Run(ctx context.Context, interp *entity.TaskInterpretation) (*entity.StrategyOutcome, error) {
	var lastErr error

	for _, s := range e.strategies {
		if e.budget.Exhausted() {
			e.logger.Warn("Interaction budget exhausted, stopping strategy chain", "used", e.budget.Used())
			return &entity.StrategyOutcome{Success: false}, nil
		}

		start := time.Now()
		e.logger.Info("Attempting strategy", "strategy", s.Kind())

		outcome, err := s.Execute(ctx, interp)
		record := entity.AttemptRecord{
			Strategy:   s.Kind(),
			StartedAt:  start,
			Duration:   time.Since(start),
			DurationMs: time.Since(start).Milliseconds(),
		}

		switch {
		case err != nil:
			record.Error = err.Error()
			e.attempts = append(e.attempts, record)
			lastErr = err
			e.logger.Warn("Strategy failed", "strategy", s.Kind(), "error", err)
			e.captureDebugShot(ctx, string(s.Kind()))

		case outcome != nil && outcome.Success:
			record.Success = true
			e.attempts = append(e.attempts, record)
			e.logger.Info("Strategy succeeded", "strategy", s.Kind(), "interactions", e.budget.Used())
			return outcome, nil

		default:
			// Reported failure without an error: usually budget exhaustion
			// mid-strategy. The partial result is returned as-is.
			e.attempts = append(e.attempts, record)
			if e.budget.Exhausted() {
				return outcome, nil
			}
			lastErr = fmt.Errorf("strategy %s reported failure", s.Kind())
		}
	}

	if lastErr == nil {
		lastErr = entity.ErrStrategyNotImplemented
	}
	return nil, &entity.StrategyExhaustedError{Attempts: len(e.attempts), Last: lastErr}
}

func (e *Engine) captureDebugShot(ctx context.Context, label string) {
	if !e.captureDebug {
		return
	}

	shot, err := e.surface.Screenshot(ctx)
	if err != nil {
		e.logger.Debug("Debug screenshot failed", "error", err)
		return
	}

	if err := os.MkdirAll(e.debugDir, 0o755); err != nil {
		return
	}
	name := fmt.Sprintf("debug_%s_%s.jpg", time.Now().Format("20060102_150405"), label)
	path := filepath.Join(e.debugDir, name)
	if err := os.WriteFile(path, shot.Data, 0o644); err != nil {
		e.logger.Debug("Debug screenshot write failed", "error", err)
		return
	}
	e.screenshots = append(e.screenshots, path)
}
