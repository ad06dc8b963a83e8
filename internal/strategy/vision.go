package strategy

import (
	"context"
	"fmt"

	"github.com/copp1723/vinny-sub002/internal/application/port/output"
	"github.com/copp1723/vinny-sub002/internal/domain/entity"
)

const defaultVisionSteps = 10

var _ Strategy = (*Vision)(nil)

// Vision is the adaptive strategy: snapshot the surface, ask the oracle for
// the next action, perform it, ask whether the success criteria hold, and
// repeat. Bounded by min(estimated steps, remaining interaction budget).
type Vision struct {
	surface     output.SurfacePort
	oracle      output.OraclePort
	budget      *entity.Budget
	artifactDir string
	logger      output.LoggerPort
}

func NewVision(surface output.SurfacePort, oracle output.OraclePort, budget *entity.Budget, artifactDir string, logger output.LoggerPort) *Vision {
	return &Vision{
		surface:     surface,
		oracle:      oracle,
		budget:      budget,
		artifactDir: artifactDir,
		logger:      logger,
	}
}

func (s *Vision) Kind() entity.StrategyKind { return entity.StrategyVisionGuided }

func (s *Vision) Execute(ctx context.Context, interp *entity.TaskInterpretation) (*entity.StrategyOutcome, error) {
	if s.oracle == nil {
		return nil, fmt.Errorf("vision oracle not configured: %w", entity.ErrStrategyNotImplemented)
	}

	instruction := interp.Description
	if interp.SuccessCriteria != "" {
		instruction += "\nSuccess criteria: " + interp.SuccessCriteria
	}

	maxSteps := interp.EstimatedSteps
	if maxSteps <= 0 {
		maxSteps = defaultVisionSteps
	}
	if remaining := s.budget.Remaining(); remaining < maxSteps {
		maxSteps = remaining
	}
	if maxSteps <= 0 {
		return &entity.StrategyOutcome{Success: false}, nil
	}

	var lastErr error
	for step := 0; step < maxSteps; step++ {
		if s.budget.Exhausted() {
			return &entity.StrategyOutcome{Success: false}, nil
		}

		snap, err := s.surface.Snapshot(ctx)
		if err != nil {
			return nil, fmt.Errorf("snapshot: %w", err)
		}

		proposal, err := s.oracle.NextAction(ctx, snap, instruction)
		if err != nil {
			// Transient oracle failures burn an iteration, not the task.
			lastErr = err
			s.logger.Warn("Oracle call failed", "step", step, "error", err)
			continue
		}

		if proposal.Done {
			s.logger.Info("Oracle reports completion", "step", step, "reason", proposal.Reason)
			return s.finish(ctx, interp)
		}

		if err := performAction(ctx, s.surface, proposal.Kind, proposal.Selector, proposal.Value, proposal.WaitMs); err != nil {
			lastErr = err
			s.logger.Warn("Proposed action failed", "step", step, "kind", proposal.Kind, "selector", proposal.Selector, "error", err)
			continue
		}

		after, err := s.surface.Snapshot(ctx)
		if err != nil {
			lastErr = err
			continue
		}
		verdict, err := s.oracle.VerifyCompletion(ctx, after, interp.SuccessCriteria)
		if err != nil {
			lastErr = err
			continue
		}
		if verdict.Met {
			s.logger.Info("Success criteria met", "step", step, "confidence", verdict.Confidence)
			return s.finish(ctx, interp)
		}
	}

	if lastErr != nil {
		return nil, fmt.Errorf("vision loop exhausted after %d steps: %w", maxSteps, lastErr)
	}
	return nil, fmt.Errorf("vision loop exhausted after %d steps without completion", maxSteps)
}

func (s *Vision) finish(ctx context.Context, interp *entity.TaskInterpretation) (*entity.StrategyOutcome, error) {
	outcome := &entity.StrategyOutcome{Success: true}
	if interp.ExpectDownload {
		path, err := s.surface.WaitDownload(ctx, s.artifactDir, downloadWait)
		if err != nil {
			return nil, fmt.Errorf("expected artifact never materialized: %w", err)
		}
		outcome.ArtifactPath = path
	}
	return outcome, nil
}
