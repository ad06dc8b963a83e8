package strategy

import (
	"context"
	"fmt"

	"github.com/copp1723/vinny-sub002/internal/application/port/output"
	"github.com/copp1723/vinny-sub002/internal/domain/entity"
)

var _ Strategy = (*Direct)(nil)

// Direct executes the interpretation's own sub-actions against the
// selectors supplied in configuration. No adaptation: either the configured
// selectors still match the page, or the strategy fails.
type Direct struct {
	surface     output.SurfacePort
	budget      *entity.Budget
	artifactDir string
	logger      output.LoggerPort
}

func NewDirect(surface output.SurfacePort, budget *entity.Budget, artifactDir string, logger output.LoggerPort) *Direct {
	return &Direct{
		surface:     surface,
		budget:      budget,
		artifactDir: artifactDir,
		logger:      logger,
	}
}

func (s *Direct) Kind() entity.StrategyKind { return entity.StrategyDirect }

func (s *Direct) Execute(ctx context.Context, interp *entity.TaskInterpretation) (*entity.StrategyOutcome, error) {
	if len(interp.SubActions) == 0 {
		return nil, fmt.Errorf("no sub-actions configured: %w", entity.ErrNotFound)
	}

	for i, action := range interp.SubActions {
		if s.budget.Exhausted() {
			return &entity.StrategyOutcome{Success: false}, nil
		}

		if action.Kind == entity.ActionWait {
			if err := performAction(ctx, s.surface, action.Kind, "", "", action.WaitMs); err != nil {
				return nil, fmt.Errorf("sub-action %d: %w", i, err)
			}
			continue
		}

		selector, err := resolveSelector(ctx, s.surface, action.Target, 0)
		if err != nil {
			return nil, fmt.Errorf("sub-action %d: %w", i, err)
		}
		if err := performAction(ctx, s.surface, action.Kind, selector, action.Value, 0); err != nil {
			return nil, fmt.Errorf("sub-action %d (%s %s): %w", i, action.Kind, selector, err)
		}
		s.logger.Debug("Sub-action done", "index", i, "kind", action.Kind, "selector", selector)
	}

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
