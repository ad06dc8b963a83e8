package strategy

import (
	"context"
	"fmt"

	"github.com/copp1723/vinny-sub002/internal/application/port/output"
	"github.com/copp1723/vinny-sub002/internal/domain/entity"
)

var _ Strategy = (*Position)(nil)

// Position is the ordinal-index last resort: it matches each sub-action to
// the nth visible element of the right kind, trusting page order instead of
// selectors. Fragile, which is why it runs last.
type Position struct {
	surface output.SurfacePort
	budget  *entity.Budget
	logger  output.LoggerPort
}

func NewPosition(surface output.SurfacePort, budget *entity.Budget, logger output.LoggerPort) *Position {
	return &Position{surface: surface, budget: budget, logger: logger}
}

func (s *Position) Kind() entity.StrategyKind { return entity.StrategyPositionBased }

func elementType(kind entity.ActionKind) string {
	switch kind {
	case entity.ActionFill:
		return "input"
	case entity.ActionSelect:
		return "select"
	default:
		return "button"
	}
}

func (s *Position) Execute(ctx context.Context, interp *entity.TaskInterpretation) (*entity.StrategyOutcome, error) {
	if len(interp.SubActions) == 0 {
		return nil, entity.ErrStrategyNotImplemented
	}

	// Ordinal per action kind: the second fill targets the second visible
	// input, and so on.
	ordinals := make(map[entity.ActionKind]int)

	for i, action := range interp.SubActions {
		if s.budget.Exhausted() {
			return &entity.StrategyOutcome{Success: false}, nil
		}

		if action.Kind == entity.ActionWait {
			if err := performAction(ctx, s.surface, action.Kind, "", "", action.WaitMs); err != nil {
				return nil, err
			}
			continue
		}

		snap, err := s.surface.Snapshot(ctx)
		if err != nil {
			return nil, fmt.Errorf("snapshot: %w", err)
		}

		wanted := elementType(action.Kind)
		ordinal := ordinals[action.Kind]
		ordinals[action.Kind]++

		selector := ""
		seen := 0
		for _, el := range snap.UIElements {
			if el.Type != wanted || !el.Visible {
				continue
			}
			if seen == ordinal {
				selector = el.Selector
				break
			}
			seen++
		}
		if selector == "" {
			return nil, fmt.Errorf("sub-action %d: no %s at ordinal %d: %w", i, wanted, ordinal, entity.ErrNotFound)
		}

		if err := performAction(ctx, s.surface, action.Kind, selector, action.Value, 0); err != nil {
			return nil, fmt.Errorf("sub-action %d: %w", i, err)
		}
		s.logger.Debug("Positional action done", "index", i, "ordinal", ordinal, "selector", selector)
	}

	return &entity.StrategyOutcome{Success: true}, nil
}
