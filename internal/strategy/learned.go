package strategy

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/copp1723/vinny-sub002/internal/application/port/output"
	"github.com/copp1723/vinny-sub002/internal/domain/entity"
)

var _ Strategy = (*Learned)(nil)

// Learned replays a previously successful action sequence for the same task
// type and context fingerprint. The cheapest strategy when it applies, so it
// runs first.
type Learned struct {
	patterns    output.PatternStorePort
	surface     output.SurfacePort
	budget      *entity.Budget
	fingerprint string
	artifactDir string
	logger      output.LoggerPort
}

func NewLearned(patterns output.PatternStorePort, surface output.SurfacePort, budget *entity.Budget, fingerprint, artifactDir string, logger output.LoggerPort) *Learned {
	return &Learned{
		patterns:    patterns,
		surface:     surface,
		budget:      budget,
		fingerprint: fingerprint,
		artifactDir: artifactDir,
		logger:      logger,
	}
}

func (s *Learned) Kind() entity.StrategyKind { return entity.StrategyLearnedPattern }

func (s *Learned) Execute(ctx context.Context, interp *entity.TaskInterpretation) (*entity.StrategyOutcome, error) {
	p, err := s.patterns.BestPattern(interp.TaskType, s.fingerprint)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Replaying learned pattern", "id", p.ID, "steps", len(p.ActionSequence), "score", p.Score())

	steps := append([]entity.PatternStep(nil), p.ActionSequence...)
	sort.Slice(steps, func(i, j int) bool { return steps[i].Order < steps[j].Order })

	for _, step := range steps {
		if s.budget.Exhausted() {
			// Budget exhaustion is not the pattern's fault: no bookkeeping
			// update, partial result stands.
			return &entity.StrategyOutcome{Success: false}, nil
		}

		if err := s.replayStep(ctx, step); err != nil {
			if updateErr := s.patterns.UpdateAfterExecution(p.ID, false); updateErr != nil {
				s.logger.Warn("Pattern update failed", "id", p.ID, "error", updateErr)
			}
			return nil, fmt.Errorf("pattern %s step %d: %w", p.ID, step.Order, err)
		}
	}

	outcome := &entity.StrategyOutcome{
		Success: true,
		Data:    map[string]any{"patternId": p.ID},
	}

	if interp.ExpectDownload {
		path, err := s.surface.WaitDownload(ctx, s.artifactDir, downloadWait)
		if err != nil {
			if updateErr := s.patterns.UpdateAfterExecution(p.ID, false); updateErr != nil {
				s.logger.Warn("Pattern update failed", "id", p.ID, "error", updateErr)
			}
			return nil, fmt.Errorf("pattern %s: expected artifact: %w", p.ID, err)
		}
		outcome.ArtifactPath = path
	}

	if err := s.patterns.UpdateAfterExecution(p.ID, true); err != nil {
		s.logger.Warn("Pattern update failed", "id", p.ID, "error", err)
	}
	return outcome, nil
}

// replayStep tries the step's primary selector, then each fallback in
// order; the first visible match is committed. A step with no matching
// selector aborts the whole strategy.
func (s *Learned) replayStep(ctx context.Context, step entity.PatternStep) error {
	if step.Kind == entity.ActionWait {
		return performAction(ctx, s.surface, step.Kind, "", "", step.TimeoutMs)
	}

	timeout := time.Duration(step.TimeoutMs) * time.Millisecond
	selector, err := resolveSelector(ctx, s.surface, step.Target, timeout)
	if err != nil {
		return err
	}

	retries := step.MaxRetries
	if retries < 0 {
		retries = 0
	}

	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		lastErr = performAction(ctx, s.surface, step.Kind, selector, step.Value, 0)
		if lastErr == nil {
			return nil
		}
		if s.budget.Exhausted() {
			return lastErr
		}
	}
	return lastErr
}
