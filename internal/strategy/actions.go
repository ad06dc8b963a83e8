// Package strategy implements the progressive-enhancement strategy engine:
// learned-pattern replay, direct execution, vision-guided iteration, and the
// position-based last resort, attempted in order with fallback.
package strategy

import (
	"context"
	"fmt"
	"time"

	"github.com/copp1723/vinny-sub002/internal/application/port/output"
	"github.com/copp1723/vinny-sub002/internal/domain/entity"
)

const (
	defaultStepTimeout = 5 * time.Second
	downloadWait       = 60 * time.Second
)

// performAction applies one interaction to the surface. Wait actions are a
// plain bounded sleep; everything else targets a selector.
func performAction(ctx context.Context, surface output.SurfacePort, kind entity.ActionKind, selector, value string, waitMs int) error {
	switch kind {
	case entity.ActionClick:
		return surface.Click(ctx, selector)
	case entity.ActionFill:
		return surface.Fill(ctx, selector, value)
	case entity.ActionSelect:
		return surface.Select(ctx, selector, value)
	case entity.ActionWait:
		d := time.Duration(waitMs) * time.Millisecond
		if d <= 0 {
			d = time.Second
		}
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return nil
		}
	}
	return fmt.Errorf("unknown action kind: %q", kind)
}

// resolveSelector walks a target's selectors in order and commits to the
// first one present on the page.
func resolveSelector(ctx context.Context, surface output.SurfacePort, target entity.ElementTarget, timeout time.Duration) (string, error) {
	if timeout <= 0 {
		timeout = defaultStepTimeout
	}
	for _, selector := range target.Selectors() {
		found, err := surface.Exists(ctx, selector, timeout)
		if err != nil {
			continue
		}
		if found {
			return selector, nil
		}
	}
	return "", fmt.Errorf("no selector matched for %q: %w", target.Description, entity.ErrNotFound)
}
