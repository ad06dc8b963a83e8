package service

import (
	"context"
	"time"

	"github.com/copp1723/vinny-sub002/internal/application/port/output"
	"github.com/copp1723/vinny-sub002/internal/domain/entity"
)

var _ output.SurfacePort = (*BudgetedSurface)(nil)

// BudgetedSurface enforces the task's interaction budget at the surface
// boundary: every committed click, fill, or select reserves one interaction
// first, so no phase or strategy can overrun the ceiling. Reads, waits, and
// navigation are free.
type BudgetedSurface struct {
	inner  output.SurfacePort
	budget *entity.Budget
}

func NewBudgetedSurface(inner output.SurfacePort, budget *entity.Budget) *BudgetedSurface {
	return &BudgetedSurface{inner: inner, budget: budget}
}

func (s *BudgetedSurface) Budget() *entity.Budget { return s.budget }

// interact charges the budget only for interactions that actually landed; a
// not-found or failed attempt costs nothing.
func (s *BudgetedSurface) interact(do func() error) error {
	if s.budget.Exhausted() {
		return entity.ErrBudgetExhausted
	}
	if err := do(); err != nil {
		return err
	}
	return s.budget.TryCommit()
}

func (s *BudgetedSurface) Click(ctx context.Context, selector string) error {
	return s.interact(func() error { return s.inner.Click(ctx, selector) })
}

func (s *BudgetedSurface) Fill(ctx context.Context, selector, text string) error {
	return s.interact(func() error { return s.inner.Fill(ctx, selector, text) })
}

func (s *BudgetedSurface) Select(ctx context.Context, selector, value string) error {
	return s.interact(func() error { return s.inner.Select(ctx, selector, value) })
}

func (s *BudgetedSurface) Navigate(ctx context.Context, url string) error {
	return s.inner.Navigate(ctx, url)
}

func (s *BudgetedSurface) Exists(ctx context.Context, selector string, timeout time.Duration) (bool, error) {
	return s.inner.Exists(ctx, selector, timeout)
}

func (s *BudgetedSurface) WaitURL(ctx context.Context, match func(string) bool, timeout time.Duration) error {
	return s.inner.WaitURL(ctx, match, timeout)
}

func (s *BudgetedSurface) WaitDownload(ctx context.Context, dir string, timeout time.Duration) (string, error) {
	return s.inner.WaitDownload(ctx, dir, timeout)
}

func (s *BudgetedSurface) Snapshot(ctx context.Context) (*entity.Snapshot, error) {
	return s.inner.Snapshot(ctx)
}

func (s *BudgetedSurface) Screenshot(ctx context.Context) (*entity.Screenshot, error) {
	return s.inner.Screenshot(ctx)
}

func (s *BudgetedSurface) ExportState(ctx context.Context) (*entity.BrowsingState, error) {
	return s.inner.ExportState(ctx)
}

func (s *BudgetedSurface) ImportState(ctx context.Context, state *entity.BrowsingState) error {
	return s.inner.ImportState(ctx, state)
}

func (s *BudgetedSurface) CurrentURL() string { return s.inner.CurrentURL() }

func (s *BudgetedSurface) Close() { s.inner.Close() }
