package entity

import "sync"

// Budget is the shared interaction budget for one task. Every committed
// click, fill, or select across every phase and strategy counts against it.
// The count is monotonically non-decreasing and never exceeds the maximum.
type Budget struct {
	mu   sync.Mutex
	max  int
	used int
}

func NewBudget(max int) *Budget {
	if max <= 0 {
		max = DefaultMaxInteractions
	}
	return &Budget{max: max}
}

// TryCommit reserves one interaction, or reports ErrBudgetExhausted. Callers
// treat exhaustion as "stop interacting and return what you have", not as a
// task failure.
func (b *Budget) TryCommit() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.used >= b.max {
		return ErrBudgetExhausted
	}
	b.used++
	return nil
}

func (b *Budget) Used() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.used
}

func (b *Budget) Remaining() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.max - b.used
}

func (b *Budget) Exhausted() bool {
	return b.Remaining() <= 0
}
