package entity

import (
	"errors"
	"fmt"
)

// ConfigError is the one failure class allowed past the orchestrator
// boundary: it means no task work was attempted at all.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// AuthError means login or second-factor indicators never cleared within
// their ceilings. Fatal for the task; no retry at this layer.
type AuthError struct {
	Stage string
	Err   error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed at %s: %v", e.Stage, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

var (
	// ErrNotFound: an element or entry was absent. Distinct from ErrTimeout,
	// which means a bounded wait ran out before a condition held.
	ErrNotFound = errors.New("not found")
	ErrTimeout  = errors.New("timed out")

	// ErrBudgetExhausted means the interaction budget is spent. Not a task
	// failure by itself: the current phase returns whatever partial result
	// exists.
	ErrBudgetExhausted = errors.New("interaction budget exhausted")

	// ErrNoPattern: no usable learned pattern for the task type + context.
	ErrNoPattern = errors.New("no usable pattern")

	// ErrNoCode: the relay holds no retrievable code right now.
	ErrNoCode = errors.New("no valid codes found")

	// ErrEntryNotFound: markUsed on an id the relay does not know.
	ErrEntryNotFound = errors.New("code entry not found")

	// ErrStrategyNotImplemented is reported by strategies a deployment does
	// not carry (the position-based fallback may be one of them).
	ErrStrategyNotImplemented = errors.New("strategy not implemented")
)

// StrategyExhaustedError surfaces when every enabled strategy has failed.
// Last holds the most recently observed strategy error.
type StrategyExhaustedError struct {
	Attempts int
	Last     error
}

func (e *StrategyExhaustedError) Error() string {
	return fmt.Sprintf("all %d strategies failed: %v", e.Attempts, e.Last)
}

func (e *StrategyExhaustedError) Unwrap() error { return e.Last }
