package entity

import (
	"fmt"
	"time"
)

type StrategyKind string

const (
	StrategyLearnedPattern StrategyKind = "learned_pattern"
	StrategyDirect         StrategyKind = "direct"
	StrategyVisionGuided   StrategyKind = "vision_guided"
	StrategyPositionBased  StrategyKind = "position_based"
)

func ParseStrategyKind(s string) (StrategyKind, error) {
	switch StrategyKind(s) {
	case StrategyLearnedPattern, StrategyDirect, StrategyVisionGuided, StrategyPositionBased:
		return StrategyKind(s), nil
	}
	return "", fmt.Errorf("unknown strategy: %q", s)
}

// DefaultStrategyOrder is the progressive-enhancement order: cheap and
// reliable first, adaptive and expensive last.
func DefaultStrategyOrder() []StrategyKind {
	return []StrategyKind{
		StrategyLearnedPattern,
		StrategyDirect,
		StrategyVisionGuided,
		StrategyPositionBased,
	}
}

type ActionKind string

const (
	ActionClick  ActionKind = "click"
	ActionFill   ActionKind = "fill"
	ActionSelect ActionKind = "select"
	ActionWait   ActionKind = "wait"
)

func ParseActionKind(s string) (ActionKind, error) {
	switch ActionKind(s) {
	case ActionClick, ActionFill, ActionSelect, ActionWait:
		return ActionKind(s), nil
	}
	return "", fmt.Errorf("unknown action kind: %q", s)
}

// ElementTarget names one element by a primary selector plus ordered
// fallbacks tried when the primary no longer matches the page.
type ElementTarget struct {
	PrimarySelector   string   `json:"primarySelector"`
	FallbackSelectors []string `json:"fallbackSelectors,omitempty"`
	Description       string   `json:"description,omitempty"`
}

// Selectors returns the primary plus fallbacks in try order.
func (t ElementTarget) Selectors() []string {
	out := make([]string, 0, 1+len(t.FallbackSelectors))
	if t.PrimarySelector != "" {
		out = append(out, t.PrimarySelector)
	}
	return append(out, t.FallbackSelectors...)
}

// SubAction is one intended interaction inside a task interpretation.
type SubAction struct {
	Kind   ActionKind    `json:"kind"`
	Target ElementTarget `json:"target"`
	Value  string        `json:"value,omitempty"`
	WaitMs int           `json:"waitMs,omitempty"`
}

// TaskInterpretation is what the strategy engine executes. It is built once
// per task and must not be mutated by a failing strategy: the next strategy
// in the fallback chain receives it as-is.
type TaskInterpretation struct {
	TaskType        TaskType        `json:"taskType"`
	Targets         []ElementTarget `json:"targets,omitempty"`
	SubActions      []SubAction     `json:"subActions,omitempty"`
	Description     string          `json:"description"`
	SuccessCriteria string          `json:"successCriteria,omitempty"`
	EstimatedSteps  int             `json:"estimatedSteps,omitempty"`
	ExpectDownload  bool            `json:"expectDownload,omitempty"`
}

// StrategyOutcome is what a single strategy attempt reports back.
type StrategyOutcome struct {
	Success      bool           `json:"success"`
	ArtifactPath string         `json:"artifactPath,omitempty"`
	Data         map[string]any `json:"data,omitempty"`
}

// AttemptRecord is one line of the engine's diagnostic attempt log. Every
// strategy attempt is recorded, successful or not.
type AttemptRecord struct {
	Strategy   StrategyKind  `json:"strategy"`
	Success    bool          `json:"success"`
	Error      string        `json:"error,omitempty"`
	Duration   time.Duration `json:"-"`
	DurationMs int64         `json:"durationMs"`
	StartedAt  time.Time     `json:"startedAt"`
}
