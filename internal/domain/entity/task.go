package entity

import (
	"fmt"
	"time"
)

type TaskType string

const (
	TaskReportDownload  TaskType = "report_download"
	TaskRecordLookup    TaskType = "record_lookup"
	TaskActionSequence  TaskType = "action_sequence"
	TaskNaturalLanguage TaskType = "natural_language"
)

// ParseTaskType rejects unknown task types at construction time so that
// dispatch tables never need a runtime default case.
func ParseTaskType(s string) (TaskType, error) {
	switch TaskType(s) {
	case TaskReportDownload, TaskRecordLookup, TaskActionSequence, TaskNaturalLanguage:
		return TaskType(s), nil
	}
	return "", fmt.Errorf("unknown task type: %q", s)
}

type TargetConfig struct {
	URL                 string            `json:"url"`
	TaskType            TaskType          `json:"taskType"`
	Parameters          map[string]string `json:"parameters,omitempty"`
	NaturalLanguageTask string            `json:"naturalLanguageTask,omitempty"`
}

type AuthConfig struct {
	Identity         string `json:"identity"`
	Secret           string `json:"-"`
	OTPRelayEndpoint string `json:"otpRelayEndpoint,omitempty"`
}

type CapabilityConfig struct {
	UseVisionOracle         bool           `json:"useVisionOracle"`
	MaxInteractions         int            `json:"maxInteractions"`
	EnabledStrategies       []StrategyKind `json:"enabledStrategies,omitempty"`
	CaptureDebugScreenshots bool           `json:"captureDebugScreenshots"`
}

type OutputConfig struct {
	Recipients  []string `json:"recipients,omitempty"`
	CallbackURL string   `json:"callbackUrl,omitempty"`
	ArtifactDir string   `json:"artifactDir,omitempty"`
}

type LearningConfig struct {
	EnablePatternStorage bool `json:"enablePatternStorage"`
}

// TaskConfig is immutable for the duration of one task.
type TaskConfig struct {
	Target         TargetConfig     `json:"target"`
	Authentication AuthConfig       `json:"authentication"`
	Capabilities   CapabilityConfig `json:"capabilities"`
	Output         OutputConfig     `json:"output"`
	Learning       LearningConfig   `json:"learning"`
}

const DefaultMaxInteractions = 5

// Validate reports pre-flight configuration problems. These are the only
// failures allowed to propagate past the orchestrator as Go errors.
func (c *TaskConfig) Validate() error {
	if c.Target.URL == "" {
		return &ConfigError{Field: "target.url", Reason: "required"}
	}
	if _, err := ParseTaskType(string(c.Target.TaskType)); err != nil {
		return &ConfigError{Field: "target.taskType", Reason: err.Error()}
	}
	if c.Authentication.Identity == "" {
		return &ConfigError{Field: "authentication.identity", Reason: "required"}
	}
	if c.Authentication.Secret == "" {
		return &ConfigError{Field: "authentication.secret", Reason: "required"}
	}
	if c.Capabilities.MaxInteractions < 0 {
		return &ConfigError{Field: "capabilities.maxInteractions", Reason: "must be >= 0"}
	}
	for _, s := range c.Capabilities.EnabledStrategies {
		if _, err := ParseStrategyKind(string(s)); err != nil {
			return &ConfigError{Field: "capabilities.enabledStrategies", Reason: err.Error()}
		}
	}
	return nil
}

// MaxInteractions resolves the configured budget, falling back to the default.
func (c *TaskConfig) MaxInteractions() int {
	if c.Capabilities.MaxInteractions > 0 {
		return c.Capabilities.MaxInteractions
	}
	return DefaultMaxInteractions
}

// ExecutionResult is produced exactly once per task.
type ExecutionResult struct {
	Success          bool           `json:"success"`
	TaskType         TaskType       `json:"taskType"`
	ArtifactPath     string         `json:"artifactPath,omitempty"`
	Data             map[string]any `json:"data,omitempty"`
	InteractionCount int            `json:"interactionCount"`
	DurationMs       int64          `json:"durationMs"`
	Screenshots      []string       `json:"screenshots,omitempty"`
	Error            string         `json:"error,omitempty"`
}

func (r *ExecutionResult) SetDuration(start time.Time) {
	r.DurationMs = time.Since(start).Milliseconds()
}
