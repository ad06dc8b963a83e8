// Package orchestrator sequences one task: restore or establish an
// authenticated session, execute by task type through the strategy engine,
// deliver the output. Every failure inside the task funnels into a single
// ExecutionResult with Success=false; only configuration validation errors
// come back as Go errors.
package orchestrator

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/copp1723/vinny-sub002/internal/application/port/input"
	"github.com/copp1723/vinny-sub002/internal/application/port/output"
	"github.com/copp1723/vinny-sub002/internal/application/service"
	"github.com/copp1723/vinny-sub002/internal/auth"
	"github.com/copp1723/vinny-sub002/internal/domain/entity"
	"github.com/copp1723/vinny-sub002/internal/session"
	"github.com/copp1723/vinny-sub002/internal/strategy"
)

const defaultArtifactDir = "artifacts"

var _ input.TaskExecutor = (*Orchestrator)(nil)

// Deps carries every collaborator the orchestrator wires per task. Oracle
// and Relay may be nil; the corresponding capabilities degrade gracefully.
type Deps struct {
	Surface     output.SurfacePort
	Oracle      output.OraclePort
	Relay       output.RelayPort
	Sessions    output.SessionStorePort
	Patterns    output.PatternStorePort
	Dispatcher  output.DispatcherPort
	Logger      output.LoggerPort
	AuthOptions auth.Options

	// Environment tags learned patterns so that fingerprints from staging
	// never match production.
	Environment       string
	KeepAliveInterval time.Duration
}

type Orchestrator struct {
	deps Deps
}

func New(deps Deps) *Orchestrator {
	return &Orchestrator{deps: deps}
}

// Execute runs a single task end to end. The surface is torn down on every
// exit path, keep-alive included.
func (o *Orchestrator) Execute(ctx context.Context, cfg *entity.TaskConfig) (*entity.ExecutionResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	interp, err := BuildInterpretation(cfg)
	if err != nil {
		// Still pre-flight: no browser work has happened yet.
		return nil, err
	}

	host, err := targetHost(cfg.Target.URL)
	if err != nil {
		return nil, &entity.ConfigError{Field: "target.url", Reason: err.Error()}
	}

	start := time.Now()
	result := &entity.ExecutionResult{TaskType: cfg.Target.TaskType}

	budget := entity.NewBudget(cfg.MaxInteractions())
	surface := service.NewBudgetedSurface(o.deps.Surface, budget)
	keepAlive := session.NewKeepAlive(o.deps.Surface, o.deps.Logger, o.deps.KeepAliveInterval)

	defer func() {
		keepAlive.Stop()
		o.deps.Surface.Close()
		result.InteractionCount = budget.Used()
		result.SetDuration(start)
	}()

	artifactDir := cfg.Output.ArtifactDir
	if artifactDir == "" {
		artifactDir = defaultArtifactDir
	}

	engine := o.buildEngine(cfg, interp, surface, budget, host, artifactDir)

	if err := o.authenticateAndNavigate(ctx, cfg, surface, host); err != nil {
		o.deps.Logger.Error("Authentication phase failed", "error", err)
		o.captureFailureShot(ctx, artifactDir, result)
		return o.fail(ctx, cfg, result, engine, err), nil
	}
	keepAlive.Start(ctx)

	outcome, err := engine.Run(ctx, interp)
	result.Screenshots = append(result.Screenshots, engine.Screenshots()...)
	if err != nil {
		o.deps.Logger.Error("Execution phase failed", "error", err)
		return o.fail(ctx, cfg, result, engine, err), nil
	}

	result.Success = outcome.Success
	result.ArtifactPath = outcome.ArtifactPath
	result.Data = outcome.Data
	o.attachAttempts(result, engine)

	if outcome.Success {
		o.recordPattern(cfg, interp, engine, host)
	} else {
		result.Error = "interaction budget exhausted before completion"
	}

	o.deliver(ctx, cfg, result)
	return result, nil
}

// authenticateAndNavigate imports any persisted session state, navigates to
// the target, and runs the authenticator, which no-ops when the restored
// session is still valid. A fresh record is saved after every successful
// authentication.
func (o *Orchestrator) authenticateAndNavigate(ctx context.Context, cfg *entity.TaskConfig, surface output.SurfacePort, host string) error {
	identity := cfg.Authentication.Identity

	if rec, err := o.deps.Sessions.Restore(identity, host); err == nil && rec != nil {
		if err := surface.ImportState(ctx, &rec.State); err != nil {
			o.deps.Logger.Warn("Session state import failed, proceeding unauthenticated", "error", err)
		} else {
			o.deps.Logger.Info("Restored persisted session", "host", host)
		}
	}

	if err := surface.Navigate(ctx, cfg.Target.URL); err != nil {
		return fmt.Errorf("navigate to target: %w", err)
	}

	var oracle output.OraclePort
	if cfg.Capabilities.UseVisionOracle {
		oracle = o.deps.Oracle
	}
	authenticator := auth.New(surface, oracle, o.deps.Relay, o.deps.Logger, o.deps.AuthOptions)
	if err := authenticator.Authenticate(ctx, identity, cfg.Authentication.Secret); err != nil {
		return err
	}

	state, err := o.deps.Surface.ExportState(ctx)
	if err != nil {
		o.deps.Logger.Warn("Session state export failed", "error", err)
		return nil
	}
	if err := o.deps.Sessions.Save(identity, host, state); err != nil {
		o.deps.Logger.Warn("Session save failed", "error", err)
	}
	return nil
}

func (o *Orchestrator) buildEngine(cfg *entity.TaskConfig, interp *entity.TaskInterpretation, surface output.SurfacePort, budget *entity.Budget, host, artifactDir string) *strategy.Engine {
	order := cfg.Capabilities.EnabledStrategies
	if len(order) == 0 {
		order = entity.DefaultStrategyOrder()
	}

	fingerprint := entity.ContextFingerprint(interp.TaskType, host, o.deps.Environment)

	var strategies []strategy.Strategy
	for _, kind := range order {
		switch kind {
		case entity.StrategyLearnedPattern:
			strategies = append(strategies, strategy.NewLearned(o.deps.Patterns, surface, budget, fingerprint, artifactDir, o.deps.Logger))
		case entity.StrategyDirect:
			strategies = append(strategies, strategy.NewDirect(surface, budget, artifactDir, o.deps.Logger))
		case entity.StrategyVisionGuided:
			var oracle output.OraclePort
			if cfg.Capabilities.UseVisionOracle {
				oracle = o.deps.Oracle
			}
			strategies = append(strategies, strategy.NewVision(surface, oracle, budget, artifactDir, o.deps.Logger))
		case entity.StrategyPositionBased:
			strategies = append(strategies, strategy.NewPosition(surface, budget, o.deps.Logger))
		}
	}

	engine := strategy.NewEngine(strategies, o.deps.Surface, budget, o.deps.Logger)
	if cfg.Capabilities.CaptureDebugScreenshots {
		engine.EnableDebugShots(artifactDir)
	}
	return engine
}

// recordPattern persists the executed sub-actions as a learned pattern when
// learning is enabled and a non-pattern strategy won. Pattern replays update
// their own bookkeeping inside the learned strategy.
func (o *Orchestrator) recordPattern(cfg *entity.TaskConfig, interp *entity.TaskInterpretation, engine *strategy.Engine, host string) {
	if !cfg.Learning.EnablePatternStorage || len(interp.SubActions) == 0 {
		return
	}
	attempts := engine.Attempts()
	if len(attempts) == 0 {
		return
	}
	winner := attempts[len(attempts)-1]
	if !winner.Success || winner.Strategy == entity.StrategyLearnedPattern {
		return
	}

	steps := make([]entity.PatternStep, 0, len(interp.SubActions))
	for i, action := range interp.SubActions {
		steps = append(steps, entity.PatternStep{
			Order:     i + 1,
			Kind:      action.Kind,
			Target:    action.Target,
			Value:     action.Value,
			TimeoutMs: action.WaitMs,
		})
	}

	fingerprint := entity.ContextFingerprint(interp.TaskType, host, o.deps.Environment)
	if _, err := o.deps.Patterns.StorePattern(interp.TaskType, fingerprint, steps); err != nil {
		o.deps.Logger.Warn("Pattern storage failed", "error", err)
	}
}

// fail converts an in-task error into the structured failure shape.
func (o *Orchestrator) fail(ctx context.Context, cfg *entity.TaskConfig, result *entity.ExecutionResult, engine *strategy.Engine, err error) *entity.ExecutionResult {
	result.Success = false
	result.Error = err.Error()
	result.Screenshots = append(result.Screenshots, engine.Screenshots()...)
	o.attachAttempts(result, engine)
	o.deliver(ctx, cfg, result)
	return result
}

func (o *Orchestrator) attachAttempts(result *entity.ExecutionResult, engine *strategy.Engine) {
	attempts := engine.Attempts()
	if len(attempts) == 0 {
		return
	}
	if result.Data == nil {
		result.Data = make(map[string]any)
	}
	result.Data["attempts"] = attempts
}

// deliver hands the result to the output dispatcher. Delivery is one-shot
// and non-fatal: a failure is recorded on the result but never unmakes the
// task outcome.
func (o *Orchestrator) deliver(ctx context.Context, cfg *entity.TaskConfig, result *entity.ExecutionResult) {
	if o.deps.Dispatcher == nil {
		return
	}
	if len(cfg.Output.Recipients) == 0 && cfg.Output.CallbackURL == "" {
		return
	}
	if err := o.deps.Dispatcher.Deliver(ctx, cfg.Output, result); err != nil {
		o.deps.Logger.Warn("Output delivery failed", "error", err)
		if result.Data == nil {
			result.Data = make(map[string]any)
		}
		result.Data["deliveryError"] = err.Error()
	}
}

func (o *Orchestrator) captureFailureShot(ctx context.Context, dir string, result *entity.ExecutionResult) {
	shot, err := o.deps.Surface.Screenshot(ctx)
	if err != nil {
		o.deps.Logger.Debug("Failure screenshot unavailable", "error", err)
		return
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return
	}
	path := filepath.Join(dir, fmt.Sprintf("auth_failure_%s.jpg", time.Now().Format("20060102_150405")))
	if err := os.WriteFile(path, shot.Data, 0o644); err != nil {
		return
	}
	result.Screenshots = append(result.Screenshots, path)
}

func targetHost(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Host == "" {
		return "", fmt.Errorf("no host in %q", raw)
	}
	return u.Host, nil
}
