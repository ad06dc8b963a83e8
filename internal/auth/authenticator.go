// Package auth drives login and second-factor resolution against the
// controllable surface.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/copp1723/vinny-sub002/internal/application/port/output"
	"github.com/copp1723/vinny-sub002/internal/domain/entity"
)

// State is the authenticator's progress through the login flow.
type State string

const (
	StateUnauthenticated      State = "unauthenticated"
	StateCredentialsEntered   State = "credentials_entered"
	StateSecondFactorRequired State = "second_factor_required"
	StateSecondFactorResolved State = "second_factor_resolved"
	StateAuthenticated        State = "authenticated"
)

// Options carries every ceiling the flow observes. Exceeding any of them is
// a timeout outcome, distinct from "element absent".
type Options struct {
	ProbeTimeout   time.Duration // per login/2FA indicator probe
	SettleDelay    time.Duration // before probing for a second factor
	OTPPollWindow  time.Duration // automated mode ceiling
	OTPPollEvery   time.Duration
	OTPMinAge      time.Duration
	ManualCeiling  time.Duration // human-in-the-loop mode ceiling
	CompletionWait time.Duration // URL-change wait after final submit
	IndicatorWait  time.Duration // post-login indicator fallback probe
}

func DefaultOptions() Options {
	return Options{
		ProbeTimeout:   3 * time.Second,
		SettleDelay:    2 * time.Second,
		OTPPollWindow:  2 * time.Minute,
		OTPPollEvery:   5 * time.Second,
		ManualCeiling:  5 * time.Minute,
		CompletionWait: 30 * time.Second,
		IndicatorWait:  10 * time.Second,
	}
}

// Authenticator resolves one identity from Unauthenticated to Authenticated.
// The oracle is optional (selector discovery from a page snapshot); the
// relay is optional too. Without it, second factors fall back to a long
// manual wait.
type Authenticator struct {
	surface output.SurfacePort
	oracle  output.OraclePort
	relay   output.RelayPort
	logger  output.LoggerPort
	opts    Options

	state State
	sleep func(ctx context.Context, d time.Duration) error
}

func New(surface output.SurfacePort, oracle output.OraclePort, relay output.RelayPort, logger output.LoggerPort, opts Options) *Authenticator {
	return &Authenticator{
		surface: surface,
		oracle:  oracle,
		relay:   relay,
		logger:  logger,
		opts:    opts,
		state:   StateUnauthenticated,
		sleep:   sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (a *Authenticator) State() State { return a.state }

// Authenticate runs the full flow. Returning nil means the surface is on an
// authenticated page. A failure here is fatal for the task; there is no
// retry at this layer.
func (a *Authenticator) Authenticate(ctx context.Context, identity, secret string) error {
	required, err := a.loginRequired(ctx)
	if err != nil {
		return &entity.AuthError{Stage: "detection", Err: err}
	}
	if !required {
		a.logger.Info("No login indicators present, assuming authenticated")
		a.state = StateAuthenticated
		return nil
	}

	if err := a.enterCredentials(ctx, identity, secret); err != nil {
		return &entity.AuthError{Stage: "credentials", Err: err}
	}
	a.state = StateCredentialsEntered

	if err := a.sleep(ctx, a.opts.SettleDelay); err != nil {
		return &entity.AuthError{Stage: "credentials", Err: err}
	}

	needsSecond, err := a.secondFactorRequired(ctx)
	if err != nil {
		return &entity.AuthError{Stage: "second_factor_detection", Err: err}
	}

	if needsSecond {
		a.state = StateSecondFactorRequired
		if err := a.resolveSecondFactor(ctx); err != nil {
			return &entity.AuthError{Stage: "second_factor", Err: err}
		}
		a.state = StateSecondFactorResolved
	}

	if err := a.awaitCompletion(ctx); err != nil {
		return &entity.AuthError{Stage: "completion", Err: err}
	}

	a.state = StateAuthenticated
	a.logger.Info("Authentication complete", "identity", identity)
	return nil
}

// loginRequired probes the fixed indicator set with a short existence
// timeout each. First hit wins.
func (a *Authenticator) loginRequired(ctx context.Context) (bool, error) {
	for _, selector := range loginIndicators {
		found, err := a.surface.Exists(ctx, selector, a.opts.ProbeTimeout)
		if err != nil {
			return false, fmt.Errorf("probe %q: %w", selector, err)
		}
		if found {
			a.logger.Debug("Login indicator hit", "selector", selector)
			return true, nil
		}
	}
	return false, nil
}

func (a *Authenticator) enterCredentials(ctx context.Context, identity, secret string) error {
	if a.oracle != nil {
		if err := a.enterCredentialsViaOracle(ctx, identity, secret); err == nil {
			return nil
		} else {
			a.logger.Warn("Oracle-guided credential entry failed, trying candidates", "error", err)
		}
	}

	userSel, err := a.firstVisible(ctx, usernameCandidates)
	if err != nil {
		return fmt.Errorf("username field: %w", err)
	}
	if err := a.surface.Fill(ctx, userSel, identity); err != nil {
		return fmt.Errorf("fill username: %w", err)
	}

	passSel, err := a.firstVisible(ctx, passwordCandidates)
	if err != nil {
		return fmt.Errorf("password field: %w", err)
	}
	if err := a.surface.Fill(ctx, passSel, secret); err != nil {
		return fmt.Errorf("fill password: %w", err)
	}

	submitSel, err := a.firstVisible(ctx, submitCandidates)
	if err != nil {
		return fmt.Errorf("submit control: %w", err)
	}
	if err := a.surface.Click(ctx, submitSel); err != nil {
		return fmt.Errorf("submit credentials: %w", err)
	}
	return nil
}

func (a *Authenticator) enterCredentialsViaOracle(ctx context.Context, identity, secret string) error {
	snap, err := a.surface.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("snapshot: %w", err)
	}

	fields, err := a.oracle.AnalyzeLogin(ctx, snap)
	if err != nil {
		return fmt.Errorf("oracle login analysis: %w", err)
	}
	if fields == nil || fields.UsernameSelector == "" || fields.PasswordSelector == "" || fields.SubmitSelector == "" {
		return fmt.Errorf("oracle returned incomplete login fields")
	}

	if err := a.surface.Fill(ctx, fields.UsernameSelector, identity); err != nil {
		return fmt.Errorf("fill username: %w", err)
	}
	if err := a.surface.Fill(ctx, fields.PasswordSelector, secret); err != nil {
		return fmt.Errorf("fill password: %w", err)
	}
	if err := a.surface.Click(ctx, fields.SubmitSelector); err != nil {
		return fmt.Errorf("submit credentials: %w", err)
	}
	return nil
}

func (a *Authenticator) secondFactorRequired(ctx context.Context) (bool, error) {
	for _, selector := range secondFactorIndicators {
		found, err := a.surface.Exists(ctx, selector, a.opts.ProbeTimeout)
		if err != nil {
			return false, fmt.Errorf("probe %q: %w", selector, err)
		}
		if found {
			a.logger.Info("Second factor required", "selector", selector)
			return true, nil
		}
	}
	return false, nil
}

func (a *Authenticator) resolveSecondFactor(ctx context.Context) error {
	if a.relay != nil {
		return a.resolveAutomated(ctx)
	}
	return a.resolveManual(ctx)
}

// resolveAutomated polls the relay until a code arrives or the window
// closes. Transient relay failures are tolerated; only the ceiling ends the
// loop.
func (a *Authenticator) resolveAutomated(ctx context.Context) error {
	deadline := time.Now().Add(a.opts.OTPPollWindow)

	for {
		code, err := a.relay.LatestCode(ctx, a.opts.OTPMinAge)
		if err == nil {
			return a.submitCode(ctx, code)
		}
		if !errors.Is(err, entity.ErrNoCode) {
			a.logger.Warn("Relay poll failed, will retry", "error", err)
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("no code within %s: %w", a.opts.OTPPollWindow, entity.ErrTimeout)
		}
		if err := a.sleep(ctx, a.opts.OTPPollEvery); err != nil {
			return err
		}
	}
}

func (a *Authenticator) submitCode(ctx context.Context, code *output.RelayCode) error {
	inputSel, err := a.firstVisible(ctx, codeInputCandidates)
	if err != nil {
		return fmt.Errorf("code input: %w", err)
	}
	if err := a.surface.Fill(ctx, inputSel, code.Code); err != nil {
		return fmt.Errorf("fill code: %w", err)
	}

	// Claim the code before submitting so a second poller can never be
	// handed the same entry.
	if err := a.relay.MarkUsed(ctx, code.ID); err != nil {
		a.logger.Warn("Failed to mark code used", "id", code.ID, "error", err)
	}

	submitSel, err := a.firstVisible(ctx, codeSubmitCandidates)
	if err != nil {
		return fmt.Errorf("code submit control: %w", err)
	}
	if err := a.surface.Click(ctx, submitSel); err != nil {
		return fmt.Errorf("submit code: %w", err)
	}

	a.logger.Info("Second factor submitted", "codeId", code.ID)
	return nil
}

// resolveManual is a deliberate long wait for a human to complete the factor
// out of band: it blocks until the location stops matching auth URL
// patterns.
func (a *Authenticator) resolveManual(ctx context.Context) error {
	a.logger.Info("Waiting for manual second-factor completion", "ceiling", a.opts.ManualCeiling)
	err := a.surface.WaitURL(ctx, func(url string) bool { return !IsAuthURL(url) }, a.opts.ManualCeiling)
	if err != nil {
		return fmt.Errorf("manual second factor: %w", err)
	}
	return nil
}

// awaitCompletion waits for the location to leave auth-related URL patterns,
// then falls back to probing post-login indicators if the location never
// changes.
func (a *Authenticator) awaitCompletion(ctx context.Context) error {
	err := a.surface.WaitURL(ctx, func(url string) bool { return !IsAuthURL(url) }, a.opts.CompletionWait)
	if err == nil {
		return nil
	}
	if !errors.Is(err, entity.ErrTimeout) {
		return fmt.Errorf("completion wait: %w", err)
	}

	a.logger.Debug("Location unchanged, probing post-login indicators")
	for _, selector := range postLoginIndicators {
		found, probeErr := a.surface.Exists(ctx, selector, a.opts.IndicatorWait)
		if probeErr == nil && found {
			a.logger.Debug("Post-login indicator hit", "selector", selector)
			return nil
		}
	}
	return fmt.Errorf("neither URL change nor post-login indicators observed: %w", entity.ErrTimeout)
}

// firstVisible walks an ordered candidate list and commits to the first
// selector that exists.
func (a *Authenticator) firstVisible(ctx context.Context, candidates []string) (string, error) {
	for _, selector := range candidates {
		found, err := a.surface.Exists(ctx, selector, a.opts.ProbeTimeout)
		if err != nil {
			continue
		}
		if found {
			return selector, nil
		}
	}
	return "", fmt.Errorf("no candidate matched %v: %w", candidates, entity.ErrNotFound)
}
