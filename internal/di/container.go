package di

import (
	"context"
	"fmt"
	"time"

	"github.com/copp1723/vinny-sub002/internal/application/port/input"
	"github.com/copp1723/vinny-sub002/internal/application/port/output"
	"github.com/copp1723/vinny-sub002/internal/auth"
	"github.com/copp1723/vinny-sub002/internal/infrastructure/browser/rodsurface"
	"github.com/copp1723/vinny-sub002/internal/infrastructure/dispatch"
	"github.com/copp1723/vinny-sub002/internal/infrastructure/logger"
	"github.com/copp1723/vinny-sub002/internal/infrastructure/oracle/openrouter"
	"github.com/copp1723/vinny-sub002/internal/orchestrator"
	"github.com/copp1723/vinny-sub002/internal/pattern"
	"github.com/copp1723/vinny-sub002/internal/relay"
	"github.com/copp1723/vinny-sub002/internal/session"
)

type Container struct {
	Surface      output.SurfacePort
	Oracle       output.OraclePort
	Relay        output.RelayPort
	Logger       output.LoggerPort
	TaskExecutor input.TaskExecutor
}

type Config struct {
	OpenRouterAPIKey string
	OpenRouterModel  string
	BrowserHeadless  bool

	OTPRelayEndpoint string

	PatternDir string
	SessionDir string

	SendGridAPIKey string
	FromAddress    string

	Environment       string
	KeepAliveInterval time.Duration
}

func NewContainer(ctx context.Context, cfg Config) (*Container, error) {
	log, err := logger.NewAdapter("agent")
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	browserCfg := rodsurface.DefaultConfig()
	browserCfg.Headless = cfg.BrowserHeadless
	surface, err := rodsurface.New(ctx, browserCfg)
	if err != nil {
		log.Close()
		return nil, fmt.Errorf("failed to create browser: %w", err)
	}

	var oracle output.OraclePort
	if cfg.OpenRouterAPIKey != "" {
		oracle = openrouter.New(openrouter.DefaultConfig(cfg.OpenRouterAPIKey, cfg.OpenRouterModel))
	}

	var relayClient output.RelayPort
	if cfg.OTPRelayEndpoint != "" {
		relayClient = relay.NewClient(cfg.OTPRelayEndpoint)
	}

	patternDir := cfg.PatternDir
	if patternDir == "" {
		patternDir = "patterns"
	}
	patterns, err := pattern.NewStore(patternDir, log)
	if err != nil {
		surface.Close()
		log.Close()
		return nil, fmt.Errorf("failed to open pattern store: %w", err)
	}

	sessionDir := cfg.SessionDir
	if sessionDir == "" {
		sessionDir = "sessions"
	}
	sessions, err := session.NewStore(sessionDir, log)
	if err != nil {
		surface.Close()
		log.Close()
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}

	dispatcher := dispatch.New(dispatch.DefaultConfig(cfg.SendGridAPIKey, cfg.FromAddress), log)

	executor := orchestrator.New(orchestrator.Deps{
		Surface:           surface,
		Oracle:            oracle,
		Relay:             relayClient,
		Sessions:          sessions,
		Patterns:          patterns,
		Dispatcher:        dispatcher,
		Logger:            log,
		AuthOptions:       auth.DefaultOptions(),
		Environment:       cfg.Environment,
		KeepAliveInterval: cfg.KeepAliveInterval,
	})

	return &Container{
		Surface:      surface,
		Oracle:       oracle,
		Relay:        relayClient,
		Logger:       log,
		TaskExecutor: executor,
	}, nil
}

// Close releases everything the orchestrator has not already torn down.
// Surface shutdown is idempotent.
func (c *Container) Close() {
	if c.Surface != nil {
		c.Surface.Close()
	}
	if c.Logger != nil {
		c.Logger.Close()
	}
}
