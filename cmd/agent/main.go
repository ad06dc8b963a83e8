package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/copp1723/vinny-sub002/internal/di"
	"github.com/copp1723/vinny-sub002/internal/domain/entity"
	"github.com/copp1723/vinny-sub002/internal/infrastructure/env"
)

func main() {
	envService := env.NewEnvService()

	configPath := flag.String("config", "", "path to a TaskConfig JSON file (reads stdin when omitted)")
	headless := flag.Bool("headless", envService.GetBool("BROWSER_HEADLESS", true), "run the browser headless")
	flag.Parse()

	cfg, err := loadTaskConfig(*configPath, envService)
	if err != nil {
		log.Fatalf("Task config error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), envService.GetDuration("TASK_TIMEOUT", 30*time.Minute))
	defer cancel()

	container, err := di.NewContainer(ctx, di.Config{
		OpenRouterAPIKey:  envService.Get("OPENROUTER_API_KEY"),
		OpenRouterModel:   envService.Get("OPENROUTER_MODEL_NAME"),
		BrowserHeadless:   *headless,
		OTPRelayEndpoint:  cfg.Authentication.OTPRelayEndpoint,
		PatternDir:        envService.Get("PATTERN_DIR"),
		SessionDir:        envService.Get("SESSION_DIR"),
		SendGridAPIKey:    envService.Get("SENDGRID_API_KEY"),
		FromAddress:       envService.Get("FROM_ADDRESS"),
		Environment:       envService.Get("APP_ENV"),
		KeepAliveInterval: envService.GetDuration("KEEPALIVE_INTERVAL", 4*time.Minute),
	})
	if err != nil {
		log.Fatalf("Initialization error: %v", err)
	}
	defer container.Close()

	container.Logger.Info("Task started", "taskType", cfg.Target.TaskType, "url", cfg.Target.URL)

	result, err := container.TaskExecutor.Execute(ctx, cfg)
	if err != nil {
		container.Logger.Error("Task rejected", "error", err)
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	out, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(out))

	if !result.Success {
		os.Exit(1)
	}
}

// loadTaskConfig reads the TaskConfig JSON from a file or stdin. The secret
// never travels in the file; it always comes from the environment.
func loadTaskConfig(path string, envService *env.EnvService) (*entity.TaskConfig, error) {
	var raw []byte
	var err error
	if path != "" {
		raw, err = os.ReadFile(path)
	} else {
		raw, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		return nil, err
	}

	var cfg entity.TaskConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse task config: %w", err)
	}

	if cfg.Authentication.Secret == "" {
		cfg.Authentication.Secret = envService.Get("TARGET_SECRET")
	}
	if cfg.Authentication.Identity == "" {
		cfg.Authentication.Identity = envService.Get("TARGET_IDENTITY")
	}
	return &cfg, nil
}
