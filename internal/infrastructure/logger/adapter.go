package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/copp1723/vinny-sub002/internal/application/port/output"
)

var _ output.LoggerPort = (*Adapter)(nil)

// Adapter wraps a zap sugared logger behind the LoggerPort. One task gets
// one log file under ./log, named after the timestamp and task label.
type Adapter struct {
	sugar *zap.SugaredLogger
}

func NewAdapter(taskLabel string) (*Adapter, error) {
	if err := os.MkdirAll("log", 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}

	filename := fmt.Sprintf("%s_%s.log", time.Now().Format("2006-01-02_15-04-05"), sanitize(taskLabel))

	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{filepath.Join("log", filename)}
	cfg.EncoderConfig.EncodeTime = zapcore.RFC3339TimeEncoder

	core, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	return &Adapter{sugar: core.Sugar()}, nil
}

// NewNop discards everything. For tests.
func NewNop() *Adapter {
	return &Adapter{sugar: zap.NewNop().Sugar()}
}

func (a *Adapter) Debug(msg string, args ...any) { a.sugar.Debugw(msg, args...) }
func (a *Adapter) Info(msg string, args ...any)  { a.sugar.Infow(msg, args...) }
func (a *Adapter) Warn(msg string, args ...any)  { a.sugar.Warnw(msg, args...) }
func (a *Adapter) Error(msg string, args ...any) { a.sugar.Errorw(msg, args...) }

func (a *Adapter) WithField(key string, value any) output.LoggerPort {
	return &Adapter{sugar: a.sugar.With(key, value)}
}

func (a *Adapter) Close() error {
	// Sync fails harmlessly on some platforms when the sink is a terminal.
	_ = a.sugar.Sync()
	return nil
}

func sanitize(s string) string {
	s = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return '_'
	}, s)
	s = strings.Trim(s, "_")
	if s == "" {
		return "task"
	}
	if len(s) > 60 {
		s = s[:60]
	}
	return s
}
