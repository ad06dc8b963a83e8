package input

import (
	"context"

	"github.com/copp1723/vinny-sub002/internal/domain/entity"
)

// TaskExecutor is the single entry point the CLI/config layer calls: one
// fully-populated TaskConfig in, one ExecutionResult out. The returned error
// is non-nil only for configuration validation failures.
type TaskExecutor interface {
	Execute(ctx context.Context, cfg *entity.TaskConfig) (*entity.ExecutionResult, error)
}
