package output

import (
	"context"

	"github.com/copp1723/vinny-sub002/internal/domain/entity"
)

// DispatcherPort delivers a finished result: email with attachment to the
// configured recipients, and/or a verbatim POST of the result payload to a
// callback URL. One-shot; no internal retry.
type DispatcherPort interface {
	Deliver(ctx context.Context, cfg entity.OutputConfig, result *entity.ExecutionResult) error
}
