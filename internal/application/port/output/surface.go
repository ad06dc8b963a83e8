package output

import (
	"context"
	"time"

	"github.com/copp1723/vinny-sub002/internal/domain/entity"
)

// SurfacePort is the controllable surface: everything the engine may do to
// the remote application. Implementations must return entity.ErrNotFound for
// absent elements and entity.ErrTimeout for expired waits; callers rely on
// the distinction.
type SurfacePort interface {
	Navigate(ctx context.Context, url string) error
	Click(ctx context.Context, selector string) error
	Fill(ctx context.Context, selector, text string) error
	Select(ctx context.Context, selector, value string) error

	// Exists probes for an element with its own short ceiling.
	Exists(ctx context.Context, selector string, timeout time.Duration) (bool, error)
	// WaitURL blocks until match reports true for the current location.
	WaitURL(ctx context.Context, match func(url string) bool, timeout time.Duration) error
	// WaitDownload blocks until a new file lands in dir.
	WaitDownload(ctx context.Context, dir string, timeout time.Duration) (string, error)

	Snapshot(ctx context.Context) (*entity.Snapshot, error)
	Screenshot(ctx context.Context) (*entity.Screenshot, error)

	ExportState(ctx context.Context) (*entity.BrowsingState, error)
	ImportState(ctx context.Context, state *entity.BrowsingState) error

	CurrentURL() string
	Close()
}
