package session

import (
	"context"
	"sync"
	"time"

	"github.com/copp1723/vinny-sub002/internal/application/port/output"
)

// DefaultKeepAliveInterval is short enough to beat common server-side idle
// expiry windows.
const DefaultKeepAliveInterval = 4 * time.Minute

// KeepAlive performs a periodic lightweight surface interaction so the
// server does not expire the session while a task is mid-flight. The handle
// is process-local and bound to one task's lifetime; the orchestrator's
// teardown must call Stop on every exit path.
type KeepAlive struct {
	surface  output.SurfacePort
	logger   output.LoggerPort
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewKeepAlive(surface output.SurfacePort, logger output.LoggerPort, interval time.Duration) *KeepAlive {
	if interval <= 0 {
		interval = DefaultKeepAliveInterval
	}
	return &KeepAlive{surface: surface, logger: logger, interval: interval}
}

// Start begins the heartbeat. Starting an already-running keep-alive
// restarts it.
func (k *KeepAlive) Start(ctx context.Context) {
	k.mu.Lock()
	defer k.mu.Unlock()

	k.stopLocked()

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	k.cancel = cancel
	k.done = done

	go func() {
		defer close(done)
		k.loop(loopCtx)
	}()
}

func (k *KeepAlive) loop(ctx context.Context) {
	ticker := time.NewTicker(k.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			k.ping(ctx)
		}
	}
}

// ping re-navigates to the current location: a no-op for the application,
// enough activity for the server to keep the session live.
func (k *KeepAlive) ping(ctx context.Context) {
	url := k.surface.CurrentURL()
	if url == "" {
		return
	}
	if err := k.surface.Navigate(ctx, url); err != nil {
		k.logger.Warn("Keep-alive ping failed", "url", url, "error", err)
		return
	}
	k.logger.Debug("Keep-alive ping", "url", url)
}

// Stop cancels the heartbeat and waits for the loop goroutine to exit, so
// no ping can touch the surface once Stop returns. Safe to call when not
// started and safe to call more than once.
func (k *KeepAlive) Stop() {
	k.mu.Lock()
	defer k.mu.Unlock()

	k.stopLocked()
}

func (k *KeepAlive) stopLocked() {
	if k.cancel == nil {
		return
	}
	k.cancel()
	<-k.done
	k.cancel = nil
	k.done = nil
}
