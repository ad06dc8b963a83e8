// Package mocks provides scriptable port doubles for tests.
package mocks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/copp1723/vinny-sub002/internal/application/port/output"
	"github.com/copp1723/vinny-sub002/internal/domain/entity"
)

var _ output.SurfacePort = (*FakeSurface)(nil)

// FakeSurface is an in-memory controllable surface. Selectors listed in
// Present exist; everything else reports entity.ErrNotFound. Hooks let a
// test simulate page transitions in response to interactions.
type FakeSurface struct {
	mu sync.Mutex

	URL     string
	Present map[string]bool

	Navigations []string
	Clicks      []string
	Fills       map[string]string
	Selects     map[string]string

	FailWith     map[string]error
	NavigateErr  error
	OnNavigate   func(url string)
	OnClick      func(selector string)
	OnFill       func(selector, text string)
	DownloadPath string
	Snap         *entity.Snapshot
	Shot         *entity.Screenshot
	State        *entity.BrowsingState
	Imported     *entity.BrowsingState
	Closed       bool
}

func NewFakeSurface() *FakeSurface {
	return &FakeSurface{
		Present: make(map[string]bool),
		Fills:   make(map[string]string),
		Selects: make(map[string]string),
	}
}

func (f *FakeSurface) Navigate(ctx context.Context, url string) error {
	f.mu.Lock()
	if f.NavigateErr != nil {
		f.mu.Unlock()
		return f.NavigateErr
	}
	f.Navigations = append(f.Navigations, url)
	f.URL = url
	hook := f.OnNavigate
	f.mu.Unlock()

	if hook != nil {
		hook(url)
	}
	return nil
}

// NavigationCount reports how many navigations have been performed.
func (f *FakeSurface) NavigationCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Navigations)
}

func (f *FakeSurface) lookup(selector string) error {
	if err, ok := f.FailWith[selector]; ok {
		return err
	}
	if !f.Present[selector] {
		return fmt.Errorf("element %q: %w", selector, entity.ErrNotFound)
	}
	return nil
}

func (f *FakeSurface) Click(ctx context.Context, selector string) error {
	f.mu.Lock()
	if err := f.lookup(selector); err != nil {
		f.mu.Unlock()
		return err
	}
	f.Clicks = append(f.Clicks, selector)
	hook := f.OnClick
	f.mu.Unlock()

	if hook != nil {
		hook(selector)
	}
	return nil
}

func (f *FakeSurface) Fill(ctx context.Context, selector, text string) error {
	f.mu.Lock()
	if err := f.lookup(selector); err != nil {
		f.mu.Unlock()
		return err
	}
	f.Fills[selector] = text
	hook := f.OnFill
	f.mu.Unlock()

	if hook != nil {
		hook(selector, text)
	}
	return nil
}

func (f *FakeSurface) Select(ctx context.Context, selector, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.lookup(selector); err != nil {
		return err
	}
	f.Selects[selector] = value
	return nil
}

func (f *FakeSurface) Exists(ctx context.Context, selector string, timeout time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.FailWith[selector]; ok {
		return false, err
	}
	return f.Present[selector], nil
}

func (f *FakeSurface) WaitURL(ctx context.Context, match func(string) bool, timeout time.Duration) error {
	f.mu.Lock()
	url := f.URL
	f.mu.Unlock()
	if match(url) {
		return nil
	}
	return fmt.Errorf("url wait: %w", entity.ErrTimeout)
}

func (f *FakeSurface) WaitDownload(ctx context.Context, dir string, timeout time.Duration) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.DownloadPath == "" {
		return "", fmt.Errorf("download wait: %w", entity.ErrTimeout)
	}
	return f.DownloadPath, nil
}

func (f *FakeSurface) Snapshot(ctx context.Context) (*entity.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Snap != nil {
		return f.Snap, nil
	}
	return &entity.Snapshot{URL: f.URL}, nil
}

func (f *FakeSurface) Screenshot(ctx context.Context) (*entity.Screenshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Shot != nil {
		return f.Shot, nil
	}
	return &entity.Screenshot{Data: []byte{0xff, 0xd8}, Format: "jpeg", Width: 1, Height: 1}, nil
}

func (f *FakeSurface) ExportState(ctx context.Context) (*entity.BrowsingState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.State != nil {
		return f.State, nil
	}
	return &entity.BrowsingState{}, nil
}

func (f *FakeSurface) ImportState(ctx context.Context, state *entity.BrowsingState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Imported = state
	return nil
}

func (f *FakeSurface) CurrentURL() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.URL
}

func (f *FakeSurface) SetURL(url string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.URL = url
}

func (f *FakeSurface) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
}
