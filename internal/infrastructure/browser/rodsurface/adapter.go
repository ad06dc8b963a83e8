// Package rodsurface drives a Chromium instance through go-rod and exposes
// it as the engine's controllable surface.
package rodsurface

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"

	"github.com/copp1723/vinny-sub002/internal/application/port/output"
	"github.com/copp1723/vinny-sub002/internal/domain/entity"
)

var _ output.SurfacePort = (*Adapter)(nil)

type Adapter struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	page     *rod.Page
	timeout  time.Duration
}

type Config struct {
	Headless   bool
	SlowMotion time.Duration
	Timeout    time.Duration
	NoSandbox  bool
	DevTools   bool
}

func DefaultConfig() Config {
	return Config{
		Headless:   true,
		SlowMotion: 500 * time.Millisecond,
		Timeout:    10 * time.Second,
		NoSandbox:  true,
		DevTools:   false,
	}
}

func New(ctx context.Context, cfg Config) (*Adapter, error) {
	l := launcher.New().
		Headless(cfg.Headless).
		Devtools(cfg.DevTools).
		NoSandbox(cfg.NoSandbox).
		Delete("use-mock-keychain").
		Set("disable-web-security").
		Set("allow-running-insecure-content").
		Set("disable-setuid-sandbox")

	url, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().
		ControlURL(url).
		SlowMotion(cfg.SlowMotion).
		MustConnect()

	page := browser.MustPage("about:blank")

	return &Adapter{
		browser:  browser,
		launcher: l,
		page:     page,
		timeout:  cfg.Timeout,
	}, nil
}

// element resolves a CSS or XPath selector within the adapter's timeout,
// mapping rod's failure modes onto the engine's error taxonomy.
func (a *Adapter) element(selector string, timeout time.Duration) (*rod.Element, error) {
	if timeout <= 0 {
		timeout = a.timeout
	}
	page := a.page.Timeout(timeout)

	var el *rod.Element
	var err error
	if strings.HasPrefix(selector, "/") || strings.Contains(selector, "xpath") {
		el, err = page.ElementX(selector)
	} else {
		el, err = page.Element(selector)
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("element %s: %w", selector, entity.ErrTimeout)
		}
		return nil, fmt.Errorf("element %s: %w", selector, entity.ErrNotFound)
	}
	return el, nil
}

func (a *Adapter) Navigate(ctx context.Context, url string) error {
	if err := a.page.Navigate(url); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	a.page.MustWaitLoad()
	a.page.WaitIdle(5 * time.Second)
	return nil
}

func (a *Adapter) Click(ctx context.Context, selector string) error {
	el, err := a.element(selector, 0)
	if err != nil {
		return err
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("click %s: %w", selector, err)
	}
	a.page.WaitIdle(2 * time.Second)
	return nil
}

func (a *Adapter) Fill(ctx context.Context, selector, text string) error {
	el, err := a.element(selector, 0)
	if err != nil {
		return err
	}
	if err := el.SelectAllText(); err == nil {
		_ = el.Input("")
	}
	if err := el.Input(text); err != nil {
		return fmt.Errorf("input into %s: %w", selector, err)
	}
	return nil
}

func (a *Adapter) Select(ctx context.Context, selector, value string) error {
	el, err := a.element(selector, 0)
	if err != nil {
		return err
	}
	if err := el.Select([]string{value}, true, rod.SelectorTypeText); err != nil {
		return fmt.Errorf("select %q in %s: %w", value, selector, err)
	}
	return nil
}

func (a *Adapter) Exists(ctx context.Context, selector string, timeout time.Duration) (bool, error) {
	el, err := a.element(selector, timeout)
	if err != nil {
		// Absent within the ceiling is a negative answer, not a failure.
		if errors.Is(err, entity.ErrTimeout) || errors.Is(err, entity.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	visible, err := el.Visible()
	if err != nil {
		return false, nil
	}
	return visible, nil
}

func (a *Adapter) WaitURL(ctx context.Context, match func(url string) bool, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	for {
		if match(a.CurrentURL()) {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("url wait: %w", entity.ErrTimeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// WaitDownload routes browser downloads into dir and blocks until a new,
// fully written file appears there.
func (a *Adapter) WaitDownload(ctx context.Context, dir string, timeout time.Duration) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("artifact dir: %w", err)
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	setDownloads := proto.BrowserSetDownloadBehavior{
		Behavior:     proto.BrowserSetDownloadBehaviorBehaviorAllow,
		DownloadPath: abs,
	}
	if err := setDownloads.Call(a.browser); err != nil {
		return "", fmt.Errorf("download behavior: %w", err)
	}

	before := listFiles(abs)
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		if path := newCompleteFile(abs, before); path != "" {
			return path, nil
		}
		if time.Now().After(deadline) {
			return "", fmt.Errorf("download wait: %w", entity.ErrTimeout)
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}
	}
}

func listFiles(dir string) map[string]bool {
	known := make(map[string]bool)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return known
	}
	for _, e := range entries {
		known[e.Name()] = true
	}
	return known
}

// newCompleteFile returns the first file absent from before and not still a
// Chromium partial download.
func newCompleteFile(dir string, before map[string]bool) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	for _, e := range entries {
		name := e.Name()
		if before[name] || e.IsDir() {
			continue
		}
		if strings.HasSuffix(name, ".crdownload") || strings.HasSuffix(name, ".tmp") {
			continue
		}
		return filepath.Join(dir, name)
	}
	return ""
}

func (a *Adapter) Screenshot(ctx context.Context) (*entity.Screenshot, error) {
	imgBytes, err := a.page.Screenshot(true, &proto.PageCaptureScreenshot{
		Format:  proto.PageCaptureScreenshotFormatJpeg,
		Quality: gson.Int(80),
	})
	if err != nil {
		return nil, fmt.Errorf("screenshot failed: %w", err)
	}

	img, _, err := image.Decode(bytes.NewReader(imgBytes))
	if err != nil {
		return nil, fmt.Errorf("image decode failed: %w", err)
	}

	if img.Bounds().Dx() > 1024 {
		img = imaging.Resize(img, 1024, 0, imaging.Lanczos)
	}

	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, img, &jpeg.Options{Quality: 75}); err != nil {
		return nil, fmt.Errorf("jpeg encode failed: %w", err)
	}

	return &entity.Screenshot{
		Data:   buf.Bytes(),
		Format: "jpeg",
		Width:  img.Bounds().Dx(),
		Height: img.Bounds().Dy(),
	}, nil
}

func (a *Adapter) Snapshot(ctx context.Context) (*entity.Snapshot, error) {
	info := a.page.MustInfo()

	body, err := a.page.Timeout(a.timeout).Element("body")
	if err != nil {
		return nil, fmt.Errorf("body not found: %w", err)
	}
	raw, err := body.HTML()
	if err != nil {
		return nil, fmt.Errorf("failed to get HTML: %w", err)
	}

	elements, err := a.uiElements()
	if err != nil {
		elements = nil
	}

	return &entity.Snapshot{
		URL:        info.URL,
		Title:      info.Title,
		HTML:       CleanHTML(raw, nil),
		UIElements: elements,
	}, nil
}

func (a *Adapter) uiElements() ([]entity.UIElement, error) {
	var result []entity.UIElement
	seen := make(map[string]bool)
	counter := 0
	maxElements := 500

	add := func(el *rod.Element, typ string) {
		if el == nil || counter >= maxElements {
			return
		}

		visible, err := el.Visible()
		if err != nil || !visible {
			return
		}

		selector, err := el.GetXPath(true)
		if err != nil || seen[selector] {
			return
		}
		seen[selector] = true

		text, _ := el.Text()
		text = strings.TrimSpace(text)
		aria, _ := el.Attribute("aria-label")
		role, _ := el.Attribute("role")

		result = append(result, entity.UIElement{
			ID:        fmt.Sprintf("ui-%04d", counter),
			Type:      typ,
			Text:      text,
			AriaLabel: ptrToString(aria),
			Role:      ptrToString(role),
			Visible:   true,
			Selector:  selector,
		})
		counter++
	}

	queries := []struct {
		query string
		typ   string
	}{
		{"button, [role='button'], input[type='submit'], [data-tooltip]", "button"},
		{"input:not([type='submit']), textarea", "input"},
		{"select", "select"},
		{"a", "link"},
	}
	for _, q := range queries {
		elements, err := a.page.Elements(q.query)
		if err != nil {
			continue
		}
		for _, el := range elements {
			add(el, q.typ)
		}
	}

	return result, nil
}

func (a *Adapter) ExportState(ctx context.Context) (*entity.BrowsingState, error) {
	cookies, err := a.browser.GetCookies()
	if err != nil {
		return nil, fmt.Errorf("get cookies: %w", err)
	}
	raw, err := json.Marshal(cookies)
	if err != nil {
		return nil, fmt.Errorf("encode cookies: %w", err)
	}

	state := &entity.BrowsingState{Cookies: raw}

	// Origin-scoped storage is best effort: about:blank has nothing.
	if stored, err := a.page.Eval(localStorageDumpJS); err == nil {
		if data, err := stored.Value.MarshalJSON(); err == nil {
			_ = json.Unmarshal(data, &state.LocalStorage)
		}
	}
	return state, nil
}

func (a *Adapter) ImportState(ctx context.Context, state *entity.BrowsingState) error {
	if state == nil {
		return nil
	}

	if len(state.Cookies) > 0 {
		var cookies []*proto.NetworkCookieParam
		if err := json.Unmarshal(state.Cookies, &cookies); err != nil {
			return fmt.Errorf("decode cookies: %w", err)
		}
		if err := a.browser.SetCookies(cookies); err != nil {
			return fmt.Errorf("set cookies: %w", err)
		}
	}

	if len(state.LocalStorage) > 0 {
		raw, err := json.Marshal(state.LocalStorage)
		if err != nil {
			return err
		}
		// Fails harmlessly off-origin; cookies carry the session either way.
		_, _ = a.page.Eval(localStorageLoadJS, string(raw))
	}
	return nil
}

const (
	localStorageDumpJS = `() => {
		const out = {};
		for (let i = 0; i < localStorage.length; i++) {
			const key = localStorage.key(i);
			out[key] = localStorage.getItem(key);
		}
		return out;
	}`

	localStorageLoadJS = `(raw) => {
		const items = JSON.parse(raw);
		for (const key of Object.keys(items)) {
			localStorage.setItem(key, items[key]);
		}
	}`
)

func (a *Adapter) CurrentURL() string {
	info, err := a.page.Info()
	if err != nil {
		// The page may already be gone; report no location rather than panic.
		return ""
	}
	return info.URL
}

func (a *Adapter) Close() {
	if a.browser != nil {
		_ = a.browser.Close()
	}
	if a.launcher != nil {
		a.launcher.Kill()
		a.launcher.Cleanup()
	}
}

func ptrToString(s *string) string {
	if s != nil {
		return *s
	}
	return ""
}
