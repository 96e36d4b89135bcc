package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rs/zerolog/log"

	"github.com/hirewatch/scraper-http-service/common"
)

// PageDriver abstracts the single browser page a scraping session operates on
type PageDriver interface {
	// Open navigates to a URL and waits for the page to load
	Open(ctx context.Context, url string) error

	// HTML returns the current page's rendered HTML
	HTML(ctx context.Context) (string, error)

	// CurrentURL returns the page's current address
	CurrentURL() string

	// Click clicks the first element matching the selector
	Click(ctx context.Context, selector string) error

	// Fill types text into the first element matching the selector
	Fill(ctx context.Context, selector, text string) error

	// Submit presses Enter on the first element matching the selector
	Submit(ctx context.Context, selector string) error

	// Eval runs a JavaScript expression on the page
	Eval(ctx context.Context, js string) error

	// Screenshot captures the visible viewport as PNG
	Screenshot(ctx context.Context) ([]byte, error)

	// WaitStable waits for the page to stop mutating
	WaitStable(ctx context.Context, d time.Duration) error

	// Close closes the page and its browser
	Close() error
}

// Manager launches one isolated browser per scraping session
type Manager struct {
	headless bool
}

// NewManager creates a browser session manager
func NewManager() *Manager {
	return &Manager{headless: true}
}

// NewSession launches a browser and opens a blank page with the fixed
// desktop viewport and user agent.
func (m *Manager) NewSession(ctx context.Context) (PageDriver, error) {
	controlURL, err := launcher.New().
		Headless(m.headless).
		Launch()
	if err != nil {
		return nil, fmt.Errorf("launching browser: %w", err)
	}

	b := rod.New().ControlURL(controlURL).Context(ctx)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("connecting to browser: %w", err)
	}

	page, err := b.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("opening page: %w", err)
	}

	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent: common.UserAgent,
	}); err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("setting user agent: %w", err)
	}

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             common.ViewportWidth,
		Height:            common.ViewportHeight,
		DeviceScaleFactor: 1,
		Mobile:            false,
	}); err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("setting viewport: %w", err)
	}

	return &rodDriver{browser: b, page: page}, nil
}

type rodDriver struct {
	browser *rod.Browser
	page    *rod.Page
}

func (d *rodDriver) Open(ctx context.Context, url string) error {
	p := d.page.Context(ctx)

	wait := p.WaitNavigation(proto.PageLifecycleEventNameNetworkAlmostIdle)
	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("navigating to %s: %w", url, err)
	}
	wait()

	if err := p.WaitStable(time.Second); err != nil {
		log.Debug().Err(err).Str("url", url).Msg("Page did not settle, continuing")
	}
	return nil
}

func (d *rodDriver) HTML(ctx context.Context) (string, error) {
	return d.page.Context(ctx).HTML()
}

func (d *rodDriver) CurrentURL() string {
	info, err := d.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

func (d *rodDriver) Click(ctx context.Context, selector string) error {
	el, err := d.page.Context(ctx).Element(selector)
	if err != nil {
		return fmt.Errorf("finding element %q: %w", selector, err)
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("clicking %q: %w", selector, err)
	}
	return nil
}

func (d *rodDriver) Fill(ctx context.Context, selector, text string) error {
	el, err := d.page.Context(ctx).Element(selector)
	if err != nil {
		return fmt.Errorf("finding element %q: %w", selector, err)
	}
	if err := el.SelectAllText(); err == nil {
		_ = el.Input("")
	}
	if err := el.Input(text); err != nil {
		return fmt.Errorf("typing into %q: %w", selector, err)
	}
	return nil
}

func (d *rodDriver) Submit(ctx context.Context, selector string) error {
	el, err := d.page.Context(ctx).Element(selector)
	if err != nil {
		return fmt.Errorf("finding element %q: %w", selector, err)
	}
	if err := el.Type(input.Enter); err != nil {
		return fmt.Errorf("submitting %q: %w", selector, err)
	}
	return nil
}

func (d *rodDriver) Eval(ctx context.Context, js string) error {
	_, err := d.page.Context(ctx).Eval(js)
	return err
}

func (d *rodDriver) Screenshot(ctx context.Context) ([]byte, error) {
	return d.page.Context(ctx).Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
}

func (d *rodDriver) WaitStable(ctx context.Context, duration time.Duration) error {
	return d.page.Context(ctx).WaitStable(duration)
}

func (d *rodDriver) Close() error {
	if err := d.page.Close(); err != nil {
		log.Debug().Err(err).Msg("Error closing page")
	}
	return d.browser.Close()
}
