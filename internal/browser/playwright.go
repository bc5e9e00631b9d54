package browser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"
)

// PlaywrightDriver drives Chromium through playwright-go. Selectors,
// including :has-text, are handled natively by playwright.
type PlaywrightDriver struct {
	cfg     Config
	pw      *playwright.Playwright
	browser playwright.Browser
	page    playwright.Page
	logger  *zap.Logger
}

// NewPlaywright starts the playwright driver, launches Chromium and opens a
// page. The driver and browsers must already be installed
// (go run github.com/playwright-community/playwright-go/cmd/playwright install).
func NewPlaywright(ctx context.Context, cfg Config, logger *zap.Logger) (*PlaywrightDriver, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pw, err := playwright.Run(&playwright.RunOptions{Stdout: io.Discard, Stderr: io.Discard})
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(cfg.Headless),
	}
	if cfg.SlowMo > 0 {
		launchOpts.SlowMo = playwright.Float(millis(cfg.SlowMo))
	}
	if cfg.Bin != "" {
		launchOpts.ExecutablePath = playwright.String(cfg.Bin)
	}
	b, err := pw.Chromium.Launch(launchOpts)
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("launch chromium: %w", err)
	}

	bctx, err := b.NewContext(playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{Width: cfg.ViewportWidth, Height: cfg.ViewportHeight},
	})
	if err != nil {
		_ = b.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("create context: %w", err)
	}
	page, err := bctx.NewPage()
	if err != nil {
		_ = b.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("open page: %w", err)
	}
	page.SetDefaultTimeout(millis(cfg.ActionTimeout))
	page.SetDefaultNavigationTimeout(millis(cfg.NavigationTimeout))

	logger.Debug("playwright browser ready", zap.Bool("headless", cfg.Headless), zap.Duration("slow_mo", cfg.SlowMo))
	return &PlaywrightDriver{cfg: cfg, pw: pw, browser: b, page: page, logger: logger}, nil
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// Page exposes the underlying playwright page.
func (d *PlaywrightDriver) Page() playwright.Page {
	return d.page
}

func (d *PlaywrightDriver) locator(ctx context.Context, selector string) (playwright.Locator, error) {
	if d.page == nil {
		return nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return d.page.Locator(selector).First(), nil
}

func pwError(what string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, playwright.ErrTimeout) {
		return fmt.Errorf("%s: %w", what, ErrTimeout)
	}
	return fmt.Errorf("%s: %w", what, err)
}

func (d *PlaywrightDriver) Goto(ctx context.Context, url string) error {
	if d.page == nil {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := d.page.Goto(url, playwright.PageGotoOptions{WaitUntil: playwright.WaitUntilStateLoad})
	return pwError("navigate "+url, err)
}

func (d *PlaywrightDriver) WaitForLoad(ctx context.Context) error {
	if d.page == nil {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	err := d.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{State: playwright.LoadStateNetworkidle})
	return pwError("wait for network idle", err)
}

func (d *PlaywrightDriver) waitFor(ctx context.Context, selector string, state *playwright.WaitForSelectorState, timeout time.Duration) error {
	loc, err := d.locator(ctx, selector)
	if err != nil {
		return err
	}
	err = loc.WaitFor(playwright.LocatorWaitForOptions{State: state, Timeout: playwright.Float(millis(timeout))})
	return pwError(selector, err)
}

func (d *PlaywrightDriver) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	return d.waitFor(ctx, selector, playwright.WaitForSelectorStateVisible, timeout)
}

func (d *PlaywrightDriver) WaitHidden(ctx context.Context, selector string, timeout time.Duration) error {
	return d.waitFor(ctx, selector, playwright.WaitForSelectorStateHidden, timeout)
}

func (d *PlaywrightDriver) Click(ctx context.Context, selector string) error {
	loc, err := d.locator(ctx, selector)
	if err != nil {
		return err
	}
	return pwError(selector, loc.Click())
}

func (d *PlaywrightDriver) Fill(ctx context.Context, selector, value string) error {
	loc, err := d.locator(ctx, selector)
	if err != nil {
		return err
	}
	return pwError(selector, loc.Fill(value))
}

func (d *PlaywrightDriver) Clear(ctx context.Context, selector string) error {
	loc, err := d.locator(ctx, selector)
	if err != nil {
		return err
	}
	return pwError(selector, loc.Clear())
}

func (d *PlaywrightDriver) Press(ctx context.Context, selector, key string) error {
	loc, err := d.locator(ctx, selector)
	if err != nil {
		return err
	}
	return pwError(selector, loc.Press(key))
}

func (d *PlaywrightDriver) SetChecked(ctx context.Context, selector string, checked bool) error {
	loc, err := d.locator(ctx, selector)
	if err != nil {
		return err
	}
	return pwError(selector, loc.SetChecked(checked))
}

func (d *PlaywrightDriver) SelectOption(ctx context.Context, selector, value string) error {
	loc, err := d.locator(ctx, selector)
	if err != nil {
		return err
	}
	if _, err := loc.SelectOption(playwright.SelectOptionValues{Values: &[]string{value}}); err == nil {
		return nil
	}
	_, err = loc.SelectOption(playwright.SelectOptionValues{Labels: &[]string{value}})
	return pwError(selector, err)
}

func (d *PlaywrightDriver) ScrollIntoView(ctx context.Context, selector string) error {
	loc, err := d.locator(ctx, selector)
	if err != nil {
		return err
	}
	return pwError(selector, loc.ScrollIntoViewIfNeeded())
}

func (d *PlaywrightDriver) Text(ctx context.Context, selector string) (string, error) {
	loc, err := d.locator(ctx, selector)
	if err != nil {
		return "", err
	}
	s, err := loc.TextContent()
	return s, pwError(selector, err)
}

func (d *PlaywrightDriver) InnerText(ctx context.Context, selector string) (string, error) {
	loc, err := d.locator(ctx, selector)
	if err != nil {
		return "", err
	}
	s, err := loc.InnerText()
	return s, pwError(selector, err)
}

func (d *PlaywrightDriver) Value(ctx context.Context, selector string) (string, error) {
	loc, err := d.locator(ctx, selector)
	if err != nil {
		return "", err
	}
	s, err := loc.InputValue()
	return s, pwError(selector, err)
}

func (d *PlaywrightDriver) Attribute(ctx context.Context, selector, name string) (string, bool, error) {
	loc, err := d.locator(ctx, selector)
	if err != nil {
		return "", false, err
	}
	// GetAttribute cannot tell an empty attribute from a missing one.
	v, err := loc.Evaluate(`(el, name) => el.getAttribute(name)`, name)
	if err != nil {
		return "", false, pwError(selector, err)
	}
	s, ok := v.(string)
	return s, ok, nil
}

func (d *PlaywrightDriver) IsVisible(ctx context.Context, selector string) (bool, error) {
	loc, err := d.locator(ctx, selector)
	if err != nil {
		return false, err
	}
	ok, err := loc.IsVisible()
	return ok, pwError(selector, err)
}

func (d *PlaywrightDriver) IsChecked(ctx context.Context, selector string) (bool, error) {
	loc, err := d.locator(ctx, selector)
	if err != nil {
		return false, err
	}
	ok, err := loc.IsChecked()
	return ok, pwError(selector, err)
}

func (d *PlaywrightDriver) IsEnabled(ctx context.Context, selector string) (bool, error) {
	loc, err := d.locator(ctx, selector)
	if err != nil {
		return false, err
	}
	ok, err := loc.IsEnabled()
	return ok, pwError(selector, err)
}

func (d *PlaywrightDriver) Count(ctx context.Context, selector string) (int, error) {
	if d.page == nil {
		return 0, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	n, err := d.page.Locator(selector).Count()
	return n, pwError(selector, err)
}

func (d *PlaywrightDriver) Evaluate(ctx context.Context, js string, args ...any) (any, error) {
	if d.page == nil {
		return nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var (
		v   any
		err error
	)
	switch len(args) {
	case 0:
		v, err = d.page.Evaluate(js)
	case 1:
		v, err = d.page.Evaluate(js, args[0])
	default:
		// playwright takes a single argument
		v, err = d.page.Evaluate(js, args)
	}
	return v, pwError("evaluate", err)
}

func (d *PlaywrightDriver) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	if d.page == nil {
		return nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := d.page.Screenshot(playwright.PageScreenshotOptions{
		FullPage: playwright.Bool(fullPage),
		Type:     playwright.ScreenshotTypePng,
	})
	return data, pwError("screenshot", err)
}

func (d *PlaywrightDriver) Title(ctx context.Context) (string, error) {
	if d.page == nil {
		return "", ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s, err := d.page.Title()
	return s, pwError("title", err)
}

func (d *PlaywrightDriver) URL(ctx context.Context) (string, error) {
	if d.page == nil {
		return "", ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return d.page.URL(), nil
}

// Close closes the browser and stops the playwright driver.
func (d *PlaywrightDriver) Close() error {
	if d.browser == nil {
		return nil
	}
	errs := []error{d.browser.Close(), d.pw.Stop()}
	d.browser, d.page = nil, nil
	return errors.Join(errs...)
}

var _ Driver = (*PlaywrightDriver)(nil)
