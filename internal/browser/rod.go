package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/ysmood/gson"
	"go.uber.org/zap"
)

// RodDriver drives Chromium through the DevTools protocol with go-rod.
type RodDriver struct {
	cfg      Config
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
	logger   *zap.Logger
}

// NewRod launches Chromium (or attaches to BROWSER_BIN) and opens a blank
// page.
func NewRod(ctx context.Context, cfg Config, logger *zap.Logger) (*RodDriver, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	bin := cfg.Bin
	if bin == "" {
		bin, _ = launcher.LookPath()
	}
	l := launcher.New().Headless(cfg.Headless)
	if bin != "" {
		l = l.Bin(bin)
	}
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch chromium: %w", err)
	}

	b := rod.New().ControlURL(controlURL).Context(ctx)
	if cfg.SlowMo > 0 {
		b = b.SlowMotion(cfg.SlowMo)
	}
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connect to chromium: %w", err)
	}

	page, err := b.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		_ = b.Close()
		l.Kill()
		return nil, fmt.Errorf("open page: %w", err)
	}
	if cfg.ViewportWidth > 0 && cfg.ViewportHeight > 0 {
		err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             cfg.ViewportWidth,
			Height:            cfg.ViewportHeight,
			DeviceScaleFactor: 1,
		})
		if err != nil {
			logger.Warn("set viewport", zap.Error(err))
		}
	}

	logger.Debug("rod browser ready", zap.Bool("headless", cfg.Headless), zap.Duration("slow_mo", cfg.SlowMo))
	return &RodDriver{cfg: cfg, launcher: l, browser: b, page: page, logger: logger}, nil
}

// Page exposes the underlying rod page.
func (d *RodDriver) Page() *rod.Page {
	return d.page
}

func (d *RodDriver) scoped(ctx context.Context, timeout time.Duration) *rod.Page {
	return d.page.Context(ctx).Timeout(timeout)
}

// element waits up to timeout for selector to be attached.
func (d *RodDriver) element(ctx context.Context, selector string, timeout time.Duration) (*rod.Element, error) {
	if d.page == nil {
		return nil, ErrClosed
	}
	el, err := find(d.scoped(ctx, timeout), selector)
	if err != nil {
		return nil, err
	}
	return el.Context(ctx), nil
}

// find waits for selector on p. The element keeps p's context, deadline
// included.
func find(p *rod.Page, selector string) (*rod.Element, error) {
	var (
		el  *rod.Element
		err error
	)
	if css, text, ok := SplitHasText(selector); ok {
		el, err = p.ElementR(css, HasTextPattern(text))
	} else {
		el, err = p.Element(selector)
	}
	if err != nil {
		return nil, rodError(selector, err)
	}
	return el, nil
}

// probe looks selector up once without waiting.
func (d *RodDriver) probe(ctx context.Context, selector string) (*rod.Element, error) {
	if d.page == nil {
		return nil, ErrClosed
	}
	p := d.page.Context(ctx)
	var (
		has bool
		el  *rod.Element
		err error
	)
	if css, text, ok := SplitHasText(selector); ok {
		has, el, err = p.HasR(css, HasTextPattern(text))
	} else {
		has, el, err = p.Has(selector)
	}
	if err != nil {
		return nil, rodError(selector, err)
	}
	if !has {
		return nil, fmt.Errorf("%s: %w", selector, ErrNotFound)
	}
	return el, nil
}

func rodError(selector string, err error) error {
	var notFound *rod.ElementNotFoundError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w", selector, ErrTimeout)
	case errors.As(err, &notFound):
		return fmt.Errorf("%s: %w", selector, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", selector, err)
}

func (d *RodDriver) Goto(ctx context.Context, url string) error {
	if d.page == nil {
		return ErrClosed
	}
	p := d.scoped(ctx, d.cfg.NavigationTimeout)
	if err := p.Navigate(url); err != nil {
		return navError(url, err)
	}
	if err := p.WaitLoad(); err != nil {
		return navError(url, err)
	}
	return nil
}

func navError(url string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("navigate %s: %w", url, ErrTimeout)
	}
	return fmt.Errorf("navigate %s: %w", url, err)
}

func (d *RodDriver) WaitForLoad(ctx context.Context) error {
	if d.page == nil {
		return ErrClosed
	}
	p := d.scoped(ctx, d.cfg.NavigationTimeout)
	p.WaitRequestIdle(500*time.Millisecond, nil, nil, nil)()
	if err := p.WaitIdle(d.cfg.NavigationTimeout); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("wait for network idle: %w", ErrTimeout)
		}
		return fmt.Errorf("wait for network idle: %w", err)
	}
	return nil
}

// WaitVisible spends one timeout on both the lookup and the visibility wait.
func (d *RodDriver) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	if d.page == nil {
		return ErrClosed
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	el, err := find(d.page.Context(ctx), selector)
	if err != nil {
		return err
	}
	if err := el.WaitVisible(); err != nil {
		return rodError(selector, err)
	}
	return nil
}

func (d *RodDriver) WaitHidden(ctx context.Context, selector string, timeout time.Duration) error {
	el, err := d.probe(ctx, selector)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := el.Timeout(timeout).WaitInvisible(); err != nil {
		return rodError(selector, err)
	}
	return nil
}

func (d *RodDriver) Click(ctx context.Context, selector string) error {
	el, err := d.element(ctx, selector, d.cfg.ActionTimeout)
	if err != nil {
		return err
	}
	if err := el.Timeout(d.cfg.ActionTimeout).Click(proto.InputMouseButtonLeft, 1); err != nil {
		return rodError(selector, err)
	}
	return nil
}

func (d *RodDriver) Fill(ctx context.Context, selector, value string) error {
	el, err := d.element(ctx, selector, d.cfg.ActionTimeout)
	if err != nil {
		return err
	}
	if err := el.SelectAllText(); err != nil {
		return rodError(selector, err)
	}
	if err := el.Input(value); err != nil {
		return rodError(selector, err)
	}
	return nil
}

func (d *RodDriver) Clear(ctx context.Context, selector string) error {
	return d.Fill(ctx, selector, "")
}

var rodKeys = map[string]input.Key{
	"Enter":      input.Enter,
	"Tab":        input.Tab,
	"Escape":     input.Escape,
	"Backspace":  input.Backspace,
	"ArrowUp":    input.ArrowUp,
	"ArrowDown":  input.ArrowDown,
	"ArrowLeft":  input.ArrowLeft,
	"ArrowRight": input.ArrowRight,
}

func (d *RodDriver) Press(ctx context.Context, selector, key string) error {
	k, ok := rodKeys[key]
	if !ok {
		return fmt.Errorf("press: unsupported key %q", key)
	}
	el, err := d.element(ctx, selector, d.cfg.ActionTimeout)
	if err != nil {
		return err
	}
	if err := el.Type(k); err != nil {
		return rodError(selector, err)
	}
	return nil
}

func (d *RodDriver) SetChecked(ctx context.Context, selector string, checked bool) error {
	current, err := d.IsChecked(ctx, selector)
	if err != nil {
		return err
	}
	if current == checked {
		return nil
	}
	return d.Click(ctx, selector)
}

func (d *RodDriver) SelectOption(ctx context.Context, selector, value string) error {
	el, err := d.element(ctx, selector, d.cfg.ActionTimeout)
	if err != nil {
		return err
	}
	_, err = el.Eval(`function (v) {
		const opt = Array.from(this.options).find(o => o.value === v || o.text.trim() === v);
		if (!opt) throw new Error("no option " + v);
		this.value = opt.value;
		this.dispatchEvent(new Event("input", {bubbles: true}));
		this.dispatchEvent(new Event("change", {bubbles: true}));
	}`, value)
	if err != nil {
		return rodError(selector, err)
	}
	return nil
}

func (d *RodDriver) ScrollIntoView(ctx context.Context, selector string) error {
	el, err := d.element(ctx, selector, d.cfg.ActionTimeout)
	if err != nil {
		return err
	}
	if err := el.ScrollIntoView(); err != nil {
		return rodError(selector, err)
	}
	return nil
}

func (d *RodDriver) property(ctx context.Context, selector, name string) (gson.JSON, error) {
	el, err := d.element(ctx, selector, d.cfg.ActionTimeout)
	if err != nil {
		return gson.JSON{}, err
	}
	v, err := el.Property(name)
	if err != nil {
		return gson.JSON{}, rodError(selector, err)
	}
	return v, nil
}

func (d *RodDriver) Text(ctx context.Context, selector string) (string, error) {
	v, err := d.property(ctx, selector, "textContent")
	if err != nil {
		return "", err
	}
	return v.Str(), nil
}

func (d *RodDriver) InnerText(ctx context.Context, selector string) (string, error) {
	el, err := d.element(ctx, selector, d.cfg.ActionTimeout)
	if err != nil {
		return "", err
	}
	s, err := el.Text()
	if err != nil {
		return "", rodError(selector, err)
	}
	return s, nil
}

func (d *RodDriver) Value(ctx context.Context, selector string) (string, error) {
	v, err := d.property(ctx, selector, "value")
	if err != nil {
		return "", err
	}
	return v.Str(), nil
}

func (d *RodDriver) Attribute(ctx context.Context, selector, name string) (string, bool, error) {
	el, err := d.element(ctx, selector, d.cfg.ActionTimeout)
	if err != nil {
		return "", false, err
	}
	v, err := el.Attribute(name)
	if err != nil {
		return "", false, rodError(selector, err)
	}
	if v == nil {
		return "", false, nil
	}
	return *v, true, nil
}

func (d *RodDriver) IsVisible(ctx context.Context, selector string) (bool, error) {
	el, err := d.probe(ctx, selector)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return el.Visible()
}

func (d *RodDriver) IsChecked(ctx context.Context, selector string) (bool, error) {
	v, err := d.property(ctx, selector, "checked")
	if err != nil {
		return false, err
	}
	return v.Bool(), nil
}

func (d *RodDriver) IsEnabled(ctx context.Context, selector string) (bool, error) {
	v, err := d.property(ctx, selector, "disabled")
	if err != nil {
		return false, err
	}
	return !v.Bool(), nil
}

func (d *RodDriver) Count(ctx context.Context, selector string) (int, error) {
	if d.page == nil {
		return 0, ErrClosed
	}
	p := d.page.Context(ctx)
	var (
		els rod.Elements
		err error
	)
	if css, text, ok := SplitHasText(selector); ok {
		els, err = p.ElementsByJS(rod.Eval(`(css, text) => Array.from(document.querySelectorAll(css))
			.filter(e => e.textContent.toLowerCase().includes(text.toLowerCase()))`, css, text))
	} else {
		els, err = p.Elements(selector)
	}
	if err != nil {
		return 0, rodError(selector, err)
	}
	return len(els), nil
}

func (d *RodDriver) Evaluate(ctx context.Context, js string, args ...any) (any, error) {
	if d.page == nil {
		return nil, ErrClosed
	}
	res, err := d.scoped(ctx, d.cfg.ActionTimeout).Eval(js, args...)
	if err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}
	return res.Value.Val(), nil
}

func (d *RodDriver) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	if d.page == nil {
		return nil, ErrClosed
	}
	data, err := d.page.Context(ctx).Screenshot(fullPage, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
	if err != nil {
		return nil, fmt.Errorf("screenshot: %w", err)
	}
	return data, nil
}

func (d *RodDriver) Title(ctx context.Context) (string, error) {
	info, err := d.info(ctx)
	if err != nil {
		return "", err
	}
	return info.Title, nil
}

func (d *RodDriver) URL(ctx context.Context) (string, error) {
	info, err := d.info(ctx)
	if err != nil {
		return "", err
	}
	return info.URL, nil
}

func (d *RodDriver) info(ctx context.Context) (*proto.TargetTargetInfo, error) {
	if d.page == nil {
		return nil, ErrClosed
	}
	info, err := d.page.Context(ctx).Info()
	if err != nil {
		return nil, fmt.Errorf("page info: %w", err)
	}
	return info, nil
}

// Close closes the browser and kills the launched process.
func (d *RodDriver) Close() error {
	if d.browser == nil {
		return nil
	}
	var errs []string
	if err := d.browser.Close(); err != nil {
		errs = append(errs, err.Error())
	}
	d.launcher.Kill()
	d.browser, d.page = nil, nil
	if len(errs) > 0 {
		return fmt.Errorf("close browser: %s", strings.Join(errs, "; "))
	}
	return nil
}

var _ Driver = (*RodDriver)(nil)
