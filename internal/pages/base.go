// Package pages holds Page Objects for an OpenCart storefront and a
// data-testid storefront.
//
// A page is a Base over an enum-like element type plus the composite
// actions of that page. Base resolves elements through the page's selector
// map and issues exactly one driver call per primitive, so composite
// actions run in declaration order.
package pages

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/wesleyorama2/shopcheck/internal/browser"
)

// ErrUnknownSelector is returned when a page has no selector for an element.
var ErrUnknownSelector = errors.New("unknown selector")

// Selectors maps a page's elements to lookup expressions. The page layer
// never parses the values.
type Selectors[K comparable] map[K]string

// Timeouts bounds the waiting primitives.
type Timeouts struct {
	// Wait is the default for WaitFor and WaitForText.
	Wait time.Duration
	// Probe bounds IsVisible and short waits such as dropdown links.
	Probe time.Duration
	// Poll is the interval of WaitForText.
	Poll time.Duration
}

// DefaultTimeouts returns 10s waits and 5s probes.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Wait:  10 * time.Second,
		Probe: 5 * time.Second,
		Poll:  100 * time.Millisecond,
	}
}

func (t Timeouts) withDefaults() Timeouts {
	def := DefaultTimeouts()
	if t.Wait <= 0 {
		t.Wait = def.Wait
	}
	if t.Probe <= 0 {
		t.Probe = def.Probe
	}
	if t.Poll <= 0 {
		t.Poll = def.Poll
	}
	return t
}

// Session is what every page of one test case shares.
type Session struct {
	Driver  browser.Driver
	BaseURL string
	// ScreenshotDir defaults to "screenshots".
	ScreenshotDir string
	Timeouts      Timeouts
	Logger        *zap.Logger
}

// Base implements the primitives shared by all pages.
type Base[K comparable] struct {
	driver        browser.Driver
	name          string
	baseURL       string
	selectors     Selectors[K]
	timeouts      Timeouts
	screenshotDir string
	logger        *zap.Logger
}

// NewBase binds a selector map to the session's driver.
func NewBase[K comparable](s Session, name string, selectors Selectors[K]) Base[K] {
	logger := s.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	dir := s.ScreenshotDir
	if dir == "" {
		dir = "screenshots"
	}
	return Base[K]{
		driver:        s.Driver,
		name:          name,
		baseURL:       strings.TrimRight(s.BaseURL, "/"),
		selectors:     selectors,
		timeouts:      s.Timeouts.withDefaults(),
		screenshotDir: dir,
		logger:        logger.With(zap.String("page", name)),
	}
}

// Name is the page name used in logs and errors.
func (b *Base[K]) Name() string {
	return b.name
}

// Selector resolves key without touching the driver.
func (b *Base[K]) Selector(key K) (string, error) {
	sel, ok := b.selectors[key]
	if !ok {
		return "", fmt.Errorf("%w %q on page %s", ErrUnknownSelector, fmt.Sprint(key), b.name)
	}
	return sel, nil
}

func (b *Base[K]) resolve(op string, key K) (string, error) {
	sel, err := b.Selector(key)
	if err != nil {
		return "", err
	}
	b.logger.Debug(op, zap.Any("element", key), zap.String("selector", sel))
	return sel, nil
}

// action logs a composite action.
func (b *Base[K]) action(name string, fields ...zap.Field) {
	b.logger.Info(name, fields...)
}

func (b *Base[K]) fail(op string, key K, err error) error {
	return fmt.Errorf("%s %s.%v: %w", op, b.name, key, err)
}

// Navigate loads url and waits for the network to go idle.
func (b *Base[K]) Navigate(ctx context.Context, url string) error {
	b.logger.Debug("navigate", zap.String("url", url))
	if err := b.driver.Goto(ctx, url); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	if err := b.driver.WaitForLoad(ctx); err != nil {
		return fmt.Errorf("wait for load %s: %w", url, err)
	}
	return nil
}

// WaitFor waits until the element is visible. A zero timeout means the
// session's Wait timeout.
func (b *Base[K]) WaitFor(ctx context.Context, key K, timeout time.Duration) error {
	sel, err := b.resolve("wait for", key)
	if err != nil {
		return err
	}
	if timeout <= 0 {
		timeout = b.timeouts.Wait
	}
	if err := b.driver.WaitVisible(ctx, sel, timeout); err != nil {
		return b.fail("wait for", key, err)
	}
	return nil
}

// WaitHidden waits until the element is detached or hidden.
func (b *Base[K]) WaitHidden(ctx context.Context, key K, timeout time.Duration) error {
	sel, err := b.resolve("wait hidden", key)
	if err != nil {
		return err
	}
	if timeout <= 0 {
		timeout = b.timeouts.Wait
	}
	if err := b.driver.WaitHidden(ctx, sel, timeout); err != nil {
		return b.fail("wait hidden", key, err)
	}
	return nil
}

func (b *Base[K]) Click(ctx context.Context, key K) error {
	sel, err := b.resolve("click", key)
	if err != nil {
		return err
	}
	if err := b.driver.Click(ctx, sel); err != nil {
		return b.fail("click", key, err)
	}
	return nil
}

// Fill replaces the element's value.
func (b *Base[K]) Fill(ctx context.Context, key K, value string) error {
	sel, err := b.resolve("fill", key)
	if err != nil {
		return err
	}
	if err := b.driver.Fill(ctx, sel, value); err != nil {
		return b.fail("fill", key, err)
	}
	return nil
}

func (b *Base[K]) Clear(ctx context.Context, key K) error {
	sel, err := b.resolve("clear", key)
	if err != nil {
		return err
	}
	if err := b.driver.Clear(ctx, sel); err != nil {
		return b.fail("clear", key, err)
	}
	return nil
}

// Text returns the element's textContent.
func (b *Base[K]) Text(ctx context.Context, key K) (string, error) {
	sel, err := b.resolve("text", key)
	if err != nil {
		return "", err
	}
	text, err := b.driver.Text(ctx, sel)
	if err != nil {
		return "", b.fail("text", key, err)
	}
	return text, nil
}

func (b *Base[K]) Value(ctx context.Context, key K) (string, error) {
	sel, err := b.resolve("value", key)
	if err != nil {
		return "", err
	}
	v, err := b.driver.Value(ctx, sel)
	if err != nil {
		return "", b.fail("value", key, err)
	}
	return v, nil
}

// Attribute returns the attribute value and whether it is set.
func (b *Base[K]) Attribute(ctx context.Context, key K, name string) (string, bool, error) {
	sel, err := b.resolve("attribute", key)
	if err != nil {
		return "", false, err
	}
	v, ok, err := b.driver.Attribute(ctx, sel, name)
	if err != nil {
		return "", false, b.fail("attribute", key, err)
	}
	return v, ok, nil
}

// IsVisible waits up to the probe timeout for the element. Every failure,
// including an unknown element, reads as not visible.
func (b *Base[K]) IsVisible(ctx context.Context, key K) bool {
	sel, err := b.resolve("is visible", key)
	if err != nil {
		b.logger.Warn("visibility probe on unknown element", zap.Error(err))
		return false
	}
	if err := b.driver.WaitVisible(ctx, sel, b.timeouts.Probe); err != nil {
		b.logger.Debug("not visible", zap.Any("element", key), zap.Error(err))
		return false
	}
	return true
}

func (b *Base[K]) IsChecked(ctx context.Context, key K) (bool, error) {
	sel, err := b.resolve("is checked", key)
	if err != nil {
		return false, err
	}
	ok, err := b.driver.IsChecked(ctx, sel)
	if err != nil {
		return false, b.fail("is checked", key, err)
	}
	return ok, nil
}

func (b *Base[K]) IsEnabled(ctx context.Context, key K) (bool, error) {
	sel, err := b.resolve("is enabled", key)
	if err != nil {
		return false, err
	}
	ok, err := b.driver.IsEnabled(ctx, sel)
	if err != nil {
		return false, b.fail("is enabled", key, err)
	}
	return ok, nil
}

// Check checks a checkbox or radio if it is not checked already.
func (b *Base[K]) Check(ctx context.Context, key K) error {
	return b.setChecked(ctx, key, true)
}

// Uncheck clears a checkbox if it is checked.
func (b *Base[K]) Uncheck(ctx context.Context, key K) error {
	return b.setChecked(ctx, key, false)
}

func (b *Base[K]) setChecked(ctx context.Context, key K, checked bool) error {
	sel, err := b.resolve("set checked", key)
	if err != nil {
		return err
	}
	if err := b.driver.SetChecked(ctx, sel, checked); err != nil {
		return b.fail("set checked", key, err)
	}
	return nil
}

// SelectOption picks an option of a <select> by value or label.
func (b *Base[K]) SelectOption(ctx context.Context, key K, value string) error {
	sel, err := b.resolve("select option", key)
	if err != nil {
		return err
	}
	if err := b.driver.SelectOption(ctx, sel, value); err != nil {
		return b.fail("select option", key, err)
	}
	return nil
}

// PressKey sends a named key such as "Enter" to the element.
func (b *Base[K]) PressKey(ctx context.Context, key K, name string) error {
	sel, err := b.resolve("press", key)
	if err != nil {
		return err
	}
	if err := b.driver.Press(ctx, sel, name); err != nil {
		return b.fail("press "+name, key, err)
	}
	return nil
}

func (b *Base[K]) ScrollTo(ctx context.Context, key K) error {
	sel, err := b.resolve("scroll to", key)
	if err != nil {
		return err
	}
	if err := b.driver.ScrollIntoView(ctx, sel); err != nil {
		return b.fail("scroll to", key, err)
	}
	return nil
}

// Count returns the number of matching elements, zero when there are none.
func (b *Base[K]) Count(ctx context.Context, key K) (int, error) {
	sel, err := b.resolve("count", key)
	if err != nil {
		return 0, err
	}
	return b.count(ctx, sel)
}

func (b *Base[K]) count(ctx context.Context, sel string) (int, error) {
	n, err := b.driver.Count(ctx, sel)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", sel, err)
	}
	return n, nil
}

// Screenshot writes a full-page PNG to <dir>/<name>.png and returns the path.
func (b *Base[K]) Screenshot(ctx context.Context, name string) (string, error) {
	data, err := b.driver.Screenshot(ctx, true)
	if err != nil {
		return "", fmt.Errorf("screenshot %s: %w", name, err)
	}
	if err := os.MkdirAll(b.screenshotDir, 0o755); err != nil {
		return "", fmt.Errorf("screenshot dir: %w", err)
	}
	path := filepath.Join(b.screenshotDir, name+".png")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write screenshot: %w", err)
	}
	b.logger.Debug("screenshot", zap.String("path", path))
	return path, nil
}

// Evaluate runs js in the page. js may be a function taking args.
func (b *Base[K]) Evaluate(ctx context.Context, js string, args ...any) (any, error) {
	v, err := b.driver.Evaluate(ctx, js, args...)
	if err != nil {
		return nil, fmt.Errorf("evaluate on %s: %w", b.name, err)
	}
	return v, nil
}

// Title is the document title.
func (b *Base[K]) Title(ctx context.Context) (string, error) {
	return b.driver.Title(ctx)
}

func (b *Base[K]) URL(ctx context.Context) (string, error) {
	return b.driver.URL(ctx)
}

// URLContains reports whether the current URL contains s.
func (b *Base[K]) URLContains(ctx context.Context, s string) (bool, error) {
	u, err := b.driver.URL(ctx)
	if err != nil {
		return false, err
	}
	return strings.Contains(u, s), nil
}

// BodyContains reports whether the page's visible text contains text.
func (b *Base[K]) BodyContains(ctx context.Context, text string) (bool, error) {
	body, err := b.driver.InnerText(ctx, "body")
	if err != nil {
		return false, fmt.Errorf("read body: %w", err)
	}
	return strings.Contains(body, text), nil
}

// WaitForText polls the body text until it contains text. A zero timeout
// means the session's Wait timeout.
func (b *Base[K]) WaitForText(ctx context.Context, text string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = b.timeouts.Wait
	}
	deadline := time.Now().Add(timeout)

	ticker := time.NewTicker(b.timeouts.Poll)
	defer ticker.Stop()
	for {
		ok, err := b.BodyContains(ctx, text)
		if err != nil && !errors.Is(err, browser.ErrNotFound) {
			return err
		}
		if ok {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("text %q on %s after %s: %w", text, b.name, timeout, browser.ErrTimeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// texts returns the trimmed, non-empty text of every element matching sel.
func (b *Base[K]) texts(ctx context.Context, sel string) ([]string, error) {
	v, err := b.Evaluate(ctx, `(sel) => Array.from(document.querySelectorAll(sel)).map(e => (e.textContent || "").trim()).filter(t => t)`, sel)
	if err != nil {
		return nil, err
	}
	items, _ := v.([]any)
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, strings.TrimSpace(s))
		}
	}
	return out, nil
}

// url joins an OpenCart route onto the session's base URL.
func (b *Base[K]) url(route string) string {
	return OpenCartURL(b.baseURL, route)
}
