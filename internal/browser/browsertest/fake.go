// Package browsertest provides an in-memory browser.Driver for tests.
//
//	f := browsertest.New()
//	f.Route("https://shop.test/", func(f *browsertest.Fake) {
//		f.Show("#logo", "Your Store")
//	})
//	f.OnClick("#submit", func(f *browsertest.Fake) {
//		f.Navigate("https://shop.test/success")
//	})
//
// The DOM is a map from selector string to Element: selectors are matched
// literally, never parsed. WaitVisible and WaitHidden poll only while a
// change scheduled with After or ShowAfter is pending; otherwise the DOM
// cannot change and they answer at once.
package browsertest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/wesleyorama2/shopcheck/internal/browser"
)

// Element is one fake DOM node.
type Element struct {
	Text string
	// InnerText defaults to Text.
	InnerText string
	Value     string
	Visible   bool
	Checked   bool
	Disabled  bool
	// Type "checkbox" toggles Checked on click, "radio" sets it.
	Type  string
	Attrs map[string]string
	// Options restricts SelectOption; empty accepts anything.
	Options []string
	// N is how many nodes the selector matches; zero means one.
	N int
}

// Call is one recorded driver call.
type Call struct {
	Method   string
	Selector string
	Arg      string
	Timeout  time.Duration
}

func (c Call) String() string {
	var sb strings.Builder
	sb.WriteString(c.Method)
	if c.Selector != "" {
		fmt.Fprintf(&sb, " %s", c.Selector)
	}
	if c.Arg != "" {
		fmt.Fprintf(&sb, " %q", c.Arg)
	}
	if c.Timeout > 0 {
		fmt.Fprintf(&sb, " (%s)", c.Timeout)
	}
	return sb.String()
}

// Hook mutates the fake in response to an action.
type Hook func(f *Fake)

// Fake is an in-memory browser.Driver. It is safe for concurrent use;
// hooks run without the lock held.
type Fake struct {
	mu       sync.Mutex
	elements map[string]*Element
	url      string
	title    string
	calls    []Call
	closed   bool

	routes  map[string]Hook
	onClick map[string]Hook
	onPress map[string]Hook
	onEval  func(js string, args []any) (any, error)
	errs    map[string]error
	pending int
}

// pollInterval is how often waits re-check the DOM while a change is pending.
const pollInterval = 5 * time.Millisecond

// New returns an empty page at about:blank.
func New() *Fake {
	return &Fake{
		elements: make(map[string]*Element),
		url:      "about:blank",
		routes:   make(map[string]Hook),
		onClick:  make(map[string]Hook),
		onPress:  make(map[string]Hook),
		errs:     make(map[string]error),
	}
}

// Set replaces the element at selector.
func (f *Fake) Set(selector string, el Element) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.elements[selector] = &el
}

// Show adds a visible element with text.
func (f *Fake) Show(selector, text string) {
	f.Set(selector, Element{Text: text, Visible: true})
}

// After runs hook once d has elapsed.
func (f *Fake) After(d time.Duration, hook Hook) {
	f.mu.Lock()
	f.pending++
	f.mu.Unlock()

	time.AfterFunc(d, func() {
		hook(f)
		f.mu.Lock()
		f.pending--
		f.mu.Unlock()
	})
}

// ShowAfter adds a visible element with text once d has elapsed.
func (f *Fake) ShowAfter(selector, text string, d time.Duration) {
	f.After(d, func(f *Fake) { f.Show(selector, text) })
}

// Hide keeps the element but makes it invisible.
func (f *Fake) Hide(selector string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if el, ok := f.elements[selector]; ok {
		el.Visible = false
	}
}

// Remove detaches the element.
func (f *Fake) Remove(selector string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.elements, selector)
}

// Element returns a copy of the element at selector.
func (f *Fake) Element(selector string) (Element, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	el, ok := f.elements[selector]
	if !ok {
		return Element{}, false
	}
	return *el, true
}

// SetTitle sets the document title.
func (f *Fake) SetTitle(title string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.title = title
}

// Route registers a hook that builds the DOM whenever Goto or Navigate
// reaches url. The DOM is cleared first.
func (f *Fake) Route(url string, hook Hook) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.routes[url] = hook
}

// OnClick runs hook after every click on selector.
func (f *Fake) OnClick(selector string, hook Hook) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onClick[selector] = hook
}

// OnPress runs hook after every key press on selector.
func (f *Fake) OnPress(selector string, hook Hook) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onPress[selector] = hook
}

// OnEvaluate answers Evaluate calls.
func (f *Fake) OnEvaluate(fn func(js string, args []any) (any, error)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onEval = fn
}

// FailOn makes method fail with err for selector. An empty selector
// matches calls that take none, such as Goto.
func (f *Fake) FailOn(method, selector string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[method+"\x00"+selector] = err
}

// Navigate moves the fake to url without recording a call, as a link or
// form submission would.
func (f *Fake) Navigate(url string) {
	f.mu.Lock()
	f.url = url
	hook, ok := f.routes[url]
	if ok {
		f.elements = make(map[string]*Element)
		f.title = ""
	}
	f.mu.Unlock()

	if ok {
		hook(f)
	}
}

// CurrentURL is URL without recording a call, for use inside hooks.
func (f *Fake) CurrentURL() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.url
}

// Calls returns every recorded call in order.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

// CallsTo returns the recorded calls to method.
func (f *Fake) CallsTo(method string) []Call {
	var out []Call
	for _, c := range f.Calls() {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// Selectors returns the selectors passed to method, in order.
func (f *Fake) Selectors(method string) []string {
	var out []string
	for _, c := range f.CallsTo(method) {
		out = append(out, c.Selector)
	}
	return out
}

// ResetCalls forgets recorded calls.
func (f *Fake) ResetCalls() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

// begin records c and returns the element for its selector. Callers hold mu.
func (f *Fake) begin(ctx context.Context, c Call) (*Element, error) {
	f.calls = append(f.calls, c)
	if f.closed {
		return nil, browser.ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := f.errs[c.Method+"\x00"+c.Selector]; ok {
		return nil, err
	}
	return f.elements[c.Selector], nil
}

// attached is begin for methods that need the element.
func (f *Fake) attached(ctx context.Context, c Call) (*Element, error) {
	el, err := f.begin(ctx, c)
	if err != nil {
		return nil, err
	}
	if el == nil {
		return nil, fmt.Errorf("%s: %w", c.Selector, browser.ErrNotFound)
	}
	return el, nil
}

func (f *Fake) Goto(ctx context.Context, url string) error {
	f.mu.Lock()
	_, err := f.begin(ctx, Call{Method: "Goto", Arg: url})
	f.mu.Unlock()
	if err != nil {
		return err
	}
	f.Navigate(url)
	return nil
}

func (f *Fake) WaitForLoad(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, err := f.begin(ctx, Call{Method: "WaitForLoad"})
	return err
}

func (f *Fake) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	err := f.wait(ctx, Call{Method: "WaitVisible", Selector: selector, Timeout: timeout}, true)
	if errors.Is(err, browser.ErrTimeout) {
		return fmt.Errorf("%s not visible after %s: %w", selector, timeout, browser.ErrTimeout)
	}
	return err
}

func (f *Fake) WaitHidden(ctx context.Context, selector string, timeout time.Duration) error {
	err := f.wait(ctx, Call{Method: "WaitHidden", Selector: selector, Timeout: timeout}, false)
	if errors.Is(err, browser.ErrTimeout) {
		return fmt.Errorf("%s still visible after %s: %w", selector, timeout, browser.ErrTimeout)
	}
	return err
}

// wait records c, then polls until the element's visibility equals visible,
// c.Timeout elapses or ctx is done.
func (f *Fake) wait(ctx context.Context, c Call, visible bool) error {
	f.mu.Lock()
	_, err := f.begin(ctx, c)
	f.mu.Unlock()
	if err != nil {
		return err
	}

	deadline := time.NewTimer(c.Timeout)
	defer deadline.Stop()
	tick := time.NewTicker(pollInterval)
	defer tick.Stop()

	for {
		f.mu.Lock()
		el := f.elements[c.Selector]
		done := (el != nil && el.Visible) == visible
		pending := f.pending > 0 && !f.closed
		f.mu.Unlock()

		switch {
		case done:
			return nil
		case !pending:
			return browser.ErrTimeout
		}

		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return browser.ErrTimeout
			}
			return ctx.Err()
		case <-deadline.C:
			return browser.ErrTimeout
		case <-tick.C:
		}
	}
}

func (f *Fake) Click(ctx context.Context, selector string) error {
	f.mu.Lock()
	el, err := f.attached(ctx, Call{Method: "Click", Selector: selector})
	if err == nil && el.Disabled {
		err = fmt.Errorf("%s is disabled: %w", selector, browser.ErrTimeout)
	}
	if err == nil {
		switch el.Type {
		case "checkbox":
			el.Checked = !el.Checked
		case "radio":
			el.Checked = true
		}
	}
	hook := f.onClick[selector]
	f.mu.Unlock()

	if err != nil {
		return err
	}
	if hook != nil {
		hook(f)
	}
	return nil
}

func (f *Fake) Fill(ctx context.Context, selector, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	el, err := f.attached(ctx, Call{Method: "Fill", Selector: selector, Arg: value})
	if err != nil {
		return err
	}
	el.Value = value
	return nil
}

func (f *Fake) Clear(ctx context.Context, selector string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	el, err := f.attached(ctx, Call{Method: "Clear", Selector: selector})
	if err != nil {
		return err
	}
	el.Value = ""
	return nil
}

func (f *Fake) Press(ctx context.Context, selector, key string) error {
	f.mu.Lock()
	_, err := f.attached(ctx, Call{Method: "Press", Selector: selector, Arg: key})
	hook := f.onPress[selector]
	f.mu.Unlock()

	if err != nil {
		return err
	}
	if hook != nil {
		hook(f)
	}
	return nil
}

func (f *Fake) SetChecked(ctx context.Context, selector string, checked bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	el, err := f.attached(ctx, Call{Method: "SetChecked", Selector: selector, Arg: fmt.Sprint(checked)})
	if err != nil {
		return err
	}
	el.Checked = checked
	return nil
}

func (f *Fake) SelectOption(ctx context.Context, selector, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	el, err := f.attached(ctx, Call{Method: "SelectOption", Selector: selector, Arg: value})
	if err != nil {
		return err
	}
	if len(el.Options) > 0 && !slices.Contains(el.Options, value) {
		return fmt.Errorf("%s: no option %q", selector, value)
	}
	el.Value = value
	return nil
}

func (f *Fake) ScrollIntoView(ctx context.Context, selector string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, err := f.attached(ctx, Call{Method: "ScrollIntoView", Selector: selector})
	return err
}

func (f *Fake) Text(ctx context.Context, selector string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	el, err := f.attached(ctx, Call{Method: "Text", Selector: selector})
	if err != nil {
		return "", err
	}
	return el.Text, nil
}

func (f *Fake) InnerText(ctx context.Context, selector string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	el, err := f.attached(ctx, Call{Method: "InnerText", Selector: selector})
	if err != nil {
		return "", err
	}
	if el.InnerText != "" {
		return el.InnerText, nil
	}
	return el.Text, nil
}

func (f *Fake) Value(ctx context.Context, selector string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	el, err := f.attached(ctx, Call{Method: "Value", Selector: selector})
	if err != nil {
		return "", err
	}
	return el.Value, nil
}

func (f *Fake) Attribute(ctx context.Context, selector, name string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	el, err := f.attached(ctx, Call{Method: "Attribute", Selector: selector, Arg: name})
	if err != nil {
		return "", false, err
	}
	v, ok := el.Attrs[name]
	return v, ok, nil
}

func (f *Fake) IsVisible(ctx context.Context, selector string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	el, err := f.begin(ctx, Call{Method: "IsVisible", Selector: selector})
	if err != nil {
		return false, err
	}
	return el != nil && el.Visible, nil
}

func (f *Fake) IsChecked(ctx context.Context, selector string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	el, err := f.attached(ctx, Call{Method: "IsChecked", Selector: selector})
	if err != nil {
		return false, err
	}
	return el.Checked, nil
}

func (f *Fake) IsEnabled(ctx context.Context, selector string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	el, err := f.attached(ctx, Call{Method: "IsEnabled", Selector: selector})
	if err != nil {
		return false, err
	}
	return !el.Disabled, nil
}

func (f *Fake) Count(ctx context.Context, selector string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	el, err := f.begin(ctx, Call{Method: "Count", Selector: selector})
	if err != nil || el == nil {
		return 0, err
	}
	return max(el.N, 1), nil
}

func (f *Fake) Evaluate(ctx context.Context, js string, args ...any) (any, error) {
	f.mu.Lock()
	_, err := f.begin(ctx, Call{Method: "Evaluate", Arg: js})
	fn := f.onEval
	f.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if fn == nil {
		return nil, nil
	}
	return fn(js, args)
}

func (f *Fake) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	f.mu.Lock()
	_, err := f.begin(ctx, Call{Method: "Screenshot", Arg: fmt.Sprint(fullPage)})
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 1, 1))); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (f *Fake) Title(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.begin(ctx, Call{Method: "Title"}); err != nil {
		return "", err
	}
	return f.title, nil
}

func (f *Fake) URL(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := f.begin(ctx, Call{Method: "URL"}); err != nil {
		return "", err
	}
	return f.url, nil
}

// Close marks the fake closed; later calls fail with browser.ErrClosed.
func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

var _ browser.Driver = (*Fake)(nil)
