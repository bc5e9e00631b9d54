// Package browser is the capability layer the page objects drive. A Driver
// wraps one live page of a real browser (go-rod or playwright-go) or, in
// tests, the in-memory browsertest.Fake.
package browser

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrTimeout is returned when a wait or an element lookup runs out of
	// time.
	ErrTimeout = errors.New("browser: timeout")

	// ErrNotFound is returned when an instant lookup finds no element.
	ErrNotFound = errors.New("browser: element not found")

	// ErrClosed is returned by every call after Close.
	ErrClosed = errors.New("browser: driver closed")
)

// Driver is one browser page. Selectors are CSS, optionally ending in a
// :has-text("...") filter. Element methods wait for the element to be
// attached for up to the driver's action timeout; IsVisible, Count and
// the other probes answer immediately.
type Driver interface {
	// Goto navigates and waits for the load event.
	Goto(ctx context.Context, url string) error
	// WaitForLoad waits until the network is idle.
	WaitForLoad(ctx context.Context) error

	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
	WaitHidden(ctx context.Context, selector string, timeout time.Duration) error

	Click(ctx context.Context, selector string) error
	// Fill replaces the element's value with value.
	Fill(ctx context.Context, selector, value string) error
	Clear(ctx context.Context, selector string) error
	// Press sends a named key such as "Enter" or "Tab" to the element.
	Press(ctx context.Context, selector, key string) error
	SetChecked(ctx context.Context, selector string, checked bool) error
	SelectOption(ctx context.Context, selector, value string) error
	ScrollIntoView(ctx context.Context, selector string) error

	// Text returns textContent, InnerText the rendered text.
	Text(ctx context.Context, selector string) (string, error)
	InnerText(ctx context.Context, selector string) (string, error)
	Value(ctx context.Context, selector string) (string, error)
	// Attribute reports the attribute's value and whether it is present.
	Attribute(ctx context.Context, selector, name string) (string, bool, error)

	IsVisible(ctx context.Context, selector string) (bool, error)
	IsChecked(ctx context.Context, selector string) (bool, error)
	IsEnabled(ctx context.Context, selector string) (bool, error)
	Count(ctx context.Context, selector string) (int, error)

	// Evaluate runs a JavaScript function expression with args and
	// returns its JSON-decoded result.
	Evaluate(ctx context.Context, js string, args ...any) (any, error)
	// Screenshot returns a PNG of the viewport or the whole page.
	Screenshot(ctx context.Context, fullPage bool) ([]byte, error)

	Title(ctx context.Context) (string, error)
	URL(ctx context.Context) (string, error)

	Close() error
}
