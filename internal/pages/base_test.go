package pages_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wesleyorama2/shopcheck/internal/browser"
	"github.com/wesleyorama2/shopcheck/internal/browser/browsertest"
	"github.com/wesleyorama2/shopcheck/internal/pages"
)

func session(d browser.Driver) pages.Session {
	return pages.Session{Driver: d, BaseURL: "https://shop.test"}
}

func TestBase_UnknownSelector(t *testing.T) {
	ctx := context.Background()
	f := browsertest.New()
	home := pages.NewHome(session(f))
	unknown := pages.HomeElement("wishlistBadge")

	err := home.Click(ctx, unknown)
	require.Error(t, err)
	assert.True(t, errors.Is(err, pages.ErrUnknownSelector))
	assert.Equal(t, `unknown selector "wishlistBadge" on page home`, err.Error())

	_, err = home.Text(ctx, unknown)
	assert.ErrorIs(t, err, pages.ErrUnknownSelector)
	assert.ErrorIs(t, home.Fill(ctx, unknown, "x"), pages.ErrUnknownSelector)
	assert.ErrorIs(t, home.WaitFor(ctx, unknown, 0), pages.ErrUnknownSelector)
	assert.False(t, home.IsVisible(ctx, unknown))

	assert.Empty(t, f.Calls(), "no driver call may be made for an unknown element")
}

func TestBase_IsVisible(t *testing.T) {
	ctx := context.Background()
	f := browsertest.New()
	f.Show("h1 a", "Your Store")
	f.Set(`h3:has-text("Featured")`, browsertest.Element{Text: "Featured"})
	f.FailOn("WaitVisible", "#footer", errors.New("target closed"))
	home := pages.NewHome(session(f))

	tests := []struct {
		name string
		el   pages.HomeElement
		want bool
	}{
		{"visible", pages.HomeLogo, true},
		{"hidden", pages.HomeFeatured, false},
		{"absent", pages.HomeCartButton, false},
		{"driver error", pages.HomeFooter, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f.ResetCalls()
			assert.Equal(t, tt.want, home.IsVisible(ctx, tt.el))

			calls := f.CallsTo("WaitVisible")
			require.Len(t, calls, 1)
			assert.Equal(t, 5*time.Second, calls[0].Timeout)
		})
	}
}

func TestBase_IsVisibleTiming(t *testing.T) {
	ctx := context.Background()
	f := browsertest.New()
	s := session(f)
	s.Timeouts = pages.Timeouts{Probe: 200 * time.Millisecond}
	home := pages.NewHome(s)

	t.Run("appears late", func(t *testing.T) {
		f.ShowAfter("h1 a", "Your Store", 20*time.Millisecond)
		start := time.Now()
		assert.True(t, home.IsVisible(ctx, pages.HomeLogo))
		assert.Less(t, time.Since(start), 150*time.Millisecond)
	})

	t.Run("appears after the timeout", func(t *testing.T) {
		f.ShowAfter(`button[title="Shopping Cart"]`, "0 item(s)", time.Second)
		start := time.Now()
		assert.False(t, home.IsVisible(ctx, pages.HomeCartButton))
		elapsed := time.Since(start)
		assert.GreaterOrEqual(t, elapsed, 200*time.Millisecond)
		assert.Less(t, elapsed, 600*time.Millisecond)
	})
}

func TestBase_WaitFor(t *testing.T) {
	ctx := context.Background()
	f := browsertest.New()
	f.Show("h1", "Your Store")
	home := pages.NewHome(session(f))

	require.NoError(t, home.WaitFor(ctx, pages.HomeHeading, 0))
	err := home.WaitFor(ctx, pages.HomeMyAccount, 2*time.Second)
	assert.ErrorIs(t, err, browser.ErrTimeout)

	calls := f.CallsTo("WaitVisible")
	require.Len(t, calls, 2)
	assert.Equal(t, 10*time.Second, calls[0].Timeout)
	assert.Equal(t, 2*time.Second, calls[1].Timeout)
}

func TestBase_Navigate(t *testing.T) {
	ctx := context.Background()
	f := browsertest.New()
	home := pages.NewHome(session(f))

	require.NoError(t, home.Navigate(ctx))
	var methods []string
	for _, c := range f.Calls() {
		methods = append(methods, c.Method)
	}
	assert.Equal(t, []string{"Goto", "WaitForLoad"}, methods)
	assert.Equal(t, "https://shop.test/", f.Calls()[0].Arg)

	f.FailOn("Goto", "", browser.ErrClosed)
	assert.ErrorIs(t, home.Navigate(ctx), browser.ErrClosed)
}

func TestBase_Screenshot(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "shots")
	s := session(browsertest.New())
	s.ScreenshotDir = dir
	home := pages.NewHome(s)

	path, err := home.Screenshot(context.Background(), "home-loaded")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "home-loaded.png"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "\x89PNG", string(data[:4]))
}

func TestBase_WaitForText(t *testing.T) {
	ctx := context.Background()
	f := browsertest.New()
	s := session(f)
	s.Timeouts = pages.Timeouts{Wait: 50 * time.Millisecond, Poll: 5 * time.Millisecond}
	home := pages.NewHome(s)

	f.Show("body", "Welcome to Your Store")
	assert.NoError(t, home.WaitForText(ctx, "Your Store", 0))

	err := home.WaitForText(ctx, "Logout", 0)
	assert.ErrorIs(t, err, browser.ErrTimeout)
	assert.Greater(t, len(f.CallsTo("InnerText")), 2, "body should be polled")
}

func TestBase_URLContains(t *testing.T) {
	ctx := context.Background()
	f := browsertest.New()
	f.Navigate(pages.OpenCartURL("https://shop.test/", pages.RouteSuccess))
	success := pages.NewSuccess(session(f))

	ok, err := success.URLContains(ctx, "account/success")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = success.IsURLCorrect(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestOpenCartURL(t *testing.T) {
	tests := []struct {
		base, route, want string
	}{
		{"https://opencart.abstracta.us", pages.RouteHome, "https://opencart.abstracta.us/"},
		{"https://opencart.abstracta.us/", pages.RouteRegister, "https://opencart.abstracta.us/index.php?route=account/register"},
		{"http://localhost:8080//", pages.RouteLogin, "http://localhost:8080/index.php?route=account/login"},
	}
	for _, tt := range tests {
		if got := pages.OpenCartURL(tt.base, tt.route); got != tt.want {
			t.Errorf("OpenCartURL(%q, %q) = %q, want %q", tt.base, tt.route, got, tt.want)
		}
	}
}
