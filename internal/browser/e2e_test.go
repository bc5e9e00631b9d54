package browser_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/wesleyorama2/shopcheck/internal/browser"
)

const e2ePage = `<!doctype html>
<html><head><title>Shop</title></head>
<body>
  <h1 id="logo">Your Store</h1>
  <input id="email" value="">
  <input id="agree" type="checkbox">
  <select id="country"><option value="US">United States</option><option value="AR">Argentina</option></select>
  <ul><li><a href="#">Desktops</a></li><li><a href="#">Laptops</a></li></ul>
  <div id="hidden" style="display:none">secret</div>
</body></html>`

// TestDrivers_E2E exercises both engines against a local page. It needs a
// browser and runs only with SHOPCHECK_E2E=1.
func TestDrivers_E2E(t *testing.T) {
	if os.Getenv("SHOPCHECK_E2E") != "1" {
		t.Skip("set SHOPCHECK_E2E=1 to run browser tests")
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, e2ePage)
	}))
	defer srv.Close()

	for _, engine := range []string{browser.EngineRod, browser.EnginePlaywright} {
		t.Run(engine, func(t *testing.T) {
			cfg, err := browser.LoadConfig()
			if err != nil {
				t.Fatal(err)
			}
			cfg.Engine = engine

			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()

			d, err := browser.Launch(ctx, cfg, nil)
			if err != nil {
				t.Skipf("cannot launch %s: %v", engine, err)
			}
			defer d.Close()

			if err := d.Goto(ctx, srv.URL); err != nil {
				t.Fatalf("Goto() error = %v", err)
			}
			if title, _ := d.Title(ctx); title != "Shop" {
				t.Errorf("Title() = %q, want Shop", title)
			}
			if err := d.WaitVisible(ctx, "#logo", 5*time.Second); err != nil {
				t.Errorf("WaitVisible() error = %v", err)
			}
			if err := d.Fill(ctx, "#email", "a@b.co"); err != nil {
				t.Fatal(err)
			}
			if v, _ := d.Value(ctx, "#email"); v != "a@b.co" {
				t.Errorf("Value() = %q", v)
			}
			if err := d.SetChecked(ctx, "#agree", true); err != nil {
				t.Fatal(err)
			}
			if ok, _ := d.IsChecked(ctx, "#agree"); !ok {
				t.Error("IsChecked() = false after SetChecked(true)")
			}
			if err := d.SelectOption(ctx, "#country", "AR"); err != nil {
				t.Errorf("SelectOption() error = %v", err)
			}
			if n, _ := d.Count(ctx, `a:has-text("laptops")`); n != 1 {
				t.Errorf("Count(has-text) = %d, want 1", n)
			}
			if ok, err := d.IsVisible(ctx, "#hidden"); ok || err != nil {
				t.Errorf("IsVisible(hidden) = %v, %v", ok, err)
			}
			err = d.WaitVisible(ctx, "#hidden", 500*time.Millisecond)
			if !errors.Is(err, browser.ErrTimeout) {
				t.Errorf("WaitVisible(hidden) error = %v, want ErrTimeout", err)
			}

			// An element attached late that stays hidden must not get a
			// second timeout for the visibility wait.
			js := `() => setTimeout(() => {
				const d = document.createElement("div");
				d.id = "late"; d.style.display = "none";
				document.body.appendChild(d);
			}, 300)`
			if _, err := d.Evaluate(ctx, js); err != nil {
				t.Fatalf("Evaluate() error = %v", err)
			}
			start := time.Now()
			err = d.WaitVisible(ctx, "#late", 600*time.Millisecond)
			if !errors.Is(err, browser.ErrTimeout) {
				t.Errorf("WaitVisible(late hidden) error = %v, want ErrTimeout", err)
			}
			if elapsed := time.Since(start); elapsed > 900*time.Millisecond {
				t.Errorf("WaitVisible(late hidden) took %v, want about 600ms", elapsed)
			}
			if png, err := d.Screenshot(ctx, true); err != nil || len(png) == 0 {
				t.Errorf("Screenshot() = %d bytes, %v", len(png), err)
			}
		})
	}
}
