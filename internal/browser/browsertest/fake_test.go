package browsertest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/wesleyorama2/shopcheck/internal/browser"
)

func TestFake_Elements(t *testing.T) {
	ctx := context.Background()
	f := New()
	f.Show("#logo", "Your Store")
	f.Set("#input-email", Element{Visible: true})
	f.Set("#agree", Element{Visible: true, Type: "checkbox"})
	f.Set("#hidden", Element{Text: "secret"})

	if err := f.Fill(ctx, "#input-email", "a@b.co"); err != nil {
		t.Fatalf("Fill() error = %v", err)
	}
	if v, _ := f.Value(ctx, "#input-email"); v != "a@b.co" {
		t.Errorf("Value() = %q, want a@b.co", v)
	}
	if err := f.Clear(ctx, "#input-email"); err != nil {
		t.Fatal(err)
	}
	if v, _ := f.Value(ctx, "#input-email"); v != "" {
		t.Errorf("Value() after Clear = %q", v)
	}

	if err := f.Click(ctx, "#agree"); err != nil {
		t.Fatal(err)
	}
	if ok, _ := f.IsChecked(ctx, "#agree"); !ok {
		t.Error("checkbox not checked after click")
	}

	if ok, err := f.IsVisible(ctx, "#missing"); ok || err != nil {
		t.Errorf("IsVisible(missing) = %v, %v, want false, nil", ok, err)
	}
	if ok, _ := f.IsVisible(ctx, "#hidden"); ok {
		t.Error("IsVisible(hidden) = true")
	}
	if n, _ := f.Count(ctx, "#missing"); n != 0 {
		t.Errorf("Count(missing) = %d", n)
	}
	if n, _ := f.Count(ctx, "#logo"); n != 1 {
		t.Errorf("Count(logo) = %d", n)
	}

	if _, err := f.Text(ctx, "#missing"); !errors.Is(err, browser.ErrNotFound) {
		t.Errorf("Text(missing) error = %v, want ErrNotFound", err)
	}
	if err := f.WaitVisible(ctx, "#hidden", 5*time.Second); !errors.Is(err, browser.ErrTimeout) {
		t.Errorf("WaitVisible(hidden) error = %v, want ErrTimeout", err)
	}
	if err := f.WaitHidden(ctx, "#hidden", time.Second); err != nil {
		t.Errorf("WaitHidden(hidden) error = %v", err)
	}
}

func TestFake_RoutesAndHooks(t *testing.T) {
	ctx := context.Background()
	f := New()
	f.Route("https://shop.test/", func(f *Fake) {
		f.SetTitle("Your Store")
		f.Show("#submit", "Continue")
	})
	f.Route("https://shop.test/success", func(f *Fake) {
		f.Show("h1", "Your Account Has Been Created!")
	})
	f.OnClick("#submit", func(f *Fake) { f.Navigate("https://shop.test/success") })

	if err := f.Goto(ctx, "https://shop.test/"); err != nil {
		t.Fatal(err)
	}
	if title, _ := f.Title(ctx); title != "Your Store" {
		t.Errorf("Title() = %q", title)
	}
	if err := f.Click(ctx, "#submit"); err != nil {
		t.Fatal(err)
	}
	if u, _ := f.URL(ctx); u != "https://shop.test/success" {
		t.Errorf("URL() = %q", u)
	}
	if _, ok := f.Element("#submit"); ok {
		t.Error("old page's element survived navigation")
	}
	if text, _ := f.Text(ctx, "h1"); text != "Your Account Has Been Created!" {
		t.Errorf("Text(h1) = %q", text)
	}

	want := []string{"Goto", "Title", "Click", "URL", "Text"}
	calls := f.Calls()
	if len(calls) != len(want) {
		t.Fatalf("Calls() = %v", calls)
	}
	for i, c := range calls {
		if c.Method != want[i] {
			t.Errorf("call %d = %s, want %s", i, c.Method, want[i])
		}
	}
}

func TestFake_Failures(t *testing.T) {
	ctx := context.Background()
	f := New()
	f.Set("#continue", Element{Visible: true, Disabled: true})
	f.Set("#country", Element{Visible: true, Options: []string{"US", "AR"}})
	boom := errors.New("boom")
	f.FailOn("Goto", "", boom)

	if err := f.Click(ctx, "#continue"); !errors.Is(err, browser.ErrTimeout) {
		t.Errorf("Click(disabled) error = %v, want ErrTimeout", err)
	}
	if err := f.SelectOption(ctx, "#country", "BR"); err == nil {
		t.Error("SelectOption(unknown) error = nil")
	}
	if err := f.SelectOption(ctx, "#country", "AR"); err != nil {
		t.Errorf("SelectOption(AR) error = %v", err)
	}
	if err := f.Goto(ctx, "https://shop.test/"); !errors.Is(err, boom) {
		t.Errorf("Goto() error = %v, want boom", err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := f.IsVisible(cancelled, "#continue"); !errors.Is(err, context.Canceled) {
		t.Errorf("IsVisible(cancelled ctx) error = %v", err)
	}

	f.Close()
	if _, err := f.Title(ctx); !errors.Is(err, browser.ErrClosed) {
		t.Errorf("Title() after Close error = %v, want ErrClosed", err)
	}
}

func TestFake_Screenshot(t *testing.T) {
	data, err := New().Screenshot(context.Background(), true)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) < 8 || string(data[1:4]) != "PNG" {
		t.Errorf("Screenshot() is not a PNG: % x", data[:min(8, len(data))])
	}
}

func TestCall_String(t *testing.T) {
	tests := []struct {
		call Call
		want string
	}{
		{Call{Method: "Goto", Arg: "https://shop.test/"}, `Goto "https://shop.test/"`},
		{Call{Method: "WaitVisible", Selector: "#logo", Timeout: 5 * time.Second}, "WaitVisible #logo (5s)"},
		{Call{Method: "Click", Selector: "#submit"}, "Click #submit"},
	}
	for _, tt := range tests {
		if got := tt.call.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestFake_ShowAfter(t *testing.T) {
	ctx := context.Background()
	f := New()
	f.ShowAfter("#late", "Late", 20*time.Millisecond)

	start := time.Now()
	if err := f.WaitVisible(ctx, "#late", time.Second); err != nil {
		t.Fatalf("WaitVisible() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed >= 500*time.Millisecond {
		t.Errorf("WaitVisible() took %v, want about 20ms", elapsed)
	}

	f.After(time.Second, func(f *Fake) { f.Hide("#late") })
	start = time.Now()
	err := f.WaitHidden(ctx, "#late", 50*time.Millisecond)
	if !errors.Is(err, browser.ErrTimeout) {
		t.Errorf("WaitHidden() error = %v, want ErrTimeout", err)
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond || elapsed >= 500*time.Millisecond {
		t.Errorf("WaitHidden() took %v, want about 50ms", elapsed)
	}

	if got := len(f.CallsTo("WaitVisible")); got != 1 {
		t.Errorf("WaitVisible recorded %d calls, want 1", got)
	}
}

func TestFake_WaitCanceled(t *testing.T) {
	f := New()
	f.ShowAfter("#late", "Late", time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)
	if err := f.WaitVisible(ctx, "#late", 5*time.Second); !errors.Is(err, context.Canceled) {
		t.Errorf("WaitVisible() error = %v, want context.Canceled", err)
	}
}
