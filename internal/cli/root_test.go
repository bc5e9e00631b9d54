package cli

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// execute runs RootCmd with args and fresh flag values, capturing output.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	resetFlags(RootCmd)

	var stdout, stderr bytes.Buffer
	RootCmd.SetOut(&stdout)
	RootCmd.SetErr(&stderr)
	RootCmd.SetArgs(args)
	t.Cleanup(func() {
		RootCmd.SetOut(nil)
		RootCmd.SetErr(nil)
		RootCmd.SetArgs(nil)
	})

	err := RootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func TestRootCommands(t *testing.T) {
	want := map[string]bool{"load": false, "scenarios": false, "journey": false, "version": false}
	for _, c := range RootCmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("RootCmd is missing the %q command", name)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	stdout, _, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version returned error: %v", err)
	}
	if got, want := stdout, "shopcheck "+version+"\n"; got != want {
		t.Errorf("version output = %q, want %q", got, want)
	}
}

func TestUnknownCommand(t *testing.T) {
	_, _, err := execute(t, "perf")
	if err == nil {
		t.Fatal("expected an error for an unknown command")
	}
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		wantDebug bool
		wantInfo  bool
	}{
		{"default is warn", nil, false, false},
		{"verbose means debug", []string{"--verbose"}, true, true},
		{"explicit level wins over verbose", []string{"--verbose", "--log-level", "info"}, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetFlags(RootCmd)
			var stderr bytes.Buffer
			RootCmd.SetErr(&stderr)
			defer RootCmd.SetErr(nil)

			if err := RootCmd.ParseFlags(tt.args); err != nil {
				t.Fatalf("parse flags: %v", err)
			}
			logger, err := newLogger(RootCmd)
			if err != nil {
				t.Fatalf("newLogger() error = %v", err)
			}
			logger.Debug("debug line")
			logger.Info("info line")

			if got := strings.Contains(stderr.String(), "debug line"); got != tt.wantDebug {
				t.Errorf("debug logged = %v, want %v", got, tt.wantDebug)
			}
			if got := strings.Contains(stderr.String(), "info line"); got != tt.wantInfo {
				t.Errorf("info logged = %v, want %v", got, tt.wantInfo)
			}
		})
	}
	resetFlags(RootCmd)
}

func TestNewLogger_BadLevel(t *testing.T) {
	_, _, err := execute(t, "load", "--scenario", "fakestore-load", "--log-level", "loud")
	if err == nil || !strings.Contains(err.Error(), `log level "loud"`) {
		t.Errorf("expected log level error, got %v", err)
	}
}
