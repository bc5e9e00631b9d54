package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wesleyorama2/shopcheck/internal/logging"
)

var version = "0.1.0"

// ErrFailed is returned when a run completed but did not pass: a load
// threshold was breached or a journey ended unexpectedly.
var ErrFailed = errors.New("run failed")

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:     "shopcheck",
	Short:   "Browser journeys and load scenarios for web shops",
	Version: version,
	Long: `shopcheck drives an OpenCart storefront through typed page objects to
check registration, login and password reset, and runs declarative load
scenarios with ramping virtual users, checks and thresholds against a REST API.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Run: func(cmd *cobra.Command, args []string) {
		// If no subcommand is provided, print help
		cmd.Help()
	},
}

// Execute adds all child commands to the root command and runs it.
// This is called by main.main(). It prints the error, if any, and returns it
// so main can pick the exit code.
func Execute() error {
	err := RootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return err
}

// newLogger builds the logger selected by the persistent logging flags.
// Logs go to the command's stderr so they never mix with reports.
func newLogger(cmd *cobra.Command) (*zap.Logger, error) {
	verbose, _ := cmd.Flags().GetBool("verbose")
	level, _ := cmd.Flags().GetString("log-level")
	jsonLogs, _ := cmd.Flags().GetBool("log-json")

	if level == "" && verbose {
		level = "debug"
	}
	return logging.New(logging.Options{
		Level:  level,
		JSON:   jsonLogs,
		Output: cmd.ErrOrStderr(),
	})
}

func init() {
	RootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output and debug logs")
	RootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error (default warn)")
	RootCmd.PersistentFlags().Bool("log-json", false, "Write logs as JSON")
	RootCmd.PersistentFlags().Bool("no-color", false, "Disable colored output")

	// Add subcommands to root command
	RootCmd.AddCommand(loadCmd)
	RootCmd.AddCommand(scenariosCmd)
	RootCmd.AddCommand(journeyCmd)
	RootCmd.AddCommand(versionCmd)
}
