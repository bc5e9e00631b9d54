package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wesleyorama2/shopcheck/internal/load/config"
	"github.com/wesleyorama2/shopcheck/internal/output"
)

var scenariosCmd = &cobra.Command{
	Use:   "scenarios",
	Short: "List the built-in load scenarios",
	Long: `List the load scenarios embedded in shopcheck. Run one with
"shopcheck load --scenario <name>".`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		noColor, _ := cmd.Flags().GetBool("no-color")
		entries, err := config.Catalog()
		if err != nil {
			return fmt.Errorf("read built-in scenarios: %w", err)
		}

		s := output.Scheme(noColor)
		w := cmd.OutOrStdout()
		for _, e := range entries {
			fmt.Fprintf(w, "%s", s.Name.Sprint(e.Name))
			if e.Duration != "" {
				fmt.Fprintf(w, " %s", s.Detail.Sprintf("(%s)", e.Duration))
			}
			fmt.Fprintln(w)
			if e.Description != "" {
				fmt.Fprintf(w, "  %s\n", e.Description)
			}
			fmt.Fprintf(w, "  Scenarios: %s\n\n", strings.Join(e.Scenarios, ", "))
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the shopcheck version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "shopcheck %s\n", version)
	},
}
