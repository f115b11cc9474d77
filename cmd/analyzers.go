package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/flanksource/quality-unit/analysis"
	"github.com/flanksource/quality-unit/analyzers"
)

var analyzersCmd = &cobra.Command{
	Use:   "analyzers",
	Short: "List the registered analyzer units",
	Run: func(cmd *cobra.Command, args []string) {
		registry := analysis.NewRegistry()
		registry.Register(analyzers.NewComplexityAnalyzer(), analysis.PriorityHigh)
		registry.Register(analyzers.NewDocumentationAnalyzer(), analysis.PriorityLow)

		fmt.Printf("%-16s %-14s %-10s %-8s %s\n", "NAME", "CATEGORY", "PRIORITY", "ENABLED", "LANGUAGES")
		for _, unit := range registry.List() {
			priority, _ := registry.PriorityOf(unit.Name())
			fmt.Printf("%-16s %-14s %-10s %-8t %s\n",
				unit.Name(), unit.Category(), priority, unit.Enabled(),
				strings.Join(unit.SupportedLanguages(), ","))
		}
	},
}

func init() {
	rootCmd.AddCommand(analyzersCmd)
}
