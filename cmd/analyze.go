package cmd

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/crashinsight/internal/analysis"
	"github.com/spf13/cobra"
)

var (
	anaSection string
	anaOut     outputFlags
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Descriptive statistics: totals, time patterns, severity and location",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		section := strings.ToLower(strings.TrimSpace(anaSection))
		switch section {
		case "all", analysis.SectionStats, analysis.SectionTime, analysis.SectionSeverity, analysis.SectionLocation:
		default:
			return fmt.Errorf("unsupported --section: %s (use stats|time|severity|location|all)", anaSection)
		}
		eng, err := newEngine()
		if err != nil {
			return err
		}
		rep, err := eng.Report()
		if err != nil {
			return err
		}

		var v any
		switch section {
		case analysis.SectionStats:
			v = rep.Stats
		case analysis.SectionTime:
			v = rep.Time
		case analysis.SectionSeverity:
			v = rep.Severity
		case analysis.SectionLocation:
			v = rep.Location
		default:
			v = map[string]any{
				"basic_stats":       rep.Stats,
				"time_analysis":     rep.Time,
				"severity_analysis": rep.Severity,
				"location_analysis": rep.Location,
			}
		}
		return anaOut.emit(cmd, v, func() string {
			if section == "all" {
				return rep.Markdown()
			}
			return rep.Render(section)
		})
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVarP(&anaSection, "section", "s", "all", "section to print: stats|time|severity|location|all")
	anaOut.register(analyzeCmd)
}
