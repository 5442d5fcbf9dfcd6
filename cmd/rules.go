package cmd

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/crashinsight/internal/rules"
	"github.com/spf13/cobra"
)

var (
	rulesMinSupport float64
	rulesOut        outputFlags
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Mine association rules between conditions and outcomes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		support := rulesMinSupport
		if !cmd.Flags().Changed("min-support") {
			support = settings().DefaultMinSupport
		}
		eng, err := newEngine()
		if err != nil {
			return err
		}
		res, err := eng.AssociationRules(support)
		if err != nil {
			return err
		}
		return rulesOut.emit(cmd, res, func() string { return rulesText(res) })
	},
}

func rulesText(res *rules.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[ASSOCIATION RULES] min support %g, %d frequent itemsets, %d candidate rules\n",
		res.MinSupport, res.FrequentItemsets, res.CandidateRules)
	if len(res.Rules) == 0 {
		fmt.Fprintf(&b, "%s\n", res.Error)
		return b.String()
	}
	for _, r := range res.Rules {
		fmt.Fprintf(&b, "- %s (support %.4f, confidence %.3f, lift %.3f)\n", r, r.Support, r.Confidence, r.Lift)
	}
	return b.String()
}

func init() {
	rootCmd.AddCommand(rulesCmd)
	rulesCmd.Flags().Float64Var(&rulesMinSupport, "min-support", 0.01, "minimum itemset support in (0, 1] (default from config)")
	rulesOut.register(rulesCmd)
}
