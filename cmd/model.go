package cmd

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/crashinsight/internal/classify"
	"github.com/spf13/cobra"
)

var (
	modelShowTree bool
	modelOut      outputFlags
)

var modelCmd = &cobra.Command{
	Use:   "model",
	Short: "Train and compare the severity classifiers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}
		rep, err := eng.SeverityModel(cmd.Context())
		if err != nil {
			return err
		}
		return modelOut.emit(cmd, rep, func() string { return modelText(rep, modelShowTree) })
	},
}

func modelText(rep *classify.Report, showTree bool) string {
	var b strings.Builder
	c := rep.Comparison
	fmt.Fprintf(&b, "[SEVERITY MODEL] train %d, test %d, classes %s\n", rep.TrainSize, rep.TestSize, strings.Join(rep.ClassLabels, ", "))
	fmt.Fprintf(&b, "- %s accuracy: %.4f\n", classify.RandomForestName, c.RFAccuracy)
	fmt.Fprintf(&b, "- %s accuracy: %.4f\n", classify.DecisionTreeName, c.DTAccuracy)
	fmt.Fprintf(&b, "- better: %s (by %.4f)\n", c.BetterModel, c.AccuracyDifference)
	b.WriteString("\n[TOP FEATURES]\n")
	for _, f := range rep.Structures.ForestInfo.TopFeatures {
		fmt.Fprintf(&b, "- %s: %.4f\n", f.Feature, f.Importance)
	}
	if showTree {
		b.WriteString("\n[DECISION TREE]\n")
		if rules := rep.Structures.Rules; rules.Valid() {
			b.WriteString(rules.Value)
		} else {
			fmt.Fprintf(&b, "unavailable: %s\n", rules.Err)
		}
	}
	if g := rep.Structures.Graphviz; !g.Valid() {
		fmt.Fprintf(&b, "\nnote: tree diagram unavailable: %s\n", g.Err)
	}
	return b.String()
}

func init() {
	rootCmd.AddCommand(modelCmd)
	modelCmd.Flags().BoolVar(&modelShowTree, "tree", false, "include the decision tree rules in text output")
	modelOut.register(modelCmd)
}
