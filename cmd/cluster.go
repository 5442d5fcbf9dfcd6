package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/KaramelBytes/crashinsight/internal/cluster"
	"github.com/spf13/cobra"
)

var (
	clusterK   int
	clusterOut outputFlags
)

var clusterCmd = &cobra.Command{
	Use:   "cluster",
	Short: "Group accidents with k-means and describe each group",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		k := clusterK
		if !cmd.Flags().Changed("clusters") {
			k = settings().DefaultClusters
		}
		eng, err := newEngine()
		if err != nil {
			return err
		}
		res, err := eng.Clustering(k)
		if err != nil {
			return err
		}
		return clusterOut.emit(cmd, res, func() string { return clusterText(res) })
	},
}

func clusterText(res *cluster.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[CLUSTERS] %s, k=%d, %d accidents, inertia %.2f\n", res.Algorithm, res.NClusters, res.TotalAccidents, res.Inertia)
	if res.Note != "" {
		fmt.Fprintf(&b, "note: %s\n", res.Note)
	}
	names := make([]string, 0, len(res.Clusters))
	for name := range res.Clusters {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		s := res.Clusters[name]
		fmt.Fprintf(&b, "- %s: %d (%.1f%%) %s, risk %s, avg injuries %.2f, %s, %s\n",
			name, s.Size, s.Percentage, s.ClusterLabel, s.RiskLevel, s.AvgInjuries,
			s.HourDescription, s.PeriodDescription.AsWeekday)
	}
	return b.String()
}

func init() {
	rootCmd.AddCommand(clusterCmd)
	clusterCmd.Flags().IntVarP(&clusterK, "clusters", "k", 5, "number of clusters (default from config)")
	clusterOut.register(clusterCmd)
}
