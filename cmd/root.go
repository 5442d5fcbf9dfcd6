package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/KaramelBytes/crashinsight/internal/classify"
	cfgpkg "github.com/KaramelBytes/crashinsight/internal/config"
	"github.com/KaramelBytes/crashinsight/internal/dataset"
	"github.com/KaramelBytes/crashinsight/internal/engine"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile        string
	debug          bool
	flagDataset    string
	flagSampleData bool

	// Loaded configuration
	cfg *cfgpkg.Global
)

var rootCmd = &cobra.Command{
	Use:   "crashinsight",
	Short: "CrashInsight: analytics over traffic accident records",
	Long: `CrashInsight loads a traffic accident dataset once and answers descriptive,
clustering, severity-model and association-rule questions about it, either
from the command line or over a read-only JSON API.`,
	SilenceUsage: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(loadConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.crashinsight/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug output")
	rootCmd.PersistentFlags().StringVar(&flagDataset, "dataset", "", "path to the accident CSV (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&flagSampleData, "sample-data", false, "fall back to synthetic sample data when no dataset file is found")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: commands fall back to built-in defaults
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		cfg = nil
		return
	}
	cfg = c
}

// settings returns the effective configuration with CLI overrides applied.
func settings() *cfgpkg.Global {
	c := cfgpkg.Defaults()
	if cfg != nil {
		cp := *cfg
		c = &cp
	}
	if flagDataset != "" {
		c.DatasetPath = flagDataset
	}
	if flagSampleData {
		c.AllowSampleData = true
	}
	return c
}

func debugf(format string, args ...interface{}) {
	if debug {
		fmt.Fprintf(os.Stderr, "[debug] "+format+"\n", args...)
	}
}

func newEngine() (*engine.Engine, error) {
	c := settings()
	delim, err := c.DelimiterRune()
	if err != nil {
		return nil, err
	}
	return engine.New(engine.Options{
		Dataset: dataset.Options{
			Path:        c.DatasetPath,
			Delimiter:   delim,
			AllowSample: c.AllowSampleData,
		},
		Renderer: classify.DotRenderer{
			Binary:  c.DotBinary,
			Timeout: time.Duration(c.RenderTimeoutSec) * time.Second,
		},
		Logf: debugf,
	}), nil
}
