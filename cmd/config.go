package cmd

import (
	"fmt"
	"strconv"
	"strings"

	cfgpkg "github.com/KaramelBytes/crashinsight/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set CrashInsight configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := settings()
		out := cmd.OutOrStdout()
		if cfg == nil {
			fmt.Fprintln(out, "(no config loaded, showing defaults)")
		}
		dataset := c.DatasetPath
		if dataset == "" {
			dataset = "(search default locations)"
		}
		fmt.Fprintf(out, "dataset_path: %s\n", dataset)
		if c.Delimiter != "" {
			fmt.Fprintf(out, "delimiter: %q\n", c.Delimiter)
		}
		fmt.Fprintf(out, "allow_sample_data: %t\n", c.AllowSampleData)
		fmt.Fprintf(out, "listen_addr: %s\n", c.ListenAddr)
		fmt.Fprintf(out, "cors_origins: %s\n", strings.Join(c.CORSOrigins, ","))
		fmt.Fprintf(out, "default_clusters: %d\n", c.DefaultClusters)
		fmt.Fprintf(out, "default_min_support: %g\n", c.DefaultMinSupport)
		fmt.Fprintf(out, "render_timeout_sec: %d\n", c.RenderTimeoutSec)
		fmt.Fprintf(out, "dot_binary: %s\n", c.DotBinary)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		if cfg == nil {
			c, err := cfgpkg.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = c
		}
		next := *cfg
		switch key {
		case "dataset_path":
			next.DatasetPath = val
		case "delimiter":
			next.Delimiter = val
		case "allow_sample_data":
			b, err := strconv.ParseBool(val)
			if err != nil {
				return fmt.Errorf("invalid bool for allow_sample_data: %v", val)
			}
			next.AllowSampleData = b
		case "listen_addr":
			next.ListenAddr = val
		case "cors_origins":
			var origins []string
			for _, o := range strings.Split(val, ",") {
				if o = strings.TrimSpace(o); o != "" {
					origins = append(origins, o)
				}
			}
			next.CORSOrigins = origins
		case "default_clusters":
			i, err := strconv.Atoi(val)
			if err != nil {
				return fmt.Errorf("invalid int for default_clusters: %w", err)
			}
			next.DefaultClusters = i
		case "default_min_support":
			f, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return fmt.Errorf("invalid float for default_min_support: %w", err)
			}
			next.DefaultMinSupport = f
		case "render_timeout_sec":
			i, err := strconv.Atoi(val)
			if err != nil {
				return fmt.Errorf("invalid int for render_timeout_sec: %w", err)
			}
			next.RenderTimeoutSec = i
		case "dot_binary":
			next.DotBinary = val
		default:
			return fmt.Errorf("unknown key: %s", key)
		}
		if err := next.Validate(); err != nil {
			return err
		}
		if err := cfgpkg.Save(&next, cfgFile); err != nil {
			return err
		}
		cfg = &next
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
