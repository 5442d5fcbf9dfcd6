package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/KaramelBytes/crashinsight/internal/dataset"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// runCmd executes the root command with args and returns what it printed.
func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	// Reset sticky flags that persist Changed state across invocations
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// isolate points HOME and the working directory at fresh temp dirs so no
// real config or dataset leaks into the test.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv(dataset.EnvDatasetPath, "")
	chdirTemp(t)
	return home
}

func writeAccidents(t *testing.T, dir string, n int) string {
	t.Helper()
	weather := []string{"CLEAR", "RAIN", "SNOW"}
	var b strings.Builder
	for i := 0; i < n; i++ {
		cells := make([]string, len(dataset.Schema))
		for j, f := range dataset.Schema {
			switch f {
			case dataset.WeatherCondition:
				cells[j] = weather[i%len(weather)]
			case dataset.FirstCrashType:
				cells[j] = []string{"REAR END", "ANGLE"}[i%2]
			case dataset.CrashHour:
				cells[j] = fmt.Sprint(i % 24)
			case dataset.CrashDayOfWeek:
				cells[j] = fmt.Sprint(1 + i%7)
			case dataset.CrashMonth:
				cells[j] = fmt.Sprint(1 + i%12)
			case dataset.NumUnits:
				cells[j] = fmt.Sprint(1 + i%3)
			case dataset.InjuriesTotal, dataset.InjuriesNonIncapacitating:
				cells[j] = fmt.Sprint(i % 2)
			case dataset.InjuriesFatal, dataset.InjuriesIncapacitating:
				cells[j] = "0"
			default:
				cells[j] = "NONE"
			}
		}
		b.WriteString(strings.Join(cells, ",") + "\n")
	}
	path := filepath.Join(dir, "accidents.csv")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("write dataset: %v", err)
	}
	return path
}

func TestCLI_AnalyzeSections(t *testing.T) {
	home := isolate(t)
	data := writeAccidents(t, home, 90)

	out, err := runCmd(t, "analyze", "--dataset", data, "--section", "stats", "--json")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	var stats map[string]any
	if err := json.Unmarshal([]byte(out), &stats); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if stats["total_accidents"] != float64(90) {
		t.Fatalf("unexpected stats %v", stats)
	}

	out, err = runCmd(t, "analyze", "--dataset", data, "--section", "time")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if !strings.Contains(out, "[TIME PATTERNS]") || strings.Contains(out, "[LOCATION]") {
		t.Fatalf("unexpected text output:\n%s", out)
	}

	if _, err := runCmd(t, "analyze", "--dataset", data, "--section", "weather"); err == nil {
		t.Fatalf("expected error for unknown section")
	}
}

func TestCLI_MissingDataset(t *testing.T) {
	isolate(t)
	_, err := runCmd(t, "analyze", "--dataset", "nope.csv")
	if err == nil || !strings.Contains(err.Error(), "dataset file not found") {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestCLI_ClusterAndRules(t *testing.T) {
	home := isolate(t)
	data := writeAccidents(t, home, 120)

	out, err := runCmd(t, "cluster", "--dataset", data, "--clusters", "3")
	if err != nil {
		t.Fatalf("cluster: %v", err)
	}
	if !strings.Contains(out, "k=3") || !strings.Contains(out, "cluster_2") {
		t.Fatalf("unexpected cluster output:\n%s", out)
	}
	if _, err := runCmd(t, "cluster", "--dataset", data, "--clusters", "1"); err == nil {
		t.Fatalf("expected error for one cluster")
	}

	target := filepath.Join(home, "rules.json")
	out, err = runCmd(t, "rules", "--dataset", data, "--min-support", "0.05", "--json", "-o", target)
	if err != nil {
		t.Fatalf("rules: %v", err)
	}
	if !strings.Contains(out, "✓ Wrote result to") {
		t.Fatalf("unexpected rules output %q", out)
	}
	b, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read rules: %v", err)
	}
	var res map[string]any
	if err := json.Unmarshal(b, &res); err != nil {
		t.Fatalf("decode rules: %v", err)
	}
	if _, ok := res["rules"]; !ok {
		t.Fatalf("rules key missing: %s", b)
	}
}

func TestCLI_ConfigSetShow(t *testing.T) {
	home := isolate(t)
	cfgPath := filepath.Join(home, "cfg.yaml")

	if _, err := runCmd(t, "--config", cfgPath, "config", "set", "default_clusters", "3"); err != nil {
		t.Fatalf("config set: %v", err)
	}
	out, err := runCmd(t, "--config", cfgPath, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if !strings.Contains(out, "default_clusters: 3") {
		t.Fatalf("unexpected config show:\n%s", out)
	}
	if _, err := runCmd(t, "--config", cfgPath, "config", "set", "default_clusters", "1"); err == nil {
		t.Fatalf("expected validation error")
	}
	if _, err := runCmd(t, "--config", cfgPath, "config", "set", "nope", "1"); err == nil {
		t.Fatalf("expected unknown key error")
	}
}

func TestCLI_ModelOnSampleData(t *testing.T) {
	isolate(t)
	out, err := runCmd(t, "model", "--sample-data", "--json")
	if err != nil {
		t.Fatalf("model: %v", err)
	}
	var rep map[string]json.RawMessage
	if err := json.Unmarshal([]byte(out), &rep); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, key := range []string{"random_forest", "decision_tree", "model_comparison", "model_structures"} {
		if _, ok := rep[key]; !ok {
			t.Fatalf("missing %q", key)
		}
	}
}

// chdirTemp changes into a fresh temp dir and restores the previous working
// directory on cleanup (equivalent of testing.T.Chdir for Go < 1.24).
func chdirTemp(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
