package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.ListenAddr != ":5000" || c.DefaultClusters != 5 || c.DefaultMinSupport != 0.01 {
		t.Fatalf("unexpected defaults %+v", c)
	}
	if c.DotBinary != "dot" || c.RenderTimeoutSec != 10 || c.AllowSampleData {
		t.Fatalf("unexpected defaults %+v", c)
	}
}

func TestSaveThenLoadWithEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	in := &Global{
		DatasetPath:       "/data/traffic_accidents.csv",
		ListenAddr:        ":8080",
		DefaultClusters:   4,
		DefaultMinSupport: 0.05,
		DotBinary:         "dot",
	}
	if err := Save(in, path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	t.Setenv("CRASHINSIGHT_LISTEN_ADDR", ":9090")

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.DatasetPath != in.DatasetPath || c.DefaultClusters != 4 || c.DefaultMinSupport != 0.05 {
		t.Fatalf("file values not loaded: %+v", c)
	}
	if c.ListenAddr != ":9090" {
		t.Fatalf("env should override file, got %q", c.ListenAddr)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"clusters", "default_clusters: 1\n"},
		{"support", "default_min_support: 2\n"},
		{"yaml", "listen_addr: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.body), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestDelimiterRune(t *testing.T) {
	tests := []struct {
		in      string
		want    rune
		wantErr bool
	}{
		{"", 0, false},
		{";", ';', false},
		{`\t`, '\t', false},
		{"tab", '\t', false},
		{"ab", 0, true},
	}
	for _, tt := range tests {
		got, err := (&Global{Delimiter: tt.in}).DelimiterRune()
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Fatalf("%q: got %q, %v", tt.in, got, err)
		}
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("missing file should fall back to defaults: %v", err)
	}
	if c.ListenAddr != ":5000" {
		t.Fatalf("unexpected listen addr %q", c.ListenAddr)
	}
}
