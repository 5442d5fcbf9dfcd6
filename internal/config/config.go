package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix namespaces environment overrides, e.g. CRASHINSIGHT_LISTEN_ADDR.
const EnvPrefix = "CRASHINSIGHT"

// Global configuration structure.
type Global struct {
	// Dataset
	DatasetPath     string `mapstructure:"dataset_path" yaml:"dataset_path"`
	Delimiter       string `mapstructure:"delimiter" yaml:"delimiter"`
	AllowSampleData bool   `mapstructure:"allow_sample_data" yaml:"allow_sample_data"`

	// HTTP
	ListenAddr  string   `mapstructure:"listen_addr" yaml:"listen_addr"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`

	// Analysis defaults
	DefaultClusters   int     `mapstructure:"default_clusters" yaml:"default_clusters"`
	DefaultMinSupport float64 `mapstructure:"default_min_support" yaml:"default_min_support"`

	// Tree diagram rendering
	RenderTimeoutSec int    `mapstructure:"render_timeout_sec" yaml:"render_timeout_sec"`
	DotBinary        string `mapstructure:"dot_binary" yaml:"dot_binary"`
}

// Defaults returns the built-in configuration.
func Defaults() *Global {
	return &Global{
		ListenAddr:        ":5000",
		CORSOrigins:       []string{"*"},
		DefaultClusters:   5,
		DefaultMinSupport: 0.01,
		RenderTimeoutSec:  10,
		DotBinary:         "dot",
	}
}

// DelimiterRune returns the configured delimiter, or 0 to sniff it from the
// file extension.
func (c *Global) DelimiterRune() (rune, error) {
	switch c.Delimiter {
	case "":
		return 0, nil
	case `\t`, "tab":
		return '\t', nil
	}
	r := []rune(c.Delimiter)
	if len(r) != 1 {
		return 0, fmt.Errorf("delimiter must be a single character, got %q", c.Delimiter)
	}
	return r[0], nil
}

func defaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".crashinsight"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.crashinsight/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := defaultDir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env > config file > defaults. Flags are applied by the caller.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	d := Defaults()
	v.SetDefault("dataset_path", d.DatasetPath)
	v.SetDefault("delimiter", d.Delimiter)
	v.SetDefault("allow_sample_data", d.AllowSampleData)
	v.SetDefault("listen_addr", d.ListenAddr)
	v.SetDefault("cors_origins", d.CORSOrigins)
	v.SetDefault("default_clusters", d.DefaultClusters)
	v.SetDefault("default_min_support", d.DefaultMinSupport)
	v.SetDefault("render_timeout_sec", d.RenderTimeoutSec)
	v.SetDefault("dot_binary", d.DotBinary)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := defaultDir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		// A missing file is fine; a broken one is not.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks value ranges that viper cannot express.
func (c *Global) Validate() error {
	if c.DefaultClusters < 2 {
		return fmt.Errorf("default_clusters must be at least 2, got %d", c.DefaultClusters)
	}
	if c.DefaultMinSupport <= 0 || c.DefaultMinSupport > 1 {
		return fmt.Errorf("default_min_support must be in (0, 1], got %g", c.DefaultMinSupport)
	}
	if c.RenderTimeoutSec < 0 {
		return fmt.Errorf("render_timeout_sec must not be negative, got %d", c.RenderTimeoutSec)
	}
	if _, err := c.DelimiterRune(); err != nil {
		return err
	}
	return nil
}
