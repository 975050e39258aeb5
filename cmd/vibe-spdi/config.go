package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/inodb/vibe-spdi/internal/ncbi"
	"github.com/inodb/vibe-spdi/internal/ratelimit"
	"github.com/inodb/vibe-spdi/internal/refsnp"
)

// Config holds settings from ~/.vibe-spdi.yaml, VIBE_SPDI_* environment
// variables and command-line flags.
type Config struct {
	Assembly string     `mapstructure:"assembly"`
	Workers  int        `mapstructure:"workers"`
	NCBI     NCBIConfig `mapstructure:"ncbi"`
	Rate     RateConfig `mapstructure:"rate"`
}

// NCBIConfig configures the Variation Services client.
type NCBIConfig struct {
	BaseURL       string        `mapstructure:"base_url"`
	Timeout       time.Duration `mapstructure:"timeout"`
	MaxRetries    uint64        `mapstructure:"max_retries"`
	RetryInterval time.Duration `mapstructure:"retry_interval"`
}

// RateConfig is the global limit on NCBI calls.
type RateConfig struct {
	Calls  int           `mapstructure:"calls"`
	Window time.Duration `mapstructure:"window"`
}

func defaultConfig() Config {
	return Config{
		Assembly: refsnp.DefaultAssembly,
		NCBI: NCBIConfig{
			BaseURL:       ncbi.DefaultBaseURL,
			Timeout:       ncbi.DefaultTimeout,
			MaxRetries:    ncbi.DefaultMaxRetries,
			RetryInterval: ncbi.DefaultRetryInterval,
		},
		Rate: RateConfig{
			Calls:  ratelimit.DefaultCalls,
			Window: ratelimit.DefaultWindow,
		},
	}
}

func setDefaults() {
	d := defaultConfig()
	viper.SetDefault("assembly", d.Assembly)
	viper.SetDefault("workers", d.Workers)
	viper.SetDefault("ncbi.base_url", d.NCBI.BaseURL)
	viper.SetDefault("ncbi.timeout", d.NCBI.Timeout)
	viper.SetDefault("ncbi.max_retries", d.NCBI.MaxRetries)
	viper.SetDefault("ncbi.retry_interval", d.NCBI.RetryInterval)
	viper.SetDefault("rate.calls", d.Rate.Calls)
	viper.SetDefault("rate.window", d.Rate.Window)
}

// loadConfig decodes and validates the merged configuration.
func loadConfig() (Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if cfg.Workers < 0 {
		return Config{}, fmt.Errorf("workers must not be negative, got %d", cfg.Workers)
	}
	if cfg.Rate.Calls <= 0 || cfg.Rate.Window <= 0 {
		return Config{}, fmt.Errorf("rate limit must be positive, got %d calls per %s", cfg.Rate.Calls, cfg.Rate.Window)
	}
	if cfg.NCBI.Timeout <= 0 {
		return Config{}, fmt.Errorf("ncbi.timeout must be positive, got %s", cfg.NCBI.Timeout)
	}
	return cfg, nil
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage vibe-spdi configuration",
		Long:  "Show, get, or set configuration values. Config is stored in ~/.vibe-spdi.yaml.",
		Example: `  vibe-spdi config                          # show all config
  vibe-spdi config set rate.calls 3         # slow down NCBI lookups
  vibe-spdi config get ncbi.base_url        # get a value`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow()
		},
	}

	cmd.AddCommand(newConfigSetCmd())
	cmd.AddCommand(newConfigGetCmd())

	return cmd
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigSet(args[0], args[1])
		},
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigGet(args[0])
		},
	}
}

func runConfigShow() error {
	out, err := yaml.Marshal(viper.AllSettings())
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if f := viper.ConfigFileUsed(); f != "" {
		fmt.Fprintf(stdout, "# Config file: %s\n", f)
	}
	fmt.Fprint(stdout, string(out))
	return nil
}

func runConfigSet(key, value string) error {
	viper.Set(key, value)

	if _, err := loadConfig(); err != nil {
		return &usageError{err}
	}

	// Ensure config file exists
	cfgFile := viper.ConfigFileUsed()
	if cfgFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("cannot determine home directory: %w", err)
		}
		cfgFile = filepath.Join(home, ".vibe-spdi.yaml")
	}

	if err := viper.WriteConfigAs(cfgFile); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Fprintf(stdout, "Set %s = %s in %s\n", key, value, cfgFile)
	return nil
}

func runConfigGet(key string) error {
	val := viper.Get(key)
	if val == nil {
		return fmt.Errorf("key %q is not set", key)
	}
	fmt.Fprintln(stdout, val)
	return nil
}
