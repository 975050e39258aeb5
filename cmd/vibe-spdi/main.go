// Package main provides the vibe-spdi command-line tool.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Exit codes
const (
	ExitSuccess = 0
	ExitError   = 1
	ExitUsage   = 2
	ExitPartial = 3 // batch finished but some items failed
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// stdout receives command output that is not written to a file.
var stdout io.Writer = os.Stdout

// errPartialFailure is returned by batch commands that wrote their output
// but could not resolve every item.
var errPartialFailure = errors.New("some items could not be resolved")

// usageError marks errors caused by invalid arguments.
type usageError struct{ err error }

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	a := &app{}
	root := newRootCmd(a)
	root.SetArgs(args)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := root.ExecuteContext(ctx)
	if a.logger != nil {
		a.logger.Sync()
	}

	var uerr *usageError
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, errPartialFailure):
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitPartial
	case errors.As(err, &uerr):
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitUsage
	default:
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitError
	}
}

// app carries state shared by all subcommands.
type app struct {
	cfg    Config
	logger *zap.Logger
}

func newRootCmd(a *app) *cobra.Command {
	var cfgFile string
	var verbose bool

	root := &cobra.Command{
		Use:   "vibe-spdi",
		Short: "Convert between SPDI and VCF-style variant notations",
		Long: `vibe-spdi converts variant identifiers between SPDI and VCF-style
chr:pos:ref:alt notation using the NCBI Variation Services, resolves
dbSNP rsIDs remotely or from a local snapshot file, and normalizes
ClinVar tabular exports.`,
		Version:       fmt.Sprintf("%s (%s) built %s", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := initConfig(cfgFile); err != nil {
				return err
			}
			cfg, err := loadConfig()
			if err != nil {
				return &usageError{err}
			}
			a.cfg = cfg
			a.logger, err = newLogger(verbose)
			return err
		},
	}
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &usageError{err}
	})

	pf := root.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "Config file (default: ~/.vibe-spdi.yaml)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	pf.String("assembly", defaultConfig().Assembly, "Reference build alleles are reported for")
	pf.Int("workers", 0, "Concurrent lookups (default: CPUs - 1)")
	pf.String("base-url", defaultConfig().NCBI.BaseURL, "NCBI Variation Services base URL")
	viper.BindPFlag("assembly", pf.Lookup("assembly"))
	viper.BindPFlag("workers", pf.Lookup("workers"))
	viper.BindPFlag("ncbi.base_url", pf.Lookup("base-url"))

	root.AddCommand(newSPDICmd(a))
	root.AddCommand(newResolveCmd(a))
	root.AddCommand(newScanCmd(a))
	root.AddCommand(newNormalizeCmd(a))
	root.AddCommand(newConfigCmd())

	return root
}

// initConfig reads the config file and environment. A missing config file
// is not an error.
func initConfig(cfgFile string) error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.SetConfigName(".vibe-spdi")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("VIBE_SPDI")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || (cfgFile == "" && os.IsNotExist(err)) {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}
	return nil
}

// newLogger builds a console logger on stderr.
func newLogger(verbose bool) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.DisableStacktrace = !verbose
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	logger, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}
