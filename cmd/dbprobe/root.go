package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/fgeck/dbprobe/internal/config"
	"github.com/fgeck/dbprobe/internal/models"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	// Version is set at build time.
	Version = "dev"

	// Configuration flags.
	configFile string
	envFiles   []string
	verbose    bool
	quiet      bool
	jsonOutput bool

	// Run flags.
	parallel   bool
	retries    int
	retryDelay time.Duration
	inspect    bool
)

var rootCmd = &cobra.Command{
	Use:   "dbprobe [mongodb|mysql|postgresql|redis]",
	Short: "Check connectivity to MongoDB, MySQL, PostgreSQL and Redis",
	Long: `dbprobe connects to each configured database, runs a trivial query,
and reports which backends are reachable.

Without arguments all four backends are checked in order (mysql, postgresql,
mongodb, redis) and the exit code is 0 only if every one of them connected.
With a backend name only that database is checked.

Failed probes are retried with a flat delay between attempts.`,
	Example: `  # Check every database
  dbprobe

  # Check a single database
  dbprobe postgres

  # Use a config file and check in parallel
  dbprobe -c dbprobe.yaml --parallel`,
	Args: cobra.MaximumNArgs(1),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging()
	},
	RunE:          runProbe,
	Version:       Version,
	SilenceErrors: true,
	SilenceUsage:  true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (optional, defaults are used otherwise)")
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", config.DefaultEnvFiles, "dotenv files loaded before reading the environment")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose (debug) output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "enable quiet mode (errors only)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output logs in JSON format")

	rootCmd.PersistentFlags().BoolVar(&parallel, "parallel", false, "probe all databases concurrently")
	rootCmd.PersistentFlags().IntVar(&retries, "retries", config.DefaultMaxAttempts, "attempts per database")
	rootCmd.PersistentFlags().DurationVar(&retryDelay, "retry-delay", config.DefaultRetryDelay, "delay between attempts")
	rootCmd.PersistentFlags().BoolVar(&inspect, "inspect", false, "list matching docker containers for failed databases")

	rootCmd.AddCommand(validateCmd)
}

func setupLogging() {
	// Set output format
	if jsonOutput {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	} else {
		output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}
		output.FormatLevel = func(i interface{}) string {
			if s, ok := i.(string); ok {
				return strings.ToUpper(s)
			}
			return ""
		}
		log.Logger = zerolog.New(output).With().Timestamp().Logger()
	}

	// Set log level
	switch {
	case quiet:
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	case verbose:
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	}
}

// loadConfig reads dotenv files, the optional config file and flag overrides.
func loadConfig(cmd *cobra.Command) (*models.Config, error) {
	loaded, err := config.LoadEnvFiles(envFiles...)
	if err != nil {
		return nil, fmt.Errorf("loading env files: %w", err)
	}
	if len(loaded) > 0 {
		log.Debug().Strs("files", loaded).Msg("loaded env files")
	}

	cfg, err := config.NewParser().LoadFile(configFile)
	if err != nil {
		return nil, err
	}

	applyFlags(cmd, cfg)

	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// applyFlags overrides config values with flags that were set explicitly.
func applyFlags(cmd *cobra.Command, cfg *models.Config) {
	flags := cmd.Flags()
	if flags.Changed("parallel") {
		cfg.Parallel = parallel
	}
	if flags.Changed("retries") {
		cfg.Retry.MaxAttempts = retries
	}
	if flags.Changed("retry-delay") {
		cfg.Retry.Delay = retryDelay
	}
	if flags.Changed("inspect") {
		if cfg.Inspect == nil {
			cfg.Inspect = &models.InspectConfig{}
		}
		cfg.Inspect.Enabled = inspect
	}
}

func noColor() bool {
	return jsonOutput || color.NoColor
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
