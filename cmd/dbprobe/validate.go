package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fgeck/dbprobe/internal/models"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration",
	Long: `Load the configuration (defaults, env files, environment, config file and flags)
and print a summary without connecting to any database.`,
	Args: cobra.NoArgs,
	RunE: validateConfig,
}

func validateConfig(cmd *cobra.Command, args []string) error {
	if configFile != "" {
		if _, err := os.Stat(configFile); os.IsNotExist(err) {
			log.Error().Str("file", configFile).Msg("config file not found")
			return fmt.Errorf("config file not found: %s", configFile)
		}
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		log.Error().Err(err).Msg("configuration validation failed")
		return err
	}

	printSummary(cmd.OutOrStdout(), cfg)
	return nil
}

func printSummary(w io.Writer, cfg *models.Config) {
	p := func(format string, a ...any) { _, _ = fmt.Fprintf(w, format, a...) }

	p("Configuration is valid!\n\n")
	p("Databases:\n")
	p("  MySQL: %s (user %s)\n", cfg.MySQL.Addr(), cfg.MySQL.Username)
	p("  PostgreSQL: %s/%s (user %s, sslmode %s)\n", cfg.PostgreSQL.Addr(), cfg.PostgreSQL.Database, cfg.PostgreSQL.Username, cfg.PostgreSQL.SSLMode)
	p("  MongoDB: %s/%s (user %s)\n", cfg.MongoDB.Addr(), cfg.MongoDB.Database, cfg.MongoDB.Username)
	p("  Redis: %s (db %d)\n", cfg.Redis.Addr(), cfg.Redis.DB)
	p("\nRetry:\n")
	p("  Max attempts: %d\n", cfg.Retry.MaxAttempts)
	p("  Delay: %s\n", cfg.Retry.Delay)
	p("  Parallel: %v\n", cfg.Parallel)
	p("\nOptional Features:\n")
	p("  Wake-on-LAN: %v\n", cfg.WOL != nil)
	p("  Container inspection: %v\n", cfg.Inspect != nil && cfg.Inspect.Enabled)
	p("  Telegram: %v\n", cfg.Telegram != nil)

	if cfg.WOL != nil {
		p("\nWOL Configuration:\n")
		p("  MAC Address: %s\n", cfg.WOL.MACAddress)
		p("  Broadcast IP: %s\n", cfg.WOL.BroadcastIP)
		if cfg.WOL.WaitAddr != "" {
			p("  Wait for: %s (timeout %s)\n", cfg.WOL.WaitAddr, cfg.WOL.Timeout)
		}
	}

	if cfg.Inspect != nil && cfg.Inspect.SSH != nil {
		p("\nInspection over SSH:\n")
		p("  Host: %s\n", cfg.Inspect.SSH.Host)
		p("  Port: %d\n", cfg.Inspect.SSH.Port)
		p("  Username: %s\n", cfg.Inspect.SSH.Username)
	}

	if cfg.Telegram != nil {
		p("\nTelegram Configuration:\n")
		p("  Chat ID: %s\n", cfg.Telegram.ChatID)
		p("  Bot Token: (configured)\n")
	}
}
