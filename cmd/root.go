package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/iksnae/dealerchat/internal"
	"github.com/iksnae/dealerchat/internal/config"
)

var (
	verbose     bool
	configPath  string
	serverURL   string
	storagePath string
	version     string = "dev"
	commit      string = "unknown"
	date        string = "unknown"

	// cfg is loaded before every subcommand runs
	cfg *config.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "dealerchat",
	Short: "Chat with the dealership assistant from your terminal",
	Long: `A terminal client for the dealership assistant.

Ask about vehicles, dealership hours and the weather, then book a test drive
from the appointment slots the assistant offers. Conversations are kept as
named sessions on disk so you can pick them up later.

Quick Start:
  dealerchat chat                         # Interactive chat
  dealerchat send "Any slots on Friday?"  # One-shot question
  dealerchat book "10:00 AM"              # Confirm an offered slot
  dealerchat sessions list                # List conversations
  dealerchat export --format md           # Export as Markdown`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if serverURL != "" {
			loaded.Server = serverURL
		}
		if storagePath != "" {
			loaded.Storage = storagePath
		}
		if err := loaded.Validate(); err != nil {
			return fmt.Errorf("invalid flags: %w", err)
		}
		cfg = loaded

		level, _ := internal.ParseLogLevel(cfg.LogLevel)
		internal.SetLogLevel(level)
		if verbose {
			internal.SetVerbose(true)
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default $HOME/.dealerchat/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "Assistant server base URL")
	rootCmd.PersistentFlags().StringVar(&storagePath, "storage", "", "Session database file")

	// Set version template to ensure --version flag works
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}
