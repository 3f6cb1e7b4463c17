package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/iksnae/dealerchat/internal"
	"github.com/iksnae/dealerchat/internal/client"
)

var (
	healthcheckVerbose bool
)

var (
	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39"))

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("62")).
			Bold(true).
			Underline(true)
)

// healthcheckCmd represents the healthcheck command
var healthcheckCmd = &cobra.Command{
	Use:   "healthcheck",
	Short: "Check configuration, session storage and server reachability",
	Long: `Check the health of dealerchat by verifying:
  • Configuration source and values
  • Session database accessibility
  • Saved session count
  • Assistant server reachability`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, sectionStyle.Render("🔍 dealerchat Health Check"))
		fmt.Fprintln(out)

		// Step 1: Configuration
		fmt.Fprintln(out, infoStyle.Render("Step 1: Loading configuration..."))
		if cfg.Source != "" {
			fmt.Fprintln(out, successStyle.Render("✅ Config file loaded"))
			if healthcheckVerbose {
				fmt.Fprintf(out, "   File: %s\n", cfg.Source)
			}
		} else {
			fmt.Fprintln(out, successStyle.Render("✅ Using built-in defaults (no config file)"))
		}
		if healthcheckVerbose {
			fmt.Fprintf(out, "   Server: %s\n", cfg.Server)
			fmt.Fprintf(out, "   Storage: %s\n", cfg.Storage)
			fmt.Fprintf(out, "   Log level: %s\n", cfg.LogLevel)
		}
		fmt.Fprintln(out)

		// Step 2: Session storage
		fmt.Fprintln(out, infoStyle.Render("Step 2: Checking session storage..."))
		storageOK := true
		sessionCount := 0
		if _, err := os.Stat(cfg.Storage); errors.Is(err, os.ErrNotExist) {
			fmt.Fprintln(out, warningStyle.Render("⚠️  Session database not created yet"))
			if healthcheckVerbose {
				fmt.Fprintf(out, "   Expected: %s\n", cfg.Storage)
				fmt.Fprintln(out, "   It is created the first time you chat")
			}
		} else {
			sessions, err := loadSavedSessions(cfg.Storage)
			if err != nil {
				storageOK = false
				fmt.Fprintln(out, errorStyle.Render("❌ Failed to read sessions:"), err)
			} else {
				sessionCount = len(sessions)
				fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("✅ Found %d session(s)", sessionCount)))
				if healthcheckVerbose {
					for i, s := range sessions {
						if i == 5 {
							fmt.Fprintf(out, "   ... and %d more\n", len(sessions)-5)
							break
						}
						fmt.Fprintf(out, "   [%d] %s (ID: %s)\n", i+1, s.Name, shortID(s.ID))
					}
				}
			}
		}
		fmt.Fprintln(out)

		// Step 3: Server
		fmt.Fprintln(out, infoStyle.Render("Step 3: Contacting assistant server..."))
		serverOK := true
		streamClient, err := client.New(cfg.QueryURL(), cfg.DialTimeout)
		if err == nil {
			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.DialTimeout+5*time.Second)
			var status int
			status, err = streamClient.Ping(ctx, cfg.Server)
			cancel()
			if err == nil {
				fmt.Fprintln(out, successStyle.Render("✅ Server reachable"))
				if healthcheckVerbose {
					fmt.Fprintf(out, "   %s answered HTTP %d\n", cfg.Server, status)
				}
			}
		}
		if err != nil {
			serverOK = false
			fmt.Fprintln(out, errorStyle.Render("❌ Server unreachable:"), err)
			internal.LogDebug("Ping %s failed: %v", cfg.Server, err)
		}
		fmt.Fprintln(out)

		// Summary
		fmt.Fprintln(out, sectionStyle.Render("📊 Summary"))
		fmt.Fprintln(out)

		switch {
		case storageOK && serverOK:
			fmt.Fprintln(out, successStyle.Render("✅ Health check passed!"))
			fmt.Fprintln(out, successStyle.Render(fmt.Sprintf("   • Sessions: %d saved", sessionCount)))
			return nil
		case !serverOK:
			fmt.Fprintln(out, errorStyle.Render("❌ Health check failed"))
			fmt.Fprintln(out, "   • The assistant server cannot be reached; check --server or DEALERCHAT_SERVER")
			return fmt.Errorf("health check failed: server %s unreachable", cfg.Server)
		default:
			fmt.Fprintln(out, errorStyle.Render("❌ Health check failed"))
			fmt.Fprintln(out, "   • The session database cannot be read")
			return fmt.Errorf("health check failed: storage %s unreadable", cfg.Storage)
		}
	},
}

func init() {
	rootCmd.AddCommand(healthcheckCmd)
	healthcheckCmd.Flags().BoolVarP(&healthcheckVerbose, "details", "d", false, "Show detailed diagnostic information")
}
