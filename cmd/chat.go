package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/iksnae/dealerchat/internal"
	"github.com/iksnae/dealerchat/internal/tui"
)

// chatCmd represents the chat command
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Open the interactive chat",
	Long: `Open a full-screen chat with the assistant. Type /help inside the chat
for the conversation commands. Log output goes to the configured log file
while the chat is open.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		logFile, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer logFile.Close()
		internal.SetLogOutput(logFile)
		defer internal.SetLogOutput(os.Stderr)

		notifier := &tui.Notifier{}
		a, err := openApp(internal.WithObserver(notifier.Notify))
		if err != nil {
			return err
		}
		defer a.Close()

		internal.LogInfo("Chat started with %d session(s)", len(a.store.Sessions()))
		return tui.Run(cmd.Context(), a.store, a.renderer, notifier)
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
}
