package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/iksnae/dealerchat/internal"
)

var (
	limit int
	since string
)

// showCmd represents the show command
var showCmd = &cobra.Command{
	Use:   "show [session-id]",
	Short: "Show messages for a session",
	Long: `Display the messages of a conversation, with tool results rendered as
cards. Without a session ID the current conversation is shown.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var sinceTime time.Time
		if since != "" {
			parsed, err := time.Parse(time.RFC3339, since)
			if err != nil {
				return fmt.Errorf("invalid --since timestamp format (expected RFC3339): %w", err)
			}
			sinceTime = parsed
		}

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		session := a.store.Current()
		if len(args) == 1 {
			session, err = resolveSession(a.store, args[0])
			if err != nil {
				return err
			}
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, a.renderer.Header(session, time.Now()))
		fmt.Fprintln(out)

		messages := filterMessages(session.Messages, sinceTime)
		total := len(messages)
		if limit > 0 && limit < total {
			messages = messages[:limit]
		}
		if len(messages) == 0 {
			fmt.Fprintln(out, "No messages to show.")
			return nil
		}

		for i, msg := range messages {
			fmt.Fprintln(out, a.renderer.Message(i+1, total, msg))
			fmt.Fprintln(out)
		}

		if remaining := total - len(messages); remaining > 0 {
			internal.PrintInfo(fmt.Sprintf("... %d more message(s) not shown (use --limit to see more)", remaining))
		}
		return nil
	},
}

// filterMessages keeps messages stamped at or after since. Messages without a
// timestamp are always kept.
func filterMessages(messages []internal.Message, since time.Time) []internal.Message {
	if since.IsZero() {
		return messages
	}
	var kept []internal.Message
	for _, msg := range messages {
		ts := msg.GetTimestamp()
		if ts.IsZero() || !ts.Before(since) {
			kept = append(kept, msg)
		}
	}
	return kept
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().IntVarP(&limit, "limit", "n", 0, "Limit number of messages to show")
	showCmd.Flags().StringVar(&since, "since", "", "Show messages since timestamp (RFC3339)")
}
