package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/AlecAivazis/survey/v2"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/iksnae/dealerchat/internal"
	"github.com/iksnae/dealerchat/internal/view"
)

var (
	searchQuery string
	deleteForce bool
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		Italic(true)

	countStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	dateStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	currentStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)
)

// sessionsCmd groups the session management commands
var sessionsCmd = &cobra.Command{
	Use:     "sessions",
	Aliases: []string{"session"},
	Short:   "Manage saved conversations",
}

var sessionsListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List saved conversations",
	Long:    `List saved conversations in creation order. The current one is marked with ●.`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		sessions := a.store.SearchSessions(searchQuery)
		out := cmd.OutOrStdout()
		if len(sessions) == 0 {
			fmt.Fprintln(out, "No sessions found.")
			return nil
		}

		fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("💬 Conversations (%d)", len(sessions))))
		fmt.Fprintln(out)

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "  \tID\tNAME\tMESSAGES\tUPDATED")

		now := time.Now()
		current := a.store.CurrentID()
		for _, s := range sessions {
			marker := " "
			if s.ID == current {
				marker = currentStyle.Render("●")
			}
			updated := "-"
			if ts := s.LastModified(); !ts.IsZero() {
				updated = view.RelativeTime(ts, now)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				marker,
				idStyle.Render(shortID(s.ID)),
				titleStyle.Render(view.Truncate(s.Name, 40)),
				countStyle.Render(fmt.Sprintf("%d", len(s.Messages))),
				dateStyle.Render(updated),
			)
		}
		return w.Flush()
	},
}

var sessionsNewCmd = &cobra.Command{
	Use:   "new [name]",
	Short: "Start a new conversation and make it current",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		id := a.store.CreateSession()
		if len(args) == 1 {
			if err := a.store.RenameSession(id, args[0]); err != nil {
				return err
			}
		}
		fmt.Fprintln(cmd.OutOrStdout(), id)
		return nil
	},
}

var sessionsSwitchCmd = &cobra.Command{
	Use:   "switch <session-id>",
	Short: "Make a conversation current",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		s, err := resolveSession(a.store, args[0])
		if err != nil {
			return err
		}
		a.store.SwitchSession(s.ID)
		fmt.Fprintf(cmd.OutOrStdout(), "Switched to %s (%s)\n", s.Name, s.ID)
		return nil
	},
}

var sessionsRenameCmd = &cobra.Command{
	Use:   "rename <session-id> [name]",
	Short: "Rename a conversation",
	Long:  `Rename a conversation. Without a name you are prompted for one.`,
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		s, err := resolveSession(a.store, args[0])
		if err != nil {
			return err
		}

		var name string
		if len(args) == 2 {
			name = args[1]
		} else {
			prompt := &survey.Input{
				Message: "New name:",
				Default: s.Name,
			}
			if err := survey.AskOne(prompt, &name, survey.WithValidator(survey.Required)); err != nil {
				return fmt.Errorf("name prompt failed: %w", err)
			}
		}

		if err := a.store.RenameSession(s.ID, name); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Renamed %s to %q\n", shortID(s.ID), name)
		return nil
	},
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete a conversation",
	Long: `Delete a conversation. By default you are asked to confirm; use --force
to skip the prompt. Deleting the current conversation selects the most
recently used one, or starts a new one when none is left.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		s, err := resolveSession(a.store, args[0])
		if err != nil {
			return err
		}

		if !deleteForce {
			confirm := false
			prompt := &survey.Confirm{
				Message: fmt.Sprintf("Delete %q (%d messages)?", s.Name, len(s.Messages)),
			}
			if err := survey.AskOne(prompt, &confirm); err != nil {
				return fmt.Errorf("confirmation prompt failed: %w", err)
			}
			if !confirm {
				internal.PrintInfo("Deletion cancelled")
				return nil
			}
		}

		if err := a.store.DeleteSession(s.ID); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", s.ID)
		return nil
	},
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
	sessionsCmd.AddCommand(sessionsListCmd, sessionsNewCmd, sessionsSwitchCmd, sessionsRenameCmd, sessionsDeleteCmd)

	sessionsListCmd.Flags().StringVarP(&searchQuery, "search", "s", "", "Only list sessions whose name contains this text")
	sessionsDeleteCmd.Flags().BoolVarP(&deleteForce, "force", "f", false, "Skip confirmation prompt")
}
