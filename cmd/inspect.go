package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/bytedance/sonic"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/iksnae/dealerchat/internal"
	"github.com/iksnae/dealerchat/internal/view"
)

var inspectFormat string

var (
	frameStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("62")).Bold(true)
	droppedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Italic(true)
	eventStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
)

// inspectRecord is one line of JSON output
type inspectRecord struct {
	Index      int    `json:"index"`
	Event      string `json:"event"`
	Data       string `json:"data"`
	Normalized any    `json:"normalized"`
}

// inspectCmd represents the inspect command
var inspectCmd = &cobra.Command{
	Use:   "inspect <capture-file>",
	Short: "Decode a captured response stream",
	Long: `Decode a response stream saved to a file (for example with curl -N) and
show every frame next to the event it normalizes to. Frames the client would
ignore are marked as dropped.

Examples:
  dealerchat inspect reply.sse
  dealerchat inspect reply.sse --format json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if inspectFormat != "text" && inspectFormat != "json" {
			return fmt.Errorf("unsupported format: %s (supported: text, json)", inspectFormat)
		}

		file, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open capture: %w", err)
		}
		defer file.Close()

		normalizer := internal.NewNormalizer(internal.NewInterpreter(cfg.Defaults))
		out := cmd.OutOrStdout()

		var frames, dropped int
		var writeErr error
		decodeErr := internal.DecodeStream(cmd.Context(), file, func(frame internal.Frame) {
			frames++
			event, ok := normalizer.Normalize(frame)
			if !ok {
				dropped++
			}
			if writeErr == nil {
				writeErr = writeFrame(out, frames, frame, event, ok)
			}
		})
		if writeErr != nil {
			return writeErr
		}
		if decodeErr != nil {
			return fmt.Errorf("failed to read capture: %w", decodeErr)
		}

		if inspectFormat == "text" {
			fmt.Fprintln(out)
			fmt.Fprintf(out, "%d frame(s), %d dropped\n", frames, dropped)
		}
		return nil
	},
}

func writeFrame(out io.Writer, index int, frame internal.Frame, event internal.StreamEvent, ok bool) error {
	if inspectFormat == "json" {
		rec := inspectRecord{Index: index, Event: frame.Event, Data: frame.Data}
		if ok {
			rec.Normalized = describeEvent(event)
		}
		line, err := sonic.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to encode frame %d: %w", index, err)
		}
		_, err = fmt.Fprintln(out, string(line))
		return err
	}

	fmt.Fprintf(out, "%s %s %q\n", frameStyle.Render(fmt.Sprintf("#%d", index)), frame.Event, view.Truncate(frame.Data, 60))
	if !ok {
		fmt.Fprintln(out, "   "+droppedStyle.Render("dropped"))
		return nil
	}
	for _, line := range describeLines(event) {
		fmt.Fprintln(out, "   "+eventStyle.Render(line))
	}
	return nil
}

// describeEvent returns a JSON-friendly view of a normalized event
func describeEvent(event internal.StreamEvent) map[string]any {
	desc := map[string]any{"type": event.EventType()}
	switch e := event.(type) {
	case internal.ChunkEvent:
		desc["text"] = e.Text
	case internal.ToolUseEvent:
		desc["name"] = e.Name
		desc["parameters"] = e.Parameters
	case internal.ToolOutputEvent:
		desc["result"] = e.Result
	}
	return desc
}

func describeLines(event internal.StreamEvent) []string {
	switch e := event.(type) {
	case internal.ChunkEvent:
		return []string{fmt.Sprintf("→ chunk %q", e.Text)}
	case internal.ToolUseEvent:
		return []string{fmt.Sprintf("→ tool_use %s %v", e.Name, e.Parameters)}
	case internal.ToolOutputEvent:
		lines := []string{fmt.Sprintf("→ tool_output %s: %s", e.Result.Kind(), e.Result.Title())}
		for _, f := range e.Result.Fields() {
			lines = append(lines, fmt.Sprintf("    %s: %s", f.Label, f.Value))
		}
		return lines
	default:
		return []string{"→ " + event.EventType()}
	}
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectCmd.Flags().StringVar(&inspectFormat, "format", "text", "Output format (text, json)")
}
