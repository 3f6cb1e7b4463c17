package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/iksnae/dealerchat/internal"
)

// MarkdownExporter exports sessions in Markdown format. Tool messages are
// rendered as field lists instead of raw JSON.
type MarkdownExporter struct {
	interp *internal.Interpreter
}

// Export exports a session to Markdown format
func (e *MarkdownExporter) Export(session *internal.Session, w io.Writer) error {
	_, _ = fmt.Fprintf(w, "# %s\n\n", session.Name)
	_, _ = fmt.Fprintf(w, "**Session:** %s  \n", session.ID)
	if !session.LastModified().IsZero() {
		_, _ = fmt.Fprintf(w, "**Last modified:** %s  \n", session.LastModified().UTC().Format(time.RFC3339))
	}
	_, _ = fmt.Fprintf(w, "**Messages:** %d\n\n", len(session.Messages))

	_, _ = fmt.Fprintf(w, "---\n\n")
	_, _ = fmt.Fprintf(w, "## Messages\n\n")

	for i, msg := range session.Messages {
		timestamp := ""
		if ts := msg.GetTimestamp(); !ts.IsZero() {
			timestamp = fmt.Sprintf(" (%s)", ts.UTC().Format(time.RFC3339))
		}

		_, _ = fmt.Fprintf(w, "**%s:**%s\n\n%s\n\n", msg.Role, timestamp, e.body(msg))

		if i < len(session.Messages)-1 {
			_, _ = fmt.Fprintf(w, "---\n\n")
		}
	}

	return nil
}

func (e *MarkdownExporter) body(msg internal.Message) string {
	if msg.Role != internal.RoleTool {
		return escapeMarkdown(msg.Content)
	}

	result, err := e.interp.DecodeToolMessage(msg.Content)
	if err != nil {
		return "_Error displaying tool output_"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "### %s\n", escapeMarkdown(result.Title()))
	for _, f := range result.Fields() {
		fmt.Fprintf(&b, "\n- **%s:** %s", f.Label, escapeMarkdown(f.Value))
	}
	return b.String()
}

// escapeMarkdown escapes markdown special characters
func escapeMarkdown(text string) string {
	// Basic escaping - preserve code blocks
	lines := strings.Split(text, "\n")
	var result []string
	inCodeBlock := false

	for _, line := range lines {
		if strings.HasPrefix(line, "```") {
			inCodeBlock = !inCodeBlock
			result = append(result, line)
		} else if inCodeBlock {
			result = append(result, line)
		} else {
			line = strings.ReplaceAll(line, "**", "\\*\\*")
			line = strings.ReplaceAll(line, "__", "\\_\\_")
			result = append(result, line)
		}
	}

	return strings.Join(result, "\n")
}

// Extension returns the file extension for this format
func (e *MarkdownExporter) Extension() string {
	return "md"
}
