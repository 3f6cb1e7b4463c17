package view

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/iksnae/dealerchat/internal"
)

// DefaultWidth is the wrap width used when the terminal size is unknown
const DefaultWidth = 80

var (
	sessionHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("212")).
				Padding(0, 1).
				MarginBottom(1)

	sessionMetaStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("243"))

	userMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("39")).
				Bold(true).
				Padding(0, 1)

	assistantMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("135")).
				Bold(true).
				Padding(0, 1)

	systemMessageStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("243")).
				Italic(true).
				Padding(0, 1)

	messageContentStyle = lipgloss.NewStyle().
				Padding(0, 2)

	timestampStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)

	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1).
			MarginLeft(2)

	cardTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	cardLabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243"))

	slotStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	errorLineStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Italic(true).
			Padding(0, 2)
)

// Renderer turns sessions and messages into styled terminal text
type Renderer struct {
	interp *internal.Interpreter
	width  int
}

// NewRenderer creates a renderer wrapping text at width columns
func NewRenderer(interp *internal.Interpreter, width int) *Renderer {
	if width <= 0 {
		width = DefaultWidth
	}
	return &Renderer{interp: interp, width: width}
}

// SetWidth changes the wrap width
func (r *Renderer) SetWidth(width int) {
	if width > 0 {
		r.width = width
	}
}

// Header renders the session title and a one-line summary
func (r *Renderer) Header(session *internal.Session, now time.Time) string {
	header := sessionHeaderStyle.Render("💬 " + session.Name)

	metaParts := []string{fmt.Sprintf("Messages: %d", len(session.Messages))}
	if ts := session.LastModified(); !ts.IsZero() {
		metaParts = append(metaParts, "Updated: "+RelativeTime(ts, now))
	}
	metaParts = append(metaParts, "ID: "+session.ID)

	return header + "\n" + sessionMetaStyle.Render(strings.Join(metaParts, " • "))
}

// Message renders one message. index and total are 1-based positions shown
// next to the author; pass total 0 to omit them.
func (r *Renderer) Message(index, total int, msg internal.Message) string {
	var label string
	var style lipgloss.Style
	switch msg.Role {
	case internal.RoleUser:
		style, label = userMessageStyle, "👤 You"
	case internal.RoleAssistant:
		style, label = assistantMessageStyle, "🤖 Assistant"
	case internal.RoleTool:
		style, label = assistantMessageStyle, "🔧 Tool"
	default:
		style, label = systemMessageStyle, "ℹ System"
	}

	header := style.Render(label)
	if total > 0 {
		header += " " + timestampStyle.Render(fmt.Sprintf("[%d/%d]", index, total))
	}
	if ts := msg.GetTimestamp(); !ts.IsZero() {
		header += " " + timestampStyle.Render(ts.Format("15:04:05"))
	}

	return header + "\n" + r.Body(msg)
}

// Body renders a message without its header. Tool messages become cards.
func (r *Renderer) Body(msg internal.Message) string {
	if msg.Role == internal.RoleTool {
		return r.ToolCard(msg.Content)
	}

	content := strings.TrimSpace(msg.Content)
	if content == "" {
		return messageContentStyle.Foreground(lipgloss.Color("240")).Render("(empty message)")
	}
	if msg.Role == internal.RoleSystem {
		return systemMessageStyle.Render(Wrap(content, r.width-4))
	}
	return messageContentStyle.Render(Wrap(content, r.width-4))
}

// ToolCard decodes a tool message and renders it as a bordered card
func (r *Renderer) ToolCard(content string) string {
	result, err := r.interp.DecodeToolMessage(content)
	if err != nil {
		internal.LogDebug("Cannot render tool message: %v", err)
		return errorLineStyle.Render("Error displaying tool output")
	}

	inner := r.width - 8
	lines := []string{cardTitleStyle.Render(Truncate(result.Title(), inner))}
	for _, f := range result.Fields() {
		value := f.Value
		if f.Label == "Times" {
			value = slotStyle.Render(value)
		}
		line := cardLabelStyle.Render(f.Label+":") + " " + value
		lines = append(lines, Wrap(line, inner))
	}

	return cardStyle.Render(strings.Join(lines, "\n"))
}

// Slots returns the bookable times of the newest availability card in
// messages, for the slot picker
func (r *Renderer) Slots(messages []internal.Message) []string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role != internal.RoleTool {
			continue
		}
		result, err := r.interp.DecodeToolMessage(messages[i].Content)
		if err != nil {
			continue
		}
		if slots, ok := result.Data.(internal.AppointmentSlots); ok {
			return slots.AvailableTimes()
		}
	}
	return nil
}

// Wrap breaks text into lines no wider than width display columns. Words
// wider than width are kept whole on their own line.
func Wrap(text string, width int) string {
	if width <= 0 {
		return text
	}

	lines := strings.Split(text, "\n")
	var wrapped []string

	for _, line := range lines {
		if runewidth.StringWidth(line) <= width {
			wrapped = append(wrapped, line)
			continue
		}

		currentLine := ""
		currentWidth := 0
		for _, word := range strings.Fields(line) {
			w := runewidth.StringWidth(word)
			switch {
			case currentLine == "":
				currentLine, currentWidth = word, w
			case currentWidth+1+w > width:
				wrapped = append(wrapped, currentLine)
				currentLine, currentWidth = word, w
			default:
				currentLine += " " + word
				currentWidth += 1 + w
			}
		}
		if currentLine != "" {
			wrapped = append(wrapped, currentLine)
		}
	}

	return strings.Join(wrapped, "\n")
}

// Truncate shortens s to width display columns, ending in "..."
func Truncate(s string, width int) string {
	if width <= 0 || runewidth.StringWidth(s) <= width {
		return s
	}
	return runewidth.Truncate(s, width, "...")
}

// RelativeTime formats t for listings: clock time today, weekday within a
// week, month and day within a year, full date otherwise
func RelativeTime(t, now time.Time) string {
	diff := now.Sub(t)
	switch {
	case diff < 24*time.Hour:
		return t.Format("Today 15:04")
	case diff < 7*24*time.Hour:
		return t.Format("Mon 15:04")
	case diff < 365*24*time.Hour:
		return t.Format("Jan 02 15:04")
	default:
		return t.Format("2006-01-02")
	}
}
